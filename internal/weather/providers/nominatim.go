package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-cache/internal/weather"
)

// NominatimGeocoder implements weather.ReverseGeocoder for OpenStreetMap Nominatim.
type NominatimGeocoder struct {
	name    string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

// NewNominatimGeocoder creates a geocoder against baseURL (e.g. https://nominatim.openstreetmap.org).
// Nominatim's usage policy requires an identifying User-Agent.
func NewNominatimGeocoder(client *http.Client, baseURL, userAgent string) *NominatimGeocoder {
	return &NominatimGeocoder{
		name:    "nominatim",
		baseURL: baseURL,
		httpCfg: HTTPClientConfig{
			Client:    client,
			UserAgent: userAgent,
		},
		circuit: newCircuitBreaker("nominatim"),
	}
}

func (g *NominatimGeocoder) Name() string {
	return g.name
}

// ReverseGeocode looks up the address nearest to a coordinate. An address
// with every field empty is a valid answer (e.g. open sea).
func (g *NominatimGeocoder) ReverseGeocode(ctx context.Context, lat, lon float64) (weather.Address, error) {
	values := url.Values{}
	values.Set("format", "json")
	values.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	values.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	values.Set("zoom", "10")
	values.Set("addressdetails", "1")

	resp, err := doRequest(ctx, g.httpCfg, g.circuit, fmt.Sprintf("%s/reverse?%s", g.baseURL, values.Encode()))
	if err != nil {
		return weather.Address{}, fmt.Errorf("nominatim reverse: %w", err)
	}
	defer resp.Body.Close()

	var payload struct {
		DisplayName string `json:"display_name"`
		Address     *struct {
			City    string `json:"city"`
			Town    string `json:"town"`
			Village string `json:"village"`
			Suburb  string `json:"suburb"`
			State   string `json:"state"`
			Country string `json:"country"`
		} `json:"address"`
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return weather.Address{}, fmt.Errorf("decode nominatim response: %w", err)
	}
	if payload.Error != "" {
		return weather.Address{}, fmt.Errorf("nominatim: %s", payload.Error)
	}

	addr := weather.Address{DisplayName: payload.DisplayName}
	if a := payload.Address; a != nil {
		addr.City = a.City
		addr.Town = a.Town
		addr.Village = a.Village
		addr.Suburb = a.Suburb
		addr.State = a.State
		addr.Country = a.Country
	}
	return addr, nil
}
