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

// OpenMeteoGeocoder implements weather.PlaceSearcher for the Open-Meteo geocoding API.
type OpenMeteoGeocoder struct {
	name    string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

// NewOpenMeteoGeocoder creates a searcher against baseURL (e.g. https://geocoding-api.open-meteo.com/v1).
func NewOpenMeteoGeocoder(client *http.Client, baseURL string) *OpenMeteoGeocoder {
	return &OpenMeteoGeocoder{
		name:    "openmeteo-geocoding",
		baseURL: baseURL,
		httpCfg: HTTPClientConfig{Client: client},
		circuit: newCircuitBreaker("openmeteo-geocoding"),
	}
}

func (g *OpenMeteoGeocoder) Name() string {
	return g.name
}

// SearchPlaces returns up to limit candidates. A response without results
// is an empty, non-nil slice.
func (g *OpenMeteoGeocoder) SearchPlaces(ctx context.Context, query string, limit int) ([]weather.Place, error) {
	values := url.Values{}
	values.Set("name", query)
	values.Set("count", strconv.Itoa(limit))
	values.Set("language", "en")
	values.Set("format", "json")

	resp, err := doRequest(ctx, g.httpCfg, g.circuit, fmt.Sprintf("%s/search?%s", g.baseURL, values.Encode()))
	if err != nil {
		return nil, fmt.Errorf("openmeteo geocoding search: %w", err)
	}
	defer resp.Body.Close()

	var payload struct {
		Results []struct {
			Name      string  `json:"name"`
			Country   string  `json:"country"`
			Latitude  float64 `json:"latitude"`
			Longitude float64 `json:"longitude"`
			Admin1    string  `json:"admin1"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode geocoding response: %w", err)
	}

	places := make([]weather.Place, 0, len(payload.Results))
	for _, r := range payload.Results {
		places = append(places, weather.Place{
			DisplayName: r.Name,
			Country:     r.Country,
			Lat:         r.Latitude,
			Lon:         r.Longitude,
			AdminRegion: r.Admin1,
		})
	}
	return places, nil
}
