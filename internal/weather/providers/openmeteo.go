package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-cache/internal/weather"
)

const (
	openMeteoCurrentFields = "temperature_2m,relative_humidity_2m,apparent_temperature,weather_code,wind_speed_10m,wind_direction_10m"
	openMeteoDailyFields   = "weather_code,temperature_2m_max,temperature_2m_min"

	openMeteoTimeLayout = "2006-01-02T15:04"
	openMeteoDateLayout = "2006-01-02"
)

// OpenMeteoProvider implements weather.WeatherSource for the Open-Meteo forecast API.
type OpenMeteoProvider struct {
	name         string
	baseURL      string
	forecastDays int
	httpCfg      HTTPClientConfig
	circuit      *gobreaker.CircuitBreaker
}

// NewOpenMeteoProvider creates a provider against baseURL (e.g. https://api.open-meteo.com/v1).
func NewOpenMeteoProvider(client *http.Client, baseURL string, forecastDays int) *OpenMeteoProvider {
	return &OpenMeteoProvider{
		name:         "openmeteo",
		baseURL:      baseURL,
		forecastDays: forecastDays,
		httpCfg:      HTTPClientConfig{Client: client},
		circuit:      newCircuitBreaker("openmeteo"),
	}
}

func (p *OpenMeteoProvider) Name() string {
	return p.name
}

// openMeteoPayload mirrors the forecast response. Pointer fields are the ones
// whose absence makes the payload unusable.
type openMeteoPayload struct {
	UTCOffsetSeconds int `json:"utc_offset_seconds"`
	Current          *struct {
		Time                string   `json:"time"`
		Temperature         *float64 `json:"temperature_2m"`
		RelativeHumidity    float64  `json:"relative_humidity_2m"`
		ApparentTemperature float64  `json:"apparent_temperature"`
		WeatherCode         *int     `json:"weather_code"`
		WindSpeed           float64  `json:"wind_speed_10m"`
		WindDirection       float64  `json:"wind_direction_10m"`
	} `json:"current"`
	Daily *struct {
		Time           []string  `json:"time"`
		WeatherCode    []int     `json:"weather_code"`
		TemperatureMax []float64 `json:"temperature_2m_max"`
		TemperatureMin []float64 `json:"temperature_2m_min"`
	} `json:"daily"`
}

func (p *OpenMeteoProvider) FetchWeather(ctx context.Context, lat, lon float64) (weather.Observation, error) {
	values := url.Values{}
	values.Set("latitude", strconv.FormatFloat(lat, 'f', -1, 64))
	values.Set("longitude", strconv.FormatFloat(lon, 'f', -1, 64))
	values.Set("current", openMeteoCurrentFields)
	values.Set("daily", openMeteoDailyFields)
	values.Set("timezone", "auto")
	values.Set("forecast_days", strconv.Itoa(p.forecastDays))

	resp, err := doRequest(ctx, p.httpCfg, p.circuit, fmt.Sprintf("%s/forecast?%s", p.baseURL, values.Encode()))
	if err != nil {
		return weather.Observation{}, fmt.Errorf("openmeteo forecast: %w", err)
	}
	defer resp.Body.Close()

	var payload openMeteoPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return weather.Observation{}, fmt.Errorf("decode openmeteo response: %w", err)
	}

	return payload.toObservation()
}

func (pl openMeteoPayload) toObservation() (weather.Observation, error) {
	if pl.Current == nil || pl.Daily == nil {
		return weather.Observation{}, fmt.Errorf("%w: current or daily block missing", weather.ErrIncompletePayload)
	}
	if pl.Current.Temperature == nil || pl.Current.WeatherCode == nil {
		return weather.Observation{}, fmt.Errorf("%w: current temperature or weather code missing", weather.ErrIncompletePayload)
	}

	// Open-Meteo reports local wall-clock times when timezone=auto.
	loc := time.FixedZone("", pl.UTCOffsetSeconds)

	observed, err := time.ParseInLocation(openMeteoTimeLayout, pl.Current.Time, loc)
	if err != nil {
		return weather.Observation{}, fmt.Errorf("%w: current time %q: %v", weather.ErrIncompletePayload, pl.Current.Time, err)
	}

	d := pl.Daily
	n := len(d.Time)
	if len(d.WeatherCode) < n || len(d.TemperatureMax) < n || len(d.TemperatureMin) < n {
		return weather.Observation{}, fmt.Errorf("%w: daily arrays have mismatched lengths", weather.ErrIncompletePayload)
	}

	daily := make([]weather.DailyReading, 0, n)
	for i, day := range d.Time {
		date, err := time.ParseInLocation(openMeteoDateLayout, day, loc)
		if err != nil {
			return weather.Observation{}, fmt.Errorf("%w: daily time %q: %v", weather.ErrIncompletePayload, day, err)
		}
		daily = append(daily, weather.DailyReading{
			Date:        date,
			WeatherCode: d.WeatherCode[i],
			TempMin:     d.TemperatureMin[i],
			TempMax:     d.TemperatureMax[i],
		})
	}

	c := pl.Current
	return weather.Observation{
		Current: weather.CurrentReading{
			Time:                observed,
			Temperature:         *c.Temperature,
			ApparentTemperature: c.ApparentTemperature,
			HumidityPct:         c.RelativeHumidity,
			WindSpeed:           c.WindSpeed,
			WindDirection:       c.WindDirection,
			WeatherCode:         *c.WeatherCode,
		},
		Daily: daily,
	}, nil
}
