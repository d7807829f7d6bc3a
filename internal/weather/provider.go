package weather

import (
	"context"
	"time"
)

// Observation is a weather source's raw reading before code translation.
type Observation struct {
	Current CurrentReading
	Daily   []DailyReading
}

// CurrentReading carries the current block of an upstream response.
type CurrentReading struct {
	Time                time.Time
	Temperature         float64
	ApparentTemperature float64
	HumidityPct         float64
	WindSpeed           float64
	WindDirection       float64
	WeatherCode         int
}

// DailyReading carries one day of an upstream daily forecast.
type DailyReading struct {
	Date        time.Time
	WeatherCode int
	TempMin     float64
	TempMax     float64
}

// Address is the breakdown returned by a reverse geocoder. Any field may be empty.
type Address struct {
	City        string
	Town        string
	Village     string
	Suburb      string
	State       string
	Country     string
	DisplayName string
}

// WeatherSource abstracts the upstream that provides current conditions and
// a daily forecast (e.g. Open-Meteo).
type WeatherSource interface {
	Name() string
	FetchWeather(ctx context.Context, lat, lon float64) (Observation, error)
}

// ReverseGeocoder resolves a coordinate to an address (e.g. Nominatim).
type ReverseGeocoder interface {
	Name() string
	ReverseGeocode(ctx context.Context, lat, lon float64) (Address, error)
}

// PlaceSearcher finds candidate places for a free-text query.
type PlaceSearcher interface {
	Name() string
	SearchPlaces(ctx context.Context, query string, limit int) ([]Place, error)
}

// Cache is the contract the Service needs from the cache store adapter.
// Implementations absorb their own failures.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
}
