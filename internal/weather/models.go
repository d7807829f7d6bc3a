package weather

import (
	"time"
)

// Category represents a normalized high-level weather condition.
type Category string

const (
	CategoryClear        Category = "Clear"
	CategoryClouds       Category = "Clouds"
	CategoryFog          Category = "Fog"
	CategoryDrizzle      Category = "Drizzle"
	CategoryRain         Category = "Rain"
	CategorySnow         Category = "Snow"
	CategoryThunderstorm Category = "Thunderstorm"
)

// Condition is the translated form of a vendor weather code.
type Condition struct {
	Code        int      `json:"id"`
	Category    Category `json:"main"`
	Description string   `json:"description"`
	Icon        string   `json:"icon"`
}

// Place is a human-readable location. For reverse-geocoded results Lat/Lon
// are the requested coordinates, not the geocoder's resolved center.
type Place struct {
	DisplayName string  `json:"name"`
	Country     string  `json:"country"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	AdminRegion string  `json:"state,omitempty"`
}

// Snapshot holds current conditions at one coordinate.
type Snapshot struct {
	Temperature   float64   `json:"temp"`
	FeelsLike     float64   `json:"feels_like"`
	Humidity      float64   `json:"humidity"`
	WindSpeed     float64   `json:"wind_speed"`
	WindDirection float64   `json:"wind_direction"`
	Condition     Condition `json:"weather"`
	ObservedAt    int64     `json:"dt"` // unix seconds
}

// TempRange is a daily min/max temperature pair.
type TempRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// ForecastDay is one future day. Forecast slices are ordered by Date ascending.
type ForecastDay struct {
	Date      int64     `json:"dt"` // unix seconds at local day start
	Temp      TempRange `json:"temp"`
	Condition Condition `json:"weather"`
}

// CacheMeta describes where a Result came from. It is filled in on the way
// out; stored payloads always carry the zero value.
type CacheMeta struct {
	Cached   bool       `json:"cached"`
	CachedAt *time.Time `json:"cachedAt,omitempty"`
}

// Result is the composed weather view for one coordinate.
type Result struct {
	Place    Place         `json:"location"`
	Current  Snapshot      `json:"current"`
	Forecast []ForecastDay `json:"forecast"`
	CacheMeta
}
