package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Cache backends selectable through CACHE_BACKEND.
const (
	BackendRedis    = "redis"
	BackendMemory   = "memory"
	BackendDisabled = "disabled"
)

type AppConfig struct {
	Port        string
	Environment string
	LogLevel    string

	// Cache store.
	CacheBackend     string
	RedisURL         string
	CacheEnabled     bool          // initial state of the runtime switch
	CacheOpTimeout   time.Duration // bound on each cache backend call
	WeatherCacheTTL  time.Duration
	LocationCacheTTL time.Duration

	// Upstreams.
	HTTPTimeout      time.Duration
	UpstreamTimeout  time.Duration
	OpenMeteoURL     string
	GeocodingURL     string
	NominatimURL     string
	UserAgent        string
	ForecastDays     int
	PlaceSearchLimit int

	DefaultLat float64
	DefaultLon float64
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("LOG_LEVEL", "info")

	v.SetDefault("CACHE_BACKEND", BackendRedis)
	v.SetDefault("REDIS_URL", "redis://localhost:6379")
	v.SetDefault("CACHE_ENABLED", true)
	v.SetDefault("CACHE_OP_TIMEOUT", "2s")
	v.SetDefault("WEATHER_CACHE_TTL", "30m")
	v.SetDefault("LOCATION_CACHE_TTL", "24h")

	v.SetDefault("HTTP_TIMEOUT", "10s")
	v.SetDefault("UPSTREAM_TIMEOUT", "15s")
	v.SetDefault("OPEN_METEO_URL", "https://api.open-meteo.com/v1")
	v.SetDefault("GEOCODING_URL", "https://geocoding-api.open-meteo.com/v1")
	v.SetDefault("NOMINATIM_URL", "https://nominatim.openstreetmap.org")
	v.SetDefault("USER_AGENT", "WeatherApp/1.0")
	v.SetDefault("FORECAST_DAYS", 7)
	v.SetDefault("PLACE_SEARCH_LIMIT", 5)

	// London.
	v.SetDefault("DEFAULT_LAT", 51.5074)
	v.SetDefault("DEFAULT_LON", -0.1278)
}

// Load reads configuration from the environment (and a .env file, if any)
// with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	cfg := &AppConfig{
		Port:             v.GetString("PORT"),
		Environment:      v.GetString("ENVIRONMENT"),
		LogLevel:         v.GetString("LOG_LEVEL"),
		CacheBackend:     strings.ToLower(v.GetString("CACHE_BACKEND")),
		RedisURL:         v.GetString("REDIS_URL"),
		CacheEnabled:     v.GetBool("CACHE_ENABLED"),
		OpenMeteoURL:     strings.TrimRight(v.GetString("OPEN_METEO_URL"), "/"),
		GeocodingURL:     strings.TrimRight(v.GetString("GEOCODING_URL"), "/"),
		NominatimURL:     strings.TrimRight(v.GetString("NOMINATIM_URL"), "/"),
		UserAgent:        v.GetString("USER_AGENT"),
		ForecastDays:     v.GetInt("FORECAST_DAYS"),
		PlaceSearchLimit: v.GetInt("PLACE_SEARCH_LIMIT"),
		DefaultLat:       v.GetFloat64("DEFAULT_LAT"),
		DefaultLon:       v.GetFloat64("DEFAULT_LON"),
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"CACHE_OP_TIMEOUT", &cfg.CacheOpTimeout},
		{"WEATHER_CACHE_TTL", &cfg.WeatherCacheTTL},
		{"LOCATION_CACHE_TTL", &cfg.LocationCacheTTL},
		{"HTTP_TIMEOUT", &cfg.HTTPTimeout},
		{"UPSTREAM_TIMEOUT", &cfg.UpstreamTimeout},
	}
	for _, d := range durations {
		parsed, err := parsePositiveDuration(v, d.key)
		if err != nil {
			return nil, err
		}
		*d.dst = parsed
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *AppConfig) validate() error {
	switch c.CacheBackend {
	case BackendRedis, BackendMemory, BackendDisabled:
	default:
		return fmt.Errorf("invalid CACHE_BACKEND %q: want redis, memory or disabled", c.CacheBackend)
	}
	if c.CacheBackend == BackendRedis && c.RedisURL == "" {
		return fmt.Errorf("REDIS_URL is required when CACHE_BACKEND is redis")
	}
	if c.ForecastDays < 1 || c.ForecastDays > 16 {
		return fmt.Errorf("invalid FORECAST_DAYS %d: must be between 1 and 16", c.ForecastDays)
	}
	if c.PlaceSearchLimit < 1 || c.PlaceSearchLimit > 100 {
		return fmt.Errorf("invalid PLACE_SEARCH_LIMIT %d: must be between 1 and 100", c.PlaceSearchLimit)
	}
	if c.DefaultLat < -90 || c.DefaultLat > 90 || c.DefaultLon < -180 || c.DefaultLon > 180 {
		return fmt.Errorf("invalid DEFAULT_LAT/DEFAULT_LON %v,%v", c.DefaultLat, c.DefaultLon)
	}
	return nil
}

func parsePositiveDuration(v *viper.Viper, key string) (time.Duration, error) {
	raw := v.GetString(key)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive, got %s", key, raw)
	}
	return d, nil
}
