package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/i474232898/weather-cache/internal/cache"
	"github.com/i474232898/weather-cache/internal/observability"
)

var validate = validator.New()

type coordinates struct {
	Lat float64 `validate:"latitude"`
	Lon float64 `validate:"longitude"`
}

type placeQuery struct {
	Query string `validate:"required,max=256"`
}

// Upstreams bundles the external sources the Service composes.
type Upstreams struct {
	Weather  WeatherSource
	Geocoder ReverseGeocoder
	Places   PlaceSearcher
}

// ServiceConfig holds the tunables of the Service.
type ServiceConfig struct {
	WeatherTTL      time.Duration
	LocationTTL     time.Duration
	UpstreamTimeout time.Duration
	SearchLimit     int
	DefaultLat      float64
	DefaultLon      float64
}

// DefaultServiceConfig returns the stock TTLs, limits and default location (London).
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		WeatherTTL:      cache.WeatherTTL,
		LocationTTL:     cache.LocationTTL,
		UpstreamTimeout: 15 * time.Second,
		SearchLimit:     5,
		DefaultLat:      51.5074,
		DefaultLon:      -0.1278,
	}
}

// Service resolves weather and places through a cache-aside layer.
type Service struct {
	cache     Cache
	upstreams Upstreams
	cfg       ServiceConfig
	clock     clockwork.Clock
	log       *zap.SugaredLogger
	metrics   *observability.Metrics
}

// NewService creates a new Service.
func NewService(c Cache, upstreams Upstreams, cfg ServiceConfig, log *zap.SugaredLogger, metrics *observability.Metrics) *Service {
	return &Service{
		cache:     c,
		upstreams: upstreams,
		cfg:       cfg,
		clock:     clockwork.NewRealClock(),
		log:       log,
		metrics:   metrics,
	}
}

// WithClock swaps the time source used to stamp cache writes.
func (s *Service) WithClock(c clockwork.Clock) *Service {
	s.clock = c
	return s
}

// ResolveWeather returns the composed weather for a coordinate, from cache
// when possible. It fails with ErrInvalidInput or ErrUpstreamUnavailable only;
// a failed place lookup falls back to a coordinate label.
func (s *Service) ResolveWeather(ctx context.Context, lat, lon float64) (Result, error) {
	if err := validate.Struct(coordinates{Lat: lat, Lon: lon}); err != nil {
		return Result{}, fmt.Errorf("%w: coordinates out of range: %v", ErrInvalidInput, err)
	}

	key := cache.WeatherKey(lat, lon)
	if res, cachedAt, ok := lookup[Result](ctx, s, key); ok {
		s.log.Debugw("Using cached weather data", "key", key, "cachedAt", cachedAt)
		res.CacheMeta = CacheMeta{Cached: true, CachedAt: &cachedAt}
		return res, nil
	}

	s.log.Infow("Fetching fresh weather data", "lat", lat, "lon", lon)

	// The upstream deadline must not bound the cache write that follows.
	upstreamCtx, cancel := context.WithTimeout(ctx, s.cfg.UpstreamTimeout)
	defer cancel()

	var (
		wg    sync.WaitGroup
		place Place
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		place = s.resolvePlace(upstreamCtx, lat, lon)
	}()

	obs, err := s.fetchWeather(upstreamCtx, lat, lon)
	if err != nil {
		// The place lookup is useless without weather; stop it early.
		cancel()
		wg.Wait()
		s.log.Errorw("Weather fetch failed", "lat", lat, "lon", lon, "error", err)
		return Result{}, fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	}
	wg.Wait()

	res := AssembleResult(place, obs)
	s.log.Infow("Weather data assembled",
		"location", res.Place.DisplayName,
		"country", res.Place.Country,
		"currentTemp", res.Current.Temperature,
		"forecastDays", len(res.Forecast))

	store(ctx, s, key, res, s.cfg.WeatherTTL)
	return res, nil
}

// ResolveDefaultWeather resolves weather for the configured default location.
func (s *Service) ResolveDefaultWeather(ctx context.Context) (Result, error) {
	return s.ResolveWeather(ctx, s.cfg.DefaultLat, s.cfg.DefaultLon)
}

// ResolvePlaces searches places by free text. Only a blank query is an
// error; upstream failures yield an empty, uncached list. A successful
// search with no matches is cached like any other. Entries are keyed by
// the query exactly as given.
func (s *Service) ResolvePlaces(ctx context.Context, query string) ([]Place, error) {
	if err := validate.Struct(placeQuery{Query: strings.TrimSpace(query)}); err != nil {
		return nil, fmt.Errorf("%w: search query is required", ErrInvalidInput)
	}

	key := cache.LocationKey(query)
	if places, _, ok := lookup[[]Place](ctx, s, key); ok {
		s.log.Debugw("Using cached place search", "key", key, "count", len(places))
		return places, nil
	}

	upstreamCtx, cancel := context.WithTimeout(ctx, s.cfg.UpstreamTimeout)
	defer cancel()

	start := s.clock.Now()
	places, err := s.upstreams.Places.SearchPlaces(upstreamCtx, query, s.cfg.SearchLimit)
	s.observe(s.upstreams.Places.Name(), start, err)
	if err != nil {
		s.log.Warnw("Place search failed", "query", query, "error", err)
		return []Place{}, nil
	}
	if places == nil {
		places = []Place{}
	}

	store(ctx, s, key, places, s.cfg.LocationTTL)
	return places, nil
}

func (s *Service) fetchWeather(ctx context.Context, lat, lon float64) (Observation, error) {
	start := s.clock.Now()
	obs, err := s.upstreams.Weather.FetchWeather(ctx, lat, lon)
	s.observe(s.upstreams.Weather.Name(), start, err)
	return obs, err
}

// resolvePlace never fails: any geocoder error yields the coordinate fallback.
func (s *Service) resolvePlace(ctx context.Context, lat, lon float64) Place {
	start := s.clock.Now()
	addr, err := s.upstreams.Geocoder.ReverseGeocode(ctx, lat, lon)
	s.observe(s.upstreams.Geocoder.Name(), start, err)
	if err != nil {
		s.log.Warnw("Reverse geocoding failed, using coordinates", "lat", lat, "lon", lon, "error", err)
		return FallbackPlace(lat, lon)
	}
	place := PlaceFromAddress(lat, lon, addr)
	s.log.Debugw("Location resolved", "name", place.DisplayName, "country", place.Country)
	return place
}

func (s *Service) observe(source string, start time.Time, err error) {
	s.metrics.UpstreamDuration.WithLabelValues(source).Observe(s.clock.Since(start).Seconds())
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	s.metrics.UpstreamRequests.WithLabelValues(source, outcome).Inc()
}

// envelope is the stored form of every cache entry; CachedAt is the write time.
type envelope[T any] struct {
	CachedAt time.Time `json:"cachedAt"`
	Data     T         `json:"data"`
}

func lookup[T any](ctx context.Context, s *Service, key string) (T, time.Time, bool) {
	var zero T
	raw, ok := s.cache.Get(ctx, key)
	if !ok {
		return zero, time.Time{}, false
	}
	var env envelope[T]
	if err := json.Unmarshal(raw, &env); err != nil {
		s.log.Warnw("Invalid cache entry, ignoring", "key", key, "error", err)
		return zero, time.Time{}, false
	}
	return env.Data, env.CachedAt, true
}

func store[T any](ctx context.Context, s *Service, key string, v T, ttl time.Duration) {
	raw, err := json.Marshal(envelope[T]{CachedAt: s.clock.Now().UTC(), Data: v})
	if err != nil {
		s.log.Errorw("Failed to encode cache entry", "key", key, "error", err)
		return
	}
	s.cache.Set(ctx, key, raw, ttl)
}
