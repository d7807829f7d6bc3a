package weather

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/i474232898/weather-cache/internal/cache"
	"github.com/i474232898/weather-cache/internal/observability"
)

type fakeWeather struct {
	mu    sync.Mutex
	calls int
	obs   Observation
	err   error
}

func (f *fakeWeather) Name() string { return "fake-weather" }

func (f *fakeWeather) FetchWeather(ctx context.Context, lat, lon float64) (Observation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.obs, f.err
}

func (f *fakeWeather) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeGeocoder struct {
	mu    sync.Mutex
	calls int
	addr  Address
	err   error
	block bool // wait for cancellation instead of answering
	saw   error
}

func (f *fakeGeocoder) Name() string { return "fake-geocoder" }

func (f *fakeGeocoder) ReverseGeocode(ctx context.Context, lat, lon float64) (Address, error) {
	f.mu.Lock()
	f.calls++
	block := f.block
	f.mu.Unlock()

	if block {
		<-ctx.Done()
		f.mu.Lock()
		f.saw = ctx.Err()
		f.mu.Unlock()
		return Address{}, ctx.Err()
	}
	return f.addr, f.err
}

func (f *fakeGeocoder) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakePlaces struct {
	calls  int
	places []Place
	err    error
	limit  int
}

func (f *fakePlaces) Name() string { return "fake-places" }

func (f *fakePlaces) SearchPlaces(ctx context.Context, query string, limit int) ([]Place, error) {
	f.calls++
	f.limit = limit
	return f.places, f.err
}

// recordingCache is an in-memory Cache that remembers the TTL of every write.
// Like a network backend, it drops writes whose context is already done.
type recordingCache struct {
	mu   sync.Mutex
	data map[string][]byte
	ttls map[string]time.Duration
}

func newRecordingCache() *recordingCache {
	return &recordingCache{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (c *recordingCache) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	return v, ok
}

func (c *recordingCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if ctx.Err() != nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	c.ttls[key] = ttl
}

var fakeNow = time.Date(2024, 3, 10, 14, 30, 0, 0, time.UTC)

func sampleObservation() Observation {
	day := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	return Observation{
		Current: CurrentReading{
			Time:                fakeNow,
			Temperature:         7.3,
			ApparentTemperature: 4.1,
			HumidityPct:         81,
			WindSpeed:           14.4,
			WindDirection:       200,
			WeatherCode:         61,
		},
		Daily: []DailyReading{
			{Date: day, WeatherCode: 61, TempMin: 3, TempMax: 9},
			{Date: day.AddDate(0, 0, 1), WeatherCode: 2, TempMin: 4, TempMax: 11},
		},
	}
}

type fixture struct {
	svc     *Service
	cache   *recordingCache
	weather *fakeWeather
	geo     *fakeGeocoder
	places  *fakePlaces
	clock   *clockwork.FakeClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		cache:   newRecordingCache(),
		weather: &fakeWeather{obs: sampleObservation()},
		geo:     &fakeGeocoder{addr: Address{City: "New York", State: "New York", Country: "United States"}},
		places:  &fakePlaces{},
		clock:   clockwork.NewFakeClockAt(fakeNow),
	}
	f.svc = NewService(f.cache, Upstreams{Weather: f.weather, Geocoder: f.geo, Places: f.places},
		DefaultServiceConfig(), zap.NewNop().Sugar(), observability.NewMetricsForTesting()).
		WithClock(f.clock)
	return f
}

func TestResolveWeatherMissThenHit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.ResolveWeather(ctx, 40.7128, -74.0060)
	require.NoError(t, err)

	assert.False(t, res.Cached)
	assert.Nil(t, res.CachedAt)
	assert.Equal(t, "New York", res.Place.DisplayName)
	assert.Equal(t, "United States", res.Place.Country)
	assert.Equal(t, "New York", res.Place.AdminRegion)
	assert.Equal(t, 40.7128, res.Place.Lat)
	assert.Equal(t, -74.0060, res.Place.Lon)
	assert.Equal(t, CategoryRain, res.Current.Condition.Category)
	assert.Len(t, res.Forecast, 2)

	assert.Contains(t, f.cache.data, "weather:40.71:-74.01")
	assert.Equal(t, 1800*time.Second, f.cache.ttls["weather:40.71:-74.01"])
	assert.Equal(t, 1, f.weather.Calls())
	assert.Equal(t, 1, f.geo.Calls())

	f.clock.Advance(5 * time.Minute)

	again, err := f.svc.ResolveWeather(ctx, 40.7128, -74.0060)
	require.NoError(t, err)
	assert.True(t, again.Cached)
	require.NotNil(t, again.CachedAt)
	assert.True(t, fakeNow.Equal(*again.CachedAt), "cachedAt should be the write time, got %s", again.CachedAt)
	assert.Equal(t, res.Place, again.Place)
	assert.Equal(t, res.Current, again.Current)
	assert.Equal(t, res.Forecast, again.Forecast)

	assert.Equal(t, 1, f.weather.Calls(), "second request must not reach the weather source")
	assert.Equal(t, 1, f.geo.Calls(), "second request must not reach the geocoder")
}

func TestResolveWeatherKeyRoundsButPayloadKeepsCoordinates(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.ResolveWeather(context.Background(), 40.714, -74.006)
	require.NoError(t, err)
	assert.Equal(t, 40.714, res.Place.Lat)

	hit, err := f.svc.ResolveWeather(context.Background(), 40.709, -74.0061)
	require.NoError(t, err)
	assert.True(t, hit.Cached, "coordinates rounding to the same key share an entry")
	assert.Equal(t, 1, f.weather.Calls())
}

func TestResolveWeatherGeocoderFailureFallsBack(t *testing.T) {
	f := newFixture(t)
	f.geo.err = errors.New("nominatim down")

	res, err := f.svc.ResolveWeather(context.Background(), 51.5074, -0.1278)
	require.NoError(t, err)
	assert.Equal(t, "51.51, -0.13", res.Place.DisplayName)
	assert.Equal(t, "Unknown", res.Place.Country)
	assert.Contains(t, f.cache.data, "weather:51.51:-0.13")
}

func TestResolveWeatherSlowGeocoderResultIsCached(t *testing.T) {
	f := newFixture(t)
	f.geo.block = true
	cfg := DefaultServiceConfig()
	cfg.UpstreamTimeout = 50 * time.Millisecond
	f.svc = NewService(f.cache, Upstreams{Weather: f.weather, Geocoder: f.geo, Places: f.places},
		cfg, zap.NewNop().Sugar(), observability.NewMetricsForTesting()).
		WithClock(f.clock)

	res, err := f.svc.ResolveWeather(context.Background(), 51.5074, -0.1278)
	require.NoError(t, err)
	assert.False(t, res.Cached)
	assert.Equal(t, "51.51, -0.13", res.Place.DisplayName)
	assert.Equal(t, "Unknown", res.Place.Country)

	f.geo.mu.Lock()
	assert.ErrorIs(t, f.geo.saw, context.DeadlineExceeded)
	f.geo.mu.Unlock()

	again, err := f.svc.ResolveWeather(context.Background(), 51.5074, -0.1278)
	require.NoError(t, err)
	assert.True(t, again.Cached, "fallback result must be cached after the upstream deadline")
	assert.Equal(t, "51.51, -0.13", again.Place.DisplayName)
	assert.Equal(t, 1, f.weather.Calls())
}

func TestResolveWeatherUpstreamFailure(t *testing.T) {
	f := newFixture(t)
	f.weather.err = errors.New("connection refused")
	f.geo.block = true

	done := make(chan struct{})
	var err error
	go func() {
		defer close(done)
		_, err = f.svc.ResolveWeather(context.Background(), 40.7128, -74.0060)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("ResolveWeather did not return after the weather source failed")
	}

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
	assert.Empty(t, f.cache.data, "nothing may be cached on failure")

	f.geo.mu.Lock()
	defer f.geo.mu.Unlock()
	assert.ErrorIs(t, f.geo.saw, context.Canceled)
}

func TestResolveWeatherIncompletePayload(t *testing.T) {
	f := newFixture(t)
	f.weather.err = ErrIncompletePayload

	_, err := f.svc.ResolveWeather(context.Background(), 10, 10)
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
	assert.ErrorIs(t, err, ErrIncompletePayload)
	assert.Empty(t, f.cache.data)
}

func TestResolveWeatherInvalidInput(t *testing.T) {
	tests := []struct {
		name     string
		lat, lon float64
	}{
		{"latitude too high", 90.5, 0},
		{"latitude too low", -91, 0},
		{"longitude too high", 0, 180.01},
		{"longitude too low", 0, -181},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.svc.ResolveWeather(context.Background(), tt.lat, tt.lon)
			assert.ErrorIs(t, err, ErrInvalidInput)
			assert.Zero(t, f.weather.Calls())
			assert.Zero(t, f.geo.Calls())
			assert.Empty(t, f.cache.data)
		})
	}
}

func TestResolveWeatherBoundaryCoordinates(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.ResolveWeather(context.Background(), -90, 180)
	require.NoError(t, err)
	assert.Contains(t, f.cache.data, "weather:-90.00:180.00")
}

func TestResolveWeatherCorruptEntryIsMiss(t *testing.T) {
	f := newFixture(t)
	f.cache.data["weather:40.71:-74.01"] = []byte("{not json")

	res, err := f.svc.ResolveWeather(context.Background(), 40.7128, -74.0060)
	require.NoError(t, err)
	assert.False(t, res.Cached)
	assert.Equal(t, 1, f.weather.Calls())
}

func TestResolveDefaultWeather(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.ResolveDefaultWeather(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 51.5074, res.Place.Lat)
	assert.Equal(t, -0.1278, res.Place.Lon)
	assert.Contains(t, f.cache.data, "weather:51.51:-0.13")
}

func TestResolveWeatherSwitchOff(t *testing.T) {
	metrics := observability.NewMetricsForTesting()
	log := zap.NewNop().Sugar()
	store := cache.New(cache.NewMemoryBackend(nil), cache.Options{Enabled: true}, log, metrics)

	weatherSrc := &fakeWeather{obs: sampleObservation()}
	geo := &fakeGeocoder{addr: Address{City: "Berlin", Country: "Germany"}}
	svc := NewService(store, Upstreams{Weather: weatherSrc, Geocoder: geo, Places: &fakePlaces{}},
		DefaultServiceConfig(), log, metrics)
	ctx := context.Background()

	store.SetEnabled(false)
	for i := 0; i < 3; i++ {
		res, err := svc.ResolveWeather(ctx, 52.52, 13.405)
		require.NoError(t, err)
		assert.False(t, res.Cached)
	}
	assert.Equal(t, 3, weatherSrc.Calls())

	// Nothing written while off, so turning it back on starts with a miss.
	store.SetEnabled(true)
	res, err := svc.ResolveWeather(ctx, 52.52, 13.405)
	require.NoError(t, err)
	assert.False(t, res.Cached)
	assert.Equal(t, 4, weatherSrc.Calls())

	res, err = svc.ResolveWeather(ctx, 52.52, 13.405)
	require.NoError(t, err)
	assert.True(t, res.Cached)
	assert.Equal(t, 4, weatherSrc.Calls())
}

func TestResolvePlaces(t *testing.T) {
	f := newFixture(t)
	f.places.places = []Place{
		{DisplayName: "Paris", Country: "France", Lat: 48.85, Lon: 2.35, AdminRegion: "Île-de-France"},
		{DisplayName: "Paris", Country: "United States", Lat: 33.66, Lon: -95.55, AdminRegion: "Texas"},
	}

	got, err := f.svc.ResolvePlaces(context.Background(), "Paris")
	require.NoError(t, err)
	assert.Equal(t, f.places.places, got)
	assert.Equal(t, 5, f.places.limit)
	assert.Equal(t, 86400*time.Second, f.cache.ttls["location:Paris"])

	again, err := f.svc.ResolvePlaces(context.Background(), "Paris")
	require.NoError(t, err)
	assert.Equal(t, got, again)
	assert.Equal(t, 1, f.places.calls)
}

func TestResolvePlacesKeysOnRawQuery(t *testing.T) {
	f := newFixture(t)
	f.places.places = []Place{{DisplayName: "Paris", Country: "France"}}

	_, err := f.svc.ResolvePlaces(context.Background(), "  Paris ")
	require.NoError(t, err)
	assert.Contains(t, f.cache.data, "location:  Paris ")
	assert.NotContains(t, f.cache.data, "location:Paris")

	_, err = f.svc.ResolvePlaces(context.Background(), "Paris")
	require.NoError(t, err)
	assert.Equal(t, 2, f.places.calls)
}

func TestResolvePlacesEmptyResultIsCached(t *testing.T) {
	f := newFixture(t)

	got, err := f.svc.ResolvePlaces(context.Background(), "Xyzzyville")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.Contains(t, f.cache.data, "location:Xyzzyville")

	_, err = f.svc.ResolvePlaces(context.Background(), "Xyzzyville")
	require.NoError(t, err)
	assert.Equal(t, 1, f.places.calls)
}

func TestResolvePlacesFailureNotCached(t *testing.T) {
	f := newFixture(t)
	f.places.err = errors.New("geocoding api down")

	got, err := f.svc.ResolvePlaces(context.Background(), "Paris")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.Empty(t, f.cache.data)
}

func TestResolvePlacesEmptyQuery(t *testing.T) {
	f := newFixture(t)

	for _, q := range []string{"", "   "} {
		_, err := f.svc.ResolvePlaces(context.Background(), q)
		assert.ErrorIs(t, err, ErrInvalidInput)
	}
	assert.Zero(t, f.places.calls)
}
