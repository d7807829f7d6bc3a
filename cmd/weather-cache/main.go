package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	httpapi "github.com/i474232898/weather-cache/internal/api/http"
	"github.com/i474232898/weather-cache/internal/cache"
	"github.com/i474232898/weather-cache/internal/config"
	"github.com/i474232898/weather-cache/internal/logger"
	"github.com/i474232898/weather-cache/internal/observability"
	"github.com/i474232898/weather-cache/internal/weather"
	"github.com/i474232898/weather-cache/internal/weather/providers"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	sugar, err := logger.New(cfg.LogLevel, cfg.Environment)
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer func() { _ = sugar.Sync() }()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(reg)

	store, closeStore := newStore(cfg, sugar, metrics)
	defer closeStore()

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	upstreams := weather.Upstreams{
		Weather:  providers.NewOpenMeteoProvider(httpClient, cfg.OpenMeteoURL, cfg.ForecastDays),
		Geocoder: providers.NewNominatimGeocoder(httpClient, cfg.NominatimURL, cfg.UserAgent),
		Places:   providers.NewOpenMeteoGeocoder(httpClient, cfg.GeocodingURL),
	}

	service := weather.NewService(store, upstreams, weather.ServiceConfig{
		WeatherTTL:      cfg.WeatherCacheTTL,
		LocationTTL:     cfg.LocationCacheTTL,
		UpstreamTimeout: cfg.UpstreamTimeout,
		SearchLimit:     cfg.PlaceSearchLimit,
		DefaultLat:      cfg.DefaultLat,
		DefaultLon:      cfg.DefaultLon,
	}, sugar, metrics)
	admin := cache.NewAdmin(store, sugar, metrics)

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               "weather-cache",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          cfg.UpstreamTimeout + 5*time.Second,
		ErrorHandler:          httpapi.ErrorHandler,
	})

	// Global middleware
	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} ${locals:requestid} ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(recover.New())
	// Room for the upstream calls plus the cache read and write around them.
	app.Use(httpapi.RequestTimeout(cfg.UpstreamTimeout + 2*cfg.CacheOpTimeout))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "weather-cache",
			"cache":   admin.Status(c.UserContext()),
		})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	// API routes.
	httpapi.RegisterRoutes(app, service, admin, sugar)

	go func() {
		sugar.Infow("HTTP server starting", "port", cfg.Port, "cacheBackend", cfg.CacheBackend, "cacheMode", store.Mode())
		if err := app.Listen(":" + cfg.Port); err != nil {
			sugar.Warnw("fiber server stopped", "error", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		sugar.Errorw("error during shutdown", "error", err)
	}
}

// newStore builds the cache store for the configured backend. A Redis URL
// that cannot be parsed degrades to a disabled store instead of aborting.
func newStore(cfg *config.AppConfig, sugar *zap.SugaredLogger, metrics *observability.Metrics) (*cache.Store, func()) {
	opts := cache.Options{Enabled: cfg.CacheEnabled, OpTimeout: cfg.CacheOpTimeout}
	noop := func() {}

	switch cfg.CacheBackend {
	case config.BackendMemory:
		return cache.New(cache.NewMemoryBackend(nil), opts, sugar, metrics), noop
	case config.BackendDisabled:
		sugar.Infow("Caching disabled by configuration")
		return cache.NewDisabled(sugar, metrics), noop
	}

	backend, err := cache.NewRedisBackendFromURL(cfg.RedisURL)
	if err != nil {
		sugar.Errorw("Redis backend unavailable, running without cache", "error", err)
		return cache.NewDisabled(sugar, metrics), noop
	}

	store := cache.New(backend, opts, sugar, metrics)
	pingCtx, cancel := context.WithTimeout(context.Background(), cfg.CacheOpTimeout)
	defer cancel()
	if err := store.Ping(pingCtx); err != nil {
		// The client reconnects on its own; requests fall through to upstreams meanwhile.
		sugar.Warnw("Redis not reachable at startup", "error", err)
	} else {
		sugar.Infow("Redis connected")
	}

	return store, func() {
		if err := backend.Close(); err != nil {
			sugar.Warnw("Failed to close redis client", "error", err)
		}
	}
}
