package httpapi

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/i474232898/weather-cache/internal/cache"
	"github.com/i474232898/weather-cache/internal/weather"
)

var validate = validator.New()

// ErrorHandler renders every error as {"error": true, "message": ...}.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}
	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": err.Error(),
	})
}

// RequestTimeout bounds every downstream call made while serving a request.
// Fiber does not cancel the user context when a client goes away, so the
// deadline is what stops abandoned work.
func RequestTimeout(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service *weather.Service, admin *cache.Admin, log *zap.SugaredLogger) {
	api := app.Group("/api")

	api.Get("/weather", func(c *fiber.Ctx) error {
		lat, lon, err := parseCoordinates(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		res, err := service.ResolveWeather(c.UserContext(), lat, lon)
		if err != nil {
			return weatherError(log, err)
		}
		return c.JSON(res)
	})

	api.Get("/weather/default", func(c *fiber.Ctx) error {
		res, err := service.ResolveDefaultWeather(c.UserContext())
		if err != nil {
			return weatherError(log, err)
		}
		return c.JSON(res)
	})

	api.Get("/location", func(c *fiber.Ctx) error {
		places, err := service.ResolvePlaces(c.UserContext(), c.Query("q"))
		if err != nil {
			if errors.Is(err, weather.ErrInvalidInput) {
				return fiber.NewError(fiber.StatusBadRequest, "query parameter q is required")
			}
			log.Errorw("Location search failed", "error", err)
			return fiber.NewError(fiber.StatusInternalServerError, "failed to search locations")
		}
		if len(places) == 0 {
			return fiber.NewError(fiber.StatusNotFound, "no locations found")
		}
		return c.JSON(places)
	})

	cacheGroup := api.Group("/cache")

	cacheGroup.Post("/toggle", func(c *fiber.Ctx) error {
		var req toggleRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "enabled must be a boolean")
		}

		enabled := admin.SetCacheEnabled(*req.Enabled)
		return c.JSON(fiber.Map{"enabled": enabled})
	})

	cacheGroup.Post("/clear", func(c *fiber.Ctx) error {
		var req clearRequest
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&req); err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
			}
		}
		if req.Category == "" {
			req.Category = c.Query("category", string(cache.CategoryWeather))
		}

		category, err := cache.ParseCategory(req.Category)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		return c.JSON(admin.ClearCategory(c.UserContext(), category))
	})

	cacheGroup.Get("/status", func(c *fiber.Ctx) error {
		return c.JSON(admin.Status(c.UserContext()))
	})
}

type toggleRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

type clearRequest struct {
	Category string `json:"category"`
}

func weatherError(log *zap.SugaredLogger, err error) error {
	switch {
	case errors.Is(err, weather.ErrInvalidInput):
		return fiber.NewError(fiber.StatusBadRequest, "invalid coordinates")
	case errors.Is(err, weather.ErrUpstreamUnavailable):
		return fiber.NewError(fiber.StatusServiceUnavailable, "weather service temporarily unavailable")
	default:
		log.Errorw("Weather request failed", "error", err)
		return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch weather data")
	}
}

func parseCoordinates(c *fiber.Ctx) (float64, float64, error) {
	latStr, lonStr := c.Query("lat"), c.Query("lon")
	if latStr == "" || lonStr == "" {
		return 0, 0, errors.New("latitude and longitude are required")
	}

	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return 0, 0, errors.New("lat must be a number")
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		return 0, 0, errors.New("lon must be a number")
	}
	return lat, lon, nil
}
