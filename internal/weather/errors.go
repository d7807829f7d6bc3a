package weather

import "errors"

var (
	// ErrInvalidInput is returned for malformed coordinates or an empty query.
	// No cache or upstream call is made.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUpstreamUnavailable is returned when the weather source failed or
	// returned an unusable payload. Nothing is cached.
	ErrUpstreamUnavailable = errors.New("weather upstream unavailable")

	// ErrIncompletePayload is returned by sources whose response lacks a
	// required block (e.g. current or daily).
	ErrIncompletePayload = errors.New("incomplete upstream payload")
)
