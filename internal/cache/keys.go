package cache

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Default expirations per category.
const (
	WeatherTTL  = 1800 * time.Second
	LocationTTL = 86400 * time.Second
)

// Category is the key namespace used to scope bulk invalidation.
type Category string

const (
	CategoryWeather  Category = "weather"
	CategoryLocation Category = "location"
)

// ErrUnknownCategory is returned by ParseCategory for anything but weather or location.
var ErrUnknownCategory = errors.New("unknown cache category")

// Prefix returns the key prefix shared by every entry of the category.
func (c Category) Prefix() string {
	return string(c) + ":"
}

// ParseCategory accepts "weather" or "location", case-insensitively.
func ParseCategory(s string) (Category, error) {
	switch Category(strings.ToLower(strings.TrimSpace(s))) {
	case CategoryWeather:
		return CategoryWeather, nil
	case CategoryLocation:
		return CategoryLocation, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownCategory, s)
	}
}

// WeatherKey builds the cache key for a coordinate at two decimal places.
// The rounding applies to the key only, never to stored coordinates.
func WeatherKey(lat, lon float64) string {
	return CategoryWeather.Prefix() + keyCoordinate(lat) + ":" + keyCoordinate(lon)
}

// keyCoordinate formats v at two decimals. Values that round to zero from
// below share the key of zero.
func keyCoordinate(v float64) string {
	s := strconv.FormatFloat(v, 'f', 2, 64)
	if s == "-0.00" {
		return "0.00"
	}
	return s
}

// LocationKey builds the cache key for a raw place-search query.
func LocationKey(query string) string {
	return CategoryLocation.Prefix() + query
}

// categoryOf extracts the namespace of a key for metric labels.
func categoryOf(key string) string {
	if c, _, ok := strings.Cut(key, ":"); ok {
		return c
	}
	return "other"
}
