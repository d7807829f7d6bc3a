package weather

import (
	"fmt"
	"strings"
)

// AssembleResult combines a weather observation and a resolved place into a
// Result, translating every weather code on the way. The forecast is never
// nil so it encodes as an empty list.
func AssembleResult(place Place, obs Observation) Result {
	forecast := make([]ForecastDay, 0, len(obs.Daily))
	for _, d := range obs.Daily {
		forecast = append(forecast, ForecastDay{
			Date: d.Date.Unix(),
			Temp: TempRange{
				Min: d.TempMin,
				Max: d.TempMax,
			},
			Condition: Classify(d.WeatherCode),
		})
	}

	c := obs.Current
	return Result{
		Place: place,
		Current: Snapshot{
			Temperature:   c.Temperature,
			FeelsLike:     c.ApparentTemperature,
			Humidity:      c.HumidityPct,
			WindSpeed:     c.WindSpeed,
			WindDirection: c.WindDirection,
			Condition:     Classify(c.WeatherCode),
			ObservedAt:    c.Time.Unix(),
		},
		Forecast: forecast,
	}
}

// PlaceFromAddress picks a display name using the precedence
// city, town, village, suburb, first segment of the display name, and
// finally the coordinates themselves.
func PlaceFromAddress(lat, lon float64, addr Address) Place {
	name := firstNonEmpty(addr.City, addr.Town, addr.Village, addr.Suburb, firstSegment(addr.DisplayName))
	if name == "" {
		name = coordinateLabel(lat, lon)
	}
	country := addr.Country
	if country == "" {
		country = unknownCountry
	}
	return Place{
		DisplayName: name,
		Country:     country,
		Lat:         lat,
		Lon:         lon,
		AdminRegion: addr.State,
	}
}

// FallbackPlace is used when reverse geocoding fails entirely.
func FallbackPlace(lat, lon float64) Place {
	return Place{
		DisplayName: coordinateLabel(lat, lon),
		Country:     unknownCountry,
		Lat:         lat,
		Lon:         lon,
	}
}

const unknownCountry = "Unknown"

func coordinateLabel(lat, lon float64) string {
	return fmt.Sprintf("%.2f, %.2f", lat, lon)
}

func firstSegment(s string) string {
	seg, _, _ := strings.Cut(s, ",")
	return strings.TrimSpace(seg)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
