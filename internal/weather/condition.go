package weather

// Classify maps a WMO weather interpretation code (as reported by Open-Meteo)
// onto the internal condition vocabulary. Every int has a defined result;
// codes outside the known ranges are reported as clear sky.
func Classify(code int) Condition {
	switch {
	case code == 0:
		return Condition{Code: code, Category: CategoryClear, Description: "clear sky", Icon: "01d"}
	case code == 1:
		return Condition{Code: code, Category: CategoryClear, Description: "mainly clear", Icon: "02d"}
	case code == 2:
		return Condition{Code: code, Category: CategoryClouds, Description: "partly cloudy", Icon: "03d"}
	case code == 3:
		return Condition{Code: code, Category: CategoryClouds, Description: "overcast", Icon: "04d"}
	case code >= 45 && code <= 48:
		return Condition{Code: code, Category: CategoryFog, Description: "foggy", Icon: "50d"}
	case code >= 51 && code <= 55:
		return Condition{Code: code, Category: CategoryDrizzle, Description: "drizzle", Icon: "09d"}
	case code >= 61 && code <= 65:
		return Condition{Code: code, Category: CategoryRain, Description: "rain", Icon: "10d"}
	case code >= 71 && code <= 77:
		return Condition{Code: code, Category: CategorySnow, Description: "snow", Icon: "13d"}
	case code >= 80 && code <= 82:
		return Condition{Code: code, Category: CategoryRain, Description: "rain showers", Icon: "09d"}
	case code >= 85 && code <= 86:
		return Condition{Code: code, Category: CategorySnow, Description: "snow showers", Icon: "13d"}
	case code >= 95:
		return Condition{Code: code, Category: CategoryThunderstorm, Description: "thunderstorm", Icon: "11d"}
	default:
		return Condition{Code: code, Category: CategoryClear, Description: "clear sky", Icon: "01d"}
	}
}
