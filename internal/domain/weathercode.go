package domain

import "math"

// WeatherInfo is the display form of a weather code.
type WeatherInfo struct {
	Label string `json:"label"`
	Icon  string `json:"icon"`
}

type weatherCodeEntry struct {
	label     string
	dayIcon   string
	nightIcon string
}

const unknownIcon = "🌡️"

var weatherCodes = map[int]weatherCodeEntry{
	0:  {"Clear sky", "☀️", "🌙"},
	1:  {"Mainly clear", "🌤️", "🌙"},
	2:  {"Partly cloudy", "⛅", "☁️"},
	3:  {"Overcast", "☁️", "☁️"},
	45: {"Foggy", "🌫️", "🌫️"},
	48: {"Rime fog", "🌫️", "🌫️"},
	51: {"Light drizzle", "🌦️", "🌧️"},
	53: {"Drizzle", "🌦️", "🌧️"},
	55: {"Dense drizzle", "🌧️", "🌧️"},
	56: {"Freezing drizzle", "🌧️", "🌧️"},
	57: {"Heavy freezing drizzle", "🌧️", "🌧️"},
	61: {"Light rain", "🌦️", "🌧️"},
	63: {"Moderate rain", "🌧️", "🌧️"},
	65: {"Heavy rain", "🌧️", "🌧️"},
	66: {"Freezing rain", "🌧️", "🌧️"},
	67: {"Heavy freezing rain", "🌧️", "🌧️"},
	71: {"Light snow", "🌨️", "🌨️"},
	73: {"Moderate snow", "🌨️", "🌨️"},
	75: {"Heavy snow", "❄️", "❄️"},
	77: {"Snow grains", "❄️", "❄️"},
	80: {"Light showers", "🌦️", "🌧️"},
	81: {"Moderate showers", "🌧️", "🌧️"},
	82: {"Heavy showers", "⛈️", "⛈️"},
	85: {"Light snow showers", "🌨️", "🌨️"},
	86: {"Heavy snow showers", "❄️", "❄️"},
	95: {"Thunderstorm", "⛈️", "⛈️"},
	96: {"T-storm with hail", "⛈️", "⛈️"},
	99: {"Severe t-storm", "⛈️", "⛈️"},
}

// LookupWeatherCode returns the label and day or night glyph for a WMO code.
// Unknown codes degrade to a generic entry.
func LookupWeatherCode(code int, isDaytime bool) WeatherInfo {
	e, ok := weatherCodes[code]
	if !ok {
		return WeatherInfo{Label: "Unknown", Icon: unknownIcon}
	}
	if isDaytime {
		return WeatherInfo{Label: e.label, Icon: e.dayIcon}
	}
	return WeatherInfo{Label: e.label, Icon: e.nightIcon}
}

// IsSnowCode reports whether the code belongs to the snow vocabulary set.
func IsSnowCode(code int) bool {
	switch code {
	case 71, 73, 75, 77, 85, 86:
		return true
	default:
		return false
	}
}

// Condition categories drive the dashboard backdrop.
const (
	ConditionClear  = "clear"
	ConditionCloudy = "cloudy"
	ConditionRainy  = "rainy"
	ConditionSnowy  = "snowy"
)

// ConditionCategory buckets a weather code into a coarse condition.
func ConditionCategory(code int) string {
	switch code {
	case 51, 53, 55, 61, 63, 65, 80, 81, 82, 95, 96, 99:
		return ConditionRainy
	case 2, 3, 45, 48:
		return ConditionCloudy
	}
	if IsSnowCode(code) {
		return ConditionSnowy
	}
	return ConditionClear
}

var compassPoints = [16]string{
	"N", "NNE", "NE", "ENE", "E", "ESE", "SE", "SSE",
	"S", "SSW", "SW", "WSW", "W", "WNW", "NW", "NNW",
}

// CompassDirection converts a bearing in degrees to a 16-point compass label.
func CompassDirection(degrees float64) string {
	idx := int(roundHalfUp(degrees/22.5)) % 16
	if idx < 0 {
		idx += 16
	}
	return compassPoints[idx]
}

// roundHalfUp rounds .5 toward positive infinity, so -2.5 becomes -2.
func roundHalfUp(v float64) float64 {
	return math.Floor(v + 0.5)
}

func roundInt(v float64) int {
	return int(roundHalfUp(v))
}
