package domain

import "time"

// Coordinates is a WGS-84 latitude/longitude pair.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// CurrentConditions holds the "now" block of a forecast. Temperatures are
// Fahrenheit, speeds mph.
type CurrentConditions struct {
	Temperature          float64  `json:"temperature"`
	FeelsLikeTemperature float64  `json:"feels_like_temperature"`
	HumidityPercent      int      `json:"humidity_percent"`
	DewPointTemperature  *float64 `json:"dew_point_temperature"` // nil when the model omits it
	WeatherCode          int      `json:"weather_code"`
	IsDaytime            bool     `json:"is_daytime"`
	WindSpeed            float64  `json:"wind_speed"`
	WindGustSpeed        float64  `json:"wind_gust_speed"`
	WindDirectionDegrees float64  `json:"wind_direction_degrees"`
	UVIndexMax           float64  `json:"uv_index_max"`
	CloudCoverPercent    int      `json:"cloud_cover_percent"`
	PressureHpa          float64  `json:"pressure_hpa"`
	PrecipitationInches  float64  `json:"precipitation_inches"`
}

// HourlyForecast is one position of the hourly series.
type HourlyForecast struct {
	Time                            time.Time `json:"time"`
	Temperature                     float64   `json:"temperature"`
	PrecipitationProbabilityPercent int       `json:"precipitation_probability_percent"`
	WeatherCode                     int       `json:"weather_code"`
	IsDaytime                       bool      `json:"is_daytime"`
}

// DailyForecast is one day of the daily series. High and Low are nil when
// the provider has no value for that day.
type DailyForecast struct {
	Date                               time.Time `json:"date"`
	WeatherCode                        int       `json:"weather_code"`
	High                               *float64  `json:"high"`
	Low                                *float64  `json:"low"`
	PrecipitationProbabilityMaxPercent int       `json:"precipitation_probability_max_percent"`
	UVIndexMax                         float64   `json:"uv_index_max"`
	Sunrise                            time.Time `json:"sunrise"`
	Sunset                             time.Time `json:"sunset"`
}

// ForecastSnapshot is the raw input of the narrative engine. Hourly is
// ordered by increasing time; Daily[0] is today and Daily[1], when present,
// is tomorrow.
type ForecastSnapshot struct {
	Current  CurrentConditions `json:"current"`
	Hourly   []HourlyForecast  `json:"hourly"`
	Daily    []DailyForecast   `json:"daily"`
	TimeZone *time.Location    `json:"-"`
}

// Today returns the day-offset 0 row.
func (s ForecastSnapshot) Today() (DailyForecast, bool) {
	return s.day(0)
}

// Tomorrow returns the day-offset 1 row when it carries both a high and a low.
func (s ForecastSnapshot) Tomorrow() (DailyForecast, bool) {
	d, ok := s.day(1)
	if !ok || d.High == nil || d.Low == nil {
		return DailyForecast{}, false
	}
	return d, true
}

func (s ForecastSnapshot) day(offset int) (DailyForecast, bool) {
	if offset >= len(s.Daily) {
		return DailyForecast{}, false
	}
	return s.Daily[offset], true
}

// TodayUVMax prefers the daily maximum and falls back to the current block.
func (s ForecastSnapshot) TodayUVMax() float64 {
	if today, ok := s.Today(); ok {
		return today.UVIndexMax
	}
	return s.Current.UVIndexMax
}

// local converts t into the forecast's time zone when one is known.
func (s ForecastSnapshot) local(t time.Time) time.Time {
	if s.TimeZone == nil {
		return t
	}
	return t.In(s.TimeZone)
}

// Alert is an active weather alert. It is passed through to the
// presentation layer untouched.
type Alert struct {
	Event       string    `json:"event"`
	Headline    string    `json:"headline"`
	Description string    `json:"description"`
	Severity    string    `json:"severity"`
	Urgency     string    `json:"urgency"`
	Expires     time.Time `json:"expires"`
}

var alertSeverityColors = map[string]string{
	"Extreme":  "#d62828",
	"Severe":   "#e76f51",
	"Moderate": "#f4a261",
	"Minor":    "#e9c46a",
}

// SeverityColor maps the CAP severity to the banner colour, defaulting to
// the moderate shade for unknown severities.
func (a Alert) SeverityColor() string {
	if c, ok := alertSeverityColors[a.Severity]; ok {
		return c
	}
	return alertSeverityColors["Moderate"]
}
