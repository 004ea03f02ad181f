// Package openmeteo fetches forecasts from the Open-Meteo API.
package openmeteo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/weather-brief-service/internal/domain"
	"github.com/couchcryptid/weather-brief-service/internal/observability"
)

const source = "forecast"

var (
	currentFields = []string{
		"temperature_2m", "relative_humidity_2m", "apparent_temperature",
		"is_day", "weather_code", "wind_speed_10m", "wind_direction_10m",
		"wind_gusts_10m", "dew_point_2m", "surface_pressure",
		"cloud_cover", "precipitation",
	}
	hourlyFields = []string{
		"temperature_2m", "precipitation_probability", "weather_code", "is_day",
	}
	dailyFields = []string{
		"weather_code", "temperature_2m_max", "temperature_2m_min",
		"precipitation_probability_max", "uv_index_max", "sunrise", "sunset",
	}
)

const (
	hourLayout = "2006-01-02T15:04"
	dayLayout  = "2006-01-02"
)

// Client fetches imperial-unit forecasts in the location's own time zone.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	forecastDays int
	metrics      *observability.Metrics
	logger       *slog.Logger
}

// NewClient creates an Open-Meteo forecast client.
func NewClient(baseURL string, forecastDays int, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		httpClient:   &http.Client{Timeout: timeout},
		baseURL:      baseURL,
		forecastDays: forecastDays,
		metrics:      metrics,
		logger:       logger,
	}
}

// Forecast fetches current conditions, the hourly series and the daily
// series for a coordinate.
func (c *Client) Forecast(ctx context.Context, lat, lon float64) (domain.ForecastSnapshot, error) {
	params := url.Values{
		"latitude":           {strconv.FormatFloat(lat, 'f', -1, 64)},
		"longitude":          {strconv.FormatFloat(lon, 'f', -1, 64)},
		"current":            {strings.Join(currentFields, ",")},
		"hourly":             {strings.Join(hourlyFields, ",")},
		"daily":              {strings.Join(dailyFields, ",")},
		"temperature_unit":   {"fahrenheit"},
		"wind_speed_unit":    {"mph"},
		"precipitation_unit": {"inch"},
		"timezone":           {"auto"},
		"forecast_days":      {strconv.Itoa(c.forecastDays)},
	}

	start := time.Now()
	snap, err := c.doRequest(ctx, c.baseURL+"?"+params.Encode())
	c.metrics.UpstreamDuration.WithLabelValues(source).Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.UpstreamRequests.WithLabelValues(source, observability.OutcomeError).Inc()
		return domain.ForecastSnapshot{}, err
	}
	c.metrics.UpstreamRequests.WithLabelValues(source, observability.OutcomeSuccess).Inc()
	return snap, nil
}

func (c *Client) doRequest(ctx context.Context, fullURL string) (domain.ForecastSnapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return domain.ForecastSnapshot{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.ForecastSnapshot{}, fmt.Errorf("forecast request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return domain.ForecastSnapshot{}, fmt.Errorf("open-meteo API error: status %d: %s", resp.StatusCode, body)
	}

	var fr response
	if err := json.NewDecoder(resp.Body).Decode(&fr); err != nil {
		return domain.ForecastSnapshot{}, fmt.Errorf("decode response: %w", err)
	}
	return fr.toSnapshot(c.logger)
}

// Open-Meteo API response types. Series values are nullable.

type response struct {
	Timezone         string `json:"timezone"`
	TimezoneAbbrev   string `json:"timezone_abbreviation"`
	UTCOffsetSeconds int    `json:"utc_offset_seconds"`
	Current          struct {
		Temperature         float64  `json:"temperature_2m"`
		RelativeHumidity    float64  `json:"relative_humidity_2m"`
		ApparentTemperature float64  `json:"apparent_temperature"`
		IsDay               int      `json:"is_day"`
		WeatherCode         int      `json:"weather_code"`
		WindSpeed           float64  `json:"wind_speed_10m"`
		WindDirection       float64  `json:"wind_direction_10m"`
		WindGusts           float64  `json:"wind_gusts_10m"`
		DewPoint            *float64 `json:"dew_point_2m"`
		SurfacePressure     float64  `json:"surface_pressure"`
		CloudCover          float64  `json:"cloud_cover"`
		Precipitation       float64  `json:"precipitation"`
	} `json:"current"`
	Hourly struct {
		Time                     []string   `json:"time"`
		Temperature              []*float64 `json:"temperature_2m"`
		PrecipitationProbability []*float64 `json:"precipitation_probability"`
		WeatherCode              []*int     `json:"weather_code"`
		IsDay                    []*int     `json:"is_day"`
	} `json:"hourly"`
	Daily struct {
		Time                        []string   `json:"time"`
		WeatherCode                 []*int     `json:"weather_code"`
		TemperatureMax              []*float64 `json:"temperature_2m_max"`
		TemperatureMin              []*float64 `json:"temperature_2m_min"`
		PrecipitationProbabilityMax []*float64 `json:"precipitation_probability_max"`
		UVIndexMax                  []*float64 `json:"uv_index_max"`
		Sunrise                     []string   `json:"sunrise"`
		Sunset                      []string   `json:"sunset"`
	} `json:"daily"`
}

func (r response) location(logger *slog.Logger) *time.Location {
	if r.Timezone != "" {
		if loc, err := time.LoadLocation(r.Timezone); err == nil {
			return loc
		}
		logger.Debug("unknown forecast time zone, using fixed offset", "timezone", r.Timezone)
	}
	return time.FixedZone(r.TimezoneAbbrev, r.UTCOffsetSeconds)
}

func (r response) toSnapshot(logger *slog.Logger) (domain.ForecastSnapshot, error) {
	loc := r.location(logger)
	cur := r.Current

	snap := domain.ForecastSnapshot{
		Current: domain.CurrentConditions{
			Temperature:          cur.Temperature,
			FeelsLikeTemperature: cur.ApparentTemperature,
			HumidityPercent:      int(cur.RelativeHumidity),
			DewPointTemperature:  cur.DewPoint,
			WeatherCode:          cur.WeatherCode,
			IsDaytime:            cur.IsDay == 1,
			WindSpeed:            cur.WindSpeed,
			WindGustSpeed:        cur.WindGusts,
			WindDirectionDegrees: cur.WindDirection,
			CloudCoverPercent:    int(cur.CloudCover),
			PressureHpa:          cur.SurfacePressure,
			PrecipitationInches:  cur.Precipitation,
		},
		TimeZone: loc,
	}

	h := r.Hourly
	snap.Hourly = make([]domain.HourlyForecast, 0, len(h.Time))
	for i, ts := range h.Time {
		t, err := time.ParseInLocation(hourLayout, ts, loc)
		if err != nil {
			return domain.ForecastSnapshot{}, fmt.Errorf("parse hourly time %q: %w", ts, err)
		}
		snap.Hourly = append(snap.Hourly, domain.HourlyForecast{
			Time:                            t,
			Temperature:                     floatAt(h.Temperature, i),
			PrecipitationProbabilityPercent: int(floatAt(h.PrecipitationProbability, i)),
			WeatherCode:                     intAt(h.WeatherCode, i),
			IsDaytime:                       intAt(h.IsDay, i) == 1,
		})
	}

	d := r.Daily
	snap.Daily = make([]domain.DailyForecast, 0, len(d.Time))
	for i, ds := range d.Time {
		date, err := time.ParseInLocation(dayLayout, ds, loc)
		if err != nil {
			return domain.ForecastSnapshot{}, fmt.Errorf("parse daily date %q: %w", ds, err)
		}
		snap.Daily = append(snap.Daily, domain.DailyForecast{
			Date:                               date,
			WeatherCode:                        intAt(d.WeatherCode, i),
			High:                               ptrAt(d.TemperatureMax, i),
			Low:                                ptrAt(d.TemperatureMin, i),
			PrecipitationProbabilityMaxPercent: int(floatAt(d.PrecipitationProbabilityMax, i)),
			UVIndexMax:                         floatAt(d.UVIndexMax, i),
			Sunrise:                            parseOptionalTime(d.Sunrise, i, loc),
			Sunset:                             parseOptionalTime(d.Sunset, i, loc),
		})
	}
	if len(snap.Daily) > 0 {
		snap.Current.UVIndexMax = snap.Daily[0].UVIndexMax
	}
	return snap, nil
}

func ptrAt(vs []*float64, i int) *float64 {
	if i >= len(vs) {
		return nil
	}
	return vs[i]
}

func floatAt(vs []*float64, i int) float64 {
	if p := ptrAt(vs, i); p != nil {
		return *p
	}
	return 0
}

func intAt(vs []*int, i int) int {
	if i >= len(vs) || vs[i] == nil {
		return 0
	}
	return *vs[i]
}

func parseOptionalTime(vs []string, i int, loc *time.Location) time.Time {
	if i >= len(vs) {
		return time.Time{}
	}
	t, err := time.ParseInLocation(hourLayout, vs[i], loc)
	if err != nil {
		return time.Time{}
	}
	return t
}
