package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
	UpstreamTimeout time.Duration
	UserAgent       string

	// Used when no coordinates are supplied or the location provider fails.
	DefaultLat          float64
	DefaultLon          float64
	DefaultLocationName string

	OpenMeteoURL string
	ForecastDays int

	// Reverse geocoding. Nominatim is the primary provider; Mapbox replaces
	// it when enabled.
	NominatimURL     string
	NominatimRPS     float64
	MapboxToken      string
	MapboxEnabled    bool
	GeocodeCacheSize int

	NWSURL string

	RainViewerURL      string
	RadarFrameInterval time.Duration

	AnthropicURL       string
	AnthropicAPIKey    string
	AnthropicModel     string
	AnthropicMaxTokens int

	// Empty KafkaBrokers disables briefing publication.
	KafkaBrokers       []string
	KafkaBriefingTopic string

	PreferencesDriver string
	PreferencesDSN    string
}

// Load reads configuration from environment variables, applying defaults
// where unset. A .env file in the working directory is read first if present;
// variables already set in the environment win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}
	upstreamTimeout, err := parseDuration("UPSTREAM_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	frameInterval, err := parseDuration("RADAR_FRAME_INTERVAL", "500ms")
	if err != nil {
		return nil, err
	}

	defaultLat, err := parseFloatInRange("DEFAULT_LAT", 37.68, -90, 90)
	if err != nil {
		return nil, err
	}
	defaultLon, err := parseFloatInRange("DEFAULT_LON", -77.90, -180, 180)
	if err != nil {
		return nil, err
	}

	forecastDays, err := parseIntInRange("FORECAST_DAYS", 10, 1, 16)
	if err != nil {
		return nil, err
	}
	cacheSize, err := parseIntInRange("GEOCODE_CACHE_SIZE", 1000, 1, 1_000_000)
	if err != nil {
		return nil, err
	}
	maxTokens, err := parseIntInRange("ANTHROPIC_MAX_TOKENS", 300, 1, 4096)
	if err != nil {
		return nil, err
	}
	nominatimRPS, err := parseFloatInRange("NOMINATIM_RPS", 1, 0.01, 1)
	if err != nil {
		return nil, err
	}

	mapboxToken := os.Getenv("MAPBOX_TOKEN")
	mapboxEnabled := mapboxToken != ""
	if v := os.Getenv("MAPBOX_ENABLED"); v != "" {
		mapboxEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
		UpstreamTimeout: upstreamTimeout,
		UserAgent:       sharedcfg.EnvOrDefault("USER_AGENT", "MyWeatherApp/1.0"),

		DefaultLat:          defaultLat,
		DefaultLon:          defaultLon,
		DefaultLocationName: sharedcfg.EnvOrDefault("DEFAULT_LOCATION_NAME", "Goochland, Virginia"),

		OpenMeteoURL: sharedcfg.EnvOrDefault("OPEN_METEO_URL", "https://api.open-meteo.com/v1/forecast"),
		ForecastDays: forecastDays,

		NominatimURL:     sharedcfg.EnvOrDefault("NOMINATIM_URL", "https://nominatim.openstreetmap.org"),
		NominatimRPS:     nominatimRPS,
		MapboxToken:      mapboxToken,
		MapboxEnabled:    mapboxEnabled,
		GeocodeCacheSize: cacheSize,

		NWSURL: sharedcfg.EnvOrDefault("NWS_URL", "https://api.weather.gov"),

		RainViewerURL:      sharedcfg.EnvOrDefault("RAINVIEWER_URL", "https://api.rainviewer.com/public/weather-maps.json"),
		RadarFrameInterval: frameInterval,

		AnthropicURL:       sharedcfg.EnvOrDefault("ANTHROPIC_URL", "https://api.anthropic.com"),
		AnthropicAPIKey:    os.Getenv("ANTHROPIC_API_KEY"),
		AnthropicModel:     sharedcfg.EnvOrDefault("ANTHROPIC_MODEL", "claude-haiku-4-5-20251001"),
		AnthropicMaxTokens: maxTokens,

		KafkaBrokers:       sharedcfg.ParseBrokers(os.Getenv("KAFKA_BROKERS")),
		KafkaBriefingTopic: sharedcfg.EnvOrDefault("KAFKA_BRIEFING_TOPIC", "weather-briefings"),

		PreferencesDriver: sharedcfg.EnvOrDefault("PREFERENCES_DRIVER", "sqlite"),
		PreferencesDSN:    sharedcfg.EnvOrDefault("PREFERENCES_DSN", "file:preferences.db"),
	}

	if cfg.MapboxEnabled && cfg.MapboxToken == "" {
		return nil, errors.New("MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set")
	}
	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaBriefingTopic == "" {
		return nil, errors.New("KAFKA_BRIEFING_TOPIC is required when KAFKA_BROKERS is set")
	}
	switch cfg.PreferencesDriver {
	case "sqlite", "postgres":
	default:
		return nil, fmt.Errorf("invalid PREFERENCES_DRIVER %q: want sqlite or postgres", cfg.PreferencesDriver)
	}
	if cfg.UserAgent == "" {
		return nil, errors.New("USER_AGENT is required")
	}

	return cfg, nil
}

// LLMEnabled reports whether a text generation key is configured.
func (c *Config) LLMEnabled() bool {
	return c.AnthropicAPIKey != ""
}

// PublishingEnabled reports whether briefing events go to Kafka.
func (c *Config) PublishingEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func parseDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive duration", key)
	}
	return d, nil
}

func parseIntInRange(key string, def, lo, hi int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < lo || n > hi {
		return 0, fmt.Errorf("invalid %s: must be an integer between %d and %d", key, lo, hi)
	}
	return n, nil
}

func parseFloatInRange(key string, def, lo, hi float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < lo || v > hi {
		return 0, fmt.Errorf("invalid %s: must be a number between %g and %g", key, lo, hi)
	}
	return v, nil
}
