package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/couchcryptid/weather-brief-service/internal/adapter/anthropic"
	"github.com/couchcryptid/weather-brief-service/internal/adapter/geocache"
	httpadapter "github.com/couchcryptid/weather-brief-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/weather-brief-service/internal/adapter/kafka"
	"github.com/couchcryptid/weather-brief-service/internal/adapter/mapbox"
	"github.com/couchcryptid/weather-brief-service/internal/adapter/nominatim"
	"github.com/couchcryptid/weather-brief-service/internal/adapter/nws"
	"github.com/couchcryptid/weather-brief-service/internal/adapter/openmeteo"
	"github.com/couchcryptid/weather-brief-service/internal/adapter/postgres"
	"github.com/couchcryptid/weather-brief-service/internal/adapter/rainviewer"
	"github.com/couchcryptid/weather-brief-service/internal/adapter/sqlite"
	"github.com/couchcryptid/weather-brief-service/internal/config"
	"github.com/couchcryptid/weather-brief-service/internal/dashboard"
	"github.com/couchcryptid/weather-brief-service/internal/domain"
	"github.com/couchcryptid/weather-brief-service/internal/observability"
	"github.com/couchcryptid/weather-brief-service/internal/radar"
	"github.com/jonboulle/clockwork"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	prefs, closePrefs, err := openPreferences(ctx, cfg)
	if err != nil {
		logger.Error("failed to open preference store", "driver", cfg.PreferencesDriver, "error", err)
		os.Exit(1)
	}

	defaultPlace := domain.Place{
		Coordinates: domain.Coordinates{Lat: cfg.DefaultLat, Lon: cfg.DefaultLon},
		Name:        cfg.DefaultLocationName,
	}
	clock := clockwork.NewRealClock()
	layers := radar.NewLayerSet()
	controller := radar.NewController(clock, layers, logger, metrics, cfg.RadarFrameInterval)

	deps := dashboard.Deps{
		Forecast:    openmeteo.NewClient(cfg.OpenMeteoURL, cfg.ForecastDays, cfg.UpstreamTimeout, metrics, logger),
		Geocoder:    newGeocoder(cfg, metrics, logger),
		Alerts:      nws.NewClient(cfg.NWSURL, cfg.UserAgent, cfg.UpstreamTimeout, metrics, logger),
		Radar:       rainviewer.NewClient(cfg.RainViewerURL, cfg.UpstreamTimeout, metrics, logger),
		Preferences: prefs,
		Location:    domain.FixedLocation{Place: defaultPlace},
		Default:     defaultPlace,
		Controller:  controller,
		Layers:      layers,
		Clock:       clock,
		Metrics:     metrics,
		Logger:      logger,
	}

	if cfg.LLMEnabled() {
		deps.Generator = anthropic.NewClient(cfg.AnthropicURL, cfg.AnthropicAPIKey, cfg.AnthropicModel,
			cfg.AnthropicMaxTokens, cfg.UpstreamTimeout, metrics, logger)
		logger.Info("llm briefings enabled", "model", cfg.AnthropicModel)
	} else {
		logger.Info("llm briefings disabled")
	}

	var writer *kafkaadapter.Writer
	if cfg.PublishingEnabled() {
		writer = kafkaadapter.NewWriter(cfg.KafkaBrokers, cfg.KafkaBriefingTopic, logger)
		deps.Publisher = writer
		logger.Info("briefing publishing enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaBriefingTopic)
	}

	svc := dashboard.New(deps)
	srv := httpadapter.NewServer(cfg.HTTPAddr, svc, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	controller.Close()
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}
	if err := closePrefs(); err != nil {
		logger.Error("preference store close error", "error", err)
	}

	logger.Info("shutdown complete")
}

// newGeocoder picks the reverse geocoding provider and puts a cache in front
// of it.
func newGeocoder(cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) domain.Geocoder {
	var inner domain.Geocoder
	if cfg.MapboxEnabled {
		inner = mapbox.NewClient(cfg.MapboxToken, cfg.UpstreamTimeout, metrics, logger)
		logger.Info("mapbox geocoding enabled", "cache_size", cfg.GeocodeCacheSize)
	} else {
		inner = nominatim.NewClient(cfg.NominatimURL, cfg.UserAgent, cfg.NominatimRPS, cfg.UpstreamTimeout, metrics, logger)
		logger.Info("nominatim geocoding enabled", "cache_size", cfg.GeocodeCacheSize, "rps", cfg.NominatimRPS)
	}
	return geocache.NewCachedGeocoder(inner, cfg.GeocodeCacheSize, metrics)
}

func openPreferences(ctx context.Context, cfg *config.Config) (domain.PreferenceStore, func() error, error) {
	switch cfg.PreferencesDriver {
	case "postgres":
		s, err := postgres.New(ctx, cfg.PreferencesDSN)
		if err != nil {
			return nil, nil, err
		}
		return s, func() error { s.Close(); return nil }, nil
	default:
		s, err := sqlite.Open(ctx, cfg.PreferencesDSN)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	}
}
