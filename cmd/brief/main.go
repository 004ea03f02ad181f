// Command brief prints the weather briefs for one location and exits.
//
// Usage:
//
//	go run ./cmd/brief -lat 37.54 -lon -77.43
//	go run ./cmd/brief -mode short
//	go run ./cmd/brief -llm            # requires ANTHROPIC_API_KEY
//	go run ./cmd/brief -json
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/couchcryptid/weather-brief-service/internal/adapter/anthropic"
	"github.com/couchcryptid/weather-brief-service/internal/adapter/nominatim"
	"github.com/couchcryptid/weather-brief-service/internal/adapter/openmeteo"
	"github.com/couchcryptid/weather-brief-service/internal/config"
	"github.com/couchcryptid/weather-brief-service/internal/domain"
	"github.com/couchcryptid/weather-brief-service/internal/observability"
	"github.com/jonboulle/clockwork"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	lat := flag.Float64("lat", cfg.DefaultLat, "latitude")
	lon := flag.Float64("lon", cfg.DefaultLon, "longitude")
	mode := flag.String("mode", "all", "which brief to print: short, full, tomorrow or all")
	useLLM := flag.Bool("llm", false, "ask the language model for a conversational brief")
	asJSON := flag.Bool("json", false, "print the briefs as JSON")
	flag.Parse()

	if err := checkMode(*mode); err != nil {
		fmt.Fprintln(os.Stderr, err)
		flag.Usage()
		os.Exit(2)
	}

	logger := observability.NewStderrLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, options{
		lat: *lat, lon: *lon, mode: *mode, llm: *useLLM, asJSON: *asJSON,
	}, metrics, logger); err != nil {
		logger.Error("brief failed", "error", err)
		os.Exit(1)
	}
}

var briefModes = []string{"short", "full", "tomorrow", "all"}

func checkMode(mode string) error {
	if slices.Contains(briefModes, mode) {
		return nil
	}
	return fmt.Errorf("unknown -mode %q: want short, full, tomorrow or all", mode)
}

type options struct {
	lat, lon float64
	mode     string
	llm      bool
	asJSON   bool
}

func run(ctx context.Context, cfg *config.Config, opts options, metrics *observability.Metrics, logger *slog.Logger) error {
	if err := checkMode(opts.mode); err != nil {
		return err
	}

	forecast := openmeteo.NewClient(cfg.OpenMeteoURL, cfg.ForecastDays, cfg.UpstreamTimeout, metrics, logger)
	snap, err := forecast.Forecast(ctx, opts.lat, opts.lon)
	if err != nil {
		return fmt.Errorf("fetch forecast: %w", err)
	}

	name := cfg.DefaultLocationName
	geocoder := nominatim.NewClient(cfg.NominatimURL, cfg.UserAgent, cfg.NominatimRPS, cfg.UpstreamTimeout, metrics, logger)
	if addr, err := geocoder.ReverseGeocode(ctx, opts.lat, opts.lon); err != nil {
		logger.Warn("reverse geocode failed, using default name", "error", err)
	} else {
		name = domain.ResolvePlaceName(addr)
	}

	if opts.llm {
		return printGenerated(ctx, cfg, snap, name, opts.asJSON, metrics, logger)
	}

	n := domain.Narrate(snap)
	if opts.asJSON {
		return printJSON(struct {
			Location string `json:"location"`
			domain.Narrative
		}{name, n})
	}

	fmt.Println(name)
	switch opts.mode {
	case "short":
		fmt.Println(n.Short)
	case "full":
		fmt.Println(n.Full)
	case "tomorrow":
		fmt.Println(n.Tomorrow)
	default:
		fmt.Printf("\n%s\n\n%s\n\n%s\n", n.Short, n.Full, n.Tomorrow)
	}
	return nil
}

func printGenerated(ctx context.Context, cfg *config.Config, snap domain.ForecastSnapshot, name string, asJSON bool, metrics *observability.Metrics, logger *slog.Logger) error {
	if !cfg.LLMEnabled() {
		return fmt.Errorf("-llm needs ANTHROPIC_API_KEY")
	}
	client := anthropic.NewClient(cfg.AnthropicURL, cfg.AnthropicAPIKey, cfg.AnthropicModel,
		cfg.AnthropicMaxTokens, cfg.UpstreamTimeout, metrics, logger)

	prompt := domain.BriefingPrompt(domain.BriefingInput{
		Snapshot:     snap,
		LocationName: name,
		Now:          clockwork.NewRealClock().Now(),
	})
	text, err := client.Generate(ctx, prompt)
	if err != nil {
		return fmt.Errorf("generate brief: %w", err)
	}
	brief, tomorrow := domain.SplitGeneratedBrief(text)

	if asJSON {
		return printJSON(map[string]string{"location": name, "brief": brief, "tomorrow": tomorrow})
	}
	fmt.Printf("%s\n\n%s\n", name, brief)
	if tomorrow != "" {
		fmt.Printf("\nTomorrow: %s\n", tomorrow)
	}
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
