// Package nws fetches active weather alerts from the National Weather Service.
package nws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/weather-brief-service/internal/domain"
	"github.com/couchcryptid/weather-brief-service/internal/observability"
	"github.com/sony/gobreaker"
)

const source = "alerts"

// ErrCircuitOpen is returned while the breaker rejects calls after repeated failures.
var ErrCircuitOpen = errors.New("nws circuit breaker open")

// Client fetches alerts for a point. Coverage is US-only; elsewhere the
// service answers with no features.
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	breaker    *gobreaker.CircuitBreaker
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates an NWS alerts client with its own circuit breaker.
func NewClient(baseURL, userAgent string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		userAgent:  userAgent,
		breaker:    newBreaker(logger),
		metrics:    metrics,
		logger:     logger,
	}
}

func newBreaker(logger *slog.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "nws",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
}

// ActiveAlerts returns the alerts currently in effect at lat,lon.
func (c *Client) ActiveAlerts(ctx context.Context, lat, lon float64) ([]domain.Alert, error) {
	fullURL := fmt.Sprintf("%s/alerts/active?point=%.4f,%.4f", c.baseURL, lat, lon)

	start := time.Now()
	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.doRequest(ctx, fullURL)
	})
	c.metrics.UpstreamDuration.WithLabelValues(source).Observe(time.Since(start).Seconds())

	if err != nil {
		c.metrics.UpstreamRequests.WithLabelValues(source, observability.OutcomeError).Inc()
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", ErrCircuitOpen, err)
		}
		return nil, err
	}

	alerts, ok := result.([]domain.Alert)
	if !ok {
		return nil, fmt.Errorf("unexpected result type from circuit breaker")
	}
	outcome := observability.OutcomeSuccess
	if len(alerts) == 0 {
		outcome = observability.OutcomeEmpty
	}
	c.metrics.UpstreamRequests.WithLabelValues(source, outcome).Inc()
	return alerts, nil
}

func (c *Client) doRequest(ctx context.Context, fullURL string) ([]domain.Alert, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/geo+json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("alerts request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return []domain.Alert{}, nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("nws API error: status %d: %s", resp.StatusCode, body)
	}

	var fc featureCollection
	if err := json.NewDecoder(resp.Body).Decode(&fc); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	alerts := make([]domain.Alert, 0, len(fc.Features))
	for _, f := range fc.Features {
		p := f.Properties
		alerts = append(alerts, domain.Alert{
			Event:       p.Event,
			Headline:    p.Headline,
			Description: p.Description,
			Severity:    p.Severity,
			Urgency:     p.Urgency,
			Expires:     p.Expires,
		})
	}
	return alerts, nil
}

// NWS GeoJSON response types.

type featureCollection struct {
	Features []struct {
		Properties properties `json:"properties"`
	} `json:"features"`
}

type properties struct {
	Event       string    `json:"event"`
	Headline    string    `json:"headline"`
	Description string    `json:"description"`
	Severity    string    `json:"severity"`
	Urgency     string    `json:"urgency"`
	Expires     time.Time `json:"expires"`
}
