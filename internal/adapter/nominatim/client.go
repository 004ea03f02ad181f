// Package nominatim reverse-geocodes coordinates with OpenStreetMap Nominatim.
package nominatim

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/couchcryptid/weather-brief-service/internal/domain"
	"github.com/couchcryptid/weather-brief-service/internal/observability"
	"golang.org/x/time/rate"
)

const source = "geocode"

// Client implements domain.Geocoder. Nominatim's usage policy requires an
// identifying User-Agent and at most one request per second, so calls block
// on a shared limiter.
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	limiter    *rate.Limiter
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a Nominatim client limited to rps requests per second.
func NewClient(baseURL, userAgent string, rps float64, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		userAgent:  userAgent,
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
		metrics:    metrics,
		logger:     logger,
	}
}

// ReverseGeocode converts coordinates to address details at city zoom.
// An unknown location yields an empty Address and no error.
func (c *Client) ReverseGeocode(ctx context.Context, lat, lon float64) (domain.Address, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return domain.Address{}, fmt.Errorf("nominatim rate limit: %w", err)
	}

	params := url.Values{
		"lat":    {strconv.FormatFloat(lat, 'f', 6, 64)},
		"lon":    {strconv.FormatFloat(lon, 'f', 6, 64)},
		"format": {"json"},
		"zoom":   {"10"},
	}

	start := time.Now()
	addr, err := c.doRequest(ctx, c.baseURL+"/reverse?"+params.Encode())
	c.metrics.UpstreamDuration.WithLabelValues(source).Observe(time.Since(start).Seconds())

	switch {
	case err != nil:
		c.metrics.UpstreamRequests.WithLabelValues(source, observability.OutcomeError).Inc()
		return domain.Address{}, err
	case addr.IsEmpty():
		c.metrics.UpstreamRequests.WithLabelValues(source, observability.OutcomeEmpty).Inc()
	default:
		c.metrics.UpstreamRequests.WithLabelValues(source, observability.OutcomeSuccess).Inc()
	}
	return addr, nil
}

func (c *Client) doRequest(ctx context.Context, fullURL string) (domain.Address, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return domain.Address{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Address{}, fmt.Errorf("reverse geocode request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return domain.Address{}, fmt.Errorf("nominatim API error: status %d: %s", resp.StatusCode, body)
	}

	var r response
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return domain.Address{}, fmt.Errorf("decode response: %w", err)
	}
	if r.Error != "" {
		c.logger.Debug("nominatim found no place", "reason", r.Error)
		return domain.Address{}, nil
	}

	return domain.Address{
		City:        r.Address.City,
		Town:        r.Address.Town,
		Village:     r.Address.Village,
		County:      r.Address.County,
		State:       r.Address.State,
		DisplayName: r.DisplayName,
	}, nil
}

// Nominatim API response types.

type response struct {
	DisplayName string  `json:"display_name"`
	Address     address `json:"address"`
	Error       string  `json:"error"`
}

type address struct {
	City    string `json:"city"`
	Town    string `json:"town"`
	Village string `json:"village"`
	County  string `json:"county"`
	State   string `json:"state"`
}
