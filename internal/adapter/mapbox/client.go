package mapbox

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/couchcryptid/weather-brief-service/internal/domain"
	"github.com/couchcryptid/weather-brief-service/internal/observability"
)

const source = "geocode"

// Client implements domain.Geocoder using the Mapbox Geocoding API.
type Client struct {
	token      string
	httpClient *http.Client
	baseURL    string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a Mapbox geocoding client.
func NewClient(token string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		token: token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: "https://api.mapbox.com/geocoding/v5/mapbox.places",
		metrics: metrics,
		logger:  logger,
	}
}

// ReverseGeocode converts coordinates to address details.
func (c *Client) ReverseGeocode(ctx context.Context, lat, lon float64) (domain.Address, error) {
	// Mapbox uses lon,lat order.
	coord := fmt.Sprintf("%.6f,%.6f", lon, lat)
	u := fmt.Sprintf("%s/%s.json", c.baseURL, coord)
	params := url.Values{
		"access_token": {c.token},
		"limit":        {"1"},
		"types":        {"place,locality,district,region"},
	}

	start := time.Now()
	addr, err := c.doRequest(ctx, u+"?"+params.Encode())
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

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Address{}, fmt.Errorf("reverse geocode request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return domain.Address{}, fmt.Errorf("mapbox API error: status %d: %s", resp.StatusCode, body)
	}

	var mapboxResp response
	if err := json.NewDecoder(resp.Body).Decode(&mapboxResp); err != nil {
		return domain.Address{}, fmt.Errorf("decode response: %w", err)
	}

	if len(mapboxResp.Features) == 0 {
		return domain.Address{}, nil
	}

	f := mapboxResp.Features[0]
	addr := domain.Address{DisplayName: f.PlaceName}
	assign(&addr, f.ID, f.Text)
	for _, ctxEntry := range f.Context {
		assign(&addr, ctxEntry.ID, ctxEntry.Text)
	}
	return addr, nil
}

// assign maps a Mapbox feature id ("place.123", "region.456") onto the
// matching address field. Already-populated fields are kept.
func assign(a *domain.Address, id, text string) {
	kind, _, _ := strings.Cut(id, ".")
	var field *string
	switch kind {
	case "place":
		field = &a.City
	case "locality":
		field = &a.Town
	case "neighborhood":
		field = &a.Village
	case "district":
		field = &a.County
	case "region":
		field = &a.State
	default:
		return
	}
	if *field == "" {
		*field = text
	}
}

// Mapbox API response types.

type response struct {
	Features []feature `json:"features"`
}

type feature struct {
	ID        string         `json:"id"`
	Center    []float64      `json:"center"` // [lon, lat]
	PlaceName string         `json:"place_name"`
	Text      string         `json:"text"`
	Relevance float64        `json:"relevance"`
	Context   []contextEntry `json:"context"`
}

type contextEntry struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}
