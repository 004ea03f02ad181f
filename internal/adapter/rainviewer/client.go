// Package rainviewer fetches the radar frame index from RainViewer.
package rainviewer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/weather-brief-service/internal/domain"
	"github.com/couchcryptid/weather-brief-service/internal/observability"
)

const source = "radar"

// Tile options: 256px tiles, "Universal Blue" colour scheme, smoothed, snow colours on.
const (
	tileSize    = 256
	colorScheme = 2
	smooth      = 1
	snowColors  = 1
)

// Client fetches the public weather-maps index.
type Client struct {
	httpClient *http.Client
	indexURL   string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a RainViewer client for the given index URL.
func NewClient(indexURL string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		indexURL:   indexURL,
		metrics:    metrics,
		logger:     logger,
	}
}

// Frames returns past and nowcast frames with ready-to-use tile URL templates.
func (c *Client) Frames(ctx context.Context) (domain.RadarIndex, error) {
	start := time.Now()
	idx, err := c.doRequest(ctx)
	c.metrics.UpstreamDuration.WithLabelValues(source).Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.UpstreamRequests.WithLabelValues(source, observability.OutcomeError).Inc()
		return domain.RadarIndex{}, err
	}

	outcome := observability.OutcomeSuccess
	if len(idx.Past)+len(idx.Nowcast) == 0 {
		outcome = observability.OutcomeEmpty
	}
	c.metrics.UpstreamRequests.WithLabelValues(source, outcome).Inc()
	return idx, nil
}

func (c *Client) doRequest(ctx context.Context) (domain.RadarIndex, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.indexURL, nil)
	if err != nil {
		return domain.RadarIndex{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.RadarIndex{}, fmt.Errorf("radar index request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return domain.RadarIndex{}, fmt.Errorf("rainviewer API error: status %d: %s", resp.StatusCode, body)
	}

	var m weatherMaps
	if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
		return domain.RadarIndex{}, fmt.Errorf("decode response: %w", err)
	}

	return domain.RadarIndex{
		Past:    toFrames(m.Host, m.Radar.Past),
		Nowcast: toFrames(m.Host, m.Radar.Nowcast),
	}, nil
}

// TileURLTemplate builds the tile URL for one frame path.
func TileURLTemplate(host, path string) string {
	return fmt.Sprintf("%s%s/%d/{z}/{x}/{y}/%d/%d_%d.webp", host, path, tileSize, colorScheme, smooth, snowColors)
}

func toFrames(host string, in []frame) []domain.RadarFrame {
	out := make([]domain.RadarFrame, 0, len(in))
	for _, f := range in {
		out = append(out, domain.RadarFrame{
			Time:            time.Unix(f.Time, 0).UTC(),
			TileURLTemplate: TileURLTemplate(host, f.Path),
		})
	}
	return out
}

// RainViewer API response types.

type weatherMaps struct {
	Host  string `json:"host"`
	Radar struct {
		Past    []frame `json:"past"`
		Nowcast []frame `json:"nowcast"`
	} `json:"radar"`
}

type frame struct {
	Time int64  `json:"time"` // unix seconds
	Path string `json:"path"`
}
