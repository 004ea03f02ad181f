package nws

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/couchcryptid/weather-brief-service/internal/domain"
	"github.com/couchcryptid/weather-brief-service/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testUserAgent = "MyWeatherApp/1.0"

func testClient(baseURL string) *Client {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &Client{
		httpClient: &http.Client{Timeout: 5 * time.Second},
		baseURL:    baseURL,
		userAgent:  testUserAgent,
		breaker:    newBreaker(logger),
		metrics:    observability.NewMetricsForTesting(),
		logger:     logger,
	}
}

const alertsFixture = `{
  "type": "FeatureCollection",
  "features": [
    {
      "properties": {
        "event": "Heat Advisory",
        "headline": "Heat Advisory issued July 15 at 3:12AM EDT until July 15 at 8:00PM EDT",
        "description": "Heat index values up to 108 expected.",
        "severity": "Moderate",
        "urgency": "Expected",
        "expires": "2025-07-15T20:00:00-04:00"
      }
    }
  ]
}`

func TestClient_ActiveAlerts_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/alerts/active", r.URL.Path)
		assert.Equal(t, "37.6800,-77.9000", r.URL.Query().Get("point"))
		assert.Equal(t, testUserAgent, r.Header.Get("User-Agent"))
		assert.Equal(t, "application/geo+json", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "application/geo+json")
		_, _ = w.Write([]byte(alertsFixture))
	}))
	defer srv.Close()

	alerts, err := testClient(srv.URL).ActiveAlerts(context.Background(), 37.68, -77.9)
	require.NoError(t, err)
	require.Len(t, alerts, 1)

	a := alerts[0]
	assert.Equal(t, "Heat Advisory", a.Event)
	assert.Equal(t, "Moderate", a.Severity)
	assert.Equal(t, "Expected", a.Urgency)
	assert.True(t, a.Expires.Equal(time.Date(2025, 7, 16, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "#f4a261", a.SeverityColor())
}

func TestClient_ActiveAlerts_NoneOrNotCovered(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("point") == "51.5000,-0.1200" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"features":[]}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL)

	alerts, err := c.ActiveAlerts(context.Background(), 37.68, -77.9)
	require.NoError(t, err)
	assert.Equal(t, []domain.Alert{}, alerts)

	alerts, err = c.ActiveAlerts(context.Background(), 51.5, -0.12)
	require.NoError(t, err)
	assert.Empty(t, alerts)
}

func TestClient_ActiveAlerts_BreakerOpensAfterFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	for range 3 {
		_, err := c.ActiveAlerts(context.Background(), 37.68, -77.9)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "503")
	}

	_, err := c.ActiveAlerts(context.Background(), 37.68, -77.9)
	require.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, int32(3), calls.Load(), "open breaker must short-circuit")
}
