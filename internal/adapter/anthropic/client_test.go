package anthropic

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/couchcryptid/weather-brief-service/internal/domain"
	"github.com/couchcryptid/weather-brief-service/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testKey   = "sk-test"
	testModel = "claude-haiku-4-5-20251001"
)

func testClient(baseURL string) *Client {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewClient(baseURL, testKey, testModel, 300, 5*time.Second, observability.NewMetricsForTesting(), logger)
}

// sentRequest is the subset of the Messages API request body the tests inspect.
type sentRequest struct {
	Model     string `json:"model"`
	MaxTokens int    `json:"max_tokens"`
	Messages  []struct {
		Role    string `json:"role"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"messages"`
}

func TestClient_Generate_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, testKey, r.Header.Get("X-Api-Key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))

		var req sentRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, testModel, req.Model)
		assert.Equal(t, 300, req.MaxTokens)
		require.Len(t, req.Messages, 1)
		assert.Equal(t, "user", req.Messages[0].Role)
		require.Len(t, req.Messages[0].Content, 1)
		assert.Equal(t, "text", req.Messages[0].Content[0].Type)
		assert.Equal(t, "the prompt", req.Messages[0].Content[0].Text)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"Warm and sticky. "},{"type":"text","text":"TOMORROW: Storms."}],"stop_reason":"end_turn"}`))
	}))
	defer srv.Close()

	text, err := testClient(srv.URL).Generate(context.Background(), "the prompt")
	require.NoError(t, err)
	assert.Equal(t, "Warm and sticky. TOMORROW: Storms.", text)

	brief, tomorrow := domain.SplitGeneratedBrief(text)
	assert.Equal(t, "Warm and sticky.", brief)
	assert.Equal(t, "Storms.", tomorrow)
}

func TestClient_Generate_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Generate(context.Background(), "p")
	require.Error(t, err)
	var apiErr *sdk.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Contains(t, err.Error(), "401")
	assert.Contains(t, err.Error(), "invalid x-api-key")
}

func TestClient_Generate_NoText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"content":[]}`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Generate(context.Background(), "p")
	require.ErrorIs(t, err, ErrEmptyResponse)
}

func TestClient_Generate_BreakerOpens(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	for range 3 {
		_, err := c.Generate(context.Background(), "p")
		require.Error(t, err)
	}
	_, err := c.Generate(context.Background(), "p")
	require.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, int32(3), calls.Load())
}
