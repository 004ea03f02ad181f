// Package anthropic implements domain.TextGenerator on the Anthropic Messages API.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/couchcryptid/weather-brief-service/internal/observability"
	"github.com/sony/gobreaker"
)

const source = "llm"

var (
	// ErrCircuitOpen is returned while the breaker rejects calls after repeated failures.
	ErrCircuitOpen = errors.New("llm circuit breaker open")
	// ErrEmptyResponse is returned when the model produced no text block.
	ErrEmptyResponse = errors.New("llm returned no text")
)

// Client sends a single-turn prompt and returns the concatenated text reply.
type Client struct {
	messages  *sdk.MessageService
	model     string
	maxTokens int
	breaker   *gobreaker.CircuitBreaker
	metrics   *observability.Metrics
	logger    *slog.Logger
}

// NewClient creates a Messages API client. Retries are left to the caller so
// the breaker sees every upstream failure.
func NewClient(baseURL, apiKey, model string, maxTokens int, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	api := sdk.NewClient(
		option.WithBaseURL(baseURL),
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(&http.Client{Timeout: timeout}),
		option.WithMaxRetries(0),
	)
	return &Client{
		messages:  &api.Messages,
		model:     model,
		maxTokens: maxTokens,
		breaker:   newBreaker(logger),
		metrics:   metrics,
		logger:    logger,
	}
}

func newBreaker(logger *slog.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "anthropic",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     time.Minute,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
}

// Generate returns the model's reply to prompt.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	params := sdk.MessageNewParams{
		Model:     sdk.Model(c.model),
		MaxTokens: int64(c.maxTokens),
		Messages:  []sdk.MessageParam{sdk.NewUserMessage(sdk.NewTextBlock(prompt))},
	}

	start := time.Now()
	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.send(ctx, params)
	})
	c.metrics.UpstreamDuration.WithLabelValues(source).Observe(time.Since(start).Seconds())

	if err != nil {
		c.metrics.UpstreamRequests.WithLabelValues(source, observability.OutcomeError).Inc()
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", fmt.Errorf("%w: %v", ErrCircuitOpen, err)
		}
		return "", err
	}

	text, ok := result.(string)
	if !ok {
		return "", fmt.Errorf("unexpected result type from circuit breaker")
	}
	c.metrics.UpstreamRequests.WithLabelValues(source, observability.OutcomeSuccess).Inc()
	return text, nil
}

func (c *Client) send(ctx context.Context, params sdk.MessageNewParams) (string, error) {
	msg, err := c.messages.New(ctx, params)
	if err != nil {
		var apiErr *sdk.Error
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("anthropic API error: status %d: %w", apiErr.StatusCode, err)
		}
		return "", fmt.Errorf("messages request: %w", err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", ErrEmptyResponse
	}
	return sb.String(), nil
}
