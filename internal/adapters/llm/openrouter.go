// Package llm is the chat-completion client used to phrase prediction explanations.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/okian/matchpulse/internal/domain/explain"
	"github.com/okian/matchpulse/pkg/logger"
	"github.com/okian/matchpulse/pkg/metrics"
	"github.com/sony/gobreaker"
)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// OpenRouter calls an OpenAI-compatible chat completions endpoint behind a
// circuit breaker.
type OpenRouter struct {
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	log        logger.Logger
	apiKey     string
	baseURL    string
	model      string
	attempts   int
	backoff    time.Duration
}

var _ explain.Completer = (*OpenRouter)(nil)

// New creates a client. It fails with ErrMissingAPIKey when apiKey is empty.
func New(apiKey string, opts ...Option) (*OpenRouter, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrMissingAPIKey
	}
	c := &OpenRouter{
		httpClient: &http.Client{Timeout: defaultTimeout},
		apiKey:     apiKey,
		baseURL:    DefaultBaseURL,
		model:      DefaultModel,
		attempts:   defaultAttempts,
		backoff:    defaultBackoff,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logger.Get().Named("llm")
	}
	c.baseURL = strings.TrimRight(c.baseURL, "/")

	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "openrouter",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.UpdateBreakerOpen(to == gobreaker.StateOpen)
			c.log.Warn(context.Background(), "circuit breaker state changed",
				logger.String("circuit", name),
				logger.String("from_state", from.String()),
				logger.String("to_state", to.String()))
		},
	})
	return c, nil
}

// Complete sends the prompt and returns the first choice's text.
func (c *OpenRouter) Complete(ctx context.Context, p explain.Prompt) (string, error) {
	req := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: p.System},
			{Role: "user", Content: p.User},
		},
		Temperature: defaultTemperature,
		MaxTokens:   defaultMaxTokens,
	}

	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.send(ctx, req)
	})
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.RecordCompletionRequest("rejected")
		return "", fmt.Errorf("%w: %v", ErrCircuitOpen, err)
	case err != nil:
		metrics.RecordCompletionRequest("error")
		return "", err
	}
	metrics.RecordCompletionRequest("ok")
	return out.(string), nil
}

// IsHealthy reports whether the breaker lets requests through.
func (c *OpenRouter) IsHealthy() bool {
	return c.breaker.State() != gobreaker.StateOpen
}

// send posts req, retrying transport errors, 429 and 5xx with doubling backoff.
func (c *OpenRouter) send(ctx context.Context, req chatRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	var lastErr error
	delay := c.backoff
	for attempt := 0; attempt < c.attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return "", ctx.Err()
			}
			delay *= 2
		}

		text, retry, err := c.do(ctx, body)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if !retry || ctx.Err() != nil {
			break
		}
		c.log.Debug(ctx, "completion attempt failed",
			logger.Int("attempt", attempt+1), logger.Error(err))
	}
	return "", fmt.Errorf("%w: %v", ErrCompletion, lastErr)
}

// do performs one HTTP round trip. retry reports whether the failure is transient.
func (c *OpenRouter) do(ctx context.Context, body []byte) (text string, retry bool, err error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", false, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", true, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", true, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr apiError
		msg := strings.TrimSpace(string(raw))
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error.Message != "" {
			msg = apiErr.Error.Message
		}
		retry = resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError
		return "", retry, fmt.Errorf("status %d: %s", resp.StatusCode, msg)
	}

	var out chatResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", false, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(out.Choices) == 0 || strings.TrimSpace(out.Choices[0].Message.Content) == "" {
		return "", false, ErrEmptyResponse
	}
	return out.Choices[0].Message.Content, false, nil
}
