package llm

import (
	"net/http"
	"time"

	"github.com/okian/matchpulse/pkg/logger"
)

// Defaults of the OpenRouter client.
const (
	DefaultBaseURL = "https://openrouter.ai/api/v1"
	DefaultModel   = "meta-llama/llama-3.3-70b-instruct:free"

	defaultTimeout     = 30 * time.Second
	defaultAttempts    = 3
	defaultBackoff     = 500 * time.Millisecond
	defaultTemperature = 0.2
	defaultMaxTokens   = 350
)

// Option applies a configuration option to the client.
type Option func(*OpenRouter)

// WithModel sets the completion model.
func WithModel(model string) Option {
	return func(c *OpenRouter) {
		if model != "" {
			c.model = model
		}
	}
}

// WithBaseURL sets the API base URL.
func WithBaseURL(url string) Option {
	return func(c *OpenRouter) {
		if url != "" {
			c.baseURL = url
		}
	}
}

// WithTimeout sets the per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *OpenRouter) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *OpenRouter) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithAttempts sets how many times a retryable failure is attempted.
func WithAttempts(n int) Option {
	return func(c *OpenRouter) {
		if n > 0 {
			c.attempts = n
		}
	}
}

// WithBackoff sets the first retry delay; later delays double.
func WithBackoff(d time.Duration) Option {
	return func(c *OpenRouter) {
		if d > 0 {
			c.backoff = d
		}
	}
}

// WithLogger sets the client logger.
func WithLogger(l logger.Logger) Option {
	return func(c *OpenRouter) {
		if l != nil {
			c.log = l
		}
	}
}
