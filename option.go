package gate

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/applax-dev/gate-sdk/metrics"
)

// Option customizes a Client during construction.
type Option func(*Client)

// WithSandbox routes every call to the sandbox Gateway.
func WithSandbox() Option {
	return func(c *Client) {
		c.cfg.Sandbox = true
	}
}

// WithBaseURL overrides the Gateway base URL for both live and sandbox
// sessions. Intended for tests and self-hosted gateways.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.cfg.BaseURL = u
		c.cfg.SandboxBaseURL = u
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.cfg.Timeout = d
	}
}

// WithConnectTimeout sets the connection-establishment timeout.
func WithConnectTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.cfg.ConnectTimeout = d
	}
}

// WithMaxRetries sets how many times a transport-level failure is retried
// after the first attempt. Zero disables retries.
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		c.cfg.MaxRetries = n
	}
}

// WithDebug enables request/response debug logging. Headers are logged with
// the Authorization value masked.
func WithDebug() Option {
	return func(c *Client) {
		c.cfg.Debug = true
	}
}

// WithUserAgent overrides the User-Agent header sent on every request.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.cfg.UserAgent = ua
	}
}

// WithLogger sets the logger used for debug and audit records. Without it the
// client logs to stderr when debug is enabled and stays silent otherwise.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// WithMetrics sets the recorder that observes request counts, durations and
// retries. Defaults to a no-op recorder.
func WithMetrics(r metrics.Recorder) Option {
	return func(c *Client) {
		c.metrics = r
	}
}

// WithHTTPClient replaces the underlying HTTP client. The caller owns the
// client's transport and timeout settings; Timeout and ConnectTimeout from
// the session config are not applied to it.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithCircuitBreaker guards the session with a circuit breaker: after
// maxFailures consecutive transport failures the circuit opens and calls fail
// fast (as retryable network errors) until timeout elapses. Disabled unless
// set.
func WithCircuitBreaker(maxFailures int, timeout time.Duration) Option {
	return func(c *Client) {
		c.breaker = newCircuitBreaker(maxFailures, timeout)
	}
}
