// Package gate is a Go client for the Appla-X Gate payment-processing API.
//
// A Client is an immutable session: construct one with New (or NewFromConfig)
// and share it freely across goroutines. Named services (Orders, Clients,
// Products, Brands, Payments) cover the documented Gateway resources; Raw and
// the verb shorthands reach everything else.
package gate

import (
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/applax-dev/gate-sdk/internal/platform/logging"
	"github.com/applax-dev/gate-sdk/metrics"
)

// Version is the SDK release version, reported in the User-Agent header.
const Version = "1.1.0"

const (
	// instrumentationName is used for the OpenTelemetry tracer.
	instrumentationName = "github.com/applax-dev/gate-sdk"

	// transportMaxIdleConns is the maximum number of idle connections.
	transportMaxIdleConns = 100

	// transportMaxIdleConnsPerHost is the maximum idle connections per host.
	transportMaxIdleConnsPerHost = 10

	// transportIdleConnTimeout is the idle connection timeout.
	transportIdleConnTimeout = 90 * time.Second
)

// Client is a session with the Gate API. It provides:
//   - Retry with exponential backoff for transport-level failures
//   - Optional circuit breaker protection
//   - OpenTelemetry tracing and pluggable metrics
//   - Structured debug logging with masked credentials
//
// All fields are fixed at construction; a Client is safe for concurrent use.
type Client struct {
	cfg     Config
	base    string
	headers http.Header
	http    *http.Client
	logger  *slog.Logger
	metrics metrics.Recorder
	breaker *circuitBreaker

	// backoff is the wait before the first retry; it doubles on every
	// further retry. Overridable in tests.
	backoff time.Duration

	tracer     trace.Tracer
	propagator propagation.TextMapPropagator

	Orders   *OrdersService
	Clients  *ClientsService
	Products *ProductsService
	Brands   *BrandsService
	Payments *PaymentsService
}

// New creates a session authenticated with apiKey. It fails with an
// Authentication error when the key is missing or shorter than 32 characters,
// before any request is made.
func New(apiKey string, opts ...Option) (*Client, error) {
	cfg, err := defaultConfig()
	if err != nil {
		return nil, err
	}

	cfg.APIKey = apiKey

	return NewFromConfig(&cfg, opts...)
}

// NewFromConfig creates a session from an assembled Config, typically one
// built by FromEnv. Options are applied on top of cfg; the Client keeps its
// own copy, so later changes to cfg do not affect the session.
func NewFromConfig(cfg *Config, opts ...Option) (*Client, error) {
	c := &Client{
		cfg:     *cfg,
		metrics: metrics.NewNoop(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if err := c.cfg.Validate(); err != nil {
		return nil, err
	}

	if c.logger == nil {
		c.logger = defaultLogger(c.cfg.Debug)
	}
	c.logger = c.logger.With(slog.String("component", "gate.Client"))

	if c.breaker != nil {
		c.breaker.OnStateChange(func(from, to CircuitState) {
			c.logger.Warn("circuit breaker state changed",
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		})
	}

	if c.http == nil {
		c.http = newHTTPClient(&c.cfg)
	}

	c.base = strings.TrimSuffix(c.cfg.endpointBase(), "/")
	c.backoff = backoffBase
	c.headers = defaultHeaders(&c.cfg)
	c.tracer = otel.Tracer(instrumentationName)
	c.propagator = otel.GetTextMapPropagator()

	c.Orders = &OrdersService{client: c}
	c.Clients = &ClientsService{client: c}
	c.Products = &ProductsService{client: c}
	c.Brands = &BrandsService{client: c}
	c.Payments = &PaymentsService{client: c}

	return c, nil
}

// Config returns a copy of the session configuration.
func (c *Client) Config() Config {
	return c.cfg
}

// defaultLogger builds the fallback logger: redacted JSON to stderr when
// debug is enabled, silent otherwise.
func defaultLogger(debug bool) *slog.Logger {
	if !debug {
		return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
	}

	return logging.NewWithWriter(&logging.Config{
		Level:   "debug",
		Format:  "json",
		Service: "gate-sdk",
		Version: Version,
	}, os.Stderr)
}

// requestLogger resolves the logger for one call. A logger carried by the
// caller's context wins over the session logger, so request and trace IDs
// attached upstream ride along on the call's records.
func (c *Client) requestLogger(ctx context.Context) *slog.Logger {
	if ctxLogger, ok := logging.Lookup(ctx); ok {
		return ctxLogger.With(slog.String("component", "gate.Client"))
	}

	return c.logger
}

// newHTTPClient builds the default transport: pooled connections, a dialer
// bound to the connect timeout and an overall per-request timeout.
func newHTTPClient(cfg *Config) *http.Client {
	dialer := &net.Dialer{Timeout: cfg.ConnectTimeout}

	return &http.Client{
		Timeout: cfg.Timeout,
		Transport: &http.Transport{
			DialContext:         dialer.DialContext,
			MaxIdleConns:        transportMaxIdleConns,
			MaxIdleConnsPerHost: transportMaxIdleConnsPerHost,
			IdleConnTimeout:     transportIdleConnTimeout,
			TLSHandshakeTimeout: cfg.ConnectTimeout,
		},
	}
}

// defaultHeaders builds the fixed header set sent on every request.
func defaultHeaders(cfg *Config) http.Header {
	h := make(http.Header, 4)
	h.Set("Authorization", "Bearer "+cfg.APIKey)
	h.Set("Accept", "application/json")
	h.Set("Content-Type", "application/json; charset=utf-8")
	h.Set("User-Agent", cfg.UserAgent)

	return h
}
