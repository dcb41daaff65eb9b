package gate

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/applax-dev/gate-sdk/apierr"
	"github.com/applax-dev/gate-sdk/internal/platform/logging"
	"github.com/applax-dev/gate-sdk/metrics"
)

// backoffBase is the default wait before the first retry; it doubles on
// every further retry.
const backoffBase = time.Second

// do sends a built request and returns the raw HTTP response. Transport-level
// failures are retried with exponential backoff; any HTTP response, whatever
// the status, ends the attempt loop and is handed to the classifier.
func (c *Client) do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	start := time.Now()

	logger := c.requestLogger(ctx).With(
		slog.String("method", req.Method),
		slog.String("path", req.URL.Path),
	)

	if c.breaker != nil && !c.breaker.Allow() {
		logger.Warn("request blocked by circuit breaker")
		c.record(req.Method, "circuit_open", time.Since(start))
		return nil, apierr.NewNetwork(apierr.NetworkOther, "request blocked", ErrCircuitOpen)
	}

	ctx, span := c.tracer.Start(ctx, fmt.Sprintf("Gate %s %s", req.Method, req.URL.Path),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", req.Method),
			attribute.String("http.url", req.URL.String()),
			attribute.String("peer.service", "gate"),
		),
	)
	defer span.End()

	c.propagator.Inject(ctx, propagation.HeaderCarrier(req.Header))

	if req.GetBody != nil && logger.Enabled(ctx, logging.LevelTrace) {
		if body, err := req.GetBody(); err == nil {
			payload, _ := io.ReadAll(body)
			logging.Trace(ctx, logger, "request payload", slog.String("body", string(payload)))
		}
	}

	resp, err := c.executeWithRetry(ctx, req, logger)
	duration := time.Since(start)

	if err != nil {
		if c.breaker != nil {
			c.breaker.RecordFailure()
		}

		span.SetStatus(codes.Error, err.Error())
		c.record(req.Method, "error", duration)
		logger.Error("request failed",
			slog.Duration("duration", duration),
			slog.Any("error", err),
		)

		return nil, err
	}

	if c.breaker != nil {
		c.breaker.RecordSuccess()
	}

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode >= http.StatusBadRequest {
		span.SetStatus(codes.Error, fmt.Sprintf("HTTP %d", resp.StatusCode))
	}

	c.record(req.Method, strconv.Itoa(resp.StatusCode), duration)
	logger.Debug("response received",
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", duration),
	)

	if logger.Enabled(ctx, logging.LevelTrace) {
		logging.Trace(ctx, logger, "response headers", slog.Any("headers", resp.Header))
	}

	return resp, nil
}

// executeWithRetry performs the request, retrying transport-level failures
// only. Every attempt announces itself with the target URL and sanitized
// headers before sending. Receiving an HTTP response always ends the loop:
// status handling belongs to the classifier, not the retry policy.
func (c *Client) executeWithRetry(ctx context.Context, req *http.Request, logger *slog.Logger) (*http.Response, error) {
	attempts := c.cfg.MaxRetries + 1

	var lastErr *apierr.Error

	for attempt := 1; attempt <= attempts; attempt++ {
		logger.Debug("sending request",
			slog.Int("attempt", attempt),
			slog.String("url", req.URL.String()),
			slog.Any("headers", sanitizeHeaders(req.Header)),
		)

		resp, err := c.http.Do(attemptRequest(ctx, req))
		if err == nil {
			return resp, nil
		}

		lastErr = classifyTransportError(err)

		logger.Debug("attempt failed",
			slog.Int("attempt", attempt),
			slog.String("class", string(lastErr.Network)),
			slog.Any("error", err),
		)

		// A dead caller context means further attempts cannot succeed.
		if !lastErr.Retryable() || ctx.Err() != nil {
			return nil, lastErr
		}

		if attempt == attempts {
			break
		}

		c.metrics.IncCounter(metrics.RetriesTotal, map[string]string{"method": req.Method})

		if err := c.waitForRetry(ctx, attempt, logger); err != nil {
			return nil, err
		}
	}

	return nil, apierr.NewNetwork(lastErr.Network,
		fmt.Sprintf("giving up after %d attempts", attempts),
		fmt.Errorf("%w: %v", ErrRetriesExhausted, lastErr.Err))
}

// waitForRetry sleeps the exponential backoff before the next attempt,
// waking early when the caller's context ends.
func (c *Client) waitForRetry(ctx context.Context, attempt int, logger *slog.Logger) error {
	backoff := c.backoff << (attempt - 1)

	logger.Debug("retrying request",
		slog.Int("next_attempt", attempt+1),
		slog.Duration("backoff", backoff),
	)

	select {
	case <-ctx.Done():
		return classifyTransportError(ctx.Err())
	case <-time.After(backoff):
		return nil
	}
}

// attemptRequest clones req for a fresh attempt, rewinding the body.
// NewRequest seeds GetBody for buffered payloads, so a retry never re-sends
// a drained reader.
func attemptRequest(ctx context.Context, req *http.Request) *http.Request {
	out := req.Clone(ctx)

	if req.GetBody != nil {
		if body, err := req.GetBody(); err == nil {
			out.Body = body
		}
	}

	return out
}

// classifyTransportError maps a transport failure onto the network taxonomy.
// Order matters: TLS problems are never retryable and take precedence, DNS
// failures (including DNS timeouts) classify as dns, and the generic timeout
// check runs before the op-error case so a dial timeout classifies as
// timeout, not connection.
func classifyTransportError(err error) *apierr.Error {
	if isTLSError(err) {
		return apierr.NewNetwork(apierr.NetworkTLS, "TLS handshake failed", err)
	}

	if errors.Is(err, context.Canceled) {
		return apierr.NewNetwork(apierr.NetworkOther, "request canceled", err)
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return apierr.NewNetwork(apierr.NetworkDNS, "DNS resolution failed", err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return apierr.NewNetwork(apierr.NetworkTimeout, "request timed out", err)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return apierr.NewNetwork(apierr.NetworkTimeout, "request timed out", err)
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return apierr.NewNetwork(apierr.NetworkConnection, "connection failed", err)
	}

	return apierr.NewNetwork(apierr.NetworkOther, "transport failed", err)
}

// isTLSError reports certificate and handshake failures. The same handshake
// would fail again, so these are not retryable.
func isTLSError(err error) bool {
	var (
		certErr     *tls.CertificateVerificationError
		recordErr   tls.RecordHeaderError
		unknownAuth x509.UnknownAuthorityError
		invalidCert x509.CertificateInvalidError
		hostnameErr x509.HostnameError
	)

	return errors.As(err, &certErr) ||
		errors.As(err, &recordErr) ||
		errors.As(err, &unknownAuth) ||
		errors.As(err, &invalidCert) ||
		errors.As(err, &hostnameErr)
}

// record reports one finished call to the metrics recorder.
func (c *Client) record(method, status string, duration time.Duration) {
	labels := map[string]string{"method": method, "status": status}
	c.metrics.IncCounter(metrics.RequestsTotal, labels)
	c.metrics.ObserveLatency(metrics.RequestDuration, duration, labels)
}

// sanitizeHeaders returns a copy of h safe for logging, with the
// Authorization value masked.
func sanitizeHeaders(h http.Header) http.Header {
	out := h.Clone()
	if auth := out.Get("Authorization"); auth != "" {
		out.Set("Authorization", maskSecret(auth))
	}

	return out
}

// maskSecret hides all but the last four characters of a credential.
func maskSecret(s string) string {
	const visible = 4

	scheme, token, ok := strings.Cut(s, " ")
	if ok && len(token) > visible {
		return scheme + " ****" + token[len(token)-visible:]
	}

	return "****"
}
