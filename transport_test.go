package gate

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/applax-dev/gate-sdk/apierr"
	"github.com/applax-dev/gate-sdk/internal/platform/logging"
	"github.com/applax-dev/gate-sdk/metrics"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

// transportClient builds a client over a fake transport with a millisecond
// backoff so retry tests run fast.
func transportClient(t *testing.T, maxRetries int, rt http.RoundTripper, opts ...Option) *Client {
	t.Helper()

	opts = append(opts, WithMaxRetries(maxRetries), WithHTTPClient(&http.Client{Transport: rt}))

	c := testClient(t, opts...)
	c.backoff = time.Millisecond

	return c
}

type captureRecorder struct {
	mu       sync.Mutex
	counters map[string]int
}

func newCaptureRecorder() *captureRecorder {
	return &captureRecorder{counters: make(map[string]int)}
}

func (r *captureRecorder) IncCounter(name string, labels map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counters[name+":"+labels["status"]]++
}

func (r *captureRecorder) ObserveLatency(string, time.Duration, map[string]string) {}

func (r *captureRecorder) count(name, status string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counters[name+":"+status]
}

type timeoutError struct{}

func (timeoutError) Error() string   { return "deadline exceeded" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

func connRefused() error {
	return &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
}

func TestDo_RetriesTransportFailures(t *testing.T) {
	var calls int32

	rt := roundTripFunc(func(*http.Request) (*http.Response, error) {
		if atomic.AddInt32(&calls, 1) <= 2 {
			return nil, connRefused()
		}
		return jsonResponse(http.StatusOK, `{"id": "ord-1"}`), nil
	})

	rec := newCaptureRecorder()
	c := transportClient(t, 3, rt, WithMetrics(rec))

	obj, err := c.Get(context.Background(), "/orders/", nil)

	require.NoError(t, err)
	assert.Equal(t, "ord-1", obj.ID())
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.Equal(t, 2, rec.count(metrics.RetriesTotal, ""))
	assert.Equal(t, 1, rec.count(metrics.RequestsTotal, "200"))
}

func TestDo_HTTPResponseEndsRetryLoop(t *testing.T) {
	var calls int32

	rt := roundTripFunc(func(*http.Request) (*http.Response, error) {
		atomic.AddInt32(&calls, 1)
		return jsonResponse(http.StatusServiceUnavailable, `{"message": "upstream down"}`), nil
	})

	c := transportClient(t, 3, rt)

	_, err := c.Get(context.Background(), "/orders/", nil)

	require.Error(t, err)
	// A received response is never retried, whatever its status.
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.True(t, apierr.IsServer(err))

	var apiErr *apierr.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.HTTPStatus)
	assert.Equal(t, "upstream down", apiErr.Message)
	assert.Equal(t, time.Minute, apiErr.RetryDelay())
}

func TestDo_RetriesExhausted(t *testing.T) {
	var calls int32

	rt := roundTripFunc(func(*http.Request) (*http.Response, error) {
		atomic.AddInt32(&calls, 1)
		return nil, connRefused()
	})

	rec := newCaptureRecorder()
	c := transportClient(t, 2, rt, WithMetrics(rec))

	_, err := c.Get(context.Background(), "/orders/", nil)

	require.Error(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.True(t, apierr.IsNetwork(err))
	assert.ErrorIs(t, err, ErrRetriesExhausted)
	assert.Contains(t, err.Error(), "giving up after 3 attempts")

	var apiErr *apierr.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, apierr.NetworkConnection, apiErr.Network)
	assert.Equal(t, 10*time.Second, apiErr.RetryDelay())

	assert.Equal(t, 2, rec.count(metrics.RetriesTotal, ""))
	assert.Equal(t, 1, rec.count(metrics.RequestsTotal, "error"))
}

func TestDo_NoRetriesWhenDisabled(t *testing.T) {
	var calls int32

	rt := roundTripFunc(func(*http.Request) (*http.Response, error) {
		atomic.AddInt32(&calls, 1)
		return nil, connRefused()
	})

	c := transportClient(t, 0, rt)

	_, err := c.Get(context.Background(), "/orders/", nil)

	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.ErrorIs(t, err, ErrRetriesExhausted)
}

func TestDo_BackoffBetweenAttempts(t *testing.T) {
	var calls int32

	rt := roundTripFunc(func(*http.Request) (*http.Response, error) {
		atomic.AddInt32(&calls, 1)
		return nil, connRefused()
	})

	c := transportClient(t, 1, rt)
	c.backoff = 100 * time.Millisecond

	start := time.Now()
	_, err := c.Get(context.Background(), "/orders/", nil)
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.GreaterOrEqual(t, elapsed, 100*time.Millisecond)
}

func TestDo_NoBackoffAfterFinalAttempt(t *testing.T) {
	rt := roundTripFunc(func(*http.Request) (*http.Response, error) {
		return nil, connRefused()
	})

	c := transportClient(t, 0, rt)
	c.backoff = 5 * time.Second

	start := time.Now()
	_, err := c.Get(context.Background(), "/orders/", nil)
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.Less(t, elapsed, time.Second)
}

func TestDo_TLSErrorsNotRetried(t *testing.T) {
	var calls int32

	rt := roundTripFunc(func(*http.Request) (*http.Response, error) {
		atomic.AddInt32(&calls, 1)
		return nil, x509.UnknownAuthorityError{}
	})

	c := transportClient(t, 3, rt)

	_, err := c.Get(context.Background(), "/orders/", nil)

	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.True(t, apierr.IsNetwork(err))

	var apiErr *apierr.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, apierr.NetworkTLS, apiErr.Network)
	assert.False(t, apiErr.Retryable())
}

func TestDo_ClassifiesTimeout(t *testing.T) {
	rt := roundTripFunc(func(*http.Request) (*http.Response, error) {
		return nil, timeoutError{}
	})

	c := transportClient(t, 0, rt)

	_, err := c.Get(context.Background(), "/orders/", nil)

	require.Error(t, err)

	var apiErr *apierr.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, apierr.NetworkTimeout, apiErr.Network)
	assert.Equal(t, 5*time.Second, apiErr.RetryDelay())
}

func TestDo_ClassifiesDNS(t *testing.T) {
	rt := roundTripFunc(func(*http.Request) (*http.Response, error) {
		return nil, &net.DNSError{Err: "no such host", Name: "nowhere.invalid", IsNotFound: true}
	})

	c := transportClient(t, 0, rt)

	_, err := c.Get(context.Background(), "/orders/", nil)

	require.Error(t, err)

	var apiErr *apierr.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, apierr.NetworkDNS, apiErr.Network)
	assert.Equal(t, 30*time.Second, apiErr.RetryDelay())
}

func TestDo_CallerCancelStopsRetries(t *testing.T) {
	var calls int32

	ctx, cancel := context.WithCancel(context.Background())

	rt := roundTripFunc(func(*http.Request) (*http.Response, error) {
		atomic.AddInt32(&calls, 1)
		cancel()
		return nil, &net.OpError{Op: "read", Net: "tcp", Err: errors.New("connection reset")}
	})

	c := transportClient(t, 3, rt)

	_, err := c.Get(ctx, "/orders/", nil)

	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	var apiErr *apierr.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, apierr.NetworkConnection, apiErr.Network)
	assert.False(t, errors.Is(err, ErrRetriesExhausted))
}

func TestDo_BackoffWakesOnCancel(t *testing.T) {
	var calls int32

	ctx, cancel := context.WithCancel(context.Background())

	rt := roundTripFunc(func(*http.Request) (*http.Response, error) {
		atomic.AddInt32(&calls, 1)
		return nil, connRefused()
	})

	c := transportClient(t, 3, rt)
	c.backoff = 500 * time.Millisecond

	timer := time.AfterFunc(50*time.Millisecond, cancel)
	defer timer.Stop()

	start := time.Now()
	_, err := c.Get(ctx, "/orders/", nil)
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, elapsed, 400*time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestDo_CircuitBreakerFailFast(t *testing.T) {
	var calls int32

	rt := roundTripFunc(func(*http.Request) (*http.Response, error) {
		atomic.AddInt32(&calls, 1)
		return nil, connRefused()
	})

	c := transportClient(t, 0, rt, WithCircuitBreaker(1, time.Minute))

	_, err := c.Get(context.Background(), "/orders/", nil)
	require.Error(t, err)
	assert.Equal(t, CircuitOpen, c.CircuitState())

	_, err = c.Get(context.Background(), "/orders/", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCircuitOpen)

	// The blocked request never reached the transport.
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestDo_CircuitBreakerRecovers(t *testing.T) {
	var failing atomic.Bool
	failing.Store(true)

	rt := roundTripFunc(func(*http.Request) (*http.Response, error) {
		if failing.Load() {
			return nil, connRefused()
		}
		return jsonResponse(http.StatusOK, `{"id": "ord-1"}`), nil
	})

	c := transportClient(t, 0, rt, WithCircuitBreaker(1, 50*time.Millisecond))

	_, err := c.Get(context.Background(), "/orders/", nil)
	require.Error(t, err)
	assert.Equal(t, CircuitOpen, c.CircuitState())

	failing.Store(false)

	_, err = c.Get(context.Background(), "/orders/", nil)
	assert.ErrorIs(t, err, ErrCircuitOpen)

	time.Sleep(60 * time.Millisecond)

	obj, err := c.Get(context.Background(), "/orders/", nil)
	require.NoError(t, err)
	assert.Equal(t, "ord-1", obj.ID())
	assert.Equal(t, CircuitClosed, c.CircuitState())
}

func TestClassifyTransportError(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		class apierr.NetworkClass
	}{
		{"tls record header", tls.RecordHeaderError{Msg: "handshake failure"}, apierr.NetworkTLS},
		{"unknown authority", x509.UnknownAuthorityError{}, apierr.NetworkTLS},
		{"canceled", context.Canceled, apierr.NetworkOther},
		{"dns", &net.DNSError{Err: "no such host", Name: "nowhere.invalid"}, apierr.NetworkDNS},
		{"dns timeout", &net.DNSError{Err: "i/o timeout", Name: "nowhere.invalid", IsTimeout: true}, apierr.NetworkDNS},
		{"timeout", timeoutError{}, apierr.NetworkTimeout},
		{"deadline exceeded", context.DeadlineExceeded, apierr.NetworkTimeout},
		{"op error", connRefused(), apierr.NetworkConnection},
		{"other", errors.New("boom"), apierr.NetworkOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			apiErr := classifyTransportError(tt.err)

			assert.Equal(t, tt.class, apiErr.Network)
			assert.ErrorIs(t, apiErr, tt.err)
		})
	}
}

func TestDo_DebugLogMasksCredentials(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	rt := roundTripFunc(func(*http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `{"id": "ord-1"}`), nil
	})

	c := transportClient(t, 0, rt, WithLogger(logger))

	_, err := c.Get(context.Background(), "/orders/", nil)
	require.NoError(t, err)

	logs := buf.String()
	assert.Contains(t, logs, "****stuv")
	assert.NotContains(t, logs, testAPIKey)
}

func TestDo_LogsEachAttempt(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	var calls int32
	rt := roundTripFunc(func(*http.Request) (*http.Response, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			return nil, connRefused()
		}
		return jsonResponse(http.StatusOK, `{"id": "ord-1"}`), nil
	})

	c := transportClient(t, 1, rt, WithLogger(logger))

	_, err := c.Get(context.Background(), "/orders/", nil)
	require.NoError(t, err)

	// One pre-call record per attempt, each naming its attempt number.
	logs := buf.String()
	assert.Equal(t, 2, strings.Count(logs, `"msg":"sending request"`))
	assert.Contains(t, logs, `"attempt":1`)
	assert.Contains(t, logs, `"attempt":2`)
}

func TestDo_PrefersContextLogger(t *testing.T) {
	var buf bytes.Buffer
	ctxLogger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	rt := roundTripFunc(func(*http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `{"id": "ord-1"}`), nil
	})

	c := transportClient(t, 0, rt)

	ctx := logging.WithContext(context.Background(), ctxLogger)
	ctx = logging.WithRequestID(ctx, "req-42")

	_, err := c.Get(ctx, "/orders/", nil)
	require.NoError(t, err)

	// The caller's logger receives the call records, tagged with the
	// component and the request ID, credentials still masked.
	logs := buf.String()
	assert.Contains(t, logs, `"msg":"sending request"`)
	assert.Contains(t, logs, `"request_id":"req-42"`)
	assert.Contains(t, logs, `"component":"gate.Client"`)
	assert.Contains(t, logs, "****stuv")
	assert.NotContains(t, logs, testAPIKey)
}

func TestSanitizeHeaders(t *testing.T) {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+testAPIKey)
	h.Set("Accept", "application/json")

	out := sanitizeHeaders(h)

	assert.Equal(t, "Bearer ****stuv", out.Get("Authorization"))
	assert.Equal(t, "application/json", out.Get("Accept"))

	// The original header set is untouched.
	assert.Equal(t, "Bearer "+testAPIKey, h.Get("Authorization"))
}

func TestMaskSecret(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		expected string
	}{
		{"bearer token", "Bearer " + testAPIKey, "Bearer ****stuv"},
		{"no scheme", "raw-secret-value", "****"},
		{"short token", "Bearer abc", "****"},
		{"empty", "", "****"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, maskSecret(tt.in))
		})
	}
}
