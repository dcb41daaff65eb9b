// Package apierr defines the error taxonomy for the Gate SDK.
// Every failure the SDK surfaces is exactly one *Error carrying the HTTP
// status and decoded response body (when available) plus kind-specific
// detail, so callers can implement their own retry and messaging policy.
// Errors are infrastructure-facing, not business-facing: the SDK never
// interprets payment state, it only classifies transport outcomes.
package apierr

import (
	"errors"
	"fmt"
	"time"
)

// Kind discriminates the failure classes the Gateway client produces.
// The set is closed: classification in the SDK core maps every outcome to
// exactly one kind.
type Kind string

const (
	// KindValidation indicates rejected input, either locally (bad method,
	// empty endpoint, missing required fields) or a Gateway 400.
	KindValidation Kind = "validation"

	// KindAuthentication indicates a missing, malformed, or refused
	// credential (Gateway 401/403, or an unusable API key at construction).
	KindAuthentication Kind = "authentication"

	// KindNotFound indicates the requested resource does not exist (404).
	KindNotFound Kind = "not_found"

	// KindRateLimit indicates the Gateway throttled the request (429).
	KindRateLimit Kind = "rate_limit"

	// KindServer indicates a Gateway-side failure (500/502/503/504).
	KindServer Kind = "server_error"

	// KindNetwork indicates the transport failed before any HTTP response
	// was obtained (connect refused, timeout, DNS, TLS).
	KindNetwork Kind = "network"

	// KindGeneric covers undecodable bodies and unmapped status codes.
	KindGeneric Kind = "generic"
)

// Sentinel errors for use with errors.Is().
var (
	ErrValidation     = errors.New("validation failed")
	ErrAuthentication = errors.New("authentication failed")
	ErrNotFound       = errors.New("resource not found")
	ErrRateLimit      = errors.New("rate limit exceeded")
	ErrServer         = errors.New("server error")
	ErrNetwork        = errors.New("network failure")
	ErrGeneric        = errors.New("gateway error")
)

// NetworkClass refines KindNetwork for retry hints.
type NetworkClass string

const (
	NetworkTimeout    NetworkClass = "timeout"
	NetworkConnection NetworkClass = "connection"
	NetworkDNS        NetworkClass = "dns"
	NetworkTLS        NetworkClass = "tls"
	NetworkOther      NetworkClass = "other"
)

// Suggested retry delays, in seconds, by failure detail.
const (
	delayServerDefault = 15
	delayServer503     = 60
	delayServer504     = 30

	delayNetTimeout    = 5
	delayNetConnection = 10
	delayNetDNS        = 30
	delayNetOther      = 5

	delayRateLimitFallback = 60
)

// RateLimitInfo holds throttling detail parsed from 429 response headers.
// Fields the Gateway did not send stay at their zero value; Limit and
// Remaining are pointers because zero is a meaningful remaining count.
type RateLimitInfo struct {
	// RetryAfter is the Retry-After header value in seconds (0 = absent).
	RetryAfter int

	// Limit is the request quota for the current window, if reported.
	Limit *int

	// Remaining is the quota left in the current window, if reported.
	Remaining *int

	// ResetAt is the unix time the window resets, if reported (0 = absent).
	ResetAt int64
}

// Error is the single error type surfaced by the SDK.
// Kind-specific fields are populated only for the matching kind and stay
// zero otherwise.
type Error struct {
	Kind       Kind
	HTTPStatus int            // 0 when no HTTP response was obtained
	Message    string         // server-provided message, or a fixed fallback
	Body       map[string]any // decoded response body, nil when undecodable

	// RateLimit carries throttling detail; non-nil only for KindRateLimit.
	RateLimit *RateLimitInfo

	// ResourceType and ResourceID annotate KindNotFound; set by named
	// operations that know what they asked for.
	ResourceType string
	ResourceID   string

	// Network refines KindNetwork; Err wraps the transport error.
	Network NetworkClass
	Err     error
}

// New builds an error of the given kind from a classified HTTP response.
func New(kind Kind, status int, message string, body map[string]any) *Error {
	return &Error{Kind: kind, HTTPStatus: status, Message: message, Body: body}
}

// NewNetwork builds a transport-failure error. No HTTP response exists, so
// there is no status or body.
func NewNetwork(class NetworkClass, message string, err error) *Error {
	return &Error{Kind: KindNetwork, Message: message, Network: class, Err: err}
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.HTTPStatus > 0:
		return fmt.Sprintf("gate: %s: %s (HTTP %d)", e.Kind, e.Message, e.HTTPStatus)
	case e.Err != nil:
		return fmt.Sprintf("gate: %s: %s: %v", e.Kind, e.Message, e.Err)
	default:
		return fmt.Sprintf("gate: %s: %s", e.Kind, e.Message)
	}
}

// Unwrap exposes the kind sentinel (and the transport cause, when present)
// for errors.Is chains.
func (e *Error) Unwrap() []error {
	s := sentinel(e.Kind)
	if e.Err != nil {
		return []error{s, e.Err}
	}
	return []error{s}
}

// Retryable reports whether retrying the operation may succeed.
// HTTP statuses are never retried by the SDK itself; this is advisory for
// the caller.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindServer, KindRateLimit:
		return true
	case KindNetwork:
		return e.Network != NetworkTLS
	default:
		return false
	}
}

// RetryDelay returns the suggested wait before retrying, or zero when
// retrying is pointless. For rate limits the precedence is: Retry-After
// header, then the reset timestamp (clamped to at least one second), then a
// fixed fallback.
func (e *Error) RetryDelay() time.Duration {
	switch e.Kind {
	case KindServer:
		return serverDelay(e.HTTPStatus)
	case KindNetwork:
		return networkDelay(e.Network)
	case KindRateLimit:
		return e.rateLimitDelay(time.Now())
	default:
		return 0
	}
}

func serverDelay(status int) time.Duration {
	switch status {
	case 503:
		return delayServer503 * time.Second
	case 504:
		return delayServer504 * time.Second
	default: // 500, 502
		return delayServerDefault * time.Second
	}
}

func networkDelay(class NetworkClass) time.Duration {
	switch class {
	case NetworkTimeout:
		return delayNetTimeout * time.Second
	case NetworkConnection:
		return delayNetConnection * time.Second
	case NetworkDNS:
		return delayNetDNS * time.Second
	case NetworkTLS:
		return 0
	default:
		return delayNetOther * time.Second
	}
}

func (e *Error) rateLimitDelay(now time.Time) time.Duration {
	if e.RateLimit != nil {
		if e.RateLimit.RetryAfter > 0 {
			return time.Duration(e.RateLimit.RetryAfter) * time.Second
		}
		if e.RateLimit.ResetAt > 0 {
			d := time.Unix(e.RateLimit.ResetAt, 0).Sub(now)
			if d < time.Second {
				d = time.Second
			}
			return d
		}
	}
	return delayRateLimitFallback * time.Second
}

func sentinel(kind Kind) error {
	switch kind {
	case KindValidation:
		return ErrValidation
	case KindAuthentication:
		return ErrAuthentication
	case KindNotFound:
		return ErrNotFound
	case KindRateLimit:
		return ErrRateLimit
	case KindServer:
		return ErrServer
	case KindNetwork:
		return ErrNetwork
	default:
		return ErrGeneric
	}
}

// AnnotateNotFound attaches the resource type and id to a not-found error,
// when err is one. Named operations call this so callers see what was
// missing without re-parsing the request. Any other error is returned
// untouched.
func AnnotateNotFound(err error, resourceType, resourceID string) error {
	var e *Error
	if errors.As(err, &e) && e.Kind == KindNotFound {
		e.ResourceType = resourceType
		e.ResourceID = resourceID
	}
	return err
}

// IsValidation checks if an error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsAuthentication checks if an error is an authentication error.
func IsAuthentication(err error) bool {
	return errors.Is(err, ErrAuthentication)
}

// IsNotFound checks if an error is a not-found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsRateLimit checks if an error is a rate-limit error.
func IsRateLimit(err error) bool {
	return errors.Is(err, ErrRateLimit)
}

// IsServer checks if an error is a Gateway-side server error.
func IsServer(err error) bool {
	return errors.Is(err, ErrServer)
}

// IsNetwork checks if an error is a transport-level failure.
func IsNetwork(err error) bool {
	return errors.Is(err, ErrNetwork)
}

// IsGeneric checks if an error is an unclassified Gateway error.
func IsGeneric(err error) bool {
	return errors.Is(err, ErrGeneric)
}

// IsRetryable reports whether err is an SDK error whose Retryable hint is
// set. Non-SDK errors report false.
func IsRetryable(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Retryable()
}
