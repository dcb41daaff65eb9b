package gate

import (
	"sync"
	"time"
)

// CircuitState represents the current state of the session circuit breaker.
type CircuitState int

const (
	// CircuitClosed is the normal operating state. Requests are allowed through.
	CircuitClosed CircuitState = iota

	// CircuitOpen is the failing state. Requests fail fast without touching the network.
	CircuitOpen

	// CircuitHalfOpen is the recovery state. A single probe request is allowed through.
	CircuitHalfOpen
)

// String returns a human-readable name for the state.
func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// circuitBreaker protects the Gateway from request storms while it is
// unhealthy. Sessions run without one unless WithCircuitBreaker is set.
//
// State transitions:
//   - closed → open: after maxFailures consecutive transport failures
//   - open → half-open: after timeout has passed
//   - half-open → closed: when the probe request succeeds
//   - half-open → open: when the probe request fails
type circuitBreaker struct {
	mu          sync.RWMutex
	state       CircuitState
	failures    int  // consecutive failures in closed state
	probing     bool // probe request in flight during half-open state
	lastFailure time.Time

	maxFailures int
	timeout     time.Duration

	// onStateChange is called when the state changes. Used for logging.
	onStateChange func(from, to CircuitState)

	// now is a function that returns current time. Overridable for testing.
	now func() time.Time
}

// newCircuitBreaker creates a circuit breaker that opens after maxFailures
// consecutive failures and probes recovery once timeout has passed.
func newCircuitBreaker(maxFailures int, timeout time.Duration) *circuitBreaker {
	return &circuitBreaker{
		state:       CircuitClosed,
		maxFailures: maxFailures,
		timeout:     timeout,
		now:         time.Now,
	}
}

// OnStateChange sets a callback that is invoked when the circuit state changes.
func (cb *circuitBreaker) OnStateChange(fn func(from, to CircuitState)) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.onStateChange = fn
}

// Allow checks if a request should be allowed through.
//
// This method may trigger a transition from open to half-open once the
// timeout has passed; only one probe request is in flight while half-open.
func (cb *circuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitClosed:
		return true

	case CircuitOpen:
		if cb.now().Sub(cb.lastFailure) >= cb.timeout {
			cb.transitionTo(CircuitHalfOpen)
			cb.probing = true
			return true // allow one request through to probe
		}
		return false

	case CircuitHalfOpen:
		if cb.probing {
			return false
		}
		cb.probing = true
		return true

	default:
		return false
	}
}

// RecordSuccess records a successful request. A successful probe closes the
// circuit.
func (cb *circuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitClosed:
		cb.failures = 0

	case CircuitHalfOpen:
		cb.transitionTo(CircuitClosed)
	}
}

// RecordFailure records a failed request. In closed state this may open the
// circuit; a failed probe immediately reopens it.
func (cb *circuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.lastFailure = cb.now()

	switch cb.state {
	case CircuitClosed:
		cb.failures++
		if cb.failures >= cb.maxFailures {
			cb.transitionTo(CircuitOpen)
		}

	case CircuitHalfOpen:
		cb.transitionTo(CircuitOpen)
	}
}

// State returns the current state of the circuit breaker.
func (cb *circuitBreaker) State() CircuitState {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.state
}

// transitionTo changes the circuit breaker state.
// Must be called with lock held.
func (cb *circuitBreaker) transitionTo(newState CircuitState) {
	if cb.state == newState {
		return
	}

	oldState := cb.state
	cb.state = newState
	cb.failures = 0
	cb.probing = false

	if cb.onStateChange != nil {
		// Call in goroutine to avoid blocking while holding lock
		go cb.onStateChange(oldState, newState)
	}
}

// CircuitState reports the state of the session circuit breaker. Sessions
// without one always report CircuitClosed.
func (c *Client) CircuitState() CircuitState {
	if c.breaker == nil {
		return CircuitClosed
	}

	return c.breaker.State()
}
