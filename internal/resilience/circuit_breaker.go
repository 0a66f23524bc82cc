// Package resilience provides the per-provider circuit breaker used by the
// provider router.
package resilience

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// ErrCircuitOpen is returned when the circuit breaker is open and not allowing requests.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitState represents the state of a circuit breaker.
type CircuitState int

const (
	// StateClosed means the circuit is operating normally.
	StateClosed CircuitState = iota
	// StateOpen means the circuit has tripped and is rejecting requests.
	StateOpen
	// StateHalfOpen means the circuit is probing whether the backend has recovered.
	StateHalfOpen
)

// String returns the string representation of the circuit state.
func (s CircuitState) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// CircuitBreakerConfig holds the configuration for a circuit breaker.
type CircuitBreakerConfig struct {
	// FailureThreshold is the number of consecutive failures before opening the circuit.
	FailureThreshold int
	// OpenWindow is how long the circuit stays open before the next call is
	// treated as a half-open probe.
	OpenWindow time.Duration
}

// DefaultCircuitBreakerConfig returns a configuration with sensible defaults.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		FailureThreshold: 3,
		OpenWindow:       30 * time.Second,
	}
}

// CircuitBreakerStats holds statistics about the circuit breaker.
type CircuitBreakerStats struct {
	State          CircuitState
	Failures       int
	OpenUntil      time.Time
	TotalSuccesses int64
	TotalFailures  int64
}

// CircuitBreaker implements the per-provider state machine from spec.md §3
// and §4.8: failures count, open_until timestamp-or-null, and a single
// successful probe closing the circuit from half-open.
type CircuitBreaker struct {
	mu sync.RWMutex

	config CircuitBreakerConfig

	state     CircuitState
	failures  int
	openUntil time.Time

	totalSuccesses int64
	totalFailures  int64
}

// NewCircuitBreaker creates a new circuit breaker with the given configuration.
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	return &CircuitBreaker{
		config: config,
		state:  StateClosed,
	}
}

// State returns the current state of the circuit breaker, lazily
// transitioning open to half-open once the open window has elapsed.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.stateLocked()
}

func (cb *CircuitBreaker) stateLocked() CircuitState {
	if cb.state == StateOpen && !time.Now().Before(cb.openUntil) {
		return StateHalfOpen
	}
	return cb.state
}

// Allow reports whether a request should be allowed through right now. A
// call in the half-open window counts as the probe attempt.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.stateLocked() {
	case StateClosed, StateHalfOpen:
		return true
	default:
		return false
	}
}

// RecordSuccess records a successful call. Per spec.md §8, one successful
// call resets failures to 0 and (if the circuit was open/half-open) closes it.
func (cb *CircuitBreaker) RecordSuccess() {
	atomic.AddInt64(&cb.totalSuccesses, 1)

	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures = 0
	cb.state = StateClosed
	cb.openUntil = time.Time{}
}

// RecordFailure records a failed call, incrementing failures and opening
// the circuit (or re-opening it, if this failure was the half-open probe)
// once failures reach the threshold.
func (cb *CircuitBreaker) RecordFailure() {
	atomic.AddInt64(&cb.totalFailures, 1)

	cb.mu.Lock()
	defer cb.mu.Unlock()

	wasHalfOpen := cb.stateLocked() == StateHalfOpen
	cb.failures++

	if wasHalfOpen || cb.failures >= cb.config.FailureThreshold {
		cb.state = StateOpen
		cb.openUntil = time.Now().Add(cb.config.OpenWindow)
	}
}

// Stats returns the current statistics.
func (cb *CircuitBreaker) Stats() CircuitBreakerStats {
	cb.mu.RLock()
	defer cb.mu.RUnlock()

	return CircuitBreakerStats{
		State:          cb.stateLocked(),
		Failures:       cb.failures,
		OpenUntil:      cb.openUntil,
		TotalSuccesses: atomic.LoadInt64(&cb.totalSuccesses),
		TotalFailures:  atomic.LoadInt64(&cb.totalFailures),
	}
}

// Reset resets the circuit breaker to closed state.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.state = StateClosed
	cb.failures = 0
	cb.openUntil = time.Time{}
}

// Execute runs fn if the circuit breaker allows it, recording the outcome.
func Execute[T any](cb *CircuitBreaker, fn func() (T, error)) (T, error) {
	var zero T

	if !cb.Allow() {
		return zero, ErrCircuitOpen
	}

	result, err := fn()
	if err != nil {
		cb.RecordFailure()
		return result, err
	}

	cb.RecordSuccess()
	return result, nil
}
