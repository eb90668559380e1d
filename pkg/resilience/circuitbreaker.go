// Package resilience provides fault-tolerance primitives: a circuit breaker,
// exponential-backoff retry, and a context-based timeout wrapper.
package resilience

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrCircuitOpen is returned when the circuit breaker refuses a request.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State represents the current phase of a circuit breaker.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

var stateNames = map[State]string{
	StateClosed:   "closed",
	StateOpen:     "open",
	StateHalfOpen: "half-open",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// CircuitBreakerConfig controls failure thresholds and recovery timing.
// Zero values fall back to defaults.
type CircuitBreakerConfig struct {
	FailureThreshold    int
	ResetTimeout        time.Duration
	HalfOpenMaxRequests int
	// OnStateChange, if set, is invoked (outside the lock) whenever the
	// breaker transitions state. Used to export the state as a gauge.
	OnStateChange func(name string, state State)
}

// CircuitBreaker counts consecutive failures and trips open at the
// threshold. Once ResetTimeout has passed it lets a limited number of probe
// requests through; one success closes the circuit again.
type CircuitBreaker struct {
	name   string
	cfg    CircuitBreakerConfig
	logger *slog.Logger

	mu       sync.Mutex
	state    State
	failures int       // consecutive, reset on success
	openedAt time.Time // last transition into StateOpen
	probes   int       // in-flight half-open requests
}

func NewCircuitBreaker(name string, cfg CircuitBreakerConfig) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 30 * time.Second
	}
	if cfg.HalfOpenMaxRequests <= 0 {
		cfg.HalfOpenMaxRequests = 1
	}
	return &CircuitBreaker{
		name:   name,
		cfg:    cfg,
		logger: slog.Default().With("component", "circuit-breaker", "name", name),
	}
}

// Execute runs fn if the circuit allows it, recording the outcome.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if err := cb.allow(); err != nil {
		return err
	}
	err := fn()
	cb.record(err)
	return err
}

// GetState returns the breaker's current state.
func (cb *CircuitBreaker) GetState() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Reset forces the breaker back to closed.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	cb.logger.Info("circuit manually reset")
	notify := cb.transition(StateClosed)
	cb.mu.Unlock()
	notify()
}

// allow decides whether a request may proceed, moving an expired open
// circuit to half-open on the way.
func (cb *CircuitBreaker) allow() error {
	cb.mu.Lock()
	notify := func() {}
	defer func() {
		cb.mu.Unlock()
		notify()
	}()

	switch cb.state {
	case StateOpen:
		remaining := cb.cfg.ResetTimeout - time.Since(cb.openedAt)
		if remaining > 0 {
			return fmt.Errorf("%w: %s (retry after %v)", ErrCircuitOpen, cb.name, remaining)
		}
		cb.logger.Info("circuit transitioning to half-open", "after", cb.cfg.ResetTimeout)
		notify = cb.transition(StateHalfOpen)
		cb.probes++
		return nil
	case StateHalfOpen:
		if cb.probes >= cb.cfg.HalfOpenMaxRequests {
			return fmt.Errorf("%w: %s (half-open probe limit reached)", ErrCircuitOpen, cb.name)
		}
		cb.probes++
		return nil
	default:
		return nil
	}
}

// record applies a request outcome to the breaker state.
func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	notify := func() {}

	if err == nil {
		cb.failures = 0
		if cb.state == StateHalfOpen {
			cb.logger.Info("circuit closed (recovered)")
			notify = cb.transition(StateClosed)
		}
	} else {
		cb.failures++
		switch cb.state {
		case StateHalfOpen:
			cb.logger.Warn("circuit re-opened (half-open probe failed)")
			notify = cb.transition(StateOpen)
		case StateClosed:
			if cb.failures >= cb.cfg.FailureThreshold {
				cb.logger.Warn("circuit opened",
					"consecutive_failures", cb.failures,
					"threshold", cb.cfg.FailureThreshold,
				)
				notify = cb.transition(StateOpen)
			}
		}
	}

	cb.mu.Unlock()
	notify()
}

// transition switches state while the lock is held and returns the callback
// to run after releasing it.
func (cb *CircuitBreaker) transition(to State) func() {
	cb.state = to
	switch to {
	case StateOpen:
		cb.openedAt = time.Now()
	case StateClosed:
		cb.failures = 0
		cb.probes = 0
	case StateHalfOpen:
		cb.probes = 0
	}
	if cb.cfg.OnStateChange == nil {
		return func() {}
	}
	return func() { cb.cfg.OnStateChange(cb.name, to) }
}
