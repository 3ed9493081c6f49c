package resilience

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned when the breaker rejects a request
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State represents circuit breaker state
type State int

const (
	// StateClosed allows all requests
	StateClosed State = iota
	// StateOpen rejects all requests until the cooldown elapses
	StateOpen
	// StateHalfOpen admits probe requests to test recovery
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreaker guards an upstream dependency. Consecutive failures trip
// it open; once the cooldown elapses, probe requests decide whether it
// closes again. Every state change starts a new generation, and results
// from requests admitted under an older generation are discarded, so a
// slow in-flight call can never poison the state that replaced it.
type CircuitBreaker struct {
	name             string
	failureThreshold int
	successThreshold int
	timeout          time.Duration
	onStateChange    func(from, to State)

	mu         sync.Mutex
	state      State
	generation uint64
	failures   int // consecutive failures in the current generation
	successes  int // probe successes while half-open
	openedAt   time.Time
}

// CircuitBreakerConfig holds circuit breaker configuration
type CircuitBreakerConfig struct {
	Name             string
	FailureThreshold int           // Consecutive failures before opening
	SuccessThreshold int           // Probe successes in half-open before closing
	Timeout          time.Duration // Cooldown before an open breaker admits probes
	OnStateChange    func(from, to State)
}

// NewCircuitBreaker creates a new circuit breaker
func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = 2
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}

	return &CircuitBreaker{
		name:             cfg.Name,
		failureThreshold: cfg.FailureThreshold,
		successThreshold: cfg.SuccessThreshold,
		timeout:          cfg.Timeout,
		state:            StateClosed,
		onStateChange:    cfg.OnStateChange,
	}
}

// Execute runs fn if the breaker admits the request and feeds the outcome
// back into the breaker state.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	gen, err := cb.acquire()
	if err != nil {
		return err
	}

	err = fn(ctx)
	cb.record(gen, err)
	return err
}

// ExecuteWithResult is Execute for callables that return a value. It is a
// free function because Go methods cannot introduce type parameters.
func ExecuteWithResult[T any](cb *CircuitBreaker, ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	gen, err := cb.acquire()
	if err != nil {
		var zero T
		return zero, err
	}

	res, err := fn(ctx)
	cb.record(gen, err)
	return res, err
}

// acquire admits or rejects a request and returns the generation the
// caller's result must be recorded against.
func (cb *CircuitBreaker) acquire() (uint64, error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen {
		if time.Since(cb.openedAt) <= cb.timeout {
			return 0, ErrCircuitOpen
		}
		// Cooldown elapsed, admit probes
		cb.transition(StateHalfOpen)
	}

	return cb.generation, nil
}

// record feeds a request outcome back into the breaker.
func (cb *CircuitBreaker) record(gen uint64, err error) {
	// Cancellation says nothing about upstream health
	if err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		return
	}

	cb.mu.Lock()
	defer cb.mu.Unlock()

	// The breaker changed state while this request was in flight
	if gen != cb.generation {
		return
	}

	if err != nil {
		cb.failures++
		cb.successes = 0

		switch cb.state {
		case StateClosed:
			if cb.failures >= cb.failureThreshold {
				cb.trip()
			}
		case StateHalfOpen:
			// A failed probe sends the breaker straight back to open
			cb.trip()
		}
		return
	}

	cb.failures = 0
	if cb.state == StateHalfOpen {
		cb.successes++
		if cb.successes >= cb.successThreshold {
			cb.transition(StateClosed)
		}
	}
}

// trip opens the breaker and starts the cooldown clock.
// Caller must hold mu.
func (cb *CircuitBreaker) trip() {
	cb.transition(StateOpen)
	cb.openedAt = time.Now()
}

// transition moves to a new state and starts a new generation, which
// invalidates results from requests still in flight.
// Caller must hold mu.
func (cb *CircuitBreaker) transition(to State) {
	if cb.state == to {
		return
	}

	from := cb.state
	cb.state = to
	cb.generation++
	cb.failures = 0
	cb.successes = 0

	if cb.onStateChange != nil {
		cb.onStateChange(from, to)
	}
}

// State returns current state
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// StateInt returns current state as int (for metrics)
func (cb *CircuitBreaker) StateInt() int64 {
	return int64(cb.State())
}

// Name returns circuit breaker name
func (cb *CircuitBreaker) Name() string {
	return cb.name
}

// CircuitBreakerSnapshot is a point-in-time view of breaker counters.
type CircuitBreakerSnapshot struct {
	State               State
	ConsecutiveFailures int
	ProbeSuccesses      int
}

// Snapshot returns the breaker's current state and counters.
func (cb *CircuitBreaker) Snapshot() CircuitBreakerSnapshot {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	return CircuitBreakerSnapshot{
		State:               cb.state,
		ConsecutiveFailures: cb.failures,
		ProbeSuccesses:      cb.successes,
	}
}

// Reset forces the breaker closed and clears its counters
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.transition(StateClosed)
	cb.failures = 0
	cb.successes = 0
}

// ForceOpen manually trips the breaker, restarting the cooldown
func (cb *CircuitBreaker) ForceOpen() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.trip()
}
