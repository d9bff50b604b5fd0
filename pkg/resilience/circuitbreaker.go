// Package resilience guards posting store calls: a circuit breaker, capped
// exponential retry and a per-call timeout.
package resilience

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/logger"
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

type State int

const (
	StateClosed State = iota
	StateOpen
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
	}
	return "unknown"
}

// CircuitBreakerConfig zero values default to 5 failures and a 30s cool-down.
// OnStateChange runs with the breaker lock held and must not call back into
// the breaker.
type CircuitBreakerConfig struct {
	FailureThreshold int
	ResetTimeout     time.Duration
	OnStateChange    func(name string, from, to State)
}

// CircuitBreaker opens after FailureThreshold consecutive failures. Once
// ResetTimeout has passed it admits a single trial call: success closes the
// circuit, failure reopens it.
type CircuitBreaker struct {
	name   string
	cfg    CircuitBreakerConfig
	logger *slog.Logger

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	trialing bool
}

func NewCircuitBreaker(name string, cfg CircuitBreakerConfig) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 30 * time.Second
	}
	return &CircuitBreaker{
		name:   name,
		cfg:    cfg,
		logger: logger.WithComponent("circuit-breaker").With("name", name),
	}
}

func (cb *CircuitBreaker) Execute(fn func() error) error {
	return cb.ExecuteIgnoring(fn, nil)
}

// ExecuteIgnoring is Execute where errors matching ignore say nothing about
// the dependency's health: they neither count as failures nor as successes,
// and a half-open trial call that ends with one leaves the circuit half-open for
// the next caller. A nil ignore counts every error.
func (cb *CircuitBreaker) ExecuteIgnoring(fn func() error, ignore func(error) bool) error {
	trial, err := cb.admit()
	if err != nil {
		return err
	}
	err = fn()
	cb.record(trial, err, err != nil && ignore != nil && ignore(err))
	return err
}

func (cb *CircuitBreaker) GetState() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// admit reports whether the call is the half-open trial.
func (cb *CircuitBreaker) admit() (bool, error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	switch cb.state {
	case StateOpen:
		wait := cb.cfg.ResetTimeout - time.Since(cb.openedAt)
		if wait > 0 {
			return false, fmt.Errorf("%w: %s (retry after %v)", ErrCircuitOpen, cb.name, wait)
		}
		cb.transition(StateHalfOpen)
		cb.logger.Info("circuit half-open, admitting a trial call")
		fallthrough
	case StateHalfOpen:
		if cb.trialing {
			return false, fmt.Errorf("%w: %s (trial call in flight)", ErrCircuitOpen, cb.name)
		}
		cb.trialing = true
		return true, nil
	}
	return false, nil
}

func (cb *CircuitBreaker) record(trial bool, err error, ignored bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if trial {
		cb.trialing = false
	}
	switch {
	case ignored:
	case err == nil:
		cb.failures = 0
		if trial {
			cb.transition(StateClosed)
			cb.logger.Info("circuit closed (recovered)")
		}
	default:
		cb.failures++
		if trial || cb.failures >= cb.cfg.FailureThreshold {
			if cb.state != StateOpen {
				cb.logger.Warn("circuit opened", "consecutive_failures", cb.failures, "trial", trial)
			}
			cb.openedAt = time.Now()
			cb.transition(StateOpen)
		}
	}
}

func (cb *CircuitBreaker) transition(to State) {
	from := cb.state
	cb.state = to
	if from != to && cb.cfg.OnStateChange != nil {
		cb.cfg.OnStateChange(cb.name, from, to)
	}
}
