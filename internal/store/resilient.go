package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/resilience"
)

// ResilienceConfig bounds each lookup attempt and controls retry and
// circuit breaking around the wrapped store.
type ResilienceConfig struct {
	Timeout          time.Duration
	RetryAttempts    int
	RetryDelay       time.Duration
	FailureThreshold int
	ResetTimeout     time.Duration
}

// ResilientStore decorates a Store with per-attempt timeouts, retries and a
// circuit breaker, and records lookup metrics when m is non-nil.
type ResilientStore struct {
	next    Store
	backend string
	cfg     ResilienceConfig
	breaker *resilience.CircuitBreaker
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewResilientStore(next Store, backend string, cfg ResilienceConfig, m *metrics.Metrics) *ResilientStore {
	name := backend + "-store"
	cbCfg := resilience.CircuitBreakerConfig{
		FailureThreshold: cfg.FailureThreshold,
		ResetTimeout:     cfg.ResetTimeout,
	}
	if m != nil {
		m.CircuitBreakerState.WithLabelValues(name).Set(float64(resilience.StateClosed))
		cbCfg.OnStateChange = func(name string, _, to resilience.State) {
			m.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
		}
	}
	return &ResilientStore{
		next:    next,
		backend: backend,
		cfg:     cfg,
		breaker: resilience.NewCircuitBreaker(name, cbCfg),
		metrics: m,
		logger:  logger.WithComponent("resilient-store").With("backend", backend),
	}
}

func (s *ResilientStore) Lookup(ctx context.Context, term string) (map[string]int, error) {
	start := time.Now()
	var postings map[string]int
	err := resilience.Retry(ctx, "lookup "+term, resilience.RetryConfig{
		MaxAttempts:  s.cfg.RetryAttempts,
		InitialDelay: s.cfg.RetryDelay,
		Retryable: func(err error) bool {
			return !errors.Is(err, resilience.ErrCircuitOpen) && !callerGaveUp(ctx, err)
		},
	}, func() error {
		return s.breaker.ExecuteIgnoring(func() error {
			var err error
			postings, err = resilience.CallWithTimeout(ctx, s.cfg.Timeout, "lookup", func(ctx context.Context) (map[string]int, error) {
				return s.next.Lookup(ctx, term)
			})
			return err
		}, func(err error) bool { return callerGaveUp(ctx, err) })
	})
	s.observe(start, err, callerGaveUp(ctx, err))
	if err != nil {
		if errors.Is(err, resilience.ErrCircuitOpen) {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrStoreUnavailable, err)
		}
		if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, apperrors.ErrStoreUnavailable) {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrTimeout, err)
		}
		return nil, err
	}
	return postings, nil
}

func (s *ResilientStore) Close() error {
	return s.next.Close()
}

// State reports the circuit breaker state for health checks.
func (s *ResilientStore) State() resilience.State {
	return s.breaker.GetState()
}

func (s *ResilientStore) observe(start time.Time, err error, cancelled bool) {
	if s.metrics == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
		switch {
		case errors.Is(err, resilience.ErrCircuitOpen):
			status = "rejected"
		case cancelled:
			status = "cancelled"
		}
	}
	s.metrics.StoreLookupsTotal.WithLabelValues(s.backend, status).Inc()
	s.metrics.StoreLookupDuration.WithLabelValues(s.backend).Observe(time.Since(start).Seconds())
}

// callerGaveUp reports failures caused by the caller's own context ending,
// such as a client disconnect or the request timeout. They say nothing about
// the store's health.
func callerGaveUp(ctx context.Context, err error) bool {
	return err != nil && (errors.Is(err, context.Canceled) || ctx.Err() != nil)
}
