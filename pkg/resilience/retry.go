package resilience

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/logger"
)

const maxRetryDelay = 2 * time.Second

// RetryConfig zero values mean 3 attempts starting at 50ms. The delay
// doubles per attempt with up to 10% jitter, capped at 2s.
type RetryConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
	// Retryable reports whether err is worth another attempt. Nil retries
	// everything except context cancellation and deadlines.
	Retryable func(error) bool
}

// Retry calls fn until it succeeds, returns a non-retryable error, runs out
// of attempts, or ctx ends during backoff.
func Retry(ctx context.Context, name string, cfg RetryConfig, fn func() error) error {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = 50 * time.Millisecond
	}
	if cfg.Retryable == nil {
		cfg.Retryable = notCancelled
	}

	var err error
	delay := cfg.InitialDelay
	for attempt := 1; ; attempt++ {
		if err = fn(); err == nil || !cfg.Retryable(err) {
			return err
		}
		if attempt == cfg.MaxAttempts {
			return fmt.Errorf("%s: %d attempts failed: %w", name, attempt, err)
		}
		wait := jitter(delay)
		logger.FromContext(ctx).Debug("retrying", "operation", name, "attempt", attempt, "wait", wait, "error", err)
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return fmt.Errorf("%s: retry aborted: %w", name, ctx.Err())
		}
		delay = min(2*delay, maxRetryDelay)
	}
}

func jitter(d time.Duration) time.Duration {
	return d + time.Duration(rand.Int64N(int64(d)/10+1))
}

func notCancelled(err error) bool {
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}
