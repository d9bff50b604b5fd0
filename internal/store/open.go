package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/redis"
)

// Open connects the backend named in cfg.Store and wraps it in a
// ResilientStore. Failures are always an *OpenError, never a nil store with
// a nil error.
func Open(ctx context.Context, cfg *config.Config, m *metrics.Metrics) (*ResilientStore, error) {
	backend := cfg.Store.Backend
	var raw Store
	switch backend {
	case config.BackendMemory:
		raw = NewMemoryStore()
	case config.BackendRedis:
		client, err := pkgredis.NewClient(cfg.Redis)
		if err != nil {
			return nil, newOpenError(backend, err)
		}
		raw = NewRedisStore(client)
	case config.BackendPostgres:
		client, err := postgres.New(cfg.Postgres)
		if err != nil {
			return nil, newOpenError(backend, err)
		}
		raw = NewPostgresStore(client.DB, client.Close)
	default:
		return nil, &OpenError{
			Backend: backend,
			Reason:  ReasonConfigMissing,
			Err:     fmt.Errorf("unknown backend %q", backend),
		}
	}
	if err := ctx.Err(); err != nil {
		raw.Close()
		return nil, newOpenError(backend, err)
	}
	slog.Info("posting store opened", "backend", backend)
	return NewResilientStore(raw, backend, ResilienceConfig{
		Timeout:          cfg.Store.LookupTimeout,
		RetryAttempts:    cfg.Store.RetryAttempts,
		FailureThreshold: cfg.Store.FailureThreshold,
		ResetTimeout:     cfg.Store.ResetTimeout,
	}, m), nil
}
