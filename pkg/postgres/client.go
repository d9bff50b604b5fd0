package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/errors"
	"github.com/lib/pq"
)

type Client struct {
	DB  *sql.DB
	cfg config.PostgresConfig
}

func New(cfg config.PostgresConfig) (*Client, error) {
	if cfg.Host == "" || cfg.Database == "" {
		return nil, fmt.Errorf("%w: postgres host and database are required", apperrors.ErrConfigMissing)
	}
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("%w: opening postgres connection: %v", apperrors.ErrMalformedURI, err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		if isAuthError(err) {
			return nil, fmt.Errorf("%w: postgres %s: %v", apperrors.ErrAuthRejected, cfg.Host, err)
		}
		return nil, fmt.Errorf("%w: pinging postgres: %v", apperrors.ErrStoreUnavailable, err)
	}
	return &Client{DB: db, cfg: cfg}, nil
}

func (c *Client) Close() error {
	return c.DB.Close()
}

func (c *Client) Ping(ctx context.Context) error {
	return c.DB.PingContext(ctx)
}

func (c *Client) InTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := c.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rolling back transaction after error %v: %w", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

// isAuthError reports password and role rejections (SQLSTATE class 28).
func isAuthError(err error) bool {
	if pqErr, ok := err.(*pq.Error); ok {
		return strings.HasPrefix(string(pqErr.Code), "28")
	}
	return false
}
