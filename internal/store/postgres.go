package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/postgres"
)

const schema = `CREATE TABLE IF NOT EXISTS term_counts (
	term  TEXT    NOT NULL,
	url   TEXT    NOT NULL,
	count INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (term, url)
)`

const lookupQuery = `SELECT url, count FROM term_counts WHERE term = $1`

// PostgresStore reads postings from the term_counts table.
type PostgresStore struct {
	db     *sql.DB
	closer func() error
}

// NewPostgresStore uses db for lookups and calls closer on Close.
func NewPostgresStore(db *sql.DB, closer func() error) *PostgresStore {
	return &PostgresStore{db: db, closer: closer}
}

func (s *PostgresStore) Lookup(ctx context.Context, term string) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, lookupQuery, term)
	if err != nil {
		return nil, unavailable("postgres", term, err)
	}
	defer rows.Close()
	result := make(map[string]int)
	for rows.Next() {
		var (
			url   string
			count sql.NullInt64
		)
		if err := rows.Scan(&url, &count); err != nil {
			return nil, unavailable("postgres", term, fmt.Errorf("scanning row: %w", err))
		}
		result[url] += int(count.Int64)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("postgres", term, err)
	}
	return result, nil
}

// InitSchema creates the term_counts table if it does not exist yet.
func InitSchema(ctx context.Context, client *postgres.Client) error {
	return client.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, schema); err != nil {
			return fmt.Errorf("creating term_counts: %w", err)
		}
		return nil
	})
}

func (s *PostgresStore) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer()
}
