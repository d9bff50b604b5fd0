package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"reflect"
	"strings"
	"sync"
	"testing"

	apperrors "github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/postgres"
)

// fakeDB is an in-process database/sql backend. Queries return the rows
// stored for the term bound to $1.
type fakeDB struct {
	mu        sync.Mutex
	rows      map[string][][]driver.Value
	queryErr  error
	rowErr    error
	execErr   error
	execs     []string
	commits   int
	rollbacks int
}

func (f *fakeDB) open(t *testing.T) *sql.DB {
	t.Helper()
	db := sql.OpenDB(fakeConnector{f})
	t.Cleanup(func() { db.Close() })
	return db
}

type fakeConnector struct{ db *fakeDB }

func (c fakeConnector) Connect(context.Context) (driver.Conn, error) { return &fakeConn{c.db}, nil }
func (c fakeConnector) Driver() driver.Driver                        { return fakeDriver{} }

type fakeDriver struct{}

func (fakeDriver) Open(string) (driver.Conn, error) {
	return nil, errors.New("fake driver is opened through its connector")
}

type fakeConn struct{ db *fakeDB }

func (c *fakeConn) Prepare(string) (driver.Stmt, error) {
	return nil, errors.New("prepared statements not supported")
}

func (c *fakeConn) Close() error { return nil }

func (c *fakeConn) Begin() (driver.Tx, error) { return &fakeTx{c.db}, nil }

func (c *fakeConn) QueryContext(_ context.Context, _ string, args []driver.NamedValue) (driver.Rows, error) {
	c.db.mu.Lock()
	defer c.db.mu.Unlock()
	if c.db.queryErr != nil {
		return nil, c.db.queryErr
	}
	term, _ := args[0].Value.(string)
	return &fakeRows{data: c.db.rows[term], err: c.db.rowErr}, nil
}

func (c *fakeConn) ExecContext(_ context.Context, query string, _ []driver.NamedValue) (driver.Result, error) {
	c.db.mu.Lock()
	defer c.db.mu.Unlock()
	c.db.execs = append(c.db.execs, query)
	if c.db.execErr != nil {
		return nil, c.db.execErr
	}
	return driver.RowsAffected(0), nil
}

type fakeTx struct{ db *fakeDB }

func (tx *fakeTx) Commit() error {
	tx.db.mu.Lock()
	defer tx.db.mu.Unlock()
	tx.db.commits++
	return nil
}

func (tx *fakeTx) Rollback() error {
	tx.db.mu.Lock()
	defer tx.db.mu.Unlock()
	tx.db.rollbacks++
	return nil
}

type fakeRows struct {
	data [][]driver.Value
	err  error
	next int
}

func (r *fakeRows) Columns() []string { return []string{"url", "count"} }
func (r *fakeRows) Close() error      { return nil }

func (r *fakeRows) Next(dest []driver.Value) error {
	if r.next >= len(r.data) {
		if r.err != nil {
			return r.err
		}
		return io.EOF
	}
	copy(dest, r.data[r.next])
	r.next++
	return nil
}

func TestPostgresStoreLookup(t *testing.T) {
	fake := &fakeDB{rows: map[string][][]driver.Value{
		"java": {
			{"https://en.wikipedia.org/wiki/Java", int64(3)},
			{"https://en.wikipedia.org/wiki/Coffee", int64(1)},
			{"https://en.wikipedia.org/wiki/Coffee", int64(2)},
			{"https://en.wikipedia.org/wiki/Indonesia", nil},
		},
	}}
	s := NewPostgresStore(fake.open(t), nil)

	tests := []struct {
		name string
		term string
		want map[string]int
	}{
		{
			name: "known term",
			term: "java",
			want: map[string]int{
				"https://en.wikipedia.org/wiki/Java":      3,
				"https://en.wikipedia.org/wiki/Coffee":    3,
				"https://en.wikipedia.org/wiki/Indonesia": 0,
			},
		},
		{name: "unknown term", term: "cobol", want: map[string]int{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Lookup(context.Background(), tt.term)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPostgresStoreFailuresAreUnavailable(t *testing.T) {
	tests := []struct {
		name string
		db   *fakeDB
	}{
		{name: "query error", db: &fakeDB{queryErr: errors.New("connection reset by peer")}},
		{name: "row error", db: &fakeDB{
			rows:   map[string][][]driver.Value{"java": {{"https://en.wikipedia.org/wiki/Java", int64(1)}}},
			rowErr: errors.New("server closed the connection"),
		}},
		{name: "null url", db: &fakeDB{
			rows: map[string][][]driver.Value{"java": {{nil, int64(1)}}},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewPostgresStore(tt.db.open(t), nil).Lookup(context.Background(), "java")
			if !errors.Is(err, apperrors.ErrStoreUnavailable) {
				t.Fatalf("expected ErrStoreUnavailable, got %v", err)
			}
			if got != nil {
				t.Errorf("expected nil postings on failure, got %v", got)
			}
		})
	}
}

func TestPostgresStoreClose(t *testing.T) {
	closed := false
	s := NewPostgresStore((&fakeDB{}).open(t), func() error { closed = true; return nil })
	if err := s.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !closed {
		t.Error("closer was not called")
	}
	if err := NewPostgresStore(nil, nil).Close(); err != nil {
		t.Errorf("nil closer: %v", err)
	}
}

func TestInitSchema(t *testing.T) {
	fake := &fakeDB{}
	if err := InitSchema(context.Background(), &postgres.Client{DB: fake.open(t)}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fake.execs) != 1 || !strings.Contains(fake.execs[0], "CREATE TABLE IF NOT EXISTS term_counts") {
		t.Errorf("unexpected statements: %q", fake.execs)
	}
	if fake.commits != 1 || fake.rollbacks != 0 {
		t.Errorf("expected one commit, got commits=%d rollbacks=%d", fake.commits, fake.rollbacks)
	}
}

func TestInitSchemaRollsBackOnError(t *testing.T) {
	fake := &fakeDB{execErr: errors.New("permission denied for schema public")}
	err := InitSchema(context.Background(), &postgres.Client{DB: fake.open(t)})
	if err == nil || !strings.Contains(err.Error(), "term_counts") {
		t.Fatalf("expected wrapped schema error, got %v", err)
	}
	if fake.commits != 0 || fake.rollbacks != 1 {
		t.Errorf("expected one rollback, got commits=%d rollbacks=%d", fake.commits, fake.rollbacks)
	}
}
