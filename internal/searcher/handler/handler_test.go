package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/store"
	apperrors "github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
)

func testExecutor() *executor.Executor {
	s := store.NewMemoryStore()
	s.Index("Page1", map[string]int{"test1": 1})
	s.Index("Page2", map[string]int{"test1": 2, "test2": 4})
	s.Index("Page3", map[string]int{"test1": 3, "test2": 5, "test3": 1})
	s.Index("Page4", map[string]int{"test2": 7})
	return executor.New(s, 4)
}

type brokenStore struct{ err error }

func (b brokenStore) Lookup(context.Context, string) (map[string]int, error) { return nil, b.err }

type memKV struct {
	mu   sync.Mutex
	data map[string]string
}

func (m *memKV) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (m *memKV) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = string(value.([]byte))
	return nil
}

func (m *memKV) FlushByPattern(_ context.Context, pattern string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := int64(len(m.data))
	m.data = make(map[string]string)
	return n, nil
}

func doSearch(t *testing.T, h *Handler, rawQuery string) (*httptest.ResponseRecorder, executor.SearchResult) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.Search(rec, httptest.NewRequest(http.MethodGet, "/api/v1/search?"+rawQuery, nil))
	var res executor.SearchResult
	if rec.Code == http.StatusOK {
		if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
			t.Fatalf("decoding response: %v", err)
		}
	}
	return rec, res
}

func TestSearch(t *testing.T) {
	h := New(testExecutor(), nil, nil, nil, 10, 100)

	rec, res := doSearch(t, h, "q=test1+AND+test2")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if res.TotalHits != 2 || len(res.Results) != 2 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.Results[0].DocID != "Page2" || res.Results[0].Score != 6 {
		t.Errorf("expected Page2 6 first, got %+v", res.Results[0])
	}
	if res.Plan != "test1 AND test2" {
		t.Errorf("unexpected plan %q", res.Plan)
	}

	_, res = doSearch(t, h, "q=test1+OR+test2&order=desc&limit=1")
	if len(res.Results) != 1 || res.Results[0].DocID != "Page3" || res.TotalHits != 4 {
		t.Errorf("unexpected desc/limit result: %+v", res)
	}
}

func TestSearchEmptyPlan(t *testing.T) {
	h := New(testExecutor(), nil, nil, nil, 10, 100)
	rec, res := doSearch(t, h, "q=AND")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if res.Results == nil || len(res.Results) != 0 {
		t.Errorf("expected empty results, got %+v", res.Results)
	}
}

func TestSearchValidation(t *testing.T) {
	h := New(testExecutor(), nil, nil, nil, 10, 100)
	for _, q := range []string{"", "q=test1&limit=0", "q=test1&limit=abc", "q=test1&order=sideways"} {
		rec, _ := doSearch(t, h, q)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%q: expected 400, got %d", q, rec.Code)
		}
	}
}

func TestSearchStoreFailure(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("redis down: %w", apperrors.ErrStoreUnavailable), http.StatusServiceUnavailable},
		{fmt.Errorf("lookup: %w", apperrors.ErrTimeout), http.StatusGatewayTimeout},
		{fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		m := metrics.New(prometheus.NewRegistry())
		h := New(executor.New(brokenStore{err: tt.err}, 0), nil, nil, m, 10, 100)
		rec, _ := doSearch(t, h, "q=java")
		if rec.Code != tt.want {
			t.Errorf("%v: expected %d, got %d", tt.err, tt.want, rec.Code)
		}
		if strings.Contains(rec.Body.String(), "results") {
			t.Errorf("failure must not look like an empty result: %s", rec.Body.String())
		}
		if v := testutil.ToFloat64(m.SearchQueriesTotal.WithLabelValues("error")); v != 1 {
			t.Errorf("expected error counter 1, got %v", v)
		}
	}
}

func TestSearchUsesCache(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	qc := cache.New(&memKV{data: make(map[string]string)}, time.Minute, m)
	h := New(testExecutor(), qc, nil, m, 10, 100)

	doSearch(t, h, "q=test1+and+test2")
	_, res := doSearch(t, h, "q=TEST1++AND+TEST2")
	if res.TotalHits != 2 {
		t.Errorf("unexpected cached result: %+v", res)
	}
	if v := testutil.ToFloat64(m.SearchQueriesTotal.WithLabelValues("hit")); v != 1 {
		t.Errorf("expected 1 cache hit, got %v", v)
	}

	rec := httptest.NewRecorder()
	h.CacheStats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/cache/stats", nil))
	var stats map[string]any
	json.NewDecoder(rec.Body).Decode(&stats)
	if stats["hits"] != float64(1) || stats["misses"] != float64(1) {
		t.Errorf("unexpected stats: %v", stats)
	}

	rec = httptest.NewRecorder()
	h.CacheInvalidate(rec, httptest.NewRequest(http.MethodPost, "/api/v1/cache/invalidate", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 from invalidate, got %d", rec.Code)
	}
}

func TestCacheEndpointsWhenDisabled(t *testing.T) {
	h := New(testExecutor(), nil, nil, nil, 10, 100)
	rec := httptest.NewRecorder()
	h.CacheInvalidate(rec, httptest.NewRequest(http.MethodPost, "/api/v1/cache/invalidate", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
	rec = httptest.NewRecorder()
	h.CacheStats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/cache/stats", nil))
	if !strings.Contains(rec.Body.String(), "disabled") {
		t.Errorf("expected disabled status, got %s", rec.Body.String())
	}
}
