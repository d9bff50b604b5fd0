package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/searcher/resultset"
	apperrors "github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/middleware"
)

type SearchExecutor interface {
	Execute(ctx context.Context, plan *parser.QueryPlan, limit int, order executor.Order) (*executor.SearchResult, error)
}

// Handler serves the search API. Cache, collector and metrics are optional.
type Handler struct {
	executor     SearchExecutor
	cache        *cache.QueryCache
	collector    *analytics.Collector
	metrics      *metrics.Metrics
	defaultLimit int
	maxResults   int
	logger       *slog.Logger
}

func New(exec SearchExecutor, queryCache *cache.QueryCache, collector *analytics.Collector, m *metrics.Metrics, defaultLimit, maxResults int) *Handler {
	return &Handler{
		executor:     exec,
		cache:        queryCache,
		collector:    collector,
		metrics:      m,
		defaultLimit: defaultLimit,
		maxResults:   maxResults,
		logger:       logger.WithComponent("search-handler"),
	}
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	query := r.URL.Query().Get("q")
	if query == "" {
		h.writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}

	limit := h.defaultLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}
	if h.maxResults > 0 && limit > h.maxResults {
		limit = h.maxResults
	}

	order, ok := executor.ParseOrder(r.URL.Query().Get("order"))
	if !ok {
		h.writeError(w, http.StatusBadRequest, "order must be 'asc' or 'desc'")
		return
	}

	plan := parser.Parse(query)
	if len(plan.Steps) == 0 {
		h.writeJSON(w, http.StatusOK, &executor.SearchResult{
			Query:     query,
			Order:     order,
			Results:   []resultset.Entry{},
			TermStats: map[string]int{},
		})
		return
	}

	var result *executor.SearchResult
	var err error
	cacheHit := false

	if h.cache != nil {
		result, cacheHit, err = h.cache.GetOrCompute(ctx, plan, limit, order, func(ctx context.Context) (*executor.SearchResult, error) {
			return h.executor.Execute(ctx, plan, limit, order)
		})
	} else {
		result, err = h.executor.Execute(ctx, plan, limit, order)
	}

	latency := time.Since(start)
	if err != nil {
		status := apperrors.HTTPStatusCode(err)
		log.Error("search execution failed", "query", query, "plan", plan.String(), "status", status, "error", err)
		h.observe("error", cacheHit, latency, 0)
		h.track(ctx, analytics.SearchEvent{
			Type:      analytics.EventStoreError,
			Query:     query,
			Plan:      plan.String(),
			Terms:     plan.Terms(),
			LatencyMs: latency.Milliseconds(),
		})
		h.writeError(w, status, statusMessage(status))
		return
	}

	log.Info("search completed",
		"query", query,
		"plan", plan.String(),
		"total_hits", result.TotalHits,
		"returned", len(result.Results),
		"cache_hit", cacheHit,
		"latency_ms", latency.Milliseconds(),
	)

	eventType := analytics.EventCacheMiss
	resultType := "miss"
	if cacheHit {
		eventType = analytics.EventCacheHit
		resultType = "hit"
	}
	if result.TotalHits == 0 {
		eventType = analytics.EventZeroResult
		resultType = "zero_result"
	}
	h.observe(resultType, cacheHit, latency, result.TotalHits)
	h.track(ctx, analytics.SearchEvent{
		Type:      eventType,
		Query:     query,
		Plan:      result.Plan,
		Terms:     plan.Terms(),
		TotalHits: result.TotalHits,
		Returned:  len(result.Results),
		LatencyMs: latency.Milliseconds(),
		CacheHit:  cacheHit,
	})

	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}

	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}

	if err := h.cache.Invalidate(r.Context()); err != nil {
		logger.FromContext(r.Context()).Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

func (h *Handler) observe(resultType string, cacheHit bool, latency time.Duration, hits int) {
	if h.metrics == nil {
		return
	}
	cacheStatus := "miss"
	if cacheHit {
		cacheStatus = "hit"
	}
	h.metrics.SearchQueriesTotal.WithLabelValues(resultType).Inc()
	h.metrics.SearchLatency.WithLabelValues(cacheStatus).Observe(latency.Seconds())
	if resultType != "error" {
		h.metrics.SearchResultsCount.Observe(float64(hits))
	}
}

func (h *Handler) track(ctx context.Context, event analytics.SearchEvent) {
	if h.collector == nil {
		return
	}
	event.Timestamp = time.Now().UTC()
	event.RequestID = middleware.GetRequestID(ctx)
	h.collector.Track(event)
}

func statusMessage(status int) string {
	switch status {
	case http.StatusServiceUnavailable:
		return "posting store unavailable"
	case http.StatusGatewayTimeout:
		return "search timed out"
	case http.StatusBadRequest:
		return "invalid query"
	default:
		return "search failed"
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
