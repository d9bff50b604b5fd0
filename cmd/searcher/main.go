// Command searcher serves boolean keyword search over the posting store.
//
// Usage:
//
//	go run ./cmd/searcher [-config configs/development.yaml]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/store"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/middleware"
	pkgredis "github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/redis"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting search service", "port", cfg.Server.Port, "backend", cfg.Store.Backend)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(nil)

	postings, err := store.Open(ctx, cfg, m)
	if err != nil {
		var openErr *store.OpenError
		if errors.As(err, &openErr) {
			slog.Error("failed to open posting store", "backend", openErr.Backend, "reason", openErr.Reason, "error", openErr.Err)
		} else {
			slog.Error("failed to open posting store", "error", err)
		}
		os.Exit(1)
	}
	defer postings.Close()

	var queryCache *cache.QueryCache
	var redisClient *pkgredis.Client
	if cfg.Redis.CacheEnabled {
		redisClient, err = pkgredis.NewClient(cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, search caching disabled", "error", err)
			redisClient = nil
		} else {
			defer redisClient.Close()
			queryCache = cache.New(redisClient, cfg.Redis.CacheTTL, m)
			slog.Info("search cache enabled", "ttl", cfg.Redis.CacheTTL)
		}
	}

	var collector *analytics.Collector
	var aggregator *analytics.Aggregator
	if cfg.Kafka.Enabled {
		topic := cfg.Kafka.Topics.AnalyticsEvents
		producer := kafka.NewProducer(cfg.Kafka, topic)
		defer producer.Close()
		collector = analytics.NewCollector(producer, 0, 0, 0)
		collector.Start(ctx)
		defer collector.Close()

		aggregator = analytics.NewAggregator()
		go func() {
			if err := aggregator.Run(ctx, cfg.Kafka, topic); err != nil {
				slog.Error("analytics aggregator error", "error", err)
			}
		}()
		slog.Info("search analytics enabled", "topic", topic, "brokers", cfg.Kafka.Brokers)
	}

	checker := health.NewChecker(0)
	checker.Register("posting_store", health.BreakerCheck(postings.State))
	if cfg.Redis.CacheEnabled {
		var ping func(context.Context) error
		if redisClient != nil {
			ping = redisClient.Ping
		}
		checker.Register("query_cache", health.PingCheck(ping))
	}

	exec := executor.New(postings, cfg.Search.MaxConcurrentLookups)
	h := handler.New(exec, queryCache, collector, m, cfg.Search.DefaultLimit, cfg.Search.MaxResults)
	analyticsH := analytics.NewHandler(aggregator)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
	mux.HandleFunc("GET /api/v1/analytics", analyticsH.Stats)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	chain = middleware.Metrics(m)(chain)
	chain = middleware.RequestID(chain)

	var shutdownMetrics func(context.Context) error
	if cfg.Metrics.Enabled {
		shutdownMetrics = metrics.StartServer(cfg.Metrics.Port)
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
		if shutdownMetrics != nil {
			if err := shutdownMetrics(shutdownCtx); err != nil {
				slog.Error("metrics server shutdown error", "error", err)
			}
		}
	}()

	slog.Info("search service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("search service stopped")
}
