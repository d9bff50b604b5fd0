// Command analytics aggregates search events from Kafka outside the search
// process and serves the totals at GET /api/v1/analytics.
//
// Usage:
//
//	go run ./cmd/analytics [-config configs/development.yaml] [-port 8081]
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
	"sync/atomic"
	"syscall"

	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/middleware"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	port := flag.Int("port", 8081, "HTTP port")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	topic := cfg.Kafka.Topics.AnalyticsEvents
	slog.Info("starting analytics service", "port", *port, "topic", topic)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	aggregator := analytics.NewAggregator()

	var consuming atomic.Bool
	consuming.Store(true)
	go func() {
		defer consuming.Store(false)
		if err := aggregator.Run(ctx, cfg.Kafka, topic); err != nil {
			slog.Error("aggregator error", "error", err)
		}
	}()

	checker := health.NewChecker(0)
	checker.Register("kafka_consumer", func(ctx context.Context) health.ComponentHealth {
		if !consuming.Load() {
			return health.ComponentHealth{Status: health.StatusDown, Message: "consumer stopped"}
		}
		return health.ComponentHealth{Status: health.StatusUp, Message: topic}
	})

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/analytics", analytics.NewHandler(aggregator).Stats)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      middleware.RequestID(mux),
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
	}()

	slog.Info("analytics service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("analytics service stopped")
}
