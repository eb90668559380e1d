// Command analytics starts the standalone analytics aggregation service.
//
// It consumes analysis and search events from Kafka, aggregates them in
// memory (totals, sentiment distribution, top topics/keywords/terms, latency
// percentiles), periodically snapshots the stats to PostgreSQL, and exposes
// an HTTP API at GET /api/v1/analytics for dashboards.
//
// Usage:
//
//	go run ./cmd/analytics [-config configs/development.yaml]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/textmine/knowledge-extractor/internal/analytics"
	"github.com/textmine/knowledge-extractor/internal/analytics/aggregator"
	"github.com/textmine/knowledge-extractor/pkg/config"
	"github.com/textmine/knowledge-extractor/pkg/health"
	"github.com/textmine/knowledge-extractor/pkg/kafka"
	"github.com/textmine/knowledge-extractor/pkg/logger"
	"github.com/textmine/knowledge-extractor/pkg/middleware"
	"github.com/textmine/knowledge-extractor/pkg/postgres"
)

const snapshotInterval = 5 * time.Minute

// main boots the analytics service: Kafka consumers for both event topics,
// the in-memory aggregator, periodic PostgreSQL snapshots, and the HTTP API.
// Graceful shutdown is triggered by SIGINT/SIGTERM.
func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting analytics service", "port", cfg.Server.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Both topics feed the same aggregator; the handler dispatches on the
	// event's type field.
	agg := analytics.NewAggregator()
	handle := analytics.HandleEvent(agg)
	analysisConsumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.AnalysisEvents, handle)
	searchConsumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.SearchEvents, handle)

	go func() {
		if err := analysisConsumer.Start(ctx); err != nil {
			slog.Error("analysis consumer error", "error", err)
		}
	}()
	go func() {
		if err := searchConsumer.Start(ctx); err != nil {
			slog.Error("search consumer error", "error", err)
		}
	}()
	slog.Info("analytics consumers started",
		"topics", []string{cfg.Kafka.Topics.AnalysisEvents, cfg.Kafka.Topics.SearchEvents},
	)

	// Periodic snapshots to PostgreSQL; optional, the service still serves
	// live stats when the database is unreachable.
	db, err := postgres.New(cfg.Postgres)
	if err != nil {
		slog.Warn("postgres unavailable, snapshots disabled", "error", err)
	} else {
		defer db.Close()
		snapStore := aggregator.NewStore(db)
		snapStore.StartPeriodicSave(ctx, agg, snapshotInterval)
		slog.Info("snapshot persistence enabled", "interval", snapshotInterval)
	}

	analyticsHandler := analytics.NewHandler(agg)

	checker := health.NewChecker()
	checker.Register("kafka", func(ctx context.Context) health.ComponentHealth {
		return health.ComponentHealth{Status: health.StatusUp, Message: "consumers active"}
	})
	checker.Register("postgres", func(ctx context.Context) health.ComponentHealth {
		if db == nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "snapshots disabled"}
		}
		if err := db.Ping(ctx); err != nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/analytics", analyticsHandler.Stats)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.RequestID(chain)

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
	}()

	slog.Info("analytics service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("analytics service stopped")
}
