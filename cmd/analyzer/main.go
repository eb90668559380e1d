// Command analyzer starts the text analysis HTTP service.
//
// It accepts texts via POST /api/v1/analyze (single or batch), extracts the
// top keywords locally, calls the LLM for a summary and structured metadata
// (falling back gracefully when the LLM is unavailable), persists the result,
// and emits analytics events to Kafka. Stored analyses are served at
// GET /api/v1/analyses and GET /api/v1/analyses/{id}.
//
// Usage:
//
//	go run ./cmd/analyzer [-config configs/development.yaml]
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

	"github.com/textmine/knowledge-extractor/internal/analytics"
	"github.com/textmine/knowledge-extractor/internal/analyzer/handler"
	"github.com/textmine/knowledge-extractor/internal/analyzer/orchestrator"
	"github.com/textmine/knowledge-extractor/internal/analyzer/validator"
	"github.com/textmine/knowledge-extractor/internal/keywords"
	"github.com/textmine/knowledge-extractor/internal/llm"
	"github.com/textmine/knowledge-extractor/internal/storage"
	"github.com/textmine/knowledge-extractor/pkg/config"
	"github.com/textmine/knowledge-extractor/pkg/health"
	"github.com/textmine/knowledge-extractor/pkg/kafka"
	"github.com/textmine/knowledge-extractor/pkg/logger"
	"github.com/textmine/knowledge-extractor/pkg/metrics"
	"github.com/textmine/knowledge-extractor/pkg/middleware"
	"github.com/textmine/knowledge-extractor/pkg/postgres"
)

// main wires up storage, the LLM client, the keyword extractor, the Kafka
// analytics collector, and the HTTP server. Graceful shutdown is triggered
// by SIGINT/SIGTERM.
func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting analyzer service", "port", cfg.Server.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port)
		defer shutdownMetrics(context.Background())
		slog.Info("metrics server started", "port", cfg.Metrics.Port)
	}

	// Storage backend.
	var store storage.Store
	var db *postgres.Client
	switch cfg.Storage.Backend {
	case "memory":
		store = storage.NewMemoryStore()
		slog.Info("using in-memory analysis store")
	default:
		db, err = postgres.New(cfg.Postgres)
		if err != nil {
			slog.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		store = storage.NewPostgresStore(db)
		slog.Info("connected to postgres", "database", cfg.Postgres.Database)
	}

	// LLM client: stub for local development, Gemini otherwise, both wrapped
	// with retries and a circuit breaker.
	var base llm.Client
	if cfg.LLM.UseStub {
		base = llm.NewStubClient()
		slog.Info("using stub LLM client")
	} else {
		gemini, err := llm.NewGeminiClient(ctx, cfg.LLM)
		if err != nil {
			slog.Error("failed to create gemini client", "error", err)
			os.Exit(1)
		}
		defer gemini.Close()
		base = gemini
		slog.Info("gemini client initialized", "model", cfg.LLM.Model)
	}
	llmClient := llm.NewResilientClient(base, llm.ResilientConfig{
		Timeout:     cfg.LLM.Timeout,
		MaxAttempts: cfg.LLM.MaxAttempts,
	}, m)

	// Analytics events flow to Kafka through a non-blocking collector.
	producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.AnalysisEvents)
	defer producer.Close()
	collector := analytics.NewCollector(producer, 10000)
	collector.Start(ctx)
	defer collector.Close()
	slog.Info("analytics collector started", "topic", cfg.Kafka.Topics.AnalysisEvents)

	extractor := keywords.New(keywords.Params{
		TopK:           cfg.Keywords.TopK,
		MinTokenLength: cfg.Keywords.MinTokenLength,
		CapitalBoost:   cfg.Keywords.CapitalBoost,
		LengthBoost:    cfg.Keywords.LengthBoost,
		LengthBaseline: cfg.Keywords.LengthBaseline,
	})

	orch := orchestrator.New(store, llmClient, extractor, collector, m, cfg.Analyzer.Concurrency)
	h := handler.New(orch, store, validator.Limits{
		MaxTextLength: cfg.Analyzer.MaxTextLength,
		MaxBatchItems: cfg.Analyzer.MaxBatchItems,
	}, cfg.Search.DefaultLimit, cfg.Search.MaxResults)

	checker := health.NewChecker()
	checker.Register("storage", func(ctx context.Context) health.ComponentHealth {
		if db == nil {
			return health.ComponentHealth{Status: health.StatusUp, Message: "in-memory"}
		}
		if err := db.Ping(ctx); err != nil {
			return health.ComponentHealth{Status: health.StatusDown, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/analyze", h.Analyze)
	mux.HandleFunc("GET /api/v1/analyses", h.List)
	mux.HandleFunc("GET /api/v1/analyses/{id}", h.Get)
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	if m != nil {
		chain = middleware.Metrics(m)(chain)
	}
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
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

	slog.Info("analyzer service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("analyzer service stopped")
}
