// Command gateway starts the API gateway service.
//
// The gateway is the single entry point for external clients. It
// authenticates requests via API keys (SHA-256 validated against
// PostgreSQL), applies per-key rate limiting, and proxies requests to the
// analyzer, searcher, and analytics services. It also exposes admin
// endpoints for API key management.
//
// Usage:
//
//	go run ./cmd/gateway [-config configs/development.yaml]
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

	"github.com/textmine/knowledge-extractor/internal/auth/apikey"
	"github.com/textmine/knowledge-extractor/internal/auth/ratelimit"
	gwhandler "github.com/textmine/knowledge-extractor/internal/gateway/handler"
	"github.com/textmine/knowledge-extractor/internal/gateway/router"
	"github.com/textmine/knowledge-extractor/pkg/config"
	"github.com/textmine/knowledge-extractor/pkg/logger"
	"github.com/textmine/knowledge-extractor/pkg/postgres"
)

// main initialises PostgreSQL, the API-key validator, the rate limiter, the
// gateway handler + router middleware chain, and starts the HTTP server.
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
	slog.Info("starting gateway service",
		"port", cfg.Gateway.Port,
		"analyzer_url", cfg.Gateway.AnalyzerURL,
		"searcher_url", cfg.Gateway.SearcherURL,
		"analytics_url", cfg.Gateway.AnalyticsURL,
	)

	// PostgreSQL backs API key validation.
	db, err := postgres.New(cfg.Postgres)
	if err != nil {
		slog.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("connected to postgres")

	const rateLimitWindow = time.Minute

	validator := apikey.NewValidator(db)
	limiter := ratelimit.New(rateLimitWindow)

	h := gwhandler.New(cfg.Gateway, validator)
	chain := router.New(h, validator, limiter, rateLimitWindow)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Gateway.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("gateway service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("gateway service stopped")
}
