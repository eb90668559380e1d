package llm

import (
	"context"
	"time"

	apperrors "github.com/textmine/knowledge-extractor/pkg/errors"
	"github.com/textmine/knowledge-extractor/pkg/metrics"
	"github.com/textmine/knowledge-extractor/pkg/resilience"
)

// ResilientClient decorates a Client with per-call timeouts, retries, a
// shared circuit breaker, and Prometheus metrics. When the breaker is open,
// calls fail fast with errors.ErrLLMUnavailable so the analyzer can fall
// back without waiting out the provider timeout.
type ResilientClient struct {
	inner   Client
	breaker *resilience.CircuitBreaker
	retry   resilience.RetryConfig
	timeout time.Duration
	metrics *metrics.Metrics
}

// ResilientConfig tunes the decorator. Zero values fall back to the
// resilience package defaults and a 30s timeout.
type ResilientConfig struct {
	Timeout     time.Duration
	MaxAttempts int
}

// NewResilientClient wraps inner with resilience and instrumentation.
// Metrics may be nil (e.g. in tests).
func NewResilientClient(inner Client, cfg ResilientConfig, m *metrics.Metrics) *ResilientClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	breakerCfg := resilience.CircuitBreakerConfig{}
	if m != nil {
		breakerCfg.OnStateChange = func(name string, state resilience.State) {
			m.CircuitBreakerState.WithLabelValues(name).Set(float64(state))
		}
	}
	return &ResilientClient{
		inner:   inner,
		breaker: resilience.NewCircuitBreaker("llm", breakerCfg),
		retry:   resilience.RetryConfig{MaxAttempts: cfg.MaxAttempts},
		timeout: cfg.Timeout,
		metrics: m,
	}
}

func (c *ResilientClient) Summarize(ctx context.Context, text string) (string, error) {
	var summary string
	err := c.call(ctx, OperationSummarize, func(callCtx context.Context) error {
		var err error
		summary, err = c.inner.Summarize(callCtx, text)
		return err
	})
	if err != nil {
		return "", err
	}
	return summary, nil
}

func (c *ResilientClient) ExtractMetadata(ctx context.Context, text string) (*Metadata, error) {
	var meta *Metadata
	err := c.call(ctx, OperationMetadata, func(callCtx context.Context) error {
		var err error
		meta, err = c.inner.ExtractMetadata(callCtx, text)
		return err
	})
	if err != nil {
		return nil, err
	}
	return meta, nil
}

func (c *ResilientClient) call(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	start := time.Now()
	err := c.breaker.Execute(func() error {
		return resilience.Retry(ctx, "llm-"+operation, c.retry, func() error {
			return resilience.WithTimeout(ctx, c.timeout, "llm-"+operation, fn)
		})
	})
	c.observe(operation, time.Since(start), err)
	if err != nil {
		return apperrors.New(apperrors.ErrLLMUnavailable, 503, "LLM "+operation+" failed: "+err.Error())
	}
	return nil
}

func (c *ResilientClient) observe(operation string, elapsed time.Duration, err error) {
	if c.metrics == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	c.metrics.LLMRequestsTotal.WithLabelValues(operation, status).Inc()
	c.metrics.LLMRequestDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}
