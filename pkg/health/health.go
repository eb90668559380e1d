// Package health aggregates dependency probes for liveness and readiness
// endpoints. Services register one probe per dependency (postgres, redis,
// kafka); readiness reports the worst observed state. A degraded dependency
// keeps the service ready — the searcher serves uncached results without
// Redis, and analytics serves live stats without snapshot persistence.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// Status of a single dependency or of the service overall.
type Status string

const (
	StatusUp       Status = "up"
	StatusDegraded Status = "degraded"
	StatusDown     Status = "down"
)

// ComponentHealth is one probe's outcome.
type ComponentHealth struct {
	Status    Status `json:"status"`
	Message   string `json:"message,omitempty"`
	LatencyMs int64  `json:"latency_ms"`
}

// Check probes a single dependency.
type Check func(ctx context.Context) ComponentHealth

// Report aggregates every registered probe.
type Report struct {
	Status     Status                     `json:"status"`
	Components map[string]ComponentHealth `json:"components"`
	CheckedAt  time.Time                  `json:"checked_at"`
}

// perCheckTimeout bounds a single probe so one stuck dependency cannot stall
// the readiness endpoint.
const perCheckTimeout = 3 * time.Second

type namedCheck struct {
	name  string
	check Check
}

// Checker runs registered probes concurrently.
type Checker struct {
	mu     sync.RWMutex
	checks []namedCheck
}

func NewChecker() *Checker {
	return &Checker{}
}

// Register adds a probe. Registering the same name twice keeps both results
// under the last registration; callers are expected to use unique names.
func (c *Checker) Register(name string, check Check) {
	c.mu.Lock()
	c.checks = append(c.checks, namedCheck{name: name, check: check})
	c.mu.Unlock()
}

// Run executes every probe in parallel and returns the aggregate. Overall
// status is the worst component status.
func (c *Checker) Run(ctx context.Context) Report {
	c.mu.RLock()
	checks := make([]namedCheck, len(c.checks))
	copy(checks, c.checks)
	c.mu.RUnlock()

	type outcome struct {
		name   string
		result ComponentHealth
	}
	results := make(chan outcome, len(checks))
	for _, nc := range checks {
		go func(nc namedCheck) {
			probeCtx, cancel := context.WithTimeout(ctx, perCheckTimeout)
			defer cancel()
			start := time.Now()
			r := nc.check(probeCtx)
			r.LatencyMs = time.Since(start).Milliseconds()
			results <- outcome{name: nc.name, result: r}
		}(nc)
	}

	report := Report{
		Status:     StatusUp,
		Components: make(map[string]ComponentHealth, len(checks)),
		CheckedAt:  time.Now().UTC(),
	}
	for range checks {
		o := <-results
		report.Components[o.name] = o.result
		switch o.result.Status {
		case StatusDown:
			report.Status = StatusDown
		case StatusDegraded:
			if report.Status == StatusUp {
				report.Status = StatusDegraded
			}
		}
	}
	return report
}

// LiveHandler answers liveness probes. It reports only that the process is
// serving; dependency state belongs to readiness.
func (c *Checker) LiveHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "alive"})
	}
}

// ReadyHandler answers readiness probes with the full report. Only a down
// dependency makes the service not ready; degraded still serves traffic.
func (c *Checker) ReadyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := c.Run(r.Context())
		w.Header().Set("Content-Type", "application/json")
		if report.Status == StatusDown {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(report)
	}
}
