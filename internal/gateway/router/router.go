// Package router wires up all API gateway routes and applies the middleware
// chain (RequestID → CORS → Auth → RateLimit).
package router

import (
	"net/http"
	"time"

	"github.com/textmine/knowledge-extractor/internal/auth/apikey"
	"github.com/textmine/knowledge-extractor/internal/auth/ratelimit"
	gwhandler "github.com/textmine/knowledge-extractor/internal/gateway/handler"
	gwmw "github.com/textmine/knowledge-extractor/internal/gateway/middleware"
	pkgmw "github.com/textmine/knowledge-extractor/pkg/middleware"
)

// New builds the full gateway HTTP handler with all routes and middleware.
//
// Route table:
//
//	POST   /api/v1/analyze             → analyzer service  (proxy)
//	GET    /api/v1/analyses            → analyzer service  (proxy)
//	GET    /api/v1/analyses/{id}       → analyzer service  (proxy)
//	GET    /api/v1/search              → search service    (proxy)
//	GET    /api/v1/cache/stats         → search service    (proxy)
//	POST   /api/v1/cache/invalidate    → search service    (proxy)
//	GET    /api/v1/analytics           → analytics service (proxy)
//	POST   /api/v1/admin/keys          → create API key    (direct DB)
//	GET    /api/v1/admin/keys          → list API keys     (direct DB)
//	DELETE /api/v1/admin/keys          → revoke API key    (direct DB)
//	GET    /health                     → gateway health
//
// Middleware chain (outermost first):
//
//	RequestID → CORS → Auth → RateLimit → handler
func New(h *gwhandler.Handler, validator *apikey.Validator, limiter *ratelimit.Limiter, window time.Duration) http.Handler {
	mux := http.NewServeMux()

	// Health (unauthenticated)
	mux.HandleFunc("GET /health", h.Health)

	// Analysis API
	mux.HandleFunc("POST /api/v1/analyze", h.ProxyAnalyze)
	mux.HandleFunc("GET /api/v1/analyses", h.ProxyAnalyses)
	mux.HandleFunc("GET /api/v1/analyses/{id}", h.ProxyAnalyses)

	// Search API
	mux.HandleFunc("GET /api/v1/search", h.ProxySearch)
	mux.HandleFunc("GET /api/v1/cache/stats", h.ProxyCacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.ProxyCacheInvalidate)

	// Analytics API
	mux.HandleFunc("GET /api/v1/analytics", h.ProxyAnalytics)

	// Admin API
	mux.HandleFunc("POST /api/v1/admin/keys", h.CreateAPIKey)
	mux.HandleFunc("GET /api/v1/admin/keys", h.ListAPIKeys)
	mux.HandleFunc("DELETE /api/v1/admin/keys", h.RevokeAPIKey)

	// Middleware chain, applied inside-out:
	// request → RequestID → CORS → Auth → RateLimit → mux
	var chain http.Handler = mux
	chain = gwmw.RateLimit(limiter, window)(chain)
	chain = gwmw.Auth(validator)(chain)
	chain = gwmw.CORS(gwmw.DefaultCORSConfig())(chain)
	chain = pkgmw.RequestID(chain)

	return chain
}
