// Package middleware provides the gateway's HTTP middleware: API-key
// authentication, CORS, and per-key rate limiting.
package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/textmine/knowledge-extractor/internal/auth/apikey"
)

type keyInfoCtx struct{}

// Auth validates the API key carried by the request and stores the resolved
// KeyInfo in the context for downstream middleware. Keys are accepted as
// Authorization: Bearer, X-API-Key header, or api_key query parameter, in
// that order. Health endpoints are exempt.
func Auth(validator *apikey.Validator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isHealthPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			raw := presentedKey(r)
			if raw == "" {
				writeError(w, http.StatusUnauthorized, "missing api key")
				return
			}

			info, err := validator.Validate(r.Context(), raw)
			switch {
			case err == nil:
				ctx := context.WithValue(r.Context(), keyInfoCtx{}, info)
				next.ServeHTTP(w, r.WithContext(ctx))
			case errors.Is(err, apikey.ErrInvalidKey):
				writeError(w, http.StatusUnauthorized, "invalid api key")
			case errors.Is(err, apikey.ErrExpiredKey):
				writeError(w, http.StatusUnauthorized, "expired api key")
			default:
				writeError(w, http.StatusInternalServerError, "authentication error")
			}
		})
	}
}

// GetKeyInfo returns the KeyInfo stored by Auth, or nil on unauthenticated
// paths.
func GetKeyInfo(ctx context.Context) *apikey.KeyInfo {
	info, _ := ctx.Value(keyInfoCtx{}).(*apikey.KeyInfo)
	return info
}

func isHealthPath(path string) bool {
	return path == "/health" || strings.HasPrefix(path, "/health/")
}

func presentedKey(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	if key := r.Header.Get("X-API-Key"); key != "" {
		return key
	}
	return r.URL.Query().Get("api_key")
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
