// Package handler exposes the analyzer's HTTP endpoints: analyze (single or
// batch), list recent analyses, and fetch one by ID.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/textmine/knowledge-extractor/internal/analyzer"
	"github.com/textmine/knowledge-extractor/internal/analyzer/orchestrator"
	"github.com/textmine/knowledge-extractor/internal/analyzer/validator"
	"github.com/textmine/knowledge-extractor/internal/storage"
	apperrors "github.com/textmine/knowledge-extractor/pkg/errors"
	"github.com/textmine/knowledge-extractor/pkg/logger"
)

type Handler struct {
	orchestrator *orchestrator.Orchestrator
	store        storage.Store
	limits       validator.Limits
	listLimit    int
	maxListLimit int
	logger       *slog.Logger
}

func New(o *orchestrator.Orchestrator, store storage.Store, limits validator.Limits, listLimit, maxListLimit int) *Handler {
	if listLimit <= 0 {
		listLimit = 25
	}
	if maxListLimit <= 0 {
		maxListLimit = 100
	}
	return &Handler{
		orchestrator: o,
		store:        store,
		limits:       limits,
		listLimit:    listLimit,
		maxListLimit: maxListLimit,
		logger:       slog.Default().With("component", "analyzer-handler"),
	}
}

// Analyze handles POST /api/v1/analyze.
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	var req analyzer.AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	texts, err := validator.ValidateAnalyzeRequest(&req, h.limits)
	if err != nil {
		var validationErr *validator.ValidationError
		if errors.As(err, &validationErr) {
			h.writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":  "validation failed",
				"fields": validationErr.Fields,
			})
			return
		}
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	results, err := h.orchestrator.AnalyzeBatch(ctx, texts)
	if err != nil {
		statusCode := apperrors.HTTPStatusCode(err)
		log.Error("analysis failed",
			"error", err,
			"status_code", statusCode,
		)
		h.writeError(w, statusCode, "analysis failed")
		return
	}
	log.Info("analyze request served", "texts", len(texts))
	h.writeJSON(w, http.StatusOK, analyzer.AnalyzeResponse{Results: results})
}

// List handles GET /api/v1/analyses?limit=N, newest first. The limit
// defaults to listLimit and is capped at maxListLimit, matching the search
// endpoint's treatment of its limit parameter.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	limit := h.listLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		if parsed > h.maxListLimit {
			parsed = h.maxListLimit
		}
		limit = parsed
	}

	results, err := h.store.Recent(ctx, limit)
	if err != nil {
		logger.FromContext(ctx).Error("listing analyses failed", "error", err)
		h.writeError(w, apperrors.HTTPStatusCode(err), "listing analyses failed")
		return
	}
	if results == nil {
		results = []storage.Analysis{}
	}
	h.writeJSON(w, http.StatusOK, analyzer.ListResponse{Results: results})
}

// Get handles GET /api/v1/analyses/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "analysis id is required")
		return
	}

	result, err := h.store.GetByID(ctx, id)
	if err != nil {
		statusCode := apperrors.HTTPStatusCode(err)
		if !errors.Is(err, apperrors.ErrAnalysisNotFound) {
			logger.FromContext(ctx).Error("fetching analysis failed", "error", err, "id", id)
		}
		h.writeError(w, statusCode, "analysis not found")
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
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
