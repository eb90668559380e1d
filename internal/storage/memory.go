package storage

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/textmine/knowledge-extractor/pkg/errors"
)

// MemoryStore keeps analyses in a mutex-guarded slice. It backs local
// development and tests; semantics mirror PostgresStore (case-insensitive
// containment search, newest first).
type MemoryStore struct {
	mu   sync.RWMutex
	rows []Analysis
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Insert stores a copy of the analysis, assigning a UUID and timestamp.
func (s *MemoryStore) Insert(ctx context.Context, a *Analysis) (*Analysis, error) {
	saved := *a
	if saved.ID == "" {
		saved.ID = uuid.NewString()
	}
	if saved.CreatedAt.IsZero() {
		saved.CreatedAt = time.Now().UTC()
	}
	s.mu.Lock()
	s.rows = append(s.rows, saved)
	s.mu.Unlock()
	return &saved, nil
}

// GetByID returns the analysis with the given ID.
func (s *MemoryStore) GetByID(ctx context.Context, id string) (*Analysis, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.rows {
		if s.rows[i].ID == id {
			a := s.rows[i]
			return &a, nil
		}
	}
	return nil, apperrors.ErrAnalysisNotFound
}

// SearchByTerm returns analyses whose topics or keywords contain the term,
// newest first.
func (s *MemoryStore) SearchByTerm(ctx context.Context, term string, limit int) ([]Analysis, error) {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return s.Recent(ctx, limit)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	var results []Analysis
	for i := len(s.rows) - 1; i >= 0 && len(results) < limit; i-- {
		if containsTerm(s.rows[i].Topics, term) || containsTerm(s.rows[i].Keywords, term) {
			results = append(results, s.rows[i])
		}
	}
	return results, nil
}

// Recent returns the newest analyses up to limit.
func (s *MemoryStore) Recent(ctx context.Context, limit int) ([]Analysis, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var results []Analysis
	for i := len(s.rows) - 1; i >= 0 && len(results) < limit; i-- {
		results = append(results, s.rows[i])
	}
	return results, nil
}

// Len returns the number of stored analyses.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}

func containsTerm(values []string, term string) bool {
	for _, v := range values {
		if strings.ToLower(v) == term {
			return true
		}
	}
	return false
}
