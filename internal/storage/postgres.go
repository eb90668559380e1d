package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lib/pq"
	apperrors "github.com/textmine/knowledge-extractor/pkg/errors"
	"github.com/textmine/knowledge-extractor/pkg/postgres"
)

// PostgresStore persists analyses in PostgreSQL.
//
// It requires an `analyses` table:
//
//	CREATE TABLE analyses (
//	    id          UUID PRIMARY KEY DEFAULT gen_random_uuid(),
//	    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
//	    text        TEXT NOT NULL,
//	    title       TEXT,
//	    summary     TEXT NOT NULL,
//	    topics      TEXT[] NOT NULL,
//	    sentiment   TEXT NOT NULL,
//	    keywords    TEXT[] NOT NULL,
//	    confidence  DOUBLE PRECISION NOT NULL
//	);
//	CREATE INDEX analyses_topics_idx ON analyses USING GIN (topics);
//	CREATE INDEX analyses_keywords_idx ON analyses USING GIN (keywords);
type PostgresStore struct {
	db     *postgres.Client
	logger *slog.Logger
}

// NewPostgresStore creates a PostgreSQL-backed analysis store.
func NewPostgresStore(db *postgres.Client) *PostgresStore {
	return &PostgresStore{
		db:     db,
		logger: slog.Default().With("component", "postgres-store"),
	}
}

const analysisColumns = `id, created_at, text, title, summary, topics, sentiment, keywords, confidence`

// Insert persists the analysis and fills in the generated ID and timestamp.
func (s *PostgresStore) Insert(ctx context.Context, a *Analysis) (*Analysis, error) {
	saved := *a
	err := s.db.DB.QueryRowContext(ctx,
		`INSERT INTO analyses (text, title, summary, topics, sentiment, keywords, confidence)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at`,
		a.Text, nullableString(a.Title), a.Summary, pq.Array(a.Topics),
		a.Sentiment, pq.Array(a.Keywords), a.Confidence,
	).Scan(&saved.ID, &saved.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("inserting analysis: %w", err)
	}
	s.logger.Debug("analysis persisted", "id", saved.ID)
	return &saved, nil
}

// GetByID loads a single analysis by its UUID.
func (s *PostgresStore) GetByID(ctx context.Context, id string) (*Analysis, error) {
	row := s.db.DB.QueryRowContext(ctx,
		`SELECT `+analysisColumns+` FROM analyses WHERE id = $1`, id)
	a, err := scanAnalysis(row)
	if err == sql.ErrNoRows {
		return nil, apperrors.ErrAnalysisNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying analysis %s: %w", id, err)
	}
	return a, nil
}

// SearchByTerm returns analyses whose topics or keywords arrays contain the
// lowercased term, newest first.
func (s *PostgresStore) SearchByTerm(ctx context.Context, term string, limit int) ([]Analysis, error) {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return s.Recent(ctx, limit)
	}
	rows, err := s.db.DB.QueryContext(ctx,
		`SELECT `+analysisColumns+` FROM analyses
		 WHERE $1 = ANY(topics) OR $1 = ANY(keywords)
		 ORDER BY created_at DESC
		 LIMIT $2`,
		term, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("searching analyses for %q: %w", term, err)
	}
	return collectAnalyses(rows)
}

// Recent returns the newest analyses up to limit.
func (s *PostgresStore) Recent(ctx context.Context, limit int) ([]Analysis, error) {
	rows, err := s.db.DB.QueryContext(ctx,
		`SELECT `+analysisColumns+` FROM analyses ORDER BY created_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing recent analyses: %w", err)
	}
	return collectAnalyses(rows)
}

// rowScanner abstracts *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanAnalysis(row rowScanner) (*Analysis, error) {
	var a Analysis
	var title sql.NullString
	err := row.Scan(
		&a.ID, &a.CreatedAt, &a.Text, &title, &a.Summary,
		pq.Array(&a.Topics), &a.Sentiment, pq.Array(&a.Keywords), &a.Confidence,
	)
	if err != nil {
		return nil, err
	}
	if title.Valid {
		a.Title = &title.String
	}
	return &a, nil
}

func collectAnalyses(rows *sql.Rows) ([]Analysis, error) {
	defer rows.Close()
	var results []Analysis
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning analysis row: %w", err)
		}
		results = append(results, *a)
	}
	return results, rows.Err()
}

// nullableString converts an optional title to a sql.NullString, treating
// nil and the empty string as NULL.
func nullableString(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
