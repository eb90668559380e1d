// Package aggregator provides persistent storage and periodic snapshotting
// of aggregated analytics stats to PostgreSQL.
package aggregator

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/textmine/knowledge-extractor/internal/analytics"
	"github.com/textmine/knowledge-extractor/pkg/postgres"
)

// snapshotTimeout bounds the final save during shutdown.
const snapshotTimeout = 5 * time.Second

// Store persists aggregated analytics snapshots as JSONB rows.
//
// Required schema:
//
//	CREATE TABLE analytics_snapshots (
//	    id          BIGSERIAL PRIMARY KEY,
//	    data        JSONB NOT NULL,
//	    captured_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
//	);
type Store struct {
	db     *postgres.Client
	logger *slog.Logger
}

func NewStore(db *postgres.Client) *Store {
	return &Store{
		db:     db,
		logger: slog.Default().With("component", "analytics-store"),
	}
}

// SaveSnapshot writes one stats snapshot.
func (s *Store) SaveSnapshot(ctx context.Context, stats analytics.AggregatedStats) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("marshaling stats: %w", err)
	}

	const q = `INSERT INTO analytics_snapshots (data, captured_at) VALUES ($1, $2)`
	if _, err := s.db.DB.ExecContext(ctx, q, data, time.Now().UTC()); err != nil {
		return fmt.Errorf("saving analytics snapshot: %w", err)
	}

	s.logger.Info("analytics snapshot saved",
		"total_analyses", stats.TotalAnalyses,
		"total_searches", stats.TotalSearches,
	)
	return nil
}

// LatestSnapshot returns the most recent snapshot, or (nil, nil) when none
// has been saved yet.
func (s *Store) LatestSnapshot(ctx context.Context) (*analytics.AggregatedStats, error) {
	const q = `SELECT data FROM analytics_snapshots ORDER BY captured_at DESC LIMIT 1`

	var data []byte
	switch err := s.db.DB.QueryRowContext(ctx, q).Scan(&data); {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("querying latest snapshot: %w", err)
	}

	stats := new(analytics.AggregatedStats)
	if err := json.Unmarshal(data, stats); err != nil {
		return nil, fmt.Errorf("unmarshaling snapshot: %w", err)
	}
	return stats, nil
}

// ListSnapshots returns up to limit snapshots, newest first. Rows that fail
// to decode are skipped with a warning rather than failing the whole list.
func (s *Store) ListSnapshots(ctx context.Context, limit int) ([]analytics.AggregatedStats, error) {
	const q = `SELECT data FROM analytics_snapshots ORDER BY captured_at DESC LIMIT $1`

	rows, err := s.db.DB.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []analytics.AggregatedStats
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scanning snapshot row: %w", err)
		}
		var stats analytics.AggregatedStats
		if err := json.Unmarshal(data, &stats); err != nil {
			s.logger.Warn("skipping corrupt snapshot", "error", err)
			continue
		}
		snapshots = append(snapshots, stats)
	}
	return snapshots, rows.Err()
}

// StartPeriodicSave snapshots the aggregator every interval until ctx is
// cancelled, then takes one final snapshot so shutdown never loses counters.
func (s *Store) StartPeriodicSave(ctx context.Context, agg *analytics.Aggregator, interval time.Duration) {
	save := func(ctx context.Context, what string) {
		if err := s.SaveSnapshot(ctx, agg.Stats()); err != nil {
			s.logger.Error(what+" snapshot failed", "error", err)
		}
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				save(ctx, "periodic")
			case <-ctx.Done():
				finalCtx, cancel := context.WithTimeout(context.Background(), snapshotTimeout)
				save(finalCtx, "final")
				cancel()
				return
			}
		}
	}()
	s.logger.Info("periodic snapshot started", "interval", interval)
}
