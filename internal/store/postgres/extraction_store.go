package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cyoung/polydata/internal/domain"
)

// ExtractionStore implements domain.ExtractionStore using PostgreSQL.
type ExtractionStore struct {
	pool *pgxpool.Pool
}

// NewExtractionStore creates an ExtractionStore backed by the given pool.
func NewExtractionStore(pool *pgxpool.Pool) *ExtractionStore {
	return &ExtractionStore{pool: pool}
}

// RecordRun archives one extraction run. Re-recording the same run id
// updates the counts and finish time.
func (s *ExtractionStore) RecordRun(ctx context.Context, run domain.ExtractionRun) error {
	const query = `
		INSERT INTO extraction_runs (
			id, kind, locator, interval, start_ts, end_ts,
			succeeded, failed, skipped, started_at, finished_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			succeeded = EXCLUDED.succeeded,
			failed = EXCLUDED.failed,
			skipped = EXCLUDED.skipped,
			finished_at = EXCLUDED.finished_at`
	if _, err := s.pool.Exec(ctx, query,
		run.ID, string(run.Kind), run.Locator, string(run.Interval),
		run.StartTs, run.EndTs,
		run.Succeeded, run.Failed, run.Skipped,
		run.StartedAt, run.FinishedAt,
	); err != nil {
		return fmt.Errorf("postgres: record run %s: %w", run.ID, err)
	}
	return nil
}

// RecordMarketResults archives per-market outcomes for a run using a pgx
// batch. Duplicate (run, market) pairs are overwritten.
func (s *ExtractionStore) RecordMarketResults(ctx context.Context, results []domain.ExtractionMarketResult) error {
	if len(results) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	const query = `
		INSERT INTO extraction_market_results (run_id, market_slug, outcome, points, reason)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (run_id, market_slug) DO UPDATE SET
			outcome = EXCLUDED.outcome,
			points = EXCLUDED.points,
			reason = EXCLUDED.reason`
	for _, r := range results {
		batch.Queue(query, r.RunID, r.MarketSlug, r.Outcome, r.Points, r.Reason)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := range results {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("postgres: record market result %d: %w", i, err)
		}
	}
	return nil
}

// ListRecentRuns returns the most recent extraction runs, newest first.
func (s *ExtractionStore) ListRecentRuns(ctx context.Context, limit int) ([]domain.ExtractionRun, error) {
	if limit <= 0 {
		limit = 20
	}
	const query = `
		SELECT id, kind, locator, interval, start_ts, end_ts,
			succeeded, failed, skipped, started_at, finished_at
		FROM extraction_runs
		ORDER BY started_at DESC
		LIMIT $1`
	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list recent runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.ExtractionRun
	for rows.Next() {
		var (
			run      domain.ExtractionRun
			kind     string
			interval string
		)
		if err := rows.Scan(
			&run.ID, &kind, &run.Locator, &interval,
			&run.StartTs, &run.EndTs,
			&run.Succeeded, &run.Failed, &run.Skipped,
			&run.StartedAt, &run.FinishedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan run: %w", err)
		}
		run.Kind = domain.RunKind(kind)
		run.Interval = domain.TimeInterval(interval)
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list recent runs: %w", err)
	}
	return runs, nil
}

// Compile-time interface check.
var _ domain.ExtractionStore = (*ExtractionStore)(nil)
