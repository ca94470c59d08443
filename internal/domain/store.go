package domain

import (
	"context"
	"time"
)

// RunKind distinguishes single-market extractions from whole-event ones.
type RunKind string

const (
	RunKindMarket RunKind = "market"
	RunKindEvent  RunKind = "event"
)

// ExtractionRun is the archived record of one extraction: what was asked for,
// the effective time window, and how it went.
type ExtractionRun struct {
	ID         string
	Kind       RunKind
	Locator    string
	Interval   TimeInterval
	StartTs    int64
	EndTs      int64
	Succeeded  int
	Failed     int
	Skipped    int
	StartedAt  time.Time
	FinishedAt time.Time
}

// ExtractionMarketResult records the outcome of one market within a run.
type ExtractionMarketResult struct {
	RunID      string
	MarketSlug string
	Outcome    string // "ok", "no_data", "skipped", "failed"
	Points     int
	Reason     string
}

// ExtractionStore archives extraction runs. The archive is optional; the CLI
// wires it only when configured, and the core never depends on it succeeding.
type ExtractionStore interface {
	RecordRun(ctx context.Context, run ExtractionRun) error
	RecordMarketResults(ctx context.Context, results []ExtractionMarketResult) error
	ListRecentRuns(ctx context.Context, limit int) ([]ExtractionRun, error)
}
