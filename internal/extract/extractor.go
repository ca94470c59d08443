// Package extract orchestrates end-to-end historical data extraction:
// resolve a locator, fetch per-token price history, and report per-market
// outcomes, with failures isolated so one bad market does not sink an event.
package extract

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"github.com/cyoung/polydata/internal/domain"
	"github.com/cyoung/polydata/internal/history"
	"github.com/cyoung/polydata/internal/locator"
	"github.com/cyoung/polydata/internal/resolver"
)

// DefaultMarketDelay spaces consecutive market fetches within an event to
// stay under the API rate limits.
const DefaultMarketDelay = 500 * time.Millisecond

// Skip reasons recorded for markets excluded before fetching.
const (
	SkipInactiveNegRisk = "inactive_negrisk_option"
	SkipNoTokens        = "no_tradeable_tokens"
)

// MarketReport is the per-market outcome of an extraction.
type MarketReport struct {
	Slug    string
	Outcome string // "ok", "skipped" or "failed"
	Points  int
	Reason  string
}

// Report summarises one extraction run.
type Report struct {
	RunID     string
	Kind      domain.RunKind
	Locator   string
	Interval  domain.TimeInterval
	Window    history.Window
	Markets   []MarketReport
	StartedAt time.Time
	Duration  time.Duration
}

// Counts tallies the per-market outcomes.
func (r *Report) Counts() (succeeded, failed, skipped int) {
	for _, m := range r.Markets {
		switch m.Outcome {
		case "ok":
			succeeded++
		case "failed":
			failed++
		case "skipped":
			skipped++
		}
	}
	return
}

// Options tune a single extraction. StartDate and EndDate, when set,
// override the market's own dates when computing the fetch window.
type Options struct {
	Interval    domain.TimeInterval
	DaysBack    int
	StartDate   *time.Time
	EndDate     *time.Time
	MarketDelay time.Duration
	ReleaseHint bool // hint the runtime to return memory between markets
}

func (o Options) delay() time.Duration {
	if o.MarketDelay > 0 {
		return o.MarketDelay
	}
	return DefaultMarketDelay
}

func (o Options) windowFor(m *domain.Market, now time.Time) history.Window {
	start, end := m.StartDate, m.EndDate
	if o.StartDate != nil {
		start = o.StartDate
	}
	if o.EndDate != nil {
		end = o.EndDate
	}
	return history.WindowFromDates(start, end, o.DaysBack, now)
}

// Extractor wires the resolver and history fetcher into full extraction
// runs, optionally archiving run records.
type Extractor struct {
	resolver *resolver.Service
	fetcher  *history.Fetcher
	store    domain.ExtractionStore
	logger   *slog.Logger
	now      func() time.Time
}

// New builds an extractor. A nil store disables run archiving.
func New(res *resolver.Service, fetcher *history.Fetcher, store domain.ExtractionStore, logger *slog.Logger) *Extractor {
	return &Extractor{
		resolver: res,
		fetcher:  fetcher,
		store:    store,
		logger:   logger.With("component", "extract"),
		now:      time.Now,
	}
}

func classifySkip(m *domain.Market) (string, bool) {
	if m.IsInactiveNegRiskOption() {
		return SkipInactiveNegRisk, true
	}
	if !m.HasTradeableToken() {
		return SkipNoTokens, true
	}
	return "", false
}

// ExtractMarket resolves one market and fetches its full outcome history.
func (e *Extractor) ExtractMarket(ctx context.Context, slug string, opts Options) (*domain.MarketHistoricalData, *Report, error) {
	runID := uuid.NewString()
	started := e.now()
	logger := e.logger.With("run_id", runID, "market", slug)

	logger.Info("resolving market")
	market, err := e.resolver.Market(ctx, slug)
	if err != nil {
		return nil, nil, fmt.Errorf("extract: resolve market %q: %w", slug, err)
	}

	report := &Report{
		RunID:     runID,
		Kind:      domain.RunKindMarket,
		Locator:   slug,
		Interval:  opts.Interval,
		StartedAt: started,
	}
	if reason, skip := classifySkip(market); skip {
		logger.Info("market skipped", "reason", reason)
		report.Markets = append(report.Markets, MarketReport{Slug: market.Slug, Outcome: "skipped", Reason: reason})
		report.Duration = e.now().Sub(started)
		e.archive(ctx, report)
		return nil, report, nil
	}

	window := opts.windowFor(market, e.now())
	report.Window = window

	logger.Info("fetching history",
		"interval", opts.Interval, "start_ts", window.Start, "end_ts", window.End,
		"outcomes", len(market.Outcomes))
	data, err := e.fetcher.FetchMarket(ctx, market, opts.Interval, window)
	if err != nil {
		report.Markets = append(report.Markets, MarketReport{Slug: market.Slug, Outcome: "failed", Reason: err.Error()})
		report.Duration = e.now().Sub(started)
		e.archive(ctx, report)
		return nil, report, fmt.Errorf("extract: market %q: %w", slug, err)
	}

	points := 0
	for _, h := range data.Histories {
		points += h.Len()
	}
	report.Markets = append(report.Markets, MarketReport{Slug: market.Slug, Outcome: "ok", Points: points})
	report.Duration = e.now().Sub(started)
	e.archive(ctx, report)
	logger.Info("market extraction finished", "points", points, "duration", report.Duration)
	return data, report, nil
}

// ExtractEvent resolves an event and fetches history for every eligible
// nested market. Per-market failures are recorded and do not abort the run.
func (e *Extractor) ExtractEvent(ctx context.Context, slug string, opts Options) (*domain.EventHistoricalData, *Report, error) {
	runID := uuid.NewString()
	started := e.now()
	logger := e.logger.With("run_id", runID, "event", slug)

	logger.Info("resolving event")
	event, err := e.resolver.Event(ctx, slug)
	if err != nil {
		return nil, nil, fmt.Errorf("extract: resolve event %q: %w", slug, err)
	}

	report := &Report{
		RunID:     runID,
		Kind:      domain.RunKindEvent,
		Locator:   slug,
		Interval:  opts.Interval,
		StartedAt: started,
	}
	data := domain.NewEventHistoricalData(*event)
	delay := opts.delay()

	logger.Info("fetching event markets", "markets", len(event.Markets))
	fetched := 0
	for i := range event.Markets {
		market := &event.Markets[i]
		if reason, skip := classifySkip(market); skip {
			logger.Debug("market skipped", "market", market.Slug, "reason", reason)
			report.Markets = append(report.Markets, MarketReport{Slug: market.Slug, Outcome: "skipped", Reason: reason})
			continue
		}
		if fetched > 0 {
			if err := sleepCtx(ctx, delay); err != nil {
				return nil, nil, err
			}
		}
		fetched++

		window := opts.windowFor(market, e.now())
		if report.Window.Span() == 0 {
			report.Window = window
		}
		md, err := e.fetcher.FetchMarket(ctx, market, opts.Interval, window)
		if err != nil {
			if ctx.Err() != nil {
				return nil, nil, ctx.Err()
			}
			logger.Warn("market extraction failed", "market", market.Slug, "error", err)
			report.Markets = append(report.Markets, MarketReport{Slug: market.Slug, Outcome: "failed", Reason: err.Error()})
			continue
		}
		points := 0
		for _, h := range md.Histories {
			points += h.Len()
		}
		data.MarketData[market.Slug] = md
		report.Markets = append(report.Markets, MarketReport{Slug: market.Slug, Outcome: "ok", Points: points})

		if opts.ReleaseHint {
			debug.FreeOSMemory()
		}
	}

	report.Duration = e.now().Sub(started)
	e.archive(ctx, report)
	succeeded, failed, skipped := report.Counts()
	logger.Info("event extraction finished",
		"succeeded", succeeded, "failed", failed, "skipped", skipped,
		"duration", report.Duration)
	return data, report, nil
}

func (e *Extractor) archive(ctx context.Context, report *Report) {
	if e.store == nil {
		return
	}
	succeeded, failed, skipped := report.Counts()
	run := domain.ExtractionRun{
		ID:         report.RunID,
		Kind:       report.Kind,
		Locator:    report.Locator,
		Interval:   report.Interval,
		StartTs:    report.Window.Start,
		EndTs:      report.Window.End,
		Succeeded:  succeeded,
		Failed:     failed,
		Skipped:    skipped,
		StartedAt:  report.StartedAt,
		FinishedAt: report.StartedAt.Add(report.Duration),
	}
	if err := e.store.RecordRun(ctx, run); err != nil {
		e.logger.Warn("run archive failed", "run_id", report.RunID, "error", err)
		return
	}
	results := make([]domain.ExtractionMarketResult, 0, len(report.Markets))
	for _, m := range report.Markets {
		results = append(results, domain.ExtractionMarketResult{
			RunID:      report.RunID,
			MarketSlug: m.Slug,
			Outcome:    m.Outcome,
			Points:     m.Points,
			Reason:     m.Reason,
		})
	}
	if err := e.store.RecordMarketResults(ctx, results); err != nil {
		e.logger.Warn("market result archive failed", "run_id", report.RunID, "error", err)
	}
}

// ExtractRef dispatches a parsed locator to the market or event path.
func (e *Extractor) ExtractRef(ctx context.Context, ref locator.Ref, opts Options) (*domain.EventHistoricalData, *domain.MarketHistoricalData, *Report, error) {
	switch ref.Kind {
	case locator.KindMarket:
		md, report, err := e.ExtractMarket(ctx, ref.Slug(), opts)
		return nil, md, report, err
	case locator.KindEvent:
		ed, report, err := e.ExtractEvent(ctx, ref.Slug(), opts)
		return ed, nil, report, err
	default:
		return nil, nil, nil, fmt.Errorf("extract: locator kind %q: %w", ref.Kind, domain.ErrInvalidLocator)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
