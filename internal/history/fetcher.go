// Package history fetches price series for market outcome tokens, narrowing
// the requested window when the API rejects it as too long for the chosen
// fidelity.
package history

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cyoung/polydata/internal/domain"
)

// DefaultMaxNarrowings caps the total fetch attempts for one token; a
// rejected window is halved between attempts.
const DefaultMaxNarrowings = 3

// Window is a half-open unix-seconds time range [Start, End).
type Window struct {
	Start int64
	End   int64
}

// Span is the window length in seconds.
func (w Window) Span() int64 {
	return w.End - w.Start
}

// Narrow halves the window while keeping the end anchored, so the most
// recent half of the data is preserved.
func (w Window) Narrow() Window {
	return Window{Start: w.End - w.Span()/2, End: w.End}
}

// WindowFromDates builds a window from market start/end dates, falling back
// to daysBack before now when a date is missing. The end is clamped to now.
func WindowFromDates(start, end *time.Time, daysBack int, now time.Time) Window {
	w := Window{End: now.Unix()}
	if end != nil && end.Before(now) {
		w.End = end.Unix()
	}
	if start != nil {
		w.Start = start.Unix()
	} else {
		if daysBack <= 0 {
			daysBack = 30
		}
		w.Start = w.End - int64(daysBack)*86400
	}
	if w.Start >= w.End {
		w.Start = w.End - 86400
	}
	return w
}

// Fetcher pulls price history per token with bounded narrowing retries.
type Fetcher struct {
	source        domain.HistorySource
	maxNarrowings int
	logger        *slog.Logger
}

// NewFetcher builds a fetcher over a history source. maxNarrowings <= 0
// selects the default.
func NewFetcher(source domain.HistorySource, maxNarrowings int, logger *slog.Logger) *Fetcher {
	if maxNarrowings <= 0 {
		maxNarrowings = DefaultMaxNarrowings
	}
	return &Fetcher{
		source:        source,
		maxNarrowings: maxNarrowings,
		logger:        logger.With("component", "history"),
	}
}

// FetchToken fetches one token's series over the window, halving the window
// toward its end each time the API rejects it as too long. When the window
// is still rejected on the final attempt the rejection is returned, so the
// caller records the token's market as failed rather than empty. An accepted
// window with no points is the only "no data" outcome.
func (f *Fetcher) FetchToken(ctx context.Context, tokenID string, interval domain.TimeInterval, w Window) ([]domain.PricePoint, error) {
	for attempt := 1; ; attempt++ {
		points, err := f.source.PriceHistory(ctx, tokenID, interval, w.Start, w.End)
		if err == nil {
			return points, nil
		}
		if !errors.Is(err, domain.ErrWindowTooLong) {
			return nil, err
		}
		if attempt >= f.maxNarrowings {
			f.logger.Warn("window still too long after narrowing",
				"token_id", tokenID, "interval", interval,
				"start_ts", w.Start, "end_ts", w.End)
			return nil, err
		}
		next := w.Narrow()
		f.logger.Debug("narrowing history window",
			"token_id", tokenID, "attempt", attempt,
			"old_span_s", w.Span(), "new_span_s", next.Span())
		w = next
	}
}

// FetchMarket fetches series for every tradeable outcome token of a market
// and assembles them keyed by outcome name. Markets with no tradeable
// tokens yield data with an empty history map.
func (f *Fetcher) FetchMarket(ctx context.Context, market *domain.Market, interval domain.TimeInterval, w Window) (*domain.MarketHistoricalData, error) {
	data := &domain.MarketHistoricalData{
		Market:      *market,
		Histories:   make(map[string]domain.PriceHistory, len(market.Outcomes)),
		ExtractedAt: time.Now().UTC(),
	}
	for i, tokenID := range market.TokenIDs {
		if tokenID == "" {
			continue
		}
		outcome := market.Outcomes[i]
		points, err := f.FetchToken(ctx, tokenID, interval, w)
		if err != nil {
			return nil, fmt.Errorf("history: %s outcome %q: %w", market.Slug, outcome, err)
		}
		data.Histories[outcome] = domain.PriceHistory{
			TokenID:  tokenID,
			Outcome:  outcome,
			Interval: interval,
			Points:   points,
		}
	}
	return data, nil
}
