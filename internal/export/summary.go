package export

import (
	"fmt"
	"io"
	"sort"

	"github.com/cyoung/polydata/internal/domain"
	"github.com/cyoung/polydata/internal/series"
)

// WriteMarketSummary renders a human-readable per-outcome summary of a
// market's merged history.
func WriteMarketSummary(w io.Writer, data *domain.MarketHistoricalData) error {
	frame := series.MergeHistories(data)
	if _, err := fmt.Fprintf(w, "%s\n  question: %s\n  rows: %d\n",
		data.Market.Slug, data.Market.Question, frame.Len()); err != nil {
		return err
	}
	cols := append([]string(nil), frame.Columns...)
	sort.Strings(cols)
	for _, col := range cols {
		stats, ok := series.ColumnStatistics(frame, col)
		if !ok {
			continue
		}
		if _, err := fmt.Fprintf(w,
			"  %s: last=%.4f min=%.4f max=%.4f mean=%.4f std=%.4f change=%+.4f (%+.2f%%) n=%d\n",
			col, stats.Last, stats.Min, stats.Max, stats.Mean, stats.Std,
			stats.Change(), stats.ChangePercent(), stats.Count); err != nil {
			return err
		}
	}
	return nil
}

// WriteEventSummary renders per-market summaries for an event extraction.
func WriteEventSummary(w io.Writer, data *domain.EventHistoricalData) error {
	if _, err := fmt.Fprintf(w, "%s (%s)\n  markets with data: %d\n",
		data.Event.Slug, data.Event.Title, data.TotalMarkets()); err != nil {
		return err
	}
	slugs := make([]string, 0, len(data.MarketData))
	for slug := range data.MarketData {
		slugs = append(slugs, slug)
	}
	sort.Strings(slugs)
	for _, slug := range slugs {
		if err := WriteMarketSummary(w, data.MarketData[slug]); err != nil {
			return err
		}
	}
	return nil
}
