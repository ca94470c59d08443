// Package export writes extracted historical data to CSV and JSON, and
// renders per-outcome summaries.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	"github.com/cyoung/polydata/internal/domain"
	"github.com/cyoung/polydata/internal/series"
)

// pricePrecision controls how many decimal places exported prices carry.
const pricePrecision = 4

func formatPrice(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', pricePrecision, 64)
}

func writePreamble(w io.Writer, lines []string) error {
	for _, line := range lines {
		if _, err := fmt.Fprintf(w, "# %s\n", line); err != nil {
			return err
		}
	}
	return nil
}

// WriteMarketCSV writes a single market's merged history as CSV. A comment
// preamble records the market identity and extraction time so the file is
// self-describing.
func WriteMarketCSV(w io.Writer, data *domain.MarketHistoricalData) error {
	frame := series.MergeHistories(data)
	preamble := []string{
		fmt.Sprintf("market: %s", data.Market.Slug),
		fmt.Sprintf("question: %s", data.Market.Question),
		fmt.Sprintf("condition_id: %s", data.Market.ConditionID),
		fmt.Sprintf("extracted_at: %s", data.ExtractedAt.UTC().Format(time.RFC3339)),
		fmt.Sprintf("rows: %d", frame.Len()),
	}
	if err := writePreamble(w, preamble); err != nil {
		return fmt.Errorf("export: write preamble: %w", err)
	}
	return writeFrame(w, frame)
}

func writeFrame(w io.Writer, frame *series.Frame) error {
	cw := csv.NewWriter(w)
	header := append([]string{"timestamp"}, frame.Columns...)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("export: write header: %w", err)
	}
	record := make([]string, len(header))
	for i, ts := range frame.Timestamps {
		record[0] = ts.UTC().Format(time.RFC3339)
		for j, col := range frame.Columns {
			vals, _ := frame.Column(col)
			record[j+1] = formatPrice(vals[i])
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("export: write row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("export: flush: %w", err)
	}
	return nil
}

// WriteEventCSV streams an event's merged history as CSV without holding
// the full merged table in memory.
func WriteEventCSV(w io.Writer, data *domain.EventHistoricalData) error {
	preamble := []string{
		fmt.Sprintf("event: %s", data.Event.Slug),
		fmt.Sprintf("title: %s", data.Event.Title),
		fmt.Sprintf("markets: %d", data.TotalMarkets()),
		fmt.Sprintf("extracted_at: %s", data.ExtractedAt.UTC().Format(time.RFC3339)),
	}
	if err := writePreamble(w, preamble); err != nil {
		return fmt.Errorf("export: write preamble: %w", err)
	}

	it := series.EventRows(data)
	columns := it.Columns()
	cw := csv.NewWriter(w)
	header := append([]string{"timestamp"}, columns...)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("export: write header: %w", err)
	}
	record := make([]string, len(header))
	for {
		row, ok := it.Next()
		if !ok {
			break
		}
		record[0] = row.Timestamp.UTC().Format(time.RFC3339)
		for j, col := range columns {
			if v, present := row.Values[col]; present {
				record[j+1] = formatPrice(v)
			} else {
				record[j+1] = ""
			}
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("export: write row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("export: flush: %w", err)
	}
	return nil
}
