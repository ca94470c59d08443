package series

import (
	"fmt"
	"strings"

	"github.com/cyoung/polydata/internal/domain"
)

// maxSlugPrefix bounds how much of a slug is used as a column prefix when
// no better label is available.
const maxSlugPrefix = 20

// ColumnPrefix derives a short label for a market's columns. It prefers the
// market's group item title (lowercased, spaces mapped to underscores), then
// the slug token following "will" ("will-liverpool-win" becomes "liverpool"),
// and finally the slug truncated to maxSlugPrefix.
func ColumnPrefix(m *domain.Market) string {
	if m.GroupItemTitle != "" {
		return strings.ReplaceAll(strings.ToLower(m.GroupItemTitle), " ", "_")
	}
	parts := strings.Split(m.Slug, "-")
	for i, p := range parts {
		if p == "will" {
			if i+1 < len(parts) {
				return parts[i+1]
			}
			break
		}
	}
	if len(m.Slug) > maxSlugPrefix {
		return m.Slug[:maxSlugPrefix]
	}
	return m.Slug
}

func historiesToSeries(data *domain.MarketHistoricalData, prefix string) []Series {
	var out []Series
	for _, outcome := range data.Market.Outcomes {
		h, ok := data.Histories[outcome]
		if !ok || len(h.Points) == 0 {
			continue
		}
		name := strings.ToLower(outcome) + "_price"
		if prefix != "" {
			name = fmt.Sprintf("%s_%s", prefix, strings.ToLower(outcome))
		}
		s := Series{Name: name}
		for _, p := range h.Points {
			s.Times = append(s.Times, p.Timestamp)
			s.Values = append(s.Values, p.Price)
		}
		out = append(out, s)
	}
	return out
}

// MergeHistories aligns a single market's per-outcome histories into one
// frame with "<outcome>_price" columns.
func MergeHistories(data *domain.MarketHistoricalData) *Frame {
	return Merge(historiesToSeries(data, ""))
}

func eventSeries(data *domain.EventHistoricalData) []Series {
	var inputs []Series
	for _, m := range data.Event.Markets {
		md, ok := data.MarketData[m.Slug]
		if !ok || md == nil {
			continue
		}
		inputs = append(inputs, historiesToSeries(md, ColumnPrefix(&md.Market))...)
	}
	return inputs
}

// MergeEvent aligns every market of an event into a single frame. Columns
// are named "<prefix>_<outcome>" with the prefix derived per market.
func MergeEvent(data *domain.EventHistoricalData) *Frame {
	return Merge(eventSeries(data))
}

// EventRows streams the merged event frame row by row, for exports too
// large to hold in memory. The rows match MergeEvent exactly.
func EventRows(data *domain.EventHistoricalData) *RowIter {
	return NewRowIter(eventSeries(data))
}
