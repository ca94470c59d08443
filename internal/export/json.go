package export

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/cyoung/polydata/internal/domain"
)

type jsonPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Price     float64   `json:"price"`
}

type jsonHistory struct {
	TokenID  string      `json:"token_id"`
	Interval string      `json:"interval"`
	Points   []jsonPoint `json:"points"`
}

type jsonMarket struct {
	Slug        string                 `json:"slug"`
	Question    string                 `json:"question"`
	ConditionID string                 `json:"condition_id"`
	ExtractedAt time.Time              `json:"extracted_at"`
	Histories   map[string]jsonHistory `json:"histories"`
}

func marketToJSON(data *domain.MarketHistoricalData) jsonMarket {
	out := jsonMarket{
		Slug:        data.Market.Slug,
		Question:    data.Market.Question,
		ConditionID: data.Market.ConditionID,
		ExtractedAt: data.ExtractedAt.UTC(),
		Histories:   make(map[string]jsonHistory, len(data.Histories)),
	}
	for outcome, h := range data.Histories {
		jh := jsonHistory{TokenID: h.TokenID, Interval: string(h.Interval)}
		for _, p := range h.Points {
			jh.Points = append(jh.Points, jsonPoint{Timestamp: p.Timestamp.UTC(), Price: p.Price})
		}
		out.Histories[outcome] = jh
	}
	return out
}

// WriteMarketJSON writes a single market's raw per-outcome histories as
// indented JSON.
func WriteMarketJSON(w io.Writer, data *domain.MarketHistoricalData) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(marketToJSON(data)); err != nil {
		return fmt.Errorf("export: encode market json: %w", err)
	}
	return nil
}

type jsonEvent struct {
	Slug        string                `json:"slug"`
	Title       string                `json:"title"`
	ExtractedAt time.Time             `json:"extracted_at"`
	Markets     map[string]jsonMarket `json:"markets"`
}

// WriteEventJSON writes an event's per-market histories as indented JSON.
func WriteEventJSON(w io.Writer, data *domain.EventHistoricalData) error {
	out := jsonEvent{
		Slug:        data.Event.Slug,
		Title:       data.Event.Title,
		ExtractedAt: data.ExtractedAt.UTC(),
		Markets:     make(map[string]jsonMarket, len(data.MarketData)),
	}
	for slug, md := range data.MarketData {
		out.Markets[slug] = marketToJSON(md)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("export: encode event json: %w", err)
	}
	return nil
}
