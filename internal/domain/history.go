package domain

import (
	"fmt"
	"time"
)

// TimeInterval is the granularity of a price-history request.
type TimeInterval string

const (
	IntervalOneMinute TimeInterval = "1m"
	IntervalOneHour   TimeInterval = "1h"
	IntervalSixHours  TimeInterval = "6h"
	IntervalOneDay    TimeInterval = "1d"
	IntervalOneWeek   TimeInterval = "1w"
	IntervalMax       TimeInterval = "max"
)

// ParseInterval converts a user-supplied interval string to a TimeInterval.
func ParseInterval(s string) (TimeInterval, error) {
	switch TimeInterval(s) {
	case IntervalOneMinute, IntervalOneHour, IntervalSixHours,
		IntervalOneDay, IntervalOneWeek, IntervalMax:
		return TimeInterval(s), nil
	}
	return "", fmt.Errorf("invalid time interval %q", s)
}

// PricePoint is a single (timestamp, price) observation. Prices are
// prediction-market share prices, conceptually in [0,1]; the upstream value
// is trusted as-is.
type PricePoint struct {
	Timestamp time.Time
	Price     float64
}

// PriceHistory is one outcome's time-ordered price series. Points are in
// non-decreasing timestamp order as delivered by the API; duplicates are
// allowed when the source repeats a timestamp.
type PriceHistory struct {
	TokenID  string
	Outcome  string
	Interval TimeInterval
	Points   []PricePoint
}

// LatestPrice returns the most recent price, if any.
func (h *PriceHistory) LatestPrice() (float64, bool) {
	if len(h.Points) == 0 {
		return 0, false
	}
	return h.Points[len(h.Points)-1].Price, true
}

// OldestPrice returns the earliest price, if any.
func (h *PriceHistory) OldestPrice() (float64, bool) {
	if len(h.Points) == 0 {
		return 0, false
	}
	return h.Points[0].Price, true
}

// PriceChange returns the absolute change from oldest to latest price.
// It requires at least two points.
func (h *PriceHistory) PriceChange() (float64, bool) {
	if len(h.Points) < 2 {
		return 0, false
	}
	return h.Points[len(h.Points)-1].Price - h.Points[0].Price, true
}

// PriceChangePercent returns the change as a percentage of the oldest price.
func (h *PriceHistory) PriceChangePercent() (float64, bool) {
	change, ok := h.PriceChange()
	if !ok {
		return 0, false
	}
	oldest, _ := h.OldestPrice()
	if oldest == 0 {
		return 0, false
	}
	return change / oldest * 100, true
}

// Len returns the number of data points.
func (h *PriceHistory) Len() int { return len(h.Points) }

// MarketHistoricalData is one market plus the price history of each outcome.
type MarketHistoricalData struct {
	Market      Market
	Histories   map[string]PriceHistory // keyed by outcome name
	ExtractedAt time.Time
}

// HasData reports whether any outcome produced at least one price point.
func (d *MarketHistoricalData) HasData() bool {
	for _, h := range d.Histories {
		if len(h.Points) > 0 {
			return true
		}
	}
	return false
}

// EventHistoricalData accumulates per-market historical data during event
// extraction. MarketData is mutated incrementally as each market completes,
// keyed by market slug.
type EventHistoricalData struct {
	Event       Event
	MarketData  map[string]*MarketHistoricalData
	ExtractedAt time.Time
}

// NewEventHistoricalData prepares an empty accumulator for the given event.
func NewEventHistoricalData(event Event) *EventHistoricalData {
	return &EventHistoricalData{
		Event:       event,
		MarketData:  make(map[string]*MarketHistoricalData),
		ExtractedAt: time.Now(),
	}
}

// TotalMarkets returns the number of markets that produced data.
func (d *EventHistoricalData) TotalMarkets() int { return len(d.MarketData) }

// HasData reports whether at least one market produced price points.
func (d *EventHistoricalData) HasData() bool {
	for _, md := range d.MarketData {
		if md.HasData() {
			return true
		}
	}
	return false
}
