package domain

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// OrderLevel is a single price level in an order book. Prices and sizes use
// decimal arithmetic: spread and notional math must not accumulate binary
// floating-point drift.
type OrderLevel struct {
	Price decimal.Decimal
	Size  decimal.Decimal
}

// Notional returns price * size for the level.
func (l OrderLevel) Notional() decimal.Decimal {
	return l.Price.Mul(l.Size)
}

// OrderBook holds the bid and ask sides for one outcome token. Bids are kept
// sorted descending by price and asks ascending; NewOrderBook establishes the
// ordering once and nothing re-sorts afterwards.
type OrderBook struct {
	MarketID  string
	TokenID   string
	Outcome   string
	Bids      []OrderLevel
	Asks      []OrderLevel
	Timestamp time.Time
}

// NewOrderBook builds an OrderBook from raw levels, sorting both sides
// unconditionally regardless of input order.
func NewOrderBook(marketID, tokenID, outcome string, bids, asks []OrderLevel) *OrderBook {
	b := append([]OrderLevel(nil), bids...)
	a := append([]OrderLevel(nil), asks...)
	sort.Slice(b, func(i, j int) bool { return b[i].Price.GreaterThan(b[j].Price) })
	sort.Slice(a, func(i, j int) bool { return a[i].Price.LessThan(a[j].Price) })
	return &OrderBook{
		MarketID:  marketID,
		TokenID:   tokenID,
		Outcome:   outcome,
		Bids:      b,
		Asks:      a,
		Timestamp: time.Now(),
	}
}

// BestBid returns the highest bid, if any.
func (b *OrderBook) BestBid() (OrderLevel, bool) {
	if len(b.Bids) == 0 {
		return OrderLevel{}, false
	}
	return b.Bids[0], true
}

// BestAsk returns the lowest ask, if any.
func (b *OrderBook) BestAsk() (OrderLevel, bool) {
	if len(b.Asks) == 0 {
		return OrderLevel{}, false
	}
	return b.Asks[0], true
}

// Mid returns (best bid + best ask) / 2. Absent when either side is empty.
func (b *OrderBook) Mid() (decimal.Decimal, bool) {
	bid, okB := b.BestBid()
	ask, okA := b.BestAsk()
	if !okB || !okA {
		return decimal.Decimal{}, false
	}
	return bid.Price.Add(ask.Price).Div(decimal.NewFromInt(2)), true
}

// Spread returns best ask minus best bid. Absent when either side is empty.
func (b *OrderBook) Spread() (decimal.Decimal, bool) {
	bid, okB := b.BestBid()
	ask, okA := b.BestAsk()
	if !okB || !okA {
		return decimal.Decimal{}, false
	}
	return ask.Price.Sub(bid.Price), true
}

// SpreadPercent returns the spread as a percentage of the mid price.
func (b *OrderBook) SpreadPercent() (decimal.Decimal, bool) {
	spread, okS := b.Spread()
	mid, okM := b.Mid()
	if !okS || !okM || mid.IsZero() {
		return decimal.Decimal{}, false
	}
	return spread.Div(mid).Mul(decimal.NewFromInt(100)), true
}

// Depth returns up to n levels per side.
func (b *OrderBook) Depth(n int) (bids, asks []OrderLevel) {
	if n > len(b.Bids) {
		bids = b.Bids
	} else {
		bids = b.Bids[:n]
	}
	if n > len(b.Asks) {
		asks = b.Asks
	} else {
		asks = b.Asks[:n]
	}
	return bids, asks
}

// DepthSummary is the cumulative size on each side within a price band
// around the mid.
type DepthSummary struct {
	BidDepth decimal.Decimal
	AskDepth decimal.Decimal
}

// Total returns the combined depth of both sides.
func (d DepthSummary) Total() decimal.Decimal {
	return d.BidDepth.Add(d.AskDepth)
}

// CumulativeDepth sums level sizes within priceRange of the mid on each side.
// A book with an empty side has no mid and reports zero depth.
func (b *OrderBook) CumulativeDepth(priceRange decimal.Decimal) DepthSummary {
	mid, ok := b.Mid()
	if !ok {
		return DepthSummary{BidDepth: decimal.Zero, AskDepth: decimal.Zero}
	}

	bidLimit := mid.Sub(priceRange)
	askLimit := mid.Add(priceRange)

	bidDepth := decimal.Zero
	for _, lvl := range b.Bids {
		if lvl.Price.GreaterThanOrEqual(bidLimit) {
			bidDepth = bidDepth.Add(lvl.Size)
		}
	}
	askDepth := decimal.Zero
	for _, lvl := range b.Asks {
		if lvl.Price.LessThanOrEqual(askLimit) {
			askDepth = askDepth.Add(lvl.Size)
		}
	}
	return DepthSummary{BidDepth: bidDepth, AskDepth: askDepth}
}

// ImpactResult describes the simulated fill of a market order walked through
// the book greedily level-by-level.
type ImpactResult struct {
	AveragePrice    decimal.Decimal
	BestPrice       decimal.Decimal
	Slippage        decimal.Decimal
	SlippagePercent decimal.Decimal
	LevelsConsumed  int
	TotalCost       decimal.Decimal
}

// MarketImpact simulates filling size against one side of the book ("buy"
// consumes asks, anything else consumes bids). Insufficient liquidity is a
// valid outcome, reported via ok=false, not an error.
func (b *OrderBook) MarketImpact(size decimal.Decimal, side string) (ImpactResult, bool) {
	levels := b.Bids
	if strings.EqualFold(side, "buy") {
		levels = b.Asks
	}
	if len(levels) == 0 || size.LessThanOrEqual(decimal.Zero) {
		return ImpactResult{}, false
	}

	remaining := size
	totalCost := decimal.Zero
	consumed := 0

	for _, lvl := range levels {
		if remaining.LessThanOrEqual(decimal.Zero) {
			break
		}
		fill := decimal.Min(remaining, lvl.Size)
		totalCost = totalCost.Add(fill.Mul(lvl.Price))
		remaining = remaining.Sub(fill)
		consumed++
	}

	if remaining.GreaterThan(decimal.Zero) {
		return ImpactResult{}, false
	}

	avg := totalCost.Div(size)
	best := levels[0].Price
	slippage := avg.Sub(best).Abs()
	res := ImpactResult{
		AveragePrice:   avg,
		BestPrice:      best,
		Slippage:       slippage,
		LevelsConsumed: consumed,
		TotalCost:      totalCost,
	}
	if !best.IsZero() {
		res.SlippagePercent = slippage.Div(best).Mul(decimal.NewFromInt(100))
	}
	return res, true
}

// MarketOrderBooks groups the per-outcome books of one market.
type MarketOrderBooks struct {
	MarketID  string
	Question  string
	Books     map[string]*OrderBook // keyed by outcome name
	Timestamp time.Time
}

// Spreads returns the spread per outcome; outcomes with an empty side are
// omitted.
func (m *MarketOrderBooks) Spreads() map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(m.Books))
	for outcome, book := range m.Books {
		if s, ok := book.Spread(); ok {
			out[outcome] = s
		}
	}
	return out
}

// MidPrices returns the mid price per outcome; outcomes with an empty side
// are omitted.
func (m *MarketOrderBooks) MidPrices() map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(m.Books))
	for outcome, book := range m.Books {
		if mid, ok := book.Mid(); ok {
			out[outcome] = mid
		}
	}
	return out
}
