package domain

import "context"

// MarketSource is the capability shared by the two market-bearing upstream
// APIs. The unified resolver depends on this interface rather than the
// concrete CLOB/Gamma clients so that either can be substituted in tests.
type MarketSource interface {
	// FindMarketBySlug returns the market with the given slug, or ErrNotFound.
	FindMarketBySlug(ctx context.Context, slug string) (*Market, error)
	// SearchMarkets returns up to limit markets whose question or slug
	// contains query (case-insensitive).
	SearchMarkets(ctx context.Context, query string, limit int) ([]Market, error)
}

// EventSource resolves events. Only the metadata API has an event concept.
type EventSource interface {
	GetEventBySlug(ctx context.Context, slug string) (*Event, error)
}

// HistorySource fetches the raw price series for one outcome token over a
// half-open time range [startTs, endTs). It returns ErrWindowTooLong when the
// upstream rejects the span; an empty slice with a nil error means the request
// succeeded but no data exists.
type HistorySource interface {
	PriceHistory(ctx context.Context, tokenID string, interval TimeInterval, startTs, endTs int64) ([]PricePoint, error)
}
