package domain

import "context"

// ResolutionCache provides fast lookups for already-resolved markets and
// events, keyed by slug. Implementations return ErrNotFound on a miss; the
// resolver treats any cache error as a miss and falls through to the APIs.
type ResolutionCache interface {
	SetMarket(ctx context.Context, market Market) error
	GetMarket(ctx context.Context, slug string) (Market, error)
	SetEvent(ctx context.Context, event Event) error
	GetEvent(ctx context.Context, slug string) (Event, error)
	InvalidateMarket(ctx context.Context, slug string) error
}
