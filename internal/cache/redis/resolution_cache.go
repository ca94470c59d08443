package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cyoung/polydata/internal/domain"
)

// DefaultResolutionTTL bounds how long a resolved market or event stays
// cached before the APIs are consulted again.
const DefaultResolutionTTL = 5 * time.Minute

// ResolutionCache implements domain.ResolutionCache using Redis strings
// with JSON-serialized markets and events.
//
// Key schema:
//
//	market:slug:{slug} - JSON-encoded domain.Market
//	event:slug:{slug}  - JSON-encoded domain.Event
type ResolutionCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewResolutionCache creates a ResolutionCache backed by the given Client.
// A non-positive ttl selects the default.
func NewResolutionCache(c *Client, ttl time.Duration) *ResolutionCache {
	if ttl <= 0 {
		ttl = DefaultResolutionTTL
	}
	return &ResolutionCache{rdb: c.Underlying(), ttl: ttl}
}

func marketSlugKey(slug string) string { return "market:slug:" + slug }
func eventSlugKey(slug string) string  { return "event:slug:" + slug }

// SetMarket stores a resolved market under its slug.
func (rc *ResolutionCache) SetMarket(ctx context.Context, market domain.Market) error {
	data, err := json.Marshal(market)
	if err != nil {
		return fmt.Errorf("redis: marshal market %s: %w", market.Slug, err)
	}
	if err := rc.rdb.Set(ctx, marketSlugKey(market.Slug), data, rc.ttl).Err(); err != nil {
		return fmt.Errorf("redis: set market %s: %w", market.Slug, err)
	}
	return nil
}

// GetMarket retrieves a resolved market by slug.
// It returns domain.ErrNotFound when the slug is not cached.
func (rc *ResolutionCache) GetMarket(ctx context.Context, slug string) (domain.Market, error) {
	data, err := rc.rdb.Get(ctx, marketSlugKey(slug)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.Market{}, domain.ErrNotFound
		}
		return domain.Market{}, fmt.Errorf("redis: get market %s: %w", slug, err)
	}
	var market domain.Market
	if err := json.Unmarshal(data, &market); err != nil {
		return domain.Market{}, fmt.Errorf("redis: unmarshal market %s: %w", slug, err)
	}
	return market, nil
}

// SetEvent stores a resolved event, with its nested markets, under its slug.
func (rc *ResolutionCache) SetEvent(ctx context.Context, event domain.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("redis: marshal event %s: %w", event.Slug, err)
	}
	if err := rc.rdb.Set(ctx, eventSlugKey(event.Slug), data, rc.ttl).Err(); err != nil {
		return fmt.Errorf("redis: set event %s: %w", event.Slug, err)
	}
	return nil
}

// GetEvent retrieves a resolved event by slug.
// It returns domain.ErrNotFound when the slug is not cached.
func (rc *ResolutionCache) GetEvent(ctx context.Context, slug string) (domain.Event, error) {
	data, err := rc.rdb.Get(ctx, eventSlugKey(slug)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.Event{}, domain.ErrNotFound
		}
		return domain.Event{}, fmt.Errorf("redis: get event %s: %w", slug, err)
	}
	var event domain.Event
	if err := json.Unmarshal(data, &event); err != nil {
		return domain.Event{}, fmt.Errorf("redis: unmarshal event %s: %w", slug, err)
	}
	return event, nil
}

// InvalidateMarket removes a cached market resolution.
func (rc *ResolutionCache) InvalidateMarket(ctx context.Context, slug string) error {
	if err := rc.rdb.Del(ctx, marketSlugKey(slug)).Err(); err != nil {
		return fmt.Errorf("redis: invalidate market %s: %w", slug, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.ResolutionCache = (*ResolutionCache)(nil)
