// Package resolver turns market and event locators into fully populated
// domain objects, consulting the CLOB and Gamma APIs in order and caching
// successful resolutions.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cyoung/polydata/internal/domain"
	"github.com/cyoung/polydata/internal/locator"
)

// Resolution is the outcome of resolving a locator. Exactly one of Market
// and Event is set, matching the locator kind.
type Resolution struct {
	Kind   locator.Kind
	Market *domain.Market
	Event  *domain.Event
}

// Service resolves slugs against ordered market sources with an event
// source for event locators. A nil cache disables caching.
type Service struct {
	markets []domain.MarketSource
	events  domain.EventSource
	cache   domain.ResolutionCache
	logger  *slog.Logger
}

// New builds a resolver. Market sources are consulted in order; the first
// that finds the slug wins. Later sources are only tried on ErrNotFound,
// never on transport failures.
func New(markets []domain.MarketSource, events domain.EventSource, cache domain.ResolutionCache, logger *slog.Logger) *Service {
	return &Service{
		markets: markets,
		events:  events,
		cache:   cache,
		logger:  logger.With("component", "resolver"),
	}
}

// Market resolves a market slug. Sources are tried in order; a source
// answering ErrNotFound falls through to the next, any other error stops
// the chain.
func (s *Service) Market(ctx context.Context, slug string) (*domain.Market, error) {
	if s.cache != nil {
		if m, err := s.cache.GetMarket(ctx, slug); err == nil {
			s.logger.Debug("market resolved from cache", "slug", slug)
			return &m, nil
		}
	}
	var lastErr error
	for _, src := range s.markets {
		m, err := src.FindMarketBySlug(ctx, slug)
		if err == nil {
			if s.cache != nil {
				if cerr := s.cache.SetMarket(ctx, *m); cerr != nil {
					s.logger.Warn("market cache write failed", "slug", slug, "error", cerr)
				}
			}
			return m, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("resolver: market %q: %w", slug, domain.ErrNotFound)
	}
	return nil, lastErr
}

// InvalidateMarket drops any cached resolution for slug so the next lookup
// hits the live APIs. With no cache configured it is a no-op.
func (s *Service) InvalidateMarket(ctx context.Context, slug string) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.InvalidateMarket(ctx, slug)
}

// SearchMarkets queries every source and merges the results, deduplicating
// by slug in first-seen order and truncating to limit. A source failing is
// logged and skipped so one degraded API does not empty the results.
func (s *Service) SearchMarkets(ctx context.Context, query string, limit int) ([]domain.Market, error) {
	if limit <= 0 {
		limit = 10
	}
	seen := make(map[string]struct{})
	var merged []domain.Market
	var lastErr error
	for _, src := range s.markets {
		results, err := src.SearchMarkets(ctx, query, limit)
		if err != nil {
			s.logger.Warn("search source failed", "query", query, "error", err)
			lastErr = err
			continue
		}
		for _, m := range results {
			if _, ok := seen[m.Slug]; ok {
				continue
			}
			seen[m.Slug] = struct{}{}
			merged = append(merged, m)
		}
	}
	if len(merged) == 0 && lastErr != nil {
		return nil, fmt.Errorf("resolver: search %q: %w", query, lastErr)
	}
	if len(merged) > limit {
		merged = merged[:limit]
	}
	return merged, nil
}

// Event resolves an event slug with its nested markets.
func (s *Service) Event(ctx context.Context, slug string) (*domain.Event, error) {
	if s.cache != nil {
		if ev, err := s.cache.GetEvent(ctx, slug); err == nil {
			s.logger.Debug("event resolved from cache", "slug", slug)
			return &ev, nil
		}
	}
	ev, err := s.events.GetEventBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if cerr := s.cache.SetEvent(ctx, *ev); cerr != nil {
			s.logger.Warn("event cache write failed", "slug", slug, "error", cerr)
		}
	}
	return ev, nil
}

// Resolve dispatches a parsed locator to the matching resolution path.
func (s *Service) Resolve(ctx context.Context, ref locator.Ref) (*Resolution, error) {
	switch ref.Kind {
	case locator.KindMarket:
		m, err := s.Market(ctx, ref.Slug())
		if err != nil {
			return nil, err
		}
		return &Resolution{Kind: ref.Kind, Market: m}, nil
	case locator.KindEvent:
		ev, err := s.Event(ctx, ref.Slug())
		if err != nil {
			return nil, err
		}
		return &Resolution{Kind: ref.Kind, Event: ev}, nil
	default:
		return nil, fmt.Errorf("resolver: locator kind %q: %w", ref.Kind, domain.ErrInvalidLocator)
	}
}
