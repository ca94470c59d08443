package resolver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/cyoung/polydata/internal/domain"
	"github.com/cyoung/polydata/internal/locator"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeSource implements domain.MarketSource over a fixed market list.
type fakeSource struct {
	markets   []domain.Market
	findErr   error
	searchErr error
	findCalls int
}

func (f *fakeSource) FindMarketBySlug(_ context.Context, slug string) (*domain.Market, error) {
	f.findCalls++
	if f.findErr != nil {
		return nil, f.findErr
	}
	for i := range f.markets {
		if f.markets[i].Slug == slug {
			return &f.markets[i], nil
		}
	}
	return nil, fmt.Errorf("fake: %q: %w", slug, domain.ErrNotFound)
}

func (f *fakeSource) SearchMarkets(_ context.Context, _ string, limit int) ([]domain.Market, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	if len(f.markets) > limit {
		return f.markets[:limit], nil
	}
	return f.markets, nil
}

type fakeEvents struct {
	event *domain.Event
	err   error
}

func (f *fakeEvents) GetEventBySlug(context.Context, string) (*domain.Event, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.event, nil
}

func market(slug string) domain.Market {
	return domain.Market{Slug: slug, Question: "Will " + slug + "?"}
}

func TestMarket_FallsThroughOnNotFound(t *testing.T) {
	primary := &fakeSource{}
	secondary := &fakeSource{markets: []domain.Market{market("found-later")}}
	svc := New([]domain.MarketSource{primary, secondary}, &fakeEvents{}, nil, testLogger())

	m, err := svc.Market(context.Background(), "found-later")
	if err != nil {
		t.Fatalf("Market: %v", err)
	}
	if m.Slug != "found-later" {
		t.Fatalf("resolved %q", m.Slug)
	}
	if primary.findCalls != 1 || secondary.findCalls != 1 {
		t.Fatalf("calls = %d/%d, want 1/1", primary.findCalls, secondary.findCalls)
	}
}

func TestMarket_StopsOnTransportError(t *testing.T) {
	boom := errors.New("connection refused")
	primary := &fakeSource{findErr: boom}
	secondary := &fakeSource{markets: []domain.Market{market("found-later")}}
	svc := New([]domain.MarketSource{primary, secondary}, &fakeEvents{}, nil, testLogger())

	_, err := svc.Market(context.Background(), "found-later")
	if !errors.Is(err, boom) {
		t.Fatalf("expected transport error to stop the chain, got %v", err)
	}
	if secondary.findCalls != 0 {
		t.Fatal("secondary must not be consulted after a transport failure")
	}
}

func TestMarket_NotFoundAnywhere(t *testing.T) {
	svc := New([]domain.MarketSource{&fakeSource{}, &fakeSource{}}, &fakeEvents{}, nil, testLogger())
	if _, err := svc.Market(context.Background(), "nope"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSearchMarkets_DedupesAndTruncates(t *testing.T) {
	primary := &fakeSource{markets: []domain.Market{market("alpha"), market("beta")}}
	secondary := &fakeSource{markets: []domain.Market{market("beta"), market("gamma"), market("delta")}}
	svc := New([]domain.MarketSource{primary, secondary}, &fakeEvents{}, nil, testLogger())

	results, err := svc.SearchMarkets(context.Background(), "whatever", 3)
	if err != nil {
		t.Fatalf("SearchMarkets: %v", err)
	}
	want := []string{"alpha", "beta", "gamma"}
	if len(results) != len(want) {
		t.Fatalf("got %d results, want %d", len(results), len(want))
	}
	for i, w := range want {
		if results[i].Slug != w {
			t.Fatalf("results[%d] = %q, want %q (first-seen order)", i, results[i].Slug, w)
		}
	}
}

func TestSearchMarkets_DegradedSourceSkipped(t *testing.T) {
	primary := &fakeSource{searchErr: errors.New("down")}
	secondary := &fakeSource{markets: []domain.Market{market("alpha")}}
	svc := New([]domain.MarketSource{primary, secondary}, &fakeEvents{}, nil, testLogger())

	results, err := svc.SearchMarkets(context.Background(), "alpha", 5)
	if err != nil {
		t.Fatalf("SearchMarkets: %v", err)
	}
	if len(results) != 1 || results[0].Slug != "alpha" {
		t.Fatalf("degraded source should be skipped, got %v", results)
	}
}

func TestSearchMarkets_AllSourcesFailing(t *testing.T) {
	down := errors.New("down")
	svc := New([]domain.MarketSource{&fakeSource{searchErr: down}}, &fakeEvents{}, nil, testLogger())
	if _, err := svc.SearchMarkets(context.Background(), "x", 5); !errors.Is(err, down) {
		t.Fatalf("expected failure when every source errors, got %v", err)
	}
}

// memCache is an in-memory ResolutionCache for resolver tests.
type memCache struct {
	markets map[string]domain.Market
	events  map[string]domain.Event
	sets    int
}

func newMemCache() *memCache {
	return &memCache{markets: map[string]domain.Market{}, events: map[string]domain.Event{}}
}

func (c *memCache) SetMarket(_ context.Context, m domain.Market) error {
	c.markets[m.Slug] = m
	c.sets++
	return nil
}

func (c *memCache) GetMarket(_ context.Context, slug string) (domain.Market, error) {
	m, ok := c.markets[slug]
	if !ok {
		return domain.Market{}, domain.ErrNotFound
	}
	return m, nil
}

func (c *memCache) SetEvent(_ context.Context, ev domain.Event) error {
	c.events[ev.Slug] = ev
	return nil
}

func (c *memCache) GetEvent(_ context.Context, slug string) (domain.Event, error) {
	ev, ok := c.events[slug]
	if !ok {
		return domain.Event{}, domain.ErrNotFound
	}
	return ev, nil
}

func (c *memCache) InvalidateMarket(_ context.Context, slug string) error {
	delete(c.markets, slug)
	return nil
}

func TestMarket_CacheReadThrough(t *testing.T) {
	source := &fakeSource{markets: []domain.Market{market("cached")}}
	cache := newMemCache()
	svc := New([]domain.MarketSource{source}, &fakeEvents{}, cache, testLogger())

	if _, err := svc.Market(context.Background(), "cached"); err != nil {
		t.Fatalf("first lookup: %v", err)
	}
	if cache.sets != 1 {
		t.Fatalf("cache sets = %d, want 1", cache.sets)
	}
	if _, err := svc.Market(context.Background(), "cached"); err != nil {
		t.Fatalf("second lookup: %v", err)
	}
	if source.findCalls != 1 {
		t.Fatalf("source consulted %d times, want cache hit on second lookup", source.findCalls)
	}
}

func TestInvalidateMarket_ForcesRefetch(t *testing.T) {
	source := &fakeSource{markets: []domain.Market{market("stale")}}
	cache := newMemCache()
	svc := New([]domain.MarketSource{source}, &fakeEvents{}, cache, testLogger())

	if _, err := svc.Market(context.Background(), "stale"); err != nil {
		t.Fatalf("first lookup: %v", err)
	}
	if err := svc.InvalidateMarket(context.Background(), "stale"); err != nil {
		t.Fatalf("InvalidateMarket: %v", err)
	}
	if _, err := svc.Market(context.Background(), "stale"); err != nil {
		t.Fatalf("lookup after invalidation: %v", err)
	}
	if source.findCalls != 2 {
		t.Fatalf("source consulted %d times, want refetch after invalidation", source.findCalls)
	}

	// No cache configured: invalidation is a harmless no-op.
	bare := New([]domain.MarketSource{source}, &fakeEvents{}, nil, testLogger())
	if err := bare.InvalidateMarket(context.Background(), "stale"); err != nil {
		t.Fatalf("nil-cache InvalidateMarket: %v", err)
	}
}

func TestResolve_Dispatch(t *testing.T) {
	source := &fakeSource{markets: []domain.Market{market("mk")}}
	events := &fakeEvents{event: &domain.Event{Slug: "ev", Title: "Event"}}
	svc := New([]domain.MarketSource{source}, events, nil, testLogger())

	res, err := svc.Resolve(context.Background(), locator.Ref{Kind: locator.KindMarket, MarketSlug: "mk"})
	if err != nil || res.Market == nil || res.Event != nil {
		t.Fatalf("market resolution wrong: %+v, %v", res, err)
	}

	res, err = svc.Resolve(context.Background(), locator.Ref{Kind: locator.KindEvent, EventSlug: "ev"})
	if err != nil || res.Event == nil || res.Market != nil {
		t.Fatalf("event resolution wrong: %+v, %v", res, err)
	}
}
