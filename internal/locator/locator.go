// Package locator parses human-facing Polymarket locators (full URLs or bare
// slugs) into typed references. It performs no network access; resolution of
// a reference against the APIs is the resolver's job.
package locator

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/cyoung/polydata/internal/domain"
)

// Kind classifies what a locator points at.
type Kind int

const (
	// KindMarket is a direct market reference: /market/{slug}, a bare slug,
	// or /event/{event}/{market}.
	KindMarket Kind = iota
	// KindEvent is an event-only reference: /event/{slug}.
	KindEvent
)

// String names the kind for logs and error messages.
func (k Kind) String() string {
	switch k {
	case KindMarket:
		return "market"
	case KindEvent:
		return "event"
	}
	return "unknown"
}

// Ref is a parsed locator. MarketSlug is set for KindMarket; EventSlug is set
// for KindEvent and additionally for markets referenced through an event URL.
type Ref struct {
	Kind       Kind
	EventSlug  string
	MarketSlug string
}

// Slug returns the most specific slug: the market slug when present,
// otherwise the event slug.
func (r Ref) Slug() string {
	if r.MarketSlug != "" {
		return r.MarketSlug
	}
	return r.EventSlug
}

const expectedHost = "polymarket.com"

// reservedSlugs are site paths that look like bare market slugs but are not
// markets.
var reservedSlugs = map[string]struct{}{
	"markets":     {},
	"elections":   {},
	"leaderboard": {},
	"about":       {},
	"docs":        {},
	"help":        {},
	"portfolio":   {},
}

// Parse turns a locator string into a Ref. Accepted shapes, in priority order:
//
//	https://polymarket.com/event/{event_slug}/{market_slug}
//	https://polymarket.com/event/{event_slug}
//	https://polymarket.com/market/{market_slug}
//	https://polymarket.com/{market_slug}
//	{market_slug}
//
// All path segments are percent-decoded. Unrecognized hosts, reserved paths,
// and empty input return domain.ErrInvalidLocator.
func Parse(raw string) (Ref, error) {
	if strings.TrimSpace(raw) == "" {
		return Ref{}, fmt.Errorf("%w: empty locator", domain.ErrInvalidLocator)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return Ref{}, fmt.Errorf("%w: %q", domain.ErrInvalidLocator, raw)
	}
	if u.Host != "" && !strings.Contains(u.Host, expectedHost) {
		return Ref{}, fmt.Errorf("%w: unexpected host %q", domain.ErrInvalidLocator, u.Host)
	}

	segs, err := pathSegments(u.Path)
	if err != nil || len(segs) == 0 {
		return Ref{}, fmt.Errorf("%w: cannot parse %q", domain.ErrInvalidLocator, raw)
	}

	switch segs[0] {
	case "event":
		switch len(segs) {
		case 2:
			return Ref{Kind: KindEvent, EventSlug: segs[1]}, nil
		case 3:
			return Ref{Kind: KindMarket, EventSlug: segs[1], MarketSlug: segs[2]}, nil
		}
		return Ref{}, fmt.Errorf("%w: cannot parse %q", domain.ErrInvalidLocator, raw)
	case "market":
		if len(segs) == 2 {
			return Ref{Kind: KindMarket, MarketSlug: segs[1]}, nil
		}
		return Ref{}, fmt.Errorf("%w: cannot parse %q", domain.ErrInvalidLocator, raw)
	}

	// A single remaining segment is treated as a bare market slug unless it
	// is a reserved site path.
	if len(segs) == 1 {
		if _, reserved := reservedSlugs[segs[0]]; !reserved {
			return Ref{Kind: KindMarket, MarketSlug: segs[0]}, nil
		}
	}

	return Ref{}, fmt.Errorf("%w: cannot parse %q", domain.ErrInvalidLocator, raw)
}

// MarketURL builds the canonical URL for a market inside an event.
func MarketURL(eventSlug, marketSlug string) string {
	return fmt.Sprintf("https://%s/event/%s/%s", expectedHost, eventSlug, marketSlug)
}

func pathSegments(path string) ([]string, error) {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil, nil
	}
	parts := strings.Split(trimmed, "/")
	segs := make([]string, 0, len(parts))
	for _, p := range parts {
		dec, err := url.PathUnescape(p)
		if err != nil {
			return nil, err
		}
		if dec == "" {
			continue
		}
		segs = append(segs, dec)
	}
	return segs, nil
}
