package locator

import (
	"errors"
	"fmt"
	"testing"

	"github.com/cyoung/polydata/internal/domain"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Ref
	}{
		{
			name: "event market url",
			in:   "https://polymarket.com/event/us-election-2028/will-the-dem-win",
			want: Ref{Kind: KindMarket, EventSlug: "us-election-2028", MarketSlug: "will-the-dem-win"},
		},
		{
			name: "event url",
			in:   "https://polymarket.com/event/us-election-2028",
			want: Ref{Kind: KindEvent, EventSlug: "us-election-2028"},
		},
		{
			name: "market url",
			in:   "https://polymarket.com/market/will-btc-hit-100k",
			want: Ref{Kind: KindMarket, MarketSlug: "will-btc-hit-100k"},
		},
		{
			name: "single segment url",
			in:   "https://polymarket.com/will-btc-hit-100k",
			want: Ref{Kind: KindMarket, MarketSlug: "will-btc-hit-100k"},
		},
		{
			name: "bare slug",
			in:   "will-btc-hit-100k",
			want: Ref{Kind: KindMarket, MarketSlug: "will-btc-hit-100k"},
		},
		{
			name: "www host",
			in:   "https://www.polymarket.com/event/fed-rates-march",
			want: Ref{Kind: KindEvent, EventSlug: "fed-rates-march"},
		},
		{
			name: "percent encoded segment",
			in:   "https://polymarket.com/event/s%C3%A9rie-a-winner",
			want: Ref{Kind: KindEvent, EventSlug: "série-a-winner"},
		},
		{
			name: "trailing slash",
			in:   "https://polymarket.com/event/us-election-2028/",
			want: Ref{Kind: KindEvent, EventSlug: "us-election-2028"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.in)
			if err != nil {
				t.Fatalf("Parse(%q) error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Fatalf("Parse(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"empty", ""},
		{"whitespace", "   "},
		{"wrong host", "https://example.com/event/something"},
		{"reserved slug", "markets"},
		{"reserved path", "https://polymarket.com/leaderboard"},
		{"too many event segments", "https://polymarket.com/event/a/b/c"},
		{"bare market prefix", "https://polymarket.com/market"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse(tt.in); !errors.Is(err, domain.ErrInvalidLocator) {
				t.Fatalf("Parse(%q) error = %v, want ErrInvalidLocator", tt.in, err)
			}
		})
	}
}

func TestSlug(t *testing.T) {
	market := Ref{Kind: KindMarket, EventSlug: "ev", MarketSlug: "mk"}
	if got := market.Slug(); got != "mk" {
		t.Fatalf("Slug() = %q, want %q", got, "mk")
	}
	event := Ref{Kind: KindEvent, EventSlug: "ev"}
	if got := event.Slug(); got != "ev" {
		t.Fatalf("Slug() = %q, want %q", got, "ev")
	}
}

func TestKindString(t *testing.T) {
	if got := KindMarket.String(); got != "market" {
		t.Fatalf("KindMarket = %q", got)
	}
	if got := KindEvent.String(); got != "event" {
		t.Fatalf("KindEvent = %q", got)
	}
	// fmt consults the Stringer, so %q renders the name, not a rune.
	if got := fmt.Sprintf("%q", KindEvent); got != `"event"` {
		t.Fatalf("%%q rendering = %s", got)
	}
	if got := Kind(99).String(); got != "unknown" {
		t.Fatalf("out-of-range kind = %q", got)
	}
}

func TestMarketURL(t *testing.T) {
	got := MarketURL("us-election-2028", "will-the-dem-win")
	want := "https://polymarket.com/event/us-election-2028/will-the-dem-win"
	if got != want {
		t.Fatalf("MarketURL = %q, want %q", got, want)
	}
}
