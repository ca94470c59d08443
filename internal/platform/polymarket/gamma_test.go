package polymarket

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/cyoung/polydata/internal/domain"
)

func newTestGammaClient(t *testing.T, handler http.Handler) *GammaClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewGammaClient(srv.URL, testTransportConfig(), testLogger())
	t.Cleanup(c.Close)
	return c
}

const gammaMarketBody = `{
	"id": "512329",
	"slug": "btc-100k-2026",
	"question": "Will BTC hit 100k in 2026?",
	"conditionId": "0xabc",
	"outcomes": "[\"Yes\",\"No\"]",
	"outcomePrices": "[\"0.62\",\"0.38\"]",
	"clobTokenIds": "[\"tok-yes\",\"tok-no\"]",
	"active": "true",
	"closed": false,
	"volume": "123456.78",
	"liquidity": 9999.5,
	"startDate": "2026-01-01T00:00:00Z",
	"endDate": "2026-12-31T00:00:00Z",
	"enableOrderBook": true,
	"negRisk": false
}`

func TestGammaFilterValues(t *testing.T) {
	volMin := 1000.0
	active := true
	bookOnly := true
	tag := 42

	f := &MarketFilter{
		Limit:         100,
		Slugs:         []string{"a", "b"},
		ConditionIDs:  []string{"0x1"},
		Active:        &active,
		OrderBookOnly: &bookOnly,
		VolumeMin:     &volMin,
		TagID:         &tag,
	}
	q := f.values()

	if got := q["slug"]; len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("slug values = %v", got)
	}
	if q.Get("condition_ids") != "0x1" {
		t.Fatalf("condition_ids = %q", q.Get("condition_ids"))
	}
	if q.Get("volume_num_min") != "1000" {
		t.Fatalf("volume_num_min = %q", q.Get("volume_num_min"))
	}
	if q.Get("active") != "true" || q.Get("tag_id") != "42" {
		t.Fatalf("active/tag_id = %q/%q", q.Get("active"), q.Get("tag_id"))
	}
	// The order-book flag keeps the API's camelCase spelling.
	if q.Get("enableOrderBook") != "true" {
		t.Fatalf("enableOrderBook = %q", q.Get("enableOrderBook"))
	}

	// Unset fields and empty slices do not appear at all.
	for _, absent := range []string{"volume_num_max", "closed", "archived", "id", "clob_token_ids", "order"} {
		if _, ok := q[absent]; ok {
			t.Fatalf("key %q should be omitted", absent)
		}
	}

	// Events use the unsuffixed volume/liquidity parameter names.
	ef := &EventFilter{VolumeMin: &volMin}
	eq := ef.values()
	if eq.Get("volume_min") != "1000" {
		t.Fatalf("event volume_min = %q", eq.Get("volume_min"))
	}
	if _, ok := eq["volume_num_min"]; ok {
		t.Fatal("event filter must not use market parameter names")
	}

	// Nil filters produce empty queries.
	if len((*MarketFilter)(nil).values()) != 0 {
		t.Fatal("nil market filter should produce no parameters")
	}
}

func TestGammaGetMarketBySlug_Exact(t *testing.T) {
	client := newTestGammaClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("slug") != "btc-100k-2026" {
			t.Fatalf("unexpected query %v", r.URL.Query())
		}
		fmt.Fprintf(w, "[%s]", gammaMarketBody)
	}))

	m, err := client.GetMarketBySlug(context.Background(), "btc-100k-2026")
	if err != nil {
		t.Fatalf("GetMarketBySlug: %v", err)
	}
	if m.ConditionID != "0xabc" {
		t.Fatalf("condition id = %q", m.ConditionID)
	}
	if len(m.Outcomes) != 2 || m.Outcomes[0] != "Yes" {
		t.Fatalf("outcomes not decoded from embedded JSON: %v", m.Outcomes)
	}
	if len(m.TokenIDs) != 2 || m.TokenIDs[0] != "tok-yes" {
		t.Fatalf("token ids not decoded: %v", m.TokenIDs)
	}
	if m.Volume != 123456.78 || m.Liquidity != 9999.5 {
		t.Fatalf("numeric coercion broken: volume=%v liquidity=%v", m.Volume, m.Liquidity)
	}
	if !m.Active {
		t.Fatal("string-encoded active flag not decoded")
	}
}

func TestGammaGetMarketBySlug_ScanFallback(t *testing.T) {
	var scanQueries []url.Values
	client := newTestGammaClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		scanQueries = append(scanQueries, q)
		if q.Get("slug") != "" {
			fmt.Fprint(w, "[]")
			return
		}
		fmt.Fprintf(w, "[%s]", gammaMarketBody)
	}))

	m, err := client.GetMarketBySlug(context.Background(), "btc-100k")
	if err != nil {
		t.Fatalf("GetMarketBySlug: %v", err)
	}
	if m.Slug != "btc-100k-2026" {
		t.Fatalf("substring fallback returned %q", m.Slug)
	}
	if len(scanQueries) != 2 {
		t.Fatalf("got %d requests, want exact query then scan", len(scanQueries))
	}
	if scanQueries[1].Get("active") != "true" || scanQueries[1].Get("limit") != "1000" {
		t.Fatalf("scan query wrong: %v", scanQueries[1])
	}
}

func TestGammaGetMarketBySlug_NotFound(t *testing.T) {
	client := newTestGammaClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "[]")
	}))

	_, err := client.GetMarketBySlug(context.Background(), "nope")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGammaGetEventBySlug(t *testing.T) {
	client := newTestGammaClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/events" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		fmt.Fprintf(w, `[{
			"id": "9001",
			"slug": "election-2028",
			"title": "2028 Election",
			"active": true,
			"negRisk": true,
			"negRiskMarketID": "0xgroup",
			"markets": [%s, {
				"slug": "placeholder",
				"question": "Will someone else win?",
				"outcomes": "[\"Yes\",\"No\"]",
				"clobTokenIds": "[]",
				"negRisk": true,
				"negRiskMarketID": "0xgroup"
			}]
		}]`, gammaMarketBody)
	}))

	ev, err := client.GetEventBySlug(context.Background(), "election-2028")
	if err != nil {
		t.Fatalf("GetEventBySlug: %v", err)
	}
	if ev.ID != "9001" || ev.Title != "2028 Election" {
		t.Fatalf("event fields wrong: %+v", ev)
	}
	if len(ev.Markets) != 2 {
		t.Fatalf("got %d markets, want 2", len(ev.Markets))
	}

	// The placeholder option has token ids padded to match its outcomes, so
	// the inactive-negrisk predicate holds.
	ph := ev.Markets[1]
	if len(ph.TokenIDs) != len(ph.Outcomes) {
		t.Fatalf("token ids not padded: %d vs %d", len(ph.TokenIDs), len(ph.Outcomes))
	}
	if !ph.IsInactiveNegRiskOption() {
		t.Fatalf("placeholder not classified: %+v", ph)
	}
}
