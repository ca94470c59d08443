package polymarket

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cyoung/polydata/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testTransportConfig() TransportConfig {
	return TransportConfig{
		Timeout:    2 * time.Second,
		MaxRetries: 3,
		RetryDelay: time.Millisecond,
	}
}

func newTestClobClient(t *testing.T, handler http.Handler) *ClobClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewClobClient(srv.URL, testTransportConfig(), testLogger())
	t.Cleanup(c.Close)
	return c
}

func clobMarketJSON(slug, question string) string {
	return fmt.Sprintf(`{
		"condition_id": "0x%s",
		"question": %q,
		"market_slug": %q,
		"active": true,
		"tokens": [
			{"token_id": "%s-yes", "outcome": "Yes"},
			{"token_id": "%s-no", "outcome": "No"}
		]
	}`, slug, question, slug, slug, slug)
}

func TestClobGetMarkets_Pagination(t *testing.T) {
	client := newTestClobClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/markets" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		switch r.URL.Query().Get("next_cursor") {
		case "":
			fmt.Fprintf(w, `{"next_cursor": "abc", "data": [%s]}`, clobMarketJSON("m-one", "First?"))
		case "abc":
			fmt.Fprintf(w, `{"next_cursor": "LTE=", "data": [%s]}`, clobMarketJSON("m-two", "Second?"))
		default:
			t.Fatalf("unexpected cursor %q", r.URL.Query().Get("next_cursor"))
		}
	}))

	pager := client.Markets()
	var all []domain.Market
	for !pager.Done() {
		page, err := pager.Next(context.Background())
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		all = append(all, page...)
	}
	if len(all) != 2 {
		t.Fatalf("got %d markets, want 2", len(all))
	}
	if all[0].Slug != "m-one" || all[1].Slug != "m-two" {
		t.Fatalf("unexpected slugs %q, %q", all[0].Slug, all[1].Slug)
	}
	if len(all[0].Outcomes) != 2 || all[0].TokenIDs[0] != "m-one-yes" {
		t.Fatalf("token mapping broken: %+v", all[0])
	}

	// An exhausted pager stays exhausted.
	if page, err := pager.Next(context.Background()); err != nil || page != nil {
		t.Fatalf("exhausted pager returned %v, %v", page, err)
	}
}

func TestClobFindMarketBySlug(t *testing.T) {
	client := newTestClobClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"next_cursor": "LTE=", "data": [%s, %s]}`,
			clobMarketJSON("btc-100k", "Will BTC hit 100k?"),
			clobMarketJSON("eth-10k", "Will ETH hit 10k?"))
	}))

	m, err := client.FindMarketBySlug(context.Background(), "eth-10k")
	if err != nil {
		t.Fatalf("FindMarketBySlug: %v", err)
	}
	if m.Question != "Will ETH hit 10k?" {
		t.Fatalf("wrong market: %+v", m)
	}

	if _, err := client.FindMarketBySlug(context.Background(), "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestClobSearchMarkets_Limit(t *testing.T) {
	client := newTestClobClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"next_cursor": "LTE=", "data": [%s, %s, %s]}`,
			clobMarketJSON("btc-100k", "Will BTC hit 100k?"),
			clobMarketJSON("btc-150k", "Will BTC hit 150k?"),
			clobMarketJSON("eth-10k", "Will ETH hit 10k?"))
	}))

	results, err := client.SearchMarkets(context.Background(), "BTC", 1)
	if err != nil {
		t.Fatalf("SearchMarkets: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want limit-truncated 1", len(results))
	}
	if results[0].Slug != "btc-100k" {
		t.Fatalf("unexpected first result %q", results[0].Slug)
	}
}

func TestClobPriceHistory(t *testing.T) {
	client := newTestClobClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("market") != "tok1" || q.Get("interval") != "1d" {
			t.Fatalf("unexpected query %v", q)
		}
		if q.Get("startTs") != "1700000000" || q.Get("endTs") != "1700086400" {
			t.Fatalf("unexpected window %v", q)
		}
		fmt.Fprint(w, `{"history": [{"t": 1700000000, "p": 0.42}, {"t": 1700003600, "p": "0.45"}]}`)
	}))

	points, err := client.PriceHistory(context.Background(), "tok1", domain.IntervalOneDay, 1700000000, 1700086400)
	if err != nil {
		t.Fatalf("PriceHistory: %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("got %d points, want 2", len(points))
	}
	if points[0].Price != 0.42 || points[1].Price != 0.45 {
		t.Fatalf("prices wrong: %+v", points)
	}
	if points[0].Timestamp.Unix() != 1700000000 {
		t.Fatalf("timestamp wrong: %v", points[0].Timestamp)
	}
}

func TestClobPriceHistory_WindowTooLong(t *testing.T) {
	client := newTestClobClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error": "the requested interval is too long for this fidelity"}`)
	}))

	_, err := client.PriceHistory(context.Background(), "tok1", domain.IntervalOneMinute, 1, 2)
	if !errors.Is(err, domain.ErrWindowTooLong) {
		t.Fatalf("expected ErrWindowTooLong, got %v", err)
	}
}

func TestClobRateLimitRetry(t *testing.T) {
	var calls atomic.Int32
	client := newTestClobClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, `{"history": []}`)
	}))

	points, err := client.PriceHistory(context.Background(), "tok1", domain.IntervalMax, 0, 0)
	if err != nil {
		t.Fatalf("expected retries to recover, got %v", err)
	}
	if points == nil || len(points) != 0 {
		t.Fatalf("expected empty history, got %v", points)
	}
	if got := calls.Load(); got != 3 {
		t.Fatalf("got %d calls, want 3", got)
	}
}

func TestClobRateLimit_Exhausted(t *testing.T) {
	client := newTestClobClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))

	_, err := client.PriceHistory(context.Background(), "tok1", domain.IntervalMax, 0, 0)
	if !errors.Is(err, domain.ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
}

func TestClobOrderBook(t *testing.T) {
	client := newTestClobClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("token_id") != "tok1" {
			t.Fatalf("unexpected query %v", r.URL.Query())
		}
		fmt.Fprint(w, `{
			"market": "0xcond",
			"asset_id": "tok1",
			"bids": [{"price": "0.40", "size": "100"}, {"price": "0.45", "size": "50"}],
			"asks": [{"price": "0.55", "size": "60"}, {"price": "0.48", "size": "40"}]
		}`)
	}))

	book, err := client.OrderBook(context.Background(), "tok1")
	if err != nil {
		t.Fatalf("OrderBook: %v", err)
	}
	bid, ok := book.BestBid()
	if !ok || !bid.Price.Equal(decimal.RequireFromString("0.45")) {
		t.Fatalf("best bid = %v ok=%t, want 0.45", bid.Price, ok)
	}
	ask, ok := book.BestAsk()
	if !ok || !ask.Price.Equal(decimal.RequireFromString("0.48")) {
		t.Fatalf("best ask = %v ok=%t, want 0.48", ask.Price, ok)
	}
}

func TestClobMarketBooks_GroupsByOutcome(t *testing.T) {
	client := newTestClobClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/books" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query()["token_id"]; len(got) != 1 || got[0] != "tok-yes" {
			t.Fatalf("token_id query = %v, want only the tradeable token", got)
		}
		fmt.Fprint(w, `[{
			"market": "0xcond",
			"asset_id": "tok-yes",
			"bids": [{"price": "0.40", "size": "10"}],
			"asks": [{"price": "0.60", "size": "10"}]
		}]`)
	}))

	m := &domain.Market{
		ID:       "mkt-1",
		Slug:     "mk",
		Question: "Will it?",
		Outcomes: []string{"Yes", "No"},
		TokenIDs: []string{"tok-yes", ""},
	}
	books, err := client.MarketBooks(context.Background(), m)
	if err != nil {
		t.Fatalf("MarketBooks: %v", err)
	}
	if books.MarketID != "mkt-1" || len(books.Books) != 1 {
		t.Fatalf("books = %+v", books)
	}
	yes, ok := books.Books["Yes"]
	if !ok || yes.Outcome != "Yes" {
		t.Fatalf("Yes book = %+v, ok=%v", yes, ok)
	}
	mids := books.MidPrices()
	if mid, ok := mids["Yes"]; !ok || !mid.Equal(decimal.RequireFromString("0.5")) {
		t.Fatalf("mid = %v ok=%v, want 0.5", mid, ok)
	}
}

func TestClobPrice_BookFallback(t *testing.T) {
	client := newTestClobClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/price":
			// Unusable payload: missing the price field entirely.
			fmt.Fprint(w, `{}`)
		case "/book":
			fmt.Fprint(w, `{
				"market": "0xcond",
				"asset_id": "tok1",
				"bids": [{"price": "0.40", "size": "10"}],
				"asks": [{"price": "0.60", "size": "10"}]
			}`)
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))

	price, err := client.Price(context.Background(), "tok1", "buy")
	if err != nil {
		t.Fatalf("Price: %v", err)
	}
	if !price.Equal(decimal.RequireFromString("0.60")) {
		t.Fatalf("price = %s, want book top 0.60", price)
	}

	if _, err := client.Price(context.Background(), "tok1", "hold"); !errors.Is(err, domain.ErrInvalidUsage) {
		t.Fatalf("expected ErrInvalidUsage for bad side, got %v", err)
	}
}
