package polymarket

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cyoung/polydata/internal/domain"
)

func newTestDataClient(t *testing.T, handler http.Handler) *DataClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewDataClient(srv.URL, testTransportConfig(), testLogger())
	t.Cleanup(c.Close)
	return c
}

func TestDataPositions(t *testing.T) {
	client := newTestDataClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("user") != "0xwallet" || q.Get("market") != "0xcond" {
			t.Fatalf("unexpected query %v", q)
		}
		fmt.Fprint(w, `[{
			"proxyWallet": "0xwallet",
			"conditionId": "0xcond",
			"slug": "btc-100k",
			"outcome": "Yes",
			"size": "150.5",
			"avgPrice": 0.40,
			"curPrice": "0.55",
			"currentValue": "82.775",
			"cashPnl": 22.575,
			"redeemable": false
		}]`)
	}))

	positions, err := client.Positions(context.Background(), PositionFilter{
		User:   "0xwallet",
		Market: "0xcond",
	})
	if err != nil {
		t.Fatalf("Positions: %v", err)
	}
	if len(positions) != 1 {
		t.Fatalf("got %d positions, want 1", len(positions))
	}
	p := positions[0]
	if float64(p.Size) != 150.5 || float64(p.AvgPrice) != 0.40 || float64(p.CurPrice) != 0.55 {
		t.Fatalf("numeric coercion broken: %+v", p)
	}
}

func TestDataPositions_MutuallyExclusiveScopes(t *testing.T) {
	client := newTestDataClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request should be issued")
	}))

	_, err := client.Positions(context.Background(), PositionFilter{
		User:   "0xwallet",
		Market: "0xcond",
		Event:  "9001",
	})
	if !errors.Is(err, domain.ErrInvalidUsage) {
		t.Fatalf("expected ErrInvalidUsage, got %v", err)
	}

	_, err = client.Positions(context.Background(), PositionFilter{Market: "0xcond"})
	if !errors.Is(err, domain.ErrInvalidUsage) {
		t.Fatalf("expected ErrInvalidUsage for missing user, got %v", err)
	}
}

func TestDataActivity(t *testing.T) {
	client := newTestDataClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("type") != "TRADE" || q.Get("start") != "1700000000" {
			t.Fatalf("unexpected query %v", q)
		}
		fmt.Fprint(w, `[{"type": "TRADE", "side": "BUY", "size": "10", "usdcSize": "4.2", "timestamp": 1700000100}]`)
	}))

	activity, err := client.Activity(context.Background(), ActivityFilter{
		User:  "0xwallet",
		Type:  "TRADE",
		Start: 1700000000,
	})
	if err != nil {
		t.Fatalf("Activity: %v", err)
	}
	if len(activity) != 1 || float64(activity[0].USDCSize) != 4.2 {
		t.Fatalf("activity decode broken: %+v", activity)
	}
}

func TestDataHolders(t *testing.T) {
	client := newTestDataClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("market") != "0xcond" {
			t.Fatalf("unexpected query %v", r.URL.Query())
		}
		fmt.Fprint(w, `[
			{"token": "tok-yes", "holders": [{"proxyWallet": "0xa", "amount": "500", "outcomeIndex": 0}]},
			{"token": "tok-no", "holders": [{"proxyWallet": "0xb", "amount": 250, "outcomeIndex": 1}]}
		]`)
	}))

	holders, err := client.Holders(context.Background(), "0xcond", 5)
	if err != nil {
		t.Fatalf("Holders: %v", err)
	}
	if len(holders) != 2 {
		t.Fatalf("got %d holders, want flattened 2", len(holders))
	}
	if float64(holders[0].Amount) != 500 || holders[1].OutcomeIndex != 1 {
		t.Fatalf("holder decode broken: %+v", holders)
	}

	if _, err := client.Holders(context.Background(), "", 5); !errors.Is(err, domain.ErrInvalidUsage) {
		t.Fatalf("expected ErrInvalidUsage, got %v", err)
	}
}
