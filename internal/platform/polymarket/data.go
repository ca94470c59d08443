package polymarket

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"

	"github.com/cyoung/polydata/internal/domain"
)

// DataClient talks to the Polymarket Data API, which serves user-centric
// views: positions, activity, trades, holders and holdings value.
type DataClient struct {
	t      *transport
	logger *slog.Logger
}

// NewDataClient creates a Data API client. An empty baseURL selects the
// public endpoint.
func NewDataClient(baseURL string, cfg TransportConfig, logger *slog.Logger) *DataClient {
	if baseURL == "" {
		baseURL = DefaultDataURL
	}
	return &DataClient{
		t:      newTransport(baseURL, cfg, logger),
		logger: logger.With("client", "data"),
	}
}

// Close releases idle connections.
func (c *DataClient) Close() {
	c.t.close()
}

// PositionFilter selects positions for a user. Market and Event are
// mutually exclusive condition scopes.
type PositionFilter struct {
	User          string
	Market        string
	Event         string
	SizeThreshold *float64
	Redeemable    *bool
	Mergeable     *bool
	Limit         int
	Offset        int
	SortBy        string
	SortDirection string
}

// Positions fetches a user's open positions. Setting both Market and Event
// on the filter is rejected with domain.ErrInvalidUsage.
func (c *DataClient) Positions(ctx context.Context, filter PositionFilter) ([]Position, error) {
	if filter.User == "" {
		return nil, fmt.Errorf("data: positions: user address required: %w", domain.ErrInvalidUsage)
	}
	if filter.Market != "" && filter.Event != "" {
		return nil, fmt.Errorf("data: positions: market and event are mutually exclusive: %w", domain.ErrInvalidUsage)
	}
	q := url.Values{}
	q.Set("user", filter.User)
	if filter.Market != "" {
		q.Set("market", filter.Market)
	}
	if filter.Event != "" {
		q.Set("eventId", filter.Event)
	}
	setFloat(q, "sizeThreshold", filter.SizeThreshold)
	setBool(q, "redeemable", filter.Redeemable)
	setBool(q, "mergeable", filter.Mergeable)
	if filter.Limit > 0 {
		q.Set("limit", strconv.Itoa(filter.Limit))
	}
	if filter.Offset > 0 {
		q.Set("offset", strconv.Itoa(filter.Offset))
	}
	if filter.SortBy != "" {
		q.Set("sortBy", filter.SortBy)
	}
	if filter.SortDirection != "" {
		q.Set("sortDirection", filter.SortDirection)
	}
	var out []Position
	if err := c.t.getJSON(ctx, "/positions", q, &out); err != nil {
		return nil, fmt.Errorf("data: positions for %s: %w", filter.User, err)
	}
	return out, nil
}

// ActivityFilter selects on-chain activity for a user.
type ActivityFilter struct {
	User   string
	Market string
	Type   string
	Side   string
	Start  int64
	End    int64
	Limit  int
	Offset int
}

// Activity fetches a user's on-chain activity log.
func (c *DataClient) Activity(ctx context.Context, filter ActivityFilter) ([]Activity, error) {
	if filter.User == "" {
		return nil, fmt.Errorf("data: activity: user address required: %w", domain.ErrInvalidUsage)
	}
	q := url.Values{}
	q.Set("user", filter.User)
	if filter.Market != "" {
		q.Set("market", filter.Market)
	}
	if filter.Type != "" {
		q.Set("type", filter.Type)
	}
	if filter.Side != "" {
		q.Set("side", filter.Side)
	}
	if filter.Start > 0 {
		q.Set("start", strconv.FormatInt(filter.Start, 10))
	}
	if filter.End > 0 {
		q.Set("end", strconv.FormatInt(filter.End, 10))
	}
	if filter.Limit > 0 {
		q.Set("limit", strconv.Itoa(filter.Limit))
	}
	if filter.Offset > 0 {
		q.Set("offset", strconv.Itoa(filter.Offset))
	}
	var out []Activity
	if err := c.t.getJSON(ctx, "/activity", q, &out); err != nil {
		return nil, fmt.Errorf("data: activity for %s: %w", filter.User, err)
	}
	return out, nil
}

// TradeFilter selects fills, by user and/or market.
type TradeFilter struct {
	User   string
	Market string
	Side   string
	Limit  int
	Offset int
}

// Trades fetches fills matching the filter.
func (c *DataClient) Trades(ctx context.Context, filter TradeFilter) ([]UserTrade, error) {
	q := url.Values{}
	if filter.User != "" {
		q.Set("user", filter.User)
	}
	if filter.Market != "" {
		q.Set("market", filter.Market)
	}
	if filter.Side != "" {
		q.Set("side", filter.Side)
	}
	if filter.Limit > 0 {
		q.Set("limit", strconv.Itoa(filter.Limit))
	}
	if filter.Offset > 0 {
		q.Set("offset", strconv.Itoa(filter.Offset))
	}
	var out []UserTrade
	if err := c.t.getJSON(ctx, "/trades", q, &out); err != nil {
		return nil, fmt.Errorf("data: trades: %w", err)
	}
	return out, nil
}

// Holders fetches the largest holders of a market's outcome tokens.
func (c *DataClient) Holders(ctx context.Context, conditionID string, limit int) ([]Holder, error) {
	if conditionID == "" {
		return nil, fmt.Errorf("data: holders: condition id required: %w", domain.ErrInvalidUsage)
	}
	q := url.Values{}
	q.Set("market", conditionID)
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var resp []struct {
		Token   string   `json:"token"`
		Holders []Holder `json:"holders"`
	}
	if err := c.t.getJSON(ctx, "/holders", q, &resp); err != nil {
		return nil, fmt.Errorf("data: holders for %s: %w", conditionID, err)
	}
	var out []Holder
	for _, entry := range resp {
		out = append(out, entry.Holders...)
	}
	return out, nil
}

// HoldingsValue fetches a user's holdings value over time.
func (c *DataClient) HoldingsValue(ctx context.Context, user string) ([]HoldingsValuePoint, error) {
	if user == "" {
		return nil, fmt.Errorf("data: holdings value: user address required: %w", domain.ErrInvalidUsage)
	}
	q := url.Values{}
	q.Set("user", user)
	var out []HoldingsValuePoint
	if err := c.t.getJSON(ctx, "/value", q, &out); err != nil {
		return nil, fmt.Errorf("data: holdings value for %s: %w", user, err)
	}
	return out, nil
}
