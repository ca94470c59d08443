package polymarket

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/cyoung/polydata/internal/domain"
)

// GammaClient talks to the Polymarket Gamma API, which serves richer market
// and event metadata than the CLOB listing.
type GammaClient struct {
	t      *transport
	logger *slog.Logger
}

// NewGammaClient creates a Gamma client. An empty baseURL selects the public
// endpoint.
func NewGammaClient(baseURL string, cfg TransportConfig, logger *slog.Logger) *GammaClient {
	if baseURL == "" {
		baseURL = DefaultGammaURL
	}
	return &GammaClient{
		t:      newTransport(baseURL, cfg, logger),
		logger: logger.With("client", "gamma"),
	}
}

// Close releases idle connections.
func (c *GammaClient) Close() {
	c.t.close()
}

func setBool(q url.Values, key string, v *bool) {
	if v != nil {
		q.Set(key, strconv.FormatBool(*v))
	}
}

func setFloat(q url.Values, key string, v *float64) {
	if v != nil {
		q.Set(key, strconv.FormatFloat(*v, 'f', -1, 64))
	}
}

func setString(q url.Values, key string, v *string) {
	if v != nil {
		q.Set(key, *v)
	}
}

func addAll(q url.Values, key string, vs []string) {
	for _, v := range vs {
		q.Add(key, v)
	}
}

// MarketFilter selects markets from the Gamma listing. Nil fields are
// omitted from the query; empty slices are not sent.
type MarketFilter struct {
	Limit         int
	Offset        int
	Order         string
	Ascending     *bool
	IDs           []string
	Slugs         []string
	ConditionIDs  []string
	TokenIDs      []string
	Active        *bool
	Closed        *bool
	Archived      *bool
	OrderBookOnly *bool
	VolumeMin     *float64
	VolumeMax     *float64
	LiquidityMin  *float64
	LiquidityMax  *float64
	StartDateMin  *string
	StartDateMax  *string
	EndDateMin    *string
	EndDateMax    *string
	TagID         *int
	RelatedTags   *bool
}

func (f *MarketFilter) values() url.Values {
	q := url.Values{}
	if f == nil {
		return q
	}
	if f.Limit > 0 {
		q.Set("limit", strconv.Itoa(f.Limit))
	}
	if f.Offset > 0 {
		q.Set("offset", strconv.Itoa(f.Offset))
	}
	if f.Order != "" {
		q.Set("order", f.Order)
	}
	setBool(q, "ascending", f.Ascending)
	addAll(q, "id", f.IDs)
	addAll(q, "slug", f.Slugs)
	addAll(q, "condition_ids", f.ConditionIDs)
	addAll(q, "clob_token_ids", f.TokenIDs)
	setBool(q, "active", f.Active)
	setBool(q, "closed", f.Closed)
	setBool(q, "archived", f.Archived)
	setBool(q, "enableOrderBook", f.OrderBookOnly)
	setFloat(q, "volume_num_min", f.VolumeMin)
	setFloat(q, "volume_num_max", f.VolumeMax)
	setFloat(q, "liquidity_num_min", f.LiquidityMin)
	setFloat(q, "liquidity_num_max", f.LiquidityMax)
	setString(q, "start_date_min", f.StartDateMin)
	setString(q, "start_date_max", f.StartDateMax)
	setString(q, "end_date_min", f.EndDateMin)
	setString(q, "end_date_max", f.EndDateMax)
	if f.TagID != nil {
		q.Set("tag_id", strconv.Itoa(*f.TagID))
	}
	setBool(q, "related_tags", f.RelatedTags)
	return q
}

// EventFilter selects events from the Gamma listing. Nil fields are omitted.
// Unlike markets, event volume and liquidity bounds use unsuffixed names.
type EventFilter struct {
	Limit        int
	Offset       int
	Order        string
	Ascending    *bool
	IDs          []string
	Slugs        []string
	Active       *bool
	Closed       *bool
	Archived     *bool
	Featured     *bool
	VolumeMin    *float64
	VolumeMax    *float64
	LiquidityMin *float64
	LiquidityMax *float64
	StartDateMin *string
	StartDateMax *string
	EndDateMin   *string
	EndDateMax   *string
	TagID        *int
	RelatedTags  *bool
}

func (f *EventFilter) values() url.Values {
	q := url.Values{}
	if f == nil {
		return q
	}
	if f.Limit > 0 {
		q.Set("limit", strconv.Itoa(f.Limit))
	}
	if f.Offset > 0 {
		q.Set("offset", strconv.Itoa(f.Offset))
	}
	if f.Order != "" {
		q.Set("order", f.Order)
	}
	setBool(q, "ascending", f.Ascending)
	addAll(q, "id", f.IDs)
	addAll(q, "slug", f.Slugs)
	setBool(q, "active", f.Active)
	setBool(q, "closed", f.Closed)
	setBool(q, "archived", f.Archived)
	setBool(q, "featured", f.Featured)
	setFloat(q, "volume_min", f.VolumeMin)
	setFloat(q, "volume_max", f.VolumeMax)
	setFloat(q, "liquidity_min", f.LiquidityMin)
	setFloat(q, "liquidity_max", f.LiquidityMax)
	setString(q, "start_date_min", f.StartDateMin)
	setString(q, "start_date_max", f.StartDateMax)
	setString(q, "end_date_min", f.EndDateMin)
	setString(q, "end_date_max", f.EndDateMax)
	if f.TagID != nil {
		q.Set("tag_id", strconv.Itoa(*f.TagID))
	}
	setBool(q, "related_tags", f.RelatedTags)
	return q
}

// GetMarkets fetches markets matching the filter.
func (c *GammaClient) GetMarkets(ctx context.Context, filter *MarketFilter) ([]domain.Market, error) {
	var raw []gammaMarket
	if err := c.t.getJSON(ctx, "/markets", filter.values(), &raw); err != nil {
		return nil, fmt.Errorf("gamma: list markets: %w", err)
	}
	markets := make([]domain.Market, 0, len(raw))
	for i := range raw {
		markets = append(markets, raw[i].toDomain())
	}
	return markets, nil
}

// GetEvents fetches events matching the filter.
func (c *GammaClient) GetEvents(ctx context.Context, filter *EventFilter) ([]domain.Event, error) {
	var raw []gammaEvent
	if err := c.t.getJSON(ctx, "/events", filter.values(), &raw); err != nil {
		return nil, fmt.Errorf("gamma: list events: %w", err)
	}
	events := make([]domain.Event, 0, len(raw))
	for i := range raw {
		events = append(events, raw[i].toDomain())
	}
	return events, nil
}

// GetMarketBySlug resolves a market by slug. It first issues an exact slug
// query; if that returns nothing it falls back to scanning a bounded window
// of active markets for an exact then substring match.
func (c *GammaClient) GetMarketBySlug(ctx context.Context, slug string) (*domain.Market, error) {
	markets, err := c.GetMarkets(ctx, &MarketFilter{Slugs: []string{slug}})
	if err != nil {
		return nil, err
	}
	if len(markets) > 0 {
		return &markets[0], nil
	}

	active := true
	scan, err := c.GetMarkets(ctx, &MarketFilter{Limit: defaultScanLimit, Active: &active})
	if err != nil {
		return nil, err
	}
	var partial *domain.Market
	for i := range scan {
		if scan[i].Slug == slug {
			return &scan[i], nil
		}
		if partial == nil && strings.Contains(scan[i].Slug, slug) {
			partial = &scan[i]
		}
	}
	if partial != nil {
		return partial, nil
	}
	return nil, fmt.Errorf("gamma: market %q: %w", slug, domain.ErrNotFound)
}

// FindMarketBySlug implements domain.MarketSource.
func (c *GammaClient) FindMarketBySlug(ctx context.Context, slug string) (*domain.Market, error) {
	return c.GetMarketBySlug(ctx, slug)
}

// SearchMarkets scans a bounded window of active markets for questions or
// slugs containing the query, case-insensitively.
func (c *GammaClient) SearchMarkets(ctx context.Context, query string, limit int) ([]domain.Market, error) {
	if limit <= 0 {
		limit = 10
	}
	active := true
	scan, err := c.GetMarkets(ctx, &MarketFilter{Limit: defaultScanLimit, Active: &active})
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(query)
	var out []domain.Market
	for i := range scan {
		m := scan[i]
		if strings.Contains(strings.ToLower(m.Question), needle) ||
			strings.Contains(strings.ToLower(m.Slug), needle) {
			out = append(out, m)
			if len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

// GetEventBySlug resolves an event, with its nested markets, by slug.
func (c *GammaClient) GetEventBySlug(ctx context.Context, slug string) (*domain.Event, error) {
	events, err := c.GetEvents(ctx, &EventFilter{Slugs: []string{slug}})
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, fmt.Errorf("gamma: event %q: %w", slug, domain.ErrNotFound)
	}
	return &events[0], nil
}

// GetMarketsByConditionIDs fetches markets for a set of condition ids.
func (c *GammaClient) GetMarketsByConditionIDs(ctx context.Context, conditionIDs []string) ([]domain.Market, error) {
	if len(conditionIDs) == 0 {
		return nil, nil
	}
	return c.GetMarkets(ctx, &MarketFilter{ConditionIDs: conditionIDs})
}

// GetMarketsByTokenIDs fetches markets for a set of CLOB token ids.
func (c *GammaClient) GetMarketsByTokenIDs(ctx context.Context, tokenIDs []string) ([]domain.Market, error) {
	if len(tokenIDs) == 0 {
		return nil, nil
	}
	return c.GetMarkets(ctx, &MarketFilter{TokenIDs: tokenIDs})
}
