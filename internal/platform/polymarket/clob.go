package polymarket

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cyoung/polydata/internal/domain"
)

// endCursor is the CLOB pagination sentinel for the final page.
const endCursor = "LTE="

// defaultScanLimit bounds how many markets slug lookups and searches walk
// through the paginated listing before giving up.
const defaultScanLimit = 1000

// ClobClient talks to the Polymarket CLOB REST API. It serves market listing
// and lookup, price history, order books and quote prices.
type ClobClient struct {
	t      *transport
	logger *slog.Logger
}

// NewClobClient creates a CLOB client. An empty baseURL selects the public
// endpoint.
func NewClobClient(baseURL string, cfg TransportConfig, logger *slog.Logger) *ClobClient {
	if baseURL == "" {
		baseURL = DefaultClobURL
	}
	return &ClobClient{
		t:      newTransport(baseURL, cfg, logger),
		logger: logger.With("client", "clob"),
	}
}

// Close releases idle connections.
func (c *ClobClient) Close() {
	c.t.close()
}

// GetMarkets fetches a single page of the market listing starting at cursor.
// An empty cursor fetches the first page.
func (c *ClobClient) GetMarkets(ctx context.Context, cursor string) ([]domain.Market, string, error) {
	q := url.Values{}
	if cursor != "" {
		q.Set("next_cursor", cursor)
	}
	var page clobMarketsPage
	if err := c.t.getJSON(ctx, "/markets", q, &page); err != nil {
		return nil, "", fmt.Errorf("clob: list markets: %w", err)
	}
	markets := make([]domain.Market, 0, len(page.Data))
	for i := range page.Data {
		markets = append(markets, page.Data[i].toDomain())
	}
	return markets, page.NextCursor, nil
}

// MarketPager iterates the full CLOB market listing page by page. Each call
// to Next returns the next page; Done reports when the end sentinel has been
// reached. A pager is single-use; create a new one to restart from the top.
type MarketPager struct {
	client *ClobClient
	cursor string
	done   bool
}

// Markets returns a pager positioned at the start of the listing.
func (c *ClobClient) Markets() *MarketPager {
	return &MarketPager{client: c}
}

// Done reports whether the listing is exhausted.
func (p *MarketPager) Done() bool {
	return p.done
}

// Next fetches the next page. It returns an empty slice once the listing is
// exhausted.
func (p *MarketPager) Next(ctx context.Context) ([]domain.Market, error) {
	if p.done {
		return nil, nil
	}
	markets, next, err := p.client.GetMarkets(ctx, p.cursor)
	if err != nil {
		return nil, err
	}
	if next == "" || next == endCursor {
		p.done = true
	}
	p.cursor = next
	return markets, nil
}

// FindMarketBySlug scans the market listing for an exact slug match. The
// scan is bounded; domain.ErrNotFound is returned when the slug does not
// appear within the bound.
func (c *ClobClient) FindMarketBySlug(ctx context.Context, slug string) (*domain.Market, error) {
	pager := c.Markets()
	scanned := 0
	for !pager.Done() && scanned < defaultScanLimit {
		markets, err := pager.Next(ctx)
		if err != nil {
			return nil, err
		}
		for i := range markets {
			if markets[i].Slug == slug {
				return &markets[i], nil
			}
		}
		scanned += len(markets)
	}
	return nil, fmt.Errorf("clob: market %q: %w", slug, domain.ErrNotFound)
}

// SearchMarkets scans the listing for markets whose question or slug
// contains the query, case-insensitively. The scan stops early once limit
// matches are collected.
func (c *ClobClient) SearchMarkets(ctx context.Context, query string, limit int) ([]domain.Market, error) {
	if limit <= 0 {
		limit = 10
	}
	needle := strings.ToLower(query)
	var out []domain.Market
	pager := c.Markets()
	scanned := 0
	for !pager.Done() && scanned < defaultScanLimit {
		markets, err := pager.Next(ctx)
		if err != nil {
			return nil, err
		}
		for i := range markets {
			m := markets[i]
			if strings.Contains(strings.ToLower(m.Question), needle) ||
				strings.Contains(strings.ToLower(m.Slug), needle) {
				out = append(out, m)
				if len(out) >= limit {
					return out, nil
				}
			}
		}
		scanned += len(markets)
	}
	return out, nil
}

// PriceHistory fetches price observations for a token over [startTs, endTs].
// Timestamps are unix seconds. The API rejects windows that are too long for
// the chosen fidelity with domain.ErrWindowTooLong; callers narrow and retry.
func (c *ClobClient) PriceHistory(ctx context.Context, tokenID string, interval domain.TimeInterval, startTs, endTs int64) ([]domain.PricePoint, error) {
	q := url.Values{}
	q.Set("market", tokenID)
	if interval != "" {
		q.Set("interval", string(interval))
	}
	if startTs > 0 {
		q.Set("startTs", strconv.FormatInt(startTs, 10))
	}
	if endTs > 0 {
		q.Set("endTs", strconv.FormatInt(endTs, 10))
	}
	var resp clobHistoryResponse
	if err := c.t.getJSON(ctx, "/prices-history", q, &resp); err != nil {
		return nil, fmt.Errorf("clob: price history for %s: %w", tokenID, err)
	}
	points := make([]domain.PricePoint, 0, len(resp.History))
	for _, p := range resp.History {
		points = append(points, p.toDomain())
	}
	return points, nil
}

func levelsToDomain(levels []clobBookLevel) ([]domain.OrderLevel, error) {
	out := make([]domain.OrderLevel, 0, len(levels))
	for _, lv := range levels {
		price, err := decimal.NewFromString(lv.Price)
		if err != nil {
			return nil, fmt.Errorf("parse level price %q: %w", lv.Price, err)
		}
		size, err := decimal.NewFromString(lv.Size)
		if err != nil {
			return nil, fmt.Errorf("parse level size %q: %w", lv.Size, err)
		}
		out = append(out, domain.OrderLevel{Price: price, Size: size})
	}
	return out, nil
}

func (c *ClobClient) bookToDomain(b *clobBook) (*domain.OrderBook, error) {
	bids, err := levelsToDomain(b.Bids)
	if err != nil {
		return nil, err
	}
	asks, err := levelsToDomain(b.Asks)
	if err != nil {
		return nil, err
	}
	return domain.NewOrderBook(b.Market, b.AssetID, "", bids, asks), nil
}

// OrderBook fetches the full order book for a token.
func (c *ClobClient) OrderBook(ctx context.Context, tokenID string) (*domain.OrderBook, error) {
	q := url.Values{}
	q.Set("token_id", tokenID)
	var raw clobBook
	if err := c.t.getJSON(ctx, "/book", q, &raw); err != nil {
		return nil, fmt.Errorf("clob: book for %s: %w", tokenID, err)
	}
	book, err := c.bookToDomain(&raw)
	if err != nil {
		return nil, fmt.Errorf("clob: book for %s: %w", tokenID, err)
	}
	return book, nil
}

// OrderBooks fetches books for several tokens in one call. The result maps
// token id to book; tokens absent from the response are absent from the map.
func (c *ClobClient) OrderBooks(ctx context.Context, tokenIDs []string) (map[string]*domain.OrderBook, error) {
	if len(tokenIDs) == 0 {
		return map[string]*domain.OrderBook{}, nil
	}
	q := url.Values{}
	for _, id := range tokenIDs {
		q.Add("token_id", id)
	}
	var raw []clobBook
	if err := c.t.getJSON(ctx, "/books", q, &raw); err != nil {
		return nil, fmt.Errorf("clob: books: %w", err)
	}
	books := make(map[string]*domain.OrderBook, len(raw))
	for i := range raw {
		book, err := c.bookToDomain(&raw[i])
		if err != nil {
			return nil, fmt.Errorf("clob: books: %w", err)
		}
		books[raw[i].AssetID] = book
	}
	return books, nil
}

// MarketBooks fetches every tradeable outcome's book for one market and
// groups them by outcome name. Outcomes with an empty token id or no book
// in the response are omitted.
func (c *ClobClient) MarketBooks(ctx context.Context, market *domain.Market) (*domain.MarketOrderBooks, error) {
	var tokens []string
	for _, id := range market.TokenIDs {
		if id != "" {
			tokens = append(tokens, id)
		}
	}
	byToken, err := c.OrderBooks(ctx, tokens)
	if err != nil {
		return nil, fmt.Errorf("clob: market books for %s: %w", market.Slug, err)
	}
	out := &domain.MarketOrderBooks{
		MarketID:  market.ID,
		Question:  market.Question,
		Books:     make(map[string]*domain.OrderBook, len(byToken)),
		Timestamp: time.Now().UTC(),
	}
	for i, outcome := range market.Outcomes {
		if i >= len(market.TokenIDs) {
			break
		}
		if book, ok := byToken[market.TokenIDs[i]]; ok {
			book.Outcome = outcome
			out.Books[outcome] = book
		}
	}
	return out, nil
}

// Midpoint fetches the midpoint price for a token.
func (c *ClobClient) Midpoint(ctx context.Context, tokenID string) (decimal.Decimal, error) {
	q := url.Values{}
	q.Set("token_id", tokenID)
	var resp struct {
		Mid string `json:"mid"`
	}
	if err := c.t.getJSON(ctx, "/midpoint", q, &resp); err != nil {
		return decimal.Zero, fmt.Errorf("clob: midpoint for %s: %w", tokenID, err)
	}
	mid, err := decimal.NewFromString(resp.Mid)
	if err != nil {
		return decimal.Zero, fmt.Errorf("clob: midpoint for %s: parse %q: %w", tokenID, resp.Mid, err)
	}
	return mid, nil
}

// Spread fetches the bid/ask spread for a token.
func (c *ClobClient) Spread(ctx context.Context, tokenID string) (decimal.Decimal, error) {
	q := url.Values{}
	q.Set("token_id", tokenID)
	var resp struct {
		Spread string `json:"spread"`
	}
	if err := c.t.getJSON(ctx, "/spread", q, &resp); err != nil {
		return decimal.Zero, fmt.Errorf("clob: spread for %s: %w", tokenID, err)
	}
	spread, err := decimal.NewFromString(resp.Spread)
	if err != nil {
		return decimal.Zero, fmt.Errorf("clob: spread for %s: parse %q: %w", tokenID, resp.Spread, err)
	}
	return spread, nil
}

// Price fetches the quoted price for one side of a token. When the price
// endpoint returns an unusable payload it falls back to the top of the book.
func (c *ClobClient) Price(ctx context.Context, tokenID, side string) (decimal.Decimal, error) {
	side = strings.ToUpper(side)
	if side != "BUY" && side != "SELL" {
		return decimal.Zero, fmt.Errorf("clob: price side %q: %w", side, domain.ErrInvalidUsage)
	}
	q := url.Values{}
	q.Set("token_id", tokenID)
	q.Set("side", side)
	var resp struct {
		Price string `json:"price"`
	}
	if err := c.t.getJSON(ctx, "/price", q, &resp); err == nil && resp.Price != "" {
		if price, perr := decimal.NewFromString(resp.Price); perr == nil {
			return price, nil
		}
	}
	c.logger.Debug("price endpoint unusable, falling back to book top",
		"token_id", tokenID, "side", side)
	book, err := c.OrderBook(ctx, tokenID)
	if err != nil {
		return decimal.Zero, err
	}
	var (
		top domain.OrderLevel
		ok  bool
	)
	if side == "BUY" {
		top, ok = book.BestAsk()
	} else {
		top, ok = book.BestBid()
	}
	if !ok {
		return decimal.Zero, fmt.Errorf("clob: price for %s: empty book: %w", tokenID, domain.ErrNotFound)
	}
	return top.Price, nil
}
