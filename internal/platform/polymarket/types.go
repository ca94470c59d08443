package polymarket

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/cyoung/polydata/internal/domain"
)

// flexBool unmarshals from JSON bool or string ("true"/"false") so Gamma API
// responses work whether a flag is sent as bool or string.
type flexBool bool

func (f *flexBool) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = flexBool(b)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*f = flexBool(strings.EqualFold(s, "true") || s == "1")
	return nil
}

// flexFloat unmarshals from a JSON number or a string-encoded number. The
// Gamma and Data APIs send volume/liquidity/size fields both ways.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*f = flexFloat(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*f = flexFloat(n)
	return nil
}

// stringList unmarshals either a plain JSON array of strings or a
// JSON-encoded string containing such an array. Gamma sends "outcomes" and
// "clobTokenIds" as embedded JSON, e.g. "[\"Yes\",\"No\"]".
type stringList []string

func (l *stringList) UnmarshalJSON(data []byte) error {
	var plain []string
	if err := json.Unmarshal(data, &plain); err == nil {
		*l = plain
		return nil
	}
	var embedded string
	if err := json.Unmarshal(data, &embedded); err != nil {
		return err
	}
	if embedded == "" {
		*l = nil
		return nil
	}
	var parsed []string
	if err := json.Unmarshal([]byte(embedded), &parsed); err != nil {
		return err
	}
	*l = parsed
	return nil
}

func parseISOTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	return &t
}

// --------------------------------------------------------------------------
// CLOB API DTOs
// --------------------------------------------------------------------------

// clobToken is one outcome token inside a CLOB market response.
type clobToken struct {
	TokenID string    `json:"token_id"`
	Outcome string    `json:"outcome"`
	Price   flexFloat `json:"price"`
	Winner  bool      `json:"winner"`
}

// clobMarket is a market as returned by the CLOB /markets endpoint.
type clobMarket struct {
	ConditionID     string      `json:"condition_id"`
	QuestionID      string      `json:"question_id"`
	Question        string      `json:"question"`
	MarketSlug      string      `json:"market_slug"`
	Active          bool        `json:"active"`
	Closed          bool        `json:"closed"`
	Archived        bool        `json:"archived"`
	Tokens          []clobToken `json:"tokens"`
	EndDateISO      string      `json:"end_date_iso"`
	EnableOrderBook bool        `json:"enable_order_book"`
	NegRisk         bool        `json:"neg_risk"`
	NegRiskMarketID string      `json:"neg_risk_market_id"`
	GroupItemTitle  string      `json:"group_item_title"`
}

func (m *clobMarket) toDomain() domain.Market {
	dm := domain.Market{
		Slug:            m.MarketSlug,
		ConditionID:     m.ConditionID,
		QuestionID:      m.QuestionID,
		Question:        m.Question,
		Active:          m.Active,
		Closed:          m.Closed,
		Archived:        m.Archived,
		EndDate:         parseISOTime(m.EndDateISO),
		EnableOrderBook: m.EnableOrderBook,
		NegRisk:         m.NegRisk,
		NegRiskMarketID: m.NegRiskMarketID,
		GroupItemTitle:  m.GroupItemTitle,
	}
	// Tokens with an empty id are placeholders; drop them so outcomes and
	// token ids stay positionally aligned over tradeable tokens only.
	for _, tok := range m.Tokens {
		if tok.TokenID == "" || tok.Outcome == "" {
			continue
		}
		dm.Outcomes = append(dm.Outcomes, tok.Outcome)
		dm.TokenIDs = append(dm.TokenIDs, tok.TokenID)
	}
	return dm
}

// clobMarketsPage is one page of the cursor-paginated /markets listing.
type clobMarketsPage struct {
	Limit      int          `json:"limit"`
	Count      int          `json:"count"`
	NextCursor string       `json:"next_cursor"`
	Data       []clobMarket `json:"data"`
}

// clobHistoryResponse is the /prices-history payload.
type clobHistoryResponse struct {
	History []clobPricePoint `json:"history"`
}

// clobPricePoint is a single {t, p} observation with a unix-seconds timestamp.
type clobPricePoint struct {
	T int64     `json:"t"`
	P flexFloat `json:"p"`
}

func (p clobPricePoint) toDomain() domain.PricePoint {
	return domain.PricePoint{
		Timestamp: time.Unix(p.T, 0).UTC(),
		Price:     float64(p.P),
	}
}

// clobBookLevel is a single bid/ask level; prices and sizes arrive as decimal
// strings and are kept as strings until the domain layer parses them exactly.
type clobBookLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

// clobBook is the /book (and /books element) payload for one token.
type clobBook struct {
	Market  string          `json:"market"`
	AssetID string          `json:"asset_id"`
	Bids    []clobBookLevel `json:"bids"`
	Asks    []clobBookLevel `json:"asks"`
}

// --------------------------------------------------------------------------
// Gamma API DTOs
// --------------------------------------------------------------------------

// gammaMarket is a market as returned by the Gamma API. Keys are camelCase
// and several list fields arrive as JSON-encoded strings.
type gammaMarket struct {
	ID              string     `json:"id"`
	Slug            string     `json:"slug"`
	Question        string     `json:"question"`
	ConditionID     string     `json:"conditionId"`
	QuestionID      string     `json:"questionID"`
	Outcomes        stringList `json:"outcomes"`
	OutcomePrices   stringList `json:"outcomePrices"`
	ClobTokenIDs    stringList `json:"clobTokenIds"`
	Active          flexBool   `json:"active"`
	Closed          flexBool   `json:"closed"`
	Archived        flexBool   `json:"archived"`
	Volume          flexFloat  `json:"volume"`
	Liquidity       flexFloat  `json:"liquidity"`
	StartDate       string     `json:"startDate"`
	EndDate         string     `json:"endDate"`
	EnableOrderBook flexBool   `json:"enableOrderBook"`
	NegRisk         bool       `json:"negRisk"`
	NegRiskMarketID string     `json:"negRiskMarketID"`
	GroupItemTitle  string     `json:"groupItemTitle"`
}

func (m *gammaMarket) toDomain() domain.Market {
	dm := domain.Market{
		ID:              m.ID,
		Slug:            m.Slug,
		ConditionID:     m.ConditionID,
		QuestionID:      m.QuestionID,
		Question:        m.Question,
		Outcomes:        []string(m.Outcomes),
		TokenIDs:        []string(m.ClobTokenIDs),
		Active:          bool(m.Active),
		Closed:          bool(m.Closed),
		Archived:        bool(m.Archived),
		Volume:          float64(m.Volume),
		Liquidity:       float64(m.Liquidity),
		StartDate:       parseISOTime(m.StartDate),
		EndDate:         parseISOTime(m.EndDate),
		EnableOrderBook: bool(m.EnableOrderBook),
		NegRisk:         m.NegRisk,
		NegRiskMarketID: m.NegRiskMarketID,
		GroupItemTitle:  m.GroupItemTitle,
	}
	// Gamma may omit token ids for markets that are not CLOB-tradeable yet;
	// pad with empty strings so outcomes and token ids stay aligned.
	for len(dm.TokenIDs) < len(dm.Outcomes) {
		dm.TokenIDs = append(dm.TokenIDs, "")
	}
	if len(dm.TokenIDs) > len(dm.Outcomes) {
		dm.TokenIDs = dm.TokenIDs[:len(dm.Outcomes)]
	}
	return dm
}

// gammaEvent is an event as returned by the Gamma API.
type gammaEvent struct {
	ID              string        `json:"id"`
	Ticker          string        `json:"ticker"`
	Slug            string        `json:"slug"`
	Title           string        `json:"title"`
	Description     string        `json:"description"`
	Markets         []gammaMarket `json:"markets"`
	Active          flexBool      `json:"active"`
	Closed          flexBool      `json:"closed"`
	Archived        flexBool      `json:"archived"`
	Featured        flexBool      `json:"featured"`
	Volume          flexFloat     `json:"volume"`
	Liquidity       flexFloat     `json:"liquidity"`
	StartDate       string        `json:"startDate"`
	EndDate         string        `json:"endDate"`
	NegRisk         bool          `json:"negRisk"`
	NegRiskMarketID string        `json:"negRiskMarketID"`
}

func (e *gammaEvent) toDomain() domain.Event {
	ev := domain.Event{
		ID:              e.ID,
		Ticker:          e.Ticker,
		Slug:            e.Slug,
		Title:           e.Title,
		Description:     e.Description,
		Active:          bool(e.Active),
		Closed:          bool(e.Closed),
		Archived:        bool(e.Archived),
		Featured:        bool(e.Featured),
		Volume:          float64(e.Volume),
		Liquidity:       float64(e.Liquidity),
		StartDate:       parseISOTime(e.StartDate),
		EndDate:         parseISOTime(e.EndDate),
		NegRisk:         e.NegRisk,
		NegRiskMarketID: e.NegRiskMarketID,
	}
	for i := range e.Markets {
		ev.Markets = append(ev.Markets, e.Markets[i].toDomain())
	}
	return ev
}

// --------------------------------------------------------------------------
// Data API DTOs
// --------------------------------------------------------------------------

// Position is one user position from the Data API. Numeric fields arrive
// string-encoded and are coerced on decode.
type Position struct {
	ProxyWallet  string    `json:"proxyWallet"`
	Asset        string    `json:"asset"`
	ConditionID  string    `json:"conditionId"`
	Title        string    `json:"title"`
	Slug         string    `json:"slug"`
	EventSlug    string    `json:"eventSlug"`
	Outcome      string    `json:"outcome"`
	OutcomeIndex int       `json:"outcomeIndex"`
	Size         flexFloat `json:"size"`
	AvgPrice     flexFloat `json:"avgPrice"`
	CurPrice     flexFloat `json:"curPrice"`
	InitialValue flexFloat `json:"initialValue"`
	CurrentValue flexFloat `json:"currentValue"`
	CashPnL      flexFloat `json:"cashPnl"`
	PercentPnL   flexFloat `json:"percentPnl"`
	Redeemable   bool      `json:"redeemable"`
	Mergeable    bool      `json:"mergeable"`
}

// Activity is one on-chain activity entry (trade, split, merge, redeem, ...).
type Activity struct {
	ProxyWallet string    `json:"proxyWallet"`
	Timestamp   int64     `json:"timestamp"`
	Type        string    `json:"type"`
	Side        string    `json:"side"`
	Asset       string    `json:"asset"`
	ConditionID string    `json:"conditionId"`
	Title       string    `json:"title"`
	Slug        string    `json:"slug"`
	Outcome     string    `json:"outcome"`
	Size        flexFloat `json:"size"`
	USDCSize    flexFloat `json:"usdcSize"`
	Price       flexFloat `json:"price"`
	TxHash      string    `json:"transactionHash"`
}

// Holder is one entry in a market's holder list.
type Holder struct {
	ProxyWallet  string    `json:"proxyWallet"`
	Name         string    `json:"name"`
	Pseudonym    string    `json:"pseudonym"`
	Amount       flexFloat `json:"amount"`
	OutcomeIndex int       `json:"outcomeIndex"`
}

// UserTrade is one fill from the Data API trades endpoint.
type UserTrade struct {
	ProxyWallet string    `json:"proxyWallet"`
	Side        string    `json:"side"`
	Asset       string    `json:"asset"`
	ConditionID string    `json:"conditionId"`
	Slug        string    `json:"slug"`
	Outcome     string    `json:"outcome"`
	Size        flexFloat `json:"size"`
	Price       flexFloat `json:"price"`
	Timestamp   int64     `json:"timestamp"`
	TxHash      string    `json:"transactionHash"`
}

// HoldingsValuePoint is one point of a user's holdings-value history.
type HoldingsValuePoint struct {
	Timestamp int64     `json:"t"`
	Value     flexFloat `json:"v"`
}
