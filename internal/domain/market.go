package domain

import "time"

// Market is the canonical market representation regardless of which upstream
// API it came from. The CLOB and Gamma APIs describe the same markets with
// different payload shapes; both are mapped onto this struct and never merged
// field-by-field afterwards.
type Market struct {
	ID          string
	Slug        string
	ConditionID string
	QuestionID  string
	Question    string

	// Outcomes and TokenIDs are aligned positionally. A token ID may be the
	// empty string when the outcome is not yet tradeable (placeholder options
	// in negRisk groups).
	Outcomes []string
	TokenIDs []string

	// Upstream lifecycle flags. These are independent booleans; the APIs set
	// combinations of them (a market can be inactive without being closed).
	Active   bool
	Closed   bool
	Archived bool

	Volume    float64
	Liquidity float64

	StartDate *time.Time
	EndDate   *time.Time

	EnableOrderBook bool

	// negRisk group fields. NegRiskMarketID is the group key and is only set
	// when NegRisk is true. GroupItemTitle is the short display label for this
	// option within the group (e.g. a team name).
	NegRisk         bool
	NegRiskMarketID string
	GroupItemTitle  string
}

// IsInactiveNegRiskOption reports whether the market is a placeholder option
// in a negRisk group: part of a group but with no tradeable token at all.
// Such markets are expected on event pages and are skipped, not errored on.
func (m *Market) IsInactiveNegRiskOption() bool {
	if !m.NegRisk || m.NegRiskMarketID == "" {
		return false
	}
	for _, tid := range m.TokenIDs {
		if tid != "" {
			return false
		}
	}
	return true
}

// HasTradeableToken reports whether at least one outcome has a non-empty
// token ID.
func (m *Market) HasTradeableToken() bool {
	for _, tid := range m.TokenIDs {
		if tid != "" {
			return true
		}
	}
	return false
}

// DisplayName returns the short label used in progress output: the group item
// title when present, otherwise the question truncated to maxLen runes.
func (m *Market) DisplayName(maxLen int) string {
	if m.GroupItemTitle != "" {
		return m.GroupItemTitle
	}
	q := []rune(m.Question)
	if maxLen > 0 && len(q) > maxLen {
		return string(q[:maxLen])
	}
	return m.Question
}

// Event groups related markets under one slug/title. An Event exclusively
// owns its Markets slice; markets are never shared across events.
type Event struct {
	ID          string
	Ticker      string
	Slug        string
	Title       string
	Description string

	Markets []Market

	Active   bool
	Closed   bool
	Archived bool
	Featured bool

	Volume    float64
	Liquidity float64

	StartDate *time.Time
	EndDate   *time.Time

	// For negRisk group events the group id matches the per-market group id.
	NegRisk         bool
	NegRiskMarketID string
}
