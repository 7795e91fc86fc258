package exchange

import (
	"context"
	"time"
)

// Outcome identifies the side of a binary prediction market
type Outcome string

const (
	OutcomeYes Outcome = "YES"
	OutcomeNo  Outcome = "NO"
)

// Opposite returns the other side of the market
func (o Outcome) Opposite() Outcome {
	if o == OutcomeYes {
		return OutcomeNo
	}
	return OutcomeYes
}

// OrderType selects how an order is priced
type OrderType string

const (
	OrderTypeMarket OrderType = "MARKET"
	OrderTypeLimit  OrderType = "LIMIT"
)

// TokenQuote is one outcome token of a market with its current price
type TokenQuote struct {
	TokenID string
	Outcome Outcome
	Price   float64 // probability-denominated, 0-1
}

// MarketSnapshot is the gateway's view of one market at scan time
type MarketSnapshot struct {
	ID        string
	Question  string
	Tokens    []TokenQuote
	Liquidity float64
	Volume24h float64
	EndDate   time.Time
	Active    bool
}

// OppositeToken returns the token on the other side of the market, if known.
func (m *MarketSnapshot) OppositeToken(tokenID string) (TokenQuote, bool) {
	for _, t := range m.Tokens {
		if t.TokenID != tokenID {
			return t, true
		}
	}
	return TokenQuote{}, false
}

// PositionSnapshot is one of the target trader's open positions
type PositionSnapshot struct {
	MarketID string
	TokenID  string
	Outcome  Outcome
	Size     float64 // USDC value
	AvgPrice float64
}

// MarketFilters narrows the active-market listing
type MarketFilters struct {
	Limit      int
	ActiveOnly bool
}

// OrderRequest is a fully specified order for the venue
type OrderRequest struct {
	MarketID   string
	TokenID    string
	Side       string // BUY or SELL
	Size       float64
	OrderType  OrderType
	LimitPrice float64 // used only for LIMIT orders

	// IdempotencyKey makes at-least-once signal redelivery safe: the venue
	// deduplicates resubmissions carrying the same key.
	IdempotencyKey string
}

// OrderResult is the venue's response to an order placement
type OrderResult struct {
	Success   bool
	OrderID   string
	FillPrice float64
	ErrorMsg  string
}

// Gateway is the exchange access contract consumed by the trading core.
// Implementations fail with a NETWORK-category error for transient wire
// failures (aborts the current tick) or an EXCHANGE-category error for
// order-level rejections (recorded per signal, tick continues).
type Gateway interface {
	Connect(ctx context.Context) error
	Disconnect() error

	// Market data
	GetActiveMarkets(ctx context.Context, filters MarketFilters) ([]MarketSnapshot, error)
	GetMidpoint(ctx context.Context, tokenID string) (float64, error)

	// Target trader state
	GetTargetPositions(ctx context.Context, traderAddress string) ([]PositionSnapshot, error)

	// Account
	GetBalance(ctx context.Context) (float64, error)

	// Trading
	PlaceOrder(ctx context.Context, req OrderRequest) (*OrderResult, error)
}
