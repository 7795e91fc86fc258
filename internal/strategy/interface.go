package strategy

import (
	"context"
	"time"

	"github.com/quangdle/polymarket-trading-bot/internal/exchange"
)

// Origin identifies which strategy produced a signal
type Origin string

const (
	OriginCopyTrade Origin = "copy_trade"
	OriginHighProb  Origin = "high_prob"
)

// Action is what the signal asks the execution coordinator to do
type Action string

const (
	ActionOpen   Action = "open"
	ActionClose  Action = "close"
	ActionReduce Action = "reduce"
)

// TradeSignal is a candidate trade produced by a detector. It is a transient
// value: consumed once by the risk gate and never persisted beyond the audit
// trail.
type TradeSignal struct {
	Origin        Origin
	Action        Action
	MarketID      string
	TokenID       string
	Question      string
	Side          exchange.Outcome
	SuggestedSize float64
	TriggerPrice  float64 // the price that produced the signal
	OrderType     exchange.OrderType
	LimitPrice    float64
	ReasonCode    string

	// DedupKey travels end-to-end as the order idempotency key so
	// at-least-once signal redelivery produces at most one position.
	DedupKey string

	// ReduceToSize is the remaining mirrored size for reduce signals
	ReduceToSize float64

	DetectedAt time.Time
}

// Detector converts external market or trader state into candidate trade
// signals once per tick.
//
// Detection has at-least-once hand-off semantics: a detector may not advance
// its internal state until Commit is called after the batch has been handed
// to the risk gate. A crash between Detect and Commit re-emits the same
// signals on the next poll, which the gate tolerates via dedup keys.
type Detector interface {
	Name() string
	Detect(ctx context.Context) ([]TradeSignal, error)
	Commit()
}
