package risk

import (
	"sync"

	"github.com/quangdle/polymarket-trading-bot/internal/audit"
	"github.com/quangdle/polymarket-trading-bot/internal/monitoring"
	"github.com/quangdle/polymarket-trading-bot/internal/position"
	"github.com/quangdle/polymarket-trading-bot/internal/strategy"
)

// SizeBounds clamp approved order sizes to the strategy's configured range
type SizeBounds struct {
	Min float64
	Max float64
}

// OrderSpec is a finalized, risk-approved order ready for execution
type OrderSpec struct {
	Signal strategy.TradeSignal
	Size   float64 // clamped to the gate's bounds
}

// Decision is the gate's verdict on one signal. Rejections are terminal for
// that signal; the next poll cycle may regenerate a fresh one if conditions
// persist.
type Decision struct {
	Approved bool
	Reason   string
	Order    OrderSpec
}

// Gate is the single synchronous checkpoint between signal detection and
// order execution. Every candidate signal passes through here; nothing
// reaches the execution coordinator any other way.
type Gate struct {
	strategyName string
	ledger       *Ledger
	book         *position.Book
	bounds       SizeBounds
	trail        audit.Trail

	mu        sync.Mutex
	processed map[string]struct{} // dedup keys of approved open signals
}

// NewGate creates a risk gate for one strategy
func NewGate(strategyName string, ledger *Ledger, book *position.Book, bounds SizeBounds, trail audit.Trail) *Gate {
	return &Gate{
		strategyName: strategyName,
		ledger:       ledger,
		book:         book,
		bounds:       bounds,
		trail:        trail,
		processed:    make(map[string]struct{}),
	}
}

// SeedProcessed marks dedup keys as already executed. Called at startup
// with the keys of restored open positions so crash-recovery redeliveries
// of the same signals cannot double open.
func (g *Gate) SeedProcessed(keys []string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, k := range keys {
		g.processed[k] = struct{}{}
	}
}

// Evaluate runs the ordered risk checks on a signal and returns the
// decision. Rejections and skips are audited here with their reason code;
// they are expected control flow, not errors.
func (g *Gate) Evaluate(sig strategy.TradeSignal) Decision {
	// Close and reduce signals shrink exposure; they are never blocked by
	// entry limits and an emergency stop must not strand open positions.
	if sig.Action != strategy.ActionOpen {
		return Decision{Approved: true, Order: OrderSpec{Signal: sig, Size: sig.SuggestedSize}}
	}

	if g.isDuplicate(sig.DedupKey) {
		g.reject(sig, audit.ActionSkip, audit.ReasonDuplicate)
		return Decision{Reason: audit.ReasonDuplicate}
	}

	if g.ledger.EmergencyStopped() {
		g.reject(sig, audit.ActionBlocked, audit.ReasonEmergencyStop)
		return Decision{Reason: audit.ReasonEmergencyStop}
	}

	if g.book.OpenCount() >= g.ledger.Limits().MaxOpenPositions {
		g.reject(sig, audit.ActionBlocked, audit.ReasonMaxPositions)
		return Decision{Reason: audit.ReasonMaxPositions}
	}

	if g.ledger.LossLimitBreached() {
		g.reject(sig, audit.ActionBlocked, audit.ReasonLossLimit)
		return Decision{Reason: audit.ReasonLossLimit}
	}

	size := sig.SuggestedSize
	if g.bounds.Max > 0 && size > g.bounds.Max {
		size = g.bounds.Max
	}
	if size < g.bounds.Min {
		g.reject(sig, audit.ActionSkip, audit.ReasonBelowMinSize)
		return Decision{Reason: audit.ReasonBelowMinSize}
	}

	g.markProcessed(sig.DedupKey)
	return Decision{Approved: true, Order: OrderSpec{Signal: sig, Size: size}}
}

func (g *Gate) isDuplicate(dedupKey string) bool {
	if dedupKey == "" {
		return false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	_, seen := g.processed[dedupKey]
	return seen
}

func (g *Gate) markProcessed(dedupKey string) {
	if dedupKey == "" {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.processed[dedupKey] = struct{}{}
}

func (g *Gate) reject(sig strategy.TradeSignal, action audit.Action, reason string) {
	monitoring.RecordSignal(g.strategyName, string(action))
	g.trail.Append(audit.Record{
		Strategy: g.strategyName,
		Action:   action,
		MarketID: sig.MarketID,
		Side:     string(sig.Side),
		Size:     sig.SuggestedSize,
		Price:    sig.TriggerPrice,
		Reason:   reason,
	})
}
