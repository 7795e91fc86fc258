package position

import (
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/quangdle/polymarket-trading-bot/internal/exchange"
)

// Status is the lifecycle state of a position
type Status string

const (
	StatusOpen          Status = "OPEN"
	StatusStopTriggered Status = "STOP_TRIGGERED"
	StatusTPTriggered   Status = "TP_TRIGGERED"
	StatusClosed        Status = "CLOSED"
)

// Trigger identifies which exit condition fired during a lifecycle scan
type Trigger string

const (
	TriggerStopLoss   Trigger = "stop_loss"
	TriggerTakeProfit Trigger = "take_profit"
)

// Position is one held outcome-token position. StopPrice and
// TakeProfitPrice are set at open time and never change for the life of the
// position; exits are re-evaluated against the current market price only.
type Position struct {
	ID              string           `json:"id"`
	Strategy        string           `json:"strategy"`
	MarketID        string           `json:"market_id"`
	TokenID         string           `json:"token_id"`
	Question        string           `json:"question"`
	Side            exchange.Outcome `json:"side"`
	Size            float64          `json:"size"` // USDC
	EntryPrice      float64          `json:"entry_price"`
	StopPrice       float64          `json:"stop_price"`
	TakeProfitPrice float64          `json:"take_profit_price,omitempty"` // 0 = no take profit
	Status          Status           `json:"status"`
	OpenedAt        time.Time        `json:"opened_at"`
	ClosedAt        time.Time        `json:"closed_at,omitempty"`
	CurrentPrice    float64          `json:"current_price"`
	RealizedPnL     float64          `json:"realized_pnl"`

	// DedupKey is the originating signal's idempotency key; the risk gate
	// uses it to drop crash-recovery redeliveries of the same signal.
	DedupKey string `json:"dedup_key"`
}

// UnrealizedPnL returns the mark-to-market PnL in USDC
func (p *Position) UnrealizedPnL() float64 {
	if p.EntryPrice <= 0 {
		return 0
	}
	return (p.CurrentPrice - p.EntryPrice) * (p.Size / p.EntryPrice)
}

// pnlAt returns the realized PnL if the position exits at price
func (p *Position) pnlAt(price float64) float64 {
	if p.EntryPrice <= 0 {
		return 0
	}
	return (price - p.EntryPrice) * (p.Size / p.EntryPrice)
}

// EvaluateTrigger checks a position's exit conditions against the current
// price. When a position is eligible for both stop and take-profit in the
// same tick, the stop wins: loss protection takes precedence.
func EvaluateTrigger(p Position, price float64) (Trigger, bool) {
	if p.Status != StatusOpen {
		return "", false
	}
	if p.StopPrice > 0 && price <= p.StopPrice {
		return TriggerStopLoss, true
	}
	if p.TakeProfitPrice > 0 && price >= p.TakeProfitPrice {
		return TriggerTakeProfit, true
	}
	return "", false
}

// Book owns the set of open and closed positions and is the only component
// allowed to transition their lifecycle state.
type Book struct {
	mu      sync.RWMutex
	open    map[string]*Position // tokenID -> position
	closed  []Position
	nowFunc func() time.Time
}

// NewBook creates an empty position book
func NewBook() *Book {
	return &Book{
		open:    make(map[string]*Position),
		nowFunc: time.Now,
	}
}

// SetClock overrides the book's clock; used by tests
func (b *Book) SetClock(now func() time.Time) {
	b.nowFunc = now
}

// Open adds a new OPEN position to the book and returns it with its
// generated id.
func (b *Book) Open(p Position) (Position, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.open[p.TokenID]; exists {
		return Position{}, fmt.Errorf("position already open for token %s", p.TokenID)
	}

	p.ID = ulid.Make().String()
	p.Status = StatusOpen
	p.OpenedAt = b.nowFunc()
	p.CurrentPrice = p.EntryPrice

	b.open[p.TokenID] = &p
	return p, nil
}

// Get returns a copy of the open position for a token
func (b *Book) Get(tokenID string) (Position, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	p, ok := b.open[tokenID]
	if !ok {
		return Position{}, false
	}
	return *p, true
}

// HasOpenMarket reports whether any open position exists for a market
func (b *Book) HasOpenMarket(marketID string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, p := range b.open {
		if p.MarketID == marketID {
			return true
		}
	}
	return false
}

// OpenCount returns the number of open positions
func (b *Book) OpenCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.open)
}

// OpenPositions returns copies of all open positions
func (b *Book) OpenPositions() []Position {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]Position, 0, len(b.open))
	for _, p := range b.open {
		out = append(out, *p)
	}
	return out
}

// ClosedPositions returns copies of all closed positions
func (b *Book) ClosedPositions() []Position {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]Position, len(b.closed))
	copy(out, b.closed)
	return out
}

// MarkPrice updates the last observed market price for an open position
func (b *Book) MarkPrice(tokenID string, price float64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if p, ok := b.open[tokenID]; ok {
		p.CurrentPrice = price
	}
}

// ReduceSize shrinks an open position after a partial close. The realized
// portion's PnL at exitPrice is returned.
func (b *Book) ReduceSize(tokenID string, newSize, exitPrice float64) (float64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	p, ok := b.open[tokenID]
	if !ok {
		return 0, fmt.Errorf("no open position for token %s", tokenID)
	}
	if newSize <= 0 || newSize >= p.Size {
		return 0, fmt.Errorf("invalid reduced size %.2f for position of size %.2f", newSize, p.Size)
	}

	closedPortion := *p
	closedPortion.Size = p.Size - newSize
	realized := closedPortion.pnlAt(exitPrice)

	p.Size = newSize
	p.RealizedPnL += realized
	return realized, nil
}

// MarkTriggered records the exit trigger on an open position. This is the
// only transition out of OPEN besides a direct close.
func (b *Book) MarkTriggered(tokenID string, trigger Trigger) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	p, ok := b.open[tokenID]
	if !ok {
		return fmt.Errorf("no open position for token %s", tokenID)
	}
	if p.Status != StatusOpen {
		return fmt.Errorf("position %s is %s, not OPEN", p.ID, p.Status)
	}

	switch trigger {
	case TriggerStopLoss:
		p.Status = StatusStopTriggered
	case TriggerTakeProfit:
		p.Status = StatusTPTriggered
	default:
		return fmt.Errorf("unknown trigger %q", trigger)
	}
	return nil
}

// Close finalizes a position at exitPrice. CLOSED is the single terminal
// state; a position can only be closed once.
func (b *Book) Close(tokenID string, exitPrice float64) (Position, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	p, ok := b.open[tokenID]
	if !ok {
		return Position{}, fmt.Errorf("no open position for token %s", tokenID)
	}

	p.CurrentPrice = exitPrice
	p.RealizedPnL += p.pnlAt(exitPrice)
	p.Status = StatusClosed
	p.ClosedAt = b.nowFunc()

	closed := *p
	delete(b.open, tokenID)
	b.closed = append(b.closed, closed)
	return closed, nil
}

// Restore reloads a previously persisted open position, keeping its
// original id and timestamps. Used at startup for crash recovery.
func (b *Book) Restore(p Position) error {
	if p.Status != StatusOpen {
		return fmt.Errorf("cannot restore position %s in state %s", p.ID, p.Status)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.open[p.TokenID]; exists {
		return fmt.Errorf("position already open for token %s", p.TokenID)
	}
	restored := p
	b.open[p.TokenID] = &restored
	return nil
}

// DedupKeys returns the dedup keys of all open positions; the risk gate
// seeds its processed-signal set from these after a restart.
func (b *Book) DedupKeys() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	keys := make([]string, 0, len(b.open))
	for _, p := range b.open {
		if p.DedupKey != "" {
			keys = append(keys, p.DedupKey)
		}
	}
	return keys
}
