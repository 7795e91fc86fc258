package strategy

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/quangdle/polymarket-trading-bot/internal/audit"
	"github.com/quangdle/polymarket-trading-bot/internal/config"
	"github.com/quangdle/polymarket-trading-bot/internal/exchange"
	"github.com/quangdle/polymarket-trading-bot/internal/logger"
	"github.com/quangdle/polymarket-trading-bot/internal/position"
)

// sizeEpsilon filters out dust-level position changes on the target
const sizeEpsilon = 0.01

// CopyTradeDetector mirrors a target trader's positions proportionally.
//
// Each poll it diffs the target's current open positions against the
// last-seen snapshot: grown or new positions become open signals, shrunk or
// vanished ones become reduce/close signals for the corresponding mirrored
// position. The last-seen snapshot only advances on Commit, after the batch
// has been handed to the risk gate, so a crash before hand-off re-emits the
// same signals next poll.
type CopyTradeDetector struct {
	cfg     config.CopyTradeConfig
	gateway exchange.Gateway
	book    *position.Book
	trail   audit.Trail
	log     *logger.Logger

	// mu guards the snapshot maps; Detect and Commit run on the strategy
	// goroutine but the state saver reads LastSeen from its own.
	mu       sync.Mutex
	lastSeen map[string]exchange.PositionSnapshot // tokenID -> snapshot
	pending  map[string]exchange.PositionSnapshot
	staged   bool
}

// NewCopyTradeDetector creates a copy-trade detector
func NewCopyTradeDetector(cfg config.CopyTradeConfig, gateway exchange.Gateway, book *position.Book, trail audit.Trail, log *logger.Logger) *CopyTradeDetector {
	return &CopyTradeDetector{
		cfg:      cfg,
		gateway:  gateway,
		book:     book,
		trail:    trail,
		log:      log,
		lastSeen: make(map[string]exchange.PositionSnapshot),
	}
}

// Name returns the strategy identifier
func (d *CopyTradeDetector) Name() string {
	return string(OriginCopyTrade)
}

// Detect polls the target trader and diffs against the last-seen state
func (d *CopyTradeDetector) Detect(ctx context.Context) ([]TradeSignal, error) {
	current, err := d.gateway.GetTargetPositions(ctx, d.cfg.TargetTraderAddress)
	if err != nil {
		return nil, err
	}

	available := d.availableCapital(ctx)
	now := time.Now().UTC()

	byToken := make(map[string]exchange.PositionSnapshot, len(current))
	for _, snap := range current {
		byToken[snap.TokenID] = snap
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	var signals []TradeSignal

	// Grown or newly opened target positions
	for _, tokenID := range sortedKeys(byToken) {
		snap := byToken[tokenID]
		prev := d.lastSeen[tokenID]
		delta := snap.Size - prev.Size
		if delta <= sizeEpsilon {
			continue
		}

		size := d.calculateSize(delta, available)
		eventID := fmt.Sprintf("%s:%.2f", tokenID, snap.Size)

		if size < d.cfg.MinTradeSize {
			d.auditSkip(snap, size, audit.ReasonBelowMinSize)
			continue
		}

		signals = append(signals, TradeSignal{
			Origin:        OriginCopyTrade,
			Action:        ActionOpen,
			MarketID:      snap.MarketID,
			TokenID:       snap.TokenID,
			Side:          snap.Outcome,
			SuggestedSize: size,
			TriggerPrice:  snap.AvgPrice,
			OrderType:     exchange.OrderTypeMarket,
			LimitPrice:    snap.AvgPrice,
			ReasonCode:    "copied from target trader",
			DedupKey:      snap.MarketID + ":" + eventID,
			DetectedAt:    now,
		})
	}

	// Shrunk or vanished target positions: unwind the mirror if we hold one
	for _, tokenID := range sortedKeys(d.lastSeen) {
		prev := d.lastSeen[tokenID]
		snap, stillHeld := byToken[tokenID]

		mirrored, haveMirror := d.book.Get(tokenID)
		if !haveMirror {
			continue
		}

		if !stillHeld || snap.Size <= sizeEpsilon {
			signals = append(signals, TradeSignal{
				Origin:       OriginCopyTrade,
				Action:       ActionClose,
				MarketID:     mirrored.MarketID,
				TokenID:      tokenID,
				Side:         mirrored.Side,
				TriggerPrice: mirrored.CurrentPrice,
				OrderType:    exchange.OrderTypeMarket,
				ReasonCode:   "target closed position",
				DedupKey:     fmt.Sprintf("%s:close:%.2f", mirrored.MarketID, prev.Size),
				DetectedAt:   now,
			})
			continue
		}

		if shrink := prev.Size - snap.Size; shrink > sizeEpsilon {
			remaining := mirrored.Size * snap.Size / prev.Size
			signals = append(signals, TradeSignal{
				Origin:        OriginCopyTrade,
				Action:        ActionReduce,
				MarketID:      mirrored.MarketID,
				TokenID:       tokenID,
				Side:          mirrored.Side,
				SuggestedSize: mirrored.Size - remaining,
				ReduceToSize:  remaining,
				TriggerPrice:  mirrored.CurrentPrice,
				OrderType:     exchange.OrderTypeMarket,
				ReasonCode:    "target reduced position",
				DedupKey:      fmt.Sprintf("%s:reduce:%.2f", mirrored.MarketID, snap.Size),
				DetectedAt:    now,
			})
		}
	}

	d.pending = byToken
	d.staged = true
	return signals, nil
}

// Commit advances the last-seen target state after the detected batch was
// handed to the risk gate. Skipping this on failure keeps at-least-once
// redelivery.
func (d *CopyTradeDetector) Commit() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.staged {
		return
	}
	d.lastSeen = d.pending
	d.pending = nil
	d.staged = false
}

// LastSeen returns a copy of the committed target-trader view for state
// persistence.
func (d *CopyTradeDetector) LastSeen() map[string]exchange.PositionSnapshot {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make(map[string]exchange.PositionSnapshot, len(d.lastSeen))
	for k, v := range d.lastSeen {
		out[k] = v
	}
	return out
}

// RestoreLastSeen reloads a persisted target-trader view at startup so a
// restart does not re-copy positions the target opened while we were live.
func (d *CopyTradeDetector) RestoreLastSeen(seen map[string]exchange.PositionSnapshot) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(seen) == 0 {
		return
	}
	d.lastSeen = make(map[string]exchange.PositionSnapshot, len(seen))
	for k, v := range seen {
		d.lastSeen[k] = v
	}
}

// calculateSize computes the proportional mirror size capped by the risk
// sizing rules.
func (d *CopyTradeDetector) calculateSize(targetDelta, available float64) float64 {
	var size float64
	if d.cfg.ProportionalSizing {
		size = targetDelta * d.cfg.CopyRatio
	} else {
		size = available * d.cfg.CapitalAllocationPct / 100
	}

	size = min(size, d.cfg.MaxTradeSize)
	size = min(size, available*d.cfg.MaxRiskPerTradePct/100)
	size = min(size, available)
	return size
}

// availableCapital uses the live account balance when the gateway has one,
// otherwise the configured capital (paper trading).
func (d *CopyTradeDetector) availableCapital(ctx context.Context) float64 {
	balance, err := d.gateway.GetBalance(ctx)
	if err != nil || balance <= 0 {
		return d.cfg.TotalCapital
	}
	return balance
}

func (d *CopyTradeDetector) auditSkip(snap exchange.PositionSnapshot, size float64, reason string) {
	d.log.Info("Skipping copy of %s: %s (size $%.2f)", snap.MarketID, reason, size)
	d.trail.Append(audit.Record{
		Strategy: string(OriginCopyTrade),
		Action:   audit.ActionSkip,
		MarketID: snap.MarketID,
		Side:     string(snap.Outcome),
		Size:     size,
		Price:    snap.AvgPrice,
		Reason:   reason,
	})
}

// sortedKeys gives the diff a stable, deterministic emission order so no
// target event can be starved behind map iteration randomness.
func sortedKeys(m map[string]exchange.PositionSnapshot) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
