package bot

import (
	"context"
	"time"

	boterrors "github.com/quangdle/polymarket-trading-bot/internal/errors"
	"github.com/quangdle/polymarket-trading-bot/internal/exchange"
	"github.com/quangdle/polymarket-trading-bot/internal/executor"
	"github.com/quangdle/polymarket-trading-bot/internal/logger"
	"github.com/quangdle/polymarket-trading-bot/internal/monitoring"
	"github.com/quangdle/polymarket-trading-bot/internal/position"
	"github.com/quangdle/polymarket-trading-bot/internal/risk"
	"github.com/quangdle/polymarket-trading-bot/internal/strategy"
)

// StrategyBot runs one strategy's full pipeline each tick: detection, risk
// gating, execution, then the position lifecycle scan. It implements
// scheduler.Runner so both strategies run on independent schedules.
type StrategyBot struct {
	name        string
	interval    time.Duration
	detector    strategy.Detector
	gate        *risk.Gate
	coordinator *executor.Coordinator
	book        *position.Book
	gateway     exchange.Gateway
	log         *logger.Logger
	health      *monitoring.HealthChecker
}

// NewStrategyBot wires one strategy's pipeline
func NewStrategyBot(interval time.Duration, detector strategy.Detector, gate *risk.Gate, coordinator *executor.Coordinator, book *position.Book, gateway exchange.Gateway, log *logger.Logger, health *monitoring.HealthChecker) *StrategyBot {
	return &StrategyBot{
		name:        detector.Name(),
		interval:    interval,
		detector:    detector,
		gate:        gate,
		coordinator: coordinator,
		book:        book,
		gateway:     gateway,
		log:         log,
		health:      health,
	}
}

// Name returns the strategy identifier
func (b *StrategyBot) Name() string { return b.name }

// Interval returns the strategy's tick cadence
func (b *StrategyBot) Interval() time.Duration { return b.interval }

// Tick runs one full pipeline cycle. A detection failure abandons the
// detection phase but the lifecycle scan on already-open positions still
// runs: exits must keep working when signal sources are down.
func (b *StrategyBot) Tick(ctx context.Context) error {
	detectErr := b.runDetection(ctx)

	b.scanLifecycle(ctx)

	b.health.RecordTick(b.name)
	return detectErr
}

func (b *StrategyBot) runDetection(ctx context.Context) error {
	signals, err := b.detector.Detect(ctx)
	if err != nil {
		monitoring.RecordError("detection")
		b.log.LogError("detection", err)
		return err
	}

	for _, sig := range signals {
		decision := b.gate.Evaluate(sig)
		if !decision.Approved {
			continue
		}

		if err := b.coordinator.ExecuteOrder(ctx, decision.Order); err != nil {
			if boterrors.IsNetwork(err) {
				// Wire is down; the rest of the batch would fail the same
				// way. The uncommitted detector re-emits next tick.
				b.log.Warning("Aborting tick after network failure: %v", err)
				return err
			}
			// Order-level rejection: already audited, next signal proceeds
			continue
		}
	}

	b.detector.Commit()
	return nil
}

// scanLifecycle re-evaluates every open position against a fresh price.
// A price fetch failure skips that position for this tick; triggers are
// never evaluated against stale marks.
func (b *StrategyBot) scanLifecycle(ctx context.Context) {
	for _, pos := range b.book.OpenPositions() {
		if pos.Status != position.StatusOpen {
			continue
		}

		price, err := b.gateway.GetMidpoint(ctx, pos.TokenID)
		if err != nil {
			monitoring.RecordError("price_fetch")
			b.log.Warning("Price fetch failed for %s, skipping this scan: %v", pos.TokenID, err)
			continue
		}
		b.book.MarkPrice(pos.TokenID, price)

		trigger, fired := position.EvaluateTrigger(pos, price)
		if !fired {
			continue
		}

		if err := b.coordinator.ExecuteTriggeredClose(ctx, pos, trigger, price); err != nil {
			b.log.LogError("triggered close", err)
		}
	}
}
