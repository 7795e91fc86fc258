package executor

import (
	"context"
	"fmt"

	"github.com/quangdle/polymarket-trading-bot/internal/audit"
	"github.com/quangdle/polymarket-trading-bot/internal/exchange"
	"github.com/quangdle/polymarket-trading-bot/internal/logger"
	"github.com/quangdle/polymarket-trading-bot/internal/monitoring"
	"github.com/quangdle/polymarket-trading-bot/internal/notifications"
	"github.com/quangdle/polymarket-trading-bot/internal/position"
	"github.com/quangdle/polymarket-trading-bot/internal/risk"
	"github.com/quangdle/polymarket-trading-bot/internal/strategy"
)

const (
	sideBuy  = "BUY"
	sideSell = "SELL"

	// Outcome tokens resolve at $1.00; take-profit targets are capped just
	// below so they stay reachable in the book.
	maxTakeProfitPrice = 0.99
)

// Coordinator turns risk-approved orders into venue orders and owns the
// resulting state transitions. Execution failure leaves every piece of
// state untouched: no position entry, no loss accounting, only an audit
// record of the failed attempt.
type Coordinator struct {
	strategyName string
	gateway      exchange.Gateway
	book         *position.Book
	ledger       *risk.Ledger
	trail        audit.Trail
	log          *logger.Logger
	notifier     notifications.Notifier

	stopLossPct   float64
	takeProfitPct float64 // 0 = strategy has no take-profit exit
}

// NewCoordinator creates an execution coordinator for one strategy
func NewCoordinator(strategyName string, gateway exchange.Gateway, book *position.Book, ledger *risk.Ledger, trail audit.Trail, log *logger.Logger, notifier notifications.Notifier, stopLossPct, takeProfitPct float64) *Coordinator {
	if notifier == nil {
		notifier = notifications.NoopNotifier{}
	}
	return &Coordinator{
		strategyName:  strategyName,
		gateway:       gateway,
		book:          book,
		ledger:        ledger,
		trail:         trail,
		log:           log,
		notifier:      notifier,
		stopLossPct:   stopLossPct,
		takeProfitPct: takeProfitPct,
	}
}

// ExecuteOrder dispatches a risk-approved order to the venue
func (c *Coordinator) ExecuteOrder(ctx context.Context, spec risk.OrderSpec) error {
	switch spec.Signal.Action {
	case strategy.ActionOpen:
		return c.executeOpen(ctx, spec)
	case strategy.ActionClose:
		return c.executeSignalClose(ctx, spec.Signal)
	case strategy.ActionReduce:
		return c.executeReduce(ctx, spec.Signal)
	default:
		return fmt.Errorf("unknown signal action %q", spec.Signal.Action)
	}
}

func (c *Coordinator) executeOpen(ctx context.Context, spec risk.OrderSpec) error {
	sig := spec.Signal

	limitPrice := sig.LimitPrice
	if limitPrice <= 0 {
		limitPrice = sig.TriggerPrice
	}

	result, err := c.gateway.PlaceOrder(ctx, exchange.OrderRequest{
		MarketID:       sig.MarketID,
		TokenID:        sig.TokenID,
		Side:           sideBuy,
		Size:           spec.Size,
		OrderType:      sig.OrderType,
		LimitPrice:     limitPrice,
		IdempotencyKey: sig.DedupKey,
	})
	if err != nil {
		c.recordFailure(sig, spec.Size, err)
		return err
	}
	if !result.Success {
		err := fmt.Errorf("order rejected: %s", result.ErrorMsg)
		c.recordFailure(sig, spec.Size, err)
		return err
	}

	fill := result.FillPrice
	if fill <= 0 {
		fill = limitPrice
	}

	stopPrice := fill * (1 - c.stopLossPct/100)
	tpPrice := 0.0
	if c.takeProfitPct > 0 {
		tpPrice = min(fill*(1+c.takeProfitPct/100), maxTakeProfitPrice)
	}

	pos, err := c.book.Open(position.Position{
		Strategy:        c.strategyName,
		MarketID:        sig.MarketID,
		TokenID:         sig.TokenID,
		Question:        sig.Question,
		Side:            sig.Side,
		Size:            spec.Size,
		EntryPrice:      fill,
		StopPrice:       stopPrice,
		TakeProfitPrice: tpPrice,
		DedupKey:        sig.DedupKey,
	})
	if err != nil {
		c.log.Error("Order %s filled but position entry failed: %v", result.OrderID, err)
		return err
	}

	action := audit.ActionEnter
	if sig.Origin == strategy.OriginCopyTrade {
		action = audit.ActionCopy
	}
	c.trail.Append(audit.Record{
		Strategy:   c.strategyName,
		Action:     action,
		MarketID:   sig.MarketID,
		Side:       string(sig.Side),
		Size:       spec.Size,
		Price:      fill,
		Reason:     sig.ReasonCode,
		PositionID: pos.ID,
	})

	c.log.LogTradeExecution(string(action), result.OrderID, sig.Question, string(sig.Side), spec.Size, fill)
	monitoring.RecordSignal(c.strategyName, "approved")
	monitoring.RecordTrade(c.strategyName, string(action), spec.Size)
	monitoring.UpdateOpenPositions(c.strategyName, c.book.OpenCount())

	c.notifier.SendAlert("success", fmt.Sprintf("Opened %s %s $%.2f @ $%.4f\n%s",
		c.strategyName, sig.Side, spec.Size, fill, sig.Question))
	return nil
}

// ExecuteTriggeredClose liquidates a position whose stop-loss or take-profit
// fired during the lifecycle scan.
func (c *Coordinator) ExecuteTriggeredClose(ctx context.Context, pos position.Position, trigger position.Trigger, price float64) error {
	// Order first, state second: a failed sell leaves the position OPEN so
	// the next lifecycle scan retries the trigger.
	result, err := c.placeSell(ctx, pos, price)
	if err != nil {
		c.log.LogError(fmt.Sprintf("close order for %s", pos.ID), err)
		c.trail.Append(audit.Record{
			Strategy:   c.strategyName,
			Action:     audit.ActionExecutionFailed,
			MarketID:   pos.MarketID,
			Side:       string(pos.Side),
			Size:       pos.Size,
			Price:      price,
			Reason:     audit.ReasonExecutionFailed,
			PositionID: pos.ID,
		})
		monitoring.RecordError("close_failed")
		return err
	}

	exitPrice := result.FillPrice
	if exitPrice <= 0 {
		exitPrice = price
	}

	if err := c.book.MarkTriggered(pos.TokenID, trigger); err != nil {
		return err
	}
	closed, err := c.book.Close(pos.TokenID, exitPrice)
	if err != nil {
		return err
	}
	c.settlePnL(closed.RealizedPnL)

	action := audit.ActionStopLoss
	level := "warning"
	if trigger == position.TriggerTakeProfit {
		action = audit.ActionTakeProfit
		level = "success"
	}
	c.trail.Append(audit.Record{
		Strategy:   c.strategyName,
		Action:     action,
		MarketID:   closed.MarketID,
		Side:       string(closed.Side),
		Size:       closed.Size,
		Price:      exitPrice,
		Reason:     fmt.Sprintf("%s at $%.4f, PnL $%.2f", trigger, exitPrice, closed.RealizedPnL),
		PositionID: closed.ID,
	})

	c.log.LogTradeExecution(string(action), result.OrderID, closed.Question, string(closed.Side), closed.Size, exitPrice)
	monitoring.RecordTrade(c.strategyName, string(action), closed.Size)
	monitoring.UpdateOpenPositions(c.strategyName, c.book.OpenCount())

	c.notifier.SendAlert(level, fmt.Sprintf("%s: closed %s $%.2f @ $%.4f, PnL $%.2f",
		trigger, closed.Side, closed.Size, exitPrice, closed.RealizedPnL))
	return nil
}

// executeSignalClose unwinds a position because its signal source asked for
// it (the target trader exited).
func (c *Coordinator) executeSignalClose(ctx context.Context, sig strategy.TradeSignal) error {
	pos, ok := c.book.Get(sig.TokenID)
	if !ok {
		// Already closed by a trigger; nothing to unwind
		return nil
	}

	price := sig.TriggerPrice
	if price <= 0 {
		price = pos.CurrentPrice
	}

	result, err := c.placeSell(ctx, pos, price)
	if err != nil {
		c.recordFailure(sig, pos.Size, err)
		return err
	}

	exitPrice := result.FillPrice
	if exitPrice <= 0 {
		exitPrice = price
	}

	closed, err := c.book.Close(pos.TokenID, exitPrice)
	if err != nil {
		return err
	}
	c.settlePnL(closed.RealizedPnL)

	c.trail.Append(audit.Record{
		Strategy:   c.strategyName,
		Action:     audit.ActionClose,
		MarketID:   closed.MarketID,
		Side:       string(closed.Side),
		Size:       closed.Size,
		Price:      exitPrice,
		Reason:     sig.ReasonCode,
		PositionID: closed.ID,
	})

	c.log.LogTradeExecution("CLOSE", result.OrderID, closed.Question, string(closed.Side), closed.Size, exitPrice)
	monitoring.RecordTrade(c.strategyName, string(audit.ActionClose), closed.Size)
	monitoring.UpdateOpenPositions(c.strategyName, c.book.OpenCount())
	return nil
}

// executeReduce sells down a mirrored position to the signal's target size
func (c *Coordinator) executeReduce(ctx context.Context, sig strategy.TradeSignal) error {
	pos, ok := c.book.Get(sig.TokenID)
	if !ok {
		return nil
	}
	if sig.ReduceToSize <= 0 || sig.ReduceToSize >= pos.Size {
		return nil
	}

	price := sig.TriggerPrice
	if price <= 0 {
		price = pos.CurrentPrice
	}

	sellPortion := pos
	sellPortion.Size = pos.Size - sig.ReduceToSize
	result, err := c.placeSell(ctx, sellPortion, price)
	if err != nil {
		c.recordFailure(sig, sellPortion.Size, err)
		return err
	}

	exitPrice := result.FillPrice
	if exitPrice <= 0 {
		exitPrice = price
	}

	realized, err := c.book.ReduceSize(sig.TokenID, sig.ReduceToSize, exitPrice)
	if err != nil {
		return err
	}
	c.settlePnL(realized)

	c.trail.Append(audit.Record{
		Strategy:   c.strategyName,
		Action:     audit.ActionClose,
		MarketID:   pos.MarketID,
		Side:       string(pos.Side),
		Size:       sellPortion.Size,
		Price:      exitPrice,
		Reason:     sig.ReasonCode,
		PositionID: pos.ID,
	})

	c.log.Trade("Reduced %s from $%.2f to $%.2f (realized $%.2f)",
		pos.MarketID, pos.Size, sig.ReduceToSize, realized)
	monitoring.RecordTrade(c.strategyName, string(audit.ActionClose), sellPortion.Size)
	return nil
}

func (c *Coordinator) placeSell(ctx context.Context, pos position.Position, price float64) (*exchange.OrderResult, error) {
	result, err := c.gateway.PlaceOrder(ctx, exchange.OrderRequest{
		MarketID:       pos.MarketID,
		TokenID:        pos.TokenID,
		Side:           sideSell,
		Size:           pos.Size,
		OrderType:      exchange.OrderTypeMarket,
		LimitPrice:     price,
		IdempotencyKey: "close-" + pos.ID,
	})
	if err != nil {
		return nil, err
	}
	if !result.Success {
		return nil, fmt.Errorf("sell rejected: %s", result.ErrorMsg)
	}
	return result, nil
}

// settlePnL routes a realized result into the loss ledger and risk gauges
func (c *Coordinator) settlePnL(realized float64) {
	if realized < 0 {
		c.ledger.RecordLoss(-realized)
	} else {
		c.ledger.RecordGain(realized)
	}

	state := c.ledger.Snapshot()
	monitoring.UpdateRisk(c.strategyName, state.DailyLoss, state.WeeklyLoss, state.RealizedPnL)
	c.log.LogRiskStatus(c.book.OpenCount(), state.DailyLoss, state.WeeklyLoss, state.RealizedPnL)
}

func (c *Coordinator) recordFailure(sig strategy.TradeSignal, size float64, err error) {
	c.log.LogError(fmt.Sprintf("order for %s", sig.MarketID), err)
	c.trail.Append(audit.Record{
		Strategy: c.strategyName,
		Action:   audit.ActionExecutionFailed,
		MarketID: sig.MarketID,
		Side:     string(sig.Side),
		Size:     size,
		Price:    sig.TriggerPrice,
		Reason:   fmt.Sprintf("%s: %v", audit.ReasonExecutionFailed, err),
	})
	monitoring.RecordError("order_failed")
	c.notifier.SendAlert("error", fmt.Sprintf("Order failed for %s: %v", sig.MarketID, err))
}
