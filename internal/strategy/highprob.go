package strategy

import (
	"context"
	"fmt"
	"time"

	"github.com/quangdle/polymarket-trading-bot/internal/audit"
	"github.com/quangdle/polymarket-trading-bot/internal/config"
	"github.com/quangdle/polymarket-trading-bot/internal/exchange"
	"github.com/quangdle/polymarket-trading-bot/internal/logger"
	"github.com/quangdle/polymarket-trading-bot/internal/position"
)

// HighProbDetector scans active markets for sides priced inside the entry
// threshold range. In mean-reversion mode it bets against the extreme side
// (buys the cheap opposite token); in momentum mode it follows it.
type HighProbDetector struct {
	cfg     config.HighProbConfig
	gateway exchange.Gateway
	book    *position.Book
	trail   audit.Trail
	log     *logger.Logger

	// markets already audited as skipped while their position stays open,
	// so a held market is logged once per episode instead of every scan
	skippedOpen map[string]struct{}
}

// NewHighProbDetector creates a high-probability entry detector
func NewHighProbDetector(cfg config.HighProbConfig, gateway exchange.Gateway, book *position.Book, trail audit.Trail, log *logger.Logger) *HighProbDetector {
	return &HighProbDetector{
		cfg:         cfg,
		gateway:     gateway,
		book:        book,
		trail:       trail,
		log:         log,
		skippedOpen: make(map[string]struct{}),
	}
}

// Name returns the strategy identifier
func (d *HighProbDetector) Name() string {
	return string(OriginHighProb)
}

// Detect scans active markets and emits at most one entry signal per market
func (d *HighProbDetector) Detect(ctx context.Context) ([]TradeSignal, error) {
	markets, err := d.gateway.GetActiveMarkets(ctx, exchange.MarketFilters{
		Limit:      100,
		ActiveOnly: d.cfg.ActiveMarketsOnly,
	})
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	var signals []TradeSignal

	for _, market := range markets {
		if !d.marketEligible(market, now) {
			continue
		}

		trigger, ok := d.findTriggerSide(market)
		if !ok {
			continue
		}

		if d.book.HasOpenMarket(market.ID) {
			d.auditAlreadyOpen(market, trigger)
			continue
		}
		delete(d.skippedOpen, market.ID)

		sig, ok := d.buildSignal(market, trigger, now)
		if !ok {
			continue
		}
		signals = append(signals, sig)
	}

	return signals, nil
}

// Commit is a no-op: the detector is stateless between scans, so redelivery
// after a crash costs nothing. Dedup keys keep re-scans from double opening.
func (d *HighProbDetector) Commit() {}

func (d *HighProbDetector) marketEligible(m exchange.MarketSnapshot, now time.Time) bool {
	if !m.Active {
		return false
	}
	if m.Liquidity < d.cfg.MinLiquidity {
		return false
	}
	if m.Volume24h < d.cfg.MinVolume24h {
		return false
	}
	if d.cfg.MaxHoursToClose > 0 && !m.EndDate.IsZero() {
		hoursLeft := m.EndDate.Sub(now).Hours()
		if hoursLeft <= 0 || hoursLeft > d.cfg.MaxHoursToClose {
			return false
		}
	}
	return true
}

// findTriggerSide returns the first token priced inside the entry range
func (d *HighProbDetector) findTriggerSide(m exchange.MarketSnapshot) (exchange.TokenQuote, bool) {
	for _, t := range m.Tokens {
		if t.Price >= d.cfg.EntryThresholdMin && t.Price <= d.cfg.EntryThresholdMax {
			return t, true
		}
	}
	return exchange.TokenQuote{}, false
}

func (d *HighProbDetector) buildSignal(m exchange.MarketSnapshot, trigger exchange.TokenQuote, now time.Time) (TradeSignal, bool) {
	entry := trigger
	reason := fmt.Sprintf("momentum entry: %s at $%.4f", trigger.Outcome, trigger.Price)

	if d.cfg.MeanReversion {
		opposite, ok := m.OppositeToken(trigger.TokenID)
		if !ok {
			// One-sided market data; the flipped price is still well defined
			opposite = exchange.TokenQuote{
				Outcome: trigger.Outcome.Opposite(),
				Price:   1.0 - trigger.Price,
			}
		}
		if opposite.TokenID == "" {
			d.log.Warning("Market %s has no opposite token id, skipping", m.ID)
			return TradeSignal{}, false
		}
		entry = opposite
		reason = fmt.Sprintf("mean reversion: %s at $%.4f, fading to %s", trigger.Outcome, trigger.Price, opposite.Outcome)
	}

	size := min(d.cfg.DefaultPositionSize, d.cfg.MaxPositionSize)

	orderType := exchange.OrderTypeMarket
	limitPrice := entry.Price
	if d.cfg.OrderType == "LIMIT" {
		orderType = exchange.OrderTypeLimit
		limitPrice = d.cfg.LimitEntryPrice(entry.Outcome == exchange.OutcomeYes)
	}

	return TradeSignal{
		Origin:        OriginHighProb,
		Action:        ActionOpen,
		MarketID:      m.ID,
		TokenID:       entry.TokenID,
		Question:      m.Question,
		Side:          entry.Outcome,
		SuggestedSize: size,
		TriggerPrice:  entry.Price,
		OrderType:     orderType,
		LimitPrice:    limitPrice,
		ReasonCode:    reason,
		DedupKey:      m.ID + ":" + entry.TokenID,
		DetectedAt:    now,
	}, true
}

// auditAlreadyOpen records the held-market skip once per open episode
func (d *HighProbDetector) auditAlreadyOpen(m exchange.MarketSnapshot, trigger exchange.TokenQuote) {
	if _, done := d.skippedOpen[m.ID]; done {
		return
	}
	d.skippedOpen[m.ID] = struct{}{}

	d.log.Info("Market %s still triggering but position already open", m.ID)
	d.trail.Append(audit.Record{
		Strategy: string(OriginHighProb),
		Action:   audit.ActionSkip,
		MarketID: m.ID,
		Side:     string(trigger.Outcome),
		Price:    trigger.Price,
		Reason:   audit.ReasonAlreadyOpen,
	})
}
