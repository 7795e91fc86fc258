package strategy

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quangdle/polymarket-trading-bot/internal/audit"
	"github.com/quangdle/polymarket-trading-bot/internal/config"
	"github.com/quangdle/polymarket-trading-bot/internal/exchange"
	"github.com/quangdle/polymarket-trading-bot/internal/logger"
	"github.com/quangdle/polymarket-trading-bot/internal/position"
)

func copyTradeConfig() config.CopyTradeConfig {
	return config.CopyTradeConfig{
		Enabled:             true,
		TargetTraderAddress: "0xtarget",
		TotalCapital:        1000,
		MaxTradeSize:        200,
		MinTradeSize:        5,
		MaxRiskPerTradePct:  50,
		ProportionalSizing:  true,
		CopyRatio:           0.10,
	}
}

func newCopyDetector(cfg config.CopyTradeConfig, gw *fakeGateway) (*CopyTradeDetector, *position.Book, *audit.MemoryTrail) {
	book := position.NewBook()
	trail := audit.NewMemoryTrail()
	d := NewCopyTradeDetector(cfg, gw, book, trail, logger.NewDiscardLogger())
	return d, book, trail
}

func targetPosition(tokenID string, size float64) exchange.PositionSnapshot {
	return exchange.PositionSnapshot{
		MarketID: "mkt-" + tokenID,
		TokenID:  tokenID,
		Outcome:  exchange.OutcomeYes,
		Size:     size,
		AvgPrice: 0.60,
	}
}

func TestCopyTrade_MirrorsNewPositionProportionally(t *testing.T) {
	gw := &fakeGateway{targetPositions: []exchange.PositionSnapshot{targetPosition("tok-1", 1000)}}
	d, _, _ := newCopyDetector(copyTradeConfig(), gw)

	signals, err := d.Detect(context.Background())
	require.NoError(t, err)
	require.Len(t, signals, 1)

	sig := signals[0]
	assert.Equal(t, ActionOpen, sig.Action)
	assert.Equal(t, OriginCopyTrade, sig.Origin)
	assert.Equal(t, "tok-1", sig.TokenID)
	assert.Equal(t, exchange.OutcomeYes, sig.Side)
	// $1000 target at ratio 0.10 = $100, within the $200 cap
	assert.Equal(t, 100.0, sig.SuggestedSize)
	assert.NotEmpty(t, sig.DedupKey)
}

func TestCopyTrade_CapsAtMaxTradeSize(t *testing.T) {
	gw := &fakeGateway{targetPositions: []exchange.PositionSnapshot{targetPosition("tok-1", 5000)}}
	d, _, _ := newCopyDetector(copyTradeConfig(), gw)

	signals, err := d.Detect(context.Background())
	require.NoError(t, err)
	require.Len(t, signals, 1)

	// ratio gives $500, capped at max_trade_size $200
	assert.Equal(t, 200.0, signals[0].SuggestedSize)
}

func TestCopyTrade_CapitalAllocationSizing(t *testing.T) {
	cfg := copyTradeConfig()
	cfg.ProportionalSizing = false
	cfg.CapitalAllocationPct = 5

	gw := &fakeGateway{targetPositions: []exchange.PositionSnapshot{targetPosition("tok-1", 1000)}}
	d, _, _ := newCopyDetector(cfg, gw)

	signals, err := d.Detect(context.Background())
	require.NoError(t, err)
	require.Len(t, signals, 1)

	// 5% of configured $1000 capital (no live balance available)
	assert.Equal(t, 50.0, signals[0].SuggestedSize)
}

func TestCopyTrade_UsesLiveBalanceWhenAvailable(t *testing.T) {
	cfg := copyTradeConfig()
	cfg.ProportionalSizing = false
	cfg.CapitalAllocationPct = 10

	gw := &fakeGateway{
		targetPositions: []exchange.PositionSnapshot{targetPosition("tok-1", 1000)},
		balance:         400,
	}
	d, _, _ := newCopyDetector(cfg, gw)

	signals, err := d.Detect(context.Background())
	require.NoError(t, err)
	require.Len(t, signals, 1)
	assert.Equal(t, 40.0, signals[0].SuggestedSize)
}

func TestCopyTrade_SkipsBelowMinSizeWithAudit(t *testing.T) {
	// $30 target at ratio 0.10 = $3, below min_trade_size $5
	gw := &fakeGateway{targetPositions: []exchange.PositionSnapshot{targetPosition("tok-1", 30)}}
	d, _, trail := newCopyDetector(copyTradeConfig(), gw)

	signals, err := d.Detect(context.Background())
	require.NoError(t, err)
	assert.Empty(t, signals)

	records, err := trail.Records()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, audit.ActionSkip, records[0].Action)
	assert.Equal(t, audit.ReasonBelowMinSize, records[0].Reason)
}

func TestCopyTrade_NoSignalWithoutCommit(t *testing.T) {
	gw := &fakeGateway{targetPositions: []exchange.PositionSnapshot{targetPosition("tok-1", 1000)}}
	d, _, _ := newCopyDetector(copyTradeConfig(), gw)

	first, err := d.Detect(context.Background())
	require.NoError(t, err)
	require.Len(t, first, 1)

	// Without Commit the same event is re-emitted
	second, err := d.Detect(context.Background())
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, first[0].DedupKey, second[0].DedupKey)

	d.Commit()

	third, err := d.Detect(context.Background())
	require.NoError(t, err)
	assert.Empty(t, third)
}

func TestCopyTrade_DetectsIncrease(t *testing.T) {
	gw := &fakeGateway{targetPositions: []exchange.PositionSnapshot{targetPosition("tok-1", 1000)}}
	d, _, _ := newCopyDetector(copyTradeConfig(), gw)

	_, err := d.Detect(context.Background())
	require.NoError(t, err)
	d.Commit()

	gw.targetPositions = []exchange.PositionSnapshot{targetPosition("tok-1", 1500)}
	signals, err := d.Detect(context.Background())
	require.NoError(t, err)
	require.Len(t, signals, 1)

	// Only the $500 delta is mirrored
	assert.Equal(t, ActionOpen, signals[0].Action)
	assert.Equal(t, 50.0, signals[0].SuggestedSize)
}

func TestCopyTrade_TargetExitProducesCloseSignal(t *testing.T) {
	gw := &fakeGateway{targetPositions: []exchange.PositionSnapshot{targetPosition("tok-1", 1000)}}
	d, book, _ := newCopyDetector(copyTradeConfig(), gw)

	_, err := d.Detect(context.Background())
	require.NoError(t, err)
	d.Commit()

	// We executed the mirror
	_, err = book.Open(position.Position{
		Strategy:   string(OriginCopyTrade),
		MarketID:   "mkt-tok-1",
		TokenID:    "tok-1",
		Side:       exchange.OutcomeYes,
		Size:       100,
		EntryPrice: 0.60,
	})
	require.NoError(t, err)

	gw.targetPositions = nil
	signals, err := d.Detect(context.Background())
	require.NoError(t, err)
	require.Len(t, signals, 1)
	assert.Equal(t, ActionClose, signals[0].Action)
	assert.Equal(t, "tok-1", signals[0].TokenID)
}

func TestCopyTrade_TargetShrinkProducesReduceSignal(t *testing.T) {
	gw := &fakeGateway{targetPositions: []exchange.PositionSnapshot{targetPosition("tok-1", 1000)}}
	d, book, _ := newCopyDetector(copyTradeConfig(), gw)

	_, err := d.Detect(context.Background())
	require.NoError(t, err)
	d.Commit()

	_, err = book.Open(position.Position{
		Strategy:   string(OriginCopyTrade),
		MarketID:   "mkt-tok-1",
		TokenID:    "tok-1",
		Side:       exchange.OutcomeYes,
		Size:       100,
		EntryPrice: 0.60,
	})
	require.NoError(t, err)

	gw.targetPositions = []exchange.PositionSnapshot{targetPosition("tok-1", 400)}
	signals, err := d.Detect(context.Background())
	require.NoError(t, err)
	require.Len(t, signals, 1)

	sig := signals[0]
	assert.Equal(t, ActionReduce, sig.Action)
	// Target kept 40% of its position; the mirror shrinks to $40
	assert.InDelta(t, 40.0, sig.ReduceToSize, 0.001)
	assert.InDelta(t, 60.0, sig.SuggestedSize, 0.001)
}

func TestCopyTrade_TargetExitWithoutMirrorIsIgnored(t *testing.T) {
	gw := &fakeGateway{targetPositions: []exchange.PositionSnapshot{targetPosition("tok-1", 30)}}
	d, _, _ := newCopyDetector(copyTradeConfig(), gw)

	// Too small to mirror, so no book position exists
	_, err := d.Detect(context.Background())
	require.NoError(t, err)
	d.Commit()

	gw.targetPositions = nil
	signals, err := d.Detect(context.Background())
	require.NoError(t, err)
	assert.Empty(t, signals)
}

func TestCopyTrade_DetectErrorPropagates(t *testing.T) {
	gw := &fakeGateway{targetErr: errors.New("connection refused")}
	d, _, _ := newCopyDetector(copyTradeConfig(), gw)

	_, err := d.Detect(context.Background())
	assert.Error(t, err)
}

func TestCopyTrade_RestoreLastSeenSuppressesReplay(t *testing.T) {
	gw := &fakeGateway{targetPositions: []exchange.PositionSnapshot{targetPosition("tok-1", 1000)}}
	d, _, _ := newCopyDetector(copyTradeConfig(), gw)

	d.RestoreLastSeen(map[string]exchange.PositionSnapshot{
		"tok-1": targetPosition("tok-1", 1000),
	})

	signals, err := d.Detect(context.Background())
	require.NoError(t, err)
	assert.Empty(t, signals)
}
