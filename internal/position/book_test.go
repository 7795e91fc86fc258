package position

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quangdle/polymarket-trading-bot/internal/exchange"
)

func testPosition() Position {
	return Position{
		Strategy:        "high_prob",
		MarketID:        "mkt-1",
		TokenID:         "tok-1",
		Side:            exchange.OutcomeYes,
		Size:            100,
		EntryPrice:      0.90,
		StopPrice:       0.765,
		TakeProfitPrice: 0.945,
		DedupKey:        "mkt-1:tok-1",
	}
}

func TestBook_OpenAssignsIDAndStatus(t *testing.T) {
	book := NewBook()

	p, err := book.Open(testPosition())
	require.NoError(t, err)

	assert.NotEmpty(t, p.ID)
	assert.Equal(t, StatusOpen, p.Status)
	assert.False(t, p.OpenedAt.IsZero())
	assert.Equal(t, 0.90, p.CurrentPrice)
	assert.Equal(t, 1, book.OpenCount())
}

func TestBook_OpenRejectsDuplicateToken(t *testing.T) {
	book := NewBook()

	_, err := book.Open(testPosition())
	require.NoError(t, err)

	_, err = book.Open(testPosition())
	assert.Error(t, err)
	assert.Equal(t, 1, book.OpenCount())
}

func TestEvaluateTrigger_StopLoss(t *testing.T) {
	p := testPosition()
	p.Status = StatusOpen

	trigger, fired := EvaluateTrigger(p, 0.70)
	assert.True(t, fired)
	assert.Equal(t, TriggerStopLoss, trigger)
}

func TestEvaluateTrigger_TakeProfit(t *testing.T) {
	p := testPosition()
	p.Status = StatusOpen

	trigger, fired := EvaluateTrigger(p, 0.95)
	assert.True(t, fired)
	assert.Equal(t, TriggerTakeProfit, trigger)
}

func TestEvaluateTrigger_NoTriggerInsideBand(t *testing.T) {
	p := testPosition()
	p.Status = StatusOpen

	_, fired := EvaluateTrigger(p, 0.90)
	assert.False(t, fired)
}

func TestEvaluateTrigger_StopWinsTie(t *testing.T) {
	// A degenerate band where one price satisfies both exits
	p := testPosition()
	p.Status = StatusOpen
	p.StopPrice = 0.90
	p.TakeProfitPrice = 0.90

	trigger, fired := EvaluateTrigger(p, 0.90)
	require.True(t, fired)
	assert.Equal(t, TriggerStopLoss, trigger)
}

func TestEvaluateTrigger_IgnoresNonOpenPositions(t *testing.T) {
	p := testPosition()
	p.Status = StatusStopTriggered

	_, fired := EvaluateTrigger(p, 0.10)
	assert.False(t, fired)
}

func TestBook_CloseIsTerminal(t *testing.T) {
	book := NewBook()
	_, err := book.Open(testPosition())
	require.NoError(t, err)

	closed, err := book.Close("tok-1", 0.945)
	require.NoError(t, err)
	assert.Equal(t, StatusClosed, closed.Status)
	assert.Equal(t, 0, book.OpenCount())
	assert.Len(t, book.ClosedPositions(), 1)

	_, err = book.Close("tok-1", 0.945)
	assert.Error(t, err)
}

func TestBook_ClosePnL(t *testing.T) {
	book := NewBook()
	_, err := book.Open(testPosition())
	require.NoError(t, err)

	// $100 at $0.90 entry, exit at $0.945: (0.945-0.90) * (100/0.90) = $5
	closed, err := book.Close("tok-1", 0.945)
	require.NoError(t, err)
	assert.InDelta(t, 5.0, closed.RealizedPnL, 0.001)
}

func TestBook_MarkTriggeredTransitions(t *testing.T) {
	book := NewBook()
	_, err := book.Open(testPosition())
	require.NoError(t, err)

	require.NoError(t, book.MarkTriggered("tok-1", TriggerStopLoss))

	p, ok := book.Get("tok-1")
	require.True(t, ok)
	assert.Equal(t, StatusStopTriggered, p.Status)

	// Already out of OPEN; a second trigger is invalid
	assert.Error(t, book.MarkTriggered("tok-1", TriggerTakeProfit))
}

func TestBook_ReduceSizeRealizesPortion(t *testing.T) {
	book := NewBook()
	_, err := book.Open(testPosition())
	require.NoError(t, err)

	// Closing $40 of a $100 position at entry price realizes zero PnL
	realized, err := book.ReduceSize("tok-1", 60, 0.90)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, realized, 0.001)

	p, ok := book.Get("tok-1")
	require.True(t, ok)
	assert.Equal(t, 60.0, p.Size)
	assert.Equal(t, StatusOpen, p.Status)
}

func TestBook_ReduceSizeRejectsInvalidTargets(t *testing.T) {
	book := NewBook()
	_, err := book.Open(testPosition())
	require.NoError(t, err)

	_, err = book.ReduceSize("tok-1", 0, 0.90)
	assert.Error(t, err)

	_, err = book.ReduceSize("tok-1", 100, 0.90)
	assert.Error(t, err)
}

func TestBook_StopPricesImmutableAfterMark(t *testing.T) {
	book := NewBook()
	opened, err := book.Open(testPosition())
	require.NoError(t, err)

	book.MarkPrice("tok-1", 0.50)

	p, ok := book.Get("tok-1")
	require.True(t, ok)
	assert.Equal(t, 0.50, p.CurrentPrice)
	assert.Equal(t, opened.StopPrice, p.StopPrice)
	assert.Equal(t, opened.TakeProfitPrice, p.TakeProfitPrice)
}

func TestBook_RestoreAndDedupKeys(t *testing.T) {
	book := NewBook()

	p := testPosition()
	p.ID = "01ARZ3NDEKTSV4RRFFQ69G5FAV"
	p.Status = StatusOpen
	p.OpenedAt = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, book.Restore(p))
	assert.Equal(t, 1, book.OpenCount())

	got, ok := book.Get("tok-1")
	require.True(t, ok)
	assert.Equal(t, p.ID, got.ID)
	assert.Equal(t, p.OpenedAt, got.OpenedAt)

	assert.Equal(t, []string{"mkt-1:tok-1"}, book.DedupKeys())
}

func TestBook_RestoreRejectsNonOpen(t *testing.T) {
	book := NewBook()

	p := testPosition()
	p.Status = StatusClosed
	assert.Error(t, book.Restore(p))
}

func TestBook_HasOpenMarket(t *testing.T) {
	book := NewBook()
	_, err := book.Open(testPosition())
	require.NoError(t, err)

	assert.True(t, book.HasOpenMarket("mkt-1"))
	assert.False(t, book.HasOpenMarket("mkt-2"))
}
