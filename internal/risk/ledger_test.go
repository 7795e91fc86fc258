package risk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestLedger_RecordLoss_AccumulatesBothWindows(t *testing.T) {
	l := NewLedger(Limits{DailyLossLimit: 100, WeeklyLossLimit: 300, MaxOpenPositions: 5}, NewEmergencyStop())

	l.RecordLoss(30)
	l.RecordLoss(20)

	s := l.Snapshot()
	assert.Equal(t, 50.0, s.DailyLoss)
	assert.Equal(t, 50.0, s.WeeklyLoss)
	assert.Equal(t, -50.0, s.RealizedPnL)
}

func TestLedger_RecordGain_NeverOffsetsLosses(t *testing.T) {
	l := NewLedger(Limits{DailyLossLimit: 100, WeeklyLossLimit: 300}, NewEmergencyStop())

	l.RecordLoss(60)
	l.RecordGain(200)

	s := l.Snapshot()
	assert.Equal(t, 60.0, s.DailyLoss)
	assert.Equal(t, 60.0, s.WeeklyLoss)
	assert.Equal(t, 140.0, s.RealizedPnL)
}

func TestLedger_RecordLoss_IgnoresNonPositive(t *testing.T) {
	l := NewLedger(Limits{DailyLossLimit: 100, WeeklyLossLimit: 300}, NewEmergencyStop())

	l.RecordLoss(0)
	l.RecordLoss(-10)

	s := l.Snapshot()
	assert.Equal(t, 0.0, s.DailyLoss)
	assert.Equal(t, 0.0, s.WeeklyLoss)
}

func TestLedger_DailyWindowRollsAtMidnight(t *testing.T) {
	l := NewLedger(Limits{DailyLossLimit: 100, WeeklyLossLimit: 300}, NewEmergencyStop())

	// Wednesday late evening
	now := time.Date(2026, 3, 4, 23, 50, 0, 0, time.UTC)
	l.SetClock(fixedClock(now))
	l.RecordLoss(80)
	assert.Equal(t, 80.0, l.Snapshot().DailyLoss)

	// 20 minutes later, past midnight: daily resets, weekly carries
	l.SetClock(fixedClock(now.Add(20 * time.Minute)))
	s := l.Snapshot()
	assert.Equal(t, 0.0, s.DailyLoss)
	assert.Equal(t, 80.0, s.WeeklyLoss)
}

func TestLedger_WeeklyWindowRollsAtISOWeekBoundary(t *testing.T) {
	l := NewLedger(Limits{DailyLossLimit: 1000, WeeklyLossLimit: 300}, NewEmergencyStop())

	// Sunday of ISO week 10
	sunday := time.Date(2026, 3, 8, 12, 0, 0, 0, time.UTC)
	l.SetClock(fixedClock(sunday))
	l.RecordLoss(250)

	// Monday starts ISO week 11: both windows reset
	l.SetClock(fixedClock(sunday.Add(24 * time.Hour)))
	s := l.Snapshot()
	assert.Equal(t, 0.0, s.DailyLoss)
	assert.Equal(t, 0.0, s.WeeklyLoss)
}

func TestLedger_SetClockKeepsAccumulatorsWithinWindow(t *testing.T) {
	l := NewLedger(Limits{DailyLossLimit: 100, WeeklyLossLimit: 300}, NewEmergencyStop())

	noon := time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)
	l.SetClock(fixedClock(noon))
	l.RecordLoss(40)

	// Later the same day: no boundary crossed, losses stand
	l.SetClock(fixedClock(noon.Add(6 * time.Hour)))
	s := l.Snapshot()
	assert.Equal(t, 40.0, s.DailyLoss)
	assert.Equal(t, 40.0, s.WeeklyLoss)
}

func TestLedger_LossLimitBreached(t *testing.T) {
	l := NewLedger(Limits{DailyLossLimit: 100, WeeklyLossLimit: 300}, NewEmergencyStop())

	l.RecordLoss(99)
	assert.False(t, l.LossLimitBreached())

	l.RecordLoss(1)
	assert.True(t, l.LossLimitBreached())
}

func TestLedger_WeeklyLimitBreachesIndependently(t *testing.T) {
	l := NewLedger(Limits{DailyLossLimit: 100, WeeklyLossLimit: 150}, NewEmergencyStop())

	day1 := time.Date(2026, 3, 3, 12, 0, 0, 0, time.UTC)
	l.SetClock(fixedClock(day1))
	l.RecordLoss(90)
	assert.False(t, l.LossLimitBreached())

	l.SetClock(fixedClock(day1.Add(24 * time.Hour)))
	l.RecordLoss(70)

	// Daily is only 70 but the weekly total hit 160
	assert.True(t, l.LossLimitBreached())
}

func TestLedger_BreachClearsWhenWindowRolls(t *testing.T) {
	l := NewLedger(Limits{DailyLossLimit: 100, WeeklyLossLimit: 1000}, NewEmergencyStop())

	day1 := time.Date(2026, 3, 3, 12, 0, 0, 0, time.UTC)
	l.SetClock(fixedClock(day1))
	l.RecordLoss(120)
	assert.True(t, l.LossLimitBreached())

	l.SetClock(fixedClock(day1.Add(24 * time.Hour)))
	assert.False(t, l.LossLimitBreached())
}

func TestEmergencyStop_TriggerIsSticky(t *testing.T) {
	stop := NewEmergencyStop()
	assert.False(t, stop.Active())

	stop.Trigger()
	assert.True(t, stop.Active())

	stop.Trigger()
	assert.True(t, stop.Active())
}
