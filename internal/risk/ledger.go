package risk

import (
	"sync"
	"sync/atomic"
	"time"
)

// EmergencyStop is the cross-cutting halt flag. It is shared by both
// strategy ledgers when a global stop is configured. Setting it blocks all
// new entries at the risk gate; existing open positions stay under
// stop-loss/take-profit evaluation.
type EmergencyStop struct {
	active atomic.Bool
}

// NewEmergencyStop creates an inactive emergency stop
func NewEmergencyStop() *EmergencyStop {
	return &EmergencyStop{}
}

// Trigger activates the stop; there is no programmatic un-trigger, a
// restart is required.
func (e *EmergencyStop) Trigger() {
	e.active.Store(true)
}

// Active reports whether the stop has been triggered
func (e *EmergencyStop) Active() bool {
	return e.active.Load()
}

// Limits are the gate thresholds a ledger is checked against
type Limits struct {
	DailyLossLimit   float64
	WeeklyLossLimit  float64
	MaxOpenPositions int
}

// State is a point-in-time snapshot of a strategy's risk accounting
type State struct {
	DailyLoss        float64
	WeeklyLoss       float64
	WindowStartDaily time.Time
	WindowStartWeekly time.Time
	EmergencyStopped bool
	RealizedPnL      float64
}

// Ledger tracks realized losses for one strategy over rolling daily and
// weekly windows. Accumulators are loss-only: gains are recorded in the
// running PnL but never offset the loss counters. Windows reset exactly at
// the day / ISO-week boundary, never retroactively.
type Ledger struct {
	mu     sync.Mutex
	limits Limits
	stop   *EmergencyStop

	dailyLoss  float64
	weeklyLoss float64

	windowDay         time.Time // start of the current daily window
	windowWeekYear    int
	windowWeek        int
	windowStartWeekly time.Time

	realizedPnL float64

	nowFunc func() time.Time
}

// NewLedger creates a ledger with fresh windows anchored at now
func NewLedger(limits Limits, stop *EmergencyStop) *Ledger {
	l := &Ledger{
		limits:  limits,
		stop:    stop,
		nowFunc: time.Now,
	}
	l.anchorWindows(l.nowFunc())
	return l
}

// SetClock overrides the ledger's clock; used by tests. Windows stay
// anchored where NewLedger left them so rollWindowsLocked can observe a
// boundary crossing under the new clock.
func (l *Ledger) SetClock(now func() time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nowFunc = now
}

func (l *Ledger) anchorWindows(now time.Time) {
	l.windowDay = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	year, week := now.ISOWeek()
	l.windowWeekYear = year
	l.windowWeek = week
	l.windowStartWeekly = startOfISOWeek(now)
}

// rollWindowsLocked resets accumulators when a day or ISO-week boundary has
// been crossed since the window was anchored. Caller holds the mutex.
func (l *Ledger) rollWindowsLocked() {
	now := l.nowFunc()

	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if !day.Equal(l.windowDay) {
		l.dailyLoss = 0
		l.windowDay = day
	}

	year, week := now.ISOWeek()
	if year != l.windowWeekYear || week != l.windowWeek {
		l.weeklyLoss = 0
		l.windowWeekYear = year
		l.windowWeek = week
		l.windowStartWeekly = startOfISOWeek(now)
	}
}

// RecordLoss adds a realized loss to both window accumulators. Only
// positive amounts count; gains go through RecordGain.
func (l *Ledger) RecordLoss(amount float64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.rollWindowsLocked()
	if amount > 0 {
		l.dailyLoss += amount
		l.weeklyLoss += amount
		l.realizedPnL -= amount
	}
}

// RecordGain records a realized gain in the running PnL. Gains never
// reduce the loss accumulators: the limits are loss limits, not net-PnL
// limits.
func (l *Ledger) RecordGain(amount float64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if amount > 0 {
		l.realizedPnL += amount
	}
}

// Snapshot returns the current risk state after rolling windows forward
func (l *Ledger) Snapshot() State {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.rollWindowsLocked()
	return State{
		DailyLoss:         l.dailyLoss,
		WeeklyLoss:        l.weeklyLoss,
		WindowStartDaily:  l.windowDay,
		WindowStartWeekly: l.windowStartWeekly,
		EmergencyStopped:  l.stop.Active(),
		RealizedPnL:       l.realizedPnL,
	}
}

// LossLimitBreached reports whether either rolling loss accumulator has
// reached its limit.
func (l *Ledger) LossLimitBreached() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.rollWindowsLocked()
	return l.dailyLoss >= l.limits.DailyLossLimit || l.weeklyLoss >= l.limits.WeeklyLossLimit
}

// Limits returns the configured thresholds
func (l *Ledger) Limits() Limits {
	return l.limits
}

// EmergencyStopped reports whether the shared stop flag is active
func (l *Ledger) EmergencyStopped() bool {
	return l.stop.Active()
}

func startOfISOWeek(now time.Time) time.Time {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	weekday := int(day.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday
	}
	return day.AddDate(0, 0, -(weekday - 1))
}
