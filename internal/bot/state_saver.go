package bot

import (
	"context"
	"time"

	"github.com/quangdle/polymarket-trading-bot/internal/position"
	"github.com/quangdle/polymarket-trading-bot/internal/state"
	"github.com/quangdle/polymarket-trading-bot/internal/strategy"
)

// StateSaver periodically snapshots recovery state to disk. It runs as a
// scheduler runner alongside the strategies.
type StateSaver struct {
	store        *state.Store
	books        []*position.Book
	copyDetector *strategy.CopyTradeDetector // nil when copy trading is disabled
	interval     time.Duration
}

// NewStateSaver creates a state-saver runner
func NewStateSaver(store *state.Store, books []*position.Book, copyDetector *strategy.CopyTradeDetector, interval time.Duration) *StateSaver {
	return &StateSaver{
		store:        store,
		books:        books,
		copyDetector: copyDetector,
		interval:     interval,
	}
}

func (s *StateSaver) Name() string { return "state_saver" }

func (s *StateSaver) Interval() time.Duration { return s.interval }

// Tick writes the current snapshot
func (s *StateSaver) Tick(ctx context.Context) error {
	return s.store.Save(s.buildSnapshot())
}

// Flush writes a final snapshot; called once at shutdown
func (s *StateSaver) Flush() error {
	return s.store.Save(s.buildSnapshot())
}

func (s *StateSaver) buildSnapshot() state.Snapshot {
	var snap state.Snapshot
	for _, book := range s.books {
		snap.OpenPositions = append(snap.OpenPositions, book.OpenPositions()...)
	}
	if s.copyDetector != nil {
		snap.TargetPositions = s.copyDetector.LastSeen()
	}
	return snap
}
