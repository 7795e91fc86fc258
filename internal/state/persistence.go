package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/quangdle/polymarket-trading-bot/internal/exchange"
	"github.com/quangdle/polymarket-trading-bot/internal/position"
)

// Snapshot is the on-disk recovery state: the open positions of both books
// plus the copy-trade detector's last-seen view of the target trader.
// Everything else (closed positions, audit records) lives in the audit
// trail; loss windows rebuild from it is intentionally not attempted, a
// restart starts fresh windows.
type Snapshot struct {
	SavedAt         time.Time                            `json:"saved_at"`
	OpenPositions   []position.Position                  `json:"open_positions"`
	TargetPositions map[string]exchange.PositionSnapshot `json:"target_positions,omitempty"`
}

// Store persists snapshots to a JSON file with atomic replace semantics
type Store struct {
	mu   sync.Mutex
	path string
}

// NewStore creates a store writing to path
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Save writes the snapshot atomically: a torn write can never corrupt the
// previous good snapshot.
func (s *Store) Save(snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap.SavedAt = time.Now().UTC()

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace state file: %w", err)
	}
	return nil
}

// Load reads the last saved snapshot. A missing file is a clean first start,
// not an error.
func (s *Store) Load() (Snapshot, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("failed to read state file: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, false, fmt.Errorf("failed to parse state file: %w", err)
	}
	return snap, true, nil
}
