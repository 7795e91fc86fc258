package audit

import (
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Action is the machine-distinguishable decision type of an audit record
type Action string

const (
	ActionCopy            Action = "copy"
	ActionEnter           Action = "enter"
	ActionSkip            Action = "skip"
	ActionStopLoss        Action = "stop_loss"
	ActionTakeProfit      Action = "take_profit"
	ActionBlocked         Action = "blocked"
	ActionExecutionFailed Action = "execution_failed"
	ActionEmergencyStop   Action = "emergency_stop"
	ActionClose           Action = "close"
)

// Record is one append-only audit trail entry. Every decision the pipeline
// makes - copy, enter, skip, stop, block, failure - produces exactly one.
type Record struct {
	ID         string    `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	Strategy   string    `json:"strategy"`
	Action     Action    `json:"action"`
	MarketID   string    `json:"market_id"`
	Side       string    `json:"side"`
	Size       float64   `json:"size"`
	Price      float64   `json:"price"`
	Reason     string    `json:"reason"`
	PositionID string    `json:"position_id,omitempty"`
}

// Trail is an append-only sequence of records with ordered iteration.
// Export formatting belongs to the dashboard collaborator; the trail only
// guarantees append order and full-field population.
type Trail interface {
	Append(rec Record) error
	Records() ([]Record, error)
	Close() error
}

// newRecordID returns a lexicographically sortable id so record ids order
// the same way the append sequence does.
func newRecordID() string {
	return ulid.Make().String()
}

// stamp fills in generated fields on a record before it is stored
func stamp(rec *Record) {
	if rec.ID == "" {
		rec.ID = newRecordID()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
}

// MemoryTrail keeps the audit trail in process memory
type MemoryTrail struct {
	mu      sync.RWMutex
	records []Record
}

// NewMemoryTrail creates an in-memory audit trail
func NewMemoryTrail() *MemoryTrail {
	return &MemoryTrail{}
}

// Append adds a record to the trail
func (t *MemoryTrail) Append(rec Record) error {
	stamp(&rec)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.records = append(t.records, rec)
	return nil
}

// Records returns all records in append order
func (t *MemoryTrail) Records() ([]Record, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]Record, len(t.records))
	copy(out, t.records)
	return out, nil
}

// Close is a no-op for the in-memory trail
func (t *MemoryTrail) Close() error {
	return nil
}
