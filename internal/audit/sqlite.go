package audit

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS audit_records (
	id TEXT PRIMARY KEY,
	timestamp DATETIME NOT NULL,
	strategy TEXT NOT NULL,
	action TEXT NOT NULL,
	market_id TEXT NOT NULL,
	side TEXT NOT NULL,
	size REAL NOT NULL,
	price REAL NOT NULL,
	reason TEXT NOT NULL,
	position_id TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_audit_strategy ON audit_records(strategy);
CREATE INDEX IF NOT EXISTS idx_audit_timestamp ON audit_records(timestamp);
`

// SQLiteTrail persists the audit trail to a sqlite database so decisions
// survive restarts and the dashboard can query them out of process.
type SQLiteTrail struct {
	db *sql.DB
}

// NewSQLiteTrail opens (or creates) the audit database at path
func NewSQLiteTrail(path string) (*SQLiteTrail, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create audit schema: %w", err)
	}

	return &SQLiteTrail{db: db}, nil
}

// Append inserts a record
func (t *SQLiteTrail) Append(rec Record) error {
	stamp(&rec)

	_, err := t.db.Exec(`
		INSERT INTO audit_records
		(id, timestamp, strategy, action, market_id, side, size, price, reason, position_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Timestamp, rec.Strategy, string(rec.Action),
		rec.MarketID, rec.Side, rec.Size, rec.Price, rec.Reason, rec.PositionID,
	)
	return err
}

// Records returns all records ordered by id, which is the append order
func (t *SQLiteTrail) Records() ([]Record, error) {
	rows, err := t.db.Query(`
		SELECT id, timestamp, strategy, action, market_id, side, size, price, reason, position_id
		FROM audit_records ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var action string
		var ts time.Time
		if err := rows.Scan(&rec.ID, &ts, &rec.Strategy, &action,
			&rec.MarketID, &rec.Side, &rec.Size, &rec.Price, &rec.Reason, &rec.PositionID); err != nil {
			return nil, err
		}
		rec.Timestamp = ts
		rec.Action = Action(action)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Close closes the database handle
func (t *SQLiteTrail) Close() error {
	return t.db.Close()
}
