package audit

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteTrail_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.db")

	trail, err := NewSQLiteTrail(path)
	require.NoError(t, err)

	require.NoError(t, trail.Append(Record{
		Strategy:   "high_prob",
		Action:     ActionEnter,
		MarketID:   "mkt-1",
		Side:       "NO",
		Size:       50,
		Price:      0.10,
		Reason:     "mean reversion",
		PositionID: "pos-1",
	}))
	require.NoError(t, trail.Append(Record{
		Strategy: "high_prob",
		Action:   ActionStopLoss,
		MarketID: "mkt-1",
	}))
	require.NoError(t, trail.Close())

	// Records survive reopening
	reopened, err := NewSQLiteTrail(path)
	require.NoError(t, err)
	defer reopened.Close()

	records, err := reopened.Records()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, ActionEnter, records[0].Action)
	assert.Equal(t, "pos-1", records[0].PositionID)
	assert.Equal(t, ActionStopLoss, records[1].Action)
}
