package result

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreInsertAndRecentShotsRoundTrip(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "shots.db")
	store, err := OpenStore(dbPath)
	require.NoError(t, err)
	defer store.Close()

	r := ShotResult{BallSpeedMPS: 40, HLADeg: 1, VLADeg: 12, BackSpinRPM: 2500, SideSpinRPM: -200, Club: "7i", Confidence: 0.9}
	id, err := store.InsertShot(1700000000, r)
	require.NoError(t, err)
	assert.Greater(t, id, int64(0))

	recent, err := store.RecentShots(10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, r.Club, recent[0].Club)
	assert.Equal(t, r.BackSpinRPM, recent[0].BackSpinRPM)
}

func TestStoreShotCounterIsMonotonic(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "shots.db")
	store, err := OpenStore(dbPath)
	require.NoError(t, err)
	defer store.Close()

	id1, err := store.InsertShot(1700000000, ShotResult{})
	require.NoError(t, err)
	id2, err := store.InsertShot(1700000001, ShotResult{})
	require.NoError(t, err)

	assert.Greater(t, id2, id1)
}
