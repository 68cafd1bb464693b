package client

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatsStore_Record(t *testing.T) {
	s, err := NewStatsStore("")
	require.NoError(t, err)

	end := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.Record(&SyncResult{Success: true, Synced: 3, Failed: 1, Duration: 2 * time.Second, EndTime: end}))
	require.NoError(t, s.Record(&SyncResult{Success: false, Duration: 4 * time.Second, EndTime: end.Add(time.Minute)}))

	got := s.Get()
	assert.Equal(t, 2, got.TotalSyncs)
	assert.Equal(t, 3, got.TotalUploaded)
	assert.Equal(t, 1, got.TotalErrors)
	assert.Equal(t, end, got.LastSuccessful)
	assert.Equal(t, end.Add(time.Minute), got.LastFailed)
	assert.InDelta(t, 3.0, got.AvgSyncDuration, 0.001)
}

func TestStatsStore_PersistAndReset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.json")
	s, err := NewStatsStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Record(&SyncResult{Success: true, Synced: 2, EndTime: time.Now()}))

	reloaded, err := NewStatsStore(path)
	require.NoError(t, err)
	assert.Equal(t, 2, reloaded.Get().TotalUploaded)

	require.NoError(t, reloaded.Reset())
	again, err := NewStatsStore(path)
	require.NoError(t, err)
	assert.Equal(t, SyncStats{}, again.Get())
}

func TestStatsStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	_, err := NewStatsStore(path)
	assert.Error(t, err)
}
