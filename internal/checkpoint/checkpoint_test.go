package checkpoint_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deadpool-game/migrator/internal/checkpoint"
	"github.com/deadpool-game/migrator/internal/domain"
)

func tempStore(t *testing.T) *checkpoint.FileStore {
	t.Helper()
	return checkpoint.NewFileStore(filepath.Join(t.TempDir(), "checkpoint.json"))
}

func TestFileStore_Load_MissingFileMeansNoRun(t *testing.T) {
	cp, err := tempStore(t).Load()
	require.NoError(t, err)
	assert.Nil(t, cp)
}

func TestFileStore_SaveAndLoad_RoundTrip(t *testing.T) {
	s := tempStore(t)
	saved := &domain.Checkpoint{
		Timestamp:          time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
		CompletedPlayerIDs: []string{"p1", "p2"},
		FailedPlayerIDs:    []string{"p3"},
		Stats: domain.MigrationStats{
			PlayersProcessed:     2,
			ActivePicksMigrated:  7,
			DeceasedPicksSkipped: 1,
			DraftOrdersCreated:   3,
			Errors:               []string{"player p3: store throttled"},
		},
	}
	require.NoError(t, s.Save(saved))

	loaded, err := s.Load()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, saved.CompletedPlayerIDs, loaded.CompletedPlayerIDs)
	assert.Equal(t, saved.FailedPlayerIDs, loaded.FailedPlayerIDs)
	assert.Equal(t, saved.Stats, loaded.Stats)
	assert.True(t, saved.Timestamp.Equal(loaded.Timestamp))
}

func TestFileStore_Save_Overwrites(t *testing.T) {
	s := tempStore(t)
	require.NoError(t, s.Save(&domain.Checkpoint{CompletedPlayerIDs: []string{"p1"}}))
	require.NoError(t, s.Save(&domain.Checkpoint{CompletedPlayerIDs: []string{"p1", "p2"}}))

	loaded, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"p1", "p2"}, loaded.CompletedPlayerIDs)
}

func TestFileStore_Save_LeavesNoTempFilesBehind(t *testing.T) {
	dir := t.TempDir()
	s := checkpoint.NewFileStore(filepath.Join(dir, "checkpoint.json"))
	require.NoError(t, s.Save(&domain.Checkpoint{}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "checkpoint.json", entries[0].Name())
}

func TestFileStore_Load_CorruptFile(t *testing.T) {
	s := tempStore(t)
	require.NoError(t, os.WriteFile(s.Path(), []byte("{not json"), 0o644))

	_, err := s.Load()
	assert.Error(t, err)
}

func TestFileStore_Clear(t *testing.T) {
	s := tempStore(t)
	require.NoError(t, s.Save(&domain.Checkpoint{}))
	require.NoError(t, s.Clear())

	cp, err := s.Load()
	require.NoError(t, err)
	assert.Nil(t, cp)

	// Clearing again is a no-op
	assert.NoError(t, s.Clear())
}

func TestNewFileStore_DefaultPath(t *testing.T) {
	s := checkpoint.NewFileStore("")
	assert.Equal(t, checkpoint.DefaultPath, s.Path())
}

func TestCheckpoint_CompletedSet(t *testing.T) {
	cp := &domain.Checkpoint{CompletedPlayerIDs: []string{"a", "b", "a"}}
	set := cp.CompletedSet()
	assert.Len(t, set, 2)
	_, ok := set["a"]
	assert.True(t, ok)
}
