package backup

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekkohq/ekko/internal/storage/sqlite"
	"github.com/ekkohq/ekko/pkg/types"
)

// newTestDB creates a populated sqlite database file and returns its path.
func newTestDB(t *testing.T) string {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "ekko.db")
	store, err := sqlite.New(dbPath)
	require.NoError(t, err)

	contact := &types.Contact{
		ID:          "ct:backup-test",
		FirstName:   "Grace",
		LastName:    "Hopper",
		AvatarColor: "#FF6B6B",
	}
	require.NoError(t, store.CreateContact(context.Background(), contact))
	require.NoError(t, store.Close())

	return dbPath
}

func TestSnapshotNow(t *testing.T) {
	dbPath := newTestDB(t)
	dir := t.TempDir()

	svc, err := New(Config{DBPath: dbPath, Dir: dir, Verify: true})
	require.NoError(t, err)

	result, err := svc.SnapshotNow(context.Background())
	require.NoError(t, err)

	assert.True(t, result.Verified)
	assert.Greater(t, result.Size, int64(0))

	info, err := os.Stat(result.Path)
	require.NoError(t, err)
	assert.Equal(t, result.Size, info.Size())

	snapshots, err := svc.List()
	require.NoError(t, err)
	require.Len(t, snapshots, 1)
	assert.Equal(t, result.Path, snapshots[0].Path)
}

func TestSnapshotMissingDatabase(t *testing.T) {
	svc, err := New(Config{
		DBPath: filepath.Join(t.TempDir(), "nope.db"),
		Dir:    t.TempDir(),
	})
	require.NoError(t, err)

	_, err = svc.SnapshotNow(context.Background())
	assert.Error(t, err)
}

func TestNewRequiresPaths(t *testing.T) {
	_, err := New(Config{Dir: t.TempDir()})
	assert.Error(t, err)

	_, err = New(Config{DBPath: "some.db"})
	assert.Error(t, err)
}

func TestRestoreReplacesDatabase(t *testing.T) {
	dbPath := newTestDB(t)
	dir := t.TempDir()

	svc, err := New(Config{DBPath: dbPath, Dir: dir, Verify: true})
	require.NoError(t, err)

	result, err := svc.SnapshotNow(context.Background())
	require.NoError(t, err)

	// Mutate the live database after the snapshot.
	store, err := sqlite.New(dbPath)
	require.NoError(t, err)
	require.NoError(t, store.DeleteContact(context.Background(), "ct:backup-test"))
	require.NoError(t, store.Close())

	require.NoError(t, svc.Restore(context.Background(), result.Path))

	store, err = sqlite.New(dbPath)
	require.NoError(t, err)
	defer store.Close()
	contact, err := store.GetContact(context.Background(), "ct:backup-test")
	require.NoError(t, err)
	assert.Equal(t, "Grace", contact.FirstName)
}

func TestRestoreUnknownSnapshot(t *testing.T) {
	svc, err := New(Config{DBPath: newTestDB(t), Dir: t.TempDir()})
	require.NoError(t, err)

	err = svc.Restore(context.Background(), filepath.Join(t.TempDir(), "missing.db"))
	assert.Error(t, err)
}

// writeSnapshotFile creates a dummy snapshot with the given age.
func writeSnapshotFile(t *testing.T, dir, name string, age time.Duration) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("snapshot"), 0o644))
	ts := time.Now().Add(-age)
	require.NoError(t, os.Chtimes(path, ts, ts))
	return path
}

func TestRetentionKeepsTierCaps(t *testing.T) {
	dir := t.TempDir()

	// Three snapshots in the hourly tier with a cap of two.
	newest := writeSnapshotFile(t, dir, "ekko-a.db", 1*time.Hour)
	middle := writeSnapshotFile(t, dir, "ekko-b.db", 2*time.Hour)
	oldest := writeSnapshotFile(t, dir, "ekko-c.db", 3*time.Hour)

	policy := RetentionPolicy{Hourly: 2, Daily: 7, Weekly: 4, Monthly: 12}
	require.NoError(t, applyRetention(dir, policy))

	assert.FileExists(t, newest)
	assert.FileExists(t, middle)
	assert.NoFileExists(t, oldest)
}

func TestRetentionDropsAncientSnapshots(t *testing.T) {
	dir := t.TempDir()

	recent := writeSnapshotFile(t, dir, "ekko-recent.db", time.Hour)
	ancient := writeSnapshotFile(t, dir, "ekko-ancient.db", 400*24*time.Hour)

	policy := RetentionPolicy{Hourly: 24, Daily: 7, Weekly: 4, Monthly: 12}
	require.NoError(t, applyRetention(dir, policy))

	assert.FileExists(t, recent)
	assert.NoFileExists(t, ancient)
}

func TestRetentionIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()

	other := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(other, []byte("keep me"), 0o644))

	policy := RetentionPolicy{Hourly: 1, Daily: 1, Weekly: 1, Monthly: 1}
	require.NoError(t, applyRetention(dir, policy))

	assert.FileExists(t, other)

	snapshots, err := listSnapshots(dir)
	require.NoError(t, err)
	assert.Empty(t, snapshots)
}
