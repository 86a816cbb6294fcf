package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/storysync/internal/store"
	"github.com/MrSnakeDoc/storysync/internal/store/sqlite"
	"github.com/MrSnakeDoc/storysync/internal/store/storetest"
)

func openTemp(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "nested", "storysync.db"))
	require.NoError(t, err)
	return s
}

func TestSQLiteStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store { return openTemp(t) })
}

func TestInMemoryDatabase(t *testing.T) {
	s, err := sqlite.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Ping(context.Background()))
}

func TestRecordsSurviveReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "storysync.db")

	s, err := sqlite.Open(ctx, path)
	require.NoError(t, err)
	p := storetest.NewPending("offline_keep", time.Now())
	require.NoError(t, s.PutPending(ctx, p))
	require.NoError(t, s.Close())

	s, err = sqlite.Open(ctx, path)
	require.NoError(t, err)
	defer s.Close()

	unsynced, err := s.GetUnsyncedPending(ctx)
	require.NoError(t, err)
	require.Len(t, unsynced, 1)
	assert.Equal(t, "offline_keep", unsynced[0].TempID)
}

func TestNullSyncedReadsAsUnsynced(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)
	defer s.Close()

	_, err := sqlite.DB(s).ExecContext(ctx, `
		INSERT INTO pending_stories (temp_id, description, photo, created_at, synced)
		VALUES ('offline_legacy', 'old row', 'data:image/jpeg;base64,AA==', '2025-01-01T00:00:00.000000000Z', NULL)`)
	require.NoError(t, err)

	got, ok, err := s.GetPending(ctx, "offline_legacy")
	require.NoError(t, err)
	require.True(t, ok)
	assert.False(t, got.Synced)

	unsynced, err := s.GetUnsyncedPending(ctx)
	require.NoError(t, err)
	require.Len(t, unsynced, 1)
	assert.Equal(t, "offline_legacy", unsynced[0].TempID)
}

func TestSchemaVersionIsSet(t *testing.T) {
	s := openTemp(t)
	defer s.Close()

	var version int
	require.NoError(t, sqlite.DB(s).QueryRow("PRAGMA user_version").Scan(&version))
	assert.Equal(t, sqlite.SchemaVersion, version)
}
