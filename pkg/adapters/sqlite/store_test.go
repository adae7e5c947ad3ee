package sqlite_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/lattice/pkg/adapters/sqlite"
	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteStore_Contract(t *testing.T) {
	store, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	defer store.Close()

	ports.RunStoreContract(t, store)
}

func TestSQLiteStore_Persists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "runs.db")

	store, err := sqlite.Open(path)
	require.NoError(t, err)
	started := time.Now().UTC()
	require.NoError(t, store.Save(ctx, domain.RunSummary{
		ID:         "older",
		Status:     domain.RunCompleted,
		StartedAt:  started,
		FinishedAt: started.Add(time.Second),
	}))
	require.NoError(t, store.Save(ctx, domain.RunSummary{
		ID:         "newer",
		Status:     domain.RunError,
		Error:      "boom",
		StartedAt:  started.Add(time.Minute),
		FinishedAt: started.Add(time.Minute),
	}))
	require.NoError(t, store.Close())

	reopened, err := sqlite.Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	runs, err := reopened.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"newer", "older"}, runs)

	loaded, err := reopened.Load(ctx, "newer")
	require.NoError(t, err)
	assert.Equal(t, "boom", loaded.Error)
	assert.True(t, loaded.StartedAt.Equal(started.Add(time.Minute)))
	assert.NoError(t, reopened.Ping(ctx))
}

func TestSQLiteStore_New(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	defer db.Close()

	_, err = sqlite.New(db)
	require.NoError(t, err)

	// Schema creation is idempotent.
	store, err := sqlite.New(db)
	require.NoError(t, err)

	runs, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, runs)
}
