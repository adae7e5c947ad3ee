package ports

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/aretw0/lattice/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunStoreContract runs a suite of tests to verify that a RunStore implementation
// adheres to the defined interface contract.
func RunStoreContract(t *testing.T, store RunStore) {
	t.Helper()
	ctx := context.Background()
	runID := "contract-test-run-" + time.Now().Format("20060102150405.000000000")

	newSummary := func(id string) domain.RunSummary {
		started := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
		return domain.RunSummary{
			ID:         id,
			Workflow:   "agent",
			Status:     domain.RunCompleted,
			Steps:      5,
			StartedAt:  started,
			FinishedAt: started.Add(1500 * time.Millisecond),
			Output:     json.RawMessage(`{"answer":42}`),
		}
	}

	t.Run("Save and Load", func(t *testing.T) {
		summary := newSummary(runID)

		err := store.Save(ctx, summary)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, runID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, summary.ID, loaded.ID)
		assert.Equal(t, summary.Workflow, loaded.Workflow)
		assert.Equal(t, summary.Status, loaded.Status)
		assert.Equal(t, summary.Steps, loaded.Steps)
		assert.True(t, summary.StartedAt.Equal(loaded.StartedAt), "StartedAt should survive a round trip")
		assert.Equal(t, summary.Duration(), loaded.Duration())
		assert.JSONEq(t, string(summary.Output), string(loaded.Output))
	})

	t.Run("Save Overwrites", func(t *testing.T) {
		summary := newSummary(runID)
		summary.Status = domain.RunError
		summary.Error = "boom"
		summary.Output = nil
		require.NoError(t, store.Save(ctx, summary))

		loaded, err := store.Load(ctx, runID)
		require.NoError(t, err)
		assert.Equal(t, domain.RunError, loaded.Status)
		assert.Equal(t, "boom", loaded.Error)
		assert.Empty(t, loaded.Output)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+runID)
		assert.ErrorIs(t, err, domain.ErrRunNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, newSummary(runID)))

		err := store.Delete(ctx, runID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, runID)
		assert.ErrorIs(t, err, domain.ErrRunNotFound, "Load after Delete should return ErrRunNotFound")

		assert.NoError(t, store.Delete(ctx, runID), "Deleting twice should not fail")
	})

	t.Run("List", func(t *testing.T) {
		id1 := runID + "-1"
		id2 := runID + "-2"
		require.NoError(t, store.Save(ctx, newSummary(id1)))
		require.NoError(t, store.Save(ctx, newSummary(id2)))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		runs, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, runs, id1)
		assert.Contains(t, runs, id2)
		assert.NotContains(t, runs, runID)
	})
}
