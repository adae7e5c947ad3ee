package ports

import (
	"context"

	"github.com/aretw0/lattice/pkg/domain"
)

// RunStore defines the interface for archiving finished runs.
// It lets operators list and inspect past runs after the in-memory run store is gone.
type RunStore interface {
	// Save persists the summary under summary.ID, replacing any previous one.
	Save(ctx context.Context, summary domain.RunSummary) error

	// Load retrieves the summary of a run.
	// Returns domain.ErrRunNotFound if the run does not exist.
	Load(ctx context.Context, runID string) (domain.RunSummary, error)

	// Delete removes a run. Deleting an unknown run is not an error.
	Delete(ctx context.Context, runID string) error

	// List returns the IDs of the archived runs.
	List(ctx context.Context) ([]string, error)
}
