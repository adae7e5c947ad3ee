package runner

import (
	"maps"
	"slices"

	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/store"
)

// Reduce is the pure reducer of a run's store. It never mutates the record it
// receives; maps and slices are copied before they change.
func Reduce[S any](rec domain.RunRecord[S], e domain.Event[S]) domain.RunRecord[S] {
	switch e.Kind {
	case domain.EventRunStart:
		rec.Status = domain.RunRunning
		rec.Error = ""
	case domain.EventNodeInput:
		rec.ActiveNodes = append(slices.Clone(rec.ActiveNodes), e.NodeID)
	case domain.EventNodeOutput:
		nodes := maps.Clone(rec.Nodes)
		if nodes == nil {
			nodes = make(map[string]S)
		}
		nodes[e.NodeID] = e.State
		rec.Nodes = nodes

		active := make([]string, 0, len(rec.ActiveNodes))
		for _, id := range rec.ActiveNodes {
			if id != e.NodeID {
				active = append(active, id)
			}
		}
		rec.ActiveNodes = active
	case domain.EventRunEnd:
		rec.Status = domain.RunCompleted
	case domain.EventRunError:
		rec.Status = domain.RunError
		rec.Error = e.Error
	}
	return rec
}

// Replay rebuilds the run record of a run started with initial from its event log.
func Replay[S any](initial S, events []domain.Event[S]) domain.RunRecord[S] {
	return store.Replay(Reduce[S], domain.NewRunRecord(initial), events)
}
