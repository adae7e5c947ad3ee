package domain

import (
	"encoding/json"
	"time"
)

// Start and End are the reserved sentinel node identifiers present in every graph.
const (
	Start = "__START__"
	End   = "__END__"
)

// RunStatus is the lifecycle position of a run.
type RunStatus string

const (
	RunIdle      RunStatus = "idle"
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunError     RunStatus = "error"
)

// Terminal reports whether no further events are expected for the run.
func (s RunStatus) Terminal() bool {
	return s == RunCompleted || s == RunError
}

// EventKind identifies the step an Event describes.
type EventKind string

const (
	EventRunStart   EventKind = "RUN_START"
	EventNodeInput  EventKind = "NODE_INPUT"
	EventNodeOutput EventKind = "NODE_OUTPUT"
	EventRunEnd     EventKind = "RUN_END"
	EventRunError   EventKind = "RUN_ERROR"
)

// Event is one entry of a run's append-only log.
// NodeID and State are set for node events; Error is set for RunError.
type Event[S any] struct {
	Kind      EventKind `json:"kind"`
	RunID     string    `json:"run_id"`
	NodeID    string    `json:"node_id,omitempty"`
	State     S         `json:"state,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// RunRecord is the state held by a run's store.
type RunRecord[S any] struct {
	Status RunStatus `json:"status"`
	Error  string    `json:"error,omitempty"`

	// Nodes holds the most recent state observed at each node.
	// It is seeded with the initial state under Start.
	Nodes map[string]S `json:"nodes"`

	// ActiveNodes lists the nodes that have received input but not yet produced output.
	ActiveNodes []string `json:"active_nodes"`
}

// NewRunRecord creates an idle record seeded with the initial state.
func NewRunRecord[S any](initial S) RunRecord[S] {
	return RunRecord[S]{
		Status:      RunIdle,
		Nodes:       map[string]S{Start: initial},
		ActiveNodes: []string{},
	}
}

// Output returns the state recorded at End, if the run reached it.
func (r RunRecord[S]) Output() (S, bool) {
	v, ok := r.Nodes[End]
	return v, ok
}

// RunSummary is the archived outcome of a finished run.
// The event log itself is not archived, only what is needed to list and inspect runs.
type RunSummary struct {
	ID         string          `json:"id"`
	Workflow   string          `json:"workflow,omitempty"`
	Status     RunStatus       `json:"status"`
	Error      string          `json:"error,omitempty"`
	Steps      int             `json:"steps"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
	Output     json.RawMessage `json:"output,omitempty"`
}

// Duration returns how long the run took.
func (s RunSummary) Duration() time.Duration {
	return s.FinishedAt.Sub(s.StartedAt)
}
