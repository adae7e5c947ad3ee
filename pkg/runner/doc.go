/*
Package runner implements the scheduler that executes compiled graphs.

A run walks the graph breadth-first from Start with a FIFO work queue. Exactly one
node or selector is in flight at a time; fan-out only enqueues. Every step is
recorded as an event in a fresh event-sourced store whose state is the run record
(status, the latest state seen at each node, the nodes currently active). The
result of a run is the state recorded at End.

# Usage

	out, err := runner.Run(ctx, g, map[string]any{"a": 3, "b": 1},
		runner.WithLogger[map[string]any](logger),
		runner.WithEventHandler(func(rec domain.RunRecord[map[string]any], e domain.Event[map[string]any]) {
			fmt.Println(e.Kind, e.NodeID)
		}),
	)

Execute returns the full Result (run id, final record and event log) and is
what archiving callers use.
*/
package runner
