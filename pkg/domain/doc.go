/*
Package domain contains the core types shared by the Lattice engine and its adapters.

It defines the run record produced by the scheduler, the events that mutate it,
the error taxonomy returned by the graph builder, the scheduler and the tool registry,
and the message items exchanged by the agent loop. This package is kept pure and
free of external dependencies like I/O or persistence, following Hexagonal
Architecture principles.

# Key Entities

  - RunRecord: The observable record of one run (status, last output per node, active nodes).
  - Event: An immutable description of one step in the life of a run.
  - LifecycleHooks: Callbacks fired around runs, nodes and tool calls.
  - Message: One item of an agent conversation (message, function call, function call output).
*/
package domain
