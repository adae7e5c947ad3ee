package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrRunNotFound is returned when a run ID cannot be found in a run store.
var ErrRunNotFound = errors.New("run not found")

// DuplicateNodeError is returned when a node id is registered twice.
type DuplicateNodeError struct {
	NodeID string
}

func (e *DuplicateNodeError) Error() string {
	return fmt.Sprintf("node %q already exists", e.NodeID)
}

// UnknownNodeError is returned when an edge or the scheduler references a node that does not exist.
type UnknownNodeError struct {
	NodeID string
}

func (e *UnknownNodeError) Error() string {
	return fmt.Sprintf("node %q does not exist", e.NodeID)
}

// MissingSentinelError is returned when a graph is compiled without its start or end node.
type MissingSentinelError struct {
	NodeID string
}

func (e *MissingSentinelError) Error() string {
	return fmt.Sprintf("graph is missing sentinel node %q", e.NodeID)
}

// InvalidInputError is returned when the initial state is rejected by the graph's input schema.
type InvalidInputError struct {
	Err error
}

func (e *InvalidInputError) Error() string {
	return "invalid input: " + e.Err.Error()
}

func (e *InvalidInputError) Unwrap() error { return e.Err }

// InvalidEdgeTargetError is returned when a selector picks a node outside its declared targets.
type InvalidEdgeTargetError struct {
	From    string
	Target  string
	Targets []string
}

func (e *InvalidEdgeTargetError) Error() string {
	return fmt.Sprintf("conditional edge from %q selected %q, expected one of [%s]",
		e.From, e.Target, strings.Join(e.Targets, ", "))
}

// RunDidNotTerminateError is returned when the queue drains without End having produced output.
type RunDidNotTerminateError struct {
	RunID string
}

func (e *RunDidNotTerminateError) Error() string {
	return fmt.Sprintf("run %s did not reach %s", e.RunID, End)
}

// ToolArgsParseError is returned when raw tool arguments cannot be decoded or fail validation.
// The agent loop reports it back to the model instead of aborting.
type ToolArgsParseError struct {
	Tool string
	Err  error
}

func (e *ToolArgsParseError) Error() string {
	return fmt.Sprintf("failed to parse arguments for tool %s: %v", e.Tool, e.Err)
}

func (e *ToolArgsParseError) Unwrap() error { return e.Err }

// ToolNotFoundError is returned when a tool name is not registered.
type ToolNotFoundError struct {
	Name string
}

func (e *ToolNotFoundError) Error() string {
	return fmt.Sprintf("tool with name %s not found", e.Name)
}
