package domain

import (
	"context"
	"time"
)

// HookType defines the category of a lifecycle hook event.
type HookType string

const (
	HookRunStart   HookType = "run_start"
	HookRunEnd     HookType = "run_end"
	HookNodeEnter  HookType = "node_enter"
	HookNodeLeave  HookType = "node_leave"
	HookToolCall   HookType = "tool_call"
	HookToolReturn HookType = "tool_return"
)

// HookBase contains common fields for all hook events.
type HookBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      HookType  `json:"type"`
	RunID     string    `json:"run_id"`
}

// RunEvent represents the start or the end of a run.
// Status and Err are set on RunEnd.
type RunEvent struct {
	HookBase
	Status   RunStatus     `json:"status,omitempty"`
	Err      error         `json:"-"`
	Duration time.Duration `json:"duration,omitempty"`
}

// NodeEvent represents entry or exit from a node.
type NodeEvent struct {
	HookBase
	NodeID   string        `json:"node_id"`
	Duration time.Duration `json:"duration,omitempty"`
	Err      error         `json:"-"`
}

// ToolEvent represents a tool execution requested by the model.
type ToolEvent struct {
	HookBase
	CallID   string `json:"call_id"`
	ToolName string `json:"tool_name"`
	Input    any    `json:"input,omitempty"`
	Output   any    `json:"output,omitempty"`
	IsError  bool   `json:"is_error,omitempty"`
}

// LifecycleHooks defines callbacks for engine observability.
// Nil callbacks are skipped.
type LifecycleHooks struct {
	OnRunStart   func(context.Context, *RunEvent)
	OnRunEnd     func(context.Context, *RunEvent)
	OnNodeEnter  func(context.Context, *NodeEvent)
	OnNodeLeave  func(context.Context, *NodeEvent)
	OnToolCall   func(context.Context, *ToolEvent)
	OnToolReturn func(context.Context, *ToolEvent)
}

// ComposeHooks merges several hook sets; each callback fires in argument order.
func ComposeHooks(hooks ...LifecycleHooks) LifecycleHooks {
	var out LifecycleHooks
	for _, h := range hooks {
		out.OnRunStart = chain(out.OnRunStart, h.OnRunStart)
		out.OnRunEnd = chain(out.OnRunEnd, h.OnRunEnd)
		out.OnNodeEnter = chain(out.OnNodeEnter, h.OnNodeEnter)
		out.OnNodeLeave = chain(out.OnNodeLeave, h.OnNodeLeave)
		out.OnToolCall = chain(out.OnToolCall, h.OnToolCall)
		out.OnToolReturn = chain(out.OnToolReturn, h.OnToolReturn)
	}
	return out
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}
