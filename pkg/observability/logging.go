package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/lattice/pkg/domain"
)

// LoggingHooks logs every lifecycle event to logger. Run boundaries are
// logged at Info, node and tool events at Debug, failures at Warn.
func LoggingHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnRunStart: func(ctx context.Context, e *domain.RunEvent) {
			logger.InfoContext(ctx, "run_start", "run_id", e.RunID)
		},
		OnRunEnd: func(ctx context.Context, e *domain.RunEvent) {
			if e.Err != nil {
				logger.WarnContext(ctx, "run_end", "run_id", e.RunID, "status", e.Status, "duration", e.Duration, "error", e.Err)
				return
			}
			logger.InfoContext(ctx, "run_end", "run_id", e.RunID, "status", e.Status, "duration", e.Duration)
		},
		OnNodeEnter: func(ctx context.Context, e *domain.NodeEvent) {
			logger.DebugContext(ctx, "node_enter", "run_id", e.RunID, "node_id", e.NodeID)
		},
		OnNodeLeave: func(ctx context.Context, e *domain.NodeEvent) {
			if e.Err != nil {
				logger.WarnContext(ctx, "node_leave", "run_id", e.RunID, "node_id", e.NodeID, "duration", e.Duration, "error", e.Err)
				return
			}
			logger.DebugContext(ctx, "node_leave", "run_id", e.RunID, "node_id", e.NodeID, "duration", e.Duration)
		},
		OnToolCall: func(ctx context.Context, e *domain.ToolEvent) {
			logger.DebugContext(ctx, "tool_call", "run_id", e.RunID, "call_id", e.CallID, "tool_name", e.ToolName)
		},
		OnToolReturn: func(ctx context.Context, e *domain.ToolEvent) {
			logger.DebugContext(ctx, "tool_return", "run_id", e.RunID, "call_id", e.CallID, "tool_name", e.ToolName, "is_error", e.IsError)
		},
	}
}
