package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/tendril/pkg/domain"
)

// LogHooks logs every lifecycle event at debug level, and run ends at info.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTurnStart: func(ctx context.Context, e *domain.TurnEvent) {
			logger.DebugContext(ctx, "turn_start", "run_id", e.RunID, "iteration", e.Iteration)
		},
		OnTurnEnd: func(ctx context.Context, e *domain.TurnEvent) {
			logger.DebugContext(ctx, "turn_end", "run_id", e.RunID, "iteration", e.Iteration, "kind", e.Kind, "duration", e.Duration)
		},
		OnToolCall: func(ctx context.Context, e *domain.ToolEvent) {
			logger.DebugContext(ctx, "tool_call", "run_id", e.RunID, "tool_name", e.ToolName)
		},
		OnToolReturn: func(ctx context.Context, e *domain.ToolEvent) {
			logger.DebugContext(ctx, "tool_return", "run_id", e.RunID, "tool_name", e.ToolName, "is_error", e.IsError, "duration", e.Duration)
		},
		OnApproval: func(ctx context.Context, e *domain.ApprovalEvent) {
			logger.InfoContext(ctx, "approval", "run_id", e.RunID, "tool_name", e.ToolName, "approved", e.Approved)
		},
		OnRunEnd: func(ctx context.Context, e *domain.RunEvent) {
			attrs := []any{"run_id", e.RunID, "status", e.Status, "iterations", e.Iterations}
			if e.Err != "" {
				attrs = append(attrs, "error", e.Err)
			}
			logger.InfoContext(ctx, "run_end", attrs...)
		},
	}
}

// Chain merges hooks; each callback runs the non-nil callbacks in order.
func Chain(all ...domain.LifecycleHooks) domain.LifecycleHooks {
	var out domain.LifecycleHooks
	for _, h := range all {
		out.OnTurnStart = join(out.OnTurnStart, h.OnTurnStart)
		out.OnTurnEnd = join(out.OnTurnEnd, h.OnTurnEnd)
		out.OnToolCall = join(out.OnToolCall, h.OnToolCall)
		out.OnToolReturn = join(out.OnToolReturn, h.OnToolReturn)
		out.OnApproval = join(out.OnApproval, h.OnApproval)
		out.OnRunEnd = join(out.OnRunEnd, h.OnRunEnd)
	}
	return out
}

func join[E any](a, b func(context.Context, E)) func(context.Context, E) {
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
