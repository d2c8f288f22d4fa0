package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventTurnStart  EventType = "turn_start"
	EventTurnEnd    EventType = "turn_end"
	EventToolCall   EventType = "tool_call"
	EventToolReturn EventType = "tool_return"
	EventApproval   EventType = "approval"
	EventRunEnd     EventType = "run_end"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	RunID     string    `json:"run_id"`
}

// TurnEvent marks a model round-trip.
type TurnEvent struct {
	EventBase
	Iteration int           `json:"iteration"`
	Kind      ResponseKind  `json:"kind,omitempty"`
	Duration  time.Duration `json:"duration,omitempty"`
}

// ToolEvent represents a tool execution.
type ToolEvent struct {
	EventBase
	ToolName string        `json:"tool_name"`
	Input    any           `json:"input,omitempty"`
	Output   any           `json:"output,omitempty"`
	IsError  bool          `json:"is_error,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
}

// ApprovalEvent records an approval decision.
type ApprovalEvent struct {
	EventBase
	ToolName string `json:"tool_name"`
	Approved bool   `json:"approved"`
}

// RunEvent records a terminal state.
type RunEvent struct {
	EventBase
	Status     RunStatus `json:"status"`
	Iterations int       `json:"iterations"`
	Err        string    `json:"err,omitempty"`
}

// LifecycleHooks defines callbacks for orchestrator observability.
type LifecycleHooks struct {
	OnTurnStart  func(context.Context, *TurnEvent)
	OnTurnEnd    func(context.Context, *TurnEvent)
	OnToolCall   func(context.Context, *ToolEvent)
	OnToolReturn func(context.Context, *ToolEvent)
	OnApproval   func(context.Context, *ApprovalEvent)
	OnRunEnd     func(context.Context, *RunEvent)
}
