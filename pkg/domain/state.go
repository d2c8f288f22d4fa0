package domain

import "time"

// RunStatus is the state of an orchestrator run.
type RunStatus string

const (
	RunIdle               RunStatus = "idle"
	RunRunning            RunStatus = "running"
	RunAwaitingApproval   RunStatus = "awaiting_approval"
	RunAwaitingUserAnswer RunStatus = "awaiting_user_answer"
	RunCompleted          RunStatus = "completed"
	RunFailed             RunStatus = "failed"
	RunCancelled          RunStatus = "cancelled"
)

// IsTerminal reports whether no further transition can leave the status.
func (s RunStatus) IsTerminal() bool {
	return s == RunCompleted || s == RunFailed || s == RunCancelled
}

// IsActive reports whether a run owns the conversation.
func (s RunStatus) IsActive() bool {
	return s == RunRunning || s == RunAwaitingApproval
}

// ExecutionStep is one entry of the audit trail of a run.
type ExecutionStep struct {
	Response ParsedResponse `json:"response"`
	Call     *ToolCall      `json:"call,omitempty"`
	Result   *ToolResult    `json:"result,omitempty"`
	At       time.Time      `json:"at"`
}
