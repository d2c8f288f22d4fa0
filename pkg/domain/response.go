package domain

// ResponseKind tags the shape a model response was recognized as.
type ResponseKind string

const (
	KindPlan       ResponseKind = "plan"
	KindOperations ResponseKind = "operations"
	KindSingle     ResponseKind = "single_action"
	KindToolCalls  ResponseKind = "tool_calls"
	KindMessage    ResponseKind = "message"
)

// ParsedResponse is the normalized result of parsing one model response.
type ParsedResponse struct {
	Kind        ResponseKind `json:"kind"`
	IsValid     bool         `json:"is_valid"`
	Explanation string       `json:"explanation,omitempty"`
	Operations  []FileAction `json:"operations,omitempty"`
	PlanSteps   []PlanStep   `json:"plan_steps,omitempty"`
	ToolCalls   []ToolCall   `json:"tool_calls,omitempty"`

	// Control is the ask/complete call that ended a tool_calls pass, if any.
	Control *ToolCall `json:"control,omitempty"`
	Raw     string    `json:"raw,omitempty"`
}

// HasWork reports whether the response asks for tool execution.
func (p ParsedResponse) HasWork() bool {
	return len(p.ToolCalls) > 0 || len(p.Operations) > 0
}
