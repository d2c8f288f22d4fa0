package runner

import (
	"github.com/aretw0/tendril/pkg/domain"
)

// Event types emitted by EventObserver.
const (
	EventWorkflowStarted = "workflow_started"
	EventWorkflowEnded   = "workflow_ended"
	EventDelta           = "delta"
	EventMessage         = "message"
	EventToolStarted     = "tool_started"
	EventToolCompleted   = "tool_completed"
	EventToolFailed      = "tool_failed"
	EventQuestion        = "question"
	EventTaskCompleted   = "task_completed"
	EventPlanReady       = "plan_ready"
	EventPlanUpdated     = "plan_updated"
	EventError           = "error"
	EventApproval        = "approval_request"
)

// Event is the serializable form of an Observer callback.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// ToolPayload is the data of the tool_* events.
type ToolPayload struct {
	Call   domain.ToolCall    `json:"call"`
	Result *domain.ToolResult `json:"result,omitempty"`
}

// EndPayload is the data of workflow_ended.
type EndPayload struct {
	RunID  string           `json:"run_id"`
	Status domain.RunStatus `json:"status"`
	Error  string           `json:"error,omitempty"`
}

// QuestionPayload is the data of the question event.
type QuestionPayload struct {
	Question string   `json:"question"`
	Options  []string `json:"options,omitempty"`
}

// EventObserver turns every callback into an Event passed to Emit.
// It backs both the JSON-lines handler and the HTTP event stream.
type EventObserver struct {
	Emit func(Event)
}

var _ Observer = EventObserver{}

func (o EventObserver) emit(typ string, data any) {
	if o.Emit != nil {
		o.Emit(Event{Type: typ, Data: data})
	}
}

func (o EventObserver) OnWorkflowStarted(runID string) {
	o.emit(EventWorkflowStarted, map[string]string{"run_id": runID})
}

func (o EventObserver) OnWorkflowEnded(runID string, status domain.RunStatus, err error) {
	p := EndPayload{RunID: runID, Status: status}
	if err != nil {
		p.Error = err.Error()
	}
	o.emit(EventWorkflowEnded, p)
}

func (o EventObserver) OnDelta(ev domain.StreamEvent) {
	if ev.Type == domain.StreamError && ev.Err != nil && ev.Message == "" {
		ev.Message = ev.Err.Error()
	}
	o.emit(EventDelta, ev)
}

func (o EventObserver) OnMessage(msg domain.Message) { o.emit(EventMessage, msg) }

func (o EventObserver) OnToolStarted(call domain.ToolCall) {
	o.emit(EventToolStarted, ToolPayload{Call: call})
}

func (o EventObserver) OnToolCompleted(call domain.ToolCall, res domain.ToolResult) {
	o.emit(EventToolCompleted, ToolPayload{Call: call, Result: &res})
}

func (o EventObserver) OnToolFailed(call domain.ToolCall, res domain.ToolResult) {
	o.emit(EventToolFailed, ToolPayload{Call: call, Result: &res})
}

func (o EventObserver) OnQuestionAsked(q string, options []string) {
	o.emit(EventQuestion, QuestionPayload{Question: q, Options: options})
}

func (o EventObserver) OnTaskCompleted(summary string) {
	o.emit(EventTaskCompleted, map[string]string{"summary": summary})
}

func (o EventObserver) OnPlanReady(steps []domain.PlanStep)   { o.emit(EventPlanReady, steps) }
func (o EventObserver) OnPlanUpdated(steps []domain.PlanStep) { o.emit(EventPlanUpdated, steps) }

func (o EventObserver) OnError(err error) {
	o.emit(EventError, map[string]string{"error": err.Error()})
}
