package runner

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/tendril/pkg/domain"
)

// Observer receives the progress of a run. Callbacks run on the run's
// goroutine, in order, and must not block for long.
type Observer interface {
	OnWorkflowStarted(runID string)
	// OnWorkflowEnded fires once per workflow, when it settles in Idle or a terminal status.
	OnWorkflowEnded(runID string, status domain.RunStatus, err error)
	OnDelta(ev domain.StreamEvent)
	OnMessage(msg domain.Message)
	OnToolStarted(call domain.ToolCall)
	OnToolCompleted(call domain.ToolCall, res domain.ToolResult)
	OnToolFailed(call domain.ToolCall, res domain.ToolResult)
	OnQuestionAsked(question string, options []string)
	OnTaskCompleted(summary string)
	OnPlanReady(steps []domain.PlanStep)
	OnPlanUpdated(steps []domain.PlanStep)
	OnError(err error)
}

// NopObserver ignores every callback. Embed it to implement only a few.
type NopObserver struct{}

func (NopObserver) OnWorkflowStarted(string)                           {}
func (NopObserver) OnWorkflowEnded(string, domain.RunStatus, error)    {}
func (NopObserver) OnDelta(domain.StreamEvent)                         {}
func (NopObserver) OnMessage(domain.Message)                           {}
func (NopObserver) OnToolStarted(domain.ToolCall)                      {}
func (NopObserver) OnToolCompleted(domain.ToolCall, domain.ToolResult) {}
func (NopObserver) OnToolFailed(domain.ToolCall, domain.ToolResult)    {}
func (NopObserver) OnQuestionAsked(string, []string)                   {}
func (NopObserver) OnTaskCompleted(string)                             {}
func (NopObserver) OnPlanReady([]domain.PlanStep)                      {}
func (NopObserver) OnPlanUpdated([]domain.PlanStep)                    {}
func (NopObserver) OnError(error)                                      {}

var _ Observer = NopObserver{}

// MultiObserver fans callbacks out to several observers in order.
type MultiObserver []Observer

func (m MultiObserver) OnWorkflowStarted(id string) {
	for _, o := range m {
		o.OnWorkflowStarted(id)
	}
}

func (m MultiObserver) OnWorkflowEnded(id string, s domain.RunStatus, err error) {
	for _, o := range m {
		o.OnWorkflowEnded(id, s, err)
	}
}

func (m MultiObserver) OnDelta(ev domain.StreamEvent) {
	for _, o := range m {
		o.OnDelta(ev)
	}
}

func (m MultiObserver) OnMessage(msg domain.Message) {
	for _, o := range m {
		o.OnMessage(msg)
	}
}

func (m MultiObserver) OnToolStarted(call domain.ToolCall) {
	for _, o := range m {
		o.OnToolStarted(call)
	}
}

func (m MultiObserver) OnToolCompleted(call domain.ToolCall, res domain.ToolResult) {
	for _, o := range m {
		o.OnToolCompleted(call, res)
	}
}

func (m MultiObserver) OnToolFailed(call domain.ToolCall, res domain.ToolResult) {
	for _, o := range m {
		o.OnToolFailed(call, res)
	}
}

func (m MultiObserver) OnQuestionAsked(q string, options []string) {
	for _, o := range m {
		o.OnQuestionAsked(q, options)
	}
}

func (m MultiObserver) OnTaskCompleted(summary string) {
	for _, o := range m {
		o.OnTaskCompleted(summary)
	}
}

func (m MultiObserver) OnPlanReady(steps []domain.PlanStep) {
	for _, o := range m {
		o.OnPlanReady(steps)
	}
}

func (m MultiObserver) OnPlanUpdated(steps []domain.PlanStep) {
	for _, o := range m {
		o.OnPlanUpdated(steps)
	}
}

func (m MultiObserver) OnError(err error) {
	for _, o := range m {
		o.OnError(err)
	}
}

// ApprovalRequest is what an Approver sees before a mutating tool runs.
type ApprovalRequest struct {
	Call    domain.ToolCall `json:"call"`
	Spec    domain.ToolSpec `json:"spec"`
	Preview string          `json:"preview"`
}

// Approver decides whether a mutating tool may run.
type Approver interface {
	Approve(ctx context.Context, req ApprovalRequest) (bool, error)
}

// ApproverFunc adapts a function to Approver.
type ApproverFunc func(ctx context.Context, req ApprovalRequest) (bool, error)

func (f ApproverFunc) Approve(ctx context.Context, req ApprovalRequest) (bool, error) {
	return f(ctx, req)
}

// QueueApprover parks approval requests until Decide is called for them.
// It suits front ends that answer asynchronously, such as the HTTP server.
type QueueApprover struct {
	mu      sync.Mutex
	pending map[string]*pendingApproval
	// Notify, if set, is called when a request starts waiting.
	Notify func(ApprovalRequest)
}

type pendingApproval struct {
	req      ApprovalRequest
	decision chan bool
}

// NewQueueApprover creates an empty queue.
func NewQueueApprover() *QueueApprover {
	return &QueueApprover{pending: make(map[string]*pendingApproval)}
}

// Approve blocks until Decide is called for req.Call.ID or ctx is done.
func (q *QueueApprover) Approve(ctx context.Context, req ApprovalRequest) (bool, error) {
	p := &pendingApproval{req: req, decision: make(chan bool, 1)}
	q.mu.Lock()
	q.pending[req.Call.ID] = p
	notify := q.Notify
	q.mu.Unlock()

	defer func() {
		q.mu.Lock()
		delete(q.pending, req.Call.ID)
		q.mu.Unlock()
	}()

	if notify != nil {
		notify(req)
	}
	select {
	case ok := <-p.decision:
		return ok, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// Decide answers a pending request.
func (q *QueueApprover) Decide(callID string, approved bool) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	p, ok := q.pending[callID]
	if !ok {
		return fmt.Errorf("%w: no pending approval for call %q", domain.ErrNotAwaiting, callID)
	}
	select {
	case p.decision <- approved:
	default:
		return fmt.Errorf("%w: call %q already decided", domain.ErrConflict, callID)
	}
	return nil
}

// Pending lists waiting requests ordered by call ID.
func (q *QueueApprover) Pending() []ApprovalRequest {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]ApprovalRequest, 0, len(q.pending))
	for _, p := range q.pending {
		out = append(out, p.req)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Call.ID < out[j].Call.ID })
	return out
}
