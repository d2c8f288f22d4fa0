package runner

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/parser"
	"github.com/aretw0/tendril/pkg/ports"
	"github.com/aretw0/tendril/pkg/tools"
	"github.com/aretw0/tendril/pkg/transport"
	"github.com/google/uuid"
)

// outcome is how a single turn leaves the loop.
type outcome int

const (
	outContinue outcome = iota
	outIdle
	outAwaitAnswer
	outCompleted
)

// turn performs one model round-trip and dispatches its result.
func (r *Runner) turn(ctx context.Context) (outcome, error) {
	r.mu.Lock()
	if r.iterations >= r.maxIterations {
		r.mu.Unlock()
		return 0, fmt.Errorf("%w: maximum iterations reached", domain.ErrLimitExceeded)
	}
	r.iterations++
	iteration, runID := r.iterations, r.runID
	req := ports.Request{
		System:   r.system,
		Messages: append([]domain.Message(nil), r.messages...),
		Model:    r.model,
		State:    r.state,
		Options:  r.reqOpts,
	}
	r.mu.Unlock()

	start := time.Now()
	if r.hooks.OnTurnStart != nil {
		r.hooks.OnTurnStart(ctx, &domain.TurnEvent{
			EventBase: domain.EventBase{Timestamp: start, Type: domain.EventTurnStart, RunID: runID},
			Iteration: iteration,
		})
	}
	r.logger.Debug("turn started", "run_id", runID, "iteration", iteration, "messages", len(req.Messages))

	events, err := r.transport.Send(ctx, req)
	if err != nil {
		return 0, err
	}
	res, err := transport.Collect(ctx, events, r.observer.OnDelta)
	if err != nil {
		return 0, err
	}

	r.mu.Lock()
	r.state = res.State
	r.mu.Unlock()
	r.addMessage(ctx, domain.RoleAssistant, res.Text)

	parsed := Interpret(res.Text)
	r.record(domain.ExecutionStep{Response: parsed})
	if r.hooks.OnTurnEnd != nil {
		r.hooks.OnTurnEnd(ctx, &domain.TurnEvent{
			EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventTurnEnd, RunID: runID},
			Iteration: iteration,
			Kind:      parsed.Kind,
			Duration:  time.Since(start),
		})
	}
	r.logger.Debug("turn finished", "run_id", runID, "iteration", iteration, "kind", parsed.Kind, "valid", parsed.IsValid)

	return r.dispatch(ctx, parsed)
}

// Interpret reads a model reply, preferring the tool_calls envelope.
func Interpret(text string) domain.ParsedResponse {
	if p, ok := parser.ParseToolCalls(text); ok {
		return p
	}
	return parser.Parse(text, nil)
}

func (r *Runner) dispatch(ctx context.Context, parsed domain.ParsedResponse) (outcome, error) {
	if parsed.Kind == domain.KindPlan && parsed.IsValid {
		if r.startPlan(ctx, parsed.PlanSteps) {
			return outContinue, nil
		}
		return outIdle, nil
	}

	calls, control := splitControl(parsed)
	if len(calls) > 0 {
		if err := r.execute(ctx, calls); err != nil {
			return 0, err
		}
	}
	if control != nil {
		return r.control(ctx, *control), nil
	}
	if len(calls) > 0 {
		return outContinue, nil
	}
	return outIdle, nil
}

// splitControl converts file actions to calls and cuts the batch at the
// first ask/complete call.
func splitControl(parsed domain.ParsedResponse) ([]domain.ToolCall, *domain.ToolCall) {
	calls := append([]domain.ToolCall(nil), parsed.ToolCalls...)
	for _, op := range parsed.Operations {
		calls = append(calls, tools.FromAction(op))
	}
	control := parsed.Control
	for i, c := range calls {
		if domain.IsControlTool(c.Name) {
			if control == nil {
				cc := c
				control = &cc
			}
			calls = calls[:i]
			break
		}
	}
	return calls, control
}

func (r *Runner) control(ctx context.Context, call domain.ToolCall) outcome {
	if call.ID == "" {
		call.ID = uuid.NewString()
	}
	res := r.registry.Execute(ctx, r.env(), call)
	if !res.OK {
		r.toolDone(ctx, call, res, 0)
		return outContinue
	}
	r.record(domain.ExecutionStep{Call: &call, Result: &res})

	if call.Name == domain.ToolAskFollowup {
		question, _ := res.Data["question"].(string)
		var options []string
		if opts, ok := res.Data["options"].([]string); ok {
			options = opts
		}
		r.observer.OnQuestionAsked(question, options)
		return outAwaitAnswer
	}
	summary, _ := res.Data["result"].(string)
	r.observer.OnTaskCompleted(summary)
	return outCompleted
}

func (r *Runner) env() tools.Env {
	return tools.Env{Workspace: r.workspace}
}

// execute gates and runs calls, appending one tool message per call.
// Only gate errors escape; tool failures become messages.
func (r *Runner) execute(ctx context.Context, calls []domain.ToolCall) error {
	for i := range calls {
		if calls[i].ID == "" {
			calls[i].ID = uuid.NewString()
		}
	}
	gate := r.gate()
	if r.parallel && len(calls) > 1 {
		return r.executeParallel(ctx, gate, calls)
	}

	for _, call := range calls {
		if err := ctx.Err(); err != nil {
			return err
		}
		allowed, res, err := gate(ctx, call)
		if err != nil {
			return err
		}
		var took time.Duration
		if allowed {
			r.toolStarted(ctx, call)
			start := time.Now()
			res = r.registry.Execute(ctx, r.env(), call)
			took = time.Since(start)
		}
		r.toolDone(ctx, call, res, took)
	}
	return nil
}

// executeParallel collects every approval first, then runs the approved
// calls through a path-partitioned executor.
func (r *Runner) executeParallel(ctx context.Context, gate ToolInterceptor, calls []domain.ToolCall) error {
	results := make([]domain.ToolResult, len(calls))
	var (
		runnable []domain.ToolCall
		index    []int
	)
	for i, call := range calls {
		allowed, res, err := gate(ctx, call)
		if err != nil {
			return err
		}
		if !allowed {
			results[i] = res
			continue
		}
		runnable = append(runnable, call)
		index = append(index, i)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	for _, call := range runnable {
		r.toolStarted(ctx, call)
	}
	exec := tools.Executor{Registry: r.registry, Env: r.env(), Parallel: true}
	start := time.Now()
	out := exec.Run(ctx, runnable)
	took := time.Since(start)
	for j, i := range index {
		results[i] = out[j]
	}

	for i, call := range calls {
		r.toolDone(ctx, call, results[i], took)
	}
	return nil
}

func (r *Runner) gate() ToolInterceptor {
	chain := []ToolInterceptor{r.interceptor}
	if r.mode == ModeApproval {
		chain = append(chain, ApprovalMiddleware(r.registry, r.workspace, ApproverFunc(r.approve)))
	}
	return MultiInterceptor(chain...)
}

// approve parks the run in AwaitingApproval while the approver decides.
func (r *Runner) approve(ctx context.Context, req ApprovalRequest) (bool, error) {
	r.setStatus(domain.RunAwaitingApproval)
	r.persist(context.WithoutCancel(ctx))
	approved, err := r.approver.Approve(ctx, req)
	r.setStatus(domain.RunRunning)
	if err != nil {
		return false, err
	}

	r.logger.Info("approval decided", "tool", req.Call.Name, "approved", approved)
	if r.hooks.OnApproval != nil {
		r.hooks.OnApproval(ctx, &domain.ApprovalEvent{
			EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventApproval, RunID: r.RunID()},
			ToolName:  req.Call.Name,
			Approved:  approved,
		})
	}
	return approved, nil
}

func (r *Runner) toolStarted(ctx context.Context, call domain.ToolCall) {
	r.observer.OnToolStarted(call)
	if r.hooks.OnToolCall != nil {
		r.hooks.OnToolCall(ctx, &domain.ToolEvent{
			EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventToolCall, RunID: r.RunID()},
			ToolName:  call.Name,
			Input:     call.Args,
		})
	}
}

func (r *Runner) toolDone(ctx context.Context, call domain.ToolCall, res domain.ToolResult, took time.Duration) {
	if res.OK {
		r.observer.OnToolCompleted(call, res)
	} else {
		r.observer.OnToolFailed(call, res)
		r.logger.Debug("tool failed", "tool", call.Name, "error", res.Error)
	}
	if r.hooks.OnToolReturn != nil {
		r.hooks.OnToolReturn(ctx, &domain.ToolEvent{
			EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventToolReturn, RunID: r.RunID()},
			ToolName:  call.Name,
			Output:    res.Message,
			IsError:   !res.OK,
			Duration:  took,
		})
	}
	r.record(domain.ExecutionStep{Call: &call, Result: &res})
	r.addMessage(ctx, domain.RoleTool, r.summarize(call, res))
}

// startPlan records the steps and kicks off the first one.
// It reports false for an empty plan.
func (r *Runner) startPlan(ctx context.Context, steps []domain.PlanStep) bool {
	plan := make([]domain.PlanStep, len(steps))
	for i, s := range steps {
		if s.ID == "" {
			s.ID = strconv.Itoa(i + 1)
		}
		s.Status = domain.StepPending
		plan[i] = s
	}
	r.mu.Lock()
	r.plan = plan
	r.cursor = -1
	r.mu.Unlock()

	r.observer.OnPlanReady(r.Plan())
	return r.nextStep(ctx)
}

// nextStep marks the following step running and prompts the model for it.
func (r *Runner) nextStep(ctx context.Context) bool {
	r.mu.Lock()
	next := r.cursor + 1
	if next >= len(r.plan) {
		r.cursor = -1
		r.mu.Unlock()
		return false
	}
	r.cursor = next
	r.plan[next].Status = domain.StepRunning
	step, total := r.plan[next], len(r.plan)
	r.mu.Unlock()

	r.observer.OnPlanUpdated(r.Plan())
	r.addMessage(ctx, domain.RoleUser, fmt.Sprintf("Proceed with step %d of %d: %s", next+1, total, step.Title))
	return true
}

// advancePlan moves to the next step when the current one settles with a
// plain reply. attempt_completion ends the run; later steps stay pending.
func (r *Runner) advancePlan(ctx context.Context, out outcome) outcome {
	if out != outIdle && out != outCompleted {
		return out
	}
	r.mu.Lock()
	cur := r.cursor
	if cur < 0 {
		r.mu.Unlock()
		return out
	}
	r.plan[cur].Status = domain.StepCompleted
	total := len(r.plan)
	if out == outCompleted {
		r.cursor = -1
	}
	r.mu.Unlock()

	if out == outCompleted {
		r.observer.OnPlanUpdated(r.Plan())
		return outCompleted
	}
	if r.nextStep(ctx) {
		return outContinue
	}
	r.observer.OnPlanUpdated(r.Plan())
	r.observer.OnTaskCompleted(fmt.Sprintf("Completed all %d plan steps", total))
	return outCompleted
}

func (r *Runner) failStep() {
	r.mu.Lock()
	cur := r.cursor
	if cur < 0 {
		r.mu.Unlock()
		return
	}
	r.plan[cur].Status = domain.StepFailed
	r.mu.Unlock()
	r.observer.OnPlanUpdated(r.Plan())
}
