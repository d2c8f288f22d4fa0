package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/tendril/internal/logging"
	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/fileops"
	"github.com/aretw0/tendril/pkg/ports"
	"github.com/aretw0/tendril/pkg/session"
	"github.com/aretw0/tendril/pkg/tools"
	"github.com/google/uuid"
)

// Runner drives one conversation: it sends the transcript to the model,
// interprets the reply and executes the requested tools until the model
// stops asking for work.
//
// A Runner holds at most one active run. Start and Answer launch the loop
// on its own goroutine; Run and Wait block until it settles.
type Runner struct {
	transport   ports.Transport
	workspace   *fileops.Workspace
	registry    *tools.Registry
	observer    Observer
	approver    Approver
	interceptor ToolInterceptor
	hooks       domain.LifecycleHooks

	mode          Mode
	maxIterations int
	limits        Limits
	model         string
	system        string
	reqOpts       ports.Options
	parallel      bool
	logger        *slog.Logger

	sessions  *session.Manager
	sessionID string

	mu         sync.Mutex
	status     domain.RunStatus
	running    bool
	messages   []domain.Message
	state      domain.ConversationState
	steps      []domain.ExecutionStep
	plan       []domain.PlanStep
	cursor     int
	iterations int
	runID      string
	ended      bool
	cancel     context.CancelFunc
	done       chan struct{}
	lastErr    error
}

// New creates a Runner over transport and workspace. Approval mode needs an Approver.
func New(transport ports.Transport, ws *fileops.Workspace, opts ...Option) (*Runner, error) {
	if transport == nil || ws == nil {
		return nil, fmt.Errorf("%w: runner needs a transport and a workspace", domain.ErrValidation)
	}
	r := &Runner{
		transport:     transport,
		workspace:     ws,
		registry:      tools.Default(),
		observer:      NopObserver{},
		mode:          ModeAgent,
		maxIterations: DefaultMaxIterations,
		limits:        DefaultLimits,
		logger:        logging.NewNop(),
		status:        domain.RunIdle,
		cursor:        -1,
	}
	for _, opt := range opts {
		opt(r)
	}

	switch r.mode {
	case ModeAgent:
	case ModeApproval:
		if r.approver == nil {
			return nil, fmt.Errorf("%w: approval mode needs an approver", domain.ErrValidation)
		}
	default:
		return nil, fmt.Errorf("%w: unknown mode %q", domain.ErrValidation, r.mode)
	}
	if r.sessions != nil && r.sessionID == "" {
		return nil, fmt.Errorf("%w: session persistence needs a session id", domain.ErrValidation)
	}
	if r.system == "" {
		r.system = SystemPrompt(r.registry.Specs(), r.mode)
	}
	return r, nil
}

// Run starts a workflow with input and blocks until it settles.
// It returns the failure on Failed and context.Canceled on Cancelled.
func (r *Runner) Run(ctx context.Context, input string) error {
	if err := r.Start(ctx, input); err != nil {
		return err
	}
	return r.Wait()
}

// Start appends input and runs the loop in the background. When the run is
// waiting for an answer, input is taken as that answer.
func (r *Runner) Start(ctx context.Context, input string) error {
	return r.begin(ctx, input, false)
}

// Answer resumes a run paused on a follow-up question.
func (r *Runner) Answer(ctx context.Context, text string) error {
	return r.begin(ctx, text, true)
}

func (r *Runner) begin(ctx context.Context, input string, mustAwait bool) error {
	text, err := SanitizeInput(input)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return domain.ErrRunInProgress
	}
	resume := r.status == domain.RunAwaitingUserAnswer
	if mustAwait && !resume {
		r.mu.Unlock()
		return fmt.Errorf("%w: status is %s", domain.ErrNotAwaiting, r.status)
	}
	if !resume {
		r.runID = uuid.NewString()
		r.iterations = 0
		r.steps = nil
		r.plan = nil
		r.cursor = -1
		r.ended = false
	}
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	r.running = true
	r.status = domain.RunRunning
	r.cancel = cancel
	r.done = done
	r.lastErr = nil
	runID := r.runID
	r.mu.Unlock()

	if resume {
		r.logger.Debug("resuming run", "run_id", runID)
	} else {
		r.logger.Info("workflow started", "run_id", runID, "mode", r.mode)
		r.observer.OnWorkflowStarted(runID)
	}
	r.addMessage(runCtx, domain.RoleUser, text)

	go r.loop(runCtx, cancel, done)
	return nil
}

// Wait blocks until the current loop settles and returns its outcome.
func (r *Runner) Wait() error {
	r.mu.Lock()
	done := r.done
	r.mu.Unlock()
	if done != nil {
		<-done
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastErr
}

// Cancel stops the run while it is running, awaiting approval or awaiting
// an answer. Mutations already applied stay applied.
func (r *Runner) Cancel() error {
	r.mu.Lock()
	if r.running {
		cancel := r.cancel
		r.mu.Unlock()
		cancel()
		return nil
	}
	if r.status != domain.RunAwaitingUserAnswer {
		status := r.status
		r.mu.Unlock()
		return fmt.Errorf("%w: nothing to cancel in status %s", domain.ErrNotAwaiting, status)
	}
	r.status = domain.RunCancelled
	r.lastErr = context.Canceled
	r.mu.Unlock()

	ctx := context.Background()
	r.persist(ctx)
	r.endWorkflow(ctx, domain.RunCancelled, context.Canceled)
	return nil
}

func (r *Runner) loop(ctx context.Context, cancel context.CancelFunc, done chan struct{}) {
	defer close(done)
	defer cancel()

	status, err := r.drive(ctx)

	r.mu.Lock()
	r.status = status
	r.running = false
	switch status {
	case domain.RunFailed, domain.RunCancelled:
		r.lastErr = err
	default:
		r.lastErr = nil
	}
	r.mu.Unlock()

	bg := context.WithoutCancel(ctx)
	r.persist(bg)
	if status == domain.RunAwaitingUserAnswer {
		return
	}
	if status == domain.RunFailed {
		r.observer.OnError(err)
	}
	r.endWorkflow(bg, status, err)
}

func (r *Runner) drive(ctx context.Context) (domain.RunStatus, error) {
	for {
		if ctx.Err() != nil {
			return domain.RunCancelled, context.Canceled
		}
		out, err := r.turn(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return domain.RunCancelled, context.Canceled
			}
			r.failStep()
			return domain.RunFailed, err
		}
		switch r.advancePlan(ctx, out) {
		case outContinue:
			continue
		case outAwaitAnswer:
			return domain.RunAwaitingUserAnswer, nil
		case outCompleted:
			return domain.RunCompleted, nil
		default:
			return domain.RunIdle, nil
		}
	}
}

// endWorkflow reports the end of the workflow exactly once.
func (r *Runner) endWorkflow(ctx context.Context, status domain.RunStatus, err error) {
	r.mu.Lock()
	if r.ended {
		r.mu.Unlock()
		return
	}
	r.ended = true
	runID, iterations := r.runID, r.iterations
	r.mu.Unlock()

	attrs := []any{"run_id", runID, "status", status, "iterations", iterations}
	if err != nil && !errors.Is(err, context.Canceled) {
		r.logger.Warn("workflow ended", append(attrs, "error", err)...)
	} else {
		r.logger.Info("workflow ended", attrs...)
	}

	r.observer.OnWorkflowEnded(runID, status, err)
	if r.hooks.OnRunEnd != nil {
		ev := &domain.RunEvent{
			EventBase:  domain.EventBase{Timestamp: time.Now(), Type: domain.EventRunEnd, RunID: runID},
			Status:     status,
			Iterations: iterations,
		}
		if err != nil {
			ev.Err = err.Error()
		}
		r.hooks.OnRunEnd(ctx, ev)
	}
}

func (r *Runner) setStatus(s domain.RunStatus) {
	r.mu.Lock()
	if r.running {
		r.status = s
	}
	r.mu.Unlock()
}

// addMessage appends to the transcript, notifies the observer and persists.
func (r *Runner) addMessage(ctx context.Context, role domain.Role, content string) domain.Message {
	msg := domain.NewMessage(role, content)
	r.mu.Lock()
	r.messages = append(r.messages, msg)
	r.mu.Unlock()
	r.observer.OnMessage(msg)
	r.persist(context.WithoutCancel(ctx))
	return msg
}

func (r *Runner) record(step domain.ExecutionStep) {
	step.At = time.Now().UTC()
	r.mu.Lock()
	r.steps = append(r.steps, step)
	r.mu.Unlock()
}

// Resume restores the transcript stored for the configured session.
// A session saved while waiting for an answer can be answered right away.
func (r *Runner) Resume(ctx context.Context) error {
	if r.sessions == nil {
		return fmt.Errorf("%w: no session manager configured", domain.ErrValidation)
	}
	s, err := r.sessions.LoadOrStart(ctx, r.sessionID)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return domain.ErrRunInProgress
	}
	r.messages = append([]domain.Message(nil), s.Messages...)
	r.state = s.Conversation
	r.plan = append([]domain.PlanStep(nil), s.Plan...)
	r.cursor = -1
	for i, p := range r.plan {
		if p.Status == domain.StepRunning {
			r.cursor = i
		}
	}
	r.status = domain.RunIdle
	if s.Status == domain.RunAwaitingUserAnswer {
		r.status = s.Status
		r.runID = uuid.NewString()
		r.ended = false
	}
	r.logger.Debug("session restored", "session_id", r.sessionID, "messages", len(r.messages))
	return nil
}

func (r *Runner) persist(ctx context.Context) {
	if r.sessions == nil {
		return
	}
	r.mu.Lock()
	s := &domain.Session{
		ID:           r.sessionID,
		Conversation: r.state,
		Messages:     append([]domain.Message(nil), r.messages...),
		Plan:         append([]domain.PlanStep(nil), r.plan...),
		Status:       r.status,
	}
	r.mu.Unlock()
	if err := r.sessions.Save(ctx, s); err != nil {
		r.logger.Warn("failed to persist session", "session_id", r.sessionID, "error", err)
	}
}

// Status returns the current run status.
func (r *Runner) Status() domain.RunStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// History returns a copy of the transcript.
func (r *Runner) History() []domain.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Message(nil), r.messages...)
}

// Steps returns the audit trail of the current workflow.
func (r *Runner) Steps() []domain.ExecutionStep {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.ExecutionStep(nil), r.steps...)
}

// Plan returns the current plan, if the model proposed one.
func (r *Runner) Plan() []domain.PlanStep {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.PlanStep(nil), r.plan...)
}

// Conversation returns the remote thread identifiers.
func (r *Runner) Conversation() domain.ConversationState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Iterations returns the number of model turns in the current workflow.
func (r *Runner) Iterations() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.iterations
}

// RunID identifies the current workflow.
func (r *Runner) RunID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.runID
}

// Mode returns the approval mode.
func (r *Runner) Mode() Mode { return r.mode }

// Registry returns the tool catalog in use.
func (r *Runner) Registry() *tools.Registry { return r.registry }
