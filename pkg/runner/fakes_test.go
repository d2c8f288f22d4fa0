package runner

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/fileops"
	"github.com/aretw0/tendril/pkg/ports"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

// scripted replies with its replies in order, repeating the last one.
type scripted struct {
	mu       sync.Mutex
	replies  []string
	requests []ports.Request
	err      error
}

func script(replies ...string) *scripted {
	return &scripted{replies: replies}
}

func (s *scripted) Send(ctx context.Context, req ports.Request) (<-chan domain.StreamEvent, error) {
	s.mu.Lock()
	n := len(s.requests)
	s.requests = append(s.requests, req)
	reply := s.replies[min(n, len(s.replies)-1)]
	err := s.err
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	ch := make(chan domain.StreamEvent, 3)
	ch <- domain.StreamEvent{Type: domain.StreamDelta, Phase: domain.PhaseThinking, Delta: "hmm"}
	ch <- domain.StreamEvent{Type: domain.StreamDelta, Phase: domain.PhaseAnswer, Delta: reply}
	ch <- domain.StreamEvent{
		Type:  domain.StreamCompleted,
		Text:  reply,
		State: req.State.Advance("conv-1", fmt.Sprintf("msg-%d", n+1)),
	}
	close(ch)
	return ch, nil
}

func (s *scripted) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func (s *scripted) request(i int) ports.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[i]
}

// stalled never answers until the context ends.
type stalled struct {
	sent chan struct{}
	once sync.Once
}

func newStalled() *stalled { return &stalled{sent: make(chan struct{})} }

func (s *stalled) Send(ctx context.Context, req ports.Request) (<-chan domain.StreamEvent, error) {
	s.once.Do(func() { close(s.sent) })
	ch := make(chan domain.StreamEvent)
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch, nil
}

// recorder captures observer callbacks.
type recorder struct {
	NopObserver
	mu        sync.Mutex
	started   int
	ended     []domain.RunStatus
	questions []string
	completed []string
	plans     int
	failed    []domain.ToolResult
	deltas    int
	errors    []error
}

func (r *recorder) OnWorkflowStarted(string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started++
}

func (r *recorder) OnWorkflowEnded(_ string, s domain.RunStatus, _ error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ended = append(r.ended, s)
}

func (r *recorder) OnDelta(domain.StreamEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deltas++
}

func (r *recorder) OnQuestionAsked(q string, _ []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.questions = append(r.questions, q)
}

func (r *recorder) OnTaskCompleted(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completed = append(r.completed, s)
}

func (r *recorder) OnPlanReady([]domain.PlanStep) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.plans++
}

func (r *recorder) OnToolFailed(_ domain.ToolCall, res domain.ToolResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed = append(r.failed, res)
}

func (r *recorder) OnError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, err)
}

func (r *recorder) endings() []domain.RunStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.RunStatus(nil), r.ended...)
}

func newWorkspace(t *testing.T, files map[string]string) *fileops.Workspace {
	t.Helper()
	fs := afero.NewMemMapFs()
	for p, content := range files {
		require.NoError(t, afero.WriteFile(fs, "/project/"+p, []byte(content), 0o644))
	}
	require.NoError(t, fs.MkdirAll("/project", 0o755))
	ws, err := fileops.New("/project", fileops.WithFs(fs))
	require.NoError(t, err)
	return ws
}

func toolReply(name string, args string) string {
	return fmt.Sprintf(`{"tool_calls":[{"name":%q,"args":%s}]}`, name, args)
}

func lastMessage(r *Runner, role domain.Role) domain.Message {
	h := r.History()
	for i := len(h) - 1; i >= 0; i-- {
		if h[i].Role == role {
			return h[i]
		}
	}
	return domain.Message{}
}
