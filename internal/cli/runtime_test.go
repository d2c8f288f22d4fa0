package cli

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/aretw0/tendril/internal/config"
	"github.com/aretw0/tendril/internal/logging"
	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/fileops"
	"github.com/aretw0/tendril/pkg/ports"
	"github.com/aretw0/tendril/pkg/runner"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scripted answers each request with the next reply, repeating the last.
type scripted struct {
	mu      sync.Mutex
	replies []string
	n       int
}

func (s *scripted) Send(ctx context.Context, req ports.Request) (<-chan domain.StreamEvent, error) {
	s.mu.Lock()
	text := s.replies[min(s.n, len(s.replies)-1)]
	s.n++
	s.mu.Unlock()

	ch := make(chan domain.StreamEvent, 1)
	ch <- domain.StreamEvent{Type: domain.StreamCompleted, Text: text}
	close(ch)
	return ch, nil
}

func memWorkspace(t *testing.T) *fileops.Workspace {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/project", 0o755))
	ws, err := fileops.New("/project", fileops.WithFs(fs))
	require.NoError(t, err)
	return ws
}

func newRuntime(t *testing.T, mode runner.Mode, replies ...string) *Runtime {
	t.Helper()
	cfg := config.Default()
	cfg.Mode = string(mode)
	rt, err := NewRuntime(cfg, logging.NewNop(),
		WithTransport(&scripted{replies: replies}),
		WithWorkspace(memWorkspace(t)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close() })
	return rt
}

func TestNewRuntime_InvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Mode = "yolo"
	cfg.MaxIterations = 0
	_, err := NewRuntime(cfg, logging.NewNop(), WithTransport(&scripted{replies: []string{"x"}}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
	assert.Contains(t, err.Error(), "max_iterations")
}

func TestRuntime_NewRunnerPersistsAndCounts(t *testing.T) {
	rt := newRuntime(t, runner.ModeAgent, "hello there")
	ctx := context.Background()

	r, err := rt.NewRunner("s1", nil, nil)
	require.NoError(t, err)
	require.NoError(t, r.Run(ctx, "hi"))
	assert.Equal(t, domain.RunIdle, r.Status())

	stored, err := rt.Sessions.Load(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, stored.Messages, 2)
	assert.Equal(t, "hello there", stored.Messages[1].Content)

	families, err := rt.Metrics.Registry().Gather()
	require.NoError(t, err)
	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "tendril_runs_total")
}

func TestRuntime_ApprovalModeNeedsApprover(t *testing.T) {
	rt := newRuntime(t, runner.ModeApproval, "x")
	assert.Equal(t, runner.ModeApproval, rt.Mode())

	_, err := rt.NewRunner("", nil, nil)
	assert.ErrorIs(t, err, domain.ErrValidation)

	r, err := rt.Factory()(context.Background(), "", nil, runner.NewQueueApprover())
	require.NoError(t, err)
	assert.Equal(t, runner.ModeApproval, r.Mode())
}

func TestApplyResponse(t *testing.T) {
	ws := memWorkspace(t)
	_, err := ws.Write("keep.txt", "old\n")
	require.NoError(t, err)

	resp := "Here you go:\n```json\n" + `{"operations":[
		{"type":"createFile","path":"new.txt","content":"fresh\n"},
		{"type":"deleteFile","path":"missing.txt"}
	]}` + "\n```"
	parsed, report, err := ApplyResponse(ws, []byte(resp))
	require.NoError(t, err)
	assert.Equal(t, domain.KindOperations, parsed.Kind)
	assert.Equal(t, 1, report.Succeeded)
	assert.Equal(t, 1, report.Failed)
	assert.True(t, strings.HasPrefix(report.Summary(), "1 of 2 actions applied"))
	assert.True(t, ws.Exists("new.txt"))

	_, _, err = ApplyResponse(ws, []byte("just words"))
	assert.ErrorIs(t, err, ErrNoActions)
	assert.ErrorIs(t, err, domain.ErrValidation)
}
