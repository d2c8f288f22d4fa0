package runner

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextHandler_StreamsAnswer(t *testing.T) {
	out := &bytes.Buffer{}
	h := NewTextHandler(strings.NewReader(""), out)

	r, err := New(script("Hello World"), newWorkspace(t, nil), WithObserver(h))
	require.NoError(t, err)
	require.NoError(t, r.Run(context.Background(), "hi"))

	assert.Equal(t, "Hello World\n", out.String(), "thinking is hidden by default")
}

func TestTextHandler_ShowsThinking(t *testing.T) {
	out := &bytes.Buffer{}
	h := NewTextHandler(strings.NewReader(""), out, WithThinking(true))

	h.OnDelta(domain.StreamEvent{Type: domain.StreamDelta, Phase: domain.PhaseThinking, Delta: "hmm"})
	h.OnDelta(domain.StreamEvent{Type: domain.StreamDelta, Phase: domain.PhaseAnswer, Delta: "Hi"})
	h.OnMessage(domain.Message{Role: domain.RoleAssistant, Content: "Hi"})

	assert.Equal(t, "[thinking] hmm\nHi\n", out.String())
}

func TestTextHandler_RendererAndToolEnvelope(t *testing.T) {
	out := &bytes.Buffer{}
	h := NewTextHandler(strings.NewReader(""), out, WithTextHandlerRenderer(func(s string) (string, error) {
		return "Rendered: " + s, nil
	}))

	h.OnDelta(domain.StreamEvent{Type: domain.StreamDelta, Phase: domain.PhaseAnswer, Delta: "ignored"})
	h.OnMessage(domain.Message{Role: domain.RoleAssistant, Content: `{"content":"Looking around","tool_calls":[{"name":"list_files","args":{"path":"."}}]}`})
	h.OnMessage(domain.Message{Role: domain.RoleAssistant, Content: "**bold**"})
	h.OnMessage(domain.Message{Role: domain.RoleUser, Content: "not printed"})

	assert.Equal(t, "Rendered: Looking around\nRendered: **bold**\n", out.String())
}

func TestTextHandler_ToolAndPlanOutput(t *testing.T) {
	out := &bytes.Buffer{}
	h := NewTextHandler(strings.NewReader(""), out)
	call := domain.ToolCall{Name: "read_file", Args: map[string]any{"path": "a.txt"}}

	h.OnToolStarted(call)
	h.OnToolCompleted(call, domain.Success("Read a.txt (1 lines)", nil))
	h.OnToolFailed(call, domain.Failure("read failed", assert.AnError))
	h.OnPlanReady([]domain.PlanStep{{Title: "one", Status: domain.StepPending}})
	h.OnQuestionAsked("Which?", []string{"a", "b"})

	got := out.String()
	assert.Contains(t, got, "→ read_file(a.txt)\n")
	assert.Contains(t, got, "  ✓ Read a.txt (1 lines)\n")
	assert.Contains(t, got, "  ✗ read_file: "+assert.AnError.Error())
	assert.Contains(t, got, "  [ ] 1. one\n")
	assert.Contains(t, got, "? Which?\n  1. a\n  2. b\n")
}

func TestTextHandler_Input(t *testing.T) {
	out := &bytes.Buffer{}
	h := NewTextHandler(strings.NewReader("my user input\n\x00clean\n"), out)
	ctx := context.Background()

	val, err := h.Input(ctx)
	require.NoError(t, err)
	assert.Equal(t, "my user input", val)

	val, err = h.Input(ctx)
	require.NoError(t, err)
	assert.Equal(t, "clean", val)

	_, err = h.Input(ctx)
	assert.ErrorIs(t, err, io.EOF)
	assert.True(t, strings.HasPrefix(out.String(), "> "))
}

func TestTextHandler_Approve(t *testing.T) {
	out := &bytes.Buffer{}
	h := NewTextHandler(strings.NewReader("y\nn\n"), out)
	req := ApprovalRequest{Call: domain.ToolCall{Name: "delete_path", Args: map[string]any{"path": "x"}}, Preview: "delete x"}

	ok, err := h.Approve(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Contains(t, out.String(), "[approval] delete_path(x)\ndelete x\nAllow? [y/N] ")

	ok, err = h.Approve(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, ok)
}
