package runner

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func summarizeWith(t *testing.T, files map[string]string, limits Limits, call domain.ToolCall) string {
	t.Helper()
	ws := newWorkspace(t, files)
	r, err := New(script("x"), ws, WithLimits(limits))
	require.NoError(t, err)
	res := tools.Default().Execute(context.Background(), tools.Env{Workspace: ws}, call)
	return r.summarize(call, res)
}

func TestSummarize_ListCapped(t *testing.T) {
	files := map[string]string{}
	for i := 0; i < 5; i++ {
		files[fmt.Sprintf("f%d.txt", i)] = "x"
	}
	out := summarizeWith(t, files, Limits{ListEntries: 2}, domain.ToolCall{Name: tools.ListFiles, Args: map[string]any{"path": "."}})

	assert.Contains(t, out, "Listed 5 entries")
	assert.Contains(t, out, "f0.txt (1 bytes)")
	assert.Contains(t, out, "f1.txt (1 bytes)")
	assert.NotContains(t, out, "f2.txt")
	assert.Contains(t, out, "... and 3 more")
}

func TestSummarize_ReadCapped(t *testing.T) {
	out := summarizeWith(t, map[string]string{"big.txt": strings.Repeat("a", 50)}, Limits{ReadChars: 10},
		domain.ToolCall{Name: tools.ReadFile, Args: map[string]any{"path": "big.txt"}})

	assert.Contains(t, out, "\n"+strings.Repeat("a", 10)+"\n[truncated: 10 of 50 characters shown]")
}

func TestSummarize_SearchCapped(t *testing.T) {
	out := summarizeWith(t, map[string]string{"a.js": "foo\nfoo\nfoo\n"}, Limits{SearchMatches: 1},
		domain.ToolCall{Name: tools.SearchFiles, Args: map[string]any{"path": ".", "regex": "foo"}})

	assert.Contains(t, out, "a.js:1: foo")
	assert.Contains(t, out, "... and 2 more matches")
}

func TestSummarize_TokenBudget(t *testing.T) {
	out := summarizeWith(t, map[string]string{"w.txt": strings.Repeat("word ", 500)}, Limits{ResultTokens: 20},
		domain.ToolCall{Name: tools.ReadFile, Args: map[string]any{"path": "w.txt"}})

	assert.True(t, strings.HasSuffix(out, "[output truncated]"))
	assert.Less(t, len(out), 200)
}

func TestLimits_Defaults(t *testing.T) {
	assert.Equal(t, DefaultLimits, Limits{}.withDefaults())
	assert.Equal(t, 7, Limits{ReadChars: 7}.withDefaults().ReadChars)
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode(" Approval ")
	require.NoError(t, err)
	assert.Equal(t, ModeApproval, m)

	m, err = ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeAgent, m)

	_, err = ParseMode("auto")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestSystemPrompt(t *testing.T) {
	p := SystemPrompt(tools.Default().Specs(), ModeApproval)

	assert.Contains(t, p, `"tool_calls"`)
	assert.Contains(t, p, "- read_file: ")
	assert.Contains(t, p, "- write_to_file [approval]: ")
	assert.Contains(t, p, "path (string, required)")
	assert.Contains(t, p, "may be denied")
	assert.NotContains(t, SystemPrompt(tools.Default().Specs(), ModeAgent), "may be denied")
}
