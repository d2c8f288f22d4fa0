package parser

import (
	"testing"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_RecognizedShapes(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		kind      domain.ResponseKind
		wantOps   int
		wantSteps int
	}{
		{
			name:      "plan",
			raw:       `{"steps":[{"title":"Scaffold"},{"id":"x","title":"Style","kind":"css"}],"explanation":"two steps"}`,
			kind:      domain.KindPlan,
			wantSteps: 2,
		},
		{
			name:    "operations array",
			raw:     `{"operations":[{"type":"createFile","path":"a.txt","content":"hi"}],"explanation":"create"}`,
			kind:    domain.KindOperations,
			wantOps: 1,
		},
		{
			name:    "single by action",
			raw:     `{"action":"deleteFile","path":"old.txt"}`,
			kind:    domain.KindSingle,
			wantOps: 1,
		},
		{
			name:    "single by type",
			raw:     `{"type":"write_to_file","relative_path":"b.txt","content":"x"}`,
			kind:    domain.KindSingle,
			wantOps: 1,
		},
		{
			name:    "root tool_code",
			raw:     `{"tool_code":"write_to_file","parameters":{"path":"index.html","content":"<h1>Hi</h1>"}}`,
			kind:    domain.KindOperations,
			wantOps: 1,
		},
		{
			name:    "root array",
			raw:     `[{"type":"deleteFile","path":"a"},{"type":"deleteFile","path":"b"}]`,
			kind:    domain.KindOperations,
			wantOps: 2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Parse(tt.raw, nil)
			assert.True(t, res.IsValid)
			assert.Equal(t, tt.kind, res.Kind)
			assert.Len(t, res.Operations, tt.wantOps)
			assert.Len(t, res.PlanSteps, tt.wantSteps)
		})
	}
}

func TestParse_PlanDefaults(t *testing.T) {
	res := Parse(`{"steps":[{},"Write tests",{"id":"deploy","title":"Ship","kind":"shell"}]}`, nil)
	want := []domain.PlanStep{
		{ID: "s1", Title: "Step 1", Kind: "file", Status: domain.StepPending},
		{ID: "s2", Title: "Write tests", Kind: "file", Status: domain.StepPending},
		{ID: "deploy", Title: "Ship", Kind: "shell", Status: domain.StepPending},
	}
	if d := cmp.Diff(want, res.PlanSteps); d != "" {
		t.Errorf("plan steps (-want +got):\n%s", d)
	}
}

func TestParse_DetectorPriority(t *testing.T) {
	// steps wins over operations, operations over tool_code.
	res := Parse(`{"steps":["a"],"operations":[{"type":"deleteFile","path":"x"}],"tool_code":"read_file"}`, nil)
	assert.Equal(t, domain.KindPlan, res.Kind)
	assert.Empty(t, res.Operations)

	res = Parse(`{"operations":[],"tool_code":"read_file"}`, nil)
	assert.Equal(t, domain.KindOperations, res.Kind)
	assert.Empty(t, res.Operations)

	// action wins over type.
	res = Parse(`{"action":"readFile","type":"deleteFile","path":"f"}`, nil)
	require.Len(t, res.Operations, 1)
	assert.Equal(t, domain.ActionReadFile, res.Operations[0].Type)
}

func TestParse_AliasResolution(t *testing.T) {
	raw := `{"operations":[
		{"type":"createFile","relative_path":"r.txt","target_path":"ignored","text":"body"},
		{"type":"renameFile","old_path":"a.txt","destination":"b.txt"},
		{"operation":"patchFile","file_path":"p.txt","start_line":3,"delete_count":"2","insert_lines":["x","y"]},
		{"type":"createFile","path":"cfg.json","content":{"debug":true},"validate":true,"content_type":"json","onError":"stop"}
	]}`
	res := Parse(raw, nil)
	require.Len(t, res.Operations, 4)

	create := res.Operations[0]
	assert.Equal(t, "r.txt", create.Path)
	require.NotNil(t, create.NewContent)
	assert.Equal(t, "body", *create.NewContent)

	rename := res.Operations[1]
	assert.Equal(t, "a.txt", rename.OldPath)
	assert.Equal(t, "b.txt", rename.NewPath)
	assert.True(t, rename.IsRename())

	patch := res.Operations[2]
	assert.Equal(t, domain.ActionPatchFile, patch.Type)
	require.NotNil(t, patch.StartLine)
	require.NotNil(t, patch.DeleteCount)
	assert.Equal(t, 3, *patch.StartLine)
	assert.Equal(t, 2, *patch.DeleteCount)
	assert.Equal(t, []string{"x", "y"}, patch.InsertLines)

	cfg := res.Operations[3]
	assert.JSONEq(t, `{"debug":true}`, *cfg.NewContent)
	assert.True(t, cfg.ValidateContent)
	assert.Equal(t, "json", cfg.ContentType)
	assert.Equal(t, "stop", cfg.ErrorHandling)
}

func TestParse_NestedToolCode(t *testing.T) {
	raw := `{"operations":[{"tool_code":"replace_in_file","parameters":{"path":"a.js","diff":"<<<<<<< SEARCH\nx\n=======\ny\n>>>>>>> REPLACE"}}]}`
	res := Parse(raw, nil)
	require.Len(t, res.Operations, 1)

	op := res.Operations[0]
	assert.Equal(t, "replace_in_file", op.Type)
	assert.Equal(t, "replace_in_file", op.Tool)
	assert.Equal(t, "a.js", op.Path)
	assert.Contains(t, op.DiffPatch, "<<<<<<< SEARCH")
	assert.Equal(t, "a.js", op.Args["path"])
}

func TestParse_ModifyLinesExpansion(t *testing.T) {
	raw := `{"operations":[{"type":"updateFile","path":"app.js","modifyLines":[{"search":"a","replace":"b"},{"old":"c","new":"d"}]}]}`
	res := Parse(raw, nil)
	want := []domain.FileAction{
		{Type: domain.ActionSearchAndReplace, Path: "app.js", Search: "a", Replace: "b"},
		{Type: domain.ActionSearchAndReplace, Path: "app.js", Search: "c", Replace: "d"},
	}
	if d := cmp.Diff(want, res.Operations); d != "" {
		t.Errorf("operations (-want +got):\n%s", d)
	}
}

func TestParse_FencedBlocks(t *testing.T) {
	raw := "Sure, here it is:\n```json\n{\"action\":\"readFile\",\"path\":\"a.txt\"}\n```\nLet me know."
	res := Parse(raw, nil)
	assert.True(t, res.IsValid)
	assert.Equal(t, domain.KindSingle, res.Kind)

	unlabeled := "```\n[{\"type\":\"deleteFile\",\"path\":\"x\"}]\n```"
	res = Parse(unlabeled, nil)
	assert.Equal(t, domain.KindOperations, res.Kind)
	assert.Len(t, res.Operations, 1)

	// A labeled json fence wins over an earlier unlabeled one.
	mixed := "```\n{\"action\":\"readFile\",\"path\":\"first\"}\n```\n```json\n{\"action\":\"readFile\",\"path\":\"second\"}\n```"
	res = Parse(mixed, nil)
	require.Len(t, res.Operations, 1)
	assert.Equal(t, "second", res.Operations[0].Path)
}

func TestParse_PlainMessages(t *testing.T) {
	res := Parse(`{"note":"just chatting","mood":1}`, nil)
	assert.True(t, res.IsValid)
	assert.Equal(t, domain.KindMessage, res.Kind)
	assert.JSONEq(t, `{"note":"just chatting","mood":1}`, res.Explanation)
	assert.Empty(t, res.Operations)

	// Unknown action names fall through to a plain JSON message.
	res = Parse(`{"action":"CreateFile","path":"x"}`, nil)
	assert.Equal(t, domain.KindMessage, res.Kind)

	malformed := `{"operations": [ {"type": "createFile", `
	res = Parse(malformed, nil)
	assert.False(t, res.IsValid)
	assert.Equal(t, malformed, res.Explanation)

	prose := "I updated the header for you."
	res = Parse(prose, nil)
	assert.False(t, res.IsValid)
	assert.Equal(t, prose, res.Explanation)
}

func TestParse_Idempotent(t *testing.T) {
	inputs := []string{
		`{"steps":[{"title":"a"}]}`,
		`{"operations":[{"tool_code":"write_to_file","parameters":{"path":"a","content":"b","n":1}}]}`,
		`{"x":{"y":[1,2,3]}}`,
		"plain text",
	}
	for _, raw := range inputs {
		first, second := Parse(raw, nil), Parse(raw, nil)
		if d := cmp.Diff(first, second); d != "" {
			t.Errorf("Parse(%q) not idempotent:\n%s", raw, d)
		}
	}
}

func TestParse_Envelope(t *testing.T) {
	envelope := []byte("data: {\"choices\":[{\"delta\":{\"reasoning\":\"hmm\"}}]}\n\n" +
		"data: {\"choices\":[{\"delta\":{\"content\":\"{\\\"action\\\":\"}}]}\n\n" +
		"data: {\"choices\":[{\"delta\":{\"content\":\"\\\"readFile\\\",\\\"path\\\":\\\"a\\\"}\"}}]}\n\n" +
		"data: [DONE]\n")
	res := Parse("   ", envelope)
	assert.True(t, res.IsValid)
	assert.Equal(t, domain.KindSingle, res.Kind)
	assert.Equal(t, "a", res.Operations[0].Path)
}

func TestShape(t *testing.T) {
	assert.Equal(t, "plan", Shape(`{"steps":[]}`))
	assert.Equal(t, "operations", Shape(`[]`))
	assert.Equal(t, "tool_code", Shape(`{"tool_code":"read_file"}`))
	assert.Equal(t, "type", Shape(`{"type":"listFiles","path":"."}`))
	assert.Equal(t, "", Shape(`{"hello":"world"}`))
	assert.Equal(t, "", Shape("nope"))
}
