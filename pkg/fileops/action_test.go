package fileops

import (
	"testing"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }

func TestApplyBatch_MixedSummary(t *testing.T) {
	ws := newTestWorkspace(t, map[string]string{"old.txt": "x", "edit.txt": "keep\nchange\n"})

	report := ws.ApplyBatch([]domain.FileAction{
		{Type: domain.ActionCreateFile, Path: "new.txt", NewContent: strPtr("hello")},
		{Type: domain.ActionDeleteFile, Path: "../outside.txt"},
		{Type: domain.ActionRenameFile, OldPath: "old.txt", NewPath: "renamed.txt"},
		{Type: domain.ActionSearchAndReplace, Path: "edit.txt", Search: "change", Replace: "changed"},
		{Type: domain.ActionDeletePath, Path: "ghost.txt"},
	})

	assert.Equal(t, 3, report.Succeeded)
	assert.Equal(t, 2, report.Failed)
	assert.False(t, report.Stopped)
	assert.Contains(t, report.Summary(), "3 of 5 actions applied")
	assert.Contains(t, report.Summary(), "deleteFile ../outside.txt")

	assert.Equal(t, "hello", readFile(t, ws, "new.txt"))
	assert.Equal(t, "x", readFile(t, ws, "renamed.txt"))
	assert.Equal(t, "keep\nchanged\n", readFile(t, ws, "edit.txt"))
}

func TestApplyBatch_StopOnError(t *testing.T) {
	ws := newTestWorkspace(t, nil)

	report := ws.ApplyBatch([]domain.FileAction{
		{Type: domain.ActionDeleteFile, Path: "missing", ErrorHandling: "stop"},
		{Type: domain.ActionCreateFile, Path: "never.txt", NewContent: strPtr("x")},
	})
	assert.True(t, report.Stopped)
	assert.Len(t, report.Outcomes, 1)
	assert.False(t, ws.Exists("never.txt"))
}

func TestApply_PatchFileVariants(t *testing.T) {
	ws := newTestWorkspace(t, map[string]string{"f.txt": "1\n2\n3"})

	o := ws.Apply(domain.FileAction{Type: domain.ActionPatchFile, Path: "f.txt", StartLine: intPtr(2), DeleteCount: intPtr(1), InsertLines: []string{"two"}})
	require.True(t, o.OK, o.Error)
	assert.Equal(t, "1\ntwo\n3", readFile(t, ws, "f.txt"))

	o = ws.Apply(domain.FileAction{Type: domain.ActionPatchFile, Path: "f.txt", DiffPatch: "@@ -3,1 +3,1 @@\n-3\n+three\n"})
	require.True(t, o.OK, o.Error)
	assert.Equal(t, "1\ntwo\nthree", readFile(t, ws, "f.txt"))

	o = ws.Apply(domain.FileAction{Type: domain.ActionPatchFile, Path: "f.txt"})
	assert.False(t, o.OK)
}

func TestApply_ValidateJSON(t *testing.T) {
	ws := newTestWorkspace(t, nil)

	o := ws.Apply(domain.FileAction{Type: domain.ActionWriteToFile, Path: "c.json", NewContent: strPtr("{bad"), ValidateContent: true, ContentType: "json"})
	assert.False(t, o.OK)
	assert.False(t, ws.Exists("c.json"))

	o = ws.Apply(domain.FileAction{Type: domain.ActionWriteToFile, Path: "c.json", NewContent: strPtr(`{"ok":true}`), ValidateContent: true, ContentType: "json"})
	assert.True(t, o.OK)
}

func TestApply_ReplaceInFileBlocks(t *testing.T) {
	ws := newTestWorkspace(t, map[string]string{"index.html": "<h1>Hi</h1>\n"})

	o := ws.Apply(domain.FileAction{
		Type:      domain.ActionReplaceInFile,
		Path:      "index.html",
		DiffPatch: FormatBlock(Block{Search: "<h1>Hi</h1>", Replace: "<h1>Hello</h1>"}),
	})
	require.True(t, o.OK, o.Error)
	assert.Equal(t, "<h1>Hello</h1>\n", readFile(t, ws, "index.html"))
}
