package tools

import (
	"fmt"
	"strings"

	"github.com/aretw0/tendril/pkg/diff"
	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/fileops"
)

// PreviewExcerpt bounds the content shown for write-style previews.
var PreviewExcerpt = 600

// Preview describes what a mutating call would do, for an approver to read.
// It never touches the file system beyond reading the current content.
func Preview(ws *fileops.Workspace, call domain.ToolCall) string {
	str := func(k string) string { s, _ := call.Args[k].(string); return s }

	switch call.Name {
	case ReplaceInFile:
		return previewEdit(ws, str("path"), func(old string) (string, error) {
			blocks, err := fileops.ParseBlocks(str("diff"))
			if err != nil {
				return "", err
			}
			return fileops.ApplyBlocks(old, blocks)
		})
	case ApplyDiff:
		return previewEdit(ws, str("path"), func(old string) (string, error) {
			return diff.Patch(old, str("diff"))
		})
	case WriteToFile, AppendToFile, PrependToFile:
		verb := map[string]string{WriteToFile: "write", AppendToFile: "append to", PrependToFile: "prepend to"}[call.Name]
		content := str("content")
		return fmt.Sprintf("%s %s (%d bytes)\n%s", verb, str("path"), len(content), trimTo(content, PreviewExcerpt))
	case EditLines:
		return fmt.Sprintf("edit %s at line %v, remove %v line(s), insert %d", str("path"), call.Args["start_line"], orZero(call.Args["delete_count"]), lineCount(call.Args["lines"]))
	case RenameFile, RenamePath:
		return fmt.Sprintf("%s -> %s", str("path"), str("new_path"))
	case CopyFile, MoveFile:
		return fmt.Sprintf("%s -> %s", str("source"), str("destination"))
	case DeleteFile, DeletePath:
		return "delete " + str("path")
	}
	return Describe(call)
}

func previewEdit(ws *fileops.Workspace, path string, edit func(string) (string, error)) string {
	old, err := ws.Read(path)
	if err != nil {
		return fmt.Sprintf("%s: %v", path, err)
	}
	updated, err := edit(old)
	if err != nil {
		return fmt.Sprintf("%s: would fail: %v", path, err)
	}
	body := diff.Unified(old, updated, diff.DefaultContext)
	if strings.TrimSpace(body) == "" {
		return path + ": no changes"
	}
	return fmt.Sprintf("--- a/%s\n+++ b/%s\n%s", path, path, body)
}

func orZero(v any) any {
	if v == nil {
		return 0
	}
	return v
}

func lineCount(v any) int {
	switch l := v.(type) {
	case []string:
		return len(l)
	case []any:
		return len(l)
	}
	return 0
}
