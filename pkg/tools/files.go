package tools

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/aretw0/tendril/pkg/diff"
	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/fileops"
	"github.com/bmatcuk/doublestar/v4"
)

type readFileInput struct {
	Path      string `json:"path" jsonschema:"description=Project-relative file path"`
	StartLine int    `json:"start_line,omitempty" jsonschema:"description=First line to return (1-based)"`
	EndLine   int    `json:"end_line,omitempty" jsonschema:"description=Last line to return (inclusive)"`
}

func readFile(_ context.Context, env Env, in readFileInput) domain.ToolResult {
	content, err := env.Workspace.Read(in.Path)
	if err != nil {
		return domain.Failure("read failed", err)
	}
	lines := diff.Split(content)
	total := len(lines)

	if in.StartLine > 0 || in.EndLine > 0 {
		start, end := max(in.StartLine, 1), in.EndLine
		if end <= 0 || end > total {
			end = total
		}
		if start > end {
			return domain.Failure("read failed", fmt.Errorf("%w: empty line range %d-%d", domain.ErrValidation, start, end))
		}
		content = diff.Join(lines[start-1 : end])
	}

	return domain.Success(fmt.Sprintf("Read %s (%d lines)", in.Path, total), map[string]any{
		"path":    in.Path,
		"content": content,
		"lines":   total,
		"bytes":   len(content),
	})
}

type writeInput struct {
	Path    string `json:"path" jsonschema:"description=Project-relative file path"`
	Content string `json:"content" jsonschema:"description=Complete file content"`
}

func writeToFile(_ context.Context, env Env, in writeInput) domain.ToolResult {
	st, err := env.Workspace.Write(in.Path, in.Content)
	if err != nil {
		return domain.Failure("write failed", err)
	}
	verb := "Updated"
	if st.Created {
		verb = "Created"
	}
	return domain.Success(fmt.Sprintf("%s %s (%d bytes, %d lines)", verb, st.Path, st.Bytes, st.Lines), statsData(st))
}

func appendToFile(_ context.Context, env Env, in writeInput) domain.ToolResult {
	st, err := env.Workspace.Append(in.Path, in.Content)
	if err != nil {
		return domain.Failure("append failed", err)
	}
	return domain.Success(fmt.Sprintf("Appended %d bytes to %s", len(in.Content), st.Path), statsData(st))
}

func prependToFile(_ context.Context, env Env, in writeInput) domain.ToolResult {
	st, err := env.Workspace.Prepend(in.Path, in.Content)
	if err != nil {
		return domain.Failure("prepend failed", err)
	}
	return domain.Success(fmt.Sprintf("Prepended %d bytes to %s", len(in.Content), st.Path), statsData(st))
}

type diffInput struct {
	Path string `json:"path" jsonschema:"description=Project-relative file path"`
	Diff string `json:"diff" jsonschema:"description=SEARCH/REPLACE blocks or unified diff hunks"`
}

func replaceInFile(_ context.Context, env Env, in diffInput) domain.ToolResult {
	blocks, err := fileops.ParseBlocks(in.Diff)
	if err != nil {
		return domain.Failure("replace failed", err)
	}
	st, err := env.Workspace.ReplaceBlocks(in.Path, blocks)
	if err != nil {
		return domain.Failure("replace failed", err)
	}
	data := statsData(st)
	data["blocks"] = len(blocks)
	return domain.Success(fmt.Sprintf("Applied %d replacement(s) to %s", len(blocks), st.Path), data)
}

func applyDiff(_ context.Context, env Env, in diffInput) domain.ToolResult {
	st, err := env.Workspace.Patch(in.Path, in.Diff)
	if err != nil {
		return domain.Failure("patch failed", err)
	}
	return domain.Success(fmt.Sprintf("Patched %s (%d lines)", st.Path, st.Lines), statsData(st))
}

type editLinesInput struct {
	Path        string   `json:"path" jsonschema:"description=Project-relative file path"`
	StartLine   int      `json:"start_line" jsonschema:"description=First line to replace (1-based)"`
	DeleteCount int      `json:"delete_count,omitempty" jsonschema:"description=Number of lines to remove"`
	Lines       []string `json:"lines,omitempty" jsonschema:"description=Lines to insert"`
}

func editLines(_ context.Context, env Env, in editLinesInput) domain.ToolResult {
	st, err := env.Workspace.EditLines(in.Path, in.StartLine, in.DeleteCount, in.Lines)
	if err != nil {
		return domain.Failure("edit failed", err)
	}
	return domain.Success(fmt.Sprintf("Edited %s at line %d", st.Path, in.StartLine), statsData(st))
}

type listInput struct {
	Path      string `json:"path" jsonschema:"description=Directory to list, '.' for the project root"`
	Recursive bool   `json:"recursive,omitempty" jsonschema:"description=Descend into subdirectories"`
	Pattern   string `json:"pattern,omitempty" jsonschema:"description=Glob filter on entry paths, e.g. **/*.go"`
}

func listFiles(_ context.Context, env Env, in listInput) domain.ToolResult {
	entries, err := env.Workspace.List(in.Path, in.Recursive)
	if err != nil {
		return domain.Failure("list failed", err)
	}
	if in.Pattern != "" {
		if !doublestar.ValidatePattern(in.Pattern) {
			return domain.Failure("list failed", fmt.Errorf("%w: bad pattern %q", domain.ErrValidation, in.Pattern))
		}
		kept := entries[:0]
		for _, e := range entries {
			if globMatch(in.Pattern, e.Path) {
				kept = append(kept, e)
			}
		}
		entries = kept
	}
	if entries == nil {
		entries = []fileops.Entry{}
	}
	return domain.Success(fmt.Sprintf("Listed %d entries in %s", len(entries), in.Path), map[string]any{
		"path":    in.Path,
		"entries": entries,
		"count":   len(entries),
	})
}

// globMatch matches against the full relative path, then the base name.
func globMatch(pattern, rel string) bool {
	if ok, _ := doublestar.Match(pattern, rel); ok {
		return true
	}
	ok, _ := doublestar.Match(pattern, path.Base(rel))
	return ok
}

type pathInput struct {
	Path string `json:"path" jsonschema:"description=Project-relative path"`
}

func deletePath(_ context.Context, env Env, in pathInput) domain.ToolResult {
	isDir, err := env.Workspace.Delete(in.Path)
	if err != nil {
		return domain.Failure("delete failed", err)
	}
	kind := "file"
	if isDir {
		kind = "directory"
	}
	return domain.Success(fmt.Sprintf("Deleted %s %s", kind, in.Path), map[string]any{"path": in.Path, "type": kind})
}

type renameInput struct {
	Path    string `json:"path" jsonschema:"description=Existing path"`
	NewPath string `json:"new_path" jsonschema:"description=Destination path, must not exist"`
}

func renamePath(_ context.Context, env Env, in renameInput) domain.ToolResult {
	if err := env.Workspace.Rename(in.Path, in.NewPath); err != nil {
		return domain.Failure("rename failed", err)
	}
	return domain.Success(fmt.Sprintf("Renamed %s to %s", in.Path, in.NewPath), map[string]any{"from": in.Path, "to": in.NewPath})
}

type transferInput struct {
	Source      string `json:"source" jsonschema:"description=Existing path"`
	Destination string `json:"destination" jsonschema:"description=Destination path, must not exist"`
}

func copyPath(_ context.Context, env Env, in transferInput) domain.ToolResult {
	if err := env.Workspace.Copy(in.Source, in.Destination); err != nil {
		return domain.Failure("copy failed", err)
	}
	return domain.Success(fmt.Sprintf("Copied %s to %s", in.Source, in.Destination), map[string]any{"from": in.Source, "to": in.Destination})
}

func movePath(_ context.Context, env Env, in transferInput) domain.ToolResult {
	if err := env.Workspace.Move(in.Source, in.Destination); err != nil {
		return domain.Failure("move failed", err)
	}
	return domain.Success(fmt.Sprintf("Moved %s to %s", in.Source, in.Destination), map[string]any{"from": in.Source, "to": in.Destination})
}

func statsData(st fileops.WriteStats) map[string]any {
	return map[string]any{
		"path":    st.Path,
		"bytes":   st.Bytes,
		"lines":   st.Lines,
		"created": st.Created,
	}
}

// trimTo cuts s to n runes, marking the cut.
func trimTo(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimRight(string(r[:n]), " \t") + "..."
}
