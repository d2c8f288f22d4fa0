package tools

import (
	"fmt"
	"strings"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/fileops"
)

// FromAction maps a parsed FileAction onto a catalog tool call.
//
// Entries that used the tool_code schema keep their tool name; the
// normalized fields fill in canonical argument names the model spelled
// differently, and any extra raw arguments pass through untouched.
func FromAction(a domain.FileAction) domain.ToolCall {
	name := a.Tool
	if name == "" {
		name = toolFor(a)
	}

	args := canonicalArgs(name, a)
	for k, v := range a.Args {
		if _, ok := args[k]; !ok {
			args[k] = v
		}
	}
	return domain.ToolCall{Name: name, Args: args}
}

func toolFor(a domain.FileAction) string {
	switch a.Type {
	case domain.ActionCreateFile, domain.ActionUpdateFile, domain.ActionWriteToFile:
		return WriteToFile
	case domain.ActionSmartUpdate:
		if a.Search != "" || strings.Contains(a.DiffPatch, "<<<<<<< SEARCH") {
			return ReplaceInFile
		}
		return WriteToFile
	case domain.ActionSearchAndReplace, domain.ActionReplaceInFile:
		return ReplaceInFile
	case domain.ActionPatchFile:
		switch {
		case strings.Contains(a.DiffPatch, "<<<<<<< SEARCH"):
			return ReplaceInFile
		case a.DiffPatch != "":
			return ApplyDiff
		case a.StartLine != nil:
			return EditLines
		}
		return ReplaceInFile
	case domain.ActionAppendToFile:
		return AppendToFile
	case domain.ActionPrependToFile:
		return PrependToFile
	case domain.ActionDeleteFile:
		return DeleteFile
	case domain.ActionDeletePath:
		return DeletePath
	case domain.ActionRenameFile:
		return RenameFile
	case domain.ActionRenamePath:
		return RenamePath
	case domain.ActionReadFile:
		return ReadFile
	case domain.ActionListFiles:
		return ListFiles
	}
	return a.Type
}

func canonicalArgs(tool string, a domain.FileAction) map[string]any {
	args := map[string]any{}
	set := func(k string, v string) {
		if v != "" {
			args[k] = v
		}
	}
	source := a.OldPath
	if source == "" {
		source = a.Path
	}

	switch tool {
	case WriteToFile, AppendToFile, PrependToFile:
		set("path", a.Path)
		if a.NewContent != nil {
			args["content"] = *a.NewContent
		}
	case ReplaceInFile:
		set("path", a.Path)
		switch {
		case strings.Contains(a.DiffPatch, "<<<<<<< SEARCH"):
			args["diff"] = a.DiffPatch
		case a.Search != "":
			args["diff"] = fileops.FormatBlock(fileops.Block{Search: a.Search, Replace: a.Replace})
		}
	case ApplyDiff:
		set("path", a.Path)
		set("diff", a.DiffPatch)
	case EditLines:
		set("path", a.Path)
		if a.StartLine != nil {
			args["start_line"] = *a.StartLine
		}
		if a.DeleteCount != nil {
			args["delete_count"] = *a.DeleteCount
		}
		if a.InsertLines != nil {
			args["lines"] = a.InsertLines
		}
	case RenameFile, RenamePath:
		set("path", source)
		set("new_path", a.NewPath)
	case CopyFile, MoveFile:
		set("source", source)
		set("destination", a.NewPath)
	default:
		set("path", a.Path)
	}
	return args
}

// TargetPaths lists the project paths a call reads or writes.
func TargetPaths(call domain.ToolCall) []string {
	var out []string
	for _, key := range []string{"path", "new_path", "source", "destination"} {
		if v, ok := call.Args[key].(string); ok && v != "" {
			out = append(out, strings.TrimPrefix(strings.TrimSpace(v), "./"))
		}
	}
	return out
}

// Describe renders a call as "name(path)" for logs and summaries.
func Describe(call domain.ToolCall) string {
	paths := TargetPaths(call)
	if len(paths) == 0 {
		return call.Name
	}
	return fmt.Sprintf("%s(%s)", call.Name, strings.Join(paths, ", "))
}
