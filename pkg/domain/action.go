package domain

// File action names recognized at the root of a single-action response.
const (
	ActionCreateFile       = "createFile"
	ActionUpdateFile       = "updateFile"
	ActionDeleteFile       = "deleteFile"
	ActionRenameFile       = "renameFile"
	ActionReadFile         = "readFile"
	ActionListFiles        = "listFiles"
	ActionSearchAndReplace = "searchAndReplace"
	ActionPatchFile        = "patchFile"
	ActionSmartUpdate      = "smartUpdate"
	ActionWriteToFile      = "write_to_file"
	ActionReplaceInFile    = "replace_in_file"
	ActionAppendToFile     = "append_to_file"
	ActionPrependToFile    = "prepend_to_file"
	ActionDeletePath       = "delete_path"
	ActionRenamePath       = "rename_path"
)

var recognizedActions = map[string]struct{}{
	ActionCreateFile:       {},
	ActionUpdateFile:       {},
	ActionDeleteFile:       {},
	ActionRenameFile:       {},
	ActionReadFile:         {},
	ActionListFiles:        {},
	ActionSearchAndReplace: {},
	ActionPatchFile:        {},
	ActionSmartUpdate:      {},
	ActionWriteToFile:      {},
	ActionReplaceInFile:    {},
	ActionAppendToFile:     {},
	ActionPrependToFile:    {},
	ActionDeletePath:       {},
	ActionRenamePath:       {},
}

// IsRecognizedAction reports whether name is a single-file-action name.
// The match is exact and case-sensitive.
func IsRecognizedAction(name string) bool {
	_, ok := recognizedActions[name]
	return ok
}

// FileAction is a normalized file-mutation directive.
//
// Path must be set, except for renames which use OldPath and NewPath.
// Optional integers are pointers so that zero stays distinguishable from absent.
type FileAction struct {
	Type            string   `json:"type"`
	Path            string   `json:"path,omitempty"`
	OldPath         string   `json:"oldPath,omitempty"`
	NewPath         string   `json:"newPath,omitempty"`
	NewContent      *string  `json:"newContent,omitempty"`
	Search          string   `json:"search,omitempty"`
	Replace         string   `json:"replace,omitempty"`
	DiffPatch       string   `json:"diffPatch,omitempty"`
	StartLine       *int     `json:"startLine,omitempty"`
	DeleteCount     *int     `json:"deleteCount,omitempty"`
	InsertLines     []string `json:"insertLines,omitempty"`
	ValidateContent bool     `json:"validateContent,omitempty"`
	ContentType     string   `json:"contentType,omitempty"`
	ErrorHandling   string   `json:"errorHandling,omitempty"`

	// Tool and Args are set when the entry used the tool_code schema.
	Tool string         `json:"tool,omitempty"`
	Args map[string]any `json:"args,omitempty"`
}

// IsRename reports whether the action moves a path rather than editing it.
func (a FileAction) IsRename() bool {
	switch a.Type {
	case ActionRenameFile, ActionRenamePath, "rename_file", "move_file":
		return true
	}
	return false
}

// Target returns the path the action primarily touches.
func (a FileAction) Target() string {
	if a.Path != "" {
		return a.Path
	}
	return a.OldPath
}
