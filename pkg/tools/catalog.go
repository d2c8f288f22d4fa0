package tools

// Tool names.
const (
	ReadFile          = "read_file"
	WriteToFile       = "write_to_file"
	ReplaceInFile     = "replace_in_file"
	AppendToFile      = "append_to_file"
	PrependToFile     = "prepend_to_file"
	ApplyDiff         = "apply_diff"
	EditLines         = "edit_lines"
	ListFiles         = "list_files"
	SearchFiles       = "search_files"
	ListDefinitions   = "list_code_definition_names"
	DeleteFile        = "delete_file"
	DeletePath        = "delete_path"
	RenameFile        = "rename_file"
	RenamePath        = "rename_path"
	CopyFile          = "copy_file"
	MoveFile          = "move_file"
	AskFollowup       = "ask_followup_question"
	AttemptCompletion = "attempt_completion"
)

func builtins() []Tool {
	return []Tool{
		Define(ReadFile, "Read a file from the project. Optional 1-based start_line/end_line select a range.", readFile),
		Define(ListFiles, "List a directory. Entries carry name, path, type (file|directory) and size.", listFiles),
		Define(SearchFiles, "Regex search across a directory tree, skipping hidden and build folders.", searchFiles),
		Define(ListDefinitions, "List HTML ids, CSS classes and JS function/class/arrow definitions.", listDefinitions),
		Define(AskFollowup, "Ask the user a clarifying question and wait for the answer.", askFollowup),
		Define(AttemptCompletion, "Report that the task is finished with a summary of the result.", attemptCompletion),

		Define(WriteToFile, "Create or fully overwrite a file, creating parent directories.", writeToFile, RequiresApproval()),
		Define(ReplaceInFile, "Edit a file with SEARCH/REPLACE blocks. Each search text must match exactly once.", replaceInFile, RequiresApproval()),
		Define(AppendToFile, "Append content to a file, creating it if missing.", appendToFile, RequiresApproval()),
		Define(PrependToFile, "Prepend content to a file, creating it if missing.", prependToFile, RequiresApproval()),
		Define(ApplyDiff, "Apply unified diff hunks to a file.", applyDiff, RequiresApproval()),
		Define(EditLines, "Replace delete_count lines starting at the 1-based start_line with lines.", editLines, RequiresApproval()),
		Define(DeleteFile, "Delete a file, or a directory recursively.", deletePath, RequiresApproval()),
		Define(DeletePath, "Delete a file, or a directory recursively.", deletePath, RequiresApproval()),
		Define(RenameFile, "Rename a file or directory. The destination must not exist.", renamePath, RequiresApproval()),
		Define(RenamePath, "Rename a file or directory. The destination must not exist.", renamePath, RequiresApproval()),
		Define(CopyFile, "Copy a file or directory tree. The destination must not exist.", copyPath, RequiresApproval()),
		Define(MoveFile, "Move a file or directory. The destination must not exist.", movePath, RequiresApproval()),
	}
}
