package domain

import "sort"

// Control tools pause or end a run instead of touching the workspace.
const (
	ToolAskFollowup       = "ask_followup_question"
	ToolAttemptCompletion = "attempt_completion"
)

// IsControlTool reports whether name is one of the pausing/terminal tools.
func IsControlTool(name string) bool {
	return name == ToolAskFollowup || name == ToolAttemptCompletion
}

// ToolCall is a model-issued directive naming a registered tool and its arguments.
type ToolCall struct {
	ID   string         `json:"id" yaml:"id" mapstructure:"id"`
	Name string         `json:"name" yaml:"name" mapstructure:"name"`
	Args map[string]any `json:"args,omitempty" yaml:"args,omitempty" mapstructure:"args"`
}

// ParamSpec describes one tool parameter.
type ParamSpec struct {
	Type        string `json:"type" yaml:"type"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Required    bool   `json:"required" yaml:"required"`
}

// ToolSpec is the static catalog entry for a tool.
type ToolSpec struct {
	Name             string               `json:"name" yaml:"name"`
	Description      string               `json:"description" yaml:"description"`
	Parameters       map[string]ParamSpec `json:"parameters" yaml:"parameters"`
	RequiresApproval bool                 `json:"requires_approval" yaml:"requires_approval"`
}

// RequiredParams lists the required parameter names in sorted order.
func (s ToolSpec) RequiredParams() []string {
	var out []string
	for name, p := range s.Parameters {
		if p.Required {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// ToolResult is the uniform outcome of a tool execution.
// Data is populated when OK is true, Error otherwise.
type ToolResult struct {
	OK      bool           `json:"ok"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// Success builds an OK result.
func Success(message string, data map[string]any) ToolResult {
	if data == nil {
		data = map[string]any{}
	}
	return ToolResult{OK: true, Message: message, Data: data}
}

// Failure builds a failed result from an error.
func Failure(message string, err error) ToolResult {
	res := ToolResult{OK: false, Message: message, Error: message}
	if err != nil {
		res.Error = err.Error()
	}
	return res
}
