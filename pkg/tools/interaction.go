package tools

import (
	"context"

	"github.com/aretw0/tendril/pkg/domain"
)

type askInput struct {
	Question string   `json:"question" jsonschema:"description=The question to put to the user"`
	Options  []string `json:"options,omitempty" jsonschema:"description=Suggested answers"`
}

func askFollowup(_ context.Context, _ Env, in askInput) domain.ToolResult {
	data := map[string]any{"question": in.Question}
	if len(in.Options) > 0 {
		data["options"] = in.Options
	}
	return domain.Success(in.Question, data)
}

type completionInput struct {
	Result  string `json:"result" jsonschema:"description=Summary of what was done"`
	Command string `json:"command,omitempty" jsonschema:"description=Optional command that demonstrates the result"`
}

func attemptCompletion(_ context.Context, _ Env, in completionInput) domain.ToolResult {
	data := map[string]any{"result": in.Result}
	if in.Command != "" {
		data["command"] = in.Command
	}
	return domain.Success(in.Result, data)
}
