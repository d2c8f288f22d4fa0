package parser

import (
	"github.com/aretw0/tendril/pkg/domain"
	"github.com/tidwall/gjson"
)

// ParseToolCalls reads the {"tool_calls":[{"name","args"}]} envelope used by
// agent mode. It reports false when raw carries no such envelope.
//
// The pass stops at the first ask_followup_question or attempt_completion:
// that call is returned as Control and later calls are dropped.
func ParseToolCalls(raw string) (domain.ParsedResponse, bool) {
	payload, ok := extractJSON(raw)
	if !ok || !gjson.Valid(payload) {
		return domain.ParsedResponse{}, false
	}
	calls := gjson.Get(payload, "tool_calls")
	if !calls.IsArray() {
		return domain.ParsedResponse{}, false
	}

	res := domain.ParsedResponse{
		Kind:        domain.KindToolCalls,
		IsValid:     true,
		Explanation: lookupString(gjson.Parse(payload), append([]string{"content"}, explanationKeys...)),
		Raw:         raw,
	}
	for _, entry := range calls.Array() {
		call, ok := toolCall(entry)
		if !ok {
			continue
		}
		if domain.IsControlTool(call.Name) {
			c := call
			res.Control = &c
			break
		}
		res.ToolCalls = append(res.ToolCalls, call)
	}
	return res, true
}

func toolCall(entry gjson.Result) (domain.ToolCall, bool) {
	name := lookupString(entry, []string{"name", "function.name", "tool", "tool_code"})
	if name == "" {
		return domain.ToolCall{}, false
	}
	args := lookup(entry, []string{"args", "arguments", "parameters", "function.arguments"})
	// OpenAI-style arguments arrive as a JSON-encoded string.
	if args.Type == gjson.String && gjson.Valid(args.String()) {
		args = gjson.Parse(args.String())
	}
	return domain.ToolCall{
		ID:   entry.Get("id").String(),
		Name: name,
		Args: argsOf(args),
	}, true
}
