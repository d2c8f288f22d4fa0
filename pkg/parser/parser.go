package parser

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/tidwall/gjson"
)

// detector recognizes one response shape. Detectors are tried in order and
// the first match wins.
type detector struct {
	name  string
	match func(root gjson.Result) bool
	build func(root gjson.Result) domain.ParsedResponse
}

var detectors = []detector{
	{name: "plan", match: hasArray("steps"), build: buildPlan},
	{name: "operations", match: hasArray("operations"), build: buildOperations},
	{name: "tool_code", match: hasString("tool_code"), build: buildToolCode},
	{name: "action", match: recognizedAt("action"), build: buildSingle("action")},
	{name: "type", match: recognizedAt("type"), build: buildSingle("type")},
}

// Parse converts raw model output into a ParsedResponse. When raw is blank
// the answer text is recovered from the transport envelope, if any.
func Parse(raw string, envelope []byte) domain.ParsedResponse {
	if strings.TrimSpace(raw) == "" && len(envelope) > 0 {
		raw = StreamText(envelope)
	}

	payload, ok := extractJSON(raw)
	if !ok || !gjson.Valid(payload) {
		return plainText(raw)
	}
	root := gjson.Parse(payload)
	if root.IsArray() {
		root = gjson.Parse(`{"operations":` + payload + `}`)
	}
	if !root.IsObject() {
		return plainText(raw)
	}

	for _, d := range detectors {
		if d.match(root) {
			res := d.build(root)
			res.Raw = raw
			res.IsValid = true
			return res
		}
	}
	return plainJSON(root, raw)
}

// Shape reports which detector recognizes raw, or "" when none does.
func Shape(raw string) string {
	payload, ok := extractJSON(raw)
	if !ok || !gjson.Valid(payload) {
		return ""
	}
	root := gjson.Parse(payload)
	if root.IsArray() {
		return "operations"
	}
	for _, d := range detectors {
		if d.match(root) {
			return d.name
		}
	}
	return ""
}

func hasArray(key string) func(gjson.Result) bool {
	return func(root gjson.Result) bool { return root.Get(key).IsArray() }
}

func hasString(key string) func(gjson.Result) bool {
	return func(root gjson.Result) bool {
		r := root.Get(key)
		return r.Type == gjson.String && r.String() != ""
	}
}

func recognizedAt(key string) func(gjson.Result) bool {
	return func(root gjson.Result) bool {
		r := root.Get(key)
		return r.Type == gjson.String && domain.IsRecognizedAction(r.String())
	}
}

func buildPlan(root gjson.Result) domain.ParsedResponse {
	res := domain.ParsedResponse{Kind: domain.KindPlan, Explanation: lookupString(root, explanationKeys)}
	for i, s := range root.Get("steps").Array() {
		n := i + 1
		step := domain.PlanStep{
			ID:     fmt.Sprintf("s%d", n),
			Title:  fmt.Sprintf("Step %d", n),
			Kind:   "file",
			Status: domain.StepPending,
		}
		if s.Type == gjson.String {
			if t := strings.TrimSpace(s.String()); t != "" {
				step.Title = t
			}
		} else {
			if v := s.Get("id").String(); v != "" {
				step.ID = v
			}
			if v := lookupString(s, []string{"title", "name", "description"}); v != "" {
				step.Title = v
			}
			if v := lookupString(s, []string{"kind", "type"}); v != "" {
				step.Kind = v
			}
		}
		res.PlanSteps = append(res.PlanSteps, step)
	}
	return res
}

func buildOperations(root gjson.Result) domain.ParsedResponse {
	res := domain.ParsedResponse{Kind: domain.KindOperations, Explanation: lookupString(root, explanationKeys)}
	for _, entry := range root.Get("operations").Array() {
		if !entry.IsObject() {
			continue
		}
		res.Operations = append(res.Operations, entryActions(entry)...)
	}
	return res
}

func buildToolCode(root gjson.Result) domain.ParsedResponse {
	res := domain.ParsedResponse{Kind: domain.KindOperations, Explanation: lookupString(root, explanationKeys)}
	res.Operations = entryActions(root)
	return res
}

func buildSingle(key string) func(gjson.Result) domain.ParsedResponse {
	return func(root gjson.Result) domain.ParsedResponse {
		return domain.ParsedResponse{
			Kind:        domain.KindSingle,
			Explanation: lookupString(root, explanationKeys),
			Operations:  []domain.FileAction{toAction(root, root.Get(key).String())},
		}
	}
}

// entryActions normalizes one operations entry. Nested tool_code entries keep
// their raw parameters; modifyLines entries expand to one searchAndReplace per hunk.
func entryActions(entry gjson.Result) []domain.FileAction {
	if tool := entry.Get("tool_code").String(); tool != "" {
		params := lookup(entry, []string{"parameters", "params", "arguments", "args"})
		if !params.IsObject() {
			params = entry
		}
		a := toAction(params, tool)
		a.Tool = tool
		a.Args = argsOf(params)
		return []domain.FileAction{a}
	}

	if mods := entry.Get("modifyLines"); mods.IsArray() {
		path := lookupString(entry, pathKeys)
		var out []domain.FileAction
		for _, hunk := range mods.Array() {
			out = append(out, domain.FileAction{
				Type:          domain.ActionSearchAndReplace,
				Path:          path,
				Search:        lookupString(hunk, searchKeys),
				Replace:       lookupString(hunk, replaceKeys),
				ErrorHandling: lookupString(entry, errorKeys),
			})
		}
		return out
	}

	return []domain.FileAction{toAction(entry, "")}
}

func plainJSON(root gjson.Result, raw string) domain.ParsedResponse {
	text := root.Raw
	if b, err := json.Marshal(root.Value()); err == nil {
		text = string(b)
	}
	return domain.ParsedResponse{Kind: domain.KindMessage, IsValid: true, Explanation: text, Raw: raw}
}

func plainText(raw string) domain.ParsedResponse {
	return domain.ParsedResponse{Kind: domain.KindMessage, IsValid: false, Explanation: raw, Raw: raw}
}
