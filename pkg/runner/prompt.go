package runner

import (
	"sort"
	"strings"
	"text/template"

	"github.com/aretw0/tendril/pkg/domain"
)

var promptTemplate = template.Must(template.New("system").Parse(`You are a coding agent working inside a single project directory.
All paths are relative to the project root; paths outside it are rejected.

Reply with a JSON object when you need tools:
{"content": "short note for the user", "tool_calls": [{"name": "<tool>", "args": {...}}]}

Calls run in order. Each result comes back as a tool message before your next turn.
Edit files with replace_in_file using blocks of the form:
<<<<<<< SEARCH
exact existing text
=======
replacement text
>>>>>>> REPLACE
Each SEARCH text must match the file exactly once.

For larger tasks you may first reply with {"steps": [{"title": "...", "kind": "..."}]};
each step is then requested from you in turn. A plain reply finishes a step;
attempt_completion ends the whole task, including any steps left.

Call ask_followup_question when you need the user, and attempt_completion when the task is done.
Reply in plain text, without tool calls, to end your turn.
{{- if .Approval}}

Tools marked [approval] are shown to the user before they run and may be denied.
{{- end}}

Tools:
{{- range .Tools}}
- {{.Name}}{{if .RequiresApproval}} [approval]{{end}}: {{.Description}}
{{- range .Params}}
    {{.}}
{{- end}}
{{- end}}
`))

type promptTool struct {
	domain.ToolSpec
	Params []string
}

// SystemPrompt renders the instructions and tool catalog sent with every turn.
func SystemPrompt(specs []domain.ToolSpec, mode Mode) string {
	data := struct {
		Approval bool
		Tools    []promptTool
	}{Approval: mode == ModeApproval}

	for _, s := range specs {
		names := make([]string, 0, len(s.Parameters))
		for name := range s.Parameters {
			names = append(names, name)
		}
		sort.Strings(names)

		t := promptTool{ToolSpec: s}
		for _, name := range names {
			p := s.Parameters[name]
			line := name + " (" + p.Type
			if p.Required {
				line += ", required"
			}
			line += ")"
			if p.Description != "" {
				line += ": " + p.Description
			}
			t.Params = append(t.Params, line)
		}
		data.Tools = append(data.Tools, t)
	}

	var b strings.Builder
	if err := promptTemplate.Execute(&b, data); err != nil {
		panic(err)
	}
	return b.String()
}
