package runner

import (
	"fmt"
	"strings"

	"github.com/aretw0/tendril/internal/tokens"
	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/fileops"
	"github.com/aretw0/tendril/pkg/tools"
)

// summarize renders a tool result as the message the model reads next.
// Listings, file content and search hits are capped by r.limits, and the
// whole message by the token budget.
func (r *Runner) summarize(call domain.ToolCall, res domain.ToolResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] ", tools.Describe(call))

	if !res.OK {
		b.WriteString("Error: ")
		if res.Message != "" && res.Message != res.Error {
			b.WriteString(res.Message + ": ")
		}
		b.WriteString(res.Error)
		return r.fit(b.String())
	}

	b.WriteString(res.Message)
	switch call.Name {
	case tools.ListFiles:
		entries, _ := res.Data["entries"].([]fileops.Entry)
		writeEntries(&b, entries, r.limits.ListEntries)
	case tools.ReadFile:
		content, _ := res.Data["content"].(string)
		writeContent(&b, content, r.limits.ReadChars)
	case tools.SearchFiles:
		matches, _ := res.Data["matches"].([]tools.SearchMatch)
		writeMatches(&b, matches, r.limits.SearchMatches)
	case tools.ListDefinitions:
		defs, _ := res.Data["definitions"].([]tools.Definition)
		writeDefinitions(&b, defs, r.limits.SearchMatches)
	}
	return r.fit(b.String())
}

func (r *Runner) fit(s string) string {
	out, cut := tokens.Truncate(s, r.limits.ResultTokens)
	if cut {
		out += "\n[output truncated]"
	}
	return out
}

func writeEntries(b *strings.Builder, entries []fileops.Entry, limit int) {
	for i, e := range entries {
		if i == limit {
			fmt.Fprintf(b, "\n... and %d more", len(entries)-limit)
			break
		}
		if e.Type == fileops.EntryDirectory {
			fmt.Fprintf(b, "\n%s/", e.Path)
		} else {
			fmt.Fprintf(b, "\n%s (%d bytes)", e.Path, e.Size)
		}
	}
}

func writeContent(b *strings.Builder, content string, limit int) {
	b.WriteString("\n")
	if len(content) <= limit {
		b.WriteString(content)
		return
	}
	cut := limit
	for cut > 0 && !utf8Start(content[cut]) {
		cut--
	}
	b.WriteString(content[:cut])
	fmt.Fprintf(b, "\n[truncated: %d of %d characters shown]", cut, len(content))
}

func utf8Start(c byte) bool { return c&0xC0 != 0x80 }

func writeMatches(b *strings.Builder, matches []tools.SearchMatch, limit int) {
	for i, m := range matches {
		if i == limit {
			fmt.Fprintf(b, "\n... and %d more matches", len(matches)-limit)
			break
		}
		fmt.Fprintf(b, "\n%s:%d: %s", m.Path, m.Line, strings.TrimSpace(m.Text))
	}
}

func writeDefinitions(b *strings.Builder, defs []tools.Definition, limit int) {
	for i, d := range defs {
		if i == limit {
			fmt.Fprintf(b, "\n... and %d more", len(defs)-limit)
			break
		}
		fmt.Fprintf(b, "\n%s:%d %s %s", d.Path, d.Line, d.Kind, d.Name)
	}
}
