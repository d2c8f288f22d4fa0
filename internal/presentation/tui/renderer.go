package tui

import (
	"github.com/aretw0/tendril/pkg/runner"
	"github.com/charmbracelet/glamour"
)

// NewRenderer returns a markdown renderer for assistant text, sized to
// width columns (0 keeps glamour's default). When glamour cannot be set up
// the text is passed through unchanged.
func NewRenderer(width int) runner.ContentRenderer {
	opts := []glamour.TermRendererOption{glamour.WithAutoStyle()}
	if width > 0 {
		opts = append(opts, glamour.WithWordWrap(width))
	}
	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return func(markdown string) (string, error) { return markdown, nil }
	}
	return func(markdown string) (string, error) {
		return r.Render(markdown)
	}
}
