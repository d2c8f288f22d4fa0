// Package tui holds the terminal presentation of the interactive chat.
package tui

import (
	"fmt"
	"io"
	"os"

	"github.com/muesli/termenv"
	"golang.org/x/term"
)

var bannerLines = []struct {
	text  string
	color string
}{
	{` _                 _      _ _ `, "#34d399"},
	{`| |_ ___ _ __   __| |_ __(_) |`, "#10b981"},
	{`| __/ _ \ '_ \ / _' | '__| | |`, "#059669"},
	{`| ||  __/ | | | (_| | |  | | |`, "#0d9488"},
	{` \__\___|_| |_|\__,_|_|  |_|_|`, "#0f766e"},
}

// PrintBanner writes the tendril banner with the version and the active
// mode. Colors follow the terminal profile, so pipes get plain text.
func PrintBanner(w io.Writer, version, mode string) {
	out := termenv.NewOutput(w)
	fmt.Fprintln(w)
	for _, l := range bannerLines {
		fmt.Fprintln(w, out.String(l.text).Foreground(out.Color(l.color)))
	}
	fmt.Fprintln(w, out.String(fmt.Sprintf("  %s · %s mode · type exit to quit", version, mode)).Faint())
	fmt.Fprintln(w)
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// Width returns the terminal width of f, or 0 when unknown.
func Width(f *os.File) int {
	w, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return 0
	}
	return w
}
