package diff

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/aretw0/tendril/pkg/domain"
)

// Apply replays hunks against old and returns the new lines.
//
// Hunks must be in file order. A hunk whose old lines do not sit at its
// declared start is relocated to the first exact match at or after the
// current position; if none exists the patch is rejected with ErrConflict.
func Apply(old []string, hunks []Hunk) ([]string, error) {
	out := make([]string, 0, len(old))
	cursor := 0

	for n, h := range hunks {
		start, err := locate(old, h, cursor)
		if err != nil {
			return nil, fmt.Errorf("hunk %d: %w", n+1, err)
		}
		if start > cursor {
			out = append(out, old[cursor:start]...)
			cursor = start
		}

		pos := start
		for _, l := range h.Lines {
			switch l.Kind {
			case ' ':
				if pos >= len(old) || old[pos] != l.Text {
					return nil, fmt.Errorf("%w: hunk %d context mismatch at line %d", domain.ErrConflict, n+1, pos+1)
				}
				if pos >= cursor {
					out = append(out, l.Text)
					cursor = pos + 1
				}
				pos++
			case '-':
				if pos >= len(old) || old[pos] != l.Text {
					return nil, fmt.Errorf("%w: hunk %d deletion mismatch at line %d", domain.ErrConflict, n+1, pos+1)
				}
				if pos < cursor {
					return nil, fmt.Errorf("%w: hunk %d deletes line %d already emitted", domain.ErrConflict, n+1, pos+1)
				}
				pos++
				cursor = pos
			case '+':
				out = append(out, l.Text)
			}
		}
	}

	if cursor < len(old) {
		out = append(out, old[cursor:]...)
	}
	return out, nil
}

func locate(old []string, h Hunk, cursor int) (int, error) {
	var want []string
	for _, l := range h.Lines {
		if l.Kind != '+' {
			want = append(want, l.Text)
		}
	}
	if matchesAt(old, want, h.OldStart) {
		return h.OldStart, nil
	}
	if len(want) == 0 {
		if h.OldStart > len(old) {
			return 0, fmt.Errorf("%w: insertion point %d beyond end of file", domain.ErrConflict, h.OldStart+1)
		}
		return max(h.OldStart, cursor), nil
	}
	for i := cursor; i+len(want) <= len(old); i++ {
		if matchesAt(old, want, i) {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: hunk does not match file content", domain.ErrConflict)
}

func matchesAt(old, want []string, at int) bool {
	if at < 0 || at+len(want) > len(old) {
		return false
	}
	for i, w := range want {
		if old[at+i] != w {
			return false
		}
	}
	return true
}

var headerRe = regexp.MustCompile(`^@@ -(\d+)(?:,(\d+))? \+(\d+)(?:,(\d+))? @@`)

// ParseHunks reads unified diff text. File headers ("---", "+++") and
// "\ No newline" markers are skipped. A bare empty line inside a hunk is
// read as empty context.
func ParseHunks(text string) ([]Hunk, error) {
	lines := Split(text)
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}

	var hunks []Hunk
	var cur *Hunk
	for i, raw := range lines {
		if m := headerRe.FindStringSubmatch(raw); m != nil {
			hunks = append(hunks, Hunk{
				OldStart: zeroBased(m[1]),
				OldLen:   count(m[2]),
				NewStart: zeroBased(m[3]),
				NewLen:   count(m[4]),
			})
			cur = &hunks[len(hunks)-1]
			continue
		}
		if cur == nil {
			if strings.HasPrefix(raw, "---") || strings.HasPrefix(raw, "+++") || strings.TrimSpace(raw) == "" {
				continue
			}
			return nil, fmt.Errorf("%w: line %d precedes the first hunk header", domain.ErrValidation, i+1)
		}
		if raw == "" {
			cur.Lines = append(cur.Lines, Line{Kind: ' '})
			continue
		}
		switch raw[0] {
		case ' ', '-', '+':
			cur.Lines = append(cur.Lines, Line{Kind: raw[0], Text: raw[1:]})
		case '\\':
		default:
			return nil, fmt.Errorf("%w: unexpected line %d in hunk: %q", domain.ErrValidation, i+1, raw)
		}
	}
	if len(hunks) == 0 {
		return nil, fmt.Errorf("%w: no hunks found", domain.ErrValidation)
	}
	return hunks, nil
}

// Patch applies unified diff text to content.
func Patch(content, patch string) (string, error) {
	hunks, err := ParseHunks(patch)
	if err != nil {
		return "", err
	}
	out, err := Apply(Split(content), hunks)
	if err != nil {
		return "", err
	}
	return Join(out), nil
}

func zeroBased(s string) int {
	n, _ := strconv.Atoi(s)
	if n > 0 {
		n--
	}
	return n
}

func count(s string) int {
	if s == "" {
		return 1
	}
	n, _ := strconv.Atoi(s)
	return n
}
