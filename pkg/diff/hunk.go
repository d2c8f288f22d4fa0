package diff

import (
	"fmt"
	"strings"
)

// DefaultContext is the number of unchanged lines padded around each change.
const DefaultContext = 3

// Line is one line of a hunk body. Kind is ' ', '-' or '+'.
type Line struct {
	Kind byte
	Text string
}

// Hunk is a contiguous block of changes with surrounding context.
// Starts are zero-based.
type Hunk struct {
	OldStart int
	OldLen   int
	NewStart int
	NewLen   int
	Lines    []Line
}

// Header renders the "@@ -a,b +c,d @@" line.
func (h Hunk) Header() string {
	return fmt.Sprintf("@@ -%d,%d +%d,%d @@", h.OldStart+1, h.OldLen, h.NewStart+1, h.NewLen)
}

func (h Hunk) String() string {
	var sb strings.Builder
	sb.WriteString(h.Header())
	sb.WriteByte('\n')
	for _, l := range h.Lines {
		sb.WriteByte(l.Kind)
		sb.WriteString(l.Text)
		sb.WriteByte('\n')
	}
	return sb.String()
}

// BuildHunks groups the change spans of edits into hunks padded with up to
// context unchanged lines on each side.
//
// Context windows of neighbouring changes are not merged, so two changes
// closer than 2*context lines produce two hunks whose context overlaps.
// Apply accepts that overlap.
func BuildHunks(old, new []string, edits []Edit, context int) []Hunk {
	if context < 0 {
		context = 0
	}

	var hunks []Hunk
	for i := 0; i < len(edits); {
		if edits[i].Op == OpEqual {
			i++
			continue
		}
		j := i
		for j < len(edits) && edits[j].Op != OpEqual {
			j++
		}
		group := edits[i:j]

		oldFrom, oldTo := group[0].OldStart, group[len(group)-1].OldEnd
		newFrom, newTo := group[0].NewStart, group[len(group)-1].NewEnd

		before := 0
		if i > 0 {
			before = min(context, spanLen(edits[i-1]))
		}
		after := 0
		if j < len(edits) {
			after = min(context, spanLen(edits[j]))
		}

		h := Hunk{
			OldStart: oldFrom - before,
			NewStart: newFrom - before,
			OldLen:   before + (oldTo - oldFrom) + after,
			NewLen:   before + (newTo - newFrom) + after,
		}
		for _, t := range old[oldFrom-before : oldFrom] {
			h.Lines = append(h.Lines, Line{Kind: ' ', Text: t})
		}
		for _, e := range group {
			switch e.Op {
			case OpDelete:
				for _, t := range old[e.OldStart:e.OldEnd] {
					h.Lines = append(h.Lines, Line{Kind: '-', Text: t})
				}
			case OpInsert:
				for _, t := range new[e.NewStart:e.NewEnd] {
					h.Lines = append(h.Lines, Line{Kind: '+', Text: t})
				}
			}
		}
		for _, t := range old[oldTo : oldTo+after] {
			h.Lines = append(h.Lines, Line{Kind: ' ', Text: t})
		}

		hunks = append(hunks, h)
		i = j
	}
	return hunks
}

func spanLen(e Edit) int {
	return e.OldEnd - e.OldStart
}

// Format renders hunks as unified diff text.
func Format(hunks []Hunk) string {
	var sb strings.Builder
	for _, h := range hunks {
		sb.WriteString(h.String())
	}
	return sb.String()
}

// Unified diffs two texts and returns the rendered hunks, or "" when equal.
func Unified(oldText, newText string, context int) string {
	a, b := Split(oldText), Split(newText)
	return Format(BuildHunks(a, b, Compute(a, b), context))
}

// Stats counts inserted and deleted lines across hunks.
func Stats(hunks []Hunk) (added, removed int) {
	for _, h := range hunks {
		for _, l := range h.Lines {
			switch l.Kind {
			case '+':
				added++
			case '-':
				removed++
			}
		}
	}
	return added, removed
}
