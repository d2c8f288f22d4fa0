package diff

import (
	"errors"
	"strings"
)

// Op is the kind of an edit span.
type Op int

const (
	OpEqual Op = iota
	OpDelete
	OpInsert
)

func (o Op) String() string {
	switch o {
	case OpDelete:
		return "delete"
	case OpInsert:
		return "insert"
	default:
		return "equal"
	}
}

// Edit is a contiguous span of the edit script.
// Delete spans have an empty new range and Insert spans an empty old range.
type Edit struct {
	Op       Op
	OldStart int
	OldEnd   int
	NewStart int
	NewEnd   int
}

// MaxEditDistance bounds the Myers search. Inputs that differ by more lines
// than this are diffed positionally. The trace keeps about D*D ints, so the
// default caps it near 8MB.
var MaxEditDistance = 1000

var errTooDistant = errors.New("edit distance exceeds limit")

// Split breaks text into lines on "\n".
func Split(text string) []string {
	return strings.Split(text, "\n")
}

// Join is the inverse of Split.
func Join(lines []string) string {
	return strings.Join(lines, "\n")
}

// Compute returns the minimal edit script turning a into b.
// It never fails: when the search panics or exceeds MaxEditDistance the
// result degrades to a positional diff.
func Compute(a, b []string) (edits []Edit) {
	defer func() {
		if r := recover(); r != nil {
			edits = Positional(a, b)
		}
	}()

	trace, err := shortestEdit(a, b)
	if err != nil {
		return Positional(a, b)
	}
	return coalesce(backtrack(trace, a, b))
}

// shortestEdit runs the forward pass and keeps, for every depth d, the
// frontier of furthest x per diagonal k in [-d-1, d+1] as it stood before d.
func shortestEdit(a, b []string) ([][]int, error) {
	n, m := len(a), len(b)
	max := n + m
	offset := max + 1
	v := make([]int, 2*max+3)

	var trace [][]int
	for d := 0; d <= max; d++ {
		if d > MaxEditDistance {
			return nil, errTooDistant
		}
		snap := make([]int, 2*d+3)
		copy(snap, v[offset-d-1:offset+d+2])
		trace = append(trace, snap)

		for k := -d; k <= d; k += 2 {
			var x int
			if k == -d || (k != d && v[offset+k-1] < v[offset+k+1]) {
				x = v[offset+k+1]
			} else {
				x = v[offset+k-1] + 1
			}
			y := x - k
			for x < n && y < m && a[x] == b[y] {
				x++
				y++
			}
			v[offset+k] = x
			if x >= n && y >= m {
				return trace, nil
			}
		}
	}
	return trace, nil
}

type step struct {
	op   Op
	oldI int
	newI int
}

func backtrack(trace [][]int, a, b []string) []step {
	x, y := len(a), len(b)
	var rev []step

	for d := len(trace) - 1; d >= 0; d-- {
		v := trace[d]
		at := func(k int) int { return v[d+1+k] }
		k := x - y

		var prevK int
		if k == -d || (k != d && at(k-1) < at(k+1)) {
			prevK = k + 1
		} else {
			prevK = k - 1
		}
		prevX := at(prevK)
		prevY := prevX - prevK

		for x > prevX && y > prevY {
			x--
			y--
			rev = append(rev, step{op: OpEqual, oldI: x, newI: y})
		}
		if d == 0 {
			break
		}
		if x == prevX {
			y--
			rev = append(rev, step{op: OpInsert, oldI: x, newI: y})
		} else {
			x--
			rev = append(rev, step{op: OpDelete, oldI: x, newI: y})
		}
		x, y = prevX, prevY
	}

	for i, j := 0, len(rev)-1; i < j; i, j = i+1, j-1 {
		rev[i], rev[j] = rev[j], rev[i]
	}
	return rev
}

// Positional compares line i of a with line i of b up to the longer length.
func Positional(a, b []string) []Edit {
	var steps []step
	for i := 0; i < len(a) || i < len(b); i++ {
		switch {
		case i < len(a) && i < len(b) && a[i] == b[i]:
			steps = append(steps, step{op: OpEqual, oldI: i, newI: i})
		default:
			if i < len(a) {
				steps = append(steps, step{op: OpDelete, oldI: i, newI: min(i, len(b))})
			}
			if i < len(b) {
				steps = append(steps, step{op: OpInsert, oldI: min(i+1, len(a)), newI: i})
			}
		}
	}
	return coalesce(steps)
}

func coalesce(steps []step) []Edit {
	var out []Edit
	for _, s := range steps {
		e := Edit{Op: s.op}
		switch s.op {
		case OpEqual:
			e.OldStart, e.OldEnd = s.oldI, s.oldI+1
			e.NewStart, e.NewEnd = s.newI, s.newI+1
		case OpDelete:
			e.OldStart, e.OldEnd = s.oldI, s.oldI+1
			e.NewStart, e.NewEnd = s.newI, s.newI
		case OpInsert:
			e.OldStart, e.OldEnd = s.oldI, s.oldI
			e.NewStart, e.NewEnd = s.newI, s.newI+1
		}

		if n := len(out); n > 0 {
			last := &out[n-1]
			if last.Op == e.Op && last.OldEnd == e.OldStart && last.NewEnd == e.NewStart {
				last.OldEnd = e.OldEnd
				last.NewEnd = e.NewEnd
				continue
			}
		}
		out = append(out, e)
	}
	return out
}
