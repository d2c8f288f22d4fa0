// Package diff computes Myers line diffs and renders, parses and applies
// unified hunks.
//
// Text is split on "\n" only, so Join(Split(s)) == s for every input,
// including the empty string and text without a trailing newline.
package diff
