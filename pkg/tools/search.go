package tools

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/aretw0/tendril/pkg/diff"
	"github.com/aretw0/tendril/pkg/domain"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/afero"
)

// Search limits.
var (
	MaxSearchResults   = 500
	MaxSearchFileSize  = int64(1 << 20)
	SearchSnippetWidth = 200
)

// SearchMatch is one regex hit.
type SearchMatch struct {
	Path    string `json:"path"`
	Line    int    `json:"line"`
	Column  int    `json:"column"`
	Text    string `json:"text"`
	Snippet string `json:"snippet"`
}

type searchInput struct {
	Path        string `json:"path" jsonschema:"description=Directory to search, '.' for the project root"`
	Regex       string `json:"regex" jsonschema:"description=Go regular expression"`
	FilePattern string `json:"file_pattern,omitempty" jsonschema:"description=Glob filter on file paths, e.g. *.js"`
}

func searchFiles(ctx context.Context, env Env, in searchInput) domain.ToolResult {
	re, err := regexp.Compile(in.Regex)
	if err != nil {
		return domain.Failure("search failed", fmt.Errorf("%w: bad regex: %v", domain.ErrValidation, err))
	}
	if in.FilePattern != "" && !doublestar.ValidatePattern(in.FilePattern) {
		return domain.Failure("search failed", fmt.Errorf("%w: bad file_pattern %q", domain.ErrValidation, in.FilePattern))
	}

	ws := env.Workspace
	root, err := ws.Resolve(in.Path)
	if err != nil {
		return domain.Failure("search failed", err)
	}
	info, err := ws.Fs().Stat(root)
	if err != nil {
		return domain.Failure("search failed", fmt.Errorf("%w: %s", domain.ErrNotFound, in.Path))
	}

	s := &searcher{re: re, matches: []SearchMatch{}}
	if !info.IsDir() {
		if data, err := afero.ReadFile(ws.Fs(), root); err == nil && !isBinary(data) {
			s.scan(ws.Rel(root), data)
		}
	} else {
		err = ws.Walk(in.Path, func(rel string, fi os.FileInfo) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if fi.IsDir() || fi.Size() > MaxSearchFileSize {
				return nil
			}
			if in.FilePattern != "" && !globMatch(in.FilePattern, rel) {
				return nil
			}
			data, err := afero.ReadFile(ws.Fs(), filepath.Join(ws.Root(), filepath.FromSlash(rel)))
			if err != nil || isBinary(data) {
				return nil
			}
			if !s.scan(rel, data) {
				return filepath.SkipAll
			}
			return nil
		})
		if err != nil {
			return domain.Failure("search failed", err)
		}
	}

	matches, truncated := s.matches, s.truncated
	return domain.Success(fmt.Sprintf("Found %d matches for %q", len(matches), in.Regex), map[string]any{
		"matches":   matches,
		"count":     len(matches),
		"truncated": truncated,
	})
}

type searcher struct {
	re        *regexp.Regexp
	matches   []SearchMatch
	truncated bool
}

// scan records the matches of one file and reports whether to keep going.
func (s *searcher) scan(rel string, data []byte) bool {
	lines := diff.Split(string(data))
	for i, line := range lines {
		loc := s.re.FindStringIndex(line)
		if loc == nil {
			continue
		}
		if len(s.matches) >= MaxSearchResults {
			s.truncated = true
			return false
		}
		s.matches = append(s.matches, SearchMatch{
			Path:    rel,
			Line:    i + 1,
			Column:  loc[0] + 1,
			Text:    trimTo(line, SearchSnippetWidth),
			Snippet: snippet(lines, i),
		})
	}
	return true
}

func snippet(lines []string, i int) string {
	from, to := max(i-1, 0), min(i+2, len(lines))
	var parts []string
	for j := from; j < to; j++ {
		sep := "-"
		if j == i {
			sep = ":"
		}
		parts = append(parts, fmt.Sprintf("%d%s%s", j+1, sep, trimTo(lines[j], SearchSnippetWidth)))
	}
	return strings.Join(parts, "\n")
}

func isBinary(data []byte) bool {
	head := data
	if len(head) > 8000 {
		head = head[:8000]
	}
	return bytes.IndexByte(head, 0) >= 0
}
