package fileops

import (
	"fmt"
	"strings"

	"github.com/aretw0/tendril/pkg/domain"
)

const (
	markerSearch  = "<<<<<<< SEARCH"
	markerDivider = "======="
	markerReplace = ">>>>>>> REPLACE"
)

// Block is one SEARCH/REPLACE pair.
type Block struct {
	Search  string
	Replace string
}

// ParseBlocks reads SEARCH/REPLACE blocks. Marker lines may carry trailing
// whitespace; block bodies are kept byte for byte.
func ParseBlocks(text string) ([]Block, error) {
	const (
		outside = iota
		inSearch
		inReplace
	)

	var (
		blocks  []Block
		state   = outside
		search  []string
		replace []string
	)
	for _, line := range strings.Split(text, "\n") {
		marker := strings.TrimRight(line, " \t\r")
		switch state {
		case outside:
			if marker == markerSearch {
				state = inSearch
				search, replace = nil, nil
			}
		case inSearch:
			if marker == markerDivider {
				state = inReplace
				continue
			}
			search = append(search, line)
		case inReplace:
			if marker == markerReplace {
				blocks = append(blocks, Block{
					Search:  strings.Join(search, "\n"),
					Replace: strings.Join(replace, "\n"),
				})
				state = outside
				continue
			}
			replace = append(replace, line)
		}
	}

	if state != outside {
		return nil, fmt.Errorf("%w: unterminated SEARCH/REPLACE block", domain.ErrValidation)
	}
	if len(blocks) == 0 {
		return nil, fmt.Errorf("%w: no SEARCH/REPLACE block found", domain.ErrValidation)
	}
	return blocks, nil
}

// FormatBlock renders a single SEARCH/REPLACE block.
func FormatBlock(b Block) string {
	return markerSearch + "\n" + b.Search + "\n" + markerDivider + "\n" + b.Replace + "\n" + markerReplace
}

// ApplyBlocks applies blocks to content in memory with exactly-once matching.
func ApplyBlocks(content string, blocks []Block) (string, error) {
	for i, b := range blocks {
		if b.Search == "" {
			return "", fmt.Errorf("%w: block %d has empty search text", domain.ErrValidation, i+1)
		}
		switch n := strings.Count(content, b.Search); n {
		case 1:
			content = strings.Replace(content, b.Search, b.Replace, 1)
		case 0:
			return "", fmt.Errorf("%w: block %d search text not found", domain.ErrConflict, i+1)
		default:
			return "", fmt.Errorf("%w: block %d search text matches %d times", domain.ErrConflict, i+1, n)
		}
	}
	return content, nil
}
