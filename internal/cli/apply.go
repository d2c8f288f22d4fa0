package cli

import (
	"bytes"
	"fmt"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/fileops"
	"github.com/aretw0/tendril/pkg/parser"
)

// ErrNoActions is returned when a saved response carries no file actions.
var ErrNoActions = fmt.Errorf("%w: response has no file actions", domain.ErrValidation)

// ApplyResponse parses a saved model response and applies its file actions
// to ws. data may be the answer text or a raw SSE capture of it.
func ApplyResponse(ws *fileops.Workspace, data []byte) (domain.ParsedResponse, fileops.Report, error) {
	var parsed domain.ParsedResponse
	if isSSECapture(data) {
		parsed = parser.Parse("", data)
	} else {
		parsed = parser.Parse(string(data), nil)
	}
	if len(parsed.Operations) == 0 {
		return parsed, fileops.Report{}, ErrNoActions
	}
	return parsed, ws.ApplyBatch(parsed.Operations), nil
}

func isSSECapture(data []byte) bool {
	return bytes.HasPrefix(bytes.TrimSpace(data), []byte("data:"))
}
