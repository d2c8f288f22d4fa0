package runner

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// JSONHandler speaks JSON lines: every observer callback is written as one
// Event per line, and input lines are read back as JSON strings or plain
// text. It is the headless counterpart of TextHandler.
type JSONHandler struct {
	EventObserver

	mu      sync.Mutex
	encoder *json.Encoder
	lines   chan inputResult
}

var (
	_ Observer = (*JSONHandler)(nil)
	_ Approver = (*JSONHandler)(nil)
)

// NewJSONHandler creates a handler for JSON IO.
func NewJSONHandler(r io.Reader, w io.Writer) *JSONHandler {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	h := &JSONHandler{
		encoder: json.NewEncoder(w),
		lines:   make(chan inputResult),
	}
	h.EventObserver = EventObserver{Emit: h.write}
	go pumpLines(bufio.NewReader(r), h.lines, false)
	return h
}

func (h *JSONHandler) write(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	_ = h.encoder.Encode(ev)
}

// Input reads the next line. A JSON string is unquoted; anything else is returned trimmed.
func (h *JSONHandler) Input(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res, ok := <-h.lines:
		if !ok {
			return "", io.EOF
		}
		if res.err != nil {
			return "", res.err
		}
		text := strings.TrimSpace(res.text)
		var val string
		if err := json.Unmarshal([]byte(text), &val); err == nil {
			return val, nil
		}
		return text, nil
	}
}

// Approve emits an approval_request event and reads the decision line:
// true/false, y/n, or {"approved": bool}.
func (h *JSONHandler) Approve(ctx context.Context, req ApprovalRequest) (bool, error) {
	h.write(Event{Type: EventApproval, Data: req})
	line, err := h.Input(ctx)
	if err != nil {
		return false, err
	}

	var decision struct {
		Approved bool `json:"approved"`
	}
	if err := json.Unmarshal([]byte(line), &decision); err == nil {
		return decision.Approved, nil
	}
	switch strings.ToLower(line) {
	case "true", "y", "yes":
		return true, nil
	case "false", "n", "no", "":
		return false, nil
	}
	return false, fmt.Errorf("unrecognized approval answer %q", line)
}
