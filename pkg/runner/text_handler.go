package runner

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/tools"
	"golang.org/x/term"
)

// ContentRenderer transforms assistant text before it is printed, e.g.
// markdown to ANSI. It keeps the terminal styling out of this package.
type ContentRenderer func(string) (string, error)

// TextHandler is the interactive terminal front end. It prints the run as
// it happens, asks y/N before mutating tools and reads user lines.
type TextHandler struct {
	Writer   io.Writer
	Renderer ContentRenderer
	// ShowThinking prints reasoning deltas as they stream.
	ShowThinking bool

	interactive bool
	reader      *bufio.Reader
	lines       chan inputResult
	startOnce   sync.Once

	mu       sync.Mutex
	streamed bool
	phase    domain.Phase
}

var (
	_ Observer = (*TextHandler)(nil)
	_ Approver = (*TextHandler)(nil)
)

type inputResult struct {
	text string
	err  error
}

// TextHandlerOption defines configuration for TextHandler.
type TextHandlerOption func(*TextHandler)

// WithTextHandlerRenderer configures the content renderer.
func WithTextHandlerRenderer(renderer ContentRenderer) TextHandlerOption {
	return func(h *TextHandler) {
		h.Renderer = renderer
	}
}

// WithThinking prints reasoning deltas.
func WithThinking(show bool) TextHandlerOption {
	return func(h *TextHandler) {
		h.ShowThinking = show
	}
}

// NewTextHandler creates a handler reading r and writing w.
func NewTextHandler(r io.Reader, w io.Writer, opts ...TextHandlerOption) *TextHandler {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	h := &TextHandler{
		Writer:      w,
		interactive: isTerminal(r),
		reader:      bufio.NewReader(r),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func (h *TextHandler) initPump() {
	h.startOnce.Do(func() {
		h.lines = make(chan inputResult)
		go pumpLines(h.reader, h.lines, h.interactive)
	})
}

// pumpLines feeds lines from r into out. On a terminal an EOF may just be
// an interrupted read, so the pump keeps going instead of closing out.
func pumpLines(r *bufio.Reader, out chan<- inputResult, interactive bool) {
	for {
		text, err := r.ReadString('\n')
		if text != "" {
			out <- inputResult{text: text}
		}
		if err == nil {
			continue
		}
		if errors.Is(err, io.EOF) {
			if interactive {
				out <- inputResult{err: io.EOF}
				time.Sleep(50 * time.Millisecond)
				continue
			}
			close(out)
			return
		}
		out <- inputResult{err: err}
		time.Sleep(50 * time.Millisecond)
	}
}

// Input prompts and reads one sanitized line. Invalid input is reported and
// asked for again.
func (h *TextHandler) Input(ctx context.Context) (string, error) {
	h.initPump()
	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
			h.print("> ")
		}

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
			clean, err := SanitizeInput(strings.TrimSpace(res.text))
			if err != nil {
				h.printf("Error: %v. Please try again.\n", err)
				continue
			}
			return clean, nil
		}
	}
}

// Approve shows the preview and asks y/N.
func (h *TextHandler) Approve(ctx context.Context, req ApprovalRequest) (bool, error) {
	h.endStream()
	h.printf("\n[approval] %s\n%s\nAllow? [y/N] ", tools.Describe(req.Call), strings.TrimRight(req.Preview, "\n"))

	h.initPump()
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case res, ok := <-h.lines:
		if !ok {
			return false, io.EOF
		}
		if res.err != nil {
			return false, res.err
		}
		answer := strings.ToLower(strings.TrimSpace(res.text))
		return answer == "y" || answer == "yes", nil
	}
}

func (h *TextHandler) OnWorkflowStarted(string) {}

func (h *TextHandler) OnWorkflowEnded(_ string, status domain.RunStatus, _ error) {
	h.endStream()
	if status == domain.RunCancelled {
		h.print("[cancelled]\n")
	}
}

func (h *TextHandler) OnDelta(ev domain.StreamEvent) {
	if ev.Type != domain.StreamDelta || h.Renderer != nil {
		return
	}
	if ev.Phase == domain.PhaseThinking && !h.ShowThinking {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if ev.Phase != h.phase {
		if h.streamed {
			fmt.Fprintln(h.Writer)
		}
		if ev.Phase == domain.PhaseThinking {
			fmt.Fprint(h.Writer, "[thinking] ")
		}
		h.phase = ev.Phase
	}
	fmt.Fprint(h.Writer, ev.Delta)
	h.streamed = true
}

// OnMessage prints assistant replies that were not already streamed.
// Tool-call envelopes are reduced to their explanation.
func (h *TextHandler) OnMessage(msg domain.Message) {
	if msg.Role != domain.RoleAssistant {
		return
	}
	if h.endStream() {
		return
	}
	text := msg.Content
	if p := Interpret(text); p.HasWork() || p.Control != nil || p.Kind == domain.KindPlan {
		text = p.Explanation
	}
	if strings.TrimSpace(text) == "" {
		return
	}
	if h.Renderer != nil {
		if rendered, err := h.Renderer(text); err == nil {
			text = rendered
		}
	}
	h.print(strings.TrimSpace(text) + "\n")
}

func (h *TextHandler) OnToolStarted(call domain.ToolCall) {
	h.printf("→ %s\n", tools.Describe(call))
}

func (h *TextHandler) OnToolCompleted(_ domain.ToolCall, res domain.ToolResult) {
	h.printf("  ✓ %s\n", res.Message)
}

func (h *TextHandler) OnToolFailed(call domain.ToolCall, res domain.ToolResult) {
	h.printf("  ✗ %s: %s\n", call.Name, res.Error)
}

func (h *TextHandler) OnQuestionAsked(question string, options []string) {
	h.endStream()
	h.printf("\n? %s\n", question)
	for i, o := range options {
		h.printf("  %d. %s\n", i+1, o)
	}
}

func (h *TextHandler) OnTaskCompleted(summary string) {
	h.endStream()
	if h.Renderer != nil {
		if rendered, err := h.Renderer(summary); err == nil {
			summary = strings.TrimSpace(rendered)
		}
	}
	h.printf("\n[done] %s\n", summary)
}

func (h *TextHandler) OnPlanReady(steps []domain.PlanStep) {
	h.endStream()
	h.print("Plan:\n")
	h.printPlan(steps)
}

func (h *TextHandler) OnPlanUpdated(steps []domain.PlanStep) {
	for i, s := range steps {
		if s.Status == domain.StepRunning {
			h.printf("[step %d/%d] %s\n", i+1, len(steps), s.Title)
		}
	}
}

func (h *TextHandler) OnError(err error) {
	h.endStream()
	h.printf("Error: %v\n", err)
}

func (h *TextHandler) printPlan(steps []domain.PlanStep) {
	marks := map[domain.StepStatus]string{
		domain.StepPending:   " ",
		domain.StepRunning:   ">",
		domain.StepCompleted: "x",
		domain.StepFailed:    "!",
	}
	for i, s := range steps {
		h.printf("  [%s] %d. %s\n", marks[s.Status], i+1, s.Title)
	}
}

// endStream terminates a streamed line and reports whether anything was streamed.
func (h *TextHandler) endStream() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.streamed {
		return false
	}
	fmt.Fprintln(h.Writer)
	h.streamed = false
	h.phase = ""
	return true
}

func (h *TextHandler) print(s string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	fmt.Fprint(h.Writer, s)
}

func (h *TextHandler) printf(format string, args ...any) {
	h.print(fmt.Sprintf(format, args...))
}
