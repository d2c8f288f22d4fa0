package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/runner"
)

// ChatOptions configures an interactive session.
type ChatOptions struct {
	SessionID string
	// JSON switches to JSON lines on both ends, for driving tendril from
	// another program.
	JSON         bool
	In           io.Reader
	Out          io.Writer
	Renderer     runner.ContentRenderer
	ShowThinking bool
	// Prompt is sent before any input is read.
	Prompt string
	// Once exits after the first run settles.
	Once bool
}

type chatIO interface {
	runner.Observer
	runner.Approver
	Input(ctx context.Context) (string, error)
}

// Chat runs the read-run loop until the input ends, the user types exit,
// or Ctrl-C is pressed at the prompt. Ctrl-C during a run cancels only
// that run.
func Chat(ctx context.Context, rt *Runtime, opts ChatOptions) error {
	if opts.In == nil {
		opts.In = os.Stdin
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}

	var handler chatIO
	if opts.JSON {
		handler = runner.NewJSONHandler(opts.In, opts.Out)
	} else {
		handler = runner.NewTextHandler(opts.In, opts.Out,
			runner.WithTextHandlerRenderer(opts.Renderer),
			runner.WithThinking(opts.ShowThinking),
		)
	}

	r, err := rt.NewRunner(opts.SessionID, handler, handler)
	if err != nil {
		return err
	}
	if opts.SessionID != "" {
		if err := r.Resume(ctx); err != nil {
			return err
		}
		if !opts.JSON {
			if n := len(r.History()); n > 0 {
				printSystemMessage(opts.Out, "Session '%s' resumed with %d messages (%s).", opts.SessionID, n, r.Status())
			} else {
				printSystemMessage(opts.Out, "Session '%s' active.", opts.SessionID)
			}
		}
	}

	sm := runner.NewSignalManager()
	defer sm.Stop()

	pending := strings.TrimSpace(opts.Prompt)
	for {
		input := pending
		pending = ""
		if input == "" {
			line, err := readInput(ctx, sm, handler)
			if err != nil {
				sm.CheckRace()
				if !opts.JSON {
					fmt.Fprintln(opts.Out)
				}
				return handleExecutionError(err)
			}
			input = strings.TrimSpace(line)
		}
		switch input {
		case "":
			continue
		case "exit", "quit":
			return nil
		}

		err := runOnce(ctx, sm, r, input)
		if opts.Once {
			return handleExecutionError(err)
		}
		switch {
		case err == nil, errors.Is(err, context.Canceled):
		case errors.Is(err, domain.ErrValidation):
			fmt.Fprintf(opts.Out, "Error: %v\n", err)
		default:
			rt.Logger.Error("run failed", "run_id", r.RunID(), "error", err)
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

// runOnce starts a run, or answers a pending question, and waits for it.
// An interrupt while it runs cancels the run.
func runOnce(ctx context.Context, sm *runner.SignalManager, r *runner.Runner, input string) error {
	if err := r.Start(ctx, input); err != nil {
		return err
	}
	done := make(chan struct{})
	sm.OnInterrupt(done, func() { _ = r.Cancel() })
	err := r.Wait()
	close(done)
	return err
}

// readInput waits for one line. An interrupt at the prompt ends it.
func readInput(ctx context.Context, sm *runner.SignalManager, h chatIO) (string, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(sm.Context(), cancel)
	defer stop()
	return h.Input(ctx)
}
