package transport

import (
	"context"
	"strings"

	"github.com/aretw0/tendril/pkg/domain"
)

// Result is a fully drained stream.
type Result struct {
	Text      string
	Thinking  string
	Citations []domain.Citation
	State     domain.ConversationState
}

// Collect drains events, calling onEvent for each one in order, and returns
// the final answer. A stream that closes without a terminal event is a
// transport error.
func Collect(ctx context.Context, events <-chan domain.StreamEvent, onEvent func(domain.StreamEvent)) (Result, error) {
	var (
		res      Result
		answer   strings.Builder
		thinking strings.Builder
	)
	for {
		select {
		case <-ctx.Done():
			return res, ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return res, domain.ErrTransport
			}
			if onEvent != nil {
				onEvent(ev)
			}
			switch ev.Type {
			case domain.StreamDelta:
				if ev.Phase == domain.PhaseThinking {
					thinking.WriteString(ev.Delta)
				} else {
					answer.WriteString(ev.Delta)
				}
			case domain.StreamCitation:
				if ev.Citation != nil {
					res.Citations = append(res.Citations, *ev.Citation)
				}
			case domain.StreamCompleted:
				res.Text = ev.Text
				if res.Text == "" {
					res.Text = answer.String()
				}
				res.Thinking = thinking.String()
				res.State = ev.State
				return res, nil
			case domain.StreamError:
				res.Text = answer.String()
				res.Thinking = thinking.String()
				if ev.Err != nil {
					return res, ev.Err
				}
				return res, &TransportError{Body: ev.Message}
			}
		}
	}
}
