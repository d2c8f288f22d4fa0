package transport

import (
	"context"
	"fmt"
	"strings"

	"github.com/aretw0/tendril/pkg/domain"
)

// streamBuffer is the capacity of every event channel.
const streamBuffer = 64

// emitter turns chunks into ordered stream events and tracks the answer
// text and conversation state for the final Completed event.
type emitter struct {
	ctx    context.Context
	out    chan domain.StreamEvent
	answer strings.Builder
	state  domain.ConversationState
	seen   map[string]bool
	done   bool
}

func newEmitter(ctx context.Context, state domain.ConversationState) *emitter {
	return &emitter{
		ctx:   ctx,
		out:   make(chan domain.StreamEvent, streamBuffer),
		state: state,
		seen:  map[string]bool{},
	}
}

func (e *emitter) send(ev domain.StreamEvent) bool {
	select {
	case e.out <- ev:
		return true
	case <-e.ctx.Done():
		return false
	}
}

// apply emits the events for c. It reports false once the stream is over.
func (e *emitter) apply(c chunk) bool {
	if c.errMsg != "" {
		e.fail(fmt.Errorf("%w: %s", domain.ErrTransport, c.errMsg))
		return false
	}
	e.state = e.state.Advance(c.conversationID, c.messageID)

	if c.thinking != "" {
		if !e.send(domain.StreamEvent{Type: domain.StreamDelta, Phase: domain.PhaseThinking, Delta: c.thinking}) {
			return e.cancelled()
		}
	}

	delta := c.answer
	if c.cumulative {
		sofar := e.answer.String()
		if !strings.HasPrefix(delta, sofar) {
			// The backend rewrote earlier text; restart from its version.
			e.answer.Reset()
		} else {
			delta = delta[len(sofar):]
		}
	}
	if delta != "" {
		e.answer.WriteString(delta)
		if !e.send(domain.StreamEvent{Type: domain.StreamDelta, Phase: domain.PhaseAnswer, Delta: delta}) {
			return e.cancelled()
		}
	}

	for _, cit := range c.citations {
		if e.seen[cit.URL] {
			continue
		}
		e.seen[cit.URL] = true
		if !e.send(domain.StreamEvent{Type: domain.StreamCitation, Citation: &cit}) {
			return e.cancelled()
		}
	}
	return true
}

func (e *emitter) cancelled() bool {
	e.fail(e.ctx.Err())
	return false
}

// complete sends the Completed event and closes the stream.
func (e *emitter) complete() {
	if e.done {
		return
	}
	if err := e.ctx.Err(); err != nil {
		e.fail(err)
		return
	}
	e.finish(domain.StreamEvent{Type: domain.StreamCompleted, Text: e.answer.String(), State: e.state})
}

// fail sends the Error event and closes the stream.
func (e *emitter) fail(err error) {
	if e.done {
		return
	}
	e.finish(domain.StreamEvent{Type: domain.StreamError, Message: err.Error(), Err: err})
}

// finish delivers the terminal event. A consumer that already gave up on a
// cancelled context may never read it, so it is dropped rather than blocking
// when the buffer is full.
func (e *emitter) finish(ev domain.StreamEvent) {
	e.done = true
	select {
	case e.out <- ev:
	case <-e.ctx.Done():
		select {
		case e.out <- ev:
		default:
		}
	}
	close(e.out)
}
