package ports

import (
	"context"

	"github.com/aretw0/tendril/pkg/domain"
)

// Request is one chat completion request.
type Request struct {
	// System is sent ahead of Messages when non-empty.
	System   string
	Messages []domain.Message
	Model    string
	State    domain.ConversationState
	Options  Options
}

// Options are provider knobs. Zero values leave the provider default.
type Options struct {
	Temperature *float64
	MaxTokens   int
	WebSearch   bool
	Thinking    bool
}

// Transport streams a model response.
//
// The returned channel delivers events in arrival order and is closed after
// exactly one Completed or Error event. Cancelling ctx ends the stream with
// an Error event carrying ctx.Err().
type Transport interface {
	Send(ctx context.Context, req Request) (<-chan domain.StreamEvent, error)
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, req Request) (<-chan domain.StreamEvent, error)

// Send calls f.
func (f TransportFunc) Send(ctx context.Context, req Request) (<-chan domain.StreamEvent, error) {
	return f(ctx, req)
}
