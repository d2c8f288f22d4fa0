package domain

// Phase separates reasoning tokens from the visible answer.
type Phase string

const (
	PhaseThinking Phase = "thinking"
	PhaseAnswer   Phase = "answer"
)

// StreamEventType enumerates transport events.
type StreamEventType string

const (
	StreamDelta     StreamEventType = "delta"
	StreamCitation  StreamEventType = "citation"
	StreamCompleted StreamEventType = "completed"
	StreamError     StreamEventType = "error"
)

// Citation is a web-search source surfaced by the provider.
type Citation struct {
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
}

// StreamEvent is one item of a transport stream.
// A stream ends with exactly one Completed or Error event.
type StreamEvent struct {
	Type     StreamEventType   `json:"type"`
	Phase    Phase             `json:"phase,omitempty"`
	Delta    string            `json:"delta,omitempty"`
	Citation *Citation         `json:"citation,omitempty"`
	Text     string            `json:"text,omitempty"`
	State    ConversationState `json:"state,omitempty"`
	Message  string            `json:"message,omitempty"`
	Err      error             `json:"-"`
}
