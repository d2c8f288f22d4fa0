package domain

import "time"

// ConversationState holds the identifiers needed to continue a remote thread.
// An empty ConversationID means the thread has not been created yet.
//
// Values are never edited in place; Advance returns the replacement.
type ConversationState struct {
	ConversationID string `json:"conversation_id,omitempty" yaml:"conversation_id,omitempty"`
	LastParentID   string `json:"last_parent_id,omitempty" yaml:"last_parent_id,omitempty"`
}

// IsNew reports whether the remote conversation has not been created.
func (c ConversationState) IsNew() bool {
	return c.ConversationID == ""
}

// Advance returns the state for the next turn. Empty arguments keep the current value.
func (c ConversationState) Advance(conversationID, parentID string) ConversationState {
	next := c
	if conversationID != "" {
		next.ConversationID = conversationID
	}
	if parentID != "" {
		next.LastParentID = parentID
	}
	return next
}

// Session is the persisted snapshot of one conversation.
type Session struct {
	ID           string            `json:"id" yaml:"id"`
	Conversation ConversationState `json:"conversation" yaml:"conversation"`
	Messages     []Message         `json:"messages" yaml:"messages"`
	Plan         []PlanStep        `json:"plan,omitempty" yaml:"plan,omitempty"`
	Status       RunStatus         `json:"status" yaml:"status"`
	UpdatedAt    time.Time         `json:"updated_at" yaml:"updated_at"`

	// Sealed carries the encrypted session when a store seals its content.
	Sealed []byte `json:"sealed,omitempty" yaml:"sealed,omitempty"`
}

// NewSession creates an empty session.
func NewSession(id string) *Session {
	return &Session{
		ID:        id,
		Messages:  []Message{},
		Status:    RunIdle,
		UpdatedAt: time.Now().UTC(),
	}
}

// Clone returns a deep copy, so stores never share slices with callers.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.Messages = append([]Message(nil), s.Messages...)
	out.Plan = append([]PlanStep(nil), s.Plan...)
	out.Sealed = append([]byte(nil), s.Sealed...)
	return &out
}
