package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunSessionStoreContract verifies that a SessionStore implementation
// behaves the way the session manager expects.
func RunSessionStoreContract(t *testing.T, store SessionStore) {
	ctx := context.Background()
	sessionID := "contract-test-session-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		session := domain.NewSession(sessionID)
		session.Conversation = domain.ConversationState{ConversationID: "conv-1", LastParentID: "msg-2"}
		session.Messages = append(session.Messages,
			domain.NewMessage(domain.RoleUser, "list the files"),
			domain.NewMessage(domain.RoleAssistant, `{"tool_calls":[]}`),
		)
		session.Plan = []domain.PlanStep{{ID: "s1", Title: "Step 1", Kind: "file", Status: domain.StepCompleted}}
		session.Status = domain.RunAwaitingUserAnswer

		require.NoError(t, store.Save(ctx, session), "Save should not return error")

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, session.ID, loaded.ID)
		assert.Equal(t, session.Conversation, loaded.Conversation)
		assert.Equal(t, session.Status, loaded.Status)
		assert.Equal(t, session.Plan, loaded.Plan)
		require.Len(t, loaded.Messages, 2)
		assert.Equal(t, session.Messages[0].ID, loaded.Messages[0].ID)
		assert.Equal(t, session.Messages[1].Content, loaded.Messages[1].Content)
		assert.Equal(t, domain.RoleAssistant, loaded.Messages[1].Role)
	})

	t.Run("Saved copy is isolated", func(t *testing.T) {
		session := domain.NewSession(sessionID + "-iso")
		require.NoError(t, store.Save(ctx, session))
		defer func() { _ = store.Delete(ctx, session.ID) }()

		session.Messages = append(session.Messages, domain.NewMessage(domain.RoleUser, "later"))

		loaded, err := store.Load(ctx, session.ID)
		require.NoError(t, err)
		assert.Empty(t, loaded.Messages)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, domain.NewSession(sessionID)))

		require.NoError(t, store.Delete(ctx, sessionID), "Delete should not return error")

		_, err := store.Load(ctx, sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")
		assert.NoError(t, store.Delete(ctx, sessionID), "Deleting twice is not an error")
	})

	t.Run("List", func(t *testing.T) {
		id1 := sessionID + "-1"
		id2 := sessionID + "-2"
		_ = store.Save(ctx, domain.NewSession(id1))
		_ = store.Save(ctx, domain.NewSession(id2))
		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		sessions, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, sessions, id1)
		assert.Contains(t, sessions, id2)
	})
}
