package middleware_test

import (
	"context"
	"testing"

	"github.com/aretw0/tendril/pkg/adapters/memory"
	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/persistence/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPIIMiddleware_Masking(t *testing.T) {
	backend := memory.NewStore()
	mw, err := middleware.NewPIIMiddleware(middleware.DefaultPIIPatterns)
	require.NoError(t, err)
	store := mw(backend)
	ctx := context.Background()

	session := domain.NewSession("pii")
	session.Messages = append(session.Messages,
		domain.NewMessage(domain.RoleUser, "mail jdoe@example.com with key sk-abcdefghijklmnopqrstu"),
		domain.NewMessage(domain.RoleAssistant, "nothing to hide"),
	)
	session.Plan = []domain.PlanStep{{ID: "s1", Title: "Notify ops@example.org"}}
	require.NoError(t, store.Save(ctx, session))

	assert.Contains(t, session.Messages[0].Content, "jdoe@example.com", "caller's session is untouched")

	stored, err := backend.Load(ctx, "pii")
	require.NoError(t, err)
	assert.Equal(t, "mail *** with key ***", stored.Messages[0].Content)
	assert.Equal(t, "nothing to hide", stored.Messages[1].Content)
	assert.Equal(t, "Notify ***", stored.Plan[0].Title)
}

func TestPIIMiddleware_BadPattern(t *testing.T) {
	_, err := middleware.NewPIIMiddleware([]string{"("})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestChain_OrderMasksBeforeSealing(t *testing.T) {
	backend := memory.NewStore()
	key := generateKey(t)
	pii, err := middleware.NewPIIMiddleware([]string{`secret-\d+`})
	require.NoError(t, err)
	store := middleware.Chain(backend, pii, encrypted(t, middleware.EncryptionConfig{ActiveKey: key}))
	ctx := context.Background()

	session := domain.NewSession("both")
	session.Messages = append(session.Messages, domain.NewMessage(domain.RoleUser, "code secret-42"))
	require.NoError(t, store.Save(ctx, session))

	loaded, err := store.Load(ctx, "both")
	require.NoError(t, err)
	assert.Equal(t, "code ***", loaded.Messages[0].Content)
}
