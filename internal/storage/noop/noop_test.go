package noop

import (
	"context"
	"testing"

	"github.com/godyjooce/1win-predictor.01-international4/internal/storage/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSaveThenGetReturnsNothing(t *testing.T) {
	store := New(zap.NewNop())
	ctx := context.Background()

	chat := models.Chat{ID: "c-1", Title: "hello", UserID: "u-1"}
	require.NoError(t, store.SaveChat(ctx, chat, "u-1"))

	// Сохранение — no-op: чата нет
	got, err := store.GetChat(ctx, "c-1", "u-1")
	require.NoError(t, err)
	assert.Nil(t, got)

	chats, err := store.GetChats(ctx, "u-1")
	require.NoError(t, err)
	assert.Empty(t, chats)
}

func TestMutationsAlwaysSucceed(t *testing.T) {
	store := New(zap.NewNop())
	ctx := context.Background()

	assert.NoError(t, store.RemoveChat(ctx, "missing", "u-1"))
	assert.NoError(t, store.ClearChats(ctx, "u-1"))
}

func TestShareReturnsNothing(t *testing.T) {
	store := New(zap.NewNop())
	ctx := context.Background()

	shared, err := store.ShareChat(ctx, "c-1", "u-1")
	require.NoError(t, err)
	assert.Nil(t, shared)

	got, err := store.GetSharedChat(ctx, "c-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}
