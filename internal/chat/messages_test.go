package chat_test

import (
	"context"
	"testing"

	"camerashop/backend/internal/chat"
	"camerashop/backend/internal/models"
	"camerashop/backend/internal/storage"
	"camerashop/backend/internal/storage/storagetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newRoom(t *testing.T, st storage.Storage, key string) *models.ChatRoom {
	t.Helper()
	room, err := chat.NewRoomResolver(st, clock()).Resolve(context.Background(), chat.Identity{SessionKey: key})
	require.NoError(t, err)
	return room
}

func TestAppend_StoresSentMessage(t *testing.T) {
	st := storagetest.NewMemory()
	room := newRoom(t, st, "abc")

	msg, err := chat.NewMessageStore(st, clock()).Append(context.Background(), room, "USER", "Hello")
	require.NoError(t, err)
	assert.NotZero(t, msg.ID)
	assert.Equal(t, room.ID, msg.RoomID)
	assert.Equal(t, models.StatusSent, msg.Status)
	assert.False(t, msg.SentAt.IsZero())
}

func TestCountUnread_OnlyUserMessagesNotSeen(t *testing.T) {
	st := storagetest.NewMemory()
	room := newRoom(t, st, "abc")
	store := chat.NewMessageStore(st, clock())
	ctx := context.Background()

	u1, err := store.Append(ctx, room, "USER", "one")
	require.NoError(t, err)
	_, err = store.Append(ctx, room, "USER", "two")
	require.NoError(t, err)
	a1, err := store.Append(ctx, room, "ADMIN", "reply")
	require.NoError(t, err)
	_, err = store.Append(ctx, room, "BOT", "other label")
	require.NoError(t, err)

	n, err := store.CountUnread(ctx, room)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	require.NoError(t, store.MarkSeen(ctx, u1.ID))
	n, err = store.CountUnread(ctx, room)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "marking a USER message seen decrements by one")

	require.NoError(t, store.MarkSeen(ctx, a1.ID))
	n, err = store.CountUnread(ctx, room)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "ADMIN messages never affect the count")

	require.NoError(t, store.MarkSeen(ctx, u1.ID), "marking twice is allowed")
	n, err = store.CountUnread(ctx, room)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestMarkSeen_NotFound(t *testing.T) {
	err := chat.NewMessageStore(storagetest.NewMemory(), clock()).MarkSeen(context.Background(), 404)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestMarkSeen_RewritesSeenStatus(t *testing.T) {
	st := new(storagetest.MockStorage)
	st.On("GetMessageByID", mock.Anything, uint(7)).Return(&models.ChatMessage{ID: 7, Status: models.StatusSeen}, nil)
	st.On("UpdateMessageStatus", mock.Anything, uint(7), models.StatusSeen).Return(nil).Once()

	require.NoError(t, chat.NewMessageStore(st, clock()).MarkSeen(context.Background(), 7))
	st.AssertExpectations(t)
}

func TestHistory_PagesOldestFirst(t *testing.T) {
	st := storagetest.NewMemory()
	room := newRoom(t, st, "abc")
	store := chat.NewMessageStore(st, clock())
	ctx := context.Background()

	for _, body := range []string{"a", "b", "c"} {
		_, err := store.Append(ctx, room, "USER", body)
		require.NoError(t, err)
	}

	page, err := store.History(ctx, room, models.PageRequest{Page: 0, Size: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.TotalElements)
	assert.Equal(t, 2, page.TotalPages)
	assert.False(t, page.Last)
	require.Len(t, page.Content, 2)
	assert.Equal(t, "a", page.Content[0].Text)
	assert.Equal(t, "abc", page.Content[0].SessionKey)

	page, err = store.History(ctx, room, models.PageRequest{Page: 1, Size: 2})
	require.NoError(t, err)
	require.Len(t, page.Content, 1)
	assert.Equal(t, "c", page.Content[0].Text)
	assert.True(t, page.Last)
}
