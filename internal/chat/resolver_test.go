package chat_test

import (
	"context"
	"errors"
	"testing"

	"camerashop/backend/internal/chat"
	"camerashop/backend/internal/models"
	"camerashop/backend/internal/storage"
	"camerashop/backend/internal/storage/storagetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestResolve_NewSessionKeyCreatesOneRoom(t *testing.T) {
	st := storagetest.NewMemory()
	r := chat.NewRoomResolver(st, clock())
	ctx := context.Background()

	first, err := r.Resolve(ctx, chat.Identity{SessionKey: "abc"})
	require.NoError(t, err)
	require.NotNil(t, first.SessionKey)
	assert.Equal(t, "abc", *first.SessionKey)
	assert.False(t, first.Closed)
	assert.Nil(t, first.UserID)

	second, err := r.Resolve(ctx, chat.Identity{SessionKey: "abc"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.True(t, second.UpdatedAt.After(first.UpdatedAt), "every resolve refreshes updatedAt")
	assert.Equal(t, 1, st.RoomCount())
}

func TestResolve_UserIDCreatesBoundRoom(t *testing.T) {
	st := storagetest.NewMemory()
	st.AddUser(models.User{ID: 42, FullName: "Jane", Email: "jane@example.com"})
	r := chat.NewRoomResolver(st, clock())

	room, err := r.Resolve(context.Background(), chat.Identity{UserID: uintPtr(42)})
	require.NoError(t, err)
	require.NotNil(t, room.UserID)
	assert.Equal(t, uint(42), *room.UserID)
	require.NotNil(t, room.User)
	assert.Equal(t, "jane@example.com", room.User.Email)
	assert.Equal(t, "user-42", room.TopicKey())

	again, err := r.Resolve(context.Background(), chat.Identity{UserID: uintPtr(42)})
	require.NoError(t, err)
	assert.Equal(t, room.ID, again.ID)
	assert.Equal(t, 1, st.RoomCount())
}

func TestResolve_UnknownUserWithoutSessionKey(t *testing.T) {
	st := storagetest.NewMemory()
	r := chat.NewRoomResolver(st, clock())

	_, err := r.Resolve(context.Background(), chat.Identity{UserID: uintPtr(99)})
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.Equal(t, 0, st.RoomCount())
}

func TestResolve_NoIdentity(t *testing.T) {
	r := chat.NewRoomResolver(storagetest.NewMemory(), clock())
	_, err := r.Resolve(context.Background(), chat.Identity{})
	assert.ErrorIs(t, err, chat.ErrNoIdentity)
}

func TestResolve_BindingIsIdempotentAndFirstWins(t *testing.T) {
	st := storagetest.NewMemory()
	st.AddUser(models.User{ID: 1, FullName: "First"})
	st.AddUser(models.User{ID: 2, FullName: "Second"})
	r := chat.NewRoomResolver(st, clock())
	ctx := context.Background()

	guest, err := r.Resolve(ctx, chat.Identity{SessionKey: "abc"})
	require.NoError(t, err)
	assert.Nil(t, guest.UserID)

	bound, err := r.Resolve(ctx, chat.Identity{SessionKey: "abc", UserID: uintPtr(1)})
	require.NoError(t, err)
	require.NotNil(t, bound.UserID)
	assert.Equal(t, uint(1), *bound.UserID)

	again, err := r.Resolve(ctx, chat.Identity{SessionKey: "abc", UserID: uintPtr(1)})
	require.NoError(t, err)
	assert.Equal(t, uint(1), *again.UserID)

	other, err := r.Resolve(ctx, chat.Identity{SessionKey: "abc", UserID: uintPtr(2)})
	require.NoError(t, err)
	assert.Equal(t, uint(1), *other.UserID, "original binding wins")
	assert.Equal(t, guest.ID, other.ID)
}

func TestResolve_UnknownUserBindingSkipped(t *testing.T) {
	st := storagetest.NewMemory()
	r := chat.NewRoomResolver(st, clock())

	room, err := r.Resolve(context.Background(), chat.Identity{SessionKey: "abc", UserID: uintPtr(77)})
	require.NoError(t, err)
	assert.Nil(t, room.UserID, "unknown user is treated as a guest")
	assert.Equal(t, 1, st.RoomCount())
}

func TestResolve_UserWithExistingRoomIsNotBoundTwice(t *testing.T) {
	st := storagetest.NewMemory()
	st.AddUser(models.User{ID: 5, FullName: "Jane"})
	r := chat.NewRoomResolver(st, clock())
	ctx := context.Background()

	own, err := r.Resolve(ctx, chat.Identity{UserID: uintPtr(5)})
	require.NoError(t, err)

	guest, err := r.Resolve(ctx, chat.Identity{SessionKey: "fresh", UserID: uintPtr(5)})
	require.NoError(t, err)
	assert.NotEqual(t, own.ID, guest.ID)
	assert.Nil(t, guest.UserID)

	found, err := st.GetRoomByUserID(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, own.ID, found.ID)
}

func TestResolve_StorageErrorPropagates(t *testing.T) {
	st := new(storagetest.MockStorage)
	boom := errors.New("db down")
	st.On("GetRoomBySessionKey", mock.Anything, "abc").Return(nil, boom)

	_, err := chat.NewRoomResolver(st, clock()).Resolve(context.Background(), chat.Identity{SessionKey: "abc"})
	assert.ErrorIs(t, err, boom)
	st.AssertNotCalled(t, "CreateRoom", mock.Anything, mock.Anything)
}

func TestResolve_UserRoomKeyReusesBoundRoom(t *testing.T) {
	st := storagetest.NewMemory()
	st.AddUser(models.User{ID: 42, FullName: "Jane"})
	r := chat.NewRoomResolver(st, clock())
	ctx := context.Background()

	own, err := r.Resolve(ctx, chat.Identity{UserID: uintPtr(42)})
	require.NoError(t, err)

	byKey, err := r.Resolve(ctx, chat.Identity{SessionKey: "user-42"})
	require.NoError(t, err)
	assert.Equal(t, own.ID, byKey.ID)
	assert.Nil(t, byKey.SessionKey)
	assert.Equal(t, 1, st.RoomCount())

	found, err := r.Lookup(ctx, "user-42")
	require.NoError(t, err)
	assert.Equal(t, own.ID, found.ID)

	_, err = r.Lookup(ctx, "user-43")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestResolve_UserRoomKeyForUnknownUser(t *testing.T) {
	st := storagetest.NewMemory()
	r := chat.NewRoomResolver(st, clock())

	_, err := r.Resolve(context.Background(), chat.Identity{SessionKey: "user-9"})
	assert.ErrorIs(t, err, storage.ErrUserNotFound)
	assert.Equal(t, 0, st.RoomCount())
}

func TestResolve_AdminIsNeverBound(t *testing.T) {
	st := storagetest.NewMemory()
	st.AddUser(models.User{ID: 1, FullName: "Support", Role: models.RoleAdmin})
	st.AddUser(models.User{ID: 2, FullName: "Jane", Role: models.RoleUser})
	r := chat.NewRoomResolver(st, clock())
	ctx := context.Background()

	_, err := r.Resolve(ctx, chat.Identity{SessionKey: "abc"})
	require.NoError(t, err)

	reply, err := r.Resolve(ctx, chat.Identity{SessionKey: "abc", UserID: uintPtr(1)})
	require.NoError(t, err)
	assert.Nil(t, reply.UserID, "an admin reply leaves the guest room unbound")

	_, err = st.GetRoomByUserID(ctx, 1)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	customer, err := r.Resolve(ctx, chat.Identity{SessionKey: "abc", UserID: uintPtr(2)})
	require.NoError(t, err)
	require.NotNil(t, customer.UserID)
	assert.Equal(t, uint(2), *customer.UserID)
}
