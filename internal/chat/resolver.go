// Package chat implements the chat core: room resolution, message storage,
// unread counts, offline notifications and presence.
package chat

import (
	"context"
	"errors"
	"time"

	"camerashop/backend/internal/config"
	"camerashop/backend/internal/logging"
	"camerashop/backend/internal/models"
	"camerashop/backend/internal/storage"
)

// ErrNoIdentity is returned when a message carries neither a session key
// nor an authenticated user.
var ErrNoIdentity = errors.New("chat: message has neither a session key nor a user")

// ErrForeignUserRoom is returned when a customer message addresses another
// user's room by its "user-<id>" key.
var ErrForeignUserRoom = errors.New("chat: user room key belongs to another user")

// Identity is who a chat message comes from. SessionKey wins over UserID
// for room lookup; UserID is also used to bind a guest room once. A
// SessionKey of the form "user-<id>" addresses the room bound to that user,
// which is how an admin replies into a room that has no session key.
type Identity struct {
	SessionKey string
	UserID     *uint
}

// RoomResolver maps an identity to its room, creating it on first contact.
type RoomResolver struct {
	st  storage.Storage
	now func() time.Time
}

func NewRoomResolver(st storage.Storage, now func() time.Time) *RoomResolver {
	if now == nil {
		now = time.Now
	}
	return &RoomResolver{st: st, now: now}
}

// Resolve returns the room for id with UpdatedAt refreshed and persisted.
// room.User is loaded when a user is bound.
func (r *RoomResolver) Resolve(ctx context.Context, id Identity) (*models.ChatRoom, error) {
	var (
		room *models.ChatRoom
		err  error
	)
	userKey, isUserKey := config.ParseUserRoomKey(id.SessionKey)
	switch {
	case isUserKey:
		room, err = r.byUserID(ctx, userKey)
	case id.SessionKey != "":
		room, err = r.bySessionKey(ctx, id.SessionKey)
	case id.UserID != nil:
		room, err = r.byUserID(ctx, *id.UserID)
	default:
		return nil, ErrNoIdentity
	}
	if err != nil {
		return nil, err
	}

	if id.UserID != nil && !room.HasUser() {
		if err := r.bind(ctx, room, *id.UserID); err != nil {
			return nil, err
		}
	}

	room.UpdatedAt = r.now()
	if err := r.st.SaveRoom(ctx, room); err != nil {
		return nil, err
	}
	return room, nil
}

// Lookup finds the existing room for a topic key without creating one.
func (r *RoomResolver) Lookup(ctx context.Context, key string) (*models.ChatRoom, error) {
	if userID, ok := config.ParseUserRoomKey(key); ok {
		return r.st.GetRoomByUserID(ctx, userID)
	}
	return r.st.GetRoomBySessionKey(ctx, key)
}

func (r *RoomResolver) bySessionKey(ctx context.Context, key string) (*models.ChatRoom, error) {
	room, err := r.st.GetRoomBySessionKey(ctx, key)
	if err == nil {
		return room, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	now := r.now()
	room = &models.ChatRoom{SessionKey: &key, CreatedAt: now, UpdatedAt: now}
	if err := r.st.CreateRoom(ctx, room); err != nil {
		return nil, err
	}
	logging.Ctx(ctx).Info().Str("session", key).Uint("room_id", room.ID).Msg("chat room created")
	return room, nil
}

// byUserID fails with storage.ErrUserNotFound when the user does not
// exist: without a session key there is nothing to fall back to.
func (r *RoomResolver) byUserID(ctx context.Context, userID uint) (*models.ChatRoom, error) {
	room, err := r.st.GetRoomByUserID(ctx, userID)
	if err == nil {
		return room, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	user, err := r.st.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := r.now()
	room = &models.ChatRoom{UserID: &user.ID, User: user, CreatedAt: now, UpdatedAt: now}
	if err := r.st.CreateRoom(ctx, room); err != nil {
		return nil, err
	}
	room.User = user
	logging.Ctx(ctx).Info().Uint("user_id", userID).Uint("room_id", room.ID).Msg("chat room created")
	return room, nil
}

// bind attaches userID to a guest room. An unknown user, an admin, or a
// user already bound to another room is skipped and the room stays a
// guest room.
func (r *RoomResolver) bind(ctx context.Context, room *models.ChatRoom, userID uint) error {
	user, err := r.st.GetUserByID(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		logging.Ctx(ctx).Debug().Uint("user_id", userID).Msg("unknown user, room stays guest")
		return nil
	}
	if err != nil {
		return err
	}
	if user.IsAdmin() {
		logging.Ctx(ctx).Debug().Uint("user_id", userID).Msg("admin reply, room stays unbound")
		return nil
	}

	other, err := r.st.GetRoomByUserID(ctx, userID)
	switch {
	case err == nil && other.ID != room.ID:
		logging.Ctx(ctx).Debug().Uint("user_id", userID).Uint("bound_room", other.ID).Msg("user already has a room, not binding")
		return nil
	case err != nil && !errors.Is(err, storage.ErrNotFound):
		return err
	}

	room.UserID = &user.ID
	room.User = user
	logging.Ctx(ctx).Info().Uint("user_id", userID).Uint("room_id", room.ID).Msg("user bound to chat room")
	return nil
}
