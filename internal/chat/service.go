package chat

import (
	"context"
	"errors"
	"time"

	"camerashop/backend/internal/config"
	"camerashop/backend/internal/logging"
	"camerashop/backend/internal/metrics"
	"camerashop/backend/internal/models"
	"camerashop/backend/internal/storage"
	"camerashop/backend/internal/validation"
)

// Service is the chat core used by the socket hub, the HTTP handlers and
// the admin CLI.
type Service struct {
	store storage.Storage
	gate  *NotificationGate
	now   func() time.Time
}

func NewService(store storage.Storage, notifier Enqueuer) *Service {
	return &Service{
		store: store,
		gate:  NewNotificationGate(notifier),
		now:   time.Now,
	}
}

// SaveMessage resolves the sender's room and appends the message in one
// transaction, then runs the notification gate. userID is the
// authenticated sender, nil for guests.
func (s *Service) SaveMessage(ctx context.Context, dto models.ChatMessageDTO, userID *uint) (*models.ChatMessage, *models.ChatRoom, error) {
	if err := validation.ValidateStruct(&dto); err != nil {
		return nil, nil, err
	}
	if keyUser, ok := config.ParseUserRoomKey(dto.SessionID); ok && dto.Sender != config.SenderAdmin {
		if userID == nil || *userID != keyUser {
			return nil, nil, ErrForeignUserRoom
		}
	}

	var (
		msg  *models.ChatMessage
		room *models.ChatRoom
	)
	err := s.store.Transaction(ctx, func(tx storage.Storage) error {
		var err error
		room, err = NewRoomResolver(tx, s.now).Resolve(ctx, Identity{SessionKey: dto.SessionID, UserID: userID})
		if err != nil {
			return err
		}
		msg, err = NewMessageStore(tx, s.now).Append(ctx, room, dto.Sender, dto.Message)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	metrics.RecordMessage(msg.Sender)
	logging.Ctx(ctx).Debug().Uint("message_id", msg.ID).Uint("room_id", room.ID).Str("sender", msg.Sender).Msg("chat message stored")

	s.gate.MaybeNotify(ctx, msg, room)
	return msg, room, nil
}

func (s *Service) MarkSeen(ctx context.Context, messageID uint) error {
	return NewMessageStore(s.store, s.now).MarkSeen(ctx, messageID)
}

func (s *Service) CountUnread(ctx context.Context, room *models.ChatRoom) (int64, error) {
	return NewMessageStore(s.store, s.now).CountUnread(ctx, room)
}

// HistoryBySession pages the history of the room with the topic key: a
// guest session key or "user-<id>".
func (s *Service) HistoryBySession(ctx context.Context, key string, page models.PageRequest) (models.Page[models.ChatMessageEvent], error) {
	room, err := NewRoomResolver(s.store, s.now).Lookup(ctx, key)
	if err != nil {
		return models.Page[models.ChatMessageEvent]{}, err
	}
	return NewMessageStore(s.store, s.now).History(ctx, room, s.normalize(page))
}

// HistoryForUser pages the history of the room bound to the user.
func (s *Service) HistoryForUser(ctx context.Context, userID uint, page models.PageRequest) (models.Page[models.ChatMessageEvent], error) {
	room, err := s.store.GetRoomByUserID(ctx, userID)
	if err != nil {
		return models.Page[models.ChatMessageEvent]{}, err
	}
	return NewMessageStore(s.store, s.now).History(ctx, room, s.normalize(page))
}

// ListRooms pages rooms for the admin, most recently active first, with
// their unread counts.
func (s *Service) ListRooms(ctx context.Context, filter storage.RoomFilter, page models.PageRequest) (models.Page[models.ChatRoomResponse], error) {
	page = s.normalize(page)
	rooms, total, err := s.store.ListRooms(ctx, filter, page)
	if err != nil {
		return models.Page[models.ChatRoomResponse]{}, err
	}
	ids := make([]uint, 0, len(rooms))
	for i := range rooms {
		ids = append(ids, rooms[i].ID)
	}
	unread, err := s.store.CountUnreadByRooms(ctx, ids, config.SenderUser)
	if err != nil {
		return models.Page[models.ChatRoomResponse]{}, err
	}
	out := make([]models.ChatRoomResponse, 0, len(rooms))
	for i := range rooms {
		out = append(out, models.NewChatRoomResponse(&rooms[i], unread[rooms[i].ID]))
	}
	return models.NewPage(out, page, total), nil
}

// CloseRoom closes the room with the topic key. Closed rooms keep their
// history and still resolve for later messages.
func (s *Service) CloseRoom(ctx context.Context, key string) error {
	room, err := NewRoomResolver(s.store, s.now).Lookup(ctx, key)
	if err != nil {
		return err
	}
	return s.store.CloseRoom(ctx, room.ID)
}

// UnreadBySession counts unread customer messages of the room with the
// topic key.
func (s *Service) UnreadBySession(ctx context.Context, key string) (int64, error) {
	room, err := NewRoomResolver(s.store, s.now).Lookup(ctx, key)
	if err != nil {
		return 0, err
	}
	return s.CountUnread(ctx, room)
}

func (s *Service) normalize(page models.PageRequest) models.PageRequest {
	return page.Normalize(config.DefaultPageSize, config.MaxPageSize)
}

// IsNotFound reports whether err means a room, message or user is missing.
func IsNotFound(err error) bool {
	return errors.Is(err, storage.ErrNotFound)
}
