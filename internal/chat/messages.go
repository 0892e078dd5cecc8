package chat

import (
	"context"
	"fmt"
	"time"

	"camerashop/backend/internal/config"
	"camerashop/backend/internal/models"
	"camerashop/backend/internal/storage"
)

// MessageStore appends messages to rooms and tracks their delivery status.
type MessageStore struct {
	st  storage.Storage
	now func() time.Time
}

func NewMessageStore(st storage.Storage, now func() time.Time) *MessageStore {
	if now == nil {
		now = time.Now
	}
	return &MessageStore{st: st, now: now}
}

// Append stores a SENT message and returns it with its generated id.
func (s *MessageStore) Append(ctx context.Context, room *models.ChatRoom, sender, body string) (*models.ChatMessage, error) {
	msg := &models.ChatMessage{
		RoomID: room.ID,
		Sender: sender,
		Body:   body,
		Status: models.StatusSent,
		SentAt: s.now(),
	}
	if err := s.st.SaveMessage(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// MarkSeen moves a message to SEEN. Marking a SEEN message again rewrites
// the same status.
func (s *MessageStore) MarkSeen(ctx context.Context, id uint) error {
	msg, err := s.st.GetMessageByID(ctx, id)
	if err != nil {
		return err
	}
	if !msg.Status.CanTransitionTo(models.StatusSeen) {
		return fmt.Errorf("message %d: cannot move from %s to %s", id, msg.Status, models.StatusSeen)
	}
	return s.st.UpdateMessageStatus(ctx, id, models.StatusSeen)
}

// CountUnread counts USER-authored messages in the room that are not SEEN.
// Admin messages never count.
func (s *MessageStore) CountUnread(ctx context.Context, room *models.ChatRoom) (int64, error) {
	return s.st.CountUnread(ctx, room.ID, config.SenderUser)
}

// History returns one page of the room's messages, oldest first.
func (s *MessageStore) History(ctx context.Context, room *models.ChatRoom, page models.PageRequest) (models.Page[models.ChatMessageEvent], error) {
	msgs, total, err := s.st.ListMessages(ctx, room.ID, page)
	if err != nil {
		return models.Page[models.ChatMessageEvent]{}, err
	}
	key := room.TopicKey()
	return models.MapPage(models.NewPage(msgs, page, total), func(m models.ChatMessage) models.ChatMessageEvent {
		return models.NewChatMessageEvent(&m, key)
	}), nil
}
