package models

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// ErrInvalidStatus is returned when a message would be stored with a status
// outside SENT, DELIVERED and SEEN.
var ErrInvalidStatus = errors.New("invalid message status")

// MessageStatus is the delivery status of a chat message.
type MessageStatus string

const (
	StatusSent      MessageStatus = "SENT"
	StatusDelivered MessageStatus = "DELIVERED"
	StatusSeen      MessageStatus = "SEEN"
)

// CanTransitionTo reports whether a message in status s may move to next.
// SEEN is terminal; re-applying the same status is allowed.
func (s MessageStatus) CanTransitionTo(next MessageStatus) bool {
	switch s {
	case StatusSent:
		return next == StatusSent || next == StatusDelivered || next == StatusSeen
	case StatusDelivered:
		return next == StatusDelivered || next == StatusSeen
	case StatusSeen:
		return next == StatusSeen
	}
	return false
}

func (s MessageStatus) Valid() bool {
	return s == StatusSent || s == StatusDelivered || s == StatusSeen
}

// ChatMessage is one message in a room. It is owned by the room and deleted
// with it.
type ChatMessage struct {
	ID     uint          `gorm:"primaryKey" json:"id"`
	RoomID uint          `gorm:"not null;index:idx_room_sent" json:"roomId"`
	Sender string        `gorm:"type:text;not null" json:"sender"`
	Body   string        `gorm:"type:text;not null" json:"message"`
	Status MessageStatus `gorm:"type:text;not null;default:SENT" json:"status"`
	SentAt time.Time     `gorm:"not null;index:idx_room_sent" json:"sentAt"`
}

// BeforeCreate defaults an empty status to SENT and rejects unknown ones.
func (m *ChatMessage) BeforeCreate(tx *gorm.DB) error {
	if m.Status == "" {
		m.Status = StatusSent
	}
	if !m.Status.Valid() {
		return fmt.Errorf("%w %q", ErrInvalidStatus, m.Status)
	}
	return nil
}
