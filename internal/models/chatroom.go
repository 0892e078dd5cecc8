package models

import (
	"fmt"
	"time"
)

// ChatRoom is one conversation thread. It is keyed either by an anonymous
// session key or by a bound user; the user binding is set at most once.
type ChatRoom struct {
	ID         uint    `gorm:"primaryKey" json:"id"`
	SessionKey *string `gorm:"type:text;uniqueIndex" json:"sessionId"`
	UserID     *uint   `gorm:"index" json:"userId"`
	User       *User   `gorm:"constraint:OnDelete:SET NULL" json:"-"`
	Closed     bool    `gorm:"not null;default:false" json:"closed"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// Messages are never loaded through the room; they are read by RoomID.
	Messages []ChatMessage `gorm:"foreignKey:RoomID;constraint:OnDelete:CASCADE" json:"-"`
}

// TopicKey is the key of the room's message and typing topics: the session
// key when there is one, otherwise "user-<id>" for the bound user.
func (r *ChatRoom) TopicKey() string {
	if r.SessionKey != nil && *r.SessionKey != "" {
		return *r.SessionKey
	}
	if r.UserID != nil {
		return fmt.Sprintf("user-%d", *r.UserID)
	}
	return fmt.Sprintf("room-%d", r.ID)
}

// HasUser reports whether a user is bound to the room.
func (r *ChatRoom) HasUser() bool {
	return r.UserID != nil
}

// ChatRoomResponse is the admin listing view of a room.
type ChatRoomResponse struct {
	ID           uint      `json:"id"`
	SessionID    *string   `json:"sessionId"`
	RoomKey      string    `json:"roomKey"`
	Closed       bool      `json:"closed"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
	UserID       *uint     `json:"userId"`
	UserFullName string    `json:"userFullName,omitempty"`
	UserEmail    string    `json:"userEmail,omitempty"`
	UserRole     Role      `json:"userRole,omitempty"`
	UserOnline   bool      `json:"userOnline"`
	UnreadCount  int64     `json:"unreadCount"`
}

// NewChatRoomResponse builds the listing view. room.User may be nil.
func NewChatRoomResponse(room *ChatRoom, unread int64) ChatRoomResponse {
	resp := ChatRoomResponse{
		ID:          room.ID,
		SessionID:   room.SessionKey,
		RoomKey:     room.TopicKey(),
		Closed:      room.Closed,
		CreatedAt:   room.CreatedAt,
		UpdatedAt:   room.UpdatedAt,
		UserID:      room.UserID,
		UnreadCount: unread,
	}
	if room.User != nil {
		resp.UserFullName = room.User.FullName
		resp.UserEmail = room.User.Email
		resp.UserRole = room.User.Role
		resp.UserOnline = room.User.Online
	}
	return resp
}
