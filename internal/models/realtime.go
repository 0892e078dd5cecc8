package models

import "time"

// ChatMessageDTO is the body of a SEND to /app/chat.send.
type ChatMessageDTO struct {
	SessionID string `json:"sessionId" validate:"omitempty,max=128"`
	Sender    string `json:"sender" validate:"required,max=32"`
	Message   string `json:"message" validate:"required,max=4000"`
}

// TypingEventDTO is the body of a SEND to /app/chat.typing.
type TypingEventDTO struct {
	SessionID string `json:"sessionId" validate:"omitempty,max=128"`
	Sender    string `json:"sender" validate:"required,max=32"`
	Typing    bool   `json:"typing"`
}

// ChatMessageEvent is published to room topics and returned by history reads.
type ChatMessageEvent struct {
	ID         uint          `json:"id"`
	SessionKey string        `json:"sessionKey"`
	Sender     string        `json:"sender"`
	Text       string        `json:"text"`
	Status     MessageStatus `json:"status"`
	Timestamp  time.Time     `json:"timestamp"`
}

// NewChatMessageEvent renders msg for the topic keyed by key.
func NewChatMessageEvent(msg *ChatMessage, key string) ChatMessageEvent {
	return ChatMessageEvent{
		ID:         msg.ID,
		SessionKey: key,
		Sender:     msg.Sender,
		Text:       msg.Body,
		Status:     msg.Status,
		Timestamp:  msg.SentAt,
	}
}

// TypingEvent is a transient typing indicator; it is never stored.
type TypingEvent struct {
	SessionKey string `json:"sessionKey"`
	Sender     string `json:"sender"`
	Typing     bool   `json:"typing"`
}
