package config

import (
	"strconv"
	"strings"
	"time"
)

const (
	// Sender labels
	SenderUser  = "USER"
	SenderAdmin = "ADMIN"

	// STOMP application destinations
	AppChatSend   = "/app/chat.send"
	AppChatTyping = "/app/chat.typing"

	// Topic prefixes, the room key is appended
	ChatTopicPrefix   = "/topic/chat/"
	TypingTopicPrefix = "/topic/typing/"

	// Room key of a room that only has a bound user, followed by the user id
	userRoomKeyPrefix = "user-"

	// Handshake query parameter carrying the optional JWT
	TokenQueryParam = "token"

	// Pagination
	DefaultPageSize = 20
	MaxPageSize     = 100

	// Token revocation key prefix in Redis
	RevokedTokenPrefix = "revoked:"
)

// Socket timings
const (
	WriteWait      = 10 * time.Second
	PongWait       = 60 * time.Second
	PingPeriod     = (PongWait * 9) / 10
	MaxMessageSize = 16 * 1024
)

// ChatTopic returns the message topic for a room key.
func ChatTopic(roomKey string) string {
	return ChatTopicPrefix + roomKey
}

// TypingTopic returns the typing-indicator topic for a room key.
func TypingTopic(roomKey string) string {
	return TypingTopicPrefix + roomKey
}

// UserRoomKey is the synthesized room key for rooms without a session key.
func UserRoomKey(userID uint) string {
	return userRoomKeyPrefix + strconv.FormatUint(uint64(userID), 10)
}

// ParseUserRoomKey is the inverse of UserRoomKey.
func ParseUserRoomKey(key string) (uint, bool) {
	rest, ok := strings.CutPrefix(key, userRoomKeyPrefix)
	if !ok || rest == "" {
		return 0, false
	}
	id, err := strconv.ParseUint(rest, 10, 0)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
