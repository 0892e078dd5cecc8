package chat

import (
	"context"

	"camerashop/backend/internal/config"
	"camerashop/backend/internal/logging"
	"camerashop/backend/internal/metrics"
	"camerashop/backend/internal/models"
	"camerashop/backend/internal/notify"
)

// Enqueuer accepts a notification without blocking.
type Enqueuer interface {
	Enqueue(n notify.Notification) bool
}

// NotificationGate decides whether a stored message warrants an email to
// the room's user.
type NotificationGate struct {
	notifier Enqueuer
}

func NewNotificationGate(notifier Enqueuer) *NotificationGate {
	return &NotificationGate{notifier: notifier}
}

// ShouldNotify holds only for ADMIN messages in a room bound to a user who
// is offline.
func ShouldNotify(msg *models.ChatMessage, room *models.ChatRoom) bool {
	return msg.Sender == config.SenderAdmin &&
		room.User != nil &&
		!room.User.Online
}

// MaybeNotify hands the notification to the dispatcher and returns at once.
// It reports whether a notification was queued.
func (g *NotificationGate) MaybeNotify(ctx context.Context, msg *models.ChatMessage, room *models.ChatRoom) bool {
	if !ShouldNotify(msg, room) {
		metrics.RecordNotification(metrics.NotificationSkipped)
		return false
	}
	if room.User.Email == "" {
		logging.Ctx(ctx).Warn().Uint("user_id", room.User.ID).Msg("offline user has no email, skipping notification")
		metrics.RecordNotification(metrics.NotificationSkipped)
		return false
	}
	return g.notifier.Enqueue(notify.Notification{
		To:      room.User.Email,
		Name:    room.User.FullName,
		Preview: msg.Body,
		RoomKey: room.TopicKey(),
	})
}
