package models_test

import (
	"testing"

	"camerashop/backend/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestChatMessageBeforeCreate_DefaultsToSent(t *testing.T) {
	msg := &models.ChatMessage{RoomID: 1, Sender: "USER", Body: "hi"}

	assert.NoError(t, msg.BeforeCreate(nil))
	assert.Equal(t, models.StatusSent, msg.Status)
}

func TestChatMessageBeforeCreate_RejectsUnknownStatus(t *testing.T) {
	msg := &models.ChatMessage{RoomID: 1, Sender: "USER", Body: "hi", Status: "READ"}

	err := msg.BeforeCreate(nil)
	assert.ErrorIs(t, err, models.ErrInvalidStatus)

	for _, s := range []models.MessageStatus{models.StatusSent, models.StatusDelivered, models.StatusSeen} {
		msg.Status = s
		assert.NoError(t, msg.BeforeCreate(nil), s)
	}
}
