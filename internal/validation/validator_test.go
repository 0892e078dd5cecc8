package validation

import (
	"errors"
	"strings"
	"testing"

	"camerashop/backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateStruct_ChatMessage(t *testing.T) {
	assert.NoError(t, ValidateStruct(&models.ChatMessageDTO{SessionID: "abc", Sender: "USER", Message: "Hello"}))
	assert.NoError(t, ValidateStruct(&models.ChatMessageDTO{Sender: "USER", Message: "no session is fine"}))

	err := ValidateStruct(&models.ChatMessageDTO{SessionID: strings.Repeat("x", 200)})
	require.Error(t, err)

	var verr *Error
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "must not be blank", verr.Fields["sender"])
	assert.Equal(t, "must not be blank", verr.Fields["message"])
	assert.Equal(t, "must be at most 128 characters", verr.Fields["sessionId"])
}

func TestValidateStruct_PageRequest(t *testing.T) {
	assert.NoError(t, ValidateStruct(&models.PageRequest{Page: 0, Size: 20}))

	err := ValidateStruct(&models.PageRequest{Page: -1, Size: 101})
	var verr *Error
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "must be at least 0", verr.Fields["page"])
	assert.Equal(t, "must be at most 100", verr.Fields["size"])
}

func TestError_MessageIsSorted(t *testing.T) {
	err := &Error{Fields: map[string]string{"b": "two", "a": "one"}}
	assert.Equal(t, "a: one; b: two", err.Error())
	assert.Equal(t, "validation failed", (&Error{}).Error())
}
