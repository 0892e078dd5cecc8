package storage

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"camerashop/backend/internal/models"

	"github.com/stretchr/testify/assert"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func TestNotFoundErrors(t *testing.T) {
	for _, err := range []error{ErrRoomNotFound, ErrMessageNotFound, ErrUserNotFound} {
		assert.True(t, errors.Is(err, ErrNotFound), err.Error())
		assert.True(t, errors.Is(fmt.Errorf("wrapped: %w", err), ErrNotFound))
	}
	assert.False(t, errors.Is(ErrRoomNotFound, ErrMessageNotFound))
	assert.Equal(t, "chat room not found", ErrRoomNotFound.Error())
}

func dryRunDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  "host=localhost user=test dbname=test sslmode=disable",
		PreferSimpleProtocol: true,
	}), &gorm.Config{DryRun: true, DisableAutomaticPing: true})
	if err != nil {
		t.Skipf("postgres dialector unavailable: %v", err)
	}
	return db
}

func TestPaginate_AddsLimitOffset(t *testing.T) {
	db := dryRunDB(t)

	stmt := db.Model(&models.ChatMessage{}).
		Scopes(paginate(models.PageRequest{Page: 2, Size: 10})).
		Find(&[]models.ChatMessage{}).Statement

	sql := stmt.SQL.String()
	assert.Contains(t, sql, "LIMIT")
	assert.Contains(t, sql, "OFFSET")
}

func TestPaginate_ZeroSizeIsUnbounded(t *testing.T) {
	db := dryRunDB(t)

	stmt := db.Model(&models.ChatMessage{}).
		Scopes(paginate(models.PageRequest{})).
		Find(&[]models.ChatMessage{}).Statement

	assert.NotContains(t, stmt.SQL.String(), "LIMIT")
}

func TestCountUnreadByRooms_NoRoomsSkipsQuery(t *testing.T) {
	svc := &Service{}

	counts, err := svc.CountUnreadByRooms(context.Background(), nil, "USER")
	assert.NoError(t, err)
	assert.Empty(t, counts)
}

func TestCountUnreadByRooms_DryRun(t *testing.T) {
	svc := &Service{DB: dryRunDB(t)}

	counts, err := svc.CountUnreadByRooms(context.Background(), []uint{1, 2}, "USER")
	assert.NoError(t, err)
	assert.Empty(t, counts)
}

func TestUpdateMessageStatus_RejectsUnknownStatus(t *testing.T) {
	svc := &Service{}

	err := svc.UpdateMessageStatus(context.Background(), 1, "READ")
	assert.ErrorIs(t, err, models.ErrInvalidStatus)
}
