package storagetest

import (
	"context"
	"time"

	"camerashop/backend/internal/models"
	"camerashop/backend/internal/storage"

	"github.com/stretchr/testify/mock"
)

// MockStorage is a testify mock of storage.Storage. Transaction records
// the call and then runs fn against the mock itself.
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) Transaction(ctx context.Context, fn func(tx storage.Storage) error) error {
	args := m.Called(ctx)
	if err := args.Error(0); err != nil {
		return err
	}
	return fn(m)
}

func (m *MockStorage) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// User operations
func (m *MockStorage) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockStorage) SaveUser(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockStorage) SetUserPresence(ctx context.Context, id uint, online bool, lastSeen *time.Time) error {
	args := m.Called(ctx, id, online, lastSeen)
	return args.Error(0)
}

// Room operations
func (m *MockStorage) GetRoomBySessionKey(ctx context.Context, key string) (*models.ChatRoom, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ChatRoom), args.Error(1)
}

func (m *MockStorage) GetRoomByUserID(ctx context.Context, userID uint) (*models.ChatRoom, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ChatRoom), args.Error(1)
}

func (m *MockStorage) CreateRoom(ctx context.Context, room *models.ChatRoom) error {
	args := m.Called(ctx, room)
	return args.Error(0)
}

func (m *MockStorage) SaveRoom(ctx context.Context, room *models.ChatRoom) error {
	args := m.Called(ctx, room)
	return args.Error(0)
}

func (m *MockStorage) CloseRoom(ctx context.Context, roomID uint) error {
	args := m.Called(ctx, roomID)
	return args.Error(0)
}

func (m *MockStorage) ListRooms(ctx context.Context, filter storage.RoomFilter, page models.PageRequest) ([]models.ChatRoom, int64, error) {
	args := m.Called(ctx, filter, page)
	rooms, _ := args.Get(0).([]models.ChatRoom)
	return rooms, args.Get(1).(int64), args.Error(2)
}

// Message operations
func (m *MockStorage) SaveMessage(ctx context.Context, msg *models.ChatMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockStorage) GetMessageByID(ctx context.Context, id uint) (*models.ChatMessage, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ChatMessage), args.Error(1)
}

func (m *MockStorage) UpdateMessageStatus(ctx context.Context, id uint, status models.MessageStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockStorage) CountUnread(ctx context.Context, roomID uint, sender string) (int64, error) {
	args := m.Called(ctx, roomID, sender)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStorage) CountUnreadByRooms(ctx context.Context, roomIDs []uint, sender string) (map[uint]int64, error) {
	args := m.Called(ctx, roomIDs, sender)
	counts, _ := args.Get(0).(map[uint]int64)
	return counts, args.Error(1)
}

func (m *MockStorage) ListMessages(ctx context.Context, roomID uint, page models.PageRequest) ([]models.ChatMessage, int64, error) {
	args := m.Called(ctx, roomID, page)
	msgs, _ := args.Get(0).([]models.ChatMessage)
	return msgs, args.Get(1).(int64), args.Error(2)
}

var _ storage.Storage = (*MockStorage)(nil)
