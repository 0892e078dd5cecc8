// Package storagetest provides an in-memory storage.Storage for tests.
package storagetest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"camerashop/backend/internal/models"
	"camerashop/backend/internal/storage"
)

// Memory is a goroutine-safe in-memory storage.Storage. Transactions are
// serialized and roll back by restoring a snapshot.
type Memory struct {
	txMu sync.Mutex
	mu   sync.Mutex

	users    map[uint]models.User
	rooms    map[uint]models.ChatRoom
	messages map[uint]models.ChatMessage
	nextID   uint

	unreadQueries int

	// SaveMessageErr, when set, is returned by SaveMessage.
	SaveMessageErr error
	// PresenceErr, when set, is returned by SetUserPresence.
	PresenceErr error
}

func NewMemory() *Memory {
	return &Memory{
		users:    make(map[uint]models.User),
		rooms:    make(map[uint]models.ChatRoom),
		messages: make(map[uint]models.ChatMessage),
	}
}

// AddUser stores u, assigning an id when u.ID is zero, and returns the id.
func (m *Memory) AddUser(u models.User) uint {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID == 0 {
		u.ID = m.id()
	}
	if u.Role == "" {
		u.Role = models.RoleUser
	}
	m.users[u.ID] = u
	return u.ID
}

func (m *Memory) User(id uint) (models.User, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	return u, ok
}

func (m *Memory) RoomCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rooms)
}

func (m *Memory) MessageCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.messages)
}

// UnreadQueries reports how many unread count queries have been served.
func (m *Memory) UnreadQueries() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.unreadQueries
}

func (m *Memory) id() uint {
	m.nextID++
	return m.nextID
}

type snapshot struct {
	users    map[uint]models.User
	rooms    map[uint]models.ChatRoom
	messages map[uint]models.ChatMessage
	nextID   uint
}

func (m *Memory) snapshot() snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := snapshot{
		users:    make(map[uint]models.User, len(m.users)),
		rooms:    make(map[uint]models.ChatRoom, len(m.rooms)),
		messages: make(map[uint]models.ChatMessage, len(m.messages)),
		nextID:   m.nextID,
	}
	for k, v := range m.users {
		s.users[k] = v
	}
	for k, v := range m.rooms {
		s.rooms[k] = v
	}
	for k, v := range m.messages {
		s.messages[k] = v
	}
	return s
}

func (m *Memory) restore(s snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users, m.rooms, m.messages, m.nextID = s.users, s.rooms, s.messages, s.nextID
}

func (m *Memory) Transaction(ctx context.Context, fn func(tx storage.Storage) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()
	snap := m.snapshot()
	if err := fn(m); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

func (m *Memory) Ping(ctx context.Context) error { return nil }

func (m *Memory) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, storage.ErrUserNotFound
	}
	return &u, nil
}

func (m *Memory) SaveUser(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if user.ID == 0 {
		user.ID = m.id()
	}
	m.users[user.ID] = *user
	return nil
}

func (m *Memory) SetUserPresence(ctx context.Context, id uint, online bool, lastSeen *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PresenceErr != nil {
		return m.PresenceErr
	}
	u, ok := m.users[id]
	if !ok {
		return storage.ErrUserNotFound
	}
	u.Online = online
	if lastSeen != nil {
		t := *lastSeen
		u.LastSeen = &t
	}
	m.users[id] = u
	return nil
}

// withUser returns a copy of r with User loaded. Callers hold m.mu.
func (m *Memory) withUser(r models.ChatRoom) *models.ChatRoom {
	r.User = nil
	if r.UserID != nil {
		if u, ok := m.users[*r.UserID]; ok {
			r.User = &u
		}
	}
	return &r
}

func (m *Memory) findRoom(match func(models.ChatRoom) bool) (*models.ChatRoom, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var found *models.ChatRoom
	for _, r := range m.rooms {
		if match(r) && (found == nil || r.ID < found.ID) {
			found = m.withUser(r)
		}
	}
	if found == nil {
		return nil, storage.ErrRoomNotFound
	}
	return found, nil
}

func (m *Memory) GetRoomBySessionKey(ctx context.Context, key string) (*models.ChatRoom, error) {
	return m.findRoom(func(r models.ChatRoom) bool {
		return r.SessionKey != nil && *r.SessionKey == key
	})
}

func (m *Memory) GetRoomByUserID(ctx context.Context, userID uint) (*models.ChatRoom, error) {
	return m.findRoom(func(r models.ChatRoom) bool {
		return r.UserID != nil && *r.UserID == userID
	})
}

func (m *Memory) CreateRoom(ctx context.Context, room *models.ChatRoom) error {
	if room.SessionKey != nil {
		if existing, err := m.GetRoomBySessionKey(ctx, *room.SessionKey); err == nil {
			*room = *existing
			return nil
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	room.ID = m.id()
	now := time.Now()
	if room.CreatedAt.IsZero() {
		room.CreatedAt = now
	}
	if room.UpdatedAt.IsZero() {
		room.UpdatedAt = now
	}
	stored := *room
	stored.User = nil
	m.rooms[room.ID] = stored
	return nil
}

func (m *Memory) SaveRoom(ctx context.Context, room *models.ChatRoom) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if room.ID == 0 {
		room.ID = m.id()
	}
	stored := *room
	stored.User = nil
	stored.Messages = nil
	m.rooms[room.ID] = stored
	return nil
}

func (m *Memory) CloseRoom(ctx context.Context, roomID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[roomID]
	if !ok {
		return storage.ErrRoomNotFound
	}
	r.Closed = true
	r.UpdatedAt = time.Now()
	m.rooms[roomID] = r
	return nil
}

func (m *Memory) ListRooms(ctx context.Context, filter storage.RoomFilter, page models.PageRequest) ([]models.ChatRoom, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []models.ChatRoom
	for _, r := range m.rooms {
		if filter.Closed != nil && r.Closed != *filter.Closed {
			continue
		}
		all = append(all, *m.withUser(r))
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].UpdatedAt.Equal(all[j].UpdatedAt) {
			return all[i].UpdatedAt.After(all[j].UpdatedAt)
		}
		return all[i].ID > all[j].ID
	})
	return window(all, page), int64(len(all)), nil
}

func (m *Memory) SaveMessage(ctx context.Context, msg *models.ChatMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveMessageErr != nil {
		return m.SaveMessageErr
	}
	if err := msg.BeforeCreate(nil); err != nil {
		return err
	}
	if msg.ID == 0 {
		msg.ID = m.id()
	}
	m.messages[msg.ID] = *msg
	return nil
}

func (m *Memory) GetMessageByID(ctx context.Context, id uint) (*models.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg, ok := m.messages[id]
	if !ok {
		return nil, storage.ErrMessageNotFound
	}
	return &msg, nil
}

func (m *Memory) UpdateMessageStatus(ctx context.Context, id uint, status models.MessageStatus) error {
	if !status.Valid() {
		return fmt.Errorf("update message %d: %w %q", id, models.ErrInvalidStatus, status)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	msg, ok := m.messages[id]
	if !ok {
		return storage.ErrMessageNotFound
	}
	msg.Status = status
	m.messages[id] = msg
	return nil
}

func (m *Memory) CountUnread(ctx context.Context, roomID uint, sender string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, msg := range m.messages {
		if msg.RoomID == roomID && msg.Sender == sender && msg.Status != models.StatusSeen {
			n++
		}
	}
	m.unreadQueries++
	return n, nil
}

func (m *Memory) CountUnreadByRooms(ctx context.Context, roomIDs []uint, sender string) (map[uint]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	want := make(map[uint]bool, len(roomIDs))
	for _, id := range roomIDs {
		want[id] = true
	}
	out := make(map[uint]int64, len(roomIDs))
	for _, msg := range m.messages {
		if want[msg.RoomID] && msg.Sender == sender && msg.Status != models.StatusSeen {
			out[msg.RoomID]++
		}
	}
	m.unreadQueries++
	return out, nil
}

func (m *Memory) ListMessages(ctx context.Context, roomID uint, page models.PageRequest) ([]models.ChatMessage, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []models.ChatMessage
	for _, msg := range m.messages {
		if msg.RoomID == roomID {
			all = append(all, msg)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].SentAt.Equal(all[j].SentAt) {
			return all[i].SentAt.Before(all[j].SentAt)
		}
		return all[i].ID < all[j].ID
	})
	return window(all, page), int64(len(all)), nil
}

func window[T any](all []T, page models.PageRequest) []T {
	if page.Size <= 0 {
		return all
	}
	start := page.Offset()
	if start >= len(all) {
		return nil
	}
	end := start + page.Size
	if end > len(all) {
		end = len(all)
	}
	return all[start:end]
}

var _ storage.Storage = (*Memory)(nil)
