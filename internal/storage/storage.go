package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"camerashop/backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrNotFound is matched by every record-level not-found error below.
	ErrNotFound        = errors.New("not found")
	ErrRoomNotFound    = fmt.Errorf("chat room %w", ErrNotFound)
	ErrMessageNotFound = fmt.Errorf("chat message %w", ErrNotFound)
	ErrUserNotFound    = fmt.Errorf("user %w", ErrNotFound)
)

// RoomFilter narrows the admin room listing. A nil Closed lists all rooms.
type RoomFilter struct {
	Closed *bool
}

type Storage interface {
	// Transaction runs fn against a Storage bound to one database
	// transaction. fn's error rolls the transaction back.
	Transaction(ctx context.Context, fn func(tx Storage) error) error
	Ping(ctx context.Context) error

	GetUserByID(ctx context.Context, id uint) (*models.User, error)
	SaveUser(ctx context.Context, user *models.User) error
	SetUserPresence(ctx context.Context, id uint, online bool, lastSeen *time.Time) error

	GetRoomBySessionKey(ctx context.Context, key string) (*models.ChatRoom, error)
	GetRoomByUserID(ctx context.Context, userID uint) (*models.ChatRoom, error)
	CreateRoom(ctx context.Context, room *models.ChatRoom) error
	SaveRoom(ctx context.Context, room *models.ChatRoom) error
	CloseRoom(ctx context.Context, roomID uint) error
	ListRooms(ctx context.Context, filter RoomFilter, page models.PageRequest) ([]models.ChatRoom, int64, error)

	SaveMessage(ctx context.Context, msg *models.ChatMessage) error
	GetMessageByID(ctx context.Context, id uint) (*models.ChatMessage, error)
	UpdateMessageStatus(ctx context.Context, id uint, status models.MessageStatus) error
	CountUnread(ctx context.Context, roomID uint, sender string) (int64, error)
	CountUnreadByRooms(ctx context.Context, roomIDs []uint, sender string) (map[uint]int64, error)
	ListMessages(ctx context.Context, roomID uint, page models.PageRequest) ([]models.ChatMessage, int64, error)
}

type Service struct {
	DB *gorm.DB
}

// NewStorageService Constructor
func NewStorageService(db *gorm.DB) *Service {
	return &Service{DB: db}
}

// AutoMigrate creates or updates the chat tables.
func (s *Service) AutoMigrate() error {
	return s.DB.AutoMigrate(&models.User{}, &models.ChatRoom{}, &models.ChatMessage{})
}

func (s *Service) Transaction(ctx context.Context, fn func(tx Storage) error) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Service{DB: tx})
	})
}

func (s *Service) Ping(ctx context.Context) error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Service) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := s.DB.WithContext(ctx).First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}
	return &user, nil
}

func (s *Service) SaveUser(ctx context.Context, user *models.User) error {
	return s.DB.WithContext(ctx).Save(user).Error
}

// SetUserPresence writes only the presence columns so it never races other
// profile updates.
func (s *Service) SetUserPresence(ctx context.Context, id uint, online bool, lastSeen *time.Time) error {
	updates := map[string]interface{}{"online": online}
	if lastSeen != nil {
		updates["last_seen"] = *lastSeen
	}
	res := s.DB.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("set presence for user %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (s *Service) GetRoomBySessionKey(ctx context.Context, key string) (*models.ChatRoom, error) {
	return s.findRoom(ctx, "session_key = ?", key)
}

// GetRoomByUserID returns the oldest room bound to the user.
func (s *Service) GetRoomByUserID(ctx context.Context, userID uint) (*models.ChatRoom, error) {
	return s.findRoom(ctx, "user_id = ?", userID)
}

func (s *Service) findRoom(ctx context.Context, query string, arg interface{}) (*models.ChatRoom, error) {
	var room models.ChatRoom
	err := s.DB.WithContext(ctx).
		Preload("User").
		Where(query, arg).
		Order("id asc").
		First(&room).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find room: %w", err)
	}
	return &room, nil
}

// CreateRoom inserts room. When another writer created a room with the same
// session key first, room is overwritten with the existing row.
func (s *Service) CreateRoom(ctx context.Context, room *models.ChatRoom) error {
	res := s.DB.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "session_key"}}, DoNothing: true}).
		Create(room)
	if res.Error != nil {
		return fmt.Errorf("create room: %w", res.Error)
	}
	if res.RowsAffected == 0 && room.SessionKey != nil {
		existing, err := s.GetRoomBySessionKey(ctx, *room.SessionKey)
		if err != nil {
			return err
		}
		*room = *existing
	}
	return nil
}

func (s *Service) SaveRoom(ctx context.Context, room *models.ChatRoom) error {
	return s.DB.WithContext(ctx).Omit(clause.Associations).Save(room).Error
}

// CloseRoom marks a room closed. Closing is one-way.
func (s *Service) CloseRoom(ctx context.Context, roomID uint) error {
	res := s.DB.WithContext(ctx).Model(&models.ChatRoom{}).
		Where("id = ?", roomID).
		Updates(map[string]interface{}{
			"closed":     true,
			"updated_at": gorm.Expr("NOW()"),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrRoomNotFound
	}
	return nil
}

func (s *Service) ListRooms(ctx context.Context, filter RoomFilter, page models.PageRequest) ([]models.ChatRoom, int64, error) {
	q := s.DB.WithContext(ctx).Model(&models.ChatRoom{})
	if filter.Closed != nil {
		q = q.Where("closed = ?", *filter.Closed)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count rooms: %w", err)
	}

	var rooms []models.ChatRoom
	err := q.Preload("User").
		Scopes(paginate(page)).
		Order("updated_at desc").
		Order("id desc").
		Find(&rooms).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list rooms: %w", err)
	}
	return rooms, total, nil
}

func (s *Service) SaveMessage(ctx context.Context, msg *models.ChatMessage) error {
	if err := s.DB.WithContext(ctx).Create(msg).Error; err != nil {
		return fmt.Errorf("save message for room %d: %w", msg.RoomID, err)
	}
	return nil
}

func (s *Service) GetMessageByID(ctx context.Context, id uint) (*models.ChatMessage, error) {
	var msg models.ChatMessage
	err := s.DB.WithContext(ctx).First(&msg, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrMessageNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get message %d: %w", id, err)
	}
	return &msg, nil
}

func (s *Service) UpdateMessageStatus(ctx context.Context, id uint, status models.MessageStatus) error {
	if !status.Valid() {
		return fmt.Errorf("update message %d: %w %q", id, models.ErrInvalidStatus, status)
	}
	res := s.DB.WithContext(ctx).Model(&models.ChatMessage{}).
		Where("id = ?", id).
		Update("status", status)
	if res.Error != nil {
		return fmt.Errorf("update message %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrMessageNotFound
	}
	return nil
}

// CountUnread counts messages in the room from sender that are not SEEN.
func (s *Service) CountUnread(ctx context.Context, roomID uint, sender string) (int64, error) {
	var n int64
	err := s.DB.WithContext(ctx).Model(&models.ChatMessage{}).
		Where("room_id = ? AND sender = ? AND status <> ?", roomID, sender, models.StatusSeen).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("count unread for room %d: %w", roomID, err)
	}
	return n, nil
}

// CountUnreadByRooms is CountUnread for many rooms in one grouped query.
// Rooms without unread messages are absent from the map.
func (s *Service) CountUnreadByRooms(ctx context.Context, roomIDs []uint, sender string) (map[uint]int64, error) {
	out := make(map[uint]int64, len(roomIDs))
	if len(roomIDs) == 0 {
		return out, nil
	}
	var rows []struct {
		RoomID uint
		N      int64
	}
	err := s.DB.WithContext(ctx).Model(&models.ChatMessage{}).
		Select("room_id, count(*) AS n").
		Where("room_id IN ? AND sender = ? AND status <> ?", roomIDs, sender, models.StatusSeen).
		Group("room_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("count unread for %d rooms: %w", len(roomIDs), err)
	}
	for _, r := range rows {
		out[r.RoomID] = r.N
	}
	return out, nil
}

// ListMessages returns one page of the room's history, oldest first.
func (s *Service) ListMessages(ctx context.Context, roomID uint, page models.PageRequest) ([]models.ChatMessage, int64, error) {
	q := s.DB.WithContext(ctx).Model(&models.ChatMessage{}).
		Where("room_id = ?", roomID).
		Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count messages for room %d: %w", roomID, err)
	}

	var msgs []models.ChatMessage
	err := q.Scopes(paginate(page)).
		Order("sent_at asc").
		Order("id asc").
		Find(&msgs).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list messages for room %d: %w", roomID, err)
	}
	return msgs, total, nil
}
