package models

import (
	"time"

	"gorm.io/gorm"
)

// Role is the authorization role carried by a user and in its tokens.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// User is an authenticated shop customer or administrator. Only the fields
// the chat needs are modeled here.
type User struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	FullName string `gorm:"type:text;not null;uniqueIndex" json:"fullName"`
	Password string `gorm:"type:text" json:"-"`
	Email    string `gorm:"type:text;not null" json:"email"`
	Role     Role   `gorm:"type:text;not null" json:"role"`

	// Presence, driven by socket connect/disconnect.
	Online   bool       `gorm:"not null;default:false" json:"online"`
	LastSeen *time.Time `json:"lastSeen,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}

// BeforeCreate defaults the role of new users to USER.
func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.Role == "" {
		u.Role = RoleUser
	}
	return
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}
