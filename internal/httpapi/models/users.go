package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID    string `gorm:"primaryKey;type:uuid" json:"id"`
	Email string `gorm:"uniqueIndex;not null" json:"email"`
	Name  string `json:"name"`
	// GoogleID is the OAuth subject id; nil for local accounts.
	GoogleID *string `gorm:"uniqueIndex;size:64" json:"google_id,omitempty"`
	Avatar   string  `json:"avatar,omitempty"`
	// Username/Password are set only for local accounts.
	Username  *string    `gorm:"uniqueIndex;size:64" json:"username,omitempty"`
	Password  *string    `gorm:"column:password_hash" json:"-"` // Not show in JSON
	IsAdmin   bool       `gorm:"default:false" json:"is_admin"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	LastLogin *time.Time `json:"last_login,omitempty"`
}

// BeforeCreate hook to set UUID before creating a User
func (user *User) BeforeCreate(tx *gorm.DB) (err error) {
	// If the ID is not already set, generate a new one.
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	return
}

func (User) TableName() string {
	return "users"
}
