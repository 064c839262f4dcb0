package models

import (
	"time"

	"gorm.io/gorm"
)

// User is the local mirror of an account owned by the external account service.
// Rows are upserted from the session principal and may lag by one request.
type User struct {
	ID         string    `gorm:"primaryKey;size:64" json:"id"`
	Username   string    `gorm:"size:64;not null" json:"username"`
	Email      string    `gorm:"size:255" json:"email"`
	Role       string    `gorm:"size:16;not null;default:'user'" json:"role"`
	AvatarURL  string    `gorm:"size:512" json:"avatar_url"`
	ExternalID string    `gorm:"size:64" json:"external_id"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// BeforeCreate hook ensures timestamps are set even when not provided.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	now := time.Now()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	return nil
}
