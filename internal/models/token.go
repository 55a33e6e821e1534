package models

import (
	"time"

	"loginpanel/internal/uuid"

	"gorm.io/gorm"
)

// TotpToken is the short-lived challenge issued after a correct password and
// consumed by a correct TOTP code.
type TotpToken struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    string    `gorm:"type:uuid;not null;index" json:"user_id"`
	User      *User     `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Until     time.Time `gorm:"not null;index" json:"until"`
	CreatedAt time.Time `json:"created_at"`
}

// BeforeCreate assigns a random, non-sequential identifier.
func (t *TotpToken) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewToken()
	}
	return nil
}

// UserToken is a session bearer token. A nil ExpiresAt never expires.
type UserToken struct {
	ID        string     `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    string     `gorm:"type:uuid;not null;index" json:"user_id"`
	User      *User      `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	ExpiresAt *time.Time `gorm:"index" json:"expires_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// BeforeCreate assigns a random, non-sequential identifier.
func (t *UserToken) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewToken()
	}
	return nil
}

// Expired reports whether the session is past its expiry at now.
func (t *UserToken) Expired(now time.Time) bool {
	return t.ExpiresAt != nil && !t.ExpiresAt.After(now)
}
