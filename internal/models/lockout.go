package models

import "time"

// UserAccountLock blocks logins for an existing user until Until.
type UserAccountLock struct {
	Base
	UserID string    `gorm:"type:uuid;not null;index" json:"user_id"`
	User   *User     `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Until  time.Time `gorm:"not null;index" json:"until"`
}

// LockedUntil returns the lock expiry.
func (l *UserAccountLock) LockedUntil() time.Time { return l.Until }

// UserAccountHoneypotLock blocks logins for a login name that matches no user.
type UserAccountHoneypotLock struct {
	Base
	Login string    `gorm:"not null;index;size:64" json:"login"`
	Until time.Time `gorm:"not null;index" json:"until"`
}

// LockedUntil returns the lock expiry.
func (l *UserAccountHoneypotLock) LockedUntil() time.Time { return l.Until }

// UserLoginAttempt is a failed password attempt against an existing user.
type UserLoginAttempt struct {
	Base
	UserID      string    `gorm:"type:uuid;not null;index:idx_login_attempt_user_time" json:"user_id"`
	User        *User     `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	AttemptedAt time.Time `gorm:"not null;index:idx_login_attempt_user_time" json:"attempted_at"`
}

// UserLoginHoneypotAttempt is a login attempt against a login name that
// matches no user.
type UserLoginHoneypotAttempt struct {
	Base
	Login       string    `gorm:"not null;size:64;index:idx_honeypot_attempt_login_time" json:"login"`
	AttemptedAt time.Time `gorm:"not null;index:idx_honeypot_attempt_login_time" json:"attempted_at"`
}
