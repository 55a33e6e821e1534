package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"loginpanel/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// TestPassword is the plaintext password of every fixture user.
const TestPassword = "password123"

// TestTotpSecret is the TOTP secret of every fixture user (20 bytes, base32
// "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ").
var TestTotpSecret = []byte("12345678901234567890")

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// CreateTestUser creates a user with a hashed password, a known TOTP secret
// and a unique login.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	return CreateTestUserWithLogin(t, db, fmt.Sprintf("user%d", nextID()))
}

// CreateTestUserWithLogin creates a user with the given login.
func CreateTestUserWithLogin(t *testing.T, db *gorm.DB, login string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Login:    login,
		Email:    login + "@test.com",
		Name:     "Test",
		Surname:  "User",
		Password: &models.Password{Hash: string(hash)},
		Totp:     &models.Totp{Secret: append([]byte(nil), TestTotpSecret...)},
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateTestChallenge creates a challenge token for user valid until until.
func CreateTestChallenge(t *testing.T, db *gorm.DB, userID string, until time.Time) *models.TotpToken {
	t.Helper()

	token := &models.TotpToken{UserID: userID, Until: until.UTC()}
	if err := db.Create(token).Error; err != nil {
		t.Fatalf("failed to create test challenge token: %v", err)
	}
	return token
}

// CreateTestSession creates a session token for user. A nil expiresAt never expires.
func CreateTestSession(t *testing.T, db *gorm.DB, userID string, expiresAt *time.Time) *models.UserToken {
	t.Helper()

	token := &models.UserToken{UserID: userID}
	if expiresAt != nil {
		at := expiresAt.UTC()
		token.ExpiresAt = &at
	}
	if err := db.Create(token).Error; err != nil {
		t.Fatalf("failed to create test session token: %v", err)
	}
	return token
}

// CreateTestAttempts records n failed attempts against user at the given time.
func CreateTestAttempts(t *testing.T, db *gorm.DB, userID string, n int, at time.Time) {
	t.Helper()

	for i := 0; i < n; i++ {
		attempt := &models.UserLoginAttempt{UserID: userID, AttemptedAt: at.UTC()}
		if err := db.Create(attempt).Error; err != nil {
			t.Fatalf("failed to create test login attempt: %v", err)
		}
	}
}

// CreateTestHoneypotAttempts records n attempts against login at the given time.
func CreateTestHoneypotAttempts(t *testing.T, db *gorm.DB, login string, n int, at time.Time) {
	t.Helper()

	for i := 0; i < n; i++ {
		attempt := &models.UserLoginHoneypotAttempt{Login: login, AttemptedAt: at.UTC()}
		if err := db.Create(attempt).Error; err != nil {
			t.Fatalf("failed to create test honeypot attempt: %v", err)
		}
	}
}
