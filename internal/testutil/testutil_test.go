package testutil_test

import (
	"encoding/base32"
	"testing"
	"time"

	"loginpanel/internal/errors"
	"loginpanel/internal/models"
	"loginpanel/internal/testutil"
)

func TestSetupTestDB(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	// Verify all tables exist by doing a simple count query on each model.
	var count int64
	for _, table := range []string{
		"users", "passwords", "totps", "totp_tokens", "user_tokens",
		"user_account_locks", "user_account_honeypot_locks",
		"user_login_attempts", "user_login_honeypot_attempts", "audit_logs",
	} {
		if err := db.Table(table).Count(&count).Error; err != nil {
			t.Errorf("table %q should exist after migration: %v", table, err)
		}
	}
}

func TestSetupTestDBIsolated(t *testing.T) {
	a := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, a)
	b := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, b)

	testutil.CreateTestUser(t, a)

	if n := testutil.CountRows(t, b, &models.User{}); n != 0 {
		t.Errorf("expected isolated database, found %d users", n)
	}
}

func TestFixtures(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	user := testutil.CreateTestUser(t, db)
	if user.ID == "" || user.PasswordID == "" || user.TotpID == "" {
		t.Fatalf("expected ids to be assigned, got %+v", user)
	}

	if got := base32.StdEncoding.EncodeToString(testutil.TestTotpSecret); got != "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ" {
		t.Errorf("unexpected fixture secret encoding %q", got)
	}

	challenge := testutil.CreateTestChallenge(t, db, user.ID, time.Now().Add(time.Minute))
	if challenge.ID == "" {
		t.Error("expected challenge id")
	}

	session := testutil.CreateTestSession(t, db, user.ID, nil)
	if session.ExpiresAt != nil {
		t.Error("expected session without expiry")
	}

	testutil.CreateTestAttempts(t, db, user.ID, 3, time.Now())
	if n := testutil.CountRows(t, db, &models.UserLoginAttempt{}); n != 3 {
		t.Errorf("expected 3 attempts, got %d", n)
	}
}

func TestAssertAppError(t *testing.T) {
	err := errors.WithMessage(errors.ErrUserNotFound, "custom message")
	testutil.AssertAppError(t, err, "USER_NOT_FOUND")
}

func TestAssertNoError(t *testing.T) {
	testutil.AssertNoError(t, nil)
}
