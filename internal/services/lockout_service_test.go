package services

import (
	"context"
	"testing"
	"time"

	"loginpanel/internal/models"
	"loginpanel/internal/testutil"
)

var testLockoutSettings = LockoutSettings{
	Threshold: 3,
	Window:    15 * time.Minute,
	Duration:  10 * time.Minute,
}

func newTestLockoutService(t *testing.T, now time.Time) (*lockoutService, func()) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	svc := newLockoutService(db, newAttemptService(db), testLockoutSettings)
	svc.now = func() time.Time { return now }
	return svc, func() { testutil.TeardownTestDB(t, db) }
}

func TestIsLockedOut(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()

	t.Run("no_attempts", func(t *testing.T) {
		svc, teardown := newTestLockoutService(t, now)
		defer teardown()

		user := testutil.CreateTestUser(t, svc.db)
		locked, err := svc.IsLockedOut(ctx, user, user.Login)
		testutil.AssertNoError(t, err)
		if locked {
			t.Error("expected user without attempts to be unlocked")
		}
	})

	t.Run("below_threshold", func(t *testing.T) {
		svc, teardown := newTestLockoutService(t, now)
		defer teardown()

		user := testutil.CreateTestUser(t, svc.db)
		testutil.CreateTestAttempts(t, svc.db, user.ID, 2, now.Add(-time.Minute))

		locked, err := svc.IsLockedOut(ctx, user, user.Login)
		testutil.AssertNoError(t, err)
		if locked {
			t.Error("expected user below threshold to be unlocked")
		}
		if got := testutil.CountRows(t, svc.db, &models.UserAccountLock{}); got != 0 {
			t.Errorf("expected no lock rows, got %d", got)
		}
	})

	t.Run("threshold_creates_lock", func(t *testing.T) {
		svc, teardown := newTestLockoutService(t, now)
		defer teardown()

		user := testutil.CreateTestUser(t, svc.db)
		testutil.CreateTestAttempts(t, svc.db, user.ID, 3, now.Add(-time.Minute))

		locked, err := svc.IsLockedOut(ctx, user, user.Login)
		testutil.AssertNoError(t, err)
		if !locked {
			t.Fatal("expected user at threshold to be locked")
		}

		var lock models.UserAccountLock
		if err := svc.db.Where("user_id = ?", user.ID).First(&lock).Error; err != nil {
			t.Fatalf("expected lock row: %v", err)
		}
		if want := now.Add(testLockoutSettings.Duration); !lock.Until.Equal(want) {
			t.Errorf("expected lock until %v, got %v", want, lock.Until)
		}
	})

	t.Run("attempts_outside_window_ignored", func(t *testing.T) {
		svc, teardown := newTestLockoutService(t, now)
		defer teardown()

		user := testutil.CreateTestUser(t, svc.db)
		testutil.CreateTestAttempts(t, svc.db, user.ID, 5, now.Add(-time.Hour))

		locked, err := svc.IsLockedOut(ctx, user, user.Login)
		testutil.AssertNoError(t, err)
		if locked {
			t.Error("expected stale attempts to be ignored")
		}
	})

	t.Run("active_lock_holds_without_new_rows", func(t *testing.T) {
		svc, teardown := newTestLockoutService(t, now)
		defer teardown()

		user := testutil.CreateTestUser(t, svc.db)
		if err := svc.db.Create(&models.UserAccountLock{UserID: user.ID, Until: now.Add(time.Minute)}).Error; err != nil {
			t.Fatalf("create lock: %v", err)
		}

		for i := 0; i < 2; i++ {
			locked, err := svc.IsLockedOut(ctx, user, user.Login)
			testutil.AssertNoError(t, err)
			if !locked {
				t.Fatal("expected active lock to hold")
			}
		}
		if got := testutil.CountRows(t, svc.db, &models.UserAccountLock{}); got != 1 {
			t.Errorf("expected a single lock row, got %d", got)
		}
	})

	t.Run("expired_lock_does_not_recount_old_attempts", func(t *testing.T) {
		svc, teardown := newTestLockoutService(t, now)
		defer teardown()

		user := testutil.CreateTestUser(t, svc.db)
		testutil.CreateTestAttempts(t, svc.db, user.ID, 3, now.Add(-12*time.Minute))
		if err := svc.db.Create(&models.UserAccountLock{UserID: user.ID, Until: now.Add(-time.Minute)}).Error; err != nil {
			t.Fatalf("create lock: %v", err)
		}

		locked, err := svc.IsLockedOut(ctx, user, user.Login)
		testutil.AssertNoError(t, err)
		if locked {
			t.Fatal("expected user to be unlocked once the lock expired")
		}

		testutil.CreateTestAttempts(t, svc.db, user.ID, 3, now.Add(-30*time.Second))
		locked, err = svc.IsLockedOut(ctx, user, user.Login)
		testutil.AssertNoError(t, err)
		if !locked {
			t.Error("expected fresh attempts after the lock to relock")
		}
	})

	t.Run("threshold_zero_disables", func(t *testing.T) {
		svc, teardown := newTestLockoutService(t, now)
		defer teardown()
		svc.settings.Threshold = 0

		user := testutil.CreateTestUser(t, svc.db)
		testutil.CreateTestAttempts(t, svc.db, user.ID, 50, now.Add(-time.Minute))

		locked, err := svc.IsLockedOut(ctx, user, user.Login)
		testutil.AssertNoError(t, err)
		if locked {
			t.Error("expected locking to be disabled")
		}
	})

	t.Run("other_users_unaffected", func(t *testing.T) {
		svc, teardown := newTestLockoutService(t, now)
		defer teardown()

		victim := testutil.CreateTestUser(t, svc.db)
		bystander := testutil.CreateTestUser(t, svc.db)
		testutil.CreateTestAttempts(t, svc.db, victim.ID, 3, now.Add(-time.Minute))

		locked, err := svc.IsLockedOut(ctx, bystander, bystander.Login)
		testutil.AssertNoError(t, err)
		if locked {
			t.Error("expected bystander to be unlocked")
		}
	})
}

func TestIsLockedOutHoneypot(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()

	t.Run("same_threshold_as_real_users", func(t *testing.T) {
		svc, teardown := newTestLockoutService(t, now)
		defer teardown()

		testutil.CreateTestHoneypotAttempts(t, svc.db, "ghost", 2, now.Add(-time.Minute))
		locked, err := svc.IsLockedOut(ctx, nil, "ghost")
		testutil.AssertNoError(t, err)
		if locked {
			t.Fatal("expected unknown login below threshold to be unlocked")
		}

		testutil.CreateTestHoneypotAttempts(t, svc.db, "ghost", 1, now.Add(-time.Minute))
		locked, err = svc.IsLockedOut(ctx, nil, "ghost")
		testutil.AssertNoError(t, err)
		if !locked {
			t.Fatal("expected unknown login at threshold to be locked")
		}
		if got := testutil.CountRows(t, svc.db, &models.UserAccountHoneypotLock{}); got != 1 {
			t.Errorf("expected 1 honeypot lock, got %d", got)
		}
		if got := testutil.CountRows(t, svc.db, &models.UserAccountLock{}); got != 0 {
			t.Errorf("expected no user locks, got %d", got)
		}
	})

	t.Run("keyed_by_login", func(t *testing.T) {
		svc, teardown := newTestLockoutService(t, now)
		defer teardown()

		testutil.CreateTestHoneypotAttempts(t, svc.db, "ghost", 3, now.Add(-time.Minute))
		locked, err := svc.IsLockedOut(ctx, nil, "phantom")
		testutil.AssertNoError(t, err)
		if locked {
			t.Error("expected different login to be unlocked")
		}
	})
}

func TestLockoutSweepExpired(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc, teardown := newTestLockoutService(t, now)
	defer teardown()

	user := testutil.CreateTestUser(t, svc.db)
	locks := []interface{}{
		&models.UserAccountLock{UserID: user.ID, Until: now.Add(-time.Hour)},
		&models.UserAccountLock{UserID: user.ID, Until: now.Add(-time.Minute)},
		&models.UserAccountLock{UserID: user.ID, Until: now.Add(time.Minute)},
		&models.UserAccountHoneypotLock{Login: "ghost", Until: now.Add(-time.Hour)},
	}
	for _, lock := range locks {
		if err := svc.db.Create(lock).Error; err != nil {
			t.Fatalf("create lock: %v", err)
		}
	}

	removed, err := svc.SweepExpired(context.Background())
	testutil.AssertNoError(t, err)
	if removed != 2 {
		t.Errorf("expected 2 locks removed, got %d", removed)
	}
	if got := testutil.CountRows(t, svc.db, &models.UserAccountLock{}); got != 2 {
		t.Errorf("expected recently expired and active locks to remain, got %d", got)
	}
}
