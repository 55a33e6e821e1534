package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	apperrors "loginpanel/internal/errors"
	"loginpanel/internal/logger"
	"loginpanel/internal/models"
)

// LockoutSettings configures the lockout policy. A Threshold of zero
// disables locking.
type LockoutSettings struct {
	Threshold int
	Window    time.Duration
	Duration  time.Duration
}

// lockoutService derives lockout decisions from the attempt ledger and the
// lock tables. Crossing the threshold materializes a lock row so later checks
// are a single lookup.
type lockoutService struct {
	db       *gorm.DB
	ledger   AttemptServicer
	settings LockoutSettings
	now      func() time.Time
}

// NewLockoutService creates a new LockoutServicer.
func NewLockoutService(db *gorm.DB, ledger AttemptServicer, settings LockoutSettings) LockoutServicer {
	return newLockoutService(db, ledger, settings)
}

func newLockoutService(db *gorm.DB, ledger AttemptServicer, settings LockoutSettings) *lockoutService {
	return &lockoutService{
		db:       db,
		ledger:   ledger,
		settings: settings,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// IsLockedOut reports whether login must be answered as if it did not exist.
// A nil user means the login matched no account; the honeypot tables are
// consulted with the same rules.
func (s *lockoutService) IsLockedOut(ctx context.Context, user *models.User, login string) (bool, error) {
	now := s.now()

	if user != nil {
		lastUntil, err := latestLock[models.UserAccountLock](ctx, s.db, "user_id", user.ID)
		if err != nil {
			return false, err
		}
		return s.evaluate(ctx, now, lastUntil,
			func(since time.Time) (int64, error) {
				return s.ledger.CountAttemptsSince(ctx, user.ID, since)
			},
			func(until time.Time) error {
				return s.db.WithContext(ctx).Create(&models.UserAccountLock{UserID: user.ID, Until: until}).Error
			},
			"user_id", user.ID,
		)
	}

	lastUntil, err := latestLock[models.UserAccountHoneypotLock](ctx, s.db, "login", login)
	if err != nil {
		return false, err
	}
	return s.evaluate(ctx, now, lastUntil,
		func(since time.Time) (int64, error) {
			return s.ledger.CountHoneypotAttemptsSince(ctx, login, since)
		},
		func(until time.Time) error {
			return s.db.WithContext(ctx).Create(&models.UserAccountHoneypotLock{Login: login, Until: until}).Error
		},
		"honeypot_login", login,
	)
}

// evaluate applies the policy to one subject. Attempts made before the most
// recent lock expired have already been paid for and are not counted again.
func (s *lockoutService) evaluate(
	ctx context.Context,
	now time.Time,
	lastUntil *time.Time,
	count func(since time.Time) (int64, error),
	lock func(until time.Time) error,
	subjectKey, subject string,
) (bool, error) {
	if lastUntil != nil && lastUntil.After(now) {
		return true, nil
	}
	if s.settings.Threshold <= 0 {
		return false, nil
	}

	since := now.Add(-s.settings.Window)
	if lastUntil != nil && lastUntil.After(since) {
		since = *lastUntil
	}

	attempts, err := count(since)
	if err != nil {
		return false, err
	}
	if attempts < int64(s.settings.Threshold) {
		return false, nil
	}

	until := now.Add(s.settings.Duration)
	if err := lock(until); err != nil {
		return false, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	logger.Get().Warnw("login locked out",
		subjectKey, subject,
		"attempts", attempts,
		"until", until,
	)
	return true, nil
}

// SweepExpired deletes locks that expired more than one window ago. Younger
// expired locks are kept because they bound which attempts still count.
func (s *lockoutService) SweepExpired(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-s.settings.Window)
	db := s.db.WithContext(ctx)

	var removed int64
	for _, model := range []interface{}{&models.UserAccountLock{}, &models.UserAccountHoneypotLock{}} {
		res := db.Where("until <= ?", cutoff).Delete(model)
		if res.Error != nil {
			return removed, apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
		}
		removed += res.RowsAffected
	}
	return removed, nil
}

// latestLock returns the expiry of the newest lock whose column equals key,
// or nil when there is none.
func latestLock[T any, PT interface {
	*T
	LockedUntil() time.Time
}](ctx context.Context, db *gorm.DB, column, key string) (*time.Time, error) {
	var locks []T
	err := db.WithContext(ctx).
		Where(column+" = ?", key).
		Order("until DESC").
		Limit(1).
		Find(&locks).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if len(locks) == 0 {
		return nil, nil
	}
	until := PT(&locks[0]).LockedUntil().UTC()
	return &until, nil
}
