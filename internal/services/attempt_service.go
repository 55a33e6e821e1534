package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	apperrors "loginpanel/internal/errors"
	"loginpanel/internal/logger"
	"loginpanel/internal/models"
)

// attemptService is the ledger of failed logins, per user and per unknown
// login name.
type attemptService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewAttemptService creates a new AttemptServicer.
func NewAttemptService(db *gorm.DB) AttemptServicer {
	return newAttemptService(db)
}

func newAttemptService(db *gorm.DB) *attemptService {
	return &attemptService{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// RecordAttempt appends a failed attempt for an existing user. The write
// outlives request cancellation so a client cannot skip it by disconnecting.
// Errors are logged but never propagate.
func (s *attemptService) RecordAttempt(ctx context.Context, userID string) {
	attempt := &models.UserLoginAttempt{UserID: userID, AttemptedAt: s.now()}
	if err := s.db.WithContext(context.WithoutCancel(ctx)).Create(attempt).Error; err != nil {
		logger.Get().Errorw("failed to record login attempt",
			"error", err,
			"user_id", userID,
		)
	}
}

// RecordHoneypotAttempt appends an attempt against a login name that matches
// no user. Errors are logged but never propagate.
func (s *attemptService) RecordHoneypotAttempt(ctx context.Context, login string) {
	attempt := &models.UserLoginHoneypotAttempt{Login: login, AttemptedAt: s.now()}
	if err := s.db.WithContext(context.WithoutCancel(ctx)).Create(attempt).Error; err != nil {
		logger.Get().Errorw("failed to record honeypot login attempt",
			"error", err,
			"login", login,
		)
	}
}

// CountAttemptsSince counts the user's failed attempts strictly after since.
func (s *attemptService) CountAttemptsSince(ctx context.Context, userID string, since time.Time) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.UserLoginAttempt{}).
		Where("user_id = ? AND attempted_at > ?", userID, since.UTC()).
		Count(&count).Error
	if err != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return count, nil
}

// CountHoneypotAttemptsSince counts attempts against login strictly after since.
func (s *attemptService) CountHoneypotAttemptsSince(ctx context.Context, login string, since time.Time) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.UserLoginHoneypotAttempt{}).
		Where("login = ? AND attempted_at > ?", login, since.UTC()).
		Count(&count).Error
	if err != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return count, nil
}
