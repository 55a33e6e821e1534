package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	apperrors "loginpanel/internal/errors"
	"loginpanel/internal/models"
	"loginpanel/internal/uuid"
)

// TokenSettings configures token lifetimes. A zero SessionTTL issues
// sessions that never expire.
type TokenSettings struct {
	ChallengeTTL time.Duration
	SessionTTL   time.Duration
}

// tokenService issues, resolves and revokes challenge and session tokens.
type tokenService struct {
	db       *gorm.DB
	settings TokenSettings
	now      func() time.Time
}

// NewTokenService creates a new TokenServicer.
func NewTokenService(db *gorm.DB, settings TokenSettings) TokenServicer {
	return newTokenService(db, settings)
}

func newTokenService(db *gorm.DB, settings TokenSettings) *tokenService {
	return &tokenService{
		db:       db,
		settings: settings,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// IssueChallengeToken creates a challenge valid for ChallengeTTL.
func (s *tokenService) IssueChallengeToken(ctx context.Context, user *models.User) (*models.TotpToken, error) {
	token := &models.TotpToken{
		ID:     uuid.NewToken(),
		UserID: user.ID,
		Until:  s.now().Add(s.settings.ChallengeTTL),
	}
	if err := s.db.WithContext(ctx).Create(token).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return token, nil
}

// ResolveChallengeToken loads a challenge with its user's TOTP secret. Unknown
// and unparsable identifiers both yield ErrChallengeInvalid. Expired tokens
// are returned as found; the caller decides what to do with them.
func (s *tokenService) ResolveChallengeToken(ctx context.Context, id string) (*models.TotpToken, error) {
	tokenID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperrors.ErrChallengeInvalid
	}

	var token models.TotpToken
	err = s.db.WithContext(ctx).
		Preload("User.Totp").
		Where("id = ?", tokenID).
		First(&token).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrChallengeInvalid
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &token, nil
}

// ConsumeChallengeToken deletes a challenge and reports whether it existed.
// Deleting an absent challenge is not an error.
func (s *tokenService) ConsumeChallengeToken(ctx context.Context, id string) (bool, error) {
	tokenID, err := uuid.Parse(id)
	if err != nil {
		return false, nil
	}
	res := s.db.WithContext(ctx).Where("id = ?", tokenID).Delete(&models.TotpToken{})
	if res.Error != nil {
		return false, apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
	}
	return res.RowsAffected > 0, nil
}

// ExchangeChallengeToken atomically consumes an unexpired challenge and issues
// a session for its user. Of several concurrent exchanges of the same
// challenge exactly one succeeds; the others get ErrChallengeInvalid.
func (s *tokenService) ExchangeChallengeToken(ctx context.Context, challenge *models.TotpToken) (*models.UserToken, error) {
	now := s.now()
	session := s.newSession(challenge.UserID, now)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND until > ?", challenge.ID, now).Delete(&models.TotpToken{})
		if res.Error != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
		}
		if res.RowsAffected == 0 {
			return apperrors.ErrChallengeInvalid
		}
		if err := tx.Create(session).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

// IssueSessionToken creates a session for user.
func (s *tokenService) IssueSessionToken(ctx context.Context, user *models.User) (*models.UserToken, error) {
	session := s.newSession(user.ID, s.now())
	if err := s.db.WithContext(ctx).Create(session).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return session, nil
}

func (s *tokenService) newSession(userID string, now time.Time) *models.UserToken {
	session := &models.UserToken{ID: uuid.NewToken(), UserID: userID}
	if s.settings.SessionTTL > 0 {
		expiresAt := now.Add(s.settings.SessionTTL)
		session.ExpiresAt = &expiresAt
	}
	return session
}

// ResolveSessionToken loads a live session with its user. Malformed ids give
// ErrMalformedToken; unknown or expired sessions give ErrUnauthorized.
func (s *tokenService) ResolveSessionToken(ctx context.Context, id string) (*models.UserToken, error) {
	tokenID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperrors.ErrMalformedToken
	}

	var session models.UserToken
	err = s.db.WithContext(ctx).Preload("User").Where("id = ?", tokenID).First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUnauthorized
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if session.Expired(s.now()) {
		return nil, apperrors.ErrUnauthorized
	}
	return &session, nil
}

// RevokeSessionToken deletes a session and reports whether one was removed.
func (s *tokenService) RevokeSessionToken(ctx context.Context, id string) (bool, error) {
	tokenID, err := uuid.Parse(id)
	if err != nil {
		return false, apperrors.ErrMalformedToken
	}
	res := s.db.WithContext(ctx).Where("id = ?", tokenID).Delete(&models.UserToken{})
	if res.Error != nil {
		return false, apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
	}
	return res.RowsAffected > 0, nil
}

// SweepExpired removes expired challenges and sessions. Correctness
// never depends on it; expiry is also checked on every read.
func (s *tokenService) SweepExpired(ctx context.Context) (*SweepResult, error) {
	now := s.now()
	db := s.db.WithContext(ctx)
	result := &SweepResult{}

	res := db.Where("until <= ?", now).Delete(&models.TotpToken{})
	if res.Error != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
	}
	result.Challenges = res.RowsAffected

	res = db.Where("expires_at IS NOT NULL AND expires_at <= ?", now).Delete(&models.UserToken{})
	if res.Error != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
	}
	result.Sessions = res.RowsAffected

	return result, nil
}
