package services

import (
	"context"
	"errors"
	"time"

	apperrors "loginpanel/internal/errors"
	"loginpanel/internal/logger"
	"loginpanel/internal/models"
)

// AuthSettings configures outward behaviour of the auth flow.
type AuthSettings struct {
	// RevealUnknownSession makes Logout fail with ErrSessionNotFound when no
	// session was removed. Off by default so logout does not disclose whether
	// a token was live.
	RevealUnknownSession bool
}

// authService runs the login -> totp -> session lifecycle.
//
//	Start --Login--> Credentialed (challenge issued)
//	Credentialed --VerifyTotp--> Authenticated (session issued)
//	Authenticated --Logout--> Start
//
// Every transition may end in rejection instead. Nothing is retried.
type authService struct {
	credentials CredentialServicer
	ledger      AttemptServicer
	lockout     LockoutServicer
	tokens      TokenServicer
	settings    AuthSettings
	now         func() time.Time
}

// NewAuthService creates a new AuthServicer.
func NewAuthService(
	credentials CredentialServicer,
	ledger AttemptServicer,
	lockout LockoutServicer,
	tokens TokenServicer,
	settings AuthSettings,
) AuthServicer {
	return newAuthService(credentials, ledger, lockout, tokens, settings)
}

func newAuthService(
	credentials CredentialServicer,
	ledger AttemptServicer,
	lockout LockoutServicer,
	tokens TokenServicer,
	settings AuthSettings,
) *authService {
	return &authService{
		credentials: credentials,
		ledger:      ledger,
		lockout:     lockout,
		tokens:      tokens,
		settings:    settings,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Login checks the lockout policy, then the password, and issues a challenge.
//
// A locked login fails with ErrLockedOut whether or not the account exists.
// A wrong password and an unknown login both fail with ErrInvalidCredentials
// and both record an attempt. Success records nothing.
func (s *authService) Login(ctx context.Context, login, password string) (*models.TotpToken, error) {
	user, err := s.credentials.FindUserByLogin(ctx, login)
	if err != nil {
		if !errors.Is(err, apperrors.ErrUserNotFound) {
			return nil, err
		}
		user = nil
	}

	locked, err := s.lockout.IsLockedOut(ctx, user, login)
	if err != nil {
		return nil, err
	}
	if locked {
		return nil, apperrors.ErrLockedOut
	}

	if !s.credentials.VerifyPassword(user, password) {
		if user != nil {
			s.ledger.RecordAttempt(ctx, user.ID)
		} else {
			s.ledger.RecordHoneypotAttempt(ctx, login)
		}
		return nil, apperrors.ErrInvalidCredentials
	}

	return s.tokens.IssueChallengeToken(ctx, user)
}

// VerifyTotp exchanges a live challenge and a correct code for a session.
// A wrong code leaves the challenge in place so the user can retry until it
// expires. An expired challenge is deleted.
func (s *authService) VerifyTotp(ctx context.Context, challengeID, code string) (*models.UserToken, error) {
	challenge, err := s.tokens.ResolveChallengeToken(ctx, challengeID)
	if err != nil {
		return nil, err
	}

	if !challenge.Until.After(s.now()) {
		if _, err := s.tokens.ConsumeChallengeToken(ctx, challenge.ID); err != nil {
			logger.Get().Errorw("failed to delete expired challenge",
				"error", err,
				"user_id", challenge.UserID,
			)
		}
		return nil, apperrors.ErrChallengeInvalid
	}

	if challenge.User == nil || challenge.User.Totp == nil {
		return nil, apperrors.ErrChallengeInvalid
	}
	if !s.credentials.VerifyTotp(challenge.User.Totp.Secret, code) {
		return nil, apperrors.ErrInvalidTotpCode
	}

	return s.tokens.ExchangeChallengeToken(ctx, challenge)
}

// Logout revokes a session. Malformed ids fail with ErrMalformedToken.
func (s *authService) Logout(ctx context.Context, sessionID string) error {
	revoked, err := s.tokens.RevokeSessionToken(ctx, sessionID)
	if err != nil {
		return err
	}
	if !revoked && s.settings.RevealUnknownSession {
		return apperrors.ErrSessionNotFound
	}
	return nil
}

// Register creates the account and immediately issues a challenge so the new
// user continues straight to the TOTP step. The provisioning URI is the only
// place the secret is ever handed out.
func (s *authService) Register(ctx context.Context, in NewUser) (*Registration, error) {
	user, err := s.credentials.CreateUser(ctx, in)
	if err != nil {
		return nil, err
	}

	uri, err := s.credentials.ProvisioningURI(user)
	if err != nil {
		return nil, err
	}

	challenge, err := s.tokens.IssueChallengeToken(ctx, user)
	if err != nil {
		return nil, err
	}

	return &Registration{User: user, ProvisioningURI: uri, Challenge: challenge}, nil
}

// Authenticate resolves a session id to its user.
func (s *authService) Authenticate(ctx context.Context, sessionID string) (*models.User, error) {
	session, err := s.tokens.ResolveSessionToken(ctx, sessionID)
	if err != nil {
		if errors.Is(err, apperrors.ErrMalformedToken) {
			return nil, apperrors.ErrUnauthorized
		}
		return nil, err
	}
	if session.User != nil {
		return session.User, nil
	}
	return s.credentials.FindUserByID(ctx, session.UserID)
}
