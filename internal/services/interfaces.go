package services

import (
	"context"
	"time"

	"loginpanel/internal/models"
)

// NewUser carries the fields needed to register an account.
type NewUser struct {
	Login    string
	Email    string
	Name     string
	Surname  string
	Password string
}

// CredentialServicer stores users with their password hashes and TOTP secrets.
type CredentialServicer interface {
	FindUserByLogin(ctx context.Context, login string) (*models.User, error)
	FindUserByID(ctx context.Context, id string) (*models.User, error)
	VerifyPassword(user *models.User, candidate string) bool
	VerifyTotp(secret []byte, code string) bool
	CreateUser(ctx context.Context, in NewUser) (*models.User, error)
	ProvisioningURI(user *models.User) (string, error)
	DeleteUser(ctx context.Context, id string) error
}

// AttemptServicer is the append-only ledger of failed logins.
type AttemptServicer interface {
	RecordAttempt(ctx context.Context, userID string)
	RecordHoneypotAttempt(ctx context.Context, login string)
	CountAttemptsSince(ctx context.Context, userID string, since time.Time) (int64, error)
	CountHoneypotAttemptsSince(ctx context.Context, login string, since time.Time) (int64, error)
}

// LockoutServicer decides whether a login must be treated as non-existent.
type LockoutServicer interface {
	IsLockedOut(ctx context.Context, user *models.User, login string) (bool, error)
	SweepExpired(ctx context.Context) (int64, error)
}

// SweepResult counts token rows removed by a storage sweep.
type SweepResult struct {
	Challenges int64
	Sessions   int64
}

// TokenServicer issues and revokes challenge and session tokens.
type TokenServicer interface {
	IssueChallengeToken(ctx context.Context, user *models.User) (*models.TotpToken, error)
	ResolveChallengeToken(ctx context.Context, id string) (*models.TotpToken, error)
	ConsumeChallengeToken(ctx context.Context, id string) (bool, error)
	ExchangeChallengeToken(ctx context.Context, challenge *models.TotpToken) (*models.UserToken, error)
	IssueSessionToken(ctx context.Context, user *models.User) (*models.UserToken, error)
	ResolveSessionToken(ctx context.Context, id string) (*models.UserToken, error)
	RevokeSessionToken(ctx context.Context, id string) (bool, error)
	SweepExpired(ctx context.Context) (*SweepResult, error)
}

// Registration is the outcome of account creation.
type Registration struct {
	User            *models.User
	ProvisioningURI string
	Challenge       *models.TotpToken
}

// AuthServicer drives the login, TOTP and logout transitions.
type AuthServicer interface {
	Login(ctx context.Context, login, password string) (*models.TotpToken, error)
	VerifyTotp(ctx context.Context, challengeID, code string) (*models.UserToken, error)
	Logout(ctx context.Context, sessionID string) error
	Register(ctx context.Context, in NewUser) (*Registration, error)
	Authenticate(ctx context.Context, sessionID string) (*models.User, error)
}

// AuditServicer defines the contract for audit logging.
type AuditServicer interface {
	Log(userID, action, ipAddress string, details map[string]interface{})
}
