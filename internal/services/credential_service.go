package services

import (
	"context"
	"encoding/base32"
	"errors"
	"sync"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"loginpanel/internal/database"
	apperrors "loginpanel/internal/errors"
	"loginpanel/internal/models"
)

const (
	totpSecretSize = 20
	totpPeriod     = 30
)

var b32NoPadding = base32.StdEncoding.WithPadding(base32.NoPadding)

// TotpSettings configures code generation and validation.
type TotpSettings struct {
	Issuer string
	Skew   uint
}

// credentialService handles users, password hashes and TOTP secrets.
type credentialService struct {
	db         *gorm.DB
	bcryptCost int
	totp       TotpSettings
	now        func() time.Time

	dummyOnce sync.Once
	dummyHash []byte
}

// NewCredentialService creates a new CredentialServicer.
func NewCredentialService(db *gorm.DB, bcryptCost int, totpSettings TotpSettings) CredentialServicer {
	return newCredentialService(db, bcryptCost, totpSettings)
}

func newCredentialService(db *gorm.DB, bcryptCost int, totpSettings TotpSettings) *credentialService {
	return &credentialService{
		db:         db,
		bcryptCost: bcryptCost,
		totp:       totpSettings,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// FindUserByLogin looks up a user by exact login. A missing user is reported
// as ErrUserNotFound, never as an internal error.
func (s *credentialService) FindUserByLogin(ctx context.Context, login string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).
		Preload("Password").
		Preload("Totp").
		Where("login = ?", login).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &user, nil
}

// FindUserByID retrieves a user by ID
func (s *credentialService) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &user, nil
}

// VerifyPassword checks candidate against the user's bcrypt hash. A nil user
// is compared against a throwaway hash of the same cost so both outcomes take
// the same time.
func (s *credentialService) VerifyPassword(user *models.User, candidate string) bool {
	if user == nil || user.Password == nil {
		_ = bcrypt.CompareHashAndPassword(s.dummy(), []byte(candidate))
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(user.Password.Hash), []byte(candidate)) == nil
}

func (s *credentialService) dummy() []byte {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), s.bcryptCost)
	})
	return s.dummyHash
}

// VerifyTotp validates code against the current time step and Skew steps on
// either side.
func (s *credentialService) VerifyTotp(secret []byte, code string) bool {
	if len(secret) == 0 {
		return false
	}
	valid, err := totp.ValidateCustom(code, b32NoPadding.EncodeToString(secret), s.now(), totp.ValidateOpts{
		Period:    totpPeriod,
		Skew:      s.totp.Skew,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	return err == nil && valid
}

// CreateUser hashes the password, generates a fresh TOTP secret and stores
// password, secret and user in one transaction. The returned user carries the
// raw secret; it is not exposed anywhere else afterwards.
func (s *credentialService) CreateUser(ctx context.Context, in NewUser) (*models.User, error) {
	if in.Login == "" || in.Email == "" || in.Password == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "login, email and password are required")
	}

	db := s.db.WithContext(ctx)

	var count int64
	if err := db.Model(&models.User{}).Where("login = ? OR email = ?", in.Login, in.Email).Count(&count).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count > 0 {
		return nil, apperrors.ErrDuplicateUser
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "password is too long")
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.totp.Issuer,
		AccountName: in.Login,
		Period:      totpPeriod,
		SecretSize:  totpSecretSize,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	secret, err := b32NoPadding.DecodeString(key.Secret())
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	user := &models.User{
		Login:    in.Login,
		Email:    in.Email,
		Name:     in.Name,
		Surname:  in.Surname,
		Password: &models.Password{Hash: string(hash)},
		Totp:     &models.Totp{Secret: secret},
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user.Password).Error; err != nil {
			return err
		}
		if err := tx.Create(user.Totp).Error; err != nil {
			return err
		}
		user.PasswordID = user.Password.ID
		user.TotpID = user.Totp.ID
		return tx.Omit(clause.Associations).Create(user).Error
	})
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, apperrors.ErrDuplicateUser
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return user, nil
}

// ProvisioningURI returns the otpauth:// URI for the user's TOTP secret.
func (s *credentialService) ProvisioningURI(user *models.User) (string, error) {
	if user == nil || user.Totp == nil || len(user.Totp.Secret) == 0 {
		return "", apperrors.WithMessage(apperrors.ErrInternalServer, "user has no TOTP secret loaded")
	}
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.totp.Issuer,
		AccountName: user.Login,
		Period:      totpPeriod,
		Secret:      user.Totp.Secret,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return "", apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return key.URL(), nil
}

// DeleteUser removes a user together with everything it owns or that
// references it.
func (s *credentialService) DeleteUser(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Where("id = ?", id).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrUserNotFound
			}
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		dependents := []interface{}{
			&models.TotpToken{},
			&models.UserToken{},
			&models.UserAccountLock{},
			&models.UserLoginAttempt{},
		}
		for _, model := range dependents {
			if err := tx.Where("user_id = ?", user.ID).Delete(model).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
		}

		if err := tx.Delete(&models.User{}, "id = ?", user.ID).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := tx.Delete(&models.Password{}, "id = ?", user.PasswordID).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := tx.Delete(&models.Totp{}, "id = ?", user.TotpID).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
}
