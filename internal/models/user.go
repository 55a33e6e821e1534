package models

// User is the identity record. It owns exactly one Password and one Totp.
type User struct {
	Base
	Login      string    `gorm:"uniqueIndex;not null;size:64" json:"login"`
	Email      string    `gorm:"uniqueIndex;not null;size:255" json:"email"`
	Name       string    `gorm:"size:100" json:"name"`
	Surname    string    `gorm:"size:100" json:"surname"`
	PasswordID string    `gorm:"type:uuid;not null" json:"-"`
	Password   *Password `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	TotpID     string    `gorm:"type:uuid;not null" json:"-"`
	Totp       *Totp     `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// Password holds a bcrypt hash. Plaintext is never stored.
type Password struct {
	Base
	Hash string `gorm:"not null" json:"-"`
}

// Totp holds the raw shared secret used to derive one-time codes.
type Totp struct {
	Base
	Secret []byte `gorm:"not null" json:"-"`
}
