package models

// AuditLog records authentication events for a user.
type AuditLog struct {
	Base
	UserID    string `gorm:"type:uuid;not null;index" json:"user_id"`
	Action    string `gorm:"not null" json:"action"`
	IPAddress string `json:"ip_address"`
	Details   string `json:"details,omitempty"`
}

// Audit actions.
const (
	AuditActionRegister      = "register"
	AuditActionLoginPassword = "login_password"
	AuditActionLoginTotp     = "login_totp"
)
