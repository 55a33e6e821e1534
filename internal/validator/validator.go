// Package validator provides custom validation functions for Gin's binding engine.
package validator

import (
	"regexp"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var (
	loginNameRegex = regexp.MustCompile(`^[A-Za-z0-9._-]{3,64}$`)
	totpCodeRegex  = regexp.MustCompile(`^[0-9]{6}$`)
)

// Register registers all custom validators with the Gin binding engine.
func Register() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("login_name", validateLoginName)
		_ = v.RegisterValidation("totp_code", validateTotpCode)
	}
}

func validateLoginName(fl validator.FieldLevel) bool {
	return loginNameRegex.MatchString(fl.Field().String())
}

func validateTotpCode(fl validator.FieldLevel) bool {
	return totpCodeRegex.MatchString(fl.Field().String())
}
