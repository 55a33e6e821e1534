package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "loginpanel/internal/errors"
	"loginpanel/internal/models"
	"loginpanel/internal/services"
)

// AuthHandler handles the register, login, totp and logout endpoints.
type AuthHandler struct {
	authService  services.AuthServicer
	auditService services.AuditServicer
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(authService services.AuthServicer, auditService services.AuditServicer) *AuthHandler {
	return &AuthHandler{authService: authService, auditService: auditService}
}

// RegisterRequest represents the registration request payload
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email,max=255"`
	Login    string `json:"login" binding:"required,login_name"`
	Name     string `json:"name" binding:"max=100"`
	Surname  string `json:"surname" binding:"max=100"`
	Password string `json:"password" binding:"required,min=8,max=72"`
}

// RegisterResponse carries the provisioning URI and the first challenge.
type RegisterResponse struct {
	Secret    string `json:"secret"`
	TotpToken string `json:"totpToken"`
}

// LoginRequest represents the login request payload
type LoginRequest struct {
	Login    string `json:"login" binding:"required,max=64"`
	Password string `json:"password" binding:"required,max=255"`
}

// LoginResponse carries the challenge issued after a correct password.
type LoginResponse struct {
	TotpToken string `json:"totpToken"`
}

// TotpRequest represents the second-factor request payload. Secret holds the
// six digit code.
type TotpRequest struct {
	TotpToken string `json:"totpToken" binding:"required"`
	Secret    string `json:"secret" binding:"required,totp_code"`
}

// TokenResponse carries a session token.
type TokenResponse struct {
	Token string `json:"token"`
}

// LogoutRequest represents the logout request payload
type LogoutRequest struct {
	Token string `json:"token" binding:"required"`
}

// UserResponse represents the user data in the response
type UserResponse struct {
	ID      string `json:"id"`
	Login   string `json:"login"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Surname string `json:"surname"`
}

// Register handles user registration
// @Summary     Register a new user
// @Description Create an account and start TOTP enrollment
// @Tags        auth
// @Accept      json
// @Produce     json
// @Param       request body RegisterRequest true "User registration data"
// @Success     200 {object} RegisterResponse "otpauth URI and challenge token"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     409 {object} ErrorResponse "Login or email taken"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if !bindJSON(c, &req) {
		return
	}

	reg, err := h.authService.Register(c.Request.Context(), services.NewUser{
		Login:    req.Login,
		Email:    req.Email,
		Name:     req.Name,
		Surname:  req.Surname,
		Password: req.Password,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(reg.User.ID, models.AuditActionRegister, c.ClientIP(), map[string]interface{}{
		"login": reg.User.Login,
	})

	c.JSON(http.StatusOK, RegisterResponse{
		Secret:    reg.ProvisioningURI,
		TotpToken: reg.Challenge.ID,
	})
}

// Login handles the password step
// @Summary     Login user
// @Description Verify login and password and issue a TOTP challenge
// @Tags        auth
// @Accept      json
// @Produce     json
// @Param       request body LoginRequest true "User login credentials"
// @Success     200 {object} LoginResponse "Challenge issued"
// @Failure     400 {object} ErrorResponse "Invalid credentials"
// @Failure     404 {object} ErrorResponse "Not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	challenge, err := h.authService.Login(c.Request.Context(), req.Login, req.Password)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(challenge.UserID, models.AuditActionLoginPassword, c.ClientIP(), nil)

	c.JSON(http.StatusOK, LoginResponse{TotpToken: challenge.ID})
}

// Totp handles the second factor
// @Summary     Verify TOTP code
// @Description Exchange a challenge token and a TOTP code for a session token
// @Tags        auth
// @Accept      json
// @Produce     json
// @Param       request body TotpRequest true "Challenge and code"
// @Success     200 {object} TokenResponse "Session issued"
// @Failure     400 {object} ErrorResponse "Invalid or expired challenge, or wrong code"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /auth/totp [post]
func (h *AuthHandler) Totp(c *gin.Context) {
	var req TotpRequest
	if !bindJSON(c, &req) {
		return
	}

	session, err := h.authService.VerifyTotp(c.Request.Context(), req.TotpToken, req.Secret)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(session.UserID, models.AuditActionLoginTotp, c.ClientIP(), nil)

	c.JSON(http.StatusOK, TokenResponse{Token: session.ID})
}

// Logout revokes a session
// @Summary     Logout
// @Description Revoke a session token
// @Tags        auth
// @Accept      json
// @Produce     json
// @Param       request body LogoutRequest true "Session token"
// @Success     200 "Session revoked"
// @Failure     400 {object} ErrorResponse "Malformed token"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	var req LogoutRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.authService.Logout(c.Request.Context(), req.Token); err != nil {
		respondWithError(c, err)
		return
	}

	c.Status(http.StatusOK)
}

// Me returns the authenticated user's profile
// @Summary     Get current user
// @Description Get the profile bound to the bearer session token
// @Tags        auth
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} UserResponse "User profile"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	if _, err := getUserID(c); err != nil {
		respondWithError(c, err)
		return
	}

	value, ok := c.Get("user")
	user, _ := value.(*models.User)
	if !ok || user == nil {
		respondWithError(c, apperrors.ErrUnauthorized)
		return
	}

	c.JSON(http.StatusOK, UserResponse{
		ID:      user.ID,
		Login:   user.Login,
		Email:   user.Email,
		Name:    user.Name,
		Surname: user.Surname,
	})
}

// ErrorDetail represents the inner error object in an error response.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}
