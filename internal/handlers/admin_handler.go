package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"loginpanel/internal/services"
)

// AdminHandler exposes operator-only account maintenance.
type AdminHandler struct {
	credentialService services.CredentialServicer
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(credentialService services.CredentialServicer) *AdminHandler {
	return &AdminHandler{credentialService: credentialService}
}

// DeleteUser removes an account with all of its credentials and tokens
// @Summary     Delete user
// @Description Delete a user by login, cascading to credentials, tokens, locks and attempts
// @Tags        admin
// @Produce     json
// @Security    ApiKeyAuth
// @Param       login path string true "User login"
// @Success     204 "User deleted"
// @Failure     401 {object} ErrorResponse "Missing or invalid API key"
// @Failure     404 {object} ErrorResponse "User not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /admin/users/{login} [delete]
func (h *AdminHandler) DeleteUser(c *gin.Context) {
	ctx := c.Request.Context()

	user, err := h.credentialService.FindUserByLogin(ctx, c.Param("login"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.credentialService.DeleteUser(ctx, user.ID); err != nil {
		respondWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
