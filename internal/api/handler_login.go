package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"machine-ledger-backend/internal/auth"
	"machine-ledger-backend/internal/logging"
)

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login handles POST /api/login. The token is returned in the body and as an
// HttpOnly cookie.
func (h *Handler) Login(c *gin.Context) {
	if h.auth == nil {
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "authentication is disabled"})
		return
	}

	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, bindingMessage(err))
		return
	}

	token, exp, user, err := h.auth.Login(req.Email, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": err.Error()})
		return
	}
	if err != nil {
		logging.FromContext(c.Request.Context(), lAPI).WithError(err).Error("could not issue session token")
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "could not log in"})
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookieName, token, int(time.Until(exp).Seconds()), "/", "", c.Request.TLS != nil, true)
	c.JSON(http.StatusOK, gin.H{
		"ok":        true,
		"token":     token,
		"expiresAt": exp.UTC().Format(time.RFC3339),
		"name":      user.Name,
	})
}
