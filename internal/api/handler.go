package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"machine-ledger-backend/internal/auth"
	"machine-ledger-backend/internal/ledger"
	"machine-ledger-backend/internal/logging"
	"machine-ledger-backend/internal/mw"
)

var lAPI = logging.Subsystem("API")

// Handler holds shared dependencies for API handlers.
type Handler struct {
	ledger     *ledger.Ledger
	auth       *auth.Authenticator
	cookieName string
	responses  *mw.ResponseCache
}

// NewHandler creates a new API handler. A nil Authenticator disables login.
func NewHandler(l *ledger.Ledger, a *auth.Authenticator, cookieName string, responses *mw.ResponseCache) *Handler {
	return &Handler{
		ledger:     l,
		auth:       a,
		cookieName: cookieName,
		responses:  responses,
	}
}

// Healthz reports that the process is serving.
func (h *Handler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"ok": false, "error": msg})
}

// flushResponses drops cached GET responses after a write went through.
func (h *Handler) flushResponses() {
	if h.responses != nil {
		h.responses.Flush()
	}
}
