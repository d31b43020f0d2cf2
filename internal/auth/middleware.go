package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"machine-ledger-backend/internal/logging"
	"machine-ledger-backend/internal/model"
)

const actorKey = "actor"

var lAuth = logging.Subsystem("Auth")

// Middleware resolves the actor of a request from a bearer token or the
// session cookie. With a nil Authenticator every request runs as the
// default actor; otherwise requests without a valid token are rejected.
func Middleware(a *Authenticator, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if a == nil {
			c.Set(actorKey, model.DefaultActor)
			c.Next()
			return
		}

		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			token, _ = c.Cookie(cookieName)
		}
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "authentication required"})
			return
		}

		claims, err := a.Verify(token)
		if err != nil {
			logging.FromContext(c.Request.Context(), lAuth).WithError(err).Debug("rejected session token")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "invalid or expired session"})
			return
		}

		actor := claims.Name
		if actor == "" {
			actor = claims.Subject
		}
		c.Set(actorKey, actor)
		c.Request = c.Request.WithContext(logging.ContextWithActor(c.Request.Context(), actor))
		c.Next()
	}
}

// ActorFrom returns the actor resolved by Middleware.
func ActorFrom(c *gin.Context) string {
	if actor := c.GetString(actorKey); actor != "" {
		return actor
	}
	return model.DefaultActor
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
