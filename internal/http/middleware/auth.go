// Bearer-token authentication middleware.
//
// Auth() parses the Authorization header, verifies the JWT through the
// identity layer, and stores the authenticated user id and username on the
// Gin context for downstream handlers. Requests without a valid token are
// rejected with 401 before any handler runs.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/crazychat/chat-backend/internal/services"
)

// Context keys set by Auth().
const (
	CtxUserID   = "userID"
	CtxUsername = "username"
)

// TokenVerifier validates a signed session token and returns its claims.
// *services.IdentityService satisfies it; tests substitute fakes.
type TokenVerifier interface {
	Verify(token string) (*services.TokenClaims, error)
}

// Auth returns middleware enforcing bearer-token authentication.
//
// On success it sets CtxUserID (uint) and CtxUsername (string) on the
// context. On failure it aborts with 401 and the standard error envelope
// shape (code "unauthorized").
func Auth(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		if !strings.HasPrefix(h, "Bearer ") {
			abortUnauthorized(c, "missing bearer token")
			return
		}
		claims, err := verifier.Verify(strings.TrimPrefix(h, "Bearer "))
		if err != nil {
			abortUnauthorized(c, "invalid or expired token")
			return
		}
		c.Set(CtxUserID, claims.UserID)
		c.Set(CtxUsername, claims.Username)
		c.Next()
	}
}

// UserID returns the authenticated user id set by Auth, or (0, false) when
// the request is unauthenticated.
func UserID(c *gin.Context) (uint, bool) {
	v, ok := c.Get(CtxUserID)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok
}

// abortUnauthorized writes the error envelope inline to avoid an import
// cycle with the handlers package.
func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"request_id": c.Writer.Header().Get("X-Request-ID"),
		"code":       "unauthorized",
		"message":    msg,
	})
}
