package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/geocoder89/gatherdesk/internal/auth"
	"github.com/geocoder89/gatherdesk/internal/identity"
)

// Keep this small interface so tests can fake it easily.
type TokenVerifier interface {
	VerifyAccessToken(token string) (*auth.Claims, error)
}

type AuthMiddleware struct {
	jwt TokenVerifier
}

func NewAuthMiddleware(jwt TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{jwt: jwt}
}

const ctxIdentityKey = "auth.identity"

// RequireAuth verifies the bearer token and resolves the caller's identity
// onto both the gin context and the request context, so everything below
// the HTTP edge receives it explicitly.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			abortUnauthorized(c, "Missing or invalid Authorization header")
			return
		}

		raw := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer"))
		if raw == "" {
			abortUnauthorized(c, "Missing or invalid access token")
			return
		}

		claims, err := m.jwt.VerifyAccessToken(raw)
		if err != nil {
			abortUnauthorized(c, "Invalid or expired access token")
			return
		}

		id := identity.Identity{
			ID:      claims.UserID,
			Email:   claims.Email,
			IsAdmin: claims.IsAdmin,
		}

		SetIdentity(c, id)

		c.Next()
	}
}

// SetIdentity stashes the identity the way RequireAuth does. Handler tests
// mount a stub middleware around this instead of minting real tokens.
func SetIdentity(c *gin.Context, id identity.Identity) {
	c.Set(ctxIdentityKey, id)
	c.Request = c.Request.WithContext(identity.WithIdentity(c.Request.Context(), id))
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": gin.H{
			"code":    "unauthorized",
			"message": message,
		},
	})
}

// IdentityFromContext returns the identity stashed by RequireAuth.
func IdentityFromContext(c *gin.Context) (identity.Identity, bool) {
	v, ok := c.Get(ctxIdentityKey)
	if !ok {
		return identity.Identity{}, false
	}

	id, ok := v.(identity.Identity)
	return id, ok && id.ID != ""
}
