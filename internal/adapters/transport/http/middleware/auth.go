package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	authErrors "github.com/tokenforge/auth-service/internal/domain/auth/errors"
	"github.com/tokenforge/auth-service/internal/domain/auth/jwt"
)

const claimsKey = "auth.claims"

// ErrorWriter renders a failed request.
type ErrorWriter func(c *gin.Context, err error)

// RequireAccessToken verifies the access token taken from an Authorization
// bearer header or the named cookie and stores its claims on the context.
// Failures other than a bad token, such as an unavailable key, reach
// writeErr unchanged.
func RequireAccessToken(verifier jwt.JWTUtil, cookieName string, writeErr ErrorWriter) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c.GetHeader("Authorization"))
		if raw == "" {
			raw, _ = c.Cookie(cookieName)
		}
		if raw == "" {
			writeErr(c, authErrors.ErrInvalidToken)
			return
		}

		claims, err := verifier.ValidateAccessToken(raw)
		if err != nil {
			writeErr(c, err)
			return
		}
		c.Set(claimsKey, claims)
		c.Next()
	}
}

func AccessClaims(c *gin.Context) (jwt.AccessClaims, bool) {
	v, ok := c.Get(claimsKey)
	if !ok {
		return jwt.AccessClaims{}, false
	}
	claims, ok := v.(jwt.AccessClaims)
	return claims, ok
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
