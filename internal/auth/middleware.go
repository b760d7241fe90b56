package auth

import (
	"strings"

	"github.com/wb-go/wbf/ginext"

	"attendly/internal/dto"
)

const principalKey = "auth.principal"

// Middleware extracts and verifies the Bearer token, placing the resulting
// Principal into the request context. Requests without a valid token are
// rejected.
func Middleware(secret string) ginext.HandlerFunc {
	return func(c *ginext.Context) {
		header := c.GetHeader("Authorization")
		tokenString, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || tokenString == "" {
			dto.UnauthenticatedError(c, "No token provided")
			c.Abort()
			return
		}

		p, err := VerifyToken(secret, tokenString)
		if err != nil {
			dto.UnauthenticatedError(c, "Invalid or expired token")
			c.Abort()
			return
		}

		c.Set(principalKey, p)
		c.Next()
	}
}

// RequireAdmin rejects principals that are not event or super admins.
// It must run after Middleware.
func RequireAdmin() ginext.HandlerFunc {
	return func(c *ginext.Context) {
		p, ok := FromContext(c)
		if !ok || !p.IsAdmin() {
			dto.ForbiddenError(c)
			c.Abort()
			return
		}
		c.Next()
	}
}

// FromContext returns the principal set by Middleware.
func FromContext(c *ginext.Context) (Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return Principal{}, false
	}
	p, ok := v.(Principal)
	return p, ok
}
