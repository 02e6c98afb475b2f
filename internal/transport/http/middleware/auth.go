package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"mealtrack-bff/internal/pkg/apperr"
	"mealtrack-bff/internal/pkg/jwtutil"
	"mealtrack-bff/internal/transport/http/response"
)

const ContextIdentityKey = "identity"

// AuthBearer verifies the caller's access token and keeps the resulting
// identity on the context. The same identity is later forwarded to the
// database so row-level security applies.
func AuthBearer(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
		if authHeader == "" {
			response.Error(c, http.StatusUnauthorized, apperr.CodeUnauthorized, "missing authorization header")
			c.Abort()
			return
		}

		const prefix = "Bearer "
		if !strings.HasPrefix(authHeader, prefix) {
			response.Error(c, http.StatusUnauthorized, apperr.CodeUnauthorized, "invalid authorization scheme")
			c.Abort()
			return
		}

		token := strings.TrimSpace(strings.TrimPrefix(authHeader, prefix))
		id, err := jwtutil.ParseToken(secret, token)
		if err != nil {
			response.Error(c, http.StatusUnauthorized, apperr.CodeUnauthorized, "invalid or expired token")
			c.Abort()
			return
		}

		c.Set(ContextIdentityKey, id)
		c.Next()
	}
}

func IdentityFrom(c *gin.Context) (*jwtutil.Identity, bool) {
	v, ok := c.Get(ContextIdentityKey)
	if !ok {
		return nil, false
	}
	id, ok := v.(*jwtutil.Identity)
	return id, ok && id != nil
}
