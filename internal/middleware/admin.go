package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/best-shot/backend/internal/auth"
	"github.com/best-shot/backend/pkg/response"
)

// ContextAdminTokenID is the key for the admin token ID in gin context.
const ContextAdminTokenID = "admin_token_id"

// RequireAdmin validates the admin bearer token. A nil jwtService leaves the
// routes open for deployments that guard /admin upstream.
func RequireAdmin(jwtService *auth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if jwtService == nil {
			c.Next()
			return
		}
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Unauthorized(c, "missing authorization header")
			c.Abort()
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(c, "invalid authorization header")
			c.Abort()
			return
		}
		claims, err := jwtService.Validate(parts[1])
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}
		c.Set(ContextAdminTokenID, claims.ID)
		c.Next()
	}
}
