package middleware

import (
	"net/http"
	"strings"

	"github.com/careloop/api/internal/auth"
	"github.com/gin-gonic/gin"
)

// RequireRoles validates the bearer credential and checks the caller's role
// against the endpoint's allow-list. It is a pure gate: row-level ownership is
// decided by the policy package in the handlers, never here.
func RequireRoles(jwtSecret string, roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization header required"})
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header format"})
			c.Abort()
			return
		}

		claims, err := auth.ValidateToken(parts[1], jwtSecret)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			c.Abort()
			return
		}

		if len(roles) > 0 {
			allowed := false
			for _, role := range roles {
				if role == claims.Role {
					allowed = true
					break
				}
			}
			if !allowed {
				c.JSON(http.StatusForbidden, gin.H{"error": "insufficient role"})
				c.Abort()
				return
			}
		}

		c.Set("userID", claims.UserID)
		c.Set("userRole", claims.Role)

		c.Next()
	}
}

func MustUserID(c *gin.Context) int64 {
	v, _ := c.Get("userID")
	return v.(int64)
}

func MustUserRole(c *gin.Context) string {
	v, _ := c.Get("userRole")
	return v.(string)
}
