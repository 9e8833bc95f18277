package middlewares

import (
	"net/http"
	"strings"

	"minicode/internal/models"
	"minicode/internal/services"

	"github.com/gin-gonic/gin"
)

const (
	userContextKey     = "userID"
	usernameContextKey = "username"
	roleContextKey     = "role"
)

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// AuthMiddleware enforces a valid bearer token and stores the caller's
// identity in the request context.
func AuthMiddleware(tokenService *services.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := bearerToken(c)
		if tokenString == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization token required"})
			c.Abort()
			return
		}

		claims, err := tokenService.ValidateToken(tokenString)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}

		c.Set(userContextKey, claims.UserID)
		c.Set(usernameContextKey, claims.Username)
		c.Set(roleContextKey, claims.Role)
		c.Next()
	}
}

// RequireRole gates a route group to the given roles. Admin passes
// everywhere.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := CurrentRole(c)
		if role == models.RoleAdmin {
			c.Next()
			return
		}
		for _, allowed := range roles {
			if role == allowed {
				c.Next()
				return
			}
		}
		c.JSON(http.StatusForbidden, gin.H{"error": "Not authorized"})
		c.Abort()
	}
}

func CurrentUserID(c *gin.Context) int {
	return c.GetInt(userContextKey)
}

func CurrentUsername(c *gin.Context) string {
	return c.GetString(usernameContextKey)
}

func CurrentRole(c *gin.Context) string {
	return c.GetString(roleContextKey)
}
