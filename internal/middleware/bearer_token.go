package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// BearerTokenMiddleware restricts routes to JWT authentication only.
// Key management routes use it: an API key must not be able to mint or
// revoke other keys.
type BearerTokenMiddleware struct {
	tokenValidator TokenValidator
	userLoader     UserLoader
}

// NewBearerTokenMiddleware creates a new bearer token middleware
func NewBearerTokenMiddleware(tokenValidator TokenValidator, userLoader UserLoader) *BearerTokenMiddleware {
	return &BearerTokenMiddleware{
		tokenValidator: tokenValidator,
		userLoader:     userLoader,
	}
}

// BearerTokenAuth validates a JWT and sets user info in context
func (m *BearerTokenMiddleware) BearerTokenAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Get Authorization header
		authHeader := c.GetHeader("Authorization")

		// Check if it's Bearer token
		if !strings.HasPrefix(authHeader, "Bearer ") {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header format"})
			c.Abort()
			return
		}

		// Extract token
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")

		// Validate token
		tokenInfo, err := m.tokenValidator.ValidateToken(tokenString)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}

		// Get user from database
		user, err := m.userLoader.GetByID(tokenInfo.UserID)
		if err != nil || user == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
			c.Abort()
			return
		}

		// Set user info in context
		c.Set(ContextUserID, user.ID)
		c.Set(ContextUser, user)
		c.Set(ContextAuthType, AuthTypeJWT)

		c.Next()
	}
}
