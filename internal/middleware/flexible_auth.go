package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/taskvault/taskvault-backend/internal/models"
	"github.com/taskvault/taskvault-backend/internal/services/apikey"
)

// Header carrying the "<keyId>:<keySecret>" credential
const APIKeyHeader = "X-API-Key"

// Context keys populated by the authentication middleware
const (
	ContextUserID   = "user_id"
	ContextUser     = "user"
	ContextAPIKey   = "api_key"
	ContextAuthType = "auth_type"
)

// Values for the auth_type context key
const (
	AuthTypeAPIKey = "api_key"
	AuthTypeJWT    = "jwt"
)

// CredentialValidator validates raw API key credentials
type CredentialValidator interface {
	ValidateCredential(credential string) (*models.User, *models.APIKey, error)
}

// TokenValidator validates bearer JWTs
type TokenValidator interface {
	ValidateToken(tokenString string) (*models.TokenInfo, error)
}

// UserLoader resolves user IDs to records
type UserLoader interface {
	GetByID(id string) (*models.User, error)
}

// FlexibleAuthMiddleware authenticates requests carrying either an API
// key header or a bearer token
type FlexibleAuthMiddleware struct {
	credentialValidator CredentialValidator
	tokenValidator      TokenValidator
	userLoader          UserLoader
}

// NewFlexibleAuthMiddleware creates a new flexible auth middleware
func NewFlexibleAuthMiddleware(credentialValidator CredentialValidator, tokenValidator TokenValidator, userLoader UserLoader) *FlexibleAuthMiddleware {
	return &FlexibleAuthMiddleware{
		credentialValidator: credentialValidator,
		tokenValidator:      tokenValidator,
		userLoader:          userLoader,
	}
}

// FlexibleAuth returns a handler that authenticates via API key or JWT.
// An API key header, when present, is authoritative: a presented-but-invalid
// key rejects the request outright with no bearer-token fallback, even if a
// valid Authorization header is also attached.
func (m *FlexibleAuthMiddleware) FlexibleAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Check for API key first
		if credential := c.GetHeader(APIKeyHeader); credential != "" {
			m.authenticateAPIKey(c, credential)
			return
		}

		// Fall back to JWT authentication
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "No token or API key provided"})
			c.Abort()
			return
		}

		m.authenticateBearer(c, strings.TrimPrefix(authHeader, "Bearer "))
	}
}

// authenticateAPIKey terminates the request unless the credential is valid
func (m *FlexibleAuthMiddleware) authenticateAPIKey(c *gin.Context, credential string) {
	user, key, err := m.credentialValidator.ValidateCredential(credential)
	if err != nil {
		if errors.Is(err, apikey.ErrStoreUnavailable) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Authentication temporarily unavailable"})
			c.Abort()
			return
		}
		// Malformed, unknown, expired and wrong-secret all read the same
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid API key"})
		c.Abort()
		return
	}

	c.Set(ContextUserID, user.ID)
	c.Set(ContextUser, user)
	c.Set(ContextAPIKey, key)
	c.Set(ContextAuthType, AuthTypeAPIKey)

	c.Next()
}

// authenticateBearer terminates the request unless the token is valid
func (m *FlexibleAuthMiddleware) authenticateBearer(c *gin.Context, tokenString string) {
	tokenInfo, err := m.tokenValidator.ValidateToken(tokenString)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
		c.Abort()
		return
	}

	user, err := m.userLoader.GetByID(tokenInfo.UserID)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Authentication temporarily unavailable"})
		c.Abort()
		return
	}
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
		c.Abort()
		return
	}

	c.Set(ContextUserID, user.ID)
	c.Set(ContextUser, user)
	c.Set(ContextAuthType, AuthTypeJWT)

	c.Next()
}
