package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/taskvault/taskvault-backend/internal/middleware"
	"github.com/taskvault/taskvault-backend/internal/models"
	"github.com/taskvault/taskvault-backend/internal/services/apikey"
)

// APIKeyHandler handles API key management endpoints
type APIKeyHandler struct {
	apiKeyService *apikey.Service
}

// NewAPIKeyHandler creates a new API key handler
func NewAPIKeyHandler(apiKeyService *apikey.Service) *APIKeyHandler {
	return &APIKeyHandler{
		apiKeyService: apiKeyService,
	}
}

// CreateAPIKey godoc
// @Summary Issue a new API key
// @Description Create a new API key. The full credential is returned once and never again.
// @Tags keys
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.CreateAPIKeyRequest true "API key creation request"
// @Success 201 {object} models.CreateAPIKeyResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/v1/keys [post]
func (h *APIKeyHandler) CreateAPIKey(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(string)

	var req models.CreateAPIKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data", "details": err.Error()})
		return
	}

	apiKey, credential, err := h.apiKeyService.IssueKey(userID, &req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, models.CreateAPIKeyResponse{
		ID:          apiKey.ID,
		Name:        apiKey.Name,
		KeyID:       apiKey.KeyID,
		APIKey:      credential,
		Permissions: apiKey.PermissionList(),
		ExpiresAt:   apiKey.ExpiresAt,
		CreatedAt:   apiKey.CreatedAt,
		Warning:     "Store this API key securely. It will not be shown again.",
	})
}

// GetAPIKeys godoc
// @Summary List API keys
// @Description List the authenticated user's API keys. Secrets are never included.
// @Tags keys
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.APIKeyResponse
// @Failure 500 {object} map[string]interface{}
// @Router /api/v1/keys [get]
func (h *APIKeyHandler) GetAPIKeys(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(string)

	apiKeys, err := h.apiKeyService.ListKeys(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get API keys", "details": err.Error()})
		return
	}

	responses := make([]models.APIKeyResponse, len(apiKeys))
	for i, apiKey := range apiKeys {
		responses[i] = h.apiKeyToResponse(apiKey)
	}

	c.JSON(http.StatusOK, responses)
}

// UpdateAPIKey godoc
// @Summary Update an API key
// @Description Rename, activate or deactivate an API key owned by the user
// @Tags keys
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "API key ID"
// @Param request body models.UpdateAPIKeyRequest true "API key update request"
// @Success 200 {object} models.APIKeyResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/v1/keys/{id} [put]
func (h *APIKeyHandler) UpdateAPIKey(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(string)
	keyID := c.Param("id")

	var req models.UpdateAPIKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data", "details": err.Error()})
		return
	}

	apiKey, err := h.apiKeyService.UpdateKey(userID, keyID, &req)
	if err != nil {
		if errors.Is(err, apikey.ErrKeyNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "API key not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update API key", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, h.apiKeyToResponse(apiKey))
}

// DeleteAPIKey godoc
// @Summary Revoke an API key
// @Description Permanently delete an API key owned by the user
// @Tags keys
// @Produce json
// @Security BearerAuth
// @Param id path string true "API key ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/v1/keys/{id} [delete]
func (h *APIKeyHandler) DeleteAPIKey(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(string)
	keyID := c.Param("id")

	if err := h.apiKeyService.RevokeKey(userID, keyID); err != nil {
		if errors.Is(err, apikey.ErrKeyNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "API key not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete API key", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "API key deleted successfully"})
}

// apiKeyToResponse converts an API key to its listing representation
func (h *APIKeyHandler) apiKeyToResponse(apiKey *models.APIKey) models.APIKeyResponse {
	return models.APIKeyResponse{
		ID:          apiKey.ID,
		Name:        apiKey.Name,
		KeyID:       apiKey.KeyID,
		IsActive:    apiKey.IsActive,
		Permissions: apiKey.PermissionList(),
		LastUsedAt:  apiKey.LastUsedAt,
		ExpiresAt:   apiKey.ExpiresAt,
		CreatedAt:   apiKey.CreatedAt,
		UpdatedAt:   apiKey.UpdatedAt,
	}
}
