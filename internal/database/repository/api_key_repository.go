package repository

import (
	"errors"
	"time"

	"github.com/taskvault/taskvault-backend/internal/models"
	"gorm.io/gorm"
)

// APIKeyRepository handles database operations for APIKey entities
type APIKeyRepository struct {
	db *gorm.DB
}

// NewAPIKeyRepository creates a new APIKeyRepository instance
func NewAPIKeyRepository(db *gorm.DB) *APIKeyRepository {
	return &APIKeyRepository{db: db}
}

// GetActiveByKeyID retrieves an active API key by its public key ID
func (r *APIKeyRepository) GetActiveByKeyID(keyID string) (*models.APIKey, error) {
	var apiKey models.APIKey
	if err := r.db.Where("key_id = ? AND is_active = ?", keyID, true).First(&apiKey).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil // Return nil, nil when not found
		}
		return nil, err
	}
	return &apiKey, nil
}

// GetByIDAndUserID retrieves an API key by ID scoped to its owner
func (r *APIKeyRepository) GetByIDAndUserID(id, userID string) (*models.APIKey, error) {
	var apiKey models.APIKey
	if err := r.db.Where("id = ? AND user_id = ?", id, userID).First(&apiKey).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil // Return nil, nil when not found
		}
		return nil, err
	}
	return &apiKey, nil
}

// GetByUserID retrieves all API keys for a user, newest first
func (r *APIKeyRepository) GetByUserID(userID string) ([]*models.APIKey, error) {
	var apiKeys []*models.APIKey
	err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&apiKeys).Error
	return apiKeys, err
}

// Create adds a new API key
func (r *APIKeyRepository) Create(apiKey *models.APIKey) (*models.APIKey, error) {
	if err := r.db.Create(apiKey).Error; err != nil {
		return nil, err
	}
	return apiKey, nil
}

// Update modifies an existing API key
func (r *APIKeyRepository) Update(id string, updates map[string]interface{}) (*models.APIKey, error) {
	if err := r.db.Model(&models.APIKey{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return nil, err
	}

	var apiKey models.APIKey
	if err := r.db.Where("id = ?", id).First(&apiKey).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil // API key not found
		}
		return nil, err
	}
	return &apiKey, nil
}

// UpdateLastUsed updates the last used timestamp for an API key
func (r *APIKeyRepository) UpdateLastUsed(id string, usedAt time.Time) error {
	return r.db.Model(&models.APIKey{}).Where("id = ?", id).Update("last_used_at", usedAt).Error
}

// Delete removes an API key by its ID. Deletion is immediate and irreversible.
func (r *APIKeyRepository) Delete(id string) (bool, error) {
	result := r.db.Unscoped().Delete(&models.APIKey{}, "id = ?", id)
	if result.Error != nil {
		return false, result.Error
	}
	// If no rows were affected, the API key was not found
	return result.RowsAffected > 0, nil
}
