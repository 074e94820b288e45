package apikey

import (
	"crypto/subtle"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/taskvault/taskvault-backend/internal/models"
)

// KeyStore is the persistence surface the service needs for API keys
type KeyStore interface {
	GetActiveByKeyID(keyID string) (*models.APIKey, error)
	GetByIDAndUserID(id, userID string) (*models.APIKey, error)
	GetByUserID(userID string) ([]*models.APIKey, error)
	Create(apiKey *models.APIKey) (*models.APIKey, error)
	Update(id string, updates map[string]interface{}) (*models.APIKey, error)
	UpdateLastUsed(id string, usedAt time.Time) error
	Delete(id string) (bool, error)
}

// UserStore resolves key owners
type UserStore interface {
	GetByID(id string) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
}

// Service handles API key issuance, validation and management
type Service struct {
	keyStore  KeyStore
	userStore UserStore
	now       func() time.Time
}

// NewService creates a new API key service
func NewService(keyStore KeyStore, userStore UserStore) *Service {
	return &Service{
		keyStore:  keyStore,
		userStore: userStore,
		now:       time.Now,
	}
}

// ValidateCredential validates a raw "<keyId>:<keySecret>" credential and
// returns the owning user and the key record. All lookup, expiry and
// secret failures surface as ErrInvalidCredential so a caller cannot
// probe which half was wrong.
func (s *Service) ValidateCredential(credential string) (*models.User, *models.APIKey, error) {
	keyID, keySecret, err := ParseCredential(credential)
	if err != nil {
		return nil, nil, err
	}

	apiKey, err := s.keyStore.GetActiveByKeyID(keyID)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if apiKey == nil {
		return nil, nil, ErrInvalidCredential
	}

	now := s.now()
	if apiKey.IsExpired(now) {
		// Logged distinctly; the caller sees the same error as a bad secret
		logrus.Warnf("Rejected expired API key %s (expired at %s)", apiKey.KeyID, apiKey.ExpiresAt.Format(time.RFC3339))
		return nil, nil, ErrInvalidCredential
	}

	// Constant-time comparison; a short-circuiting == would leak the
	// position of the first mismatching byte through timing
	if subtle.ConstantTimeCompare([]byte(keySecret), []byte(apiKey.KeySecret)) != 1 {
		return nil, nil, ErrInvalidCredential
	}

	user, err := s.userStore.GetByID(apiKey.UserID)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if user == nil || !user.IsActive {
		return nil, nil, ErrInvalidCredential
	}

	// Best-effort telemetry write; never fails the authentication decision
	if err := s.keyStore.UpdateLastUsed(apiKey.ID, now); err != nil {
		logrus.Warnf("Failed to update API key last used timestamp: %v", err)
	}
	apiKey.LastUsedAt = &now

	return user, apiKey, nil
}

// IssueKey generates and persists a new API key for a user. The returned
// credential string is the only time the secret leaves the service.
func (s *Service) IssueKey(userID string, req *models.CreateAPIKeyRequest) (*models.APIKey, string, error) {
	// Require a resolved owner before persisting anything
	user, err := s.userStore.GetByID(userID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, "", fmt.Errorf("user not found")
	}
	if !user.IsActive {
		return nil, "", fmt.Errorf("user is not active")
	}

	permissions, err := normalizePermissions(req.Permissions)
	if err != nil {
		return nil, "", err
	}

	keyID, keySecret, err := GenerateKeyPair()
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate API key: %w", err)
	}

	var expiresAt *time.Time
	if req.ExpiresInDays > 0 {
		t := s.now().AddDate(0, 0, req.ExpiresInDays)
		expiresAt = &t
	}

	name := req.Name
	if name == "" {
		name = "Default API Key"
	}

	apiKey := &models.APIKey{
		Name:        name,
		KeyID:       keyID,
		KeySecret:   keySecret,
		UserID:      user.ID,
		IsActive:    true,
		Permissions: permissions,
		ExpiresAt:   expiresAt,
	}

	created, err := s.keyStore.Create(apiKey)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create API key: %w", err)
	}

	return created, ComposeCredential(keyID, keySecret), nil
}

// ListKeys returns all keys for a user, newest first. Secrets are never
// serialized because the model hides them from JSON.
func (s *Service) ListKeys(userID string) ([]*models.APIKey, error) {
	return s.keyStore.GetByUserID(userID)
}

// UpdateKey renames or (de)activates a key owned by the user.
// Returns ErrKeyNotFound if the key does not exist or belongs to another user.
func (s *Service) UpdateKey(userID, keyID string, req *models.UpdateAPIKeyRequest) (*models.APIKey, error) {
	apiKey, err := s.keyStore.GetByIDAndUserID(keyID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get API key: %w", err)
	}
	if apiKey == nil {
		return nil, ErrKeyNotFound
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if len(updates) == 0 {
		return apiKey, nil
	}

	updated, err := s.keyStore.Update(apiKey.ID, updates)
	if err != nil {
		return nil, fmt.Errorf("failed to update API key: %w", err)
	}
	if updated == nil {
		return nil, ErrKeyNotFound
	}
	return updated, nil
}

// RevokeKey deletes a key owned by the user. Revocation is immediate and
// irreversible; there is no soft delete.
func (s *Service) RevokeKey(userID, keyID string) error {
	apiKey, err := s.keyStore.GetByIDAndUserID(keyID, userID)
	if err != nil {
		return fmt.Errorf("failed to get API key: %w", err)
	}
	if apiKey == nil {
		return ErrKeyNotFound
	}

	deleted, err := s.keyStore.Delete(apiKey.ID)
	if err != nil {
		return fmt.Errorf("failed to delete API key: %w", err)
	}
	if !deleted {
		return ErrKeyNotFound
	}
	return nil
}

// normalizePermissions validates requested permissions and joins them for
// storage. An empty request grants "all".
func normalizePermissions(requested []string) (string, error) {
	if len(requested) == 0 {
		return models.PermissionAll, nil
	}
	for _, p := range requested {
		if !slices.Contains(models.ValidPermissions, p) {
			return "", fmt.Errorf("invalid permission: %s", p)
		}
	}
	return strings.Join(requested, ","), nil
}
