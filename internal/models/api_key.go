package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// API key permission values
const (
	PermissionRead   = "read"
	PermissionWrite  = "write"
	PermissionDelete = "delete"
	PermissionAll    = "all"
)

// ValidPermissions contains all accepted permission values
var ValidPermissions = []string{PermissionRead, PermissionWrite, PermissionDelete, PermissionAll}

// APIKey represents a long-lived API key credential for a user.
// The full credential presented by clients is "<key_id>:<key_secret>";
// the secret half is never included in any listing response.
type APIKey struct {
	ID          string     `json:"id" gorm:"primaryKey;type:uuid"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	Name        string     `json:"name" gorm:"type:varchar(255);not null" example:"CI pipeline"`
	KeyID       string     `json:"key_id" gorm:"type:varchar(64);not null;unique;index" example:"ak_1f7a9c..."`
	KeySecret   string     `json:"-" gorm:"type:varchar(128);not null"`
	UserID      string     `json:"user_id" gorm:"not null;index;type:uuid"`
	IsActive    bool       `json:"is_active" gorm:"default:true;index"`
	Permissions string     `json:"permissions" gorm:"type:varchar(255);default:'all'" example:"read,write"`
	LastUsedAt  *time.Time `json:"last_used_at"`
	ExpiresAt   *time.Time `json:"expires_at"`

	// Relationships
	User User `json:"-" gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:CASCADE"`
}

// BeforeCreate is a GORM hook that runs before creating a new record
func (k *APIKey) BeforeCreate(tx *gorm.DB) error {
	if k.ID == "" {
		k.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name for the APIKey model
func (APIKey) TableName() string {
	return "api_keys"
}

// IsExpired reports whether the key has an expiry set and it has passed.
func (k *APIKey) IsExpired(now time.Time) bool {
	return k.ExpiresAt != nil && k.ExpiresAt.Before(now)
}

// PermissionList returns the key's permissions as a slice.
// Permissions are stored comma-separated in a single column.
func (k *APIKey) PermissionList() []string {
	if k.Permissions == "" {
		return []string{PermissionAll}
	}
	return strings.Split(k.Permissions, ",")
}

// HasPermission checks if the key grants a specific permission.
// The "all" permission implies every other permission.
func (k *APIKey) HasPermission(permission string) bool {
	for _, p := range k.PermissionList() {
		if p == PermissionAll || p == permission {
			return true
		}
	}
	return false
}

// CreateAPIKeyRequest represents the request to issue a new API key
type CreateAPIKeyRequest struct {
	Name          string   `json:"name" example:"CI pipeline"`
	Permissions   []string `json:"permissions,omitempty" example:"read,write"`
	ExpiresInDays int      `json:"expires_in_days,omitempty" example:"30"`
}

// UpdateAPIKeyRequest represents the request to rename or (de)activate a key
type UpdateAPIKeyRequest struct {
	Name     *string `json:"name,omitempty" example:"Renamed key"`
	IsActive *bool   `json:"is_active,omitempty" example:"false"`
}

// APIKeyResponse represents an API key in listing responses (no secret)
type APIKeyResponse struct {
	ID          string     `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	Name        string     `json:"name" example:"CI pipeline"`
	KeyID       string     `json:"key_id" example:"ak_1f7a9c..."`
	IsActive    bool       `json:"is_active" example:"true"`
	Permissions []string   `json:"permissions" example:"all"`
	LastUsedAt  *time.Time `json:"last_used_at,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// CreateAPIKeyResponse includes the composed credential, shown exactly once
type CreateAPIKeyResponse struct {
	ID          string     `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	Name        string     `json:"name" example:"CI pipeline"`
	KeyID       string     `json:"key_id" example:"ak_1f7a9c..."`
	APIKey      string     `json:"api_key" example:"ak_1f7a9c...:9d2b..."`
	Permissions []string   `json:"permissions" example:"all"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	Warning     string     `json:"warning" example:"Store this API key securely. It will not be shown again."`
}
