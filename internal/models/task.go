package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Task represents a to-do item owned by a single user
type Task struct {
	ID          string    `json:"id" gorm:"primaryKey;type:uuid"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Title       string    `json:"title" gorm:"type:varchar(255);not null" example:"Buy groceries"`
	Description string    `json:"description" gorm:"type:text" example:"Milk, eggs, bread"`
	Completed   bool      `json:"completed" gorm:"default:false;index"`
	UserID      string    `json:"user_id" gorm:"not null;index;type:uuid"`

	// Relationships
	User User `json:"-" gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:CASCADE"`
}

// BeforeCreate is a GORM hook that runs before creating a new record
func (t *Task) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name for the Task model
func (Task) TableName() string {
	return "tasks"
}

// CreateTaskRequest represents the request to create a new task
type CreateTaskRequest struct {
	Title       string `json:"title" binding:"required" example:"Buy groceries"`
	Description string `json:"description" example:"Milk, eggs, bread"`
	Completed   bool   `json:"completed" example:"false"`
}

// UpdateTaskRequest represents the request to update a task.
// Pointer fields distinguish "not provided" from zero values.
type UpdateTaskRequest struct {
	Title       *string `json:"title,omitempty" example:"Buy groceries"`
	Description *string `json:"description,omitempty" example:"Milk, eggs, bread"`
	Completed   *bool   `json:"completed,omitempty" example:"true"`
}

// TaskResponse represents the response for task operations
type TaskResponse struct {
	ID          string `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	Title       string `json:"title" example:"Buy groceries"`
	Description string `json:"description" example:"Milk, eggs, bread"`
	Completed   bool   `json:"completed" example:"false"`
	UserID      string `json:"user_id" example:"550e8400-e29b-41d4-a716-446655440001"`
	CreatedAt   string `json:"created_at" example:"2025-01-21T10:00:00Z"`
	UpdatedAt   string `json:"updated_at" example:"2025-01-21T10:00:00Z"`
}
