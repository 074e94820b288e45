package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/taskvault/taskvault-backend/internal/models"
)

// ContextTask is the context key for the ownership-resolved task
const ContextTask = "task"

// TaskLoader loads tasks by identifier
type TaskLoader interface {
	GetByID(id string) (*models.Task, error)
}

// TaskOwnershipMiddleware loads the task addressed by the route and
// verifies the authenticated user owns it
type TaskOwnershipMiddleware struct {
	taskLoader TaskLoader
}

// NewTaskOwnershipMiddleware creates a new task ownership middleware
func NewTaskOwnershipMiddleware(taskLoader TaskLoader) *TaskOwnershipMiddleware {
	return &TaskOwnershipMiddleware{taskLoader: taskLoader}
}

// LoadOwnedTask resolves the :id path parameter to a task owned by the
// authenticated user and attaches it to the context. A missing task and
// a task owned by someone else produce the same not-found response, so
// a caller cannot confirm that a given identifier exists.
func (m *TaskOwnershipMiddleware) LoadOwnedTask() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.MustGet(ContextUserID).(string)
		taskID := c.Param("id")

		task, err := m.taskLoader.GetByID(taskID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load task"})
			c.Abort()
			return
		}
		if task == nil || task.UserID != userID {
			c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
			c.Abort()
			return
		}

		c.Set(ContextTask, task)
		c.Next()
	}
}
