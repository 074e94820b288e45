package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/taskvault/taskvault-backend/internal/models"
)

type fakeTaskLoader struct {
	tasks map[string]*models.Task
	err   error
}

func (l *fakeTaskLoader) GetByID(id string) (*models.Task, error) {
	if l.err != nil {
		return nil, l.err
	}
	return l.tasks[id], nil
}

// ownershipTestServer injects an authenticated user and runs the guard in
// front of a probe handler that echoes the resolved task.
func ownershipTestServer(loader TaskLoader, userID string) *gin.Engine {
	m := NewTaskOwnershipMiddleware(loader)
	r := gin.New()
	r.GET("/tasks/:id", func(c *gin.Context) {
		c.Set(ContextUserID, userID)
	}, m.LoadOwnedTask(), func(c *gin.Context) {
		task := c.MustGet(ContextTask).(*models.Task)
		c.JSON(http.StatusOK, gin.H{"id": task.ID, "title": task.Title})
	})
	return r
}

func TestLoadOwnedTask_Owned(t *testing.T) {
	t.Parallel()

	loader := &fakeTaskLoader{tasks: map[string]*models.Task{
		"task-1": {ID: "task-1", Title: "mine", UserID: "user-1"},
	}}
	r := ownershipTestServer(loader, "user-1")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/tasks/task-1", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d, want 200; body: %s", w.Code, w.Body.String())
	}
}

func TestLoadOwnedTask_MissingAndForeignIndistinguishable(t *testing.T) {
	t.Parallel()

	loader := &fakeTaskLoader{tasks: map[string]*models.Task{
		"task-2": {ID: "task-2", Title: "someone else's", UserID: "user-2"},
	}}
	r := ownershipTestServer(loader, "user-1")

	// A task that does not exist and one owned by another user must produce
	// byte-identical responses
	var responses [2]*httptest.ResponseRecorder
	for i, path := range []string{"/tasks/does-not-exist", "/tasks/task-2"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusNotFound {
			t.Fatalf("GET %s status = %d, want 404", path, w.Code)
		}
		responses[i] = w
	}
	if responses[0].Body.String() != responses[1].Body.String() {
		t.Errorf("Bodies differ: %q vs %q", responses[0].Body.String(), responses[1].Body.String())
	}
}

func TestLoadOwnedTask_StoreError(t *testing.T) {
	t.Parallel()

	loader := &fakeTaskLoader{err: errors.New("connection refused")}
	r := ownershipTestServer(loader, "user-1")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/tasks/task-1", nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("Status = %d, want 500", w.Code)
	}
}
