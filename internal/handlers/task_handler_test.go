package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/taskvault/taskvault-backend/internal/middleware"
	"github.com/taskvault/taskvault-backend/internal/models"
	"github.com/taskvault/taskvault-backend/internal/services"
	"github.com/taskvault/taskvault-backend/internal/services/apikey"
	"github.com/taskvault/taskvault-backend/internal/services/excel"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// In-memory stores backing a full handler stack without a database.

type memUserStore struct {
	users map[string]*models.User
}

func (s *memUserStore) GetByID(id string) (*models.User, error) { return s.users[id], nil }

func (s *memUserStore) GetByEmail(e string) (*models.User, error) {
	for _, u := range s.users {
		if u.Email == e {
			return u, nil
		}
	}
	return nil, nil
}

type memKeyStore struct {
	keys map[string]*models.APIKey // by KeyID
	seq  int
}

func (s *memKeyStore) GetActiveByKeyID(keyID string) (*models.APIKey, error) {
	key, ok := s.keys[keyID]
	if !ok || !key.IsActive {
		return nil, nil
	}
	return key, nil
}

func (s *memKeyStore) GetByIDAndUserID(id, userID string) (*models.APIKey, error) {
	for _, key := range s.keys {
		if key.ID == id && key.UserID == userID {
			return key, nil
		}
	}
	return nil, nil
}

func (s *memKeyStore) GetByUserID(userID string) ([]*models.APIKey, error) {
	var out []*models.APIKey
	for _, key := range s.keys {
		if key.UserID == userID {
			out = append(out, key)
		}
	}
	return out, nil
}

func (s *memKeyStore) Create(apiKey *models.APIKey) (*models.APIKey, error) {
	s.seq++
	apiKey.ID = fmt.Sprintf("key-%d", s.seq)
	apiKey.CreatedAt = time.Now()
	s.keys[apiKey.KeyID] = apiKey
	return apiKey, nil
}

func (s *memKeyStore) Update(id string, updates map[string]interface{}) (*models.APIKey, error) {
	for _, key := range s.keys {
		if key.ID == id {
			if name, ok := updates["name"].(string); ok {
				key.Name = name
			}
			if active, ok := updates["is_active"].(bool); ok {
				key.IsActive = active
			}
			return key, nil
		}
	}
	return nil, nil
}

func (s *memKeyStore) UpdateLastUsed(id string, usedAt time.Time) error { return nil }

func (s *memKeyStore) Delete(id string) (bool, error) {
	for keyID, key := range s.keys {
		if key.ID == id {
			delete(s.keys, keyID)
			return true, nil
		}
	}
	return false, nil
}

type memTaskStore struct {
	tasks map[string]*models.Task
	seq   int
}

func (s *memTaskStore) Create(task *models.Task) error {
	s.seq++
	task.ID = fmt.Sprintf("task-%d", s.seq)
	task.CreatedAt = time.Now()
	task.UpdatedAt = task.CreatedAt
	s.tasks[task.ID] = task
	return nil
}

func (s *memTaskStore) GetByID(id string) (*models.Task, error) { return s.tasks[id], nil }

func (s *memTaskStore) GetByUserID(userID string, offset, limit int) ([]*models.Task, error) {
	all, _ := s.GetAllByUserID(userID)
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (s *memTaskStore) CountByUserID(userID string) (int64, error) {
	all, _ := s.GetAllByUserID(userID)
	return int64(len(all)), nil
}

func (s *memTaskStore) GetAllByUserID(userID string) ([]*models.Task, error) {
	var out []*models.Task
	for _, task := range s.tasks {
		if task.UserID == userID {
			out = append(out, task)
		}
	}
	return out, nil
}

func (s *memTaskStore) Update(task *models.Task) error {
	task.UpdatedAt = time.Now()
	s.tasks[task.ID] = task
	return nil
}

func (s *memTaskStore) Delete(id string) (bool, error) {
	if _, ok := s.tasks[id]; !ok {
		return false, nil
	}
	delete(s.tasks, id)
	return true, nil
}

// staticTokenValidator resolves fixture bearer tokens to user IDs.
type staticTokenValidator struct {
	tokens map[string]string // token -> userID
}

func (v *staticTokenValidator) ValidateToken(tokenString string) (*models.TokenInfo, error) {
	userID, ok := v.tokens[tokenString]
	if !ok {
		return nil, fmt.Errorf("invalid token")
	}
	return &models.TokenInfo{UserID: userID, ExpiresAt: time.Now().Add(time.Hour)}, nil
}

// testStack is a fully wired API surface over in-memory stores.
type testStack struct {
	engine    *gin.Engine
	users     *memUserStore
	keys      *memKeyStore
	tasks     *memTaskStore
	validator *staticTokenValidator
}

func newTestStack(users ...*models.User) *testStack {
	userStore := &memUserStore{users: make(map[string]*models.User)}
	tokens := make(map[string]string)
	for _, u := range users {
		userStore.users[u.ID] = u
		tokens["token-for-"+u.ID] = u.ID
	}
	keyStore := &memKeyStore{keys: make(map[string]*models.APIKey)}
	taskStore := &memTaskStore{tasks: make(map[string]*models.Task)}
	validator := &staticTokenValidator{tokens: tokens}

	apiKeyService := apikey.NewService(keyStore, userStore)
	taskService := services.NewTaskService(taskStore, nil)

	flexibleAuth := middleware.NewFlexibleAuthMiddleware(apiKeyService, validator, userStore)
	ownership := middleware.NewTaskOwnershipMiddleware(taskStore)

	taskHandler := NewTaskHandler(taskService, excel.NewService())
	apiKeyHandler := NewAPIKeyHandler(apiKeyService)

	r := gin.New()
	v1 := r.Group("/api/v1")

	tasksGroup := v1.Group("/tasks")
	tasksGroup.Use(flexibleAuth.FlexibleAuth())
	{
		tasksGroup.GET("", taskHandler.GetTasks)
		tasksGroup.POST("", taskHandler.CreateTask)
		tasksGroup.GET("/export", taskHandler.ExportTasks)
		tasksGroup.GET("/:id", ownership.LoadOwnedTask(), taskHandler.GetTask)
		tasksGroup.PUT("/:id", ownership.LoadOwnedTask(), taskHandler.UpdateTask)
		tasksGroup.DELETE("/:id", ownership.LoadOwnedTask(), taskHandler.DeleteTask)
	}

	// Key management is deliberately bearer-only
	keysGroup := v1.Group("/keys")
	keysGroup.Use(func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Bearer token required"})
			c.Abort()
			return
		}
		info, err := validator.ValidateToken(strings.TrimPrefix(auth, "Bearer "))
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}
		c.Set(middleware.ContextUserID, info.UserID)
		c.Next()
	})
	{
		keysGroup.GET("", apiKeyHandler.GetAPIKeys)
		keysGroup.POST("", apiKeyHandler.CreateAPIKey)
		keysGroup.PUT("/:id", apiKeyHandler.UpdateAPIKey)
		keysGroup.DELETE("/:id", apiKeyHandler.DeleteAPIKey)
	}

	return &testStack{engine: r, users: userStore, keys: keyStore, tasks: taskStore, validator: validator}
}

func (s *testStack) do(method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func bearerFor(userID string) map[string]string {
	return map[string]string{"Authorization": "Bearer token-for-" + userID}
}

func apiKeyHeader(credential string) map[string]string {
	return map[string]string{middleware.APIKeyHeader: credential}
}

func activeUser(id, email string) *models.User {
	return &models.User{ID: id, Email: email, Name: "Test User", IsActive: true}
}

func TestAPIKeyLifecycle(t *testing.T) {
	t.Parallel()

	alice := activeUser("user-1", "alice@example.com")
	stack := newTestStack(alice)

	// Issue a key over the bearer-only management surface
	w := stack.do(http.MethodPost, "/api/v1/keys", models.CreateAPIKeyRequest{Name: "CI pipeline"}, bearerFor(alice.ID))
	if w.Code != http.StatusCreated {
		t.Fatalf("Create key status = %d, want 201; body: %s", w.Code, w.Body.String())
	}
	var created models.CreateAPIKeyResponse
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if created.APIKey == "" || !strings.Contains(created.APIKey, ":") {
		t.Fatalf("Credential should be keyId:keySecret, got: %q", created.APIKey)
	}

	// The credential authenticates a task creation
	w = stack.do(http.MethodPost, "/api/v1/tasks", models.CreateTaskRequest{Title: "via api key"}, apiKeyHeader(created.APIKey))
	if w.Code != http.StatusCreated {
		t.Fatalf("Create task status = %d, want 201; body: %s", w.Code, w.Body.String())
	}

	// Listing keys never leaks the secret half
	w = stack.do(http.MethodGet, "/api/v1/keys", nil, bearerFor(alice.ID))
	if w.Code != http.StatusOK {
		t.Fatalf("List keys status = %d, want 200", w.Code)
	}
	_, secret, _ := strings.Cut(created.APIKey, ":")
	if strings.Contains(w.Body.String(), secret) {
		t.Error("Key listing must not contain the secret")
	}
	if !strings.Contains(w.Body.String(), created.KeyID) {
		t.Error("Key listing should contain the public key ID")
	}

	// Revoke, then the credential stops authenticating
	w = stack.do(http.MethodDelete, "/api/v1/keys/"+created.ID, nil, bearerFor(alice.ID))
	if w.Code != http.StatusOK {
		t.Fatalf("Revoke status = %d, want 200; body: %s", w.Code, w.Body.String())
	}
	w = stack.do(http.MethodGet, "/api/v1/tasks", nil, apiKeyHeader(created.APIKey))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Revoked credential status = %d, want 401", w.Code)
	}
}

func TestAPIKeyCannotManageKeys(t *testing.T) {
	t.Parallel()

	alice := activeUser("user-1", "alice@example.com")
	stack := newTestStack(alice)

	w := stack.do(http.MethodPost, "/api/v1/keys", models.CreateAPIKeyRequest{Name: "first"}, bearerFor(alice.ID))
	if w.Code != http.StatusCreated {
		t.Fatalf("Create key status = %d, want 201", w.Code)
	}
	var created models.CreateAPIKeyResponse
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	// An API key must not mint further keys
	w = stack.do(http.MethodPost, "/api/v1/keys", models.CreateAPIKeyRequest{Name: "second"}, apiKeyHeader(created.APIKey))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Key-minting via API key status = %d, want 401", w.Code)
	}
}

func TestTaskCRUD(t *testing.T) {
	t.Parallel()

	alice := activeUser("user-1", "alice@example.com")
	stack := newTestStack(alice)

	w := stack.do(http.MethodPost, "/api/v1/tasks", models.CreateTaskRequest{
		Title:       "Buy groceries",
		Description: "Milk, eggs",
	}, bearerFor(alice.ID))
	if w.Code != http.StatusCreated {
		t.Fatalf("Create status = %d, want 201; body: %s", w.Code, w.Body.String())
	}
	var created models.TaskResponse
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	w = stack.do(http.MethodGet, "/api/v1/tasks/"+created.ID, nil, bearerFor(alice.ID))
	if w.Code != http.StatusOK {
		t.Fatalf("Get status = %d, want 200", w.Code)
	}

	completed := true
	w = stack.do(http.MethodPut, "/api/v1/tasks/"+created.ID, models.UpdateTaskRequest{Completed: &completed}, bearerFor(alice.ID))
	if w.Code != http.StatusOK {
		t.Fatalf("Update status = %d, want 200; body: %s", w.Code, w.Body.String())
	}
	var updated models.TaskResponse
	if err := json.Unmarshal(w.Body.Bytes(), &updated); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if !updated.Completed {
		t.Error("Completed should be true after update")
	}
	if updated.Title != "Buy groceries" {
		t.Errorf("Title = %s, want unchanged Buy groceries", updated.Title)
	}

	w = stack.do(http.MethodDelete, "/api/v1/tasks/"+created.ID, nil, bearerFor(alice.ID))
	if w.Code != http.StatusOK {
		t.Fatalf("Delete status = %d, want 200", w.Code)
	}
	w = stack.do(http.MethodGet, "/api/v1/tasks/"+created.ID, nil, bearerFor(alice.ID))
	if w.Code != http.StatusNotFound {
		t.Errorf("Get after delete status = %d, want 404", w.Code)
	}
}

func TestTaskCreate_MissingTitle(t *testing.T) {
	t.Parallel()

	alice := activeUser("user-1", "alice@example.com")
	stack := newTestStack(alice)

	w := stack.do(http.MethodPost, "/api/v1/tasks", map[string]string{"description": "no title"}, bearerFor(alice.ID))
	if w.Code != http.StatusBadRequest {
		t.Errorf("Status = %d, want 400", w.Code)
	}
}

func TestTaskIsolationBetweenUsers(t *testing.T) {
	t.Parallel()

	alice := activeUser("user-1", "alice@example.com")
	bob := activeUser("user-2", "bob@example.com")
	stack := newTestStack(alice, bob)

	w := stack.do(http.MethodPost, "/api/v1/tasks", models.CreateTaskRequest{Title: "alice's task"}, bearerFor(alice.ID))
	if w.Code != http.StatusCreated {
		t.Fatalf("Create status = %d, want 201", w.Code)
	}
	var created models.TaskResponse
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	// Bob's view of Alice's task must equal his view of a nonexistent task
	foreign := stack.do(http.MethodGet, "/api/v1/tasks/"+created.ID, nil, bearerFor(bob.ID))
	missing := stack.do(http.MethodGet, "/api/v1/tasks/no-such-task", nil, bearerFor(bob.ID))
	if foreign.Code != http.StatusNotFound || missing.Code != http.StatusNotFound {
		t.Fatalf("Statuses = %d/%d, want 404/404", foreign.Code, missing.Code)
	}
	if foreign.Body.String() != missing.Body.String() {
		t.Errorf("Foreign and missing bodies differ: %q vs %q", foreign.Body.String(), missing.Body.String())
	}

	// Same for mutations
	title := "stolen"
	w = stack.do(http.MethodPut, "/api/v1/tasks/"+created.ID, models.UpdateTaskRequest{Title: &title}, bearerFor(bob.ID))
	if w.Code != http.StatusNotFound {
		t.Errorf("Foreign update status = %d, want 404", w.Code)
	}
	w = stack.do(http.MethodDelete, "/api/v1/tasks/"+created.ID, nil, bearerFor(bob.ID))
	if w.Code != http.StatusNotFound {
		t.Errorf("Foreign delete status = %d, want 404", w.Code)
	}

	// Bob's listing stays empty, Alice's task survives
	w = stack.do(http.MethodGet, "/api/v1/tasks", nil, bearerFor(bob.ID))
	var listing struct {
		Tasks []models.TaskResponse `json:"tasks"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &listing); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if len(listing.Tasks) != 0 {
		t.Errorf("Bob sees %d tasks, want 0", len(listing.Tasks))
	}
	w = stack.do(http.MethodGet, "/api/v1/tasks/"+created.ID, nil, bearerFor(alice.ID))
	if w.Code != http.StatusOK {
		t.Errorf("Alice's task should survive Bob's attempts, status = %d", w.Code)
	}
}

func TestTaskExport(t *testing.T) {
	t.Parallel()

	alice := activeUser("user-1", "alice@example.com")
	stack := newTestStack(alice)

	w := stack.do(http.MethodPost, "/api/v1/tasks", models.CreateTaskRequest{Title: "exported"}, bearerFor(alice.ID))
	if w.Code != http.StatusCreated {
		t.Fatalf("Create status = %d, want 201", w.Code)
	}

	w = stack.do(http.MethodGet, "/api/v1/tasks/export", nil, bearerFor(alice.ID))
	if w.Code != http.StatusOK {
		t.Fatalf("Export status = %d, want 200; body: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "spreadsheetml") {
		t.Errorf("Content-Type = %s, want an xlsx type", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, ".xlsx") {
		t.Errorf("Content-Disposition = %s, want an .xlsx filename", cd)
	}
	if w.Body.Len() == 0 {
		t.Error("Export body should not be empty")
	}
}

func TestTasksRequireAuthentication(t *testing.T) {
	t.Parallel()

	stack := newTestStack(activeUser("user-1", "alice@example.com"))

	w := stack.do(http.MethodGet, "/api/v1/tasks", nil, nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Status = %d, want 401", w.Code)
	}
}
