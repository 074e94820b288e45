package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/taskvault/taskvault-backend/internal/middleware"
	"github.com/taskvault/taskvault-backend/internal/models"
	"github.com/taskvault/taskvault-backend/internal/services"
	"github.com/taskvault/taskvault-backend/internal/services/excel"
	"github.com/taskvault/taskvault-backend/internal/utils"
)

type TaskHandler struct {
	taskService  *services.TaskService
	excelService *excel.Service
}

func NewTaskHandler(taskService *services.TaskService, excelService *excel.Service) *TaskHandler {
	return &TaskHandler{
		taskService:  taskService,
		excelService: excelService,
	}
}

// CreateTask godoc
// @Summary Create a new task
// @Description Create a task for the authenticated user
// @Tags tasks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.CreateTaskRequest true "Task creation request"
// @Success 201 {object} models.TaskResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/v1/tasks [post]
func (h *TaskHandler) CreateTask(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(string)

	var req models.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data", "details": err.Error()})
		return
	}

	task, err := h.taskService.CreateTask(userID, &req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create task", "details": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, h.taskToResponse(task))
}

// GetTasks godoc
// @Summary Get all tasks for the current user
// @Description Get the authenticated user's tasks, newest first
// @Tags tasks
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/v1/tasks [get]
func (h *TaskHandler) GetTasks(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(string)

	page, pageSize := utils.ParsePaginationFromQuery(c.Query("page"), c.Query("page_size"))
	offset := utils.CalculateOffset(page, pageSize)

	tasks, total, err := h.taskService.GetTasksByUser(userID, offset, pageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get tasks", "details": err.Error()})
		return
	}

	// Convert to responses
	responses := make([]models.TaskResponse, len(tasks))
	for i, task := range tasks {
		responses[i] = h.taskToResponse(task)
	}

	c.JSON(http.StatusOK, gin.H{
		"tasks":      responses,
		"pagination": utils.CalculatePaginationInfo(int(total), page, pageSize),
	})
}

// GetTask godoc
// @Summary Get a task by ID
// @Description Get a specific task owned by the authenticated user
// @Tags tasks
// @Produce json
// @Security BearerAuth
// @Param id path string true "Task ID"
// @Success 200 {object} models.TaskResponse
// @Failure 404 {object} map[string]interface{}
// @Router /api/v1/tasks/{id} [get]
func (h *TaskHandler) GetTask(c *gin.Context) {
	// Task is already loaded by the ownership middleware
	task := c.MustGet(middleware.ContextTask).(*models.Task)
	c.JSON(http.StatusOK, h.taskToResponse(task))
}

// UpdateTask godoc
// @Summary Update a task
// @Description Update a task owned by the authenticated user
// @Tags tasks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Task ID"
// @Param request body models.UpdateTaskRequest true "Task update request"
// @Success 200 {object} models.TaskResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/v1/tasks/{id} [put]
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	task := c.MustGet(middleware.ContextTask).(*models.Task)

	var req models.UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data", "details": err.Error()})
		return
	}

	updated, err := h.taskService.UpdateTask(task, &req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update task", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, h.taskToResponse(updated))
}

// DeleteTask godoc
// @Summary Delete a task
// @Description Delete a task owned by the authenticated user
// @Tags tasks
// @Produce json
// @Security BearerAuth
// @Param id path string true "Task ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/v1/tasks/{id} [delete]
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	task := c.MustGet(middleware.ContextTask).(*models.Task)

	if err := h.taskService.DeleteTask(task); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete task", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Task deleted successfully"})
}

// ExportTasks godoc
// @Summary Export tasks to Excel
// @Description Download the authenticated user's tasks as an .xlsx workbook
// @Tags tasks
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Success 200 {file} file
// @Failure 500 {object} map[string]interface{}
// @Router /api/v1/tasks/export [get]
func (h *TaskHandler) ExportTasks(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(string)
	user := c.MustGet(middleware.ContextUser).(*models.User)

	tasks, err := h.taskService.GetAllTasksByUser(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get tasks", "details": err.Error()})
		return
	}

	f, err := h.excelService.ExportTasks(user, tasks)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to export tasks", "details": err.Error()})
		return
	}
	defer func() {
		if err := f.Close(); err != nil {
			logrus.Warnf("Failed to close export workbook: %v", err)
		}
	}()

	filename := excel.ExportFilename(user, time.Now())
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")

	if err := f.Write(c.Writer); err != nil {
		logrus.Errorf("Failed to stream export workbook: %v", err)
	}
}

// taskToResponse converts a task to its response representation
func (h *TaskHandler) taskToResponse(task *models.Task) models.TaskResponse {
	return models.TaskResponse{
		ID:          task.ID,
		Title:       task.Title,
		Description: task.Description,
		Completed:   task.Completed,
		UserID:      task.UserID,
		CreatedAt:   task.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   task.UpdatedAt.Format(time.RFC3339),
	}
}
