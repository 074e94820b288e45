package services

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/taskvault/taskvault-backend/internal/models"
)

// Task lifecycle event types published to the task events queue
const (
	TaskEventCreated = "task.created"
	TaskEventUpdated = "task.updated"
	TaskEventDeleted = "task.deleted"
)

// TaskStore is the persistence surface the service needs for tasks
type TaskStore interface {
	Create(task *models.Task) error
	GetByID(id string) (*models.Task, error)
	GetByUserID(userID string, offset, limit int) ([]*models.Task, error)
	CountByUserID(userID string) (int64, error)
	GetAllByUserID(userID string) ([]*models.Task, error)
	Update(task *models.Task) error
	Delete(id string) (bool, error)
}

// EventPublisher publishes task lifecycle events. Publishing is
// best-effort; a broker outage never fails the operation.
type EventPublisher interface {
	PublishMessage(queueName string, message map[string]interface{}) error
}

// TaskService handles task CRUD and event publishing
type TaskService struct {
	taskStore TaskStore
	publisher EventPublisher
}

// NewTaskService creates a new task service. The publisher may be nil
// when RabbitMQ is unavailable.
func NewTaskService(taskStore TaskStore, publisher EventPublisher) *TaskService {
	return &TaskService{
		taskStore: taskStore,
		publisher: publisher,
	}
}

// CreateTask creates a task owned by the given user
func (s *TaskService) CreateTask(userID string, req *models.CreateTaskRequest) (*models.Task, error) {
	task := &models.Task{
		Title:       req.Title,
		Description: req.Description,
		Completed:   req.Completed,
		UserID:      userID,
	}

	if err := s.taskStore.Create(task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	s.publishEvent(TaskEventCreated, task)
	return task, nil
}

// GetTasksByUser returns a page of the user's tasks, newest first, with
// the total count
func (s *TaskService) GetTasksByUser(userID string, offset, limit int) ([]*models.Task, int64, error) {
	tasks, err := s.taskStore.GetByUserID(userID, offset, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get tasks: %w", err)
	}

	total, err := s.taskStore.CountByUserID(userID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count tasks: %w", err)
	}

	return tasks, total, nil
}

// GetAllTasksByUser returns every task for a user, newest first
func (s *TaskService) GetAllTasksByUser(userID string) ([]*models.Task, error) {
	return s.taskStore.GetAllByUserID(userID)
}

// UpdateTask applies the provided fields to an already ownership-resolved
// task and persists it
func (s *TaskService) UpdateTask(task *models.Task, req *models.UpdateTaskRequest) (*models.Task, error) {
	if req.Title != nil {
		task.Title = *req.Title
	}
	if req.Description != nil {
		task.Description = *req.Description
	}
	if req.Completed != nil {
		task.Completed = *req.Completed
	}

	if err := s.taskStore.Update(task); err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	s.publishEvent(TaskEventUpdated, task)
	return task, nil
}

// DeleteTask removes an already ownership-resolved task
func (s *TaskService) DeleteTask(task *models.Task) error {
	deleted, err := s.taskStore.Delete(task.ID)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	if !deleted {
		return fmt.Errorf("task not found")
	}

	s.publishEvent(TaskEventDeleted, task)
	return nil
}

// publishEvent publishes a task lifecycle event, best-effort
func (s *TaskService) publishEvent(eventType string, task *models.Task) {
	if s.publisher == nil {
		return
	}

	message := map[string]interface{}{
		"event":   eventType,
		"task_id": task.ID,
		"user_id": task.UserID,
		"title":   task.Title,
	}

	if err := s.publisher.PublishMessage(TaskEventsQueue, message); err != nil {
		logrus.Warnf("Failed to publish %s event for task %s: %v", eventType, task.ID, err)
	}
}
