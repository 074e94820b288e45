// Package excel builds spreadsheet exports of user data.
package excel

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/taskvault/taskvault-backend/internal/models"
)

const taskSheetName = "Tasks"

// Service handles Excel export operations
type Service struct{}

// NewService creates a new Excel service instance
func NewService() *Service {
	return &Service{}
}

// ExportTasks builds a workbook listing the given tasks. The caller is
// responsible for closing the returned file.
func (s *Service) ExportTasks(user *models.User, tasks []*models.Task) (*excelize.File, error) {
	f := excelize.NewFile()

	index, err := f.NewSheet(taskSheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	// Header row
	headers := []string{"ID", "Title", "Description", "Completed", "Created At", "Updated At"}
	for i, col := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to resolve header cell: %w", err)
		}
		f.SetCellValue(taskSheetName, cell, col)
	}

	// Column widths for readability
	f.SetColWidth(taskSheetName, "A", "A", 38)
	f.SetColWidth(taskSheetName, "B", "B", 30)
	f.SetColWidth(taskSheetName, "C", "C", 50)
	f.SetColWidth(taskSheetName, "E", "F", 22)

	for i, task := range tasks {
		rowNum := i + 2
		f.SetCellValue(taskSheetName, fmt.Sprintf("A%d", rowNum), task.ID)
		f.SetCellValue(taskSheetName, fmt.Sprintf("B%d", rowNum), task.Title)
		f.SetCellValue(taskSheetName, fmt.Sprintf("C%d", rowNum), task.Description)
		f.SetCellValue(taskSheetName, fmt.Sprintf("D%d", rowNum), task.Completed)
		f.SetCellValue(taskSheetName, fmt.Sprintf("E%d", rowNum), task.CreatedAt.Format(time.RFC3339))
		f.SetCellValue(taskSheetName, fmt.Sprintf("F%d", rowNum), task.UpdatedAt.Format(time.RFC3339))
	}

	if len(tasks) == 0 {
		f.SetCellValue(taskSheetName, "A2", "no tasks found for this user")
	}

	return f, nil
}

// ExportFilename builds a timestamped download name for a user's export
func ExportFilename(user *models.User, now time.Time) string {
	return fmt.Sprintf("tasks_%s_%s.xlsx", user.ID, now.Format("20060102_150405"))
}
