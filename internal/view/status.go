package view

import (
	"fmt"
	"time"

	"github.com/benvon/todoms/internal/models"
)

// DueStatus classifies a todo by its deadline
type DueStatus string

const (
	StatusNone       DueStatus = ""
	StatusCompleted  DueStatus = "completed"
	StatusOverdue    DueStatus = "overdue"
	StatusDueSoon    DueStatus = "due_soon"
	StatusInProgress DueStatus = "in_progress"
)

const dueSoonWindow = 24 * time.Hour

// Label returns the display text for the status
func (s DueStatus) Label() string {
	switch s {
	case StatusCompleted:
		return "Completed"
	case StatusOverdue:
		return "Overdue"
	case StatusDueSoon:
		return "Due soon"
	case StatusInProgress:
		return "In progress"
	}
	return ""
}

// StatusOf returns the due status of todo at now. Todos without a due date have no status.
func StatusOf(todo models.Todo, now time.Time) DueStatus {
	if todo.DueDate == nil {
		return StatusNone
	}
	switch {
	case todo.IsCompleted:
		return StatusCompleted
	case todo.DueDate.Before(now):
		return StatusOverdue
	case todo.DueDate.Sub(now) < dueSoonWindow:
		return StatusDueSoon
	}
	return StatusInProgress
}

// EmptyText returns the message shown when the display list is empty.
// It distinguishes an empty collection from a search that matched nothing.
func EmptyText(total int, searchTerm string) string {
	if total > 0 && searchTerm != "" {
		return "No todos match the current filter"
	}
	return "No todos yet. Use \"add\" to create your first one"
}

// IncompleteText is the header line summarising open work
func IncompleteText(items []models.Todo) string {
	return fmt.Sprintf("%d incomplete tasks", IncompleteCount(items))
}
