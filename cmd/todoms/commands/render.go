package commands

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/benvon/todoms/internal/models"
	"github.com/benvon/todoms/internal/view"
)

const (
	shortIDLength = 8
	dateLayout    = "2006-01-02"
)

func shortID(id string) string {
	if len(id) > shortIDLength {
		return id[:shortIDLength]
	}
	return id
}

func checkbox(done bool) string {
	if done {
		return "[x]"
	}
	return "[ ]"
}

func formatDue(due *time.Time) string {
	if due == nil {
		return "-"
	}
	return due.Local().Format("2006-01-02 15:04")
}

// renderTodos prints the display list as a table
func renderTodos(w io.Writer, items []models.Todo, now time.Time) {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "", "TITLE", "DUE", "STATUS")
	for _, todo := range items {
		t.Row(
			shortID(todo.ID),
			checkbox(todo.IsCompleted),
			todo.Title,
			formatDue(todo.DueDate),
			view.StatusOf(todo, now).Label(),
		)
	}
	fmt.Fprintln(w, t.String())
}

// renderTodo prints every field of one todo
func renderTodo(w io.Writer, todo models.Todo, now time.Time) {
	var b strings.Builder
	fmt.Fprintf(&b, "ID:          %s\n", todo.ID)
	fmt.Fprintf(&b, "Title:       %s\n", todo.Title)
	if todo.Description != nil && *todo.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", *todo.Description)
	}
	fmt.Fprintf(&b, "Due:         %s\n", formatDue(todo.DueDate))
	if status := view.StatusOf(todo, now).Label(); status != "" {
		fmt.Fprintf(&b, "Status:      %s\n", status)
	}
	fmt.Fprintf(&b, "Completed:   %t\n", todo.IsCompleted)
	fmt.Fprintf(&b, "Created:     %s\n", todo.CreatedAt.Local().Format(time.RFC3339))
	fmt.Fprintf(&b, "Updated:     %s\n", todo.UpdatedAt.Local().Format(time.RFC3339))
	fmt.Fprint(w, b.String())
}

func sortKeyList() string {
	names := make([]string, len(view.SortKeys))
	for i, k := range view.SortKeys {
		names[i] = k.String()
	}
	return strings.Join(names, ", ")
}

// parseDue accepts an RFC 3339 timestamp or a calendar date, which means local midnight
func parseDue(s string) (*time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		t = t.UTC()
		return &t, nil
	}
	t, err := time.ParseInLocation(dateLayout, s, time.Local)
	if err != nil {
		return nil, fmt.Errorf("invalid due date %q: use YYYY-MM-DD or RFC 3339", s)
	}
	t = t.UTC()
	return &t, nil
}
