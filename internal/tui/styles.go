package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/benvon/todoms/internal/todos"
	"github.com/benvon/todoms/internal/view"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	subtleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	cursorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("13"))
	doneStyle     = lipgloss.NewStyle().Strikethrough(true).Foreground(lipgloss.Color("8"))
	successStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	overdueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	dueSoonStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	progressStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
)

func statusStyle(s view.DueStatus) lipgloss.Style {
	switch s {
	case view.StatusOverdue:
		return overdueStyle
	case view.StatusDueSoon:
		return dueSoonStyle
	case view.StatusInProgress:
		return progressStyle
	case view.StatusCompleted:
		return successStyle
	}
	return subtleStyle
}

func notificationStyle(k todos.Kind) lipgloss.Style {
	if k == todos.KindError {
		return errorStyle
	}
	return successStyle
}
