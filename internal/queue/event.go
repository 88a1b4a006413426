package queue

import (
	"time"

	"github.com/google/uuid"
)

// EventType identifies what happened
type EventType string

const (
	EventTypeUserSignedUp EventType = "user_signed_up"
	EventTypeTodoCreated  EventType = "todo_created"
	EventTypeTodoUpdated  EventType = "todo_updated"
	EventTypeTodoComplete EventType = "todo_completed"
	EventTypeTodoReopened EventType = "todo_reopened"
	EventTypeTodoDeleted  EventType = "todo_deleted"
)

// Event is a single activity record published by the server
type Event struct {
	ID         uuid.UUID      `json:"id"`
	Type       EventType      `json:"type"`
	UserID     string         `json:"user_id"`
	TodoID     string         `json:"todo_id,omitempty"`
	RequestID  string         `json:"request_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	RetryCount int            `json:"retry_count"`
	MaxRetries int            `json:"max_retries"`
}

// NewEvent creates a new event
func NewEvent(eventType EventType, userID, todoID string) *Event {
	return &Event{
		ID:         uuid.New(),
		Type:       eventType,
		UserID:     userID,
		TodoID:     todoID,
		Metadata:   make(map[string]any),
		CreatedAt:  time.Now().UTC(),
		MaxRetries: 3,
	}
}

// IsKnown reports whether the worker knows how to handle the event type
func (e *Event) IsKnown() bool {
	switch e.Type {
	case EventTypeUserSignedUp, EventTypeTodoCreated, EventTypeTodoUpdated,
		EventTypeTodoComplete, EventTypeTodoReopened, EventTypeTodoDeleted:
		return true
	}
	return false
}

// CanRetry checks if the event can be retried
func (e *Event) CanRetry() bool {
	return e.RetryCount < e.MaxRetries
}

// IncrementRetry increments the retry count
func (e *Event) IncrementRetry() {
	e.RetryCount++
}
