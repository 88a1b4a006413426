package models

import (
	"time"
)

// Todo represents a todo item as exchanged with the API
type Todo struct {
	ID          string     `json:"id" validate:"required"`
	Title       string     `json:"title" validate:"required"`
	Description *string    `json:"description"`
	DueDate     *time.Time `json:"dueDate"`
	IsCompleted bool       `json:"isCompleted"`
	CreatedAt   time.Time  `json:"createdAt" validate:"required"`
	UpdatedAt   time.Time  `json:"updatedAt" validate:"required"`
}

// TodosResponse is the body returned by the list endpoint
type TodosResponse struct {
	Todos []Todo `json:"todos" validate:"required,dive"`
}

// CreateTodoRequest represents a create todo request
type CreateTodoRequest struct {
	Title       string     `json:"title" validate:"required,notblank,max=10000"`
	Description *string    `json:"description,omitempty" validate:"omitempty,max=10000"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
}

// UpdateTodoRequest is a whole-record replacement; every field is sent on every update
type UpdateTodoRequest struct {
	Title       string     `json:"title" validate:"required,notblank,max=10000"`
	Description *string    `json:"description,omitempty" validate:"omitempty,max=10000"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	IsCompleted bool       `json:"isCompleted"`
}

// UpdateRequestFrom builds the replacement payload for an existing todo
func UpdateRequestFrom(todo Todo) UpdateTodoRequest {
	return UpdateTodoRequest{
		Title:       todo.Title,
		Description: todo.Description,
		DueDate:     todo.DueDate,
		IsCompleted: todo.IsCompleted,
	}
}
