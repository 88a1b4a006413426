package database

import (
	"context"

	"github.com/benvon/todoms/internal/models"
)

// TodoRepositoryInterface defines the todo operations the handlers depend on.
// Every lookup is scoped to the owning user; other users' todos are reported as ErrNotFound.
type TodoRepositoryInterface interface {
	Create(ctx context.Context, userID string, todo *models.Todo) error
	GetByID(ctx context.Context, userID, id string) (*models.Todo, error)
	GetByUserID(ctx context.Context, userID string) ([]models.Todo, error)
	Update(ctx context.Context, userID string, todo *models.Todo) error
	Delete(ctx context.Context, userID, id string) error
}

// UserRepositoryInterface defines the account operations the handlers depend on
type UserRepositoryInterface interface {
	Create(ctx context.Context, account *models.Account) error
	GetByID(ctx context.Context, id string) (*models.Account, error)
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
}

// Ensure concrete types implement the interfaces
var (
	_ TodoRepositoryInterface = (*TodoRepository)(nil)
	_ TodoRepositoryInterface = (*MemoryTodoRepository)(nil)
	_ UserRepositoryInterface = (*UserRepository)(nil)
	_ UserRepositoryInterface = (*MemoryUserRepository)(nil)
)
