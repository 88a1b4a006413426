package database

import (
	"context"
	"slices"
	"sync"

	"github.com/benvon/todoms/internal/models"
)

type ownedTodo struct {
	userID string
	todo   models.Todo
}

// MemoryTodoRepository keeps todos in process memory, in insertion order
type MemoryTodoRepository struct {
	mu    sync.RWMutex
	todos []ownedTodo
}

// NewMemoryTodoRepository creates an empty in-memory todo repository
func NewMemoryTodoRepository() *MemoryTodoRepository {
	return &MemoryTodoRepository{}
}

func (r *MemoryTodoRepository) index(userID, id string) int {
	return slices.IndexFunc(r.todos, func(o ownedTodo) bool {
		return o.todo.ID == id && o.userID == userID
	})
}

// Create stores a new todo owned by userID
func (r *MemoryTodoRepository) Create(_ context.Context, userID string, todo *models.Todo) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if slices.ContainsFunc(r.todos, func(o ownedTodo) bool { return o.todo.ID == todo.ID }) {
		return ErrConflict
	}
	ts := now()
	todo.CreatedAt = ts
	todo.UpdatedAt = ts
	r.todos = append(r.todos, ownedTodo{userID: userID, todo: cloneTodo(*todo)})
	return nil
}

// GetByID retrieves a todo by ID
func (r *MemoryTodoRepository) GetByID(_ context.Context, userID, id string) (*models.Todo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i := r.index(userID, id)
	if i < 0 {
		return nil, ErrNotFound
	}
	todo := cloneTodo(r.todos[i].todo)
	return &todo, nil
}

// GetByUserID retrieves all todos for a user
func (r *MemoryTodoRepository) GetByUserID(_ context.Context, userID string) ([]models.Todo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	todos := []models.Todo{}
	for _, o := range r.todos {
		if o.userID == userID {
			todos = append(todos, cloneTodo(o.todo))
		}
	}
	return todos, nil
}

// Update replaces every mutable field of an existing todo
func (r *MemoryTodoRepository) Update(_ context.Context, userID string, todo *models.Todo) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.index(userID, todo.ID)
	if i < 0 {
		return ErrNotFound
	}
	todo.CreatedAt = r.todos[i].todo.CreatedAt
	todo.UpdatedAt = now()
	r.todos[i].todo = cloneTodo(*todo)
	return nil
}

// Delete deletes a todo
func (r *MemoryTodoRepository) Delete(_ context.Context, userID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.index(userID, id)
	if i < 0 {
		return ErrNotFound
	}
	r.todos = slices.Delete(r.todos, i, i+1)
	return nil
}

func cloneTodo(t models.Todo) models.Todo {
	if t.Description != nil {
		d := *t.Description
		t.Description = &d
	}
	if t.DueDate != nil {
		due := *t.DueDate
		t.DueDate = &due
	}
	return t
}

// MemoryUserRepository keeps accounts in process memory
type MemoryUserRepository struct {
	mu       sync.RWMutex
	byID     map[string]models.Account
	idByMail map[string]string
}

// NewMemoryUserRepository creates an empty in-memory account repository
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		byID:     make(map[string]models.Account),
		idByMail: make(map[string]string),
	}
}

// Create stores a new account
func (r *MemoryUserRepository) Create(_ context.Context, account *models.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	account.Email = normalizeEmail(account.Email)
	if _, ok := r.idByMail[account.Email]; ok {
		return ErrConflict
	}
	if _, ok := r.byID[account.ID]; ok {
		return ErrConflict
	}
	ts := now()
	account.CreatedAt = ts
	account.UpdatedAt = ts

	stored := *account
	stored.PasswordHash = slices.Clone(account.PasswordHash)
	r.byID[account.ID] = stored
	r.idByMail[account.Email] = account.ID
	return nil
}

// GetByID retrieves an account by ID
func (r *MemoryUserRepository) GetByID(_ context.Context, id string) (*models.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	account, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &account, nil
}

// GetByEmail retrieves an account by email
func (r *MemoryUserRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	r.mu.RLock()
	id, ok := r.idByMail[normalizeEmail(email)]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return r.GetByID(ctx, id)
}
