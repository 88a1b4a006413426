package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/benvon/todoms/internal/models"
)

// TodoRepository handles todo database operations
type TodoRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewTodoRepository creates a new todo repository
func NewTodoRepository(db *DB) *TodoRepository {
	return &TodoRepository{db: db, logger: zap.NewNop()}
}

// SetLogger sets the logger for the repository
func (r *TodoRepository) SetLogger(logger *zap.Logger) {
	r.logger = logger
}

const todoColumns = `id, title, description, due_date, is_completed, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTodo(row rowScanner) (*models.Todo, error) {
	todo := &models.Todo{}
	var description sql.NullString
	var dueDate sql.NullTime

	if err := row.Scan(
		&todo.ID,
		&todo.Title,
		&description,
		&dueDate,
		&todo.IsCompleted,
		&todo.CreatedAt,
		&todo.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if description.Valid {
		todo.Description = &description.String
	}
	if dueDate.Valid {
		due := dueDate.Time.UTC()
		todo.DueDate = &due
	}
	todo.CreatedAt = todo.CreatedAt.UTC()
	todo.UpdatedAt = todo.UpdatedAt.UTC()
	return todo, nil
}

// Create creates a new todo owned by userID
func (r *TodoRepository) Create(ctx context.Context, userID string, todo *models.Todo) error {
	query := `
		INSERT INTO todos (id, user_id, title, description, due_date, is_completed, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`

	ts := now()
	err := r.db.QueryRowContext(ctx, query,
		todo.ID,
		userID,
		todo.Title,
		todo.Description,
		todo.DueDate,
		todo.IsCompleted,
		ts,
		ts,
	).Scan(&todo.CreatedAt, &todo.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("failed to create todo: %w", err)
	}
	todo.CreatedAt = todo.CreatedAt.UTC()
	todo.UpdatedAt = todo.UpdatedAt.UTC()

	r.logger.Debug("todo_created", zap.String("todo_id", todo.ID))
	return nil
}

// GetByID retrieves a todo by ID
func (r *TodoRepository) GetByID(ctx context.Context, userID, id string) (*models.Todo, error) {
	query := `SELECT ` + todoColumns + ` FROM todos WHERE id = $1 AND user_id = $2`

	todo, err := scanTodo(r.db.QueryRowContext(ctx, query, id, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get todo: %w", err)
	}
	return todo, nil
}

// GetByUserID retrieves all todos for a user
func (r *TodoRepository) GetByUserID(ctx context.Context, userID string) ([]models.Todo, error) {
	query := `SELECT ` + todoColumns + ` FROM todos WHERE user_id = $1 ORDER BY created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query todos: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			r.logger.Warn("failed_to_close_rows", zap.Error(closeErr))
		}
	}()

	todos := []models.Todo{}
	for rows.Next() {
		todo, err := scanTodo(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan todo: %w", err)
		}
		todos = append(todos, *todo)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating todos: %w", err)
	}
	return todos, nil
}

// Update replaces every mutable field of an existing todo
func (r *TodoRepository) Update(ctx context.Context, userID string, todo *models.Todo) error {
	query := `
		UPDATE todos
		SET title = $3, description = $4, due_date = $5, is_completed = $6, updated_at = $7
		WHERE id = $1 AND user_id = $2
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		todo.ID,
		userID,
		todo.Title,
		todo.Description,
		todo.DueDate,
		todo.IsCompleted,
		now(),
	).Scan(&todo.CreatedAt, &todo.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update todo: %w", err)
	}
	todo.CreatedAt = todo.CreatedAt.UTC()
	todo.UpdatedAt = todo.UpdatedAt.UTC()
	return nil
}

// Delete deletes a todo
func (r *TodoRepository) Delete(ctx context.Context, userID, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM todos WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete todo: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
