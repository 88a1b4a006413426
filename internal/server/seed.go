package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/benvon/todoms/internal/database"
	"github.com/benvon/todoms/internal/handlers"
	"github.com/benvon/todoms/internal/models"
)

// Demo account credentials
const (
	DemoEmail    = "user@example.com"
	DemoPassword = "password"
)

// SeedDemo creates the demo account with a few sample todos.
// It does nothing when the account already exists.
func SeedDemo(ctx context.Context, users database.UserRepositoryInterface, todos database.TodoRepositoryInterface, logger *zap.Logger) error {
	user, err := handlers.CreateAccount(ctx, users, DemoEmail, DemoPassword)
	if errors.Is(err, database.ErrConflict) {
		logger.Info("demo_account_exists", zap.String("email", DemoEmail))
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to create demo account: %w", err)
	}

	for _, todo := range sampleTodos(time.Now().UTC()) {
		if err := todos.Create(ctx, user.ID, &todo); err != nil {
			return fmt.Errorf("failed to create demo todo: %w", err)
		}
	}

	logger.Info("demo_account_seeded", zap.String("email", DemoEmail), zap.String("user_id", user.ID))
	return nil
}

func sampleTodos(now time.Time) []models.Todo {
	groceries := "Milk, eggs, bread"
	report := "Quarterly numbers for the team meeting"
	due := now.Add(72 * time.Hour).Truncate(time.Hour)

	return []models.Todo{
		{ID: uuid.New().String(), Title: "Buy groceries", Description: &groceries},
		{ID: uuid.New().String(), Title: "Finish project report", Description: &report, DueDate: &due},
		{ID: uuid.New().String(), Title: "Call the dentist", IsCompleted: true},
	}
}
