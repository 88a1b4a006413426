package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/benvon/todoms/internal/database"
	logpkg "github.com/benvon/todoms/internal/logger"
	"github.com/benvon/todoms/internal/middleware"
	"github.com/benvon/todoms/internal/models"
	"github.com/benvon/todoms/internal/queue"
	"github.com/benvon/todoms/internal/validation"
)

const eventPublishTimeout = 2 * time.Second

// TodoHandler handles todo-related requests
type TodoHandler struct {
	todoRepo database.TodoRepositoryInterface
	events   queue.Publisher
	logger   *zap.Logger
}

// NewTodoHandler creates a new todo handler
func NewTodoHandler(todoRepo database.TodoRepositoryInterface, events queue.Publisher, logger *zap.Logger) *TodoHandler {
	if events == nil {
		events = queue.NoopPublisher{}
	}
	return &TodoHandler{todoRepo: todoRepo, events: events, logger: logger}
}

// RegisterRoutes registers todo routes on the given router
// The router should already have the /api/todos prefix
func (h *TodoHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.ListTodos).Methods(http.MethodGet)
	r.HandleFunc("", h.CreateTodo).Methods(http.MethodPost)
	r.HandleFunc("/{id}", h.GetTodo).Methods(http.MethodGet)
	r.HandleFunc("/{id}", h.UpdateTodo).Methods(http.MethodPut)
	r.HandleFunc("/{id}", h.DeleteTodo).Methods(http.MethodDelete)
}

// ListTodos lists every todo of the authenticated user
func (h *TodoHandler) ListTodos(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, models.ErrCodeInvalidToken, "User not found in context")
		return
	}

	todos, err := h.todoRepo.GetByUserID(r.Context(), user.ID)
	if err != nil {
		h.storeFailure(w, "failed_to_list_todos", err)
		return
	}

	respondJSON(w, http.StatusOK, models.TodosResponse{Todos: todos})
}

// GetTodo returns one todo
func (h *TodoHandler) GetTodo(w http.ResponseWriter, r *http.Request) {
	user, id, ok := h.target(w, r)
	if !ok {
		return
	}

	todo, err := h.todoRepo.GetByID(r.Context(), user.ID, id)
	if err != nil {
		h.storeFailure(w, "failed_to_get_todo", err)
		return
	}

	respondJSON(w, http.StatusOK, todo)
}

// CreateTodo creates a new todo
func (h *TodoHandler) CreateTodo(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, models.ErrCodeInvalidToken, "User not found in context")
		return
	}

	var req models.CreateTodoRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondJSONError(w, http.StatusBadRequest, models.ErrCodeValidation, err.Error())
		return
	}

	todo := &models.Todo{
		ID:          uuid.New().String(),
		Title:       validation.SanitizeText(req.Title),
		Description: sanitizeOptional(req.Description),
		DueDate:     utcOptional(req.DueDate),
	}
	if err := h.todoRepo.Create(r.Context(), user.ID, todo); err != nil {
		h.storeFailure(w, "failed_to_create_todo", err)
		return
	}

	publishEvent(r, h.events, h.logger, queue.NewEvent(queue.EventTypeTodoCreated, user.ID, todo.ID))
	respondJSON(w, http.StatusCreated, todo)
}

// UpdateTodo replaces every mutable field of a todo
func (h *TodoHandler) UpdateTodo(w http.ResponseWriter, r *http.Request) {
	user, id, ok := h.target(w, r)
	if !ok {
		return
	}

	var req models.UpdateTodoRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondJSONError(w, http.StatusBadRequest, models.ErrCodeValidation, err.Error())
		return
	}

	ctx := r.Context()
	existing, err := h.todoRepo.GetByID(ctx, user.ID, id)
	if err != nil {
		h.storeFailure(w, "failed_to_get_todo", err)
		return
	}

	todo := &models.Todo{
		ID:          id,
		Title:       validation.SanitizeText(req.Title),
		Description: sanitizeOptional(req.Description),
		DueDate:     utcOptional(req.DueDate),
		IsCompleted: req.IsCompleted,
	}
	if err := h.todoRepo.Update(ctx, user.ID, todo); err != nil {
		h.storeFailure(w, "failed_to_update_todo", err)
		return
	}

	eventType := queue.EventTypeTodoUpdated
	switch {
	case todo.IsCompleted && !existing.IsCompleted:
		eventType = queue.EventTypeTodoComplete
	case !todo.IsCompleted && existing.IsCompleted:
		eventType = queue.EventTypeTodoReopened
	}
	publishEvent(r, h.events, h.logger, queue.NewEvent(eventType, user.ID, todo.ID))

	respondJSON(w, http.StatusOK, todo)
}

// DeleteTodo deletes a todo and answers 204
func (h *TodoHandler) DeleteTodo(w http.ResponseWriter, r *http.Request) {
	user, id, ok := h.target(w, r)
	if !ok {
		return
	}

	if err := h.todoRepo.Delete(r.Context(), user.ID, id); err != nil {
		h.storeFailure(w, "failed_to_delete_todo", err)
		return
	}

	publishEvent(r, h.events, h.logger, queue.NewEvent(queue.EventTypeTodoDeleted, user.ID, id))
	w.WriteHeader(http.StatusNoContent)
}

// target resolves the caller and the {id} path variable.
// Malformed ids get 404, the same as ids owned by someone else.
func (h *TodoHandler) target(w http.ResponseWriter, r *http.Request) (*models.User, string, bool) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, models.ErrCodeInvalidToken, "User not found in context")
		return nil, "", false
	}

	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondJSONError(w, http.StatusNotFound, models.ErrCodeNotFound, "Todo not found")
		return nil, "", false
	}
	return user, id.String(), true
}

func (h *TodoHandler) storeFailure(w http.ResponseWriter, event string, err error) {
	switch {
	case errors.Is(err, database.ErrNotFound):
		respondJSONError(w, http.StatusNotFound, models.ErrCodeNotFound, "Todo not found")
	case errors.Is(err, database.ErrConflict):
		respondJSONError(w, http.StatusConflict, models.ErrCodeConflict, "Todo already exists")
	default:
		h.logger.Error(event, zap.String("error", logpkg.SanitizeError(err)))
		respondJSONError(w, http.StatusInternalServerError, models.ErrCodeInternal, "Internal server error")
	}
}

func sanitizeOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := validation.SanitizeText(*s)
	if v == "" {
		return nil
	}
	return &v
}

func utcOptional(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}
