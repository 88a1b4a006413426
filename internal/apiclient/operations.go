package apiclient

import (
	"context"
	"net/http"
	"net/url"

	"github.com/benvon/todoms/internal/models"
)

// Route paths of the todoms API
const (
	PathSignup  = "/api/auth/signup"
	PathLogin   = "/api/auth/login"
	PathRefresh = "/api/auth/refresh"
	PathMe      = "/api/auth/me"
	PathTodos   = "/api/todos"
)

func todoPath(id string) string {
	return PathTodos + "/" + url.PathEscape(id)
}

// Signup registers a new account
func (c *Client) Signup(ctx context.Context, req models.SignupRequest) Envelope[models.User] {
	return do[models.User](ctx, c, http.MethodPost, PathSignup, "", req)
}

// Login exchanges credentials for a token pair
func (c *Client) Login(ctx context.Context, req models.LoginRequest) Envelope[models.TokenResponse] {
	return do[models.TokenResponse](ctx, c, http.MethodPost, PathLogin, "", req)
}

// Refresh exchanges a refresh token for a new token pair
func (c *Client) Refresh(ctx context.Context, req models.RefreshTokenRequest) Envelope[models.TokenResponse] {
	return do[models.TokenResponse](ctx, c, http.MethodPost, PathRefresh, "", req)
}

// Me returns the identity behind the access token
func (c *Client) Me(ctx context.Context, token string) Envelope[models.User] {
	return do[models.User](ctx, c, http.MethodGet, PathMe, token, nil)
}

// ListTodos returns every todo owned by the caller
func (c *Client) ListTodos(ctx context.Context, token string) Envelope[models.TodosResponse] {
	return do[models.TodosResponse](ctx, c, http.MethodGet, PathTodos, token, nil)
}

// GetTodo returns a single todo
func (c *Client) GetTodo(ctx context.Context, token, id string) Envelope[models.Todo] {
	return do[models.Todo](ctx, c, http.MethodGet, todoPath(id), token, nil)
}

// CreateTodo creates a todo and returns the stored record
func (c *Client) CreateTodo(ctx context.Context, token string, req models.CreateTodoRequest) Envelope[models.Todo] {
	return do[models.Todo](ctx, c, http.MethodPost, PathTodos, token, req)
}

// UpdateTodo replaces every field of a todo and returns the stored record
func (c *Client) UpdateTodo(ctx context.Context, token, id string, req models.UpdateTodoRequest) Envelope[models.Todo] {
	return do[models.Todo](ctx, c, http.MethodPut, todoPath(id), token, req)
}

// DeleteTodo deletes a todo. Success is a 204 with no data.
func (c *Client) DeleteTodo(ctx context.Context, token, id string) Envelope[struct{}] {
	return do[struct{}](ctx, c, http.MethodDelete, todoPath(id), token, nil)
}
