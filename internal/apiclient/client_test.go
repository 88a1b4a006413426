package apiclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/benvon/todoms/internal/models"
)

const validTodoJSON = `{"id":"t1","title":"Buy milk","description":null,"dueDate":null,"isCompleted":false,
	"createdAt":"2025-04-20T10:30:00Z","updatedAt":"2025-04-20T10:30:00Z"}`

func newTestServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if body != "" {
			w.Header().Set("Content-Type", "application/json")
		}
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestGetTodo_Envelope(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		status   int
		body     string
		validate func(*testing.T, Envelope[models.Todo])
	}{
		{
			name:   "success with body",
			status: http.StatusOK,
			body:   validTodoJSON,
			validate: func(t *testing.T, env Envelope[models.Todo]) {
				if env.Data == nil || env.Data.ID != "t1" {
					t.Fatalf("Expected todo t1, got %+v", env.Data)
				}
				if env.Error != nil {
					t.Errorf("Expected no error, got %+v", env.Error)
				}
				if env.StatusCode != http.StatusOK || !env.OK() {
					t.Errorf("Expected OK 200, got %d", env.StatusCode)
				}
			},
		},
		{
			name:   "no content",
			status: http.StatusNoContent,
			validate: func(t *testing.T, env Envelope[models.Todo]) {
				if env.Data != nil || env.Error != nil {
					t.Errorf("Expected nil data and error, got %+v / %+v", env.Data, env.Error)
				}
				if env.StatusCode != http.StatusNoContent {
					t.Errorf("Expected status 204, got %d", env.StatusCode)
				}
			},
		},
		{
			name:   "business error",
			status: http.StatusNotFound,
			body:   `{"code":"not_found","message":"Todo not found"}`,
			validate: func(t *testing.T, env Envelope[models.Todo]) {
				if env.Data != nil {
					t.Errorf("Expected nil data, got %+v", env.Data)
				}
				if env.Error == nil || env.Error.Code != models.ErrCodeNotFound {
					t.Fatalf("Expected not_found error, got %+v", env.Error)
				}
				if env.Error.Message != "Todo not found" {
					t.Errorf("Expected message from body, got %q", env.Error.Message)
				}
				if env.StatusCode != http.StatusNotFound {
					t.Errorf("Expected status 404, got %d", env.StatusCode)
				}
			},
		},
		{
			name:   "unparseable error body keeps status",
			status: http.StatusBadGateway,
			body:   `<html>bad gateway</html>`,
			validate: func(t *testing.T, env Envelope[models.Todo]) {
				if env.Error == nil || env.Error.Code != ErrCodeHTTP {
					t.Fatalf("Expected %s error, got %+v", ErrCodeHTTP, env.Error)
				}
				if env.StatusCode != http.StatusBadGateway {
					t.Errorf("Expected status 502, got %d", env.StatusCode)
				}
				if env.IsClientError() {
					t.Error("Expected a server-side error, not a client error")
				}
			},
		},
		{
			name:   "error body without code keeps message",
			status: http.StatusServiceUnavailable,
			body:   `{"message":"Maintenance until 10:00"}`,
			validate: func(t *testing.T, env Envelope[models.Todo]) {
				if env.Error == nil || env.Error.Code != ErrCodeHTTP {
					t.Fatalf("Expected %s code, got %+v", ErrCodeHTTP, env.Error)
				}
				if env.Error.Message != "Maintenance until 10:00" {
					t.Errorf("Expected message from body, got %q", env.Error.Message)
				}
				if env.StatusCode != http.StatusServiceUnavailable {
					t.Errorf("Expected status 503, got %d", env.StatusCode)
				}
			},
		},
		{
			name:   "error body without message keeps code",
			status: http.StatusUnauthorized,
			body:   `{"code":"invalid_token"}`,
			validate: func(t *testing.T, env Envelope[models.Todo]) {
				if env.Error == nil || env.Error.Code != models.ErrCodeInvalidToken {
					t.Fatalf("Expected invalid_token, got %+v", env.Error)
				}
				if env.Error.Message != http.StatusText(http.StatusUnauthorized) {
					t.Errorf("Expected status text, got %q", env.Error.Message)
				}
			},
		},
		{
			name:   "empty error object",
			status: http.StatusInternalServerError,
			body:   `{}`,
			validate: func(t *testing.T, env Envelope[models.Todo]) {
				if env.Error == nil || env.Error.Code != ErrCodeHTTP || env.Error.Message != http.StatusText(http.StatusInternalServerError) {
					t.Errorf("Expected %s with status text, got %+v", ErrCodeHTTP, env.Error)
				}
			},
		},
		{
			name:   "malformed success body",
			status: http.StatusOK,
			body:   `{"id":`,
			validate: func(t *testing.T, env Envelope[models.Todo]) {
				if !env.IsClientError() || env.StatusCode != 0 {
					t.Errorf("Expected client-error with status 0, got %d %+v", env.StatusCode, env.Error)
				}
			},
		},
		{
			name:   "schema mismatch",
			status: http.StatusOK,
			body:   `{"title":"no id","isCompleted":false}`,
			validate: func(t *testing.T, env Envelope[models.Todo]) {
				if !env.IsClientError() || env.StatusCode != 0 || env.Data != nil {
					t.Errorf("Expected client-error with status 0 and nil data, got %d %+v", env.StatusCode, env.Error)
				}
			},
		},
		{
			name:   "empty success body",
			status: http.StatusOK,
			validate: func(t *testing.T, env Envelope[models.Todo]) {
				if !env.IsClientError() {
					t.Errorf("Expected client-error, got %+v", env.Error)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			server := newTestServer(t, tt.status, tt.body)
			client := New(server.URL)
			tt.validate(t, client.GetTodo(context.Background(), "tok", "t1"))
		})
	}
}

func TestListTodos_LargeCollection(t *testing.T) {
	t.Parallel()

	description := strings.Repeat("d", 10000)
	list := models.TodosResponse{Todos: make([]models.Todo, 120)}
	for i := range list.Todos {
		list.Todos[i] = models.Todo{
			ID:          uuid.NewString(),
			Title:       "Long todo",
			Description: &description,
			CreatedAt:   time.Date(2025, 4, 20, 10, 30, 0, 0, time.UTC),
			UpdatedAt:   time.Date(2025, 4, 20, 10, 30, 0, 0, time.UTC),
		}
	}
	body, err := json.Marshal(list)
	if err != nil {
		t.Fatalf("failed to encode list: %v", err)
	}
	server := newTestServer(t, http.StatusOK, string(body))

	tests := []struct {
		name     string
		opts     []Option
		validate func(*testing.T, Envelope[models.TodosResponse])
	}{
		{
			name: "default limit accepts the whole list",
			validate: func(t *testing.T, env Envelope[models.TodosResponse]) {
				if env.Data == nil || len(env.Data.Todos) != 120 {
					t.Fatalf("Expected 120 todos, got %+v", env.Error)
				}
				if env.StatusCode != http.StatusOK {
					t.Errorf("Expected status 200, got %d", env.StatusCode)
				}
			},
		},
		{
			name: "body over the limit is reported",
			opts: []Option{WithMaxResponseBytes(1024)},
			validate: func(t *testing.T, env Envelope[models.TodosResponse]) {
				if !env.IsClientError() || env.StatusCode != 0 || env.Data != nil {
					t.Fatalf("Expected client-error with status 0, got %d %+v", env.StatusCode, env.Error)
				}
				if env.Error.Message != "response exceeds 1024 bytes" {
					t.Errorf("Expected size message, got %q", env.Error.Message)
				}
			},
		},
		{
			name: "body exactly at the limit is accepted",
			opts: []Option{WithMaxResponseBytes(int64(len(body)))},
			validate: func(t *testing.T, env Envelope[models.TodosResponse]) {
				if env.Data == nil || len(env.Data.Todos) != 120 {
					t.Errorf("Expected 120 todos, got %+v", env.Error)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			client := New(server.URL, tt.opts...)
			tt.validate(t, client.ListTodos(context.Background(), "tok"))
		})
	}
}

func TestListTodos_MissingArrayIsSchemaMismatch(t *testing.T) {
	t.Parallel()

	server := newTestServer(t, http.StatusOK, `{"items":[]}`)
	env := New(server.URL).ListTodos(context.Background(), "tok")
	if !env.IsClientError() {
		t.Errorf("Expected client-error for missing todos array, got %+v", env)
	}

	server = newTestServer(t, http.StatusOK, `{"todos":[]}`)
	env = New(server.URL).ListTodos(context.Background(), "tok")
	if env.Data == nil || len(env.Data.Todos) != 0 {
		t.Errorf("Expected empty todo list, got %+v", env)
	}
}

func TestClient_TransportFailure(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	env := New(url).ListTodos(context.Background(), "tok")
	if env.StatusCode != 0 {
		t.Errorf("Expected status 0, got %d", env.StatusCode)
	}
	if !env.IsClientError() || env.ErrorMessage() == "" {
		t.Errorf("Expected client-error with diagnostic, got %+v", env.Error)
	}
	if env.Data != nil {
		t.Errorf("Expected nil data, got %+v", env.Data)
	}
}

func TestClient_ContextCancelled(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	env := New(server.URL).Me(ctx, "tok")
	if !env.IsClientError() {
		t.Errorf("Expected client-error on cancelled context, got %+v", env)
	}
}

type recordedRequest struct {
	method    string
	path      string
	auth      string
	requestID string
	body      string
}

func TestClient_RequestShape(t *testing.T) {
	t.Parallel()

	var (
		mu   sync.Mutex
		last recordedRequest
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		last = recordedRequest{
			method:    r.Method,
			path:      r.URL.EscapedPath(),
			auth:      r.Header.Get("Authorization"),
			requestID: r.Header.Get(RequestIDHeader),
			body:      string(body),
		}
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := New(server.URL + "/")
	ctx := context.Background()
	desc := "two litres"

	tests := []struct {
		name       string
		call       func()
		wantMethod string
		wantPath   string
		wantAuth   string
		wantBody   []string
	}{
		{
			name:       "signup is public",
			call:       func() { client.Signup(ctx, models.SignupRequest{Email: "a@b.c", Password: "secret"}) },
			wantMethod: http.MethodPost,
			wantPath:   PathSignup,
			wantBody:   []string{`"email":"a@b.c"`, `"password":"secret"`},
		},
		{
			name:       "login is public",
			call:       func() { client.Login(ctx, models.LoginRequest{Email: "a@b.c", Password: "pw"}) },
			wantMethod: http.MethodPost,
			wantPath:   PathLogin,
		},
		{
			name:       "refresh is public",
			call:       func() { client.Refresh(ctx, models.RefreshTokenRequest{RefreshToken: "r1"}) },
			wantMethod: http.MethodPost,
			wantPath:   PathRefresh,
			wantBody:   []string{`"refresh_token":"r1"`},
		},
		{
			name:       "me sends bearer",
			call:       func() { client.Me(ctx, "tok") },
			wantMethod: http.MethodGet,
			wantPath:   PathMe,
			wantAuth:   "Bearer tok",
		},
		{
			name:       "list sends bearer",
			call:       func() { client.ListTodos(ctx, "tok") },
			wantMethod: http.MethodGet,
			wantPath:   PathTodos,
			wantAuth:   "Bearer tok",
		},
		{
			name: "create posts payload",
			call: func() {
				client.CreateTodo(ctx, "tok", models.CreateTodoRequest{Title: "Buy milk", Description: &desc})
			},
			wantMethod: http.MethodPost,
			wantPath:   PathTodos,
			wantAuth:   "Bearer tok",
			wantBody:   []string{`"title":"Buy milk"`, `"description":"two litres"`},
		},
		{
			name:       "update is a PUT with the whole record",
			call:       func() { client.UpdateTodo(ctx, "tok", "t1", models.UpdateTodoRequest{Title: "Buy milk"}) },
			wantMethod: http.MethodPut,
			wantPath:   "/api/todos/t1",
			wantAuth:   "Bearer tok",
			wantBody:   []string{`"title":"Buy milk"`, `"isCompleted":false`},
		},
		{
			name:       "delete escapes the id",
			call:       func() { client.DeleteTodo(ctx, "tok", "a/b") },
			wantMethod: http.MethodDelete,
			wantPath:   "/api/todos/a%2Fb",
			wantAuth:   "Bearer tok",
		},
	}

	// Subtests share the recording server and run sequentially.
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.call()

			mu.Lock()
			got := last
			mu.Unlock()

			if got.method != tt.wantMethod {
				t.Errorf("Expected method %s, got %s", tt.wantMethod, got.method)
			}
			if got.path != tt.wantPath {
				t.Errorf("Expected path %s, got %s", tt.wantPath, got.path)
			}
			if got.auth != tt.wantAuth {
				t.Errorf("Expected Authorization %q, got %q", tt.wantAuth, got.auth)
			}
			if _, err := uuid.Parse(got.requestID); err != nil {
				t.Errorf("Expected a UUID request id, got %q", got.requestID)
			}
			for _, want := range tt.wantBody {
				if !strings.Contains(got.body, want) {
					t.Errorf("Expected body to contain %s, got %s", want, got.body)
				}
			}
		})
	}
}

func TestDeleteTodo_NoContent(t *testing.T) {
	t.Parallel()

	server := newTestServer(t, http.StatusNoContent, "")
	env := New(server.URL).DeleteTodo(context.Background(), "tok", "t1")
	if env.StatusCode != http.StatusNoContent || env.Data != nil || env.Error != nil {
		t.Errorf("Expected bare 204 envelope, got %+v", env)
	}
}

func TestSignup_CreatedBody(t *testing.T) {
	t.Parallel()

	server := newTestServer(t, http.StatusCreated, `{"id":"u1","email":"new@example.com"}`)
	env := New(server.URL).Signup(context.Background(), models.SignupRequest{Email: "new@example.com", Password: "secret"})
	if env.Data == nil || env.Data.ID != "u1" || env.StatusCode != http.StatusCreated {
		t.Errorf("Expected created user, got %+v", env)
	}

	var decoded models.User
	if err := json.Unmarshal([]byte(`{"id":"u1","email":"new@example.com"}`), &decoded); err != nil || decoded != *env.Data {
		t.Errorf("Expected %+v, got %+v", decoded, *env.Data)
	}
}
