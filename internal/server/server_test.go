package server_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ulule/limiter/v3/drivers/store/memory"
	"go.uber.org/zap"

	"github.com/benvon/todoms/internal/apiclient"
	"github.com/benvon/todoms/internal/auth"
	"github.com/benvon/todoms/internal/database"
	"github.com/benvon/todoms/internal/handlers"
	"github.com/benvon/todoms/internal/queue"
	"github.com/benvon/todoms/internal/server"
	"github.com/benvon/todoms/internal/session"
	"github.com/benvon/todoms/internal/todos"
	"github.com/benvon/todoms/internal/view"
	"github.com/benvon/todoms/internal/workers"
)

type stack struct {
	url    string
	users  *database.MemoryUserRepository
	todos  *database.MemoryTodoRepository
	events *queue.MemoryQueue
}

func newStack(t *testing.T) *stack {
	t.Helper()

	s := &stack{
		users:  database.NewMemoryUserRepository(),
		todos:  database.NewMemoryTodoRepository(),
		events: queue.NewMemoryQueue(256),
	}
	t.Cleanup(func() { _ = s.events.Close() })

	router, err := server.NewRouter(server.Deps{
		Users:          s.users,
		Todos:          s.todos,
		Tokens:         auth.NewTokenManager([]byte("integration-secret-0123456789abcdef"), "todoms-test", 15*time.Minute, time.Hour),
		Events:         s.events,
		RateLimitStore: memory.NewStore(),
		RateLimit:      "1000-S",
		FrontendURL:    "http://localhost:3000",
		Version:        "test",
		Checks:         map[string]handlers.CheckFunc{"queue": s.events.HealthCheck},
		Logger:         zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("Failed to build router: %v", err)
	}

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	s.url = srv.URL
	return s
}

func (s *stack) session(t *testing.T) (*apiclient.Client, *session.Session) {
	t.Helper()
	client := apiclient.New(s.url)
	return client, session.New(client, session.NewMemoryStore(), zap.NewNop())
}

func TestEndToEnd_TodoLifecycle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := newStack(t)
	client, sess := st.session(t)

	if err := sess.Signup(ctx, "Owner@Example.com", "secret1"); err != nil {
		t.Fatalf("Signup failed: %v", err)
	}
	if u := sess.User(); u == nil || u.Email != "owner@example.com" {
		t.Fatalf("Expected signed-in owner@example.com, got %+v", u)
	}

	ctrl := todos.New(client, sess)
	defer ctrl.Close()

	if !ctrl.Load(ctx) {
		t.Fatalf("Expected load to succeed, got error %q", ctrl.Snapshot().LastError)
	}
	if snap := ctrl.Snapshot(); len(snap.Items) != 0 || snap.EmptyText() != view.EmptyText(0, "") {
		t.Errorf("Expected empty collection, got %d items", len(snap.Items))
	}

	due := time.Now().Add(2 * time.Hour).UTC().Truncate(time.Second)
	if !ctrl.Create(ctx, "Buy milk", nil, nil) {
		t.Fatal("Expected first create to succeed")
	}
	if !ctrl.Create(ctx, "Write report", nil, &due) {
		t.Fatal("Expected second create to succeed")
	}

	snap := ctrl.Snapshot()
	if len(snap.Items) != 2 {
		t.Fatalf("Expected 2 items, got %d", len(snap.Items))
	}
	if snap.Notification == nil || snap.Notification.Message != todos.MsgCreateSuccess {
		t.Errorf("Expected create notification, got %+v", snap.Notification)
	}
	milk := snap.Items[0]

	if !ctrl.ToggleComplete(ctx, milk.ID, true) {
		t.Fatal("Expected toggle to succeed")
	}
	if got := ctrl.Snapshot().IncompleteCount(); got != 1 {
		t.Errorf("Expected 1 incomplete, got %d", got)
	}

	ctrl.SetSearch("MILK")
	if visible := ctrl.View(); len(visible) != 1 || visible[0].ID != milk.ID {
		t.Errorf("Expected search to match only milk, got %d", len(visible))
	}
	ctrl.SetSearch("")

	// a fresh load agrees with the locally applied changes
	if !ctrl.Load(ctx) {
		t.Fatal("Expected reload to succeed")
	}
	reloaded, ok := ctrl.Find(milk.ID)
	if !ok || !reloaded.IsCompleted {
		t.Errorf("Expected server copy to be completed, got %+v", reloaded)
	}

	if !ctrl.Delete(ctx, milk.ID) {
		t.Fatal("Expected delete to succeed")
	}
	if _, ok := ctrl.Find(milk.ID); ok {
		t.Error("Expected deleted todo to be gone")
	}
	if ctrl.Delete(ctx, milk.ID) {
		t.Error("Expected second delete to fail")
	}
	if n := ctrl.Snapshot().Notification; n == nil || n.Message != todos.MsgDeleteError {
		t.Errorf("Expected delete error notification, got %+v", n)
	}
}

func TestEndToEnd_UsersAreIsolated(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := newStack(t)

	clientA, a := st.session(t)
	clientB, b := st.session(t)
	if err := a.Signup(ctx, "a@example.com", "secret1"); err != nil {
		t.Fatalf("Signup failed: %v", err)
	}
	if err := b.Signup(ctx, "b@example.com", "secret1"); err != nil {
		t.Fatalf("Signup failed: %v", err)
	}

	ctrlA := todos.New(clientA, a)
	if !ctrlA.Create(ctx, "private", nil, nil) {
		t.Fatal("Expected create to succeed")
	}
	id := ctrlA.Snapshot().Items[0].ID

	if resp := clientB.GetTodo(ctx, b.AccessToken(), id); resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404 for other user's todo, got %d", resp.StatusCode)
	}

	ctrlB := todos.New(clientB, b)
	ctrlB.Load(ctx)
	if n := len(ctrlB.Snapshot().Items); n != 0 {
		t.Errorf("Expected other user to see no todos, got %d", n)
	}
}

func TestEndToEnd_DemoAccountAndRefresh(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := newStack(t)
	if err := server.SeedDemo(ctx, st.users, st.todos, zap.NewNop()); err != nil {
		t.Fatalf("Seed failed: %v", err)
	}
	if err := server.SeedDemo(ctx, st.users, st.todos, zap.NewNop()); err != nil {
		t.Fatalf("Second seed should be a no-op, got %v", err)
	}

	client, sess := st.session(t)
	if err := sess.Login(ctx, server.DemoEmail, server.DemoPassword); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	ctrl := todos.New(client, sess)
	ctrl.Load(ctx)
	if n := len(ctrl.Snapshot().Items); n != 3 {
		t.Errorf("Expected 3 demo todos, got %d", n)
	}

	before := sess.AccessToken()
	if err := sess.Refresh(ctx); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if after := sess.AccessToken(); after == "" || after == before {
		t.Error("Expected a new access token after refresh")
	}

	if err := sess.Logout(); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	if ctrl.Create(ctx, "after logout", nil, nil) {
		t.Error("Expected create without a session to fail")
	}
	if n := ctrl.Snapshot().Notification; n == nil || n.Message != todos.MsgNotSignedIn {
		t.Errorf("Expected not-signed-in notification, got %+v", n)
	}
}

func TestEndToEnd_WrongPassword(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := newStack(t)
	_, sess := st.session(t)

	if err := sess.Signup(ctx, "x@example.com", "secret1"); err != nil {
		t.Fatalf("Signup failed: %v", err)
	}
	_ = sess.Logout()

	if err := sess.Login(ctx, "x@example.com", "nope"); err == nil {
		t.Fatal("Expected login with wrong password to fail")
	}
	if sess.Valid() {
		t.Error("Expected no session after failed login")
	}
}

type channelSink struct {
	seen chan queue.EventType
}

func (s *channelSink) Record(_ context.Context, event *queue.Event) error {
	s.seen <- event.Type
	return nil
}

func TestEndToEnd_ActivityEvents(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	st := newStack(t)
	client, sess := st.session(t)
	if err := sess.Signup(ctx, "events@example.com", "secret1"); err != nil {
		t.Fatalf("Signup failed: %v", err)
	}
	ctrl := todos.New(client, sess)
	ctrl.Create(ctx, "tracked", nil, nil)
	id := ctrl.Snapshot().Items[0].ID
	ctrl.ToggleComplete(ctx, id, true)
	ctrl.ToggleComplete(ctx, id, false)
	ctrl.Delete(ctx, id)

	sink := &channelSink{seen: make(chan queue.EventType, 16)}
	msgs, _, err := st.events.Consume(ctx, 4)
	if err != nil {
		t.Fatalf("Consume failed: %v", err)
	}
	go workers.NewActivityRecorder(sink, st.events, zap.NewNop()).Run(ctx, msgs)

	want := []queue.EventType{
		queue.EventTypeUserSignedUp,
		queue.EventTypeTodoCreated,
		queue.EventTypeTodoComplete,
		queue.EventTypeTodoReopened,
		queue.EventTypeTodoDeleted,
	}
	for i, w := range want {
		select {
		case got := <-sink.seen:
			if got != w {
				t.Errorf("Expected event %d to be %s, got %s", i, w, got)
			}
		case <-ctx.Done():
			t.Fatalf("Timed out waiting for event %s", w)
		}
	}
}

func TestRouter_Surface(t *testing.T) {
	t.Parallel()

	st := newStack(t)

	tests := []struct {
		name       string
		method     string
		path       string
		header     map[string]string
		wantStatus int
		wantHeader string
	}{
		{name: "health", method: http.MethodGet, path: "/healthz?mode=extended", wantStatus: http.StatusOK},
		{name: "openapi", method: http.MethodGet, path: "/api/openapi.json", wantStatus: http.StatusOK},
		{name: "todos need a token", method: http.MethodGet, path: "/api/todos", wantStatus: http.StatusUnauthorized},
		{name: "unknown route", method: http.MethodGet, path: "/api/nope", wantStatus: http.StatusNotFound},
		{name: "request id echoed", method: http.MethodGet, path: "/version", wantStatus: http.StatusOK, wantHeader: "X-Request-ID"},
		{
			name:       "preflight",
			method:     http.MethodOptions,
			path:       "/api/todos",
			header:     map[string]string{"Origin": "http://localhost:3000", "Access-Control-Request-Method": "POST"},
			wantStatus: http.StatusNoContent,
			wantHeader: "Access-Control-Allow-Origin",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req, err := http.NewRequest(tt.method, st.url+tt.path, nil)
			if err != nil {
				t.Fatalf("Failed to build request: %v", err)
			}
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatalf("Request failed: %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != tt.wantStatus {
				t.Errorf("Expected status %d, got %d", tt.wantStatus, resp.StatusCode)
			}
			if tt.wantHeader != "" && resp.Header.Get(tt.wantHeader) == "" {
				t.Errorf("Expected header %s to be set", tt.wantHeader)
			}
		})
	}
}
