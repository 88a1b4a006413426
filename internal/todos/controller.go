package todos

import (
	"context"
	"maps"
	"net/http"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/benvon/todoms/internal/apiclient"
	"github.com/benvon/todoms/internal/logger"
	"github.com/benvon/todoms/internal/models"
	"github.com/benvon/todoms/internal/view"
)

// API is the part of the gateway client the controller needs
type API interface {
	ListTodos(ctx context.Context, token string) apiclient.Envelope[models.TodosResponse]
	CreateTodo(ctx context.Context, token string, req models.CreateTodoRequest) apiclient.Envelope[models.Todo]
	UpdateTodo(ctx context.Context, token, id string, req models.UpdateTodoRequest) apiclient.Envelope[models.Todo]
	DeleteTodo(ctx context.Context, token, id string) apiclient.Envelope[struct{}]
}

// Snapshot is a consistent copy of controller state
type Snapshot struct {
	Items        []models.Todo
	Visible      []models.Todo
	SearchTerm   string
	SortKey      view.SortKey
	IsLoading    bool
	LastError    string
	Notification *Notification
}

// IncompleteCount counts open todos in the whole collection
func (s Snapshot) IncompleteCount() int {
	return view.IncompleteCount(s.Items)
}

// EmptyText is the message to show when Visible is empty
func (s Snapshot) EmptyText() string {
	return view.EmptyText(len(s.Items), s.SearchTerm)
}

// Controller owns the signed-in user's todo collection.
// State changes only when a request completes; listeners get a Snapshot after every change.
type Controller struct {
	api    API
	tokens oauth2.TokenSource
	logger *zap.Logger

	// notifyMu serializes change delivery so listeners observe changes in order
	notifyMu sync.Mutex
	mu       sync.Mutex

	items        []models.Todo
	searchTerm   string
	sortKey      view.SortKey
	loads        int
	lastError    string
	notification *Notification
	staleGuard   bool
	closed       bool

	listeners map[int]func(Snapshot)
	nextID    int
}

// Option configures a Controller
type Option func(*Controller)

// WithLogger sets the controller logger
func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) {
		c.logger = l
	}
}

// WithSortKey sets the initial sort key
func WithSortKey(key view.SortKey) Option {
	return func(c *Controller) {
		c.sortKey = key
	}
}

// WithStaleGuard drops update responses whose updatedAt is older than the held copy
func WithStaleGuard() Option {
	return func(c *Controller) {
		c.staleGuard = true
	}
}

// New creates a controller reading its bearer token from tokens
func New(api API, tokens oauth2.TokenSource, opts ...Option) *Controller {
	c := &Controller{
		api:       api,
		tokens:    tokens,
		logger:    zap.NewNop(),
		sortKey:   view.DefaultSortKey,
		listeners: make(map[int]func(Snapshot)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Subscribe registers fn to receive a snapshot after every state change.
// fn must not call mutating controller methods synchronously.
func (c *Controller) Subscribe(fn func(Snapshot)) (cancel func()) {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

// Close detaches all listeners. Responses arriving afterwards are discarded.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	clear(c.listeners)
}

// Snapshot returns the current state
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// View returns the derived display list
func (c *Controller) View() []models.Todo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return view.Derive(c.items, c.searchTerm, c.sortKey)
}

// Find returns the held todo with id
func (c *Controller) Find(id string) (models.Todo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.indexLocked(id)
	if i < 0 {
		return models.Todo{}, false
	}
	return c.items[i], true
}

// SetSearch changes the search term
func (c *Controller) SetSearch(term string) {
	c.apply(func() { c.searchTerm = term })
}

// SetSort changes the sort key
func (c *Controller) SetSort(key view.SortKey) {
	c.apply(func() { c.sortKey = key })
}

// DismissNotification clears the current notification
func (c *Controller) DismissNotification() {
	c.apply(func() { c.notification = nil })
}

// Load replaces the collection with the server's. It is a no-op without a token.
func (c *Controller) Load(ctx context.Context) bool {
	token, ok := c.bearer()
	if !ok {
		return false
	}

	c.apply(func() {
		c.loads++
		c.lastError = ""
	})

	resp := c.api.ListTodos(ctx, token)

	c.apply(func() {
		c.loads--
		if resp.Data == nil {
			c.lastError = MsgFetchError
			if resp.IsClientError() {
				c.lastError = MsgFetchErrorGeneral
			}
			c.logFailure("todo_fetch_failed", "", resp.StatusCode, resp.ErrorMessage())
			return
		}
		c.items = uniqueByID(resp.Data.Todos)
		c.logger.Debug("todos_loaded", zap.Int("count", len(c.items)))
	})
	return resp.Data != nil
}

// Create asks the server to create a todo and appends the stored record
func (c *Controller) Create(ctx context.Context, title string, description *string, dueDate *time.Time) bool {
	token, ok := c.bearer()
	if !ok {
		c.notify(failure(MsgNotSignedIn))
		return false
	}

	resp := c.api.CreateTodo(ctx, token, models.CreateTodoRequest{
		Title:       title,
		Description: description,
		DueDate:     dueDate,
	})

	c.apply(func() {
		if resp.Data == nil {
			c.notification = failureFor(resp.IsClientError(), MsgCreateError)
			c.logFailure("todo_create_failed", "", resp.StatusCode, resp.ErrorMessage())
			return
		}
		if i := c.indexLocked(resp.Data.ID); i >= 0 {
			c.items[i] = *resp.Data
		} else {
			c.items = append(c.items, *resp.Data)
		}
		c.notification = success(MsgCreateSuccess)
		c.logger.Debug("todo_created", zap.String("todo_id", logger.SanitizeID(resp.Data.ID)))
	})
	return resp.Data != nil
}

// Update replaces every field of the todo with fields
func (c *Controller) Update(ctx context.Context, id string, fields models.UpdateTodoRequest) bool {
	return c.update(ctx, id, fields, MsgUpdateSuccess)
}

// ToggleComplete reissues the held todo with only isCompleted changed
func (c *Controller) ToggleComplete(ctx context.Context, id string, completed bool) bool {
	current, ok := c.Find(id)
	if !ok {
		c.notify(failure(MsgUpdateError))
		return false
	}

	req := models.UpdateRequestFrom(current)
	req.IsCompleted = completed

	msg := MsgMarkIncomplete
	if completed {
		msg = MsgMarkCompleted
	}
	return c.update(ctx, id, req, msg)
}

func (c *Controller) update(ctx context.Context, id string, req models.UpdateTodoRequest, successMsg string) bool {
	token, ok := c.bearer()
	if !ok {
		c.notify(failure(MsgNotSignedIn))
		return false
	}

	resp := c.api.UpdateTodo(ctx, token, id, req)

	c.apply(func() {
		if resp.Data == nil {
			c.notification = failureFor(resp.IsClientError(), MsgUpdateError)
			c.logFailure("todo_update_failed", id, resp.StatusCode, resp.ErrorMessage())
			return
		}
		c.notification = success(successMsg)
		i := c.indexLocked(id)
		if i < 0 {
			// removed while the request was in flight
			return
		}
		if c.staleGuard && c.items[i].UpdatedAt.After(resp.Data.UpdatedAt) {
			c.logger.Debug("stale_update_dropped", zap.String("todo_id", logger.SanitizeID(id)))
			return
		}
		c.items[i] = *resp.Data
	})
	return resp.Data != nil
}

// Delete removes the todo once the server confirms with 204
func (c *Controller) Delete(ctx context.Context, id string) bool {
	token, ok := c.bearer()
	if !ok {
		c.notify(failure(MsgNotSignedIn))
		return false
	}

	resp := c.api.DeleteTodo(ctx, token, id)
	deleted := resp.StatusCode == http.StatusNoContent

	c.apply(func() {
		if !deleted {
			c.notification = failureFor(resp.IsClientError(), MsgDeleteError)
			c.logFailure("todo_delete_failed", id, resp.StatusCode, resp.ErrorMessage())
			return
		}
		if i := c.indexLocked(id); i >= 0 {
			c.items = slices.Delete(c.items, i, i+1)
		}
		c.notification = success(MsgDeleteSuccess)
	})
	return deleted
}

// bearer returns the held access token. An expired token is still sent; the server rejects it.
func (c *Controller) bearer() (string, bool) {
	tok, err := c.tokens.Token()
	if err != nil || tok == nil || tok.AccessToken == "" {
		return "", false
	}
	return tok.AccessToken, true
}

func (c *Controller) notify(n *Notification) {
	c.apply(func() { c.notification = n })
}

// apply mutates state under the lock and then delivers a snapshot to listeners.
// After Close it does nothing.
func (c *Controller) apply(mutate func()) {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	mutate()
	snap := c.snapshotLocked()
	listeners := make([]func(Snapshot), 0, len(c.listeners))
	for _, id := range slices.Sorted(maps.Keys(c.listeners)) {
		listeners = append(listeners, c.listeners[id])
	}
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(snap)
	}
}

func (c *Controller) snapshotLocked() Snapshot {
	snap := Snapshot{
		Items:      slices.Clone(c.items),
		Visible:    view.Derive(c.items, c.searchTerm, c.sortKey),
		SearchTerm: c.searchTerm,
		SortKey:    c.sortKey,
		IsLoading:  c.loads > 0,
		LastError:  c.lastError,
	}
	if c.notification != nil {
		n := *c.notification
		snap.Notification = &n
	}
	return snap
}

func (c *Controller) indexLocked(id string) int {
	return slices.IndexFunc(c.items, func(t models.Todo) bool { return t.ID == id })
}

func (c *Controller) logFailure(event, id string, status int, message string) {
	fields := []zap.Field{
		zap.Int("status", status),
		zap.String("error", logger.SanitizeErrorString(message)),
	}
	if id != "" {
		fields = append(fields, zap.String("todo_id", logger.SanitizeID(id)))
	}
	c.logger.Warn(event, fields...)
}

// failureFor picks the generic message for local failures and the operation message otherwise
func failureFor(clientErr bool, msg string) *Notification {
	if clientErr {
		return failure(MsgOperationError)
	}
	return failure(msg)
}

// uniqueByID keeps the last occurrence of each id in first-seen position
func uniqueByID(todos []models.Todo) []models.Todo {
	out := make([]models.Todo, 0, len(todos))
	seen := make(map[string]int, len(todos))
	for _, t := range todos {
		if i, ok := seen[t.ID]; ok {
			out[i] = t
			continue
		}
		seen[t.ID] = len(out)
		out = append(out, t)
	}
	return out
}
