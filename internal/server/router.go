// Package server assembles the reference todoms API: routing, middleware and demo data.
package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/ulule/limiter/v3"
	"go.uber.org/zap"

	"github.com/benvon/todoms/internal/auth"
	"github.com/benvon/todoms/internal/database"
	"github.com/benvon/todoms/internal/handlers"
	"github.com/benvon/todoms/internal/middleware"
	"github.com/benvon/todoms/internal/queue"
	"github.com/benvon/todoms/internal/telemetry"
)

// requestTimeout bounds handler execution
const requestTimeout = 30 * time.Second

// Deps are the collaborators the router is built from
type Deps struct {
	Users  database.UserRepositoryInterface
	Todos  database.TodoRepositoryInterface
	Tokens *auth.TokenManager
	Events queue.Publisher

	// RateLimitStore disables rate limiting when nil
	RateLimitStore limiter.Store
	RateLimit      string

	FrontendURL string
	EnableHSTS  bool
	Tracing     bool

	Version string
	Checks  map[string]handlers.CheckFunc
	Logger  *zap.Logger
}

// NewRouter builds the HTTP router serving the todoms API
func NewRouter(d Deps) (*mux.Router, error) {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(handlers.NotFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(handlers.MethodNotAllowed)

	// gorilla/mux wraps in registration order: the first Use is outermost
	if d.Tracing {
		r.Use(telemetry.Middleware())
	}
	r.Use(middleware.RequestID)
	r.Use(middleware.SecurityHeaders(d.EnableHSTS))
	r.Use(middleware.CORSFromEnv(d.FrontendURL, logger))
	r.Use(middleware.JSONBody(middleware.DefaultMaxBodyBytes))
	r.Use(middleware.Deadline(requestTimeout, logger))
	r.Use(middleware.Recover(logger))
	r.Use(middleware.Audit(logger))
	r.Use(middleware.Logging(logger))

	handlers.NewHealthChecker(d.Version, d.Checks).RegisterRoutes(r)
	openAPI, err := handlers.NewOpenAPIHandler()
	if err != nil {
		return nil, err
	}
	openAPI.RegisterRoutes(r)

	apiRouter := r.PathPrefix("/api").Subrouter()
	if d.RateLimitStore != nil {
		rateLimitMW, err := middleware.RateLimit(d.RateLimitStore, d.RateLimit, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create rate limiter: %w", err)
		}
		apiRouter.Use(rateLimitMW)
	}
	authMW := middleware.Auth(d.Tokens, d.Users, logger)

	authHandler := handlers.NewAuthHandler(d.Users, d.Tokens, d.Events, logger)
	authHandler.RegisterRoutes(apiRouter.PathPrefix("/auth").Subrouter())

	protectedAuthRouter := apiRouter.PathPrefix("/auth").Subrouter()
	protectedAuthRouter.Use(authMW)
	authHandler.RegisterProtectedRoutes(protectedAuthRouter)

	todosRouter := apiRouter.PathPrefix("/todos").Subrouter()
	todosRouter.Use(authMW)
	handlers.NewTodoHandler(d.Todos, d.Events, logger).RegisterRoutes(todosRouter)

	// preflight requests are answered by the CORS middleware; this route makes sure one matches
	r.Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	return r, nil
}

// NewHTTPServer wraps handler with the listener timeouts used in production
func NewHTTPServer(port string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:           ":" + port,
		Handler:        handler,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   requestTimeout + 5*time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}
}
