package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/benvon/todoms/internal/auth"
	"github.com/benvon/todoms/internal/database"
	logpkg "github.com/benvon/todoms/internal/logger"
	"github.com/benvon/todoms/internal/middleware"
	"github.com/benvon/todoms/internal/models"
	"github.com/benvon/todoms/internal/queue"
	"github.com/benvon/todoms/internal/request"
)

// TokenIssuer issues and verifies token pairs
type TokenIssuer interface {
	IssuePair(user models.User) (*models.TokenResponse, error)
	Verify(token string, want models.TokenType) (*models.JWTClaims, error)
}

// AuthHandler handles account and token requests
type AuthHandler struct {
	users  database.UserRepositoryInterface
	tokens TokenIssuer
	events queue.Publisher
	logger *zap.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(users database.UserRepositoryInterface, tokens TokenIssuer, events queue.Publisher, logger *zap.Logger) *AuthHandler {
	if events == nil {
		events = queue.NoopPublisher{}
	}
	return &AuthHandler{users: users, tokens: tokens, events: events, logger: logger}
}

// RegisterRoutes registers the public auth routes.
// The router should already have the /api/auth prefix.
func (h *AuthHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/signup", h.Signup).Methods(http.MethodPost)
	r.HandleFunc("/login", h.Login).Methods(http.MethodPost)
	r.HandleFunc("/refresh", h.Refresh).Methods(http.MethodPost)
}

// RegisterProtectedRoutes registers auth routes that need a bearer token
func (h *AuthHandler) RegisterProtectedRoutes(r *mux.Router) {
	r.HandleFunc("/me", h.GetMe).Methods(http.MethodGet)
}

// Signup registers a new account and returns its identity
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req models.SignupRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondJSONError(w, http.StatusBadRequest, models.ErrCodeValidation, err.Error())
		return
	}

	user, err := CreateAccount(r.Context(), h.users, req.Email, req.Password)
	if errors.Is(err, database.ErrConflict) {
		respondJSONError(w, http.StatusConflict, models.ErrCodeConflict, "An account with this email already exists")
		return
	}
	if err != nil {
		h.logger.Error("failed_to_create_user", zap.String("error", logpkg.SanitizeError(err)))
		respondJSONError(w, http.StatusInternalServerError, models.ErrCodeInternal, "Failed to create account")
		return
	}

	h.publish(r, queue.NewEvent(queue.EventTypeUserSignedUp, user.ID, ""))
	respondJSON(w, http.StatusCreated, user)
}

// Login exchanges email and password for a token pair
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondJSONError(w, http.StatusBadRequest, models.ErrCodeValidation, err.Error())
		return
	}

	account, err := h.users.GetByEmail(r.Context(), req.Email)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		h.logger.Error("failed_to_load_user", zap.String("error", logpkg.SanitizeError(err)))
		respondJSONError(w, http.StatusInternalServerError, models.ErrCodeInternal, "Failed to sign in")
		return
	}
	if account == nil || auth.CheckPassword(account.PasswordHash, req.Password) != nil {
		respondJSONError(w, http.StatusUnauthorized, models.ErrCodeInvalidCredentials, "Invalid email or password")
		return
	}

	h.issue(w, account.Identity())
}

// Refresh exchanges a refresh token for a new token pair
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req models.RefreshTokenRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondJSONError(w, http.StatusBadRequest, models.ErrCodeValidation, err.Error())
		return
	}

	claims, err := h.tokens.Verify(req.RefreshToken, models.TokenTypeRefresh)
	if err != nil {
		respondJSONError(w, http.StatusUnauthorized, models.ErrCodeInvalidToken, "Invalid or expired refresh token")
		return
	}

	account, err := h.users.GetByID(r.Context(), claims.Sub)
	if errors.Is(err, database.ErrNotFound) {
		respondJSONError(w, http.StatusUnauthorized, models.ErrCodeInvalidToken, "Invalid or expired refresh token")
		return
	}
	if err != nil {
		h.logger.Error("failed_to_load_user", zap.String("error", logpkg.SanitizeError(err)))
		respondJSONError(w, http.StatusInternalServerError, models.ErrCodeInternal, "Failed to refresh token")
		return
	}

	h.issue(w, account.Identity())
}

// GetMe returns current user information
func (h *AuthHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, models.ErrCodeInvalidToken, "User not found in context")
		return
	}

	respondJSON(w, http.StatusOK, user)
}

func (h *AuthHandler) issue(w http.ResponseWriter, user models.User) {
	pair, err := h.tokens.IssuePair(user)
	if err != nil {
		h.logger.Error("failed_to_issue_tokens", zap.String("error", logpkg.SanitizeError(err)))
		respondJSONError(w, http.StatusInternalServerError, models.ErrCodeInternal, "Failed to issue tokens")
		return
	}
	respondJSON(w, http.StatusOK, pair)
}

func (h *AuthHandler) publish(r *http.Request, event *queue.Event) {
	publishEvent(r, h.events, h.logger, event)
}

// CreateAccount hashes password and stores a new account for email
func CreateAccount(ctx context.Context, users database.UserRepositoryInterface, email, password string) (*models.User, error) {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	account := &models.Account{
		ID:           uuid.New().String(),
		Email:        strings.TrimSpace(email),
		PasswordHash: hash,
	}
	if err := users.Create(ctx, account); err != nil {
		return nil, err
	}

	user := account.Identity()
	return &user, nil
}

// publishEvent sends event without failing the request; errors are only logged
func publishEvent(r *http.Request, events queue.Publisher, logger *zap.Logger, event *queue.Event) {
	event.RequestID = request.RequestIDFromContext(r.Context())

	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), eventPublishTimeout)
	defer cancel()

	if err := events.Publish(ctx, event); err != nil {
		logger.Warn("failed_to_publish_event",
			zap.String("event_type", string(event.Type)),
			zap.String("error", logpkg.SanitizeError(err)),
		)
	}
}
