package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/benvon/todoms/internal/database"
	logpkg "github.com/benvon/todoms/internal/logger"
	"github.com/benvon/todoms/internal/models"
	"github.com/benvon/todoms/internal/request"
)

// TokenVerifier validates bearer tokens
type TokenVerifier interface {
	Verify(token string, want models.TokenType) (*models.JWTClaims, error)
}

// AccountLookup finds the account a token was issued for
type AccountLookup interface {
	GetByID(ctx context.Context, id string) (*models.Account, error)
}

// UserFromContext extracts the user from the request context
func UserFromContext(r *http.Request) *models.User {
	return request.UserFromContext(r)
}

// Auth creates authentication middleware that validates access tokens and
// attaches the token's account to the request context
func Auth(verifier TokenVerifier, accounts AccountLookup, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				respondError(w, http.StatusUnauthorized, models.ErrCodeInvalidToken, "Missing Authorization header")
				return
			}

			scheme, tokenString, ok := strings.Cut(authHeader, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || tokenString == "" {
				respondError(w, http.StatusUnauthorized, models.ErrCodeInvalidToken, "Invalid Authorization header format")
				return
			}

			claims, err := verifier.Verify(tokenString, models.TokenTypeAccess)
			if err != nil {
				logger.Debug("token_verification_failed", zap.String("error", logpkg.SanitizeError(err)))
				respondError(w, http.StatusUnauthorized, models.ErrCodeInvalidToken, "Invalid or expired token")
				return
			}

			ctx := r.Context()
			account, err := accounts.GetByID(ctx, claims.Sub)
			if err != nil {
				if errors.Is(err, database.ErrNotFound) {
					respondError(w, http.StatusUnauthorized, models.ErrCodeInvalidToken, "Invalid or expired token")
					return
				}
				logger.Error("failed_to_load_user",
					zap.String("user_id", logpkg.SanitizeID(claims.Sub)),
					zap.String("error", logpkg.SanitizeError(err)),
				)
				respondError(w, http.StatusInternalServerError, models.ErrCodeInternal, "Database error")
				return
			}

			user := account.Identity()
			next.ServeHTTP(w, r.WithContext(request.WithUser(ctx, &user)))
		})
	}
}
