package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/benvon/todoms/internal/database"
	"github.com/benvon/todoms/internal/models"
)

type stubVerifier struct {
	claims map[string]*models.JWTClaims
}

func (v stubVerifier) Verify(token string, want models.TokenType) (*models.JWTClaims, error) {
	c, ok := v.claims[token]
	if !ok || c.Type != want {
		return nil, errors.New("bad token")
	}
	return c, nil
}

type stubAccounts struct {
	accounts map[string]*models.Account
	err      error
}

func (s stubAccounts) GetByID(_ context.Context, id string) (*models.Account, error) {
	if s.err != nil {
		return nil, s.err
	}
	a, ok := s.accounts[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	return a, nil
}

func TestAuth(t *testing.T) {
	t.Parallel()

	verifier := stubVerifier{claims: map[string]*models.JWTClaims{
		"good":    {Sub: "u1", Type: models.TokenTypeAccess},
		"refresh": {Sub: "u1", Type: models.TokenTypeRefresh},
		"ghost":   {Sub: "u2", Type: models.TokenTypeAccess},
	}}
	accounts := stubAccounts{accounts: map[string]*models.Account{
		"u1": {ID: "u1", Email: "user@example.com"},
	}}

	tests := []struct {
		name       string
		header     string
		accounts   stubAccounts
		wantStatus int
		wantCode   string
	}{
		{name: "valid token", header: "Bearer good", accounts: accounts, wantStatus: http.StatusOK},
		{name: "lower-case scheme", header: "bearer good", accounts: accounts, wantStatus: http.StatusOK},
		{name: "missing header", accounts: accounts, wantStatus: http.StatusUnauthorized, wantCode: models.ErrCodeInvalidToken},
		{name: "wrong scheme", header: "Basic abc", accounts: accounts, wantStatus: http.StatusUnauthorized, wantCode: models.ErrCodeInvalidToken},
		{name: "refresh token rejected", header: "Bearer refresh", accounts: accounts, wantStatus: http.StatusUnauthorized, wantCode: models.ErrCodeInvalidToken},
		{name: "unknown account", header: "Bearer ghost", accounts: accounts, wantStatus: http.StatusUnauthorized, wantCode: models.ErrCodeInvalidToken},
		{name: "store failure", header: "Bearer good", accounts: stubAccounts{err: errors.New("db down")}, wantStatus: http.StatusInternalServerError, wantCode: models.ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var seen *models.User
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = UserFromContext(r)
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest("GET", "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			Auth(verifier, tt.accounts, zap.NewNop())(next).ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("Expected status %d, got %d", tt.wantStatus, w.Code)
			}
			if tt.wantStatus == http.StatusOK {
				if seen == nil || seen.ID != "u1" || seen.Email != "user@example.com" {
					t.Errorf("Expected user u1 in context, got %+v", seen)
				}
				return
			}
			var body models.ErrorResponse
			if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
				t.Fatalf("Failed to decode error body: %v", err)
			}
			if body.Code != tt.wantCode {
				t.Errorf("Expected code %s, got %s", tt.wantCode, body.Code)
			}
		})
	}
}
