package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwt"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/benvon/todoms/internal/apiclient"
	"github.com/benvon/todoms/internal/logger"
	"github.com/benvon/todoms/internal/models"
)

var (
	// ErrNotLoggedIn is returned when an operation needs stored credentials and there are none
	ErrNotLoggedIn = errors.New("not logged in")
	// ErrAuthFailed wraps a rejected signup, login or refresh
	ErrAuthFailed = errors.New("authentication failed")
)

// Gateway is the part of the API client the session talks to
type Gateway interface {
	Signup(ctx context.Context, req models.SignupRequest) apiclient.Envelope[models.User]
	Login(ctx context.Context, req models.LoginRequest) apiclient.Envelope[models.TokenResponse]
	Refresh(ctx context.Context, req models.RefreshTokenRequest) apiclient.Envelope[models.TokenResponse]
	Me(ctx context.Context, token string) apiclient.Envelope[models.User]
}

// Session holds the signed-in identity and its tokens.
// It implements oauth2.TokenSource so consumers can read the current bearer token.
type Session struct {
	mu      sync.RWMutex
	gateway Gateway
	store   TokenStore
	logger  *zap.Logger
	now     func() time.Time

	token *oauth2.Token
	user  *models.User
}

// New creates a session. Call Restore to pick up persisted credentials.
func New(gateway Gateway, store TokenStore, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		gateway: gateway,
		store:   store,
		logger:  logger,
		now:     time.Now,
	}
}

// Restore loads stored tokens and fetches the identity behind them.
// When the identity cannot be fetched the stored credentials are discarded.
func (s *Session) Restore(ctx context.Context) error {
	creds, err := s.store.Load()
	if err != nil {
		return fmt.Errorf("failed to load credentials: %w", err)
	}
	if creds == nil {
		return nil
	}

	s.setTokens(creds.AccessToken, creds.RefreshToken)

	resp := s.gateway.Me(ctx, creds.AccessToken)
	if resp.Data == nil {
		s.logger.Info("session_restore_failed",
			zap.Int("status", resp.StatusCode),
			zap.String("error", logger.SanitizeErrorString(resp.ErrorMessage())),
		)
		return s.Logout()
	}

	s.mu.Lock()
	s.user = resp.Data
	s.mu.Unlock()
	s.logger.Debug("session_restored", zap.String("user_id", logger.SanitizeID(resp.Data.ID)))
	return nil
}

// Resume is Restore for long-lived clients: an expired stored access token is first
// exchanged for a new pair. A rejected refresh leaves the session signed out.
func (s *Session) Resume(ctx context.Context) error {
	creds, err := s.store.Load()
	if err != nil {
		return fmt.Errorf("failed to load credentials: %w", err)
	}
	if creds == nil {
		return nil
	}

	exp := expiryOf(creds.AccessToken)
	if creds.RefreshToken != "" && !exp.IsZero() && !exp.After(s.now()) {
		s.setTokens(creds.AccessToken, creds.RefreshToken)
		if err := s.Refresh(ctx); err != nil {
			if errors.Is(err, ErrAuthFailed) {
				return nil
			}
			return err
		}
	}
	return s.Restore(ctx)
}

// Login authenticates, persists the token pair and fetches the identity
func (s *Session) Login(ctx context.Context, email, password string) error {
	resp := s.gateway.Login(ctx, models.LoginRequest{Email: email, Password: password})
	if resp.Data == nil {
		return fmt.Errorf("%w: %s", ErrAuthFailed, resp.ErrorMessage())
	}

	if err := s.persist(resp.Data); err != nil {
		return err
	}

	me := s.gateway.Me(ctx, resp.Data.AccessToken)
	if me.Data == nil {
		return fmt.Errorf("%w: failed to fetch identity: %s", ErrAuthFailed, me.ErrorMessage())
	}

	s.mu.Lock()
	s.user = me.Data
	s.mu.Unlock()
	s.logger.Info("user_logged_in", zap.String("user_id", logger.SanitizeID(me.Data.ID)))
	return nil
}

// Signup registers an account and then logs in with the same credentials
func (s *Session) Signup(ctx context.Context, email, password string) error {
	resp := s.gateway.Signup(ctx, models.SignupRequest{Email: email, Password: password})
	if resp.Data == nil {
		return fmt.Errorf("%w: %s", ErrAuthFailed, resp.ErrorMessage())
	}
	s.logger.Info("user_signed_up", zap.String("user_id", logger.SanitizeID(resp.Data.ID)))
	return s.Login(ctx, email, password)
}

// Refresh exchanges the refresh token for a new pair. A rejected refresh logs out.
func (s *Session) Refresh(ctx context.Context) error {
	s.mu.RLock()
	var refreshToken string
	if s.token != nil {
		refreshToken = s.token.RefreshToken
	}
	s.mu.RUnlock()

	if refreshToken == "" {
		return ErrNotLoggedIn
	}

	resp := s.gateway.Refresh(ctx, models.RefreshTokenRequest{RefreshToken: refreshToken})
	if resp.Data == nil {
		s.logger.Info("token_refresh_failed", zap.Int("status", resp.StatusCode))
		if err := s.Logout(); err != nil {
			return err
		}
		return fmt.Errorf("%w: %s", ErrAuthFailed, resp.ErrorMessage())
	}
	return s.persist(resp.Data)
}

// Logout forgets the identity and clears stored credentials
func (s *Session) Logout() error {
	s.mu.Lock()
	s.token = nil
	s.user = nil
	s.mu.Unlock()

	if err := s.store.Clear(); err != nil {
		return fmt.Errorf("failed to clear credentials: %w", err)
	}
	return nil
}

// Token returns the current token. It implements oauth2.TokenSource.
func (s *Session) Token() (*oauth2.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == nil {
		return nil, ErrNotLoggedIn
	}
	t := *s.token
	return &t, nil
}

// AccessToken returns the bearer token or an empty string
func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == nil {
		return ""
	}
	return s.token.AccessToken
}

// Valid reports whether a non-expired access token is held
func (s *Session) Valid() bool {
	tok, err := s.Token()
	return err == nil && tok.Valid()
}

// User returns the signed-in identity or nil
func (s *Session) User() *models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

func (s *Session) persist(pair *models.TokenResponse) error {
	if err := s.store.Save(Credentials{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		SavedAt:      s.now(),
	}); err != nil {
		return fmt.Errorf("failed to store credentials: %w", err)
	}
	s.setTokens(pair.AccessToken, pair.RefreshToken)
	return nil
}

func (s *Session) setTokens(access, refresh string) {
	tok := &oauth2.Token{
		AccessToken:  access,
		TokenType:    "Bearer",
		RefreshToken: refresh,
		Expiry:       expiryOf(access),
	}
	s.mu.Lock()
	s.token = tok
	s.mu.Unlock()
}

// expiryOf reads the exp claim without verifying the signature.
// Opaque tokens yield the zero time, which oauth2 treats as non-expiring.
func expiryOf(accessToken string) time.Time {
	parsed, err := jwt.ParseInsecure([]byte(accessToken))
	if err != nil {
		return time.Time{}
	}
	return parsed.Expiration()
}
