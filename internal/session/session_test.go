package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"go.uber.org/zap"

	"github.com/benvon/todoms/internal/apiclient"
	"github.com/benvon/todoms/internal/models"
)

type fakeGateway struct {
	signup  apiclient.Envelope[models.User]
	login   apiclient.Envelope[models.TokenResponse]
	refresh apiclient.Envelope[models.TokenResponse]
	me      apiclient.Envelope[models.User]

	meTokens     []string
	loginCalls   int
	refreshCalls int
}

func (f *fakeGateway) Signup(_ context.Context, _ models.SignupRequest) apiclient.Envelope[models.User] {
	return f.signup
}

func (f *fakeGateway) Login(_ context.Context, _ models.LoginRequest) apiclient.Envelope[models.TokenResponse] {
	f.loginCalls++
	return f.login
}

func (f *fakeGateway) Refresh(_ context.Context, _ models.RefreshTokenRequest) apiclient.Envelope[models.TokenResponse] {
	f.refreshCalls++
	return f.refresh
}

func (f *fakeGateway) Me(_ context.Context, token string) apiclient.Envelope[models.User] {
	f.meTokens = append(f.meTokens, token)
	return f.me
}

func okUser() apiclient.Envelope[models.User] {
	return apiclient.Envelope[models.User]{Data: &models.User{ID: "u1", Email: "user@example.com"}, StatusCode: 200}
}

func okPair(access, refresh string) apiclient.Envelope[models.TokenResponse] {
	return apiclient.Envelope[models.TokenResponse]{
		Data:       &models.TokenResponse{AccessToken: access, RefreshToken: refresh},
		StatusCode: 200,
	}
}

func failure[T any](status int, code string) apiclient.Envelope[T] {
	return apiclient.Envelope[T]{StatusCode: status, Error: &models.ErrorResponse{Code: code, Message: code}}
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewBuilder().Subject("u1").Expiration(exp).Build()
	if err != nil {
		t.Fatalf("Failed to build token: %v", err)
	}
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, []byte("0123456789abcdef0123456789abcdef")))
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}
	return string(signed)
}

func TestSession_Login(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		gateway   *fakeGateway
		wantErr   bool
		wantSaved bool
		validate  func(*testing.T, *Session, *fakeGateway)
	}{
		{
			name:      "stores tokens then fetches identity",
			gateway:   &fakeGateway{login: okPair("access-1", "refresh-1"), me: okUser()},
			wantSaved: true,
			validate: func(t *testing.T, s *Session, g *fakeGateway) {
				if s.User() == nil || s.User().Email != "user@example.com" {
					t.Errorf("Expected user to be set, got %+v", s.User())
				}
				if len(g.meTokens) != 1 || g.meTokens[0] != "access-1" {
					t.Errorf("Expected /me with the new access token, got %v", g.meTokens)
				}
				if s.AccessToken() != "access-1" {
					t.Errorf("Expected access token access-1, got %q", s.AccessToken())
				}
			},
		},
		{
			name:    "rejected credentials",
			gateway: &fakeGateway{login: failure[models.TokenResponse](401, models.ErrCodeInvalidCredentials)},
			wantErr: true,
			validate: func(t *testing.T, s *Session, g *fakeGateway) {
				if s.User() != nil || s.AccessToken() != "" {
					t.Error("Expected no identity after failed login")
				}
			},
		},
		{
			name:      "identity fetch fails after login",
			gateway:   &fakeGateway{login: okPair("access-1", "refresh-1"), me: failure[models.User](401, models.ErrCodeInvalidToken)},
			wantErr:   true,
			wantSaved: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			store := NewMemoryStore()
			s := New(tt.gateway, store, zap.NewNop())

			err := s.Login(context.Background(), "user@example.com", "password")
			if (err != nil) != tt.wantErr {
				t.Fatalf("Login() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, ErrAuthFailed) {
				t.Errorf("Expected ErrAuthFailed, got %v", err)
			}

			creds, _ := store.Load()
			if (creds != nil) != tt.wantSaved {
				t.Errorf("Expected saved=%v, got %+v", tt.wantSaved, creds)
			}
			if creds != nil && (creds.AccessToken != "access-1" || creds.RefreshToken != "refresh-1") {
				t.Errorf("Unexpected stored credentials %+v", creds)
			}
			if tt.validate != nil {
				tt.validate(t, s, tt.gateway)
			}
		})
	}
}

func TestSession_SignupLogsIn(t *testing.T) {
	t.Parallel()

	g := &fakeGateway{signup: okUser(), login: okPair("a", "r"), me: okUser()}
	s := New(g, NewMemoryStore(), nil)
	if err := s.Signup(context.Background(), "user@example.com", "password"); err != nil {
		t.Fatalf("Signup() error = %v", err)
	}
	if g.loginCalls != 1 {
		t.Errorf("Expected automatic login, got %d login calls", g.loginCalls)
	}

	g = &fakeGateway{signup: failure[models.User](409, models.ErrCodeConflict)}
	s = New(g, NewMemoryStore(), nil)
	if err := s.Signup(context.Background(), "user@example.com", "password"); !errors.Is(err, ErrAuthFailed) {
		t.Errorf("Expected ErrAuthFailed, got %v", err)
	}
	if g.loginCalls != 0 {
		t.Errorf("Expected no login after failed signup, got %d", g.loginCalls)
	}
}

func TestSession_Restore(t *testing.T) {
	t.Parallel()

	t.Run("nothing stored", func(t *testing.T) {
		t.Parallel()
		g := &fakeGateway{}
		s := New(g, NewMemoryStore(), nil)
		if err := s.Restore(context.Background()); err != nil {
			t.Fatalf("Restore() error = %v", err)
		}
		if len(g.meTokens) != 0 {
			t.Error("Expected no identity fetch without credentials")
		}
		if _, err := s.Token(); !errors.Is(err, ErrNotLoggedIn) {
			t.Errorf("Expected ErrNotLoggedIn, got %v", err)
		}
	})

	t.Run("valid stored token", func(t *testing.T) {
		t.Parallel()
		store := NewMemoryStore()
		_ = store.Save(Credentials{AccessToken: "stored", RefreshToken: "r"})
		s := New(&fakeGateway{me: okUser()}, store, nil)
		if err := s.Restore(context.Background()); err != nil {
			t.Fatalf("Restore() error = %v", err)
		}
		if s.User() == nil || !s.Valid() {
			t.Error("Expected restored identity and valid token")
		}
	})

	t.Run("rejected stored token logs out", func(t *testing.T) {
		t.Parallel()
		store := NewMemoryStore()
		_ = store.Save(Credentials{AccessToken: "stale", RefreshToken: "r"})
		s := New(&fakeGateway{me: failure[models.User](401, models.ErrCodeInvalidToken)}, store, nil)
		if err := s.Restore(context.Background()); err != nil {
			t.Fatalf("Restore() error = %v", err)
		}
		if creds, _ := store.Load(); creds != nil {
			t.Errorf("Expected credentials cleared, got %+v", creds)
		}
		if s.Valid() || s.User() != nil {
			t.Error("Expected logged out session")
		}
	})
}

func TestSession_Refresh(t *testing.T) {
	t.Parallel()

	t.Run("not logged in", func(t *testing.T) {
		t.Parallel()
		s := New(&fakeGateway{}, NewMemoryStore(), nil)
		if err := s.Refresh(context.Background()); !errors.Is(err, ErrNotLoggedIn) {
			t.Errorf("Expected ErrNotLoggedIn, got %v", err)
		}
	})

	t.Run("rotates the pair", func(t *testing.T) {
		t.Parallel()
		g := &fakeGateway{login: okPair("a1", "r1"), me: okUser(), refresh: okPair("a2", "r2")}
		store := NewMemoryStore()
		s := New(g, store, nil)
		if err := s.Login(context.Background(), "user@example.com", "password"); err != nil {
			t.Fatalf("Login() error = %v", err)
		}
		if err := s.Refresh(context.Background()); err != nil {
			t.Fatalf("Refresh() error = %v", err)
		}
		creds, _ := store.Load()
		if creds == nil || creds.AccessToken != "a2" || creds.RefreshToken != "r2" {
			t.Errorf("Expected rotated credentials, got %+v", creds)
		}
		if s.User() == nil {
			t.Error("Expected identity to survive refresh")
		}
	})

	t.Run("rejected refresh clears storage", func(t *testing.T) {
		t.Parallel()
		g := &fakeGateway{login: okPair("a1", "r1"), me: okUser(), refresh: failure[models.TokenResponse](401, models.ErrCodeInvalidToken)}
		store := NewMemoryStore()
		s := New(g, store, nil)
		_ = s.Login(context.Background(), "user@example.com", "password")
		if err := s.Refresh(context.Background()); !errors.Is(err, ErrAuthFailed) {
			t.Errorf("Expected ErrAuthFailed, got %v", err)
		}
		if creds, _ := store.Load(); creds != nil {
			t.Errorf("Expected credentials cleared, got %+v", creds)
		}
		if s.AccessToken() != "" {
			t.Error("Expected token dropped")
		}
	})
}

func TestSession_Resume(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		access      func(t *testing.T) string
		refresh     apiclient.Envelope[models.TokenResponse]
		wantRefresh int
		wantUser    bool
		wantAccess  string
	}{
		{
			name:     "fresh token is only restored",
			access:   func(t *testing.T) string { return signedToken(t, time.Now().Add(time.Hour)) },
			wantUser: true,
		},
		{
			name:        "expired token is refreshed first",
			access:      func(t *testing.T) string { return signedToken(t, time.Now().Add(-time.Hour)) },
			refresh:     okPair("a2", "r2"),
			wantRefresh: 1,
			wantUser:    true,
			wantAccess:  "a2",
		},
		{
			name:        "rejected refresh signs out",
			access:      func(t *testing.T) string { return signedToken(t, time.Now().Add(-time.Hour)) },
			refresh:     failure[models.TokenResponse](401, models.ErrCodeInvalidToken),
			wantRefresh: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			store := NewMemoryStore()
			access := tt.access(t)
			if err := store.Save(Credentials{AccessToken: access, RefreshToken: "r1"}); err != nil {
				t.Fatalf("Save() error = %v", err)
			}
			g := &fakeGateway{me: okUser(), refresh: tt.refresh}
			s := New(g, store, nil)

			if err := s.Resume(context.Background()); err != nil {
				t.Fatalf("Resume() error = %v", err)
			}
			if g.refreshCalls != tt.wantRefresh {
				t.Errorf("Expected %d refresh calls, got %d", tt.wantRefresh, g.refreshCalls)
			}
			if (s.User() != nil) != tt.wantUser {
				t.Errorf("Expected user present %v, got %+v", tt.wantUser, s.User())
			}
			want := tt.wantAccess
			if want == "" && tt.wantUser {
				want = access
			}
			if got := s.AccessToken(); got != want {
				t.Errorf("Expected access token %q, got %q", want, got)
			}
		})
	}
}

func TestSession_ValidUsesTokenExpiry(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		access func(t *testing.T) string
		want   bool
	}{
		{"unexpired jwt", func(t *testing.T) string { return signedToken(t, time.Now().Add(time.Hour)) }, true},
		{"expired jwt", func(t *testing.T) string { return signedToken(t, time.Now().Add(-time.Hour)) }, false},
		{"opaque token never expires", func(t *testing.T) string { return "mock-access-token" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			g := &fakeGateway{login: okPair(tt.access(t), "r"), me: okUser()}
			s := New(g, NewMemoryStore(), nil)
			if err := s.Login(context.Background(), "user@example.com", "password"); err != nil {
				t.Fatalf("Login() error = %v", err)
			}
			if got := s.Valid(); got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSession_Logout(t *testing.T) {
	t.Parallel()

	g := &fakeGateway{login: okPair("a", "r"), me: okUser()}
	store := NewMemoryStore()
	s := New(g, store, nil)
	_ = s.Login(context.Background(), "user@example.com", "password")

	if err := s.Logout(); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	if creds, _ := store.Load(); creds != nil {
		t.Errorf("Expected credentials cleared, got %+v", creds)
	}
	if s.User() != nil || s.AccessToken() != "" {
		t.Error("Expected session state cleared")
	}
}

func TestFileStore(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "credentials.json")
	store := NewFileStore(path)

	creds, err := store.Load()
	if err != nil || creds != nil {
		t.Fatalf("Expected empty load, got %+v, %v", creds, err)
	}

	if err := store.Save(Credentials{AccessToken: "a", RefreshToken: "r"}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Expected credentials file, got %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("Expected file mode 0600, got %o", perm)
	}
	dirInfo, err := os.Stat(filepath.Dir(path))
	if err != nil {
		t.Fatalf("Expected credentials dir, got %v", err)
	}
	if perm := dirInfo.Mode().Perm(); perm != 0o700 {
		t.Errorf("Expected dir mode 0700, got %o", perm)
	}

	raw, _ := os.ReadFile(path)
	for _, key := range []string{`"accessToken"`, `"refreshToken"`} {
		if !strings.Contains(string(raw), key) {
			t.Errorf("Expected key %s in %s", key, raw)
		}
	}

	creds, err = store.Load()
	if err != nil || creds == nil || creds.AccessToken != "a" {
		t.Fatalf("Expected stored credentials, got %+v, %v", creds, err)
	}

	if err := store.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if err := store.Clear(); err != nil {
		t.Errorf("Expected second Clear() to succeed, got %v", err)
	}
	if creds, _ := store.Load(); creds != nil {
		t.Errorf("Expected nothing after Clear, got %+v", creds)
	}
}

func TestFileStore_Corrupt(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "credentials.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}
	if _, err := NewFileStore(path).Load(); err == nil {
		t.Error("Expected parse error for corrupt credentials")
	}
}
