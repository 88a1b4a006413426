package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/benvon/todoms/internal/models"
)

// ErrInvalidToken is returned for tokens that fail signature, expiry, issuer or type checks
var ErrInvalidToken = errors.New("invalid token")

// TokenManager issues and verifies HS256 signed access and refresh tokens
type TokenManager struct {
	key        []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewTokenManager creates a token manager signing with secret
func NewTokenManager(secret []byte, issuer string, accessTTL, refreshTTL time.Duration) *TokenManager {
	return &TokenManager{
		key:        secret,
		issuer:     issuer,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// IssuePair creates a new access and refresh token for user
func (m *TokenManager) IssuePair(user models.User) (*models.TokenResponse, error) {
	access, err := m.issue(user, models.TokenTypeAccess, m.accessTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := m.issue(user, models.TokenTypeRefresh, m.refreshTTL)
	if err != nil {
		return nil, err
	}
	return &models.TokenResponse{AccessToken: access, RefreshToken: refresh}, nil
}

func (m *TokenManager) issue(user models.User, typ models.TokenType, ttl time.Duration) (string, error) {
	now := m.now().UTC().Truncate(time.Second)
	token, err := jwt.NewBuilder().
		Subject(user.ID).
		Issuer(m.issuer).
		IssuedAt(now).
		Expiration(now.Add(ttl)).
		JwtID(uuid.New().String()).
		Claim("email", user.Email).
		Claim("typ", string(typ)).
		Build()
	if err != nil {
		return "", fmt.Errorf("failed to build token: %w", err)
	}

	signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256, m.key))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return string(signed), nil
}

// Verify checks the signature, expiry and issuer of tokenString and that it has the expected type
func (m *TokenManager) Verify(tokenString string, want models.TokenType) (*models.JWTClaims, error) {
	token, err := jwt.Parse([]byte(tokenString),
		jwt.WithKey(jwa.HS256, m.key),
		jwt.WithValidate(true),
		jwt.WithIssuer(m.issuer),
		jwt.WithClock(jwt.ClockFunc(m.now)),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims := &models.JWTClaims{
		Sub: token.Subject(),
		Exp: token.Expiration().Unix(),
		Iat: token.IssuedAt().Unix(),
		Iss: token.Issuer(),
		Jti: token.JwtID(),
	}
	if email, ok := token.Get("email"); ok {
		if emailStr, ok := email.(string); ok {
			claims.Email = emailStr
		}
	}
	if typ, ok := token.Get("typ"); ok {
		if typStr, ok := typ.(string); ok {
			claims.Type = models.TokenType(typStr)
		}
	}

	if claims.Type != want {
		return nil, fmt.Errorf("%w: expected %s token, got %q", ErrInvalidToken, want, claims.Type)
	}
	if claims.Sub == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return claims, nil
}
