package models

// TokenType distinguishes access from refresh tokens
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// JWTClaims represents the claims extracted from a JWT token
type JWTClaims struct {
	Sub   string    `json:"sub"`   // User ID
	Email string    `json:"email"` // User email
	Type  TokenType `json:"typ"`   // access or refresh
	Exp   int64     `json:"exp"`   // Expiration time
	Iat   int64     `json:"iat"`   // Issued at
	Iss   string    `json:"iss"`   // Issuer
	Jti   string    `json:"jti"`   // Token ID
}
