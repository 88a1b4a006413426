package models

import (
	"time"
)

// User is the identity returned by signup and /me
type User struct {
	ID    string `json:"id" validate:"required"`
	Email string `json:"email" validate:"required"`
}

// Account is a stored user with credentials; it never leaves the server
type Account struct {
	ID           string
	Email        string
	PasswordHash []byte
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Identity returns the public view of the account
func (a *Account) Identity() User {
	return User{ID: a.ID, Email: a.Email}
}
