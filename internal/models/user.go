package models

import (
	"time"

	"github.com/google/uuid"
)

// User is an account held by the built-in identity provider.
type User struct {
	// ID is the unique identifier for the user (UUID format).
	ID string

	// Email is the user's email address (unique, used to sign in).
	Email string

	// DisplayName is shown next to the user's reviews.
	DisplayName string

	// PasswordHash is the bcrypt hash of the user's password.
	PasswordHash string

	// CreatedAt and UpdatedAt are Unix timestamps in seconds.
	CreatedAt int64
	UpdatedAt int64
}

// NewUser returns a user with a fresh ID and timestamps.
func NewUser(email, displayName, passwordHash string) *User {
	now := time.Now().Unix()
	return &User{
		ID:           uuid.New().String(),
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}
