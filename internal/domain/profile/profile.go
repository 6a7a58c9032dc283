package profile

import (
	"errors"
	"time"
)

// Profile is the per-identity record keyed by the authenticated user id.
// IsAdmin defaults to false and is only ever set out-of-band (env seed or
// operator edit); nothing in this codebase grants it.
type Profile struct {
	UserID       string    `json:"userId"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // never expose hash in JSON
	IsAdmin      bool      `json:"isAdmin"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// AnonymousEmail marks profiles created for identities without an email.
const AnonymousEmail = "anonymous"

var (
	ErrNotFound   = errors.New("profile not found")
	ErrEmailTaken = errors.New("email already registered")
)

func New(userID, email string) Profile {
	if email == "" {
		email = AnonymousEmail
	}

	now := time.Now().UTC()

	return Profile{
		UserID:    userID,
		Email:     email,
		IsAdmin:   false,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
