// Package users owns the user records referenced by accounts. The
// ledger never mutates users; this exists for the auth boundary.
package users

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrEmailTaken = errors.New("email already exists")
	ErrNotFound   = errors.New("user not found")
)

type User struct {
	ID           uuid.UUID
	Email        string
	FullName     string
	PasswordHash string
	CreatedAt    time.Time
}

// Store persists users. Credential verification happens at the HTTP
// layer; the store only holds the hash.
type Store interface {
	Create(ctx context.Context, email, fullName, passwordHash string) (User, error)
	ByEmail(ctx context.Context, email string) (User, error)
}
