package users

import (
	"context"
	"errors"
	"time"
)

// ErrEmailTaken is returned by Create when the email is already registered.
var ErrEmailTaken = errors.New("email already exists")

// Repository port for accounts.
type Repository interface {
	Create(ctx context.Context, u *User) error
	// GetByEmail returns (nil, nil) when no account matches.
	GetByEmail(ctx context.Context, email string) (*User, error)
	TouchLogin(ctx context.Context, id string, at time.Time) error
}
