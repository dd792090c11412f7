package repository

import (
	"context"

	"cinegate/internal/domain"
)

// UserRepository defines persistence operations for User entities. It is the
// single source of truth for verification state and password digests.
type UserRepository interface {
	Init(ctx context.Context) error
	// Insert persists a new user and fails with domain.ErrDuplicateEmail on
	// the email unique constraint.
	Insert(ctx context.Context, user *domain.User) error
	// FindByID returns domain.ErrUserNotFound when no row matches.
	FindByID(ctx context.Context, id string) (*domain.User, error)
	// FindByEmail returns domain.ErrUserNotFound when no row matches.
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	// UpdateVerifyToken swaps the stored verification token from current to
	// next as a single compare-and-set. It fails with
	// domain.ErrVerifyTokenConflict when the stored value no longer equals
	// current, so two concurrent resends cannot both believe their token is
	// the deliverable one.
	UpdateVerifyToken(ctx context.Context, id string, current, next *string) error
	// UpdatePassword replaces the stored digest.
	UpdatePassword(ctx context.Context, id, digest string) error
}
