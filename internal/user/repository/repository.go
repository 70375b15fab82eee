package repository

import (
	"context"
	"errors"

	"github.com/MrSCAN/hobbyist-haven-api/internal/user/domain"
)

// Sentinel errors surfaced by Create. The database's unique constraints are
// the source of truth for these; concurrent creates race there, not in the app.
var (
	ErrDuplicateEmail = errors.New("email already exists")
	ErrDuplicateID    = errors.New("user id already exists")
)

// Repository defines persistence for users.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	List(ctx context.Context) ([]*domain.User, error)
	Create(ctx context.Context, u *domain.User) error
	// UpdateRole sets the user's role. Returns the updated user, or nil if no
	// user with that id exists.
	UpdateRole(ctx context.Context, id string, role domain.Role) (*domain.User, error)
}
