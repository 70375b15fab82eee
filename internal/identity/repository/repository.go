package repository

import (
	"context"

	"github.com/MrSCAN/hobbyist-haven-api/internal/identity/domain"
	userdomain "github.com/MrSCAN/hobbyist-haven-api/internal/user/domain"
)

// Repository defines persistence for identities. User and identity rows are
// created together so provisioning is all-or-nothing.
type Repository interface {
	GetByUserAndProvider(ctx context.Context, userID string, provider domain.IdentityProvider) (*domain.Identity, error)
	CreateUserWithIdentity(ctx context.Context, u *userdomain.User, i *domain.Identity) error
}
