package domain

import "time"

// IdentityProvider distinguishes how an identity was provisioned.
type IdentityProvider string

const (
	// IdentityProviderLocal is a self-registered identity with a stored
	// password hash.
	IdentityProviderLocal IdentityProvider = "local"
	// IdentityProviderClerk is an identity synced from a Clerk webhook event;
	// it carries no password.
	IdentityProviderClerk IdentityProvider = "clerk"
)

// Identity links a user to one provisioning path. PasswordHash is set only
// for local identities and is always a bcrypt digest, never plaintext.
type Identity struct {
	ID           string
	UserID       string
	Provider     IdentityProvider
	ProviderID   string
	PasswordHash string
	CreatedAt    time.Time
}
