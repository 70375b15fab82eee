// Package service implements identity provisioning: self-registration with
// hashed credentials, password login, and Clerk provider sync.
package service

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	identitydomain "github.com/MrSCAN/hobbyist-haven-api/internal/identity/domain"
	"github.com/MrSCAN/hobbyist-haven-api/internal/security"
	userdomain "github.com/MrSCAN/hobbyist-haven-api/internal/user/domain"
	userrepo "github.com/MrSCAN/hobbyist-haven-api/internal/user/repository"
)

// Sentinel errors for the auth service; handlers map them to HTTP statuses.
var (
	ErrEmailAlreadyRegistered = errors.New("email already registered")
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrAlreadyProvisioned     = errors.New("user already provisioned")
)

// ValidationError reports missing or malformed caller input. Handlers map it
// to 400 with the message as the response body.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// AuthResult holds the outcome of Register or Login: a bearer token, its
// expiry, and the authenticated user.
type AuthResult struct {
	Token     string
	ExpiresAt time.Time
	User      *userdomain.User
}

// UserRepo is the minimal user repository needed by the auth service.
type UserRepo interface {
	GetByEmail(ctx context.Context, email string) (*userdomain.User, error)
	GetByID(ctx context.Context, id string) (*userdomain.User, error)
}

// IdentityRepo is the minimal identity repository needed by the auth service.
// CreateUserWithIdentity must persist the user and identity atomically: a
// failed provisioning attempt may not leave a user row without credentials.
type IdentityRepo interface {
	GetByUserAndProvider(ctx context.Context, userID string, provider identitydomain.IdentityProvider) (*identitydomain.Identity, error)
	CreateUserWithIdentity(ctx context.Context, u *userdomain.User, i *identitydomain.Identity) error
}

// AuthService implements register, login, and provider webhook sync.
type AuthService struct {
	userRepo     UserRepo
	identityRepo IdentityRepo
	hasher       *security.Hasher
	tokens       *security.TokenProvider
}

// NewAuthService returns an AuthService with the given dependencies.
func NewAuthService(userRepo UserRepo, identityRepo IdentityRepo, hasher *security.Hasher, tokens *security.TokenProvider) *AuthService {
	return &AuthService{
		userRepo:     userRepo,
		identityRepo: identityRepo,
		hasher:       hasher,
		tokens:       tokens,
	}
}

// Register creates a user and its local identity in one atomic write, then
// issues a bearer token for the new user. Email uniqueness is
// enforced both by the lookup here and by the database constraint; the
// constraint wins when two identical registrations race.
func (s *AuthService) Register(ctx context.Context, email, password, name string) (*AuthResult, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	name = strings.TrimSpace(name)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if password == "" {
		return nil, &ValidationError{Message: "Password is required"}
	}
	if name == "" {
		return nil, &ValidationError{Message: "Name is required"}
	}
	existing, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailAlreadyRegistered
	}
	hashed, err := s.hasher.Hash([]byte(password))
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	user := &userdomain.User{
		ID:        uuid.New().String(),
		Email:     email,
		Name:      name,
		Role:      userdomain.RoleUser,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := user.Validate(); err != nil {
		return nil, &ValidationError{Message: err.Error()}
	}
	identity := &identitydomain.Identity{
		ID:           uuid.New().String(),
		UserID:       user.ID,
		Provider:     identitydomain.IdentityProviderLocal,
		ProviderID:   email,
		PasswordHash: hashed,
		CreatedAt:    now,
	}
	if err := s.identityRepo.CreateUserWithIdentity(ctx, user, identity); err != nil {
		if errors.Is(err, userrepo.ErrDuplicateEmail) {
			return nil, ErrEmailAlreadyRegistered
		}
		return nil, err
	}
	return s.issueFor(user)
}

// Login authenticates with email and password and issues a bearer token.
// Unknown email and wrong password both return ErrInvalidCredentials so the
// response cannot reveal whether the email is registered.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}
	ident, err := s.identityRepo.GetByUserAndProvider(ctx, user.ID, identitydomain.IdentityProviderLocal)
	if err != nil {
		return nil, err
	}
	if ident == nil || ident.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}
	if !s.hasher.Verify(ident.PasswordHash, []byte(password)) {
		return nil, ErrInvalidCredentials
	}
	return s.issueFor(user)
}

// SyncProviderUser creates a user from a Clerk "user.created" webhook event.
// The provider-issued ID becomes the user ID and no password is stored; the
// webhook call itself is the trust boundary. A repeat delivery for the same
// provider ID returns ErrAlreadyProvisioned, which callers treat as success.
func (s *AuthService) SyncProviderUser(ctx context.Context, providerID, email, firstName, lastName string) error {
	providerID = strings.TrimSpace(providerID)
	email = strings.TrimSpace(strings.ToLower(email))
	if providerID == "" {
		return &ValidationError{Message: "Provider user id is required"}
	}
	if err := validateEmail(email); err != nil {
		return err
	}
	now := time.Now().UTC()
	user := &userdomain.User{
		ID:        providerID,
		Email:     email,
		Name:      strings.TrimSpace(strings.TrimSpace(firstName) + " " + strings.TrimSpace(lastName)),
		Role:      userdomain.RoleUser,
		CreatedAt: now,
		UpdatedAt: now,
	}
	identity := &identitydomain.Identity{
		ID:         uuid.New().String(),
		UserID:     user.ID,
		Provider:   identitydomain.IdentityProviderClerk,
		ProviderID: providerID,
		CreatedAt:  now,
	}
	if err := s.identityRepo.CreateUserWithIdentity(ctx, user, identity); err != nil {
		if errors.Is(err, userrepo.ErrDuplicateID) || errors.Is(err, userrepo.ErrDuplicateEmail) {
			return ErrAlreadyProvisioned
		}
		return err
	}
	return nil
}

// GetUser returns the user for id, or nil if not found.
func (s *AuthService) GetUser(ctx context.Context, id string) (*userdomain.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

func (s *AuthService) issueFor(user *userdomain.User) (*AuthResult, error) {
	token, expiresAt, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

func validateEmail(email string) error {
	if email == "" {
		return &ValidationError{Message: "Email is required"}
	}
	const simpleEmail = `^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`
	ok, _ := regexp.MatchString(simpleEmail, email)
	if !ok {
		return &ValidationError{Message: "Invalid email format"}
	}
	return nil
}
