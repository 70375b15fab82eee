package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/MrSCAN/hobbyist-haven-api/internal/identity/domain"
	userdomain "github.com/MrSCAN/hobbyist-haven-api/internal/user/domain"
	userrepo "github.com/MrSCAN/hobbyist-haven-api/internal/user/repository"
)

// uniqueViolation is the Postgres error code for unique constraint violations.
const uniqueViolation = "23505"

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an identity repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByUserAndProvider returns the identity for the given user and provider, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByUserAndProvider(ctx context.Context, userID string, provider domain.IdentityProvider) (*domain.Identity, error) {
	i := &domain.Identity{}
	var hash sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, provider, provider_id, password_hash, created_at
		 FROM identities WHERE user_id = $1 AND provider = $2`,
		userID, provider,
	).Scan(&i.ID, &i.UserID, &i.Provider, &i.ProviderID, &hash, &i.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if hash.Valid {
		i.PasswordHash = hash.String
	}
	return i, nil
}

// CreateUserWithIdentity persists the user and its identity in a single
// transaction, so a failure on either insert leaves no half-provisioned user
// behind. A unique violation on the user row maps to ErrDuplicateEmail or
// ErrDuplicateID depending on the violated constraint.
func (r *PostgresRepository) CreateUserWithIdentity(ctx context.Context, u *userdomain.User, i *domain.Identity) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO users (id, email, name, role, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		u.ID, u.Email, u.Name, u.Role, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			if pgErr.ConstraintName == "users_pkey" {
				return userrepo.ErrDuplicateID
			}
			return userrepo.ErrDuplicateEmail
		}
		return err
	}

	hash := sql.NullString{String: i.PasswordHash, Valid: i.PasswordHash != ""}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO identities (id, user_id, provider, provider_id, password_hash, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		i.ID, i.UserID, i.Provider, i.ProviderID, hash, i.CreatedAt,
	)
	if err != nil {
		return err
	}
	return tx.Commit()
}
