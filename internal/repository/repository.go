package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prohmpiriya/rbac-auth-service/internal/domain"
)

const (
	pgErrUniqueViolation     = "23505"
	pgErrForeignKeyViolation = "23503"
)

var (
	// ErrDuplicate is returned when a unique constraint rejects a write
	ErrDuplicate = errors.New("duplicate key")
	// ErrReferenceNotFound is returned when a foreign key target does not exist
	ErrReferenceNotFound = errors.New("referenced row not found")
)

// DB is the subset of *pgxpool.Pool the repositories use
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create creates a new user
	Create(ctx context.Context, user *domain.User) error
	// GetByID retrieves a user by ID
	GetByID(ctx context.Context, id string) (*domain.User, error)
	// GetByEmail retrieves a user by email, active or not
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	// List returns users ordered by creation time
	List(ctx context.Context, skip, limit int) ([]*domain.User, error)
	// Update persists profile fields
	Update(ctx context.Context, user *domain.User) error
	// SetActive flips the active flag; users are never hard-deleted
	SetActive(ctx context.Context, id string, active bool) error
	// ExistsByEmail checks if a user exists with the given email
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}

// RoleRepository defines the interface for role data access
type RoleRepository interface {
	Create(ctx context.Context, role *domain.Role) error
	GetByID(ctx context.Context, id string) (*domain.Role, error)
	// GetByIDWithPermissions loads the role and its permissions in one query
	GetByIDWithPermissions(ctx context.Context, id string) (*domain.Role, error)
	GetByName(ctx context.Context, name string) (*domain.Role, error)
	// List returns all roles with their permissions loaded
	List(ctx context.Context) ([]*domain.Role, error)
	Update(ctx context.Context, role *domain.Role) error
	// Delete removes the role and its association rows atomically
	Delete(ctx context.Context, id string) (bool, error)
	// ListForUser returns the user's roles with permissions eagerly loaded
	ListForUser(ctx context.Context, userID string) ([]*domain.Role, error)
	// AssignToUser is idempotent; it reports whether a new row was written
	AssignToUser(ctx context.Context, userID, roleID string) (bool, error)
	UnassignFromUser(ctx context.Context, userID, roleID string) (bool, error)
	// GrantPermission is idempotent; it reports whether a new row was written
	GrantPermission(ctx context.Context, roleID, permissionID string) (bool, error)
	RevokePermission(ctx context.Context, roleID, permissionID string) (bool, error)
}

// PermissionRepository defines the interface for permission data access
type PermissionRepository interface {
	Create(ctx context.Context, perm *domain.Permission) error
	GetByID(ctx context.Context, id string) (*domain.Permission, error)
	GetByResourceAction(ctx context.Context, resource, action string) (*domain.Permission, error)
	List(ctx context.Context) ([]*domain.Permission, error)
	Update(ctx context.Context, perm *domain.Permission) error
	// Delete removes the permission and its association rows atomically
	Delete(ctx context.Context, id string) (bool, error)
}

// RefreshTokenRepository defines the interface for refresh token data access.
// Rows are append-only: only the revoked flag ever changes.
type RefreshTokenRepository interface {
	Create(ctx context.Context, token *domain.RefreshToken) error
	GetByToken(ctx context.Context, token string) (*domain.RefreshToken, error)
	// Revoke reports whether this call flipped the token; repeats are no-ops
	Revoke(ctx context.Context, token string) (bool, error)
	// IsActive is true iff a row exists for the token and it is not revoked
	IsActive(ctx context.Context, token string) (bool, error)
	HasActiveForUser(ctx context.Context, userID string) (bool, error)
	RevokeAllForUser(ctx context.Context, userID string) (int64, error)
}

// mapPgError translates constraint violations into repository errors
func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgErrUniqueViolation:
		return fmt.Errorf("%w: %s", ErrDuplicate, pgErr.ConstraintName)
	case pgErrForeignKeyViolation:
		return fmt.Errorf("%w: %s", ErrReferenceNotFound, pgErr.ConstraintName)
	}
	return err
}

// withTx runs fn in a transaction, committing only when fn succeeds
func withTx(ctx context.Context, db DB, fn func(tx pgx.Tx) error) error {
	tx, err := db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
