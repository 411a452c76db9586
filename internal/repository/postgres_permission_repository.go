package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/prohmpiriya/rbac-auth-service/internal/domain"
)

const permissionColumns = `id, resource, action, description, created_at, updated_at`

// PostgresPermissionRepository implements PermissionRepository using PostgreSQL
type PostgresPermissionRepository struct {
	db DB
}

// NewPostgresPermissionRepository creates a new PostgresPermissionRepository
func NewPostgresPermissionRepository(db DB) *PostgresPermissionRepository {
	return &PostgresPermissionRepository{db: db}
}

// Create inserts a permission
func (r *PostgresPermissionRepository) Create(ctx context.Context, perm *domain.Permission) error {
	query := `
		INSERT INTO permissions (id, resource, action, description)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query, perm.ID, perm.Resource, perm.Action, perm.Description).
		Scan(&perm.CreatedAt, &perm.UpdatedAt)
	return mapPgError(err)
}

// GetByID retrieves a permission by ID
func (r *PostgresPermissionRepository) GetByID(ctx context.Context, id string) (*domain.Permission, error) {
	return r.getOne(ctx, `SELECT `+permissionColumns+` FROM permissions WHERE id = $1`, id)
}

// GetByResourceAction retrieves a permission by its (resource, action) pair
func (r *PostgresPermissionRepository) GetByResourceAction(ctx context.Context, resource, action string) (*domain.Permission, error) {
	return r.getOne(ctx, `SELECT `+permissionColumns+` FROM permissions WHERE resource = $1 AND action = $2`, resource, action)
}

func (r *PostgresPermissionRepository) getOne(ctx context.Context, query string, args ...any) (*domain.Permission, error) {
	perm, err := scanPermission(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return perm, nil
}

// List returns all permissions ordered by key
func (r *PostgresPermissionRepository) List(ctx context.Context) ([]*domain.Permission, error) {
	rows, err := r.db.Query(ctx, `SELECT `+permissionColumns+` FROM permissions ORDER BY resource, action`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	perms := make([]*domain.Permission, 0)
	for rows.Next() {
		perm, err := scanPermission(rows)
		if err != nil {
			return nil, err
		}
		perms = append(perms, perm)
	}
	return perms, rows.Err()
}

// Update persists resource, action and description
func (r *PostgresPermissionRepository) Update(ctx context.Context, perm *domain.Permission) error {
	query := `
		UPDATE permissions SET resource = $2, action = $3, description = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	err := r.db.QueryRow(ctx, query, perm.ID, perm.Resource, perm.Action, perm.Description).Scan(&perm.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	return mapPgError(err)
}

// Delete removes the permission together with its role associations
func (r *PostgresPermissionRepository) Delete(ctx context.Context, id string) (bool, error) {
	var deleted bool
	err := withTx(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM role_permissions WHERE permission_id = $1`, id); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM permissions WHERE id = $1`, id)
		if err != nil {
			return err
		}
		deleted = tag.RowsAffected() > 0
		return nil
	})
	return deleted, err
}

func scanPermission(row pgx.Row) (*domain.Permission, error) {
	perm := &domain.Permission{}
	err := row.Scan(&perm.ID, &perm.Resource, &perm.Action, &perm.Description, &perm.CreatedAt, &perm.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return perm, nil
}
