package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/prohmpiriya/rbac-auth-service/internal/domain"
)

// rolesWithPermissions selects roles left-joined to their permissions; the
// permission columns are NULL for a role without grants.
const rolesWithPermissions = `
	SELECT r.id, r.name, r.description, r.created_at, r.updated_at,
	       p.id, p.resource, p.action, p.description, p.created_at, p.updated_at
	FROM roles r
	LEFT JOIN role_permissions rp ON rp.role_id = r.id
	LEFT JOIN permissions p ON p.id = rp.permission_id
`

// PostgresRoleRepository implements RoleRepository using PostgreSQL
type PostgresRoleRepository struct {
	db DB
}

// NewPostgresRoleRepository creates a new PostgresRoleRepository
func NewPostgresRoleRepository(db DB) *PostgresRoleRepository {
	return &PostgresRoleRepository{db: db}
}

// Create inserts a role
func (r *PostgresRoleRepository) Create(ctx context.Context, role *domain.Role) error {
	query := `
		INSERT INTO roles (id, name, description)
		VALUES ($1, $2, $3)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query, role.ID, role.Name, role.Description).Scan(&role.CreatedAt, &role.UpdatedAt)
	return mapPgError(err)
}

// GetByID retrieves a role without permissions
func (r *PostgresRoleRepository) GetByID(ctx context.Context, id string) (*domain.Role, error) {
	return r.getOne(ctx, `SELECT id, name, description, created_at, updated_at FROM roles WHERE id = $1`, id)
}

// GetByName retrieves a role by its unique name
func (r *PostgresRoleRepository) GetByName(ctx context.Context, name string) (*domain.Role, error) {
	return r.getOne(ctx, `SELECT id, name, description, created_at, updated_at FROM roles WHERE name = $1`, name)
}

func (r *PostgresRoleRepository) getOne(ctx context.Context, query, arg string) (*domain.Role, error) {
	role := &domain.Role{}
	err := r.db.QueryRow(ctx, query, arg).Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return role, nil
}

// GetByIDWithPermissions loads a role and its permissions
func (r *PostgresRoleRepository) GetByIDWithPermissions(ctx context.Context, id string) (*domain.Role, error) {
	roles, err := r.queryRoles(ctx, rolesWithPermissions+` WHERE r.id = $1 ORDER BY p.resource, p.action`, id)
	if err != nil || len(roles) == 0 {
		return nil, err
	}
	return roles[0], nil
}

// List returns all roles with their permissions
func (r *PostgresRoleRepository) List(ctx context.Context) ([]*domain.Role, error) {
	return r.queryRoles(ctx, rolesWithPermissions+` ORDER BY r.name, p.resource, p.action`)
}

// ListForUser returns the roles assigned to a user with permissions eagerly loaded
func (r *PostgresRoleRepository) ListForUser(ctx context.Context, userID string) ([]*domain.Role, error) {
	query := rolesWithPermissions + `
		JOIN user_roles ur ON ur.role_id = r.id
		WHERE ur.user_id = $1
		ORDER BY r.name, p.resource, p.action
	`
	return r.queryRoles(ctx, query, userID)
}

// Update persists name and description
func (r *PostgresRoleRepository) Update(ctx context.Context, role *domain.Role) error {
	query := `
		UPDATE roles SET name = $2, description = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	err := r.db.QueryRow(ctx, query, role.ID, role.Name, role.Description).Scan(&role.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	return mapPgError(err)
}

// Delete removes the role together with its user and permission associations
func (r *PostgresRoleRepository) Delete(ctx context.Context, id string) (bool, error) {
	var deleted bool
	err := withTx(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM user_roles WHERE role_id = $1`, id); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, id); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id)
		if err != nil {
			return err
		}
		deleted = tag.RowsAffected() > 0
		return nil
	})
	return deleted, err
}

// AssignToUser adds a user-role association
func (r *PostgresRoleRepository) AssignToUser(ctx context.Context, userID, roleID string) (bool, error) {
	query := `INSERT INTO user_roles (user_id, role_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`
	tag, err := r.db.Exec(ctx, query, userID, roleID)
	if err != nil {
		return false, mapPgError(err)
	}
	return tag.RowsAffected() > 0, nil
}

// UnassignFromUser removes a user-role association
func (r *PostgresRoleRepository) UnassignFromUser(ctx context.Context, userID, roleID string) (bool, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1 AND role_id = $2`, userID, roleID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// GrantPermission adds a role-permission association
func (r *PostgresRoleRepository) GrantPermission(ctx context.Context, roleID, permissionID string) (bool, error) {
	query := `INSERT INTO role_permissions (role_id, permission_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`
	tag, err := r.db.Exec(ctx, query, roleID, permissionID)
	if err != nil {
		return false, mapPgError(err)
	}
	return tag.RowsAffected() > 0, nil
}

// RevokePermission removes a role-permission association
func (r *PostgresRoleRepository) RevokePermission(ctx context.Context, roleID, permissionID string) (bool, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM role_permissions WHERE role_id = $1 AND permission_id = $2`, roleID, permissionID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// queryRoles folds the flat join rows into roles, preserving row order
func (r *PostgresRoleRepository) queryRoles(ctx context.Context, query string, args ...any) ([]*domain.Role, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	roles := make([]*domain.Role, 0)
	byID := make(map[string]*domain.Role)
	for rows.Next() {
		var (
			role        domain.Role
			permID      *string
			resource    *string
			action      *string
			permDesc    *string
			permCreated *time.Time
			permUpdated *time.Time
		)
		err := rows.Scan(
			&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt,
			&permID, &resource, &action, &permDesc, &permCreated, &permUpdated,
		)
		if err != nil {
			return nil, err
		}

		current, ok := byID[role.ID]
		if !ok {
			current = &role
			current.Permissions = []*domain.Permission{}
			byID[role.ID] = current
			roles = append(roles, current)
		}
		if permID == nil {
			continue
		}
		perm := &domain.Permission{ID: *permID, Description: permDesc}
		if resource != nil {
			perm.Resource = *resource
		}
		if action != nil {
			perm.Action = *action
		}
		if permCreated != nil {
			perm.CreatedAt = *permCreated
		}
		if permUpdated != nil {
			perm.UpdatedAt = *permUpdated
		}
		current.Permissions = append(current.Permissions, perm)
	}
	return roles, rows.Err()
}
