package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/prohmpiriya/rbac-auth-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		mock.Close()
	})
	return mock
}

func strPtr(s string) *string { return &s }

func TestMapPgError(t *testing.T) {
	t.Run("unique violation", func(t *testing.T) {
		err := mapPgError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})
		assert.ErrorIs(t, err, ErrDuplicate)
	})
	t.Run("foreign key violation", func(t *testing.T) {
		err := mapPgError(&pgconn.PgError{Code: "23503"})
		assert.ErrorIs(t, err, ErrReferenceNotFound)
	})
	t.Run("other pg error passes through", func(t *testing.T) {
		in := &pgconn.PgError{Code: "42P01"}
		assert.Equal(t, error(in), mapPgError(in))
	})
	t.Run("nil", func(t *testing.T) {
		assert.NoError(t, mapPgError(nil))
	})
}

func TestUserRepository_Create(t *testing.T) {
	mock := newMock(t)
	repo := NewPostgresUserRepository(mock)
	now := time.Now().UTC()

	user := &domain.User{ID: "u-1", Email: "alice@x.com", PasswordHash: "hash", FirstName: "Alice", LastName: "Smith", IsActive: true}
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO users")).
		WithArgs("u-1", "alice@x.com", "hash", "Alice", "Smith", pgxmock.AnyArg(), true).
		WillReturnRows(mock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	require.NoError(t, repo.Create(context.Background(), user))
	assert.Equal(t, now, user.CreatedAt)
}

func TestUserRepository_CreateDuplicate(t *testing.T) {
	mock := newMock(t)
	repo := NewPostgresUserRepository(mock)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO users")).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})

	err := repo.Create(context.Background(), &domain.User{ID: "u-1", Email: "alice@x.com"})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestUserRepository_GetByEmail(t *testing.T) {
	cols := []string{"id", "email", "hashed_password", "first_name", "last_name", "middle_name", "is_active", "created_at", "updated_at"}
	now := time.Now().UTC()

	t.Run("found", func(t *testing.T) {
		mock := newMock(t)
		repo := NewPostgresUserRepository(mock)
		mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE email = $1")).
			WithArgs("alice@x.com").
			WillReturnRows(mock.NewRows(cols).AddRow("u-1", "alice@x.com", "hash", "Alice", "Smith", nil, true, now, now))

		user, err := repo.GetByEmail(context.Background(), "alice@x.com")
		require.NoError(t, err)
		require.NotNil(t, user)
		assert.Equal(t, "u-1", user.ID)
		assert.Nil(t, user.MiddleName)
		assert.True(t, user.IsActive)
	})

	t.Run("not found returns nil", func(t *testing.T) {
		mock := newMock(t)
		repo := NewPostgresUserRepository(mock)
		mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE email = $1")).
			WithArgs("ghost@x.com").
			WillReturnError(pgx.ErrNoRows)

		user, err := repo.GetByEmail(context.Background(), "ghost@x.com")
		require.NoError(t, err)
		assert.Nil(t, user)
	})
}

func TestUserRepository_List(t *testing.T) {
	mock := newMock(t)
	repo := NewPostgresUserRepository(mock)
	now := time.Now().UTC()
	cols := []string{"id", "email", "hashed_password", "first_name", "last_name", "middle_name", "is_active", "created_at", "updated_at"}

	mock.ExpectQuery(regexp.QuoteMeta("OFFSET $1 LIMIT $2")).
		WithArgs(10, 2).
		WillReturnRows(mock.NewRows(cols).
			AddRow("u-1", "a@x.com", "h", "A", "One", nil, true, now, now).
			AddRow("u-2", "b@x.com", "h", "B", "Two", nil, false, now, now))

	users, err := repo.List(context.Background(), 10, 2)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.False(t, users[1].IsActive)
}

func TestUserRepository_SetActive(t *testing.T) {
	mock := newMock(t)
	repo := NewPostgresUserRepository(mock)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET is_active = $2")).
		WithArgs("u-1", false).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, repo.SetActive(context.Background(), "u-1", false))
}

func TestRefreshTokenRepository_Revoke(t *testing.T) {
	query := regexp.QuoteMeta("UPDATE refresh_tokens SET revoked = TRUE WHERE token = $1 AND revoked = FALSE")

	t.Run("first revoke flips the row", func(t *testing.T) {
		mock := newMock(t)
		repo := NewPostgresRefreshTokenRepository(mock)
		mock.ExpectExec(query).WithArgs("rt").WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		flipped, err := repo.Revoke(context.Background(), "rt")
		require.NoError(t, err)
		assert.True(t, flipped)
	})

	t.Run("repeat revoke is a no-op", func(t *testing.T) {
		mock := newMock(t)
		repo := NewPostgresRefreshTokenRepository(mock)
		mock.ExpectExec(query).WithArgs("rt").WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		flipped, err := repo.Revoke(context.Background(), "rt")
		require.NoError(t, err)
		assert.False(t, flipped)
	})
}

func TestRefreshTokenRepository_IsActiveAndHasActiveForUser(t *testing.T) {
	mock := newMock(t)
	repo := NewPostgresRefreshTokenRepository(mock)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE token = $1 AND revoked = FALSE")).
		WithArgs("rt").
		WillReturnRows(mock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(regexp.QuoteMeta("WHERE user_id = $1 AND revoked = FALSE")).
		WithArgs("u-1").
		WillReturnRows(mock.NewRows([]string{"exists"}).AddRow(false))

	active, err := repo.IsActive(context.Background(), "rt")
	require.NoError(t, err)
	assert.True(t, active)

	has, err := repo.HasActiveForUser(context.Background(), "u-1")
	require.NoError(t, err)
	assert.False(t, has)
}

func TestRefreshTokenRepository_RevokeAllForUser(t *testing.T) {
	mock := newMock(t)
	repo := NewPostgresRefreshTokenRepository(mock)

	mock.ExpectExec(regexp.QuoteMeta("WHERE user_id = $1 AND revoked = FALSE")).
		WithArgs("u-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 3))

	n, err := repo.RevokeAllForUser(context.Background(), "u-1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestRefreshTokenRepository_GetByToken(t *testing.T) {
	mock := newMock(t)
	repo := NewPostgresRefreshTokenRepository(mock)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("FROM refresh_tokens WHERE token = $1")).
		WithArgs("rt").
		WillReturnRows(mock.NewRows([]string{"id", "token", "user_id", "created_at", "revoked"}).
			AddRow("t-1", "rt", "u-1", now, true))
	mock.ExpectQuery(regexp.QuoteMeta("FROM refresh_tokens WHERE token = $1")).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	rt, err := repo.GetByToken(context.Background(), "rt")
	require.NoError(t, err)
	require.NotNil(t, rt)
	assert.True(t, rt.Revoked)

	rt, err = repo.GetByToken(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, rt)
}

func TestRoleRepository_ListForUser(t *testing.T) {
	mock := newMock(t)
	repo := NewPostgresRoleRepository(mock)
	now := time.Now().UTC()
	cols := []string{
		"id", "name", "description", "created_at", "updated_at",
		"id", "resource", "action", "description", "created_at", "updated_at",
	}

	mock.ExpectQuery(regexp.QuoteMeta("WHERE ur.user_id = $1")).
		WithArgs("u-1").
		WillReturnRows(mock.NewRows(cols).
			AddRow("r-1", "admin", nil, now, now, strPtr("p-1"), strPtr("roles"), strPtr("write"), nil, &now, &now).
			AddRow("r-1", "admin", nil, now, now, strPtr("p-2"), strPtr("users"), strPtr("read"), nil, &now, &now).
			AddRow("r-2", "user", nil, now, now, nil, nil, nil, nil, nil, nil))

	roles, err := repo.ListForUser(context.Background(), "u-1")
	require.NoError(t, err)
	require.Len(t, roles, 2)

	assert.Equal(t, "admin", roles[0].Name)
	require.Len(t, roles[0].Permissions, 2)
	assert.Equal(t, "roles:write", roles[0].Permissions[0].Key())
	assert.Equal(t, "users:read", roles[0].Permissions[1].Key())

	assert.Equal(t, "user", roles[1].Name)
	assert.Empty(t, roles[1].Permissions)
}

func TestRoleRepository_GetByIDWithPermissionsNotFound(t *testing.T) {
	mock := newMock(t)
	repo := NewPostgresRoleRepository(mock)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE r.id = $1")).
		WithArgs("r-404").
		WillReturnRows(mock.NewRows([]string{"id"}))

	role, err := repo.GetByIDWithPermissions(context.Background(), "r-404")
	require.NoError(t, err)
	assert.Nil(t, role)
}

func TestRoleRepository_DeleteCascadesInTransaction(t *testing.T) {
	t.Run("commit", func(t *testing.T) {
		mock := newMock(t)
		repo := NewPostgresRoleRepository(mock)

		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM user_roles WHERE role_id = $1")).
			WithArgs("r-1").WillReturnResult(pgxmock.NewResult("DELETE", 2))
		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM role_permissions WHERE role_id = $1")).
			WithArgs("r-1").WillReturnResult(pgxmock.NewResult("DELETE", 1))
		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM roles WHERE id = $1")).
			WithArgs("r-1").WillReturnResult(pgxmock.NewResult("DELETE", 1))
		mock.ExpectCommit()

		deleted, err := repo.Delete(context.Background(), "r-1")
		require.NoError(t, err)
		assert.True(t, deleted)
	})

	t.Run("rollback on failure", func(t *testing.T) {
		mock := newMock(t)
		repo := NewPostgresRoleRepository(mock)
		boom := errors.New("connection reset")

		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM user_roles WHERE role_id = $1")).
			WithArgs("r-1").WillReturnResult(pgxmock.NewResult("DELETE", 0))
		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM role_permissions WHERE role_id = $1")).
			WithArgs("r-1").WillReturnError(boom)
		mock.ExpectRollback()

		deleted, err := repo.Delete(context.Background(), "r-1")
		assert.ErrorIs(t, err, boom)
		assert.False(t, deleted)
	})
}

func TestRoleRepository_AssignToUserIsIdempotent(t *testing.T) {
	mock := newMock(t)
	repo := NewPostgresRoleRepository(mock)
	query := regexp.QuoteMeta("INSERT INTO user_roles (user_id, role_id) VALUES ($1, $2) ON CONFLICT DO NOTHING")

	mock.ExpectExec(query).WithArgs("u-1", "r-1").WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(query).WithArgs("u-1", "r-1").WillReturnResult(pgxmock.NewResult("INSERT", 0))

	created, err := repo.AssignToUser(context.Background(), "u-1", "r-1")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repo.AssignToUser(context.Background(), "u-1", "r-1")
	require.NoError(t, err)
	assert.False(t, created)
}

func TestRoleRepository_GrantPermissionMissingReference(t *testing.T) {
	mock := newMock(t)
	repo := NewPostgresRoleRepository(mock)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO role_permissions")).
		WithArgs("r-1", "p-404").
		WillReturnError(&pgconn.PgError{Code: "23503"})

	_, err := repo.GrantPermission(context.Background(), "r-1", "p-404")
	assert.ErrorIs(t, err, ErrReferenceNotFound)
}

func TestPermissionRepository_DeleteCascadesInTransaction(t *testing.T) {
	mock := newMock(t)
	repo := NewPostgresPermissionRepository(mock)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM role_permissions WHERE permission_id = $1")).
		WithArgs("p-1").WillReturnResult(pgxmock.NewResult("DELETE", 3))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM permissions WHERE id = $1")).
		WithArgs("p-1").WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectCommit()

	deleted, err := repo.Delete(context.Background(), "p-1")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestPermissionRepository_GetByResourceAction(t *testing.T) {
	mock := newMock(t)
	repo := NewPostgresPermissionRepository(mock)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE resource = $1 AND action = $2")).
		WithArgs("roles", "write").
		WillReturnRows(mock.NewRows([]string{"id", "resource", "action", "description", "created_at", "updated_at"}).
			AddRow("p-1", "roles", "write", strPtr("manage roles"), now, now))

	perm, err := repo.GetByResourceAction(context.Background(), "roles", "write")
	require.NoError(t, err)
	require.NotNil(t, perm)
	assert.Equal(t, "roles:write", perm.Key())
	require.NotNil(t, perm.Description)
	assert.Equal(t, "manage roles", *perm.Description)
}
