package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/prohmpiriya/rbac-auth-service/internal/domain"
)

// PostgresRefreshTokenRepository implements RefreshTokenRepository using PostgreSQL
type PostgresRefreshTokenRepository struct {
	db DB
}

// NewPostgresRefreshTokenRepository creates a new PostgresRefreshTokenRepository
func NewPostgresRefreshTokenRepository(db DB) *PostgresRefreshTokenRepository {
	return &PostgresRefreshTokenRepository{db: db}
}

// Create stores a newly issued refresh token
func (r *PostgresRefreshTokenRepository) Create(ctx context.Context, token *domain.RefreshToken) error {
	query := `
		INSERT INTO refresh_tokens (id, token, user_id, revoked)
		VALUES ($1, $2, $3, FALSE)
		RETURNING created_at
	`
	err := r.db.QueryRow(ctx, query, token.ID, token.Token, token.UserID).Scan(&token.CreatedAt)
	return mapPgError(err)
}

// GetByToken looks a token up by its exact string, revoked or not
func (r *PostgresRefreshTokenRepository) GetByToken(ctx context.Context, token string) (*domain.RefreshToken, error) {
	query := `SELECT id, token, user_id, created_at, revoked FROM refresh_tokens WHERE token = $1`
	rt := &domain.RefreshToken{}
	err := r.db.QueryRow(ctx, query, token).Scan(&rt.ID, &rt.Token, &rt.UserID, &rt.CreatedAt, &rt.Revoked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return rt, nil
}

// Revoke flips revoked with a single conditional update
func (r *PostgresRefreshTokenRepository) Revoke(ctx context.Context, token string) (bool, error) {
	tag, err := r.db.Exec(ctx, `UPDATE refresh_tokens SET revoked = TRUE WHERE token = $1 AND revoked = FALSE`, token)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// IsActive reports whether the token exists and is not revoked
func (r *PostgresRefreshTokenRepository) IsActive(ctx context.Context, token string) (bool, error) {
	var active bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM refresh_tokens WHERE token = $1 AND revoked = FALSE)`, token,
	).Scan(&active)
	return active, err
}

// HasActiveForUser reports whether the user holds any unrevoked refresh token
func (r *PostgresRefreshTokenRepository) HasActiveForUser(ctx context.Context, userID string) (bool, error) {
	var active bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM refresh_tokens WHERE user_id = $1 AND revoked = FALSE)`, userID,
	).Scan(&active)
	return active, err
}

// RevokeAllForUser revokes every active token of the user
func (r *PostgresRefreshTokenRepository) RevokeAllForUser(ctx context.Context, userID string) (int64, error) {
	tag, err := r.db.Exec(ctx, `UPDATE refresh_tokens SET revoked = TRUE WHERE user_id = $1 AND revoked = FALSE`, userID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
