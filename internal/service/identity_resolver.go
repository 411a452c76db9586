package service

import (
	"context"
	"fmt"

	"github.com/prohmpiriya/rbac-auth-service/internal/domain"
	"github.com/prohmpiriya/rbac-auth-service/internal/repository"
)

// IdentityResolver turns a bearer access token into a live identity
type IdentityResolver interface {
	Resolve(ctx context.Context, bearer string) (*domain.Identity, error)
}

// identityResolver implements IdentityResolver
type identityResolver struct {
	codec     TokenCodec
	userRepo  repository.UserRepository
	roleRepo  repository.RoleRepository
	tokenRepo repository.RefreshTokenRepository
}

// NewIdentityResolver creates a new IdentityResolver
func NewIdentityResolver(
	codec TokenCodec,
	userRepo repository.UserRepository,
	roleRepo repository.RoleRepository,
	tokenRepo repository.RefreshTokenRepository,
) IdentityResolver {
	return &identityResolver{
		codec:     codec,
		userRepo:  userRepo,
		roleRepo:  roleRepo,
		tokenRepo: tokenRepo,
	}
}

// Resolve decodes the token, loads the user and checks the user still holds
// at least one unrevoked refresh token. Logging out of every session
// therefore also invalidates outstanding access tokens.
func (r *identityResolver) Resolve(ctx context.Context, bearer string) (*domain.Identity, error) {
	claims, err := r.codec.Decode(bearer)
	if err != nil || claims.Kind != domain.TokenKindAccess {
		return nil, ErrUnauthorized
	}

	user, err := r.userRepo.GetByEmail(ctx, claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil {
		return nil, ErrUnauthorized
	}
	if !user.IsActive {
		return nil, ErrInactiveUser
	}

	active, err := r.tokenRepo.HasActiveForUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check sessions: %w", err)
	}
	if !active {
		return nil, ErrTokenRevoked
	}

	roles, err := r.roleRepo.ListForUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load roles: %w", err)
	}

	return &domain.Identity{User: user, Roles: roles}, nil
}
