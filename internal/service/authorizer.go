package service

import "github.com/prohmpiriya/rbac-auth-service/internal/domain"

var (
	// AdminRoles grants access to administrators only
	AdminRoles = []string{domain.RoleAdmin}
	// UserRoles grants access to any regular or admin user
	UserRoles = []string{domain.RoleUser, domain.RoleAdmin}
)

// HasAnyRole is true iff the identity holds at least one of roles
func HasAnyRole(identity *domain.Identity, roles ...string) bool {
	if identity == nil {
		return false
	}
	held := identity.RoleNames()
	for _, r := range roles {
		if _, ok := held[r]; ok {
			return true
		}
	}
	return false
}

// HasAnyPermission is true iff any of the identity's roles grants at least
// one of the "resource:action" keys
func HasAnyPermission(identity *domain.Identity, permissions ...string) bool {
	if identity == nil {
		return false
	}
	held := identity.PermissionKeys()
	for _, p := range permissions {
		if _, ok := held[p]; ok {
			return true
		}
	}
	return false
}

// RequireAnyRole returns ErrForbidden unless HasAnyRole holds
func RequireAnyRole(identity *domain.Identity, roles ...string) error {
	if !HasAnyRole(identity, roles...) {
		return ErrForbidden
	}
	return nil
}

// RequireAnyPermission returns ErrForbidden unless HasAnyPermission holds
func RequireAnyPermission(identity *domain.Identity, permissions ...string) error {
	if !HasAnyPermission(identity, permissions...) {
		return ErrForbidden
	}
	return nil
}
