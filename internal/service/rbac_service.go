package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/prohmpiriya/rbac-auth-service/internal/domain"
	"github.com/prohmpiriya/rbac-auth-service/internal/dto"
	"github.com/prohmpiriya/rbac-auth-service/internal/repository"
	"github.com/prohmpiriya/rbac-auth-service/pkg/logger"
	"go.uber.org/zap"
)

// RBACService defines role, permission and assignment management
type RBACService interface {
	CreateRole(ctx context.Context, req *dto.CreateRoleRequest) (*domain.Role, error)
	GetRole(ctx context.Context, id string) (*domain.Role, error)
	ListRoles(ctx context.Context) ([]*domain.Role, error)
	UpdateRole(ctx context.Context, id string, patch *dto.UpdateRoleRequest) (*domain.Role, error)
	DeleteRole(ctx context.Context, id string) error

	CreatePermission(ctx context.Context, req *dto.CreatePermissionRequest) (*domain.Permission, error)
	GetPermission(ctx context.Context, id string) (*domain.Permission, error)
	ListPermissions(ctx context.Context) ([]*domain.Permission, error)
	UpdatePermission(ctx context.Context, id string, patch *dto.UpdatePermissionRequest) (*domain.Permission, error)
	DeletePermission(ctx context.Context, id string) error

	AssignRole(ctx context.Context, userID, roleID string) error
	UnassignRole(ctx context.Context, userID, roleID string) error
	GrantPermission(ctx context.Context, roleID, permissionID string) error
	RevokePermission(ctx context.Context, roleID, permissionID string) error

	// EnsureAdmin grants the admin role to an existing user, if both exist
	EnsureAdmin(ctx context.Context, email string) error
}

// rbacService implements RBACService
type rbacService struct {
	userRepo repository.UserRepository
	roleRepo repository.RoleRepository
	permRepo repository.PermissionRepository
	events   EventPublisher
}

// NewRBACService creates a new RBACService
func NewRBACService(
	userRepo repository.UserRepository,
	roleRepo repository.RoleRepository,
	permRepo repository.PermissionRepository,
	events EventPublisher,
) RBACService {
	if events == nil {
		events = NewNoOpEventPublisher()
	}
	return &rbacService{
		userRepo: userRepo,
		roleRepo: roleRepo,
		permRepo: permRepo,
		events:   events,
	}
}

// CreateRole creates a role with a unique name
func (s *rbacService) CreateRole(ctx context.Context, req *dto.CreateRoleRequest) (*domain.Role, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: role name is required", ErrInvalidInput)
	}

	existing, err := s.roleRepo.GetByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to check role name: %w", err)
	}
	if existing != nil {
		return nil, ErrRoleExists
	}

	role := &domain.Role{
		ID:          uuid.New().String(),
		Name:        name,
		Description: req.Description,
	}
	if err := s.roleRepo.Create(ctx, role); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrRoleExists
		}
		return nil, fmt.Errorf("failed to create role: %w", err)
	}
	role.Permissions = []*domain.Permission{}
	return role, nil
}

// GetRole returns a role with its permissions
func (s *rbacService) GetRole(ctx context.Context, id string) (*domain.Role, error) {
	role, err := s.roleRepo.GetByIDWithPermissions(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load role: %w", err)
	}
	if role == nil {
		return nil, ErrRoleNotFound
	}
	return role, nil
}

// ListRoles returns every role with its permissions
func (s *rbacService) ListRoles(ctx context.Context) ([]*domain.Role, error) {
	roles, err := s.roleRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	return roles, nil
}

// UpdateRole applies a partial update; renaming onto an existing name fails
func (s *rbacService) UpdateRole(ctx context.Context, id string, patch *dto.UpdateRoleRequest) (*domain.Role, error) {
	role, err := s.roleRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load role: %w", err)
	}
	if role == nil {
		return nil, ErrRoleNotFound
	}

	renamed, err := applyRolePatch(role, patch)
	if err != nil {
		return nil, err
	}
	if renamed {
		other, err := s.roleRepo.GetByName(ctx, role.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to check role name: %w", err)
		}
		if other != nil && other.ID != role.ID {
			return nil, ErrRoleExists
		}
	}

	if err := s.roleRepo.Update(ctx, role); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrRoleExists
		}
		return nil, fmt.Errorf("failed to update role: %w", err)
	}
	return s.GetRole(ctx, id)
}

// applyRolePatch copies present fields and reports whether the name changed
func applyRolePatch(role *domain.Role, patch *dto.UpdateRoleRequest) (bool, error) {
	if patch == nil {
		return false, nil
	}
	renamed := false
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return false, fmt.Errorf("%w: role name must not be blank", ErrInvalidInput)
		}
		renamed = name != role.Name
		role.Name = name
	}
	if patch.Description != nil {
		role.Description = patch.Description
	}
	return renamed, nil
}

// DeleteRole removes the role and every association to it
func (s *rbacService) DeleteRole(ctx context.Context, id string) error {
	deleted, err := s.roleRepo.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete role: %w", err)
	}
	if !deleted {
		return ErrRoleNotFound
	}
	publishBestEffort(ctx, s.events, newAuthEvent(domain.EventRoleDeleted, "", "", map[string]string{"role_id": id}))
	return nil
}

// CreatePermission creates a permission with a unique (resource, action) pair
func (s *rbacService) CreatePermission(ctx context.Context, req *dto.CreatePermissionRequest) (*domain.Permission, error) {
	resource := strings.TrimSpace(req.Resource)
	action := strings.TrimSpace(req.Action)
	if resource == "" || action == "" {
		return nil, fmt.Errorf("%w: resource and action are required", ErrInvalidInput)
	}

	existing, err := s.permRepo.GetByResourceAction(ctx, resource, action)
	if err != nil {
		return nil, fmt.Errorf("failed to check permission: %w", err)
	}
	if existing != nil {
		return nil, ErrPermissionExists
	}

	perm := &domain.Permission{
		ID:          uuid.New().String(),
		Resource:    resource,
		Action:      action,
		Description: req.Description,
	}
	if err := s.permRepo.Create(ctx, perm); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrPermissionExists
		}
		return nil, fmt.Errorf("failed to create permission: %w", err)
	}
	return perm, nil
}

// GetPermission returns a permission by id
func (s *rbacService) GetPermission(ctx context.Context, id string) (*domain.Permission, error) {
	perm, err := s.permRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load permission: %w", err)
	}
	if perm == nil {
		return nil, ErrPermissionNotFound
	}
	return perm, nil
}

// ListPermissions returns every permission
func (s *rbacService) ListPermissions(ctx context.Context) ([]*domain.Permission, error) {
	perms, err := s.permRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list permissions: %w", err)
	}
	return perms, nil
}

// UpdatePermission applies a partial update; the resulting pair must stay unique
func (s *rbacService) UpdatePermission(ctx context.Context, id string, patch *dto.UpdatePermissionRequest) (*domain.Permission, error) {
	perm, err := s.GetPermission(ctx, id)
	if err != nil {
		return nil, err
	}

	rekeyed, err := applyPermissionPatch(perm, patch)
	if err != nil {
		return nil, err
	}
	if rekeyed {
		other, err := s.permRepo.GetByResourceAction(ctx, perm.Resource, perm.Action)
		if err != nil {
			return nil, fmt.Errorf("failed to check permission: %w", err)
		}
		if other != nil && other.ID != perm.ID {
			return nil, ErrPermissionExists
		}
	}

	if err := s.permRepo.Update(ctx, perm); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrPermissionExists
		}
		return nil, fmt.Errorf("failed to update permission: %w", err)
	}
	return perm, nil
}

// applyPermissionPatch copies present fields and reports whether the key changed
func applyPermissionPatch(perm *domain.Permission, patch *dto.UpdatePermissionRequest) (bool, error) {
	if patch == nil {
		return false, nil
	}
	before := perm.Key()
	if patch.Resource != nil {
		resource := strings.TrimSpace(*patch.Resource)
		if resource == "" {
			return false, fmt.Errorf("%w: resource must not be blank", ErrInvalidInput)
		}
		perm.Resource = resource
	}
	if patch.Action != nil {
		action := strings.TrimSpace(*patch.Action)
		if action == "" {
			return false, fmt.Errorf("%w: action must not be blank", ErrInvalidInput)
		}
		perm.Action = action
	}
	if patch.Description != nil {
		perm.Description = patch.Description
	}
	return perm.Key() != before, nil
}

// DeletePermission removes the permission and every grant of it
func (s *rbacService) DeletePermission(ctx context.Context, id string) error {
	deleted, err := s.permRepo.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete permission: %w", err)
	}
	if !deleted {
		return ErrPermissionNotFound
	}
	publishBestEffort(ctx, s.events, newAuthEvent(domain.EventPermissionDeleted, "", "", map[string]string{"permission_id": id}))
	return nil
}

// AssignRole assigns a role to a user; assigning twice is a no-op
func (s *rbacService) AssignRole(ctx context.Context, userID, roleID string) error {
	if err := s.requireUserAndRole(ctx, userID, roleID); err != nil {
		return err
	}
	created, err := s.roleRepo.AssignToUser(ctx, userID, roleID)
	if err != nil {
		return s.mapAssociationError(err, "assign role")
	}
	if created {
		publishBestEffort(ctx, s.events, newAuthEvent(domain.EventRoleAssigned, userID, "", map[string]string{"role_id": roleID}))
	}
	return nil
}

// UnassignRole removes a role from a user; a missing assignment is a no-op
func (s *rbacService) UnassignRole(ctx context.Context, userID, roleID string) error {
	if err := s.requireUserAndRole(ctx, userID, roleID); err != nil {
		return err
	}
	removed, err := s.roleRepo.UnassignFromUser(ctx, userID, roleID)
	if err != nil {
		return fmt.Errorf("failed to unassign role: %w", err)
	}
	if removed {
		publishBestEffort(ctx, s.events, newAuthEvent(domain.EventRoleUnassigned, userID, "", map[string]string{"role_id": roleID}))
	}
	return nil
}

// GrantPermission grants a permission to a role; granting twice is a no-op
func (s *rbacService) GrantPermission(ctx context.Context, roleID, permissionID string) error {
	if err := s.requireRoleAndPermission(ctx, roleID, permissionID); err != nil {
		return err
	}
	created, err := s.roleRepo.GrantPermission(ctx, roleID, permissionID)
	if err != nil {
		return s.mapAssociationError(err, "grant permission")
	}
	if created {
		publishBestEffort(ctx, s.events, newAuthEvent(domain.EventPermissionGranted, "", "",
			map[string]string{"role_id": roleID, "permission_id": permissionID}))
	}
	return nil
}

// RevokePermission removes a permission from a role; a missing grant is a no-op
func (s *rbacService) RevokePermission(ctx context.Context, roleID, permissionID string) error {
	if err := s.requireRoleAndPermission(ctx, roleID, permissionID); err != nil {
		return err
	}
	removed, err := s.roleRepo.RevokePermission(ctx, roleID, permissionID)
	if err != nil {
		return fmt.Errorf("failed to revoke permission: %w", err)
	}
	if removed {
		publishBestEffort(ctx, s.events, newAuthEvent(domain.EventPermissionRevoked, "", "",
			map[string]string{"role_id": roleID, "permission_id": permissionID}))
	}
	return nil
}

// EnsureAdmin assigns the admin role to the user with email
func (s *rbacService) EnsureAdmin(ctx context.Context, email string) error {
	user, err := s.userRepo.GetByEmail(ctx, dto.NormalizeEmail(email))
	if err != nil {
		return fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil {
		logger.Get().Warn("Bootstrap admin user does not exist yet", zap.String("email", email))
		return nil
	}
	role, err := s.roleRepo.GetByName(ctx, domain.RoleAdmin)
	if err != nil {
		return fmt.Errorf("failed to load admin role: %w", err)
	}
	if role == nil {
		return ErrRoleNotFound
	}
	created, err := s.roleRepo.AssignToUser(ctx, user.ID, role.ID)
	if err != nil {
		return fmt.Errorf("failed to assign admin role: %w", err)
	}
	if created {
		logger.Get().Info("Granted admin role", zap.String("user_id", user.ID))
	}
	return nil
}

func (s *rbacService) requireUserAndRole(ctx context.Context, userID, roleID string) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil {
		return ErrUserNotFound
	}
	role, err := s.roleRepo.GetByID(ctx, roleID)
	if err != nil {
		return fmt.Errorf("failed to load role: %w", err)
	}
	if role == nil {
		return ErrRoleNotFound
	}
	return nil
}

func (s *rbacService) requireRoleAndPermission(ctx context.Context, roleID, permissionID string) error {
	role, err := s.roleRepo.GetByID(ctx, roleID)
	if err != nil {
		return fmt.Errorf("failed to load role: %w", err)
	}
	if role == nil {
		return ErrRoleNotFound
	}
	_, err = s.GetPermission(ctx, permissionID)
	return err
}

// mapAssociationError covers a referenced row deleted between check and insert
func (s *rbacService) mapAssociationError(err error, op string) error {
	if errors.Is(err, repository.ErrReferenceNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}
