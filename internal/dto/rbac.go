package dto

import (
	"time"

	"github.com/prohmpiriya/rbac-auth-service/internal/domain"
)

// CreateRoleRequest represents role creation
type CreateRoleRequest struct {
	Name        string  `json:"name" binding:"required,min=1,max=50"`
	Description *string `json:"description"`
}

// UpdateRoleRequest is a partial update; nil fields are left untouched
type UpdateRoleRequest struct {
	Name        *string `json:"name" binding:"omitempty,min=1,max=50"`
	Description *string `json:"description"`
}

// CreatePermissionRequest represents permission creation
type CreatePermissionRequest struct {
	Resource    string  `json:"resource" binding:"required,min=1,max=50"`
	Action      string  `json:"action" binding:"required,min=1,max=50"`
	Description *string `json:"description"`
}

// UpdatePermissionRequest is a partial update; nil fields are left untouched
type UpdatePermissionRequest struct {
	Resource    *string `json:"resource" binding:"omitempty,min=1,max=50"`
	Action      *string `json:"action" binding:"omitempty,min=1,max=50"`
	Description *string `json:"description"`
}

// UserRoleRequest assigns or unassigns a role
type UserRoleRequest struct {
	UserID string `json:"user_id" binding:"required,uuid"`
	RoleID string `json:"role_id" binding:"required,uuid"`
}

// RolePermissionRequest grants or revokes a permission on a role
type RolePermissionRequest struct {
	RoleID       string `json:"role_id" binding:"required,uuid"`
	PermissionID string `json:"permission_id" binding:"required,uuid"`
}

// PermissionResponse represents a permission in responses
type PermissionResponse struct {
	ID          string  `json:"id"`
	Resource    string  `json:"resource"`
	Action      string  `json:"action"`
	Key         string  `json:"key"`
	Description *string `json:"description,omitempty"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

// RoleResponse represents a role in responses
type RoleResponse struct {
	ID          string                `json:"id"`
	Name        string                `json:"name"`
	Description *string               `json:"description,omitempty"`
	Permissions []*PermissionResponse `json:"permissions,omitempty"`
	CreatedAt   string                `json:"created_at"`
	UpdatedAt   string                `json:"updated_at"`
}

// NewPermissionResponse maps a domain permission
func NewPermissionResponse(p *domain.Permission) *PermissionResponse {
	return &PermissionResponse{
		ID:          p.ID,
		Resource:    p.Resource,
		Action:      p.Action,
		Key:         p.Key(),
		Description: p.Description,
		CreatedAt:   p.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   p.UpdatedAt.Format(time.RFC3339),
	}
}

// NewPermissionResponses maps a slice of permissions
func NewPermissionResponses(perms []*domain.Permission) []*PermissionResponse {
	out := make([]*PermissionResponse, 0, len(perms))
	for _, p := range perms {
		out = append(out, NewPermissionResponse(p))
	}
	return out
}

// NewRoleResponse maps a domain role with whatever permissions are loaded
func NewRoleResponse(r *domain.Role) *RoleResponse {
	resp := &RoleResponse{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		CreatedAt:   r.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   r.UpdatedAt.Format(time.RFC3339),
	}
	if len(r.Permissions) > 0 {
		resp.Permissions = NewPermissionResponses(r.Permissions)
	}
	return resp
}

// NewRoleResponses maps a slice of roles
func NewRoleResponses(roles []*domain.Role) []*RoleResponse {
	out := make([]*RoleResponse, 0, len(roles))
	for _, r := range roles {
		out = append(out, NewRoleResponse(r))
	}
	return out
}
