package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/prohmpiriya/rbac-auth-service/internal/dto"
	"github.com/prohmpiriya/rbac-auth-service/internal/service"
	"github.com/prohmpiriya/rbac-auth-service/pkg/response"
	"github.com/prohmpiriya/rbac-auth-service/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// AdminHandler handles role, permission and assignment management
type AdminHandler struct {
	rbac service.RBACService
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(rbac service.RBACService) *AdminHandler {
	return &AdminHandler{rbac: rbac}
}

// CreateRole handles role creation
// POST /api/v1/admin/roles
func (h *AdminHandler) CreateRole(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.admin.create_role")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	var req dto.CreateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, span, err)
		return
	}
	span.SetAttributes(attribute.String("role_name", req.Name))

	role, err := h.rbac.CreateRole(ctx, &req)
	if err != nil {
		writeError(c, span, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	response.Created(c, dto.NewRoleResponse(role))
}

// ListRoles returns every role with its permissions
// GET /api/v1/roles, GET /api/v1/admin/roles
func (h *AdminHandler) ListRoles(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.admin.list_roles")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	roles, err := h.rbac.ListRoles(ctx)
	if err != nil {
		writeError(c, span, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	response.Success(c, dto.NewRoleResponses(roles))
}

// GetRole returns one role with its permissions
// GET /api/v1/roles/:id, GET /api/v1/admin/roles/:id
func (h *AdminHandler) GetRole(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.admin.get_role")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	id, ok := pathID(c, span)
	if !ok {
		return
	}

	role, err := h.rbac.GetRole(ctx, id)
	if err != nil {
		writeError(c, span, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	response.Success(c, dto.NewRoleResponse(role))
}

// UpdateRole applies a partial role update
// PATCH /api/v1/admin/roles/:id
func (h *AdminHandler) UpdateRole(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.admin.update_role")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	id, ok := pathID(c, span)
	if !ok {
		return
	}
	var req dto.UpdateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, span, err)
		return
	}

	role, err := h.rbac.UpdateRole(ctx, id, &req)
	if err != nil {
		writeError(c, span, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	response.Success(c, dto.NewRoleResponse(role))
}

// DeleteRole deletes a role and its associations
// DELETE /api/v1/admin/roles/:id
func (h *AdminHandler) DeleteRole(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.admin.delete_role")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	id, ok := pathID(c, span)
	if !ok {
		return
	}

	if err := h.rbac.DeleteRole(ctx, id); err != nil {
		writeError(c, span, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	response.NoContent(c)
}

// CreatePermission handles permission creation
// POST /api/v1/admin/permissions
func (h *AdminHandler) CreatePermission(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.admin.create_permission")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	var req dto.CreatePermissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, span, err)
		return
	}
	span.SetAttributes(attribute.String("permission", req.Resource+":"+req.Action))

	perm, err := h.rbac.CreatePermission(ctx, &req)
	if err != nil {
		writeError(c, span, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	response.Created(c, dto.NewPermissionResponse(perm))
}

// ListPermissions returns every permission
// GET /api/v1/admin/permissions
func (h *AdminHandler) ListPermissions(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.admin.list_permissions")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	perms, err := h.rbac.ListPermissions(ctx)
	if err != nil {
		writeError(c, span, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	response.Success(c, dto.NewPermissionResponses(perms))
}

// GetPermission returns one permission
// GET /api/v1/admin/permissions/:id
func (h *AdminHandler) GetPermission(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.admin.get_permission")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	id, ok := pathID(c, span)
	if !ok {
		return
	}

	perm, err := h.rbac.GetPermission(ctx, id)
	if err != nil {
		writeError(c, span, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	response.Success(c, dto.NewPermissionResponse(perm))
}

// UpdatePermission applies a partial permission update
// PATCH /api/v1/admin/permissions/:id
func (h *AdminHandler) UpdatePermission(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.admin.update_permission")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	id, ok := pathID(c, span)
	if !ok {
		return
	}
	var req dto.UpdatePermissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, span, err)
		return
	}

	perm, err := h.rbac.UpdatePermission(ctx, id, &req)
	if err != nil {
		writeError(c, span, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	response.Success(c, dto.NewPermissionResponse(perm))
}

// DeletePermission deletes a permission and its grants
// DELETE /api/v1/admin/permissions/:id
func (h *AdminHandler) DeletePermission(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.admin.delete_permission")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	id, ok := pathID(c, span)
	if !ok {
		return
	}

	if err := h.rbac.DeletePermission(ctx, id); err != nil {
		writeError(c, span, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	response.NoContent(c)
}

// AssignRole assigns a role to a user
// POST /api/v1/admin/user-roles
func (h *AdminHandler) AssignRole(c *gin.Context) {
	h.userRole(c, "handler.admin.assign_role", h.rbac.AssignRole, "Role assigned")
}

// UnassignRole removes a role from a user
// DELETE /api/v1/admin/user-roles
func (h *AdminHandler) UnassignRole(c *gin.Context) {
	h.userRole(c, "handler.admin.unassign_role", h.rbac.UnassignRole, "Role unassigned")
}

// GrantPermission grants a permission to a role
// POST /api/v1/admin/role-permissions
func (h *AdminHandler) GrantPermission(c *gin.Context) {
	h.rolePermission(c, "handler.admin.grant_permission", h.rbac.GrantPermission, "Permission granted")
}

// RevokePermission removes a permission from a role
// DELETE /api/v1/admin/role-permissions
func (h *AdminHandler) RevokePermission(c *gin.Context) {
	h.rolePermission(c, "handler.admin.revoke_permission", h.rbac.RevokePermission, "Permission revoked")
}

type associationFunc func(ctx context.Context, leftID, rightID string) error

func (h *AdminHandler) userRole(c *gin.Context, spanName string, op associationFunc, message string) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), spanName)
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	var req dto.UserRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, span, err)
		return
	}
	span.SetAttributes(attribute.String("user_id", req.UserID), attribute.String("role_id", req.RoleID))

	if err := op(ctx, req.UserID, req.RoleID); err != nil {
		writeError(c, span, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	response.Success(c, dto.MessageResponse{Message: message})
}

func (h *AdminHandler) rolePermission(c *gin.Context, spanName string, op associationFunc, message string) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), spanName)
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	var req dto.RolePermissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, span, err)
		return
	}
	span.SetAttributes(attribute.String("role_id", req.RoleID), attribute.String("permission_id", req.PermissionID))

	if err := op(ctx, req.RoleID, req.PermissionID); err != nil {
		writeError(c, span, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	response.Success(c, dto.MessageResponse{Message: message})
}
