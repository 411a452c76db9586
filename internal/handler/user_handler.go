package handler

import (
	"sort"

	"github.com/gin-gonic/gin"
	"github.com/prohmpiriya/rbac-auth-service/internal/dto"
	"github.com/prohmpiriya/rbac-auth-service/internal/middleware"
	"github.com/prohmpiriya/rbac-auth-service/internal/service"
	"github.com/prohmpiriya/rbac-auth-service/pkg/response"
	"github.com/prohmpiriya/rbac-auth-service/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// UserHandler handles user management HTTP requests
type UserHandler struct {
	users service.UserService
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(users service.UserService) *UserHandler {
	return &UserHandler{users: users}
}

// Me returns the caller with effective roles and permissions
// GET /api/v1/users/me
func (h *UserHandler) Me(c *gin.Context) {
	identity, ok := middleware.CurrentIdentity(c)
	if !ok {
		response.Unauthorized(c, "Not authenticated")
		return
	}

	response.Success(c, dto.MeResponse{
		UserResponse: *dto.NewUserResponse(identity.User),
		Roles:        sortedKeys(identity.RoleNames()),
		Permissions:  sortedKeys(identity.PermissionKeys()),
	})
}

// List returns a page of users
// GET /api/v1/users
func (h *UserHandler) List(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.user.list")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	var q dto.ListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, span, err)
		return
	}
	q.Normalize()

	users, err := h.users.List(ctx, q.Skip, q.Limit)
	if err != nil {
		writeError(c, span, err)
		return
	}

	span.SetAttributes(attribute.Int("count", len(users)))
	span.SetStatus(codes.Ok, "")
	response.SuccessWithMeta(c, dto.NewUserResponses(users), response.Meta{
		Skip:  q.Skip,
		Limit: q.Limit,
		Count: len(users),
	})
}

// Create creates a user on behalf of an administrator
// POST /api/v1/users
func (h *UserHandler) Create(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.user.create")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	var req dto.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, span, err)
		return
	}
	req.Normalize()
	if valid, msg := req.Validate(); !valid {
		span.SetStatus(codes.Error, "validation failed")
		response.BadRequest(c, msg)
		return
	}

	user, err := h.users.Create(ctx, &req)
	if err != nil {
		writeError(c, span, err)
		return
	}

	span.SetAttributes(attribute.String("user_id", user.ID))
	span.SetStatus(codes.Ok, "")
	response.Created(c, dto.NewUserResponse(user))
}

// Get returns a user; callers may read themselves, admins may read anyone
// GET /api/v1/users/:id
func (h *UserHandler) Get(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.user.get")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	id, ok := pathID(c, span)
	if !ok {
		return
	}
	identity, ok := middleware.CurrentIdentity(c)
	if !ok {
		response.Unauthorized(c, "Not authenticated")
		return
	}
	if identity.User.ID != id && !service.HasAnyRole(identity, service.AdminRoles...) {
		writeError(c, span, service.ErrForbidden)
		return
	}

	user, err := h.users.Get(ctx, id)
	if err != nil {
		writeError(c, span, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	response.Success(c, dto.NewUserResponse(user))
}

// Update applies a partial profile update
// PATCH /api/v1/users/:id
func (h *UserHandler) Update(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.user.update")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	id, ok := pathID(c, span)
	if !ok {
		return
	}
	var req dto.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, span, err)
		return
	}

	user, err := h.users.Update(ctx, id, &req)
	if err != nil {
		writeError(c, span, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	response.Success(c, dto.NewUserResponse(user))
}

// Delete deactivates a user
// DELETE /api/v1/users/:id
func (h *UserHandler) Delete(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.user.delete")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	id, ok := pathID(c, span)
	if !ok {
		return
	}

	if err := h.users.Deactivate(ctx, id); err != nil {
		writeError(c, span, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	response.NoContent(c)
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
