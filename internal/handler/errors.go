package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prohmpiriya/rbac-auth-service/internal/service"
	"github.com/prohmpiriya/rbac-auth-service/pkg/response"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type errorMapping struct {
	target  error
	status  int
	code    string
	message string
}

// Order matters: specific not-found errors precede the generic ErrNotFound.
var errorTable = []errorMapping{
	{service.ErrInvalidCredentials, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Incorrect email or password"},
	{service.ErrUnauthorized, http.StatusUnauthorized, "UNAUTHORIZED", "Could not validate credentials"},
	{service.ErrInactiveUser, http.StatusBadRequest, "INACTIVE_USER", "Inactive user"},
	{service.ErrForbidden, http.StatusForbidden, "FORBIDDEN", "Insufficient permissions"},
	{service.ErrDuplicateEmail, http.StatusBadRequest, "EMAIL_EXISTS", "Email already registered"},
	{service.ErrRoleExists, http.StatusBadRequest, "ROLE_EXISTS", "Role already exists"},
	{service.ErrPermissionExists, http.StatusBadRequest, "PERMISSION_EXISTS", "Permission already exists"},
	{service.ErrUserNotFound, http.StatusNotFound, "NOT_FOUND", "User not found"},
	{service.ErrRoleNotFound, http.StatusNotFound, "NOT_FOUND", "Role not found"},
	{service.ErrPermissionNotFound, http.StatusNotFound, "NOT_FOUND", "Permission not found"},
	{service.ErrNotFound, http.StatusNotFound, "NOT_FOUND", "User or role not found"},
}

// writeError maps a service error onto the response envelope
func writeError(c *gin.Context, span trace.Span, err error) {
	span.RecordError(err)

	if errors.Is(err, service.ErrInvalidInput) {
		span.SetStatus(codes.Error, "invalid input")
		response.BadRequest(c, err.Error())
		return
	}

	for _, m := range errorTable {
		if errors.Is(err, m.target) {
			span.SetStatus(codes.Error, m.code)
			if m.status == http.StatusUnauthorized {
				c.Header("WWW-Authenticate", "Bearer")
			}
			response.Error(c, m.status, m.code, m.message)
			return
		}
	}

	span.SetStatus(codes.Error, err.Error())
	response.InternalError(c, err)
}

// badRequest rejects a request that failed binding or validation
func badRequest(c *gin.Context, span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, "invalid request")
	response.BadRequest(c, err.Error())
}

// pathID returns the :id parameter when it is a well-formed UUID
func pathID(c *gin.Context, span trace.Span) (string, bool) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		span.SetStatus(codes.Error, "invalid id")
		response.BadRequest(c, "Invalid id")
		return "", false
	}
	return id, true
}
