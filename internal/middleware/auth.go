package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prohmpiriya/rbac-auth-service/internal/domain"
	"github.com/prohmpiriya/rbac-auth-service/internal/service"
	"github.com/prohmpiriya/rbac-auth-service/pkg/metrics"
	"github.com/prohmpiriya/rbac-auth-service/pkg/response"
	"github.com/prohmpiriya/rbac-auth-service/pkg/telemetry"
)

const (
	// IdentityKey is the gin context key holding the resolved *domain.Identity
	IdentityKey = "identity"
	// UserIDKey is the gin context key holding the caller's user id
	UserIDKey = "user_id"

	bearerScheme = "bearer"
)

// Authenticate resolves the bearer token into an identity or aborts the request
func Authenticate(resolver service.IdentityResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.Header("WWW-Authenticate", "Bearer")
			response.Abort(c, http.StatusUnauthorized, "UNAUTHORIZED", "Not authenticated")
			return
		}

		identity, err := resolver.Resolve(c.Request.Context(), token)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrInactiveUser):
				response.Abort(c, http.StatusBadRequest, "INACTIVE_USER", "Inactive user")
			case errors.Is(err, service.ErrUnauthorized):
				c.Header("WWW-Authenticate", "Bearer")
				response.Abort(c, http.StatusUnauthorized, "UNAUTHORIZED", "Could not validate credentials")
			default:
				_ = c.Error(err)
				response.Abort(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal Server Error")
			}
			return
		}

		c.Set(IdentityKey, identity)
		c.Set(UserIDKey, identity.User.ID)
		c.Set(telemetry.EndUserKey, identity.User.Email)
		c.Next()
	}
}

// RequireRoles passes callers holding any of roles; must run after Authenticate
func RequireRoles(m *metrics.Metrics, roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := CurrentIdentity(c)
		if !ok {
			response.Abort(c, http.StatusUnauthorized, "UNAUTHORIZED", "Not authenticated")
			return
		}
		if !service.HasAnyRole(identity, roles...) {
			m.RecordDenial("role")
			response.Abort(c, http.StatusForbidden, "FORBIDDEN", "Insufficient permissions")
			return
		}
		c.Next()
	}
}

// RequirePermissions passes callers holding any of the resource:action keys
func RequirePermissions(m *metrics.Metrics, permissions ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := CurrentIdentity(c)
		if !ok {
			response.Abort(c, http.StatusUnauthorized, "UNAUTHORIZED", "Not authenticated")
			return
		}
		if !service.HasAnyPermission(identity, permissions...) {
			m.RecordDenial("permission")
			response.Abort(c, http.StatusForbidden, "FORBIDDEN", "Insufficient permissions")
			return
		}
		c.Next()
	}
}

// RequireRolesOrPermissions passes callers holding any of roles or any of permissions
func RequireRolesOrPermissions(m *metrics.Metrics, roles, permissions []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := CurrentIdentity(c)
		if !ok {
			response.Abort(c, http.StatusUnauthorized, "UNAUTHORIZED", "Not authenticated")
			return
		}
		if !service.HasAnyRole(identity, roles...) && !service.HasAnyPermission(identity, permissions...) {
			m.RecordDenial("role_or_permission")
			response.Abort(c, http.StatusForbidden, "FORBIDDEN", "Insufficient permissions")
			return
		}
		c.Next()
	}
}

// CurrentIdentity returns the identity stored by Authenticate
func CurrentIdentity(c *gin.Context) (*domain.Identity, bool) {
	v, exists := c.Get(IdentityKey)
	if !exists {
		return nil, false
	}
	identity, ok := v.(*domain.Identity)
	return identity, ok && identity != nil
}

// GetUserID returns the authenticated user id, if any
func GetUserID(c *gin.Context) (string, bool) {
	id := c.GetString(UserIDKey)
	return id, id != ""
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, bearerScheme) {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
