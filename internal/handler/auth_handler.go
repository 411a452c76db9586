package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/prohmpiriya/rbac-auth-service/internal/dto"
	"github.com/prohmpiriya/rbac-auth-service/internal/middleware"
	"github.com/prohmpiriya/rbac-auth-service/internal/service"
	"github.com/prohmpiriya/rbac-auth-service/pkg/response"
	"github.com/prohmpiriya/rbac-auth-service/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// AuthHandler handles authentication HTTP requests
type AuthHandler struct {
	sessions service.SessionService
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(sessions service.SessionService) *AuthHandler {
	return &AuthHandler{sessions: sessions}
}

// Register handles user registration
// POST /api/v1/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.auth.register")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	var req dto.RegisterRequest
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

	user, err := h.sessions.Register(ctx, &req)
	if err != nil {
		writeError(c, span, err)
		return
	}

	span.SetAttributes(attribute.String("user_id", user.ID))
	span.SetStatus(codes.Ok, "")
	response.Created(c, user)
}

// Login accepts JSON or an OAuth2 password form
// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.auth.login")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	var req dto.LoginRequest
	var err error
	if c.ContentType() == binding.MIMEPOSTForm {
		err = c.ShouldBindWith(&req, binding.Form)
	} else {
		err = c.ShouldBindJSON(&req)
	}
	if err != nil {
		badRequest(c, span, err)
		return
	}
	email := req.Identifier()
	if email == "" {
		badRequest(c, span, errors.New("email or username is required"))
		return
	}

	tokens, err := h.sessions.Login(ctx, email, req.Password)
	if err != nil {
		writeError(c, span, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	response.Success(c, tokens)
}

// Refresh mints a new access token
// POST /api/v1/auth/token/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.auth.refresh")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	var req dto.RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, span, err)
		return
	}

	tokens, err := h.sessions.Refresh(ctx, req.RefreshToken)
	if err != nil {
		writeError(c, span, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	response.Success(c, tokens)
}

// Logout revokes one refresh token
// POST /api/v1/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.auth.logout")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	var req dto.LogoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, span, err)
		return
	}

	if err := h.sessions.Logout(ctx, req.RefreshToken); err != nil {
		writeError(c, span, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	response.Success(c, dto.MessageResponse{Message: "Successfully logged out"})
}

// LogoutAll revokes every refresh token of the caller
// POST /api/v1/auth/logout-all
func (h *AuthHandler) LogoutAll(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.auth.logout_all")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	identity, ok := middleware.CurrentIdentity(c)
	if !ok {
		response.Unauthorized(c, "Not authenticated")
		return
	}

	n, err := h.sessions.LogoutAll(ctx, identity.User)
	if err != nil {
		writeError(c, span, err)
		return
	}

	span.SetAttributes(attribute.Int64("revoked", n))
	span.SetStatus(codes.Ok, "")
	response.Success(c, dto.LogoutAllResponse{Message: "All sessions logged out", Revoked: n})
}
