package di

import (
	"github.com/gin-gonic/gin"
	"github.com/prohmpiriya/rbac-auth-service/internal/domain"
	"github.com/prohmpiriya/rbac-auth-service/internal/middleware"
	"github.com/prohmpiriya/rbac-auth-service/pkg/logger"
	"github.com/prohmpiriya/rbac-auth-service/pkg/response"
	"github.com/prohmpiriya/rbac-auth-service/pkg/telemetry"
)

// RouterConfig controls the optional router layers
type RouterConfig struct {
	Logger        *logger.Logger
	EnableTracing bool
	EnableMetrics bool
	MetricsPath   string
	CORSOrigins   []string
}

// NewRouter builds the gin engine with every route mounted
func (c *Container) NewRouter(cfg *RouterConfig) *gin.Engine {
	if cfg == nil {
		cfg = &RouterConfig{}
	}
	log := cfg.Logger
	if log == nil {
		log = logger.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.CORS(middleware.DefaultCORSConfig(cfg.CORSOrigins...)))
	if cfg.EnableTracing {
		router.Use(telemetry.TracingMiddleware(c.ServiceName))
	}
	router.Use(middleware.Logger(log))
	if cfg.EnableMetrics && c.Metrics != nil {
		router.Use(c.Metrics.Middleware())
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		router.GET(path, gin.WrapH(c.Metrics.Handler()))
	}

	c.RegisterRoutes(router)
	router.NoRoute(func(ctx *gin.Context) {
		response.NotFound(ctx, "Route not found")
	})
	return router
}

// RegisterRoutes mounts the health, auth, user and admin routes
func (c *Container) RegisterRoutes(router *gin.Engine) {
	authn := middleware.Authenticate(c.IdentityResolver)
	adminOnly := middleware.RequireRoles(c.Metrics, domain.RoleAdmin)
	rbacAdmin := middleware.RequireRolesOrPermissions(c.Metrics,
		[]string{domain.RoleAdmin}, []string{domain.PermissionKey("roles", "write")})

	var idempotency gin.HandlerFunc
	if c.Redis != nil {
		idempotency = middleware.Idempotency(&middleware.IdempotencyConfig{
			Redis: c.Redis,
			TTL:   c.IdempotencyTTL,
		})
	} else {
		idempotency = middleware.Idempotency(nil)
	}

	// Health check endpoints
	router.GET("/health", c.HealthHandler.Health)
	router.GET("/ready", c.HealthHandler.Ready)

	v1 := router.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/register", c.AuthHandler.Register)
			auth.POST("/login", c.AuthHandler.Login)
			auth.POST("/token/refresh", c.AuthHandler.Refresh)
			auth.POST("/logout", c.AuthHandler.Logout)
			auth.POST("/logout-all", authn, c.AuthHandler.LogoutAll)
		}

		users := v1.Group("/users")
		users.Use(authn)
		{
			users.GET("/me", c.UserHandler.Me)
			users.GET("", adminOnly, c.UserHandler.List)
			users.GET("/with-permissions", middleware.RequirePermissions(c.Metrics, "users:read"), c.UserHandler.List)
			users.POST("", adminOnly, c.UserHandler.Create)
			users.GET("/:id", c.UserHandler.Get)
			users.PATCH("/:id", middleware.RequirePermissions(c.Metrics, "users:write"), c.UserHandler.Update)
			users.DELETE("/:id", middleware.RequirePermissions(c.Metrics, "users:write"), c.UserHandler.Delete)
		}

		roles := v1.Group("/roles")
		roles.Use(authn, adminOnly)
		{
			roles.GET("", c.AdminHandler.ListRoles)
			roles.GET("/:id", c.AdminHandler.GetRole)
		}

		admin := v1.Group("/admin")
		admin.Use(authn, rbacAdmin, idempotency)
		{
			admin.POST("/roles", c.AdminHandler.CreateRole)
			admin.GET("/roles", c.AdminHandler.ListRoles)
			admin.GET("/roles/:id", c.AdminHandler.GetRole)
			admin.PATCH("/roles/:id", c.AdminHandler.UpdateRole)
			admin.DELETE("/roles/:id", c.AdminHandler.DeleteRole)

			admin.POST("/permissions", c.AdminHandler.CreatePermission)
			admin.GET("/permissions", c.AdminHandler.ListPermissions)
			admin.GET("/permissions/:id", c.AdminHandler.GetPermission)
			admin.PATCH("/permissions/:id", c.AdminHandler.UpdatePermission)
			admin.DELETE("/permissions/:id", c.AdminHandler.DeletePermission)

			admin.POST("/user-roles", c.AdminHandler.AssignRole)
			admin.DELETE("/user-roles", c.AdminHandler.UnassignRole)
			admin.POST("/role-permissions", c.AdminHandler.GrantPermission)
			admin.DELETE("/role-permissions", c.AdminHandler.RevokePermission)
		}
	}
}
