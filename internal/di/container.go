package di

import (
	"time"

	"github.com/prohmpiriya/rbac-auth-service/internal/handler"
	"github.com/prohmpiriya/rbac-auth-service/internal/middleware"
	"github.com/prohmpiriya/rbac-auth-service/internal/repository"
	"github.com/prohmpiriya/rbac-auth-service/internal/service"
	"github.com/prohmpiriya/rbac-auth-service/pkg/metrics"
)

// Container holds all dependencies for the auth service
type Container struct {
	// Infrastructure
	DB          handler.Pinger
	Redis       middleware.RedisClient
	Metrics     *metrics.Metrics
	Events      service.EventPublisher
	ServiceName string

	// IdempotencyTTL bounds how long admin mutation responses are replayed
	IdempotencyTTL time.Duration

	// Repositories
	UserRepo       repository.UserRepository
	RoleRepo       repository.RoleRepository
	PermissionRepo repository.PermissionRepository
	TokenRepo      repository.RefreshTokenRepository

	// Services
	Codec            service.TokenCodec
	SessionService   service.SessionService
	IdentityResolver service.IdentityResolver
	UserService      service.UserService
	RBACService      service.RBACService

	// Handlers
	HealthHandler *handler.HealthHandler
	AuthHandler   *handler.AuthHandler
	UserHandler   *handler.UserHandler
	AdminHandler  *handler.AdminHandler
}

// ContainerConfig contains configuration for building the container
type ContainerConfig struct {
	ServiceName string
	DB          handler.Pinger
	// Redis is optional; nil disables idempotency and the readiness redis check
	Redis RedisPinger

	UserRepo       repository.UserRepository
	RoleRepo       repository.RoleRepository
	PermissionRepo repository.PermissionRepository
	TokenRepo      repository.RefreshTokenRepository

	JWT        *service.JWTCodecConfig
	Session    *service.SessionServiceConfig
	BcryptCost int

	Metrics        *metrics.Metrics
	Events         service.EventPublisher
	IdempotencyTTL time.Duration
}

// RedisPinger is a Redis client usable for both idempotency and readiness
type RedisPinger interface {
	middleware.RedisClient
	handler.Pinger
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *ContainerConfig) (*Container, error) {
	codec, err := service.NewJWTCodec(cfg.JWT)
	if err != nil {
		return nil, err
	}

	events := cfg.Events
	if events == nil {
		events = service.NewNoOpEventPublisher()
	}

	c := &Container{
		DB:             cfg.DB,
		Metrics:        cfg.Metrics,
		Events:         events,
		ServiceName:    cfg.ServiceName,
		UserRepo:       cfg.UserRepo,
		RoleRepo:       cfg.RoleRepo,
		PermissionRepo: cfg.PermissionRepo,
		TokenRepo:      cfg.TokenRepo,
		Codec:          codec,
		IdempotencyTTL: cfg.IdempotencyTTL,
	}

	var redisPinger handler.Pinger
	if cfg.Redis != nil {
		c.Redis = cfg.Redis
		redisPinger = cfg.Redis
	}

	// Initialize services
	hasher := service.NewBcryptHasher(cfg.BcryptCost)
	c.SessionService = service.NewSessionService(
		c.UserRepo,
		c.TokenRepo,
		hasher,
		c.Codec,
		c.Events,
		c.Metrics,
		cfg.Session,
	)
	c.IdentityResolver = service.NewIdentityResolver(c.Codec, c.UserRepo, c.RoleRepo, c.TokenRepo)
	c.UserService = service.NewUserService(c.UserRepo, hasher, c.Events)
	c.RBACService = service.NewRBACService(c.UserRepo, c.RoleRepo, c.PermissionRepo, c.Events)

	// Initialize handlers
	c.HealthHandler = handler.NewHealthHandler(cfg.ServiceName, c.DB, redisPinger)
	c.AuthHandler = handler.NewAuthHandler(c.SessionService)
	c.UserHandler = handler.NewUserHandler(c.UserService)
	c.AdminHandler = handler.NewAdminHandler(c.RBACService)

	return c, nil
}
