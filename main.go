package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prohmpiriya/rbac-auth-service/internal/di"
	"github.com/prohmpiriya/rbac-auth-service/internal/migrations"
	"github.com/prohmpiriya/rbac-auth-service/internal/repository"
	"github.com/prohmpiriya/rbac-auth-service/internal/service"
	"github.com/prohmpiriya/rbac-auth-service/pkg/config"
	"github.com/prohmpiriya/rbac-auth-service/pkg/database"
	"github.com/prohmpiriya/rbac-auth-service/pkg/logger"
	"github.com/prohmpiriya/rbac-auth-service/pkg/metrics"
	"github.com/prohmpiriya/rbac-auth-service/pkg/redis"
	"github.com/prohmpiriya/rbac-auth-service/pkg/telemetry"
	"go.uber.org/zap"
)

const serviceName = "rbac-auth-service"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	if err := logger.Init(&logger.Config{
		Level:       cfg.App.LogLevel,
		ServiceName: serviceName,
		Development: cfg.IsDevelopment(),
	}); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	appLog := logger.Get()
	appLog.Info("Starting RBAC Auth Service...", zap.String("environment", cfg.App.Environment))
	if cfg.JWT.Secret == config.DefaultJWTSecret {
		appLog.Warn("JWT_SECRET not set, using dev-only default (NEVER use in production)")
	}

	ctx := context.Background()

	// Initialize OpenTelemetry
	telemetryCfg := &telemetry.Config{
		Enabled:        cfg.OTel.Enabled,
		ServiceName:    serviceName,
		ServiceVersion: cfg.App.Version,
		Environment:    cfg.App.Environment,
		CollectorAddr:  cfg.OTel.CollectorAddr,
		SampleRatio:    cfg.OTel.SampleRatio,
	}
	if _, err := telemetry.Init(ctx, telemetryCfg); err != nil {
		appLog.Warn("Failed to initialize telemetry", zap.Error(err))
	} else if telemetryCfg.Enabled {
		appLog.Info("Telemetry initialized", zap.String("collector", telemetryCfg.CollectorAddr))
	}
	defer telemetry.Shutdown(ctx)

	// Initialize database connection
	dbCfg := database.DefaultPostgresConfig(cfg.Database.DSN())
	if cfg.Database.MaxConns > 0 {
		dbCfg.MaxConns = cfg.Database.MaxConns
	}
	if cfg.Database.MinConns > 0 {
		dbCfg.MinConns = cfg.Database.MinConns
	}
	dbCfg.EnableTracing = cfg.OTel.Enabled
	db, err := database.NewPostgres(ctx, dbCfg)
	if err != nil {
		appLog.Fatal("Database connection failed", zap.Error(err))
	}
	defer db.Close()
	appLog.Info("Database connected", zap.Int32("min_conns", dbCfg.MinConns), zap.Int32("max_conns", dbCfg.MaxConns))

	if cfg.Database.AutoMigrate {
		if err := migrations.Up(ctx, db.Pool()); err != nil {
			appLog.Fatal("Database migration failed", zap.Error(err))
		}
		appLog.Info("Database migrations applied")
	}

	// Redis backs idempotency for admin mutations
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisCfg := redis.DefaultConfig()
		redisCfg.Host = cfg.Redis.Host
		redisCfg.Port = cfg.Redis.Port
		redisCfg.Password = cfg.Redis.Password
		redisCfg.DB = cfg.Redis.DB
		redisCfg.EnableTracing = cfg.OTel.Enabled
		redisClient, err = redis.NewClient(ctx, redisCfg)
		if err != nil {
			appLog.Fatal("Redis connection failed", zap.Error(err))
		}
		defer redisClient.Close()
		appLog.Info("Redis connected", zap.String("addr", redisCfg.Addr()))
	}

	// Kafka carries auth events; the no-op publisher keeps the service standalone
	var events service.EventPublisher = service.NewNoOpEventPublisher()
	if cfg.Kafka.Enabled {
		publisher, err := service.NewKafkaEventPublisher(ctx, &service.EventPublisherConfig{
			Brokers:     cfg.Kafka.Brokers,
			Topic:       cfg.Kafka.AuthEventsTopic,
			ServiceName: serviceName,
			ClientID:    cfg.Kafka.ClientID,
		})
		if err != nil {
			appLog.Warn("Kafka unavailable, auth events disabled", zap.Error(err))
		} else {
			events = publisher
			appLog.Info("Auth event publisher ready", zap.String("topic", cfg.Kafka.AuthEventsTopic))
		}
	}
	defer events.Close()

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New("rbac_auth")
	}

	// Build dependency injection container
	containerCfg := &di.ContainerConfig{
		ServiceName:    serviceName,
		DB:             db,
		UserRepo:       repository.NewPostgresUserRepository(db.Pool()),
		RoleRepo:       repository.NewPostgresRoleRepository(db.Pool()),
		PermissionRepo: repository.NewPostgresPermissionRepository(db.Pool()),
		TokenRepo:      repository.NewPostgresRefreshTokenRepository(db.Pool()),
		JWT: &service.JWTCodecConfig{
			Secret:    cfg.JWT.Secret,
			Algorithm: cfg.JWT.Algorithm,
		},
		Session: &service.SessionServiceConfig{
			AccessTokenTTL:  cfg.JWT.AccessTokenTTL,
			RefreshTokenTTL: cfg.JWT.RefreshTokenTTL,
		},
		BcryptCost:     cfg.Security.BcryptCost,
		Metrics:        m,
		Events:         events,
		IdempotencyTTL: cfg.Redis.IdempotencyTTL,
	}
	if redisClient != nil {
		containerCfg.Redis = redisClient
	}
	container, err := di.NewContainer(containerCfg)
	if err != nil {
		appLog.Fatal("Failed to build container", zap.Error(err))
	}

	if email := cfg.Security.BootstrapAdminEmail; email != "" {
		if err := container.RBACService.EnsureAdmin(ctx, email); err != nil {
			appLog.Warn("Bootstrap admin not granted", zap.String("email", email), zap.Error(err))
		} else {
			appLog.Info("Bootstrap admin ensured", zap.String("email", email))
		}
	}

	// Setup Gin
	if cfg.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := container.NewRouter(&di.RouterConfig{
		Logger:        appLog,
		EnableTracing: cfg.OTel.Enabled,
		EnableMetrics: cfg.Metrics.Enabled,
		MetricsPath:   cfg.Metrics.Path,
		CORSOrigins:   cfg.Server.CORSAllowOrigins,
	})

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		ReadHeaderTimeout: 2 * time.Second,
	}

	// Start server in goroutine
	go func() {
		appLog.Info("RBAC Auth Service listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLog.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLog.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.Error("Server forced to shutdown", zap.Error(err))
	}

	appLog.Info("Server exited gracefully")
}
