package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "rbac-auth-service", cfg.App.Name)
	assert.Equal(t, 8081, cfg.Server.Port)
	assert.Equal(t, "HS256", cfg.JWT.Algorithm)
	assert.Equal(t, 15*time.Minute, cfg.JWT.AccessTokenTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.JWT.RefreshTokenTTL)
	assert.Equal(t, 12, cfg.Security.BcryptCost)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSAllowOrigins)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("SERVER_PORT", "9000")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/auth?sslmode=disable")
	t.Setenv("SECURITY_BOOTSTRAP_ADMIN_EMAIL", " Root@Example.com ")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "s3cret", cfg.JWT.Secret)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "postgres://u:p@db:5432/auth?sslmode=disable", cfg.Database.DSN())
	assert.Equal(t, "root@example.com", cfg.Security.BootstrapAdminEmail)
}

func TestLoadWithPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(path, []byte("APP_NAME=from-file\nJWT_ACCESS_TOKEN_TTL=5m\n"), 0o600))

	cfg, err := LoadWithPath(path)
	require.NoError(t, err)

	assert.Equal(t, "from-file", cfg.App.Name)
	assert.Equal(t, 5*time.Minute, cfg.JWT.AccessTokenTTL)
}

func TestLoadWithPath_Missing(t *testing.T) {
	_, err := LoadWithPath(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}

func validConfig() *Config {
	return &Config{
		App:      AppConfig{Name: "auth", Environment: "development"},
		Server:   ServerConfig{Port: 8081},
		Database: DatabaseConfig{Host: "localhost", DBName: "auth_db"},
		JWT: JWTConfig{
			Secret:          "secret",
			Algorithm:       "HS256",
			AccessTokenTTL:  15 * time.Minute,
			RefreshTokenTTL: 7 * 24 * time.Hour,
		},
		Security: SecurityConfig{BcryptCost: 10},
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"missing app name", func(c *Config) { c.App.Name = "" }, true},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, true},
		{"empty secret", func(c *Config) { c.JWT.Secret = "" }, true},
		{"default secret in production", func(c *Config) {
			c.App.Environment = "production"
			c.JWT.Secret = DefaultJWTSecret
		}, true},
		{"default secret in development", func(c *Config) { c.JWT.Secret = DefaultJWTSecret }, false},
		{"unsupported algorithm", func(c *Config) { c.JWT.Algorithm = "RS256" }, true},
		{"zero ttl", func(c *Config) { c.JWT.AccessTokenTTL = 0 }, true},
		{"bcrypt cost too low", func(c *Config) { c.Security.BcryptCost = 2 }, true},
		{"no database", func(c *Config) { c.Database = DatabaseConfig{} }, true},
		{"database url only", func(c *Config) { c.Database = DatabaseConfig{URL: "postgres://x"} }, false},
		{"kafka without brokers", func(c *Config) { c.Kafka.Enabled = true }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := &DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", DBName: "auth", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=auth sslmode=disable", d.DSN())
}
