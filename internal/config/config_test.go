package config_test

import (
	"os"
	"testing"
	"time"

	"github.com/linemk/shop-backend/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	tmpFile, err := os.CreateTemp("", "config_test_*.yaml")
	require.NoError(t, err)
	t.Cleanup(func() { os.Remove(tmpFile.Name()) })

	_, err = tmpFile.WriteString(content)
	require.NoError(t, err)
	require.NoError(t, tmpFile.Close())
	return tmpFile.Name()
}

func TestMustLoadByPath_Success(t *testing.T) {
	// Устанавливаем обязательные переменные окружения
	t.Setenv("DB_PASSWORD", "mypassword")
	t.Setenv("JWT_SECRET", "mysecret")

	content := `
env: "local"
http_server:
  address: "localhost:8080"
  timeout: "4s"
  idle_timeout: "60s"
database:
  host: "localhost"
  port: 5432
  user: "postgres"
  name: "shop"
  lock_timeout: "2s"
jwt:
  token_ttl: 60
migrations:
  path: "./migrations"
redis:
  address: "localhost:6379"
  catalog_ttl: "30s"
kafka:
  brokers: ["localhost:9092"]
  topic: "orders"
`
	cfg := config.MustLoadByPath(writeConfig(t, content))

	assert.Equal(t, "local", cfg.Env)
	assert.Equal(t, "localhost:8080", cfg.HTTPServer.Address)
	assert.Equal(t, 4*time.Second, cfg.HTTPServer.Timeout)
	assert.Equal(t, 60*time.Second, cfg.HTTPServer.IdleTimeout)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "postgres", cfg.Database.User)
	assert.Equal(t, "mypassword", cfg.Database.Password)
	assert.Equal(t, "shop", cfg.Database.Name)
	assert.Equal(t, 2*time.Second, cfg.Database.LockTimeout)
	assert.Equal(t, 20, cfg.Database.MaxOpenConns, "Default pool size should apply")
	assert.Equal(t, 60, cfg.JWT.TokenTTL)
	assert.Equal(t, "./migrations", cfg.Migrations.Path)
	assert.Equal(t, "localhost:6379", cfg.Redis.Address)
	assert.Equal(t, 30*time.Second, cfg.Redis.CatalogTTL)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "orders", cfg.Kafka.Topic)
	assert.Equal(t, 256, cfg.Kafka.Buffer)
	assert.True(t, cfg.Metrics.Enabled)
}

func TestMustLoadByPath_FileNotFound(t *testing.T) {
	// Ожидаем панику, если файла не существует
	assert.Panics(t, func() {
		config.MustLoadByPath("non_existent_config.yaml")
	})
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := config.DatabaseConfig{
		Host:        "db",
		Port:        5432,
		User:        "shop",
		Password:    "p@ss",
		Name:        "shop",
		SSLMode:     "disable",
		LockTimeout: 3 * time.Second,
	}

	assert.Equal(t, "postgres://shop:p%40ss@db:5432/shop?lock_timeout=3000&sslmode=disable", d.DSN())
}

func TestDatabaseConfig_DSNWithoutLockTimeout(t *testing.T) {
	d := config.DatabaseConfig{Host: "db", Port: 5432, User: "shop", Password: "x", Name: "shop", SSLMode: "disable"}

	assert.NotContains(t, d.DSN(), "lock_timeout")
}
