package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0644))
	return dir
}

func TestLoadConfig(t *testing.T) {
	dir := writeConfig(t, `
server:
  port: "8081"
  mode: debug
database:
  driver: sqlite
  path: data/test.db
jwt:
  secret: test-secret
  expire_hours: 2
redis:
  stats_ttl_seconds: 30
storage:
  type: minio
seed:
  demo_training: true
cors:
  allowed_origins:
    - http://localhost:4200
`)

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "8081", cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 2*time.Hour, cfg.JWT.ExpireTime)
	assert.Equal(t, 30*time.Second, cfg.Redis.StatsTTL)
	assert.True(t, cfg.Seed.DemoTraining)
	assert.True(t, cfg.Seed.DefaultLevels)
	assert.Equal(t, []string{"http://localhost:4200"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, int64(500), cfg.Video.MaxUploadMB)
	assert.Equal(t, "admin", cfg.Admin.Username)
	assert.Equal(t, "logs/app.log", cfg.Log.File)
	assert.Equal(t, dir, cfg.Dir)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	dir := writeConfig(t, `
server:
  mode: debug
database:
  driver: sqlite
jwt:
  secret: from-file
storage:
  type: minio
`)
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("QUEST_SERVER_PORT", "9090")
	t.Setenv("DATABASE_DRIVER", "memory")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.JWT.Secret)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Database.Driver)
}

func TestLoadConfigValidation(t *testing.T) {
	dir := writeConfig(t, `
server:
  mode: release
database:
  driver: memory
jwt:
  secret: short
storage:
  type: minio
`)
	_, err := LoadConfig(dir)
	assert.ErrorContains(t, err, "JWT secret is too short")

	dir = writeConfig(t, `
database:
  driver: oracle
storage:
  type: minio
`)
	_, err = LoadConfig(dir)
	assert.ErrorContains(t, err, "unsupported database driver")
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(t.TempDir())
	assert.Error(t, err)
}
