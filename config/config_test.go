package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setBaseEnv(t *testing.T) {
	t.Setenv("DB_DSN", "postgres://localhost/cutroom")
	t.Setenv("AUTH_MODE", AuthModeHeader)
	t.Setenv("STORAGE_BACKEND", StorageS3)
	t.Setenv("S3_BUCKET", "cutroom-media")
}

func TestLoad_Defaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, int64(100)<<20, cfg.Storage.MaxVideoBytes)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "@every 5m", cfg.Worker.StatusReportSchedule)
	assert.False(t, cfg.UsesFirebase())
}

func TestLoad_ParsesTypedValues(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("RATE_LIMIT_RPS", "2.5")
	t.Setenv("DB_AUTO_MIGRATE", "true")
	t.Setenv("SHUTDOWN_TIMEOUT", "3s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
	assert.InDelta(t, 2.5, cfg.Server.RequestsPerSecond, 0.0001)
	assert.True(t, cfg.Database.Migrate)
	assert.Equal(t, 3*time.Second, cfg.Server.ShutdownTimeout)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("DB_PORT", "not-a-port")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 5432, cfg.Database.Port)
}

func TestValidate(t *testing.T) {
	t.Run("firebase auth needs credentials", func(t *testing.T) {
		setBaseEnv(t)
		t.Setenv("AUTH_MODE", AuthModeFirebase)

		_, err := Load()
		assert.ErrorContains(t, err, "FIREBASE_CREDENTIALS_PATH")
	})

	t.Run("header auth refused in production", func(t *testing.T) {
		setBaseEnv(t)
		t.Setenv("APP_ENV", "production")

		_, err := Load()
		assert.ErrorContains(t, err, "not allowed in production")
	})

	t.Run("s3 needs a bucket", func(t *testing.T) {
		setBaseEnv(t)
		t.Setenv("S3_BUCKET", "")

		_, err := Load()
		assert.ErrorContains(t, err, "S3_BUCKET")
	})

	t.Run("unknown storage backend", func(t *testing.T) {
		setBaseEnv(t)
		t.Setenv("STORAGE_BACKEND", "ftp")

		_, err := Load()
		assert.ErrorContains(t, err, "STORAGE_BACKEND")
	})

	t.Run("redis project store needs a url", func(t *testing.T) {
		setBaseEnv(t)
		t.Setenv("PROJECT_STORE", ProjectStoreRedis)

		_, err := Load()
		assert.ErrorContains(t, err, "REDIS_URL")
	})

	t.Run("unknown project store", func(t *testing.T) {
		setBaseEnv(t)
		t.Setenv("PROJECT_STORE", "mongo")

		_, err := Load()
		assert.ErrorContains(t, err, "PROJECT_STORE")
	})
}
