package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forest-density-service/internal/domain"
)

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom(viper.New(), filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.GetServerAddr())
	assert.Equal(t, time.Hour, cfg.Cache.StatsCacheTTL)
	assert.Equal(t, 500, cfg.Ingest.BatchSize)
	assert.Equal(t, "strict", cfg.Ingest.Mode)
	assert.Equal(t, 4326, cfg.Ingest.SRID)
	assert.Equal(t, "unknown", cfg.Ingest.DefaultSource)
	assert.Empty(t, cfg.Ingest.Root)
	assert.Equal(t, "forest-density-loaders", cfg.Worker.ConsumerGroup)
	assert.Equal(t, 5*time.Second, cfg.Worker.StreamReadTimeout)
	assert.Equal(t, 3, cfg.Worker.MaxRetries)
	assert.Equal(t, 5*time.Minute, cfg.Worker.ClaimMinIdle)
	assert.Equal(t, 30*time.Second, cfg.Worker.ShutdownTimeout)
}

func TestLoadFrom_EnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "API_PORT=9090\nDB_NAME=forest\nSTATS_CACHE_TTL=60\nINGEST_MODE=LENIENT\nINGEST_BATCH_SIZE=1000\nINGEST_ROOT=/srv/canopy\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadFrom(viper.New(), path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "forest", cfg.Database.DBName)
	assert.Equal(t, time.Minute, cfg.Cache.StatsCacheTTL)
	assert.Equal(t, "/srv/canopy", cfg.Ingest.Root)

	defaults := cfg.LoadDefaults()
	assert.Equal(t, domain.LoadModeLenient, defaults.Mode)
	assert.Equal(t, 1000, defaults.BatchSize)
}

func TestLoadFrom_EnvironmentOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("LOG_LEVEL=warn\n"), 0o644))
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := LoadFrom(viper.New(), path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadFrom_InvalidIngestSettings(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"unknown mode", "INGEST_MODE", "yolo"},
		{"zero batch size", "INGEST_BATCH_SIZE", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			_, err := LoadFrom(viper.New(), "")
			require.Error(t, err)

			var cfgErr *domain.ConfigurationError
			assert.ErrorAs(t, err, &cfgErr)
		})
	}
}

func TestGetDatabaseDSN(t *testing.T) {
	cfg := &Config{Database: DatabaseConfig{
		Host: "db", Port: 5432, User: "u", Password: "p", DBName: "forest", SSLMode: "disable",
	}}

	assert.Equal(t, "host=db port=5432 user=u password=p dbname=forest sslmode=disable", cfg.GetDatabaseDSN())
	assert.Equal(t, ":0", (&Config{}).GetRedisAddr())
}
