package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnv_Defaults(t *testing.T) {
	c, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "dev", c.Env)
	assert.Equal(t, StoragePostgres, c.Storage)
	assert.Equal(t, ":8080", c.HTTP.Addr)
	assert.Equal(t, 30*time.Second, c.Game.RoundDuration)
	assert.Equal(t, 2*time.Second, c.Game.RoundGrace)
	assert.True(t, c.HTTP.StaticWeb)
	assert.False(t, c.Postgres.RunMigrations)
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("STORAGE", "memory")
	t.Setenv("ROUND_DURATION", "10s")
	t.Setenv("ROUND_GRACE", "bogus")
	t.Setenv("SEED_CATALOG", "true")
	t.Setenv("LOG_FORMAT", "json")

	c, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":9000", c.HTTP.Addr)
	assert.Equal(t, StorageMemory, c.Storage)
	assert.Equal(t, 10*time.Second, c.Game.RoundDuration)
	assert.Equal(t, 2*time.Second, c.Game.RoundGrace, "unparsable values fall back to the default")
	assert.True(t, c.Postgres.SeedCatalog)
	assert.Equal(t, "json", c.Log.Format)
}

func TestLoadFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "unknown storage", env: map[string]string{"STORAGE": "sqlite"}},
		{name: "default secret outside dev", env: map[string]string{"APP_ENV": "prod"}},
		{name: "log format", env: map[string]string{"LOG_FORMAT": "xml"}},
		{name: "round ttl too short", env: map[string]string{"ROUND_TTL": "5s"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := LoadFromEnv()
			require.Error(t, err)
		})
	}
}
