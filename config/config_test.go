package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joe-ervin05/rolebase/data"
	"github.com/joe-ervin05/rolebase/dialect"
)

func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	BindFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(newFlags(t, "--env-file", filepath.Join(t.TempDir(), "missing.env")))
	require.NoError(t, err)

	assert.Equal(t, "mysql", cfg.DB.System)
	assert.True(t, cfg.Pool.Wait)
	assert.Equal(t, 10, cfg.Pool.Limit)
	assert.Equal(t, 30*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, int64(1<<20), cfg.Server.MaxBody)
	assert.Equal(t, data.DefaultPoolOptions(), cfg.PoolOptions())
}

func TestLoadPrecedence(t *testing.T) {
	yamlPath := writeFile(t, "rolebase.yaml", `
db:
  system: postgres
  host: yaml-host
  user: yaml-user
server:
  port: "9000"
pool:
  limit: 4
`)
	t.Setenv("DB_HOST", "env-host")
	t.Setenv("POOL_QUEUE_LIMIT", "3")
	t.Setenv("MIGRATING", "1")
	t.Setenv("REQUEST_TIMEOUT", "5s")

	cfg, err := Load(newFlags(t, "--config", yamlPath, "--port", "9100", "--pool-limit", "6"))
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.DB.System)
	assert.Equal(t, "yaml-user", cfg.DB.User)
	assert.Equal(t, "env-host", cfg.DB.Host)
	assert.Equal(t, "9100", cfg.Server.Port)
	assert.Equal(t, ":9100", cfg.Addr())
	assert.Equal(t, 6, cfg.Pool.Limit)
	assert.Equal(t, 3, cfg.Pool.QueueLimit)
	assert.True(t, cfg.Bootstrap.Migrating)
	assert.Equal(t, 5*time.Second, cfg.Server.RequestTimeout)

	d, err := cfg.Dialect()
	require.NoError(t, err)
	assert.Equal(t, dialect.KindPostgres, d.Kind())
}

func TestLoadDotEnv(t *testing.T) {
	keys := []string{"DB_SYSTEM", "DB", "TRUNCATING", "CONSOLE_LOG"}
	for _, k := range keys {
		_, set := os.LookupEnv(k)
		require.False(t, set, "%s must not be set in the test environment", k)
	}
	t.Cleanup(func() {
		for _, k := range keys {
			os.Unsetenv(k)
		}
	})

	envPath := writeFile(t, ".env", "DB_SYSTEM=sqlite\nDB=app.db\nTRUNCATING=1\nCONSOLE_LOG=true\n")
	cfg, err := Load(newFlags(t, "--env-file", envPath))
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.DB.System)
	assert.Equal(t, "app.db", cfg.ConnConfig().Database)
	assert.True(t, cfg.Bootstrap.Truncating)
	assert.True(t, cfg.LogConfig().Verbose)
}

func TestLoadRejectsUnknownSystem(t *testing.T) {
	t.Setenv("DB_SYSTEM", "oracle")

	_, err := Load(nil)
	var unknown *dialect.UnknownKindError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "oracle", unknown.Kind)
}

func TestValidate(t *testing.T) {
	cfg := Config{DB: DB{System: "sqlite"}, Pool: Pool{Limit: -1}}
	require.Error(t, cfg.Validate())

	cfg.Pool.Limit = 0
	require.NoError(t, cfg.Validate())
}

func TestConversions(t *testing.T) {
	cfg := Config{
		DB:     DB{System: "postgres", Host: "db", Port: 5433, User: "u", Password: "p", Name: "app", Driver: "pq", SSLMode: "require"},
		Pool:   Pool{Wait: false, Limit: 2, QueueLimit: 1},
		Server: Server{Port: "127.0.0.1:8080"},
		Log:    Log{File: "app.log", MaxBackups: 3},
	}

	assert.Equal(t, dialect.ConnConfig{
		Host: "db", Port: 5433, User: "u", Password: "p", Database: "app", Driver: "pq", SSLMode: "require",
	}, cfg.ConnConfig())
	assert.Equal(t, data.PoolOptions{WaitForConnections: false, ConnectionLimit: 2, QueueLimit: 1}, cfg.PoolOptions())
	assert.Equal(t, "app.log", cfg.LogConfig().File)
	assert.Equal(t, 3, cfg.LogConfig().MaxBackups)
	assert.Equal(t, "127.0.0.1:8080", cfg.Addr())
}
