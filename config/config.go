// Package config loads the rolebase configuration.
//
// Sources, lowest priority first: built-in defaults, an optional YAML file,
// a .env file, the process environment, then explicitly set command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/joe-ervin05/rolebase/data"
	"github.com/joe-ervin05/rolebase/dialect"
	"github.com/joe-ervin05/rolebase/tools"
)

// DefaultFile is read when present and no --config flag is given.
const DefaultFile = "rolebase.yaml"

// Config holds all application configuration values.
type Config struct {
	DB        DB        `koanf:"db"`
	Pool      Pool      `koanf:"pool"`
	Server    Server    `koanf:"server"`
	Log       Log       `koanf:"log"`
	Bootstrap Bootstrap `koanf:"bootstrap"`
}

type DB struct {
	System   string `koanf:"system"`
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
	Name     string `koanf:"name"`
	Driver   string `koanf:"driver"`
	URL      string `koanf:"url"`
	SSLMode  string `koanf:"sslmode"`
}

type Pool struct {
	// Enabled serves requests through the pool instead of the single connection.
	Enabled    bool `koanf:"enabled"`
	Wait       bool `koanf:"wait"`
	Limit      int  `koanf:"limit"`
	QueueLimit int  `koanf:"queue_limit"`
}

type Server struct {
	Port           string        `koanf:"port"`
	RequestTimeout time.Duration `koanf:"request_timeout"`
	MaxBody        int64         `koanf:"max_body"`
}

type Log struct {
	Console    bool   `koanf:"console"`
	File       string `koanf:"file"`
	MaxSizeMB  int    `koanf:"max_size_mb"`
	MaxBackups int    `koanf:"max_backups"`
	MaxAgeDays int    `koanf:"max_age_days"`
}

// Bootstrap selects the startup steps run before serving.
type Bootstrap struct {
	Truncating bool `koanf:"truncating"`
	Migrating  bool `koanf:"migrating"`
	Seeding    bool `koanf:"seeding"`
}

// envKeys maps environment variables to config keys.
var envKeys = map[string]string{
	"DB_HOST":          "db.host",
	"DB_PORT":          "db.port",
	"DB_USER":          "db.user",
	"DB_PASSWORD":      "db.password",
	"DB":               "db.name",
	"DB_SYSTEM":        "db.system",
	"DB_DRIVER":        "db.driver",
	"DB_URL":           "db.url",
	"DB_SSLMODE":       "db.sslmode",
	"CONSOLE_LOG":      "log.console",
	"LOG_FILE":         "log.file",
	"TRUNCATING":       "bootstrap.truncating",
	"MIGRATING":        "bootstrap.migrating",
	"SEEDING":          "bootstrap.seeding",
	"PORT":             "server.port",
	"REQUEST_TIMEOUT":  "server.request_timeout",
	"POOL_ENABLED":     "pool.enabled",
	"POOL_WAIT":        "pool.wait",
	"POOL_LIMIT":       "pool.limit",
	"POOL_QUEUE_LIMIT": "pool.queue_limit",
}

// flagKeys maps command-line flags to config keys.
var flagKeys = map[string]string{
	"db-system":        "db.system",
	"db-host":          "db.host",
	"db-port":          "db.port",
	"db-user":          "db.user",
	"db-password":      "db.password",
	"db-name":          "db.name",
	"db-driver":        "db.driver",
	"db-url":           "db.url",
	"port":             "server.port",
	"request-timeout":  "server.request_timeout",
	"verbose":          "log.console",
	"log-file":         "log.file",
	"truncate":         "bootstrap.truncating",
	"migrate":          "bootstrap.migrating",
	"seed":             "bootstrap.seeding",
	"pool":             "pool.enabled",
	"pool-limit":       "pool.limit",
	"pool-queue-limit": "pool.queue_limit",
}

func defaults() map[string]any {
	return map[string]any{
		"db.system":              string(dialect.KindMySQL),
		"db.host":                "localhost",
		"pool.enabled":           false,
		"pool.wait":              true,
		"pool.limit":             10,
		"pool.queue_limit":       0,
		"server.port":            "8080",
		"server.request_timeout": "30s",
		"server.max_body":        int64(1 << 20),
		"log.console":            false,
	}
}

// BindFlags registers the flags Load understands on fs.
func BindFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "config file (default "+DefaultFile+" if present)")
	fs.String("env-file", ".env", "dotenv file loaded into the environment")
	fs.String("db-system", "", "database system: mysql, postgres or sqlite")
	fs.String("db-host", "", "database host")
	fs.Int("db-port", 0, "database port")
	fs.String("db-user", "", "database user")
	fs.String("db-password", "", "database password")
	fs.String("db-name", "", "database name (file path for sqlite)")
	fs.String("db-driver", "", "driver override (pq for lib/pq)")
	fs.String("db-url", "", "remote libsql URL")
	fs.String("port", "", "HTTP listen port")
	fs.Duration("request-timeout", 0, "per-request timeout")
	fs.BoolP("verbose", "v", false, "log at info level")
	fs.String("log-file", "", "also write logs to this rotating file")
	fs.Bool("truncate", false, "truncate tables before serving")
	fs.Bool("migrate", false, "create tables before serving")
	fs.Bool("seed", false, "seed default rows before serving")
	fs.Bool("pool", false, "serve through the connection pool")
	fs.Int("pool-limit", 0, "maximum open pool connections")
	fs.Int("pool-queue-limit", 0, "maximum callers waiting for a pool connection (0 = unlimited)")
}

// Load reads the configuration. flags may be nil.
func Load(flags *pflag.FlagSet) (Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}

	if path := configFile(flags); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	envFile := ".env"
	if flags != nil {
		if v, err := flags.GetString("env-file"); err == nil && v != "" {
			envFile = v
		}
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load %s: %w", envFile, err)
	}

	if err := k.Load(env.Provider("", ".", func(s string) string {
		return envKeys[s]
	}), nil); err != nil {
		return Config{}, fmt.Errorf("load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return Config{}, fmt.Errorf("load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func configFile(flags *pflag.FlagSet) string {
	if flags != nil {
		if v, err := flags.GetString("config"); err == nil && v != "" {
			return v
		}
	}
	if _, err := os.Stat(DefaultFile); err == nil {
		return DefaultFile
	}
	return ""
}

// Validate rejects configurations that cannot start.
func (c Config) Validate() error {
	if _, err := dialect.New(c.DB.System); err != nil {
		return err
	}
	if c.Pool.Limit < 0 || c.Pool.QueueLimit < 0 {
		return fmt.Errorf("pool limits must not be negative (limit %d, queue limit %d)", c.Pool.Limit, c.Pool.QueueLimit)
	}
	return nil
}

// Dialect returns the dialect for DB.System.
func (c Config) Dialect() (dialect.Dialect, error) {
	return dialect.New(c.DB.System)
}

func (c Config) ConnConfig() dialect.ConnConfig {
	return dialect.ConnConfig{
		Host:     c.DB.Host,
		Port:     c.DB.Port,
		User:     c.DB.User,
		Password: c.DB.Password,
		Database: c.DB.Name,
		Driver:   c.DB.Driver,
		URL:      c.DB.URL,
		SSLMode:  c.DB.SSLMode,
	}
}

func (c Config) PoolOptions() data.PoolOptions {
	return data.PoolOptions{
		WaitForConnections: c.Pool.Wait,
		ConnectionLimit:    c.Pool.Limit,
		QueueLimit:         c.Pool.QueueLimit,
	}
}

func (c Config) LogConfig() tools.LogConfig {
	return tools.LogConfig{
		Verbose:    c.Log.Console,
		File:       c.Log.File,
		MaxSizeMB:  c.Log.MaxSizeMB,
		MaxBackups: c.Log.MaxBackups,
		MaxAgeDays: c.Log.MaxAgeDays,
	}
}

// Addr returns the HTTP listen address.
func (c Config) Addr() string {
	if strings.Contains(c.Server.Port, ":") {
		return c.Server.Port
	}
	return ":" + c.Server.Port
}
