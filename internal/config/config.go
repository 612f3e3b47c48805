// Package config loads the Mirage configuration from YAML and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/opensource-finance/mirage/internal/domain"
	"github.com/opensource-finance/mirage/internal/query"
	"gopkg.in/yaml.v3"
)

const (
	// PathEnv names the environment variable pointing at the config file.
	PathEnv = "MIRAGE_CONFIG"

	// DefaultPath is read when PathEnv is unset. A missing file is not an error.
	DefaultPath = "mirage.yaml"
)

// Load reads the config file named by $MIRAGE_CONFIG, or ./mirage.yaml,
// over domain.DefaultConfig, then applies MIRAGE_* overrides.
func Load() (*domain.Config, error) {
	path, explicit := getEnvStr(PathEnv)
	if !explicit {
		path = DefaultPath
	}

	cfg, err := LoadFile(path)
	if errors.Is(err, fs.ErrNotExist) && !explicit {
		cfg = domain.DefaultConfig()
		err = nil
	}
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile decodes path over the defaults without consulting the environment.
func LoadFile(path string) (*domain.Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(b)
}

// Parse decodes YAML over the defaults. Keys absent from b keep their
// default values.
func Parse(b []byte) (*domain.Config, error) {
	cfg := domain.DefaultConfig()
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidConfiguration, err)
	}
	return cfg, nil
}

// Validate rejects settings no component can start with.
func Validate(cfg *domain.Config) error {
	switch cfg.SQLManager.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("%w: unsupported sql driver %q", domain.ErrInvalidConfiguration, cfg.SQLManager.Driver)
	}

	switch cfg.Resources.Type {
	case "fs", "redis":
	default:
		return fmt.Errorf("%w: unsupported resource namespace %q", domain.ErrInvalidConfiguration, cfg.Resources.Type)
	}

	if _, err := query.ParseKey(cfg.QueryLookup); err != nil {
		return err
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Logging.Level)); err != nil {
		return fmt.Errorf("%w: log level %q", domain.ErrInvalidConfiguration, cfg.Logging.Level)
	}
	switch cfg.Logging.Format {
	case "", "json", "text":
	default:
		return fmt.Errorf("%w: log format %q", domain.ErrInvalidConfiguration, cfg.Logging.Format)
	}

	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("%w: invalid port %d", domain.ErrInvalidConfiguration, cfg.Server.Port)
	}
	return nil
}

func applyEnvOverrides(c *domain.Config) {
	// SERVER
	if v, ok := getEnvStr("MIRAGE_HOST"); ok {
		c.Server.Host = v
	}
	if v, ok := getEnvInt("MIRAGE_PORT"); ok {
		c.Server.Port = v
	}

	// SQL MANAGER
	if v, ok := getEnvStr("MIRAGE_DB_DRIVER"); ok {
		c.SQLManager.Driver = strings.ToLower(v)
	}
	if v, ok := getEnvStr("MIRAGE_SQLITE_PATH"); ok {
		c.SQLManager.SQLitePath = v
	}
	if v, ok := getEnvStr("MIRAGE_POSTGRES_HOST"); ok {
		c.SQLManager.PostgresHost = v
	}
	if v, ok := getEnvInt("MIRAGE_POSTGRES_PORT"); ok {
		c.SQLManager.PostgresPort = v
	}
	if v, ok := getEnvStr("MIRAGE_POSTGRES_USER"); ok {
		c.SQLManager.PostgresUser = v
	}
	if v, ok := getEnvStr("MIRAGE_POSTGRES_PASSWORD"); ok {
		c.SQLManager.PostgresPassword = v
	}
	if v, ok := getEnvStr("MIRAGE_POSTGRES_DB"); ok {
		c.SQLManager.PostgresDB = v
	}
	if v, ok := getEnvStr("MIRAGE_SCHEMA_DIR"); ok {
		c.SQLManager.SchemaDir = v
	}

	// RESOURCES
	if v, ok := getEnvStr("MIRAGE_RESOURCES"); ok {
		c.Resources.Type = strings.ToLower(v)
	}
	if v, ok := getEnvStr("MIRAGE_RESOURCES_ROOT"); ok {
		c.Resources.Root = v
	}
	if v, ok := getEnvStr("MIRAGE_REDIS_ADDR"); ok {
		c.Resources.RedisAddr = v
	}
	if v, ok := getEnvStr("MIRAGE_REDIS_PASSWORD"); ok {
		c.Resources.RedisPassword = v
	}
	if v, ok := getEnvInt("MIRAGE_REDIS_DB"); ok {
		c.Resources.RedisDB = v
	}
	if v, ok := getEnvInt("MIRAGE_RESOURCE_CACHE_SIZE"); ok {
		c.Resources.CacheSize = v
	}
	if v, ok := getEnvDur("MIRAGE_RESOURCE_CACHE_TTL"); ok {
		c.Resources.CacheTTL = v
	}

	// QUERIES
	if v, ok := getEnvStr("MIRAGE_QUERY_LOOKUP"); ok {
		c.QueryLookup = v
	}

	// LOGGING
	if v, ok := getEnvStr("MIRAGE_LOG_LEVEL"); ok {
		c.Logging.Level = strings.ToLower(v)
	}
	if v, ok := getEnvBool("MIRAGE_DEBUG"); ok && v {
		c.Logging.Level = "debug"
	}
}

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}

func getEnvInt(key string) (int, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i, true
		}
	}
	return 0, false
}

func getEnvBool(key string) (bool, bool) {
	if s, ok := getEnvStr(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return b, true
		}
	}
	return false, false
}

func getEnvDur(key string) (time.Duration, bool) {
	if s, ok := getEnvStr(key); ok {
		if d, err := time.ParseDuration(strings.TrimSpace(s)); err == nil {
			return d, true
		}
	}
	return 0, false
}
