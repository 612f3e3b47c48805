package domain

import "time"

// Config holds the complete Mirage configuration.
type Config struct {
	// Server settings for the inspection API
	Server ServerConfig `yaml:"server"`

	// Component configurations
	SQLManager SQLManagerConfig `yaml:"sqlManager"`
	Resources  NamespaceConfig  `yaml:"resources"`

	// QueryLookup selects how query methods are resolved:
	// "create", "use-declared-query" or "create-if-not-found".
	QueryLookup string `yaml:"queryLookup"`

	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	ReadTimeout  int    `yaml:"readTimeout"`  // seconds
	WriteTimeout int    `yaml:"writeTimeout"` // seconds
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// DefaultConfig returns a configuration backed by a local SQLite file and
// SQL resources read from ./sql.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30,
			WriteTimeout: 30,
		},
		SQLManager: SQLManagerConfig{
			Driver:     "sqlite",
			SQLitePath: "./mirage.db",
		},
		Resources: NamespaceConfig{
			Type:      "fs",
			Root:      "./sql",
			CacheSize: 1000,
			CacheTTL:  5 * time.Minute,
		},
		QueryLookup: "create-if-not-found",
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}
