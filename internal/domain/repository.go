// Package domain defines the core contracts and types for Mirage.
package domain

import (
	"context"
	"database/sql"
	"time"
)

// SQLManager is the shared query executor handed to the factory and to every
// repository it builds. Implementations must be safe for concurrent use; the
// factory never mutates it.
type SQLManager interface {
	// Exec runs a statement and returns the number of affected rows.
	Exec(ctx context.Context, query string, args ...any) (int64, error)

	// Query runs a statement returning rows. Callers close the rows.
	Query(ctx context.Context, query string, args ...any) (*sql.Rows, error)

	// QueryRow runs a statement expected to return at most one row.
	QueryRow(ctx context.Context, query string, args ...any) Row

	// Driver returns the database driver name: "sqlite" or "postgres".
	Driver() string

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// Row is the result of SQLManager.QueryRow. Scan reports sql.ErrNoRows when
// nothing matched.
type Row interface {
	Scan(dest ...any) error
}

// SQLManagerConfig holds configuration for SQL manager initialization.
type SQLManagerConfig struct {
	// Driver is the database driver: "sqlite" or "postgres"
	Driver string `yaml:"driver"`

	// SQLite specific
	SQLitePath string `yaml:"sqlitePath"`

	// PostgreSQL specific
	PostgresHost     string `yaml:"postgresHost"`
	PostgresPort     int    `yaml:"postgresPort"`
	PostgresUser     string `yaml:"postgresUser"`
	PostgresPassword string `yaml:"postgresPassword"`
	PostgresDB       string `yaml:"postgresDB"`
	PostgresSSLMode  string `yaml:"postgresSSLMode"`

	// Connection pool settings
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`

	// SchemaDir holds *.sql scripts executed in name order on open.
	SchemaDir string `yaml:"schemaDir"`
}
