package sqlmanager

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/opensource-finance/mirage/internal/domain"
	_ "modernc.org/sqlite"
)

const memoryPath = ":memory:"

// openSQLite opens a SQLite database through the pure Go modernc.org/sqlite driver.
// The special path ":memory:" opens a private in-memory database pinned to one connection.
func openSQLite(cfg domain.SQLManagerConfig) (*sql.DB, error) {
	path := cfg.SQLitePath
	if path == "" {
		path = "./mirage.db"
	}

	if path == memoryPath {
		db, err := sql.Open("sqlite", memoryPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite memory database: %w", err)
		}
		// every new connection would see an empty database
		db.SetMaxOpenConns(1)
		return db, nil
	}

	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database %s: %w", path, err)
	}

	return db, nil
}
