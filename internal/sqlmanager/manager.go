// Package sqlmanager provides the shared SQL executor handed to repositories.
package sqlmanager

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/opensource-finance/mirage/internal/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("mirage-sqlmanager")

// Manager implements domain.SQLManager using database/sql.
// Works with both SQLite and PostgreSQL drivers.
type Manager struct {
	db     *sql.DB
	driver string
	tracer trace.Tracer
}

// New opens a SQL manager based on configuration.
func New(cfg domain.SQLManagerConfig) (*Manager, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite":
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("%w: unsupported driver: %s", domain.ErrInvalidConfiguration, cfg.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	m := &Manager{
		db:     db,
		driver: cfg.Driver,
	}

	if cfg.SchemaDir != "" {
		if err := m.ApplySchemaDir(context.Background(), cfg.SchemaDir); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply schema: %w", err)
		}
	}

	return m, nil
}

// Wrap builds a manager around an already opened database.
func Wrap(db *sql.DB, driver string) *Manager {
	return &Manager{db: db, driver: driver}
}

// Exec runs a statement and returns the number of affected rows.
func (m *Manager) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	ctx, span := m.start(ctx, "Exec", query)
	defer span.End()

	result, err := m.db.ExecContext(ctx, m.rebind(query), args...)
	if err != nil {
		span.RecordError(err)
		return 0, err
	}
	return result.RowsAffected()
}

// Query runs a statement returning rows.
func (m *Manager) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	ctx, span := m.start(ctx, "Query", query)
	defer span.End()

	rows, err := m.db.QueryContext(ctx, m.rebind(query), args...)
	if err != nil {
		span.RecordError(err)
	}
	return rows, err
}

// QueryRow runs a statement expected to return at most one row. Its span
// stays open until the row is scanned.
func (m *Manager) QueryRow(ctx context.Context, query string, args ...any) domain.Row {
	ctx, span := m.start(ctx, "QueryRow", query)
	return &tracedRow{row: m.db.QueryRowContext(ctx, m.rebind(query), args...), span: span}
}

type tracedRow struct {
	row  *sql.Row
	span trace.Span
}

func (r *tracedRow) Scan(dest ...any) error {
	defer r.span.End()

	err := r.row.Scan(dest...)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		r.span.RecordError(err)
	}
	return err
}

// Driver returns the configured driver name.
func (m *Manager) Driver() string {
	return m.driver
}

// Ping checks database connectivity.
func (m *Manager) Ping(ctx context.Context) error {
	return m.db.PingContext(ctx)
}

// Close closes the database connection.
func (m *Manager) Close() error {
	return m.db.Close()
}

func (m *Manager) start(ctx context.Context, op, query string) (context.Context, trace.Span) {
	t := m.tracer
	if t == nil {
		t = tracer
	}
	return t.Start(ctx, "sqlmanager."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", m.driver),
			attribute.String("db.statement", query),
		),
	)
}

// rebind converts ? placeholders to $1, $2, etc. for PostgreSQL.
// Placeholders inside single-quoted literals are left alone.
func (m *Manager) rebind(query string) string {
	if m.driver != "postgres" {
		return query
	}

	var result []byte
	n := 1
	quoted := false
	for i := 0; i < len(query); i++ {
		switch {
		case query[i] == '\'':
			quoted = !quoted
			result = append(result, query[i])
		case query[i] == '?' && !quoted:
			result = append(result, '$')
			result = strconv.AppendInt(result, int64(n), 10)
			n++
		default:
			result = append(result, query[i])
		}
	}
	return string(result)
}

var _ domain.SQLManager = (*Manager)(nil)
