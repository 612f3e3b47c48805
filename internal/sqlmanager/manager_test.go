package sqlmanager

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/opensource-finance/mirage/internal/domain"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

func TestSQLiteManager(t *testing.T) {
	tmpDir := t.TempDir()

	cfg := domain.SQLManagerConfig{
		Driver:     "sqlite",
		SQLitePath: filepath.Join(tmpDir, "mirage-test.db"),
	}

	m, err := New(cfg)
	if err != nil {
		t.Fatalf("failed to create sql manager: %v", err)
	}
	defer m.Close()

	ctx := context.Background()

	t.Run("Ping", func(t *testing.T) {
		if err := m.Ping(ctx); err != nil {
			t.Errorf("Ping failed: %v", err)
		}
	})

	t.Run("Driver", func(t *testing.T) {
		if m.Driver() != "sqlite" {
			t.Errorf("expected driver sqlite, got %s", m.Driver())
		}
	})

	t.Run("ExecAndQuery", func(t *testing.T) {
		if _, err := m.Exec(ctx, `CREATE TABLE accounts (id TEXT PRIMARY KEY, name TEXT NOT NULL)`); err != nil {
			t.Fatalf("create table failed: %v", err)
		}

		n, err := m.Exec(ctx, `INSERT INTO accounts (id, name) VALUES (?, ?), (?, ?)`, "a-1", "alice", "a-2", "bob")
		if err != nil {
			t.Fatalf("insert failed: %v", err)
		}
		if n != 2 {
			t.Errorf("expected 2 affected rows, got %d", n)
		}

		rows, err := m.Query(ctx, `SELECT name FROM accounts ORDER BY name`)
		if err != nil {
			t.Fatalf("query failed: %v", err)
		}
		defer rows.Close()

		var names []string
		for rows.Next() {
			var name string
			if err := rows.Scan(&name); err != nil {
				t.Fatalf("scan failed: %v", err)
			}
			names = append(names, name)
		}
		if strings.Join(names, ",") != "alice,bob" {
			t.Errorf("expected alice,bob, got %v", names)
		}
	})

	t.Run("QueryRow", func(t *testing.T) {
		var name string
		if err := m.QueryRow(ctx, `SELECT name FROM accounts WHERE id = ?`, "a-2").Scan(&name); err != nil {
			t.Fatalf("QueryRow failed: %v", err)
		}
		if name != "bob" {
			t.Errorf("expected bob, got %s", name)
		}
	})
}

func TestMemoryDatabase(t *testing.T) {
	m, err := New(domain.SQLManagerConfig{Driver: "sqlite", SQLitePath: ":memory:"})
	if err != nil {
		t.Fatalf("failed to open memory database: %v", err)
	}
	defer m.Close()

	ctx := context.Background()
	if _, err := m.Exec(ctx, `CREATE TABLE t (id INTEGER)`); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := m.Exec(ctx, `INSERT INTO t (id) VALUES (1)`); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	var count int
	if err := m.QueryRow(ctx, `SELECT COUNT(*) FROM t`).Scan(&count); err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 row, got %d", count)
	}
}

func TestSchemaDir(t *testing.T) {
	dir := t.TempDir()
	scripts := map[string]string{
		"001_accounts.sql": "CREATE TABLE accounts (id TEXT PRIMARY KEY);",
		"002_orders.sql":   "CREATE TABLE orders (id TEXT PRIMARY KEY, account_id TEXT REFERENCES accounts(id));\nCREATE INDEX idx_orders_account ON orders(account_id);",
		"README.md":        "not a script",
	}
	for name, body := range scripts {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0644); err != nil {
			t.Fatal(err)
		}
	}

	m, err := New(domain.SQLManagerConfig{
		Driver:     "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "schema.db"),
		SchemaDir:  dir,
	})
	if err != nil {
		t.Fatalf("New with schema dir failed: %v", err)
	}
	defer m.Close()

	var count int
	err = m.QueryRow(context.Background(),
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN ('accounts', 'orders')`).Scan(&count)
	if err != nil {
		t.Fatalf("inspect schema failed: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 tables, got %d", count)
	}
}

func TestApplySchemaError(t *testing.T) {
	m, err := New(domain.SQLManagerConfig{Driver: "sqlite", SQLitePath: ":memory:"})
	if err != nil {
		t.Fatal(err)
	}
	defer m.Close()

	fsys := fstest.MapFS{
		"schema/001_bad.sql": {Data: []byte("CREATE TABL nope")},
	}
	err = m.ApplySchema(context.Background(), fsys, "schema")
	if err == nil || !strings.Contains(err.Error(), "001_bad.sql") {
		t.Errorf("expected error naming the script, got %v", err)
	}
}

func TestUnsupportedDriver(t *testing.T) {
	_, err := New(domain.SQLManagerConfig{Driver: "mysql"})
	if err == nil {
		t.Fatal("expected error for unsupported driver")
	}
	if !errors.Is(err, domain.ErrInvalidConfiguration) {
		t.Errorf("expected ErrInvalidConfiguration, got %v", err)
	}
}

func TestRebind(t *testing.T) {
	m := &Manager{driver: "postgres"}

	tests := []struct {
		input    string
		expected string
	}{
		{"SELECT * FROM t WHERE id = ?", "SELECT * FROM t WHERE id = $1"},
		{"INSERT INTO t (a, b) VALUES (?, ?)", "INSERT INTO t (a, b) VALUES ($1, $2)"},
		{"SELECT * FROM t", "SELECT * FROM t"},
		{"SELECT '?' FROM t WHERE a = ?", "SELECT '?' FROM t WHERE a = $1"},
	}

	for _, tt := range tests {
		result := m.rebind(tt.input)
		if result != tt.expected {
			t.Errorf("rebind(%q) = %q, want %q", tt.input, result, tt.expected)
		}
	}

	sqlite := &Manager{driver: "sqlite"}
	if got := sqlite.rebind("SELECT ?"); got != "SELECT ?" {
		t.Errorf("sqlite rebind changed query: %q", got)
	}
}

func TestPostgresDSN(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		got := postgresDSN(domain.SQLManagerConfig{})
		want := "postgres://localhost:5432/mirage?sslmode=disable"
		if got != want {
			t.Errorf("postgresDSN() = %q, want %q", got, want)
		}
	})

	t.Run("Credentials", func(t *testing.T) {
		got := postgresDSN(domain.SQLManagerConfig{
			PostgresHost:     "db",
			PostgresPort:     6543,
			PostgresUser:     "app",
			PostgresPassword: "p@ss",
			PostgresDB:       "ledger",
			PostgresSSLMode:  "require",
		})
		want := "postgres://app:p%40ss@db:6543/ledger?sslmode=require"
		if got != want {
			t.Errorf("postgresDSN() = %q, want %q", got, want)
		}
	})
}

// recordingSpan remembers whether it ended and which errors it recorded.
type recordingSpan struct {
	noop.Span
	ended  bool
	errors []error
}

func (s *recordingSpan) End(...trace.SpanEndOption) { s.ended = true }
func (s *recordingSpan) RecordError(err error, _ ...trace.EventOption) {
	s.errors = append(s.errors, err)
}

type recordingTracer struct {
	noop.Tracer
	spans []*recordingSpan
}

func (t *recordingTracer) Start(ctx context.Context, _ string, _ ...trace.SpanStartOption) (context.Context, trace.Span) {
	s := &recordingSpan{}
	t.spans = append(t.spans, s)
	return trace.ContextWithSpan(ctx, s), s
}

func TestQueryRowSpan(t *testing.T) {
	m, err := New(domain.SQLManagerConfig{Driver: "sqlite", SQLitePath: ":memory:"})
	if err != nil {
		t.Fatal(err)
	}
	defer m.Close()

	tr := &recordingTracer{}
	m.tracer = tr
	ctx := context.Background()

	t.Run("EndsOnScan", func(t *testing.T) {
		row := m.QueryRow(ctx, `SELECT 'abc'`)
		span := tr.spans[len(tr.spans)-1]
		if span.ended {
			t.Fatal("expected span to stay open until Scan")
		}

		var n int
		if err := row.Scan(&n); err == nil {
			t.Fatal("expected scanning text into an int to fail")
		}
		if !span.ended {
			t.Error("expected span to end after Scan")
		}
		if len(span.errors) != 1 {
			t.Errorf("expected the scan error to be recorded, got %v", span.errors)
		}
	})

	t.Run("NoRowsIsNotRecorded", func(t *testing.T) {
		var n int
		err := m.QueryRow(ctx, `SELECT 1 WHERE 1 = 0`).Scan(&n)
		if !errors.Is(err, sql.ErrNoRows) {
			t.Fatalf("expected sql.ErrNoRows, got %v", err)
		}
		span := tr.spans[len(tr.spans)-1]
		if !span.ended || len(span.errors) != 0 {
			t.Errorf("expected an ended span without errors, got ended=%v errors=%v", span.ended, span.errors)
		}
	})
}
