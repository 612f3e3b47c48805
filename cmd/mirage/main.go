// Mirage - SQL repositories built from declared Go interfaces.

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/opensource-finance/mirage/internal/api"
	"github.com/opensource-finance/mirage/internal/config"
	"github.com/opensource-finance/mirage/internal/domain"
	"github.com/opensource-finance/mirage/internal/ledger"
	"github.com/opensource-finance/mirage/internal/metadata"
	"github.com/opensource-finance/mirage/internal/query"
	"github.com/opensource-finance/mirage/internal/repository"
	"github.com/opensource-finance/mirage/internal/resource"
	"github.com/opensource-finance/mirage/internal/sqlmanager"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Logging, os.Stdout)
	slog.SetDefault(logger)

	slog.Info("starting mirage",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)

	if len(os.Args) > 1 && os.Args[1] == "publish" {
		dir := "./sql"
		if len(os.Args) > 2 {
			dir = os.Args[2]
		}
		if err := publish(cfg.Resources, dir); err != nil {
			slog.Error("failed to publish sql resources", "error", err)
			os.Exit(1)
		}
		return
	}

	slog.Info("configuration loaded",
		"sql_driver", cfg.SQLManager.Driver,
		"resources", cfg.Resources.Type,
		"query_lookup", cfg.QueryLookup,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Initialize SQL manager
	sm, err := sqlmanager.New(cfg.SQLManager)
	if err != nil {
		slog.Error("failed to initialize sql manager", "error", err)
		os.Exit(1)
	}
	defer sm.Close()
	slog.Info("sql manager initialized", "driver", sm.Driver())

	if err := ledger.ApplySchema(ctx, sm); err != nil {
		slog.Error("failed to apply ledger schema", "error", err)
		os.Exit(1)
	}

	// Initialize resource namespace
	resources, err := resource.New(cfg.Resources)
	if err != nil {
		slog.Error("failed to initialize resource namespace", "error", err)
		os.Exit(1)
	}
	if c, ok := resources.(io.Closer); ok {
		defer c.Close()
	}
	slog.Info("resource namespace initialized", "type", cfg.Resources.Type, "cache_size", cfg.Resources.CacheSize)

	// Build repositories
	lookup, err := query.ParseKey(cfg.QueryLookup)
	if err != nil {
		slog.Error("invalid query lookup", "error", err)
		os.Exit(1)
	}

	factory, err := repository.NewFactory(sm,
		repository.WithNamespace(resources),
		repository.WithResolver(metadata.NewCachingResolver(metadata.NewResolver(), 256)),
		repository.WithLogger(logger),
	)
	if err != nil {
		slog.Error("failed to initialize repository factory", "error", err)
		os.Exit(1)
	}

	store, err := ledger.Open(ctx, factory, lookup)
	if err != nil {
		slog.Error("failed to build repositories", "error", err)
		os.Exit(1)
	}

	registry := api.NewRegistry()
	for _, r := range []api.Inspectable{store.Accounts, store.Orders, store.Audit} {
		if err := registry.Register(r); err != nil {
			slog.Error("failed to register repository", "error", err)
			os.Exit(1)
		}
		d := r.Describe()
		slog.Info("repository built",
			"interface", d.Interface,
			"variant", d.Variant,
			"resource_bound", d.ResourceBound,
		)
	}

	// Initialize Server
	srv := api.NewServer(cfg.Server, sm, resources, registry, Version)

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("mirage is ready",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	printBanner(cfg, registry, Version)

	<-ctx.Done()
	slog.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("mirage shutdown complete")
}

// newLogger builds the process logger. Settings were validated by config.Load.
func newLogger(cfg domain.LoggingConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// publish copies the SQL resources under dir into the configured Redis
// namespace so every instance sharing it sees the same statements.
func publish(cfg domain.NamespaceConfig, dir string) error {
	dst, err := resource.NewRedisNamespace(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return err
	}
	defer dst.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	n, err := resource.Publish(ctx, dst, os.DirFS(dir))
	if err != nil {
		return err
	}
	slog.Info("sql resources published", "dir", dir, "count", n, "redis", cfg.RedisAddr)
	return nil
}

func printBanner(cfg *domain.Config, registry *api.Registry, version string) {
	fmt.Println()
	fmt.Println("  MIRAGE")
	fmt.Println("  SQL repositories from declared interfaces")
	fmt.Println()
	fmt.Printf("  Version:  %s\n", version)
	fmt.Printf("  Database: %s\n", cfg.SQLManager.Driver)
	fmt.Printf("  Server:   http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()
	fmt.Println("  Repositories:")
	for _, d := range registry.Descriptors() {
		fmt.Printf("    %-20s %-15s %s\n", d.Interface, d.Variant, d.Table)
	}
	fmt.Println()
	fmt.Println("  Endpoints:")
	fmt.Println("    GET  /health                   - Health check")
	fmt.Println("    GET  /ready                    - Readiness check")
	fmt.Println("    GET  /repositories             - List built repositories")
	fmt.Println("    GET  /repositories/{name}      - Inspect a repository (?count=true)")
	fmt.Println()
}
