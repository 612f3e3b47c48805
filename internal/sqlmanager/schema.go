package sqlmanager

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
)

// ApplySchemaDir executes every *.sql script found in dir, in file name order.
func (m *Manager) ApplySchemaDir(ctx context.Context, dir string) error {
	return m.ApplySchema(ctx, os.DirFS(dir), ".")
}

// ApplySchema executes every *.sql script under root of fsys, in file name order.
// Scripts may hold several statements; both drivers accept them in one call.
func (m *Manager) ApplySchema(ctx context.Context, fsys fs.FS, root string) error {
	entries, err := fs.ReadDir(fsys, root)
	if err != nil {
		return fmt.Errorf("read schema dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		script, err := fs.ReadFile(fsys, path.Join(root, name))
		if err != nil {
			return fmt.Errorf("read schema %s: %w", name, err)
		}
		if strings.TrimSpace(string(script)) == "" {
			continue
		}
		if _, err := m.db.ExecContext(ctx, string(script)); err != nil {
			return fmt.Errorf("apply schema %s: %w", name, err)
		}
	}
	return nil
}
