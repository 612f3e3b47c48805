package resource

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"strings"
)

// Store is implemented by namespaces that accept new resources.
type Store interface {
	Store(ctx context.Context, namespace, name, sql string) error
}

// Publish copies every *.sql file of fsys into dst, keeping the directory as
// the namespace. Files are parsed first so a malformed resource is never
// published. It returns the number of resources stored.
func Publish(ctx context.Context, dst Store, fsys fs.FS) (int, error) {
	n := 0
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(p, Extension) {
			return nil
		}

		namespace, name := path.Split(p)
		namespace = strings.TrimSuffix(namespace, "/")

		raw, err := fs.ReadFile(fsys, p)
		if err != nil {
			return fmt.Errorf("read sql resource %s: %w", p, err)
		}
		res, err := Parse(namespace, name, raw)
		if err != nil {
			return err
		}

		if err := dst.Store(ctx, res.Namespace, res.Name, res.SQL); err != nil {
			return fmt.Errorf("publish %s: %w", res.Location(), err)
		}
		n++
		return nil
	})
	return n, err
}

var _ Store = (*RedisNamespace)(nil)
