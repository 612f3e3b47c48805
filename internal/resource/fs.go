package resource

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"

	"github.com/opensource-finance/mirage/internal/domain"
)

// FSNamespace reads resources from a file system laid out by package path:
// the resource for github.com/acme/app/store.AccountRepo lives at
// github.com/acme/app/store/AccountRepo.sql. Works with os.DirFS and embed.FS.
type FSNamespace struct {
	fsys fs.FS
}

// NewFSNamespace creates a namespace over fsys.
func NewFSNamespace(fsys fs.FS) *FSNamespace {
	return &FSNamespace{fsys: fsys}
}

// NewDirNamespace creates a namespace rooted at a directory on disk.
func NewDirNamespace(root string) *FSNamespace {
	return NewFSNamespace(os.DirFS(root))
}

// Load reads namespace/name.
func (n *FSNamespace) Load(ctx context.Context, namespace, name string) (*domain.Resource, error) {
	p := path.Join(namespace, name)
	if namespace == "" {
		p = name
	}

	raw, err := fs.ReadFile(n.fsys, p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", domain.ErrResourceNotFound, p)
	}
	if err != nil {
		return nil, fmt.Errorf("read sql resource %s: %w", p, err)
	}

	return Parse(namespace, name, raw)
}

var _ domain.Namespace = (*FSNamespace)(nil)
