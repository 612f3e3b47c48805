package resource

import (
	"context"
	"io"
	"time"

	"github.com/opensource-finance/mirage/internal/cache"
	"github.com/opensource-finance/mirage/internal/domain"
)

// CachedNamespace keeps loaded resources in a local LRU in front of another
// namespace. Misses and failures are never cached, so a resource published
// later is picked up on the next lookup.
type CachedNamespace struct {
	next  domain.Namespace
	local *cache.LRU[string, *domain.Resource]
	ttl   time.Duration
}

// NewCachedNamespace wraps next with an LRU of the given size.
func NewCachedNamespace(next domain.Namespace, size int, ttl time.Duration) *CachedNamespace {
	return &CachedNamespace{
		next:  next,
		local: cache.NewLRU[string, *domain.Resource](size),
		ttl:   ttl,
	}
}

// Load checks the LRU first, then the wrapped namespace. Populates the LRU on hit.
func (n *CachedNamespace) Load(ctx context.Context, namespace, name string) (*domain.Resource, error) {
	key := namespace + "/" + name
	if res, ok := n.local.Get(key); ok {
		return res, nil
	}

	res, err := n.next.Load(ctx, namespace, name)
	if err != nil {
		return nil, err
	}

	n.local.Set(key, res, n.ttl)
	return res, nil
}

// Invalidate drops a cached resource.
func (n *CachedNamespace) Invalidate(namespace, name string) {
	n.local.Delete(namespace + "/" + name)
}

// Stats returns LRU statistics.
func (n *CachedNamespace) Stats() (size int, capacity int) {
	return n.local.Stats()
}

// Ping checks the wrapped namespace when it supports health checks.
func (n *CachedNamespace) Ping(ctx context.Context) error {
	if p, ok := n.next.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Close purges the LRU and closes the wrapped namespace when it holds a
// connection.
func (n *CachedNamespace) Close() error {
	n.local.Purge()
	if c, ok := n.next.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

var _ domain.Namespace = (*CachedNamespace)(nil)
