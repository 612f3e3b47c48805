package api

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/opensource-finance/mirage/internal/domain"
	"github.com/opensource-finance/mirage/internal/repository"
)

// Inspectable is the part of a built repository the API exposes.
// Every repository.Repository[T] satisfies it.
type Inspectable interface {
	Describe() repository.Descriptor
	BaseResource() *domain.Resource
	Count(ctx context.Context) (int64, error)
}

// Registry indexes built repositories by interface name.
type Registry struct {
	mu    sync.RWMutex
	repos map[string]Inspectable
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{repos: make(map[string]Inspectable)}
}

// Register adds repo under its interface name. Names must be unique.
func (g *Registry) Register(repo Inspectable) error {
	name := repo.Describe().Interface

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.repos[name]; ok {
		return fmt.Errorf("%w: repository %s already registered", domain.ErrInvalidInput, name)
	}
	g.repos[name] = repo
	return nil
}

// Get returns the repository registered under name.
func (g *Registry) Get(name string) (Inspectable, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	r, ok := g.repos[name]
	return r, ok
}

// Descriptors lists every registered repository sorted by interface name.
func (g *Registry) Descriptors() []repository.Descriptor {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]repository.Descriptor, 0, len(g.repos))
	for _, r := range g.repos {
		out = append(out, r.Describe())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Interface < out[j].Interface })
	return out
}

// Len returns the number of registered repositories.
func (g *Registry) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.repos)
}
