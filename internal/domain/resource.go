package domain

import (
	"context"
	"time"
)

// Resource is a loaded SQL statement.
type Resource struct {
	// Namespace is the declaring package path of the repository interface.
	Namespace string

	// Name is the resource file name, e.g. "AccountRepo.sql".
	Name string

	// SQL is the statement text with comments and the trailing semicolon removed.
	SQL string
}

// Location returns namespace/name.
func (r *Resource) Location() string {
	if r.Namespace == "" {
		return r.Name
	}
	return r.Namespace + "/" + r.Name
}

// Namespace looks SQL resources up by name.
// Load returns ErrResourceNotFound (possibly wrapped) when nothing matches.
type Namespace interface {
	Load(ctx context.Context, namespace, name string) (*Resource, error)
}

// NamespaceConfig holds configuration for resource namespace initialization.
type NamespaceConfig struct {
	// Type is the namespace type: "fs" or "redis"
	Type string `yaml:"type"`

	// Filesystem settings
	Root string `yaml:"root"`

	// Redis settings
	RedisAddr     string `yaml:"redisAddr"`
	RedisPassword string `yaml:"redisPassword"`
	RedisDB       int    `yaml:"redisDB"`

	// Local LRU in front of the namespace
	CacheSize int           `yaml:"cacheSize"`
	CacheTTL  time.Duration `yaml:"cacheTTL"`
}
