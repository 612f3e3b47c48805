// Package resource locates SQL resources bound to repository interfaces by
// naming convention.
package resource

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/opensource-finance/mirage/internal/domain"
)

// Extension is appended to an interface name to form its resource name.
const Extension = ".sql"

// Name returns the conventional resource name for a repository interface:
// the interface's simple name followed by ".sql".
func Name(interfaceName string) string {
	return interfaceName + Extension
}

// Binding is the outcome of a resource lookup. Found is false when the
// namespace had nothing under the requested name.
type Binding struct {
	Resource *domain.Resource
	Found    bool
}

// Bind loads name from ns. A missing resource yields a zero Binding and a nil
// error; every other failure is returned as is.
func Bind(ctx context.Context, ns domain.Namespace, namespace, name string) (Binding, error) {
	if ns == nil {
		return Binding{}, nil
	}

	res, err := ns.Load(ctx, namespace, name)
	if errors.Is(err, domain.ErrResourceNotFound) {
		return Binding{}, nil
	}
	if err != nil {
		return Binding{}, err
	}
	return Binding{Resource: res, Found: true}, nil
}

// Parse builds a Resource from raw file contents. "--" comments and a
// trailing semicolon are dropped. An empty statement, or one holding a
// semicolon outside quoted text, is malformed.
func Parse(namespace, name string, raw []byte) (*domain.Resource, error) {
	var b strings.Builder
	for _, line := range strings.Split(stripComments(string(raw)), "\n") {
		line = strings.TrimRight(line, " \t\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)
	}

	sql := strings.TrimSpace(b.String())
	sql = strings.TrimSpace(strings.TrimSuffix(sql, ";"))
	if sql == "" {
		return nil, fmt.Errorf("%w: %s/%s is empty", domain.ErrMalformedResource, namespace, name)
	}
	if strings.ContainsRune(unquoted(sql), ';') {
		return nil, fmt.Errorf("%w: %s/%s holds more than one statement", domain.ErrMalformedResource, namespace, name)
	}

	return &domain.Resource{Namespace: namespace, Name: name, SQL: sql}, nil
}

// stripComments removes "--" comments that start outside quoted text.
func stripComments(sql string) string {
	var b strings.Builder
	var quote byte
	for i := 0; i < len(sql); i++ {
		c := sql[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == '-' && i+1 < len(sql) && sql[i+1] == '-':
			for i < len(sql) && sql[i] != '\n' {
				i++
			}
			if i < len(sql) {
				b.WriteByte('\n')
			}
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

// unquoted returns sql with the contents of quoted literals and identifiers
// removed.
func unquoted(sql string) string {
	var b strings.Builder
	var quote byte
	for i := 0; i < len(sql); i++ {
		c := sql[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
			continue
		case c == '\'' || c == '"':
			quote = c
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

// New creates a namespace based on configuration, wrapped in an LRU when
// CacheSize is positive.
func New(cfg domain.NamespaceConfig) (domain.Namespace, error) {
	var ns domain.Namespace

	switch cfg.Type {
	case "fs":
		if cfg.Root == "" {
			return nil, fmt.Errorf("%w: resources root is required", domain.ErrInvalidConfiguration)
		}
		ns = NewDirNamespace(cfg.Root)

	case "redis":
		r, err := NewRedisNamespace(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, fmt.Errorf("failed to create redis namespace: %w", err)
		}
		ns = r

	default:
		return nil, fmt.Errorf("%w: unsupported resource namespace type: %s", domain.ErrInvalidConfiguration, cfg.Type)
	}

	if cfg.CacheSize > 0 {
		ns = NewCachedNamespace(ns, cfg.CacheSize, cfg.CacheTTL)
	}
	return ns, nil
}
