// Package metadata derives entity information from struct declarations.
//
// Columns come from `db` struct tags:
//
//	type Account struct {
//		ID      string `db:"id,id"`
//		Name    string `db:"name"`
//		Deleted bool   `db:"deleted,deleted"`
//		Scratch string `db:"-"`
//	}
//
// The ",id" option marks the identifier; a field named ID is used when no
// field carries it. The ",deleted" option marks the soft-delete flag. Fields
// without a tag map to their snake_case name. The table is the snake_case
// plural of the type name unless the entity implements domain.Tabler.
package metadata

import (
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/opensource-finance/mirage/internal/cache"
	"github.com/opensource-finance/mirage/internal/domain"
)

// Resolver builds domain.EntityInformation by inspecting struct fields.
type Resolver struct{}

// NewResolver creates a resolver.
func NewResolver() *Resolver {
	return &Resolver{}
}

// Resolve inspects domainType. Pointer types are dereferenced.
func (r *Resolver) Resolve(domainType reflect.Type, sm domain.SQLManager) (*domain.EntityInformation, error) {
	if domainType == nil {
		return nil, fmt.Errorf("%w: nil domain type", domain.ErrMetadataUnavailable)
	}
	for domainType.Kind() == reflect.Pointer {
		domainType = domainType.Elem()
	}
	if domainType.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %s is not a struct", domain.ErrMetadataUnavailable, domainType)
	}

	info := &domain.EntityInformation{
		DomainType: domainType,
		Table:      tableName(domainType),
	}

	fallbackID := -1
	for i := 0; i < domainType.NumField(); i++ {
		f := domainType.Field(i)
		if !f.IsExported() {
			continue
		}

		name, opts := parseTag(f.Tag.Get("db"))
		if name == "-" {
			continue
		}
		if name == "" {
			name = snakeCase(f.Name)
		}

		col := domain.Column{Name: name, Index: f.Index}
		if opts["id"] {
			if info.IDColumn != "" {
				return nil, fmt.Errorf("%w: %s declares more than one id column", domain.ErrMetadataUnavailable, domainType)
			}
			col.ID = true
			info.IDColumn = name
			info.IDType = f.Type
		}
		if opts["deleted"] {
			info.DeletedColumn = name
		}
		info.Columns = append(info.Columns, col)

		if f.Name == "ID" {
			fallbackID = len(info.Columns) - 1
		}
	}

	if info.IDColumn == "" {
		if fallbackID < 0 {
			return nil, fmt.Errorf("%w: %s has no id column", domain.ErrMetadataUnavailable, domainType)
		}
		col := &info.Columns[fallbackID]
		col.ID = true
		info.IDColumn = col.Name
		info.IDType = domainType.FieldByIndex(col.Index).Type
	}

	return info, nil
}

// CachingResolver resolves each (domain type, SQL manager) pair once.
type CachingResolver struct {
	next  domain.MetadataResolver
	local *cache.LRU[cacheKey, *domain.EntityInformation]
}

type cacheKey struct {
	domainType reflect.Type
	sm         domain.SQLManager
}

// NewCachingResolver wraps next with an LRU of the given size.
func NewCachingResolver(next domain.MetadataResolver, size int) *CachingResolver {
	return &CachingResolver{
		next:  next,
		local: cache.NewLRU[cacheKey, *domain.EntityInformation](size),
	}
}

// Resolve returns the cached information or asks the wrapped resolver.
// Failures are not cached.
func (r *CachingResolver) Resolve(domainType reflect.Type, sm domain.SQLManager) (*domain.EntityInformation, error) {
	key := cacheKey{domainType: domainType, sm: sm}
	if info, ok := r.local.Get(key); ok {
		return info, nil
	}

	info, err := r.next.Resolve(domainType, sm)
	if err != nil {
		return nil, err
	}

	r.local.Set(key, info, 0)
	return info, nil
}

var (
	_ domain.MetadataResolver = (*Resolver)(nil)
	_ domain.MetadataResolver = (*CachingResolver)(nil)
)

var tablerType = reflect.TypeFor[domain.Tabler]()

func tableName(t reflect.Type) string {
	if t.Implements(tablerType) {
		return reflect.Zero(t).Interface().(domain.Tabler).TableName()
	}
	if reflect.PointerTo(t).Implements(tablerType) {
		return reflect.New(t).Interface().(domain.Tabler).TableName()
	}
	return plural(snakeCase(t.Name()))
}

func plural(name string) string {
	switch {
	case strings.HasSuffix(name, "s"), strings.HasSuffix(name, "x"), strings.HasSuffix(name, "ch"):
		return name + "es"
	case len(name) > 1 && strings.HasSuffix(name, "y") && !strings.ContainsRune("aeiou", rune(name[len(name)-2])):
		return name[:len(name)-1] + "ies"
	}
	return name + "s"
}

func parseTag(tag string) (string, map[string]bool) {
	parts := strings.Split(tag, ",")
	opts := make(map[string]bool, len(parts)-1)
	for _, o := range parts[1:] {
		opts[strings.TrimSpace(o)] = true
	}
	return strings.TrimSpace(parts[0]), opts
}

// snakeCase converts CamelCase to snake_case, keeping acronyms together:
// AccountID -> account_id, HTTPStatus -> http_status.
func snakeCase(s string) string {
	runes := []rune(s)
	var b strings.Builder
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 {
				prev := runes[i-1]
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
					b.WriteByte('_')
				}
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
