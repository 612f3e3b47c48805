// Package query resolves repository query methods to SQL statements.
package query

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/opensource-finance/mirage/internal/domain"
)

// ErrNoDeclaredQuery is returned when a method has no declared statement
// and the strategy is not allowed to derive one.
var ErrNoDeclaredQuery = errors.New("no declared query")

// Key selects how query methods are resolved.
type Key int

const (
	// KeyCreate derives every statement from the method name.
	KeyCreate Key = iota

	// KeyUseDeclaredQuery only accepts declared statements.
	KeyUseDeclaredQuery

	// KeyCreateIfNotFound prefers declared statements and derives otherwise.
	KeyCreateIfNotFound
)

var keyNames = map[Key]string{
	KeyCreate:           "create",
	KeyUseDeclaredQuery: "use-declared-query",
	KeyCreateIfNotFound: "create-if-not-found",
}

// String returns the configuration name of the key.
func (k Key) String() string {
	if s, ok := keyNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Key(%d)", int(k))
}

// ParseKey parses a configuration value. The empty string means
// create-if-not-found.
func ParseKey(s string) (Key, error) {
	if s == "" {
		return KeyCreateIfNotFound, nil
	}
	for k, name := range keyNames {
		if strings.EqualFold(s, name) {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown query lookup key %q", domain.ErrInvalidConfiguration, s)
}

// Method describes a repository query method.
type Method struct {
	// Name is the Go method name, e.g. "FindByNameAndStatus".
	Name string

	// Declared is the statement attached to the method, if any.
	Declared string

	Entity *domain.EntityInformation

	// DeletedColumn is the soft-delete flag of a logical-delete repository.
	// When set, derived statements skip flagged rows and DeleteBy flags
	// rows instead of removing them.
	DeletedColumn string
}

// Extractor pulls a statement for a method from somewhere other than the
// method declaration. It is optional.
type Extractor interface {
	Extract(m Method) (sql string, ok bool)
}

// Query is a resolved statement.
type Query struct {
	Method string
	SQL    string

	// Params is the number of positional parameters in SQL; -1 when unknown.
	Params int

	// Derived is true when SQL was built from the method name.
	Derived bool
}

// Strategy resolves methods to queries.
type Strategy interface {
	Resolve(m Method) (*Query, error)
	Key() Key
	SQLManager() domain.SQLManager
}

// Create returns the strategy for key bound to sm. extractor may be nil.
func Create(sm domain.SQLManager, key Key, extractor Extractor) Strategy {
	return &lookupStrategy{sm: sm, key: key, extractor: extractor}
}

type lookupStrategy struct {
	sm        domain.SQLManager
	key       Key
	extractor Extractor
}

func (s *lookupStrategy) Key() Key                      { return s.key }
func (s *lookupStrategy) SQLManager() domain.SQLManager { return s.sm }

func (s *lookupStrategy) Resolve(m Method) (*Query, error) {
	switch s.key {
	case KeyCreate:
		return derive(m)
	case KeyUseDeclaredQuery:
		if q, ok := s.declared(m); ok {
			return q, nil
		}
		return nil, fmt.Errorf("%w: %s", ErrNoDeclaredQuery, m.Name)
	case KeyCreateIfNotFound:
		if q, ok := s.declared(m); ok {
			return q, nil
		}
		return derive(m)
	default:
		return nil, fmt.Errorf("%w: unknown query lookup key %d", domain.ErrInvalidConfiguration, int(s.key))
	}
}

func (s *lookupStrategy) declared(m Method) (*Query, bool) {
	sql := strings.TrimSpace(m.Declared)
	if sql == "" && s.extractor != nil {
		if extracted, ok := s.extractor.Extract(m); ok {
			sql = strings.TrimSpace(extracted)
		}
	}
	if sql == "" {
		return nil, false
	}
	return &Query{Method: m.Name, SQL: sql, Params: -1}, true
}

var prefixes = []struct {
	prefix string
	build  func(info *domain.EntityInformation, where string) string
}{
	{"FindBy", func(info *domain.EntityInformation, where string) string {
		return "SELECT " + strings.Join(info.ColumnNames(), ", ") + " FROM " + info.Table + " WHERE " + where
	}},
	{"CountBy", func(info *domain.EntityInformation, where string) string {
		return "SELECT COUNT(*) FROM " + info.Table + " WHERE " + where
	}},
	{"ExistsBy", func(info *domain.EntityInformation, where string) string {
		return "SELECT 1 FROM " + info.Table + " WHERE " + where + " LIMIT 1"
	}},
	{"DeleteBy", func(info *domain.EntityInformation, where string) string {
		return "DELETE FROM " + info.Table + " WHERE " + where
	}},
}

// derive builds a statement from a method name such as FindByNameAndStatus.
// Properties are struct field names of the entity joined by "And".
func derive(m Method) (*Query, error) {
	if m.Entity == nil {
		return nil, fmt.Errorf("%w: %s has no entity information", domain.ErrInvalidInput, m.Name)
	}

	for _, p := range prefixes {
		rest, ok := strings.CutPrefix(m.Name, p.prefix)
		if !ok || rest == "" {
			continue
		}

		props := strings.Split(rest, "And")
		conds := make([]string, 0, len(props))
		for _, prop := range props {
			col, err := columnFor(m.Entity, prop)
			if err != nil {
				return nil, fmt.Errorf("derive %s: %w", m.Name, err)
			}
			conds = append(conds, col+" = ?")
		}

		sql := p.build(m.Entity, strings.Join(conds, " AND "))
		if m.DeletedColumn != "" {
			live := " AND " + m.DeletedColumn + " = FALSE"
			if p.prefix == "DeleteBy" {
				sql = "UPDATE " + m.Entity.Table + " SET " + m.DeletedColumn + " = TRUE WHERE " + strings.Join(conds, " AND ") + live
			} else {
				sql = p.build(m.Entity, strings.Join(conds, " AND ")+live)
			}
		}

		return &Query{
			Method:  m.Name,
			SQL:     sql,
			Params:  len(conds),
			Derived: true,
		}, nil
	}

	return nil, fmt.Errorf("%w: cannot derive a query from method %s", domain.ErrInvalidInput, m.Name)
}

func columnFor(info *domain.EntityInformation, field string) (string, error) {
	if info.DomainType != nil {
		if f, ok := info.DomainType.FieldByName(field); ok {
			for _, c := range info.Columns {
				if reflect.DeepEqual(c.Index, f.Index) {
					return c.Name, nil
				}
			}
		}
	}
	return "", fmt.Errorf("%w: %s has no property %s", domain.ErrInvalidInput, info.EntityName(), field)
}
