package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/opensource-finance/mirage/internal/domain"
	"github.com/opensource-finance/mirage/internal/filter"
)

// Repository is the generic CRUD contract every variant provides.
type Repository[T any] interface {
	FindOne(ctx context.Context, id any) (*T, error)
	Exists(ctx context.Context, id any) (bool, error)
	FindAll(ctx context.Context) ([]*T, error)

	// FindWhere returns the entities matching a CEL predicate over their columns.
	FindWhere(ctx context.Context, expr string) ([]*T, error)

	Count(ctx context.Context) (int64, error)
	Save(ctx context.Context, entity *T) error
	Delete(ctx context.Context, id any) error
	DeleteAll(ctx context.Context) error

	Variant() Variant
	Info() *domain.EntityInformation

	// BaseResource is the SQL resource reads select from, nil when none was found.
	BaseResource() *domain.Resource

	Describe() Descriptor
}

// Descriptor summarizes a built repository.
type Descriptor struct {
	Interface     string `json:"interface"`
	Namespace     string `json:"namespace"`
	Entity        string `json:"entity"`
	Table         string `json:"table"`
	IDColumn      string `json:"idColumn"`
	Variant       string `json:"variant"`
	Resource      string `json:"resource,omitempty"`
	ResourceBound bool   `json:"resourceBound"`
}

// SQLRepository is the default variant: plain CRUD over the entity's table.
type SQLRepository[T any] struct {
	iface   Interface
	info    *domain.EntityInformation
	sm      domain.SQLManager
	variant Variant
	base    *domain.Resource

	// scope is an extra condition applied to every read, with its arguments.
	scope     string
	scopeArgs []any

	filterOnce sync.Once
	filters    *filter.Compiler
	filterErr  error
}

// NewSQLRepository creates the default variant.
func NewSQLRepository[T any](iface Interface, info *domain.EntityInformation, sm domain.SQLManager) *SQLRepository[T] {
	return &SQLRepository[T]{
		iface:   iface,
		info:    info,
		sm:      sm,
		variant: VariantDefault,
	}
}

// FindOne returns the entity with the given id or domain.ErrNotFound.
func (r *SQLRepository[T]) FindOne(ctx context.Context, id any) (*T, error) {
	where, args := r.where(r.info.IDColumn+" = ?", id)
	query := "SELECT " + r.columnList() + " FROM " + r.source() + where

	rows, err := r.sm.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, domain.ErrNotFound
	}

	entity, err := r.scan(rows)
	if err != nil {
		return nil, err
	}
	return entity, nil
}

// Exists reports whether an entity with the given id is visible.
func (r *SQLRepository[T]) Exists(ctx context.Context, id any) (bool, error) {
	where, args := r.where(r.info.IDColumn+" = ?", id)
	query := "SELECT COUNT(*) FROM " + r.source() + where

	var n int64
	if err := r.sm.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// FindAll returns every visible entity ordered by id.
func (r *SQLRepository[T]) FindAll(ctx context.Context) ([]*T, error) {
	where, args := r.where("")
	return r.list(ctx, r.source(), where, args)
}

// FindWhere loads every visible entity and keeps those matching expr.
func (r *SQLRepository[T]) FindWhere(ctx context.Context, expr string) ([]*T, error) {
	r.filterOnce.Do(func() {
		r.filters, r.filterErr = filter.NewCompiler(r.info)
	})
	if r.filterErr != nil {
		return nil, r.filterErr
	}

	pred, err := r.filters.Compile(expr)
	if err != nil {
		return nil, err
	}

	all, err := r.FindAll(ctx)
	if err != nil {
		return nil, err
	}

	var matched []*T
	for _, e := range all {
		ok, err := pred.Match(r.row(e))
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, e)
		}
	}
	return matched, nil
}

// Count returns the number of visible entities.
func (r *SQLRepository[T]) Count(ctx context.Context) (int64, error) {
	where, args := r.where("")

	var n int64
	if err := r.sm.QueryRow(ctx, "SELECT COUNT(*) FROM "+r.source()+where, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// Save inserts the entity or, when its id already exists, overwrites it.
// Entities with a zero integer id get one assigned by the database.
func (r *SQLRepository[T]) Save(ctx context.Context, entity *T) error {
	if entity == nil {
		return fmt.Errorf("%w: entity is required", domain.ErrInvalidInput)
	}
	if r.idField(entity).IsZero() {
		return r.insert(ctx, entity)
	}

	cols := r.info.ColumnNames()
	var sets []string
	for _, c := range cols {
		if c != r.info.IDColumn {
			sets = append(sets, c+" = excluded."+c)
		}
	}

	query := r.insertSQL() + " ON CONFLICT (" + r.info.IDColumn + ")"
	if len(sets) == 0 {
		query += " DO NOTHING"
	} else {
		query += " DO UPDATE SET " + strings.Join(sets, ", ")
	}

	_, err := r.sm.Exec(ctx, query, r.values(entity)...)
	return err
}

// Delete removes the entity with the given id.
func (r *SQLRepository[T]) Delete(ctx context.Context, id any) error {
	return r.deleteRow(ctx, id)
}

func (r *SQLRepository[T]) deleteRow(ctx context.Context, id any) error {
	n, err := r.sm.Exec(ctx, "DELETE FROM "+r.info.Table+" WHERE "+r.info.IDColumn+" = ?", id)
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// DeleteAll removes every entity of the table.
func (r *SQLRepository[T]) DeleteAll(ctx context.Context) error {
	_, err := r.sm.Exec(ctx, "DELETE FROM "+r.info.Table)
	return err
}

func (r *SQLRepository[T]) Variant() Variant                { return r.variant }
func (r *SQLRepository[T]) Info() *domain.EntityInformation { return r.info }
func (r *SQLRepository[T]) BaseResource() *domain.Resource  { return r.base }

// Describe summarizes the repository.
func (r *SQLRepository[T]) Describe() Descriptor {
	d := Descriptor{
		Interface: r.iface.Name,
		Namespace: r.iface.Namespace,
		Entity:    r.info.EntityName(),
		Table:     r.info.Table,
		IDColumn:  r.info.IDColumn,
		Variant:   r.variant.String(),
	}
	if r.base != nil {
		d.Resource = r.base.Location()
		d.ResourceBound = true
	}
	return d
}

// setBaseResource makes reads select from res instead of the table.
func (r *SQLRepository[T]) setBaseResource(res *domain.Resource) {
	r.base = res
}

// source is the relation reads select from.
func (r *SQLRepository[T]) source() string {
	if r.base != nil {
		return "(" + r.base.SQL + ") base"
	}
	return r.info.Table
}

// where joins cond with the read scope into a WHERE clause.
func (r *SQLRepository[T]) where(cond string, args ...any) (string, []any) {
	var conds []string
	if cond != "" {
		conds = append(conds, cond)
	}
	if r.scope != "" {
		conds = append(conds, r.scope)
		args = append(args, r.scopeArgs...)
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r *SQLRepository[T]) list(ctx context.Context, source, where string, args []any) ([]*T, error) {
	query := "SELECT " + r.columnList() + " FROM " + source + where + " ORDER BY " + r.info.IDColumn

	rows, err := r.sm.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entities []*T
	for rows.Next() {
		e, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		entities = append(entities, e)
	}
	return entities, rows.Err()
}

func (r *SQLRepository[T]) columnList() string {
	return strings.Join(r.info.ColumnNames(), ", ")
}

func (r *SQLRepository[T]) insertSQL() string {
	cols := r.info.ColumnNames()
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	return "INSERT INTO " + r.info.Table + " (" + strings.Join(cols, ", ") + ") VALUES (" + marks + ")"
}

// insert writes entity as a new row. A zero id is left out of the statement
// and read back from the database, which only works for integer keys.
func (r *SQLRepository[T]) insert(ctx context.Context, entity *T) error {
	id := r.idField(entity)
	if !id.IsZero() {
		_, err := r.sm.Exec(ctx, r.insertSQL(), r.values(entity)...)
		return err
	}

	switch id.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
	default:
		return fmt.Errorf("%w: %s needs a %s value", domain.ErrInvalidInput, r.info.EntityName(), r.info.IDColumn)
	}

	v := reflect.ValueOf(entity).Elem()
	var cols, marks []string
	var args []any
	for _, c := range r.info.Columns {
		if c.ID {
			continue
		}
		cols = append(cols, c.Name)
		marks = append(marks, "?")
		args = append(args, v.FieldByIndex(c.Index).Interface())
	}

	query := "INSERT INTO " + r.info.Table
	if len(cols) == 0 {
		query += " DEFAULT VALUES"
	} else {
		query += " (" + strings.Join(cols, ", ") + ") VALUES (" + strings.Join(marks, ", ") + ")"
	}
	query += " RETURNING " + r.info.IDColumn

	if err := r.sm.QueryRow(ctx, query, args...).Scan(id.Addr().Interface()); err != nil {
		return fmt.Errorf("insert %s: %w", r.info.EntityName(), err)
	}
	return nil
}

func (r *SQLRepository[T]) idField(entity *T) reflect.Value {
	return reflect.ValueOf(entity).Elem().FieldByIndex(r.info.IDIndex())
}

// update writes every non-id column of entity, returning domain.ErrNotFound
// when no visible row carries its id.
func (r *SQLRepository[T]) update(ctx context.Context, entity *T) error {
	v := reflect.ValueOf(entity).Elem()

	var sets []string
	var args []any
	for _, c := range r.info.Columns {
		if c.ID {
			continue
		}
		sets = append(sets, c.Name+" = ?")
		args = append(args, v.FieldByIndex(c.Index).Interface())
	}
	if len(sets) == 0 {
		return nil
	}

	where, args := r.where(r.info.IDColumn+" = ?", append(args, v.FieldByIndex(r.info.IDIndex()).Interface())...)
	n, err := r.sm.Exec(ctx, "UPDATE "+r.info.Table+" SET "+strings.Join(sets, ", ")+where, args...)
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *SQLRepository[T]) values(entity *T) []any {
	v := reflect.ValueOf(entity).Elem()
	vals := make([]any, 0, len(r.info.Columns))
	for _, c := range r.info.Columns {
		vals = append(vals, v.FieldByIndex(c.Index).Interface())
	}
	return vals
}

func (r *SQLRepository[T]) row(entity *T) map[string]any {
	v := reflect.ValueOf(entity).Elem()
	row := make(map[string]any, len(r.info.Columns))
	for _, c := range r.info.Columns {
		row[c.Name] = v.FieldByIndex(c.Index).Interface()
	}
	return row
}

func (r *SQLRepository[T]) scan(rows *sql.Rows) (*T, error) {
	entity := new(T)
	v := reflect.ValueOf(entity).Elem()

	dest := make([]any, 0, len(r.info.Columns))
	for _, c := range r.info.Columns {
		dest = append(dest, v.FieldByIndex(c.Index).Addr().Interface())
	}
	if err := rows.Scan(dest...); err != nil {
		return nil, fmt.Errorf("scan %s: %w", r.info.EntityName(), err)
	}
	return entity, nil
}

// isZero reports whether v is nil or the zero value of its type.
func isZero(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	return rv.IsZero()
}

var (
	errNotIdentifiable = errors.New("entity does not implement domain.Identifiable")

	_ Repository[struct{}] = (*SQLRepository[struct{}])(nil)
)
