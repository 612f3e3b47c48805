package repository

import (
	"context"

	"github.com/opensource-finance/mirage/internal/domain"
)

// DefaultDeletedColumn is the soft-delete flag used when the entity does not
// tag one with ",deleted".
const DefaultDeletedColumn = "deleted"

// LogicalDeleteRepository is implemented by the logical-delete variant.
// Embed it in a repository interface to select that variant.
type LogicalDeleteRepository[T any] interface {
	Repository[T]
	domain.LogicalDeleteCapable

	// FindAllIncludingDeleted ignores the soft-delete flag.
	FindAllIncludingDeleted(ctx context.Context) ([]*T, error)

	// Restore clears the soft-delete flag.
	Restore(ctx context.Context, id any) error

	// DeletedColumn names the soft-delete flag column.
	DeletedColumn() string
}

// LogicalDeleteSQLRepository hides flagged rows from every read and turns
// deletes into flag updates.
type LogicalDeleteSQLRepository[T any] struct {
	*SQLRepository[T]
	domain.LogicalDeleteMarker
	deleted string
}

// NewLogicalDeleteSQLRepository creates the logical-delete variant.
func NewLogicalDeleteSQLRepository[T any](iface Interface, info *domain.EntityInformation, sm domain.SQLManager) *LogicalDeleteSQLRepository[T] {
	deleted := info.DeletedColumn
	if deleted == "" {
		deleted = DefaultDeletedColumn
	}

	base := NewSQLRepository[T](iface, info, sm)
	base.variant = VariantLogicalDelete
	base.scope = deleted + " = ?"
	base.scopeArgs = []any{false}

	return &LogicalDeleteSQLRepository[T]{SQLRepository: base, deleted: deleted}
}

func (r *LogicalDeleteSQLRepository[T]) DeletedColumn() string { return r.deleted }

// Delete flags the entity as deleted.
func (r *LogicalDeleteSQLRepository[T]) Delete(ctx context.Context, id any) error {
	n, err := r.sm.Exec(ctx,
		"UPDATE "+r.info.Table+" SET "+r.deleted+" = ? WHERE "+r.info.IDColumn+" = ? AND "+r.deleted+" = ?",
		true, id, false)
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// DeleteAll flags every entity as deleted.
func (r *LogicalDeleteSQLRepository[T]) DeleteAll(ctx context.Context) error {
	_, err := r.sm.Exec(ctx, "UPDATE "+r.info.Table+" SET "+r.deleted+" = ? WHERE "+r.deleted+" = ?", true, false)
	return err
}

// PhysicalDelete removes the row regardless of its flag.
func (r *LogicalDeleteSQLRepository[T]) PhysicalDelete(ctx context.Context, id any) error {
	return r.deleteRow(ctx, id)
}

// FindAllIncludingDeleted returns every row of the table.
func (r *LogicalDeleteSQLRepository[T]) FindAllIncludingDeleted(ctx context.Context) ([]*T, error) {
	return r.list(ctx, r.source(), "", nil)
}

// Restore clears the soft-delete flag.
func (r *LogicalDeleteSQLRepository[T]) Restore(ctx context.Context, id any) error {
	n, err := r.sm.Exec(ctx,
		"UPDATE "+r.info.Table+" SET "+r.deleted+" = ? WHERE "+r.info.IDColumn+" = ? AND "+r.deleted+" = ?",
		false, id, true)
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

var _ LogicalDeleteRepository[struct{}] = (*LogicalDeleteSQLRepository[struct{}])(nil)
