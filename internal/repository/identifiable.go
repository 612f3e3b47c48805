package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/opensource-finance/mirage/internal/domain"
)

// IdentifiableRepository adds identity-based operations for entities
// implementing domain.Identifiable.
type IdentifiableRepository[T any] interface {
	Repository[T]

	// Update overwrites an existing entity, failing with domain.ErrNotFound
	// when its identity is unknown.
	Update(ctx context.Context, entity *T) error
}

// IdentifiableSQLRepository decides between insert and update from the
// entity's own identity state instead of upserting.
type IdentifiableSQLRepository[T any] struct {
	*SQLRepository[T]
}

// NewIdentifiableSQLRepository creates the identifiable variant.
func NewIdentifiableSQLRepository[T any](iface Interface, info *domain.EntityInformation, sm domain.SQLManager) *IdentifiableSQLRepository[T] {
	base := NewSQLRepository[T](iface, info, sm)
	base.variant = VariantIdentifiable
	return &IdentifiableSQLRepository[T]{SQLRepository: base}
}

// Save inserts new entities and updates persisted ones. New entities with an
// empty identity that implement domain.IdentityAssigner get a random UUID.
func (r *IdentifiableSQLRepository[T]) Save(ctx context.Context, entity *T) error {
	id, err := identifiable(entity)
	if err != nil {
		return err
	}

	if !id.IsNew() {
		return r.update(ctx, entity)
	}

	if isZero(id.Identity()) {
		if assigner, ok := any(entity).(domain.IdentityAssigner); ok {
			assigner.AssignIdentity(uuid.NewString())
		}
	}
	return r.insert(ctx, entity)
}

// Update overwrites an existing entity.
func (r *IdentifiableSQLRepository[T]) Update(ctx context.Context, entity *T) error {
	if _, err := identifiable(entity); err != nil {
		return err
	}
	return r.update(ctx, entity)
}

func identifiable[T any](entity *T) (domain.Identifiable, error) {
	if entity == nil {
		return nil, fmt.Errorf("%w: entity is required", domain.ErrInvalidInput)
	}
	id, ok := any(entity).(domain.Identifiable)
	if !ok {
		return nil, fmt.Errorf("%w: %T: %w", domain.ErrInvalidInput, entity, errNotIdentifiable)
	}
	return id, nil
}

var _ IdentifiableRepository[struct{}] = (*IdentifiableSQLRepository[struct{}])(nil)
