package domain

import "context"

// Identifiable is implemented by entities exposing a stable identity.
// Repositories built for such entities get the identity-aware variant.
type Identifiable interface {
	// Identity returns the entity's identifier value.
	Identity() any

	// IsNew reports whether the entity has not been persisted yet.
	IsNew() bool
}

// IdentityAssigner is an optional companion to Identifiable. New entities
// without an identity get a generated one before insert.
type IdentityAssigner interface {
	AssignIdentity(id string)
}

// LogicalDeleteCapable marks repository interfaces whose deletes only flag
// records as deleted. Embed it (directly or through another interface) in a
// repository interface to opt in. Its unexported method keeps interfaces that
// merely declare PhysicalDelete from opting in by accident.
type LogicalDeleteCapable interface {
	// PhysicalDelete removes the record for good.
	PhysicalDelete(ctx context.Context, id any) error

	logicalDelete()
}

// LogicalDeleteMarker is embedded by implementations of LogicalDeleteCapable.
type LogicalDeleteMarker struct{}

func (LogicalDeleteMarker) logicalDelete() {}

// Tabler lets an entity override its table name.
type Tabler interface {
	TableName() string
}
