// Package repository builds repositories for declared repository interfaces.
//
// A repository interface is an ordinary Go interface:
//
//	type AccountRepo interface {
//		repository.Repository[Account]
//	}
//
//	type ArchivedOrderRepo interface {
//		repository.LogicalDeleteRepository[Order]
//	}
//
// Declare captures its name, package and capability markers, and Build picks
// the implementation variant, binds it to the entity's metadata and the shared
// SQL manager, and attaches the SQL resource named after the interface when
// one exists.
//
// Only embedding domain.LogicalDeleteCapable selects the logical-delete
// variant. An interface that declares its own PhysicalDelete method does not.
package repository

import (
	"reflect"

	"github.com/opensource-finance/mirage/internal/domain"
)

// Interface describes a declared repository interface.
type Interface struct {
	// Name is the simple type name, e.g. "AccountRepo".
	Name string

	// Namespace is the declaring package path.
	Namespace string

	// LogicalDelete is true when the interface embeds domain.LogicalDeleteCapable.
	LogicalDelete bool
}

var (
	logicalDeleteType = reflect.TypeFor[domain.LogicalDeleteCapable]()
	identifiableType  = reflect.TypeFor[domain.Identifiable]()
)

// Declare describes the repository interface R.
func Declare[R any]() Interface {
	t := reflect.TypeFor[R]()
	return Interface{
		Name:          t.Name(),
		Namespace:     t.PkgPath(),
		LogicalDelete: t.Implements(logicalDeleteType),
	}
}

// Variant is the repository implementation chosen for an interface.
type Variant int

const (
	VariantDefault Variant = iota
	VariantIdentifiable
	VariantLogicalDelete
)

func (v Variant) String() string {
	switch v {
	case VariantDefault:
		return "default"
	case VariantIdentifiable:
		return "identifiable"
	case VariantLogicalDelete:
		return "logical-delete"
	default:
		return "unknown"
	}
}

// SupportsLogicalDelete reports whether iface opted into logical deletes.
func SupportsLogicalDelete(iface Interface) bool {
	return iface.LogicalDelete
}

// SupportsIdentifiable reports whether the entity type, or a pointer to it,
// implements domain.Identifiable.
func SupportsIdentifiable(info *domain.EntityInformation) bool {
	if info == nil || info.DomainType == nil {
		return false
	}
	t := info.DomainType
	return t.Implements(identifiableType) || reflect.PointerTo(t).Implements(identifiableType)
}

// SelectVariant applies the priority table: logical delete, then
// identifiable, then default.
func SelectVariant(iface Interface, info *domain.EntityInformation) Variant {
	switch {
	case SupportsLogicalDelete(iface):
		return VariantLogicalDelete
	case SupportsIdentifiable(info):
		return VariantIdentifiable
	default:
		return VariantDefault
	}
}
