package domain

import "reflect"

// EntityInformation describes a domain type and its identifier. It is
// produced by a metadata resolver and read-only afterwards.
type EntityInformation struct {
	// DomainType is the entity struct type (never a pointer).
	DomainType reflect.Type

	// IDType is the Go type of the identifier field.
	IDType reflect.Type

	Table    string
	IDColumn string
	Columns  []Column

	// DeletedColumn is the soft-delete flag column, empty when the entity
	// does not declare one.
	DeletedColumn string
}

// Column maps a struct field to a table column.
type Column struct {
	Name  string
	Index []int
	ID    bool
}

// EntityName returns the simple name of the domain type.
func (e *EntityInformation) EntityName() string {
	if e == nil || e.DomainType == nil {
		return ""
	}
	return e.DomainType.Name()
}

// ColumnNames returns the column names in declaration order.
func (e *EntityInformation) ColumnNames() []string {
	names := make([]string, 0, len(e.Columns))
	for _, c := range e.Columns {
		names = append(names, c.Name)
	}
	return names
}

// IDIndex returns the field index of the identifier column.
func (e *EntityInformation) IDIndex() []int {
	for _, c := range e.Columns {
		if c.ID {
			return c.Index
		}
	}
	return nil
}

// MetadataResolver produces entity metadata for a domain type.
type MetadataResolver interface {
	Resolve(domainType reflect.Type, sm SQLManager) (*EntityInformation, error)
}
