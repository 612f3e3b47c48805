package domain

import "errors"

var (
	// ErrInvalidConfiguration is returned for unusable settings, including a
	// factory built without a SQL manager.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrMetadataUnavailable is returned when entity metadata cannot be
	// resolved for a domain type.
	ErrMetadataUnavailable = errors.New("entity metadata unavailable")

	// ErrResourceNotFound marks a missing SQL resource. Recoverable.
	ErrResourceNotFound = errors.New("sql resource not found")

	// ErrMalformedResource marks a SQL resource that exists but cannot be used.
	ErrMalformedResource = errors.New("malformed sql resource")

	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid input")
)

// IsResourceNotFound reports whether err is a missing SQL resource.
func IsResourceNotFound(err error) bool {
	return errors.Is(err, ErrResourceNotFound)
}
