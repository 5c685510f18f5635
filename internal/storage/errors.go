package storage

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when the targeted GPX file does not exist.
var ErrNotFound = errors.New("route not found")

// ErrVersionImmutable is returned when a mutation targets a version snapshot.
var ErrVersionImmutable = errors.New("version snapshots are read-only")

// ErrUnreadable is returned when a route file exists but cannot be decoded.
var ErrUnreadable = errors.New("route file unreadable")

// ValidationError reports caller input that was rejected before touching storage.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidation reports whether err carries a *ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
