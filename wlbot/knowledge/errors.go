package knowledge

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateID is returned by Create when the entry id already exists.
	ErrDuplicateID = errors.New("knowledge: duplicate entry id")

	// ErrNotFound is returned by Update when the entry id does not exist.
	// Lookups report absence with a nil entry instead.
	ErrNotFound = errors.New("knowledge: entry not found")

	// ErrStoreUnavailable wraps engine failures that survived the internal
	// retry, it is fatal for the call.
	ErrStoreUnavailable = errors.New("knowledge: store unavailable")
)

// ValidationError reports a payload that does not match the shape required
// by its declared knowledge type.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("knowledge: invalid entry: %s %s", e.Field, e.Reason)
}
