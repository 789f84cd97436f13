package newsletter

import "errors"

var (
	// ErrDraftNotFound is returned when no draft has the requested id.
	ErrDraftNotFound = errors.New("newsletter: draft not found")
)
