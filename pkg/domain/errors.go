package domain

import (
	"errors"
	"fmt"
)

// NotFoundError reports an update or delete against an id that does not
// exist in its collection. It is a normal outcome, recovered by the caller,
// not a failure of the store.
type NotFoundError struct {
	Entity EntityType
	ID     int64
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

// IsNotFound reports whether err wraps a NotFoundError.
func IsNotFound(err error) bool {
	var nf NotFoundError
	return errors.As(err, &nf)
}
