package rbac

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound reports that a role or assignment does not exist.
	ErrNotFound = errors.New("not found")

	// ErrForbidden reports an attempt to mutate a system role.
	ErrForbidden = errors.New("forbidden")
)

// ValidationError reports input that fails catalog or shape validation,
// e.g. a permission outside the catalog or an assignment naming both scopes.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// StorageError wraps a persistence port failure. Mutation APIs surface it to
// the caller; the check path converts it to a deny.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}
