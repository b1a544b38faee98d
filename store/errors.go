package store

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument is returned for a missing or malformed doc id, prefix or query argument.
	ErrInvalidArgument = errors.New("docket: invalid argument")

	// ErrPreconditionFailed is returned when an operation needs a doc id that was never set.
	ErrPreconditionFailed = errors.New("docket: precondition failed")

	// ErrNotFound is returned for a missing counter document, archive record or vanished primary document.
	ErrNotFound = errors.New("docket: not found")

	// ErrDisabled is returned when the autonumber counter has status false.
	ErrDisabled = errors.New("docket: autonumber disabled")

	// ErrOverflow is returned when the autonumber counter has exhausted its width.
	ErrOverflow = errors.New("docket: autonumber overflow")

	// ErrDependencyExists is returned when a delete is blocked by a referencing document.
	ErrDependencyExists = errors.New("docket: dependent document exists")

	// ErrUnsupported is returned by the change subscription calls.
	ErrUnsupported = errors.New("docket: unsupported operation")

	// ErrInvalidQueryType is returned for a constraint with an unknown type tag.
	ErrInvalidQueryType = errors.New("docket: invalid query type")

	// ErrStoreFailure wraps any failure raised by the backend.
	ErrStoreFailure = errors.New("docket: store failure")

	// ErrConflict is returned by backends when a concurrent transaction touched the same document.
	ErrConflict = errors.New("docket: transaction conflict")

	// ErrReadAfterWrite is returned by backends when a transaction reads after staging a write.
	ErrReadAfterWrite = errors.New("docket: read after write in transaction")
)

// DependencyError reports the relation that blocked a delete.
type DependencyError struct {
	Collection string
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("docket: dependent document exists in %q", e.Collection)
}

func (e *DependencyError) Unwrap() error { return ErrDependencyExists }

// StoreError wraps a backend failure with the operation that observed it.
// It matches both ErrStoreFailure and the underlying cause with errors.Is.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("docket: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() []error { return []error{ErrStoreFailure, e.Err} }

// storeErr wraps err as a StoreError unless it already carries one of the
// engine's own sentinels.
func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if isEngineError(err) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}

func isEngineError(err error) bool {
	for _, sentinel := range []error{
		ErrInvalidArgument, ErrPreconditionFailed, ErrNotFound, ErrDisabled,
		ErrOverflow, ErrDependencyExists, ErrUnsupported, ErrInvalidQueryType,
		ErrStoreFailure,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

func invalidArg(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

func preconditionErr(op string) error {
	return fmt.Errorf("%w: %s requires a doc id; fetch the document first", ErrPreconditionFailed, op)
}

func notFoundErr(what, path, id string) error {
	return fmt.Errorf("%w: %s %s/%s", ErrNotFound, what, path, id)
}
