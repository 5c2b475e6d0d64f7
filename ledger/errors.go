/*
errors.go - Centralized error types for the ledger engine

PURPOSE:
  Every failure the engine returns carries a stable machine-readable kind
  plus a human message. Callers map kinds to transport status codes.

ERROR KINDS:
  VALIDATION_ERROR     malformed or out-of-range input, caught before any write
  NOT_FOUND            account/category/entry missing or not owned by caller
  EDIT_WINDOW_EXPIRED  entry older than the edit window
  UNDO_EXPIRED         deletion older than the undo window
  CONFLICT             duplicate account/category name
  INTERNAL_ERROR       persistence failure (the unit of work was rolled back)

USAGE:
  if errors.Is(err, ledger.ErrNotFound) { ... }
  switch ledger.KindOf(err) { ... }

SEE ALSO:
  - api/handlers.go: Kind to HTTP status mapping
*/
package ledger

import (
	"errors"
	"fmt"
)

// ErrorKind is the stable machine-readable failure class.
type ErrorKind string

const (
	KindValidation        ErrorKind = "VALIDATION_ERROR"
	KindNotFound          ErrorKind = "NOT_FOUND"
	KindEditWindowExpired ErrorKind = "EDIT_WINDOW_EXPIRED"
	KindUndoExpired       ErrorKind = "UNDO_EXPIRED"
	KindConflict          ErrorKind = "CONFLICT"
	KindInternal          ErrorKind = "INTERNAL_ERROR"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	ErrValidation        = errors.New("validation error")
	ErrNotFound          = errors.New("not found")
	ErrEditWindowExpired = errors.New("edit window expired")
	ErrUndoExpired       = errors.New("undo window expired")
	ErrConflict          = errors.New("conflict")
)

var sentinels = map[ErrorKind]error{
	KindValidation:        ErrValidation,
	KindNotFound:          ErrNotFound,
	KindEditWindowExpired: ErrEditWindowExpired,
	KindUndoExpired:       ErrUndoExpired,
	KindConflict:          ErrConflict,
}

// =============================================================================
// STRUCTURED ERROR
// =============================================================================

// Error is the error type returned by engine operations.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the sentinel for the error's kind.
func (e *Error) Is(target error) bool {
	s, ok := sentinels[e.Kind]
	return ok && s == target
}

func validationf(format string, args ...any) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func notFoundf(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func conflictf(format string, args ...any) error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

// internal wraps a persistence failure. Engine errors pass through as-is.
func internal(op string, err error) error {
	if err == nil {
		return nil
	}
	var le *Error
	if errors.As(err, &le) {
		return err
	}
	if errors.Is(err, ErrConflict) {
		return &Error{Kind: KindConflict, Message: op, Err: err}
	}
	return &Error{Kind: KindInternal, Message: op, Err: err}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// KindOf returns the kind of err, KindInternal for foreign errors.
func KindOf(err error) ErrorKind {
	var le *Error
	if errors.As(err, &le) {
		return le.Kind
	}
	if errors.Is(err, ErrConflict) {
		return KindConflict
	}
	return KindInternal
}

// IsNotFound returns true if the error indicates a missing or foreign record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsClientError returns true if the error is due to the caller's request.
func IsClientError(err error) bool {
	switch KindOf(err) {
	case KindValidation, KindNotFound, KindEditWindowExpired, KindUndoExpired, KindConflict:
		return true
	}
	return false
}
