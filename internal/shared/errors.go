package shared

import (
	"errors"
	"fmt"
)

var (
	// Engine error taxonomy. Every failure surfaced to a caller wraps
	// exactly one of these so clients can decide whether to retry.
	ErrValidation   = fmt.Errorf("invalid input")
	ErrNotFound     = fmt.Errorf("not found")
	ErrAccessDenied = fmt.Errorf("access denied")
	ErrConflict     = fmt.Errorf("concurrent edit conflict")
	ErrUnavailable  = fmt.Errorf("admission gate unavailable")
	ErrStorage      = fmt.Errorf("storage failure")

	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")
)

// Kind is the wire-level classification of an engine error.
type Kind string

const (
	KindValidation   Kind = "validation"
	KindNotFound     Kind = "not_found"
	KindAccessDenied Kind = "access_denied"
	KindConflict     Kind = "conflict"
	KindUnavailable  Kind = "unavailable"
	KindStorage      Kind = "storage"
	KindInternal     Kind = "internal"
)

// Classify maps an error to its taxonomy [Kind].
//
// Unrecognized errors classify as [KindInternal].
func Classify(err error) Kind {
	switch {
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrAccessDenied):
		return KindAccessDenied
	case errors.Is(err, ErrConflict):
		return KindConflict
	case errors.Is(err, ErrUnavailable):
		return KindUnavailable
	case errors.Is(err, ErrStorage):
		return KindStorage
	default:
		return KindInternal
	}
}

// Retryable reports whether a client may usefully retry the failed
// operation. Conflicts and gate exhaustion are transient; validation and
// access failures are not.
func Retryable(err error) bool {
	k := Classify(err)
	return k == KindConflict || k == KindUnavailable
}
