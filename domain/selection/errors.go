package selection

import (
	"errors"
	"fmt"
)

// Error kinds reported by the compiler and the walker.
var (
	ErrUnknownQueue     = errors.New("unknown queue")
	ErrUnknownAttribute = errors.New("unknown attribute")
	ErrUnknownResource  = errors.New("unknown resource")
	ErrPermissionDenied = errors.New("permission denied")
	ErrInvalidOperator  = errors.New("invalid operator")
	ErrInvalidValue     = errors.New("invalid attribute value")
	ErrOutOfMemory      = errors.New("result capacity exceeded")
)

// CriterionError reports the criterion that failed to compile.
type CriterionError struct {
	ordinal   int
	criterion Criterion
	err       error
}

func newCriterionError(ordinal int, c Criterion, kind error, cause error) *CriterionError {
	err := kind
	if cause != nil && !errors.Is(cause, kind) {
		err = fmt.Errorf("%w: %v", kind, cause)
	}
	return &CriterionError{ordinal: ordinal, criterion: c, err: err}
}

// Error implements error.
func (e *CriterionError) Error() string {
	return fmt.Sprintf("criterion %d (%s): %v", e.ordinal, e.criterion, e.err)
}

// Unwrap returns the error kind.
func (e *CriterionError) Unwrap() error { return e.err }

// Ordinal returns the 1-based position of the failing criterion.
func (e *CriterionError) Ordinal() int { return e.ordinal }

// Criterion returns the failing criterion.
func (e *CriterionError) Criterion() Criterion { return e.criterion }

// Ordinal extracts the criterion ordinal from err, or 0 when err did not
// come from a criterion.
func Ordinal(err error) int {
	var ce *CriterionError
	if errors.As(err, &ce) {
		return ce.ordinal
	}
	return 0
}
