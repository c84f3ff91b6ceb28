package pipeline

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"crm-pipeline-api/internal/repository"
)

// Error taxonomy of the pipeline core.
// Precondition failures (validation, target, permutation, in-use, stale,
// confirmation) are returned before any store call is made.
var (
	ErrValidation         = errors.New("validation failed")
	ErrNotFound           = errors.New("not found")
	ErrStoreUnavailable   = errors.New("record store unavailable")
	ErrInvalidTarget      = errors.New("target stage is not a live stage")
	ErrInvalidPermutation = errors.New("stage order is not a permutation of the known stages")
	ErrStageInUse         = errors.New("stage is still referenced by customers")
	ErrStaleMove          = errors.New("customer is no longer in the expected stage")

	// ErrConfirmationRequired is a validation error
	ErrConfirmationRequired = fmt.Errorf("%w: deletion requires explicit confirmation", ErrValidation)
)

// PartialReorderError reports a sequential reorder interrupted after
// Committed writes. Committed writes are not rolled back; re-issuing the
// same order writes only the Pending stages.
type PartialReorderError struct {
	Committed int
	Pending   []uuid.UUID
	Err       error
}

func (e *PartialReorderError) Error() string {
	return fmt.Sprintf("reorder interrupted after %d committed writes (%d pending): %v",
		e.Committed, len(e.Pending), e.Err)
}

func (e *PartialReorderError) Unwrap() error {
	return e.Err
}

func validationError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// storeError maps record store failures onto the pipeline taxonomy
func storeError(op string, err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	case errors.Is(err, repository.ErrConstraint):
		return fmt.Errorf("%s: %w: %w", op, ErrValidation, err)
	default:
		return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
	}
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
