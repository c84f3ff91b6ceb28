package service

import (
	"context"
	"errors"
	"time"

	"crm-pipeline-api/internal/dto"
	"crm-pipeline-api/internal/pipeline"
	"crm-pipeline-api/internal/response"
)

// toAppError maps pipeline errors onto the API error taxonomy.
// subject names the entity in not-found messages.
func toAppError(err error, subject string) error {
	if err == nil {
		return nil
	}

	var appErr *response.AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	var partial *pipeline.PartialReorderError
	if errors.As(err, &partial) {
		return response.NewConflictError(response.ErrCodePartialReorder,
			"Stage reorder was interrupted; re-send the same order to finish it",
			dto.PartialReorderDetails{
				CommittedCount:  partial.Committed,
				PendingStageIDs: partial.Pending,
			})
	}

	switch {
	case errors.Is(err, pipeline.ErrInvalidTarget):
		return response.NewAppError(response.ErrCodeInvalidTarget, "Target stage does not exist", nil)
	case errors.Is(err, pipeline.ErrInvalidPermutation):
		return response.NewAppError(response.ErrCodeInvalidPermutation, "Stage order must list every stage exactly once", err.Error())
	case errors.Is(err, pipeline.ErrStageInUse):
		return response.NewConflictError(response.ErrCodeStageInUse, "Stage still has customers; pass reassignTo to move them", err.Error())
	case errors.Is(err, pipeline.ErrStaleMove):
		return response.NewConflictError(response.ErrCodeStaleMove, "Customer is no longer in the expected stage", nil)
	case errors.Is(err, pipeline.ErrNotFound):
		return response.NewNotFoundError(subject+" not found", nil)
	case errors.Is(err, pipeline.ErrValidation):
		return response.NewValidationError(err.Error(), nil)
	case errors.Is(err, pipeline.ErrStoreUnavailable),
		errors.Is(err, context.DeadlineExceeded):
		return response.NewServiceUnavailableError("Record store is unavailable", err.Error())
	default:
		return response.NewInternalError("Unexpected pipeline error", err.Error())
	}
}

// withTimeout bounds a store round trip; zero means no bound
func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
