package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crm-pipeline-api/internal/dto"
	"crm-pipeline-api/internal/pipeline"
	"crm-pipeline-api/internal/response"
)

func requireAppError(t *testing.T, err error, code string) *response.AppError {
	t.Helper()
	var appErr *response.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %v", err)
	assert.Equal(t, code, appErr.Code)
	return appErr
}

func TestToAppError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code string
	}{
		{"invalid target", pipeline.ErrInvalidTarget, response.ErrCodeInvalidTarget},
		{"invalid permutation", fmt.Errorf("%w: dup", pipeline.ErrInvalidPermutation), response.ErrCodeInvalidPermutation},
		{"stage in use", pipeline.ErrStageInUse, response.ErrCodeStageInUse},
		{"stale move", pipeline.ErrStaleMove, response.ErrCodeStaleMove},
		{"not found", fmt.Errorf("update stage: %w", pipeline.ErrNotFound), response.ErrCodeNotFound},
		{"validation", pipeline.ErrConfirmationRequired, response.ErrCodeValidation},
		{"store unavailable", fmt.Errorf("load: %w", pipeline.ErrStoreUnavailable), response.ErrCodeServiceUnavailable},
		{"deadline", context.DeadlineExceeded, response.ErrCodeServiceUnavailable},
		{"unknown", errors.New("boom"), response.ErrCodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			requireAppError(t, toAppError(tt.err, "Stage"), tt.code)
		})
	}
}

func TestToAppError_PartialReorder(t *testing.T) {
	pending := []uuid.UUID{uuid.New(), uuid.New()}
	err := &pipeline.PartialReorderError{Committed: 1, Pending: pending, Err: pipeline.ErrStoreUnavailable}

	appErr := requireAppError(t, toAppError(err, "Stage"), response.ErrCodePartialReorder)
	details, ok := appErr.Details.(dto.PartialReorderDetails)
	require.True(t, ok)
	assert.Equal(t, 1, details.CommittedCount)
	assert.Equal(t, pending, details.PendingStageIDs)
}

func TestToAppError_PassesAppErrorThrough(t *testing.T) {
	original := response.NewValidationError("bad", nil)
	assert.Same(t, original, toAppError(original, "Stage"))
	assert.Nil(t, toAppError(nil, "Stage"))
}
