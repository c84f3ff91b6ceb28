package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crm-pipeline-api/internal/dto"
	"crm-pipeline-api/internal/response"
)

func stageRoutes(m *MockStageService) func(r *gin.Engine) {
	h := NewStageHandler(m)
	return func(r *gin.Engine) {
		r.GET("/stages", h.ListStages)
		r.POST("/stages", h.CreateStage)
		r.PUT("/stages/order", h.ReorderStages)
		r.PATCH("/stages/:stageId", h.UpdateStage)
		r.DELETE("/stages/:stageId", h.DeleteStage)
	}
}

func TestStageHandler_CreateStage(t *testing.T) {
	stageID := uuid.New()

	tests := []struct {
		name           string
		body           interface{}
		mockService    func(*MockStageService)
		expectedStatus int
		expectedCode   string
	}{
		{
			name: "created",
			body: dto.CreateStageRequest{Name: "Negotiation", Color: "bg-purple-500"},
			mockService: func(m *MockStageService) {
				m.CreateStageFunc = func(ctx context.Context, req *dto.CreateStageRequest) (*dto.StageResponse, error) {
					return &dto.StageResponse{ID: stageID, Name: req.Name, Color: req.Color, Position: 4}, nil
				}
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "missing color",
			body:           map[string]string{"name": "Negotiation"},
			mockService:    func(m *MockStageService) {},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   response.ErrCodeValidation,
		},
		{
			name:           "malformed json",
			body:           "{",
			mockService:    func(m *MockStageService) {},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   response.ErrCodeValidation,
		},
		{
			name: "store unavailable",
			body: dto.CreateStageRequest{Name: "Negotiation", Color: "bg-purple-500"},
			mockService: func(m *MockStageService) {
				m.CreateStageFunc = func(ctx context.Context, req *dto.CreateStageRequest) (*dto.StageResponse, error) {
					return nil, response.NewServiceUnavailableError("Record store unavailable", nil)
				}
			},
			expectedStatus: http.StatusServiceUnavailable,
			expectedCode:   response.ErrCodeServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &MockStageService{}
			tt.mockService(m)

			w := serve(stageRoutes(m), http.MethodPost, "/stages", tt.body)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedCode != "" {
				assert.Equal(t, tt.expectedCode, errorCode(t, w))
				return
			}
			var stage dto.StageResponse
			decodeData(t, w, &stage)
			assert.Equal(t, stageID, stage.ID)
			assert.Equal(t, 4, stage.Position)
		})
	}
}

func TestStageHandler_UpdateStage(t *testing.T) {
	stageID := uuid.New()
	m := &MockStageService{
		UpdateStageFunc: func(ctx context.Context, id uuid.UUID, req *dto.UpdateStageRequest) (*dto.StageResponse, error) {
			if id != stageID {
				return nil, response.NewNotFoundError("Stage not found", nil)
			}
			require.NotNil(t, req.Name)
			assert.Nil(t, req.Color)
			return &dto.StageResponse{ID: id, Name: *req.Name}, nil
		},
	}

	w := serve(stageRoutes(m), http.MethodPatch, "/stages/"+stageID.String(), map[string]string{"name": "Qualified"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(stageRoutes(m), http.MethodPatch, "/stages/"+uuid.NewString(), map[string]string{"name": "Qualified"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, response.ErrCodeNotFound, errorCode(t, w))

	w = serve(stageRoutes(m), http.MethodPatch, "/stages/not-a-uuid", map[string]string{"name": "Qualified"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStageHandler_DeleteStage(t *testing.T) {
	stageID := uuid.New()
	target := uuid.New()

	var gotReassign *uuid.UUID
	m := &MockStageService{
		DeleteStageFunc: func(ctx context.Context, id uuid.UUID, reassignTo *uuid.UUID) (*dto.DeleteStageResponse, error) {
			gotReassign = reassignTo
			if reassignTo == nil {
				return nil, response.NewConflictError(response.ErrCodeStageInUse, "Stage still has customers", nil)
			}
			return &dto.DeleteStageResponse{StageID: id, ReassignedTo: reassignTo, ReassignedCount: 2}, nil
		},
	}

	w := serve(stageRoutes(m), http.MethodDelete, "/stages/"+stageID.String(), nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, response.ErrCodeStageInUse, errorCode(t, w))
	assert.Nil(t, gotReassign)

	w = serve(stageRoutes(m), http.MethodDelete, "/stages/"+stageID.String()+"?reassignTo="+target.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, gotReassign)
	assert.Equal(t, target, *gotReassign)
	var result dto.DeleteStageResponse
	decodeData(t, w, &result)
	assert.Equal(t, 2, result.ReassignedCount)

	w = serve(stageRoutes(m), http.MethodDelete, "/stages/"+stageID.String()+"?reassignTo=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStageHandler_ReorderStages(t *testing.T) {
	a, b := uuid.New(), uuid.New()

	t.Run("ordered", func(t *testing.T) {
		m := &MockStageService{
			ReorderStagesFunc: func(ctx context.Context, req *dto.ReorderStagesRequest) ([]dto.StageResponse, error) {
				assert.Equal(t, []uuid.UUID{b, a}, req.StageIDs)
				return []dto.StageResponse{{ID: b, Position: 1}, {ID: a, Position: 2}}, nil
			},
		}
		w := serve(stageRoutes(m), http.MethodPut, "/stages/order", dto.ReorderStagesRequest{StageIDs: []uuid.UUID{b, a}})
		require.Equal(t, http.StatusOK, w.Code)

		var stages []dto.StageResponse
		decodeData(t, w, &stages)
		assert.Equal(t, b, stages[0].ID)
	})

	t.Run("partial reorder carries details", func(t *testing.T) {
		m := &MockStageService{
			ReorderStagesFunc: func(ctx context.Context, req *dto.ReorderStagesRequest) ([]dto.StageResponse, error) {
				return nil, response.NewConflictError(response.ErrCodePartialReorder, "Stage reorder was partially applied",
					dto.PartialReorderDetails{CommittedCount: 1, PendingStageIDs: []uuid.UUID{a}})
			},
		}
		w := serve(stageRoutes(m), http.MethodPut, "/stages/order", dto.ReorderStagesRequest{StageIDs: []uuid.UUID{b, a}})
		assert.Equal(t, http.StatusConflict, w.Code)

		errObj := decodeBody(t, w)["error"].(map[string]interface{})
		assert.Equal(t, response.ErrCodePartialReorder, errObj["code"])
		details := errObj["details"].(map[string]interface{})
		assert.Equal(t, float64(1), details["committedCount"])
		assert.Equal(t, []interface{}{a.String()}, details["pendingStageIds"])
	})

	t.Run("not a permutation", func(t *testing.T) {
		m := &MockStageService{
			ReorderStagesFunc: func(ctx context.Context, req *dto.ReorderStagesRequest) ([]dto.StageResponse, error) {
				return nil, response.NewAppError(response.ErrCodeInvalidPermutation, "Stage order must list every stage exactly once", nil)
			},
		}
		w := serve(stageRoutes(m), http.MethodPut, "/stages/order", dto.ReorderStagesRequest{StageIDs: []uuid.UUID{a}})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, response.ErrCodeInvalidPermutation, errorCode(t, w))
	})

	t.Run("ids must be uuids", func(t *testing.T) {
		w := serve(stageRoutes(&MockStageService{}), http.MethodPut, "/stages/order", `{"stageIds":["x"]}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestStageHandler_UnhandledErrorIsInternal(t *testing.T) {
	m := &MockStageService{
		ListStagesFunc: func(ctx context.Context) ([]dto.StageResponse, error) {
			return nil, assert.AnError
		},
	}
	w := serve(stageRoutes(m), http.MethodGet, "/stages", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, response.ErrCodeInternal, errorCode(t, w))
}
