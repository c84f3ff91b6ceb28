package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"crm-pipeline-api/internal/domain"
	"crm-pipeline-api/internal/dto"
	"crm-pipeline-api/internal/events"
	"crm-pipeline-api/internal/metrics"
	"crm-pipeline-api/internal/pipeline"
)

// StageService defines the interface for pipeline stage business logic
type StageService interface {
	ListStages(ctx context.Context) ([]dto.StageResponse, error)
	CreateStage(ctx context.Context, req *dto.CreateStageRequest) (*dto.StageResponse, error)
	UpdateStage(ctx context.Context, stageID uuid.UUID, req *dto.UpdateStageRequest) (*dto.StageResponse, error)
	DeleteStage(ctx context.Context, stageID uuid.UUID, reassignTo *uuid.UUID) (*dto.DeleteStageResponse, error)
	ReorderStages(ctx context.Context, req *dto.ReorderStagesRequest) ([]dto.StageResponse, error)
}

// stageServiceImpl is the implementation of StageService
type stageServiceImpl struct {
	manager *pipeline.Manager
	events  eventPublisher
	timeout time.Duration
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewStageService creates a new instance of StageService
func NewStageService(
	manager *pipeline.Manager,
	publisher events.Publisher,
	timeout time.Duration,
	m *metrics.Metrics,
	logger *zap.Logger,
) StageService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &stageServiceImpl{
		manager: manager,
		events:  newEventPublisher(publisher, logger),
		timeout: timeout,
		metrics: m,
		logger:  logger,
	}
}

// ListStages returns the stages in position order
func (s *stageServiceImpl) ListStages(ctx context.Context) ([]dto.StageResponse, error) {
	return toStageResponses(s.manager.Stages().List()), nil
}

// CreateStage appends a stage
func (s *stageServiceImpl) CreateStage(ctx context.Context, req *dto.CreateStageRequest) (*dto.StageResponse, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	stage, err := s.manager.CreateStage(ctx, req.Name, req.Color)
	if err != nil {
		return nil, toAppError(err, "Stage")
	}

	s.metrics.IncrementStageCreated()
	resp := toStageResponse(stage)
	s.events.emit(ctx, events.StageCreated, resp)
	return &resp, nil
}

// UpdateStage renames or recolors a stage. Omitted fields keep their value.
func (s *stageServiceImpl) UpdateStage(ctx context.Context, stageID uuid.UUID, req *dto.UpdateStageRequest) (*dto.StageResponse, error) {
	current, ok := s.manager.Stages().Get(stageID)
	if !ok {
		return nil, toAppError(pipeline.ErrNotFound, "Stage")
	}
	if req.Name == nil && req.Color == nil {
		resp := toStageResponse(current)
		return &resp, nil
	}

	name, color := current.Name, current.Color
	if req.Name != nil {
		name = *req.Name
	}
	if req.Color != nil {
		color = *req.Color
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	stage, err := s.manager.UpdateStage(ctx, stageID, name, color)
	if err != nil {
		return nil, toAppError(err, "Stage")
	}

	resp := toStageResponse(stage)
	s.events.emit(ctx, events.StageUpdated, resp)
	return &resp, nil
}

// DeleteStage deletes a stage, moving its customers to reassignTo when given
func (s *stageServiceImpl) DeleteStage(ctx context.Context, stageID uuid.UUID, reassignTo *uuid.UUID) (*dto.DeleteStageResponse, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	result, err := s.manager.DeleteStage(ctx, stageID, pipeline.DeleteStageOptions{ReassignTo: reassignTo})

	// Reassignment moves are committed even when the delete itself fails
	for _, moved := range result.Reassigned {
		s.metrics.IncrementCustomerMoved()
		s.events.emit(ctx, events.CustomerStageChanged, dto.MoveCustomerResponse{
			Customer:    toCustomerResponse(moved),
			FromStageID: &stageID,
			Moved:       true,
		})
	}
	if err != nil {
		return nil, toAppError(err, "Stage")
	}

	s.metrics.IncrementStageDeleted()
	resp := &dto.DeleteStageResponse{
		StageID:         stageID,
		ReassignedCount: len(result.Reassigned),
	}
	if len(result.Reassigned) > 0 {
		resp.ReassignedTo = reassignTo
	}
	s.events.emit(ctx, events.StageDeleted, resp)
	return resp, nil
}

// ReorderStages applies a full left-to-right order
func (s *stageServiceImpl) ReorderStages(ctx context.Context, req *dto.ReorderStagesRequest) ([]dto.StageResponse, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	before := s.manager.Stages().List()
	stages, err := s.manager.ReorderStages(ctx, req.StageIDs)
	if err != nil {
		var partial *pipeline.PartialReorderError
		if errors.As(err, &partial) {
			s.metrics.RecordReorder(metrics.ReorderOutcomePartial)
			s.logger.Warn("Stage reorder partially applied",
				zap.Int("committed", partial.Committed),
				zap.Int("pending", len(partial.Pending)),
			)
			if partial.Committed > 0 {
				s.events.emit(ctx, events.StagesReordered, toStageResponses(stages))
			}
		} else if !errors.Is(err, pipeline.ErrInvalidPermutation) {
			s.metrics.RecordReorder(metrics.ReorderOutcomeFailed)
		}
		return nil, toAppError(err, "Stage")
	}

	resp := toStageResponses(stages)
	if samePositions(before, stages) {
		s.metrics.RecordReorder(metrics.ReorderOutcomeNoop)
		return resp, nil
	}
	s.metrics.RecordReorder(metrics.ReorderOutcomeCommitted)
	s.events.emit(ctx, events.StagesReordered, resp)
	return resp, nil
}

func samePositions(a, b []domain.Stage) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID || a[i].Position != b[i].Position {
			return false
		}
	}
	return true
}
