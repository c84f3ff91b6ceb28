package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"crm-pipeline-api/internal/dto"
	"crm-pipeline-api/internal/metrics"
	"crm-pipeline-api/internal/pipeline"
)

// BoardService defines the interface for the pipeline board read model
type BoardService interface {
	GetBoard(ctx context.Context, filters *dto.BoardFilters) (*dto.BoardResponse, error)
	ReloadBoard(ctx context.Context) (*dto.BoardResponse, error)
}

// boardServiceImpl is the implementation of BoardService
type boardServiceImpl struct {
	manager *pipeline.Manager
	timeout time.Duration
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewBoardService creates a new instance of BoardService
func NewBoardService(manager *pipeline.Manager, timeout time.Duration, m *metrics.Metrics, logger *zap.Logger) BoardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &boardServiceImpl{
		manager: manager,
		timeout: timeout,
		metrics: m,
		logger:  logger,
	}
}

// GetBoard groups the customers under their stages
func (s *boardServiceImpl) GetBoard(ctx context.Context, filters *dto.BoardFilters) (*dto.BoardResponse, error) {
	resp := toBoardResponse(s.manager.GetBoard(toBoardFilter(filters)))
	return &resp, nil
}

// ReloadBoard refreshes both caches from the record store.
// A failed load keeps the previous contents and is reported as unavailable.
func (s *boardServiceImpl) ReloadBoard(ctx context.Context) (*dto.BoardResponse, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.manager.Refresh(ctx); err != nil {
		s.logger.Warn("Board reload failed", zap.Error(err))
		return nil, toAppError(err, "Board")
	}
	RecordSnapshot(s.metrics, s.manager.Stats())

	resp := toBoardResponse(s.manager.GetBoard(pipeline.BoardFilter{}))
	return &resp, nil
}

// RecordSnapshot publishes pipeline stats to the business gauges
func RecordSnapshot(m *metrics.Metrics, stats pipeline.Stats) {
	m.SetPipelineSnapshot(metrics.PipelineSnapshot{
		Stages:            stats.Stages,
		Customers:         stats.Customers,
		DanglingCustomers: stats.DanglingCustomers,
		PositionGaps:      stats.PositionGaps,
		TotalValue:        stats.TotalValue,
	})
}
