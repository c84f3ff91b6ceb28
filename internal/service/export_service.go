package service

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"crm-pipeline-api/internal/client"
	"crm-pipeline-api/internal/domain"
	"crm-pipeline-api/internal/dto"
	"crm-pipeline-api/internal/pipeline"
	"crm-pipeline-api/internal/repository"
	"crm-pipeline-api/internal/response"
)

// ExportService defines the interface for board snapshot exports
type ExportService interface {
	ExportBoard(ctx context.Context) (*dto.ExportResponse, error)
	ListExports(ctx context.Context, limit int) ([]dto.ExportRecordResponse, error)
}

// ExportConfig tunes board exports
type ExportConfig struct {
	// PresignTTL bounds the validity of download URLs
	PresignTTL time.Duration
	// Retention is how long an uploaded export is kept; zero keeps it forever
	Retention time.Duration
}

// exportServiceImpl is the implementation of ExportService
type exportServiceImpl struct {
	manager    *pipeline.Manager
	s3Client   client.S3ClientInterface
	exportRepo repository.ExportRepository
	cfg        ExportConfig
	now        func() time.Time
	logger     *zap.Logger
}

// NewExportService creates a new instance of ExportService.
// s3Client may be nil, in which case exports are unavailable.
// exportRepo may be nil, in which case uploads are not recorded.
func NewExportService(
	manager *pipeline.Manager,
	s3Client client.S3ClientInterface,
	exportRepo repository.ExportRepository,
	cfg ExportConfig,
	logger *zap.Logger,
) ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.PresignTTL <= 0 {
		cfg.PresignTTL = 15 * time.Minute
	}
	return &exportServiceImpl{
		manager:    manager,
		s3Client:   s3Client,
		exportRepo: exportRepo,
		cfg:        cfg,
		now:        time.Now,
		logger:     logger,
	}
}

// ExportBoard uploads a JSON snapshot of the board and returns a presigned download URL
func (s *exportServiceImpl) ExportBoard(ctx context.Context) (*dto.ExportResponse, error) {
	if s.s3Client == nil {
		return nil, response.NewServiceUnavailableError("Board export storage is not configured", nil)
	}

	now := s.now().UTC()
	board := toBoardResponse(s.manager.GetBoard(pipeline.BoardFilter{}))
	body, err := json.Marshal(dto.BoardSnapshot{
		ExportedAt: now,
		Board:      board,
	})
	if err != nil {
		return nil, response.NewInternalError("Failed to encode board snapshot", err.Error())
	}

	key, err := s.s3Client.GenerateExportKey(string(domain.ExportKindBoard), now)
	if err != nil {
		return nil, response.NewInternalError("Failed to generate export key", err.Error())
	}
	if _, err := s.s3Client.UploadFile(ctx, key, bytes.NewReader(body), "application/json"); err != nil {
		s.logger.Error("Board export upload failed", zap.String("key", key), zap.Error(err))
		return nil, response.NewServiceUnavailableError("Failed to upload board export", err.Error())
	}

	url, err := s.s3Client.PresignDownload(ctx, key, s.cfg.PresignTTL)
	if err != nil {
		return nil, response.NewServiceUnavailableError("Failed to presign board export", err.Error())
	}

	resp := &dto.ExportResponse{
		Kind:        string(domain.ExportKindBoard),
		Key:         key,
		DownloadURL: url,
		ExpiresAt:   now.Add(s.cfg.PresignTTL),
		Size:        len(body),
	}

	if s.exportRepo != nil {
		record := &domain.BoardExport{
			Kind:          domain.ExportKindBoard,
			ObjectKey:     key,
			ContentType:   "application/json",
			Size:          int64(len(body)),
			StageCount:    len(board.Columns),
			CustomerCount: board.Stats.TotalCustomers,
			TotalValue:    board.Stats.TotalValue,
		}
		if s.cfg.Retention > 0 {
			retainUntil := now.Add(s.cfg.Retention)
			record.ExpiresAt = &retainUntil
		}
		// The object is already uploaded; a missing record only hides it from listings
		if err := s.exportRepo.Create(ctx, record); err != nil {
			s.logger.Warn("Failed to record board export", zap.String("key", key), zap.Error(err))
		} else {
			resp.ID = &record.ID
		}
	}

	s.logger.Info("Board exported", zap.String("key", key), zap.Int("size", len(body)))
	return resp, nil
}

// ListExports returns the most recent recorded exports, newest first
func (s *exportServiceImpl) ListExports(ctx context.Context, limit int) ([]dto.ExportRecordResponse, error) {
	if s.exportRepo == nil {
		return []dto.ExportRecordResponse{}, nil
	}

	records, err := s.exportRepo.FindRecent(ctx, limit)
	if err != nil {
		return nil, response.NewServiceUnavailableError("Failed to list board exports", err.Error())
	}

	out := make([]dto.ExportRecordResponse, 0, len(records))
	for _, r := range records {
		out = append(out, dto.ExportRecordResponse{
			ID:            r.ID,
			Kind:          string(r.Kind),
			Key:           r.ObjectKey,
			Size:          r.Size,
			StageCount:    r.StageCount,
			CustomerCount: r.CustomerCount,
			TotalValue:    r.TotalValue,
			CreatedAt:     r.CreatedAt,
			RetainUntil:   r.ExpiresAt,
		})
	}
	return out, nil
}
