package job

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"crm-pipeline-api/internal/client"
	"crm-pipeline-api/internal/repository"
)

// ExportCleanupJob removes board exports past their retention
type ExportCleanupJob struct {
	exportRepo repository.ExportRepository
	s3Client   client.S3ClientInterface
	now        func() time.Time
	logger     *zap.Logger
}

// NewExportCleanupJob creates a new ExportCleanupJob instance
func NewExportCleanupJob(
	exportRepo repository.ExportRepository,
	s3Client client.S3ClientInterface,
	logger *zap.Logger,
) *ExportCleanupJob {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportCleanupJob{
		exportRepo: exportRepo,
		s3Client:   s3Client,
		now:        time.Now,
		logger:     logger,
	}
}

// Run executes the cleanup job. It implements cron.Job.
func (j *ExportCleanupJob) Run() {
	j.RunOnce(context.Background())
}

// RunOnce deletes expired exports from S3 and then their records.
// A record is only removed once its object is gone. It returns the number
// of exports removed.
func (j *ExportCleanupJob) RunOnce(ctx context.Context) int {
	expired, err := j.exportRepo.FindExpired(ctx, j.now())
	if err != nil {
		j.logger.Error("Failed to find expired board exports", zap.Error(err))
		return 0
	}
	if len(expired) == 0 {
		j.logger.Debug("No expired board exports found")
		return 0
	}

	var deleted []uuid.UUID
	failCount := 0
	for _, export := range expired {
		if err := j.s3Client.DeleteFile(ctx, export.ObjectKey); err != nil {
			j.logger.Error("Failed to delete export from S3",
				zap.String("export_id", export.ID.String()),
				zap.String("key", export.ObjectKey),
				zap.Error(err),
			)
			failCount++
			continue
		}
		deleted = append(deleted, export.ID)
	}

	if len(deleted) > 0 {
		if err := j.exportRepo.DeleteBatch(ctx, deleted); err != nil {
			j.logger.Error("Failed to delete export records",
				zap.Int("count", len(deleted)),
				zap.Error(err),
			)
			return 0
		}
	}

	j.logger.Info("Export cleanup completed",
		zap.Int("total_expired", len(expired)),
		zap.Int("success", len(deleted)),
		zap.Int("failed", failCount),
	)
	return len(deleted)
}
