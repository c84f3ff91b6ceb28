package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"crm-pipeline-api/internal/domain"
)

// ExportRepository defines the interface for board export records
type ExportRepository interface {
	Create(ctx context.Context, export *domain.BoardExport) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.BoardExport, error)
	FindRecent(ctx context.Context, limit int) ([]*domain.BoardExport, error)
	FindExpired(ctx context.Context, now time.Time) ([]*domain.BoardExport, error)
	DeleteBatch(ctx context.Context, ids []uuid.UUID) error
}

// exportRepositoryImpl is the GORM implementation of ExportRepository
type exportRepositoryImpl struct {
	db *gorm.DB
}

// NewExportRepository creates a new instance of ExportRepository
func NewExportRepository(db *gorm.DB) ExportRepository {
	return &exportRepositoryImpl{db: db}
}

// Create records an uploaded export
func (r *exportRepositoryImpl) Create(ctx context.Context, export *domain.BoardExport) error {
	return translateGormError(r.db.WithContext(ctx).Create(export).Error)
}

// FindByID finds an export by its ID
func (r *exportRepositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*domain.BoardExport, error) {
	var export domain.BoardExport
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&export).Error; err != nil {
		return nil, translateGormError(err)
	}
	return &export, nil
}

// FindRecent returns the newest exports first
func (r *exportRepositoryImpl) FindRecent(ctx context.Context, limit int) ([]*domain.BoardExport, error) {
	if limit <= 0 {
		limit = 20
	}
	var exports []*domain.BoardExport
	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&exports).Error; err != nil {
		return nil, translateGormError(err)
	}
	return exports, nil
}

// FindExpired returns exports whose retention ended before now
func (r *exportRepositoryImpl) FindExpired(ctx context.Context, now time.Time) ([]*domain.BoardExport, error) {
	var exports []*domain.BoardExport
	if err := r.db.WithContext(ctx).
		Where("expires_at IS NOT NULL AND expires_at < ?", now).
		Find(&exports).Error; err != nil {
		return nil, translateGormError(err)
	}
	return exports, nil
}

// DeleteBatch deletes export records by their IDs
func (r *exportRepositoryImpl) DeleteBatch(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return translateGormError(r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Delete(&domain.BoardExport{}).Error)
}
