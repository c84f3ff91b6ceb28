package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"crm-pipeline-api/internal/domain"
)

// StageRepository defines the record store operations on the pipeline_stages table
type StageRepository interface {
	FindAll(ctx context.Context) ([]*domain.Stage, error)
	Create(ctx context.Context, stage *domain.Stage) error
	Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) (*domain.Stage, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// StagePosition is a single position assignment inside a reorder
type StagePosition struct {
	ID       uuid.UUID
	Position int
}

// PositionBatcher is implemented by stores that can rewrite several
// stage positions in one atomic transaction.
type PositionBatcher interface {
	UpdatePositions(ctx context.Context, positions []StagePosition) ([]*domain.Stage, error)
}

// stageRepositoryImpl is the GORM implementation of StageRepository
type stageRepositoryImpl struct {
	db *gorm.DB
}

// NewStageRepository creates a new GORM backed StageRepository
func NewStageRepository(db *gorm.DB) StageRepository {
	return &stageRepositoryImpl{db: db}
}

// FindAll returns all stages ordered by position
func (r *stageRepositoryImpl) FindAll(ctx context.Context) ([]*domain.Stage, error) {
	var stages []*domain.Stage
	if err := r.db.WithContext(ctx).
		Order("position ASC").
		Order("created_at ASC").
		Find(&stages).Error; err != nil {
		return nil, translateGormError(err)
	}
	return stages, nil
}

// Create inserts a stage; ID and timestamps are filled in on the passed value
func (r *stageRepositoryImpl) Create(ctx context.Context, stage *domain.Stage) error {
	if err := r.db.WithContext(ctx).Create(stage).Error; err != nil {
		return translateGormError(err)
	}
	return nil
}

// Update applies a partial update and returns the stored row
func (r *stageRepositoryImpl) Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) (*domain.Stage, error) {
	var stage domain.Stage
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&domain.Stage{}).Where("id = ?", id).Updates(fields)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Where("id = ?", id).First(&stage).Error
	})
	if err != nil {
		return nil, translateGormError(err)
	}
	return &stage, nil
}

// Delete hard deletes a stage
func (r *stageRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Stage{})
	if result.Error != nil {
		return translateGormError(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdatePositions rewrites every given position inside a single transaction
func (r *stageRepositoryImpl) UpdatePositions(ctx context.Context, positions []StagePosition) ([]*domain.Stage, error) {
	if len(positions) == 0 {
		return []*domain.Stage{}, nil
	}

	ids := make([]uuid.UUID, len(positions))
	for i, p := range positions {
		ids[i] = p.ID
	}

	var stages []*domain.Stage
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, p := range positions {
			result := tx.Model(&domain.Stage{}).Where("id = ?", p.ID).Update(FieldPosition, p.Position)
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return gorm.ErrRecordNotFound
			}
		}
		return tx.Where("id IN ?", ids).Order("position ASC").Find(&stages).Error
	})
	if err != nil {
		return nil, translateGormError(err)
	}
	return stages, nil
}
