package repository

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"

	"crm-pipeline-api/internal/client"
	"crm-pipeline-api/internal/domain"
)

const stagesTable = "pipeline_stages"

// stageRow mirrors a pipeline_stages row as PostgREST returns it
type stageRow struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Color     string    `json:"color"`
	BgColor   string    `json:"bg_color"`
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type stageInsert struct {
	Name     string `json:"name"`
	Color    string `json:"color"`
	BgColor  string `json:"bg_color"`
	Position int    `json:"position"`
}

func (r stageRow) toDomain() *domain.Stage {
	return &domain.Stage{
		BaseModel: domain.BaseModel{
			ID:        r.ID,
			CreatedAt: r.CreatedAt,
			UpdatedAt: r.UpdatedAt,
		},
		Name:           r.Name,
		Color:          r.Color,
		SecondaryColor: r.BgColor,
		Position:       r.Position,
	}
}

// restStageRepository stores stages through a PostgREST endpoint.
// It has no multi-row transactions, so it does not implement PositionBatcher.
type restStageRepository struct {
	client client.PostgRESTClient
	now    func() time.Time
}

// NewRESTStageRepository creates a StageRepository backed by PostgREST
func NewRESTStageRepository(c client.PostgRESTClient) StageRepository {
	return &restStageRepository{
		client: c,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (r *restStageRepository) FindAll(ctx context.Context) ([]*domain.Stage, error) {
	query := url.Values{}
	query.Set("order", "position.asc,created_at.asc")

	var rows []stageRow
	if err := r.client.Select(ctx, stagesTable, query, &rows); err != nil {
		return nil, translateRESTError(err)
	}

	stages := make([]*domain.Stage, 0, len(rows))
	for _, row := range rows {
		stages = append(stages, row.toDomain())
	}
	return stages, nil
}

func (r *restStageRepository) Create(ctx context.Context, stage *domain.Stage) error {
	var rows []stageRow
	err := r.client.Insert(ctx, stagesTable, stageInsert{
		Name:     stage.Name,
		Color:    stage.Color,
		BgColor:  stage.SecondaryColor,
		Position: stage.Position,
	}, &rows)
	if err != nil {
		return translateRESTError(err)
	}
	if len(rows) == 0 {
		return fmt.Errorf("%w: insert into %s returned no row", ErrUnavailable, stagesTable)
	}
	*stage = *rows[0].toDomain()
	return nil
}

func (r *restStageRepository) Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) (*domain.Stage, error) {
	patch := make(map[string]interface{}, len(fields)+1)
	for key, value := range fields {
		switch key {
		case FieldName, FieldColor, FieldSecondaryColor, FieldPosition:
			patch[key] = value
		default:
			return nil, fmt.Errorf("%w: unknown stage field %q", ErrConstraint, key)
		}
	}
	patch["updated_at"] = r.now().Format(time.RFC3339Nano)

	var rows []stageRow
	if err := r.client.UpdateByID(ctx, stagesTable, id.String(), patch, &rows); err != nil {
		return nil, translateRESTError(err)
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return rows[0].toDomain(), nil
}

func (r *restStageRepository) Delete(ctx context.Context, id uuid.UUID) error {
	var rows []stageRow
	if err := r.client.DeleteByID(ctx, stagesTable, id.String(), &rows); err != nil {
		return translateRESTError(err)
	}
	if len(rows) == 0 {
		return ErrNotFound
	}
	return nil
}
