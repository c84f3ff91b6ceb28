package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crm-pipeline-api/internal/domain"
)

func TestMemoryStageRepository(t *testing.T) {
	repo := NewMemoryStageRepository()
	ctx := context.Background()

	b := &domain.Stage{Name: "B", Color: "bg-red-500", Position: 2}
	a := &domain.Stage{Name: "A", Color: "bg-blue-500", Position: 1}
	require.NoError(t, repo.Create(ctx, b))
	require.NoError(t, repo.Create(ctx, a))

	stages, err := repo.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, stages, 2)
	assert.Equal(t, "A", stages[0].Name)

	// Returned values are copies
	stages[0].Name = "mutated"
	again, _ := repo.FindAll(ctx)
	assert.Equal(t, "A", again[0].Name)

	updated, err := repo.Update(ctx, a.ID, map[string]interface{}{FieldName: "Lead"})
	require.NoError(t, err)
	assert.Equal(t, "Lead", updated.Name)

	_, err = repo.Update(ctx, a.ID, map[string]interface{}{"unknown": 1})
	assert.ErrorIs(t, err, ErrConstraint)
	_, err = repo.Update(ctx, a.ID, map[string]interface{}{FieldPosition: "one"})
	assert.ErrorIs(t, err, ErrConstraint)
	_, err = repo.Update(ctx, uuid.New(), map[string]interface{}{FieldName: "x"})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = repo.UpdatePositions(ctx, []StagePosition{{ID: a.ID, Position: 2}, {ID: uuid.New(), Position: 1}})
	assert.ErrorIs(t, err, ErrNotFound)
	unchanged, _ := repo.FindAll(ctx)
	assert.Equal(t, a.ID, unchanged[0].ID, "failed batch leaves positions untouched")

	_, err = repo.UpdatePositions(ctx, []StagePosition{{ID: a.ID, Position: 2}, {ID: b.ID, Position: 1}})
	require.NoError(t, err)
	swapped, _ := repo.FindAll(ctx)
	assert.Equal(t, b.ID, swapped[0].ID)

	require.NoError(t, repo.Delete(ctx, a.ID))
	assert.ErrorIs(t, repo.Delete(ctx, a.ID), ErrNotFound)
}

func TestMemoryCustomerRepository(t *testing.T) {
	repo := NewMemoryCustomerRepository()
	ctx := context.Background()
	stageID := uuid.New()

	c := &domain.Customer{Name: "Ada", Email: "ada@example.com"}
	require.NoError(t, repo.Create(ctx, c))
	assert.False(t, c.LastContact.IsZero(), "last contact defaults to the creation date")

	moved, err := repo.Update(ctx, c.ID, map[string]interface{}{FieldStageID: stageID})
	require.NoError(t, err)
	require.NotNil(t, moved.StageID)
	assert.Equal(t, stageID, *moved.StageID)

	cleared, err := repo.Update(ctx, c.ID, map[string]interface{}{FieldStageID: (*uuid.UUID)(nil)})
	require.NoError(t, err)
	assert.Nil(t, cleared.StageID)

	day := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	dated, err := repo.Update(ctx, c.ID, map[string]interface{}{FieldLastContact: day, FieldValue: 99.5})
	require.NoError(t, err)
	assert.Equal(t, day, dated.LastContact)
	assert.Equal(t, 99.5, dated.Value)

	_, err = repo.Update(ctx, c.ID, map[string]interface{}{FieldValue: 3})
	assert.ErrorIs(t, err, ErrConstraint, "value must be a float64")

	second := &domain.Customer{Name: "Grace", Email: "grace@example.com"}
	require.NoError(t, repo.Create(ctx, second))
	all, _ := repo.FindAll(ctx)
	require.Len(t, all, 2)
	assert.Equal(t, "Ada", all[0].Name)

	require.NoError(t, repo.Delete(ctx, c.ID))
	all, _ = repo.FindAll(ctx)
	require.Len(t, all, 1)
	assert.Equal(t, "Grace", all[0].Name)
	assert.ErrorIs(t, repo.Delete(ctx, c.ID), ErrNotFound)
}
