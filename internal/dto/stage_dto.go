package dto

import (
	"time"

	"github.com/google/uuid"
)

// CreateStageRequest represents the request to append a stage to the pipeline
// @Description The new stage is placed after the current last stage
// @Description bgColor is derived from color
type CreateStageRequest struct {
	Name  string `json:"name" binding:"required,max=100" example:"Negotiation"`
	Color string `json:"color" binding:"required,max=50" example:"bg-purple-500"`
}

// UpdateStageRequest represents the request to rename or recolor a stage
// @Description All fields are optional. Position is changed only through the order endpoint.
type UpdateStageRequest struct {
	Name  *string `json:"name" binding:"omitempty,max=100" example:"Qualified"`
	Color *string `json:"color" binding:"omitempty,max=50" example:"bg-indigo-500"`
}

// ReorderStagesRequest represents the full left-to-right stage order
// @Description stageIds must contain every stage exactly once
type ReorderStagesRequest struct {
	StageIDs []uuid.UUID `json:"stageIds" binding:"required" example:"1275eac5-f0f9-4bee-8235-576a0042f42b,539167fb-b599-41ba-9ead-344a6d0b3a2f"`
}

// StageResponse represents a pipeline stage
type StageResponse struct {
	ID        uuid.UUID `json:"id" example:"1275eac5-f0f9-4bee-8235-576a0042f42b"`
	Name      string    `json:"name" example:"Lead"`
	Color     string    `json:"color" example:"bg-blue-500"`
	BgColor   string    `json:"bgColor" example:"bg-blue-50 dark:bg-blue-900/20"`
	Position  int       `json:"position" example:"1"`
	CreatedAt time.Time `json:"createdAt" example:"2024-01-15T10:30:00Z"`
	UpdatedAt time.Time `json:"updatedAt" example:"2024-01-15T10:30:00Z"`
}

// DeleteStageResponse represents the result of deleting a stage
// @Description reassignedCount is the number of customers moved to the reassignTo stage
type DeleteStageResponse struct {
	StageID         uuid.UUID  `json:"stageId" example:"1275eac5-f0f9-4bee-8235-576a0042f42b"`
	ReassignedTo    *uuid.UUID `json:"reassignedTo,omitempty" example:"539167fb-b599-41ba-9ead-344a6d0b3a2f"`
	ReassignedCount int        `json:"reassignedCount" example:"2"`
}

// PartialReorderDetails is returned in the error details of an interrupted reorder
// @Description Re-sending the same order completes the pending stages
type PartialReorderDetails struct {
	CommittedCount  int         `json:"committedCount" example:"1"`
	PendingStageIDs []uuid.UUID `json:"pendingStageIds"`
}
