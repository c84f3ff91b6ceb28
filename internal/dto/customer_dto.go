package dto

import (
	"time"

	"github.com/google/uuid"
)

// DateLayout is the wire format of lastContact
const DateLayout = "2006-01-02"

// CreateCustomerRequest represents the request to create a customer
// @Description stageId is optional and defaults to the first stage
type CreateCustomerRequest struct {
	Name         string                 `json:"name" binding:"required,max=255" example:"Jane Cooper"`
	Email        string                 `json:"email" binding:"required,email,max=255" example:"jane@acme.com"`
	Phone        string                 `json:"phone" binding:"max=50" example:"+1 555 0100"`
	Company      string                 `json:"company" binding:"max=255" example:"Acme"`
	Source       string                 `json:"source" binding:"max=100" example:"website"`
	StageID      *uuid.UUID             `json:"stageId,omitempty" example:"1275eac5-f0f9-4bee-8235-576a0042f42b"`
	Value        float64                `json:"value" binding:"gte=0" example:"12000"`
	CustomFields map[string]interface{} `json:"customFields,omitempty"`
}

// UpdateCustomerRequest represents the request to edit customer fields
// @Description All fields are optional. Stage changes go through the move endpoint.
type UpdateCustomerRequest struct {
	Name         *string                `json:"name" binding:"omitempty,max=255" example:"Jane Cooper"`
	Email        *string                `json:"email" binding:"omitempty,email,max=255" example:"jane@acme.com"`
	Phone        *string                `json:"phone" binding:"omitempty,max=50"`
	Company      *string                `json:"company" binding:"omitempty,max=255"`
	Source       *string                `json:"source" binding:"omitempty,max=100"`
	Value        *float64               `json:"value" binding:"omitempty,gte=0" example:"15000"`
	CustomFields map[string]interface{} `json:"customFields,omitempty"`
}

// MoveCustomerRequest represents a stage transition
// @Description fromStageId is optional; when set the move fails with STALE_MOVE unless it matches the current stage
type MoveCustomerRequest struct {
	ToStageID   uuid.UUID  `json:"toStageId" binding:"required" example:"539167fb-b599-41ba-9ead-344a6d0b3a2f"`
	FromStageID *uuid.UUID `json:"fromStageId,omitempty" example:"1275eac5-f0f9-4bee-8235-576a0042f42b"`
}

// StageSummary is the stage joined onto a customer
type StageSummary struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name" example:"Lead"`
	Color   string    `json:"color" example:"bg-blue-500"`
	BgColor string    `json:"bgColor" example:"bg-blue-50 dark:bg-blue-900/20"`
}

// CustomerResponse represents a customer with its current stage
// @Description stage is null when the customer has no stage or its stage was deleted (dangling=true)
type CustomerResponse struct {
	ID           uuid.UUID              `json:"id" example:"f47ac10b-58cc-4372-a567-0e02b2c3d479"`
	Name         string                 `json:"name" example:"Jane Cooper"`
	Email        string                 `json:"email" example:"jane@acme.com"`
	Phone        string                 `json:"phone" example:"+1 555 0100"`
	Company      string                 `json:"company" example:"Acme"`
	Source       string                 `json:"source" example:"website"`
	StageID      *uuid.UUID             `json:"stageId"`
	Stage        *StageSummary          `json:"stage"`
	Dangling     bool                   `json:"dangling" example:"false"`
	Value        float64                `json:"value" example:"12000"`
	LastContact  string                 `json:"lastContact" example:"2024-01-15"`
	CustomFields map[string]interface{} `json:"customFields,omitempty"`
	CreatedAt    time.Time              `json:"createdAt" example:"2024-01-15T10:30:00Z"`
	UpdatedAt    time.Time              `json:"updatedAt" example:"2024-01-15T10:30:00Z"`
}

// MoveCustomerResponse represents the outcome of a move
// @Description moved=false means the customer already was in the target stage
type MoveCustomerResponse struct {
	Customer    CustomerResponse `json:"customer"`
	FromStageID *uuid.UUID       `json:"fromStageId"`
	Moved       bool             `json:"moved" example:"true"`
}

// BoardFilters narrows the customers on the board and in the customer list
type BoardFilters struct {
	Search  string     `form:"search"`
	StageID *uuid.UUID `form:"stageId"`
}
