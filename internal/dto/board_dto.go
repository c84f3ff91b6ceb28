package dto

import (
	"time"

	"github.com/google/uuid"
)

// BoardColumnResponse represents one stage column of the board
type BoardColumnResponse struct {
	Stage         StageResponse      `json:"stage"`
	Customers     []CustomerResponse `json:"customers"`
	CustomerCount int                `json:"customerCount" example:"4"`
	TotalValue    float64            `json:"totalValue" example:"48000"`
}

// BoardStats summarizes the customers on the board
type BoardStats struct {
	TotalCustomers    int     `json:"totalCustomers" example:"12"`
	TotalValue        float64 `json:"totalValue" example:"150000"`
	DanglingCustomers int     `json:"danglingCustomers" example:"0"`
	UnplacedCustomers int     `json:"unplacedCustomers" example:"0"`
}

// BoardResponse represents the pipeline board
// @Description columns follow stage position; dangling lists customers whose stage no longer exists
type BoardResponse struct {
	Columns  []BoardColumnResponse `json:"columns"`
	Unplaced []CustomerResponse    `json:"unplaced"`
	Dangling []CustomerResponse    `json:"dangling"`
	Stats    BoardStats            `json:"stats"`
}

// ExportResponse represents an uploaded board snapshot.
// ID is empty when export records are not persisted.
type ExportResponse struct {
	ID          *uuid.UUID `json:"id,omitempty"`
	Kind        string     `json:"kind" example:"board"`
	Key         string     `json:"key" example:"exports/board/2024/01/f47ac10b-58cc-4372-a567-0e02b2c3d479_1705314600.json"`
	DownloadURL string     `json:"downloadUrl,omitempty"`
	ExpiresAt   time.Time  `json:"expiresAt" example:"2024-01-15T10:45:00Z"`
	Size        int        `json:"size" example:"2048"`
}

// ExportRecordResponse represents a previously uploaded export
type ExportRecordResponse struct {
	ID            uuid.UUID  `json:"id"`
	Kind          string     `json:"kind" example:"board"`
	Key           string     `json:"key"`
	Size          int64      `json:"size" example:"2048"`
	StageCount    int        `json:"stageCount" example:"3"`
	CustomerCount int        `json:"customerCount" example:"12"`
	TotalValue    float64    `json:"totalValue" example:"150000"`
	CreatedAt     time.Time  `json:"createdAt"`
	RetainUntil   *time.Time `json:"retainUntil,omitempty"`
}

// BoardSnapshot is the document written by an export
type BoardSnapshot struct {
	ExportedAt time.Time     `json:"exportedAt"`
	Board      BoardResponse `json:"board"`
}
