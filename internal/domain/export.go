package domain

import (
	"time"
)

// ExportKind names what a board export contains
type ExportKind string

const (
	ExportKindBoard     ExportKind = "board"
	ExportKindStages    ExportKind = "stages"
	ExportKindCustomers ExportKind = "customers"
)

// BoardExport records a snapshot uploaded to object storage.
// ObjectKey is the S3 key only, never a full URL.
type BoardExport struct {
	BaseModel
	Kind          ExportKind `gorm:"type:varchar(20);not null;index:idx_board_exports_kind" json:"kind"`
	ObjectKey     string     `gorm:"type:text;not null" json:"object_key"`
	ContentType   string     `gorm:"type:varchar(100);not null" json:"content_type"`
	Size          int64      `gorm:"not null" json:"size"`
	StageCount    int        `gorm:"not null;default:0" json:"stage_count"`
	CustomerCount int        `gorm:"not null;default:0" json:"customer_count"`
	TotalValue    float64    `gorm:"type:numeric(14,2);not null;default:0" json:"total_value"`
	ExpiresAt     *time.Time `gorm:"type:timestamp;index:idx_board_exports_expires_at" json:"expires_at"`
}

// TableName specifies the table name for BoardExport
func (BoardExport) TableName() string {
	return "board_exports"
}

// Expired reports whether the export passed its retention at now
func (e BoardExport) Expired(now time.Time) bool {
	return e.ExpiresAt != nil && e.ExpiresAt.Before(now)
}
