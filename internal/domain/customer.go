package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Customer represents a sales contact placed on the pipeline board
type Customer struct {
	BaseModel
	Name    string `gorm:"type:varchar(255);not null" json:"name"`
	Email   string `gorm:"type:varchar(255);not null" json:"email"`
	Phone   string `gorm:"type:varchar(50)" json:"phone"`
	Company string `gorm:"type:varchar(255)" json:"company"`
	Source  string `gorm:"type:varchar(100)" json:"source"`
	// StageID is a weak reference: deleting a stage does not cascade to its customers
	StageID      *uuid.UUID     `gorm:"type:uuid;index:idx_customers_stage_id" json:"stage_id"`
	Value        float64        `gorm:"type:numeric(14,2);not null;default:0" json:"value"`
	LastContact  time.Time      `gorm:"column:last_contact;type:date" json:"last_contact"`
	CustomFields datatypes.JSON `gorm:"type:jsonb" json:"custom_fields,omitempty"`
}

// TableName specifies the table name for Customer
func (Customer) TableName() string {
	return "customers"
}

// InStage reports whether the customer currently references stageID
func (c *Customer) InStage(stageID uuid.UUID) bool {
	return c.StageID != nil && *c.StageID == stageID
}
