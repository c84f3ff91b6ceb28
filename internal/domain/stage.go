package domain

// Stage represents an ordered column of the sales pipeline (e.g. "Lead", "Customer")
type Stage struct {
	BaseModel
	Name           string `gorm:"type:varchar(100);not null" json:"name"`
	Color          string `gorm:"type:varchar(50);not null" json:"color"`
	SecondaryColor string `gorm:"column:bg_color;type:varchar(100);not null" json:"bg_color"`
	// Position defines left-to-right order. Distinct among live stages, not necessarily contiguous.
	Position int `gorm:"type:int;not null;default:0;index:idx_pipeline_stages_position" json:"position"`
}

// TableName specifies the table name for Stage
func (Stage) TableName() string {
	return "pipeline_stages"
}
