package model

// Configuration is a flat key/value audit record of the job parameters,
// written once per run for reproducibility.
type Configuration struct {
	ID    uint   `gorm:"primaryKey"`
	Name  string `gorm:"size:255;not null"`
	Value string `gorm:"type:text"`
}

func (Configuration) TableName() string {
	return "configuration"
}
