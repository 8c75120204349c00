package model

// Entity is one named-entity span found in a message body. Filepath is kept
// denormalized so the row stays auditable even when the FileReport link could
// not be established.
type Entity struct {
	ID           uint   `gorm:"primaryKey"`
	Text         string `gorm:"type:text"`
	Label        string `gorm:"size:64;column:label"`
	Filepath     string `gorm:"size:1024"`
	MessageID    *uint  `gorm:"index"`
	FileReportID *uint  `gorm:"index"`
}

func (Entity) TableName() string {
	return "entity"
}
