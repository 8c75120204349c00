package model

// Attachment is one attachment discovered on a message. Content is only
// populated when payload capture was requested for the job.
type Attachment struct {
	ID           uint   `gorm:"primaryKey"`
	Name         string `gorm:"size:512"`
	MimeType     string `gorm:"size:255;column:mime_type"`
	Size         int64  `gorm:"column:size"`
	Content      []byte `gorm:"type:blob"`
	MessageID    *uint  `gorm:"index"`
	FileReportID *uint  `gorm:"index"`
}

func (Attachment) TableName() string {
	return "attachment"
}
