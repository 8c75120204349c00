package model

import "time"

// Message is one successfully processed archive message. The identifier is
// unique within its source file only. FileReportID is nullable: a failed
// linkage lookup is recorded as a degradation, not treated as fatal.
type Message struct {
	ID                  uint       `gorm:"primaryKey"`
	Identifier          int64      `gorm:"column:identifier;index"`
	Date                *time.Time `gorm:"column:date"`
	Headers             string     `gorm:"type:text"`
	Body                string     `gorm:"type:text"`
	ProcessingStartTime time.Time  `gorm:"column:processing_start_time"`
	ProcessingEndTime   time.Time  `gorm:"column:processing_end_time"`
	FileReportID        *uint      `gorm:"index"`
}

func (Message) TableName() string {
	return "message"
}
