package model

// FileReport is the audit ledger row for one input file. It is written during
// the scan stage and anchors every message-level record produced later in the
// job. A non-nil Error means the file could not be scanned and is excluded
// from extraction.
type FileReport struct {
	ID       uint    `gorm:"primaryKey"`
	Path     string  `gorm:"size:1024;not null;uniqueIndex"`
	Name     string  `gorm:"size:255"`
	Size     int64   `gorm:"column:size"`
	MD5      string  `gorm:"size:32;column:md5"`
	SHA256   string  `gorm:"size:64;column:sha256"`
	MsgCount int     `gorm:"column:msg_count"`
	Error    *string `gorm:"type:text"`

	Messages    []Message    `gorm:"foreignKey:FileReportID"`
	Entities    []Entity     `gorm:"foreignKey:FileReportID"`
	Attachments []Attachment `gorm:"foreignKey:FileReportID"`
}

func (FileReport) TableName() string {
	return "file_report"
}
