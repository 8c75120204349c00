package model

// HeaderFieldType is one permissible mail/MIME header name from the IANA
// message-headers registry. The table is populated once per job, before any
// header fields are recorded.
type HeaderFieldType struct {
	ID   uint   `gorm:"primaryKey"`
	Name string `gorm:"size:128;uniqueIndex"`
}

func (HeaderFieldType) TableName() string {
	return "header_field_type"
}

// HeaderField is one recognized RFC-822 header line of a message.
type HeaderField struct {
	ID                uint   `gorm:"primaryKey"`
	Value             string `gorm:"type:text"`
	HeaderFieldTypeID uint   `gorm:"not null;index"`
	MessageID         uint   `gorm:"not null;index"`
}

func (HeaderField) TableName() string {
	return "header_field"
}
