package store

import (
	_ "embed"
	"encoding/csv"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/mailrake/mailrake/model"
)

// Permanent message header names from the IANA registry:
// https://www.iana.org/assignments/message-headers/message-headers.xhtml
//
//go:embed perm_headers.csv
var permHeadersCSV string

// PopulateHeaderFieldTypes fills the header_field_type table with the
// registry's mail and MIME header names. Populated only for jobs that
// capture message contents.
func PopulateHeaderFieldTypes(db *gorm.DB) error {
	reader := csv.NewReader(strings.NewReader(permHeadersCSV))
	records, err := reader.ReadAll()
	if err != nil {
		return fmt.Errorf("parse header registry: %w", err)
	}

	var rows []model.HeaderFieldType
	for i, record := range records {
		if i == 0 || len(record) < 2 {
			continue
		}
		switch record[1] {
		case "mail", "MIME":
			rows = append(rows, model.HeaderFieldType{Name: record[0]})
		}
	}

	return db.Create(&rows).Error
}

// HeaderFieldTypeMapping caches the header_field_type table as a map from
// lowercased header name to row id. Empty when the table was never
// populated.
func HeaderFieldTypeMapping(db *gorm.DB) (map[string]uint, error) {
	var rows []model.HeaderFieldType
	if err := db.Find(&rows).Error; err != nil {
		return nil, err
	}

	mapping := make(map[string]uint, len(rows))
	for _, row := range rows {
		mapping[strings.ToLower(row.Name)] = row.ID
	}
	return mapping, nil
}
