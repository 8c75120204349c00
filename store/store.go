// Package store owns the relational output of a job: schema creation over a
// fresh SQLite file, configuration audit rows, the header-name vocabulary and
// batched entity commits.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mailrake/mailrake/model"
)

// Open creates the output database at path and migrates the full schema.
// Each run targets a new file: an existing target is a hard error, there is
// no migration support.
func Open(path string) (*gorm.DB, error) {
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("output file already exists: %s", path)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create output directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.AutoMigrate(
		&model.FileReport{},
		&model.Message{},
		&model.Entity{},
		&model.Attachment{},
		&model.HeaderFieldType{},
		&model.HeaderField{},
		&model.Configuration{},
	); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	return db, nil
}

// SaveConfiguration writes the job parameters as flat key/value audit rows,
// in stable key order.
func SaveConfiguration(db *gorm.DB, values map[string]string) error {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	rows := make([]model.Configuration, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, model.Configuration{Name: k, Value: values[k]})
	}

	if len(rows) == 0 {
		return nil
	}
	return db.Create(&rows).Error
}

// FlushEntities commits one batch of pending entity rows in a single
// transaction. On failure the transaction is rolled back and the error
// returned; the caller decides whether the job continues.
func FlushEntities(db *gorm.DB, entities []*model.Entity) error {
	if len(entities) == 0 {
		return nil
	}

	return db.Transaction(func(tx *gorm.DB) error {
		return tx.Create(&entities).Error
	})
}
