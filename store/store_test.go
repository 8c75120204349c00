package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mailrake/mailrake/model"
)

func TestOpenRefusesExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.sqlite3")
	if err := os.WriteFile(path, []byte("stale"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	if _, err := Open(path); err == nil {
		t.Fatal("expected an error for an existing output file")
	}
}

func TestOpenCreatesParentDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports", "2026", "out.sqlite3")

	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("DB: %v", err)
	}
	defer sqlDB.Close()

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("database file missing: %v", err)
	}
}

func TestSaveConfiguration(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "out.sqlite3"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	values := map[string]string{
		"jobs":       "4",
		"batch_size": "3000",
		"model_name": "default",
	}
	if err := SaveConfiguration(db, values); err != nil {
		t.Fatalf("SaveConfiguration: %v", err)
	}

	var rows []model.Configuration
	if err := db.Order("name").Find(&rows).Error; err != nil {
		t.Fatalf("read configuration: %v", err)
	}
	if len(rows) != len(values) {
		t.Fatalf("expected %d rows, got %d", len(values), len(rows))
	}
	for _, row := range rows {
		if values[row.Name] != row.Value {
			t.Fatalf("row %q: expected %q, got %q", row.Name, values[row.Name], row.Value)
		}
	}
}

func TestHeaderFieldVocabulary(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "out.sqlite3"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if err := PopulateHeaderFieldTypes(db); err != nil {
		t.Fatalf("PopulateHeaderFieldTypes: %v", err)
	}

	mapping, err := HeaderFieldTypeMapping(db)
	if err != nil {
		t.Fatalf("HeaderFieldTypeMapping: %v", err)
	}
	if len(mapping) == 0 {
		t.Fatal("vocabulary is empty")
	}

	// Names are keyed lowercased regardless of registry casing.
	for _, name := range []string{"subject", "from", "date", "mime-version"} {
		if _, ok := mapping[name]; !ok {
			t.Fatalf("expected %q in vocabulary", name)
		}
	}
	if _, ok := mapping["Subject"]; ok {
		t.Fatal("mapping keys are not lowercased")
	}
}

func TestFlushEntitiesEmptyBatch(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "out.sqlite3"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if err := FlushEntities(db, nil); err != nil {
		t.Fatalf("empty flush must be a no-op, got %v", err)
	}
}

func TestFlushEntitiesCommits(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "out.sqlite3"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	batch := []*model.Entity{
		{Text: "Alice", Label: "PERSON", Filepath: "a.mbox"},
		{Text: "Paris", Label: "GPE", Filepath: "a.mbox"},
	}
	if err := FlushEntities(db, batch); err != nil {
		t.Fatalf("FlushEntities: %v", err)
	}

	var count int64
	if err := db.Model(&model.Entity{}).Count(&count).Error; err != nil {
		t.Fatalf("count entities: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 entities, got %d", count)
	}
}
