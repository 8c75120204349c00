package archive

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestOpenUnsupportedType(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("plain text"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	if _, err := Open(path); !errors.Is(err, ErrUnsupportedFileType) {
		t.Fatalf("expected ErrUnsupportedFileType, got %v", err)
	}
}

func TestOpenDispatchesOnExtension(t *testing.T) {
	dir := t.TempDir()
	path := writeMbox(t, filepath.Join(dir, "inbox.MBOX"),
		plainMessage("Hello", "body"))

	// Extension matching is case-insensitive.
	a, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer a.Close()

	if a.Path() != path {
		t.Fatalf("expected path %q, got %q", path, a.Path())
	}
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "nested")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	files := map[string]bool{
		filepath.Join(dir, "b.mbox"):      true,
		filepath.Join(dir, "a.pst"):       true,
		filepath.Join(sub, "deep.eml"):    true,
		filepath.Join(dir, "ignored.txt"): false,
		filepath.Join(dir, "readme.md"):   false,
	}
	for path := range files {
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatalf("write fixture: %v", err)
		}
	}

	found, err := Discover(dir)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}

	want := []string{
		filepath.Join(dir, "a.pst"),
		filepath.Join(dir, "b.mbox"),
		filepath.Join(sub, "deep.eml"),
	}
	if len(found) != len(want) {
		t.Fatalf("expected %v, got %v", want, found)
	}
	for i := range want {
		if found[i] != want[i] {
			t.Fatalf("expected sorted %v, got %v", want, found)
		}
	}
}

func TestDiscoverSingleFile(t *testing.T) {
	// A plain file argument is returned as-is, even with an unsupported
	// extension; the scan stage records the failure.
	path := filepath.Join(t.TempDir(), "whatever.bin")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	found, err := Discover(path)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(found) != 1 || found[0] != path {
		t.Fatalf("expected [%s], got %v", path, found)
	}
}
