package archive

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestEmlSingleMessage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "single.eml")
	raw := "From: alice@example.com\n" +
		"Subject: Standalone\n" +
		"Date: Mon, 02 Jan 2006 15:04:05 -0700\n" +
		"\n" +
		"A single message about Frank.\n"
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	a, err := OpenEml(path)
	if err != nil {
		t.Fatalf("OpenEml: %v", err)
	}
	defer a.Close()

	count, err := a.MessageCount()
	if err != nil || count != 1 {
		t.Fatalf("expected exactly one message, got %d (%v)", count, err)
	}

	it := a.Messages()
	msg, err := it.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if msg.Identifier() != 0 {
		t.Fatalf("expected identifier 0, got %d", msg.Identifier())
	}

	body, bodyType, err := msg.Body()
	if err != nil {
		t.Fatalf("Body: %v", err)
	}
	if bodyType != BodyTypePlain || !strings.Contains(body, "about Frank") {
		t.Fatalf("unexpected body: %q (%v)", body, bodyType)
	}

	if _, err := it.Next(); !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF after the single message, got %v", err)
	}

	if _, err := a.MessageByID(1); !errors.Is(err, ErrMessageNotFound) {
		t.Fatalf("expected ErrMessageNotFound, got %v", err)
	}
}
