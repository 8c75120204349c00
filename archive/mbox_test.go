package archive

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// writeMbox writes messages into a fresh mbox file, one From_ separator per
// message.
func writeMbox(t *testing.T, path string, messages ...string) string {
	t.Helper()

	var sb strings.Builder
	for _, msg := range messages {
		sb.WriteString("From sender@example.com Mon Jan  2 15:04:05 2006\n")
		sb.WriteString(msg)
		if !strings.HasSuffix(msg, "\n") {
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		t.Fatalf("write mbox fixture: %v", err)
	}
	return path
}

func plainMessage(subject, body string) string {
	return "From: alice@example.com\n" +
		"To: bob@example.com\n" +
		"Subject: " + subject + "\n" +
		"Date: Mon, 02 Jan 2006 15:04:05 -0700\n" +
		"\n" +
		body
}

func TestMboxIteration(t *testing.T) {
	path := writeMbox(t, filepath.Join(t.TempDir(), "sample.mbox"),
		plainMessage("First", "Meeting with Alice."),
		plainMessage("Second", "Lunch with Bob."),
		plainMessage("Third", "Call with Carol."),
	)

	a, err := OpenMbox(path)
	if err != nil {
		t.Fatalf("OpenMbox: %v", err)
	}
	defer a.Close()

	count, err := a.MessageCount()
	if err != nil {
		t.Fatalf("MessageCount: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 messages, got %d", count)
	}

	it := a.Messages()
	var ids []int64
	for {
		msg, err := it.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		ids = append(ids, msg.Identifier())
	}

	if len(ids) != 3 {
		t.Fatalf("iterated %d messages, expected 3", len(ids))
	}
	for i, id := range ids {
		if id != int64(i) {
			t.Fatalf("expected sequential identifiers, got %v", ids)
		}
	}
}

func TestMboxMessageReads(t *testing.T) {
	path := writeMbox(t, filepath.Join(t.TempDir(), "sample.mbox"),
		plainMessage("Quarterly report", "Summary attached by Dave."),
	)

	a, err := OpenMbox(path)
	if err != nil {
		t.Fatalf("OpenMbox: %v", err)
	}
	defer a.Close()

	msg, err := a.Messages().Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}

	body, bodyType, err := msg.Body()
	if err != nil {
		t.Fatalf("Body: %v", err)
	}
	if bodyType != BodyTypePlain {
		t.Fatalf("expected plain body, got %v", bodyType)
	}
	if !strings.Contains(body, "Summary attached by Dave.") {
		t.Fatalf("unexpected body: %q", body)
	}

	// Repeated reads must return identical results.
	again, againType, err := msg.Body()
	if err != nil {
		t.Fatalf("second Body: %v", err)
	}
	if again != body || againType != bodyType {
		t.Fatal("repeated Body read differed")
	}

	headers, err := msg.Headers()
	if err != nil {
		t.Fatalf("Headers: %v", err)
	}
	if !strings.Contains(headers, "Subject: Quarterly report") {
		t.Fatalf("unexpected headers: %q", headers)
	}
	if strings.Contains(headers, "Summary attached") {
		t.Fatalf("body leaked into headers: %q", headers)
	}

	date, err := msg.Date()
	if err != nil {
		t.Fatalf("Date: %v", err)
	}
	want := time.Date(2006, time.January, 2, 15, 4, 5, 0, time.FixedZone("", -7*3600))
	if !date.Equal(want) {
		t.Fatalf("expected %v, got %v", want, date)
	}
}

func TestMboxAttachments(t *testing.T) {
	mime := "From: alice@example.com\n" +
		"To: bob@example.com\n" +
		"Subject: With attachment\n" +
		"MIME-Version: 1.0\n" +
		"Content-Type: multipart/mixed; boundary=\"BOUNDARY\"\n" +
		"\n" +
		"--BOUNDARY\n" +
		"Content-Type: text/plain\n" +
		"\n" +
		"See attached notes.\n" +
		"--BOUNDARY\n" +
		"Content-Type: text/plain; name=\"notes.txt\"\n" +
		"Content-Disposition: attachment; filename=\"notes.txt\"\n" +
		"\n" +
		"Budget review with Erin.\n" +
		"--BOUNDARY--\n"

	path := writeMbox(t, filepath.Join(t.TempDir(), "attach.mbox"), mime)

	a, err := OpenMbox(path)
	if err != nil {
		t.Fatalf("OpenMbox: %v", err)
	}
	defer a.Close()

	msg, err := a.Messages().Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}

	metadata, err := msg.Attachments(false)
	if err != nil {
		t.Fatalf("Attachments: %v", err)
	}
	if len(metadata) != 1 {
		t.Fatalf("expected 1 attachment, got %d", len(metadata))
	}
	if metadata[0].Name != "notes.txt" {
		t.Fatalf("unexpected attachment name: %q", metadata[0].Name)
	}
	if metadata[0].Size == 0 {
		t.Fatal("attachment size not recorded")
	}
	if metadata[0].Content != nil {
		t.Fatal("content captured without being requested")
	}

	withContent, err := msg.Attachments(true)
	if err != nil {
		t.Fatalf("Attachments with content: %v", err)
	}
	if !strings.Contains(string(withContent[0].Content), "Budget review with Erin.") {
		t.Fatalf("unexpected attachment content: %q", withContent[0].Content)
	}
}

func TestMboxMessageByID(t *testing.T) {
	path := writeMbox(t, filepath.Join(t.TempDir(), "sample.mbox"),
		plainMessage("First", "one"),
		plainMessage("Second", "two"),
	)

	a, err := OpenMbox(path)
	if err != nil {
		t.Fatalf("OpenMbox: %v", err)
	}
	defer a.Close()

	msg, err := a.MessageByID(1)
	if err != nil {
		t.Fatalf("MessageByID: %v", err)
	}
	headers, err := msg.Headers()
	if err != nil {
		t.Fatalf("Headers: %v", err)
	}
	if !strings.Contains(headers, "Subject: Second") {
		t.Fatalf("wrong message for id 1: %q", headers)
	}

	if _, err := a.MessageByID(99); !errors.Is(err, ErrMessageNotFound) {
		t.Fatalf("expected ErrMessageNotFound, got %v", err)
	}
}

func TestMboxRepeatedEnumeration(t *testing.T) {
	path := writeMbox(t, filepath.Join(t.TempDir(), "sample.mbox"),
		plainMessage("First", "one"),
		plainMessage("Second", "two"),
	)

	a, err := OpenMbox(path)
	if err != nil {
		t.Fatalf("OpenMbox: %v", err)
	}
	defer a.Close()

	counts := make([]int, 2)
	for round := range counts {
		it := a.Messages()
		for {
			_, err := it.Next()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				t.Fatalf("round %d: %v", round, err)
			}
			counts[round]++
		}
	}

	if counts[0] != 2 || counts[1] != 2 {
		t.Fatalf("enumeration not repeatable: %v", counts)
	}
}
