package stats

import (
	"errors"
	"testing"
)

func TestCollectorApply(t *testing.T) {
	c := NewCollector()

	events := []Event{
		{Stage: StageScan, Type: EventTypeScanBegin, Count: 2},
		{Stage: StageScan, Type: EventTypeFileScanned},
		{Stage: StageScan, Type: EventTypeFileFailed},
		{Stage: StageStream, Type: EventTypeStreamed},
		{Stage: StageStream, Type: EventTypeStreamed},
		{Stage: StageExtract, Type: EventTypeExtracted},
		{Stage: StagePersist, Type: EventTypePersisted},
		{Stage: StageExtract, Type: EventTypeSkipped},
		{Stage: StagePersist, Type: EventTypeCommitted, Count: 3},
		{Stage: StagePersist, Type: EventTypeError, Err: errors.New("disk full")},
	}
	for _, evt := range events {
		c.Apply(evt)
	}

	summary := c.Snapshot()
	if summary.FilesScanned != 2 || summary.FilesFailed != 1 {
		t.Fatalf("unexpected file counts: %+v", summary)
	}
	if summary.Streamed != 2 || summary.Extracted != 1 || summary.Persisted != 1 || summary.Skipped != 1 {
		t.Fatalf("unexpected message counts: %+v", summary)
	}
	if summary.Commits != 1 {
		t.Fatalf("expected 1 commit, got %d", summary.Commits)
	}
	if summary.Errors != 1 || summary.LastError == nil {
		t.Fatalf("error not recorded: %+v", summary)
	}
}

func TestSummaryLogAttrs(t *testing.T) {
	attrs := Summary{Persisted: 5}.LogAttrs()
	if len(attrs) == 0 || len(attrs)%2 != 0 {
		t.Fatalf("expected key/value pairs, got %d entries", len(attrs))
	}

	withErr := Summary{LastError: errors.New("boom")}.LogAttrs()
	if len(withErr) != len(attrs)+2 {
		t.Fatal("last error not appended to attributes")
	}
}
