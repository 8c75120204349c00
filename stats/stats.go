package stats

import "sync"

type Stage string

const (
	StageScan    Stage = "scan"
	StageStream  Stage = "stream"
	StageExtract Stage = "extract"
	StagePersist Stage = "persist"
)

type EventType string

const (
	// Phase markers; Count carries the phase total.
	EventTypeScanBegin    EventType = "scan_begin"
	EventTypeExtractBegin EventType = "extract_begin"

	EventTypeFileScanned EventType = "file_scanned"
	EventTypeFileFailed  EventType = "file_failed"
	EventTypeStreamed    EventType = "streamed"
	EventTypeExtracted   EventType = "extracted"
	EventTypePersisted   EventType = "persisted"
	EventTypeSkipped     EventType = "skipped"
	EventTypeCommitted   EventType = "committed"
	EventTypeError       EventType = "error"
)

type Event struct {
	Stage     Stage
	Type      EventType
	Filepath  string
	MessageID int64
	Count     int
	Err       error
}

type Summary struct {
	FilesScanned int
	FilesFailed  int
	Streamed     int
	Extracted    int
	Persisted    int
	Skipped      int
	Commits      int
	Errors       int
	LastError    error
}

func (s Summary) LogAttrs() []any {
	attrs := []any{
		"filesScanned", s.FilesScanned,
		"filesFailed", s.FilesFailed,
		"streamed", s.Streamed,
		"extracted", s.Extracted,
		"persisted", s.Persisted,
		"skipped", s.Skipped,
		"commits", s.Commits,
		"errors", s.Errors,
	}
	if s.LastError != nil {
		attrs = append(attrs, "lastError", s.LastError.Error())
	}
	return attrs
}

type Collector struct {
	mu      sync.Mutex
	summary Summary
}

func NewCollector() *Collector {
	return &Collector{}
}

func (c *Collector) Snapshot() Summary {
	c.mu.Lock()
	summary := c.summary
	c.mu.Unlock()
	return summary
}

func (c *Collector) Apply(evt Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch evt.Type {
	case EventTypeFileScanned:
		c.summary.FilesScanned++
	case EventTypeFileFailed:
		c.summary.FilesScanned++
		c.summary.FilesFailed++
	case EventTypeStreamed:
		c.summary.Streamed++
	case EventTypeExtracted:
		c.summary.Extracted++
	case EventTypePersisted:
		c.summary.Persisted++
	case EventTypeSkipped:
		c.summary.Skipped++
	case EventTypeCommitted:
		c.summary.Commits++
	case EventTypeError:
		c.summary.Errors++
		if evt.Err != nil {
			c.summary.LastError = evt.Err
		}
	}
}
