// Package pipeline implements the concurrent extraction pipeline: a single
// message stream generator feeding a fixed-size worker pool, whose unordered
// results are assembled into relational records by a single writer.
package pipeline

import (
	"time"

	"github.com/mailrake/mailrake/archive"
	"github.com/mailrake/mailrake/nlp"
)

// WorkItem is the serializable bundle of per-message data handed from the
// stream generator to a worker. It carries plain data only, never live
// archive or model handles.
type WorkItem struct {
	Filepath        string
	MessageID       int64
	Body            string
	BodyType        archive.BodyType
	Date            *time.Time
	Headers         string
	Attachments     []archive.AttachmentMetadata
	ModelName       string
	IncludeContents bool
}

// Result is a worker's output for one message: the original message context
// plus either the extracted entities or the captured error.
type Result struct {
	Filepath            string
	MessageID           int64
	Date                *time.Time
	ProcessingStartTime time.Time
	ProcessingEndTime   time.Time
	Attachments         []archive.AttachmentMetadata
	Entities            []nlp.Span

	// Body and Headers are set only when content inclusion was requested.
	Body    string
	Headers string

	// Err is the captured failure; when non-empty the message contributes
	// no records.
	Err string
}
