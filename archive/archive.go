// Package archive provides a uniform read-only view over mail container
// files. Each supported format (PST, mbox, eml) is wrapped behind the same
// Archive interface; the underlying decoders are external libraries.
package archive

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

var (
	// ErrUnsupportedFileType is returned by Open for file extensions no
	// adapter recognizes.
	ErrUnsupportedFileType = errors.New("unsupported file type")

	// ErrMessageNotFound is returned by MessageByID when the identifier does
	// not exist in the archive.
	ErrMessageNotFound = errors.New("message not found")
)

// BodyType tags the source representation of a message body.
type BodyType int

const (
	BodyTypeNone BodyType = iota
	BodyTypePlain
	BodyTypeRTF
	BodyTypeHTML
)

func (t BodyType) String() string {
	switch t {
	case BodyTypePlain:
		return "plain"
	case BodyTypeRTF:
		return "rtf"
	case BodyTypeHTML:
		return "html"
	}
	return "none"
}

// AttachmentMetadata describes one attachment of a message. MimeType is
// best-effort and may be empty. Content is populated only when payload
// capture was requested.
type AttachmentMetadata struct {
	Name     string
	MimeType string
	Size     int64
	Content  []byte
}

// Message is an opaque handle on a single archive message. Reading any part
// of a message has no side effects: repeated calls return identical results.
type Message interface {
	// Identifier is the archive-internal message id, unique within the
	// source file only.
	Identifier() int64

	// Body returns the message body with its source representation.
	// Precedence is plain text, then RTF, then HTML; an empty body carries
	// BodyTypeNone.
	Body() (string, BodyType, error)

	// Headers returns the raw transport header block, or an empty string
	// when the message has none.
	Headers() (string, error)

	// Date returns the message date. Callers treat a failure here as
	// non-fatal to the message.
	Date() (time.Time, error)

	// Attachments returns attachment metadata, with payload bytes when
	// withContent is set. MIME type resolution never fails: a missing or
	// undecodable stored value falls back to a filename extension guess.
	Attachments(withContent bool) ([]AttachmentMetadata, error)
}

// Iterator walks the messages of an archive. Next returns io.EOF once the
// archive is exhausted; any other error refers to a single message and the
// caller may keep iterating.
type Iterator interface {
	Next() (Message, error)
}

// Archive is the uniform contract over a single mail container.
type Archive interface {
	// Path is the file the archive was opened from.
	Path() string

	// Messages returns a fresh iterator over the archive. Traversal order
	// is breadth-first by folder and deterministic per run.
	Messages() Iterator

	// MessageCount sums per-folder counts, skipping folders the decoder
	// cannot read rather than aborting.
	MessageCount() (int, error)

	// MessageByID looks a message up by identifier, via an index built
	// lazily once per handle. Returns ErrMessageNotFound when absent.
	MessageByID(id int64) (Message, error)

	Close() error
}

// Open dispatches on the file extension and returns the matching adapter.
func Open(path string) (Archive, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pst", ".ost":
		return OpenPff(path)
	case ".mbox":
		return OpenMbox(path)
	case ".eml":
		return OpenEml(path)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedFileType, path)
}

// Discover expands a file or directory path into the sorted set of supported
// archive files. Directories are walked recursively; a plain file argument is
// returned as-is so that its scan failure stays auditable.
func Discover(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	var files []string
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(p)) {
		case ".pst", ".ost", ".mbox", ".eml":
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}
