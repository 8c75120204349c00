package archive

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/mail"
	"os"
	"sync"
	"time"

	mboxlib "github.com/emersion/go-mbox"
	"github.com/jhillyerd/enmime"
)

// MboxArchive adapts a single mbox file to the Archive contract. The file is
// re-read for every enumeration; parsed messages are cached per handle so
// repeated reads of the same message are free of side effects.
type MboxArchive struct {
	path string

	mu    sync.Mutex
	index map[int64]*mboxMessage
}

// OpenMbox opens an mbox file. The file must exist and be readable; its
// contents are validated lazily during enumeration.
func OpenMbox(path string) (*MboxArchive, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open mbox: %w", err)
	}
	f.Close()

	return &MboxArchive{path: path}, nil
}

func (a *MboxArchive) Path() string {
	return a.path
}

func (a *MboxArchive) Close() error {
	return nil
}

// Messages returns a fresh forward iterator over the mbox. An mbox has no
// folder structure, so traversal order is simply file order.
func (a *MboxArchive) Messages() Iterator {
	return &mboxIterator{archive: a}
}

func (a *MboxArchive) MessageCount() (int, error) {
	f, err := os.Open(a.path)
	if err != nil {
		return 0, fmt.Errorf("open mbox: %w", err)
	}
	defer f.Close()

	reader := mboxlib.NewReader(f)
	count := 0
	for {
		msgReader, err := reader.NextMessage()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return count, nil
			}
			return 0, err
		}
		// Count without parsing; an unreadable message still counts.
		if _, err := io.Copy(io.Discard, msgReader); err != nil {
			count++
			continue
		}
		count++
	}
}

func (a *MboxArchive) MessageByID(id int64) (Message, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.index == nil {
		a.index = make(map[int64]*mboxMessage)
		it := &mboxIterator{archive: a}
		for {
			msg, err := it.Next()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				continue
			}
			if m, ok := msg.(*mboxMessage); ok {
				a.index[m.id] = m
			}
		}
	}

	msg, ok := a.index[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d in %s", ErrMessageNotFound, id, a.path)
	}
	return msg, nil
}

type mboxIterator struct {
	archive *MboxArchive
	file    *os.File
	reader  *mboxlib.Reader
	next    int64
	done    bool
}

func (it *mboxIterator) Next() (Message, error) {
	if it.done {
		return nil, io.EOF
	}

	if it.reader == nil {
		f, err := os.Open(it.archive.path)
		if err != nil {
			it.done = true
			return nil, fmt.Errorf("open mbox: %w", err)
		}
		it.file = f
		it.reader = mboxlib.NewReader(f)
	}

	msgReader, err := it.reader.NextMessage()
	if err != nil {
		it.done = true
		it.file.Close()
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("message %d: %w", it.next, err)
	}

	raw, err := io.ReadAll(msgReader)
	if err != nil {
		id := it.next
		it.next++
		return nil, fmt.Errorf("message %d read: %w", id, err)
	}

	msg := &mboxMessage{id: it.next, raw: raw}
	it.next++
	return msg, nil
}

// mboxMessage parses its MIME envelope lazily, exactly once.
type mboxMessage struct {
	id  int64
	raw []byte

	once   sync.Once
	env    *enmime.Envelope
	envErr error
}

func (m *mboxMessage) envelope() (*enmime.Envelope, error) {
	m.once.Do(func() {
		m.env, m.envErr = enmime.ReadEnvelope(bytes.NewReader(m.raw))
	})
	return m.env, m.envErr
}

func (m *mboxMessage) Identifier() int64 {
	return m.id
}

func (m *mboxMessage) Body() (string, BodyType, error) {
	env, err := m.envelope()
	if err != nil {
		return "", BodyTypeNone, err
	}

	if text := env.Text; text != "" {
		return text, BodyTypePlain, nil
	}
	if html := env.HTML; html != "" {
		return html, BodyTypeHTML, nil
	}
	return "", BodyTypeNone, nil
}

func (m *mboxMessage) Headers() (string, error) {
	header, _ := splitRawMessage(m.raw)
	return string(header), nil
}

func (m *mboxMessage) Date() (time.Time, error) {
	env, err := m.envelope()
	if err != nil {
		return time.Time{}, err
	}

	date := env.GetHeader("Date")
	if date == "" {
		return time.Time{}, errors.New("message has no Date header")
	}
	return mail.ParseDate(date)
}

func (m *mboxMessage) Attachments(withContent bool) ([]AttachmentMetadata, error) {
	env, err := m.envelope()
	if err != nil {
		return nil, err
	}

	var metadata []AttachmentMetadata
	for _, part := range env.Attachments {
		meta := AttachmentMetadata{
			Name:     part.FileName,
			MimeType: resolveMimeType(part.ContentType, part.FileName, part.Content),
			Size:     int64(len(part.Content)),
		}
		if withContent {
			meta.Content = part.Content
		}
		metadata = append(metadata, meta)
	}
	return metadata, nil
}

// splitRawMessage splits a raw RFC-822 message into its header block and body.
func splitRawMessage(raw []byte) (header, body []byte) {
	if len(raw) == 0 {
		return nil, nil
	}

	if idx := bytes.Index(raw, []byte("\r\n\r\n")); idx >= 0 {
		return raw[:idx], raw[idx+4:]
	}
	if idx := bytes.Index(raw, []byte("\n\n")); idx >= 0 {
		return raw[:idx], raw[idx+2:]
	}

	return raw, nil
}
