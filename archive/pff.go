package archive

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	pst "github.com/mooijtech/go-pst/v6/pkg"
	"github.com/mooijtech/go-pst/v6/pkg/properties"
)

// PffArchive adapts a PST/OST file to the Archive contract. Decoding is done
// by go-pst; this wrapper only adds the traversal, lookup and normalization
// semantics shared with the other formats.
type PffArchive struct {
	path string
	file *os.File
	data *pst.File

	// depthFirst switches the folder walk from the default breadth-first
	// order.
	depthFirst bool

	mu    sync.Mutex
	index map[int64]*pffMessage
}

func OpenPff(path string) (*PffArchive, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pst: %w", err)
	}

	data, err := pst.New(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("parse pst: %w", err)
	}

	return &PffArchive{path: path, file: f, data: data}, nil
}

func (a *PffArchive) Path() string {
	return a.path
}

func (a *PffArchive) Close() error {
	a.data.Cleanup()
	return a.file.Close()
}

// SetDepthFirst switches folder traversal to depth-first for subsequent
// Messages calls.
func (a *PffArchive) SetDepthFirst(depthFirst bool) {
	a.depthFirst = depthFirst
}

// folders walks the folder tree from the root. A sub-folder listing failure
// skips that branch instead of aborting the walk.
func (a *PffArchive) folders() ([]pst.Folder, error) {
	root, err := a.data.GetRootFolder()
	if err != nil {
		return nil, fmt.Errorf("root folder: %w", err)
	}

	queue := []pst.Folder{root}
	var out []pst.Folder

	for len(queue) > 0 {
		var folder pst.Folder
		if a.depthFirst {
			folder = queue[len(queue)-1]
			queue = queue[:len(queue)-1]
		} else {
			folder = queue[0]
			queue = queue[1:]
		}

		out = append(out, folder)

		subFolders, err := folder.GetSubFolders()
		if err != nil {
			continue
		}
		queue = append(queue, subFolders...)
	}

	return out, nil
}

func (a *PffArchive) Messages() Iterator {
	folders, err := a.folders()
	return &pffIterator{folders: folders, err: err}
}

func (a *PffArchive) MessageCount() (int, error) {
	folders, err := a.folders()
	if err != nil {
		return 0, err
	}

	count := 0
	for i := range folders {
		iter, err := folders[i].GetMessageIterator()
		if err != nil {
			// An unreadable folder contributes zero to the count.
			continue
		}
		for iter.Next() {
			count++
		}
	}
	return count, nil
}

func (a *PffArchive) MessageByID(id int64) (Message, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.index == nil {
		a.index = make(map[int64]*pffMessage)
		it := a.Messages()
		for {
			msg, err := it.Next()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				continue
			}
			if m, ok := msg.(*pffMessage); ok {
				a.index[m.Identifier()] = m
			}
		}
	}

	msg, ok := a.index[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d in %s", ErrMessageNotFound, id, a.path)
	}
	return msg, nil
}

type pffIterator struct {
	folders []pst.Folder
	err     error
	pos     int
	current *pst.MessageIterator
}

func (it *pffIterator) Next() (Message, error) {
	if it.err != nil {
		err := it.err
		it.err = nil
		it.folders = nil
		return nil, err
	}

	for {
		if it.current != nil && it.current.Next() {
			return &pffMessage{msg: it.current.Value()}, nil
		}
		it.current = nil

		if it.pos >= len(it.folders) {
			return nil, io.EOF
		}

		folder := it.folders[it.pos]
		it.pos++

		iter, err := folder.GetMessageIterator()
		if err != nil {
			if errors.Is(err, pst.ErrMessagesNotFound) {
				continue
			}
			// A corrupt folder is skipped, not fatal to the walk.
			continue
		}
		it.current = &iter
	}
}

type pffMessage struct {
	msg *pst.Message
}

// properties returns the decoded mail property set, or nil when the message
// carries a non-mail set (appointment, contact, task).
func (m *pffMessage) properties() *properties.Message {
	props, _ := m.msg.Properties.(*properties.Message)
	return props
}

func (m *pffMessage) Identifier() int64 {
	return int64(m.msg.Identifier)
}

func (m *pffMessage) Body() (string, BodyType, error) {
	props := m.properties()

	if props != nil {
		if body := props.GetBody(); body != "" {
			return body, BodyTypePlain, nil
		}
	}
	if body, err := m.msg.GetBodyRTF(); err == nil && body != "" {
		return body, BodyTypeRTF, nil
	}
	if props != nil {
		if body := props.GetBodyHtml(); body != "" {
			return body, BodyTypeHTML, nil
		}
	}
	return "", BodyTypeNone, nil
}

func (m *pffMessage) Headers() (string, error) {
	props := m.properties()
	if props == nil {
		return "", nil
	}
	return props.GetTransportMessageHeaders(), nil
}

func (m *pffMessage) Date() (time.Time, error) {
	props := m.properties()
	if props == nil {
		return time.Time{}, errors.New("message carries no mail properties")
	}

	// Delivery time is stored as Unix nanoseconds; zero means unset.
	ns := props.GetMessageDeliveryTime()
	if ns == 0 {
		return time.Time{}, errors.New("message has no delivery time")
	}
	return time.Unix(0, ns).UTC(), nil
}

func (m *pffMessage) Attachments(withContent bool) ([]AttachmentMetadata, error) {
	iter, err := m.msg.GetAttachmentIterator()
	if err != nil {
		if errors.Is(err, pst.ErrAttachmentsNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var metadata []AttachmentMetadata
	for iter.Next() {
		attachment := iter.Value()

		name := attachment.GetAttachLongFilename()
		if name == "" {
			name = attachment.GetAttachFilename()
		}

		storedMime := attachment.GetAttachMimeTag()

		var buf bytes.Buffer
		size, err := attachment.WriteTo(&buf)
		if err != nil {
			// Payload is unreadable; keep the metadata row.
			size = 0
		}

		meta := AttachmentMetadata{
			Name:     name,
			MimeType: resolveMimeType(storedMime, name, buf.Bytes()),
			Size:     size,
		}
		if withContent {
			meta.Content = buf.Bytes()
		}
		metadata = append(metadata, meta)
	}
	return metadata, nil
}
