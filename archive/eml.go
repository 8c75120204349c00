package archive

import (
	"fmt"
	"io"
	"os"
)

// EmlArchive treats a single .eml file as a one-message archive so that eml
// input flows through the same pipeline as the container formats.
type EmlArchive struct {
	path string
	msg  *mboxMessage
}

func OpenEml(path string) (*EmlArchive, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open eml: %w", err)
	}

	return &EmlArchive{
		path: path,
		msg:  &mboxMessage{id: 0, raw: raw},
	}, nil
}

func (a *EmlArchive) Path() string {
	return a.path
}

func (a *EmlArchive) Close() error {
	return nil
}

func (a *EmlArchive) Messages() Iterator {
	return &emlIterator{msg: a.msg}
}

func (a *EmlArchive) MessageCount() (int, error) {
	return 1, nil
}

func (a *EmlArchive) MessageByID(id int64) (Message, error) {
	if id != 0 {
		return nil, fmt.Errorf("%w: %d in %s", ErrMessageNotFound, id, a.path)
	}
	return a.msg, nil
}

type emlIterator struct {
	msg  *mboxMessage
	done bool
}

func (it *emlIterator) Next() (Message, error) {
	if it.done {
		return nil, io.EOF
	}
	it.done = true
	return it.msg, nil
}
