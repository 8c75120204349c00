// Package nlp is the boundary to the named-entity recognition model. The
// pipeline only depends on the Recognizer interface; the default
// implementation is backed by prose.
package nlp

import (
	"fmt"
	"os"

	prose "github.com/jdkato/prose/v2"
)

// DefaultModel selects prose's built-in English model.
const DefaultModel = "default"

// Span is one recognized entity: its literal text and type label.
type Span struct {
	Text  string
	Label string
}

// Recognizer extracts named entities from a piece of text. Implementations
// are not required to be safe for concurrent use; each worker resolves its
// own instance.
type Recognizer interface {
	Extract(text string) ([]Span, error)
}

// Loader resolves a model name into a Recognizer. Load is the default; tests
// and callers may substitute their own.
type Loader func(name string) (Recognizer, error)

// Load returns a prose-backed Recognizer. Any name other than DefaultModel
// is treated as a model directory on disk.
func Load(name string) (Recognizer, error) {
	opts := []prose.DocOpt{
		prose.WithSegmentation(false),
		prose.WithTagging(true),
	}

	if name != DefaultModel {
		if _, err := os.Stat(name); err != nil {
			return nil, fmt.Errorf("model %q: %w", name, err)
		}
		opts = append(opts, prose.UsingModel(prose.ModelFromDisk(name)))
	}

	return &proseRecognizer{opts: opts}, nil
}

// Version identifies the recognizer implementation in the job's
// configuration audit record.
func Version() string {
	return "prose/v2"
}

type proseRecognizer struct {
	opts []prose.DocOpt
}

func (r *proseRecognizer) Extract(text string) ([]Span, error) {
	if text == "" {
		return nil, nil
	}

	doc, err := prose.NewDocument(text, r.opts...)
	if err != nil {
		return nil, err
	}

	ents := doc.Entities()
	spans := make([]Span, 0, len(ents))
	for _, ent := range ents {
		spans = append(spans, Span{Text: ent.Text, Label: ent.Label})
	}
	return spans, nil
}
