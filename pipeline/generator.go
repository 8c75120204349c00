package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/mailrake/mailrake/archive"
	"github.com/mailrake/mailrake/stats"
)

// GeneratorOptions configures the message stream. Progress and Events may be
// nil.
type GeneratorOptions struct {
	ModelName         string
	IncludeContents   bool
	AttachmentContent bool

	// ProgressStep is the number of yielded items between progress
	// callbacks; the remainder is reported once at the end.
	ProgressStep int

	Progress func(n int)
	Events   func(stats.Event)
}

// Generator walks a validated set of archive files on a single goroutine and
// yields one WorkItem per message. Failures are tolerated at two
// granularities: a bad message skips to the next message, a bad file skips
// to the next file. One corrupt file never aborts a multi-file job.
type Generator struct {
	files  []string
	opts   GeneratorOptions
	logger *slog.Logger
}

func NewGenerator(files []string, opts GeneratorOptions, logger *slog.Logger) *Generator {
	if opts.ProgressStep <= 0 {
		opts.ProgressStep = 10
	}
	if opts.Progress == nil {
		opts.Progress = func(int) {}
	}
	if opts.Events == nil {
		opts.Events = func(stats.Event) {}
	}
	return &Generator{files: files, opts: opts, logger: logger}
}

// Run streams work items into out until the file set is exhausted or ctx is
// cancelled. The caller owns the channel and closes it after Run returns.
func (g *Generator) Run(ctx context.Context, out chan<- WorkItem) error {
	msgCount := 0

	for _, file := range g.files {
		if err := g.streamFile(ctx, file, out, &msgCount); err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return ctx.Err()
			}
			// Log and move on to the next file.
			g.logger.Info("skipping file", "path", file)
			g.logger.Debug("file stream failure", "path", file, "err", err)
			g.opts.Events(stats.Event{Stage: stats.StageStream, Type: stats.EventTypeError, Filepath: file, Err: err})
		}
	}

	// Report the remaining message count.
	g.opts.Progress(msgCount % g.opts.ProgressStep)
	return nil
}

func (g *Generator) streamFile(ctx context.Context, file string, out chan<- WorkItem, msgCount *int) error {
	a, err := archive.Open(file)
	if err != nil {
		return err
	}
	defer a.Close()

	it := a.Messages()
	for {
		msg, err := it.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}

		*msgCount++
		if *msgCount%g.opts.ProgressStep == 0 {
			g.opts.Progress(g.opts.ProgressStep)
		}

		if err != nil {
			// Log and move on to the next message in the same file.
			g.logger.Info("skipping a message", "path", file)
			g.logger.Debug("message decode failure", "path", file, "err", err)
			g.opts.Events(stats.Event{Stage: stats.StageStream, Type: stats.EventTypeSkipped, Filepath: file, Err: err})
			continue
		}

		item, err := g.buildItem(a, msg)
		if err != nil {
			g.logger.Info("skipping message", "path", file, "messageId", msg.Identifier())
			g.logger.Debug("message read failure", "path", file, "messageId", msg.Identifier(), "err", err)
			g.opts.Events(stats.Event{Stage: stats.StageStream, Type: stats.EventTypeSkipped, Filepath: file, MessageID: msg.Identifier(), Err: err})
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case out <- item:
			g.opts.Events(stats.Event{Stage: stats.StageStream, Type: stats.EventTypeStreamed, Filepath: file, MessageID: item.MessageID})
		}
	}
}

func (g *Generator) buildItem(a archive.Archive, msg archive.Message) (WorkItem, error) {
	item := WorkItem{
		Filepath:        a.Path(),
		MessageID:       msg.Identifier(),
		ModelName:       g.opts.ModelName,
		IncludeContents: g.opts.IncludeContents,
	}

	attachments, err := msg.Attachments(g.opts.AttachmentContent)
	if err != nil {
		return WorkItem{}, err
	}
	item.Attachments = attachments

	body, bodyType, err := msg.Body()
	if err != nil {
		return WorkItem{}, err
	}
	item.Body = body
	item.BodyType = bodyType

	// Date extraction failure is non-fatal to the message.
	if date, err := msg.Date(); err == nil && !date.IsZero() {
		item.Date = &date
	} else if err != nil {
		g.logger.Debug("unable to extract message date",
			"path", a.Path(), "messageId", msg.Identifier(), "err", err)
	}

	if g.opts.IncludeContents {
		headers, err := msg.Headers()
		if err != nil {
			return WorkItem{}, err
		}
		item.Headers = headers
	}

	return item, nil
}
