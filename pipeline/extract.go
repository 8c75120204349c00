package pipeline

import (
	"context"
	"log/slog"
	"strings"

	"gorm.io/gorm"

	"github.com/mailrake/mailrake/model"
	"github.com/mailrake/mailrake/nlp"
	"github.com/mailrake/mailrake/stats"
	"github.com/mailrake/mailrake/store"
)

// Job status codes returned to the caller.
const (
	StatusOK = 0
	// StatusCancelled means the job was interrupted; results committed
	// before the interrupt remain in storage.
	StatusCancelled = 1
	// StatusSetupError means the job could not start at all.
	StatusSetupError = 2
)

// ExtractOptions configures an extraction run over a validated file set.
type ExtractOptions struct {
	ModelName         string
	Jobs              int
	BatchSize         int
	ProgressStep      int
	BodySizeThreshold int
	IncludeContents   bool
	AttachmentContent bool

	// Loader resolves recognizers inside workers; nil means nlp.Load.
	Loader nlp.Loader

	StreamProgress    func(n int)
	ReportingProgress func(n int)
	Events            func(stats.Event)
}

// Extractor consumes the worker pool's unordered result stream and is the
// storage's only writer: it reconstructs relational records, links them to
// their file report, and commits entities in bounded batches.
type Extractor struct {
	db     *gorm.DB
	logger *slog.Logger
	opts   ExtractOptions
	emit   func(stats.Event)
}

func NewExtractor(db *gorm.DB, opts ExtractOptions, logger *slog.Logger) *Extractor {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 3000
	}
	if opts.ProgressStep <= 0 {
		opts.ProgressStep = 10
	}
	if opts.StreamProgress == nil {
		opts.StreamProgress = func(int) {}
	}
	if opts.ReportingProgress == nil {
		opts.ReportingProgress = func(int) {}
	}
	emit := opts.Events
	if emit == nil {
		emit = func(stats.Event) {}
	}

	return &Extractor{db: db, logger: logger, opts: opts, emit: emit}
}

// Run drives the generator and worker pool over files and persists results
// until the stream drains or ctx is cancelled. The returned status is
// StatusOK or StatusCancelled.
func (e *Extractor) Run(ctx context.Context, files []string) int {
	fileReports, err := e.loadFileReports()
	if err != nil {
		e.logger.Error("load file reports", "err", err)
		fileReports = map[string]*model.FileReport{}
	}

	headerTypes, err := store.HeaderFieldTypeMapping(e.db)
	if err != nil {
		e.logger.Error("load header field types", "err", err)
		headerTypes = map[string]uint{}
	}

	generator := NewGenerator(files, GeneratorOptions{
		ModelName:         e.opts.ModelName,
		IncludeContents:   e.opts.IncludeContents,
		AttachmentContent: e.opts.AttachmentContent,
		ProgressStep:      e.opts.ProgressStep,
		Progress:          e.opts.StreamProgress,
		Events:            e.opts.Events,
	}, e.logger)

	pool := NewPool(e.opts.Jobs, e.opts.Loader, e.opts.BodySizeThreshold, e.logger)

	items := make(chan WorkItem, 2*poolSize(e.opts.Jobs))
	results := make(chan Result, 2*poolSize(e.opts.Jobs))

	go func() {
		defer close(items)
		if err := generator.Run(ctx, items); err != nil {
			e.logger.Debug("message stream stopped", "err", err)
		}
	}()

	workersDone := make(chan struct{})
	go func() {
		defer close(workersDone)
		pool.Run(ctx, items, results)
	}()

	var pending []*model.Entity
	msgCount := 0
	cancelled := false

loop:
	for {
		select {
		case <-ctx.Done():
			// CANCELLING: stop pulling results; the pool unwinds through
			// ctx and buffered-but-uncommitted entities are discarded.
			cancelled = true
			break loop
		case res, ok := <-results:
			if !ok {
				break loop
			}

			msgCount++
			pending = e.assemble(res, fileReports, headerTypes, pending)

			if len(pending) >= e.opts.BatchSize {
				e.flush(pending)
				pending = nil
			}

			if msgCount%e.opts.ProgressStep == 0 {
				e.opts.ReportingProgress(e.opts.ProgressStep)
			}
		}
	}

	// The stream may drain between cancellation and the next select; a
	// cancelled context wins either way.
	if cancelled || ctx.Err() != nil {
		e.logger.Warn("cancelling running task")
		// Workers unblock through ctx; join them so no extraction is still
		// running when control returns to the caller.
		<-workersDone
		e.logger.Info("partial results written to database")
		return StatusCancelled
	}

	// Commit the remaining entities and report the remaining count.
	e.flush(pending)
	e.opts.ReportingProgress(msgCount % e.opts.ProgressStep)

	return StatusOK
}

// assemble turns one worker result into relational records. A failed result
// contributes zero records; a missing file report degrades to a null link.
func (e *Extractor) assemble(
	res Result,
	fileReports map[string]*model.FileReport,
	headerTypes map[string]uint,
	pending []*model.Entity,
) []*model.Entity {
	if res.Err != "" {
		e.logger.Info("skipping message", "messageId", res.MessageID, "path", res.Filepath)
		e.logger.Debug("worker failure", "messageId", res.MessageID, "path", res.Filepath, "err", res.Err)
		e.emit(stats.Event{Stage: stats.StageExtract, Type: stats.EventTypeSkipped, Filepath: res.Filepath, MessageID: res.MessageID})
		return pending
	}

	e.emit(stats.Event{Stage: stats.StageExtract, Type: stats.EventTypeExtracted, Filepath: res.Filepath, MessageID: res.MessageID})

	var fileReportID *uint
	if report, ok := fileReports[res.Filepath]; ok {
		fileReportID = &report.ID
	} else {
		e.logger.Info("unable to link message to a file",
			"messageId", res.MessageID, "path", res.Filepath)
	}

	message := &model.Message{
		Identifier:          res.MessageID,
		Date:                res.Date,
		ProcessingStartTime: res.ProcessingStartTime,
		ProcessingEndTime:   res.ProcessingEndTime,
		FileReportID:        fileReportID,
	}
	if e.opts.IncludeContents {
		message.Body = res.Body
		message.Headers = res.Headers
	}

	if err := e.db.Create(message).Error; err != nil {
		e.logger.Error("record message", "messageId", res.MessageID, "err", err)
		e.emit(stats.Event{Stage: stats.StagePersist, Type: stats.EventTypeError, Filepath: res.Filepath, MessageID: res.MessageID, Err: err})
		return pending
	}

	e.recordAttachments(res, message, fileReportID)

	if e.opts.IncludeContents {
		e.recordHeaderFields(res, message, headerTypes)
	}

	for _, span := range res.Entities {
		pending = append(pending, &model.Entity{
			Text:         span.Text,
			Label:        span.Label,
			Filepath:     res.Filepath,
			MessageID:    &message.ID,
			FileReportID: fileReportID,
		})
	}

	e.emit(stats.Event{Stage: stats.StagePersist, Type: stats.EventTypePersisted, Filepath: res.Filepath, MessageID: res.MessageID, Count: len(res.Entities)})

	return pending
}

func (e *Extractor) recordAttachments(res Result, message *model.Message, fileReportID *uint) {
	if len(res.Attachments) == 0 {
		return
	}

	rows := make([]model.Attachment, 0, len(res.Attachments))
	for _, meta := range res.Attachments {
		rows = append(rows, model.Attachment{
			Name:         meta.Name,
			MimeType:     meta.MimeType,
			Size:         meta.Size,
			Content:      meta.Content,
			MessageID:    &message.ID,
			FileReportID: fileReportID,
		})
	}

	if err := e.db.Create(&rows).Error; err != nil {
		e.logger.Error("record attachments", "messageId", res.MessageID, "err", err)
	}
}

// recordHeaderFields keeps only header lines whose name appears in the
// IANA-derived vocabulary.
func (e *Extractor) recordHeaderFields(res Result, message *model.Message, headerTypes map[string]uint) {
	var rows []model.HeaderField

	for _, line := range strings.Split(res.Headers, "\n") {
		name, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		typeID, ok := headerTypes[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			continue
		}
		rows = append(rows, model.HeaderField{
			Value:             strings.TrimRight(value, "\r"),
			HeaderFieldTypeID: typeID,
			MessageID:         message.ID,
		})
	}

	if len(rows) == 0 {
		return
	}
	if err := e.db.Create(&rows).Error; err != nil {
		e.logger.Error("record header fields", "messageId", message.Identifier, "err", err)
	}
}

// flush commits one batch of entities. A failed batch is rolled back and
// logged; the job keeps attempting subsequent batches.
func (e *Extractor) flush(pending []*model.Entity) {
	if len(pending) == 0 {
		return
	}

	if err := store.FlushEntities(e.db, pending); err != nil {
		e.logger.Error("entity batch commit failed", "count", len(pending), "err", err)
		e.emit(stats.Event{Stage: stats.StagePersist, Type: stats.EventTypeError, Err: err})
		return
	}

	e.emit(stats.Event{Stage: stats.StagePersist, Type: stats.EventTypeCommitted, Count: len(pending)})
}

// loadFileReports caches the file_report table for local lookup by path.
func (e *Extractor) loadFileReports() (map[string]*model.FileReport, error) {
	var reports []*model.FileReport
	if err := e.db.Find(&reports).Error; err != nil {
		return nil, err
	}

	byPath := make(map[string]*model.FileReport, len(reports))
	for _, report := range reports {
		byPath[report.Path] = report
	}
	return byPath, nil
}

func poolSize(jobs int) int {
	if jobs <= 0 {
		return 8
	}
	return jobs
}
