package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"gorm.io/gorm"

	"github.com/mailrake/mailrake/archive"
	"github.com/mailrake/mailrake/config"
	"github.com/mailrake/mailrake/model"
	"github.com/mailrake/mailrake/nlp"
	"github.com/mailrake/mailrake/scan"
	"github.com/mailrake/mailrake/stats"
	"github.com/mailrake/mailrake/store"
)

// Job sequences a full run: discover, scan, model check, configuration
// audit, then extraction. It owns the storage handle for the job's lifetime;
// workers never touch storage.
type Job struct {
	cfg    config.Config
	logger *slog.Logger

	// Loader overrides the model boundary; nil means nlp.Load.
	Loader nlp.Loader

	// ScanProgress, StreamProgress and ReportingProgress are optional
	// monotonic counter-increment callbacks.
	ScanProgress      func(n int)
	StreamProgress    func(n int)
	ReportingProgress func(n int)

	// Events receives pipeline stats events; optional.
	Events func(stats.Event)

	// ScanOnly stops the job after file reports are written.
	ScanOnly bool
}

func NewJob(cfg config.Config, logger *slog.Logger) *Job {
	return &Job{cfg: cfg, logger: logger}
}

// Run executes the job and returns its exit status: StatusOK,
// StatusCancelled (partial results persisted) or StatusSetupError.
// Interrupt handling is wired by the caller into ctx; this is the only
// level at which cancellation is observed.
func (j *Job) Run(ctx context.Context) int {
	db, err := store.Open(j.cfg.Out)
	if err != nil {
		j.logger.Error("database setup failed", "out", j.cfg.Out, "err", err)
		return StatusSetupError
	}
	defer closeDB(db)

	files, err := archive.Discover(j.cfg.Source)
	if err != nil {
		j.logger.Error("source discovery failed", "src", j.cfg.Source, "err", err)
		return StatusSetupError
	}
	if len(files) == 0 {
		j.logger.Warn("no supported archive found, nothing to do", "src", j.cfg.Source)
		return StatusOK
	}

	j.logger.Info("scanning files", "count", len(files), "jobs", j.cfg.Jobs)
	j.emit(stats.Event{Stage: stats.StageScan, Type: stats.EventTypeScanBegin, Count: len(files)})
	err = scan.Run(ctx, db, files, scan.Options{
		Jobs:     j.cfg.Jobs,
		Progress: j.ScanProgress,
		Events:   j.Events,
	}, j.logger)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			j.logger.Warn("aborting")
			return StatusCancelled
		}
		j.logger.Error("file scan failed", "err", err)
		return StatusSetupError
	}

	if err := store.SaveConfiguration(db, j.configurationValues()); err != nil {
		j.logger.Error("record configuration", "err", err)
	}

	if j.ScanOnly {
		j.logger.Info("file scan done", "out", j.cfg.Out)
		return StatusOK
	}

	// Validate the model up front: a model that cannot load is fatal
	// before any processing begins.
	loader := j.Loader
	if loader == nil {
		loader = nlp.Load
	}
	j.logger.Info("loading model", "model", j.cfg.ModelName)
	if _, err := loader(j.cfg.ModelName); err != nil {
		j.logger.Error("model load failed", "model", j.cfg.ModelName, "err", err)
		return StatusSetupError
	}

	if j.cfg.IncludeContents {
		if err := store.PopulateHeaderFieldTypes(db); err != nil {
			j.logger.Error("populate header field types", "err", err)
		}
	}

	goodFiles, err := cleanFiles(db)
	if err != nil {
		j.logger.Error("load file reports", "err", err)
		return StatusSetupError
	}
	if len(goodFiles) == 0 {
		j.logger.Warn("no readable archive after scan, nothing to extract")
		return StatusOK
	}

	if total, err := TotalMessageCount(db); err == nil {
		j.emit(stats.Event{Stage: stats.StageExtract, Type: stats.EventTypeExtractBegin, Count: total})
	}

	extractor := NewExtractor(db, ExtractOptions{
		ModelName:         j.cfg.ModelName,
		Jobs:              j.cfg.Jobs,
		BatchSize:         j.cfg.BatchSize,
		ProgressStep:      j.cfg.ProgressStep,
		BodySizeThreshold: j.cfg.BodySizeThreshold,
		IncludeContents:   j.cfg.IncludeContents,
		AttachmentContent: j.cfg.AttachmentContent,
		Loader:            loader,
		StreamProgress:    j.StreamProgress,
		ReportingProgress: j.ReportingProgress,
		Events:            j.Events,
	}, j.logger)

	status := extractor.Run(ctx, goodFiles)
	if status == StatusOK {
		j.logger.Info("all done", "out", j.cfg.Out)
	}
	return status
}

// TotalMessageCount sums the scanned message counts of clean files, for
// progress bar totals.
func TotalMessageCount(db *gorm.DB) (int, error) {
	var total int64
	err := db.Model(&model.FileReport{}).
		Where("error IS NULL").
		Select("COALESCE(SUM(msg_count), 0)").
		Scan(&total).Error
	return int(total), err
}

// cleanFiles returns the paths of files whose scan recorded no error; only
// those are fed into extraction.
func cleanFiles(db *gorm.DB) ([]string, error) {
	var reports []model.FileReport
	if err := db.Where("error IS NULL").Order("path").Find(&reports).Error; err != nil {
		return nil, err
	}

	paths := make([]string, 0, len(reports))
	for _, report := range reports {
		paths = append(paths, report.Path)
	}
	return paths, nil
}

func (j *Job) emit(evt stats.Event) {
	if j.Events != nil {
		j.Events(evt)
	}
}

func (j *Job) configurationValues() map[string]string {
	return map[string]string{
		"src":                 j.cfg.Source,
		"out":                 j.cfg.Out,
		"jobs":                strconv.Itoa(j.cfg.Jobs),
		"model_name":          j.cfg.ModelName,
		"model_version":       nlp.Version(),
		"batch_size":          strconv.Itoa(j.cfg.BatchSize),
		"progress_step":       strconv.Itoa(j.cfg.ProgressStep),
		"body_size_threshold": strconv.Itoa(j.cfg.BodySizeThreshold),
		"include_contents":    strconv.FormatBool(j.cfg.IncludeContents),
		"attachment_content":  strconv.FormatBool(j.cfg.AttachmentContent),
	}
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
}
