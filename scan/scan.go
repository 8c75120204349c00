// Package scan implements the file scan stage: per-file size, digests and
// message counts computed by a worker pool and recorded as file_report rows.
// These rows are the job's bookkeeping ledger; extraction only ever sees
// files whose report carries no error.
package scan

import (
	"context"
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"gorm.io/gorm"

	"github.com/mailrake/mailrake/archive"
	"github.com/mailrake/mailrake/model"
	"github.com/mailrake/mailrake/stats"
)

// Digests are streamed in fixed-size blocks so archive size never bounds
// memory.
const digestBlockSize = 128 * 1024

// Options tunes a scan run. Progress and Events may be nil.
type Options struct {
	Jobs     int
	Progress func(n int)
	Events   func(stats.Event)
}

// Run scans all files in parallel and writes one FileReport row per file,
// failures included. The database is written by this goroutine only. On
// cancellation it returns ctx.Err(); rows already written remain.
func Run(ctx context.Context, db *gorm.DB, files []string, opts Options, logger *slog.Logger) error {
	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.NumCPU()
	}
	progress := opts.Progress
	if progress == nil {
		progress = func(int) {}
	}
	emit := opts.Events
	if emit == nil {
		emit = func(stats.Event) {}
	}

	paths := make(chan string)
	reports := make(chan *model.FileReport)

	var wg sync.WaitGroup
	for i := 0; i < jobs; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range paths {
				report := scanFile(path)
				select {
				case <-ctx.Done():
					return
				case reports <- report:
				}
			}
		}()
	}

	go func() {
		defer close(paths)
		for _, file := range files {
			select {
			case <-ctx.Done():
				return
			case paths <- file:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(reports)
	}()

	for {
		select {
		case <-ctx.Done():
			logger.Warn("file scan aborted")
			return ctx.Err()
		case report, ok := <-reports:
			if !ok {
				return ctx.Err()
			}

			if err := db.Create(report).Error; err != nil {
				logger.Error("record file report", "path", report.Path, "err", err)
				emit(stats.Event{Stage: stats.StageScan, Type: stats.EventTypeError, Filepath: report.Path, Err: err})
				progress(1)
				continue
			}

			if report.Error != nil {
				logger.Info("skipping unreadable file", "path", report.Path)
				logger.Debug("file scan failure", "path", report.Path, "err", *report.Error)
				emit(stats.Event{Stage: stats.StageScan, Type: stats.EventTypeFileFailed, Filepath: report.Path})
			} else {
				logger.Debug("scanned file",
					"path", report.Path, "size", report.Size, "messages", report.MsgCount)
				emit(stats.Event{Stage: stats.StageScan, Type: stats.EventTypeFileScanned, Filepath: report.Path})
			}
			progress(1)
		}
	}
}

// scanFile computes one FileReport. Any failure is captured into the row's
// Error field rather than propagated, so the file stays auditable.
func scanFile(path string) *model.FileReport {
	report := &model.FileReport{
		Path: path,
		Name: filepath.Base(path),
	}

	fail := func(err error) *model.FileReport {
		msg := err.Error()
		report.Error = &msg
		return report
	}

	info, err := os.Stat(path)
	if err != nil {
		return fail(err)
	}
	report.Size = info.Size()

	md5Sum, sha256Sum, err := fileDigests(path)
	if err != nil {
		return fail(err)
	}
	report.MD5 = md5Sum
	report.SHA256 = sha256Sum

	a, err := archive.Open(path)
	if err != nil {
		return fail(err)
	}
	defer a.Close()

	count, err := a.MessageCount()
	if err != nil {
		return fail(err)
	}
	report.MsgCount = count

	return report
}

func fileDigests(path string) (md5Sum, sha256Sum string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return "", "", err
	}
	defer f.Close()

	md5Hash := md5.New()
	sha256Hash := sha256.New()

	buf := make([]byte, digestBlockSize)
	if _, err := io.CopyBuffer(io.MultiWriter(md5Hash, sha256Hash), f, buf); err != nil {
		return "", "", err
	}

	return hex.EncodeToString(md5Hash.Sum(nil)), hex.EncodeToString(sha256Hash.Sum(nil)), nil
}
