package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mailrake/mailrake/config"
	"github.com/mailrake/mailrake/pipeline"
	"github.com/mailrake/mailrake/progress"
)

var rootCmd = &cobra.Command{
	Use:          "mailrake",
	Short:        "Extract entities, metadata and attachments from email archives into SQLite",
	SilenceUsage: true,
}

// exitStatus carries the pipeline status out of the cobra run functions.
var exitStatus int

// Execute runs the CLI and returns the process exit status: 0 for success,
// 1 when a run was interrupted with partial results persisted, 2 for
// setup failures.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return pipeline.StatusSetupError
	}
	return exitStatus
}

func runJob(cmd *cobra.Command, scanOnly bool) error {
	cfg, err := config.LoadConfig(cmd)
	if err != nil {
		return err
	}

	logger, cleanup, err := setupLogger(cfg)
	if err != nil {
		return err
	}
	defer func() {
		_ = cleanup()
	}()

	slog.SetDefault(logger)
	logger.Info("starting mailrake", "src", cfg.Source, "out", cfg.Out, "jobs", cfg.Jobs, "scanOnly", scanOnly)

	// Interrupts cancel the context; running stages drain and the job
	// commits what it has before exiting.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reporter := progress.New(cfg.Progress && cfg.LogLevel != "debug")
	job := pipeline.NewJob(cfg, logger)
	job.ScanOnly = scanOnly
	job.Events = reporter.Handle

	status := job.Run(ctx)
	reporter.Stop()

	summary := reporter.Summary()
	logger.Info("run finished", append(summary.LogAttrs(), "status", status)...)

	exitStatus = status
	return nil
}

func setupLogger(cfg config.Config) (*slog.Logger, func() error, error) {
	level := new(slog.LevelVar)
	level.Set(slog.LevelInfo)

	switch cfg.LogLevel {
	case "debug":
		level.Set(slog.LevelDebug)
	case "info":
		level.Set(slog.LevelInfo)
	case "warn":
		level.Set(slog.LevelWarn)
	case "error":
		level.Set(slog.LevelError)
	}

	opts := &slog.HandlerOptions{Level: level}
	cleanup := func() error { return nil }

	if cfg.LogDir != "" {
		if err := os.MkdirAll(cfg.LogDir, 0o755); err != nil {
			return nil, cleanup, err
		}

		logFilePath := filepath.Join(cfg.LogDir, fmt.Sprintf("mailrake-%s.log", time.Now().Format("20060102T150405")))
		file, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, cleanup, err
		}

		handler := slog.NewTextHandler(io.MultiWriter(os.Stdout, file), opts)
		cleanup = func() error {
			return file.Close()
		}
		return slog.New(handler), cleanup, nil
	}

	handler := slog.NewTextHandler(os.Stdout, opts)
	return slog.New(handler), cleanup, nil
}
