package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mailrake/mailrake/nlp"
	"github.com/mailrake/mailrake/sanitize"
)

// Defaults for the pipeline tunables.
const (
	DefaultBatchSize    = 3000
	DefaultProgressStep = 10
)

// Config captures all command-line options required to run a job.
type Config struct {
	Source            string
	Out               string
	ModelName         string
	Jobs              int
	BatchSize         int
	ProgressStep      int
	BodySizeThreshold int
	IncludeContents   bool
	AttachmentContent bool
	Progress          bool
	LogLevel          string
	LogDir            string
}

// RegisterFlags attaches all CLI flags to the provided command.
func RegisterFlags(cmd *cobra.Command) error {
	flags := cmd.Flags()
	flags.StringP("src", "s", "", "Path to an archive file or a directory of archive files")
	flags.StringP("out", "o", "", "Output database file (defaults to a timestamped name; an existing file is an error)")
	flags.StringP("model", "m", nlp.DefaultModel, "Named-entity recognition model name or model directory")
	flags.IntP("jobs", "j", runtime.NumCPU(), "Number of parallel workers")
	flags.Int("batch-size", DefaultBatchSize, "Entity count per database commit batch")
	flags.Int("progress-step", DefaultProgressStep, "Messages between progress updates")
	flags.Int("body-size-threshold", sanitize.DefaultSizeThreshold, "Body length above which encoded blobs are stripped")
	flags.Bool("include-contents", false, "Persist message bodies and recognized header fields")
	flags.Bool("attachment-content", false, "Persist attachment payload bytes")
	flags.BoolP("progress", "p", false, "Show a progress bar")
	flags.String("log-level", "info", "Logging level: debug, info, warn, error")
	flags.String("log-dir", "", "Directory for log files (logs go to stdout only when empty)")

	return cmd.MarkFlagRequired("src")
}

// LoadConfig converts the parsed Cobra flags into a Config struct with
// validation.
func LoadConfig(cmd *cobra.Command) (Config, error) {
	flags := cmd.Flags()

	src, err := flags.GetString("src")
	if err != nil {
		return Config{}, err
	}
	out, err := flags.GetString("out")
	if err != nil {
		return Config{}, err
	}
	modelName, err := flags.GetString("model")
	if err != nil {
		return Config{}, err
	}
	jobs, err := flags.GetInt("jobs")
	if err != nil {
		return Config{}, err
	}
	batchSize, err := flags.GetInt("batch-size")
	if err != nil {
		return Config{}, err
	}
	progressStep, err := flags.GetInt("progress-step")
	if err != nil {
		return Config{}, err
	}
	bodySizeThreshold, err := flags.GetInt("body-size-threshold")
	if err != nil {
		return Config{}, err
	}
	includeContents, err := flags.GetBool("include-contents")
	if err != nil {
		return Config{}, err
	}
	attachmentContent, err := flags.GetBool("attachment-content")
	if err != nil {
		return Config{}, err
	}
	progress, err := flags.GetBool("progress")
	if err != nil {
		return Config{}, err
	}
	logLevel, err := flags.GetString("log-level")
	if err != nil {
		return Config{}, err
	}
	logDir, err := flags.GetString("log-dir")
	if err != nil {
		return Config{}, err
	}

	if jobs <= 0 {
		jobs = runtime.NumCPU()
	}

	logLevel = strings.ToLower(logLevel)
	if logLevel == "warning" {
		logLevel = "warn"
	}

	cfg := Config{
		Source:            src,
		Out:               ResolveOutputPath(out, src, time.Now()),
		ModelName:         modelName,
		Jobs:              jobs,
		BatchSize:         batchSize,
		ProgressStep:      progressStep,
		BodySizeThreshold: bodySizeThreshold,
		IncludeContents:   includeContents,
		AttachmentContent: attachmentContent,
		Progress:          progress,
		LogLevel:          logLevel,
		LogDir:            logDir,
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// ResolveOutputPath derives the database file path. An empty or directory
// out argument produces a timestamped file named after the source.
func ResolveOutputPath(out, src string, now time.Time) string {
	name := fmt.Sprintf(
		"entities_%s_%s.sqlite3",
		strings.TrimSuffix(filepath.Base(src), filepath.Ext(src)),
		now.Format("20060102T150405"),
	)

	if out == "" {
		return name
	}
	if info, err := os.Stat(out); err == nil && info.IsDir() {
		return filepath.Join(out, name)
	}
	return out
}

func validateConfig(cfg Config) error {
	if cfg.Source == "" {
		return fmt.Errorf("--src is required")
	}
	if _, err := os.Stat(cfg.Source); err != nil {
		return fmt.Errorf("--src: %w", err)
	}
	if cfg.BatchSize <= 0 {
		return fmt.Errorf("--batch-size must be positive")
	}
	if cfg.ProgressStep <= 0 {
		return fmt.Errorf("--progress-step must be positive")
	}
	if cfg.BodySizeThreshold < 0 {
		return fmt.Errorf("--body-size-threshold must not be negative")
	}

	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid --log-level: %s", cfg.LogLevel)
	}

	return nil
}
