package progress

import (
	"sync"
	"time"

	"github.com/pterm/pterm"

	"github.com/mailrake/mailrake/stats"
)

// Reporter renders progress bars for the scan and extraction phases and
// collects run statistics for the final summary. It is driven by pipeline
// stats events; Handle is safe for concurrent use.
type Reporter struct {
	mu        sync.Mutex
	bar       *pterm.ProgressbarPrinter
	collector *stats.Collector
	enabled   bool
	started   time.Time
}

// New creates a reporter. Bars are only rendered when enabled is true;
// statistics are collected either way.
func New(enabled bool) *Reporter {
	return &Reporter{
		collector: stats.NewCollector(),
		enabled:   enabled,
		started:   time.Now(),
	}
}

// Handle consumes a single pipeline event.
func (r *Reporter) Handle(evt stats.Event) {
	r.collector.Apply(evt)

	if !r.enabled {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	switch evt.Type {
	case stats.EventTypeScanBegin:
		r.startBar("Scanning files", evt.Count)
	case stats.EventTypeExtractBegin:
		r.stopBar()
		pterm.Info.Printf("Total messages to process: %d\n", evt.Count)
		r.startBar("Processing messages", evt.Count)
	case stats.EventTypeFileScanned, stats.EventTypeFileFailed:
		if r.bar != nil {
			r.bar.Increment()
		}
	case stats.EventTypePersisted, stats.EventTypeSkipped:
		if r.bar != nil {
			r.bar.Increment()
		}
	case stats.EventTypeError:
		// Show error messages above the progress bar
		if evt.Err != nil {
			pterm.Error.Printf("Error: %v\n", evt.Err)
		}
	}
}

// Stop finalizes any active bar and prints the summary statistics.
func (r *Reporter) Stop() {
	summary := r.collector.Snapshot()
	duration := time.Since(r.started)

	if !r.enabled {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.stopBar()

	pterm.Println()
	pterm.DefaultSection.Println("Summary Statistics")
	pterm.Info.Printf("Duration: %v\n", duration)
	pterm.Info.Printf("Files scanned: %d\n", summary.FilesScanned)
	pterm.Info.Printf("Files failed: %d\n", summary.FilesFailed)
	pterm.Info.Printf("Messages streamed: %d\n", summary.Streamed)
	pterm.Info.Printf("Messages persisted: %d\n", summary.Persisted)
	pterm.Info.Printf("Messages skipped: %d\n", summary.Skipped)
	pterm.Info.Printf("Batch commits: %d\n", summary.Commits)
	pterm.Info.Printf("Errors: %d\n", summary.Errors)
	if summary.LastError != nil {
		pterm.Error.Printf("Last error: %v\n", summary.LastError)
	}
}

// Summary returns the statistics collected so far.
func (r *Reporter) Summary() stats.Summary {
	return r.collector.Snapshot()
}

func (r *Reporter) startBar(title string, total int) {
	if total <= 0 {
		return
	}
	pb, _ := pterm.DefaultProgressbar.
		WithTotal(total).
		WithTitle(title).
		Start()
	r.bar = pb
}

func (r *Reporter) stopBar() {
	if r.bar == nil {
		return
	}
	// An interrupted run stops short of the total; the bar is left where it
	// was so the rendered count matches what actually happened.
	r.bar.Stop()
	r.bar = nil
}
