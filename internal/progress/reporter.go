package progress

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// Options configures the progress reporter.
type Options struct {
	// TotalItems is the number of items scheduled in this run.
	TotalItems int

	// Output is where to write progress output.
	// Default: os.Stderr
	Output io.Writer

	// UpdateInterval is how often to update the progress display.
	// Default: 500ms
	UpdateInterval time.Duration
}

// Reporter outputs human-readable progress information. It only consumes
// completion counts; nothing feeds back into scheduling.
type Reporter struct {
	opts Options

	mu        sync.Mutex
	completed atomic.Int32
	failed    atomic.Int32
	startTime time.Time
	stopCh    chan struct{}
	stopped   bool
}

// NewReporter creates a new progress reporter.
func NewReporter(opts Options) *Reporter {
	if opts.Output == nil {
		opts.Output = os.Stderr
	}
	if opts.UpdateInterval == 0 {
		opts.UpdateInterval = 500 * time.Millisecond
	}

	return &Reporter{
		opts:   opts,
		stopCh: make(chan struct{}),
	}
}

// Start begins outputting progress information.
func (r *Reporter) Start() {
	r.startTime = time.Now()
	fmt.Fprintf(r.opts.Output, "[sdssextract] Fetching %d items\n", r.opts.TotalItems)
	go r.updateLoop()
}

// Stop stops the progress reporter and prints the final summary.
func (r *Reporter) Stop() {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.stopped = true
	r.mu.Unlock()

	close(r.stopCh)
}

// ItemCompleted marks one item as successfully downloaded.
func (r *Reporter) ItemCompleted() {
	r.completed.Add(1)
}

// ItemFailed marks one item as failed after retry exhaustion.
func (r *Reporter) ItemFailed() {
	r.failed.Add(1)
}

// Completed returns the number of completed items so far.
func (r *Reporter) Completed() int {
	return int(r.completed.Load())
}

// updateLoop periodically updates the progress display.
func (r *Reporter) updateLoop() {
	ticker := time.NewTicker(r.opts.UpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			r.printFinalStatus()
			return
		case <-ticker.C:
			r.printProgress()
		}
	}
}

func (r *Reporter) printProgress() {
	completed := int(r.completed.Load())
	failed := int(r.failed.Load())

	var percent float64
	if r.opts.TotalItems > 0 {
		percent = float64(completed) / float64(r.opts.TotalItems) * 100
	}

	fmt.Fprintf(r.opts.Output, "\r[sdssextract] %d / %d (%.1f%%) downloaded | %d failed    ",
		completed, r.opts.TotalItems, percent, failed)
}

func (r *Reporter) printFinalStatus() {
	completed := int(r.completed.Load())
	failed := int(r.failed.Load())
	duration := time.Since(r.startTime)

	var percent float64
	if r.opts.TotalItems > 0 {
		percent = float64(completed) / float64(r.opts.TotalItems) * 100
	}

	fmt.Fprintf(r.opts.Output, "\r[sdssextract] %d / %d (%.1f%%) downloaded | %d failed    \n",
		completed, r.opts.TotalItems, percent, failed)
	fmt.Fprintf(r.opts.Output, "[sdssextract] Total time: %s\n", formatDuration(duration))
}

// formatDuration formats a duration as a human-readable string.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm %ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%dh %dm %ds", h, m, s)
}
