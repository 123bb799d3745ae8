package batch

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/Samael3003/SDSS-ImageExtract/internal/ledger"
	"github.com/Samael3003/SDSS-ImageExtract/internal/progress"
)

// Request is one unit of work: a single remote image to fetch. Requests are
// immutable once created and owned by the Scheduler for the run.
type Request struct {
	// ID identifies the item across runs; it must be unique within a run.
	ID string

	// Locator is the URL to fetch.
	Locator string

	// Key is the destination object key within the bucket (e.g. "7.jpeg").
	Key string

	// Path is the destination path recorded in the completion ledger.
	Path string
}

// Outcome is the result of one request, produced by the fetch function and
// consumed exactly once by the scheduler.
type Outcome struct {
	Request Request
	Err     error
}

// FetchFunc retrieves locator into key and returns the key on success.
// The scheduler knows nothing about HTTP beyond this signature.
type FetchFunc func(ctx context.Context, locator, key string) (string, error)

// Options configures the scheduler.
type Options struct {
	// BatchSize bounds how many fetches are in flight at once; within a
	// batch every item gets its own worker.
	// Default: 10
	BatchSize int

	// Progress is an optional progress reporter.
	Progress *progress.Reporter

	// Log receives batch-level lines. Nil disables them.
	Log *log.Logger
}

// Scheduler partitions pending requests into fixed-size batches and runs
// each batch with full intra-batch parallelism. Batches execute strictly in
// sequence: a new batch does not start until the previous one's outcomes
// have been drained and its successes persisted to the ledger. Batch
// boundaries only pace the work and bound memory; they do not affect
// correctness.
type Scheduler struct {
	fetch  FetchFunc
	ledger *ledger.Ledger
	opts   Options
}

// New creates a Scheduler that records successes in led.
func New(fetch FetchFunc, led *ledger.Ledger, opts Options) *Scheduler {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 10
	}
	return &Scheduler{fetch: fetch, ledger: led, opts: opts}
}

// Run executes all requests and returns the destination paths of the
// successful ones in completion order. A failed item is logged and
// excluded; it never aborts its batch or the run. Run returns early only
// on context cancellation or a ledger write error.
func (s *Scheduler) Run(ctx context.Context, requests []Request) ([]string, error) {
	total := len(requests)
	if total == 0 {
		return nil, nil
	}

	var paths []string
	done := 0

	for start := 0; start < total; start += s.opts.BatchSize {
		if err := ctx.Err(); err != nil {
			return paths, err
		}

		end := min(start+s.opts.BatchSize, total)
		startedAt := time.Now()

		outcomes := s.runBatch(ctx, requests[start:end])

		// Persist and report only after the batch fully drains; the
		// ledger is written by this goroutine alone.
		for _, out := range outcomes {
			if out.Err != nil {
				s.logf("skipping %s: %v", out.Request.Locator, out.Err)
				if s.opts.Progress != nil {
					s.opts.Progress.ItemFailed()
				}
				continue
			}
			if err := s.ledger.Append(out.Request.Path); err != nil {
				return paths, fmt.Errorf("record %s: %w", out.Request.Path, err)
			}
			paths = append(paths, out.Request.Path)
			done++
			if s.opts.Progress != nil {
				s.opts.Progress.ItemCompleted()
			}
		}

		s.logf("batch done: %d/%d items (%.1f%%) downloaded, took %s",
			done, total, float64(done)/float64(total)*100,
			time.Since(startedAt).Truncate(time.Millisecond))
	}

	return paths, nil
}

// runBatch fetches every request in batch concurrently, one worker per
// item, and returns the outcomes in completion order.
func (s *Scheduler) runBatch(ctx context.Context, batch []Request) []Outcome {
	jobs := make(chan Request)
	results := make(chan Outcome)

	var wg sync.WaitGroup
	for range batch {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for req := range jobs {
				_, err := s.fetch(ctx, req.Locator, req.Key)
				results <- Outcome{Request: req, Err: err}
			}
		}()
	}

	go func() {
		for _, req := range batch {
			jobs <- req
		}
		close(jobs)
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	outcomes := make([]Outcome, 0, len(batch))
	for out := range results {
		outcomes = append(outcomes, out)
	}
	return outcomes
}

func (s *Scheduler) logf(format string, args ...any) {
	if s.opts.Log != nil {
		s.opts.Log.Printf(format, args...)
	}
}
