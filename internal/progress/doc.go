// Package progress provides progress reporting for batch downloads.
//
// The reporter writes human-readable item counts and a completion
// percentage to stderr on a fixed interval, plus a final summary with the
// total elapsed time.
//
// # Usage
//
//	reporter := progress.NewReporter(progress.Options{
//	    TotalItems: len(requests),
//	})
//	reporter.Start()
//	defer reporter.Stop()
//
//	// as items finish
//	reporter.ItemCompleted()
//
// # Output Format
//
//	[sdssextract] Fetching 240 items
//	[sdssextract] 117 / 240 (48.8%) downloaded | 2 failed
//	[sdssextract] Total time: 3m 41s
package progress
