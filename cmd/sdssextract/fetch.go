package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/s3blob"

	"github.com/Samael3003/SDSS-ImageExtract/internal/batch"
	"github.com/Samael3003/SDSS-ImageExtract/internal/config"
	"github.com/Samael3003/SDSS-ImageExtract/internal/fetch"
	"github.com/Samael3003/SDSS-ImageExtract/internal/ledger"
	"github.com/Samael3003/SDSS-ImageExtract/internal/locator"
	"github.com/Samael3003/SDSS-ImageExtract/internal/progress"
	"github.com/Samael3003/SDSS-ImageExtract/internal/source"
)

const imagesSubdir = "panstamps"

// runFetch is the batch job: read the coordinate table, skip everything the
// completion ledger already records, fetch the rest in batches and append
// each success to the ledger.
func runFetch(args []string) int {
	fs := flag.NewFlagSet("fetch", flag.ExitOnError)

	input := fs.String("input", "", "Path of CSV file containing RA, DEC values (required)")
	output := fs.String("output", "", "Output directory for images and job state")
	bucketURL := fs.String("bucket", "", "Destination bucket URL (default: file:// under the output directory)")
	configPath := fs.String("config", "", "Path to YAML config file")
	batchSize := fs.Int("batch-size", 0, "Items fetched concurrently per batch")
	showProgress := fs.Bool("progress", false, "Show progress output")
	attempts := fs.Int("attempts", 0, "Max download attempts per item")
	timeout := fs.Duration("timeout", 0, "Base timeout for the first attempt (doubles on transport errors)")
	userAgent := fs.String("user-agent", "", "User-Agent for download requests")
	raCol := fs.String("ra-col", "", "Name of the RA column (prompted if empty)")
	decCol := fs.String("dec-col", "", "Name of the DEC column (prompted if empty)")
	idCol := fs.String("id-col", "", "Name of the object-id column (prompted if empty)")
	cutoutURL := fs.String("cutout-url", "", "Base URL of the image cutout service")
	pixels := fs.Int("pixels", 0, "Cutout width and height in pixels")
	fieldArcmin := fs.Float64("field-arcmin", 0, "Angular size of the cutout field in arcminutes")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, `Usage: sdssextract fetch [options]

Bulk-download SDSS image cutouts for every coordinate pair in the input
table. Already-downloaded items (recorded in <output>/downloaded.csv) are
skipped, so an interrupted job can simply be re-run.

Options:`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return ExitInvalidArgs
	}

	cfg := config.Default()
	if *configPath != "" {
		fileCfg, err := config.LoadFromFile(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return ExitInvalidArgs
		}
		cfg = fileCfg
	}
	if err := cfg.LoadFromEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitInvalidArgs
	}
	cfg = cfg.Merge(config.Config{
		Input:     *input,
		Output:    *output,
		Bucket:    *bucketURL,
		BatchSize: *batchSize,
		Progress:  *showProgress,
		UserAgent: *userAgent,
		Columns:   config.ColumnConfig{RA: *raCol, Dec: *decCol, ID: *idCol},
		Cutout:    config.CutoutConfig{BaseURL: *cutoutURL, Pixels: *pixels, FieldArcmin: *fieldArcmin},
		Retry:     config.RetryConfig{Attempts: *attempts, BaseTimeout: *timeout},
	})
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		fs.Usage()
		return ExitInvalidArgs
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\n[sdssextract] Received interrupt, finishing current batch...")
		cancel()
	}()

	return fetchAll(ctx, cfg, os.Stdin)
}

func fetchAll(ctx context.Context, cfg config.Config, stdin io.Reader) int {
	logger := log.New(os.Stderr, "[sdssextract] ", 0)

	imagesDir := filepath.Join(cfg.Output, imagesSubdir)
	if err := os.MkdirAll(imagesDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output directory: %v\n", err)
		return ExitGeneralError
	}

	bucketURL := cfg.Bucket
	if bucketURL == "" {
		abs, err := filepath.Abs(imagesDir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error resolving output directory: %v\n", err)
			return ExitGeneralError
		}
		// metadata=skip keeps fileblob from writing .attrs sidecar files
		// next to the images.
		bucketURL = "file://" + filepath.ToSlash(abs) + "?metadata=skip"
	}
	bkt, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening destination bucket: %v\n", err)
		return ExitStorageError
	}
	defer bkt.Close()

	led, err := ledger.Open(filepath.Join(cfg.Output, "downloaded.csv"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitStorageError
	}
	defer led.Close()

	retrieved, err := led.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitStorageError
	}
	if len(retrieved) > 0 {
		logger.Printf("Resuming previous download job (%d items already retrieved)", len(retrieved))
	} else {
		logger.Printf("This is a fresh download")
	}

	flog, err := ledger.OpenFailureLog(filepath.Join(cfg.Output, "urlnotfound.csv"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitStorageError
	}
	defer flog.Close()

	in, err := os.Open(cfg.Input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening input: %v\n", err)
		return ExitInputError
	}
	table, err := source.ReadTable(in)
	in.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitInputError
	}

	cols := source.Columns(cfg.Columns)
	cols, err = table.ResolveColumns(cols, stdin, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitInputError
	}
	records, err := table.Records(cols)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitInputError
	}

	build := locator.SDSS(locator.Options{
		BaseURL:     cfg.Cutout.BaseURL,
		Pixels:      cfg.Cutout.Pixels,
		FieldArcmin: cfg.Cutout.FieldArcmin,
	})

	requests, skipped, unresolved := buildRequests(records, retrieved, build, imagesDir, flog, logger)
	if skipped > 0 {
		logger.Printf("Skipped %d already-retrieved items", skipped)
	}
	if unresolved > 0 {
		logger.Printf("%d records had unresolvable coordinates (see urlnotfound.csv)", unresolved)
	}
	if len(requests) == 0 {
		logger.Printf("Nothing to download")
		return ExitSuccess
	}

	var reporter *progress.Reporter
	if cfg.Progress {
		reporter = progress.NewReporter(progress.Options{TotalItems: len(requests)})
		reporter.Start()
		defer reporter.Stop()
	}

	fetcher := fetch.New(bkt, fetch.Options{
		BaseTimeout:         cfg.Retry.BaseTimeout,
		MaxAttempts:         cfg.Retry.Attempts,
		JitterMin:           cfg.Retry.JitterMin,
		JitterMax:           cfg.Retry.JitterMax,
		MaxIdleConnsPerHost: cfg.BatchSize,
		UserAgent:           cfg.UserAgent,
		Log:                 logger,
	})

	scheduler := batch.New(fetcher.Fetch, led, batch.Options{
		BatchSize: cfg.BatchSize,
		Progress:  reporter,
		Log:       logger,
	})

	startedAt := time.Now()
	paths, err := scheduler.Run(ctx, requests)
	if reporter != nil {
		reporter.Stop()
	}
	elapsed := time.Since(startedAt).Truncate(time.Millisecond)

	if err != nil {
		logger.Printf("Stopped after %d/%d items in %s: %v", len(paths), len(requests), elapsed, err)
		logger.Printf("Run again to resume")
		if ctx.Err() != nil {
			return ExitGeneralError
		}
		return ExitStorageError
	}

	logger.Printf("Downloaded %d/%d items in %s", len(paths), len(requests), elapsed)
	return ExitSuccess
}

// buildRequests turns input records into fetch requests, skipping items the
// ledger already records and logging records whose locator cannot be built.
// Destination filenames are sequential within this run; resumption is keyed
// by item id, not by filename.
func buildRequests(records []source.Record, retrieved map[string]bool, build locator.Builder, imagesDir string, flog *ledger.FailureLog, logger *log.Logger) (requests []batch.Request, skipped, unresolved int) {
	counter := 1
	for _, rec := range records {
		if retrieved[rec.ID] {
			skipped++
			continue
		}

		loc, err := build(rec)
		if err != nil {
			unresolved++
			if aerr := flog.Append(fmt.Sprintf("%s,%s not found", rec.RA, rec.Dec)); aerr != nil {
				logger.Printf("Could not record locator failure: %v", aerr)
			}
			continue
		}

		key := fmt.Sprintf("%d.jpeg", counter)
		counter++

		requests = append(requests, batch.Request{
			ID:      rec.ID,
			Locator: loc,
			Key:     key,
			Path:    filepath.Join(imagesDir, key),
		})
	}
	return requests, skipped, unresolved
}
