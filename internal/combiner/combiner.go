// Package combiner consolidates the per-invocation coverage files that
// accumulate in object storage into one combined JSON report. Downloads
// are parallel and bounded; a corrupt artifact is skipped and recorded,
// never aborting the run.
package combiner

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/oleg-kozlyuk-grafana/go-understory/internal/coverage"
	"github.com/oleg-kozlyuk-grafana/go-understory/internal/storage"
	"github.com/oleg-kozlyuk-grafana/go-understory/internal/uploader"
)

const defaultWorkers = 4

// reportUploader is the slice of the upload component the combiner uses.
type reportUploader interface {
	UploadTo(ctx context.Context, key string, data []byte, contentType string, metadata map[string]string) uploader.Result
}

// Result summarizes one combine run. Errors collects per-file problems
// alongside run-level failures; a run with skipped files and a written
// report is a partial success, not a failure.
type Result struct {
	FilesProcessed          int           `json:"files_processed"`
	FilesSkipped            int           `json:"files_skipped"`
	CombinedCoveragePercent float64       `json:"combined_coverage_percent"`
	OutputLocation          string        `json:"output_location,omitempty"`
	ProcessingTime          time.Duration `json:"processing_time"`
	Errors                  []string      `json:"errors,omitempty"`
}

// Combiner merges stored coverage files into a consolidated report.
type Combiner struct {
	store    storage.Storage
	up       reportUploader
	workers  int
	maxFiles int
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures a Combiner.
type Option func(*Combiner)

// WithWorkers bounds download parallelism.
func WithWorkers(n int) Option {
	return func(c *Combiner) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithMaxFiles caps how many coverage files one run consumes. Zero means
// no cap.
func WithMaxFiles(n int) Option {
	return func(c *Combiner) { c.maxFiles = n }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Combiner) { c.logger = logger }
}

// WithClock overrides the time source for generated output keys.
func WithClock(now func() time.Time) Option {
	return func(c *Combiner) { c.now = now }
}

// New creates a Combiner over the given storage backend and uploader.
func New(store storage.Storage, up reportUploader, opts ...Option) *Combiner {
	c := &Combiner{
		store:   store,
		up:      up,
		workers: defaultWorkers,
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Combine lists coverage files under prefix, merges every parseable one,
// and uploads a consolidated JSON report to outputKey. When outputKey is
// empty a timestamped key under {prefix}combined/ is generated.
func (c *Combiner) Combine(ctx context.Context, prefix, outputKey string) Result {
	start := time.Now()
	result := Result{}

	objects, err := c.store.List(ctx, prefix)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("listing %q: %v", prefix, err))
		result.ProcessingTime = time.Since(start)
		c.logger.Error("combine aborted: listing failed",
			"bucket", c.store.Bucket(), "prefix", prefix, "error", err)
		return result
	}

	keys := c.selectKeys(objects, prefix)
	c.logger.Info("combine started",
		"bucket", c.store.Bucket(),
		"prefix", prefix,
		"objects_listed", len(objects),
		"coverage_files", len(keys))

	if len(keys) == 0 {
		result.Errors = append(result.Errors, fmt.Sprintf("no coverage files found under %q", prefix))
		result.ProcessingTime = time.Since(start)
		return result
	}

	payloads := c.download(ctx, keys, &result)

	var merged []*coverage.Profile
	for i, data := range payloads {
		if data == nil {
			continue
		}
		profiles, err := coverage.ParseProfiles(data)
		if err != nil {
			result.FilesSkipped++
			result.Errors = append(result.Errors, fmt.Sprintf("parsing %s: %v", keys[i], err))
			c.logger.Warn("skipping corrupt coverage file", "key", keys[i], "error", err)
			continue
		}
		next, err := coverage.MergeProfiles(append(append([]*coverage.Profile{}, merged...), profiles...))
		if err != nil {
			result.FilesSkipped++
			result.Errors = append(result.Errors, fmt.Sprintf("merging %s: %v", keys[i], err))
			c.logger.Warn("skipping unmergeable coverage file", "key", keys[i], "error", err)
			continue
		}
		merged = next
		result.FilesProcessed++
	}

	if result.FilesProcessed == 0 {
		if len(result.Errors) == 0 {
			result.Errors = append(result.Errors, "no usable coverage files")
		}
		result.ProcessingTime = time.Since(start)
		c.logger.Error("combine produced no report: no usable coverage files",
			"skipped", result.FilesSkipped)
		return result
	}

	result.CombinedCoveragePercent = coverage.Percent(merged)

	report := coverage.BuildReport(merged, c.now().UTC())
	data, err := report.Marshal()
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("building report: %v", err))
		result.ProcessingTime = time.Since(start)
		return result
	}

	if outputKey == "" {
		outputKey = storage.CombinedKey(prefix, c.now())
	}

	meta := map[string]string{
		"files-processed":  strconv.Itoa(result.FilesProcessed),
		"files-skipped":    strconv.Itoa(result.FilesSkipped),
		"coverage-percent": strconv.FormatFloat(result.CombinedCoveragePercent, 'f', 2, 64),
	}

	up := c.up.UploadTo(ctx, outputKey, data, "application/json", meta)
	if !up.Success {
		result.Errors = append(result.Errors, fmt.Sprintf("uploading combined report to %s: failed after %d attempts", outputKey, up.Attempts))
		result.ProcessingTime = time.Since(start)
		return result
	}

	result.OutputLocation = fmt.Sprintf("s3://%s/%s", up.Bucket, up.Key)
	result.ProcessingTime = time.Since(start)

	c.logger.Info("combine completed",
		"output", result.OutputLocation,
		"files_processed", result.FilesProcessed,
		"files_skipped", result.FilesSkipped,
		"coverage_percent", result.CombinedCoveragePercent,
		"duration_ms", result.ProcessingTime.Milliseconds())
	return result
}

// selectKeys filters the listing down to per-invocation coverage files:
// .coverage suffix, not under the combined/ sub-prefix, capped at
// maxFiles, in lexicographic (chronological) order.
func (c *Combiner) selectKeys(objects []storage.ObjectInfo, prefix string) []string {
	combined := prefix + storage.CombinedSubPrefix
	keys := make([]string, 0, len(objects))
	for _, obj := range objects {
		if !strings.HasSuffix(obj.Key, storage.CoverageExt) {
			continue
		}
		if strings.HasPrefix(obj.Key, combined) {
			continue
		}
		keys = append(keys, obj.Key)
	}
	sort.Strings(keys)
	if c.maxFiles > 0 && len(keys) > c.maxFiles {
		c.logger.Info("capping combine run", "max_files", c.maxFiles, "available", len(keys))
		keys = keys[:c.maxFiles]
	}
	return keys
}

// download fetches payloads in parallel, preserving key order via
// per-index slots. A failed or missing object leaves a nil slot and a
// recorded error.
func (c *Combiner) download(ctx context.Context, keys []string, result *Result) [][]byte {
	payloads := make([][]byte, len(keys))
	errs := make([]string, len(keys))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for i, key := range keys {
		g.Go(func() error {
			data, err := c.store.Get(gctx, key)
			if err != nil {
				errs[i] = fmt.Sprintf("downloading %s: %v", key, err)
				return nil
			}
			if data == nil {
				errs[i] = fmt.Sprintf("downloading %s: object disappeared", key)
				return nil
			}
			payloads[i] = data
			return nil
		})
	}
	// Workers never return errors; Wait only observes context cancellation.
	_ = g.Wait()

	for _, msg := range errs {
		if msg != "" {
			result.FilesSkipped++
			result.Errors = append(result.Errors, msg)
			c.logger.Warn("skipping coverage file", "reason", msg)
		}
	}
	return payloads
}
