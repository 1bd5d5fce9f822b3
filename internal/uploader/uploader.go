package uploader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/oleg-kozlyuk-grafana/go-understory/internal/config"
	"github.com/oleg-kozlyuk-grafana/go-understory/internal/storage"
)

const (
	defaultMaxAttempts = 3
	defaultBaseDelay   = 1 * time.Second
)

// Result describes the outcome of one upload operation. Uploads never
// fail loudly: a failed upload is reported as Success=false and logged,
// because the caller's business result is already determined by the time
// the upload runs.
type Result struct {
	Key       string
	Bucket    string
	SizeBytes int64
	Duration  time.Duration
	Attempts  int
	Success   bool
}

// Uploader pushes coverage payloads to object storage with bounded
// retries and exponential backoff.
type Uploader struct {
	store  storage.Storage
	cfg    *config.CoverageConfig
	logger *slog.Logger

	maxAttempts int
	baseDelay   time.Duration
	now         func() time.Time

	// notify observes retry delays; test hook.
	notify func(err error, delay time.Duration)
}

// Option configures an Uploader.
type Option func(*Uploader)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(u *Uploader) { u.logger = logger }
}

// WithBaseDelay overrides the first retry delay. Subsequent delays double.
func WithBaseDelay(d time.Duration) Option {
	return func(u *Uploader) { u.baseDelay = d }
}

// WithClock overrides the time source used for key generation.
func WithClock(now func() time.Time) Option {
	return func(u *Uploader) { u.now = now }
}

// New creates an Uploader. A nil config or empty bucket is a programmer
// error and fails immediately; everything downstream degrades gracefully.
func New(store storage.Storage, cfg *config.CoverageConfig, opts ...Option) (*Uploader, error) {
	if store == nil {
		return nil, errors.New("storage is required")
	}
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("config bucket is empty")
	}

	u := &Uploader{
		store:       store,
		cfg:         cfg,
		logger:      slog.Default(),
		maxAttempts: defaultMaxAttempts,
		baseDelay:   defaultBaseDelay,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u, nil
}

// Upload stores one per-invocation coverage payload under a generated
// date-partitioned key and returns the outcome. It never returns an
// error: failures are logged and reported via Result.Success.
func (u *Uploader) Upload(ctx context.Context, data []byte, functionName, executionID string) Result {
	key := storage.ObjectKey(functionName, executionID, u.cfg.KeyPrefix, u.now())
	return u.put(ctx, key, data, "application/octet-stream", nil)
}

// UploadTo stores data under an explicit key, with the same retry
// semantics as Upload. Used by the combiner for consolidated reports.
func (u *Uploader) UploadTo(ctx context.Context, key string, data []byte, contentType string, metadata map[string]string) Result {
	return u.put(ctx, key, data, contentType, metadata)
}

func (u *Uploader) put(ctx context.Context, key string, data []byte, contentType string, metadata map[string]string) Result {
	start := time.Now()
	result := Result{
		Key:       key,
		Bucket:    u.store.Bucket(),
		SizeBytes: int64(len(data)),
	}

	maxAttempts := u.maxAttempts
	if !u.hasRetryBudget(ctx) {
		u.logger.Warn("insufficient time budget, making a single best-effort upload attempt",
			"key", key, "bucket", result.Bucket)
		maxAttempts = 1
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = u.baseDelay
	bo.RandomizationFactor = 0
	bo.Multiplier = 2
	bo.MaxInterval = u.baseDelay * 16
	bo.MaxElapsedTime = 0

	attempt := 0
	op := func() error {
		attempt++
		u.logger.Info("attempting coverage upload",
			"bucket", result.Bucket,
			"key", key,
			"attempt", attempt,
			"max_attempts", maxAttempts,
			"size_bytes", result.SizeBytes)

		attemptCtx, cancel := context.WithTimeout(ctx, u.cfg.UploadTimeout)
		defer cancel()

		err := u.store.Put(attemptCtx, key, data, contentType, metadata)
		if err == nil {
			return nil
		}
		if storage.IsFatal(err) {
			u.logger.Error("non-retryable storage error",
				"bucket", result.Bucket, "key", key, "error", err)
			return backoff.Permanent(err)
		}
		u.logger.Warn("upload attempt failed",
			"bucket", result.Bucket, "key", key, "attempt", attempt, "error", err)
		return err
	}

	notify := func(err error, delay time.Duration) {
		u.logger.Info("retrying upload after delay",
			"key", key, "delay_ms", delay.Milliseconds(), "next_attempt", attempt+1)
		if u.notify != nil {
			u.notify(err, delay)
		}
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(bo, uint64(maxAttempts-1)), ctx)
	err := backoff.RetryNotify(op, policy, notify)

	result.Attempts = attempt
	result.Duration = time.Since(start)
	result.Success = err == nil

	if err != nil {
		u.logger.Error("upload failed after all attempts",
			"bucket", result.Bucket,
			"key", key,
			"attempts", attempt,
			"duration_ms", result.Duration.Milliseconds(),
			"error", err)
	} else {
		u.logger.Info("upload completed",
			"bucket", result.Bucket,
			"key", key,
			"attempts", attempt,
			"size_bytes", result.SizeBytes,
			"duration_ms", result.Duration.Milliseconds())
	}

	return result
}

// hasRetryBudget reports whether the context deadline leaves room for a
// full retry cycle. When it doesn't, the upload degrades to one attempt
// rather than risking a timeout escaping into the handler's control flow.
func (u *Uploader) hasRetryBudget(ctx context.Context) bool {
	deadline, ok := ctx.Deadline()
	if !ok {
		return true
	}
	budget := u.cfg.UploadTimeout + u.baseDelay
	return time.Until(deadline) >= budget
}

// String implements fmt.Stringer for log-friendly result rendering.
func (r Result) String() string {
	return fmt.Sprintf("upload %s/%s success=%t attempts=%d", r.Bucket, r.Key, r.Success, r.Attempts)
}
