package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Backend represents the object storage backend to use.
type Backend string

const (
	BackendS3  Backend = "s3"
	BackendGCS Backend = "gcs"
)

// Default values applied when the corresponding environment variable is unset.
const (
	DefaultKeyPrefix     = "coverage/"
	DefaultUploadTimeout = 30 * time.Second

	MinUploadTimeout = 5 * time.Second
	MaxUploadTimeout = 300 * time.Second
)

// CoverageConfig holds all settings for coverage collection and upload.
// It is immutable once constructed; resolve it once per cold start via
// Cached and pass it explicitly through every call.
type CoverageConfig struct {
	// Bucket is the object storage bucket coverage files are written to.
	Bucket string

	// KeyPrefix is prepended to every generated object key. Always ends
	// with a trailing slash.
	KeyPrefix string

	// UploadTimeout bounds a single upload attempt.
	UploadTimeout time.Duration

	// IncludePatterns/ExcludePatterns are glob patterns applied to source
	// file paths when filtering collected profiles. Empty means no filter.
	IncludePatterns []string
	ExcludePatterns []string

	// BranchCoverage selects count-mode profiles when the measurement
	// engine supports them; set-mode profiles are accepted either way.
	BranchCoverage bool

	// Debug lowers the log level to debug.
	Debug bool

	// Backend selects the storage implementation.
	Backend Backend

	// Endpoint overrides the storage endpoint. When empty the S3 backend
	// derives it from AWS_REGION; the ambient SDK credentials apply.
	Endpoint string

	// Region is the storage region, read from AWS_REGION.
	Region string

	// UseSSL controls TLS for the S3 endpoint. Defaults to true.
	UseSSL bool
}

// ValidationError reports a missing or out-of-range configuration field.
// It names the environment variable so callers can surface actionable
// diagnostics.
type ValidationError struct {
	Variable string
	Reason   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s %s", e.Variable, e.Reason)
}

// FromEnvironment builds a CoverageConfig from environment variables.
// It performs no network or disk access.
//
// Recognized variables:
//
//	COVERAGE_S3_BUCKET          (required)
//	COVERAGE_S3_PREFIX          (default "coverage/")
//	COVERAGE_UPLOAD_TIMEOUT     (seconds, default 30, range 5-300)
//	COVERAGE_INCLUDE_PATTERNS   (comma-separated globs)
//	COVERAGE_EXCLUDE_PATTERNS   (comma-separated globs)
//	COVERAGE_BRANCH_COVERAGE    (default true)
//	COVERAGE_DEBUG              (default false)
//	COVERAGE_STORAGE_BACKEND    (s3 or gcs, default s3)
//	COVERAGE_S3_ENDPOINT        (optional endpoint override)
//	COVERAGE_S3_USE_SSL         (default true)
//	AWS_REGION                  (resolved by the ambient SDK as well)
func FromEnvironment() (*CoverageConfig, error) {
	bucket := os.Getenv("COVERAGE_S3_BUCKET")
	if bucket == "" {
		return nil, &ValidationError{Variable: "COVERAGE_S3_BUCKET", Reason: "is required"}
	}

	cfg := &CoverageConfig{
		Bucket:    bucket,
		KeyPrefix: normalizePrefix(getEnv("COVERAGE_S3_PREFIX", DefaultKeyPrefix)),
		Region:    os.Getenv("AWS_REGION"),
		Endpoint:  os.Getenv("COVERAGE_S3_ENDPOINT"),
	}

	timeoutSecs, err := strconv.Atoi(getEnv("COVERAGE_UPLOAD_TIMEOUT", "30"))
	if err != nil {
		return nil, &ValidationError{Variable: "COVERAGE_UPLOAD_TIMEOUT", Reason: "must be an integer number of seconds"}
	}
	cfg.UploadTimeout = time.Duration(timeoutSecs) * time.Second
	if cfg.UploadTimeout < MinUploadTimeout || cfg.UploadTimeout > MaxUploadTimeout {
		return nil, &ValidationError{
			Variable: "COVERAGE_UPLOAD_TIMEOUT",
			Reason: fmt.Sprintf("must be between %d and %d seconds, got %d",
				int(MinUploadTimeout.Seconds()), int(MaxUploadTimeout.Seconds()), timeoutSecs),
		}
	}

	cfg.IncludePatterns = splitPatterns(os.Getenv("COVERAGE_INCLUDE_PATTERNS"))
	cfg.ExcludePatterns = splitPatterns(os.Getenv("COVERAGE_EXCLUDE_PATTERNS"))

	cfg.BranchCoverage, err = parseBool(getEnv("COVERAGE_BRANCH_COVERAGE", "true"))
	if err != nil {
		return nil, &ValidationError{Variable: "COVERAGE_BRANCH_COVERAGE", Reason: err.Error()}
	}

	cfg.Debug, err = parseBool(getEnv("COVERAGE_DEBUG", "false"))
	if err != nil {
		return nil, &ValidationError{Variable: "COVERAGE_DEBUG", Reason: err.Error()}
	}

	cfg.UseSSL, err = parseBool(getEnv("COVERAGE_S3_USE_SSL", "true"))
	if err != nil {
		return nil, &ValidationError{Variable: "COVERAGE_S3_USE_SSL", Reason: err.Error()}
	}

	backend := Backend(getEnv("COVERAGE_STORAGE_BACKEND", string(BackendS3)))
	switch backend {
	case BackendS3, BackendGCS:
		cfg.Backend = backend
	default:
		return nil, &ValidationError{Variable: "COVERAGE_STORAGE_BACKEND", Reason: fmt.Sprintf("must be s3 or gcs, got %q", backend)}
	}

	return cfg, nil
}

// normalizePrefix ensures a prefix ends with a single trailing slash.
func normalizePrefix(prefix string) string {
	if prefix == "" {
		return DefaultKeyPrefix
	}
	if !strings.HasSuffix(prefix, "/") {
		return prefix + "/"
	}
	return prefix
}

// splitPatterns splits a comma-separated pattern list, trimming whitespace
// and dropping empty entries. Returns nil for an empty input.
func splitPatterns(raw string) []string {
	if raw == "" {
		return nil
	}
	var patterns []string
	for _, p := range strings.Split(raw, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			patterns = append(patterns, p)
		}
	}
	return patterns
}

// parseBool coerces the common truthy/falsy string forms.
func parseBool(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "1", "yes", "on":
		return true, nil
	case "false", "0", "no", "off":
		return false, nil
	default:
		return false, fmt.Errorf("must be a boolean, got %q", raw)
	}
}

// getEnv gets an environment variable with a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
