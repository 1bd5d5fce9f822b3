// Package health reports whether the coverage layer is able to do its
// job. The check is deliberately local: it validates configuration and
// patterns but performs no network I/O, so it is safe to call from a
// Lambda health endpoint on every probe.
package health

import (
	"context"
	"time"

	"github.com/oleg-kozlyuk-grafana/go-understory/internal/config"
	"github.com/oleg-kozlyuk-grafana/go-understory/internal/coverage"
	"github.com/oleg-kozlyuk-grafana/go-understory/internal/session"
)

// Overall health states.
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// LayerVersion is stamped at build time via ldflags.
var LayerVersion = "dev"

// StorageInfo names where coverage artifacts go.
type StorageInfo struct {
	Bucket string `json:"bucket,omitempty"`
	Prefix string `json:"prefix,omitempty"`
}

// Status is the health report. unhealthy means coverage cannot work at
// all (configuration invalid); degraded means it works with caveats.
type Status struct {
	Status          string      `json:"status"`
	CoverageEnabled bool        `json:"coverage_enabled"`
	LayerVersion    string      `json:"layer_version"`
	ActiveSession   bool        `json:"active_session"`
	Storage         StorageInfo `json:"storage"`
	Timestamp       time.Time   `json:"timestamp"`
	Errors          []string    `json:"errors,omitempty"`
	Warnings        []string    `json:"warnings,omitempty"`
}

// Option customizes a health check.
type Option func(*checker)

type checker struct {
	loadConfig func() (*config.CoverageConfig, error)
	engine     session.Engine
}

// WithConfigLoader overrides the configuration source. Test use.
func WithConfigLoader(load func() (*config.CoverageConfig, error)) Option {
	return func(c *checker) { c.loadConfig = load }
}

// WithEngine sets the engine whose availability is probed. When nil the
// engine check is skipped.
func WithEngine(engine session.Engine) Option {
	return func(c *checker) { c.engine = engine }
}

// Check inspects the layer's configuration and reports its health.
func Check(ctx context.Context, opts ...Option) Status {
	c := &checker{loadConfig: config.Cached}
	for _, opt := range opts {
		opt(c)
	}

	st := Status{
		Status:          StatusHealthy,
		CoverageEnabled: true,
		LayerVersion:    LayerVersion,
		ActiveSession:   session.Active(),
		Timestamp:       time.Now().UTC(),
	}

	cfg, err := c.loadConfig()
	if err != nil {
		st.Status = StatusUnhealthy
		st.CoverageEnabled = false
		st.Errors = append(st.Errors, err.Error())
		return st
	}

	st.Storage = StorageInfo{Bucket: cfg.Bucket, Prefix: cfg.KeyPrefix}

	if err := coverage.ValidatePatterns(cfg.IncludePatterns); err != nil {
		st.Warnings = append(st.Warnings, "include patterns: "+err.Error())
	}
	if err := coverage.ValidatePatterns(cfg.ExcludePatterns); err != nil {
		st.Warnings = append(st.Warnings, "exclude patterns: "+err.Error())
	}

	if c.engine != nil {
		if err := probeEngine(ctx, c.engine); err != nil {
			st.Warnings = append(st.Warnings, "measurement engine unavailable: "+err.Error())
		}
	}

	if len(st.Warnings) > 0 {
		st.Status = StatusDegraded
	}
	return st
}

// probeEngine checks the engine can start. The probe session is thrown
// away; we only care that Start does not fail.
func probeEngine(ctx context.Context, engine session.Engine) error {
	if err := engine.Start(ctx); err != nil {
		return err
	}
	// Stop failure after a successful start is expected for engines that
	// require real measured work; it does not indicate unavailability.
	_, _ = engine.Stop(ctx)
	return nil
}
