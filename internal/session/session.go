// Package session wraps units of work with coverage measurement. It
// exposes two entry points over one state machine: Wrap decorates a whole
// Lambda handler, Begin/End guards a sub-block. Coverage machinery is
// invisible to the wrapped code: results and errors pass through
// unchanged, and every internal failure degrades to "run unmeasured".
package session

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oleg-kozlyuk-grafana/go-understory/internal/config"
	"github.com/oleg-kozlyuk-grafana/go-understory/internal/coverage"
	"github.com/oleg-kozlyuk-grafana/go-understory/internal/storage"
	"github.com/oleg-kozlyuk-grafana/go-understory/internal/uploader"
)

type state int

const (
	stateIdle state = iota
	stateMeasuring
	stateFinalized
)

// activeSessions counts sessions currently in the measuring state,
// surfaced by the health reporter.
var activeSessions atomic.Int64

// Active reports whether any session is currently measuring.
func Active() bool {
	return activeSessions.Load() > 0
}

// payloadUploader is the subset of the upload component the session
// controller needs; narrowed for testability.
type payloadUploader interface {
	Upload(ctx context.Context, data []byte, functionName, executionID string) uploader.Result
}

// Session drives one idle -> measuring -> finalized measurement cycle.
type Session struct {
	cfg          *config.CoverageConfig
	engine       Engine
	up           payloadUploader
	logger       *slog.Logger
	functionName string
	state        state
}

// start transitions idle -> measuring. Any failure leaves the session
// idle and is logged; the unit of work proceeds unmeasured.
func (s *Session) start(ctx context.Context) {
	if s.state != stateIdle || s.engine == nil {
		return
	}

	if err := s.engine.Start(ctx); err != nil {
		s.logger.Warn("coverage measurement unavailable for this invocation",
			"function_name", s.functionName, "error", err)
		return
	}

	s.state = stateMeasuring
	activeSessions.Add(1)
	s.logger.Debug("coverage measurement started", "function_name", s.functionName)
}

// finish transitions measuring -> finalized: stop the engine, filter the
// collected profiles, and hand the payload to the upload component.
// It never panics and never returns an error; instrumentation failures
// must not reach the caller's control flow.
func (s *Session) finish(ctx context.Context, executionID string) {
	if s.state != stateMeasuring {
		return
	}
	s.state = stateFinalized
	activeSessions.Add(-1)

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic during coverage finalization",
				"function_name", s.functionName, "panic", r)
		}
	}()

	payload, err := s.engine.Stop(ctx)
	if err != nil {
		s.logger.Warn("coverage finalization failed, skipping upload",
			"function_name", s.functionName, "error", err)
		return
	}

	profiles, err := coverage.ParseProfiles(payload)
	if err != nil {
		s.logger.Warn("collected coverage payload is unreadable, skipping upload",
			"function_name", s.functionName, "error", err)
		return
	}

	profiles = coverage.FilterProfiles(profiles, s.cfg.IncludePatterns, s.cfg.ExcludePatterns)
	if len(profiles) == 0 {
		s.logger.Info("no profiles left after include/exclude filtering, skipping upload",
			"function_name", s.functionName)
		return
	}

	data, err := coverage.SerializeProfiles(profiles)
	if err != nil {
		s.logger.Warn("failed to serialize filtered profiles, skipping upload",
			"function_name", s.functionName, "error", err)
		return
	}

	result := s.up.Upload(ctx, data, s.functionName, executionID)
	if !result.Success {
		// Already logged attempt by attempt inside the uploader.
		return
	}

	md := metadata(s.functionName, executionID, result, profiles)
	s.logger.Info("coverage report stored",
		"function_name", md.FunctionName,
		"execution_id", md.ExecutionID,
		"storage_key", md.Key,
		"file_size_bytes", md.SizeBytes,
		"coverage_percentage", md.CoveragePercent,
		"lines_covered", md.LinesCovered,
		"lines_total", md.LinesTotal,
		"timestamp", md.Timestamp.Format(time.RFC3339))
}

// metadata builds the immutable artifact record for a successful upload.
func metadata(functionName, executionID string, result uploader.Result, profiles []*coverage.Profile) uploader.ReportMetadata {
	var covered, total int
	for _, p := range profiles {
		for _, b := range p.Blocks {
			total += b.NumStmt
			if b.Count > 0 {
				covered += b.NumStmt
			}
		}
	}
	return uploader.ReportMetadata{
		FunctionName:    functionName,
		ExecutionID:     executionID,
		Timestamp:       time.Now().UTC(),
		Key:             result.Key,
		SizeBytes:       result.SizeBytes,
		CoveragePercent: coverage.Percent(profiles),
		LinesCovered:    covered,
		LinesTotal:      total,
	}
}

// Process-wide upload pipeline, shared across warm invocations. The
// storage client and uploader are built once per execution slot, like
// the configuration cache.
var (
	pipelineMu sync.Mutex
	pipeline   payloadUploader
)

func sharedUploader(ctx context.Context, cfg *config.CoverageConfig, logger *slog.Logger) (payloadUploader, error) {
	pipelineMu.Lock()
	defer pipelineMu.Unlock()

	if pipeline != nil {
		return pipeline, nil
	}

	store, err := storage.NewFromConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	up, err := uploader.New(store, cfg, uploader.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	pipeline = up
	return pipeline, nil
}

// ResetPipeline clears the shared upload pipeline. Test use only.
func ResetPipeline() {
	pipelineMu.Lock()
	defer pipelineMu.Unlock()
	pipeline = nil
}
