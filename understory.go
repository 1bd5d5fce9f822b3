// Package understory collects code coverage from AWS Lambda invocations
// and ships the resulting profiles to object storage, where the combine
// tooling consolidates them into a single report.
//
// Wrap a handler:
//
//	lambda.Start(understory.Wrap(handler))
//
// or guard a block:
//
//	sc := understory.Begin(ctx)
//	defer sc.End(ctx)
//
// Coverage is invisible to the wrapped code: results and errors pass
// through unchanged, and any collection or upload failure is logged and
// swallowed rather than surfaced.
package understory

import (
	"context"

	"github.com/oleg-kozlyuk-grafana/go-understory/internal/health"
	"github.com/oleg-kozlyuk-grafana/go-understory/internal/session"
)

// Option customizes coverage sessions.
type Option = session.Option

// Scope guards coverage measurement over a block of code.
type Scope = session.Scope

// Engine is the port to the coverage measurement machinery.
type Engine = session.Engine

// HealthStatus is the layer health report.
type HealthStatus = health.Status

// Re-exported session options. Configuration itself always comes from
// the environment (COVERAGE_S3_BUCKET and friends).
var (
	WithEngine       = session.WithEngine
	WithLogger       = session.WithLogger
	WithFunctionName = session.WithFunctionName
)

// Wrap decorates a Lambda handler with coverage measurement. The wrapped
// handler has the same signature and is transparent to callers.
func Wrap[TIn, TOut any](handler func(context.Context, TIn) (TOut, error), opts ...Option) func(context.Context, TIn) (TOut, error) {
	return session.Wrap(handler, opts...)
}

// Begin starts a measured scope; pair with Scope.End. It never fails.
func Begin(ctx context.Context, opts ...Option) *Scope {
	return session.Begin(ctx, opts...)
}

// CheckHealth reports whether the layer can collect and upload coverage.
func CheckHealth(ctx context.Context) HealthStatus {
	return health.Check(ctx)
}
