package session

import (
	"context"
	"errors"
	"fmt"
	"os"
)

// Engine is the port to the coverage measurement machinery. Start begins
// measuring; Stop ends measurement and returns the raw coverage payload
// in standard Go coverage profile format.
//
// Engines are not safe for concurrent use; the session controller drives
// one engine through one idle -> measuring -> finalized cycle at a time.
type Engine interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) ([]byte, error)
}

// MeasurementError marks a failure inside the measurement machinery.
// It is always non-fatal: the session controller logs it and lets the
// wrapped handler run unmeasured.
type MeasurementError struct {
	Op  string
	Err error
}

func (e *MeasurementError) Error() string {
	return fmt.Sprintf("coverage measurement failed during %s: %v", e.Op, e.Err)
}

func (e *MeasurementError) Unwrap() error { return e.Err }

// SnapshotFunc adapts a payload-producing function to the Engine
// interface. Start is a no-op; Stop invokes the function. This is the
// integration point for binaries with their own instrumentation hooks.
type SnapshotFunc func(ctx context.Context) ([]byte, error)

func (f SnapshotFunc) Start(ctx context.Context) error { return nil }

func (f SnapshotFunc) Stop(ctx context.Context) ([]byte, error) {
	data, err := f(ctx)
	if err != nil {
		return nil, &MeasurementError{Op: "snapshot", Err: err}
	}
	return data, nil
}

// DefaultProfilePath is where the default engine expects the instrumented
// process to write its text coverage profile. Lambda only guarantees /tmp
// is writable. Override with COVERAGE_PROFILE_PATH.
const DefaultProfilePath = "/tmp/coverage.out"

// ProfileFileEngine reads a Go text coverage profile from a file path.
// Start removes any stale profile left by a previous invocation on the
// same execution slot; Stop reads whatever the measured code wrote.
type ProfileFileEngine struct {
	Path string
}

// NewProfileFileEngine builds a ProfileFileEngine from the environment,
// falling back to DefaultProfilePath.
func NewProfileFileEngine() *ProfileFileEngine {
	path := os.Getenv("COVERAGE_PROFILE_PATH")
	if path == "" {
		path = DefaultProfilePath
	}
	return &ProfileFileEngine{Path: path}
}

func (e *ProfileFileEngine) Start(ctx context.Context) error {
	if e.Path == "" {
		return &MeasurementError{Op: "start", Err: errors.New("profile path is empty")}
	}
	if err := os.Remove(e.Path); err != nil && !os.IsNotExist(err) {
		return &MeasurementError{Op: "start", Err: err}
	}
	return nil
}

func (e *ProfileFileEngine) Stop(ctx context.Context) ([]byte, error) {
	data, err := os.ReadFile(e.Path)
	if err != nil {
		return nil, &MeasurementError{Op: "stop", Err: err}
	}
	if len(data) == 0 {
		return nil, &MeasurementError{Op: "stop", Err: errors.New("profile file is empty")}
	}
	// The profile has been consumed; remove it so a warm invocation that
	// fails to measure does not re-upload stale data.
	if err := os.Remove(e.Path); err != nil && !os.IsNotExist(err) {
		return nil, &MeasurementError{Op: "stop", Err: err}
	}
	return data, nil
}
