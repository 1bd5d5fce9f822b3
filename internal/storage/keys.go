package storage

import (
	"fmt"
	"strings"
	"time"
)

// CoverageExt is the object key suffix for per-invocation coverage files.
const CoverageExt = ".coverage"

// CombinedSubPrefix is the sub-prefix combined reports are written under.
const CombinedSubPrefix = "combined/"

// ObjectKey builds the object key for one per-invocation coverage file:
//
//	{prefix}{YYYY}/{MM}/{DD}/{function_name}-{execution_id}.coverage
//
// Date components are taken from ts in UTC; a zero ts means the current
// time. The function name and execution id are not sanitized beyond what
// the key structure requires; malformed characters are the caller's
// responsibility. Deterministic and side-effect free.
func ObjectKey(functionName, executionID, prefix string, ts time.Time) string {
	if ts.IsZero() {
		ts = time.Now()
	}
	ts = ts.UTC()

	return fmt.Sprintf("%s%04d/%02d/%02d/%s-%s%s",
		normalizePrefix(prefix),
		ts.Year(), int(ts.Month()), ts.Day(),
		functionName, executionID, CoverageExt)
}

// CombinedKey builds the default object key for a consolidated report:
//
//	{prefix}combined/coverage-{YYYYMMDD-HHMMSS}.json
func CombinedKey(prefix string, ts time.Time) string {
	if ts.IsZero() {
		ts = time.Now()
	}
	ts = ts.UTC()

	return fmt.Sprintf("%s%scoverage-%s.json",
		normalizePrefix(prefix), CombinedSubPrefix, ts.Format("20060102-150405"))
}

// normalizePrefix ensures a non-empty prefix carries a trailing slash.
// An empty prefix stays empty so keys can live at the bucket root.
func normalizePrefix(prefix string) string {
	if prefix == "" || strings.HasSuffix(prefix, "/") {
		return prefix
	}
	return prefix + "/"
}
