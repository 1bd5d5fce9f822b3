package uploader

import "time"

// ReportMetadata describes one stored coverage artifact. It is created
// after a successful upload and never mutated afterwards.
type ReportMetadata struct {
	FunctionName    string    `json:"function_name"`
	ExecutionID     string    `json:"execution_id"`
	Timestamp       time.Time `json:"timestamp"`
	Key             string    `json:"storage_key"`
	SizeBytes       int64     `json:"file_size_bytes"`
	CoveragePercent float64   `json:"coverage_percentage,omitempty"`
	LinesCovered    int       `json:"lines_covered,omitempty"`
	LinesTotal      int       `json:"lines_total,omitempty"`
}
