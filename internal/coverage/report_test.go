package coverage

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildReport(t *testing.T) {
	profiles := []*Profile{
		{FileName: "a.go", Mode: "set", Blocks: []ProfileBlock{
			{StartLine: 1, EndLine: 2, NumStmt: 3, Count: 1},
			{StartLine: 3, EndLine: 4, NumStmt: 1, Count: 0},
		}},
		{FileName: "b.go", Mode: "set", Blocks: []ProfileBlock{
			{StartLine: 1, EndLine: 2, NumStmt: 4, Count: 0},
		}},
	}

	ts := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	report := BuildReport(profiles, ts)

	require.Len(t, report.Files, 2)
	assert.Equal(t, FileSummary{CoveredLines: 3, NumStatements: 4, PercentCoveredDisplay: "75.00"}, report.Files["a.go"])
	assert.Equal(t, FileSummary{CoveredLines: 0, NumStatements: 4, PercentCoveredDisplay: "0.00"}, report.Files["b.go"])

	assert.Equal(t, 3, report.Totals.CoveredLines)
	assert.Equal(t, 8, report.Totals.NumStatements)
	assert.InDelta(t, 37.5, report.Totals.PercentCovered, 0.001)
	assert.Equal(t, "37.50", report.Totals.PercentCoveredDisplay)
	assert.Equal(t, ts, report.GeneratedAt)
}

func TestReportMarshal(t *testing.T) {
	profiles := []*Profile{
		{FileName: "a.go", Mode: "set", Blocks: []ProfileBlock{
			{StartLine: 1, EndLine: 2, NumStmt: 2, Count: 1},
		}},
	}

	report := BuildReport(profiles, time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC))
	data, err := report.Marshal()
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Contains(t, decoded, "files")
	assert.Contains(t, decoded, "totals")
	assert.Contains(t, decoded, "generated_at")

	files := decoded["files"].(map[string]any)
	entry := files["a.go"].(map[string]any)
	assert.Equal(t, "100.00", entry["percent_covered_display"])
}

func TestPercent(t *testing.T) {
	tests := []struct {
		name     string
		profiles []*Profile
		want     float64
	}{
		{name: "no profiles", profiles: nil, want: 0},
		{
			name: "no statements",
			profiles: []*Profile{
				{FileName: "a.go", Mode: "set"},
			},
			want: 0,
		},
		{
			name: "statement weighted across files",
			profiles: []*Profile{
				{FileName: "a.go", Mode: "set", Blocks: []ProfileBlock{
					{StartLine: 1, EndLine: 2, NumStmt: 9, Count: 1},
				}},
				{FileName: "b.go", Mode: "set", Blocks: []ProfileBlock{
					{StartLine: 1, EndLine: 2, NumStmt: 1, Count: 0},
				}},
			},
			want: 90,
		},
		{
			name: "fully covered",
			profiles: []*Profile{
				{FileName: "a.go", Mode: "set", Blocks: []ProfileBlock{
					{StartLine: 1, EndLine: 2, NumStmt: 2, Count: 5},
				}},
			},
			want: 100,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Percent(tt.profiles), 0.001)
		})
	}
}
