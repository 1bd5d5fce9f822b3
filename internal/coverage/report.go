package coverage

import (
	"encoding/json"
	"fmt"
	"time"
)

// FileSummary is the per-file entry in a combined report. Statements are
// the unit of measurement in Go coverage profiles, so covered_lines counts
// covered statements.
type FileSummary struct {
	CoveredLines          int    `json:"covered_lines"`
	NumStatements         int    `json:"num_statements"`
	PercentCoveredDisplay string `json:"percent_covered_display"`
}

// Totals aggregates coverage across all files in a report.
type Totals struct {
	CoveredLines          int     `json:"covered_lines"`
	NumStatements         int     `json:"num_statements"`
	PercentCovered        float64 `json:"percent_covered"`
	PercentCoveredDisplay string  `json:"percent_covered_display"`
}

// Report is the consolidated coverage report body written by the combiner.
type Report struct {
	Files       map[string]FileSummary `json:"files"`
	Totals      Totals                 `json:"totals"`
	GeneratedAt time.Time              `json:"generated_at"`
}

// BuildReport summarizes merged profiles into a Report. ts stamps the
// report; a zero ts means the current time.
func BuildReport(profiles []*Profile, ts time.Time) *Report {
	if ts.IsZero() {
		ts = time.Now()
	}

	report := &Report{
		Files:       make(map[string]FileSummary, len(profiles)),
		GeneratedAt: ts.UTC(),
	}

	for _, p := range profiles {
		covered, total := countStatements(p)
		report.Files[p.FileName] = FileSummary{
			CoveredLines:          covered,
			NumStatements:         total,
			PercentCoveredDisplay: formatPercent(percent(covered, total)),
		}
		report.Totals.CoveredLines += covered
		report.Totals.NumStatements += total
	}

	report.Totals.PercentCovered = percent(report.Totals.CoveredLines, report.Totals.NumStatements)
	report.Totals.PercentCoveredDisplay = formatPercent(report.Totals.PercentCovered)

	return report
}

// Marshal renders the report as indented JSON.
func (r *Report) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal coverage report: %w", err)
	}
	return data, nil
}

// Percent computes the statement-weighted coverage percentage across
// profiles. Returns 0 when no statements are instrumented.
func Percent(profiles []*Profile) float64 {
	var covered, total int
	for _, p := range profiles {
		c, t := countStatements(p)
		covered += c
		total += t
	}
	return percent(covered, total)
}

func countStatements(p *Profile) (covered, total int) {
	for _, b := range p.Blocks {
		total += b.NumStmt
		if b.Count > 0 {
			covered += b.NumStmt
		}
	}
	return covered, total
}

func percent(covered, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(covered) / float64(total) * 100
}

func formatPercent(p float64) string {
	return fmt.Sprintf("%.2f", p)
}
