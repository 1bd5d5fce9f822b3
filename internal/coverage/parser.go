package coverage

import (
	"bufio"
	"bytes"
	"fmt"

	"golang.org/x/tools/cover"
)

// Profile represents the coverage profile for a single source file.
type Profile struct {
	FileName string
	Mode     string
	Blocks   []ProfileBlock
}

// ProfileBlock represents a single instrumented block of code.
type ProfileBlock struct {
	StartLine int
	StartCol  int
	EndLine   int
	EndCol    int
	NumStmt   int
	Count     int
}

// ParseProfiles parses a coverage payload in standard Go coverage format.
// A payload that is empty, malformed, or contains no profiles is rejected;
// the combiner treats that as a corrupt artifact.
func ParseProfiles(data []byte) ([]*Profile, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("coverage payload is empty")
	}

	parsed, err := cover.ParseProfilesFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse coverage profiles: %w", err)
	}
	if len(parsed) == 0 {
		return nil, fmt.Errorf("no coverage profiles found in payload")
	}

	result := make([]*Profile, len(parsed))
	for i, p := range parsed {
		profile := &Profile{
			FileName: p.FileName,
			Mode:     p.Mode,
			Blocks:   make([]ProfileBlock, len(p.Blocks)),
		}
		for j, b := range p.Blocks {
			profile.Blocks[j] = ProfileBlock{
				StartLine: b.StartLine,
				StartCol:  b.StartCol,
				EndLine:   b.EndLine,
				EndCol:    b.EndCol,
				NumStmt:   b.NumStmt,
				Count:     b.Count,
			}
		}
		result[i] = profile
	}

	return result, nil
}

// ValidateProfile checks that a profile is well-formed.
func ValidateProfile(p *Profile) error {
	if p == nil {
		return fmt.Errorf("profile is nil")
	}
	if p.FileName == "" {
		return fmt.Errorf("profile has empty filename")
	}
	if p.Mode == "" {
		return fmt.Errorf("profile has empty mode")
	}

	for i, b := range p.Blocks {
		if b.StartLine <= 0 || b.EndLine <= 0 {
			return fmt.Errorf("invalid block %d in %s: non-positive line number", i, p.FileName)
		}
		if b.EndLine < b.StartLine {
			return fmt.Errorf("invalid block %d in %s: end line %d before start line %d", i, p.FileName, b.EndLine, b.StartLine)
		}
		if b.StartLine == b.EndLine && b.EndCol < b.StartCol {
			return fmt.Errorf("invalid block %d in %s: end column %d before start column %d", i, p.FileName, b.EndCol, b.StartCol)
		}
		if b.NumStmt < 0 {
			return fmt.Errorf("invalid block %d in %s: negative statement count", i, p.FileName)
		}
		if b.Count < 0 {
			return fmt.Errorf("invalid block %d in %s: negative execution count", i, p.FileName)
		}
	}

	return nil
}

// SerializeProfiles converts profiles back to standard Go coverage format.
func SerializeProfiles(profiles []*Profile) ([]byte, error) {
	if len(profiles) == 0 {
		return nil, fmt.Errorf("no profiles to serialize")
	}

	var buf bytes.Buffer
	writer := bufio.NewWriter(&buf)

	mode := profiles[0].Mode
	if mode == "" {
		mode = "set"
	}
	fmt.Fprintf(writer, "mode: %s\n", mode)

	for _, p := range profiles {
		for _, b := range p.Blocks {
			fmt.Fprintf(writer, "%s:%d.%d,%d.%d %d %d\n",
				p.FileName,
				b.StartLine, b.StartCol,
				b.EndLine, b.EndCol,
				b.NumStmt, b.Count)
		}
	}

	if err := writer.Flush(); err != nil {
		return nil, fmt.Errorf("failed to flush writer: %w", err)
	}

	return buf.Bytes(), nil
}
