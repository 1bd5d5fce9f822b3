package coverage

import (
	"fmt"
	"sort"
)

// MergeProfiles merges coverage profiles from many invocations into one
// set of per-file profiles, following the gocovmerge algorithm:
//
//  1. Group profiles by source file name.
//  2. Merge identical blocks: max of counts in set mode (covering a line
//     twice is the same as once), sum in count/atomic modes.
//  3. Sort blocks by position and files by name for stable output.
//
// All profiles must use the same mode.
func MergeProfiles(profiles []*Profile) ([]*Profile, error) {
	if len(profiles) == 0 {
		return nil, fmt.Errorf("no profiles to merge")
	}

	mode := profiles[0].Mode
	for i, p := range profiles {
		if p.Mode != mode {
			return nil, fmt.Errorf("profile %d has mode %q, expected %q", i, p.Mode, mode)
		}
	}

	byFile := make(map[string][]*Profile)
	for _, p := range profiles {
		byFile[p.FileName] = append(byFile[p.FileName], p)
	}

	result := make([]*Profile, 0, len(byFile))
	for fileName, fileProfiles := range byFile {
		result = append(result, mergeFileProfiles(fileName, mode, fileProfiles))
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].FileName < result[j].FileName
	})

	return result, nil
}

// blockKey identifies a coverage block by its source position.
type blockKey struct {
	startLine int
	startCol  int
	endLine   int
	endCol    int
	numStmt   int
}

// mergeFileProfiles merges all profiles collected for a single file.
func mergeFileProfiles(fileName, mode string, profiles []*Profile) *Profile {
	merged := make(map[blockKey]ProfileBlock)
	for _, p := range profiles {
		for _, b := range p.Blocks {
			key := blockKey{b.StartLine, b.StartCol, b.EndLine, b.EndCol, b.NumStmt}
			if existing, ok := merged[key]; ok {
				existing.Count = mergeCount(mode, existing.Count, b.Count)
				merged[key] = existing
			} else {
				merged[key] = b
			}
		}
	}

	blocks := make([]ProfileBlock, 0, len(merged))
	for _, b := range merged {
		blocks = append(blocks, b)
	}

	sort.Slice(blocks, func(i, j int) bool {
		if blocks[i].StartLine != blocks[j].StartLine {
			return blocks[i].StartLine < blocks[j].StartLine
		}
		return blocks[i].StartCol < blocks[j].StartCol
	})

	return &Profile{
		FileName: fileName,
		Mode:     mode,
		Blocks:   blocks,
	}
}

// mergeCount combines two execution counts for the same block.
// Set mode records only covered/uncovered, so max is the union; count and
// atomic modes accumulate executions, so counts add.
func mergeCount(mode string, a, b int) int {
	if mode == "set" {
		if a > b {
			return a
		}
		return b
	}
	return a + b
}
