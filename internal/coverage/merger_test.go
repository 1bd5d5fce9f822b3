package coverage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setBlock(startLine, count int) ProfileBlock {
	return ProfileBlock{
		StartLine: startLine,
		StartCol:  1,
		EndLine:   startLine + 1,
		EndCol:    2,
		NumStmt:   1,
		Count:     count,
	}
}

func TestMergeProfiles_SetMode(t *testing.T) {
	a := &Profile{FileName: "a.go", Mode: "set", Blocks: []ProfileBlock{
		setBlock(1, 1),
		setBlock(5, 0),
	}}
	b := &Profile{FileName: "a.go", Mode: "set", Blocks: []ProfileBlock{
		setBlock(1, 0),
		setBlock(5, 1),
	}}

	merged, err := MergeProfiles([]*Profile{a, b})
	require.NoError(t, err)
	require.Len(t, merged, 1)
	require.Len(t, merged[0].Blocks, 2)

	// Set mode takes the max: a block covered in either invocation is
	// covered in the union.
	assert.Equal(t, 1, merged[0].Blocks[0].Count)
	assert.Equal(t, 1, merged[0].Blocks[1].Count)
}

func TestMergeProfiles_CountMode(t *testing.T) {
	a := &Profile{FileName: "a.go", Mode: "count", Blocks: []ProfileBlock{setBlock(1, 3)}}
	b := &Profile{FileName: "a.go", Mode: "count", Blocks: []ProfileBlock{setBlock(1, 4)}}

	merged, err := MergeProfiles([]*Profile{a, b})
	require.NoError(t, err)
	assert.Equal(t, 7, merged[0].Blocks[0].Count)
}

func TestMergeProfiles_Idempotent(t *testing.T) {
	profiles, err := ParseProfiles([]byte(sampleProfile))
	require.NoError(t, err)

	once, err := MergeProfiles(profiles)
	require.NoError(t, err)

	// Merging a set-mode payload with itself changes nothing: same files,
	// same blocks, same percent.
	twice, err := MergeProfiles(append(once, once...))
	require.NoError(t, err)

	assert.Equal(t, once, twice)
	assert.Equal(t, Percent(once), Percent(twice))
}

func TestMergeProfiles_DisjointFiles(t *testing.T) {
	a := &Profile{FileName: "b.go", Mode: "set", Blocks: []ProfileBlock{setBlock(1, 1)}}
	b := &Profile{FileName: "a.go", Mode: "set", Blocks: []ProfileBlock{setBlock(1, 1)}}

	merged, err := MergeProfiles([]*Profile{a, b})
	require.NoError(t, err)
	require.Len(t, merged, 2)

	// Output is sorted by file name regardless of input order.
	assert.Equal(t, "a.go", merged[0].FileName)
	assert.Equal(t, "b.go", merged[1].FileName)
}

func TestMergeProfiles_BlocksSortedByPosition(t *testing.T) {
	p := &Profile{FileName: "a.go", Mode: "set", Blocks: []ProfileBlock{
		setBlock(10, 1),
		setBlock(2, 1),
	}}

	merged, err := MergeProfiles([]*Profile{p})
	require.NoError(t, err)
	require.Len(t, merged[0].Blocks, 2)
	assert.Equal(t, 2, merged[0].Blocks[0].StartLine)
	assert.Equal(t, 10, merged[0].Blocks[1].StartLine)
}

func TestMergeProfiles_ModeMismatch(t *testing.T) {
	a := &Profile{FileName: "a.go", Mode: "set"}
	b := &Profile{FileName: "a.go", Mode: "count"}

	_, err := MergeProfiles([]*Profile{a, b})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "mode")
}

func TestMergeProfiles_Empty(t *testing.T) {
	_, err := MergeProfiles(nil)
	assert.Error(t, err)
}
