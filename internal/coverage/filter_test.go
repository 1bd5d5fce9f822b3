package coverage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func namedProfile(name string) *Profile {
	return &Profile{FileName: name, Mode: "set", Blocks: []ProfileBlock{setBlock(1, 1)}}
}

func fileNames(profiles []*Profile) []string {
	var names []string
	for _, p := range profiles {
		names = append(names, p.FileName)
	}
	return names
}

func TestFilterProfiles(t *testing.T) {
	profiles := []*Profile{
		namedProfile("example.com/app/handler.go"),
		namedProfile("example.com/app/handler_test.go"),
		namedProfile("example.com/app/internal/db/store.go"),
		namedProfile("example.com/app/vendor/dep/dep.go"),
	}

	tests := []struct {
		name    string
		include []string
		exclude []string
		want    []string
	}{
		{
			name: "no patterns keeps everything",
			want: []string{
				"example.com/app/handler.go",
				"example.com/app/handler_test.go",
				"example.com/app/internal/db/store.go",
				"example.com/app/vendor/dep/dep.go",
			},
		},
		{
			name:    "exclude tests by base name",
			exclude: []string{"*_test.go"},
			want: []string{
				"example.com/app/handler.go",
				"example.com/app/internal/db/store.go",
				"example.com/app/vendor/dep/dep.go",
			},
		},
		{
			name:    "include by path suffix",
			include: []string{"internal/db/*.go"},
			want:    []string{"example.com/app/internal/db/store.go"},
		},
		{
			name:    "include then exclude",
			include: []string{"*.go"},
			exclude: []string{"*_test.go", "dep.go"},
			want: []string{
				"example.com/app/handler.go",
				"example.com/app/internal/db/store.go",
			},
		},
		{
			name:    "include matching nothing drops everything",
			include: []string{"nonexistent/*.go"},
			want:    nil,
		},
		{
			name:    "malformed pattern matches nothing",
			include: []string{"[unclosed"},
			want:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterProfiles(profiles, tt.include, tt.exclude)
			assert.Equal(t, tt.want, fileNames(got))
		})
	}
}

func TestValidatePatterns(t *testing.T) {
	assert.NoError(t, ValidatePatterns(nil))
	assert.NoError(t, ValidatePatterns([]string{"*.go", "internal/*"}))

	err := ValidatePatterns([]string{"*.go", "[unclosed"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "[unclosed")
}
