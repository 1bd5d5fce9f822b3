package coverage

import (
	"fmt"
	"path"
	"strings"
)

// FilterProfiles applies include/exclude glob patterns to profiles by
// source file path. When include is non-empty, only matching files are
// kept; exclude then removes matches from what remains. Patterns use
// path.Match syntax and are tried against the full path, its base name,
// and every path suffix, since profiles carry full module paths while
// patterns are usually written relative to the repository root.
func FilterProfiles(profiles []*Profile, include, exclude []string) []*Profile {
	if len(include) == 0 && len(exclude) == 0 {
		return profiles
	}

	var kept []*Profile
	for _, p := range profiles {
		if len(include) > 0 && !matchAny(include, p.FileName) {
			continue
		}
		if matchAny(exclude, p.FileName) {
			continue
		}
		kept = append(kept, p)
	}
	return kept
}

// matchAny reports whether name matches any of the patterns. A pattern
// that fails to compile matches nothing.
func matchAny(patterns []string, name string) bool {
	for _, pattern := range patterns {
		if ok, err := path.Match(pattern, name); err == nil && ok {
			return true
		}
		if ok, err := path.Match(pattern, path.Base(name)); err == nil && ok {
			return true
		}
		// Try each path suffix: "internal/foo/*.go" should match
		// "github.com/org/repo/internal/foo/bar.go".
		rest := name
		for {
			i := strings.Index(rest, "/")
			if i < 0 {
				break
			}
			rest = rest[i+1:]
			if ok, err := path.Match(pattern, rest); err == nil && ok {
				return true
			}
		}
	}
	return false
}

// ValidatePatterns reports the first malformed glob in patterns, if any.
// Used by the health reporter to flag configuration mistakes without
// failing collection.
func ValidatePatterns(patterns []string) error {
	for _, pattern := range patterns {
		if _, err := path.Match(pattern, "probe"); err != nil {
			return fmt.Errorf("invalid pattern %q: %w", pattern, err)
		}
	}
	return nil
}
