package config

import "sync"

// The resolved configuration is cached for the lifetime of the process.
// Lambda reuses the process across warm invocations, so the environment
// cannot change under us; the cache is populated lazily on first use and
// never invalidated. Both the value and the resolution error are cached:
// a broken environment stays broken for the life of the execution slot.
var (
	cacheMu   sync.Mutex
	cached    *CoverageConfig
	cachedErr error
	loaded    bool
)

// Cached returns the process-wide configuration, resolving it from the
// environment on first call. The returned config is read-only after
// construction; callers must not mutate it.
func Cached() (*CoverageConfig, error) {
	cacheMu.Lock()
	defer cacheMu.Unlock()

	if !loaded {
		cached, cachedErr = FromEnvironment()
		loaded = true
	}
	return cached, cachedErr
}

// ResetCache clears the cached configuration. Test use only.
func ResetCache() {
	cacheMu.Lock()
	defer cacheMu.Unlock()
	cached, cachedErr, loaded = nil, nil, false
}
