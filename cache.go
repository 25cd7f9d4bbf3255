package xsd

import (
	"path/filepath"
	"sync"
)

// SchemaCache memoizes fully-resolved SchemaRepository instances by entry
// file path, so that repeated FromFile calls against the same XSD (a common
// pattern for a long-lived validation server or batch CLI validating many
// instance documents against a handful of schemas) parse and resolve it
// only once. Each distinct path is loaded at most once, via sync.Once,
// regardless of how many goroutines request it concurrently.
type SchemaCache struct {
	mu       sync.RWMutex
	entries  map[string]*repositoryEntry
	BasePath string // base directory relative paths are resolved against
}

// repositoryEntry holds a memoized repository load, guarded by once so
// concurrent callers for the same path share a single Parse/Resolve.
type repositoryEntry struct {
	once sync.Once
	repo *SchemaRepository
	err  error
}

// GlobalCache is the package-level singleton used by FromFile's single-XSD
// path. Tests that need isolation should construct their own SchemaCache
// with NewSchemaCache instead of relying on the shared instance.
var GlobalCache = NewSchemaCache("")

// NewSchemaCache creates an empty cache rooted at basePath.
func NewSchemaCache(basePath string) *SchemaCache {
	return &SchemaCache{
		entries:  make(map[string]*repositoryEntry),
		BasePath: basePath,
	}
}

// SetBasePath sets the base directory relative schema locations are
// resolved against.
func (sc *SchemaCache) SetBasePath(path string) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.BasePath = path
}

// GetRepository returns a resolved SchemaRepository for path, built once and
// reused on every later call with the same resolved path. opts are applied
// only on the first load that populates the cache entry; a path already
// cached under different options still returns the originally built
// repository.
func (sc *SchemaCache) GetRepository(path string, opts ...RepositoryOption) (*SchemaRepository, error) {
	resolvedPath := sc.resolvePath(path)

	sc.mu.RLock()
	entry, exists := sc.entries[resolvedPath]
	sc.mu.RUnlock()

	if !exists {
		sc.mu.Lock()
		entry, exists = sc.entries[resolvedPath]
		if !exists {
			entry = &repositoryEntry{}
			sc.entries[resolvedPath] = entry
		}
		sc.mu.Unlock()
	}

	entry.once.Do(func() {
		r := NewSchemaRepository(opts...)
		if err := r.Parse(ParseOptions{Files: []string{resolvedPath}}); err != nil {
			entry.err = err
			return
		}
		if err := r.Resolve(); err != nil {
			entry.err = err
			return
		}
		entry.repo = r
	})
	return entry.repo, entry.err
}

// Clear evicts every cached repository.
func (sc *SchemaCache) Clear() {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.entries = make(map[string]*repositoryEntry)
}

// Remove evicts the cached repository for a single path, if present.
func (sc *SchemaCache) Remove(location string) {
	resolvedPath := sc.resolvePath(location)
	sc.mu.Lock()
	defer sc.mu.Unlock()
	delete(sc.entries, resolvedPath)
}

// resolvePath joins a relative schema location onto BasePath, or makes it
// absolute when BasePath is empty, so that "a.xsd" and "./a.xsd" from the
// same base share a cache entry.
func (sc *SchemaCache) resolvePath(location string) string {
	if filepath.IsAbs(location) {
		return location
	}
	sc.mu.RLock()
	base := sc.BasePath
	sc.mu.RUnlock()
	if base != "" {
		return filepath.Join(base, location)
	}
	abs, err := filepath.Abs(location)
	if err != nil {
		return location
	}
	return abs
}
