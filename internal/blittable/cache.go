package blittable

import (
	"sync"

	"marshal-planner/internal/analyze"
)

// cacheKey separates the defining view of a type from a consumer view in
// which its private fields are erased.
type cacheKey struct {
	id     analyze.TypeID
	erased bool
}

type cacheEntry struct {
	verdict Verdict
	err     error
}

// Cache memoises verdicts for one resolution pass. Entries are written once;
// a second writer for the same key receives the first value, so readers never
// observe a verdict change.
type Cache struct {
	entries sync.Map // cacheKey -> cacheEntry
}

// NewCache creates an empty verdict cache.
func NewCache() *Cache {
	return &Cache{}
}

func keyOf(t *analyze.TypeInfo) cacheKey {
	return cacheKey{id: t.ID, erased: t.HasErasedFields()}
}

func (c *Cache) load(key cacheKey) (cacheEntry, bool) {
	v, ok := c.entries.Load(key)
	if !ok {
		return cacheEntry{}, false
	}

	return v.(cacheEntry), true
}

// store records an entry unless one exists, and returns the winning entry.
func (c *Cache) store(key cacheKey, e cacheEntry) cacheEntry {
	actual, _ := c.entries.LoadOrStore(key, e)

	return actual.(cacheEntry)
}

// Len returns the number of memoised verdicts.
func (c *Cache) Len() int {
	n := 0

	c.entries.Range(func(_, _ any) bool {
		n++
		return true
	})

	return n
}
