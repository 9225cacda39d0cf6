package directory

import (
	"sync"
	"time"
)

// Cache holds at most one directory snapshot for the lifetime of the process.
// The whole snapshot turns stale atomically once its age reaches the TTL;
// there is no per-record expiry and no eviction beyond overwrite.
type Cache struct {
	mu   sync.RWMutex
	ttl  time.Duration
	snap *Snapshot
}

func NewCache(ttl time.Duration) *Cache {
	return &Cache{ttl: ttl}
}

// Get returns the held snapshot, if any. It never performs I/O; freshness is
// the caller's concern (see Fresh).
func (c *Cache) Get() (Snapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.snap == nil {
		return Snapshot{}, false
	}
	return *c.snap, true
}

// Put overwrites the held snapshot.
func (c *Cache) Put(snap Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snap = &snap
}

// Invalidate drops the held snapshot unconditionally.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snap = nil
}

// Fresh reports whether a snapshot is held and is younger than the TTL at
// instant now.
func (c *Cache) Fresh(now time.Time) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap != nil && now.Sub(c.snap.FetchedAt) < c.ttl
}

// Age returns how long ago the held snapshot was obtained.
func (c *Cache) Age(now time.Time) (time.Duration, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.snap == nil {
		return 0, false
	}
	return now.Sub(c.snap.FetchedAt), true
}
