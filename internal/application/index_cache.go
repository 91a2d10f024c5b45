package application

import (
	"encoding/binary"
	"hash/fnv"
	"strconv"
	"sync"
	"time"

	"github.com/example/reservation-availability/internal/dayindex"
)

// indexCache keeps recently built day indexes so repeated checks against the
// same opening hours within the same minute reuse one build. Indexes are
// immutable once built.
type indexCache struct {
	mu         sync.RWMutex
	now        func() time.Time
	ttl        time.Duration
	maxEntries int
	entries    map[string]indexCacheEntry
}

type indexCacheEntry struct {
	index     *dayindex.Index
	expiresAt time.Time
}

func newIndexCache(ttl time.Duration, maxEntries int, now func() time.Time) *indexCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if maxEntries <= 0 {
		maxEntries = 128
	}
	if now == nil {
		now = time.Now
	}
	return &indexCache{
		now:        now,
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    make(map[string]indexCacheEntry),
	}
}

func (c *indexCache) Get(key string) (*dayindex.Index, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, false
	}
	return entry.index, true
}

func (c *indexCache) Store(key string, index *dayindex.Index) {
	if c == nil || index == nil {
		return
	}
	expiry := c.now().Add(c.ttl)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.cleanupLocked()
	if len(c.entries) >= c.maxEntries {
		c.evictOneLocked()
	}
	c.entries[key] = indexCacheEntry{index: index, expiresAt: expiry}
}

func (c *indexCache) Invalidate() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.entries = make(map[string]indexCacheEntry)
	c.mu.Unlock()
}

func (c *indexCache) cleanupLocked() {
	now := c.now()
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
		}
	}
}

func (c *indexCache) evictOneLocked() {
	for key := range c.entries {
		delete(c.entries, key)
		return
	}
}

// buildIndexCacheKey identifies an index by unit, timezone, the minute of now
// and the opening hours it was built from.
func buildIndexCacheKey(unitID string, loc *time.Location, now time.Time, spans []dayindex.OpenSpan) string {
	h := fnv.New64a()
	var buf [16]byte
	for _, span := range spans {
		binary.LittleEndian.PutUint64(buf[:8], uint64(span.Start.UnixMilli()))
		binary.LittleEndian.PutUint64(buf[8:], uint64(span.End.UnixMilli()))
		_, _ = h.Write(buf[:])
	}
	return unitID + "|" + loc.String() + "|" +
		strconv.FormatInt(now.Truncate(time.Minute).Unix(), 10) + "|" +
		strconv.FormatUint(h.Sum64(), 16)
}
