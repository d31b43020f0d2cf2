package ledger

import (
	"sync"
	"time"

	"machine-ledger-backend/internal/model"
)

// DefaultRosterTTL is the freshness window of the roster snapshot.
const DefaultRosterTTL = 15 * time.Second

// Cache holds the roster snapshot and its serial index. Each roster reload
// bumps a generation counter; an index derived from an older generation is
// never stored. Invalidate forces the next read to refetch.
//
// The mutex only protects the fields themselves. Two requests may still
// reload the roster concurrently; the last reload wins.
type Cache struct {
	mu  sync.Mutex
	ttl time.Duration
	now func() time.Time

	generation uint64
	rosterAt   time.Time
	roster     []model.MachineRecord
	indexAt    time.Time
	index      map[string]model.MachineRecord
}

// NewCache returns an empty cache. A nil clock uses time.Now.
func NewCache(ttl time.Duration, now func() time.Time) *Cache {
	if ttl <= 0 {
		ttl = DefaultRosterTTL
	}
	if now == nil {
		now = time.Now
	}
	return &Cache{ttl: ttl, now: now}
}

func (c *Cache) fresh(at time.Time) bool {
	return !at.IsZero() && c.now().Sub(at) < c.ttl
}

// Roster returns the cached roster and its generation if it is fresh.
func (c *Cache) Roster() ([]model.MachineRecord, uint64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.fresh(c.rosterAt) {
		return nil, c.generation, false
	}
	return c.roster, c.generation, true
}

// StoreRoster replaces the roster, drops the index and returns the new
// generation.
func (c *Cache) StoreRoster(roster []model.MachineRecord) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.roster = roster
	c.rosterAt = c.now()
	c.index = nil
	c.indexAt = time.Time{}
	return c.generation
}

// Index returns the cached index if it is fresh.
func (c *Cache) Index() (map[string]model.MachineRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.index == nil || !c.fresh(c.indexAt) {
		return nil, false
	}
	return c.index, true
}

// StoreIndex keeps index only if it was built from the current generation.
func (c *Cache) StoreIndex(generation uint64, index map[string]model.MachineRecord) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if generation != c.generation {
		return false
	}
	c.index = index
	c.indexAt = c.now()
	return true
}

// Invalidate zeroes both timestamps so the next read goes to the store.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rosterAt = time.Time{}
	c.indexAt = time.Time{}
}

// Generation returns the current roster generation.
func (c *Cache) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}
