package glyph

import (
	"hash/fnv"
	"sync"
	"sync/atomic"

	"github.com/gogpu/rescache/texcache"
)

const (
	shardCount   = 16
	shardMask    = shardCount - 1
	defaultCap   = 512
)

// State is the lifecycle of one cached glyph.
type State uint8

const (
	// Blank means the glyph rasterizes to nothing (whitespace, a
	// zero-width joiner) and will never be requested again.
	Blank State = iota
	// Pending means a rasterization request is in flight.
	Pending
	// Cached means dims and handle are resolved and usable.
	Cached
)

type cacheEntry struct {
	state  State
	dims   GlyphDimensions
	handle texcache.Handle
	node   *lruNode
}

type shard struct {
	mu      sync.Mutex
	entries map[GlyphKey]*cacheEntry
	lru     *lruList
}

// GlyphCache is a sharded, LRU-bounded cache of rasterized-glyph state
// keyed by GlyphKey, adapted from the shaped-text-run cache's
// sharding/LRU shape to glyph bitmaps instead of shaped runs.
type GlyphCache struct {
	shards   [shardCount]*shard
	capacity int

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

// NewGlyphCache builds a GlyphCache with capacity entries per shard. A
// non-positive capacity is replaced with defaultCap.
func NewGlyphCache(capacity int) *GlyphCache {
	if capacity <= 0 {
		capacity = defaultCap
	}
	c := &GlyphCache{capacity: capacity}
	for i := range c.shards {
		c.shards[i] = &shard{entries: make(map[GlyphKey]*cacheEntry)}
		c.shards[i].lru = newLRUList()
	}
	return c
}

func keyHash(k GlyphKey) uint64 {
	h := fnv.New64a()
	buf := []byte{
		byte(k.Instance), byte(k.Instance >> 8), byte(k.Instance >> 16), byte(k.Instance >> 24),
		byte(k.Instance >> 32), byte(k.Instance >> 40), byte(k.Instance >> 48), byte(k.Instance >> 56),
		byte(k.Index), byte(k.Index >> 8), byte(k.Index >> 16), byte(k.Index >> 24),
		k.SubpixelBits,
	}
	_, _ = h.Write(buf)
	return h.Sum64()
}

func (c *GlyphCache) shardFor(k GlyphKey) *shard {
	return c.shards[keyHash(k)&shardMask]
}

// Lookup reports the current cache state for k: Blank/Pending/Cached
// results along with whatever dims/handle are known so far, or false
// if k has never been seen.
func (c *GlyphCache) Lookup(k GlyphKey) (dims GlyphDimensions, handle texcache.Handle, state State, ok bool) {
	s := c.shardFor(k)
	s.mu.Lock()
	defer s.mu.Unlock()
	e, found := s.entries[k]
	if !found {
		c.misses.Add(1)
		return GlyphDimensions{}, texcache.Handle{}, Blank, false
	}
	s.lru.MoveToFront(e.node)
	c.hits.Add(1)
	return e.dims, e.handle, e.state, true
}

// MarkPending records that k has been requested from the rasterizer
// and is awaiting resolution, inserting a fresh entry if needed.
func (c *GlyphCache) MarkPending(k GlyphKey) {
	s := c.shardFor(k)
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[k]; ok {
		e.state = Pending
		s.lru.MoveToFront(e.node)
		return
	}
	c.evictIfFullLocked(s)
	node := s.lru.PushFront(k)
	s.entries[k] = &cacheEntry{state: Pending, node: node}
}

// MarkBlank records that k rasterizes to nothing (e.g. a space or a
// zero-width joiner), so future lookups don't re-request it.
func (c *GlyphCache) MarkBlank(k GlyphKey, dims GlyphDimensions) {
	s := c.shardFor(k)
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[k]; ok {
		e.state = Blank
		e.dims = dims
		s.lru.MoveToFront(e.node)
		return
	}
	c.evictIfFullLocked(s)
	node := s.lru.PushFront(k)
	s.entries[k] = &cacheEntry{state: Blank, dims: dims, node: node}
}

// MarkCached records the resolved dims and texture-cache handle for k.
func (c *GlyphCache) MarkCached(k GlyphKey, dims GlyphDimensions, handle texcache.Handle) {
	s := c.shardFor(k)
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[k]; ok {
		e.state = Cached
		e.dims = dims
		e.handle = handle
		s.lru.MoveToFront(e.node)
		return
	}
	c.evictIfFullLocked(s)
	node := s.lru.PushFront(k)
	s.entries[k] = &cacheEntry{state: Cached, dims: dims, handle: handle, node: node}
}

// Evict removes k from the cache, reporting the handle it held (the
// zero Handle if k was never Cached) so the caller can release the
// matching texture-cache entry.
func (c *GlyphCache) Evict(k GlyphKey) texcache.Handle {
	s := c.shardFor(k)
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[k]
	if !ok {
		return texcache.Handle{}
	}
	s.lru.Remove(e.node)
	delete(s.entries, k)
	return e.handle
}

func (c *GlyphCache) evictIfFullLocked(s *shard) {
	for s.lru.Len() >= c.capacity {
		oldest, ok := s.lru.RemoveOldest()
		if !ok {
			return
		}
		delete(s.entries, oldest)
		c.evictions.Add(1)
	}
}

// Clear drops every entry across all shards without releasing their
// texture-cache handles; callers that need handles released should
// walk entries via Evict before Clear, or rely on a full
// texcache.ClearAll alongside it.
func (c *GlyphCache) Clear() {
	for _, s := range c.shards {
		s.mu.Lock()
		s.entries = make(map[GlyphKey]*cacheEntry)
		s.lru = newLRUList()
		s.mu.Unlock()
	}
}
