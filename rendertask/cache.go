package rendertask

import (
	"image"
	"sync"

	"github.com/gogpu/rescache/texcache"
)

// CacheKey identifies one memoizable render task chain by the caller's
// own stable identity for what it draws (e.g. a hash of the picture and
// filter chain producing it) plus the size/opacity it was computed for,
// so a differently-sized request for the same logical task never
// aliases a stale entry.
type CacheKey struct {
	Key      uint64
	Size     image.Point
	IsOpaque bool
}

// cacheEntry is one memoized render task's texture-cache-backed target,
// kept across frames until the owning Cache is reset.
type cacheEntry struct {
	handle        texcache.Handle
	lastFrameUsed uint64
}

// Cache memoizes the texture-cache render target a render task chain
// draws into, keyed by CacheKey, so a caller that re-declares the same
// cacheable task frame after frame reuses its target instead of
// re-allocating (and, for a caller that also skips re-running the
// underlying draw work on a hit, re-rendering) it. This is the resource
// cache's analogue of the original's RenderTaskCache; the module
// defining that type's own key/entry shape (render_task_cache.rs) was
// not part of the retrieval pack this module was built from (only
// resource_cache.rs and gpu_types.rs were), so the shape here is
// reconstructed from request_render_task's passthrough signature and
// doc comment rather than copied.
type Cache struct {
	mu      sync.Mutex
	entries map[CacheKey]*cacheEntry
	frame   uint64
}

// NewCache builds an empty render task cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[CacheKey]*cacheEntry)}
}

// BeginFrame stamps the frame id later Lookup/Insert calls record
// entries as used at.
func (c *Cache) BeginFrame(frameStamp uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frame = frameStamp
}

// Lookup reports the target handle memoized under key, if any, and
// marks it used this frame.
func (c *Cache) Lookup(key CacheKey) (texcache.Handle, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return texcache.Handle{}, false
	}
	e.lastFrameUsed = c.frame
	return e.handle, true
}

// Insert records handle as key's memoized target.
func (c *Cache) Insert(key CacheKey, handle texcache.Handle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = &cacheEntry{handle: handle, lastFrameUsed: c.frame}
}

// Reset drops every memoized entry, used when ClearCacheFlags selects
// render targets: the texture-cache handles this cache's entries point
// at no longer exist once the texture cache itself is cleared.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[CacheKey]*cacheEntry)
}
