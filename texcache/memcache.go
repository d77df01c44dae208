package texcache

import (
	"container/list"
	"image"
	"log/slog"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/core"
)

// MemCacheConfig tunes MemCache. A zero value is replaced with
// DefaultMemCacheConfig in NewMemCache, mirroring
// gogpu/gg/internal/gpu/memory.go's MemoryManagerConfig.
type MemCacheConfig struct {
	// BudgetBytes is the soft byte budget MemCache tries to stay under
	// by evicting Auto entries, oldest-touched first.
	BudgetBytes int64

	// SharedAtlasSize is the edge length of the single shared atlas
	// texture small entries are shelf-packed into. Entries too large
	// for the atlas get their own dedicated texture slot.
	SharedAtlasSize int
}

// DefaultMemCacheConfig matches the defaults memory.go's MemoryManager
// ships with, scaled down: 64 MiB budget, a 2048x2048 shared atlas.
func DefaultMemCacheConfig() MemCacheConfig {
	return MemCacheConfig{
		BudgetBytes:     64 << 20,
		SharedAtlasSize: 2048,
	}
}

type memEntry struct {
	desc      Descriptor
	filter    Filter
	eviction  Eviction
	texture   core.TextureID
	layer     int
	uv        image.Rectangle
	sizeBytes int64
	needsUpload bool
	requestedAt uint64
	elem      *list.Element // position in lru
	evicted   bool
}

// MemCache is a reference TextureCache backed by process memory rather
// than a real GPU. It shelf-packs small entries into one shared atlas
// slot and tracks every entry's approximate byte size for LRU eviction,
// the same bookkeeping shape as memory.go's MemoryManager, adapted from
// tracking whole textures to tracking texture-cache entries.
type MemCache struct {
	mu sync.Mutex

	cfg MemCacheConfig

	nextID uint64
	nextTex uint64

	entries map[uint64]*memEntry
	lru     *list.List // front = most recently touched

	usedBytes int64

	frame uint64

	pending []PendingUpdate

	atlas *shelfAllocator

	logger *slog.Logger
}

// NewMemCache builds a MemCache. Each zero field of cfg is replaced
// with the matching DefaultMemCacheConfig field.
func NewMemCache(cfg MemCacheConfig) *MemCache {
	if cfg.BudgetBytes == 0 {
		cfg.BudgetBytes = DefaultMemCacheConfig().BudgetBytes
	}
	if cfg.SharedAtlasSize == 0 {
		cfg.SharedAtlasSize = DefaultMemCacheConfig().SharedAtlasSize
	}
	return &MemCache{
		cfg:     cfg,
		entries: make(map[uint64]*memEntry),
		lru:     list.New(),
		atlas:   newShelfAllocator(cfg.SharedAtlasSize, cfg.SharedAtlasSize),
		logger:  slogger(),
	}
}

func (c *MemCache) BeginFrame(frameStamp uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frame = frameStamp
}

func (c *MemCache) EndFrame(frameStamp uint64) []PendingUpdate {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.evictIfOverBudgetLocked()

	out := c.pending
	c.pending = nil
	return out
}

func (c *MemCache) evictIfOverBudgetLocked() {
	for c.usedBytes > c.cfg.BudgetBytes {
		e := c.lru.Back()
		if e == nil {
			return
		}
		id := e.Value.(uint64)
		entry := c.entries[id]
		if entry == nil || entry.eviction == EvictionManual {
			// Manual entries never age out on their own; walk past
			// them looking for an evictable Auto entry.
			evicted := false
			for n := e.Prev(); n != nil; n = n.Prev() {
				nid := n.Value.(uint64)
				ne := c.entries[nid]
				if ne != nil && ne.eviction == EvictionAuto {
					c.evictLocked(nid)
					evicted = true
					break
				}
			}
			if !evicted {
				return
			}
			continue
		}
		c.evictLocked(id)
	}
}

func (c *MemCache) evictLocked(id uint64) {
	entry := c.entries[id]
	if entry == nil || entry.evicted {
		return
	}
	entry.evicted = true
	c.usedBytes -= entry.sizeBytes
	c.lru.Remove(entry.elem)
	delete(c.entries, id)
	c.logger.Debug("texcache: evicted entry", "id", id, "bytes", entry.sizeBytes)
}

func (c *MemCache) Update(handle Handle, desc Descriptor, filter Filter, eviction Eviction, data []byte, dirtyRect *image.Rectangle) Handle {
	c.mu.Lock()
	defer c.mu.Unlock()

	var entry *memEntry
	var id uint64
	if handle.IsValid() {
		if e, ok := c.entries[handle.id]; ok && !e.evicted {
			entry = e
			id = handle.id
		}
	}

	if entry == nil {
		id = c.allocIDLocked()
		tex, layer, uv := c.placeLocked(desc.Width, desc.Height)
		entry = &memEntry{
			desc:     desc,
			filter:   filter,
			eviction: eviction,
			texture:  tex,
			layer:    layer,
			uv:       uv,
		}
		entry.elem = c.lru.PushFront(id)
		c.entries[id] = entry
	} else {
		entry.desc = desc
		entry.filter = filter
		entry.eviction = eviction
		c.lru.MoveToFront(entry.elem)
	}

	newSize := int64(desc.Width) * int64(desc.Height) * int64(bytesPerPixel(desc.Format))
	c.usedBytes += newSize - entry.sizeBytes
	entry.sizeBytes = newSize
	entry.needsUpload = true

	dirty := entry.uv
	if dirtyRect != nil {
		dirty = dirtyRect.Add(entry.uv.Min)
		dirty = dirty.Intersect(entry.uv)
	}

	c.pending = append(c.pending, PendingUpdate{
		Handle:    Handle{id: id, gen: 1},
		Texture:   entry.texture,
		Layer:     entry.layer,
		DstOrigin: dirty.Min,
		DirtyRect: dirty,
		Data:      data,
	})

	return Handle{id: id, gen: 1}
}

func (c *MemCache) allocIDLocked() uint64 {
	c.nextID++
	return c.nextID
}

func (c *MemCache) placeLocked(w, h int) (core.TextureID, int, image.Rectangle) {
	if rect, ok := c.atlas.Allocate(w, h); ok {
		return core.TextureID(1), 0, rect
	}
	c.nextTex++
	return core.TextureID(c.nextTex + 1), 0, image.Rect(0, 0, w, h)
}

func (c *MemCache) Request(handle Handle) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[handle.id]
	if !ok || entry.evicted {
		return false
	}
	c.lru.MoveToFront(entry.elem)
	entry.requestedAt = c.frame
	needsUpload := entry.needsUpload
	entry.needsUpload = false
	return needsUpload
}

func (c *MemCache) TryGet(handle Handle) (CacheItem, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[handle.id]
	if !ok || entry.evicted {
		return CacheItem{}, false
	}
	return CacheItem{
		Texture:  entry.texture,
		Layer:    entry.layer,
		UVRect:   entry.uv,
		Filter:   entry.filter,
		Format:   entry.desc.Format,
		Shader:   entry.desc.Shader,
		UserData: entry.desc.UserData,
	}, true
}

func (c *MemCache) Get(handle Handle) CacheItem {
	item, ok := c.TryGet(handle)
	if !ok {
		panic("texcache: Get on missing handle")
	}
	return item
}

func (c *MemCache) GetCacheLocation(handle Handle) (CacheItem, bool) {
	return c.TryGet(handle)
}

func (c *MemCache) EvictHandle(handle Handle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if entry, ok := c.entries[handle.id]; ok && entry.eviction == EvictionAuto {
		return
	}
	c.evictLocked(handle.id)
}

func (c *MemCache) AllocRenderTarget(width, height int, shader TargetShader) Handle {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.allocIDLocked()
	c.nextTex++
	entry := &memEntry{
		desc:     Descriptor{Width: width, Height: height, Format: gputypes.TextureFormatRGBA8Unorm, Shader: shader},
		filter:   FilterLinear,
		eviction: EvictionManual,
		texture:  core.TextureID(c.nextTex + 1),
		uv:       image.Rect(0, 0, width, height),
	}
	entry.sizeBytes = int64(width) * int64(height) * 4
	c.usedBytes += entry.sizeBytes
	entry.elem = c.lru.PushFront(id)
	c.entries[id] = entry
	return Handle{id: id, gen: 1}
}

func (c *MemCache) FreeRenderTarget(handle Handle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.evictLocked(handle.id)
}

func (c *MemCache) PendingUpdates() []PendingUpdate {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.pending
	c.pending = nil
	return out
}

func (c *MemCache) ClearAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[uint64]*memEntry)
	c.lru = list.New()
	c.usedBytes = 0
	c.atlas = newShelfAllocator(c.cfg.SharedAtlasSize, c.cfg.SharedAtlasSize)
}

func (c *MemCache) RunCompaction() {
	// MemCache never fragments in a way worth defragging; real GPU
	// implementations override this to repack their atlas.
}

// IsAllowedInSharedCache reports whether desc's dimensions fit the
// shared atlas at all; filter is accepted for interface symmetry with
// real backends that also exclude some filters from atlas sharing
// (mixing Nearest and Linear neighbours in one atlas can bleed at tile
// edges), but MemCache's atlas doesn't model that and bases its answer
// on size alone.
func (c *MemCache) IsAllowedInSharedCache(filter Filter, desc Descriptor) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.atlas.Fits(desc.Width, desc.Height)
}

func bytesPerPixel(f gputypes.TextureFormat) int {
	switch f {
	case gputypes.TextureFormatR8Unorm:
		return 1
	case gputypes.TextureFormatRGBA8Unorm, gputypes.TextureFormatBGRA8Unorm:
		return 4
	default:
		return 4
	}
}
