package glyph

import (
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/rescache/texcache"
	"github.com/gogpu/wgpu/core"
)

// FetchedGlyph is one glyph ready to be drawn this frame: its
// texture-cache location plus the metrics a layout pass needs.
type FetchedGlyph struct {
	Key  GlyphKey
	Dims GlyphDimensions
	Item texcache.CacheItem
}

// Coordinator drives a Rasterizer and a texcache.TextureCache together:
// it deduplicates glyph requests against a GlyphCache, forwards misses
// to the rasterizer, uploads resolved bitmaps into the texture cache,
// and groups cached glyphs into upload/draw batches.
type Coordinator struct {
	mu         sync.Mutex
	rasterizer Rasterizer
	texCache   texcache.TextureCache
	cache      *GlyphCache
	fonts      map[FontInstanceKey]FontInstance
}

// NewCoordinator builds a Coordinator with a default-capacity glyph
// cache (512 entries per shard; see NewGlyphCache).
func NewCoordinator(rasterizer Rasterizer, texCache texcache.TextureCache) *Coordinator {
	return &Coordinator{
		rasterizer: rasterizer,
		texCache:   texCache,
		cache:      NewGlyphCache(0),
		fonts:      make(map[FontInstanceKey]FontInstance),
	}
}

// RequestGlyphs marks every key in keys as needed this frame, forwards
// any not already Cached, Blank or Pending to the rasterizer, and
// returns the keys that are immediately Cached or Blank so the caller
// can fetch them without waiting for a resolve pass.
func (c *Coordinator) RequestGlyphs(inst FontInstance, keys []GlyphKey) (ready []GlyphKey) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.fonts[inst.Key] = inst

	var toRequest []GlyphKey
	for _, k := range keys {
		_, handle, state, ok := c.cache.Lookup(k)
		switch {
		case ok && state == Cached:
			c.texCache.Request(handle)
			ready = append(ready, k)
		case ok && state == Blank:
			ready = append(ready, k)
		case ok && state == Pending:
			// Already in flight; nothing to do.
		default:
			c.cache.MarkPending(k)
			toRequest = append(toRequest, k)
		}
	}

	if len(toRequest) > 0 {
		c.rasterizer.RequestGlyphs(inst, toRequest)
	}
	return ready
}

// ResolveGlyphs drains the rasterizer's completed glyphs, uploading
// non-blank bitmaps into the texture cache and recording blank glyphs
// (zero width/height) so they are never re-requested.
func (c *Coordinator) ResolveGlyphs() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.rasterizer.ResolveGlyphs(func(g RasterizedGlyph) {
		if g.Dims.Width == 0 || g.Dims.Height == 0 {
			c.cache.MarkBlank(g.Key, g.Dims)
			return
		}
		desc := texcache.Descriptor{
			Width:  int(g.Dims.Width),
			Height: int(g.Dims.Height),
			Format: g.Format,
			Shader: texcache.TargetShaderText,
			// [left, -top, scale, 0]: glyph bitmaps are rasterized at
			// their final device size, so scale is always 1.
			UserData: [4]float32{float32(g.Dims.Left), -float32(g.Dims.Top), 1, 0},
		}
		handle := c.texCache.Update(texcache.Handle{}, desc, texcache.FilterLinear, texcache.EvictionAuto, g.Data, nil)
		c.cache.MarkCached(g.Key, g.Dims, handle)
	})
}

// FetchGlyphs resolves keys (previously reported ready by
// RequestGlyphs) into their texture-cache locations, invoking sink once
// per contiguous run of glyphs sharing the same (texture, format) pair
// rather than collecting a global per-texture bucket map first — a
// batch flushes as soon as the next glyph's texture or format differs
// from the batch currently being built, matching how a single draw
// call groups adjacent glyphs instead of the whole request.
func (c *Coordinator) FetchGlyphs(keys []GlyphKey, sink func(texture core.TextureID, format gputypes.TextureFormat, glyphs []FetchedGlyph)) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var batch []FetchedGlyph
	var batchTexture core.TextureID
	var batchFormat gputypes.TextureFormat
	flush := func() {
		if len(batch) > 0 {
			sink(batchTexture, batchFormat, batch)
			batch = nil
		}
	}

	for _, k := range keys {
		dims, handle, state, ok := c.cache.Lookup(k)
		if !ok || state != Cached {
			continue
		}
		item, found := c.texCache.TryGet(handle)
		if !found {
			continue
		}
		if len(batch) > 0 && (item.Texture != batchTexture || item.Format != batchFormat) {
			flush()
		}
		batchTexture = item.Texture
		batchFormat = item.Format
		batch = append(batch, FetchedGlyph{Key: k, Dims: dims, Item: item})
	}
	flush()
}

// HasFont reports whether the rasterizer has a font registered for key.
func (c *Coordinator) HasFont(key FontKey) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rasterizer.HasFont(key)
}

// AddFont registers raw font bytes with the rasterizer.
func (c *Coordinator) AddFont(key FontKey, data []byte, index uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rasterizer.AddFont(key, data, index)
}

// PrepareFont forwards to the rasterizer, letting it warm per-instance
// state before glyphs for inst are requested.
func (c *Coordinator) PrepareFont(inst FontInstance) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fonts[inst.Key] = inst
	c.rasterizer.PrepareFont(inst)
}

// DeleteFont drops the coordinator's record of every instance of key,
// then forwards the delete to the rasterizer. Glyphs already in the
// glyph cache stay there, and their texture-cache handles are not
// evicted; only Reset clears the glyph cache.
func (c *Coordinator) DeleteFont(key FontKey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for instKey, inst := range c.fonts {
		if inst.Font == key {
			delete(c.fonts, instKey)
		}
	}
	c.rasterizer.DeleteFont(key)
}

// GetGlyphDimensions reports the cached dims for a glyph, falling back
// to the rasterizer when the glyph has never been requested.
func (c *Coordinator) GetGlyphDimensions(inst FontInstance, index GlyphIndex, subpixel uint8) (GlyphDimensions, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := GlyphKey{Instance: inst.Key, Index: index, SubpixelBits: subpixel}
	if dims, _, state, ok := c.cache.Lookup(key); ok && (state == Cached || state == Blank) {
		return dims, true
	}
	return c.rasterizer.GetGlyphDimensions(inst, index)
}

// DeleteFontInstance drops the coordinator's record of key, then
// forwards the delete to the rasterizer. Glyphs already cached for key
// stay in the glyph cache, and their texture-cache handles are not
// evicted.
func (c *Coordinator) DeleteFontInstance(key FontInstanceKey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.fonts, key)
	c.rasterizer.DeleteFontInstance(key)
}

// Reset forwards to the rasterizer and drops every cached glyph and
// font-instance mapping.
func (c *Coordinator) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	slogger().Debug("glyph: resetting coordinator", "fonts", len(c.fonts))
	c.rasterizer.Reset()
	c.cache.Clear()
	c.fonts = make(map[FontInstanceKey]FontInstance)
}
