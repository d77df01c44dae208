// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package rescache

import (
	"image"

	"github.com/gogpu/rescache/blob"
	"github.com/gogpu/rescache/glyph"
	"github.com/gogpu/rescache/rendertarget"
	"github.com/gogpu/rescache/rendertask"
	"github.com/gogpu/rescache/texcache"
	"github.com/gogpu/rescache/tiling"
)

// DebugFlags toggles diagnostic behaviour that trades correctness or
// performance for visibility into cache bugs; never enabled by
// default.
type DebugFlags struct {
	// MissingSnapshotPanic makes GetCachedImage panic instead of
	// substituting the fallback image for a SnapshotImageKey that has
	// not been rendered this frame.
	MissingSnapshotPanic bool
}

// Cache is the resource cache: the single-writer owner of every image,
// font, and snapshot template, their cached texture-cache entries, and
// the frame state machine gating when each kind of mutation is legal.
// A Cache is not safe for concurrent use; every method must be called
// from the thread driving its frame state machine.
type Cache struct {
	state FrameState
	frame uint64

	templates    *ImageTemplates
	cachedImages *CachedImageTable
	pending      map[ImageKey]map[CachedImageKey]struct{}

	fonts *fontTemplates

	texCache   texcache.TextureCache
	glyphCoord *glyph.Coordinator
	blobStore  *blob.Store
	blobHandler blob.Handler
	targets    *rendertarget.Pool
	graph      rendertask.GraphBuilder
	taskCache  *rendertask.Cache

	fallbackHandle texcache.Handle

	deletedBlobKeys deletedBlobKeysRing

	namespaces map[Namespace]*namespaceState

	debug DebugFlags
}

// Collaborators bundles the external pieces a Cache is wired against.
// Graph and BlobHandler may be nil, and a nil Targets is replaced with
// a pool built from rendertarget.Config{}; TextureCache and Rasterizer
// are required.
type Collaborators struct {
	TextureCache texcache.TextureCache
	Rasterizer   glyph.Rasterizer
	Targets      *rendertarget.Pool
	Graph        rendertask.GraphBuilder
	BlobHandler  blob.Handler
}

// NewCache builds an idle Cache wired against the given collaborators.
func NewCache(c Collaborators) *Cache {
	if c.Targets == nil {
		c.Targets = rendertarget.NewPool(rendertarget.Config{})
	}
	return &Cache{
		state:        Idle,
		templates:    NewImageTemplates(),
		cachedImages: NewCachedImageTable(),
		pending:      make(map[ImageKey]map[CachedImageKey]struct{}),
		fonts:        newFontTemplates(),
		texCache:     c.TextureCache,
		glyphCoord:   glyph.NewCoordinator(c.Rasterizer, c.TextureCache),
		blobStore:    blob.NewStore(),
		blobHandler:  c.BlobHandler,
		targets:      c.Targets,
		graph:        c.Graph,
		taskCache:    rendertask.NewCache(),
		namespaces:   make(map[Namespace]*namespaceState),
	}
}

// SetDebugFlags replaces the cache's debug flag set.
func (c *Cache) SetDebugFlags(flags DebugFlags) { c.debug = flags }

// BeginFrame starts a new frame: forwards BeginFrame to the texture
// cache, the render-target pool and the render-task cache, rotates the
// deleted-blob-keys ring, and transitions Idle -> AddResources.
func (c *Cache) BeginFrame(frameStamp uint64) {
	c.assertState("BeginFrame", Idle)
	c.frame = frameStamp
	c.texCache.BeginFrame(frameStamp)
	c.targets.BeginFrame(frameStamp)
	c.taskCache.BeginFrame(frameStamp)
	c.deletedBlobKeys.rotate()
	c.texCache.RunCompaction()
	c.state = AddResources
	slogger().Info("rescache: begin frame", "frame", frameStamp)
}

// BlockUntilAllResourcesAdded drains glyph rasterization, ensures the
// 1x1 fallback image exists, uploads every pending image request, and
// transitions AddResources -> QueryResources.
func (c *Cache) BlockUntilAllResourcesAdded() {
	c.assertState("BlockUntilAllResourcesAdded", AddResources)

	c.glyphCoord.ResolveGlyphs()
	c.ensureFallbackHandle()

	for imageKey, keys := range c.pending {
		for cacheKey := range keys {
			c.uploadOne(imageKey, cacheKey)
		}
	}
	c.pending = make(map[ImageKey]map[CachedImageKey]struct{})

	c.state = QueryResources
}

// EndFrame garbage-collects the render-target pool, forwards EndFrame
// to the texture cache, and transitions QueryResources -> Idle.
func (c *Cache) EndFrame() []texcache.PendingUpdate {
	c.assertState("EndFrame", QueryResources)
	c.targets.GC()
	updates := c.texCache.EndFrame(c.frame)
	c.state = Idle
	slogger().Info("rescache: end frame", "frame", c.frame)
	return updates
}

func (c *Cache) ensureFallbackHandle() {
	if c.fallbackHandle.IsValid() {
		return
	}
	data := []byte{0, 0, 0, 0}
	desc := texcache.Descriptor{Width: 1, Height: 1, Format: PixelFormatRGBA8.ToTextureFormat()}
	c.fallbackHandle = c.texCache.Update(texcache.Handle{}, desc, texcache.FilterLinear, texcache.EvictionManual, data, nil)
}

// AddImage registers a new raster (or external-buffer/external-handle)
// image template under key. tileSize is an explicit tile-size override,
// or nil to let the template auto-tile past TilingThreshold.
func (c *Cache) AddImage(key ImageKey, descriptor ImageDescriptor, data ImageData, tileSize *int) error {
	c.assertState("AddImage", AddResources)
	err := c.templates.Add(key, descriptor, data, tileSize)
	c.trackNamespaceKey(key)
	if err != nil {
		c.cachedImages.SetErr(key, err)
	}
	return err
}

// UpdateImage replaces key's descriptor/data, accumulating dirtyRect
// (the whole image, if nil) into the template's pending dirty region.
// The cached-image variants for key are redirtied in lockstep so the
// next request uploads the right sub-rect into the right variant(s).
// A missing key panics (MissingTemplate is fatal on update per 4.8).
// A change of pixel format is logged at debug level; the existing
// cached-image entries are kept as they are, not invalidated.
func (c *Cache) UpdateImage(key ImageKey, descriptor ImageDescriptor, data ImageData, dirtyRect *image.Rectangle) {
	c.assertState("UpdateImage", AddResources)
	c.templates.Update(key, descriptor, data, dirtyRect)
	tmpl, _ := c.templates.Get(key)

	oversize := tmpl.TileSize == nil &&
		(tmpl.Descriptor.Width > HardwareMaxTextureSize || tmpl.Descriptor.Height > HardwareMaxTextureSize)

	result, ok := c.cachedImages.Get(key)
	switch {
	case oversize:
		// A previously fine template grew past the hardware limit (or
		// still is): evict whatever it held and pin Err(OverLimitSize),
		// per the "later updates can overwrite" / "until a successful
		// update replaces it" invariant running in both directions.
		if ok {
			for _, info := range result.AllInfos() {
				if info.ManualEviction && info.Handle.IsValid() {
					c.texCache.EvictHandle(info.Handle)
				}
			}
		}
		c.cachedImages.SetErr(key, ErrOverLimitSize)
		return
	case ok && result.IsErr():
		// The template is representable again; drop the pinned error
		// so the next RequestImage starts a fresh cached-image entry.
		c.cachedImages.Delete(key)
		return
	case !ok:
		return
	}

	dirty := tmpl.DirtyRect
	for cacheKey, info := range multiMap(result) {
		if cacheKey.Tile.HasTile && tmpl.TileSize != nil {
			info.DirtyRect = info.DirtyRect.Union(tiling.ClipDirtyRectToTile(dirty, *tmpl.TileSize, cacheKey.Tile.Offset, tmpl.VisibleRect))
		} else {
			info.DirtyRect = info.DirtyRect.Union(dirty)
		}
	}
}

// multiMap normalizes an ImageResult's entries into a
// CachedImageKey-keyed view regardless of whether it is still
// UntiledAuto or has migrated to Multi, for callers (UpdateImage) that
// need to walk every live variant.
func multiMap(r *ImageResult) map[CachedImageKey]*CachedImageInfo {
	out := make(map[CachedImageKey]*CachedImageInfo)
	switch {
	case r.kind == resultUntiledAuto:
		out[autoKey] = &r.auto
	case r.kind == resultMulti:
		for k, v := range r.multi {
			out[k] = v
		}
	}
	return out
}

// DeleteImage removes key's template and cached-image state, evicting
// every manual-eviction texture-cache handle it held, discarding any
// rasterized blob tiles, and recording the key in the deleted-blob-keys
// ring if it was a blob image.
func (c *Cache) DeleteImage(key ImageKey) {
	c.assertState("DeleteImage", AddResources)
	tmpl, existed := c.templates.Delete(key)
	if result, ok := c.cachedImages.Delete(key); ok {
		for _, info := range result.AllInfos() {
			if info.ManualEviction && info.Handle.IsValid() {
				c.texCache.EvictHandle(info.Handle)
			}
		}
	}
	if existed && tmpl.Data.Kind == tiling.DataBlob {
		c.blobStore.DeleteKey(tmpl.Data.Blob)
		c.deletedBlobKeys.record(tmpl.Data.Blob)
	}
	delete(c.pending, key)
}

func (c *Cache) trackNamespaceKey(key ImageKey) {
	ns := c.namespaceState(key.Namespace)
	ns.images[key] = struct{}{}
}

// RequestImage resolves req against its template, migrating the
// cached-image entry to Multi if necessary, and marks it pending
// upload for this frame's BlockUntilAllResourcesAdded. It runs during
// AddResources, the same phase the scene-traversal layer uses to
// declare request_image/request_glyphs/request_render_task calls
// before BlockUntilAllResourcesAdded drains and uploads the pending
// set and opens QueryResources. Calling it again for the same req
// within one frame is a no-op on the pending set (deduplicated),
// matching the "at most one pending entry" testable property. It
// returns ErrMissingTemplate (degrade, not fatal) if req's key has no
// template, or ErrOverLimitSize if the template is pinned to that
// error.
//
// An image backed by an external texture handle never touches the
// texture cache at all (uses_texture_cache() is false for it in the
// original): this returns immediately with no cached-image entry and
// no pending upload. A blob image's tile must already be rasterized
// via SetBlobTile before it can be requested; requesting one that
// isn't panics, the same invariant the original enforces with
// assert!(!missing) in request_image.
func (c *Cache) RequestImage(req ImageRequest) error {
	c.assertState("RequestImage", AddResources)

	tmpl, ok := c.templates.Get(req.Key)
	if !ok {
		slogger().Warn("rescache: RequestImage: missing template", "key", req.Key)
		return ErrMissingTemplate
	}

	if tmpl.Data.Kind == tiling.DataExternalTextureHandle {
		return nil
	}

	cacheKey := req.CacheKey()

	if tmpl.Data.Kind == tiling.DataBlob {
		offset := blobTileOffsetFor(cacheKey)
		if _, found := c.blobStore.GetTile(tmpl.Data.Blob, offset); !found {
			panic(&BlobTileNotRasterizedError{Key: tmpl.Data.Blob, Offset: offset})
		}
	}

	result := c.cachedImages.EnsureEntry(req.Key, func() *ImageResult {
		return NewUntiledAutoResult(CachedImageInfo{
			DirtyRect:      tmpl.VisibleRect,
			ManualEviction: tmpl.Data.Kind == tiling.DataBlob || tmpl.Data.Kind == tiling.DataSnapshot,
		})
	})
	if result.IsErr() {
		return result.Err()
	}

	info, err := result.EntryFor(cacheKey, func() CachedImageInfo {
		var dirty image.Rectangle
		if tmpl.TileSize != nil && cacheKey.Tile.HasTile {
			dirty = tiling.ComputeTileSize(tmpl.VisibleRect, *tmpl.TileSize, cacheKey.Tile.Offset)
		} else {
			dirty = tmpl.VisibleRect
		}
		return CachedImageInfo{
			DirtyRect:      dirty,
			ManualEviction: tmpl.Data.Kind == tiling.DataBlob || tmpl.Data.Kind == tiling.DataSnapshot,
		}
	})
	if err != nil {
		return err
	}

	// Ask the texture cache whether the handle still needs upload before
	// queuing: a handle that is valid, doesn't need upload, and has no
	// dirty rect is already fully resolved for this frame, and touching
	// Request still refreshes its LRU/"needed this frame" state so
	// EndFrame's eviction pass doesn't reclaim it out from under a
	// caller that requests but never draws it.
	needsUpload := true
	if info.Handle.IsValid() {
		needsUpload = c.texCache.Request(info.Handle)
	}
	if !needsUpload && info.DirtyRect.Empty() {
		return nil
	}

	keys := c.pending[req.Key]
	if keys == nil {
		keys = make(map[CachedImageKey]struct{})
		c.pending[req.Key] = keys
	}
	keys[cacheKey] = struct{}{}
	return nil
}

// GetCachedImage reports the texture-cache item a previously requested
// ImageRequest resolved to. It returns ErrOverLimitSize for a pinned
// template, ErrMissingTemplate for a request never made, and for a
// SnapshotImageKey that was never rendered this frame either the
// fallback image (ok=true) or, with MissingSnapshotPanic set, a panic.
// An external-texture-handle image never has a cached-image entry
// (RequestImage bypasses it); it resolves straight from the template's
// handle instead, with no upload to or Request of the texture cache
// (filter selection may still ask IsAllowedInSharedCache).
func (c *Cache) GetCachedImage(req ImageRequest) (texcache.CacheItem, error) {
	c.assertState("GetCachedImage", QueryResources)

	result, ok := c.cachedImages.Get(req.Key)
	if !ok {
		if tmpl, found := c.templates.Get(req.Key); found && tmpl.Data.Kind == tiling.DataExternalTextureHandle {
			extDesc := texcache.Descriptor{Width: tmpl.Descriptor.Width, Height: tmpl.Descriptor.Height, Format: tmpl.Descriptor.Format.ToTextureFormat()}
			return texcache.CacheItem{
				Texture:  tmpl.Data.ExternalTextureHandle,
				UVRect:   tmpl.VisibleRect,
				Filter:   c.selectFilter(req.Rendering, tmpl.Descriptor, extDesc),
				Format:   tmpl.Descriptor.Format.ToTextureFormat(),
				UserData: tmpl.UserData,
			}, nil
		}
		if c.templates.isSnapshot(req.Key) {
			return c.snapshotFallback(req.Key)
		}
		return texcache.CacheItem{}, ErrMissingTemplate
	}
	if result.IsErr() {
		return texcache.CacheItem{}, result.Err()
	}

	info, err := result.Peek(req.CacheKey())
	if err != nil {
		return texcache.CacheItem{}, err
	}
	if info == nil || !info.Handle.IsValid() {
		if c.templates.isSnapshot(req.Key) {
			return c.snapshotFallback(req.Key)
		}
		return texcache.CacheItem{}, ErrMissingTemplate
	}
	c.texCache.Request(info.Handle)
	item, found := c.texCache.TryGet(info.Handle)
	if !found {
		return texcache.CacheItem{}, ErrMissingTemplate
	}
	// A render-as-image template's embedder-supplied adjustment lives
	// on the template rather than the texture-cache entry, since
	// RenderAsImage allocates the handle directly through
	// AllocRenderTarget rather than through uploadOne/Update.
	if tmpl, found := c.templates.Get(req.Key); found {
		item.UserData = tmpl.UserData
	}
	return item, nil
}

func (c *Cache) snapshotFallback(key ImageKey) (texcache.CacheItem, error) {
	if c.debug.MissingSnapshotPanic {
		panic(&KeyError{Op: "GetCachedImage", Key: key})
	}
	item, _ := c.texCache.TryGet(c.fallbackHandle)
	return item, nil
}

// uploadOne uploads one (imageKey, cacheKey) pending pair into the
// texture cache, selecting the filter and eviction policy the upload
// rules call for and consuming the variant's dirty rect along with the
// template's accumulated one. A snapshot
// issues its update during render-task creation in RenderAsImage, not
// here: if one is ever requested before that runs, this is a no-op,
// matching the original's update_texture_cache leaving updates empty
// for CachedImageData::Snapshot.
func (c *Cache) uploadOne(imageKey ImageKey, cacheKey CachedImageKey) {
	tmpl, ok := c.templates.Get(imageKey)
	if !ok {
		return
	}
	if tmpl.Data.Kind == tiling.DataSnapshot {
		return
	}
	result, ok := c.cachedImages.Get(imageKey)
	if !ok || result.IsErr() {
		return
	}
	info, err := result.EntryFor(cacheKey, func() CachedImageInfo { return CachedImageInfo{} })
	if err != nil || info.DirtyRect.Empty() && info.Handle.IsValid() {
		return
	}

	eviction := texcache.EvictionAuto
	if tmpl.Data.Kind == tiling.DataBlob {
		eviction = texcache.EvictionManual
	}

	var rectW, rectH int
	var data []byte
	var dirty image.Rectangle

	switch {
	case tmpl.Data.Kind == tiling.DataBlob:
		// A blob image uploads one rasterized tile at a time: its own
		// rect becomes the dirty rect, not the nominal tile bounds,
		// since the rasterizer may have only redrawn part of it.
		offset := blobTileOffsetFor(cacheKey)
		tile, found := c.blobStore.GetTile(tmpl.Data.Blob, offset)
		if !found {
			return
		}
		data = tile.Data
		if tmpl.TileSize != nil {
			bounds := tiling.ComputeTileSize(tmpl.VisibleRect, *tmpl.TileSize, offset)
			rectW, rectH = bounds.Dx(), bounds.Dy()
			dirty = tiling.ClipDirtyRectToTile(tile.Rect, *tmpl.TileSize, offset, tmpl.VisibleRect)
		} else {
			rectW, rectH = tmpl.VisibleRect.Dx(), tmpl.VisibleRect.Dy()
			dirty = tile.Rect
		}
	case tmpl.TileSize != nil && cacheKey.Tile.HasTile:
		r := tiling.ComputeTileSize(tmpl.VisibleRect, *tmpl.TileSize, cacheKey.Tile.Offset)
		rectW, rectH = r.Dx(), r.Dy()
		data = extractTileData(tmpl, cacheKey)
		dirty = info.DirtyRect
	default:
		rectW, rectH = tmpl.VisibleRect.Dx(), tmpl.VisibleRect.Dy()
		data = extractTileData(tmpl, cacheKey)
		dirty = info.DirtyRect
	}

	desc := texcache.Descriptor{Width: rectW, Height: rectH, Format: tmpl.Descriptor.Format.ToTextureFormat()}
	desc.Shader = texcache.TargetShaderDefault
	filter := c.selectFilter(cacheKey.Rendering, tmpl.Descriptor, desc)
	info.Handle = c.texCache.Update(info.Handle, desc, filter, eviction, data, &dirty)
	info.DirtyRect = image.Rectangle{}
	c.templates.TakeDirtyRect(imageKey)
	// The upload just handed the texture cache this entry's pixels for
	// the frame being built; requesting it here leaves nothing to
	// report as still needing upload, so a later RequestImage with no
	// new dirty region does not queue the same pixels again.
	c.texCache.Request(info.Handle)
}

// trilinearMinSize is the minimum side length (4.2's "both dimensions
// exceed 512") past which a mipmap-eligible image becomes a candidate
// for the Trilinear upgrade.
const trilinearMinSize = 512

// selectFilter maps an ImageRendering quality hint to the sampling
// filter an upload goes to the texture cache with, per 4.2: Pixelated
// always samples Nearest; Auto and CrispEdges sample Linear, upgraded
// to Trilinear when src allows mipmaps, both of its dimensions exceed
// trilinearMinSize, and the entry being uploaded (desc) won't land in
// the texture cache's shared atlas — an atlas-resident entry samples
// Linear only, since the atlas has no mip chain of its own.
func (c *Cache) selectFilter(r ImageRendering, src ImageDescriptor, desc texcache.Descriptor) texcache.Filter {
	if r == RenderingPixelated {
		return texcache.FilterNearest
	}
	if src.AllowMipmaps && src.Width > trilinearMinSize && src.Height > trilinearMinSize &&
		!c.texCache.IsAllowedInSharedCache(texcache.FilterLinear, desc) {
		return texcache.FilterTrilinear
	}
	return texcache.FilterLinear
}

// extractTileData returns the pixel bytes for one cached-image
// variant's upload: the whole image for an untiled variant, or the
// sub-rect belonging to one tile, computed from the template's
// descriptor stride the same way the original indexes into its shared
// backing buffer rather than copying per tile ahead of time.
func extractTileData(tmpl ImageTemplate, cacheKey CachedImageKey) []byte {
	if tmpl.Data.Kind != tiling.DataRaw {
		return nil
	}
	bpp := tmpl.Descriptor.Format.BytesPerPixel()
	stride := tmpl.Descriptor.EffectiveStride()

	if tmpl.TileSize == nil || !cacheKey.Tile.HasTile {
		return tmpl.Data.Raw
	}

	rect := tiling.ComputeTileSize(tmpl.VisibleRect, *tmpl.TileSize, cacheKey.Tile.Offset)
	rowBytes := rect.Dx() * bpp
	out := make([]byte, 0, rowBytes*rect.Dy())
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		rowStart := y*stride + rect.Min.X*bpp
		rowEnd := rowStart + rowBytes
		if rowEnd > len(tmpl.Data.Raw) {
			break
		}
		out = append(out, tmpl.Data.Raw[rowStart:rowEnd]...)
	}
	return out
}
