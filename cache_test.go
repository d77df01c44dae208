package rescache

import (
	"image"
	"testing"

	"github.com/gogpu/rescache/blob"
	"github.com/gogpu/rescache/glyph"
	"github.com/gogpu/rescache/rendertarget"
	"github.com/gogpu/rescache/rendertask"
	"github.com/gogpu/rescache/texcache"
	"github.com/gogpu/rescache/tiling"
	"github.com/gogpu/wgpu/core"
)

// fakeRasterizer is a no-op glyph.Rasterizer good enough to drive
// Coordinator through its call surface without ever producing glyphs,
// for tests that exercise the image/font lifecycle rather than glyph
// rasterization itself.
type fakeRasterizer struct {
	fonts map[glyph.FontKey]bool
}

func newFakeRasterizer() *fakeRasterizer {
	return &fakeRasterizer{fonts: make(map[glyph.FontKey]bool)}
}

func (f *fakeRasterizer) PrepareFont(inst glyph.FontInstance) {}

func (f *fakeRasterizer) AddFont(key glyph.FontKey, data []byte, index uint32) {
	f.fonts[key] = true
}

func (f *fakeRasterizer) DeleteFont(key glyph.FontKey) { delete(f.fonts, key) }

func (f *fakeRasterizer) DeleteFontInstance(key glyph.FontInstanceKey) {}

func (f *fakeRasterizer) RequestGlyphs(inst glyph.FontInstance, keys []glyph.GlyphKey) {}

func (f *fakeRasterizer) ResolveGlyphs(sink func(glyph.RasterizedGlyph)) {}

func (f *fakeRasterizer) HasFont(key glyph.FontKey) bool { return f.fonts[key] }

func (f *fakeRasterizer) GetGlyphDimensions(inst glyph.FontInstance, index glyph.GlyphIndex) (glyph.GlyphDimensions, bool) {
	return glyph.GlyphDimensions{}, false
}

func (f *fakeRasterizer) GetGlyphIndex(key glyph.FontKey, r rune) (glyph.GlyphIndex, bool) {
	return 0, false
}

func (f *fakeRasterizer) Reset() {}

func (f *fakeRasterizer) EnableMultithreading(enable bool) {}

func newTestCache() *Cache {
	return NewCache(Collaborators{
		TextureCache: texcache.NewMemCache(texcache.MemCacheConfig{}),
		Rasterizer:   newFakeRasterizer(),
		Targets:      rendertarget.NewPool(rendertarget.Config{}),
		Graph:        rendertask.NewSimpleGraph(),
	})
}

func TestFrameStateMachineHappyPath(t *testing.T) {
	c := newTestCache()
	c.BeginFrame(1)
	c.BlockUntilAllResourcesAdded()
	c.EndFrame()
	c.BeginFrame(2)
	c.BlockUntilAllResourcesAdded()
	c.EndFrame()
}

func TestFrameStateMachineRejectsWrongPhase(t *testing.T) {
	c := newTestCache()
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic calling RequestImage outside AddResources")
		}
	}()
	c.RequestImage(ImageRequest{Key: ImageKey{Namespace: 1, ID: 1}})
}

func TestFrameStateMachineDoubleBeginFramePanics(t *testing.T) {
	c := newTestCache()
	c.BeginFrame(1)
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic calling BeginFrame twice without EndFrame")
		}
	}()
	c.BeginFrame(2)
}

func TestEndFrameLeavesIdleAndPendingEmpty(t *testing.T) {
	c := newTestCache()
	key := ImageKey{Namespace: 1, ID: 1}

	c.BeginFrame(1)
	_ = c.AddImage(key, ImageDescriptor{Width: 4, Height: 4, Format: PixelFormatRGBA8}, NewRawImageData(make([]byte, 4*4*4)), nil)
	if err := c.RequestImage(ImageRequest{Key: key}); err != nil {
		t.Fatalf("RequestImage: %v", err)
	}
	c.BlockUntilAllResourcesAdded()
	c.EndFrame()

	if c.state != Idle {
		t.Errorf("state = %v, want Idle", c.state)
	}
	if len(c.pending) != 0 {
		t.Errorf("expected empty pending set, got %d entries", len(c.pending))
	}
}

func TestRequestImageDeduplicatesWithinOneFrame(t *testing.T) {
	c := newTestCache()
	key := ImageKey{Namespace: 1, ID: 1}

	c.BeginFrame(1)
	_ = c.AddImage(key, ImageDescriptor{Width: 4, Height: 4, Format: PixelFormatRGBA8}, NewRawImageData(make([]byte, 4*4*4)), nil)

	if err := c.RequestImage(ImageRequest{Key: key}); err != nil {
		t.Fatalf("RequestImage: %v", err)
	}
	if err := c.RequestImage(ImageRequest{Key: key}); err != nil {
		t.Fatalf("RequestImage (dup): %v", err)
	}
	if len(c.pending[key]) != 1 {
		t.Errorf("expected at most one pending entry, got %d", len(c.pending[key]))
	}
}

// Scenario: a large raw image auto-tiles, and requesting one tile
// uploads exactly that tile's sub-rect rather than the whole image.
func TestTiledImageUploadsPerTileOffset(t *testing.T) {
	c := newTestCache()
	key := ImageKey{Namespace: 1, ID: 1}
	w, h := 2100, 600
	raw := make([]byte, w*h*4)
	for i := range raw {
		raw[i] = byte(i)
	}

	c.BeginFrame(1)
	if err := c.AddImage(key, ImageDescriptor{Width: w, Height: h, Format: PixelFormatRGBA8}, NewRawImageData(raw), nil); err != nil {
		t.Fatalf("AddImage: %v", err)
	}

	tile := tiling.Offset{X: 1, Y: 0}
	if err := c.RequestImage(ImageRequest{Key: key, Tile: &tile}); err != nil {
		t.Fatalf("RequestImage: %v", err)
	}
	c.BlockUntilAllResourcesAdded()

	item, err := c.GetCachedImage(ImageRequest{Key: key, Tile: &tile})
	if err != nil {
		t.Fatalf("GetCachedImage: %v", err)
	}
	if item.UVRect.Dx() != 512 || item.UVRect.Dy() != 512 {
		t.Errorf("tile rect = %v, want 512x512", item.UVRect)
	}
	c.EndFrame()
}

// Scenario: two explicit update dirty rects accumulate to (0,0,60,60),
// not the initial full-image bounds, and the rect is empty again once
// uploaded.
func TestDirtyRectAccumulatesThenClearsOnUpload(t *testing.T) {
	c := newTestCache()
	key := ImageKey{Namespace: 1, ID: 1}
	desc := ImageDescriptor{Width: 100, Height: 100, Format: PixelFormatRGBA8}
	raw := make([]byte, 100*100*4)

	c.BeginFrame(1)
	if err := c.AddImage(key, desc, NewRawImageData(raw), nil); err != nil {
		t.Fatalf("AddImage: %v", err)
	}
	d1 := image.Rect(0, 0, 10, 10)
	c.UpdateImage(key, desc, NewRawImageData(raw), &d1)
	d2 := image.Rect(50, 50, 60, 60)
	c.UpdateImage(key, desc, NewRawImageData(raw), &d2)

	tmpl, _ := c.templates.Get(key)
	want := image.Rect(0, 0, 60, 60)
	if tmpl.DirtyRect != want {
		t.Fatalf("accumulated dirty rect = %v, want %v", tmpl.DirtyRect, want)
	}

	if err := c.RequestImage(ImageRequest{Key: key}); err != nil {
		t.Fatalf("RequestImage: %v", err)
	}
	c.BlockUntilAllResourcesAdded()

	result, _ := c.cachedImages.Get(key)
	info, _ := result.Peek(autoKey)
	if !info.DirtyRect.Empty() {
		t.Errorf("expected dirty rect cleared after upload, got %v", info.DirtyRect)
	}
	c.EndFrame()
}

// Scenario: a second, differently-rendered request migrates the cached
// entry from UntiledAuto to Multi, preserving the original handle under
// the {Auto, no tile} key.
func TestAutoToMultiMigrationPreservesOriginalHandle(t *testing.T) {
	c := newTestCache()
	key := ImageKey{Namespace: 1, ID: 1}
	desc := ImageDescriptor{Width: 16, Height: 16, Format: PixelFormatRGBA8}
	raw := make([]byte, 16*16*4)

	c.BeginFrame(1)
	if err := c.AddImage(key, desc, NewRawImageData(raw), nil); err != nil {
		t.Fatalf("AddImage: %v", err)
	}

	if err := c.RequestImage(ImageRequest{Key: key}); err != nil {
		t.Fatalf("RequestImage: %v", err)
	}
	c.BlockUntilAllResourcesAdded()

	original, err := c.GetCachedImage(ImageRequest{Key: key})
	if err != nil {
		t.Fatalf("GetCachedImage: %v", err)
	}

	c.EndFrame()
	c.BeginFrame(2)

	if err := c.RequestImage(ImageRequest{Key: key, Rendering: RenderingPixelated}); err != nil {
		t.Fatalf("RequestImage (pixelated): %v", err)
	}
	c.BlockUntilAllResourcesAdded()

	result, ok := c.cachedImages.Get(key)
	if !ok {
		t.Fatal("expected cached entry")
	}
	autoInfo, _ := result.Peek(autoKey)
	if autoInfo == nil || !autoInfo.Handle.IsValid() {
		t.Fatal("expected migrated entry to preserve the original handle under autoKey")
	}

	preserved, err := c.GetCachedImage(ImageRequest{Key: key})
	if err != nil {
		t.Fatalf("GetCachedImage after migration: %v", err)
	}
	if preserved.Texture != original.Texture || preserved.UVRect != original.UVRect {
		t.Errorf("migration changed the original variant's cache item: got %+v, want %+v", preserved, original)
	}
	c.EndFrame()
}

// Scenario: an 8000x8000 raw image auto-tiles fine, but an explicit
// 8192 tile size is rejected outright.
func TestOversizeImageRejectionAndRecovery(t *testing.T) {
	c := newTestCache()
	autoTiled := ImageKey{Namespace: 1, ID: 1}
	explicitHuge := ImageKey{Namespace: 1, ID: 2}

	c.BeginFrame(1)
	if err := c.AddImage(autoTiled, ImageDescriptor{Width: 8000, Height: 8000, Format: PixelFormatRGBA8}, NewRawImageData(nil), nil); err != nil {
		t.Errorf("auto-tiled 8000x8000 image should not error, got %v", err)
	}

	huge := 8192
	err := c.AddImage(explicitHuge, ImageDescriptor{Width: 8192, Height: 8192, Format: PixelFormatRGBA8}, NewRawImageData(nil), &huge)
	if err != ErrOverLimitSize {
		t.Fatalf("err = %v, want ErrOverLimitSize", err)
	}
	c.BlockUntilAllResourcesAdded()

	if _, err := c.GetCachedImage(ImageRequest{Key: explicitHuge}); err != ErrOverLimitSize {
		t.Errorf("GetCachedImage err = %v, want ErrOverLimitSize", err)
	}
	c.EndFrame()

	// A successful update shrinking the template back into range clears
	// the pinned error.
	c.BeginFrame(2)
	small := ImageDescriptor{Width: 100, Height: 100, Format: PixelFormatRGBA8}
	c.UpdateImage(explicitHuge, small, NewRawImageData(nil), nil)
	if result, ok := c.cachedImages.Get(explicitHuge); ok && result.IsErr() {
		t.Error("expected pinned error cleared after a successful shrinking update")
	}
	c.BlockUntilAllResourcesAdded()
	c.EndFrame()
}

// Scenario: GetCachedImage for a snapshot that has not been rendered
// this frame falls back to the 1x1 fallback image, unless
// MissingSnapshotPanic is set, in which case it panics.
func TestSnapshotFallback(t *testing.T) {
	c := newTestCache()
	key := SnapshotImageKey{ImageKey: ImageKey{Namespace: 1, ID: 1}}

	c.BeginFrame(1)
	if err := c.AddSnapshotImage(key.AsImage()); err != nil {
		t.Fatalf("AddSnapshotImage: %v", err)
	}
	c.BlockUntilAllResourcesAdded()

	item, err := c.GetCachedImage(ImageRequest{Key: key.AsImage()})
	if err != nil {
		t.Fatalf("GetCachedImage: %v", err)
	}
	if item.UVRect.Dx() != 1 || item.UVRect.Dy() != 1 {
		t.Errorf("fallback item rect = %v, want 1x1", item.UVRect)
	}
	c.EndFrame()
}

func TestSnapshotFallbackPanicsWhenDebugFlagSet(t *testing.T) {
	c := newTestCache()
	c.SetDebugFlags(DebugFlags{MissingSnapshotPanic: true})
	key := SnapshotImageKey{ImageKey: ImageKey{Namespace: 1, ID: 1}}

	c.BeginFrame(1)
	_ = c.AddSnapshotImage(key.AsImage())
	c.BlockUntilAllResourcesAdded()

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for unrendered snapshot with MissingSnapshotPanic set")
		}
	}()
	_, _ = c.GetCachedImage(ImageRequest{Key: key.AsImage()})
}

func TestRenderAsImageBindsTaskLocation(t *testing.T) {
	c := newTestCache()
	key := SnapshotImageKey{ImageKey: ImageKey{Namespace: 1, ID: 1}}
	graph := c.graph.(*rendertask.SimpleGraph)
	graph.AddTask(rendertask.TaskID(1))

	c.BeginFrame(1)
	_ = c.AddSnapshotImage(key.AsImage())

	err := c.RenderAsImage(key, image.Pt(64, 64), true, [4]float32{}, func() rendertask.TaskID { return rendertask.TaskID(1) })
	if err != nil {
		t.Fatalf("RenderAsImage: %v", err)
	}
	c.BlockUntilAllResourcesAdded()

	task, ok := graph.GetTaskMut(rendertask.TaskID(1))
	if !ok {
		t.Fatal("expected task to still exist")
	}
	if !task.Location.Target.IsValid() {
		t.Error("expected RenderAsImage to bind a valid render target handle")
	}

	item, err := c.GetCachedImage(ImageRequest{Key: key.AsImage()})
	if err != nil {
		t.Fatalf("GetCachedImage: %v", err)
	}
	if item.UVRect.Dx() != 64 || item.UVRect.Dy() != 64 {
		t.Errorf("render target rect = %v, want 64x64", item.UVRect)
	}
	c.EndFrame()
}

func TestDeleteImageEvictsManualHandle(t *testing.T) {
	c := newTestCache()
	key := ImageKey{Namespace: 1, ID: 1}
	blobKey := blob.Key(7)

	c.BeginFrame(1)
	if err := c.AddBlobImage(key, ImageDescriptor{Width: 32, Height: 32, Format: PixelFormatRGBA8}, blobKey, nil); err != nil {
		t.Fatalf("AddBlobImage: %v", err)
	}
	c.SetBlobTile(blobKey, tiling.Offset{}, blob.RasterizedTile{
		Rect: image.Rect(0, 0, 32, 32),
		Data: make([]byte, 32*32*4),
	})
	if err := c.RequestImage(ImageRequest{Key: key}); err != nil {
		t.Fatalf("RequestImage: %v", err)
	}
	c.BlockUntilAllResourcesAdded()

	item, err := c.GetCachedImage(ImageRequest{Key: key})
	if err != nil {
		t.Fatalf("GetCachedImage: %v", err)
	}
	if item.UVRect.Empty() {
		t.Fatal("expected a non-empty cached entry before delete")
	}
	c.EndFrame()

	c.BeginFrame(2)
	c.DeleteImage(key)
	c.BlockUntilAllResourcesAdded()
	if _, err := c.GetCachedImage(ImageRequest{Key: key}); err != ErrMissingTemplate {
		t.Errorf("err = %v, want ErrMissingTemplate after delete", err)
	}
	c.EndFrame()
}

func TestClearNamespaceRemovesAllTrackedKeys(t *testing.T) {
	c := newTestCache()
	ns := Namespace(1)
	key := ImageKey{Namespace: ns, ID: 1}

	c.BeginFrame(1)
	_ = c.AddImage(key, ImageDescriptor{Width: 8, Height: 8, Format: PixelFormatRGBA8}, NewRawImageData(make([]byte, 8*8*4)), nil)
	c.ClearNamespace(ns)
	c.BlockUntilAllResourcesAdded()

	if _, err := c.GetCachedImage(ImageRequest{Key: key}); err != ErrMissingTemplate {
		t.Errorf("err = %v, want ErrMissingTemplate after ClearNamespace", err)
	}
	if _, ok := c.namespaces[ns]; ok {
		t.Error("expected namespace state removed after ClearNamespace")
	}
	c.EndFrame()
}

// Scenario: an image backed by an externally-owned texture bypasses
// the texture cache entirely. RequestImage must not create a
// cached-image entry or a pending upload for it, and GetCachedImage
// must resolve it straight from the template without ever calling
// into texCache.
func TestExternalTextureHandleBypassesTextureCache(t *testing.T) {
	c := newTestCache()
	key := ImageKey{Namespace: 1, ID: 1}
	handle := core.TextureID(42)
	desc := ImageDescriptor{Width: 16, Height: 16, Format: PixelFormatRGBA8}

	c.BeginFrame(1)
	if err := c.AddImage(key, desc, NewExternalTextureHandleImageData(handle), nil); err != nil {
		t.Fatalf("AddImage: %v", err)
	}

	if err := c.RequestImage(ImageRequest{Key: key}); err != nil {
		t.Fatalf("RequestImage: %v", err)
	}
	if _, ok := c.cachedImages.Get(key); ok {
		t.Error("expected no cached-image entry for an external-texture-handle image")
	}
	if keys := c.pending[key]; len(keys) != 0 {
		t.Errorf("expected no pending uploads, got %v", keys)
	}
	c.BlockUntilAllResourcesAdded()

	item, err := c.GetCachedImage(ImageRequest{Key: key})
	if err != nil {
		t.Fatalf("GetCachedImage: %v", err)
	}
	if item.Texture != handle {
		t.Errorf("item.Texture = %v, want %v", item.Texture, handle)
	}
	if item.UVRect != image.Rect(0, 0, 16, 16) {
		t.Errorf("item.UVRect = %v, want 0,0,16,16", item.UVRect)
	}
	c.EndFrame()
}

// Scenario: requesting a blob tile that has never been rasterized via
// SetBlobTile is a caller bug, matching the original's
// assert!(!missing) in request_image.
func TestRequestImageOnUnrasterizedBlobTilePanics(t *testing.T) {
	c := newTestCache()
	key := ImageKey{Namespace: 1, ID: 1}
	blobKey := blob.Key(9)

	c.BeginFrame(1)
	if err := c.AddBlobImage(key, ImageDescriptor{Width: 32, Height: 32, Format: PixelFormatRGBA8}, blobKey, nil); err != nil {
		t.Fatalf("AddBlobImage: %v", err)
	}

	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic requesting an unrasterized blob tile")
		}
	}()
	_ = c.RequestImage(ImageRequest{Key: key})
}

// Scenario: once a handle is uploaded and clean, re-requesting it in a
// later frame (with no intervening UpdateImage) must not re-enqueue it,
// since the texture cache reports no upload is needed and the dirty
// rect is empty — matching request_image's early return.
func TestRequestImageSkipsPendingWhenAlreadyUploadedAndClean(t *testing.T) {
	c := newTestCache()
	key := ImageKey{Namespace: 1, ID: 1}
	desc := ImageDescriptor{Width: 8, Height: 8, Format: PixelFormatRGBA8}

	c.BeginFrame(1)
	if err := c.AddImage(key, desc, NewRawImageData(make([]byte, 8*8*4)), nil); err != nil {
		t.Fatalf("AddImage: %v", err)
	}
	if err := c.RequestImage(ImageRequest{Key: key}); err != nil {
		t.Fatalf("RequestImage: %v", err)
	}
	c.BlockUntilAllResourcesAdded()
	c.EndFrame()

	c.BeginFrame(2)
	if err := c.RequestImage(ImageRequest{Key: key}); err != nil {
		t.Fatalf("RequestImage (frame 2): %v", err)
	}
	if len(c.pending[key]) != 0 {
		t.Errorf("expected no pending entry for an already-uploaded, clean image, got %d", len(c.pending[key]))
	}
	c.BlockUntilAllResourcesAdded()
	c.EndFrame()
}

func newFilterTestCache(atlasSize int) *Cache {
	return NewCache(Collaborators{
		TextureCache: texcache.NewMemCache(texcache.MemCacheConfig{SharedAtlasSize: atlasSize}),
		Rasterizer:   newFakeRasterizer(),
		Targets:      rendertarget.NewPool(rendertarget.Config{}),
		Graph:        rendertask.NewSimpleGraph(),
	})
}

// Scenario: a mipmap-eligible image larger than 512x512 in both
// dimensions that cannot fit the shared atlas upgrades to Trilinear.
func TestSelectFilterUpgradesToTrilinearWhenTooLargeForSharedAtlas(t *testing.T) {
	c := newFilterTestCache(256)
	key := ImageKey{Namespace: 1, ID: 1}
	w, h := 600, 600
	desc := ImageDescriptor{Width: w, Height: h, Format: PixelFormatRGBA8, AllowMipmaps: true}

	c.BeginFrame(1)
	if err := c.AddImage(key, desc, NewRawImageData(make([]byte, w*h*4)), nil); err != nil {
		t.Fatalf("AddImage: %v", err)
	}
	if err := c.RequestImage(ImageRequest{Key: key}); err != nil {
		t.Fatalf("RequestImage: %v", err)
	}
	c.BlockUntilAllResourcesAdded()

	item, err := c.GetCachedImage(ImageRequest{Key: key})
	if err != nil {
		t.Fatalf("GetCachedImage: %v", err)
	}
	if item.Filter != texcache.FilterTrilinear {
		t.Errorf("Filter = %v, want Trilinear", item.Filter)
	}
	c.EndFrame()
}

// Scenario: the same oversized, mipmap-eligible image stays Linear when
// the shared atlas is large enough to hold it.
func TestSelectFilterStaysLinearWhenSharedAtlasFits(t *testing.T) {
	c := newFilterTestCache(2048)
	key := ImageKey{Namespace: 1, ID: 1}
	w, h := 600, 600
	desc := ImageDescriptor{Width: w, Height: h, Format: PixelFormatRGBA8, AllowMipmaps: true}

	c.BeginFrame(1)
	if err := c.AddImage(key, desc, NewRawImageData(make([]byte, w*h*4)), nil); err != nil {
		t.Fatalf("AddImage: %v", err)
	}
	if err := c.RequestImage(ImageRequest{Key: key}); err != nil {
		t.Fatalf("RequestImage: %v", err)
	}
	c.BlockUntilAllResourcesAdded()

	item, err := c.GetCachedImage(ImageRequest{Key: key})
	if err != nil {
		t.Fatalf("GetCachedImage: %v", err)
	}
	if item.Filter != texcache.FilterLinear {
		t.Errorf("Filter = %v, want Linear", item.Filter)
	}
	c.EndFrame()
}

// Scenario: an oversized image that disallows mipmaps never upgrades,
// regardless of shared-atlas fit.
func TestSelectFilterStaysLinearWhenMipmapsDisallowed(t *testing.T) {
	c := newFilterTestCache(256)
	key := ImageKey{Namespace: 1, ID: 1}
	w, h := 600, 600
	desc := ImageDescriptor{Width: w, Height: h, Format: PixelFormatRGBA8}

	c.BeginFrame(1)
	if err := c.AddImage(key, desc, NewRawImageData(make([]byte, w*h*4)), nil); err != nil {
		t.Fatalf("AddImage: %v", err)
	}
	if err := c.RequestImage(ImageRequest{Key: key}); err != nil {
		t.Fatalf("RequestImage: %v", err)
	}
	c.BlockUntilAllResourcesAdded()

	item, err := c.GetCachedImage(ImageRequest{Key: key})
	if err != nil {
		t.Fatalf("GetCachedImage: %v", err)
	}
	if item.Filter != texcache.FilterLinear {
		t.Errorf("Filter = %v, want Linear", item.Filter)
	}
	c.EndFrame()
}

// Scenario: a keyed RequestRenderTask reuses the first call's target
// handle on a second call rather than allocating a new one.
func TestRequestRenderTaskReusesHandleOnHit(t *testing.T) {
	c := newTestCache()
	graph := c.graph.(*rendertask.SimpleGraph)
	graph.AddTask(rendertask.TaskID(1))
	graph.AddTask(rendertask.TaskID(2))
	key := &rendertask.CacheKey{Key: 42, Size: image.Pt(32, 32)}

	c.BeginFrame(1)
	id1, err := c.RequestRenderTask(key, image.Pt(32, 32), false, texcache.TargetShaderBlur, func() rendertask.TaskID { return rendertask.TaskID(1) })
	if err != nil {
		t.Fatalf("RequestRenderTask: %v", err)
	}
	id2, err := c.RequestRenderTask(key, image.Pt(32, 32), false, texcache.TargetShaderBlur, func() rendertask.TaskID { return rendertask.TaskID(2) })
	if err != nil {
		t.Fatalf("RequestRenderTask (hit): %v", err)
	}

	t1, _ := graph.GetTaskMut(id1)
	t2, _ := graph.GetTaskMut(id2)
	if t1.Location.Target != t2.Location.Target {
		t.Errorf("expected both tasks to share the memoized target, got %v and %v", t1.Location.Target, t2.Location.Target)
	}
	c.BlockUntilAllResourcesAdded()
	c.EndFrame()
}

// Scenario: a nil cache key means the task is never memoized; makeTask
// runs every call.
func TestRequestRenderTaskNilKeyAlwaysBuilds(t *testing.T) {
	c := newTestCache()
	graph := c.graph.(*rendertask.SimpleGraph)
	graph.AddTask(rendertask.TaskID(1))

	c.BeginFrame(1)
	calls := 0
	makeTask := func() rendertask.TaskID {
		calls++
		return rendertask.TaskID(1)
	}
	if _, err := c.RequestRenderTask(nil, image.Pt(16, 16), false, texcache.TargetShaderDefault, makeTask); err != nil {
		t.Fatalf("RequestRenderTask: %v", err)
	}
	if _, err := c.RequestRenderTask(nil, image.Pt(16, 16), false, texcache.TargetShaderDefault, makeTask); err != nil {
		t.Fatalf("RequestRenderTask: %v", err)
	}
	if calls != 2 {
		t.Errorf("expected makeTask called twice for an uncached request, got %d", calls)
	}
	c.BlockUntilAllResourcesAdded()
	c.EndFrame()
}

func TestAddFontInstanceMissingFontReturnsError(t *testing.T) {
	c := newTestCache()
	c.BeginFrame(1)
	err := c.AddFontInstance(1, FontInstanceKey{Namespace: 1, ID: 1}, FontKey{Namespace: 1, ID: 99}, 0, glyph.RenderModeAlpha)
	if err != ErrMissingFont {
		t.Errorf("err = %v, want ErrMissingFont", err)
	}
	c.BlockUntilAllResourcesAdded()
	c.EndFrame()
}
