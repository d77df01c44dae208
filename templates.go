// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package rescache

import (
	"image"
	"sync"

	"github.com/gogpu/wgpu/core"

	"github.com/gogpu/rescache/blob"
	"github.com/gogpu/rescache/tiling"
)

// HardwareMaxTextureSize is the largest single dimension the texture
// cache can ever allocate a texture for, tiled or not. An untiled
// image wider or taller than this is rejected with ErrOverLimitSize;
// an explicit tile size larger than this is rejected the same way,
// since silently clamping it would place a caller's explicit request
// somewhere it did not ask for.
const HardwareMaxTextureSize = 4096

// TilingThreshold is the dimension beyond which an image with no
// explicit tile size is auto-tiled rather than stored as one texture.
// It is tiling.MaxTileSize: an image larger than the biggest tile the
// allocator ever hands out could never be placed untiled in the atlas
// anyway.
const TilingThreshold = tiling.MaxTileSize

// ImageRendering is the image-rendering quality hint a request can
// carry (the CSS image-rendering property's values). It participates
// in CachedImageKey because Pixelated and Auto/CrispEdges select
// different sampling filters and so cannot share a texture-cache
// entry once a template has been requested both ways.
type ImageRendering uint8

const (
	// RenderingAuto is the default: Linear filtering, upgraded to
	// Trilinear for minified images per the upload rules in cache.go.
	RenderingAuto ImageRendering = iota
	RenderingCrispEdges
	RenderingPixelated
)

// ImageData is a closed sum over the ways an image template's pixels
// are produced. Exactly one of the fields is meaningful, selected by
// Kind; the others are zero. Use the New*ImageData constructors rather
// than building this directly.
type ImageData struct {
	Kind tiling.DataKind

	// Raw holds the pixel bytes for Kind == DataRaw, laid out per the
	// template's ImageDescriptor.
	Raw []byte

	// Blob names the rasterized-tile store for Kind == DataBlob.
	Blob blob.Key

	// ExternalTextureHandle names a texture the embedder already
	// uploaded, for Kind == DataExternalTextureHandle.
	ExternalTextureHandle core.TextureID

	// ExternalBufferID names an embedder-owned pixel buffer handle,
	// for Kind == DataExternalBuffer.
	ExternalBufferID uint64
}

func NewRawImageData(data []byte) ImageData {
	return ImageData{Kind: tiling.DataRaw, Raw: data}
}

func NewBlobImageData(key blob.Key) ImageData {
	return ImageData{Kind: tiling.DataBlob, Blob: key}
}

func NewSnapshotImageData() ImageData {
	return ImageData{Kind: tiling.DataSnapshot}
}

func NewExternalBufferImageData(id uint64) ImageData {
	return ImageData{Kind: tiling.DataExternalBuffer, ExternalBufferID: id}
}

func NewExternalTextureHandleImageData(handle core.TextureID) ImageData {
	return ImageData{Kind: tiling.DataExternalTextureHandle, ExternalTextureHandle: handle}
}

// ImageTemplate is the registered, authoritative description of one
// image: its pixel shape, where its data comes from, and whatever tile
// size it has committed to. It does not describe where (or whether)
// its pixels currently live on the GPU; that is CachedImageInfo's job.
type ImageTemplate struct {
	Descriptor ImageDescriptor
	Data       ImageData

	// TileSize is nil for an untiled template, otherwise the clamped
	// tile size committed to by Add (explicitly or via auto-tiling) or
	// later by Update promoting an untiled template across the tiling
	// threshold.
	TileSize *int

	// VisibleRect is the portion of the template's pixel space that is
	// actually requestable. For raw/external images it always equals
	// the descriptor bounds; blob images can shrink it independently
	// via SetVisibleRect.
	VisibleRect image.Rectangle

	// DirtyRect accumulates the union of every UpdateImage dirty rect
	// since the last upload; cache.go's uploadOne consumes it (resets
	// it to empty) once it uploads. Add leaves this empty: a
	// brand-new template is fully painted by its first upload because
	// no cached-image entry exists yet, not because of dirty tracking.
	DirtyRect image.Rectangle

	// Generation increases by exactly one on every Update, never on
	// Add or read-only access.
	Generation uint32

	// UserData carries the small per-template float payload that
	// RenderAsImage records (an embedder-supplied adjustment);
	// GetCachedImage copies it onto the CacheItem it returns. Glyph
	// payloads do not live here; they travel on the glyph's own
	// texture-cache descriptor.
	UserData [4]float32
}

// resolveTileSize decides the tile size a new or re-sized template
// commits to: an explicit value always wins (clamped, unless it is
// itself bigger than the hardware can ever allocate, which is a hard
// reject rather than a silent clamp); otherwise auto-tiling applies
// once either dimension crosses TilingThreshold, and a template that
// stays untiled past HardwareMaxTextureSize in either dimension is
// rejected the same way.
func resolveTileSize(descriptor ImageDescriptor, kind tiling.DataKind, explicit *int) (*int, error) {
	if explicit != nil {
		if *explicit > HardwareMaxTextureSize {
			return nil, ErrOverLimitSize
		}
		clamped := tiling.ClampTileSize(*explicit)
		return &clamped, nil
	}
	if tiling.ShouldTile(TilingThreshold, descriptor.Width, descriptor.Height, kind) {
		size := tiling.DefaultTileSize
		return &size, nil
	}
	if descriptor.Width > HardwareMaxTextureSize || descriptor.Height > HardwareMaxTextureSize {
		return nil, ErrOverLimitSize
	}
	return nil, nil
}

// ImageTemplates is the store of every currently-registered image
// template, keyed by ImageKey. It knows nothing about texture-cache
// handles or frame state; RequestImage and friends in cache.go
// translate a template into cached pixels.
type ImageTemplates struct {
	mu    sync.Mutex
	byKey map[ImageKey]*ImageTemplate
}

func NewImageTemplates() *ImageTemplates {
	return &ImageTemplates{byKey: make(map[ImageKey]*ImageTemplate)}
}

// Add registers a new template for key, overwriting any previous one
// (callers are expected to Delete first; AddImage reusing a live key
// is a caller bug the original leaves undefined and this module does
// not specially detect). It returns ErrOverLimitSize when the image
// cannot be represented even tiled; the template is still recorded so
// later GetCachedImage calls see a consistent Err(OverLimitSize)
// rather than ErrMissingTemplate.
func (s *ImageTemplates) Add(key ImageKey, descriptor ImageDescriptor, data ImageData, explicitTileSize *int) error {
	tileSize, err := resolveTileSize(descriptor, data.Kind, explicitTileSize)
	bounds := image.Rect(0, 0, descriptor.Width, descriptor.Height)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.byKey[key] = &ImageTemplate{
		Descriptor:  descriptor,
		Data:        data,
		TileSize:    tileSize,
		VisibleRect: bounds,
	}
	return err
}

// Update applies a new descriptor/data to an existing template,
// accumulating dirtyRect (or the whole new bounds, if dirtyRect is
// nil) into the template's pending dirty region, and resetting
// VisibleRect to the new descriptor's bounds. Tiling is preserved
// unless the template was previously untiled and the new dimensions
// now cross TilingThreshold, in which case it is auto-tiled the same
// way Add would. A missing key panics: per 4.8, MissingTemplate on
// UpdateImage is a programming error, not a degrade-and-warn case.
func (s *ImageTemplates) Update(key ImageKey, descriptor ImageDescriptor, data ImageData, dirtyRect *image.Rectangle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.byKey[key]
	if !ok {
		panic(&KeyError{Op: "UpdateImage", Key: key})
	}

	bounds := image.Rect(0, 0, descriptor.Width, descriptor.Height)
	if t.TileSize == nil && tiling.ShouldTile(TilingThreshold, descriptor.Width, descriptor.Height, data.Kind) {
		size := tiling.DefaultTileSize
		t.TileSize = &size
	}

	if t.Descriptor.Format != descriptor.Format {
		slogger().Debug("rescache: UpdateImage: pixel format changed", "key", key)
	}
	t.Descriptor = descriptor
	t.Data = data
	t.VisibleRect = bounds
	if dirtyRect != nil {
		t.DirtyRect = t.DirtyRect.Union(*dirtyRect).Intersect(bounds)
	} else {
		t.DirtyRect = bounds
	}
	t.Generation++
}

// Delete removes key's template, returning it so the caller (cache.go's
// DeleteImage) can release anything it owned downstream (cached-image
// handles, blob tiles). The second return is false if key had no
// template.
func (s *ImageTemplates) Delete(key ImageKey) (ImageTemplate, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.byKey[key]
	if !ok {
		return ImageTemplate{}, false
	}
	delete(s.byKey, key)
	return *t, true
}

// SetVisibleRect updates a blob image template's visible area and
// resizes its descriptor to match, per the blob-specific visible-area
// contract: a blob's "size" is defined by what's currently visible,
// not by a fixed descriptor set once at AddBlobImage time. Like
// Update, a missing key is a programming error.
func (s *ImageTemplates) SetVisibleRect(key ImageKey, visible image.Rectangle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.byKey[key]
	if !ok {
		panic(&KeyError{Op: "SetBlobImageVisibleArea", Key: key})
	}
	t.VisibleRect = visible
	t.Descriptor.Width = visible.Dx()
	t.Descriptor.Height = visible.Dy()
}

// Get returns a copy of key's template.
func (s *ImageTemplates) Get(key ImageKey) (ImageTemplate, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.byKey[key]
	if !ok {
		return ImageTemplate{}, false
	}
	return *t, true
}

// Generation reports key's current generation counter, for callers
// implementing get_image_generation-style change detection.
func (s *ImageTemplates) Generation(key ImageKey) (uint32, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.byKey[key]
	if !ok {
		return 0, false
	}
	return t.Generation, true
}

// setUserData stores adjustment as key's template's UserData, used by
// RenderAsImage to record an embedder-supplied colour adjustment. A
// missing key is a silent no-op since this is only ever called right
// after the same key was used to build a render task.
func (s *ImageTemplates) setUserData(key ImageKey, adjustment [4]float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.byKey[key]; ok {
		t.UserData = adjustment
	}
}

// isSnapshot reports whether key names a currently-registered
// snapshot-backed template, used by GetCachedImage to decide whether a
// missing cached-image entry should degrade to the fallback image
// (snapshots) or ErrMissingTemplate (everything else).
func (s *ImageTemplates) isSnapshot(key ImageKey) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.byKey[key]
	return ok && t.Data.Kind == tiling.DataSnapshot
}

// TakeDirtyRect returns key's accumulated dirty rect and clears it,
// the way an upload consumes it. Returns the zero Rectangle (empty)
// for an unknown key.
func (s *ImageTemplates) TakeDirtyRect(key ImageKey) image.Rectangle {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.byKey[key]
	if !ok {
		return image.Rectangle{}
	}
	r := t.DirtyRect
	t.DirtyRect = image.Rectangle{}
	return r
}
