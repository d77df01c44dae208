// Package texcache defines the contract the resource cache uses to talk
// to a GPU texture cache, plus a reference in-memory implementation
// (MemCache) good enough to drive the core cache's state machine in
// tests or in an embedder that has no real GPU backend yet.
//
// The real shelf-packing atlas allocator and the real GPU upload path
// are out of scope here; MemCache only has to answer the contract
// plausibly.
package texcache

import (
	"image"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/core"
)

// Filter selects the sampling filter a cached texture entry is uploaded
// and sampled with.
type Filter uint8

const (
	FilterLinear Filter = iota
	FilterNearest
	FilterTrilinear
)

func (f Filter) String() string {
	switch f {
	case FilterLinear:
		return "linear"
	case FilterNearest:
		return "nearest"
	case FilterTrilinear:
		return "trilinear"
	default:
		return "unknown"
	}
}

// Eviction controls whether the texture cache is allowed to drop an
// entry on its own LRU pressure (Auto) or whether the caller owns its
// lifetime and must call EvictHandle explicitly (Manual). Blob and
// snapshot images use Manual: the core cache keeps a CachedImageInfo
// alive that must release its handle before the entry disappears, and
// a Manual entry dropped without that release is a bug in the caller,
// not in the texture cache.
type Eviction uint8

const (
	EvictionAuto Eviction = iota
	EvictionManual
)

// TargetShader identifies which shader variant a render-target
// allocation will be drawn with, mirroring the small fixed set of
// render task kinds the core cache requests targets for.
type TargetShader uint8

const (
	TargetShaderDefault TargetShader = iota
	TargetShaderAlphaMask
	TargetShaderBlur
	TargetShaderMix
	TargetShaderText
)

// Handle names one entry inside a TextureCache. The zero Handle is
// invalid; handles are otherwise opaque and must not be compared across
// different TextureCache instances.
type Handle struct {
	id  uint64
	gen uint32
}

// IsValid reports whether h was ever returned by a TextureCache's
// Update or AllocRenderTarget. It does not report whether the entry it
// names is still alive; use TryGet for that.
func (h Handle) IsValid() bool {
	return h.id != 0
}

// Descriptor carries the pixel-level shape of a cache entry: its
// dimensions, pixel format, the shader variant it is meant to be drawn
// with, and a small float payload (UserData) some shaders read
// alongside the sampled texel, e.g. a glyph's [left, -top, scale, 0]
// origin or a render-as-image embedder adjustment. It deliberately
// excludes positioning — the texture cache decides where the data
// lives.
type Descriptor struct {
	Width, Height int
	Format        gputypes.TextureFormat
	Shader        TargetShader
	UserData      [4]float32
}

// CacheItem is the read side of a cache entry: where its pixels live on
// the GPU and how to sample them.
type CacheItem struct {
	Texture  core.TextureID
	Layer    int
	UVRect   image.Rectangle
	Filter   Filter
	Format   gputypes.TextureFormat
	Shader   TargetShader
	UserData [4]float32
}

// PendingUpdate describes one texel-level upload the embedder's render
// backend must perform before the frame using it can be drawn.
type PendingUpdate struct {
	Handle    Handle
	Texture   core.TextureID
	Layer     int
	DstOrigin image.Point
	DirtyRect image.Rectangle
	Data      []byte
}
