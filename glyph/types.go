// Package glyph implements the glyph coordination layer sitting between
// the resource cache and a text-shaping/rasterization backend: request
// batching, a per-font rasterized-glyph cache, and the contract that
// backend must satisfy.
//
// The actual rasterizer (turning font outlines into alpha-mask pixels)
// is an external collaborator; this package only coordinates requests
// to it and caches the results.
package glyph

import "github.com/gogpu/gputypes"

// FontKey identifies one font file registered with the cache.
type FontKey uint64

// FontInstanceKey identifies one (font, size, rendering options) tuple.
// Distinct instances of the same FontKey get independent glyph caches
// because glyph bitmaps are rasterized at a specific size.
type FontInstanceKey uint64

// GlyphIndex is a font-specific glyph id (not a Unicode code point).
type GlyphIndex uint32

// GlyphKey identifies one rasterized glyph: which font instance, which
// glyph, and the subpixel phase it was rasterized at. SubpixelBits
// packs a small fixed number of horizontal/vertical subpixel offset
// steps, mirroring the original's glyph-key subpixel quantization used
// so glyphs reuse cache entries across slightly different fractional
// pixel positions rather than rasterizing a unique bitmap per position.
type GlyphKey struct {
	Instance    FontInstanceKey
	Index       GlyphIndex
	SubpixelBits uint8
}

// FontInstance carries the parameters a rasterizer needs to produce
// glyphs for a FontInstanceKey: which font, at what size, with which
// render mode.
type FontInstance struct {
	Key      FontInstanceKey
	Font     FontKey
	SizeBits uint32 // IEEE 754 bits of the font size in pixels, see math.Float32bits
	Mode     RenderMode
}

// RenderMode selects how a glyph's coverage is rasterized.
type RenderMode uint8

const (
	RenderModeMono RenderMode = iota
	RenderModeAlpha
	RenderModeSubpixel
)

// GlyphDimensions is the rasterizer's report of a glyph's ink bounds
// and advance width, independent of whether it has been rasterized
// into a texture yet.
type GlyphDimensions struct {
	Width, Height int32
	Left, Top     int32
	AdvanceBits   uint32 // IEEE 754 bits of the advance width in pixels
}

// RasterizedGlyph is one glyph's pixel data as returned by
// Rasterizer.ResolveGlyphs.
type RasterizedGlyph struct {
	Key    GlyphKey
	Dims   GlyphDimensions
	Data   []byte
	Format gputypes.TextureFormat
}

// Rasterizer is the contract a text-shaping backend implements to
// supply glyph bitmaps. Calls are not required to be safe for
// concurrent use unless EnableMultithreading(true) has been called;
// Coordinator holds its own lock around every call.
type Rasterizer interface {
	// PrepareFont lets the rasterizer warm any per-instance state
	// (hinting tables, size-specific metrics) before glyphs for inst
	// are requested.
	PrepareFont(inst FontInstance)

	// AddFont registers raw font file bytes under key. index selects a
	// face within a font collection file; 0 for a single-face file.
	AddFont(key FontKey, data []byte, index uint32)

	// DeleteFont releases all state associated with key, including
	// every FontInstance derived from it.
	DeleteFont(key FontKey)

	// DeleteFontInstance releases state for one instance without
	// touching its underlying FontKey.
	DeleteFontInstance(key FontInstanceKey)

	// RequestGlyphs asks the rasterizer to begin producing bitmaps for
	// keys under inst; results arrive later via ResolveGlyphs. Keys
	// already in flight are ignored.
	RequestGlyphs(inst FontInstance, keys []GlyphKey)

	// ResolveGlyphs drains every glyph rasterized since the last call,
	// invoking sink once per glyph. It must not block waiting for
	// glyphs that have not finished rasterizing.
	ResolveGlyphs(sink func(RasterizedGlyph))

	// HasFont reports whether key has been registered via AddFont and
	// not since deleted.
	HasFont(key FontKey) bool

	// GetGlyphDimensions reports the ink bounds and advance for one
	// glyph without rasterizing it, or false if inst or the glyph
	// index is unknown.
	GetGlyphDimensions(inst FontInstance, index GlyphIndex) (GlyphDimensions, bool)

	// GetGlyphIndex maps a Unicode code point to a font-specific glyph
	// index for key, or false if the font has no glyph for it.
	GetGlyphIndex(key FontKey, r rune) (GlyphIndex, bool)

	// Reset drops all cached rasterizer-internal state (fonts,
	// in-flight requests) without necessarily forgetting registered
	// FontKeys, matching the original's full reset used on GPU device
	// loss.
	Reset()

	// EnableMultithreading toggles whether the rasterizer may service
	// RequestGlyphs from worker goroutines. Coordinator itself never
	// relies on this; it is forwarded for backends that spin up their
	// own pool.
	EnableMultithreading(enable bool)
}
