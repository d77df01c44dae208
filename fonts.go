// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package rescache

import (
	"bytes"
	"sync"

	gotextfont "github.com/go-text/typesetting/font"

	"github.com/gogpu/rescache/blob"
	"github.com/gogpu/rescache/glyph"
)

// fontEntry is one registered font file: its parsed go-text Font
// (used for lookups this module performs directly, independent of
// whatever the glyph rasterizer does with the same bytes) and a
// reference count, since the same FontKey can be added once but
// cleared by more than one namespace's worth of font-instance
// bookkeeping only once every referencing namespace has let go.
type fontEntry struct {
	parsed   *gotextfont.Font
	refCount int
}

// fontTemplates is the registry of raw font files and the go-text
// *Font each parses to, grounded on GoTextShaper's own
// parse-once-cache-the-Font pattern: Font is read-only and safe for
// concurrent use, so it is cached instead of re-parsing on every
// lookup.
type fontTemplates struct {
	mu      sync.Mutex
	byKey   map[FontKey]*fontEntry
}

func newFontTemplates() *fontTemplates {
	return &fontTemplates{byKey: make(map[FontKey]*fontEntry)}
}

// add registers key's font bytes, parsing them with go-text so
// GetGlyphIndex-style lookups elsewhere in this module have a *Font to
// query without re-parsing. A parse failure still registers the key
// (refcounted) so namespace bookkeeping stays consistent; parsed stays
// nil and font-level queries for it degrade the same way a missing
// font would.
func (f *fontTemplates) add(key FontKey, data []byte, index uint32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if e, ok := f.byKey[key]; ok {
		e.refCount++
		return
	}
	parsed, err := parseFont(data, index)
	if err != nil {
		slogger().Warn("rescache: AddFont: parse failed", "key", key, "error", err)
	}
	f.byKey[key] = &fontEntry{parsed: parsed, refCount: 1}
}

// parseFont parses one face of a font file, the same way
// GoTextShaper.getOrCreateFont parses and caches a *gotextfont.Font
// rather than re-parsing per call. index is accepted for API symmetry
// with AddFont/the rasterizer contract; ParseTTF always parses the
// file's first face, which covers the common single-face TTF/OTF case
// this module targets.
func parseFont(data []byte, index uint32) (*gotextfont.Font, error) {
	face, err := gotextfont.ParseTTF(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return face.Font, nil
}

// release decrements key's reference count and reports whether it
// reached zero, meaning the caller should now forward the delete to
// the rasterizer and blob handler.
func (f *fontTemplates) release(key FontKey) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.byKey[key]
	if !ok {
		return false
	}
	e.refCount--
	if e.refCount > 0 {
		return false
	}
	delete(f.byKey, key)
	return true
}

// has reports whether key is currently registered (added and not yet
// fully released).
func (f *fontTemplates) has(key FontKey) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.byKey[key]
	return ok
}

// AddFont registers key's font bytes with both the font-template
// registry and the glyph rasterizer, and tracks key under ns for
// ClearNamespace.
func (c *Cache) AddFont(ns Namespace, key FontKey, data []byte, index uint32) {
	c.assertState("AddFont", AddResources)
	c.fonts.add(key, data, index)
	c.glyphCoord.AddFont(toGlyphFontKey(key), data, index)
	c.namespaceState(ns).fonts[key] = struct{}{}
}

// DeleteFont releases ns's reference to key, forwarding the delete to
// the rasterizer and blob handler only once every namespace that added
// key has released it.
func (c *Cache) DeleteFont(ns Namespace, key FontKey) {
	c.assertState("DeleteFont", AddResources)
	delete(c.namespaceState(ns).fonts, key)
	if c.fonts.release(key) {
		c.glyphCoord.DeleteFont(toGlyphFontKey(key))
		if c.blobHandler != nil {
			c.blobHandler.DeleteFont(toBlobFontKey(key))
		}
	}
}

// AddFontInstance registers a (font, size, mode) tuple derived from
// font, tracked under ns for ClearNamespace. It returns ErrMissingFont
// if font was never added (or was already deleted) rather than handing
// the rasterizer a dangling FontKey.
func (c *Cache) AddFontInstance(ns Namespace, key FontInstanceKey, font FontKey, sizeBits uint32, mode glyph.RenderMode) error {
	c.assertState("AddFontInstance", AddResources)
	if !c.fonts.has(font) {
		slogger().Warn("rescache: AddFontInstance: missing font", "font", font)
		return ErrMissingFont
	}
	inst := glyph.FontInstance{
		Key:      toGlyphFontInstanceKey(key),
		Font:     toGlyphFontKey(font),
		SizeBits: sizeBits,
		Mode:     mode,
	}
	c.glyphCoord.PrepareFont(inst)
	c.namespaceState(ns).fontInstances[key] = struct{}{}
	return nil
}

// DeleteFontInstance releases a font instance and its cached glyphs,
// tracked under ns for ClearNamespace.
func (c *Cache) DeleteFontInstance(ns Namespace, key FontInstanceKey) {
	c.assertState("DeleteFontInstance", AddResources)
	delete(c.namespaceState(ns).fontInstances, key)
	c.glyphCoord.DeleteFontInstance(toGlyphFontInstanceKey(key))
	if c.blobHandler != nil {
		c.blobHandler.DeleteFontInstance(toBlobFontInstanceKey(key))
	}
}

func toGlyphFontKey(k FontKey) glyph.FontKey                 { return glyph.FontKey(uint64(k.Namespace)<<32 | uint64(k.ID)) }
func toGlyphFontInstanceKey(k FontInstanceKey) glyph.FontInstanceKey {
	return glyph.FontInstanceKey(uint64(k.Namespace)<<32 | uint64(k.ID))
}
func toBlobFontKey(k FontKey) blob.FontKey { return blob.FontKey(uint64(k.Namespace)<<32 | uint64(k.ID)) }
func toBlobFontInstanceKey(k FontInstanceKey) blob.FontInstanceKey {
	return blob.FontInstanceKey(uint64(k.Namespace)<<32 | uint64(k.ID))
}
