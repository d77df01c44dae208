// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package rescache

import "github.com/gogpu/rescache/blob"

// ClearCacheFlags is a bitmask selecting which parts of the cache
// Clear tears down, independent of namespace.
type ClearCacheFlags uint8

const (
	ClearImages ClearCacheFlags = 1 << iota
	ClearGlyphs
	ClearRenderTargets
)

// ClearAll tears down every kind of cached state.
const ClearAll = ClearImages | ClearGlyphs | ClearRenderTargets

// namespaceState tracks the keys a Namespace currently owns, so
// ClearNamespace can delete exactly what that namespace created
// without scanning every template, and so shared font keys (the same
// FontKey referenced by more than one namespace) are only released
// from the rasterizer once their last referencing namespace clears.
type namespaceState struct {
	images        map[ImageKey]struct{}
	fonts         map[FontKey]struct{}
	fontInstances map[FontInstanceKey]struct{}
}

func newNamespaceState() *namespaceState {
	return &namespaceState{
		images:        make(map[ImageKey]struct{}),
		fonts:         make(map[FontKey]struct{}),
		fontInstances: make(map[FontInstanceKey]struct{}),
	}
}

func (c *Cache) namespaceState(ns Namespace) *namespaceState {
	s, ok := c.namespaces[ns]
	if !ok {
		s = newNamespaceState()
		c.namespaces[ns] = s
	}
	return s
}

// ClearNamespace deletes every image, font, and font instance key
// structure created under ns, evicting their texture-cache handles and
// notifying the glyph rasterizer and blob handler. Shared font keys
// referenced by other namespaces (the per-FontKey reference count in
// fonts.go's fontTemplates) are only forwarded to the rasterizer once
// their last reference disappears.
func (c *Cache) ClearNamespace(ns Namespace) {
	c.assertState("ClearNamespace", AddResources)

	state, ok := c.namespaces[ns]
	if !ok {
		return
	}

	for key := range state.images {
		c.DeleteImage(key)
	}
	for key := range state.fontInstances {
		c.glyphCoord.DeleteFontInstance(toGlyphFontInstanceKey(key))
	}
	for key := range state.fonts {
		if c.fonts.release(key) {
			c.glyphCoord.DeleteFont(toGlyphFontKey(key))
			if c.blobHandler != nil {
				c.blobHandler.DeleteFont(toBlobFontKey(key))
			}
		}
	}

	delete(c.namespaces, ns)
	if c.blobHandler != nil {
		c.blobHandler.ClearNamespace(blobNamespaceID(ns))
	}
}

// Clear tears down the parts of the cache selected by flags across
// every namespace, used for full device-loss style resets rather than
// per-document teardown.
func (c *Cache) Clear(flags ClearCacheFlags) {
	c.assertState("Clear", AddResources)

	if flags&ClearImages != 0 {
		for ns := range c.namespaces {
			c.ClearNamespace(ns)
		}
	}
	if flags&ClearGlyphs != 0 {
		c.glyphCoord.Reset()
	}
	if flags&ClearRenderTargets != 0 {
		c.texCache.ClearAll()
		c.taskCache.Reset()
	}
}

func blobNamespaceID(ns Namespace) blob.NamespaceID { return blob.NamespaceID(ns) }
