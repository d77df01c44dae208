// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package rescache

import (
	"fmt"
	"image"

	"github.com/gogpu/rescache/blob"
	"github.com/gogpu/rescache/tiling"
)

// BlobTileNotRasterizedError reports a blob image tile requested via
// RequestImage that SetBlobTile has not yet supplied, a caller
// ordering bug matching the original's debug_assert!(!missing) in
// request_image: a blob tile must be rasterized before anything asks
// for it.
type BlobTileNotRasterizedError struct {
	Key    blob.Key
	Offset tiling.Offset
}

func (e *BlobTileNotRasterizedError) Error() string {
	return fmt.Sprintf("rescache: blob tile not rasterized: key=%d offset=%+v", e.Key, e.Offset)
}

// blobTileOffsetFor projects a CachedImageKey down to the tile offset
// its blob data lives under in blob.Store: the tile it names, or the
// zero offset for an untiled blob image, which is stored as a single
// tile covering the whole visible area.
func blobTileOffsetFor(cacheKey CachedImageKey) tiling.Offset {
	if cacheKey.Tile.HasTile {
		return cacheKey.Tile.Offset
	}
	return tiling.Offset{}
}

// AddBlobImage registers a vector-recording-backed image template. The
// blob store holds no rasterized tiles for it yet; each tile must be
// supplied through SetBlobTile before it is requested, since neither
// RequestImage nor BlockUntilAllResourcesAdded asks the blob handler to
// rasterize anything (RequestImage panics on a missing tile).
func (c *Cache) AddBlobImage(key ImageKey, descriptor ImageDescriptor, blobKey blob.Key, tileSize *int) error {
	c.assertState("AddBlobImage", AddResources)
	return c.AddImage(key, descriptor, NewBlobImageData(blobKey), tileSize)
}

// UpdateBlobImage re-registers a blob image's descriptor and
// accumulates dirtyRect, the same as UpdateImage, but additionally
// discards any rasterized tiles the template's blob store holds that
// fall outside the new descriptor bounds.
func (c *Cache) UpdateBlobImage(key ImageKey, descriptor ImageDescriptor, blobKey blob.Key, dirtyRect *image.Rectangle) {
	c.assertState("UpdateBlobImage", AddResources)
	c.UpdateImage(key, descriptor, NewBlobImageData(blobKey), dirtyRect)
	tmpl, ok := c.templates.Get(key)
	if !ok || tmpl.TileSize == nil {
		return
	}
	bounds := image.Rect(0, 0, descriptor.Width, descriptor.Height)
	c.blobStore.DiscardTilesOutsideVisibleArea(blobKey, bounds, *tmpl.TileSize)
}

// DeleteBlobImage is DeleteImage for a blob image; it is exposed
// separately only for symmetry with Add/UpdateBlobImage, since
// DeleteImage already handles discarding the blob store's tiles and
// recording the key in the deleted-blob-keys ring.
func (c *Cache) DeleteBlobImage(key ImageKey) {
	c.assertState("DeleteBlobImage", AddResources)
	c.DeleteImage(key)
}

// SetBlobImageVisibleArea shrinks or grows key's visible region
// in-place (a blob image's effective size is defined by what's
// currently visible, not a fixed descriptor) and discards any
// rasterized tiles that fall outside the new area so they are not
// served stale once a tile re-enters view.
func (c *Cache) SetBlobImageVisibleArea(key ImageKey, blobKey blob.Key, visible image.Rectangle) {
	c.assertState("SetBlobImageVisibleArea", AddResources)
	c.templates.SetVisibleRect(key, visible)
	tmpl, ok := c.templates.Get(key)
	if !ok || tmpl.TileSize == nil {
		return
	}
	c.blobStore.DiscardTilesOutsideVisibleArea(blobKey, visible, *tmpl.TileSize)
}

// SetBlobTile records one rasterized tile's pixels, called by the
// embedder once its blob handler finishes rasterizing a tile requested
// via RequestImage. Tiles for a key recorded in the deleted-blob-keys
// ring are dropped instead of stored, since the image they belong to
// no longer exists.
func (c *Cache) SetBlobTile(blobKey blob.Key, offset tiling.Offset, tile blob.RasterizedTile) {
	if c.deletedBlobKeys.contains(blobKey) {
		return
	}
	c.blobStore.SetTile(blobKey, offset, tile)
}
