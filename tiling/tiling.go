// Package tiling provides the pure geometry helpers the resource cache
// uses to subdivide large images into GPU-sized tiles: clamping
// user-supplied tile sizes, deciding whether an image needs tiling at
// all, computing a single tile's rectangle, and clipping dirty
// rectangles into tile-local coordinates.
package tiling

import "image"

// Size limits for a tile dimension, inclusive. User-supplied tile
// sizes are clamped into this range; images are never tiled any
// smaller or larger than this.
const (
	MinTileSize = 16
	MaxTileSize = 2048

	// DefaultTileSize is assigned automatically when a template has no
	// explicit tiling but one of its dimensions exceeds the tiling
	// threshold.
	DefaultTileSize = 512
)

// Offset identifies one tile within a tiled image, in tile units (not
// pixels).
type Offset struct {
	X, Y int
}

// ClampTileSize restricts a user-supplied tile size to
// [MinTileSize, MaxTileSize].
func ClampTileSize(size int) int {
	if size < MinTileSize {
		return MinTileSize
	}
	if size > MaxTileSize {
		return MaxTileSize
	}
	return size
}

// DataKind distinguishes the storage forms ShouldTile needs to treat
// differently: external texture handles are never auto-tiled (they
// already name an existing GPU texture), and snapshots are rasterized
// directly into a texture-cache slot sized to fit so they are never
// auto-tiled either.
type DataKind int

const (
	DataRaw DataKind = iota
	DataBlob
	DataSnapshot
	DataExternalBuffer
	DataExternalTextureHandle
)

// ShouldTile reports whether an image template with the given pixel
// dimensions and storage kind should be auto-tiled because it exceeds
// the tiling threshold. Raw and blob data tile whenever either
// dimension exceeds the threshold; externally-buffer-backed images
// tile the same way, but images backed by an external texture handle
// never do (there is no smaller texture to tile into), and snapshots
// never do (their backing slot is sized exactly to the render task).
func ShouldTile(threshold, width, height int, kind DataKind) bool {
	overThreshold := width > threshold || height > threshold
	switch kind {
	case DataRaw, DataBlob, DataExternalBuffer:
		return overThreshold
	case DataExternalTextureHandle, DataSnapshot:
		return false
	default:
		return false
	}
}

// ComputeTileSize returns the pixel rectangle of a single tile at
// offset within an image whose visible area is visible and whose tile
// size is tileSize. The last row/column of tiles is clipped to the
// visible area so it is never larger than what is actually present.
func ComputeTileSize(visible image.Rectangle, tileSize int, offset Offset) image.Rectangle {
	x0 := visible.Min.X + offset.X*tileSize
	y0 := visible.Min.Y + offset.Y*tileSize
	x1 := x0 + tileSize
	y1 := y0 + tileSize
	tile := image.Rect(x0, y0, x1, y1)
	return tile.Intersect(visible)
}

// ComputeTileRange returns the inclusive range of tile offsets that
// overlap area, given tileSize. Used to discard rasterized tiles that
// fall outside a blob image's current visible area.
func ComputeTileRange(area image.Rectangle, tileSize int) (min, max Offset) {
	if area.Empty() {
		return Offset{}, Offset{-1, -1}
	}
	min = Offset{X: floorDiv(area.Min.X, tileSize), Y: floorDiv(area.Min.Y, tileSize)}
	// area.Max is exclusive; the last covered tile is (Max-1)/tileSize.
	max = Offset{X: floorDiv(area.Max.X-1, tileSize), Y: floorDiv(area.Max.Y-1, tileSize)}
	return min, max
}

// RangeContains reports whether offset falls within [min, max]
// (inclusive on both ends), as returned by ComputeTileRange.
func RangeContains(min, max, offset Offset) bool {
	return offset.X >= min.X && offset.X <= max.X && offset.Y >= min.Y && offset.Y <= max.Y
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// ClipDirtyRectToTile translates a dirty rectangle (in whole-image
// coordinates) into the local coordinate space of one tile, then
// intersects it with that tile's own bounds (which may be smaller than
// tileSize x tileSize at the visible area's trailing edge). Used when
// an UpdateImage dirty rect must be distributed across a Multi
// cached-image entry's per-tile variants.
func ClipDirtyRectToTile(dirty image.Rectangle, tileSize int, offset Offset, visible image.Rectangle) image.Rectangle {
	tileOrigin := image.Pt(offset.X*tileSize, offset.Y*tileSize)
	tileRect := ComputeTileSize(visible, tileSize, offset)
	localBounds := tileRect.Sub(tileOrigin)
	local := dirty.Sub(tileOrigin)
	return local.Intersect(localBounds)
}
