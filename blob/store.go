package blob

import (
	"image"
	"sync"

	"github.com/gogpu/rescache/tiling"
)

// Store holds the rasterized tiles for every blob image currently
// known to the cache, keyed first by Key and then by tile offset,
// mirroring the original's FastHashMap<TileOffset, RasterizedBlobImage>
// per blob image.
type Store struct {
	mu    sync.Mutex
	byKey map[Key]map[tiling.Offset]RasterizedTile
}

// NewStore builds an empty Store.
func NewStore() *Store {
	return &Store{byKey: make(map[Key]map[tiling.Offset]RasterizedTile)}
}

// SetTile records the rasterized pixels for one tile of key, replacing
// any previous rasterization of that tile.
func (s *Store) SetTile(key Key, offset tiling.Offset, tile RasterizedTile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tiles, ok := s.byKey[key]
	if !ok {
		tiles = make(map[tiling.Offset]RasterizedTile)
		s.byKey[key] = tiles
	}
	tiles[offset] = tile
}

// GetTile returns the rasterized pixels for one tile of key, or false
// if that tile has not been rasterized (or was since discarded).
func (s *Store) GetTile(key Key, offset tiling.Offset) (RasterizedTile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tiles, ok := s.byKey[key]
	if !ok {
		return RasterizedTile{}, false
	}
	t, ok := tiles[offset]
	return t, ok
}

// TileCount reports how many tiles of key are currently stored.
func (s *Store) TileCount(key Key) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byKey[key])
}

// DeleteKey drops every rasterized tile belonging to key.
func (s *Store) DeleteKey(key Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byKey, key)
}

// DiscardTilesOutsideVisibleArea drops every tile of key whose offset
// no longer overlaps visible, given the image's tile size. Called
// after SetBlobImageVisibleArea shrinks a blob image's visible region,
// so the store doesn't keep rasterizing or holding pixels for tiles
// that will never be requested again.
func (s *Store) DiscardTilesOutsideVisibleArea(key Key, visible image.Rectangle, tileSize int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tiles, ok := s.byKey[key]
	if !ok {
		return
	}
	min, max := tiling.ComputeTileRange(visible, tileSize)
	for offset := range tiles {
		if !tiling.RangeContains(min, max, offset) {
			delete(tiles, offset)
		}
	}
}
