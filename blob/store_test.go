package blob

import (
	"image"
	"testing"

	"github.com/gogpu/rescache/tiling"
)

func TestStoreSetAndGetTile(t *testing.T) {
	s := NewStore()
	tile := RasterizedTile{Rect: image.Rect(0, 0, 256, 256), Data: []byte{1, 2, 3}}
	s.SetTile(1, tiling.Offset{X: 0, Y: 0}, tile)

	got, ok := s.GetTile(1, tiling.Offset{X: 0, Y: 0})
	if !ok {
		t.Fatal("expected tile to be found")
	}
	if got.Rect != tile.Rect {
		t.Errorf("rect mismatch: got %v want %v", got.Rect, tile.Rect)
	}

	if _, ok := s.GetTile(1, tiling.Offset{X: 1, Y: 0}); ok {
		t.Error("expected untouched tile to be missing")
	}
}

func TestStoreDeleteKey(t *testing.T) {
	s := NewStore()
	s.SetTile(1, tiling.Offset{}, RasterizedTile{})
	s.DeleteKey(1)
	if s.TileCount(1) != 0 {
		t.Error("expected all tiles gone after DeleteKey")
	}
}

func TestStoreDiscardTilesOutsideVisibleArea(t *testing.T) {
	s := NewStore()
	tileSize := 512
	for x := 0; x < 3; x++ {
		s.SetTile(1, tiling.Offset{X: x, Y: 0}, RasterizedTile{})
	}
	if s.TileCount(1) != 3 {
		t.Fatalf("expected 3 tiles before discard, got %d", s.TileCount(1))
	}

	// Shrink the visible area to just the first tile.
	s.DiscardTilesOutsideVisibleArea(1, image.Rect(0, 0, 500, 500), tileSize)

	if s.TileCount(1) != 1 {
		t.Errorf("expected 1 tile left after discard, got %d", s.TileCount(1))
	}
	if _, ok := s.GetTile(1, tiling.Offset{X: 0, Y: 0}); !ok {
		t.Error("expected tile (0,0) to survive discard")
	}
}
