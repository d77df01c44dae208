package tiling

import (
	"image"
	"testing"
)

func TestClampTileSize(t *testing.T) {
	cases := []struct {
		in, want int
	}{
		{0, MinTileSize},
		{8, MinTileSize},
		{16, 16},
		{512, 512},
		{2048, 2048},
		{4096, MaxTileSize},
		{-5, MinTileSize},
	}
	for _, c := range cases {
		if got := ClampTileSize(c.in); got != c.want {
			t.Errorf("ClampTileSize(%d) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestShouldTile(t *testing.T) {
	cases := []struct {
		name           string
		w, h           int
		kind           DataKind
		threshold      int
		want           bool
	}{
		{"raw under threshold", 100, 100, DataRaw, 256, false},
		{"raw over threshold", 4096, 4096, DataRaw, 2048, true},
		{"blob over threshold", 4096, 100, DataBlob, 2048, true},
		{"external buffer over threshold", 4096, 4096, DataExternalBuffer, 2048, true},
		{"external texture handle never tiles", 8192, 8192, DataExternalTextureHandle, 2048, false},
		{"snapshot never tiles", 8192, 8192, DataSnapshot, 2048, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := ShouldTile(c.threshold, c.w, c.h, c.kind); got != c.want {
				t.Errorf("ShouldTile(%d,%d,%d,%v) = %v, want %v", c.threshold, c.w, c.h, c.kind, got, c.want)
			}
		})
	}
}

func TestComputeTileSize(t *testing.T) {
	visible := image.Rect(0, 0, 4096, 4096)

	// Interior tile: full tileSize square.
	got := ComputeTileSize(visible, 512, Offset{X: 1, Y: 0})
	want := image.Rect(512, 0, 1024, 512)
	if got != want {
		t.Errorf("interior tile = %v, want %v", got, want)
	}

	// Trailing edge tile clipped by a non-multiple visible rect.
	visible2 := image.Rect(0, 0, 4100, 4100)
	got2 := ComputeTileSize(visible2, 4096, Offset{X: 1, Y: 0})
	want2 := image.Rect(4096, 0, 4100, 4096)
	if got2 != want2 {
		t.Errorf("edge tile = %v, want %v", got2, want2)
	}
}

func TestComputeTileRangeAndContains(t *testing.T) {
	area := image.Rect(100, 100, 1200, 700)
	min, max := ComputeTileRange(area, 512)
	if min != (Offset{0, 0}) {
		t.Errorf("min = %v, want {0 0}", min)
	}
	if max != (Offset{2, 1}) {
		t.Errorf("max = %v, want {2 1}", max)
	}
	if !RangeContains(min, max, Offset{1, 1}) {
		t.Error("expected (1,1) to be within range")
	}
	if RangeContains(min, max, Offset{3, 0}) {
		t.Error("expected (3,0) to be outside range")
	}
}

func TestComputeTileRangeEmpty(t *testing.T) {
	min, max := ComputeTileRange(image.Rectangle{}, 512)
	if RangeContains(min, max, Offset{0, 0}) {
		t.Error("empty area should contain no tiles")
	}
}

func TestClipDirtyRectToTile(t *testing.T) {
	visible := image.Rect(0, 0, 1024, 1024)

	// Dirty rect spanning tiles (0,0) and (1,0); for tile (1,0) it
	// should clip to local [0, 10).
	dirty := image.Rect(0, 0, 522, 10)
	got := ClipDirtyRectToTile(dirty, 512, Offset{X: 1, Y: 0}, visible)
	want := image.Rect(0, 0, 10, 10)
	if got != want {
		t.Errorf("tile(1,0) clip = %v, want %v", got, want)
	}

	// A dirty rect entirely outside the tile clips to empty.
	got2 := ClipDirtyRectToTile(image.Rect(0, 0, 5, 5), 512, Offset{X: 1, Y: 0}, visible)
	if !got2.Empty() {
		t.Errorf("expected empty clip, got %v", got2)
	}
}
