package rendertask

import (
	"image"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/rescache/texcache"
)

func testHandle(t *testing.T) texcache.Handle {
	t.Helper()
	tc := texcache.NewMemCache(texcache.MemCacheConfig{})
	desc := texcache.Descriptor{Width: 8, Height: 8, Format: gputypes.TextureFormatRGBA8Unorm}
	return tc.Update(texcache.Handle{}, desc, texcache.FilterLinear, texcache.EvictionManual, make([]byte, 8*8*4), nil)
}

func TestCacheLookupMissThenHitReturnsSameHandle(t *testing.T) {
	c := NewCache()
	c.BeginFrame(1)
	key := CacheKey{Key: 7, Size: image.Point{X: 64, Y: 64}}

	if _, hit := c.Lookup(key); hit {
		t.Fatal("expected a miss before any Insert")
	}

	handle := testHandle(t)
	c.Insert(key, handle)

	got, hit := c.Lookup(key)
	if !hit {
		t.Fatal("expected a hit after Insert")
	}
	if got != handle {
		t.Errorf("Lookup = %v, want %v", got, handle)
	}
}

func TestCacheDistinctKeysDoNotAlias(t *testing.T) {
	c := NewCache()
	c.BeginFrame(1)
	a := CacheKey{Key: 1, Size: image.Point{X: 32, Y: 32}}
	b := CacheKey{Key: 1, Size: image.Point{X: 64, Y: 64}}

	c.Insert(a, testHandle(t))
	if _, hit := c.Lookup(b); hit {
		t.Error("expected a different Size to produce a distinct key")
	}
}

func TestCacheResetClearsEntries(t *testing.T) {
	c := NewCache()
	c.BeginFrame(1)
	key := CacheKey{Key: 3}
	c.Insert(key, testHandle(t))

	c.Reset()

	if _, hit := c.Lookup(key); hit {
		t.Error("expected Reset to drop every memoized entry")
	}
}
