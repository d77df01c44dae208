package texcache

import "image"

// shelf is one horizontal band of a shelfAllocator.
type shelf struct {
	y      int
	height int
	nextX  int
}

// shelfAllocator packs rectangles into a fixed-size area using the
// shelf-packing algorithm: items are placed left to right on the
// current shelf until one doesn't fit, at which point a new shelf
// starts below the tallest item seen on the current one. It never
// reclaims freed rectangles; MemCache rebuilds a fresh allocator on
// ClearAll instead of trying to compact it.
type shelfAllocator struct {
	width, height int
	shelves       []*shelf
	padding       int
}

func newShelfAllocator(width, height int) *shelfAllocator {
	return &shelfAllocator{width: width, height: height, padding: 1}
}

// Allocate reserves a width x height rectangle, returning its location
// within the atlas and true, or the zero rectangle and false if there
// is no room left on any shelf.
func (a *shelfAllocator) Allocate(width, height int) (image.Rectangle, bool) {
	if width <= 0 || height <= 0 {
		return image.Rectangle{}, false
	}
	pw, ph := width+a.padding, height+a.padding
	if pw > a.width || ph > a.height {
		return image.Rectangle{}, false
	}

	for _, s := range a.shelves {
		if s.height >= ph && s.nextX+pw <= a.width {
			x := s.nextX
			s.nextX += pw
			return image.Rect(x, s.y, x+width, s.y+height), true
		}
	}

	y := 0
	if n := len(a.shelves); n > 0 {
		last := a.shelves[n-1]
		y = last.y + last.height
	}
	if y+ph > a.height {
		return image.Rectangle{}, false
	}
	s := &shelf{y: y, height: ph, nextX: pw}
	a.shelves = append(a.shelves, s)
	return image.Rect(0, y, width, y+height), true
}

// Fits reports whether a width x height rectangle could ever be placed
// in this atlas, without mutating any shelf state. It is the same
// dimension precheck Allocate performs before walking its shelves, so
// callers that only need a yes/no answer (IsAllowedInSharedCache) don't
// have to reserve space to get it.
func (a *shelfAllocator) Fits(width, height int) bool {
	if width <= 0 || height <= 0 {
		return false
	}
	return width+a.padding <= a.width && height+a.padding <= a.height
}
