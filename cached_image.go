// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package rescache

import (
	"image"
	"sync"

	"github.com/gogpu/rescache/texcache"
	"github.com/gogpu/rescache/tiling"
)

// TileAddress is an optional tile offset: the zero value (HasTile ==
// false) means "the whole image, untiled", matching a request's tile
// field being None.
type TileAddress struct {
	HasTile bool
	Offset  tiling.Offset
}

// CachedImageKey distinguishes the texture-cache entries a single
// ImageKey can fan out into: one per (rendering quality, tile)
// combination actually requested. Most images are requested only as
// {RenderingAuto, no tile} and never fan out at all.
type CachedImageKey struct {
	Rendering ImageRendering
	Tile      TileAddress
}

// autoKey is the CachedImageKey an UntiledAuto entry's handle is kept
// under once a differently-keyed request forces migration to Multi.
// It is also exactly the key a bare ImageRequest{} produces, so the
// first, untiled request and the post-migration lookup agree.
var autoKey = CachedImageKey{Rendering: RenderingAuto, Tile: TileAddress{}}

// ImageRequest names one concrete rendering of an image template: the
// template to read, the quality to render it at, and (for a tiled
// template) which tile.
type ImageRequest struct {
	Key       ImageKey
	Rendering ImageRendering
	Tile      *tiling.Offset
}

// CacheKey projects a request down to the CachedImageKey its resulting
// CachedImageInfo is stored under.
func (r ImageRequest) CacheKey() CachedImageKey {
	key := CachedImageKey{Rendering: r.Rendering}
	if r.Tile != nil {
		key.Tile = TileAddress{HasTile: true, Offset: *r.Tile}
	}
	return key
}

// CachedImageInfo is what a request resolves to once its pixels have
// (or will) live in the texture cache.
type CachedImageInfo struct {
	Handle texcache.Handle

	// DirtyRect is the sub-rect of this variant still needing upload,
	// in the variant's own local coordinates (tile-local for a Multi
	// entry, template-space for UntiledAuto). Empty means fully
	// uploaded.
	DirtyRect image.Rectangle

	// ManualEviction mirrors the handle's texcache.Eviction policy:
	// true for blob and snapshot images. A Manual entry must have its
	// handle evicted before this struct is discarded; DeleteImage and
	// the Multi-eviction paths in cache.go both honor this.
	ManualEviction bool
}

type imageResultKind uint8

const (
	resultUntiledAuto imageResultKind = iota
	resultMulti
	resultErr
)

// ImageResult is the tagged union of a template's current cached-image
// state: a single untiled entry, a set of per-(rendering,tile)
// entries, or a pinned error (over-limit size). Once an entry becomes
// Multi it never reverts to UntiledAuto; a zero ImageResult is not
// valid, use NewUntiledAutoResult/NewErrResult.
type ImageResult struct {
	kind  imageResultKind
	auto  CachedImageInfo
	multi map[CachedImageKey]*CachedImageInfo
	err   error
}

func NewUntiledAutoResult(info CachedImageInfo) *ImageResult {
	return &ImageResult{kind: resultUntiledAuto, auto: info}
}

func NewErrResult(err error) *ImageResult {
	return &ImageResult{kind: resultErr, err: err}
}

// IsErr reports whether this entry is pinned to an error state.
func (r *ImageResult) IsErr() bool { return r.kind == resultErr }

// Err returns the pinned error, or nil if IsErr is false.
func (r *ImageResult) Err() error { return r.err }

// EntryFor returns the CachedImageInfo stored under key, migrating an
// UntiledAuto result to Multi in place the first time a request with a
// different key arrives. create builds a fresh CachedImageInfo the
// first time this exact key is seen inside a Multi result; it is not
// called for the initial UntiledAuto entry or during migration, since
// both of those preserve the existing handle rather than creating one.
func (r *ImageResult) EntryFor(key CachedImageKey, create func() CachedImageInfo) (*CachedImageInfo, error) {
	if r.kind == resultErr {
		return nil, r.err
	}

	if r.kind == resultUntiledAuto {
		if key == autoKey {
			return &r.auto, nil
		}
		preserved := r.auto
		r.multi = map[CachedImageKey]*CachedImageInfo{autoKey: &preserved}
		r.kind = resultMulti
		r.auto = CachedImageInfo{}
	}

	info, ok := r.multi[key]
	if !ok {
		v := create()
		info = &v
		r.multi[key] = info
	}
	return info, nil
}

// Peek returns the CachedImageInfo already stored under key without
// creating one or migrating UntiledAuto to Multi, for read-only
// callers (GetCachedImage) that must not mutate state a matching
// RequestImage never established.
func (r *ImageResult) Peek(key CachedImageKey) (*CachedImageInfo, error) {
	if r.kind == resultErr {
		return nil, r.err
	}
	if r.kind == resultUntiledAuto {
		if key == autoKey {
			return &r.auto, nil
		}
		return nil, nil
	}
	return r.multi[key], nil
}

// AllInfos returns every CachedImageInfo this result currently holds,
// for callers (DeleteImage, namespace clearing) that must evict every
// manual handle a template's cached state accumulated regardless of
// how many variants it fanned out into.
func (r *ImageResult) AllInfos() []*CachedImageInfo {
	switch r.kind {
	case resultUntiledAuto:
		return []*CachedImageInfo{&r.auto}
	case resultMulti:
		out := make([]*CachedImageInfo, 0, len(r.multi))
		for _, v := range r.multi {
			out = append(out, v)
		}
		return out
	default:
		return nil
	}
}

// CachedImageTable holds one ImageResult per ImageKey that has been
// requested, plus an error result for any key AddImage or UpdateImage
// pinned to ErrOverLimitSize (templates that exist but were never
// requested and carry no pinned error have no entry here yet).
type CachedImageTable struct {
	mu    sync.Mutex
	byKey map[ImageKey]*ImageResult
}

func NewCachedImageTable() *CachedImageTable {
	return &CachedImageTable{byKey: make(map[ImageKey]*ImageResult)}
}

// Get returns key's ImageResult, or false if key has no entry (never
// requested and no pinned error).
func (t *CachedImageTable) Get(key ImageKey) (*ImageResult, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	r, ok := t.byKey[key]
	return r, ok
}

// EnsureEntry returns key's existing ImageResult, or installs and
// returns the result of init if none exists yet.
func (t *CachedImageTable) EnsureEntry(key ImageKey, init func() *ImageResult) *ImageResult {
	t.mu.Lock()
	defer t.mu.Unlock()
	r, ok := t.byKey[key]
	if !ok {
		r = init()
		t.byKey[key] = r
	}
	return r
}

// SetErr pins key's entry to an error state, replacing whatever was
// there. Callers evict any handles the replaced entry held before
// calling this.
func (t *CachedImageTable) SetErr(key ImageKey, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.byKey[key] = NewErrResult(err)
}

// Delete removes and returns key's entry, for the caller to release
// any handles it held.
func (t *CachedImageTable) Delete(key ImageKey) (*ImageResult, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	r, ok := t.byKey[key]
	if ok {
		delete(t.byKey, key)
	}
	return r, ok
}
