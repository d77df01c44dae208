package texcache

import "image"

// TextureCache is the collaborator the core cache drives every frame.
// Implementations are not required to be safe for concurrent use; the
// core cache calls into it only from its single frame-owning goroutine,
// the same single-writer discipline the core cache itself follows.
type TextureCache interface {
	// BeginFrame marks the start of frameStamp, aging entries for the
	// eviction pass EndFrame will perform.
	BeginFrame(frameStamp uint64)

	// EndFrame runs eviction for entries not touched by Request since
	// the matching BeginFrame and returns the set of uploads the
	// render backend must perform before drawing frameStamp.
	EndFrame(frameStamp uint64) []PendingUpdate

	// Update uploads (or re-uploads, if dirtyRect is non-nil and handle
	// is already valid) data into the entry named by handle, allocating
	// a new entry when handle is the zero Handle. It returns the
	// (possibly new) handle for the entry.
	Update(handle Handle, desc Descriptor, filter Filter, eviction Eviction, data []byte, dirtyRect *image.Rectangle) Handle

	// Request marks handle as needed by the frame currently being
	// built, preventing it from being evicted by the next EndFrame, and
	// reports whether its pixel data must still be uploaded.
	Request(handle Handle) bool

	// TryGet reports the cache item for handle, or false if handle
	// names an entry that has been evicted or never existed.
	TryGet(handle Handle) (CacheItem, bool)

	// Get is TryGet but panics if handle does not resolve; callers use
	// it only where the handle's continued validity is an invariant,
	// matching the original's "doesn't exist" panic path.
	Get(handle Handle) CacheItem

	// GetCacheLocation reports the same data as TryGet/Get without
	// requiring a full CacheItem round-trip when only placement is
	// needed (used by compositor native-surface attachment).
	GetCacheLocation(handle Handle) (CacheItem, bool)

	// EvictHandle immediately drops a Manual-eviction entry. Calling it
	// on an Auto entry is a no-op; calling it twice on the same handle
	// is a no-op.
	EvictHandle(handle Handle)

	// AllocRenderTarget reserves a texture-cache-backed render target
	// of the given size and shader kind, for use by the render task
	// graph builder.
	AllocRenderTarget(width, height int, shader TargetShader) Handle

	// FreeRenderTarget releases a target previously returned by
	// AllocRenderTarget back to the pool it came from.
	FreeRenderTarget(handle Handle)

	// PendingUpdates drains and returns uploads queued since the last
	// call, without waiting for EndFrame (used for synchronous
	// BlockUntilAllResourcesAdded draining).
	PendingUpdates() []PendingUpdate

	// ClearAll evicts every entry regardless of eviction policy,
	// matching a full Cache.Clear.
	ClearAll()

	// RunCompaction gives the implementation an opportunity to defrag
	// or release unused backing storage; a no-op is a valid
	// implementation.
	RunCompaction()

	// IsAllowedInSharedCache reports whether an entry with this filter
	// and size could ever be placed in the shared atlas rather than a
	// standalone texture, without actually allocating it. The core
	// cache consults this when deciding whether an oversized, mipmap-
	// eligible image qualifies for the Trilinear upload filter (4.2):
	// an item too large for the shared atlas gets its own texture
	// regardless, so the minification cost Trilinear exists to amortise
	// is worth paying.
	IsAllowedInSharedCache(filter Filter, desc Descriptor) bool
}
