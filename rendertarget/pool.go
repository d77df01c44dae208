// Package rendertarget implements the pooled off-screen render-target
// allocator: render tasks (blurs, masks, downscales) borrow a target
// sized for their output, return it when done, and the pool garbage
// collects targets that have sat unused for too long or are pushing
// total pool memory past its thresholds.
package rendertarget

import (
	"fmt"
	"sort"
	"sync"
)

// Config tunes the pool's garbage collector. A zero Config is replaced
// with DefaultConfig in NewPool.
type Config struct {
	// SoftThresholdBytes is the total pool size above which GC starts
	// reclaiming unused targets, oldest first.
	SoftThresholdBytes int64

	// RedLineBytes is the total pool size above which GC reclaims
	// unused targets regardless of how recently they were used.
	RedLineBytes int64

	// FramesThreshold is how many frames a target may sit unused
	// before it becomes eligible for GC even if the pool is under the
	// soft threshold.
	FramesThreshold uint64
}

// DefaultConfig matches the defaults spec.md's pool GC ships with.
func DefaultConfig() Config {
	return Config{
		SoftThresholdBytes: 64 << 20,
		RedLineBytes:       320 << 20,
		FramesThreshold:    60,
	}
}

// Handle names one target allocated from a Pool.
type Handle struct {
	id uint64
}

// IsValid reports whether h was returned by GetOrCreate.
func (h Handle) IsValid() bool { return h.id != 0 }

type target struct {
	id            uint64
	width, height int
	bytes         int64
	active        bool
	lastFrameUsed uint64
}

// Pool is a garbage-collected cache of off-screen render targets. It
// is not safe for concurrent use from multiple goroutines within one
// frame, matching the single-writer discipline the rest of this module
// follows; the internal mutex exists only to make accidental
// cross-goroutine access fail loudly rather than corrupt state.
type Pool struct {
	mu    sync.Mutex
	cfg   Config
	nextID uint64
	targets map[uint64]*target
	frame uint64
}

// NewPool builds a Pool. A zero cfg is replaced with DefaultConfig.
func NewPool(cfg Config) *Pool {
	if cfg.SoftThresholdBytes == 0 && cfg.RedLineBytes == 0 && cfg.FramesThreshold == 0 {
		cfg = DefaultConfig()
	}
	return &Pool{cfg: cfg, targets: make(map[uint64]*target)}
}

// BeginFrame advances the pool's notion of the current frame. GetOrCreate
// and GC both use this to stamp and judge target age.
func (p *Pool) BeginFrame(frameStamp uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.frame = frameStamp
}

// GetOrCreate reserves a target of the given size, allocating a new one
// (costing bytes) if none of the matching size is idle in the pool.
// The returned target is marked active until Return is called; calling
// GetOrCreate again for it before Return is a programming error.
func (p *Pool) GetOrCreate(width, height int, bytes int64) Handle {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, t := range p.targets {
		if !t.active && t.width == width && t.height == height {
			t.active = true
			t.lastFrameUsed = p.frame
			return Handle{id: t.id}
		}
	}

	p.nextID++
	t := &target{id: p.nextID, width: width, height: height, bytes: bytes, active: true, lastFrameUsed: p.frame}
	p.targets[t.id] = t
	return Handle{id: t.id}
}

// Return releases a target back to the pool for reuse or eventual GC.
// Returning a target that is not active is a programming error, matching
// the original's single-borrower invariant.
func (p *Pool) Return(h Handle) {
	p.mu.Lock()
	defer p.mu.Unlock()
	t, ok := p.targets[h.id]
	if !ok {
		return
	}
	if !t.active {
		panic(fmt.Sprintf("rendertarget: Return called on inactive target %d", h.id))
	}
	t.active = false
	t.lastFrameUsed = p.frame
}

// TotalBytes reports the pool's current aggregate byte footprint
// across both active and idle targets.
func (p *Pool) TotalBytes() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.totalBytesLocked()
}

func (p *Pool) totalBytesLocked() int64 {
	var total int64
	for _, t := range p.targets {
		total += t.bytes
	}
	return total
}

// GC frees idle targets according to the pool's two-threshold policy
// and returns the handles it freed. A target is eligible only if it is
// idle (Returned, not active) and was not touched during the current
// frame; among eligible targets (oldest last_frame_used first) it is
// freed if the pool is over the red line, over the soft threshold, or
// has simply sat unused for FramesThreshold frames or more — any one
// of those three conditions is enough once the target is idle and not
// from this frame.
func (p *Pool) GC() []Handle {
	p.mu.Lock()
	defer p.mu.Unlock()

	var candidates []*target
	for _, t := range p.targets {
		if t.active || t.lastFrameUsed == p.frame {
			continue
		}
		candidates = append(candidates, t)
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].lastFrameUsed < candidates[j].lastFrameUsed
	})

	running := p.totalBytesLocked()
	var freed []Handle
	for _, t := range candidates {
		age := p.frame - t.lastFrameUsed
		aboveRedLine := running > p.cfg.RedLineBytes
		aboveThreshold := running >= p.cfg.SoftThresholdBytes
		stale := age >= p.cfg.FramesThreshold
		if !(aboveRedLine || aboveThreshold || stale) {
			break
		}
		delete(p.targets, t.id)
		running -= t.bytes
		freed = append(freed, Handle{id: t.id})
	}
	return freed
}
