package rendertarget

import "testing"

// seed returns a Handle for a target whose last_frame_used is frame,
// by advancing the pool to frame, allocating, and immediately
// returning it.
func seed(t *testing.T, p *Pool, frame uint64, w, h int, bytes int64) Handle {
	t.Helper()
	p.BeginFrame(frame)
	handle := p.GetOrCreate(w, h, bytes)
	p.Return(handle)
	return handle
}

func TestPoolGCDropsTwoOldest(t *testing.T) {
	cfg := Config{SoftThresholdBytes: 64 << 20, RedLineBytes: 320 << 20, FramesThreshold: 60}
	p := NewPool(cfg)

	const sizeEach = 16 << 20 // 80 MiB / 5 targets
	frames := []uint64{40, 45, 90, 95}
	handles := make([]Handle, len(frames))
	// Each target gets its own width so GetOrCreate cannot hand back an
	// idle target of the same size and collapse the five into one.
	for i, f := range frames {
		handles[i] = seed(t, p, f, 100+i, 100, sizeEach)
	}
	// Fifth target is used in the current frame itself.
	p.BeginFrame(100)
	active := p.GetOrCreate(100+len(frames), 100, sizeEach)
	p.Return(active)

	if got := p.TotalBytes(); got != 80<<20 {
		t.Fatalf("expected pool at 80 MiB before GC, got %d", got)
	}

	freed := p.GC()
	if len(freed) != 2 {
		t.Fatalf("expected 2 targets freed, got %d", len(freed))
	}
	freedSet := map[Handle]bool{freed[0]: true, freed[1]: true}
	if !freedSet[handles[0]] || !freedSet[handles[1]] {
		t.Errorf("expected the two oldest targets (frames 40, 45) to be freed, got %v", freed)
	}

	if got := p.TotalBytes(); got != 48<<20 {
		t.Errorf("expected 48 MiB remaining after GC, got %d", got)
	}
}

func TestPoolGCNeverDropsActiveOrThisFrameTarget(t *testing.T) {
	cfg := DefaultConfig()
	p := NewPool(cfg)

	p.BeginFrame(1)
	stale := p.GetOrCreate(10, 10, 1<<20)
	p.Return(stale)

	p.BeginFrame(1000) // age 999, well past FramesThreshold
	active := p.GetOrCreate(20, 20, 1<<20)
	// active is not returned: it must never be GC'd.

	thisFrame := p.GetOrCreate(30, 30, 1<<20)
	p.Return(thisFrame) // returned, but used this very frame

	freed := p.GC()
	freedSet := map[Handle]bool{}
	for _, h := range freed {
		freedSet[h] = true
	}
	if !freedSet[stale] {
		t.Error("expected the long-idle target to be freed")
	}
	if freedSet[active] {
		t.Error("expected the still-checked-out target to survive GC")
	}
	if freedSet[thisFrame] {
		t.Error("expected the target used this frame to survive GC")
	}
}

func TestPoolReturnInactivePanics(t *testing.T) {
	p := NewPool(Config{})
	h := p.GetOrCreate(10, 10, 1024)
	p.Return(h)

	defer func() {
		if recover() == nil {
			t.Error("expected panic on double Return")
		}
	}()
	p.Return(h)
}

func TestPoolGetOrCreateReusesIdleTarget(t *testing.T) {
	p := NewPool(Config{})
	h1 := p.GetOrCreate(64, 64, 4096)
	p.Return(h1)
	h2 := p.GetOrCreate(64, 64, 4096)
	if h1 != h2 {
		t.Error("expected an idle target of matching size to be reused")
	}
}
