// Package surfaceops queues the operations the resource cache asks a
// native compositor to perform on its off-screen surfaces: creating
// and destroying surfaces and their tiles, and attaching external
// images to a tile for direct compositor presentation. The queue is
// drained once per frame by the embedder's compositor integration.
package surfaceops

import (
	"sync"
	"sync/atomic"
)

// nextSurfaceID is process-wide so surface ids never collide across
// independently constructed Queues, matching the original's single
// global id counter for native surfaces.
var nextSurfaceID atomic.Uint64

// SurfaceID names one native compositor surface.
type SurfaceID uint64

func allocSurfaceID() SurfaceID {
	return SurfaceID(nextSurfaceID.Add(1))
}

// TileAddress names one tile of a tiled surface, in tile units.
type TileAddress struct {
	Surface SurfaceID
	X, Y    int
}

// Kind identifies which compositor operation an Op describes.
type Kind uint8

const (
	OpCreateSurface Kind = iota
	OpCreateExternalSurface
	OpCreateBackdropSurface
	OpDestroySurface
	OpCreateTile
	OpDestroyTile
	OpAttachExternalImage
)

// Op is one queued compositor operation. Only the fields relevant to
// Kind are populated.
type Op struct {
	Kind            Kind
	Surface         SurfaceID
	Tile            TileAddress
	IsOpaque        bool
	ExternalImageID uint64
	BackdropColor   [4]float32
}

// Queue accumulates compositor operations for one frame. Callers
// append through its methods and drain the batch with Drain once the
// frame's surface updates are finalized.
type Queue struct {
	mu  sync.Mutex
	ops []Op
}

// globalQueue is the default queue most callers use, mirroring
// surface.Register's package-level default-registry pattern.
var globalQueue = NewQueue()

// NewQueue builds an empty Queue. Most code should use the
// package-level functions, which delegate to a shared default queue.
func NewQueue() *Queue {
	return &Queue{}
}

// CreateSurface queues creation of a new tiled surface and returns its
// id for subsequent CreateTile/AttachExternalImage/DestroySurface
// calls.
func CreateSurface(isOpaque bool) SurfaceID { return globalQueue.CreateSurface(isOpaque) }

// CreateExternalSurface queues creation of a surface backed entirely
// by an externally-owned image (no tiles of its own).
func CreateExternalSurface(externalImageID uint64) SurfaceID {
	return globalQueue.CreateExternalSurface(externalImageID)
}

// CreateBackdropSurface queues creation of a solid-color surface used
// as a compositor-native background fill.
func CreateBackdropSurface(color [4]float32) SurfaceID {
	return globalQueue.CreateBackdropSurface(color)
}

// DestroySurface queues destruction of a surface and all its tiles.
func DestroySurface(id SurfaceID) { globalQueue.DestroySurface(id) }

// CreateTile queues creation of one tile of a tiled surface.
func CreateTile(surface SurfaceID, x, y int) { globalQueue.CreateTile(surface, x, y) }

// DestroyTile queues destruction of one tile.
func DestroyTile(surface SurfaceID, x, y int) { globalQueue.DestroyTile(surface, x, y) }

// AttachExternalImage queues binding an externally-owned image to one
// tile of surface for direct compositor presentation.
func AttachExternalImage(surface SurfaceID, x, y int, externalImageID uint64) {
	globalQueue.AttachExternalImage(surface, x, y, externalImageID)
}

// Drain returns and clears the default queue's pending operations.
func Drain() []Op { return globalQueue.Drain() }

func (q *Queue) CreateSurface(isOpaque bool) SurfaceID {
	q.mu.Lock()
	defer q.mu.Unlock()
	id := allocSurfaceID()
	q.ops = append(q.ops, Op{Kind: OpCreateSurface, Surface: id, IsOpaque: isOpaque})
	return id
}

func (q *Queue) CreateExternalSurface(externalImageID uint64) SurfaceID {
	q.mu.Lock()
	defer q.mu.Unlock()
	id := allocSurfaceID()
	q.ops = append(q.ops, Op{Kind: OpCreateExternalSurface, Surface: id, ExternalImageID: externalImageID})
	return id
}

func (q *Queue) CreateBackdropSurface(color [4]float32) SurfaceID {
	q.mu.Lock()
	defer q.mu.Unlock()
	id := allocSurfaceID()
	q.ops = append(q.ops, Op{Kind: OpCreateBackdropSurface, Surface: id, BackdropColor: color})
	return id
}

func (q *Queue) DestroySurface(id SurfaceID) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.ops = append(q.ops, Op{Kind: OpDestroySurface, Surface: id})
}

func (q *Queue) CreateTile(surface SurfaceID, x, y int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.ops = append(q.ops, Op{Kind: OpCreateTile, Surface: surface, Tile: TileAddress{Surface: surface, X: x, Y: y}})
}

func (q *Queue) DestroyTile(surface SurfaceID, x, y int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.ops = append(q.ops, Op{Kind: OpDestroyTile, Surface: surface, Tile: TileAddress{Surface: surface, X: x, Y: y}})
}

func (q *Queue) AttachExternalImage(surface SurfaceID, x, y int, externalImageID uint64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.ops = append(q.ops, Op{
		Kind:            OpAttachExternalImage,
		Surface:         surface,
		Tile:            TileAddress{Surface: surface, X: x, Y: y},
		ExternalImageID: externalImageID,
	})
}

// Drain returns every operation queued since the last Drain and clears
// the queue.
func (q *Queue) Drain() []Op {
	q.mu.Lock()
	defer q.mu.Unlock()
	ops := q.ops
	q.ops = nil
	return ops
}
