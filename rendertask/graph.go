// Package rendertask defines the minimal contract the resource cache
// needs from a render-task graph builder: looking up a task by id and
// rewriting where its output will land. Building or executing the
// graph itself belongs to the renderer, not the resource cache.
package rendertask

import (
	"image"
	"sync"

	"github.com/gogpu/rescache/texcache"
)

// TaskID names one node in the render task graph.
type TaskID uint64

// Location describes where a render task's output pixels will live:
// either a texture-cache-backed render target and the sub-rectangle
// within it, or, for a task whose output is a direct snapshot into an
// existing cache entry, a handle with no further indirection.
type Location struct {
	Target texcache.Handle
	Rect   image.Rectangle
}

// Task is one node the cache can point at a render target once it has
// allocated (or reused) one for it.
type Task struct {
	Location Location
}

// GraphBuilder is the contract a render-task graph builder exposes to
// the resource cache: looking up a task by id so RenderAsImage can
// rewrite its output location to the target it just allocated.
type GraphBuilder interface {
	// GetTaskMut returns a pointer to the task named by id for
	// in-place mutation, or false if id is unknown to the graph being
	// built this frame.
	GetTaskMut(id TaskID) (*Task, bool)
}

// SimpleGraph is a minimal in-memory GraphBuilder, useful for tests
// and for embedders that build one task graph per frame from scratch.
type SimpleGraph struct {
	mu    sync.Mutex
	tasks map[TaskID]*Task
}

// NewSimpleGraph builds an empty SimpleGraph.
func NewSimpleGraph() *SimpleGraph {
	return &SimpleGraph{tasks: make(map[TaskID]*Task)}
}

// AddTask registers a new task under id, overwriting any existing task
// with that id.
func (g *SimpleGraph) AddTask(id TaskID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.tasks[id] = &Task{}
}

func (g *SimpleGraph) GetTaskMut(id TaskID) (*Task, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	t, ok := g.tasks[id]
	return t, ok
}
