package rendertask

import (
	"image"
	"testing"

	"github.com/gogpu/rescache/texcache"
)

func TestSimpleGraphGetTaskMutRewritesLocation(t *testing.T) {
	g := NewSimpleGraph()
	g.AddTask(1)

	task, ok := g.GetTaskMut(1)
	if !ok {
		t.Fatal("expected task 1 to exist")
	}
	task.Location = Location{Rect: image.Rect(0, 0, 64, 64)}

	task2, ok := g.GetTaskMut(1)
	if !ok || task2.Location.Rect.Dx() != 64 {
		t.Fatal("expected mutation through GetTaskMut to be visible on the next lookup")
	}
}

func TestSimpleGraphUnknownTask(t *testing.T) {
	g := NewSimpleGraph()
	if _, ok := g.GetTaskMut(99); ok {
		t.Error("expected unknown task id to report false")
	}
}

func TestLocationZeroValue(t *testing.T) {
	var l Location
	if l.Target.IsValid() {
		t.Error("expected zero-value Location to carry an invalid handle")
	}
	_ = texcache.Handle{}
}
