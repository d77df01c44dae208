// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package rescache

import (
	"image"

	"github.com/gogpu/rescache/rendertask"
	"github.com/gogpu/rescache/texcache"
)

// RequestRenderTask is request_render_task's passthrough, memoizing a
// render task chain by key across frames rather than rebuilding it and
// re-allocating its target every frame. If key is nil the task is not
// cached: makeTask runs unconditionally and its id is returned as-is.
// Otherwise a cache hit reuses the target handle the previous owner of
// key allocated instead of calling AllocRenderTarget again, still
// invoking makeTask to obtain a task id the caller's graph recognizes
// this frame (task-graph identity is rebuilt per frame by the
// embedder; only the underlying texture-cache target survives across
// frames here). Like RequestImage and RenderAsImage, this declares
// work for the frame and so runs during AddResources.
func (c *Cache) RequestRenderTask(key *rendertask.CacheKey, size image.Point, isOpaque bool, shader texcache.TargetShader, makeTask func() rendertask.TaskID) (rendertask.TaskID, error) {
	c.assertState("RequestRenderTask", AddResources)

	taskID := makeTask()
	if key == nil {
		return taskID, nil
	}

	handle, hit := c.taskCache.Lookup(*key)
	if !hit {
		handle = c.texCache.AllocRenderTarget(size.X, size.Y, shader)
		c.taskCache.Insert(*key, handle)
	}

	if c.graph != nil {
		if task, ok := c.graph.GetTaskMut(taskID); ok {
			item, _ := c.texCache.TryGet(handle)
			task.Location = rendertask.Location{Target: handle, Rect: item.UVRect}
		}
	}
	return taskID, nil
}

// AddSnapshotImage registers a snapshot-backed image template: one
// whose pixels are produced by a later RenderAsImage call rather than
// supplied directly. Its descriptor stays the zero ImageDescriptor;
// RenderAsImage sizes the render-target slot it allocates from its own
// arguments and does not update the descriptor.
func (c *Cache) AddSnapshotImage(key ImageKey) error {
	c.assertState("AddSnapshotImage", AddResources)
	return c.templates.Add(key, ImageDescriptor{}, NewSnapshotImageData(), nil)
}

// DeleteSnapshotImage is DeleteImage for a snapshot image; kept
// separate only for API symmetry with AddSnapshotImage.
func (c *Cache) DeleteSnapshotImage(key SnapshotImageKey) {
	c.assertState("DeleteSnapshotImage", AddResources)
	c.DeleteImage(key.AsImage())
}

// RenderAsImage binds a stacking-context render task's output into the
// image-key space so later GetCachedImage calls for key resolve to
// whatever that task draws. makeTask builds (or looks up) the task
// producing the pixels and returns its id. Like RequestImage, it is
// part of declaring what the scene traversal will draw and so runs
// during AddResources, before BlockUntilAllResourcesAdded uploads
// everything pending and opens the QueryResources phase that
// GetCachedImage reads from.
func (c *Cache) RenderAsImage(key SnapshotImageKey, size image.Point, isOpaque bool, adjustment [4]float32, makeTask func() rendertask.TaskID) error {
	c.assertState("RenderAsImage", AddResources)
	imgKey := key.AsImage()

	result := c.cachedImages.EnsureEntry(imgKey, func() *ImageResult {
		return NewUntiledAutoResult(CachedImageInfo{ManualEviction: true})
	})
	if result.IsErr() {
		return result.Err()
	}
	info, err := result.EntryFor(autoKey, func() CachedImageInfo { return CachedImageInfo{ManualEviction: true} })
	if err != nil {
		return err
	}

	if info.Handle.IsValid() {
		c.texCache.EvictHandle(info.Handle)
	}
	info.Handle = c.texCache.AllocRenderTarget(size.X, size.Y, texcache.TargetShaderDefault)
	info.DirtyRect = image.Rectangle{}

	taskID := makeTask()
	if c.graph != nil {
		if task, ok := c.graph.GetTaskMut(taskID); ok {
			item, _ := c.texCache.TryGet(info.Handle)
			task.Location = rendertask.Location{Target: info.Handle, Rect: item.UVRect}
		}
	}

	c.templates.setUserData(imgKey, adjustment)
	return nil
}
