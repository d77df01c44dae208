// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package rescache implements the resource cache for a retained-mode 2D
// rendering engine: the per-frame template and cached-image state
// tables an embedder uses to register images, fonts, and blob/snapshot
// resources, and the frame-phase driver that turns pending requests
// into texture-cache uploads and render-target allocations.
//
// Cache is not safe for concurrent use. Every method must be called
// from the single goroutine building a frame; the frame state machine
// (Idle -> AddResources -> QueryResources -> Idle) is enforced with
// assertions, not a mutex, the same single-writer discipline the
// system it's modeled on uses.
//
// The glyph rasterizer, the GPU texture cache/atlas, the render-task
// graph, the blob rasterizer, and the font instance store are external
// collaborators: Cache only consumes the contracts they expose, in the
// texcache, glyph, blob, and rendertask packages.
package rescache
