// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package rescache

// FrameState is the cache's current phase within the
// Idle -> AddResources -> QueryResources -> Idle cycle. Every method
// that advances the phase asserts the phase it requires; a mismatch
// panics with a *StateError rather than silently proceeding, matching
// the original's debug_assert_eq!(self.state, ...) gating.
type FrameState uint8

const (
	// Idle is the state between frames. BeginFrame is the only valid
	// call.
	Idle FrameState = iota

	// AddResources is entered by BeginFrame. Template mutation
	// (AddImage/UpdateImage/DeleteImage/AddFont/...) and declaring what
	// the scene traversal will draw (RequestImage/RenderAsImage/
	// RequestRenderTask) happen here; BlockUntilAllResourcesAdded
	// uploads everything pending and transitions to QueryResources.
	AddResources

	// QueryResources is entered by BlockUntilAllResourcesAdded.
	// GetCachedImage/FetchGlyphs happen here, reading back what the
	// upload pass just resolved; EndFrame transitions back to Idle.
	QueryResources
)

func (s FrameState) String() string {
	switch s {
	case Idle:
		return "Idle"
	case AddResources:
		return "AddResources"
	case QueryResources:
		return "QueryResources"
	default:
		return "Unknown"
	}
}

func (c *Cache) assertState(method string, expected FrameState) {
	if c.state != expected {
		panic(&StateError{Method: method, Expected: expected, Actual: c.state})
	}
}
