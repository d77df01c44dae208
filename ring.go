// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package rescache

import "github.com/gogpu/rescache/blob"

// deletedBlobKeysRing retains the blob keys deleted over the last
// three frames. An async rasterization job started before a delete can
// resolve after it; checking a completed job's key against this ring
// lets callers recognize and discard results for an image that no
// longer exists instead of resurrecting it in the blob store.
type deletedBlobKeysRing struct {
	slots [3][]blob.Key
}

// rotate drops the oldest slot and opens a new empty one at the back.
// Called once per BeginFrame.
func (r *deletedBlobKeysRing) rotate() {
	r.slots[0] = r.slots[1]
	r.slots[1] = r.slots[2]
	r.slots[2] = nil
}

// record appends key to the current (newest) slot.
func (r *deletedBlobKeysRing) record(key blob.Key) {
	r.slots[2] = append(r.slots[2], key)
}

// contains reports whether key was deleted within the last three
// frames.
func (r *deletedBlobKeysRing) contains(key blob.Key) bool {
	for _, slot := range r.slots {
		for _, k := range slot {
			if k == key {
				return true
			}
		}
	}
	return false
}
