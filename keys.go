// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package rescache

import "fmt"

// Namespace groups every key created by one display-list-building
// session (typically one scene/document). ClearNamespace releases
// every resource stamped with a given Namespace in one call.
type Namespace uint32

// ImageKey identifies one registered image template.
type ImageKey struct {
	Namespace Namespace
	ID        uint32
}

func (k ImageKey) String() string {
	return fmt.Sprintf("ImageKey(%d:%d)", k.Namespace, k.ID)
}

// BlobImageKey identifies one registered blob (vector recording)
// image template. It wraps an ImageKey because a blob image shares the
// same namespace/id allocation space as raster images; AsImage
// recovers that underlying key for APIs that operate on images
// generically regardless of storage kind.
type BlobImageKey struct {
	ImageKey ImageKey
}

// AsImage projects a BlobImageKey down to the ImageKey it wraps.
func (k BlobImageKey) AsImage() ImageKey { return k.ImageKey }

// SnapshotImageKey identifies one registered snapshot image: a cached
// image whose pixels are produced by rendering a picture rather than
// being supplied directly.
type SnapshotImageKey struct {
	ImageKey ImageKey
}

// AsImage projects a SnapshotImageKey down to the ImageKey it wraps.
func (k SnapshotImageKey) AsImage() ImageKey { return k.ImageKey }

// FontKey identifies one registered font file.
type FontKey struct {
	Namespace Namespace
	ID        uint32
}

// FontInstanceKey identifies one (font, size, render options) tuple
// derived from a FontKey.
type FontInstanceKey struct {
	Namespace Namespace
	ID        uint32
}
