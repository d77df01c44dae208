// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package rescache

import "github.com/gogpu/gputypes"

// PixelFormat is the pixel layout of an image template's source data,
// independent of how it ends up packed in the texture cache.
type PixelFormat uint8

const (
	PixelFormatRGBA8 PixelFormat = iota
	PixelFormatBGRA8
	PixelFormatR8
)

// BytesPerPixel reports the storage size of one pixel in this format.
func (f PixelFormat) BytesPerPixel() int {
	switch f {
	case PixelFormatR8:
		return 1
	case PixelFormatRGBA8, PixelFormatBGRA8:
		return 4
	default:
		return 4
	}
}

// ToTextureFormat maps a PixelFormat to the GPU-facing texture format
// the texture cache should upload it as.
func (f PixelFormat) ToTextureFormat() gputypes.TextureFormat {
	switch f {
	case PixelFormatR8:
		return gputypes.TextureFormatR8Unorm
	case PixelFormatBGRA8:
		return gputypes.TextureFormatBGRA8Unorm
	default:
		return gputypes.TextureFormatRGBA8Unorm
	}
}

// ImageDescriptor is the pixel-level shape of an image template:
// dimensions, source row stride, pixel format, and whether every pixel
// is fully opaque (letting the renderer skip blending).
type ImageDescriptor struct {
	Width, Height int
	Stride        int // 0 means tightly packed (Width * BytesPerPixel)
	Format        PixelFormat
	IsOpaque      bool

	// AllowMipmaps marks an image as eligible for the Trilinear upgrade
	// in the upload filter-selection rule (4.2); images generated at a
	// fixed on-screen size (e.g. glyphs, render-as-image output) leave
	// this false since they are never minified.
	AllowMipmaps bool
}

// EffectiveStride returns d.Stride, or the tightly-packed row size if
// Stride is unset.
func (d ImageDescriptor) EffectiveStride() int {
	if d.Stride != 0 {
		return d.Stride
	}
	return d.Width * d.Format.BytesPerPixel()
}
