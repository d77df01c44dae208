// Package blob stores rasterized tiles produced by an external blob
// image handler (a collaborator that turns vector display-list
// recordings into pixels on demand) and defines the contract that
// handler must satisfy for font and namespace lifecycle notifications.
//
// Actually rasterizing a blob recording into pixels is out of scope
// here; this package only stores the results and tracks which tiles
// are still within a blob image's visible area.
package blob

import "image"

// Key identifies one blob image's rasterized-tile store.
type Key uint64

// FontKey and FontInstanceKey mirror the root package's key types so
// Handler can be defined without importing it (the root package
// imports blob, so the reverse import would cycle).
type FontKey uint64
type FontInstanceKey uint64

// NamespaceID groups keys created by one display-list-building
// session, mirroring the root package's Namespace type.
type NamespaceID uint32

// Handler is the contract an external blob-image rasterizer
// implements so this module can notify it of lifecycle events that
// affect blob-derived resources: font deletions (a blob recording may
// reference a font by key) and namespace teardown.
type Handler interface {
	// DeleteFont notifies the handler that key will no longer be
	// referenced by any blob recording after this call.
	DeleteFont(key FontKey)

	// DeleteFontInstance is DeleteFont at font-instance granularity.
	DeleteFontInstance(key FontInstanceKey)

	// ClearNamespace notifies the handler that every key created under
	// ns has been released.
	ClearNamespace(ns NamespaceID)
}

// RasterizedTile is one tile's pixel data as produced by the blob
// handler, along with the pixel rectangle (in the blob image's whole
// coordinate space) it covers.
type RasterizedTile struct {
	Rect image.Rectangle
	Data []byte
}
