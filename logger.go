// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package rescache

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/gogpu/rescache/glyph"
	"github.com/gogpu/rescache/texcache"
)

type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(slog.New(nopHandler{}))
}

func slogger() *slog.Logger { return loggerPtr.Load() }

// SetLogger replaces the logger used by the cache and propagates it to
// the glyph and texcache packages, the same way gg.SetLogger
// propagates to its accelerator. Passing nil restores the no-op
// default.
//
// Debug level traces a pixel-format change on UpdateImage. Info level
// traces frame-phase transitions. Warn level traces conditions that
// are handled but likely indicate a caller bug (RequestImage naming a
// missing template, AddFontInstance naming a missing font, AddFont
// bytes that fail to parse).
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(nopHandler{})
	}
	loggerPtr.Store(l)
	glyph.SetLogger(l)
	texcache.SetLogger(l)
}
