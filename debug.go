package ism43362

import (
	"context"
	"encoding/hex"
	"log/slog"
)

const levelTrace slog.Level = slog.LevelDebug - 1

func (d *Device) logerr(msg string, attrs ...slog.Attr) {
	d.logattrs(slog.LevelError, msg, attrs...)
}

func (d *Device) info(msg string, attrs ...slog.Attr) {
	d.logattrs(slog.LevelInfo, msg, attrs...)
}

func (d *Device) debug(msg string, attrs ...slog.Attr) {
	d.logattrs(slog.LevelDebug, msg, attrs...)
}

func (d *Device) trace(msg string, attrs ...slog.Attr) {
	d.logattrs(levelTrace, msg, attrs...)
}

func (d *Device) logattrs(level slog.Level, msg string, attrs ...slog.Attr) {
	if d.logger == nil || (level == levelTrace && !d._traceenabled) {
		return
	}
	d.logger.LogAttrs(context.Background(), level, msg, attrs...)
}

// traceWire logs raw command or reply bytes. Hex encoding is only done
// if tracing is enabled since it allocates.
func (d *Device) traceWire(msg string, b []byte) {
	if !d._traceenabled {
		return
	}
	d.trace(msg, slog.Int("len", len(b)), slog.String("data", hex.EncodeToString(b)))
}
