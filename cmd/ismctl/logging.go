package main

import (
	"io"
	"log/slog"

	console "github.com/phsym/console-slog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// newLogger returns a console logger writing to w, or a JSON logger writing
// to a rotated file when cfg.File is set. The returned closer must be called
// on exit.
func newLogger(cfg LogConfig, w io.Writer) (*slog.Logger, io.Closer, error) {
	lvl, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}
	if cfg.File == "" {
		h := console.NewHandler(w, &console.HandlerOptions{Level: lvl})
		return slog.New(h), io.NopCloser(nil), nil
	}
	lj := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
	}
	h := slog.NewJSONHandler(lj, &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				a.Key = "ts"
			}
			return a
		},
	})
	return slog.New(h), lj, nil
}
