package main

import (
	"io"

	"gopkg.in/natefinch/lumberjack.v2"
)

// newRotatingWriter wraps a lumberjack logger so the CLI's structured
// slog output doesn't grow unbounded across long-running ingest jobs.
func newRotatingWriter(path string) io.Writer {
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    50, // megabytes
		MaxBackups: 5,
		MaxAge:     28, // days
		Compress:   true,
	}
}
