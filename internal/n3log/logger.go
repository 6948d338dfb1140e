// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package n3log provides structured logging for the N3 compiler.
//
// It is a thin wrapper over log/slog with a stderr-by-default Logger and an
// optional writer for tests. There is no enterprise exporter: the compiler
// is a library plus a small CLI, not a long-running service, so there is
// nothing here to batch-upload.
package n3log

import (
	"io"
	"log/slog"
	"os"
)

// Level is the compiler's log severity, ordered Debug < Info < Warn < Error.
type Level int

const (
	LevelDebug Level = iota - 1
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) toSlog() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Config configures a Logger. The zero value logs Info+ to stderr as text.
type Config struct {
	// Level is the minimum level that is emitted.
	Level Level

	// Service names the component generating logs (e.g. "resolver",
	// "tensorgraph", "compact"), attached to every entry.
	Service string

	// JSON switches the stderr encoding from text to JSON.
	JSON bool

	// Writer overrides the output destination (tests use this instead of
	// stderr). Defaults to os.Stderr.
	Writer io.Writer
}

// Logger wraps slog.Logger with the compiler's conventions.
type Logger struct {
	slog *slog.Logger
}

// New builds a Logger from Config.
func New(cfg Config) *Logger {
	w := cfg.Writer
	if w == nil {
		w = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: cfg.Level.toSlog()}
	var handler slog.Handler
	if cfg.JSON {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	if cfg.Service != "" {
		handler = handler.WithAttrs([]slog.Attr{slog.String("service", cfg.Service)})
	}
	return &Logger{slog: slog.New(handler)}
}

// Default returns an Info-level logger writing text to stderr, service
// "n3".
func Default() *Logger {
	return New(Config{Level: LevelInfo, Service: "n3"})
}

// Discard returns a Logger that drops every record; used by callers (and
// tests) that don't want log output.
func Discard() *Logger {
	return &Logger{slog: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func (l *Logger) Debug(msg string, args ...any) { l.slog.Debug(msg, args...) }
func (l *Logger) Info(msg string, args ...any)  { l.slog.Info(msg, args...) }
func (l *Logger) Warn(msg string, args ...any)  { l.slog.Warn(msg, args...) }
func (l *Logger) Error(msg string, args ...any) { l.slog.Error(msg, args...) }

// With returns a child Logger with additional structured attributes
// attached to every subsequent record.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{slog: l.slog.With(args...)}
}

// Slog exposes the underlying slog.Logger for callers that need it
// directly (e.g. to pass into a library expecting *slog.Logger).
func (l *Logger) Slog() *slog.Logger { return l.slog }
