// logger.go: Structured logging helpers
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package mist

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/agilira/go-errors"
)

type loggerKey struct{}

// WithLogger returns a copy of ctx carrying logger. Run and teardown hooks
// receive a context prepared this way.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// LoggerFrom extracts the logger stored by WithLogger. Without one it
// returns a logger that discards everything.
func LoggerFrom(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok && logger != nil {
		return logger
	}
	return discardLogger
}

// ParseLogLevel accepts debug, info, warn (warning) and error.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, errors.New(ErrCodeInvalidOptions, fmt.Sprintf("invalid log level %q", s))
	}
}

// NewLogger builds a text or JSON slog logger writing to w. Unknown levels
// fall back to info, unknown formats to text.
func NewLogger(w io.Writer, level, format string) *slog.Logger {
	lvl, _ := ParseLogLevel(level)
	opts := &slog.HandlerOptions{Level: lvl}

	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}
