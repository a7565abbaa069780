// config.go: Dispatcher options
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package mist

import (
	"io"
	"log/slog"
	"os"
	"time"
)

// Options configures a Dispatcher. The zero value is usable once passed
// through WithDefaults.
type Options struct {
	// Logger receives parser and dispatcher diagnostics. When nil, one is
	// built from LogLevel and LogFormat writing to ErrOutput.
	Logger    *slog.Logger
	LogLevel  string
	LogFormat string

	// Output receives built-in help, ErrOutput error messages.
	Output    io.Writer
	ErrOutput io.Writer

	// Shutdown receives teardown hooks. Defaults to DefaultShutdown().
	Shutdown        *Shutdown
	ShutdownTimeout time.Duration

	// Audit configures the invocation audit trail. AuditLogger, when set,
	// is used as is and not closed by the dispatcher.
	Audit       AuditConfig
	AuditLogger *AuditLogger
}

// WithDefaults returns a copy of o with every unset field filled in.
func (o *Options) WithDefaults() *Options {
	opts := Options{}
	if o != nil {
		opts = *o
	}

	if opts.LogLevel == "" {
		opts.LogLevel = "warn"
	}
	if opts.LogFormat == "" {
		opts.LogFormat = "text"
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.ErrOutput == nil {
		opts.ErrOutput = os.Stderr
	}
	if opts.Logger == nil {
		opts.Logger = NewLogger(opts.ErrOutput, opts.LogLevel, opts.LogFormat)
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = DefaultShutdownTimeout
	}
	if opts.Shutdown == nil {
		opts.Shutdown = DefaultShutdown()
	}

	if opts.Audit.BufferSize <= 0 {
		opts.Audit.BufferSize = DefaultAuditConfig().BufferSize
	}
	if opts.Audit.FlushInterval <= 0 {
		opts.Audit.FlushInterval = DefaultAuditConfig().FlushInterval
	}

	return &opts
}
