// config_validation.go: Validation of dispatcher options
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package mist

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/agilira/go-errors"
)

// Validation errors
var (
	ErrInvalidLogLevel        = errors.New(ErrCodeInvalidOptions, "log level must be debug, info, warn or error")
	ErrInvalidLogFormat       = errors.New(ErrCodeInvalidOptions, "log format must be text or json")
	ErrInvalidShutdownTimeout = errors.New(ErrCodeInvalidOptions, "shutdown timeout must not be negative")
	ErrInvalidBufferSize      = errors.New(ErrCodeInvalidOptions, "audit buffer size must be positive")
	ErrInvalidFlushInterval   = errors.New(ErrCodeInvalidOptions, "audit flush interval must not be negative")
	ErrInvalidOutputFile      = errors.New(ErrCodeInvalidOptions, "audit output file must end in .db or .jsonl")
	ErrUnwritableOutputFile   = errors.New(ErrCodeInvalidOptions, "audit output directory is not writable")
)

// ValidationResult collects every problem found in a set of options.
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// String returns a human-readable representation of validation results
func (vr ValidationResult) String() string {
	if vr.Valid {
		if len(vr.Warnings) == 0 {
			return "Options are valid"
		}
		return fmt.Sprintf("Options are valid with %d warning(s)", len(vr.Warnings))
	}
	return fmt.Sprintf("Options are invalid: %d error(s), %d warning(s)", len(vr.Errors), len(vr.Warnings))
}

// Validate returns the first error found by ValidateDetailed.
func (o *Options) Validate() error {
	result := o.ValidateDetailed()
	if result.Valid {
		return nil
	}
	first := result.Errors[0]
	for _, known := range []error{
		ErrInvalidLogLevel, ErrInvalidLogFormat, ErrInvalidShutdownTimeout,
		ErrInvalidBufferSize, ErrInvalidFlushInterval, ErrInvalidOutputFile, ErrUnwritableOutputFile,
	} {
		if first == known.Error() {
			return known
		}
	}
	return errors.New(ErrCodeInvalidOptions, first)
}

// ValidateDetailed checks every option and reports errors and warnings.
func (o *Options) ValidateDetailed() ValidationResult {
	result := ValidationResult{
		Valid:    true,
		Errors:   make([]string, 0),
		Warnings: make([]string, 0),
	}

	o.validateLogging(&result)
	o.validateShutdown(&result)
	o.validateAudit(&result)

	result.Valid = len(result.Errors) == 0
	return result
}

func (o *Options) validateLogging(result *ValidationResult) {
	if o.LogLevel != "" {
		if _, err := ParseLogLevel(o.LogLevel); err != nil {
			result.Errors = append(result.Errors, ErrInvalidLogLevel.Error())
		}
	}
	switch strings.ToLower(o.LogFormat) {
	case "", "text", "json":
	default:
		result.Errors = append(result.Errors, ErrInvalidLogFormat.Error())
	}
}

func (o *Options) validateShutdown(result *ValidationResult) {
	if o.ShutdownTimeout < 0 {
		result.Errors = append(result.Errors, ErrInvalidShutdownTimeout.Error())
		return
	}
	if o.ShutdownTimeout > time.Minute {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("shutdown timeout %v delays process exit when a teardown hook hangs", o.ShutdownTimeout))
	}
}

func (o *Options) validateAudit(result *ValidationResult) {
	if !o.Audit.Enabled || o.AuditLogger != nil {
		return
	}
	if o.Audit.BufferSize < 0 {
		result.Errors = append(result.Errors, ErrInvalidBufferSize.Error())
	} else if o.Audit.BufferSize > 10000 {
		result.Warnings = append(result.Warnings, "audit buffer size above 10000 keeps many events in memory")
	}
	if o.Audit.FlushInterval < 0 {
		result.Errors = append(result.Errors, ErrInvalidFlushInterval.Error())
	}
	if o.Audit.OutputFile == "" {
		return
	}
	switch filepath.Ext(o.Audit.OutputFile) {
	case ".db", ".jsonl":
	default:
		result.Errors = append(result.Errors, ErrInvalidOutputFile.Error())
		return
	}
	if err := checkWritableDir(filepath.Dir(o.Audit.OutputFile)); err != nil {
		result.Warnings = append(result.Warnings, ErrUnwritableOutputFile.Error()+": "+err.Error())
	}
}

// checkWritableDir reports whether files can be created in dir. A missing
// directory is accepted when its parent is writable.
func checkWritableDir(dir string) error {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		parent := filepath.Dir(dir)
		if parent == dir {
			return err
		}
		return checkWritableDir(parent)
	}
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}
	probe, err := os.CreateTemp(dir, ".mist-probe-*")
	if err != nil {
		return err
	}
	name := probe.Name()
	_ = probe.Close()
	return os.Remove(name)
}
