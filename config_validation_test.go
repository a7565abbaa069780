// config_validation_test.go - Validation tests for dispatcher options
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package mist

import (
	"bytes"
	goerrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestOptions_ValidateDetailed(t *testing.T) {
	tempDir := t.TempDir()

	tests := []struct {
		name             string
		opts             *Options
		expectedValid    bool
		expectedErrors   int
		expectedWarnings int
	}{
		{
			name:          "zero options",
			opts:          &Options{},
			expectedValid: true,
		},
		{
			name:          "defaults",
			opts:          (&Options{}).WithDefaults(),
			expectedValid: true,
		},
		{
			name:           "invalid log level",
			opts:           &Options{LogLevel: "chatty"},
			expectedValid:  false,
			expectedErrors: 1,
		},
		{
			name:           "invalid log format and level",
			opts:           &Options{LogLevel: "chatty", LogFormat: "xml"},
			expectedValid:  false,
			expectedErrors: 2,
		},
		{
			name:           "negative shutdown timeout",
			opts:           &Options{ShutdownTimeout: -time.Second},
			expectedValid:  false,
			expectedErrors: 1,
		},
		{
			name:             "long shutdown timeout",
			opts:             &Options{ShutdownTimeout: 5 * time.Minute},
			expectedValid:    true,
			expectedWarnings: 1,
		},
		{
			name: "disabled audit is not checked",
			opts: &Options{Audit: AuditConfig{
				OutputFile: "audit.txt",
				BufferSize: -1,
			}},
			expectedValid: true,
		},
		{
			name: "valid audit",
			opts: &Options{Audit: AuditConfig{
				Enabled:    true,
				OutputFile: filepath.Join(tempDir, "audit.db"),
				BufferSize: 10,
			}},
			expectedValid: true,
		},
		{
			name: "audit file in missing subdirectory",
			opts: &Options{Audit: AuditConfig{
				Enabled:    true,
				OutputFile: filepath.Join(tempDir, "nested", "deeper", "audit.jsonl"),
			}},
			expectedValid: true,
		},
		{
			name: "bad audit extension",
			opts: &Options{Audit: AuditConfig{
				Enabled:    true,
				OutputFile: filepath.Join(tempDir, "audit.log"),
			}},
			expectedValid:  false,
			expectedErrors: 1,
		},
		{
			name: "negative audit values",
			opts: &Options{Audit: AuditConfig{
				Enabled:       true,
				BufferSize:    -5,
				FlushInterval: -time.Second,
			}},
			expectedValid:  false,
			expectedErrors: 2,
		},
		{
			name: "huge audit buffer",
			opts: &Options{Audit: AuditConfig{
				Enabled:    true,
				BufferSize: 50000,
			}},
			expectedValid:    true,
			expectedWarnings: 1,
		},
		{
			name: "supplied audit logger skips audit checks",
			opts: &Options{
				Audit:       AuditConfig{Enabled: true, OutputFile: "audit.txt"},
				AuditLogger: &AuditLogger{},
			},
			expectedValid: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.opts.ValidateDetailed()
			if result.Valid != tt.expectedValid {
				t.Errorf("Valid = %v, want %v (errors: %v)", result.Valid, tt.expectedValid, result.Errors)
			}
			if len(result.Errors) != tt.expectedErrors {
				t.Errorf("errors = %v, want %d", result.Errors, tt.expectedErrors)
			}
			if len(result.Warnings) != tt.expectedWarnings {
				t.Errorf("warnings = %v, want %d", result.Warnings, tt.expectedWarnings)
			}
		})
	}
}

func TestOptions_Validate(t *testing.T) {
	tests := []struct {
		name string
		opts *Options
		want error
	}{
		{"valid", &Options{}, nil},
		{"log level", &Options{LogLevel: "loud"}, ErrInvalidLogLevel},
		{"log format", &Options{LogFormat: "xml"}, ErrInvalidLogFormat},
		{"shutdown timeout", &Options{ShutdownTimeout: -1}, ErrInvalidShutdownTimeout},
		{"buffer size", &Options{Audit: AuditConfig{Enabled: true, BufferSize: -1}}, ErrInvalidBufferSize},
		{"flush interval", &Options{Audit: AuditConfig{Enabled: true, FlushInterval: -1}}, ErrInvalidFlushInterval},
		{"output file", &Options{Audit: AuditConfig{Enabled: true, OutputFile: "x.csv"}}, ErrInvalidOutputFile},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.Validate()
			if tt.want == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !goerrors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
			if ErrorCode(err) != ErrCodeInvalidOptions {
				t.Errorf("code = %q", ErrorCode(err))
			}
		})
	}
}

func TestValidationResult_String(t *testing.T) {
	tests := []struct {
		result ValidationResult
		want   string
	}{
		{ValidationResult{Valid: true}, "Options are valid"},
		{ValidationResult{Valid: true, Warnings: []string{"w"}}, "Options are valid with 1 warning(s)"},
		{ValidationResult{Errors: []string{"a", "b"}, Warnings: []string{"w"}}, "Options are invalid: 2 error(s), 1 warning(s)"},
	}
	for _, tt := range tests {
		if got := tt.result.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestCheckWritableDir(t *testing.T) {
	dir := t.TempDir()
	if err := checkWritableDir(dir); err != nil {
		t.Errorf("temp dir should be writable: %v", err)
	}
	if err := checkWritableDir(filepath.Join(dir, "missing", "child")); err != nil {
		t.Errorf("missing dir under a writable parent should pass: %v", err)
	}

	file := filepath.Join(dir, "plain")
	if err := os.WriteFile(file, []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := checkWritableDir(file); err == nil || !strings.Contains(err.Error(), "not a directory") {
		t.Errorf("expected a not a directory error, got %v", err)
	}

	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".mist-probe-") {
			t.Errorf("probe file %s left behind", e.Name())
		}
	}
}

func TestOptions_WithDefaults(t *testing.T) {
	var nilOpts *Options
	opts := nilOpts.WithDefaults()

	if opts.LogLevel != "warn" || opts.LogFormat != "text" {
		t.Errorf("logging defaults = %q/%q", opts.LogLevel, opts.LogFormat)
	}
	if opts.Output != os.Stdout || opts.ErrOutput != os.Stderr {
		t.Error("outputs should default to stdout and stderr")
	}
	if opts.Logger == nil {
		t.Error("a logger should be built")
	}
	if opts.Shutdown != DefaultShutdown() {
		t.Error("the process-wide shutdown registry is the default")
	}
	if opts.ShutdownTimeout != DefaultShutdownTimeout {
		t.Errorf("ShutdownTimeout = %v", opts.ShutdownTimeout)
	}
	if opts.Audit.Enabled {
		t.Error("auditing is off by default")
	}
	if opts.Audit.BufferSize != 100 || opts.Audit.FlushInterval != 5*time.Second {
		t.Errorf("audit defaults = %+v", opts.Audit)
	}
}

func TestOptions_WithDefaultsKeepsValues(t *testing.T) {
	var buf bytes.Buffer
	shutdown := NewShutdown(0, nil)
	original := &Options{
		LogLevel:        "debug",
		LogFormat:       "json",
		ErrOutput:       &buf,
		Shutdown:        shutdown,
		ShutdownTimeout: time.Second,
		Audit:           AuditConfig{BufferSize: 7},
	}
	opts := original.WithDefaults()

	if opts == original {
		t.Fatal("WithDefaults must return a copy")
	}
	if opts.Shutdown != shutdown || opts.ShutdownTimeout != time.Second || opts.Audit.BufferSize != 7 {
		t.Errorf("explicit values overwritten: %+v", opts)
	}
	if original.Logger != nil {
		t.Error("the receiver must not be modified")
	}

	opts.Logger.Debug("hello", "k", "v")
	if !strings.Contains(buf.String(), `"msg":"hello"`) {
		t.Errorf("logger should write JSON at debug level to ErrOutput, got %q", buf.String())
	}
}
