// audit.go: Audit trail of dispatched commands
//
// Every dispatch can be recorded with the resolved command, its flags and
// positionals and the outcome of its hooks. Events are buffered and
// written in batches to a pluggable backend.
//
// Copyright (c) 2025 AGILira
// Series: AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package mist

import (
	"crypto/sha256"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/agilira/go-errors"
	"github.com/agilira/go-timecache"
)

// AuditLevel represents the severity of audit events
type AuditLevel int

const (
	AuditInfo AuditLevel = iota
	AuditWarn
	AuditCritical
	AuditSecurity
)

func (al AuditLevel) String() string {
	switch al {
	case AuditInfo:
		return "INFO"
	case AuditWarn:
		return "WARN"
	case AuditCritical:
		return "CRITICAL"
	case AuditSecurity:
		return "SECURITY"
	default:
		return "UNKNOWN"
	}
}

// ParseAuditLevel parses an audit level name, case-insensitively.
func ParseAuditLevel(levelStr string) (AuditLevel, error) {
	switch strings.ToLower(levelStr) {
	case "info":
		return AuditInfo, nil
	case "warn", "warning":
		return AuditWarn, nil
	case "critical", "error":
		return AuditCritical, nil
	case "security":
		return AuditSecurity, nil
	default:
		return AuditInfo, errors.New(ErrCodeInvalidOptions, "invalid audit level")
	}
}

// Audit event names emitted by the dispatcher.
const (
	AuditEventDispatch         = "dispatch"
	AuditEventHelp             = "help"
	AuditEventValidationFailed = "validation_failed"
	AuditEventRunCompleted     = "run_completed"
	AuditEventRunFailed        = "run_failed"
	AuditEventTeardown         = "teardown"
)

// AuditEvent represents a single auditable event
type AuditEvent struct {
	Timestamp   time.Time      `json:"timestamp"`
	Level       AuditLevel     `json:"level"`
	Event       string         `json:"event"`
	Component   string         `json:"component"`
	Command     string         `json:"command,omitempty"`
	Args        []string       `json:"args,omitempty"`
	Flags       map[string]any `json:"flags,omitempty"`
	Positionals []any          `json:"positionals,omitempty"`
	Error       string         `json:"error,omitempty"`
	ProcessID   int            `json:"process_id"`
	ProcessName string         `json:"process_name"`
	Context     map[string]any `json:"context,omitempty"`
	Checksum    string         `json:"checksum"`
}

// AuditConfig configures the audit system
type AuditConfig struct {
	Enabled       bool          `json:"enabled"`
	OutputFile    string        `json:"output_file"`
	MinLevel      AuditLevel    `json:"min_level"`
	BufferSize    int           `json:"buffer_size"`
	FlushInterval time.Duration `json:"flush_interval"`
}

// DefaultAuditConfig returns the audit defaults. Auditing is off until
// Enabled is set; an empty OutputFile selects the shared SQLite database.
func DefaultAuditConfig() AuditConfig {
	return AuditConfig{
		Enabled:       false,
		OutputFile:    "",
		MinLevel:      AuditInfo,
		BufferSize:    100,
		FlushInterval: 5 * time.Second,
	}
}

// AuditQuery filters events returned by AuditLogger.Query.
type AuditQuery struct {
	Since   time.Time
	Event   string
	Command string
	Limit   int
}

func (q AuditQuery) matches(e AuditEvent) bool {
	if !q.Since.IsZero() && e.Timestamp.Before(q.Since) {
		return false
	}
	if q.Event != "" && e.Event != q.Event {
		return false
	}
	if q.Command != "" && !strings.HasPrefix(e.Command, q.Command) {
		return false
	}
	return true
}

// AuditLogger buffers audit events and writes them to a SQLite or JSONL
// backend, flushing when the buffer fills and on a timer.
type AuditLogger struct {
	config      AuditConfig
	backend     auditBackend
	buffer      []AuditEvent
	bufferMu    sync.Mutex
	flushTicker *time.Ticker
	stopCh      chan struct{}
	closeOnce   sync.Once
	processID   int
	processName string
}

// NewAuditLogger creates a new audit logger with automatic backend selection.
//
// A .jsonl OutputFile selects the JSONL backend; anything else tries SQLite
// first and falls back to JSONL.
func NewAuditLogger(config AuditConfig) (*AuditLogger, error) {
	if config.BufferSize <= 0 {
		config.BufferSize = DefaultAuditConfig().BufferSize
	}
	backend, err := createAuditBackend(config)
	if err != nil {
		return nil, errors.Wrap(err, ErrCodeAudit, "failed to initialize audit backend")
	}

	logger := &AuditLogger{
		config:      config,
		backend:     backend,
		buffer:      make([]AuditEvent, 0, config.BufferSize),
		stopCh:      make(chan struct{}),
		processID:   os.Getpid(),
		processName: getProcessName(),
	}

	if config.FlushInterval > 0 {
		logger.flushTicker = time.NewTicker(config.FlushInterval)
		go logger.flushLoop()
	}

	return logger, nil
}

// Log records an audit event
func (al *AuditLogger) Log(level AuditLevel, event string, fill func(*AuditEvent)) {
	if al == nil || al.backend == nil || !al.config.Enabled || level < al.config.MinLevel {
		return
	}

	auditEvent := AuditEvent{
		Timestamp:   timecache.CachedTime(),
		Level:       level,
		Event:       event,
		Component:   "mist",
		ProcessID:   al.processID,
		ProcessName: al.processName,
	}
	if fill != nil {
		fill(&auditEvent)
	}
	auditEvent.Checksum = al.generateChecksum(auditEvent)

	al.bufferMu.Lock()
	al.buffer = append(al.buffer, auditEvent)
	if len(al.buffer) >= al.config.BufferSize {
		_ = al.flushBufferUnsafe() // retried on the next flush
	}
	al.bufferMu.Unlock()
}

// LogDispatch records a resolved invocation. The event holds copies of
// args and of the result, so hooks may change them after it is buffered.
func (al *AuditLogger) LogDispatch(cmd *Command, args []string, res *Result) {
	al.Log(AuditInfo, AuditEventDispatch, func(e *AuditEvent) {
		e.Command = cmd.CommandPath()
		e.Args = slices.Clone(args)
		e.Flags = maps.Clone(res.Flags)
		e.Positionals = slices.Clone(res.Positionals)
	})
}

// LogOutcome records the result of a hook. A nil err is logged at info
// level, a failure at warn level.
func (al *AuditLogger) LogOutcome(event string, cmd *Command, err error, elapsed time.Duration) {
	level := AuditInfo
	if err != nil {
		level = AuditWarn
	}
	al.Log(level, event, func(e *AuditEvent) {
		e.Command = cmd.CommandPath()
		if err != nil {
			e.Error = err.Error()
		}
		e.Context = map[string]any{"duration_ms": elapsed.Milliseconds()}
	})
}

// LogSecurityEvent logs security-related events
func (al *AuditLogger) LogSecurityEvent(event, details string, context map[string]any) {
	al.Log(AuditSecurity, event, func(e *AuditEvent) {
		e.Error = details
		e.Context = context
	})
}

// Query flushes pending events and returns those matching q, oldest first.
func (al *AuditLogger) Query(q AuditQuery) ([]AuditEvent, error) {
	if err := al.Flush(); err != nil {
		return nil, err
	}
	return al.backend.Query(q)
}

// Stats flushes pending events and returns backend statistics.
func (al *AuditLogger) Stats() (*AuditDatabaseStats, error) {
	if err := al.Flush(); err != nil {
		return nil, err
	}
	return al.backend.GetStats()
}

// Cleanup removes events older than the given age and returns how many
// were (or, with dryRun, would be) removed.
func (al *AuditLogger) Cleanup(olderThan time.Duration, dryRun bool) (int64, error) {
	if err := al.Flush(); err != nil {
		return 0, err
	}
	cutoff := timecache.CachedTime().Add(-olderThan)
	return al.backend.Cleanup(cutoff, dryRun)
}

// Flush immediately writes all buffered events
func (al *AuditLogger) Flush() error {
	al.bufferMu.Lock()
	defer al.bufferMu.Unlock()
	return al.flushBufferUnsafe()
}

// Close flushes pending events and releases the backend. Safe to call
// more than once.
func (al *AuditLogger) Close() error {
	var closeErr error
	al.closeOnce.Do(func() {
		close(al.stopCh)
		if al.flushTicker != nil {
			al.flushTicker.Stop()
		}
		if err := al.Flush(); err != nil {
			closeErr = fmt.Errorf("failed to flush audit logger during close: %w", err)
			return
		}
		if err := al.backend.Close(); err != nil {
			closeErr = fmt.Errorf("failed to close audit backend: %w", err)
		}
	})
	return closeErr
}

func (al *AuditLogger) flushLoop() {
	for {
		select {
		case <-al.flushTicker.C:
			_ = al.Flush() // retried on the next tick
		case <-al.stopCh:
			return
		}
	}
}

// flushBufferUnsafe writes the buffer to the backend (caller must hold bufferMu).
func (al *AuditLogger) flushBufferUnsafe() error {
	if len(al.buffer) == 0 {
		return nil
	}
	if err := al.backend.Write(al.buffer); err != nil {
		return fmt.Errorf("failed to write audit events to backend: %w", err)
	}
	al.buffer = al.buffer[:0]
	return nil
}

// generateChecksum creates a tamper-detection checksum using SHA-256
func (al *AuditLogger) generateChecksum(event AuditEvent) string {
	data := fmt.Sprintf("%s:%s:%s:%s:%v:%v:%v",
		event.Timestamp.Format(time.RFC3339Nano),
		event.Event, event.Component, event.Command,
		event.Args, event.Flags, event.Positionals)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}

func getProcessName() string {
	if len(os.Args) > 0 && os.Args[0] != "" {
		return filepath.Base(os.Args[0])
	}
	return "mist"
}
