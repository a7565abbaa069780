// audit_backend.go: Storage backends for the audit trail
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package mist

import (
	"bufio"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver registration
)

// auditTimeFormat sorts lexicographically in timestamp order, which the
// SQLite range queries rely on.
const auditTimeFormat = "2006-01-02T15:04:05.000000000Z"

// auditBackend abstracts the audit storage.
type auditBackend interface {
	// Write persists a batch of events. Implementations must be safe for
	// concurrent use.
	Write(events []AuditEvent) error
	Flush() error
	Close() error
	// Maintenance applies the default retention and optimizes storage.
	Maintenance() error
	GetStats() (*AuditDatabaseStats, error)
	Query(q AuditQuery) ([]AuditEvent, error)
	// Cleanup removes events older than cutoff, or only counts them when
	// dryRun is set.
	Cleanup(cutoff time.Time, dryRun bool) (int64, error)
}

// createAuditBackend picks JSONL for .jsonl files and SQLite otherwise,
// falling back to JSONL when SQLite cannot be opened.
func createAuditBackend(config AuditConfig) (auditBackend, error) {
	if config.OutputFile != "" && filepath.Ext(config.OutputFile) == ".jsonl" {
		return newJSONLBackend(config)
	}

	backend, err := newSQLiteBackend(config)
	if err == nil {
		return backend, nil
	}

	jsonlBackend, jsonlErr := newJSONLBackend(config)
	if jsonlErr != nil {
		return nil, fmt.Errorf("all audit backends failed - SQLite: %w, JSONL: %v", err, jsonlErr)
	}
	return jsonlBackend, nil
}

// getUnifiedAuditPath returns the shared database used when no .db file
// is configured.
func getUnifiedAuditPath() string {
	return filepath.Join(os.TempDir(), "mist", "audit.db")
}

// AuditDatabaseStats summarizes the stored audit trail.
type AuditDatabaseStats struct {
	TotalEvents     int64            `json:"total_events"`
	EventsByLevel   map[string]int64 `json:"events_by_level"`
	EventsByEvent   map[string]int64 `json:"events_by_event"`
	EventsByCommand map[string]int64 `json:"events_by_command"`
	OldestEvent     *time.Time       `json:"oldest_event"`
	NewestEvent     *time.Time       `json:"newest_event"`
	DatabaseSize    int64            `json:"database_size_bytes"`
	SchemaVersion   int              `json:"schema_version"`
}

func newAuditStats() *AuditDatabaseStats {
	return &AuditDatabaseStats{
		EventsByLevel:   make(map[string]int64),
		EventsByEvent:   make(map[string]int64),
		EventsByCommand: make(map[string]int64),
	}
}

// sqliteAuditBackend stores events in a SQLite database.
type sqliteAuditBackend struct {
	db         *sql.DB
	dbPath     string
	sourceFile string
	insertStmt *sql.Stmt
	mu         sync.RWMutex
	closed     bool
}

func newSQLiteBackend(config AuditConfig) (*sqliteAuditBackend, error) {
	dbPath, err := setupDatabasePath(config)
	if err != nil {
		return nil, err
	}

	db, err := openSQLiteDatabase(dbPath)
	if err != nil {
		return nil, err
	}

	backend := &sqliteAuditBackend{
		db:         db,
		dbPath:     dbPath,
		sourceFile: config.OutputFile,
	}
	if err := initializeBackendComponents(backend); err != nil {
		return nil, err
	}
	return backend, nil
}

func setupDatabasePath(config AuditConfig) (string, error) {
	dbPath := getUnifiedAuditPath()
	if config.OutputFile != "" && filepath.Ext(config.OutputFile) == ".db" {
		dbPath = config.OutputFile
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0750); err != nil {
		return "", fmt.Errorf("failed to create audit database directory: %w", err)
	}
	return dbPath, nil
}

// openSQLiteDatabase opens the database in WAL mode with a busy timeout so
// concurrent CLI processes can share it.
func openSQLiteDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL&_cache_size=1000", dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open audit database: %w", err)
	}
	if err := db.Ping(); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to ping database (close error: %v): %w", closeErr, err)
		}
		return nil, fmt.Errorf("failed to ping audit database: %w", err)
	}
	return db, nil
}

func initializeBackendComponents(backend *sqliteAuditBackend) error {
	if err := backend.ensureSchemaVersion(); err != nil {
		if closeErr := backend.Close(); closeErr != nil {
			return fmt.Errorf("failed to initialize schema (close error: %v): %w", closeErr, err)
		}
		return fmt.Errorf("failed to initialize audit database schema: %w", err)
	}
	if err := backend.prepareStatements(); err != nil {
		if closeErr := backend.Close(); closeErr != nil {
			return fmt.Errorf("failed to prepare statements (close error: %v): %w", closeErr, err)
		}
		return fmt.Errorf("failed to prepare audit database statements: %w", err)
	}
	// Retention is best effort.
	_ = backend.performMaintenance()
	return nil
}

const currentSchemaVersion = 2

// ensureSchemaVersion migrates the database to currentSchemaVersion.
//   - v1: audit_events table and single column indexes
//   - v2: composite indexes for the query command
func (s *sqliteAuditBackend) ensureSchemaVersion() error {
	if _, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS schema_info (
		version INTEGER PRIMARY KEY,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);`); err != nil {
		return fmt.Errorf("failed to create schema_info table: %w", err)
	}

	var version int
	err := s.db.QueryRow("SELECT version FROM schema_info ORDER BY version DESC LIMIT 1").Scan(&version)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("failed to check schema version: %w", err)
	}

	if version >= currentSchemaVersion {
		return nil
	}
	if err := s.migrateSchema(version, currentSchemaVersion); err != nil {
		return fmt.Errorf("schema migration from v%d to v%d failed: %w", version, currentSchemaVersion, err)
	}
	if _, err := s.db.Exec(`
		INSERT OR REPLACE INTO schema_info (version, updated_at)
		VALUES (?, CURRENT_TIMESTAMP)
	`, currentSchemaVersion); err != nil {
		return fmt.Errorf("failed to update schema version: %w", err)
	}
	return nil
}

func (s *sqliteAuditBackend) migrateSchema(oldVersion, newVersion int) (err error) {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin migration transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for version := oldVersion; version < newVersion; version++ {
		switch version {
		case 0:
			if err = s.migrateToV1(tx); err != nil {
				return fmt.Errorf("migration to v1 failed: %w", err)
			}
		case 1:
			if err = s.migrateToV2(tx); err != nil {
				return fmt.Errorf("migration to v2 failed: %w", err)
			}
		default:
			err = fmt.Errorf("unknown migration path from version %d", version)
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration transaction: %w", err)
	}
	return nil
}

func (s *sqliteAuditBackend) migrateToV1(tx *sql.Tx) error {
	if _, err := tx.Exec(`
	CREATE TABLE IF NOT EXISTS audit_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp TEXT NOT NULL,
		level TEXT NOT NULL,
		event TEXT NOT NULL,
		component TEXT NOT NULL,
		original_output_file TEXT NOT NULL,
		command TEXT,
		args TEXT,
		flags TEXT,
		positionals TEXT,
		error TEXT,
		process_id INTEGER NOT NULL,
		process_name TEXT NOT NULL,
		context TEXT,
		checksum TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);`); err != nil {
		return fmt.Errorf("failed to create audit_events table: %w", err)
	}

	for _, indexSQL := range []string{
		"CREATE INDEX IF NOT EXISTS idx_audit_timestamp ON audit_events(timestamp)",
		"CREATE INDEX IF NOT EXISTS idx_audit_level ON audit_events(level)",
		"CREATE INDEX IF NOT EXISTS idx_audit_event ON audit_events(event)",
		"CREATE INDEX IF NOT EXISTS idx_audit_command ON audit_events(command)",
	} {
		if _, err := tx.Exec(indexSQL); err != nil {
			return fmt.Errorf("failed to create basic index: %w", err)
		}
	}
	return nil
}

func (s *sqliteAuditBackend) migrateToV2(tx *sql.Tx) error {
	for _, indexSQL := range []string{
		"CREATE INDEX IF NOT EXISTS idx_audit_event_time ON audit_events(event, timestamp)",
		"CREATE INDEX IF NOT EXISTS idx_audit_command_time ON audit_events(command, timestamp)",
	} {
		if _, err := tx.Exec(indexSQL); err != nil {
			return fmt.Errorf("failed to create composite index: %w", err)
		}
	}
	return nil
}

// performMaintenance drops events past the 90 day retention and
// checkpoints the WAL.
func (s *sqliteAuditBackend) performMaintenance() error {
	const defaultRetentionDays = 90
	cutoff := time.Now().UTC().AddDate(0, 0, -defaultRetentionDays)
	if _, err := s.Cleanup(cutoff, false); err != nil {
		return err
	}
	for _, task := range []string{"PRAGMA optimize", "PRAGMA wal_checkpoint(FULL)"} {
		_, _ = s.db.Exec(task)
	}
	return nil
}

func (s *sqliteAuditBackend) prepareStatements() error {
	stmt, err := s.db.Prepare(`
	INSERT INTO audit_events (
		timestamp, level, event, component, original_output_file,
		command, args, flags, positionals, error,
		process_id, process_name, context, checksum
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert statement: %w", err)
	}
	s.insertStmt = stmt
	return nil
}

func (s *sqliteAuditBackend) isClosed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

// Write inserts a batch in one transaction.
func (s *sqliteAuditBackend) Write(events []AuditEvent) (err error) {
	if s.isClosed() {
		return fmt.Errorf("cannot write to closed SQLite audit backend")
	}
	if len(events) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin audit transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil {
				fmt.Fprintf(os.Stderr, "Failed to rollback audit transaction: %v\n", rollbackErr)
			}
		}
	}()

	txStmt := tx.Stmt(s.insertStmt)
	defer func() { _ = txStmt.Close() }()

	for _, event := range events {
		if err = s.insertEvent(txStmt, event); err != nil {
			return fmt.Errorf("failed to insert audit event: %w", err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit audit transaction: %w", err)
	}
	return nil
}

func marshalColumn(v any, empty bool) (string, error) {
	if empty {
		return "", nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (s *sqliteAuditBackend) insertEvent(stmt *sql.Stmt, event AuditEvent) error {
	args, err := marshalColumn(event.Args, len(event.Args) == 0)
	if err != nil {
		return fmt.Errorf("failed to serialize args: %w", err)
	}
	flags, err := marshalColumn(event.Flags, len(event.Flags) == 0)
	if err != nil {
		return fmt.Errorf("failed to serialize flags: %w", err)
	}
	positionals, err := marshalColumn(event.Positionals, len(event.Positionals) == 0)
	if err != nil {
		return fmt.Errorf("failed to serialize positionals: %w", err)
	}
	context, err := marshalColumn(event.Context, len(event.Context) == 0)
	if err != nil {
		return fmt.Errorf("failed to serialize context: %w", err)
	}

	_, err = stmt.Exec(
		event.Timestamp.UTC().Format(auditTimeFormat),
		event.Level.String(),
		event.Event,
		event.Component,
		s.sourceFile,
		event.Command,
		args,
		flags,
		positionals,
		event.Error,
		event.ProcessID,
		event.ProcessName,
		context,
		event.Checksum,
	)
	return err
}

// Query returns matching events, oldest first.
func (s *sqliteAuditBackend) Query(q AuditQuery) ([]AuditEvent, error) {
	if s.isClosed() {
		return nil, fmt.Errorf("cannot query closed SQLite audit backend")
	}

	var (
		where []string
		args  []any
	)
	if !q.Since.IsZero() {
		where = append(where, "timestamp >= ?")
		args = append(args, q.Since.UTC().Format(auditTimeFormat))
	}
	if q.Event != "" {
		where = append(where, "event = ?")
		args = append(args, q.Event)
	}
	if q.Command != "" {
		where = append(where, "command LIKE ? ESCAPE '\\'")
		args = append(args, escapeLike(q.Command)+"%")
	}

	query := `SELECT timestamp, level, event, component, command, args, flags,
		positionals, error, process_id, process_name, context, checksum
		FROM audit_events`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY timestamp ASC, id ASC"
	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var events []AuditEvent
	for rows.Next() {
		event, err := scanAuditEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func scanAuditEvent(rows *sql.Rows) (AuditEvent, error) {
	var (
		event                                     AuditEvent
		ts, level                                 string
		command, args, flags, positionals, errStr sql.NullString
		context, checksum                         sql.NullString
	)
	if err := rows.Scan(&ts, &level, &event.Event, &event.Component, &command, &args, &flags,
		&positionals, &errStr, &event.ProcessID, &event.ProcessName, &context, &checksum); err != nil {
		return event, fmt.Errorf("failed to scan audit event: %w", err)
	}

	if t, err := time.Parse(auditTimeFormat, ts); err == nil {
		event.Timestamp = t
	}
	if parsed, err := ParseAuditLevel(level); err == nil {
		event.Level = parsed
	}
	event.Command = command.String
	event.Error = errStr.String
	event.Checksum = checksum.String

	for _, col := range []struct {
		raw    sql.NullString
		target any
	}{
		{args, &event.Args},
		{flags, &event.Flags},
		{positionals, &event.Positionals},
		{context, &event.Context},
	} {
		if col.raw.String == "" {
			continue
		}
		if err := json.Unmarshal([]byte(col.raw.String), col.target); err != nil {
			return event, fmt.Errorf("failed to decode audit column: %w", err)
		}
	}
	return event, nil
}

// Cleanup deletes events older than cutoff.
func (s *sqliteAuditBackend) Cleanup(cutoff time.Time, dryRun bool) (int64, error) {
	if s.isClosed() {
		return 0, fmt.Errorf("cannot clean up closed SQLite audit backend")
	}
	bound := cutoff.UTC().Format(auditTimeFormat)
	if dryRun {
		var count int64
		if err := s.db.QueryRow("SELECT COUNT(*) FROM audit_events WHERE timestamp < ?", bound).Scan(&count); err != nil {
			return 0, fmt.Errorf("failed to count old audit events: %w", err)
		}
		return count, nil
	}
	result, err := s.db.Exec("DELETE FROM audit_events WHERE timestamp < ?", bound)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup old audit events: %w", err)
	}
	return result.RowsAffected()
}

// GetStats returns event counts, time range and schema version.
func (s *sqliteAuditBackend) GetStats() (*AuditDatabaseStats, error) {
	stats := newAuditStats()

	if err := s.db.QueryRow("SELECT COUNT(*) FROM audit_events").Scan(&stats.TotalEvents); err != nil {
		return nil, fmt.Errorf("failed to get total events count: %w", err)
	}
	for column, target := range map[string]map[string]int64{
		"level":   stats.EventsByLevel,
		"event":   stats.EventsByEvent,
		"command": stats.EventsByCommand,
	} {
		if err := s.countBy(column, target); err != nil {
			return nil, err
		}
	}

	var oldest, newest sql.NullString
	if err := s.db.QueryRow("SELECT MIN(timestamp), MAX(timestamp) FROM audit_events").Scan(&oldest, &newest); err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to get event time range: %w", err)
	}
	if t, err := time.Parse(auditTimeFormat, oldest.String); oldest.Valid && err == nil {
		stats.OldestEvent = &t
	}
	if t, err := time.Parse(auditTimeFormat, newest.String); newest.Valid && err == nil {
		stats.NewestEvent = &t
	}

	if err := s.db.QueryRow("SELECT version FROM schema_info ORDER BY version DESC LIMIT 1").Scan(&stats.SchemaVersion); err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to get schema version: %w", err)
	}
	if info, err := os.Stat(s.dbPath); err == nil {
		stats.DatabaseSize = info.Size()
	}
	return stats, nil
}

// countBy fills target with event counts grouped by column. column is one
// of a fixed set of names, never user input.
func (s *sqliteAuditBackend) countBy(column string, target map[string]int64) error {
	rows, err := s.db.Query("SELECT COALESCE(" + column + ", ''), COUNT(*) FROM audit_events GROUP BY " + column)
	if err != nil {
		return fmt.Errorf("failed to get events by %s: %w", column, err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var key string
		var count int64
		if err := rows.Scan(&key, &count); err != nil {
			return fmt.Errorf("failed to scan %s stats: %w", column, err)
		}
		target[key] = count
	}
	return rows.Err()
}

// Flush checkpoints the WAL.
func (s *sqliteAuditBackend) Flush() error {
	if s.isClosed() {
		return nil
	}
	if _, err := s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return fmt.Errorf("failed to flush SQLite audit backend: %w", err)
	}
	return nil
}

// Maintenance implements auditBackend.
func (s *sqliteAuditBackend) Maintenance() error {
	return s.performMaintenance()
}

// Close flushes the WAL and releases the database. Safe to call more than once.
func (s *sqliteAuditBackend) Close() error {
	if s.isClosed() {
		return nil
	}

	var errs []error
	if err := s.Flush(); err != nil {
		errs = append(errs, fmt.Errorf("failed to flush audit backend during close: %w", err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	if s.insertStmt != nil {
		if err := s.insertStmt.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close insert statement: %w", err))
		}
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		}
	}
	s.closed = true

	if len(errs) > 0 {
		return fmt.Errorf("errors closing SQLite audit backend: %v", errs)
	}
	return nil
}

// jsonlAuditBackend appends one JSON object per line to a file.
type jsonlAuditBackend struct {
	file       *os.File
	sourceFile string
	mu         sync.Mutex
	closed     bool
}

func newJSONLBackend(config AuditConfig) (*jsonlAuditBackend, error) {
	if config.OutputFile == "" {
		return nil, fmt.Errorf("JSONL backend requires OutputFile to be specified")
	}
	if err := os.MkdirAll(filepath.Dir(config.OutputFile), 0750); err != nil {
		return nil, fmt.Errorf("failed to create JSONL audit log directory: %w", err)
	}
	file, err := os.OpenFile(config.OutputFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open JSONL audit log file: %w", err)
	}
	return &jsonlAuditBackend{file: file, sourceFile: config.OutputFile}, nil
}

func (j *jsonlAuditBackend) Write(events []AuditEvent) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return fmt.Errorf("cannot write to closed JSONL audit backend")
	}
	for _, event := range events {
		data, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("failed to serialize audit event: %w", err)
		}
		if _, err := j.file.Write(append(data, '\n')); err != nil {
			return fmt.Errorf("failed to write audit event to JSONL: %w", err)
		}
	}
	return nil
}

func (j *jsonlAuditBackend) Flush() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return nil
	}
	if err := j.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync JSONL audit file: %w", err)
	}
	return nil
}

// Maintenance is a no-op; use Cleanup to drop old lines.
func (j *jsonlAuditBackend) Maintenance() error { return nil }

// readAll decodes every line of the file. Lines that fail to decode are
// skipped.
func (j *jsonlAuditBackend) readAll() ([]AuditEvent, error) {
	f, err := os.Open(j.sourceFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open JSONL audit file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var events []AuditEvent
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var event AuditEvent
		if err := json.Unmarshal(line, &event); err != nil {
			continue
		}
		events = append(events, event)
	}
	return events, scanner.Err()
}

func (j *jsonlAuditBackend) Query(q AuditQuery) ([]AuditEvent, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	all, err := j.readAll()
	if err != nil {
		return nil, err
	}
	var events []AuditEvent
	for _, e := range all {
		if !q.matches(e) {
			continue
		}
		events = append(events, e)
		if q.Limit > 0 && len(events) == q.Limit {
			break
		}
	}
	return events, nil
}

// Cleanup rewrites the file without events older than cutoff.
func (j *jsonlAuditBackend) Cleanup(cutoff time.Time, dryRun bool) (int64, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return 0, fmt.Errorf("cannot clean up closed JSONL audit backend")
	}
	all, err := j.readAll()
	if err != nil {
		return 0, err
	}
	kept := make([]AuditEvent, 0, len(all))
	for _, e := range all {
		if !e.Timestamp.Before(cutoff) {
			kept = append(kept, e)
		}
	}
	removed := int64(len(all) - len(kept))
	if dryRun || removed == 0 {
		return removed, nil
	}

	if err := j.file.Truncate(0); err != nil {
		return 0, fmt.Errorf("failed to truncate JSONL audit file: %w", err)
	}
	for _, event := range kept {
		data, err := json.Marshal(event)
		if err != nil {
			return 0, fmt.Errorf("failed to serialize audit event: %w", err)
		}
		if _, err := j.file.Write(append(data, '\n')); err != nil {
			return 0, fmt.Errorf("failed to rewrite JSONL audit file: %w", err)
		}
	}
	return removed, nil
}

func (j *jsonlAuditBackend) GetStats() (*AuditDatabaseStats, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	stats := newAuditStats()
	stats.SchemaVersion = 1
	if info, err := os.Stat(j.sourceFile); err == nil {
		stats.DatabaseSize = info.Size()
	}

	all, err := j.readAll()
	if err != nil {
		return nil, err
	}
	for i := range all {
		e := all[i]
		stats.TotalEvents++
		stats.EventsByLevel[e.Level.String()]++
		stats.EventsByEvent[e.Event]++
		stats.EventsByCommand[e.Command]++
		if stats.OldestEvent == nil || e.Timestamp.Before(*stats.OldestEvent) {
			stats.OldestEvent = &all[i].Timestamp
		}
		if stats.NewestEvent == nil || e.Timestamp.After(*stats.NewestEvent) {
			stats.NewestEvent = &all[i].Timestamp
		}
	}
	return stats, nil
}

func (j *jsonlAuditBackend) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return nil
	}
	j.closed = true
	if j.file != nil {
		return j.file.Close()
	}
	return nil
}
