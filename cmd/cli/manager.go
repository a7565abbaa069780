// Package cli provides the mist command-line tool.
//
// The tool works on command tree definitions (YAML, JSON or HCL): it checks
// them, prints their structure and help, and parses sample command lines
// against them to show exactly what a program would receive.
//
//	mist parse deploy.yaml -- push --target=staging app:1.2
//	mist tree deploy.hcl
//	mist usage deploy.yaml push
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package cli

import (
	"io"
	"os"
	"slices"

	"github.com/agilira/mist"
	"github.com/agilira/orpheus/pkg/orpheus"
)

// Version of the mist tool.
const Version = "1.0.0"

// Manager wires the mist commands into an orpheus application.
type Manager struct {
	app         *orpheus.App
	auditLogger *mist.AuditLogger // Optional audit integration
	out         io.Writer

	// tokens holds everything after the first "--" of the current run.
	tokens []string
}

// NewManager creates the CLI with every command registered.
func NewManager() *Manager {
	app := orpheus.New("mist").
		SetDescription("Inspect and exercise command tree definitions").
		SetVersion(Version)

	manager := &Manager{
		app: app,
		out: os.Stdout,
	}

	manager.setupDefinitionCommands()
	manager.setupAuditCommands()
	manager.setupUtilityCommands()

	return manager
}

// WithAudit records every parsed command line in auditLogger and serves
// the audit commands from it.
func (m *Manager) WithAudit(auditLogger *mist.AuditLogger) *Manager {
	m.auditLogger = auditLogger
	return m
}

// SetOutput redirects command output, which defaults to stdout.
func (m *Manager) SetOutput(w io.Writer) *Manager {
	m.out = w
	return m
}

// Run executes the CLI. Arguments after the first "--" are not interpreted
// by the tool; parse receives them as the command line to resolve.
func (m *Manager) Run(args []string) error {
	m.tokens = nil
	if i := slices.Index(args, mist.TerminatorToken); i >= 0 {
		m.tokens = slices.Clone(args[i+1:])
		args = args[:i]
	}
	return m.app.Run(args)
}

// setupDefinitionCommands registers the commands working on definition files.
func (m *Manager) setupDefinitionCommands() {
	// parse <definition> [--format=json] [--no-validate] -- <tokens...>
	parseCmd := orpheus.NewCommand("parse", "Parse a command line against a definition").
		AddFlag("format", "f", "json", "Output format (json|yaml)").
		AddBoolFlag("no-validate", "n", false, "Skip validation of the parse result").
		SetHandler(m.handleParse)
	m.app.AddCommand(parseCmd)

	// check <definition>
	checkCmd := orpheus.NewCommand("check", "Validate a definition file").
		SetHandler(m.handleCheck)
	m.app.AddCommand(checkCmd)

	// tree <definition> [--flags]
	treeCmd := orpheus.NewCommand("tree", "Print the command tree of a definition").
		AddBoolFlag("flags", "F", false, "List the effective flags of every command").
		SetHandler(m.handleTree)
	m.app.AddCommand(treeCmd)

	// usage <definition> [command path...] [--style=text]
	usageCmd := orpheus.NewCommand("usage", "Render help for a command of a definition").
		AddFlag("style", "s", "text", "Help style (text|flash)").
		AddIntFlag("width", "w", 0, "Wrap width (default 80)").
		SetHandler(m.handleUsage)
	m.app.AddCommand(usageCmd)

	// export <definition> [--format=yaml]
	exportCmd := orpheus.NewCommand("export", "Print a definition in normalized form").
		AddFlag("format", "f", "yaml", "Output format (json|yaml)").
		SetHandler(m.handleExport)
	m.app.AddCommand(exportCmd)
}

// setupAuditCommands registers the audit trail commands.
func (m *Manager) setupAuditCommands() {
	auditCmd := orpheus.NewCommand("audit", "Audit trail management")

	queryCmd := auditCmd.Subcommand("query", "Query recorded invocations", m.handleAuditQuery)
	queryCmd.AddFlag("since", "s", "24h", "Time range (e.g., 24h, 7d, 2w)")
	queryCmd.AddFlag("event", "e", "", "Event type filter")
	queryCmd.AddFlag("command", "c", "", "Command path prefix filter")
	queryCmd.AddFlag("file", "f", "", "Audit database or .jsonl file")
	queryCmd.AddIntFlag("limit", "l", 100, "Maximum results")

	statsCmd := auditCmd.Subcommand("stats", "Summarize the audit trail", m.handleAuditStats)
	statsCmd.AddFlag("file", "f", "", "Audit database or .jsonl file")

	cleanupCmd := auditCmd.Subcommand("cleanup", "Remove old audit entries", m.handleAuditCleanup)
	cleanupCmd.AddFlag("older-than", "o", "30d", "Delete entries older than")
	cleanupCmd.AddFlag("file", "f", "", "Audit database or .jsonl file")
	cleanupCmd.AddBoolFlag("dry-run", "d", false, "Show what would be deleted")

	m.app.AddCommand(auditCmd)
}

// setupUtilityCommands registers info and completion.
func (m *Manager) setupUtilityCommands() {
	infoCmd := orpheus.NewCommand("info", "Tool information and diagnostics")
	infoCmd.SetHandler(m.handleInfo)
	infoCmd.AddBoolFlag("verbose", "v", false, "Verbose information")
	m.app.AddCommand(infoCmd)

	completionCmd := orpheus.NewCommand("completion", "Generate shell completion scripts")
	completionCmd.SetHandler(m.handleCompletion)
	m.app.AddCommand(completionCmd)
}
