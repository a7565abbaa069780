// Command handlers for the mist CLI
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package cli

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"github.com/agilira/go-errors"
	"github.com/agilira/mist"
	"github.com/agilira/orpheus/pkg/orpheus"
)

// parseReport is what parse prints for a resolved command line.
type parseReport struct {
	Command     string         `json:"command" yaml:"command"`
	Path        []string       `json:"path" yaml:"path"`
	Flags       map[string]any `json:"flags" yaml:"flags"`
	Positionals []any          `json:"positionals" yaml:"positionals"`
	Passthrough []string       `json:"passthrough,omitempty" yaml:"passthrough,omitempty"`
}

func newParseReport(cmd *mist.Command, res *mist.Result) *parseReport {
	path := cmd.Path()
	if path == nil {
		path = []string{}
	}
	positionals := res.Positionals
	if positionals == nil {
		positionals = []any{}
	}
	return &parseReport{
		Command:     cmd.CommandPath(),
		Path:        path,
		Flags:       res.Flags,
		Positionals: positionals,
		Passthrough: res.Passthrough,
	}
}

// handleParse resolves the tokens after "--" against a definition, runs
// validation and prints the result.
func (m *Manager) handleParse(ctx *orpheus.Context) error {
	path, err := requireArg(ctx, 0, "definition")
	if err != nil {
		return err
	}
	format, err := outputFormat(ctx.GetFlagString("format"))
	if err != nil {
		return err
	}

	root, err := mist.LoadDefinition(path)
	if err != nil {
		return err
	}
	if ctx.GetFlagBool("no-validate") {
		root.NoValidate = true
	}
	root.Run = func(_ context.Context, res *mist.Result, cmd *mist.Command) (any, error) {
		return newParseReport(cmd, res), nil
	}

	dispatcher, err := mist.NewDispatcher(root, &mist.Options{
		Output:      m.out,
		Shutdown:    mist.NewShutdown(0, nil),
		AuditLogger: m.auditLogger,
	})
	if err != nil {
		return err
	}
	defer func() { _ = dispatcher.Close() }()

	out, err := dispatcher.Dispatch(context.Background(), m.tokens)
	if err != nil {
		return err
	}
	// Help was requested and already written.
	report, ok := out.(*parseReport)
	if !ok {
		return nil
	}
	return m.writeEncoded(format, report)
}

// handleCheck loads a definition and reports its size.
func (m *Manager) handleCheck(ctx *orpheus.Context) error {
	path, err := requireArg(ctx, 0, "definition")
	if err != nil {
		return err
	}
	root, err := mist.LoadDefinition(path)
	if err != nil {
		fmt.Fprintf(m.out, "Invalid definition %s: %v\n", path, err)
		return err
	}

	commands, flags := 0, 0
	walk(root, func(cmd *mist.Command, _ int) {
		commands++
		flags += len(cmd.Flags)
	})
	fmt.Fprintf(m.out, "Valid %s definition: %s (%d commands, %d flags)\n",
		mist.DetectFormat(path), path, commands, flags)
	return nil
}

// handleTree prints the command hierarchy.
func (m *Manager) handleTree(ctx *orpheus.Context) error {
	path, err := requireArg(ctx, 0, "definition")
	if err != nil {
		return err
	}
	root, err := mist.LoadDefinition(path)
	if err != nil {
		return err
	}
	showFlags := ctx.GetFlagBool("flags")

	walk(root, func(cmd *mist.Command, depth int) {
		name := cmd.Name
		if depth == 0 && name == "" {
			name = "."
		}
		indent := strings.Repeat("  ", depth)
		if cmd.Description != "" {
			fmt.Fprintf(m.out, "%s%s - %s\n", indent, name, cmd.Description)
		} else {
			fmt.Fprintf(m.out, "%s%s\n", indent, name)
		}
		if showFlags {
			if names := cmd.EffectiveFlags().Names(); len(names) > 0 {
				fmt.Fprintf(m.out, "%s  flags: --%s\n", indent, strings.Join(names, " --"))
			}
		}
	})
	return nil
}

// handleUsage renders help for the command at the given path.
func (m *Manager) handleUsage(ctx *orpheus.Context) error {
	path, err := requireArg(ctx, 0, "definition")
	if err != nil {
		return err
	}
	root, err := mist.LoadDefinition(path)
	if err != nil {
		return err
	}

	commandPath := restArgs(ctx, 1)
	cmd, ok := root.Lookup(commandPath...)
	if !ok {
		return errors.New(mist.ErrCodeInvalidOptions,
			fmt.Sprintf("no command %q in %s", strings.Join(commandPath, " "), path))
	}

	switch ctx.GetFlagString("style") {
	case "", "text":
		fmt.Fprint(m.out, mist.RenderHelp(cmd, ctx.GetFlagInt("width")))
	case "flash":
		_, err = mist.FlashHelp(cmd)
	default:
		err = errors.New(mist.ErrCodeInvalidOptions, fmt.Sprintf("unsupported help style: %s", ctx.GetFlagString("style")))
	}
	return err
}

// handleExport prints the normalized definition.
func (m *Manager) handleExport(ctx *orpheus.Context) error {
	path, err := requireArg(ctx, 0, "definition")
	if err != nil {
		return err
	}
	format, err := outputFormat(ctx.GetFlagString("format"))
	if err != nil {
		return err
	}
	root, err := mist.LoadDefinition(path)
	if err != nil {
		return err
	}
	def := mist.DefinitionOf(root)
	if format == mist.FormatYAML {
		data, err := def.EncodeYAML()
		if err != nil {
			return err
		}
		_, err = m.out.Write(data)
		return err
	}
	return m.writeEncoded(format, def)
}

// handleAuditQuery prints recorded events matching the filters.
func (m *Manager) handleAuditQuery(ctx *orpheus.Context) error {
	since, err := parseExtendedDuration(ctx.GetFlagString("since"))
	if err != nil {
		return errors.Wrap(err, mist.ErrCodeInvalidOptions, "invalid --since value")
	}
	audit, release, err := m.openAudit(ctx.GetFlagString("file"))
	if err != nil {
		return err
	}
	defer release()

	events, err := audit.Query(mist.AuditQuery{
		Since:   timeAgo(since),
		Event:   ctx.GetFlagString("event"),
		Command: ctx.GetFlagString("command"),
		Limit:   ctx.GetFlagInt("limit"),
	})
	if err != nil {
		return errors.Wrap(err, mist.ErrCodeAudit, "failed to query audit trail")
	}

	if len(events) == 0 {
		fmt.Fprintln(m.out, "No audit events found")
		return nil
	}
	for _, e := range events {
		line := fmt.Sprintf("%s %-8s %-17s %s", e.Timestamp.Format("2006-01-02 15:04:05"), e.Level, e.Event, e.Command)
		if len(e.Args) > 0 {
			line += " [" + strings.Join(e.Args, " ") + "]"
		}
		if e.Error != "" {
			line += " error=" + e.Error
		}
		fmt.Fprintln(m.out, strings.TrimRight(line, " "))
	}
	return nil
}

// handleAuditStats prints a summary of the audit trail.
func (m *Manager) handleAuditStats(ctx *orpheus.Context) error {
	audit, release, err := m.openAudit(ctx.GetFlagString("file"))
	if err != nil {
		return err
	}
	defer release()

	stats, err := audit.Stats()
	if err != nil {
		return errors.Wrap(err, mist.ErrCodeAudit, "failed to read audit statistics")
	}

	fmt.Fprintf(m.out, "Total events: %d\n", stats.TotalEvents)
	if stats.OldestEvent != nil && stats.NewestEvent != nil {
		fmt.Fprintf(m.out, "Range: %s - %s\n",
			stats.OldestEvent.Format("2006-01-02 15:04:05"), stats.NewestEvent.Format("2006-01-02 15:04:05"))
	}
	writeCounts(m.out, "By event", stats.EventsByEvent)
	writeCounts(m.out, "By level", stats.EventsByLevel)
	writeCounts(m.out, "By command", stats.EventsByCommand)
	fmt.Fprintf(m.out, "Schema version: %d\n", stats.SchemaVersion)
	return nil
}

// handleAuditCleanup removes old audit entries.
func (m *Manager) handleAuditCleanup(ctx *orpheus.Context) error {
	olderThan, err := parseExtendedDuration(ctx.GetFlagString("older-than"))
	if err != nil {
		return errors.Wrap(err, mist.ErrCodeInvalidOptions, "invalid --older-than value")
	}
	audit, release, err := m.openAudit(ctx.GetFlagString("file"))
	if err != nil {
		return err
	}
	defer release()

	dryRun := ctx.GetFlagBool("dry-run")
	removed, err := audit.Cleanup(olderThan, dryRun)
	if err != nil {
		return errors.Wrap(err, mist.ErrCodeAudit, "failed to clean up audit trail")
	}
	if dryRun {
		fmt.Fprintf(m.out, "Would remove %d audit events older than %v\n", removed, olderThan)
	} else {
		fmt.Fprintf(m.out, "Removed %d audit events older than %v\n", removed, olderThan)
	}
	return nil
}

// handleInfo displays tool information.
func (m *Manager) handleInfo(ctx *orpheus.Context) error {
	fmt.Fprintf(m.out, "mist command tree toolkit\n")
	fmt.Fprintf(m.out, "Version: %s\n", Version)

	if ctx.GetFlagBool("verbose") {
		fmt.Fprintf(m.out, "\nDetails:\n")
		fmt.Fprintf(m.out, "Go version: %s\n", runtime.Version())
		fmt.Fprintf(m.out, "Definition formats: yaml, json, hcl\n")
		fmt.Fprintf(m.out, "Value parsers: %s\n", strings.Join(mist.ValueParserNames(), ", "))
		fmt.Fprintf(m.out, "Audit logging: %v\n", m.auditLogger != nil)
	}
	return nil
}

const toolCommands = "parse check tree usage export audit info completion"

// handleCompletion generates shell completion scripts.
func (m *Manager) handleCompletion(ctx *orpheus.Context) error {
	shell := ctx.GetArg(0)

	switch shell {
	case "bash":
		fmt.Fprintf(m.out, "# Bash completion for mist\n")
		fmt.Fprintf(m.out, "# Add to ~/.bashrc: source <(mist completion bash)\n")
		fmt.Fprintf(m.out, "_mist_completion() {\n")
		fmt.Fprintf(m.out, "  COMPREPLY=($(compgen -W '%s' -- \"${COMP_WORDS[COMP_CWORD]}\"))\n", toolCommands)
		fmt.Fprintf(m.out, "}\n")
		fmt.Fprintf(m.out, "complete -F _mist_completion mist\n")
	case "zsh":
		fmt.Fprintf(m.out, "#compdef mist\n")
		fmt.Fprintf(m.out, "# Add to ~/.zshrc: source <(mist completion zsh)\n")
		fmt.Fprintf(m.out, "_mist() {\n")
		fmt.Fprintf(m.out, "  _arguments '1: :(%s)'\n", toolCommands)
		fmt.Fprintf(m.out, "}\n")
	case "fish":
		fmt.Fprintf(m.out, "# Fish completion for mist\n")
		fmt.Fprintf(m.out, "complete -c mist -f -a '%s'\n", toolCommands)
	default:
		return errors.New(mist.ErrCodeInvalidOptions, fmt.Sprintf("unsupported shell: %s", shell))
	}
	return nil
}
