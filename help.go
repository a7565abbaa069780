// help.go: Help renderers
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package mist

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	flashflags "github.com/agilira/flash-flags"
	"golang.org/x/term"
)

// DefaultHelpWidth is used when the output is not a terminal.
const DefaultHelpWidth = 80

// TextHelp returns a help hook writing RenderHelp output to w, wrapped to
// the terminal width when w is one. The hook returns the rendered text.
func TextHelp(w io.Writer) HelpFunc {
	return func(cmd *Command) (any, error) {
		text := RenderHelp(cmd, helpWidth(w))
		if _, err := io.WriteString(w, text); err != nil {
			return nil, fmt.Errorf("failed to write help: %w", err)
		}
		return text, nil
	}
}

func helpWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return DefaultHelpWidth
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width < 40 {
		return DefaultHelpWidth
	}
	return width
}

// RenderHelp formats the usage of cmd: its description, subcommands,
// effective flags and positionals.
func RenderHelp(cmd *Command, width int) string {
	if width <= 0 {
		width = DefaultHelpWidth
	}
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Usage: %s\n", usageLine(cmd))
	if cmd.Description != "" {
		buf.WriteByte('\n')
		for _, line := range wrap(cmd.Description, width-2) {
			fmt.Fprintf(&buf, "  %s\n", line)
		}
	}

	if children := cmd.Children(); len(children) > 0 {
		buf.WriteString("\nCommands:\n")
		tw := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', 0)
		for _, child := range children {
			fmt.Fprintf(tw, "  %s\t%s\n", child.Name, child.Description)
		}
		_ = tw.Flush()
	}

	if flags := cmd.EffectiveFlags().Flags(); len(flags) > 0 {
		buf.WriteString("\nFlags:\n")
		tw := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', 0)
		for _, f := range flags {
			fmt.Fprintf(tw, "  %s\t%s\t%s\n", flagSignature(f), f.Kind, flagDetail(f))
		}
		_ = tw.Flush()
	}

	if len(cmd.Positionals) > 0 {
		buf.WriteString("\nArguments:\n")
		tw := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', 0)
		for _, p := range cmd.Positionals {
			detail := p.Usage
			if p.Default != nil {
				detail = strings.TrimSpace(fmt.Sprintf("%s (default: %v)", detail, p.Default))
			}
			fmt.Fprintf(tw, "  %s\t%s\n", p.Name, detail)
		}
		_ = tw.Flush()
	}
	return buf.String()
}

func usageLine(cmd *Command) string {
	parts := []string{cmd.CommandPath()}
	if parts[0] == "" {
		parts[0] = getProcessName()
	}
	if cmd.EffectiveFlags().Len() > 0 {
		parts = append(parts, "[flags]")
	}
	if len(cmd.order) > 0 {
		parts = append(parts, "<command>")
	}
	for _, p := range cmd.Positionals {
		if p.Default != nil {
			parts = append(parts, "["+p.Name+"]")
		} else {
			parts = append(parts, "<"+p.Name+">")
		}
	}
	return strings.Join(parts, " ")
}

func flagSignature(f Flag) string {
	if f.Alias != "" {
		return fmt.Sprintf("-%s, --%s", f.Alias, f.Name)
	}
	return "    --" + f.Name
}

func flagDetail(f Flag) string {
	detail := f.Usage
	if f.Kind == KindEnum {
		detail += fmt.Sprintf(" (one of: %s)", strings.Join(f.Values, ", "))
	}
	if f.HasDefault() {
		detail += fmt.Sprintf(" (default: %v)", f.Default)
	}
	return strings.TrimSpace(detail)
}

// wrap splits text into lines of at most width runes, breaking on spaces.
func wrap(text string, width int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	var lines []string
	line := words[0]
	for _, word := range words[1:] {
		if len([]rune(line))+1+len([]rune(word)) > width {
			lines = append(lines, line)
			line = word
			continue
		}
		line += " " + word
	}
	return append(lines, line)
}

// FlashFlagSet mirrors the effective flags of cmd into a flash-flags set,
// which callers can use for help output or environment binding.
func FlashFlagSet(cmd *Command) *flashflags.FlagSet {
	name := cmd.CommandPath()
	if name == "" {
		name = getProcessName()
	}
	fs := flashflags.New(name)
	if cmd.Description != "" {
		fs.SetDescription(cmd.Description)
	}
	for _, f := range cmd.EffectiveFlags().Flags() {
		switch f.Kind {
		case KindBool:
			def, _ := f.Default.(bool)
			fs.Bool(f.Name, def, f.Usage)
		case KindList:
			def, _ := f.Default.([]string)
			fs.StringSlice(f.Name, def, f.Usage)
		default:
			def := ""
			if f.HasDefault() {
				def = fmt.Sprint(f.Default)
			}
			fs.String(f.Name, def, flagDetail(f))
		}
	}
	return fs
}

// FlashHelp is a help hook printing flash-flags formatted help for the
// effective flags of the resolved command. It returns the flag set.
func FlashHelp(cmd *Command) (any, error) {
	fs := FlashFlagSet(cmd)
	fs.PrintHelp()
	return fs, nil
}
