// parser.go: Token parser state machine
//
// The parser walks the token sequence in three states. While seeking a
// command it descends into children whose name matches the token. The first
// token that does not name a child switches it, for the rest of the call,
// to consuming flags and positionals. A string-like flag without an inline
// value moves it to awaiting that flag's value.
//
// The parser never fails: malformed input yields a best-effort Result with
// nil markers, and validation decides what is acceptable.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package mist

import (
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"
)

type parseState int

const (
	stateSeekingCommand parseState = iota
	stateConsumingArguments
	stateAwaitingFlagValue
)

func (s parseState) String() string {
	switch s {
	case stateSeekingCommand:
		return "seeking_command"
	case stateConsumingArguments:
		return "consuming_arguments"
	case stateAwaitingFlagValue:
		return "awaiting_flag_value"
	default:
		return "unknown"
	}
}

// TerminatorToken ends flag and positional parsing. Every later token is
// copied verbatim to Result.Passthrough.
const TerminatorToken = "--"

// invocation is the outcome of one parse: the result, the command it
// resolved to, and the commands walked through on the way (root first).
type invocation struct {
	result    *Result
	node      *Command
	ancestors []*Command
	flags     *FlagSet
}

type parser struct {
	node      *Command
	ancestors []*Command
	flags     *FlagSet
	state     parseState
	pending   string
	slot      int
	res       *Result
	logger    *slog.Logger
}

var discardLogger = slog.New(slog.DiscardHandler)

// Parse resolves args against the tree rooted at c. It returns the parse
// result and the deepest command reached before argument parsing began.
func (c *Command) Parse(args []string) (*Result, *Command) {
	inv := c.parse(args, discardLogger)
	return inv.result, inv.node
}

func (c *Command) parse(args []string, logger *slog.Logger) *invocation {
	p := &parser{
		node:   c,
		flags:  c.EffectiveFlags(),
		res:    newResult(),
		logger: logger,
	}
	p.run(args)
	return &invocation{
		result:    p.res,
		node:      p.node,
		ancestors: p.ancestors,
		flags:     p.flags,
	}
}

func (p *parser) run(args []string) {
	for i, tok := range args {
		if p.state == stateSeekingCommand {
			if child, ok := p.node.children[tok]; ok {
				p.descend(child)
				continue
			}
			p.beginArguments()
		}

		if tok == TerminatorToken {
			p.resolvePending()
			p.res.Passthrough = slices.Clone(args[i+1:])
			if p.res.Passthrough == nil {
				p.res.Passthrough = []string{}
			}
			return
		}
		p.consume(tok)
	}

	if p.state == stateSeekingCommand {
		p.beginArguments()
	}
	p.resolvePending()
}

func (p *parser) descend(child *Command) {
	p.ancestors = append(p.ancestors, p.node)
	p.node = child
	p.flags = p.flags.derive(child.Inheritance, child.Flags)
	p.logger.Debug("descended into command",
		"command", child.Name,
		"inheritance", child.Inheritance.String(),
		"flags", p.flags.Len())
}

// beginArguments leaves the seeking state and seeds defaults for the
// resolved command, ahead of any token-derived value.
func (p *parser) beginArguments() {
	p.state = stateConsumingArguments
	for _, f := range p.flags.Flags() {
		if f.HasDefault() {
			p.res.Flags[f.Name] = f.Default
		}
	}
	for _, pos := range p.node.Positionals {
		if pos.Default != nil {
			p.res.Positionals = append(p.res.Positionals, pos.Default)
		}
	}
}

func (p *parser) consume(tok string) {
	if isFlagToken(tok) {
		p.resolvePending()
		p.flag(tok)
		return
	}
	if p.state == stateAwaitingFlagValue {
		f, _ := p.flags.Lookup(p.pending)
		p.assign(p.pending, f, tok)
		p.pending = ""
		p.state = stateConsumingArguments
		return
	}
	p.positional(tok)
}

// isFlagToken reports whether tok starts with a dash. A lone "-" is a
// positional, conventionally standing for stdin.
func isFlagToken(tok string) bool {
	return len(tok) > 1 && tok[0] == '-'
}

func (p *parser) flag(tok string) {
	name, value, hasValue := strings.Cut(strings.TrimLeft(tok, "-"), "=")
	name = p.canonicalName(name)

	f, declared := p.flags.Lookup(name)
	if !declared {
		if base, ok := strings.CutPrefix(name, "no-"); ok {
			if bf, ok := p.flags.Lookup(base); ok && bf.Kind == KindBool {
				p.res.Flags[base] = false
				return
			}
		}
	}

	switch {
	case declared && f.Kind == KindBool:
		if !hasValue {
			p.res.Flags[name] = true
			return
		}
		if b, err := strconv.ParseBool(value); err == nil {
			p.res.Flags[name] = b
		} else {
			// Kept raw so validation can report it.
			p.res.Flags[name] = value
		}
	case declared && f.Kind == KindList:
		if !hasValue || value == "" {
			p.res.Flags[name] = nil
			return
		}
		if f.Parser != nil {
			p.res.Flags[name] = f.Parser(value, p.res.Flags[name])
			return
		}
		p.res.Flags[name] = strings.Split(value, ",")
	default:
		if hasValue {
			p.assign(name, f, value)
			return
		}
		p.pending = name
		p.state = stateAwaitingFlagValue
	}
}

// canonicalName resolves single character names through the alias table.
func (p *parser) canonicalName(name string) string {
	if utf8.RuneCountInString(name) != 1 {
		return name
	}
	if full, ok := p.flags.ResolveAlias(name); ok {
		return full
	}
	if name == "h" && !p.flags.Has("h") {
		return HelpFlag
	}
	return name
}

func (p *parser) assign(name string, f Flag, raw string) {
	if f.Parser != nil {
		p.res.Flags[name] = f.Parser(raw, p.res.Flags[name])
		return
	}
	p.res.Flags[name] = raw
}

// resolvePending settles a flag still waiting for its value. Declared
// string flags become nil; every other kind, undeclared flags included,
// becomes true.
func (p *parser) resolvePending() {
	if p.state != stateAwaitingFlagValue {
		return
	}
	if f, ok := p.flags.Lookup(p.pending); ok && f.Kind == KindString {
		p.res.Flags[p.pending] = nil
	} else {
		p.res.Flags[p.pending] = true
	}
	p.pending = ""
	p.state = stateConsumingArguments
}

func (p *parser) positional(tok string) {
	var v any = tok
	if p.slot < len(p.node.Positionals) {
		if parse := p.node.Positionals[p.slot].Parser; parse != nil {
			v = parse(tok)
		}
	}
	p.res.Positionals = append(p.res.Positionals, v)
	p.slot++
}
