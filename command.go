// command.go: Command tree declaration and registration
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package mist

import (
	"context"
	"fmt"
	"strings"
)

// RunFunc executes a resolved command. Its return value becomes the value
// returned by Dispatch.
type RunFunc func(ctx context.Context, res *Result, cmd *Command) (any, error)

// TeardownFunc is registered with the shutdown registry before the run hook
// executes and fires once when the process shuts down.
type TeardownFunc func(ctx context.Context, res *Result, cmd *Command) error

// ValidateFunc inspects a parse result before the run hook.
type ValidateFunc func(res *Result, cmd *Command) error

// HelpFunc renders help for the resolved command.
type HelpFunc func(cmd *Command) (any, error)

// AliasMode controls single character alias generation.
type AliasMode int

const (
	// AliasDefault inherits the parent's mode at registration.
	AliasDefault AliasMode = iota
	// AliasSimple gives every flag an alias equal to its first character.
	// It applies to the command's own flags and to its descendants, whether
	// set on the command itself or inherited from the parent.
	AliasSimple
	// AliasNone disables generation and stops it from propagating.
	AliasNone
)

func (m AliasMode) String() string {
	switch m {
	case AliasSimple:
		return "simple"
	case AliasNone:
		return "none"
	default:
		return "default"
	}
}

// Command is one node of the command tree. A Command is built and
// registered before parsing starts and must not be mutated afterwards.
type Command struct {
	Name        string
	Description string

	Flags       []Flag
	Positionals []Positional
	Inheritance Inheritance
	Alias       AliasMode

	// NoValidate suppresses the default validator for this command and
	// its descendants, unless one of them sets Validate.
	NoValidate bool

	Run      RunFunc
	Teardown TeardownFunc
	Validate ValidateFunc
	Help     HelpFunc

	parent   *Command
	children map[string]*Command
	order    []string
}

// New prepares def as the root of a command tree: flag schemas are checked
// and simple aliases generated when requested.
func New(def *Command) (*Command, error) {
	if def == nil {
		return nil, configError("root command definition is nil")
	}
	if def.parent != nil {
		return nil, configError(fmt.Sprintf("command %q is already registered under %q", def.Name, def.parent.Name))
	}
	if err := def.checkFlags(); err != nil {
		return nil, err
	}
	if def.Alias == AliasSimple {
		def.propagateSimpleAlias()
	}
	return def, nil
}

// MustNew is like New but panics on error. Intended for static trees.
func MustNew(def *Command) *Command {
	c, err := New(def)
	if err != nil {
		panic(err)
	}
	return c
}

// Sub registers def as the child name of the command reached by following
// path from c. Every element of path must already exist. When the parent
// generates simple aliases and def does not opt out, def and its existing
// descendants generate them too.
func (c *Command) Sub(path []string, name string, def *Command) error {
	parent := c
	for i, segment := range path {
		next, ok := parent.children[segment]
		if !ok {
			return configError(fmt.Sprintf("cannot register %q: no command %q under %q",
				name, strings.Join(path[:i+1], " "), parent.displayName()))
		}
		parent = next
	}
	return parent.attach(name, def)
}

// AddCommand registers def as a direct child of c.
func (c *Command) AddCommand(name string, def *Command) error {
	return c.attach(name, def)
}

// MustSub is like Sub but panics on error.
func (c *Command) MustSub(path []string, name string, def *Command) *Command {
	if err := c.Sub(path, name, def); err != nil {
		panic(err)
	}
	return def
}

func (c *Command) attach(name string, def *Command) error {
	if name == "" {
		return configError(fmt.Sprintf("cannot register a command without a name under %q", c.displayName()))
	}
	if def == nil {
		return configError(fmt.Sprintf("command %q has a nil definition", name))
	}
	if def == c || def.isAncestorOf(c) {
		return configError(fmt.Sprintf("command %q cannot be registered under itself", name))
	}
	if def.parent != nil {
		return configError(fmt.Sprintf("command %q is already registered under %q", name, def.parent.displayName()))
	}
	if _, exists := c.children[name]; exists {
		return configError(fmt.Sprintf("command %q already has a child named %q", c.displayName(), name))
	}
	def.Name = name
	if err := def.checkFlags(); err != nil {
		return err
	}

	if def.Alias == AliasSimple || (c.Alias == AliasSimple && def.Alias != AliasNone) {
		def.propagateSimpleAlias()
	}

	def.parent = c
	if c.children == nil {
		c.children = make(map[string]*Command)
	}
	c.children[name] = def
	c.order = append(c.order, name)
	return nil
}

func (c *Command) checkFlags() error {
	seen := make(map[string]struct{}, len(c.Flags))
	for _, f := range c.Flags {
		if err := f.validate(c.displayName()); err != nil {
			return err
		}
		if _, dup := seen[f.Name]; dup {
			return configError(fmt.Sprintf("command %q declares flag %q twice", c.displayName(), f.Name))
		}
		seen[f.Name] = struct{}{}
	}
	return nil
}

// propagateSimpleAlias switches c and its descendants, except those that
// disabled generation, to simple aliases.
func (c *Command) propagateSimpleAlias() {
	c.Alias = AliasSimple
	applySimpleAlias(c.Flags)
	for _, name := range c.order {
		if child := c.children[name]; child.Alias != AliasNone {
			child.propagateSimpleAlias()
		}
	}
}

// applySimpleAlias sets every alias to the first character of the flag
// name. Flags sharing a first character share an alias; lookup resolves it
// to the last one declared.
func applySimpleAlias(flags []Flag) {
	for i := range flags {
		flags[i].Alias = firstChar(flags[i].Name)
	}
}

func (c *Command) isAncestorOf(n *Command) bool {
	for p := n.parent; p != nil; p = p.parent {
		if p == c {
			return true
		}
	}
	return false
}

func (c *Command) displayName() string {
	if c.Name == "" {
		return "<root>"
	}
	return c.Name
}

// Parent returns the command c is registered under, or nil for a root.
func (c *Command) Parent() *Command { return c.parent }

// Root returns the top of the tree containing c.
func (c *Command) Root() *Command {
	r := c
	for r.parent != nil {
		r = r.parent
	}
	return r
}

// Child returns the direct child registered under name.
func (c *Command) Child(name string) (*Command, bool) {
	child, ok := c.children[name]
	return child, ok
}

// Children returns the direct children in registration order.
func (c *Command) Children() []*Command {
	out := make([]*Command, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.children[name])
	}
	return out
}

// Lookup follows path down from c.
func (c *Command) Lookup(path ...string) (*Command, bool) {
	node := c
	for _, segment := range path {
		next, ok := node.children[segment]
		if !ok {
			return nil, false
		}
		node = next
	}
	return node, true
}

// Path returns the child names leading from the root to c.
func (c *Command) Path() []string {
	var path []string
	for n := c; n.parent != nil; n = n.parent {
		path = append(path, n.Name)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// CommandPath returns the root name followed by Path, space separated.
func (c *Command) CommandPath() string {
	parts := append([]string{c.Root().Name}, c.Path()...)
	return strings.TrimSpace(strings.Join(parts, " "))
}

// EffectiveFlags computes the flags recognized at c by applying every
// inheritance rule from the root down.
func (c *Command) EffectiveFlags() *FlagSet {
	var chain []*Command
	for n := c; n != nil; n = n.parent {
		chain = append(chain, n)
	}
	fs := newFlagSet(chain[len(chain)-1].Flags)
	for i := len(chain) - 2; i >= 0; i-- {
		fs = fs.derive(chain[i].Inheritance, chain[i].Flags)
	}
	return fs
}
