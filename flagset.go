// flagset.go: Effective flag sets and inheritance rules
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package mist

import (
	"slices"
	"strings"
)

type inheritMode int

const (
	inheritAll inheritMode = iota
	inheritNone
	inheritOnly
)

// Inheritance controls which of the parent's effective flags a command sees.
// The zero value inherits everything.
type Inheritance struct {
	mode  inheritMode
	names []string
}

var (
	// InheritAll keeps every flag of the parent (the default).
	InheritAll = Inheritance{}
	// InheritNone limits the command to its own flags.
	InheritNone = Inheritance{mode: inheritNone}
)

// InheritOnly keeps only the named parent flags.
func InheritOnly(names ...string) Inheritance {
	return Inheritance{mode: inheritOnly, names: slices.Clone(names)}
}

// Names returns the inherited subset for InheritOnly, nil otherwise.
func (i Inheritance) Names() []string { return slices.Clone(i.names) }

func (i Inheritance) String() string {
	switch i.mode {
	case inheritNone:
		return "none"
	case inheritOnly:
		return "only(" + strings.Join(i.names, ",") + ")"
	default:
		return "all"
	}
}

func (i Inheritance) keeps(name string) bool {
	switch i.mode {
	case inheritNone:
		return false
	case inheritOnly:
		return slices.Contains(i.names, name)
	default:
		return true
	}
}

// FlagSet is the immutable set of flags recognized at one command.
// Iteration order is inherited flags first, then the command's own flags;
// an overriding flag keeps the position of the flag it replaces.
type FlagSet struct {
	order   []string
	flags   map[string]Flag
	aliases map[string]string
}

func newFlagSet(own []Flag) *FlagSet {
	return (&FlagSet{}).derive(InheritNone, own)
}

// derive computes the effective set of a child from its parent's set.
// The receiver is never modified.
func (fs *FlagSet) derive(inh Inheritance, own []Flag) *FlagSet {
	next := &FlagSet{
		order: make([]string, 0, len(fs.order)+len(own)),
		flags: make(map[string]Flag, len(fs.order)+len(own)),
	}
	for _, name := range fs.order {
		if inh.keeps(name) {
			next.order = append(next.order, name)
			next.flags[name] = fs.flags[name]
		}
	}
	for _, f := range own {
		if _, exists := next.flags[f.Name]; !exists {
			next.order = append(next.order, f.Name)
		}
		next.flags[f.Name] = f
	}

	// Later flags win a shared alias.
	next.aliases = make(map[string]string)
	for _, name := range next.order {
		if alias := next.flags[name].Alias; alias != "" {
			next.aliases[alias] = name
		}
	}
	return next
}

// Lookup returns the flag registered under its full name.
func (fs *FlagSet) Lookup(name string) (Flag, bool) {
	f, ok := fs.flags[name]
	return f, ok
}

// Has reports whether name is a recognized flag.
func (fs *FlagSet) Has(name string) bool {
	_, ok := fs.flags[name]
	return ok
}

// ResolveAlias maps a single character alias to the full flag name.
func (fs *FlagSet) ResolveAlias(alias string) (string, bool) {
	name, ok := fs.aliases[alias]
	return name, ok
}

// Names returns the flag names in iteration order.
func (fs *FlagSet) Names() []string { return slices.Clone(fs.order) }

// Flags returns the flags in iteration order.
func (fs *FlagSet) Flags() []Flag {
	out := make([]Flag, 0, len(fs.order))
	for _, name := range fs.order {
		out = append(out, fs.flags[name])
	}
	return out
}

// Len returns the number of flags in the set.
func (fs *FlagSet) Len() int { return len(fs.order) }
