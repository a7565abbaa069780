// result.go: Parse results and typed accessors
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package mist

import (
	"fmt"
	"strconv"
)

// HelpFlag is the flag name that requests help. A lone -h maps to it unless
// the command declares its own h alias.
const HelpFlag = "help"

// Result holds everything extracted from one token sequence.
//
// Flag values are string, bool, []string, nil (a flag that expected a value
// and got none) or whatever a custom parser returned.
type Result struct {
	Flags       map[string]any
	Positionals []any
	Passthrough []string
}

func newResult() *Result {
	return &Result{Flags: make(map[string]any)}
}

// Has reports whether the flag was set, including by its default.
func (r *Result) Has(name string) bool {
	_, ok := r.Flags[name]
	return ok
}

// Get returns the raw value stored for a flag.
func (r *Result) Get(name string) (any, bool) {
	v, ok := r.Flags[name]
	return v, ok
}

// Missing reports whether the flag is present with no value.
func (r *Result) Missing(name string) bool {
	v, ok := r.Flags[name]
	return ok && v == nil
}

// String returns the flag value formatted as a string, "" when unset.
func (r *Result) String(name string) string {
	switch v := r.Flags[name].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// Bool returns the flag as a boolean. String values are parsed with
// strconv.ParseBool; anything else reports false.
func (r *Result) Bool(name string) bool {
	switch v := r.Flags[name].(type) {
	case bool:
		return v
	case string:
		b, err := strconv.ParseBool(v)
		return err == nil && b
	default:
		return false
	}
}

// List returns a list flag value. A single string is returned as a one
// element list.
func (r *Result) List(name string) []string {
	switch v := r.Flags[name].(type) {
	case []string:
		return v
	case string:
		return []string{v}
	default:
		return nil
	}
}

// Help reports whether help was requested.
func (r *Result) Help() bool {
	switch v := r.Flags[HelpFlag].(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != "" && v != "false"
	default:
		return true
	}
}

// NArg returns the number of collected positionals.
func (r *Result) NArg() int { return len(r.Positionals) }

// Arg returns positional i, or nil when out of range.
func (r *Result) Arg(i int) any {
	if i < 0 || i >= len(r.Positionals) {
		return nil
	}
	return r.Positionals[i]
}

// Args returns the positionals formatted as strings.
func (r *Result) Args() []string {
	out := make([]string, len(r.Positionals))
	for i, v := range r.Positionals {
		if s, ok := v.(string); ok {
			out[i] = s
		} else {
			out[i] = fmt.Sprint(v)
		}
	}
	return out
}
