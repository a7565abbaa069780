// schema.go: Flag and positional argument schemas
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package mist

import (
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/agilira/go-errors"
)

// ValueKind describes the shape of the value a flag accepts.
type ValueKind int

const (
	// KindString flags take the next token (or an inline =value) as their value.
	// A string flag left without a value resolves to nil.
	KindString ValueKind = iota
	// KindBool flags are set to true by presence and to false by --no-<name>.
	KindBool
	// KindList flags take a comma separated inline value: --name=a,b,c.
	KindList
	// KindEnum flags behave like string flags restricted to Values.
	KindEnum
)

func (k ValueKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	case KindList:
		return "list"
	case KindEnum:
		return "enum"
	default:
		return "unknown"
	}
}

// ParseValueKind converts a kind name as used in definition files.
// The empty string selects KindString.
func ParseValueKind(s string) (ValueKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "string":
		return KindString, nil
	case "bool", "boolean":
		return KindBool, nil
	case "list":
		return KindList, nil
	case "enum":
		return KindEnum, nil
	default:
		return KindString, errors.New(ErrCodeDefinition, fmt.Sprintf("unknown flag kind %q", s))
	}
}

// FlagParser converts the raw token given to a flag. previous holds the value
// already stored for the flag (its default or an earlier occurrence), which
// lets a parser accumulate repeated flags.
type FlagParser func(raw string, previous any) any

// PositionalParser converts the raw token bound to a positional slot.
type PositionalParser func(raw string) any

// Flag is the schema of one named option.
type Flag struct {
	Name    string
	Kind    ValueKind
	Alias   string
	Default any
	Values  []string
	Parser  FlagParser
	Usage   string
}

// HasDefault reports whether the flag seeds the result before parsing.
func (f Flag) HasDefault() bool { return f.Default != nil }

// Allows reports whether v is acceptable for an enum flag.
// Non-enum flags accept any value.
func (f Flag) Allows(v string) bool {
	if f.Kind != KindEnum {
		return true
	}
	return slices.Contains(f.Values, v)
}

func (f Flag) validate(owner string) error {
	if f.Name == "" {
		return configError(fmt.Sprintf("command %q declares a flag without a name", owner))
	}
	if strings.HasPrefix(f.Name, "-") || strings.ContainsAny(f.Name, "= \t") {
		return configError(fmt.Sprintf("flag %q of command %q has an invalid name", f.Name, owner))
	}
	if utf8.RuneCountInString(f.Alias) > 1 {
		return configError(fmt.Sprintf("alias %q of flag %q must be a single character", f.Alias, f.Name))
	}
	if f.Kind == KindEnum && len(f.Values) == 0 {
		return configError(fmt.Sprintf("enum flag %q of command %q has no allowed values", f.Name, owner))
	}
	return nil
}

// Positional is the schema of one positional slot.
type Positional struct {
	Name    string
	Default any
	Parser  PositionalParser
	Usage   string
}

// firstChar returns the first character of s, used for simple aliases.
func firstChar(s string) string {
	_, size := utf8.DecodeRuneInString(s)
	return s[:size]
}
