// parsers.go: Named value parsers and definition format detection
//
// Definition files cannot carry Go functions, so flags and positionals
// declared there refer to value parsers by name. Built-in parsers cover
// the common conversions; applications register their own with
// RegisterValueParser before loading a definition.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package mist

import (
	"path/filepath"
	"slices"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// DefinitionFormat identifies the encoding of a definition file.
type DefinitionFormat int

const (
	FormatYAML DefinitionFormat = iota
	FormatJSON
	FormatHCL
	FormatUnknown
)

func (f DefinitionFormat) String() string {
	switch f {
	case FormatYAML:
		return "yaml"
	case FormatJSON:
		return "json"
	case FormatHCL:
		return "hcl"
	default:
		return "unknown"
	}
}

// DetectFormat picks the format from the file extension, case-insensitively.
func DetectFormat(filePath string) DefinitionFormat {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".json":
		return FormatJSON
	case ".hcl":
		return FormatHCL
	default:
		return FormatUnknown
	}
}

// ParseFormat parses a format name as accepted on the command line.
func ParseFormat(name string) DefinitionFormat {
	switch strings.ToLower(name) {
	case "yaml", "yml":
		return FormatYAML
	case "json":
		return FormatJSON
	case "hcl":
		return FormatHCL
	default:
		return FormatUnknown
	}
}

var (
	valueParsers   = builtinValueParsers()
	valueParsersMu sync.RWMutex
)

func builtinValueParsers() map[string]FlagParser {
	return map[string]FlagParser{
		"int":      parseIntValue,
		"float":    parseFloatValue,
		"duration": parseDurationValue,
		"append":   appendValue,
	}
}

// RegisterValueParser makes fn available to definition files under name,
// replacing any parser already registered with that name.
func RegisterValueParser(name string, fn FlagParser) {
	valueParsersMu.Lock()
	defer valueParsersMu.Unlock()
	valueParsers[name] = fn
}

// ValueParser returns the parser registered under name.
func ValueParser(name string) (FlagParser, bool) {
	valueParsersMu.RLock()
	defer valueParsersMu.RUnlock()
	fn, ok := valueParsers[name]
	return fn, ok
}

// ValueParserNames lists the registered parser names in sorted order.
func ValueParserNames() []string {
	valueParsersMu.RLock()
	defer valueParsersMu.RUnlock()
	names := make([]string, 0, len(valueParsers))
	for name := range valueParsers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// positionalParser adapts a flag parser for positionals, which have no
// previous value.
func positionalParser(fn FlagParser) PositionalParser {
	return func(raw string) any { return fn(raw, nil) }
}

// Conversions that fail return the raw string unchanged. The parser never
// fails, and a typed run hook notices the mismatch.

func parseIntValue(raw string, _ any) any {
	if n, err := strconv.Atoi(raw); err == nil {
		return n
	}
	return raw
}

func parseFloatValue(raw string, _ any) any {
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	return raw
}

func parseDurationValue(raw string, _ any) any {
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return raw
}

// appendValue collects every occurrence of a repeated flag.
func appendValue(raw string, previous any) any {
	switch prev := previous.(type) {
	case []string:
		return append(slices.Clone(prev), raw)
	case string:
		return []string{prev, raw}
	default:
		return []string{raw}
	}
}
