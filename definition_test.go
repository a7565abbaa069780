// definition_test.go: Tests for declarative command trees
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package mist

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/zclconf/go-cty/cty"
)

const yamlDefinition = `
name: deploy
description: Ship containers
simple_alias: true
flags:
  - {name: verbose, kind: bool}
  - {name: config, default: deploy.yaml, usage: configuration file}
commands:
  - name: push
    inherit: all
    flags:
      - {name: target, kind: enum, values: [staging, production], default: staging}
      - {name: tags, kind: list, default: [latest]}
    positionals:
      - {name: image}
  - name: status
    inherit: none
    no_alias: true
    flags:
      - {name: watch, kind: bool, default: true}
`

const jsonDefinition = `{
  "name": "tool",
  "flags": [
    {"name": "count", "parser": "int", "default": 3},
    {"name": "tag", "parser": "append"}
  ],
  "positionals": [{"name": "file", "default": "in.txt"}],
  "commands": [
    {"name": "sub", "inherit_only": ["count"], "flags": [{"name": "timeout", "parser": "duration"}]}
  ]
}`

const hclDefinition = `
name         = "deploy"
simple_alias = true

flag "verbose" {
  kind    = "bool"
  default = false
}

flag "retries" {
  default = 3
}

command "push" {
  description = "Push an image"

  flag "target" {
    kind   = "enum"
    values = ["staging", "production"]
  }

  flag "tags" {
    kind    = "list"
    default = ["latest", "stable"]
  }

  positional "image" {
    usage = "image reference"
  }

  command "force" {
    inherit_only = ["target"]
  }
}
`

func mustLookupDef(t *testing.T, root *Command, path ...string) *Command {
	t.Helper()
	cmd, ok := root.Lookup(path...)
	if !ok {
		t.Fatalf("command %v not found", path)
	}
	return cmd
}

func verifyFlagSchema(t *testing.T, cmd *Command, name string, kind ValueKind, alias string, def any) {
	t.Helper()
	f, ok := cmd.EffectiveFlags().Lookup(name)
	if !ok {
		t.Fatalf("%s: flag %q not declared", cmd.CommandPath(), name)
	}
	if f.Kind != kind {
		t.Errorf("%s: flag %q kind = %v, want %v", cmd.CommandPath(), name, f.Kind, kind)
	}
	if f.Alias != alias {
		t.Errorf("%s: flag %q alias = %q, want %q", cmd.CommandPath(), name, f.Alias, alias)
	}
	if !reflect.DeepEqual(f.Default, def) {
		t.Errorf("%s: flag %q default = %#v, want %#v", cmd.CommandPath(), name, f.Default, def)
	}
}

func TestParseDefinition_YAML(t *testing.T) {
	root, err := ParseDefinition([]byte(yamlDefinition), FormatYAML)
	if err != nil {
		t.Fatalf("ParseDefinition: %v", err)
	}

	if root.Name != "deploy" || root.Description != "Ship containers" || root.Alias != AliasSimple {
		t.Errorf("root = %+v", root)
	}
	verifyFlagSchema(t, root, "verbose", KindBool, "v", nil)
	verifyFlagSchema(t, root, "config", KindString, "c", "deploy.yaml")

	push := mustLookupDef(t, root, "push")
	verifyFlagSchema(t, push, "verbose", KindBool, "v", nil)
	verifyFlagSchema(t, push, "target", KindEnum, "t", "staging")
	verifyFlagSchema(t, push, "tags", KindList, "t", []string{"latest"})
	if len(push.Positionals) != 1 || push.Positionals[0].Name != "image" {
		t.Errorf("push positionals = %+v", push.Positionals)
	}

	status := mustLookupDef(t, root, "status")
	if status.Alias != AliasNone {
		t.Errorf("status alias mode = %v", status.Alias)
	}
	if status.EffectiveFlags().Has("verbose") {
		t.Error("status inherits nothing")
	}
	verifyFlagSchema(t, status, "watch", KindBool, "", true)

	res, node := root.Parse([]string{"push", "--target", "production", "-v", "app:1"})
	if node != push {
		t.Fatalf("resolved %q", node.CommandPath())
	}
	verifyFlag(t, res, "target", "production")
	verifyFlag(t, res, "verbose", true)
	verifyFlag(t, res, "config", "deploy.yaml")
	verifyPositionals(t, res, "app:1")
}

func TestParseDefinition_JSON(t *testing.T) {
	root, err := ParseDefinition([]byte(jsonDefinition), FormatJSON)
	if err != nil {
		t.Fatalf("ParseDefinition: %v", err)
	}
	verifyFlagSchema(t, root, "count", KindString, "", "3")

	res, _ := root.Parse(nil)
	verifyFlag(t, res, "count", "3")
	verifyPositionals(t, res, "in.txt")

	res, _ = root.Parse([]string{"--count", "7", "--tag", "a", "--tag=b"})
	verifyFlag(t, res, "count", 7)
	verifyFlag(t, res, "tag", []string{"a", "b"})

	sub := mustLookupDef(t, root, "sub")
	if names := sub.EffectiveFlags().Names(); !reflect.DeepEqual(names, []string{"count", "timeout"}) {
		t.Errorf("sub flags = %v", names)
	}
	res, _ = root.Parse([]string{"sub", "--timeout=1m30s"})
	if res.String("timeout") != "1m30s" {
		t.Errorf("timeout = %#v", res.Flags["timeout"])
	}
}

func TestParseDefinition_HCL(t *testing.T) {
	root, err := ParseDefinition([]byte(hclDefinition), FormatHCL)
	if err != nil {
		t.Fatalf("ParseDefinition: %v", err)
	}
	verifyFlagSchema(t, root, "verbose", KindBool, "v", false)
	verifyFlagSchema(t, root, "retries", KindString, "r", "3")

	push := mustLookupDef(t, root, "push")
	if push.Description != "Push an image" {
		t.Errorf("push description = %q", push.Description)
	}
	verifyFlagSchema(t, push, "tags", KindList, "t", []string{"latest", "stable"})
	if f, _ := push.EffectiveFlags().Lookup("target"); !reflect.DeepEqual(f.Values, []string{"staging", "production"}) {
		t.Errorf("target values = %v", f.Values)
	}
	if push.Positionals[0].Usage != "image reference" {
		t.Errorf("positional usage = %q", push.Positionals[0].Usage)
	}

	force := mustLookupDef(t, root, "push", "force")
	if names := force.EffectiveFlags().Names(); !reflect.DeepEqual(names, []string{"target"}) {
		t.Errorf("force flags = %v", names)
	}
	if force.Alias != AliasSimple {
		t.Error("simple aliases propagate through HCL definitions")
	}
}

func TestParseDefinition_NestedSimpleAlias(t *testing.T) {
	const data = `
name: app
flags:
  - {name: quiet, kind: bool}
commands:
  - name: c
    simple_alias: true
    flags:
      - {name: verbose, kind: bool}
    commands:
      - name: g
        flags:
          - {name: depth}
`
	root, err := ParseDefinition([]byte(data), FormatYAML)
	if err != nil {
		t.Fatalf("ParseDefinition: %v", err)
	}
	verifyFlagSchema(t, root, "quiet", KindBool, "", nil)
	c := mustLookupDef(t, root, "c")
	verifyFlagSchema(t, c, "verbose", KindBool, "v", nil)
	verifyFlagSchema(t, mustLookupDef(t, root, "c", "g"), "depth", KindString, "d", nil)

	res, _ := root.Parse([]string{"c", "-v"})
	verifyFlag(t, res, "verbose", true)

	def := DefinitionOf(root)
	if def.SimpleAlias || !def.Commands[0].SimpleAlias {
		t.Errorf("alias mode should be exported on c only: %+v", def)
	}
	if def.Commands[0].Flags[0].Alias != "" || def.Commands[0].Commands[0].SimpleAlias {
		t.Errorf("generated aliases should not be exported: %+v", def.Commands[0])
	}
}

func TestParseDefinition_Errors(t *testing.T) {
	tests := []struct {
		name   string
		format DefinitionFormat
		data   string
		code   string
		msg    string
	}{
		{"unknown kind", FormatYAML, "name: a\nflags: [{name: x, kind: number}]", ErrCodeDefinition, "unknown flag kind"},
		{"unknown parser", FormatYAML, "flags: [{name: x, parser: hex}]", ErrCodeDefinition, `unknown parser "hex"`},
		{"unknown positional parser", FormatYAML, "positionals: [{name: x, parser: hex}]", ErrCodeDefinition, `unknown parser "hex"`},
		{"unnamed positional", FormatYAML, "positionals: [{usage: x}]", ErrCodeDefinition, "positional without a name"},
		{"unknown inherit", FormatYAML, "commands: [{name: a, inherit: some}]", ErrCodeDefinition, `unknown inherit mode "some"`},
		{"inherit with inherit_only", FormatYAML, "commands: [{name: a, inherit: none, inherit_only: [x]}]", ErrCodeDefinition, "together with inherit_only"},
		{"simple and no alias", FormatYAML, "simple_alias: true\nno_alias: true", ErrCodeDefinition, "both simple_alias and no_alias"},
		{"unknown field", FormatYAML, "name: a\nflagz: []", ErrCodeDefinition, "failed to decode definition"},
		{"bool default", FormatYAML, "flags: [{name: x, kind: bool, default: maybe}]", ErrCodeDefinition, "invalid default"},
		{"map default", FormatYAML, "flags: [{name: x, default: {a: 1}}]", ErrCodeDefinition, "invalid default"},
		{"enum without values", FormatYAML, "flags: [{name: x, kind: enum}]", ErrCodeConfiguration, "no allowed values"},
		{"duplicate command", FormatYAML, "commands: [{name: a}, {name: a}]", ErrCodeConfiguration, "already has a child"},
		{"hcl syntax", FormatHCL, "flag \"x\" {", ErrCodeDefinition, "failed to parse HCL"},
		{"hcl unknown block", FormatHCL, "flagz \"x\" {}", ErrCodeDefinition, "failed to decode HCL"},
		{"hcl map default", FormatHCL, "flag \"x\" {\n  default = {a = 1}\n}", ErrCodeDefinition, "invalid default"},
		{"unknown format", FormatUnknown, "name: a", ErrCodeDefinition, "unsupported definition format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDefinition([]byte(tt.data), tt.format)
			if err == nil {
				t.Fatal("expected an error")
			}
			if ErrorCode(err) != tt.code {
				t.Errorf("code = %q, want %q (%v)", ErrorCode(err), tt.code, err)
			}
			if !strings.Contains(err.Error(), tt.msg) {
				t.Errorf("error %q does not mention %q", err.Error(), tt.msg)
			}
		})
	}
}

func TestLoadDefinition(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"tree.yaml": yamlDefinition,
		"tree.JSON": jsonDefinition,
		"tree.hcl":  hclDefinition,
	}
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			t.Fatal(err)
		}
		t.Run(name, func(t *testing.T) {
			root, err := LoadDefinition(path)
			if err != nil {
				t.Fatalf("LoadDefinition: %v", err)
			}
			if root.Name == "" {
				t.Error("root name not loaded")
			}
		})
	}

	if _, err := LoadDefinition(filepath.Join(dir, "tree.toml")); ErrorCode(err) != ErrCodeDefinition {
		t.Errorf("unknown extension: %v", err)
	}
	if _, err := LoadDefinition(filepath.Join(dir, "missing.yaml")); ErrorCode(err) != ErrCodeIOError {
		t.Errorf("missing file: %v", err)
	}
}

func TestDefinitionOf_RoundTrip(t *testing.T) {
	root, err := ParseDefinition([]byte(yamlDefinition), FormatYAML)
	if err != nil {
		t.Fatal(err)
	}

	def := DefinitionOf(root)
	if !def.SimpleAlias || def.NoAlias {
		t.Errorf("root alias mode lost: %+v", def)
	}
	if def.Flags[0].Alias != "" {
		t.Error("generated aliases should not be exported")
	}
	push := def.Commands[0]
	if push.SimpleAlias {
		t.Error("inherited simple alias mode should not be repeated on children")
	}
	status := def.Commands[1]
	if !status.NoAlias || status.Inherit != "none" {
		t.Errorf("status definition = %+v", status)
	}

	data, err := def.EncodeYAML()
	if err != nil {
		t.Fatal(err)
	}
	rebuilt, err := ParseDefinition(data, FormatYAML)
	if err != nil {
		t.Fatalf("re-parsing exported YAML: %v\n%s", err, data)
	}
	if !reflect.DeepEqual(DefinitionOf(rebuilt), def) {
		t.Errorf("export is not stable:\n%s", data)
	}
}

func TestDefinitionOf_InheritOnly(t *testing.T) {
	root := MustNew(&Command{Name: "app", Flags: []Flag{{Name: "a"}, {Name: "b"}}})
	root.MustSub(nil, "sub", &Command{Inheritance: InheritOnly("b")})

	def := DefinitionOf(root)
	if got := def.Commands[0].InheritOnly; !reflect.DeepEqual(got, []string{"b"}) {
		t.Errorf("InheritOnly = %v", got)
	}
}

func TestNormalizeDefault(t *testing.T) {
	tests := []struct {
		kind    ValueKind
		in      any
		want    any
		wantErr bool
	}{
		{KindString, "x", "x", false},
		{KindString, 3, "3", false},
		{KindEnum, 1.5, "1.5", false},
		{KindString, []any{"a"}, nil, true},
		{KindBool, true, true, false},
		{KindBool, "true", nil, true},
		{KindList, []any{"a", 2}, []string{"a", "2"}, false},
		{KindList, []string{"a"}, []string{"a"}, false},
		{KindList, "solo", []string{"solo"}, false},
		{KindList, []any{[]any{"nested"}}, nil, true},
	}
	for _, tt := range tests {
		got, err := normalizeDefault(tt.kind, tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("normalizeDefault(%v, %#v) error = %v", tt.kind, tt.in, err)
			continue
		}
		if !tt.wantErr && !reflect.DeepEqual(got, tt.want) {
			t.Errorf("normalizeDefault(%v, %#v) = %#v, want %#v", tt.kind, tt.in, got, tt.want)
		}
	}
}

func TestCtyToGo(t *testing.T) {
	tests := []struct {
		name    string
		in      cty.Value
		want    any
		wantErr bool
	}{
		{"nil", cty.NilVal, nil, false},
		{"null", cty.NullVal(cty.String), nil, false},
		{"unknown", cty.UnknownVal(cty.String), nil, false},
		{"string", cty.StringVal("x"), "x", false},
		{"bool", cty.True, true, false},
		{"int", cty.NumberIntVal(42), 42, false},
		{"float", cty.NumberFloatVal(2.5), 2.5, false},
		{"tuple", cty.TupleVal([]cty.Value{cty.StringVal("a"), cty.NumberIntVal(1)}), []any{"a", 1}, false},
		{"list", cty.ListVal([]cty.Value{cty.StringVal("a")}), []any{"a"}, false},
		{"object", cty.ObjectVal(map[string]cty.Value{"a": cty.True}), nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ctyToGo(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ctyToGo = %#v, want %#v", got, tt.want)
			}
		})
	}
}
