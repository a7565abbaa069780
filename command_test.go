// command_test.go: Tests for command tree registration
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package mist

import (
	"reflect"
	"strings"
	"testing"
)

func verifyConfigError(t *testing.T, err error, contains string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected a configuration error containing %q", contains)
	}
	if code := ErrorCode(err); code != ErrCodeConfiguration {
		t.Errorf("error code = %q, want %q (%v)", code, ErrCodeConfiguration, err)
	}
	if !strings.Contains(err.Error(), contains) {
		t.Errorf("error %q does not contain %q", err.Error(), contains)
	}
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name     string
		def      *Command
		contains string
	}{
		{"nil definition", nil, "nil"},
		{"unnamed flag", &Command{Flags: []Flag{{}}}, "without a name"},
		{"dashed flag name", &Command{Flags: []Flag{{Name: "--x"}}}, "invalid name"},
		{"equals in flag name", &Command{Flags: []Flag{{Name: "a=b"}}}, "invalid name"},
		{"long alias", &Command{Flags: []Flag{{Name: "verbose", Alias: "vb"}}}, "single character"},
		{"enum without values", &Command{Flags: []Flag{{Name: "mode", Kind: KindEnum}}}, "no allowed values"},
		{"duplicate flag", &Command{Flags: []Flag{{Name: "x"}, {Name: "x"}}}, "twice"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.def)
			verifyConfigError(t, err, tt.contains)
		})
	}
}

func TestMustNew_Panics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustNew should panic on an invalid definition")
		}
	}()
	MustNew(&Command{Flags: []Flag{{Name: ""}}})
}

func TestSub_UnknownPathSegment(t *testing.T) {
	root := MustNew(&Command{Name: "app"})
	root.MustSub(nil, "remote", &Command{})

	err := root.Sub([]string{"remote", "missing"}, "add", &Command{})
	verifyConfigError(t, err, `no command "remote missing"`)

	err = root.Sub([]string{"nope"}, "add", &Command{})
	verifyConfigError(t, err, `no command "nope" under "app"`)
}

func TestSub_RegistrationErrors(t *testing.T) {
	root := MustNew(&Command{})
	child := root.MustSub(nil, "child", &Command{})

	verifyConfigError(t, root.Sub(nil, "", &Command{}), "without a name")
	verifyConfigError(t, root.Sub(nil, "x", nil), "nil definition")
	verifyConfigError(t, root.Sub(nil, "child", &Command{}), "already has a child")
	verifyConfigError(t, root.Sub(nil, "again", child), "already registered")
	verifyConfigError(t, child.AddCommand("loop", root), "under itself")
	verifyConfigError(t, root.AddCommand("self", root), "under itself")
}

func TestSub_NestedPaths(t *testing.T) {
	root := MustNew(&Command{Name: "git"})
	root.MustSub(nil, "remote", &Command{Description: "Manage remotes"})
	add := root.MustSub([]string{"remote"}, "add", &Command{})

	if add.Name != "add" {
		t.Errorf("Name = %q, want add", add.Name)
	}
	if got := add.Path(); !reflect.DeepEqual(got, []string{"remote", "add"}) {
		t.Errorf("Path() = %v", got)
	}
	if got := add.CommandPath(); got != "git remote add" {
		t.Errorf("CommandPath() = %q", got)
	}
	if add.Root() != root {
		t.Error("Root() should return the tree root")
	}
	if add.Parent().Name != "remote" {
		t.Errorf("Parent() = %q", add.Parent().Name)
	}

	found, ok := root.Lookup("remote", "add")
	if !ok || found != add {
		t.Error("Lookup should find remote add")
	}
	if _, ok := root.Lookup("remote", "rm"); ok {
		t.Error("Lookup should not find remote rm")
	}
	if found, ok := root.Lookup(); !ok || found != root {
		t.Error("Lookup without a path returns the receiver")
	}
}

func TestCommand_PathOfUnnamedRoot(t *testing.T) {
	root := MustNew(&Command{})
	sub := root.MustSub(nil, "build", &Command{})

	if got := root.CommandPath(); got != "" {
		t.Errorf("root CommandPath() = %q, want empty", got)
	}
	if got := sub.CommandPath(); got != "build" {
		t.Errorf("CommandPath() = %q, want build", got)
	}
	if root.Path() != nil {
		t.Errorf("root Path() = %v, want nil", root.Path())
	}
}

func TestCommand_ChildrenInRegistrationOrder(t *testing.T) {
	root := MustNew(&Command{})
	for _, name := range []string{"zeta", "alpha", "mid"} {
		root.MustSub(nil, name, &Command{})
	}

	var names []string
	for _, c := range root.Children() {
		names = append(names, c.Name)
	}
	if !reflect.DeepEqual(names, []string{"zeta", "alpha", "mid"}) {
		t.Errorf("Children() = %v", names)
	}
	if _, ok := root.Child("alpha"); !ok {
		t.Error("Child(alpha) not found")
	}
}

func aliasesOf(flags []Flag) []string {
	out := make([]string, len(flags))
	for i, f := range flags {
		out[i] = f.Alias
	}
	return out
}

func TestSimpleAlias_Generation(t *testing.T) {
	root := MustNew(&Command{
		Alias: AliasSimple,
		Flags: []Flag{{Name: "verbose", Kind: KindBool}, {Name: "output", Alias: "x"}},
	})
	if got := aliasesOf(root.Flags); !reflect.DeepEqual(got, []string{"v", "o"}) {
		t.Errorf("root aliases = %v", got)
	}

	res, _ := root.Parse([]string{"-v", "-o", "out.txt"})
	verifyFlag(t, res, "verbose", true)
	verifyFlag(t, res, "output", "out.txt")
}

func TestSimpleAlias_PropagatesToChildren(t *testing.T) {
	root := MustNew(&Command{Alias: AliasSimple})

	// Built before attachment: existing descendants are switched too.
	child := &Command{Flags: []Flag{{Name: "target"}}}
	grandchild := &Command{Flags: []Flag{{Name: "force", Kind: KindBool}}}
	if err := child.AddCommand("now", grandchild); err != nil {
		t.Fatal(err)
	}
	if err := root.AddCommand("deploy", child); err != nil {
		t.Fatal(err)
	}
	// Registered after attachment.
	late := root.MustSub([]string{"deploy"}, "later", &Command{Flags: []Flag{{Name: "delay"}}})

	for _, c := range []*Command{child, grandchild, late} {
		if c.Alias != AliasSimple {
			t.Errorf("%s: Alias = %v, want simple", c.Name, c.Alias)
		}
	}
	if got := aliasesOf(grandchild.Flags); !reflect.DeepEqual(got, []string{"f"}) {
		t.Errorf("grandchild aliases = %v", got)
	}
	if got := aliasesOf(late.Flags); !reflect.DeepEqual(got, []string{"d"}) {
		t.Errorf("late aliases = %v", got)
	}
}

func TestSimpleAlias_DeclaredOnChild(t *testing.T) {
	root := MustNew(&Command{Flags: []Flag{{Name: "quiet", Kind: KindBool}}})
	child := root.MustSub(nil, "c", &Command{
		Alias: AliasSimple,
		Flags: []Flag{{Name: "verbose", Kind: KindBool}},
	})
	grandchild := root.MustSub([]string{"c"}, "g", &Command{Flags: []Flag{{Name: "quick", Kind: KindBool}}})

	if root.Flags[0].Alias != "" {
		t.Errorf("parent without simple aliases got alias %q", root.Flags[0].Alias)
	}
	if got := aliasesOf(child.Flags); !reflect.DeepEqual(got, []string{"v"}) {
		t.Errorf("child aliases = %v", got)
	}
	if got := aliasesOf(grandchild.Flags); !reflect.DeepEqual(got, []string{"q"}) {
		t.Errorf("grandchild aliases = %v", got)
	}

	res, err := root.Parse([]string{"c", "-v"})
	if err != nil {
		t.Fatal(err)
	}
	verifyFlag(t, res, "verbose", true)
	if res.Has("v") {
		t.Error("-v should resolve to verbose, not an unknown flag")
	}
}

func TestSimpleAlias_OptOut(t *testing.T) {
	root := MustNew(&Command{Alias: AliasSimple})
	quiet := root.MustSub(nil, "quiet", &Command{
		Alias: AliasNone,
		Flags: []Flag{{Name: "level"}},
	})
	inner := root.MustSub([]string{"quiet"}, "inner", &Command{Flags: []Flag{{Name: "depth"}}})

	if quiet.Flags[0].Alias != "" {
		t.Errorf("opted out command got alias %q", quiet.Flags[0].Alias)
	}
	if inner.Alias == AliasSimple || inner.Flags[0].Alias != "" {
		t.Error("generation must not propagate past an opted out command")
	}
}

func TestSimpleAlias_Idempotent(t *testing.T) {
	root := MustNew(&Command{
		Alias: AliasSimple,
		Flags: []Flag{{Name: "alpha"}, {Name: "beta"}, {Name: "also"}},
	})
	root.MustSub(nil, "child", &Command{Flags: []Flag{{Name: "gamma"}}})
	first := aliasesOf(root.Flags)
	child, _ := root.Child("child")
	firstChild := aliasesOf(child.Flags)

	root.propagateSimpleAlias()
	if _, err := New(root); err != nil {
		t.Fatalf("re-registering the root: %v", err)
	}

	if got := aliasesOf(root.Flags); !reflect.DeepEqual(got, first) {
		t.Errorf("aliases changed: %v -> %v", first, got)
	}
	if got := aliasesOf(child.Flags); !reflect.DeepEqual(got, firstChild) {
		t.Errorf("child aliases changed: %v -> %v", firstChild, got)
	}
}

func TestSimpleAlias_LastDeclaredWinsCollision(t *testing.T) {
	root := MustNew(&Command{
		Alias: AliasSimple,
		Flags: []Flag{{Name: "force", Kind: KindBool}, {Name: "fast", Kind: KindBool}},
	})

	res, _ := root.Parse([]string{"-f"})
	verifyFlag(t, res, "fast", true)
	if res.Has("force") {
		t.Error("force should be shadowed by the later fast alias")
	}
}

func TestSimpleAlias_MultibyteName(t *testing.T) {
	root := MustNew(&Command{
		Alias: AliasSimple,
		Flags: []Flag{{Name: "über", Kind: KindBool}},
	})
	if root.Flags[0].Alias != "ü" {
		t.Errorf("alias = %q, want ü", root.Flags[0].Alias)
	}
	res, _ := root.Parse([]string{"-ü"})
	verifyFlag(t, res, "über", true)
}

func TestAliasMode_String(t *testing.T) {
	for mode, want := range map[AliasMode]string{
		AliasDefault: "default",
		AliasSimple:  "simple",
		AliasNone:    "none",
	} {
		if got := mode.String(); got != want {
			t.Errorf("String() = %q, want %q", got, want)
		}
	}
}

func TestEffectiveFlags_Chain(t *testing.T) {
	root := MustNew(&Command{Flags: []Flag{{Name: "verbose"}, {Name: "config"}, {Name: "color"}}})
	mid := root.MustSub(nil, "mid", &Command{
		Inheritance: InheritOnly("verbose", "config"),
		Flags:       []Flag{{Name: "region"}},
	})
	leaf := root.MustSub([]string{"mid"}, "leaf", &Command{
		Flags: []Flag{{Name: "config", Kind: KindBool}},
	})
	bare := root.MustSub([]string{"mid"}, "bare", &Command{Inheritance: InheritNone})

	if got := mid.EffectiveFlags().Names(); !reflect.DeepEqual(got, []string{"verbose", "config", "region"}) {
		t.Errorf("mid flags = %v", got)
	}
	leafFlags := leaf.EffectiveFlags()
	if got := leafFlags.Names(); !reflect.DeepEqual(got, []string{"verbose", "config", "region"}) {
		t.Errorf("leaf flags = %v", got)
	}
	if f, _ := leafFlags.Lookup("config"); f.Kind != KindBool {
		t.Error("leaf should override config with its own bool flag")
	}
	if bare.EffectiveFlags().Len() != 0 {
		t.Errorf("bare flags = %v", bare.EffectiveFlags().Names())
	}
}
