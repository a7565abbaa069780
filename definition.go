// definition.go: Declarative command trees
//
// A definition file declares the same tree a program builds with New and
// AddCommand. Hooks are not part of a definition; bind them after loading
// with Lookup.
//
//	name: deploy
//	simple_alias: true
//	flags:
//	  - {name: verbose, kind: bool}
//	commands:
//	  - name: push
//	    inherit: all
//	    flags:
//	      - {name: target, kind: enum, values: [staging, production]}
//	    positionals:
//	      - {name: image}
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package mist

import (
	"bytes"
	"fmt"
	"os"

	"github.com/agilira/go-errors"
	"go.yaml.in/yaml/v3"
)

// Definition is the serializable form of a Command.
type Definition struct {
	Name        string                 `yaml:"name,omitempty" json:"name,omitempty"`
	Description string                 `yaml:"description,omitempty" json:"description,omitempty"`
	// SimpleAlias covers this command's flags and its subcommands.
	SimpleAlias bool                   `yaml:"simple_alias,omitempty" json:"simple_alias,omitempty"`
	NoAlias     bool                   `yaml:"no_alias,omitempty" json:"no_alias,omitempty"`
	NoValidate  bool                   `yaml:"no_validate,omitempty" json:"no_validate,omitempty"`
	Inherit     string                 `yaml:"inherit,omitempty" json:"inherit,omitempty"`
	InheritOnly []string               `yaml:"inherit_only,omitempty" json:"inherit_only,omitempty"`
	Flags       []FlagDefinition       `yaml:"flags,omitempty" json:"flags,omitempty"`
	Positionals []PositionalDefinition `yaml:"positionals,omitempty" json:"positionals,omitempty"`
	Commands    []Definition           `yaml:"commands,omitempty" json:"commands,omitempty"`
}

// FlagDefinition declares one flag. Parser names a parser registered with
// RegisterValueParser.
type FlagDefinition struct {
	Name    string   `yaml:"name" json:"name"`
	Kind    string   `yaml:"kind,omitempty" json:"kind,omitempty"`
	Alias   string   `yaml:"alias,omitempty" json:"alias,omitempty"`
	Default any      `yaml:"default,omitempty" json:"default,omitempty"`
	Values  []string `yaml:"values,omitempty" json:"values,omitempty"`
	Parser  string   `yaml:"parser,omitempty" json:"parser,omitempty"`
	Usage   string   `yaml:"usage,omitempty" json:"usage,omitempty"`
}

// PositionalDefinition declares one positional slot.
type PositionalDefinition struct {
	Name    string `yaml:"name" json:"name"`
	Default any    `yaml:"default,omitempty" json:"default,omitempty"`
	Parser  string `yaml:"parser,omitempty" json:"parser,omitempty"`
	Usage   string `yaml:"usage,omitempty" json:"usage,omitempty"`
}

func definitionError(msg string) *errors.Error {
	return errors.New(ErrCodeDefinition, msg)
}

// LoadDefinition reads a definition file, detecting its format from the
// extension, and builds the command tree.
func LoadDefinition(path string) (*Command, error) {
	format := DetectFormat(path)
	if format == FormatUnknown {
		return nil, definitionError(fmt.Sprintf("cannot detect definition format of %s", path)).
			WithContext("path", path)
	}
	data, err := os.ReadFile(path) // #nosec G304 -- path chosen by the caller
	if err != nil {
		return nil, errors.Wrap(err, ErrCodeIOError, "failed to read definition file").
			WithContext("path", path)
	}
	def, err := decodeDefinition(data, format, path)
	if err != nil {
		return nil, err
	}
	return def.Build()
}

// ParseDefinition decodes data in the given format and builds the tree.
func ParseDefinition(data []byte, format DefinitionFormat) (*Command, error) {
	def, err := decodeDefinition(data, format, "definition."+format.String())
	if err != nil {
		return nil, err
	}
	return def.Build()
}

func decodeDefinition(data []byte, format DefinitionFormat, filename string) (*Definition, error) {
	switch format {
	case FormatYAML, FormatJSON:
		return decodeYAMLDefinition(data)
	case FormatHCL:
		return decodeHCLDefinition(data, filename)
	default:
		return nil, definitionError(fmt.Sprintf("unsupported definition format: %s", format))
	}
}

// decodeYAMLDefinition also reads JSON, which YAML accepts as flow syntax.
// Unknown keys are rejected so typos do not silently drop flags.
func decodeYAMLDefinition(data []byte) (*Definition, error) {
	var def Definition
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&def); err != nil {
		return nil, errors.Wrap(err, ErrCodeDefinition, "failed to decode definition")
	}
	return &def, nil
}

// EncodeYAML encodes the definition as YAML.
func (d *Definition) EncodeYAML() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(d); err != nil {
		return nil, errors.Wrap(err, ErrCodeDefinition, "failed to encode definition")
	}
	if err := enc.Close(); err != nil {
		return nil, errors.Wrap(err, ErrCodeDefinition, "failed to encode definition")
	}
	return buf.Bytes(), nil
}

// Build converts the definition to a registered command tree.
func (d *Definition) Build() (*Command, error) {
	root, err := d.command()
	if err != nil {
		return nil, err
	}
	if _, err := New(root); err != nil {
		return nil, err
	}
	if err := d.attachChildren(root); err != nil {
		return nil, err
	}
	return root, nil
}

func (d *Definition) attachChildren(parent *Command) error {
	for i := range d.Commands {
		childDef := &d.Commands[i]
		child, err := childDef.command()
		if err != nil {
			return err
		}
		if err := parent.AddCommand(childDef.Name, child); err != nil {
			return err
		}
		if err := childDef.attachChildren(child); err != nil {
			return err
		}
	}
	return nil
}

func (d *Definition) command() (*Command, error) {
	cmd := &Command{
		Name:        d.Name,
		Description: d.Description,
		NoValidate:  d.NoValidate,
	}

	switch {
	case d.SimpleAlias && d.NoAlias:
		return nil, definitionError(fmt.Sprintf("command %q sets both simple_alias and no_alias", d.Name))
	case d.SimpleAlias:
		cmd.Alias = AliasSimple
	case d.NoAlias:
		cmd.Alias = AliasNone
	}

	switch {
	case len(d.InheritOnly) > 0:
		if d.Inherit != "" && d.Inherit != "only" {
			return nil, definitionError(fmt.Sprintf("command %q sets inherit %q together with inherit_only", d.Name, d.Inherit))
		}
		cmd.Inheritance = InheritOnly(d.InheritOnly...)
	case d.Inherit == "" || d.Inherit == "all":
		cmd.Inheritance = InheritAll
	case d.Inherit == "none":
		cmd.Inheritance = InheritNone
	default:
		return nil, definitionError(fmt.Sprintf("command %q has unknown inherit mode %q", d.Name, d.Inherit))
	}

	for _, fd := range d.Flags {
		f, err := fd.flag()
		if err != nil {
			return nil, err
		}
		cmd.Flags = append(cmd.Flags, f)
	}
	for _, pd := range d.Positionals {
		p, err := pd.positional()
		if err != nil {
			return nil, err
		}
		cmd.Positionals = append(cmd.Positionals, p)
	}
	return cmd, nil
}

func (fd FlagDefinition) flag() (Flag, error) {
	kind, err := ParseValueKind(fd.Kind)
	if err != nil {
		return Flag{}, err
	}
	f := Flag{
		Name:   fd.Name,
		Kind:   kind,
		Alias:  fd.Alias,
		Values: fd.Values,
		Usage:  fd.Usage,
	}
	if fd.Parser != "" {
		fn, ok := ValueParser(fd.Parser)
		if !ok {
			return Flag{}, definitionError(fmt.Sprintf("flag %q uses unknown parser %q", fd.Name, fd.Parser))
		}
		f.Parser = fn
	}
	if fd.Default != nil {
		def, err := normalizeDefault(kind, fd.Default)
		if err != nil {
			return Flag{}, errors.Wrap(err, ErrCodeDefinition, fmt.Sprintf("flag %q has an invalid default", fd.Name))
		}
		f.Default = def
	}
	return f, nil
}

func (pd PositionalDefinition) positional() (Positional, error) {
	p := Positional{Name: pd.Name, Usage: pd.Usage}
	if pd.Name == "" {
		return p, definitionError("positional without a name")
	}
	if pd.Parser != "" {
		fn, ok := ValueParser(pd.Parser)
		if !ok {
			return p, definitionError(fmt.Sprintf("positional %q uses unknown parser %q", pd.Name, pd.Parser))
		}
		p.Parser = positionalParser(fn)
	}
	if pd.Default != nil {
		def, err := normalizeDefault(KindString, pd.Default)
		if err != nil {
			return p, errors.Wrap(err, ErrCodeDefinition, fmt.Sprintf("positional %q has an invalid default", pd.Name))
		}
		p.Default = def
	}
	return p, nil
}

// normalizeDefault converts a decoded default to the Go type the parser
// would produce for kind: bool, []string or string.
func normalizeDefault(kind ValueKind, v any) (any, error) {
	switch kind {
	case KindBool:
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("expected a boolean, got %v", v)
		}
		return b, nil
	case KindList:
		switch list := v.(type) {
		case []string:
			return list, nil
		case []any:
			out := make([]string, 0, len(list))
			for _, item := range list {
				s, err := scalarString(item)
				if err != nil {
					return nil, err
				}
				out = append(out, s)
			}
			return out, nil
		default:
			s, err := scalarString(v)
			if err != nil {
				return nil, err
			}
			return []string{s}, nil
		}
	default:
		return scalarString(v)
	}
}

func scalarString(v any) (string, error) {
	switch v.(type) {
	case []any, map[string]any, []string:
		return "", fmt.Errorf("expected a scalar, got %v", v)
	}
	return fmt.Sprint(v), nil
}

// DefinitionOf converts a command tree back to its serializable form.
// Parsers and hooks have no serializable form and are omitted.
func DefinitionOf(cmd *Command) *Definition {
	d := &Definition{
		Name:        cmd.Name,
		Description: cmd.Description,
		NoValidate:  cmd.NoValidate,
		SimpleAlias: cmd.Alias == AliasSimple && (cmd.parent == nil || cmd.parent.Alias != AliasSimple),
		NoAlias:     cmd.Alias == AliasNone,
	}
	switch inh := cmd.Inheritance; inh.String() {
	case "all":
	case "none":
		d.Inherit = "none"
	default:
		d.InheritOnly = inh.Names()
	}
	for _, f := range cmd.Flags {
		fd := FlagDefinition{
			Name:    f.Name,
			Kind:    f.Kind.String(),
			Default: f.Default,
			Values:  f.Values,
			Usage:   f.Usage,
		}
		if cmd.Alias != AliasSimple {
			fd.Alias = f.Alias
		}
		d.Flags = append(d.Flags, fd)
	}
	for _, p := range cmd.Positionals {
		d.Positionals = append(d.Positionals, PositionalDefinition{Name: p.Name, Default: p.Default, Usage: p.Usage})
	}
	for _, child := range cmd.Children() {
		d.Commands = append(d.Commands, *DefinitionOf(child))
	}
	return d
}
