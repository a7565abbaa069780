// definition_hcl.go: HCL definition files
//
//	name         = "deploy"
//	simple_alias = true
//
//	flag "verbose" {
//	  kind    = "bool"
//	  default = false
//	}
//
//	command "push" {
//	  flag "target" {
//	    kind   = "enum"
//	    values = ["staging", "production"]
//	  }
//	  positional "image" {}
//	}
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package mist

import (
	"fmt"
	"math/big"

	"github.com/agilira/go-errors"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
)

// hclDefinitionFile is the top level of an HCL definition.
type hclDefinitionFile struct {
	Name        string           `hcl:"name,optional"`
	Description string           `hcl:"description,optional"`
	SimpleAlias bool             `hcl:"simple_alias,optional"`
	NoAlias     bool             `hcl:"no_alias,optional"`
	NoValidate  bool             `hcl:"no_validate,optional"`
	Flags       []*hclFlag       `hcl:"flag,block"`
	Positionals []*hclPositional `hcl:"positional,block"`
	Commands    []*hclCommand    `hcl:"command,block"`
}

type hclCommand struct {
	Name        string           `hcl:"name,label"`
	Description string           `hcl:"description,optional"`
	SimpleAlias bool             `hcl:"simple_alias,optional"`
	NoAlias     bool             `hcl:"no_alias,optional"`
	NoValidate  bool             `hcl:"no_validate,optional"`
	Inherit     string           `hcl:"inherit,optional"`
	InheritOnly []string         `hcl:"inherit_only,optional"`
	Flags       []*hclFlag       `hcl:"flag,block"`
	Positionals []*hclPositional `hcl:"positional,block"`
	Commands    []*hclCommand    `hcl:"command,block"`
}

type hclFlag struct {
	Name    string    `hcl:"name,label"`
	Kind    string    `hcl:"kind,optional"`
	Alias   string    `hcl:"alias,optional"`
	Default cty.Value `hcl:"default,optional"`
	Values  []string  `hcl:"values,optional"`
	Parser  string    `hcl:"parser,optional"`
	Usage   string    `hcl:"usage,optional"`
}

type hclPositional struct {
	Name    string    `hcl:"name,label"`
	Default cty.Value `hcl:"default,optional"`
	Parser  string    `hcl:"parser,optional"`
	Usage   string    `hcl:"usage,optional"`
}

func decodeHCLDefinition(data []byte, filename string) (*Definition, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(data, filename)
	if diags.HasErrors() {
		return nil, errors.Wrap(diags, ErrCodeDefinition, fmt.Sprintf("failed to parse HCL definition %s", filename))
	}

	var parsed hclDefinitionFile
	if diags := gohcl.DecodeBody(file.Body, nil, &parsed); diags.HasErrors() {
		return nil, errors.Wrap(diags, ErrCodeDefinition, fmt.Sprintf("failed to decode HCL definition %s", filename))
	}

	def := &Definition{
		Name:        parsed.Name,
		Description: parsed.Description,
		SimpleAlias: parsed.SimpleAlias,
		NoAlias:     parsed.NoAlias,
		NoValidate:  parsed.NoValidate,
	}
	if err := fillHCLMembers(def, parsed.Flags, parsed.Positionals, parsed.Commands); err != nil {
		return nil, err
	}
	return def, nil
}

func (c *hclCommand) definition() (Definition, error) {
	def := Definition{
		Name:        c.Name,
		Description: c.Description,
		SimpleAlias: c.SimpleAlias,
		NoAlias:     c.NoAlias,
		NoValidate:  c.NoValidate,
		Inherit:     c.Inherit,
		InheritOnly: c.InheritOnly,
	}
	err := fillHCLMembers(&def, c.Flags, c.Positionals, c.Commands)
	return def, err
}

func fillHCLMembers(def *Definition, flags []*hclFlag, positionals []*hclPositional, commands []*hclCommand) error {
	for _, f := range flags {
		value, err := ctyToGo(f.Default)
		if err != nil {
			return errors.Wrap(err, ErrCodeDefinition, fmt.Sprintf("flag %q has an invalid default", f.Name))
		}
		def.Flags = append(def.Flags, FlagDefinition{
			Name:    f.Name,
			Kind:    f.Kind,
			Alias:   f.Alias,
			Default: value,
			Values:  f.Values,
			Parser:  f.Parser,
			Usage:   f.Usage,
		})
	}
	for _, p := range positionals {
		value, err := ctyToGo(p.Default)
		if err != nil {
			return errors.Wrap(err, ErrCodeDefinition, fmt.Sprintf("positional %q has an invalid default", p.Name))
		}
		def.Positionals = append(def.Positionals, PositionalDefinition{
			Name:    p.Name,
			Default: value,
			Parser:  p.Parser,
			Usage:   p.Usage,
		})
	}
	for _, c := range commands {
		child, err := c.definition()
		if err != nil {
			return err
		}
		def.Commands = append(def.Commands, child)
	}
	return nil
}

// ctyToGo converts an attribute value to the Go types the YAML decoder
// produces. An absent attribute yields nil.
func ctyToGo(val cty.Value) (any, error) {
	if !val.IsKnown() || val.IsNull() {
		return nil, nil
	}
	ty := val.Type()
	switch {
	case ty == cty.String:
		return val.AsString(), nil
	case ty == cty.Bool:
		return val.True(), nil
	case ty == cty.Number:
		bf := val.AsBigFloat()
		if bf.IsInt() {
			if n, acc := bf.Int64(); acc == big.Exact {
				return int(n), nil
			}
		}
		f, _ := bf.Float64()
		return f, nil
	case ty.IsTupleType() || ty.IsListType() || ty.IsSetType():
		out := make([]any, 0, val.LengthInt())
		for it := val.ElementIterator(); it.Next(); {
			_, v := it.Element()
			item, err := ctyToGo(v)
			if err != nil {
				return nil, err
			}
			out = append(out, item)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported value type: %s", ty.FriendlyName())
	}
}
