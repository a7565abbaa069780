// validate.go: Default validation of parse results
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package mist

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/agilira/go-errors"
)

// DefaultValidator rejects results the resolved command cannot accept.
// Checks run in this order and the first failure is returned:
//
//   - more positionals than the command declares
//   - flags outside the command's effective flag set
//   - enum values outside the allowed set, non-boolean values on bool flags
//   - flags left without a value (nil)
//
// Flags are checked in name order so the reported error is stable.
func DefaultValidator(res *Result, cmd *Command) error {
	if declared := len(cmd.Positionals); len(res.Positionals) > declared {
		return errors.New(ErrCodeTooManyPositionals,
			fmt.Sprintf("The command takes up to %d arguments but %d were provided", declared, len(res.Positionals))).
			WithContext("command", cmd.CommandPath())
	}

	flags := cmd.EffectiveFlags()
	names := make([]string, 0, len(res.Flags))
	for name := range res.Flags {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		f, ok := flags.Lookup(name)
		if !ok {
			return errors.New(ErrCodeInvalidFlag, "Invalid flag: --"+name).
				WithContext("flag", name).
				WithContext("command", cmd.CommandPath())
		}
		if err := checkFlagValue(f, res.Flags[name]); err != nil {
			return err
		}
	}
	return nil
}

func checkFlagValue(f Flag, v any) error {
	if v == nil {
		return errors.New(ErrCodeMissingArgument, fmt.Sprintf("The flag --%s expected an argument", f.Name)).
			WithContext("flag", f.Name)
	}
	switch f.Kind {
	case KindEnum:
		s, ok := v.(string)
		if !ok {
			s = fmt.Sprint(v)
		}
		if !f.Allows(s) {
			return errors.New(ErrCodeInvalidFlagValue,
				fmt.Sprintf("The flag --%s expected one of the following values: %s", f.Name, strings.Join(f.Values, ", "))).
				WithContext("flag", f.Name).
				WithContext("value", s)
		}
	case KindBool:
		switch b := v.(type) {
		case bool:
		case string:
			if _, err := strconv.ParseBool(b); err != nil {
				return errors.New(ErrCodeInvalidFlagValue,
					fmt.Sprintf("The flag --%s expected true or false but got %q", f.Name, b)).
					WithContext("flag", f.Name)
			}
		}
	}
	return nil
}
