// Package mist parses command lines against a tree of nested commands and
// dispatches the result to lifecycle hooks.
//
// # Command Trees
//
// A program declares its commands once, at startup. Every Command carries
// its own flags and positionals, an inheritance rule deciding which of its
// parent's flags it still recognizes, and optional hooks.
//
//	root := mist.MustNew(&mist.Command{
//		Name:  "deploy",
//		Alias: mist.AliasSimple,
//		Flags: []mist.Flag{{Name: "verbose", Kind: mist.KindBool}},
//	})
//	root.MustSub(nil, "push", &mist.Command{
//		Flags: []mist.Flag{{Name: "target", Kind: mist.KindEnum, Values: []string{"staging", "production"}}},
//		Positionals: []mist.Positional{{Name: "image"}},
//		Run: func(ctx context.Context, res *mist.Result, cmd *mist.Command) (any, error) {
//			return nil, push(ctx, res.String("target"), res.Arg(0))
//		},
//	})
//
// Trees can also be loaded from YAML, JSON or HCL with LoadDefinition and
// hooks bound afterwards through Lookup.
//
// # Parsing
//
// Parse walks the tokens in three states. Leading tokens naming a child
// descend into it. The first other token starts argument consumption, which
// then lasts for the rest of the call: flag-shaped tokens set flags,
// everything else fills the positional slots in order. A string or enum
// flag given without an inline value waits for the next token.
//
//	--name value   --name=value   -n value   --flag   --no-flag
//	--list=a,b,c   --             (everything after is passed through)
//
// The parser never fails. A string flag left without a value is recorded as
// nil and any other dangling flag as true; validation decides what is
// acceptable.
//
// # Hooks
//
// Dispatch selects each hook from the resolved command or its nearest
// ancestor defining it:
//
//   - Help runs alone when --help or -h is given
//   - Validate, or DefaultValidator unless a nearer command sets NoValidate
//   - Teardown is registered with the Shutdown registry before run
//   - Run produces the value Dispatch returns
//
// Execute wraps Dispatch for main functions: it listens for SIGINT and
// SIGTERM, prints errors, fires teardown hooks and returns an exit status.
//
//	func main() {
//		os.Exit(mist.Execute(context.Background(), root, os.Args[1:], nil))
//	}
//
// # Errors
//
// All errors are github.com/agilira/go-errors values. ErrorCode extracts the
// code and IsUsageError separates bad input from failing hooks.
//
// # Audit Trail
//
// With Options.Audit.Enabled every dispatch and hook outcome is recorded in
// a SQLite database, or a JSONL file when the output file ends in .jsonl.
// The trail can be queried, summarized and pruned through AuditLogger.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0
package mist
