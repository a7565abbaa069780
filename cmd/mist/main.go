// mist - inspect and exercise command tree definitions
//
// Auditing is configured through the MIST_AUDIT_* environment variables.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"fmt"
	"os"

	"github.com/agilira/mist"
	"github.com/agilira/mist/cmd/cli"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	opts, err := mist.LoadOptionsFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return mist.ExitError
	}

	manager := cli.NewManager()
	if opts.Audit.Enabled {
		auditLogger, err := mist.NewAuditLogger(opts.Audit)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return mist.ExitError
		}
		defer func() {
			if err := auditLogger.Close(); err != nil {
				opts.Logger.Warn("failed to close audit logger", "error", err)
			}
		}()
		manager.WithAudit(auditLogger)
	}

	if err := manager.Run(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if mist.IsUsageError(err) {
			return mist.ExitUsage
		}
		return mist.ExitError
	}
	return mist.ExitOK
}
