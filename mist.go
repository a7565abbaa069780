// mist.go: Error codes and error helpers for the Mist command dispatcher
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package mist

import (
	goerrors "errors"

	"github.com/agilira/go-errors"
)

// Error codes for Mist operations
const (
	ErrCodeInvalidFlag        = "MIST_INVALID_FLAG"
	ErrCodeInvalidFlagValue   = "MIST_INVALID_FLAG_VALUE"
	ErrCodeMissingArgument    = "MIST_MISSING_ARGUMENT"
	ErrCodeTooManyPositionals = "MIST_TOO_MANY_POSITIONALS"
	ErrCodeConfiguration      = "MIST_CONFIGURATION"
	ErrCodeHookFailed         = "MIST_HOOK_FAILED"
	ErrCodeShutdown           = "MIST_SHUTDOWN"
	ErrCodeDefinition         = "MIST_INVALID_DEFINITION"
	ErrCodeAudit              = "MIST_AUDIT"
	ErrCodeInvalidOptions     = "MIST_INVALID_OPTIONS"
	ErrCodeIOError            = "MIST_IO_ERROR"
)

// Exit codes returned by Execute.
const (
	ExitOK    = 0
	ExitError = 1
	ExitUsage = 2
)

// ErrorCode returns the go-errors code carried by err, or "" when err has none.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	var coder errors.ErrorCoder
	if goerrors.As(err, &coder) {
		return string(coder.ErrorCode())
	}
	return ""
}

// IsUsageError reports whether err was caused by bad command-line input
// rather than a failing hook or a broken command tree.
func IsUsageError(err error) bool {
	switch ErrorCode(err) {
	case ErrCodeInvalidFlag, ErrCodeInvalidFlagValue, ErrCodeMissingArgument, ErrCodeTooManyPositionals:
		return true
	}
	return false
}

// exitCodeFor maps a dispatch error to a process exit status.
func exitCodeFor(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case IsUsageError(err):
		return ExitUsage
	default:
		return ExitError
	}
}

func configError(msg string) error {
	return errors.New(ErrCodeConfiguration, msg)
}
