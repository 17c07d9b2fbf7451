// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package console

import (
	"github.com/samber/oops"

	"github.com/holomush/addonkit/pkg/errutil"
)

// Error codes for console dispatch failures.
const (
	CodeEmptyInput       = "EMPTY_INPUT"
	CodeUnknownCommand   = "UNKNOWN_COMMAND"
	CodePermissionDenied = "PERMISSION_DENIED"
	CodeInvalidArgs      = "INVALID_ARGS"
)

// ErrUnknownCommand creates an error for an unknown root command.
func ErrUnknownCommand(cmd string) error {
	return oops.Code(CodeUnknownCommand).
		With("command", cmd).
		Errorf("unknown command: %s", cmd)
}

// ErrPermissionDenied creates an error for a missing permission.
func ErrPermissionDenied(cmd, permission string) error {
	return oops.Code(CodePermissionDenied).
		With("command", cmd).
		With("permission", permission).
		Errorf("permission denied for command %s", cmd)
}

// ErrInvalidArgs creates the usage result of a command called with the
// wrong number of arguments.
func ErrInvalidArgs(cmd, usage string) error {
	return oops.Code(CodeInvalidArgs).
		With("command", cmd).
		With("usage", usage).
		Errorf("invalid arguments")
}

// IsUsage reports whether err is a usage result rather than a failure.
func IsUsage(err error) bool {
	return errutil.Code(err) == CodeInvalidArgs
}

// OperatorMessage extracts an operator-facing message from an error.
func OperatorMessage(err error) string {
	if err == nil {
		return ""
	}
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return "Something went wrong: " + err.Error()
	}

	switch errutil.Code(err) {
	case CodeEmptyInput:
		return "No command given."
	case CodeUnknownCommand:
		if cmd, ok := oopsErr.Context()["command"].(string); ok {
			return "Unknown command " + cmd + ". Try 'help'."
		}
		return "Unknown command. Try 'help'."
	case CodePermissionDenied:
		return "You do not have permission for this command."
	case CodeInvalidArgs:
		if usage, ok := oopsErr.Context()["usage"].(string); ok && usage != "" {
			return "Usage: " + usage
		}
		return "Invalid arguments."
	default:
		return "Something went wrong: " + err.Error()
	}
}
