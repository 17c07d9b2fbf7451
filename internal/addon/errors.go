// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package addon

import (
	"github.com/samber/oops"

	"github.com/holomush/addonkit/pkg/errutil"
)

// Error codes for addon lifecycle failures. Wrapped causes are detached, so
// the code of the outermost addon error is the one reported; the cause's own
// code, if any, is kept under the "cause_code" context key.
const (
	CodeInfoLoad           = "INFO_LOAD_FAILED"
	CodeLoadDenied         = "LOAD_DENIED"
	CodeConstructionFailed = "CONSTRUCTION_FAILED"
	CodeKindMismatch       = "KIND_MISMATCH"
	CodeUnknownKind        = "UNKNOWN_KIND"
	CodeManagerInit        = "MANAGER_INIT_FAILED"
	CodeCapability         = "CAPABILITY_FAILED"
)

// ErrInfoLoad creates an error for a package whose metadata could not be read
// or whose main entry could not be resolved.
func ErrInfoLoad(path string, cause error) error {
	return oops.Code(CodeInfoLoad).
		In("addon").
		With("package", path).
		With("cause_code", errutil.Code(cause)).
		Wrapf(errutil.Detach(cause), "unable to load addon info from %q", path)
}

// ErrLoadDenied creates an error for a load vetoed by an AddonLoad listener.
func ErrLoadDenied(info *Info, cause error) error {
	return oops.Code(CodeLoadDenied).
		In("addon").
		With("addon", info.Name()).
		With("kind", info.Kind()).
		With("cause_code", errutil.Code(cause)).
		Wrapf(errutil.Detach(cause), "unable to load addon %s: denied", info.Name())
}

// ErrConstructionFailed creates an error for a main entry that could not be
// constructed.
func ErrConstructionFailed(info *Info, cause error) error {
	return oops.Code(CodeConstructionFailed).
		In("addon").
		With("addon", info.Name()).
		With("kind", info.Kind()).
		With("cause_code", errutil.Code(cause)).
		Wrapf(errutil.Detach(cause), "unable to load addon %s: construction failed", info.Name())
}

// ErrKindMismatch creates an error for an Info handed to a manager of
// another kind.
func ErrKindMismatch(info *Info, managerKind string) error {
	return oops.Code(CodeKindMismatch).
		In("addon").
		With("addon", info.Name()).
		With("kind", info.Kind()).
		With("manager", managerKind).
		Errorf("unable to load addon %s: it belongs to manager %q, not %q", info.Name(), info.Kind(), managerKind)
}

// ErrUnknownKind creates an error for a manager kind with no registered loader.
func ErrUnknownKind(kind string) error {
	return oops.Code(CodeUnknownKind).
		In("addon").
		With("kind", kind).
		Errorf("no addon manager kind %q is registered", kind)
}

// ErrManagerInit creates an error for a manager that failed to construct or
// initialize.
func ErrManagerInit(kind string, cause error) error {
	return oops.Code(CodeManagerInit).
		In("addon").
		With("kind", kind).
		With("cause_code", errutil.Code(cause)).
		Wrapf(errutil.Detach(cause), "addon manager %q cannot be initiated", kind)
}

// ErrCapability creates an error for a failed capability injection or hook.
func ErrCapability(info *Info, capability string, cause error) error {
	return oops.Code(CodeCapability).
		In("addon").
		With("addon", info.Name()).
		With("capability", capability).
		With("cause_code", errutil.Code(cause)).
		Wrapf(errutil.Detach(cause), "addon %s: %s capability failed", info.Name(), capability)
}

// HasCode reports whether err carries the given addon error code.
func HasCode(err error, code string) bool {
	return errutil.Code(err) == code
}

// IsLoadError reports whether err is one of the load failures returned by
// Manager.LoadAddon.
func IsLoadError(err error) bool {
	switch errutil.Code(err) {
	case CodeLoadDenied, CodeConstructionFailed, CodeKindMismatch:
		return true
	default:
		return false
	}
}
