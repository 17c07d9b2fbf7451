// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package errutil holds helpers for logging and asserting oops errors.
package errutil

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/samber/oops"
)

// Attrs flattens err into slog key/value pairs. oops errors contribute their
// code, domain and context; other errors only their message.
func Attrs(err error) []any {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return []any{"error", err}
	}

	attrs := []any{"error", oopsErr.Error()}
	if code := codeString(oopsErr.Code()); code != "" {
		attrs = append(attrs, "code", code)
	}
	if domain := oopsErr.Domain(); domain != "" {
		attrs = append(attrs, "domain", domain)
	}
	if ctx := oopsErr.Context(); len(ctx) > 0 {
		attrs = append(attrs, "context", ctx)
	}
	return attrs
}

// LogError logs err at error level with its structured context.
func LogError(logger *slog.Logger, msg string, err error) {
	logger.Error(msg, Attrs(err)...)
}

// LogWarn logs err at warn level with its structured context, carrying ctx
// so trace-aware handlers can attach span identifiers.
func LogWarn(ctx context.Context, logger *slog.Logger, msg string, err error, args ...any) {
	logger.WarnContext(ctx, msg, append(args, Attrs(err)...)...)
}

// Code returns the oops code of err, or "" when err carries none.
func Code(err error) string {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}
	return codeString(oopsErr.Code())
}

// Detach returns an error with the message of err that still matches its
// sentinels under errors.Is but hides its oops chain from errors.As. Wrapping
// a detached cause keeps the outer oops code authoritative, since oops
// otherwise reports the deepest code in the chain.
func Detach(err error) error {
	if err == nil {
		return nil
	}
	return detached{err: err}
}

type detached struct {
	err error
}

func (d detached) Error() string { return d.err.Error() }

func (d detached) Is(target error) bool { return errors.Is(d.err, target) }

func codeString(code any) string {
	if code == nil {
		return ""
	}
	return fmt.Sprint(code)
}
