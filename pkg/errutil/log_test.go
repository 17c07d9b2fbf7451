// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package errutil_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/addonkit/pkg/errutil"
)

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestLogError_WithOopsError(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	err := oops.Code("LOAD_DENIED").
		In("addon").
		With("addon", "ticker").
		Errorf("unable to load")

	errutil.LogError(logger, "load failed", err)

	entry := decode(t, &buf)
	assert.Equal(t, "ERROR", entry["level"])
	assert.Equal(t, "load failed", entry["msg"])
	assert.Equal(t, "LOAD_DENIED", entry["code"])
	assert.Equal(t, "addon", entry["domain"])
}

func TestLogError_WithStandardError(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	errutil.LogError(logger, "load failed", errors.New("standard error"))

	entry := decode(t, &buf)
	assert.Equal(t, "ERROR", entry["level"])
	assert.Contains(t, entry["error"], "standard error")
	assert.NotContains(t, entry, "code")
}

func TestLogWarn_KeepsCallerArgs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	errutil.LogWarn(context.Background(), logger, "hook failed", errors.New("boom"), "addon", "ticker")

	entry := decode(t, &buf)
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "ticker", entry["addon"])
	assert.Equal(t, "boom", entry["error"])
}

func TestCode(t *testing.T) {
	assert.Equal(t, "UNKNOWN_KIND", errutil.Code(oops.Code("UNKNOWN_KIND").Errorf("x")))
	assert.Empty(t, errutil.Code(errors.New("plain")))
	assert.Empty(t, errutil.Code(nil))
}

func TestDetach_OuterCodeWins(t *testing.T) {
	sentinel := errors.New("vetoed")
	inner := oops.Code("EVENT_VETOED").Wrap(sentinel)

	attached := oops.Code("LOAD_DENIED").Wrap(inner)
	assert.Equal(t, "EVENT_VETOED", errutil.Code(attached))

	detached := oops.Code("LOAD_DENIED").Wrap(errutil.Detach(inner))
	assert.Equal(t, "LOAD_DENIED", errutil.Code(detached))
	assert.ErrorIs(t, detached, sentinel)
	assert.Contains(t, detached.Error(), "vetoed")
}

func TestDetach_Nil(t *testing.T) {
	assert.NoError(t, errutil.Detach(nil))
}
