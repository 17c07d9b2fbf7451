// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package console

import (
	"context"
	"fmt"
	"log/slog"
)

// warnPrefix marks lines that report a handled failure.
const warnPrefix = "warning: "

// printer writes command output. Write failures are logged and never fail
// the command.
type printer struct {
	ctx  context.Context
	exec *Execution
	cmd  string
}

func newPrinter(ctx context.Context, exec *Execution, cmd string) *printer {
	return &printer{ctx: ctx, exec: exec, cmd: cmd}
}

func (p *printer) info(format string, args ...any) {
	p.write(fmt.Sprintf(format, args...))
}

func (p *printer) warn(format string, args ...any) {
	p.write(warnPrefix + fmt.Sprintf(format, args...))
}

func (p *printer) write(line string) {
	if p.exec.Output == nil {
		return
	}
	if n, err := fmt.Fprintln(p.exec.Output, line); err != nil {
		slog.WarnContext(p.ctx, "failed to write console output",
			"command", p.cmd,
			"operator", p.exec.Operator,
			"bytes_written", n,
			"error", err,
		)
	}
}
