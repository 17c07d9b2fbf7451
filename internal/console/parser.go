// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package console

import (
	"strings"
	"unicode"

	"github.com/samber/oops"
)

// Line is an operator input line split for dispatch. Command selects the
// registry entry; Args is handed to its handler as typed, minus the
// separating whitespace.
type Line struct {
	Command string
	Args    string
	Raw     string
}

// ErrEmptyInput creates the error for a blank console line.
func ErrEmptyInput() error {
	return oops.Code(CodeEmptyInput).Errorf("no command provided")
}

// ParseLine splits input at the first run of whitespace. A blank line fails
// with EMPTY_INPUT.
func ParseLine(input string) (Line, error) {
	text := strings.TrimSpace(input)
	if text == "" {
		return Line{}, ErrEmptyInput()
	}

	line := Line{Command: text, Raw: input}
	if i := strings.IndexFunc(text, unicode.IsSpace); i >= 0 {
		line.Command = text[:i]
		line.Args = strings.TrimLeftFunc(text[i:], unicode.IsSpace)
	}
	return line, nil
}
