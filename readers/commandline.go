//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Copyright (C) 2025 Aaron Mathis aaron.mathis@gmail.com
//
// This file is part of GoJanitor.
//
// GoJanitor is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// GoJanitor is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with GoJanitor. If not, see https://www.gnu.org/licenses/.

package readers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/aaronlmathis/gojanitor/core"
	"github.com/aaronlmathis/gojanitor/frame"
)

// CommandReaderError reports a failed shell command.
type CommandReaderError struct {
	Op     string // "validate", "run", "parse"
	Cmd    string
	Stderr string
	Err    error
}

func (e *CommandReaderError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("command reader %s %q: %v: %s", e.Op, e.Cmd, e.Err, e.Stderr)
	}
	return fmt.Sprintf("command reader %s %q: %v", e.Op, e.Cmd, e.Err)
}

func (e *CommandReaderError) Unwrap() error {
	return e.Err
}

// ReadCommandline runs cmd through "sh -c" and parses its standard output as
// CSV. Pipes and redirects work as in a terminal. A command that prints
// nothing yields an error wrapping core.ErrEmptySource.
func ReadCommandline(ctx context.Context, cmd string, options ...ReaderOptionCSV) (*frame.Frame, error) {
	if strings.TrimSpace(cmd) == "" {
		return nil, &CommandReaderError{Op: "validate", Cmd: cmd,
			Err: fmt.Errorf("command is empty: %w", core.ErrMalformedArguments)}
	}

	var stdout, stderr bytes.Buffer
	c := exec.CommandContext(ctx, "sh", "-c", cmd)
	c.Stdout = &stdout
	c.Stderr = &stderr
	runErr := c.Run()
	if err := ctx.Err(); err != nil {
		return nil, &CommandReaderError{Op: "run", Cmd: cmd, Err: err}
	}

	// The exit status is ignored: a failed command or a grep without matches
	// is reported by its missing output.
	if len(bytes.TrimSpace(stdout.Bytes())) == 0 {
		err := fmt.Errorf("no output: %w", core.ErrEmptySource)
		if runErr != nil {
			err = fmt.Errorf("no output (%v): %w", runErr, core.ErrEmptySource)
		}
		return nil, &CommandReaderError{Op: "parse", Cmd: cmd, Stderr: strings.TrimSpace(stderr.String()), Err: err}
	}

	f, err := ReadCSVFrame(ctx, io.NopCloser(&stdout), options...)
	if err != nil {
		return nil, &CommandReaderError{Op: "parse", Cmd: cmd, Err: err}
	}
	return f, nil
}
