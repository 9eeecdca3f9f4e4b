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

package frame

import (
	"context"
	"io"

	"github.com/aaronlmathis/gojanitor/core"
)

// Source returns a data source that yields the frame's rows in order. It
// reports the frame's column names, so FromSource rebuilds the same layout.
// Categorical types are not carried through records.
func (f *Frame) Source() core.DataSource {
	return &frameSource{f: f}
}

type frameSource struct {
	f   *Frame
	pos int
}

func (s *frameSource) Read(ctx context.Context) (core.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.pos >= s.f.rows {
		return nil, io.EOF
	}
	rec := s.f.Row(s.pos)
	s.pos++
	return rec, nil
}

func (s *frameSource) Columns() []string { return s.f.Names() }

func (s *frameSource) Close() error { return nil }
