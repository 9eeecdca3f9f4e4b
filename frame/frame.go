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

// Package frame provides the in-memory tabular dataset that every cleaning
// operation works on: an ordered set of named, equal-length columns with a
// positional row index.
package frame

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/aaronlmathis/gojanitor/core"
)

// Frame is an ordered collection of named columns of equal length.
// Duplicate column names are allowed; name lookups return the first match.
type Frame struct {
	columns []*Column
	rows    int
}

// Transformer is a chainable operation over a frame.
type Transformer interface {
	Apply(ctx context.Context, f *Frame) (*Frame, error)
}

// TransformFunc is a function adapter for the Transformer interface.
type TransformFunc func(ctx context.Context, f *Frame) (*Frame, error)

// Apply implements the Transformer interface for TransformFunc.
func (fn TransformFunc) Apply(ctx context.Context, f *Frame) (*Frame, error) {
	return fn(ctx, f)
}

// Sink is implemented by data sinks that can write a whole frame at once and
// keep column types, such as categoricals, that do not survive a record stream.
type Sink interface {
	WriteFrame(ctx context.Context, f *Frame) error
}

// New creates a frame from columns of equal length.
func New(columns ...*Column) (*Frame, error) {
	f := &Frame{}
	for i, c := range columns {
		if c == nil {
			return nil, fmt.Errorf("column %d is nil", i)
		}
		if i == 0 {
			f.rows = c.Len()
		} else if c.Len() != f.rows {
			return nil, fmt.Errorf("column %s has %d rows, expected %d", c.Name(), c.Len(), f.rows)
		}
		f.columns = append(f.columns, c)
	}
	return f, nil
}

// MustNew is like New but panics on error. Intended for tests and examples.
func MustNew(columns ...*Column) *Frame {
	f, err := New(columns...)
	if err != nil {
		panic(err)
	}
	return f
}

// FromRecords builds a frame from records. When no column order is given,
// columns are the union of all record keys in sorted order.
func FromRecords(records []core.Record, columns ...string) *Frame {
	if len(columns) == 0 {
		columns = unionKeys(records, nil)
	}
	f := &Frame{rows: len(records)}
	for _, name := range columns {
		values := make([]interface{}, len(records))
		for i, r := range records {
			values[i] = r[name]
		}
		f.columns = append(f.columns, &Column{name: name, values: values})
	}
	return f
}

// FromSource drains a data source into a frame. Sources implementing
// core.ColumnSource define the column order; keys they do not list are
// appended in sorted order.
func FromSource(ctx context.Context, src core.DataSource) (*Frame, error) {
	var records []core.Record
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := src.Read(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read record %d: %w", len(records), err)
		}
		records = append(records, rec)
	}
	var order []string
	if cs, ok := src.(core.ColumnSource); ok {
		order = cs.Columns()
	}
	return FromRecords(records, unionKeys(records, order)...), nil
}

func unionKeys(records []core.Record, first []string) []string {
	seen := make(map[string]bool, len(first))
	out := make([]string, 0, len(first))
	for _, name := range first {
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	var extra []string
	for _, r := range records {
		for k := range r {
			if !seen[k] {
				seen[k] = true
				extra = append(extra, k)
			}
		}
	}
	sort.Strings(extra)
	return append(out, extra...)
}

// Len returns the number of rows.
func (f *Frame) Len() int { return f.rows }

// Width returns the number of columns.
func (f *Frame) Width() int { return len(f.columns) }

// Names returns the column names in order.
func (f *Frame) Names() []string {
	names := make([]string, len(f.columns))
	for i, c := range f.columns {
		names[i] = c.name
	}
	return names
}

// Columns returns the columns in order.
func (f *Frame) Columns() []*Column {
	out := make([]*Column, len(f.columns))
	copy(out, f.columns)
	return out
}

// Column returns the first column with the given name.
func (f *Frame) Column(name string) (*Column, bool) {
	for _, c := range f.columns {
		if c.name == name {
			return c, true
		}
	}
	return nil, false
}

// ColumnAt returns the column at position i.
func (f *Frame) ColumnAt(i int) *Column { return f.columns[i] }

func (f *Frame) HasColumn(name string) bool {
	_, ok := f.Column(name)
	return ok
}

// SetColumn replaces the first column with the same name, matching Column,
// or appends the column when the name is new. The frame is modified in place.
func (f *Frame) SetColumn(c *Column) error {
	if len(f.columns) > 0 && c.Len() != f.rows {
		return fmt.Errorf("column %s has %d rows, expected %d", c.name, c.Len(), f.rows)
	}
	if len(f.columns) == 0 {
		f.rows = c.Len()
	}
	for i, existing := range f.columns {
		if existing.name == c.name {
			f.columns[i] = c
			return nil
		}
	}
	f.columns = append(f.columns, c)
	return nil
}

// SetNames renames all columns positionally. The frame is modified in place.
func (f *Frame) SetNames(names []string) error {
	if len(names) != len(f.columns) {
		return fmt.Errorf("got %d names for %d columns", len(names), len(f.columns))
	}
	for i, name := range names {
		if f.columns[i].name != name {
			f.columns[i] = f.columns[i].Rename(name)
		}
	}
	return nil
}

// Select returns a new frame with the named columns in the given order.
func (f *Frame) Select(names ...string) (*Frame, error) {
	out := &Frame{rows: f.rows}
	for _, name := range names {
		c, ok := f.Column(name)
		if !ok {
			return nil, fmt.Errorf("column %s not found", name)
		}
		out.columns = append(out.columns, c)
	}
	return out, nil
}

// Drop returns a new frame without the named columns. Unknown names are ignored.
func (f *Frame) Drop(names ...string) *Frame {
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		drop[n] = true
	}
	out := &Frame{rows: f.rows}
	for _, c := range f.columns {
		if !drop[c.name] {
			out.columns = append(out.columns, c)
		}
	}
	return out
}

// Copy returns a frame that shares column data but can be modified independently.
func (f *Frame) Copy() *Frame {
	return &Frame{columns: f.Columns(), rows: f.rows}
}

// Row returns row i as a record.
func (f *Frame) Row(i int) core.Record {
	rec := make(core.Record, len(f.columns))
	for _, c := range f.columns {
		if _, dup := rec[c.name]; !dup {
			rec[c.name] = c.values[i]
		}
	}
	return rec
}

// Records returns every row as a record.
func (f *Frame) Records() []core.Record {
	out := make([]core.Record, f.rows)
	for i := range out {
		out[i] = f.Row(i)
	}
	return out
}

// FilterRows returns a new frame with the rows the filter keeps.
func (f *Frame) FilterRows(ctx context.Context, filter core.Filter) (*Frame, error) {
	var keep []int
	for i := 0; i < f.rows; i++ {
		ok, err := filter.ShouldInclude(ctx, f.Row(i))
		if err != nil {
			return nil, fmt.Errorf("filter row %d: %w", i, err)
		}
		if ok {
			keep = append(keep, i)
		}
	}
	out := &Frame{rows: len(keep)}
	for _, c := range f.columns {
		out.columns = append(out.columns, c.take(keep))
	}
	return out, nil
}

// WriteTo writes the frame to a sink and flushes it. Sinks implementing Sink
// receive the whole frame; others receive one record per row.
func (f *Frame) WriteTo(ctx context.Context, sink core.DataSink) error {
	if fs, ok := sink.(Sink); ok {
		if err := fs.WriteFrame(ctx, f); err != nil {
			return err
		}
		return sink.Flush()
	}
	for i := 0; i < f.rows; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := sink.Write(ctx, f.Row(i)); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	return sink.Flush()
}

// Equal reports whether two frames have the same columns, types and cells.
func (f *Frame) Equal(o *Frame) bool {
	if f.rows != o.rows || len(f.columns) != len(o.columns) {
		return false
	}
	for i := range f.columns {
		if !f.columns[i].Equal(o.columns[i]) {
			return false
		}
	}
	return true
}

// Concat stacks frames vertically. All frames must have the same column names
// in the same order. A categorical column stays categorical when every frame
// carries the same categorical type for it.
func Concat(frames ...*Frame) (*Frame, error) {
	if len(frames) == 0 {
		return &Frame{}, nil
	}
	names := frames[0].Names()
	for i, fr := range frames[1:] {
		if !sameNames(names, fr.Names()) {
			return nil, fmt.Errorf("frame %d has columns %v, expected %v", i+1, fr.Names(), names)
		}
	}
	out := &Frame{}
	for j, name := range names {
		var values []interface{}
		dtype := frames[0].columns[j].dtype
		for _, fr := range frames {
			values = append(values, fr.columns[j].values...)
			if !dtype.Equal(fr.columns[j].dtype) {
				dtype = nil
			}
		}
		col := &Column{name: name, values: values}
		if dtype != nil {
			var err error
			if col, err = NewCategoricalColumn(name, values, *dtype); err != nil {
				return nil, err
			}
		}
		out.columns = append(out.columns, col)
		out.rows = len(values)
	}
	return out, nil
}

func sameNames(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
