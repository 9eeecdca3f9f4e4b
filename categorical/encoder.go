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

// Package categorical converts frame columns to categorical columns.
//
// Columns are selected either by name (simple mode), each getting the default
// encoding, or through a per-column Spec (advanced mode) naming explicit
// categories and/or an ordering mode. Every column is validated and resolved
// before any column of the frame is replaced, so a failed call leaves the frame
// untouched.
package categorical

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/aaronlmathis/gojanitor/core"
	"github.com/aaronlmathis/gojanitor/frame"
	"github.com/aaronlmathis/gojanitor/validators"
)

const opName = "encode_categorical"

// Encoder applies a fixed categorical encoding to frames.
type Encoder struct {
	opts *EncodeOptions
}

// NewEncoder creates an encoder from functional options.
func NewEncoder(options ...Option) *Encoder {
	opts := &EncodeOptions{}
	for _, option := range options {
		option(opts)
	}
	return &Encoder{opts: opts.withDefaults()}
}

// Encode converts the selected columns of f to categorical columns in place and
// returns f.
func Encode(f *frame.Frame, options ...Option) (*frame.Frame, error) {
	return NewEncoder(options...).Encode(f)
}

// Apply implements frame.Transformer.
func (e *Encoder) Apply(ctx context.Context, f *frame.Frame) (*frame.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return e.Encode(f)
}

type target struct {
	column *frame.Column
	spec   Spec
}

// Encode converts the selected columns of f to categorical columns in place and
// returns f. Warnings are delivered only when the whole call succeeds.
func (e *Encoder) Encode(f *frame.Frame) (*frame.Frame, error) {
	if f == nil {
		return nil, core.Errorf(opName, core.ErrMalformedArguments, "frame is nil")
	}
	targets, err := e.plan(f)
	if err != nil {
		return nil, err
	}

	resolved := make([]*frame.Column, len(targets))
	var warnings []core.Warning
	for i, t := range targets {
		col, w, err := resolve(t.column, t.spec)
		if err != nil {
			return nil, err
		}
		resolved[i] = col
		warnings = append(warnings, w...)
	}

	for _, w := range warnings {
		e.opts.WarningHandler.HandleWarning(w)
	}
	for _, col := range resolved {
		if err := f.SetColumn(col); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// plan validates the options against the frame and lists the columns to encode.
func (e *Encoder) plan(f *frame.Frame) ([]target, error) {
	simple := e.opts.Columns != nil
	advanced := e.opts.Specs != nil
	switch {
	case simple && advanced:
		return nil, core.Errorf(opName, core.ErrMalformedArguments,
			"column names and per-column specs cannot be combined, use one or the other")
	case !simple && !advanced:
		return nil, core.Errorf(opName, core.ErrMalformedArguments,
			"either column names or per-column specs are required")
	}

	if simple {
		if len(e.opts.Columns) == 0 {
			return nil, core.Errorf(opName, core.ErrMalformedArguments, "no column names supplied")
		}
		names := dedupe(e.opts.Columns)
		if err := validators.CheckColumns(f, true, names...); err != nil {
			return nil, withOp(err)
		}
		targets := make([]target, 0, len(names))
		for _, name := range names {
			col, _ := f.Column(name)
			if err := checkNotEmpty(col); err != nil {
				return nil, err
			}
			targets = append(targets, target{column: col})
		}
		return targets, nil
	}

	if len(e.opts.Specs) == 0 {
		return nil, core.Errorf(opName, core.ErrMalformedArguments, "no per-column specs supplied")
	}
	names := make([]string, 0, len(e.opts.Specs))
	for name := range e.opts.Specs {
		names = append(names, name)
	}
	sort.Strings(names)
	if err := validators.CheckColumns(f, true, names...); err != nil {
		return nil, withOp(err)
	}
	targets := make([]target, 0, len(names))
	for _, name := range names {
		spec := e.opts.Specs[name]
		if err := validateSpec(name, spec); err != nil {
			return nil, err
		}
		col, _ := f.Column(name)
		if err := checkNotEmpty(col); err != nil {
			return nil, err
		}
		targets = append(targets, target{column: col, spec: spec})
	}
	return targets, nil
}

func validateSpec(column string, spec Spec) error {
	if spec.Categories != nil {
		if err := validators.CheckCategories(spec.Categories); err != nil {
			return withColumn(column, err)
		}
	}
	if !spec.Order.Valid() {
		return core.ColumnErrorf(opName, column, core.ErrInvalidValue,
			"order must be %q, %q or empty, got %q", OrderSort, OrderAppearance, string(spec.Order))
	}
	return nil
}

func checkNotEmpty(col *frame.Column) error {
	if col.Len() == col.NullCount() {
		return core.ColumnErrorf(opName, col.Name(), core.ErrEmptySource,
			"column has no non-null values to build categories from")
	}
	return nil
}

// resolve builds the categorical column for one target.
func resolve(col *frame.Column, spec Spec) (*frame.Column, []core.Warning, error) {
	if spec.Categories != nil {
		warnings, err := mismatchWarnings(col, spec.Categories)
		if err != nil {
			return nil, nil, err
		}
		out, err := frame.NewCategoricalColumn(col.Name(), col.Values(),
			frame.CategoricalType{Categories: spec.Categories, Ordered: true})
		if err != nil {
			return nil, nil, core.ColumnErrorf(opName, col.Name(), core.ErrInvalidValue, "%v", err)
		}
		return out, warnings, nil
	}

	if spec.Order == OrderNone && col.IsCategorical() {
		return col, nil, nil
	}

	categories, err := col.Unique()
	if err != nil {
		return nil, nil, core.ColumnErrorf(opName, col.Name(), core.ErrWrongType, "%v", err)
	}
	if spec.Order == OrderSort {
		if err := sortValues(categories); err != nil {
			return nil, nil, core.ColumnErrorf(opName, col.Name(), core.ErrWrongType, "cannot sort categories: %v", err)
		}
	}
	out, err := frame.NewCategoricalColumn(col.Name(), col.Values(),
		frame.CategoricalType{Categories: categories, Ordered: spec.Order != OrderNone})
	if err != nil {
		return nil, nil, core.ColumnErrorf(opName, col.Name(), core.ErrWrongType, "%v", err)
	}
	return out, nil, nil
}

// mismatchWarnings compares explicit categories with the column's distinct values.
func mismatchWarnings(col *frame.Column, categories []interface{}) ([]core.Warning, error) {
	distinct, err := col.Unique()
	if err != nil {
		return nil, core.ColumnErrorf(opName, col.Name(), core.ErrWrongType, "%v", err)
	}
	inData := make(map[interface{}]bool, len(distinct))
	for _, v := range distinct {
		k, _ := frame.KeyOf(v)
		inData[k] = true
	}
	inCats := make(map[interface{}]bool, len(categories))
	var absent []interface{}
	for _, c := range categories {
		k, _ := frame.KeyOf(c)
		inCats[k] = true
		if !inData[k] {
			absent = append(absent, c)
		}
	}
	var uncovered []interface{}
	for _, v := range distinct {
		k, _ := frame.KeyOf(v)
		if !inCats[k] {
			uncovered = append(uncovered, v)
		}
	}

	var warnings []core.Warning
	if len(absent) > 0 {
		warnings = append(warnings, core.Warning{
			Op: opName, Column: col.Name(), Values: absent,
			Message: "categories do not exist in the column",
		})
	}
	if len(uncovered) > 0 {
		warnings = append(warnings, core.Warning{
			Op: opName, Column: col.Name(), Values: uncovered,
			Message: "column values are missing from categories and will be set to null",
		})
	}
	return warnings, nil
}

func sortValues(values []interface{}) error {
	var err error
	sort.SliceStable(values, func(i, j int) bool {
		c, cerr := frame.Compare(values[i], values[j])
		if cerr != nil && err == nil {
			err = cerr
		}
		return c < 0
	})
	return err
}

func dedupe(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}

// withOp re-labels a validation error as raised by this operation.
func withOp(err error) error {
	var je *core.JanitorError
	if errors.As(err, &je) {
		out := *je
		out.Op = opName
		return &out
	}
	return fmt.Errorf("%s: %w", opName, err)
}

func withColumn(column string, err error) error {
	var je *core.JanitorError
	if errors.As(err, &je) {
		out := *je
		out.Op = opName
		out.Column = column
		return &out
	}
	return fmt.Errorf("%s: column %q: %w", opName, column, err)
}
