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

package transform

import (
	"context"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/aaronlmathis/gojanitor/core"
	"github.com/aaronlmathis/gojanitor/frame"
)

// Selector picks column positions out of a frame.
type Selector interface {
	selectColumns(f *frame.Frame) (positions []int, missing []string, err error)
}

type nameSelector []string

type globSelector string

type regexSelector struct{ re *regexp.Regexp }

type predicateSelector func(*frame.Column) bool

type maskSelector []bool

// Names selects columns by exact name.
func Names(names ...string) Selector { return nameSelector(names) }

// Glob selects columns whose names match a shell pattern such as "col_*".
func Glob(pattern string) Selector { return globSelector(pattern) }

// Regex selects columns whose names match re.
func Regex(re *regexp.Regexp) Selector { return regexSelector{re} }

// Where selects columns for which fn returns true.
func Where(fn func(*frame.Column) bool) Selector { return predicateSelector(fn) }

// Mask selects columns positionally; it must have one entry per column.
func Mask(mask ...bool) Selector { return maskSelector(mask) }

func (s nameSelector) selectColumns(f *frame.Frame) ([]int, []string, error) {
	var out []int
	var missing []string
	for _, name := range s {
		found := false
		for i, n := range f.Names() {
			if n == name {
				out = append(out, i)
				found = true
			}
		}
		if !found {
			missing = append(missing, name)
		}
	}
	return out, missing, nil
}

func (s globSelector) selectColumns(f *frame.Frame) ([]int, []string, error) {
	var out []int
	for i, n := range f.Names() {
		ok, err := path.Match(string(s), n)
		if err != nil {
			return nil, nil, core.Errorf("select_columns", core.ErrInvalidValue, "bad glob pattern %q: %v", string(s), err)
		}
		if ok {
			out = append(out, i)
		}
	}
	if len(out) == 0 {
		return nil, []string{string(s)}, nil
	}
	return out, nil, nil
}

func (s regexSelector) selectColumns(f *frame.Frame) ([]int, []string, error) {
	var out []int
	for i, n := range f.Names() {
		if s.re.MatchString(n) {
			out = append(out, i)
		}
	}
	return out, nil, nil
}

func (s predicateSelector) selectColumns(f *frame.Frame) ([]int, []string, error) {
	var out []int
	for i, c := range f.Columns() {
		if s(c) {
			out = append(out, i)
		}
	}
	return out, nil, nil
}

func (s maskSelector) selectColumns(f *frame.Frame) ([]int, []string, error) {
	if len(s) != f.Width() {
		return nil, nil, core.Errorf("select_columns", core.ErrInvalidValue,
			"boolean mask has %d entries for %d columns", len(s), f.Width())
	}
	var out []int
	for i, keep := range s {
		if keep {
			out = append(out, i)
		}
	}
	return out, nil, nil
}

// toSelector interprets a loosely typed selection argument. A string is an
// exact name when such a column exists and a glob pattern otherwise.
func toSelector(f *frame.Frame, arg interface{}) (Selector, error) {
	switch v := arg.(type) {
	case Selector:
		return v, nil
	case string:
		if f.HasColumn(v) || !strings.ContainsAny(v, "*?[") {
			return nameSelector{v}, nil
		}
		return globSelector(v), nil
	case []string:
		return nameSelector(v), nil
	case *regexp.Regexp:
		return regexSelector{v}, nil
	case func(*frame.Column) bool:
		return predicateSelector(v), nil
	case []bool:
		return maskSelector(v), nil
	}
	return nil, core.Errorf("select_columns", core.ErrWrongType,
		"cannot select columns with a %T, use a name, glob, regexp, predicate or boolean mask", arg)
}

func resolveSelection(f *frame.Frame, args []interface{}) ([]int, error) {
	if len(args) == 0 {
		return nil, core.Errorf("select_columns", core.ErrMalformedArguments, "no selection supplied")
	}
	seen := make(map[int]bool)
	var positions []int
	var missing []string
	for _, arg := range args {
		sel, err := toSelector(f, arg)
		if err != nil {
			return nil, err
		}
		pos, miss, err := sel.selectColumns(f)
		if err != nil {
			return nil, err
		}
		missing = append(missing, miss...)
		for _, p := range pos {
			if !seen[p] {
				seen[p] = true
				positions = append(positions, p)
			}
		}
	}
	if len(missing) > 0 {
		return nil, core.Errorf("select_columns", core.ErrMissingColumn, "no columns match %s", strings.Join(missing, ", "))
	}
	return positions, nil
}

// SelectColumns creates a transformer that keeps the selected columns, in the
// order they were selected. Arguments may be exact names, glob patterns,
// []string, *regexp.Regexp, func(*frame.Column) bool, []bool or a Selector.
// A name or glob that matches nothing is an error. The input frame is not modified.
func SelectColumns(args ...interface{}) frame.Transformer {
	return frame.TransformFunc(func(ctx context.Context, f *frame.Frame) (*frame.Frame, error) {
		positions, err := resolveSelection(f, args)
		if err != nil {
			return nil, err
		}
		cols := make([]*frame.Column, len(positions))
		for i, p := range positions {
			cols[i] = f.ColumnAt(p)
		}
		return frame.New(cols...)
	})
}

// DropColumns creates a transformer that keeps every column except the
// selected ones, in frame order.
func DropColumns(args ...interface{}) frame.Transformer {
	return frame.TransformFunc(func(ctx context.Context, f *frame.Frame) (*frame.Frame, error) {
		positions, err := resolveSelection(f, args)
		if err != nil {
			return nil, err
		}
		drop := make(map[int]bool, len(positions))
		for _, p := range positions {
			drop[p] = true
		}
		var cols []*frame.Column
		for i, c := range f.Columns() {
			if !drop[i] {
				cols = append(cols, c)
			}
		}
		return frame.New(cols...)
	})
}

// LimitColumnCharacters creates a transformer that truncates every column name
// to length characters. The first column with a given truncated name keeps it;
// later duplicates get separator and a running count appended ("another",
// "another_1", ...). The frame is modified in place.
func LimitColumnCharacters(length int, separator string) frame.Transformer {
	return frame.TransformFunc(func(ctx context.Context, f *frame.Frame) (*frame.Frame, error) {
		if length < 0 {
			return nil, core.Errorf("limit_column_characters", core.ErrInvalidValue, "length must not be negative, got %d", length)
		}
		names := f.Names()
		seen := make(map[string]int, len(names))
		for i, name := range names {
			runes := []rune(name)
			if len(runes) > length {
				runes = runes[:length]
			}
			truncated := string(runes)
			n := seen[truncated]
			seen[truncated] = n + 1
			if n > 0 {
				names[i] = truncated + separator + strconv.Itoa(n)
			} else {
				names[i] = truncated
			}
		}
		if err := f.SetNames(names); err != nil {
			return nil, err
		}
		return f, nil
	})
}

func sortedCopy(s []string) []string {
	out := make([]string, len(s))
	copy(out, s)
	sort.Strings(out)
	return out
}
