// SPDX-License-Identifier: GPL-3.0-or-later
//
// Copyright (C) 2025 Aaron Mathis aaron.mathis@gmail.com
//
// This file is part of GoJanitor
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
// along with GoJanitor If not, see https://www.gnu.org/licenses/.

package transform

import (
	"context"
	"errors"
	"reflect"
	"regexp"
	"testing"
	"time"

	"github.com/aaronlmathis/gojanitor/core"
	"github.com/aaronlmathis/gojanitor/frame"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func longNamesFrame() *frame.Frame {
	return frame.MustNew(
		frame.Of("really_long_name_for_a_column", 0, 1, 2),
		frame.Of("another_really_long_name_for_a_column", 0, 2, 4),
		frame.Of("another_really_longer_name_for_a_column", "l", "l", "l"),
		frame.Of("this_is_getting_out_of_hand", "l", "o", "n"),
	)
}

func TestLimitColumnCharacters(t *testing.T) {
	ctx := context.Background()

	f := longNamesFrame()
	out, err := LimitColumnCharacters(7, "_").Apply(ctx, f)
	require.NoError(t, err)
	assert.Same(t, f, out)
	assert.Equal(t, []string{"really_", "another", "another_1", "this_is"}, out.Names())

	out, err = LimitColumnCharacters(7, ".").Apply(ctx, longNamesFrame())
	require.NoError(t, err)
	assert.Equal(t, []string{"really_", "another", "another.1", "this_is"}, out.Names())

	out, err = LimitColumnCharacters(1, "").Apply(ctx, longNamesFrame())
	require.NoError(t, err)
	assert.Equal(t, []string{"r", "a", "a1", "t"}, out.Names())

	out, err = LimitColumnCharacters(2, "_").Apply(ctx, frame.MustNew(frame.Of("añb", 1), frame.Of("añc", 2)))
	require.NoError(t, err)
	assert.Equal(t, []string{"añ", "añ_1"}, out.Names())

	_, err = LimitColumnCharacters(-1, "_").Apply(ctx, longNamesFrame())
	assert.True(t, errors.Is(err, core.ErrInvalidValue))
}

func selectFrame() *frame.Frame {
	return frame.MustNew(
		frame.Of("id", 1, 2),
		frame.Of("col_a", "x", "y"),
		frame.Of("col_b", 1.5, 2.5),
		frame.Of("note", "n", "m"),
	)
}

func TestSelectColumns(t *testing.T) {
	ctx := context.Background()
	isString := func(c *frame.Column) bool { return c.DType() == "string" }

	tests := []struct {
		name string
		args []interface{}
		want []string
	}{
		{"exact", []interface{}{"note", "id"}, []string{"note", "id"}},
		{"glob", []interface{}{"col_*"}, []string{"col_a", "col_b"}},
		{"regex", []interface{}{regexp.MustCompile(`^(id|note)$`)}, []string{"id", "note"}},
		{"predicate", []interface{}{isString}, []string{"col_a", "note"}},
		{"mask", []interface{}{[]bool{true, false, false, true}}, []string{"id", "note"}},
		{"list", []interface{}{[]string{"col_b", "id"}}, []string{"col_b", "id"}},
		{"dedupe", []interface{}{"col_a", "col_*"}, []string{"col_a", "col_b"}},
		{"selectors", []interface{}{Glob("*_b"), Names("id")}, []string{"col_b", "id"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := selectFrame()
			out, err := SelectColumns(tt.args...).Apply(ctx, f)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out.Names())
			assert.Equal(t, []string{"id", "col_a", "col_b", "note"}, f.Names())
		})
	}
}

func TestDropColumns(t *testing.T) {
	out, err := DropColumns("col_*").Apply(context.Background(), selectFrame())
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "note"}, out.Names())
	assert.Equal(t, 2, out.Len())
}

func TestSelectColumns_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := SelectColumns("ghost", "zz_*").Apply(ctx, selectFrame())
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrMissingColumn))
	assert.Contains(t, err.Error(), "ghost")
	assert.Contains(t, err.Error(), "zz_*")

	_, err = SelectColumns([]bool{true}).Apply(ctx, selectFrame())
	assert.True(t, errors.Is(err, core.ErrInvalidValue))

	_, err = SelectColumns(42).Apply(ctx, selectFrame())
	assert.True(t, errors.Is(err, core.ErrWrongType))

	_, err = SelectColumns().Apply(ctx, selectFrame())
	assert.True(t, errors.Is(err, core.ErrMalformedArguments))
}

func TestRenameAndRemove(t *testing.T) {
	ctx := context.Background()
	f := selectFrame()

	out, err := Rename(map[string]string{"col_a": "alpha"}).Apply(ctx, f)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "alpha", "col_b", "note"}, out.Names())
	assert.Equal(t, []string{"id", "col_a", "col_b", "note"}, f.Names())

	_, err = Rename(map[string]string{"nope": "x"}).Apply(ctx, f)
	assert.True(t, errors.Is(err, core.ErrMissingColumn))

	out, err = RemoveColumns("note", "unknown").Apply(ctx, f)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "col_a", "col_b"}, out.Names())
}

func TestValueTransforms(t *testing.T) {
	ctx := context.Background()
	f := frame.MustNew(
		frame.NewColumn("raw", []interface{}{" 12 ", "7", nil}),
		frame.NewColumn("when", []interface{}{"2024-01-02", nil, "2024-03-04"}),
	)

	out, err := TrimSpace("raw").Apply(ctx, f)
	require.NoError(t, err)
	raw, _ := out.Column("raw")
	assert.Equal(t, []interface{}{"12", "7", nil}, raw.Values())

	out, err = ToInt("raw").Apply(ctx, f)
	require.NoError(t, err)
	raw, _ = out.Column("raw")
	assert.Equal(t, []interface{}{12, 7, nil}, raw.Values())

	out, err = ToFloat("raw").Apply(ctx, f)
	require.NoError(t, err)
	raw, _ = out.Column("raw")
	assert.Equal(t, 12.0, raw.Value(0))

	out, err = ParseTime("when", "2006-01-02").Apply(ctx, f)
	require.NoError(t, err)
	when, _ := out.Column("when")
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), when.Value(0))

	out, err = ToUpper("when").Apply(ctx, frame.MustNew(frame.Of("when", "abc")))
	require.NoError(t, err)
	when, _ = out.Column("when")
	assert.Equal(t, "ABC", when.Value(0))

	_, err = ConvertType("raw", reflect.TypeOf(struct{}{})).Apply(ctx, f)
	assert.Error(t, err)

	_, err = ToInt("missing").Apply(ctx, f)
	assert.True(t, errors.Is(err, core.ErrMissingColumn))
}

func TestAddColumn(t *testing.T) {
	out, err := AddColumn("double", func(r core.Record) interface{} {
		return r["id"].(int) * 2
	}).Apply(context.Background(), selectFrame())
	require.NoError(t, err)
	c, ok := out.Column("double")
	require.True(t, ok)
	assert.Equal(t, []interface{}{2, 4}, c.Values())
}
