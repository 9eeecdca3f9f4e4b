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

package frame

import (
	"context"
	"io"
	"math"
	"testing"
	"time"

	"github.com/aaronlmathis/gojanitor/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sliceSource struct {
	records []core.Record
	columns []string
	pos     int
}

func (s *sliceSource) Read(ctx context.Context) (core.Record, error) {
	if s.pos >= len(s.records) {
		return nil, io.EOF
	}
	r := s.records[s.pos]
	s.pos++
	return r, nil
}

func (s *sliceSource) Close() error { return nil }

type columnSliceSource struct{ sliceSource }

func (s *columnSliceSource) Columns() []string { return s.columns }

type recordingSink struct {
	records []core.Record
	flushed bool
}

func (s *recordingSink) Write(ctx context.Context, r core.Record) error {
	s.records = append(s.records, r)
	return nil
}
func (s *recordingSink) Flush() error {
	s.flushed = true
	return nil
}
func (s *recordingSink) Close() error { return nil }

type frameSink struct {
	recordingSink
	frame *Frame
}

func (s *frameSink) WriteFrame(ctx context.Context, f *Frame) error {
	s.frame = f
	return nil
}

func TestIsNull(t *testing.T) {
	var nilPtr *int
	assert.True(t, IsNull(nil))
	assert.True(t, IsNull(math.NaN()))
	assert.True(t, IsNull(float32(math.NaN())))
	assert.True(t, IsNull(nilPtr))
	assert.False(t, IsNull(0))
	assert.False(t, IsNull(""))
	assert.False(t, IsNull([]byte{}))
}

func TestKeyOf_NumericIdentity(t *testing.T) {
	k1, err := KeyOf(2)
	require.NoError(t, err)
	k2, _ := KeyOf(int8(2))
	k3, _ := KeyOf(2.0)
	k4, _ := KeyOf(uint32(2))
	assert.Equal(t, k1, k2)
	assert.Equal(t, k1, k3)
	assert.Equal(t, k1, k4)

	k5, _ := KeyOf(2.5)
	assert.NotEqual(t, k1, k5)

	ka, _ := KeyOf(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	kb, _ := KeyOf(time.Date(2024, 1, 1, 1, 0, 0, 0, time.FixedZone("x", 3600)))
	assert.Equal(t, ka, kb)

	_, err = KeyOf([]int{1})
	assert.Error(t, err)
}

func TestCompare(t *testing.T) {
	tests := []struct {
		a, b interface{}
		want int
	}{
		{1, 2, -1},
		{2.5, 2, 1},
		{int64(3), uint8(3), 0},
		{"a", "b", -1},
		{true, false, 1},
		{time.Unix(10, 0), time.Unix(5, 0), 1},
	}
	for _, tt := range tests {
		got, err := Compare(tt.a, tt.b)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "%v vs %v", tt.a, tt.b)
	}

	_, err := Compare(1, "1")
	assert.Error(t, err)
}

func TestIsScalar(t *testing.T) {
	assert.True(t, IsScalar(1))
	assert.True(t, IsScalar("abc"))
	assert.True(t, IsScalar([]byte("abc")))
	assert.True(t, IsScalar(time.Now()))
	assert.False(t, IsScalar([]interface{}{1}))
	assert.False(t, IsScalar(map[string]int{}))
	assert.False(t, IsScalar(MustNew()))
}

func TestNew_LengthMismatch(t *testing.T) {
	_, err := New(Of("a", 1, 2), Of("b", 1))
	assert.Error(t, err)
}

func TestFrame_SetColumnAndLookup(t *testing.T) {
	f := MustNew(Of("a", 1, 2, 3), Of("b", "x", "y", "z"))
	assert.Equal(t, 3, f.Len())
	assert.Equal(t, 2, f.Width())
	assert.Equal(t, []string{"a", "b"}, f.Names())

	require.NoError(t, f.SetColumn(Of("a", 4, 5, 6)))
	c, ok := f.Column("a")
	require.True(t, ok)
	assert.Equal(t, 4, c.Value(0))
	assert.Equal(t, []string{"a", "b"}, f.Names())

	require.NoError(t, f.SetColumn(Of("c", true, false, true)))
	assert.Equal(t, []string{"a", "b", "c"}, f.Names())

	assert.Error(t, f.SetColumn(Of("d", 1)))
}

func TestFrame_SetColumnDuplicateNames(t *testing.T) {
	f := MustNew(Of("a", "x", "y"), Of("a", "p", "q"))
	require.NoError(t, f.SetColumn(Of("a", "s", "t")))
	assert.Equal(t, []interface{}{"s", "t"}, f.ColumnAt(0).Values())
	assert.Equal(t, []interface{}{"p", "q"}, f.ColumnAt(1).Values())
}

func TestFrame_SelectDropCopy(t *testing.T) {
	f := MustNew(Of("a", 1), Of("b", 2), Of("c", 3))

	sel, err := f.Select("c", "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a"}, sel.Names())

	_, err = f.Select("missing")
	assert.Error(t, err)

	assert.Equal(t, []string{"a", "c"}, f.Drop("b", "zzz").Names())

	cp := f.Copy()
	require.NoError(t, cp.SetNames([]string{"x", "y", "z"}))
	assert.Equal(t, []string{"a", "b", "c"}, f.Names())
	assert.Equal(t, []string{"x", "y", "z"}, cp.Names())
}

func TestFromSource_ColumnOrder(t *testing.T) {
	records := []core.Record{
		{"b": 1, "a": "x"},
		{"b": 2, "a": "y", "extra": true},
	}

	f, err := FromSource(context.Background(), &sliceSource{records: records})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "extra"}, f.Names())
	c, _ := f.Column("extra")
	assert.Nil(t, c.Value(0))

	src := &columnSliceSource{sliceSource{records: records, columns: []string{"b", "a"}}}
	f, err = FromSource(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a", "extra"}, f.Names())
}

func TestFrame_WriteTo(t *testing.T) {
	f := MustNew(Of("a", 1, 2))
	ctx := context.Background()

	rs := &recordingSink{}
	require.NoError(t, f.WriteTo(ctx, rs))
	assert.Len(t, rs.records, 2)
	assert.True(t, rs.flushed)

	fs := &frameSink{}
	require.NoError(t, f.WriteTo(ctx, fs))
	assert.Same(t, f, fs.frame)
	assert.Empty(t, fs.records)
	assert.True(t, fs.flushed)
}

func TestFrame_FilterRows(t *testing.T) {
	dtype := CategoricalType{Categories: []interface{}{"lo", "hi"}, Ordered: true}
	cat, err := NewCategoricalColumn("level", []interface{}{"lo", "hi", "lo"}, dtype)
	require.NoError(t, err)
	f := MustNew(Of("n", 1, 2, 3), cat)

	out, err := f.FilterRows(context.Background(), core.FilterFunc(func(ctx context.Context, r core.Record) (bool, error) {
		return r["level"] == "lo", nil
	}))
	require.NoError(t, err)
	assert.Equal(t, 2, out.Len())
	lvl, _ := out.Column("level")
	assert.True(t, lvl.IsCategorical())
	assert.Equal(t, []int{0, 0}, lvl.Codes())
}

func TestCategoricalColumn(t *testing.T) {
	dtype := CategoricalType{Categories: []interface{}{"a", "b"}}
	c, err := NewCategoricalColumn("x", []interface{}{"b", nil, "c", "a"}, dtype)
	require.NoError(t, err)

	assert.Equal(t, []int{1, -1, -1, 0}, c.Codes())
	assert.Equal(t, []interface{}{"b", nil, nil, "a"}, c.Values())
	assert.Equal(t, 2, c.NullCount())
	assert.Equal(t, "category", c.DType())

	_, err = NewCategoricalColumn("x", nil, CategoricalType{Categories: []interface{}{"a", "a"}})
	assert.Error(t, err)
}

func TestCategoricalType_Equal(t *testing.T) {
	a := &CategoricalType{Categories: []interface{}{"x", "y"}}
	b := &CategoricalType{Categories: []interface{}{"y", "x"}}
	assert.True(t, a.Equal(b))

	a.Ordered, b.Ordered = true, true
	assert.False(t, a.Equal(b))

	c := &CategoricalType{Categories: []interface{}{"x", "y"}, Ordered: true}
	assert.True(t, a.Equal(c))
	assert.False(t, a.Equal(nil))
}

func TestColumn_DTypeAndUnique(t *testing.T) {
	assert.Equal(t, "int64", Of("a", 1, 2).DType())
	assert.Equal(t, "float64", NewColumn("a", []interface{}{1, 2.5}).DType())
	assert.Equal(t, "object", NewColumn("a", []interface{}{1, "x"}).DType())
	assert.Equal(t, "null", NewColumn("a", []interface{}{nil, math.NaN()}).DType())

	u, err := NewColumn("a", []interface{}{"b", nil, "a", "b", 1, 1.0}).Unique()
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"b", "a", 1}, u)
}

func TestFrame_EqualAndFingerprint(t *testing.T) {
	f1 := MustNew(Of("a", 1, 2), Of("b", "x", "y"))
	f2 := MustNew(NewColumn("a", []interface{}{int64(1), 2.0}), Of("b", "x", "y"))
	assert.True(t, f1.Equal(f2))
	assert.Equal(t, f1.Fingerprint(), f2.Fingerprint())

	f3 := MustNew(Of("a", 1, 3), Of("b", "x", "y"))
	assert.False(t, f1.Equal(f3))
	assert.NotEqual(t, f1.Fingerprint(), f3.Fingerprint())

	cat, err := NewCategoricalColumn("b", []interface{}{"x", "y"}, CategoricalType{Categories: []interface{}{"x", "y"}})
	require.NoError(t, err)
	f4 := MustNew(Of("a", 1, 2), cat)
	assert.False(t, f1.Equal(f4))
	assert.NotEqual(t, f1.Fingerprint(), f4.Fingerprint())
}

func TestConcat(t *testing.T) {
	dtype := CategoricalType{Categories: []interface{}{"a", "b"}}
	c1, _ := NewCategoricalColumn("k", []interface{}{"a"}, dtype)
	c2, _ := NewCategoricalColumn("k", []interface{}{"b"}, dtype)

	out, err := Concat(MustNew(Of("n", 1), c1), MustNew(Of("n", 2), c2))
	require.NoError(t, err)
	assert.Equal(t, 2, out.Len())
	k, _ := out.Column("k")
	assert.True(t, k.IsCategorical())
	assert.Equal(t, []int{0, 1}, k.Codes())

	_, err = Concat(MustNew(Of("n", 1)), MustNew(Of("m", 1)))
	assert.Error(t, err)
}

func TestFrame_SourceRoundTrip(t *testing.T) {
	f := MustNew(Of("z", 1, 2), NewColumn("a", []interface{}{"x", nil}))
	out, err := FromSource(context.Background(), f.Source())
	require.NoError(t, err)
	assert.Equal(t, []string{"z", "a"}, out.Names())
	assert.True(t, out.Equal(f))
}
