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
	"fmt"
	"reflect"
	"time"
)

// CategoricalType is the type of a categorical column: a fixed list of distinct
// category values, optionally carrying a rank order.
type CategoricalType struct {
	Categories []interface{}
	Ordered    bool
}

// Equal reports whether two categorical types are the same. Ordered types must
// list the same categories in the same order; unordered types only need the same
// set of categories.
func (t *CategoricalType) Equal(o *CategoricalType) bool {
	if t == nil || o == nil {
		return t == o
	}
	if t.Ordered != o.Ordered || len(t.Categories) != len(o.Categories) {
		return false
	}
	if t.Ordered {
		for i := range t.Categories {
			if !valuesEqual(t.Categories[i], o.Categories[i]) {
				return false
			}
		}
		return true
	}
	idx, err := o.index()
	if err != nil {
		return false
	}
	for _, c := range t.Categories {
		k, err := KeyOf(c)
		if err != nil {
			return false
		}
		if _, ok := idx[k]; !ok {
			return false
		}
	}
	return true
}

func (t *CategoricalType) String() string {
	return fmt.Sprintf("category(ordered=%t, %v)", t.Ordered, t.Categories)
}

// index maps category keys to their codes.
func (t *CategoricalType) index() (map[interface{}]int, error) {
	idx := make(map[interface{}]int, len(t.Categories))
	for i, c := range t.Categories {
		if IsNull(c) {
			return nil, fmt.Errorf("category %d is null", i)
		}
		k, err := KeyOf(c)
		if err != nil {
			return nil, err
		}
		if _, dup := idx[k]; dup {
			return nil, fmt.Errorf("duplicate category %v", c)
		}
		idx[k] = i
	}
	return idx, nil
}

// Column is a named, immutable sequence of cell values. A categorical column
// additionally carries a CategoricalType and one integer code per row.
type Column struct {
	name   string
	values []interface{}
	dtype  *CategoricalType
	codes  []int
}

// NewColumn creates a plain column. The values slice is copied.
func NewColumn(name string, values []interface{}) *Column {
	v := make([]interface{}, len(values))
	copy(v, values)
	return &Column{name: name, values: v}
}

// Of creates a plain column from typed values.
func Of[T any](name string, values ...T) *Column {
	v := make([]interface{}, len(values))
	for i, x := range values {
		v[i] = x
	}
	return &Column{name: name, values: v}
}

// NewCategoricalColumn creates a categorical column. Values not covered by the
// categories become null.
func NewCategoricalColumn(name string, values []interface{}, dtype CategoricalType) (*Column, error) {
	idx, err := dtype.index()
	if err != nil {
		return nil, fmt.Errorf("column %s: invalid categories: %w", name, err)
	}
	cats := make([]interface{}, len(dtype.Categories))
	copy(cats, dtype.Categories)
	col := &Column{
		name:   name,
		values: make([]interface{}, len(values)),
		dtype:  &CategoricalType{Categories: cats, Ordered: dtype.Ordered},
		codes:  make([]int, len(values)),
	}
	for i, v := range values {
		col.codes[i] = -1
		if IsNull(v) {
			continue
		}
		k, err := KeyOf(v)
		if err != nil {
			return nil, fmt.Errorf("column %s row %d: %w", name, i, err)
		}
		if code, ok := idx[k]; ok {
			col.codes[i] = code
			col.values[i] = cats[code]
		}
	}
	return col, nil
}

func (c *Column) Name() string { return c.name }

func (c *Column) Len() int { return len(c.values) }

// Value returns the cell at row i.
func (c *Column) Value(i int) interface{} { return c.values[i] }

// Values returns a copy of the cells.
func (c *Column) Values() []interface{} {
	out := make([]interface{}, len(c.values))
	copy(out, c.values)
	return out
}

func (c *Column) IsNull(i int) bool { return IsNull(c.values[i]) }

// NullCount returns the number of null cells.
func (c *Column) NullCount() int {
	n := 0
	for _, v := range c.values {
		if IsNull(v) {
			n++
		}
	}
	return n
}

func (c *Column) IsCategorical() bool { return c.dtype != nil }

// Categorical returns a copy of the column's categorical type, or nil.
func (c *Column) Categorical() *CategoricalType {
	if c.dtype == nil {
		return nil
	}
	cats := make([]interface{}, len(c.dtype.Categories))
	copy(cats, c.dtype.Categories)
	return &CategoricalType{Categories: cats, Ordered: c.dtype.Ordered}
}

// Codes returns a copy of the category codes, -1 marking nulls. Nil for plain columns.
func (c *Column) Codes() []int {
	if c.codes == nil {
		return nil
	}
	out := make([]int, len(c.codes))
	copy(out, c.codes)
	return out
}

// Rename returns the same column under a new name.
func (c *Column) Rename(name string) *Column {
	out := *c
	out.name = name
	return &out
}

// Unique returns the distinct non-null values in first-seen order.
func (c *Column) Unique() ([]interface{}, error) {
	seen := make(map[interface{}]struct{})
	var out []interface{}
	for i, v := range c.values {
		if IsNull(v) {
			continue
		}
		k, err := KeyOf(v)
		if err != nil {
			return nil, fmt.Errorf("column %s row %d: %w", c.name, i, err)
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, v)
	}
	return out, nil
}

// DType names the column's type: "category" for categorical columns, otherwise
// the common type of its non-null cells ("int64", "float64", "string", "bool",
// "datetime", "bytes"), "object" for mixed cells and "null" when all cells are null.
func (c *Column) DType() string {
	if c.dtype != nil {
		return "category"
	}
	return inferKind(c.values).String()
}

// Equal reports whether two columns have the same name, type and cells.
func (c *Column) Equal(o *Column) bool {
	if c.name != o.name || len(c.values) != len(o.values) || !c.dtype.Equal(o.dtype) {
		return false
	}
	for i := range c.values {
		if !valuesEqual(c.values[i], o.values[i]) {
			return false
		}
	}
	return true
}

// take returns a column with the rows at the given positions.
func (c *Column) take(rows []int) *Column {
	out := &Column{name: c.name, values: make([]interface{}, len(rows)), dtype: c.dtype}
	if c.codes != nil {
		out.codes = make([]int, len(rows))
	}
	for i, r := range rows {
		out.values[i] = c.values[r]
		if c.codes != nil {
			out.codes[i] = c.codes[r]
		}
	}
	return out
}

func valuesEqual(a, b interface{}) bool {
	na, nb := IsNull(a), IsNull(b)
	if na || nb {
		return na && nb
	}
	ka, errA := KeyOf(a)
	kb, errB := KeyOf(b)
	if errA != nil || errB != nil {
		return reflect.DeepEqual(a, b)
	}
	return ka == kb
}

type valueKind int

const (
	kindNull valueKind = iota
	kindBool
	kindInt
	kindUint
	kindFloat
	kindString
	kindTime
	kindBytes
	kindObject
)

func (k valueKind) String() string {
	switch k {
	case kindNull:
		return "null"
	case kindBool:
		return "bool"
	case kindInt:
		return "int64"
	case kindUint:
		return "uint64"
	case kindFloat:
		return "float64"
	case kindString:
		return "string"
	case kindTime:
		return "datetime"
	case kindBytes:
		return "bytes"
	}
	return "object"
}

func kindOf(v interface{}) valueKind {
	switch v.(type) {
	case bool:
		return kindBool
	case int, int8, int16, int32, int64:
		return kindInt
	case uint, uint8, uint16, uint32, uint64:
		return kindUint
	case float32, float64:
		return kindFloat
	case string:
		return kindString
	case time.Time:
		return kindTime
	case []byte:
		return kindBytes
	}
	return kindObject
}

// inferKind finds the common kind of the non-null values. Mixed integer and
// float cells widen to float.
func inferKind(values []interface{}) valueKind {
	kind := kindNull
	for _, v := range values {
		if IsNull(v) {
			continue
		}
		k := kindOf(v)
		switch {
		case kind == kindNull || kind == k:
			kind = k
		case isNumeric(kind) && isNumeric(k):
			kind = kindFloat
		default:
			return kindObject
		}
	}
	return kind
}

func isNumeric(k valueKind) bool {
	return k == kindInt || k == kindUint || k == kindFloat
}
