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
	"time"

	"github.com/apache/arrow/go/v12/arrow"
	"github.com/apache/arrow/go/v12/arrow/array"
	"github.com/apache/arrow/go/v12/arrow/memory"
)

// ArrowSchema returns the Arrow schema the frame maps to. Categorical columns
// become int32-indexed dictionary fields carrying the ordered flag, and are
// also described in the schema metadata.
func (f *Frame) ArrowSchema() *arrow.Schema {
	fields := make([]arrow.Field, len(f.columns))
	for i, c := range f.columns {
		fields[i] = arrow.Field{Name: c.name, Type: c.arrowType(), Nullable: true}
	}
	md := f.categoricalMetadata()
	return arrow.NewSchema(fields, &md)
}

func (c *Column) arrowType() arrow.DataType {
	if c.dtype != nil {
		return &arrow.DictionaryType{
			IndexType: arrow.PrimitiveTypes.Int32,
			ValueType: kindArrowType(inferKind(c.dtype.Categories)),
			Ordered:   c.dtype.Ordered,
		}
	}
	return kindArrowType(inferKind(c.values))
}

func kindArrowType(k valueKind) arrow.DataType {
	switch k {
	case kindBool:
		return arrow.FixedWidthTypes.Boolean
	case kindInt:
		return arrow.PrimitiveTypes.Int64
	case kindUint:
		return arrow.PrimitiveTypes.Uint64
	case kindFloat:
		return arrow.PrimitiveTypes.Float64
	case kindTime:
		return arrow.FixedWidthTypes.Timestamp_us
	case kindBytes:
		return arrow.BinaryTypes.Binary
	}
	return arrow.BinaryTypes.String
}

// ToArrow exports the frame as an Arrow record.
// The caller is responsible for calling Release() on the returned record.
func (f *Frame) ToArrow(mem memory.Allocator) (arrow.Record, error) {
	return f.ToArrowWithSchema(mem, f.ArrowSchema())
}

// ToArrowWithSchema exports the frame using a fixed schema, converting cells to
// the schema's field types. Used by writers that fix the schema on the first batch.
func (f *Frame) ToArrowWithSchema(mem memory.Allocator, schema *arrow.Schema) (arrow.Record, error) {
	if mem == nil {
		mem = memory.DefaultAllocator
	}
	if len(schema.Fields()) != len(f.columns) {
		return nil, fmt.Errorf("schema has %d fields, frame has %d columns", len(schema.Fields()), len(f.columns))
	}
	arrays := make([]arrow.Array, len(f.columns))
	release := func() {
		for _, a := range arrays {
			if a != nil {
				a.Release()
			}
		}
	}
	for i, c := range f.columns {
		field := schema.Field(i)
		if field.Name != c.name {
			release()
			return nil, fmt.Errorf("schema field %d is %s, frame column is %s", i, field.Name, c.name)
		}
		arr, err := c.toArrow(mem, field.Type)
		if err != nil {
			release()
			return nil, fmt.Errorf("column %s: %w", c.name, err)
		}
		arrays[i] = arr
	}
	rec := array.NewRecord(schema, arrays, int64(f.rows))
	release()
	return rec, nil
}

func (c *Column) toArrow(mem memory.Allocator, dt arrow.DataType) (arrow.Array, error) {
	dict, ok := dt.(*arrow.DictionaryType)
	if !ok {
		return buildArray(mem, dt, c.values)
	}
	if c.dtype == nil {
		return nil, fmt.Errorf("dictionary field for a non-categorical column")
	}
	ib := array.NewInt32Builder(mem)
	defer ib.Release()
	for _, code := range c.codes {
		if code < 0 {
			ib.AppendNull()
		} else {
			ib.Append(int32(code))
		}
	}
	indices := ib.NewArray()
	defer indices.Release()
	values, err := buildArray(mem, dict.ValueType, c.dtype.Categories)
	if err != nil {
		return nil, err
	}
	defer values.Release()
	return array.NewDictionaryArray(dict, indices, values), nil
}

func buildArray(mem memory.Allocator, dt arrow.DataType, values []interface{}) (arrow.Array, error) {
	switch dt.ID() {
	case arrow.BOOL:
		b := array.NewBooleanBuilder(mem)
		defer b.Release()
		for _, v := range values {
			if IsNull(v) {
				b.AppendNull()
				continue
			}
			x, ok := v.(bool)
			if !ok {
				return nil, fmt.Errorf("cannot store %T in a bool column", v)
			}
			b.Append(x)
		}
		return b.NewArray(), nil
	case arrow.INT64:
		b := array.NewInt64Builder(mem)
		defer b.Release()
		for _, v := range values {
			if IsNull(v) {
				b.AppendNull()
				continue
			}
			x, err := toInt64(v)
			if err != nil {
				return nil, err
			}
			b.Append(x)
		}
		return b.NewArray(), nil
	case arrow.UINT64:
		b := array.NewUint64Builder(mem)
		defer b.Release()
		for _, v := range values {
			if IsNull(v) {
				b.AppendNull()
				continue
			}
			switch x := v.(type) {
			case uint64:
				b.Append(x)
			case uint:
				b.Append(uint64(x))
			default:
				i, err := toInt64(v)
				if err != nil || i < 0 {
					return nil, fmt.Errorf("cannot store %v in a uint64 column", v)
				}
				b.Append(uint64(i))
			}
		}
		return b.NewArray(), nil
	case arrow.FLOAT64:
		b := array.NewFloat64Builder(mem)
		defer b.Release()
		for _, v := range values {
			if IsNull(v) {
				b.AppendNull()
				continue
			}
			x, err := toFloat64(v)
			if err != nil {
				return nil, err
			}
			b.Append(x)
		}
		return b.NewArray(), nil
	case arrow.TIMESTAMP:
		unit := dt.(*arrow.TimestampType).Unit
		b := array.NewTimestampBuilder(mem, dt.(*arrow.TimestampType))
		defer b.Release()
		for _, v := range values {
			if IsNull(v) {
				b.AppendNull()
				continue
			}
			t, ok := v.(time.Time)
			if !ok {
				return nil, fmt.Errorf("cannot store %T in a timestamp column", v)
			}
			b.Append(arrow.Timestamp(t.UnixNano() / int64(unit.Multiplier())))
		}
		return b.NewArray(), nil
	case arrow.BINARY:
		b := array.NewBinaryBuilder(mem, arrow.BinaryTypes.Binary)
		defer b.Release()
		for _, v := range values {
			if IsNull(v) {
				b.AppendNull()
				continue
			}
			switch x := v.(type) {
			case []byte:
				b.Append(x)
			case string:
				b.AppendString(x)
			default:
				return nil, fmt.Errorf("cannot store %T in a binary column", v)
			}
		}
		return b.NewArray(), nil
	case arrow.STRING:
		b := array.NewStringBuilder(mem)
		defer b.Release()
		for _, v := range values {
			if IsNull(v) {
				b.AppendNull()
				continue
			}
			if s, ok := v.(string); ok {
				b.Append(s)
			} else {
				b.Append(fmt.Sprintf("%v", v))
			}
		}
		return b.NewArray(), nil
	}
	return nil, fmt.Errorf("unsupported arrow type %s", dt)
}

func toInt64(v interface{}) (int64, error) {
	switch x := v.(type) {
	case int:
		return int64(x), nil
	case int8:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case int64:
		return x, nil
	case uint8:
		return int64(x), nil
	case uint16:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case uint:
		return int64(x), nil
	case uint64:
		return int64(x), nil
	}
	return 0, fmt.Errorf("cannot store %T in an integer column", v)
}

func toFloat64(v interface{}) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	}
	if i, err := toInt64(v); err == nil {
		return float64(i), nil
	}
	return 0, fmt.Errorf("cannot store %T in a float column", v)
}

// FromArrow imports an Arrow record. Dictionary columns become categorical
// columns keeping their ordered flag.
func FromArrow(rec arrow.Record) (*Frame, error) {
	if rec == nil {
		return nil, fmt.Errorf("record is nil")
	}
	schema := rec.Schema()
	cols := make([]*Column, rec.NumCols())
	for i := range cols {
		field := schema.Field(i)
		c, err := columnFromChunks(field, []arrow.Array{rec.Column(i)})
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", field.Name, err)
		}
		cols[i] = c
	}
	if err := applyCategoricalMetadata(schema.Metadata(), cols); err != nil {
		return nil, err
	}
	return New(cols...)
}

// FromArrowTable imports an Arrow table, joining column chunks.
func FromArrowTable(tbl arrow.Table) (*Frame, error) {
	if tbl == nil {
		return nil, fmt.Errorf("table is nil")
	}
	schema := tbl.Schema()
	cols := make([]*Column, tbl.NumCols())
	for i := range cols {
		field := schema.Field(i)
		c, err := columnFromChunks(field, tbl.Column(i).Data().Chunks())
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", field.Name, err)
		}
		cols[i] = c
	}
	if err := applyCategoricalMetadata(schema.Metadata(), cols); err != nil {
		return nil, err
	}
	return New(cols...)
}

func columnFromChunks(field arrow.Field, chunks []arrow.Array) (*Column, error) {
	dict, isDict := field.Type.(*arrow.DictionaryType)
	var values []interface{}
	var categories []interface{}
	seen := make(map[interface{}]bool)
	for _, chunk := range chunks {
		if d, ok := chunk.(*array.Dictionary); ok {
			// chunks may carry different dictionaries; categories are their union
			// in first-seen order
			for j := 0; j < d.Dictionary().Len(); j++ {
				v, err := ArrowValue(d.Dictionary(), j)
				if err != nil {
					return nil, err
				}
				k, err := KeyOf(v)
				if err != nil {
					return nil, err
				}
				if !seen[k] {
					seen[k] = true
					categories = append(categories, v)
				}
			}
		}
		for j := 0; j < chunk.Len(); j++ {
			v, err := ArrowValue(chunk, j)
			if err != nil {
				return nil, err
			}
			values = append(values, v)
		}
	}
	if !isDict {
		return &Column{name: field.Name, values: values}, nil
	}
	return NewCategoricalColumn(field.Name, values, CategoricalType{Categories: categories, Ordered: dict.Ordered})
}

// ArrowValue converts the cell at row i of an Arrow array to a Go value.
// Dictionary arrays yield the referenced dictionary value.
func ArrowValue(col arrow.Array, i int) (interface{}, error) {
	if col.IsNull(i) {
		return nil, nil
	}
	switch arr := col.(type) {
	case *array.Boolean:
		return arr.Value(i), nil
	case *array.Int8:
		return int64(arr.Value(i)), nil
	case *array.Int16:
		return int64(arr.Value(i)), nil
	case *array.Int32:
		return int64(arr.Value(i)), nil
	case *array.Int64:
		return arr.Value(i), nil
	case *array.Uint8:
		return uint64(arr.Value(i)), nil
	case *array.Uint16:
		return uint64(arr.Value(i)), nil
	case *array.Uint32:
		return uint64(arr.Value(i)), nil
	case *array.Uint64:
		return arr.Value(i), nil
	case *array.Float32:
		return float64(arr.Value(i)), nil
	case *array.Float64:
		return arr.Value(i), nil
	case *array.String:
		return arr.Value(i), nil
	case *array.Binary:
		b := arr.Value(i)
		out := make([]byte, len(b))
		copy(out, b)
		return out, nil
	case *array.Timestamp:
		unit := arr.DataType().(*arrow.TimestampType).Unit
		return arr.Value(i).ToTime(unit), nil
	case *array.Date32:
		return arr.Value(i).ToTime(), nil
	case *array.Date64:
		return arr.Value(i).ToTime(), nil
	case *array.Dictionary:
		return ArrowValue(arr.Dictionary(), arr.GetValueIndex(i))
	}
	return nil, fmt.Errorf("unsupported arrow array type %T", col)
}
