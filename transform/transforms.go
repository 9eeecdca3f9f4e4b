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

// Package transform provides composable column operations over frames:
// selection, renaming, name truncation, type conversion and string normalization.
//
// All functions return frame.Transformer implementations for use with
// gojanitor.Chain and gojanitor.Pipeline.
package transform

import (
	"context"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/aaronlmathis/gojanitor/core"
	"github.com/aaronlmathis/gojanitor/frame"
)

// Rename creates a transformer that renames columns according to the mapping.
// Keys are current column names, values are new names. Names missing from the
// frame are reported as ErrMissingColumn.
func Rename(mapping map[string]string) frame.Transformer {
	return frame.TransformFunc(func(ctx context.Context, f *frame.Frame) (*frame.Frame, error) {
		names := f.Names()
		found := make(map[string]bool, len(mapping))
		for i, name := range names {
			if newName, ok := mapping[name]; ok {
				names[i] = newName
				found[name] = true
			}
		}
		var missing []string
		for name := range mapping {
			if !found[name] {
				missing = append(missing, name)
			}
		}
		if len(missing) > 0 {
			return nil, core.Errorf("rename", core.ErrMissingColumn, "columns not found: %s", strings.Join(sortedCopy(missing), ", "))
		}
		out := f.Copy()
		if err := out.SetNames(names); err != nil {
			return nil, err
		}
		return out, nil
	})
}

// RemoveColumns creates a transformer that drops the named columns.
// Names that don't exist are ignored.
func RemoveColumns(names ...string) frame.Transformer {
	return frame.TransformFunc(func(ctx context.Context, f *frame.Frame) (*frame.Frame, error) {
		return f.Drop(names...), nil
	})
}

// AddColumn creates a transformer that adds (or replaces) a column computed row by row.
func AddColumn(name string, fn func(core.Record) interface{}) frame.Transformer {
	return frame.TransformFunc(func(ctx context.Context, f *frame.Frame) (*frame.Frame, error) {
		values := make([]interface{}, f.Len())
		for i := range values {
			values[i] = fn(f.Row(i))
		}
		out := f.Copy()
		if err := out.SetColumn(frame.NewColumn(name, values)); err != nil {
			return nil, err
		}
		return out, nil
	})
}

// MapValues creates a transformer that replaces every non-null cell of a column
// with fn(cell). Null cells stay null. A categorical column becomes a plain column.
func MapValues(column string, fn func(interface{}) (interface{}, error)) frame.Transformer {
	return frame.TransformFunc(func(ctx context.Context, f *frame.Frame) (*frame.Frame, error) {
		col, ok := f.Column(column)
		if !ok {
			return nil, core.ColumnErrorf("map_values", column, core.ErrMissingColumn, "column not found")
		}
		values := col.Values()
		for i, v := range values {
			if frame.IsNull(v) {
				continue
			}
			mapped, err := fn(v)
			if err != nil {
				return nil, fmt.Errorf("failed to convert column %s row %d: %w", column, i, err)
			}
			values[i] = mapped
		}
		out := f.Copy()
		if err := out.SetColumn(frame.NewColumn(column, values)); err != nil {
			return nil, err
		}
		return out, nil
	})
}

// ConvertType creates a transformer that converts a column's cells to the given type.
func ConvertType(column string, targetType reflect.Type) frame.Transformer {
	return MapValues(column, func(v interface{}) (interface{}, error) {
		return convertValue(v, targetType)
	})
}

// ToString creates a transformer that converts a column to strings.
func ToString(column string) frame.Transformer {
	return ConvertType(column, reflect.TypeOf(""))
}

// ToInt creates a transformer that converts a column to ints.
func ToInt(column string) frame.Transformer {
	return ConvertType(column, reflect.TypeOf(0))
}

// ToFloat creates a transformer that converts a column to float64.
func ToFloat(column string) frame.Transformer {
	return ConvertType(column, reflect.TypeOf(0.0))
}

// TrimSpace creates a transformer that trims whitespace from string cells.
func TrimSpace(columns ...string) frame.Transformer {
	return mapStrings(strings.TrimSpace, columns)
}

// ToUpper creates a transformer that upper-cases string cells.
func ToUpper(columns ...string) frame.Transformer {
	return mapStrings(strings.ToUpper, columns)
}

// ToLower creates a transformer that lower-cases string cells.
func ToLower(columns ...string) frame.Transformer {
	return mapStrings(strings.ToLower, columns)
}

func mapStrings(fn func(string) string, columns []string) frame.Transformer {
	return frame.TransformFunc(func(ctx context.Context, f *frame.Frame) (*frame.Frame, error) {
		out := f
		for _, column := range columns {
			var err error
			out, err = MapValues(column, func(v interface{}) (interface{}, error) {
				if s, ok := v.(string); ok {
					return fn(s), nil
				}
				return v, nil
			}).Apply(ctx, out)
			if err != nil {
				return nil, err
			}
		}
		return out, nil
	})
}

// ParseTime creates a transformer that parses string cells into time.Time using layout.
func ParseTime(column, layout string) frame.Transformer {
	return MapValues(column, func(v interface{}) (interface{}, error) {
		s, ok := v.(string)
		if !ok {
			return v, nil
		}
		return time.Parse(layout, s)
	})
}

// convertValue converts a value to the specified reflect.Type.
func convertValue(value interface{}, targetType reflect.Type) (interface{}, error) {
	if reflect.TypeOf(value) == targetType {
		return value, nil
	}
	switch targetType.Kind() {
	case reflect.String:
		return fmt.Sprintf("%v", value), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return convertToInt(value)
	case reflect.Float32, reflect.Float64:
		return convertToFloat(value)
	case reflect.Bool:
		return convertToBool(value)
	}
	return nil, fmt.Errorf("unsupported target type: %s", targetType)
}

func convertToInt(value interface{}) (int, error) {
	switch v := value.(type) {
	case string:
		return strconv.Atoi(strings.TrimSpace(v))
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	}
	return 0, fmt.Errorf("cannot convert %T to int", value)
}

func convertToFloat(value interface{}) (float64, error) {
	switch v := value.(type) {
	case string:
		return strconv.ParseFloat(strings.TrimSpace(v), 64)
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case float32:
		return float64(v), nil
	case float64:
		return v, nil
	}
	return 0, fmt.Errorf("cannot convert %T to float64", value)
}

func convertToBool(value interface{}) (bool, error) {
	switch v := value.(type) {
	case string:
		return strconv.ParseBool(strings.TrimSpace(v))
	case bool:
		return v, nil
	case int:
		return v != 0, nil
	case int64:
		return v != 0, nil
	}
	return false, fmt.Errorf("cannot convert %T to bool", value)
}
