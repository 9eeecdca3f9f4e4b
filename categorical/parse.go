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

package categorical

import (
	"reflect"
	"sort"

	"github.com/aaronlmathis/gojanitor/core"
	"github.com/aaronlmathis/gojanitor/frame"
	"github.com/aaronlmathis/gojanitor/validators"
)

// This file handles loosely typed arguments, as decoded from YAML, JSON or
// another dynamic caller, and turns them into typed options.

// EncodeRaw encodes f from loosely typed arguments. columnNames is a string or
// a sequence of strings; specs maps column names to a (categories, order) pair
// or a {categories, order} mapping. Exactly one of them must be non-nil.
func EncodeRaw(f *frame.Frame, columnNames interface{}, specs map[string]interface{}, options ...Option) (*frame.Frame, error) {
	switch {
	case columnNames != nil && specs != nil:
		return nil, core.Errorf(opName, core.ErrMalformedArguments,
			"column names and per-column specs cannot be combined, use one or the other")
	case columnNames == nil && specs == nil:
		return nil, core.Errorf(opName, core.ErrMalformedArguments,
			"either column names or per-column specs are required")
	case f == nil:
		return nil, core.Errorf(opName, core.ErrMalformedArguments, "frame is nil")
	}

	if columnNames != nil {
		names, err := ParseColumnNames(columnNames)
		if err != nil {
			return nil, err
		}
		return Encode(f, append(options, WithColumns(names...))...)
	}

	names := make([]string, 0, len(specs))
	for name := range specs {
		names = append(names, name)
	}
	sort.Strings(names)
	if err := validators.CheckColumns(f, true, names...); err != nil {
		return nil, withOp(err)
	}
	parsed, err := ParseSpecs(specs)
	if err != nil {
		return nil, err
	}
	return Encode(f, append(options, WithSpecs(parsed))...)
}

// ParseColumnNames accepts a single column name or a sequence of names.
func ParseColumnNames(raw interface{}) ([]string, error) {
	switch v := raw.(type) {
	case nil:
		return nil, core.Errorf(opName, core.ErrMalformedArguments, "no column names supplied")
	case string:
		return []string{v}, nil
	case []string:
		out := make([]string, len(v))
		copy(out, v)
		return out, nil
	}
	rv := reflect.ValueOf(raw)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, core.Errorf(opName, core.ErrWrongType,
			"column names must be a string or an ordered sequence of strings, got %T", raw)
	}
	out := make([]string, rv.Len())
	for i := range out {
		s, ok := rv.Index(i).Interface().(string)
		if !ok {
			return nil, core.Errorf(opName, core.ErrWrongType,
				"column names must be strings, element %d is %T", i, rv.Index(i).Interface())
		}
		out[i] = s
	}
	return out, nil
}

// ParseSpecs parses every entry of specs, in column name order.
func ParseSpecs(specs map[string]interface{}) (map[string]Spec, error) {
	names := make([]string, 0, len(specs))
	for name := range specs {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make(map[string]Spec, len(specs))
	for _, name := range names {
		spec, err := ParseSpec(name, specs[name])
		if err != nil {
			return nil, err
		}
		out[name] = spec
	}
	return out, nil
}

// ParseSpec parses the encoding rule for one column. raw is a Spec, a
// two-element (categories, order) sequence, or a mapping with optional
// "categories" and "order" keys.
func ParseSpec(column string, raw interface{}) (Spec, error) {
	var rawCats, rawOrder interface{}
	switch v := raw.(type) {
	case Spec:
		return copySpec(v), nil
	case *Spec:
		if v == nil {
			return Spec{}, core.ColumnErrorf(opName, column, core.ErrWrongType, "spec is nil")
		}
		return copySpec(*v), nil
	case map[string]interface{}:
		for key, val := range v {
			switch key {
			case "categories":
				rawCats = val
			case "order":
				rawOrder = val
			default:
				return Spec{}, core.ColumnErrorf(opName, column, core.ErrInvalidValue,
					"unknown spec key %q, expected categories or order", key)
			}
		}
	default:
		rv := reflect.ValueOf(raw)
		if raw == nil || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
			return Spec{}, core.ColumnErrorf(opName, column, core.ErrWrongType,
				"expected a (categories, order) pair, got %T", raw)
		}
		if rv.Len() != 2 {
			return Spec{}, core.ColumnErrorf(opName, column, core.ErrInvalidValue,
				"expected a (categories, order) pair, got %d elements", rv.Len())
		}
		rawCats, rawOrder = rv.Index(0).Interface(), rv.Index(1).Interface()
	}

	cats, err := parseCategories(column, rawCats)
	if err != nil {
		return Spec{}, err
	}
	if cats != nil {
		if err := validators.CheckCategories(cats); err != nil {
			return Spec{}, withColumn(column, err)
		}
	}
	order, err := parseOrder(column, rawOrder)
	if err != nil {
		return Spec{}, err
	}
	return Spec{Categories: cats, Order: order}, nil
}

func parseCategories(column string, raw interface{}) ([]interface{}, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case string:
		return nil, core.ColumnErrorf(opName, column, core.ErrWrongType,
			"categories must be a one-dimensional sequence, not a string")
	case []byte:
		return nil, core.ColumnErrorf(opName, column, core.ErrWrongType,
			"categories must be a one-dimensional sequence, not bytes")
	case *frame.Frame:
		return nil, core.ColumnErrorf(opName, column, core.ErrWrongType,
			"categories must be one-dimensional, got a frame")
	case *frame.Column:
		return v.Values(), nil
	}
	rv := reflect.ValueOf(raw)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, core.ColumnErrorf(opName, column, core.ErrWrongType,
			"categories must be a one-dimensional sequence, got %T", raw)
	}
	out := make([]interface{}, rv.Len())
	for i := range out {
		elem := rv.Index(i).Interface()
		if !frame.IsScalar(elem) {
			return nil, core.ColumnErrorf(opName, column, core.ErrWrongType,
				"categories must be one-dimensional, element %d is %T", i, elem)
		}
		out[i] = elem
	}
	return out, nil
}

func parseOrder(column string, raw interface{}) (Order, error) {
	var o Order
	switch v := raw.(type) {
	case nil:
		return OrderNone, nil
	case Order:
		o = v
	case string:
		if v == "" {
			return OrderNone, core.ColumnErrorf(opName, column, core.ErrInvalidValue,
				"order must be %q, %q or null, got an empty string", OrderSort, OrderAppearance)
		}
		o = Order(v)
	default:
		return OrderNone, core.ColumnErrorf(opName, column, core.ErrWrongType,
			"order must be a string or null, got %T", raw)
	}
	if !o.Valid() {
		return OrderNone, core.ColumnErrorf(opName, column, core.ErrInvalidValue,
			"order must be %q, %q or null, got %q", OrderSort, OrderAppearance, string(o))
	}
	return o, nil
}
