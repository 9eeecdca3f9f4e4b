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
	"math"
	"reflect"
	"strings"
	"time"
)

// IsNull reports whether v is a null cell: nil, a floating point NaN, or a nil pointer.
func IsNull(v interface{}) bool {
	switch x := v.(type) {
	case nil:
		return true
	case float64:
		return math.IsNaN(x)
	case float32:
		return math.IsNaN(float64(x))
	}
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Ptr && rv.IsNil()
}

type timeKey int64

type bytesKey string

// KeyOf returns a comparable identity for v, suitable as a map key.
// Integers of any width share keys by value and integral floats share the key of
// the matching integer, so 2, int8(2) and 2.0 are the same value. Values that
// cannot be compared (slices, maps, funcs) return an error.
func KeyOf(v interface{}) (interface{}, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
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
	case uint:
		return uintKey(uint64(x)), nil
	case uint8:
		return int64(x), nil
	case uint16:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case uint64:
		return uintKey(x), nil
	case float32:
		return floatKey(float64(x)), nil
	case float64:
		return floatKey(x), nil
	case string, bool:
		return x, nil
	case time.Time:
		return timeKey(x.UnixNano()), nil
	case []byte:
		return bytesKey(x), nil
	}
	if !reflect.TypeOf(v).Comparable() {
		return nil, fmt.Errorf("unhashable value of type %T", v)
	}
	return v, nil
}

func uintKey(u uint64) interface{} {
	if u <= math.MaxInt64 {
		return int64(u)
	}
	return u
}

func floatKey(f float64) interface{} {
	if f == math.Trunc(f) && f >= math.MinInt64 && f < math.MaxInt64 {
		return int64(f)
	}
	return f
}

// IsScalar reports whether v is a single cell value rather than a nested sequence,
// mapping, or tabular structure.
func IsScalar(v interface{}) bool {
	switch v.(type) {
	case nil, []byte, time.Time, string:
		return true
	case *Frame, *Column:
		return false
	}
	switch reflect.TypeOf(v).Kind() {
	case reflect.Slice, reflect.Array, reflect.Map, reflect.Chan, reflect.Func:
		return false
	}
	return true
}

type valueClass int

const (
	classOther valueClass = iota
	classNumber
	classString
	classBool
	classTime
)

func classify(v interface{}) (valueClass, float64) {
	switch x := v.(type) {
	case int:
		return classNumber, float64(x)
	case int8:
		return classNumber, float64(x)
	case int16:
		return classNumber, float64(x)
	case int32:
		return classNumber, float64(x)
	case int64:
		return classNumber, float64(x)
	case uint:
		return classNumber, float64(x)
	case uint8:
		return classNumber, float64(x)
	case uint16:
		return classNumber, float64(x)
	case uint32:
		return classNumber, float64(x)
	case uint64:
		return classNumber, float64(x)
	case float32:
		return classNumber, float64(x)
	case float64:
		return classNumber, x
	case string:
		return classString, 0
	case bool:
		if x {
			return classBool, 1
		}
		return classBool, 0
	case time.Time:
		return classTime, 0
	}
	return classOther, 0
}

// Compare orders two non-null values. Numbers compare numerically regardless of
// their Go type, strings lexicographically, bools false before true and times
// chronologically. Values of different classes are not comparable.
func Compare(a, b interface{}) (int, error) {
	ca, fa := classify(a)
	cb, fb := classify(b)
	if ca != cb || ca == classOther {
		return 0, fmt.Errorf("cannot compare %T with %T", a, b)
	}
	switch ca {
	case classString:
		return strings.Compare(a.(string), b.(string)), nil
	case classTime:
		return a.(time.Time).Compare(b.(time.Time)), nil
	case classNumber:
		// exact path for integers that would lose precision as floats
		if ia, ok := a.(int64); ok {
			if ib, ok := b.(int64); ok {
				return cmpInt(ia, ib), nil
			}
		}
	}
	switch {
	case fa < fb:
		return -1, nil
	case fa > fb:
		return 1, nil
	}
	return 0, nil
}

func cmpInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
