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

// Package filter provides composable row predicates. Filters are applied to a
// frame with frame.FilterRows or to a pipeline with Pipeline.Where.
package filter

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/aaronlmathis/gojanitor/core"
	"github.com/aaronlmathis/gojanitor/frame"
)

// NotNull keeps rows where the column is present, not null and not an empty string.
func NotNull(column string) core.Filter {
	return core.FilterFunc(func(ctx context.Context, record core.Record) (bool, error) {
		value, exists := record[column]
		if !exists || frame.IsNull(value) {
			return false, nil
		}
		if str, ok := value.(string); ok && str == "" {
			return false, nil
		}
		return true, nil
	})
}

// Equals keeps rows where the column equals expected. Numbers compare by value,
// so 2, int64(2) and 2.0 are equal.
func Equals(column string, expected interface{}) core.Filter {
	want, err := frame.KeyOf(expected)
	return core.FilterFunc(func(ctx context.Context, record core.Record) (bool, error) {
		if err != nil {
			return false, err
		}
		value, exists := record[column]
		if !exists || frame.IsNull(value) {
			return false, nil
		}
		got, kerr := frame.KeyOf(value)
		return kerr == nil && got == want, nil
	})
}

// In keeps rows where the column value is one of values.
func In(column string, values ...interface{}) core.Filter {
	set := make(map[interface{}]bool, len(values))
	var setErr error
	for _, v := range values {
		k, err := frame.KeyOf(v)
		if err != nil {
			setErr = err
			break
		}
		set[k] = true
	}
	return core.FilterFunc(func(ctx context.Context, record core.Record) (bool, error) {
		if setErr != nil {
			return false, setErr
		}
		value, exists := record[column]
		if !exists || frame.IsNull(value) {
			return false, nil
		}
		k, err := frame.KeyOf(value)
		return err == nil && set[k], nil
	})
}

func stringFilter(column string, match func(string) bool) core.Filter {
	return core.FilterFunc(func(ctx context.Context, record core.Record) (bool, error) {
		if str, ok := record[column].(string); ok {
			return match(str), nil
		}
		return false, nil
	})
}

// Contains keeps rows where the string column contains substring.
func Contains(column, substring string) core.Filter {
	return stringFilter(column, func(s string) bool { return strings.Contains(s, substring) })
}

// StartsWith keeps rows where the string column starts with prefix.
func StartsWith(column, prefix string) core.Filter {
	return stringFilter(column, func(s string) bool { return strings.HasPrefix(s, prefix) })
}

// EndsWith keeps rows where the string column ends with suffix.
func EndsWith(column, suffix string) core.Filter {
	return stringFilter(column, func(s string) bool { return strings.HasSuffix(s, suffix) })
}

// MatchesRegex keeps rows where the string column matches pattern.
func MatchesRegex(column, pattern string) core.Filter {
	regex := regexp.MustCompile(pattern)
	return stringFilter(column, regex.MatchString)
}

func compareFilter(column string, threshold interface{}, keep func(int) bool) core.Filter {
	return core.FilterFunc(func(ctx context.Context, record core.Record) (bool, error) {
		value, exists := record[column]
		if !exists || frame.IsNull(value) {
			return false, nil
		}
		c, err := frame.Compare(value, threshold)
		if err != nil {
			return false, nil // incomparable values never match
		}
		return keep(c), nil
	})
}

// GreaterThan keeps rows where the column is greater than threshold.
func GreaterThan(column string, threshold interface{}) core.Filter {
	return compareFilter(column, threshold, func(c int) bool { return c > 0 })
}

// LessThan keeps rows where the column is less than threshold.
func LessThan(column string, threshold interface{}) core.Filter {
	return compareFilter(column, threshold, func(c int) bool { return c < 0 })
}

// Between keeps rows where the column is within [min, max].
func Between(column string, min, max interface{}) core.Filter {
	return And(
		compareFilter(column, min, func(c int) bool { return c >= 0 }),
		compareFilter(column, max, func(c int) bool { return c <= 0 }),
	)
}

// CategoryBetween keeps rows whose value ranks within [min, max] in an ordered
// categorical type. Values outside the categories never match.
func CategoryBetween(column string, dtype *frame.CategoricalType, min, max interface{}) core.Filter {
	rank := make(map[interface{}]int)
	var setupErr error
	if dtype == nil || !dtype.Ordered {
		setupErr = fmt.Errorf("category_between: column %s: categorical type must be ordered", column)
	} else {
		for i, c := range dtype.Categories {
			k, _ := frame.KeyOf(c)
			rank[k] = i
		}
	}
	lookup := func(v interface{}) (int, bool) {
		k, err := frame.KeyOf(v)
		if err != nil {
			return 0, false
		}
		r, ok := rank[k]
		return r, ok
	}
	lo, loOK := lookup(min)
	hi, hiOK := lookup(max)
	if setupErr == nil && (!loOK || !hiOK) {
		setupErr = fmt.Errorf("category_between: column %s: bounds %v and %v must be categories", column, min, max)
	}
	return core.FilterFunc(func(ctx context.Context, record core.Record) (bool, error) {
		if setupErr != nil {
			return false, setupErr
		}
		r, ok := lookup(record[column])
		return ok && r >= lo && r <= hi, nil
	})
}

// And keeps rows that pass all filters.
func And(filters ...core.Filter) core.Filter {
	return core.FilterFunc(func(ctx context.Context, record core.Record) (bool, error) {
		for _, filter := range filters {
			include, err := filter.ShouldInclude(ctx, record)
			if err != nil || !include {
				return false, err
			}
		}
		return true, nil
	})
}

// Or keeps rows that pass at least one filter.
func Or(filters ...core.Filter) core.Filter {
	return core.FilterFunc(func(ctx context.Context, record core.Record) (bool, error) {
		for _, filter := range filters {
			include, err := filter.ShouldInclude(ctx, record)
			if err != nil || include {
				return include && err == nil, err
			}
		}
		return false, nil
	})
}

// Not negates a filter.
func Not(filter core.Filter) core.Filter {
	return core.FilterFunc(func(ctx context.Context, record core.Record) (bool, error) {
		include, err := filter.ShouldInclude(ctx, record)
		if err != nil {
			return false, err
		}
		return !include, nil
	})
}

// Custom keeps rows for which predicate returns true.
func Custom(predicate func(core.Record) bool) core.Filter {
	return core.FilterFunc(func(ctx context.Context, record core.Record) (bool, error) {
		return predicate(record), nil
	})
}
