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

package validators

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/aaronlmathis/gojanitor/core"
	"github.com/aaronlmathis/gojanitor/frame"
)

// CheckColumns verifies that every name is present in the frame (present=true)
// or that none of them are (present=false). All offending names are reported
// in a single error: ErrMissingColumn for absent names, ErrInvalidValue for
// names that should not be there.
func CheckColumns(f *frame.Frame, present bool, names ...string) error {
	var result *multierror.Error
	var offending []string
	for _, name := range names {
		if f.HasColumn(name) == present {
			continue
		}
		offending = append(offending, name)
		if present {
			result = multierror.Append(result, fmt.Errorf("column %q not found", name))
		} else {
			result = multierror.Append(result, fmt.Errorf("column %q already present", name))
		}
	}
	if result == nil {
		return nil
	}
	result.ErrorFormat = listFormat
	kind := core.ErrMissingColumn
	if !present {
		kind = core.ErrInvalidValue
	}
	return &core.JanitorError{Op: "check_column", Kind: kind, Err: fmt.Errorf("%s: %w", strings.Join(offending, ", "), result)}
}

func listFormat(errs []error) string {
	msgs := make([]string, len(errs))
	for i, err := range errs {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// CheckCategories verifies a list of category values: it must be non-empty and
// hold only distinct, non-null scalar values.
func CheckCategories(categories []interface{}) error {
	if len(categories) == 0 {
		return &core.JanitorError{Op: "check_categories", Kind: core.ErrInvalidValue, Err: fmt.Errorf("categories must not be empty")}
	}
	for i, c := range categories {
		if !frame.IsScalar(c) {
			return &core.JanitorError{Op: "check_categories", Kind: core.ErrWrongType,
				Err: fmt.Errorf("categories must be one-dimensional, element %d is %T", i, c)}
		}
	}
	seen := make(map[interface{}]int, len(categories))
	for i, c := range categories {
		if frame.IsNull(c) {
			return &core.JanitorError{Op: "check_categories", Kind: core.ErrInvalidValue,
				Err: fmt.Errorf("categories must not contain null values (element %d)", i)}
		}
		k, err := frame.KeyOf(c)
		if err != nil {
			return &core.JanitorError{Op: "check_categories", Kind: core.ErrWrongType, Err: err}
		}
		if j, dup := seen[k]; dup {
			return &core.JanitorError{Op: "check_categories", Kind: core.ErrInvalidValue,
				Err: fmt.Errorf("categories must be unique, %v appears at %d and %d", c, j, i)}
		}
		seen[k] = i
	}
	return nil
}
