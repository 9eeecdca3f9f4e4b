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

// Package validators implements column presence checks and data quality
// validation over frames.
package validators

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/aaronlmathis/gojanitor/core"
	"github.com/aaronlmathis/gojanitor/frame"
)

// FrameValidator checks a frame against data quality rules: row counts, column
// presence, null rates and per-column value rules.
type FrameValidator struct {
	MinRows          int                              // Minimum number of rows required
	MaxRows          int                              // Maximum number of rows allowed (0 = unlimited)
	MaxNullRate      float64                          // Maximum allowed null rate per column (0.0-1.0, 0 = unchecked)
	RequiredColumns  []string                         // Columns that must be present
	ForbiddenColumns []string                         // Columns that must not be present
	ColumnValidators map[string]ColumnValidator       // Per-column value rules
	CustomValidators []func(*frame.Frame) (bool, error)
}

// ColumnValidator defines value rules for a single column. Null cells are only
// checked by MaxNullRate.
type ColumnValidator struct {
	DataType      ColumnDataType
	Pattern       *regexp.Regexp // applied to string cells
	MinValue      interface{}
	MaxValue      interface{}
	AllowedValues []interface{}
	CustomFunc    func(interface{}) (bool, error)
}

// ColumnDataType represents the expected type of a column's cells.
type ColumnDataType string

const (
	ColumnTypeString   ColumnDataType = "string"
	ColumnTypeInt      ColumnDataType = "int"
	ColumnTypeFloat    ColumnDataType = "float"
	ColumnTypeBool     ColumnDataType = "bool"
	ColumnTypeEmail    ColumnDataType = "email"
	ColumnTypeURL      ColumnDataType = "url"
	ColumnTypeCategory ColumnDataType = "category"
	ColumnTypeAny      ColumnDataType = "any"
)

// Validate runs every configured rule and returns the first violation.
func (v *FrameValidator) Validate(ctx context.Context, f *frame.Frame) error {
	rows := f.Len()
	if rows < v.MinRows {
		return fmt.Errorf("insufficient rows: got %d, need at least %d", rows, v.MinRows)
	}
	if v.MaxRows > 0 && rows > v.MaxRows {
		return fmt.Errorf("too many rows: got %d, maximum allowed %d", rows, v.MaxRows)
	}

	if len(v.RequiredColumns) > 0 {
		if err := CheckColumns(f, true, v.RequiredColumns...); err != nil {
			return err
		}
	}
	if len(v.ForbiddenColumns) > 0 {
		if err := CheckColumns(f, false, v.ForbiddenColumns...); err != nil {
			return err
		}
	}

	if rows == 0 {
		return nil
	}

	if err := v.validateNullRates(f); err != nil {
		return err
	}

	for name, cv := range v.ColumnValidators {
		if err := ctx.Err(); err != nil {
			return err
		}
		col, ok := f.Column(name)
		if !ok {
			continue // presence is RequiredColumns' job
		}
		if err := validateColumn(col, cv); err != nil {
			return err
		}
	}

	for i, custom := range v.CustomValidators {
		ok, err := custom(f)
		if err != nil {
			return fmt.Errorf("custom validator %d failed: %w", i, err)
		}
		if !ok {
			return fmt.Errorf("custom validator %d failed validation", i)
		}
	}
	return nil
}

func (v *FrameValidator) validateNullRates(f *frame.Frame) error {
	if v.MaxNullRate <= 0 {
		return nil
	}
	for _, col := range f.Columns() {
		rate := float64(col.NullCount()) / float64(f.Len())
		if rate > v.MaxNullRate {
			return fmt.Errorf("column %s has null rate %.2f, exceeds maximum %.2f", col.Name(), rate, v.MaxNullRate)
		}
	}
	return nil
}

func validateColumn(col *frame.Column, cv ColumnValidator) error {
	if cv.DataType == ColumnTypeCategory && !col.IsCategorical() {
		return fmt.Errorf("column %s is %s, expected category", col.Name(), col.DType())
	}
	var allowed map[interface{}]bool
	if len(cv.AllowedValues) > 0 {
		allowed = make(map[interface{}]bool, len(cv.AllowedValues))
		for _, a := range cv.AllowedValues {
			if k, err := frame.KeyOf(a); err == nil {
				allowed[k] = true
			}
		}
	}
	for row := 0; row < col.Len(); row++ {
		value := col.Value(row)
		if frame.IsNull(value) {
			continue
		}
		if !matchesType(value, cv.DataType) {
			return fmt.Errorf("row %d column %s has invalid type %T, expected %s", row, col.Name(), value, cv.DataType)
		}
		if cv.Pattern != nil {
			if s, ok := value.(string); ok && !cv.Pattern.MatchString(s) {
				return fmt.Errorf("row %d column %s value '%s' does not match pattern", row, col.Name(), s)
			}
		}
		if err := validateRange(value, cv.MinValue, cv.MaxValue); err != nil {
			return fmt.Errorf("row %d column %s: %w", row, col.Name(), err)
		}
		if allowed != nil {
			k, err := frame.KeyOf(value)
			if err != nil || !allowed[k] {
				return fmt.Errorf("row %d column %s value '%v' not in allowed values", row, col.Name(), value)
			}
		}
		if cv.CustomFunc != nil {
			ok, err := cv.CustomFunc(value)
			if err != nil {
				return fmt.Errorf("row %d column %s custom validation failed: %w", row, col.Name(), err)
			}
			if !ok {
				return fmt.Errorf("row %d column %s failed custom validation", row, col.Name())
			}
		}
	}
	return nil
}

func matchesType(value interface{}, expected ColumnDataType) bool {
	switch expected {
	case ColumnTypeString:
		_, ok := value.(string)
		return ok
	case ColumnTypeInt:
		switch value.(type) {
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
			return true
		}
		return false
	case ColumnTypeFloat:
		switch value.(type) {
		case float32, float64:
			return true
		}
		return false
	case ColumnTypeBool:
		_, ok := value.(bool)
		return ok
	case ColumnTypeEmail:
		s, ok := value.(string)
		return ok && strings.Contains(s, "@") && strings.Contains(s, ".")
	case ColumnTypeURL:
		s, ok := value.(string)
		return ok && (strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://"))
	}
	return true
}

// validateRange compares value against optional bounds. Values that cannot be
// compared with a bound are skipped.
func validateRange(value, minValue, maxValue interface{}) error {
	if minValue != nil {
		if c, err := frame.Compare(value, minValue); err == nil && c < 0 {
			return fmt.Errorf("value %v below minimum %v", value, minValue)
		}
	}
	if maxValue != nil {
		if c, err := frame.Compare(value, maxValue); err == nil && c > 0 {
			return fmt.Errorf("value %v above maximum %v", value, maxValue)
		}
	}
	return nil
}

// Apply validates the frame and passes it through unchanged, so a validator can
// sit in a chain of transformers.
func (v *FrameValidator) Apply(ctx context.Context, f *frame.Frame) (*frame.Frame, error) {
	if err := v.Validate(ctx, f); err != nil {
		return nil, &core.JanitorError{Op: "validate", Kind: core.ErrInvalidValue, Err: err}
	}
	return f, nil
}

// FrameValidatorOption is a functional option for configuring FrameValidator.
type FrameValidatorOption func(*FrameValidator)

// WithMaxRows sets the maximum row count.
func WithMaxRows(max int) FrameValidatorOption {
	return func(v *FrameValidator) {
		v.MaxRows = max
	}
}

// WithMaxNullRate sets the maximum null rate per column.
func WithMaxNullRate(rate float64) FrameValidatorOption {
	return func(v *FrameValidator) {
		v.MaxNullRate = rate
	}
}

// WithForbiddenColumns sets columns that must not be present.
func WithForbiddenColumns(columns ...string) FrameValidatorOption {
	return func(v *FrameValidator) {
		v.ForbiddenColumns = append(v.ForbiddenColumns, columns...)
	}
}

// WithColumnValidator adds a column-specific validator.
func WithColumnValidator(column string, cv ColumnValidator) FrameValidatorOption {
	return func(v *FrameValidator) {
		if v.ColumnValidators == nil {
			v.ColumnValidators = make(map[string]ColumnValidator)
		}
		v.ColumnValidators[column] = cv
	}
}

// WithCustomValidator adds a custom validation function.
func WithCustomValidator(fn func(*frame.Frame) (bool, error)) FrameValidatorOption {
	return func(v *FrameValidator) {
		v.CustomValidators = append(v.CustomValidators, fn)
	}
}

// NewFrameValidator creates a validator requiring minRows rows and the given columns.
func NewFrameValidator(minRows int, requiredColumns []string, options ...FrameValidatorOption) *FrameValidator {
	v := &FrameValidator{
		MinRows:          minRows,
		RequiredColumns:  requiredColumns,
		ColumnValidators: make(map[string]ColumnValidator),
	}
	for _, option := range options {
		option(v)
	}
	return v
}
