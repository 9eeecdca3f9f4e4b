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

package validators

import (
	"context"
	"errors"
	"math"
	"regexp"
	"testing"

	"github.com/aaronlmathis/gojanitor/core"
	"github.com/aaronlmathis/gojanitor/frame"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleFrame() *frame.Frame {
	return frame.MustNew(
		frame.Of("id", 1, 2, 3, 4),
		frame.NewColumn("email", []interface{}{"a@x.io", "b@x.io", nil, "d@x.io"}),
		frame.Of("status", "new", "old", "new", "new"),
	)
}

func TestCheckColumns(t *testing.T) {
	f := sampleFrame()

	require.NoError(t, CheckColumns(f, true, "id", "status"))
	require.NoError(t, CheckColumns(f, false, "nope"))

	err := CheckColumns(f, true, "id", "ghost", "phantom")
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrMissingColumn))
	assert.Contains(t, err.Error(), "ghost")
	assert.Contains(t, err.Error(), "phantom")

	err = CheckColumns(f, false, "id", "email")
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrInvalidValue))
	assert.Contains(t, err.Error(), "email")
}

func TestCheckCategories(t *testing.T) {
	tests := []struct {
		name string
		cats []interface{}
		kind error
	}{
		{"valid", []interface{}{"a", "b", 3}, nil},
		{"empty", []interface{}{}, core.ErrInvalidValue},
		{"null", []interface{}{"a", nil}, core.ErrInvalidValue},
		{"nan", []interface{}{1.0, math.NaN()}, core.ErrInvalidValue},
		{"duplicate", []interface{}{"a", "b", "a"}, core.ErrInvalidValue},
		{"numeric duplicate", []interface{}{1, 1.0}, core.ErrInvalidValue},
		{"nested", []interface{}{[]interface{}{1, 2}}, core.ErrWrongType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckCategories(tt.cats)
			if tt.kind == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.kind), "got %v", err)
		})
	}
}

func TestFrameValidator_Rows(t *testing.T) {
	ctx := context.Background()
	f := sampleFrame()

	assert.NoError(t, NewFrameValidator(1, []string{"id"}).Validate(ctx, f))
	assert.Error(t, NewFrameValidator(10, nil).Validate(ctx, f))
	assert.Error(t, NewFrameValidator(0, nil, WithMaxRows(2)).Validate(ctx, f))
	assert.Error(t, NewFrameValidator(0, []string{"missing"}).Validate(ctx, f))
	assert.Error(t, NewFrameValidator(0, nil, WithForbiddenColumns("email")).Validate(ctx, f))
}

func TestFrameValidator_NullRate(t *testing.T) {
	ctx := context.Background()
	f := sampleFrame()

	assert.NoError(t, NewFrameValidator(0, nil, WithMaxNullRate(0.5)).Validate(ctx, f))
	err := NewFrameValidator(0, nil, WithMaxNullRate(0.1)).Validate(ctx, f)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "email")
}

func TestFrameValidator_ColumnRules(t *testing.T) {
	ctx := context.Background()
	f := sampleFrame()

	v := NewFrameValidator(0, nil,
		WithColumnValidator("email", ColumnValidator{DataType: ColumnTypeEmail, Pattern: regexp.MustCompile(`@x\.io$`)}),
		WithColumnValidator("id", ColumnValidator{DataType: ColumnTypeInt, MinValue: 1, MaxValue: 4}),
		WithColumnValidator("status", ColumnValidator{AllowedValues: []interface{}{"new", "old"}}),
	)
	assert.NoError(t, v.Validate(ctx, f))

	v = NewFrameValidator(0, nil, WithColumnValidator("id", ColumnValidator{MaxValue: 3}))
	assert.Error(t, v.Validate(ctx, f))

	v = NewFrameValidator(0, nil, WithColumnValidator("status", ColumnValidator{AllowedValues: []interface{}{"new"}}))
	assert.Error(t, v.Validate(ctx, f))

	v = NewFrameValidator(0, nil, WithColumnValidator("status", ColumnValidator{DataType: ColumnTypeCategory}))
	assert.Error(t, v.Validate(ctx, f))
}

func TestFrameValidator_ApplyPassesThrough(t *testing.T) {
	f := sampleFrame()
	v := NewFrameValidator(1, nil, WithCustomValidator(func(f *frame.Frame) (bool, error) {
		return f.Width() == 3, nil
	}))

	out, err := v.Apply(context.Background(), f)
	require.NoError(t, err)
	assert.Same(t, f, out)

	v = NewFrameValidator(100, nil)
	_, err = v.Apply(context.Background(), f)
	assert.True(t, errors.Is(err, core.ErrInvalidValue))
}
