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

package categorical

import (
	"errors"
	"testing"

	"github.com/aaronlmathis/gojanitor/core"
	"github.com/aaronlmathis/gojanitor/frame"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseColumnNames(t *testing.T) {
	names, err := ParseColumnNames("names")
	require.NoError(t, err)
	assert.Equal(t, []string{"names"}, names)

	names, err = ParseColumnNames([]interface{}{"a", "cities"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "cities"}, names)

	names, err = ParseColumnNames([2]string{"x", "y"})
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, names)

	_, err = ParseColumnNames(map[string]struct{}{"names": {}})
	assert.True(t, errors.Is(err, core.ErrWrongType))

	_, err = ParseColumnNames(1)
	assert.True(t, errors.Is(err, core.ErrWrongType))

	_, err = ParseColumnNames([]interface{}{"a", 2})
	assert.True(t, errors.Is(err, core.ErrWrongType))
}

func TestParseSpec(t *testing.T) {
	tests := []struct {
		name string
		raw  interface{}
		want Spec
		kind error
	}{
		{"pair", []interface{}{nil, "sort"}, Spec{Order: OrderSort}, nil},
		{"pair with categories", []interface{}{[]int{3, 1, 2}, "appearance"}, Spec{Categories: []interface{}{3, 1, 2}, Order: OrderAppearance}, nil},
		{"both absent", []interface{}{nil, nil}, Spec{}, nil},
		{"mapping", map[string]interface{}{"categories": []interface{}{"a"}, "order": "sort"}, Spec{Categories: []interface{}{"a"}, Order: OrderSort}, nil},
		{"typed", Spec{Order: OrderSort}, Spec{Order: OrderSort}, nil},
		{"column categories", []interface{}{frame.Of("c", "x", "y"), nil}, Spec{Categories: []interface{}{"x", "y"}}, nil},
		{"three elements", []interface{}{nil, nil, 2}, Spec{}, core.ErrInvalidValue},
		{"not a pair", "sort", Spec{}, core.ErrWrongType},
		{"nil", nil, Spec{}, core.ErrWrongType},
		{"unknown key", map[string]interface{}{"ordering": "sort"}, Spec{}, core.ErrInvalidValue},
		{"string categories", []interface{}{"category", nil}, Spec{}, core.ErrWrongType},
		{"set categories", []interface{}{map[int]bool{1: true}, nil}, Spec{}, core.ErrWrongType},
		{"nested categories", []interface{}{[][]interface{}{{1, 1, 2, 2}, {"red", "blue", "red", "blue"}}, nil}, Spec{}, core.ErrWrongType},
		{"byte categories", []interface{}{[]byte("abc"), nil}, Spec{}, core.ErrWrongType},
		{"frame categories", []interface{}{frame.MustNew(frame.Of("n", 1)), nil}, Spec{}, core.ErrWrongType},
		{"null category", []interface{}{[]interface{}{nil, 2, 3}, nil}, Spec{}, core.ErrInvalidValue},
		{"empty categories", []interface{}{[]interface{}{}, "sort"}, Spec{}, core.ErrInvalidValue},
		{"order wrong type", []interface{}{nil, []string{"sort"}}, Spec{}, core.ErrWrongType},
		{"order wrong value", []interface{}{nil, "sorted"}, Spec{}, core.ErrInvalidValue},
		{"order empty string", []interface{}{nil, ""}, Spec{}, core.ErrInvalidValue},
		{"null checked before order type", []interface{}{[]interface{}{nil}, 7}, Spec{}, core.ErrInvalidValue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSpec("a", tt.raw)
			if tt.kind != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.kind), "got %v", err)
				assert.Contains(t, err.Error(), `"a"`)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncodeRaw(t *testing.T) {
	out, err := EncodeRaw(namesFrame(), []interface{}{"names", "cities"}, nil)
	require.NoError(t, err)
	categoricalOf(t, out, "names")
	categoricalOf(t, out, "cities")

	out, err = EncodeRaw(namesFrame(), nil, map[string]interface{}{
		"numbers": []interface{}{[]int{3, 1, 2}, "appearance"},
		"names":   []interface{}{nil, "sort"},
	})
	require.NoError(t, err)
	_, dtype := categoricalOf(t, out, "numbers")
	assert.Equal(t, []interface{}{3, 1, 2}, dtype.Categories)
	assert.True(t, dtype.Ordered)
	_, dtype = categoricalOf(t, out, "names")
	assert.Equal(t, []interface{}{"John", "Luke", "Mark"}, dtype.Categories)
}

func TestEncodeRaw_ValidationOrder(t *testing.T) {
	_, err := EncodeRaw(namesFrame(), []string{"names"}, map[string]interface{}{"Bell__Chart": []interface{}{nil, "sort"}})
	assert.True(t, errors.Is(err, core.ErrMalformedArguments))

	_, err = EncodeRaw(namesFrame(), nil, nil)
	assert.True(t, errors.Is(err, core.ErrMalformedArguments))

	_, err = EncodeRaw(namesFrame(), map[string]bool{"names": true}, nil)
	assert.True(t, errors.Is(err, core.ErrWrongType))

	// missing columns are reported before any shape problem
	_, err = EncodeRaw(namesFrame(), nil, map[string]interface{}{
		"names": "not a pair",
		"ghost": []interface{}{nil, nil},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrMissingColumn))
	assert.Contains(t, err.Error(), "ghost")
}
