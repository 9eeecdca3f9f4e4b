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
	"github.com/aaronlmathis/gojanitor/core"
)

// Order selects how categories are ordered when they are derived from the data.
type Order string

const (
	// OrderNone keeps first-seen order and produces an unordered categorical.
	OrderNone Order = ""
	// OrderSort sorts the distinct values ascending and produces an ordered categorical.
	OrderSort Order = "sort"
	// OrderAppearance keeps first-seen order and produces an ordered categorical.
	OrderAppearance Order = "appearance"
)

// Valid reports whether o is one of the known order modes.
func (o Order) Valid() bool {
	switch o {
	case OrderNone, OrderSort, OrderAppearance:
		return true
	}
	return false
}

// Spec describes how a single column is encoded. A nil Categories slice means
// the categories are derived from the column; a non-nil empty slice is an
// explicit, and invalid, empty category list.
type Spec struct {
	Categories []interface{}
	Order      Order
}

// EncodeOptions configures an Encoder. Exactly one of Columns or Specs must be set.
type EncodeOptions struct {
	Columns        []string        // simple mode: default encoding for each name
	Specs          map[string]Spec // advanced mode: per-column rules
	WarningHandler core.WarningHandler
}

// Option represents a configuration function.
type Option func(*EncodeOptions)

// WithColumns selects simple mode: each named column is encoded as if its spec
// had no categories and no order.
func WithColumns(names ...string) Option {
	return func(opts *EncodeOptions) {
		if opts.Columns == nil {
			opts.Columns = make([]string, 0, len(names))
		}
		opts.Columns = append(opts.Columns, names...)
	}
}

// WithSpec selects advanced mode for one column.
func WithSpec(column string, spec Spec) Option {
	return func(opts *EncodeOptions) {
		if opts.Specs == nil {
			opts.Specs = make(map[string]Spec)
		}
		opts.Specs[column] = copySpec(spec)
	}
}

// WithSpecs selects advanced mode for several columns.
func WithSpecs(specs map[string]Spec) Option {
	return func(opts *EncodeOptions) {
		if opts.Specs == nil {
			opts.Specs = make(map[string]Spec, len(specs))
		}
		for column, spec := range specs {
			opts.Specs[column] = copySpec(spec)
		}
	}
}

// WithWarningHandler sets where category mismatch warnings are delivered.
func WithWarningHandler(h core.WarningHandler) Option {
	return func(opts *EncodeOptions) {
		opts.WarningHandler = h
	}
}

func copySpec(spec Spec) Spec {
	if spec.Categories != nil {
		cats := make([]interface{}, len(spec.Categories))
		copy(cats, spec.Categories)
		spec.Categories = cats
	}
	return spec
}

func (opts *EncodeOptions) withDefaults() *EncodeOptions {
	result := &EncodeOptions{}
	if opts != nil {
		*result = *opts
	}
	if result.WarningHandler == nil {
		result.WarningHandler = core.LogWarnings
	}
	return result
}
