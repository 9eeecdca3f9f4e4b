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

// Package aggregate summarizes frames: per-group aggregations and value counts.
package aggregate

import (
	"context"
	"fmt"

	"github.com/aaronlmathis/gojanitor/core"
	"github.com/aaronlmathis/gojanitor/frame"
)

// Aggregator folds the rows of one group into a single value.
type Aggregator interface {
	// Add processes a record for aggregation.
	Add(ctx context.Context, record core.Record) error
	// Result returns the aggregated value.
	Result() (interface{}, error)
	// Reset clears the aggregator state for reuse.
	Reset()
	// Clone returns an empty aggregator with the same configuration.
	Clone() Aggregator
}

// CountAggregator counts rows.
type CountAggregator struct {
	count int64
}

func (c *CountAggregator) Add(ctx context.Context, record core.Record) error {
	c.count++
	return nil
}

func (c *CountAggregator) Result() (interface{}, error) { return c.count, nil }

func (c *CountAggregator) Reset() { c.count = 0 }

func (c *CountAggregator) Clone() Aggregator { return &CountAggregator{} }

// SumAggregator sums the numeric values of a column. Nulls and non-numeric values are skipped.
type SumAggregator struct {
	Column string
	sum    float64
}

func (s *SumAggregator) Add(ctx context.Context, record core.Record) error {
	if num, ok := toFloat64(record[s.Column]); ok {
		s.sum += num
	}
	return nil
}

func (s *SumAggregator) Result() (interface{}, error) { return s.sum, nil }

func (s *SumAggregator) Reset() { s.sum = 0 }

func (s *SumAggregator) Clone() Aggregator { return &SumAggregator{Column: s.Column} }

// AvgAggregator averages the numeric values of a column. A group without
// numeric values averages to null.
type AvgAggregator struct {
	Column string
	sum    float64
	count  int
}

func (a *AvgAggregator) Add(ctx context.Context, record core.Record) error {
	if num, ok := toFloat64(record[a.Column]); ok {
		a.sum += num
		a.count++
	}
	return nil
}

func (a *AvgAggregator) Result() (interface{}, error) {
	if a.count == 0 {
		return nil, nil
	}
	return a.sum / float64(a.count), nil
}

func (a *AvgAggregator) Reset() {
	a.sum = 0
	a.count = 0
}

func (a *AvgAggregator) Clone() Aggregator { return &AvgAggregator{Column: a.Column} }

// MinAggregator keeps the smallest non-null value of a column.
type MinAggregator struct {
	Column string
	min    interface{}
}

func (m *MinAggregator) Add(ctx context.Context, record core.Record) error {
	v := record[m.Column]
	if frame.IsNull(v) {
		return nil
	}
	if m.min == nil {
		m.min = v
		return nil
	}
	c, err := frame.Compare(v, m.min)
	if err != nil {
		return fmt.Errorf("min of %s: %w", m.Column, err)
	}
	if c < 0 {
		m.min = v
	}
	return nil
}

func (m *MinAggregator) Result() (interface{}, error) { return m.min, nil }

func (m *MinAggregator) Reset() { m.min = nil }

func (m *MinAggregator) Clone() Aggregator { return &MinAggregator{Column: m.Column} }

// MaxAggregator keeps the largest non-null value of a column.
type MaxAggregator struct {
	Column string
	max    interface{}
}

func (m *MaxAggregator) Add(ctx context.Context, record core.Record) error {
	v := record[m.Column]
	if frame.IsNull(v) {
		return nil
	}
	if m.max == nil {
		m.max = v
		return nil
	}
	c, err := frame.Compare(v, m.max)
	if err != nil {
		return fmt.Errorf("max of %s: %w", m.Column, err)
	}
	if c > 0 {
		m.max = v
	}
	return nil
}

func (m *MaxAggregator) Result() (interface{}, error) { return m.max, nil }

func (m *MaxAggregator) Reset() { m.max = nil }

func (m *MaxAggregator) Clone() Aggregator { return &MaxAggregator{Column: m.Column} }

func toFloat64(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, v == v
	}
	return 0, false
}
