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

package aggregate

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/aaronlmathis/gojanitor/core"
	"github.com/aaronlmathis/gojanitor/frame"
)

type output struct {
	name       string
	aggregator Aggregator
}

// GroupBy groups the rows of a frame by one or more columns and aggregates each group.
type GroupBy struct {
	groupColumns []string
	outputs      []output
}

// NewGroupBy creates a GroupBy over the given columns.
func NewGroupBy(groupColumns ...string) *GroupBy {
	return &GroupBy{groupColumns: groupColumns}
}

// Aggregate adds a custom aggregator producing the output column.
func (g *GroupBy) Aggregate(outputColumn string, aggregator Aggregator) *GroupBy {
	g.outputs = append(g.outputs, output{name: outputColumn, aggregator: aggregator})
	return g
}

// Count adds a row count.
func (g *GroupBy) Count(outputColumn string) *GroupBy {
	return g.Aggregate(outputColumn, &CountAggregator{})
}

// Sum adds a sum of column.
func (g *GroupBy) Sum(column, outputColumn string) *GroupBy {
	return g.Aggregate(outputColumn, &SumAggregator{Column: column})
}

// Avg adds an average of column.
func (g *GroupBy) Avg(column, outputColumn string) *GroupBy {
	return g.Aggregate(outputColumn, &AvgAggregator{Column: column})
}

// Min adds the minimum of column.
func (g *GroupBy) Min(column, outputColumn string) *GroupBy {
	return g.Aggregate(outputColumn, &MinAggregator{Column: column})
}

// Max adds the maximum of column.
func (g *GroupBy) Max(column, outputColumn string) *GroupBy {
	return g.Aggregate(outputColumn, &MaxAggregator{Column: column})
}

type group struct {
	values      []interface{}
	aggregators []Aggregator
}

// Process aggregates f. The result has one row per distinct combination of
// group values, in order of first appearance, with the group columns first.
// Null is a group value of its own.
func (g *GroupBy) Process(ctx context.Context, f *frame.Frame) (*frame.Frame, error) {
	cols := make([]*frame.Column, len(g.groupColumns))
	for i, name := range g.groupColumns {
		col, ok := f.Column(name)
		if !ok {
			return nil, core.ColumnErrorf("group_by", name, core.ErrMissingColumn, "column not found")
		}
		cols[i] = col
	}

	index := make(map[string]*group)
	var order []*group
	for row := 0; row < f.Len(); row++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		values := make([]interface{}, len(cols))
		for i, col := range cols {
			values[i] = col.Value(row)
		}
		key, err := groupKey(values)
		if err != nil {
			return nil, err
		}
		grp, exists := index[key]
		if !exists {
			grp = &group{values: values, aggregators: make([]Aggregator, len(g.outputs))}
			for i, out := range g.outputs {
				grp.aggregators[i] = out.aggregator.Clone()
			}
			index[key] = grp
			order = append(order, grp)
		}
		record := f.Row(row)
		for i, agg := range grp.aggregators {
			if err := agg.Add(ctx, record); err != nil {
				return nil, fmt.Errorf("aggregation error for column %s: %w", g.outputs[i].name, err)
			}
		}
	}

	result := make([]*frame.Column, 0, len(cols)+len(g.outputs))
	for i, name := range g.groupColumns {
		values := make([]interface{}, len(order))
		for j, grp := range order {
			values[j] = grp.values[i]
		}
		result = append(result, frame.NewColumn(name, values))
	}
	for i, out := range g.outputs {
		values := make([]interface{}, len(order))
		for j, grp := range order {
			v, err := grp.aggregators[i].Result()
			if err != nil {
				return nil, fmt.Errorf("failed to get result for column %s: %w", out.name, err)
			}
			values[j] = v
		}
		result = append(result, frame.NewColumn(out.name, values))
	}
	return frame.New(result...)
}

// groupKey encodes a row's group values so that values equal under
// frame.KeyOf share a key.
func groupKey(values []interface{}) (string, error) {
	parts := make([]string, len(values))
	for i, v := range values {
		if frame.IsNull(v) {
			parts[i] = "null"
			continue
		}
		k, err := frame.KeyOf(v)
		if err != nil {
			return "", core.Errorf("group_by", core.ErrWrongType, "cannot group by %T", v)
		}
		parts[i] = fmt.Sprintf("%T:%v", k, k)
	}
	return strings.Join(parts, "\x00"), nil
}

// ValueCounts counts the non-null values of a column. The result has a
// "value" and a "count" column. A categorical column lists every category in
// category order, including categories that never occur, and the value column
// keeps the categorical type. Other columns are sorted by descending count,
// ties broken by first appearance.
func ValueCounts(ctx context.Context, f *frame.Frame, column string) (*frame.Frame, error) {
	col, ok := f.Column(column)
	if !ok {
		return nil, core.ColumnErrorf("value_counts", column, core.ErrMissingColumn, "column not found")
	}
	single := frame.MustNew(frame.NewColumn("value", col.Values()))
	counts, err := NewGroupBy("value").Count("count").Process(ctx, single)
	if err != nil {
		return nil, err
	}
	values, _ := counts.Column("value")
	tallies, _ := counts.Column("count")

	byKey := make(map[interface{}]int64)
	var distinct []interface{}
	var n []int64
	for i := 0; i < counts.Len(); i++ {
		v := values.Value(i)
		if frame.IsNull(v) {
			continue
		}
		k, _ := frame.KeyOf(v)
		byKey[k] = tallies.Value(i).(int64)
		distinct = append(distinct, v)
		n = append(n, tallies.Value(i).(int64))
	}

	if dtype := col.Categorical(); dtype != nil {
		cnt := make([]interface{}, len(dtype.Categories))
		for i, c := range dtype.Categories {
			k, _ := frame.KeyOf(c)
			cnt[i] = byKey[k]
		}
		valueCol, err := frame.NewCategoricalColumn("value", dtype.Categories, *dtype)
		if err != nil {
			return nil, err
		}
		return frame.New(valueCol, frame.NewColumn("count", cnt))
	}

	idx := make([]int, len(distinct))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return n[idx[a]] > n[idx[b]] })
	outValues := make([]interface{}, len(idx))
	outCounts := make([]interface{}, len(idx))
	for i, j := range idx {
		outValues[i] = distinct[j]
		outCounts[i] = n[j]
	}
	return frame.New(frame.NewColumn("value", outValues), frame.NewColumn("count", outCounts))
}
