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

package gojanitor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/aaronlmathis/gojanitor/categorical"
	"github.com/aaronlmathis/gojanitor/core"
	"github.com/aaronlmathis/gojanitor/filter"
	"github.com/aaronlmathis/gojanitor/frame"
	"github.com/aaronlmathis/gojanitor/transform"
	"github.com/aaronlmathis/gojanitor/validators"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ordersFrame() *frame.Frame {
	return frame.MustNew(
		frame.Of("order_identifier", 1, 2, 3, 4),
		frame.NewColumn("garment_size", []interface{}{"M", "S", nil, "M"}),
		frame.Of("garment_colour", "red", "blue", "red", "green"),
	)
}

func TestChain(t *testing.T) {
	f, err := From(ordersFrame()).
		EncodeCategorical(
			categorical.WithSpec("garment_size", categorical.Spec{Categories: []interface{}{"S", "M", "L"}}),
			categorical.WithWarningHandler(core.DiscardWarnings)).
		EncodeCategoricalRaw("garment_colour", nil, categorical.WithWarningHandler(core.DiscardWarnings)).
		SelectColumns("garment_*", "order_identifier").
		LimitColumnCharacters(7, "_").
		Rename(map[string]string{"order_i": "id"}).
		Where(filter.NotNull("garment")).
		Frame()
	require.NoError(t, err)

	assert.Equal(t, []string{"garment", "garment_1", "id"}, f.Names())
	assert.Equal(t, 3, f.Len())
	size, _ := f.Column("garment")
	require.True(t, size.IsCategorical())
	assert.True(t, size.Categorical().Ordered)
	assert.Equal(t, []interface{}{"S", "M", "L"}, size.Categorical().Categories)
	colour, _ := f.Column("garment_1")
	assert.False(t, colour.Categorical().Ordered)
}

func TestChain_StopsAtFirstError(t *testing.T) {
	calls := 0
	counting := frame.TransformFunc(func(ctx context.Context, f *frame.Frame) (*frame.Frame, error) {
		calls++
		return f, nil
	})

	c := From(ordersFrame()).
		EncodeCategorical(categorical.WithColumns("missing")).
		Apply(counting)
	_, err := c.Frame()
	assert.True(t, errors.Is(err, core.ErrMissingColumn))
	assert.Equal(t, err, c.Err())
	assert.Zero(t, calls)

	_, err = From(nil).Frame()
	assert.True(t, errors.Is(err, core.ErrMalformedArguments))
}

func TestIdempotent(t *testing.T) {
	enc := categorical.NewEncoder(categorical.WithColumns("garment_size"), categorical.WithWarningHandler(core.DiscardWarnings))
	assert.NoError(t, Idempotent(enc, ordersFrame()))
	assert.NoError(t, Idempotent(transform.LimitColumnCharacters(7, "_"), ordersFrame()))

	f := ordersFrame()
	require.NoError(t, Idempotent(transform.LimitColumnCharacters(3, "."), f))
	assert.Equal(t, []string{"order_identifier", "garment_size", "garment_colour"}, f.Names())

	growing := frame.TransformFunc(func(ctx context.Context, f *frame.Frame) (*frame.Frame, error) {
		out := f.Copy()
		err := out.SetColumn(frame.Of(fmt.Sprintf("extra_%d", f.Width()), make([]int, f.Len())...))
		return out, err
	})
	assert.Error(t, Idempotent(growing, ordersFrame()))
}

// sliceSource serves records, failing on the positions listed in fail.
type sliceSource struct {
	records []core.Record
	fail    map[int]bool
	pos     int
	closed  bool
}

func (s *sliceSource) Read(ctx context.Context) (core.Record, error) {
	if s.pos >= len(s.records) {
		return nil, io.EOF
	}
	i := s.pos
	s.pos++
	if s.fail[i] {
		return nil, fmt.Errorf("bad record %d", i)
	}
	return s.records[i], nil
}

func (s *sliceSource) Columns() []string { return []string{"size", "qty"} }

func (s *sliceSource) Close() error {
	s.closed = true
	return nil
}

type memorySink struct {
	frames  []*frame.Frame
	records []core.Record
	closed  bool
}

func (m *memorySink) Write(ctx context.Context, r core.Record) error {
	m.records = append(m.records, r)
	return nil
}

func (m *memorySink) WriteFrame(ctx context.Context, f *frame.Frame) error {
	m.frames = append(m.frames, f)
	return nil
}

func (m *memorySink) Flush() error { return nil }
func (m *memorySink) Close() error {
	m.closed = true
	return nil
}

func newSource(fail ...int) *sliceSource {
	s := &sliceSource{
		records: []core.Record{
			{"size": "M", "qty": 1},
			{"size": "S", "qty": 2},
			{"size": nil, "qty": 3},
			{"size": "L", "qty": 4},
		},
		fail: map[int]bool{},
	}
	for _, i := range fail {
		s.fail[i] = true
	}
	return s
}

func TestPipeline_Execute(t *testing.T) {
	src := newSource()
	sink := &memorySink{}
	p, err := NewPipeline().
		From(src).
		Where(filter.NotNull("size")).
		Transform(categorical.NewEncoder(categorical.WithSpec("size", categorical.Spec{Order: categorical.OrderSort}))).
		Validate(validators.NewFrameValidator(1, []string{"size"})).
		To(sink).
		Build()
	require.NoError(t, err)
	require.NoError(t, p.Execute(context.Background()))

	assert.True(t, src.closed)
	assert.True(t, sink.closed)
	require.Len(t, sink.frames, 1)
	out := sink.frames[0]
	assert.Equal(t, []string{"size", "qty"}, out.Names())
	assert.Equal(t, 3, out.Len())
	size, _ := out.Column("size")
	assert.Equal(t, []interface{}{"L", "M", "S"}, size.Categorical().Categories)
	assert.Same(t, out, p.Frame())
}

func TestPipeline_ErrorStrategies(t *testing.T) {
	ctx := context.Background()

	p, err := NewPipeline().From(newSource(1)).Build()
	require.NoError(t, err)
	assert.Error(t, p.Execute(ctx))

	p, _ = NewPipeline().From(newSource(1, 2)).WithErrorStrategy(core.SkipErrors).Build()
	require.NoError(t, p.Execute(ctx))
	assert.Equal(t, 2, p.Frame().Len())
	assert.NoError(t, p.Errors())

	p, _ = NewPipeline().From(newSource(0, 3)).WithErrorStrategy(core.CollectErrors).Build()
	require.NoError(t, p.Execute(ctx))
	assert.Equal(t, 2, p.Frame().Len())
	require.Error(t, p.Errors())
	assert.Contains(t, p.Errors().Error(), "2 errors occurred")

	stop := core.ErrorHandlerFunc(func(ctx context.Context, r core.Record, err error) error {
		return fmt.Errorf("stopped: %w", err)
	})
	p, _ = NewPipeline().From(newSource(2)).WithErrorStrategy(core.SkipErrors).WithErrorHandler(stop).Build()
	assert.ErrorContains(t, p.Execute(ctx), "stopped")
}

func TestPipeline_ValidationFailureStops(t *testing.T) {
	sink := &memorySink{}
	p, err := NewPipeline().
		From(newSource()).
		Validate(validators.NewFrameValidator(10, nil)).
		To(sink).
		Build()
	require.NoError(t, err)
	assert.Error(t, p.Execute(context.Background()))
	assert.Empty(t, sink.frames)
	assert.True(t, sink.closed)
}

func TestPipeline_Build(t *testing.T) {
	_, err := NewPipeline().Build()
	assert.True(t, errors.Is(err, core.ErrMalformedArguments))
}
