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

package gojanitor

import (
	"context"

	"github.com/aaronlmathis/gojanitor/categorical"
	"github.com/aaronlmathis/gojanitor/core"
	"github.com/aaronlmathis/gojanitor/frame"
	"github.com/aaronlmathis/gojanitor/transform"
)

// Chain applies cleaning operations to a frame one after another. The first
// failing operation stops the chain; later calls are no-ops and Frame
// returns that error.
type Chain struct {
	ctx context.Context
	f   *frame.Frame
	err error
}

// From starts a chain on f.
func From(f *frame.Frame) *Chain {
	return FromContext(context.Background(), f)
}

// FromContext starts a chain on f whose operations receive ctx.
func FromContext(ctx context.Context, f *frame.Frame) *Chain {
	c := &Chain{ctx: ctx, f: f}
	if f == nil {
		c.err = core.Errorf("chain", core.ErrMalformedArguments, "frame is nil")
	}
	return c
}

// Apply runs any transformer on the current frame.
func (c *Chain) Apply(t frame.Transformer) *Chain {
	if c.err != nil {
		return c
	}
	if err := c.ctx.Err(); err != nil {
		c.err = err
		return c
	}
	c.f, c.err = t.Apply(c.ctx, c.f)
	return c
}

// EncodeCategorical converts columns to categorical types.
func (c *Chain) EncodeCategorical(options ...categorical.Option) *Chain {
	return c.Apply(categorical.NewEncoder(options...))
}

// EncodeCategoricalRaw is EncodeCategorical for loosely typed arguments, such
// as values decoded from a configuration file. See categorical.EncodeRaw.
func (c *Chain) EncodeCategoricalRaw(columnNames interface{}, specs map[string]interface{}, options ...categorical.Option) *Chain {
	return c.Apply(frame.TransformFunc(func(ctx context.Context, f *frame.Frame) (*frame.Frame, error) {
		return categorical.EncodeRaw(f, columnNames, specs, options...)
	}))
}

// SelectColumns keeps the selected columns. See transform.SelectColumns.
func (c *Chain) SelectColumns(args ...interface{}) *Chain {
	return c.Apply(transform.SelectColumns(args...))
}

// DropColumns removes the selected columns. See transform.DropColumns.
func (c *Chain) DropColumns(args ...interface{}) *Chain {
	return c.Apply(transform.DropColumns(args...))
}

// LimitColumnCharacters truncates column names. See transform.LimitColumnCharacters.
func (c *Chain) LimitColumnCharacters(length int, separator string) *Chain {
	return c.Apply(transform.LimitColumnCharacters(length, separator))
}

// Rename renames columns by mapping.
func (c *Chain) Rename(mapping map[string]string) *Chain {
	return c.Apply(transform.Rename(mapping))
}

// Where keeps the rows that pass filter.
func (c *Chain) Where(filter core.Filter) *Chain {
	return c.Apply(frame.TransformFunc(func(ctx context.Context, f *frame.Frame) (*frame.Frame, error) {
		return f.FilterRows(ctx, filter)
	}))
}

// Frame returns the current frame, or the error that stopped the chain.
func (c *Chain) Frame() (*frame.Frame, error) {
	if c.err != nil {
		return nil, c.err
	}
	return c.f, nil
}

// Err returns the error that stopped the chain, if any.
func (c *Chain) Err() error {
	return c.err
}
