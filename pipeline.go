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
	"fmt"
	"io"
	"sync"

	"github.com/hashicorp/go-multierror"

	"github.com/aaronlmathis/gojanitor/core"
	"github.com/aaronlmathis/gojanitor/frame"
)

// Validator checks a frame without changing it.
type Validator interface {
	Validate(ctx context.Context, f *frame.Frame) error
}

// PipelineBuilder provides a fluent API for constructing pipelines.
type PipelineBuilder struct {
	pipeline *Pipeline
}

// NewPipeline creates a new PipelineBuilder.
func NewPipeline() *PipelineBuilder {
	return &PipelineBuilder{
		pipeline: &Pipeline{strategy: core.FailFast},
	}
}

// From sets the data source the frame is read from.
func (pb *PipelineBuilder) From(source core.DataSource) *PipelineBuilder {
	pb.pipeline.source = source
	return pb
}

// Where adds a row filter applied while reading.
func (pb *PipelineBuilder) Where(filter core.Filter) *PipelineBuilder {
	pb.pipeline.filters = append(pb.pipeline.filters, filter)
	return pb
}

// Transform adds a frame transformer. Transformers run in the order added.
func (pb *PipelineBuilder) Transform(t frame.Transformer) *PipelineBuilder {
	pb.pipeline.steps = append(pb.pipeline.steps, step{transform: t})
	return pb
}

// Validate adds a validator, run in order with the transformers.
func (pb *PipelineBuilder) Validate(v Validator) *PipelineBuilder {
	pb.pipeline.steps = append(pb.pipeline.steps, step{validate: v})
	return pb
}

// To sets the sink the cleaned frame is written to. Without a sink the
// pipeline only produces the frame, see Pipeline.Frame.
func (pb *PipelineBuilder) To(sink core.DataSink) *PipelineBuilder {
	pb.pipeline.sink = sink
	return pb
}

// WithErrorStrategy sets how record read errors are handled.
func (pb *PipelineBuilder) WithErrorStrategy(strategy core.ErrorStrategy) *PipelineBuilder {
	pb.pipeline.strategy = strategy
	return pb
}

// WithErrorHandler sets a handler consulted for skipped and collected read
// errors. A handler returning an error stops the pipeline.
func (pb *PipelineBuilder) WithErrorHandler(handler core.ErrorHandler) *PipelineBuilder {
	pb.pipeline.errorHandler = handler
	return pb
}

// Build validates and returns the pipeline.
func (pb *PipelineBuilder) Build() (*Pipeline, error) {
	if pb.pipeline.source == nil {
		return nil, core.Errorf("pipeline", core.ErrMalformedArguments, "pipeline requires a data source")
	}
	for i, s := range pb.pipeline.steps {
		if s.transform == nil && s.validate == nil {
			return nil, core.Errorf("pipeline", core.ErrMalformedArguments, "step %d is nil", i)
		}
	}
	return pb.pipeline, nil
}

type step struct {
	transform frame.Transformer
	validate  Validator
}

// Pipeline reads a source into a frame, runs transformers and validators over
// it, and writes the result to a sink.
type Pipeline struct {
	source       core.DataSource
	sink         core.DataSink
	filters      []core.Filter
	steps        []step
	strategy     core.ErrorStrategy
	errorHandler core.ErrorHandler

	mu     sync.Mutex
	errs   *multierror.Error
	result *frame.Frame
}

// Execute runs the pipeline. The source is closed, and the sink flushed and
// closed, whatever the outcome.
func (p *Pipeline) Execute(ctx context.Context) (err error) {
	p.mu.Lock()
	p.errs = nil
	p.result = nil
	p.mu.Unlock()

	defer func() {
		p.source.Close()
		if p.sink != nil {
			if cerr := p.sink.Close(); cerr != nil && err == nil {
				err = fmt.Errorf("close sink: %w", cerr)
			}
		}
	}()

	f, err := frame.FromSource(ctx, &pipelineSource{p: p, src: p.source})
	if err != nil {
		return err
	}

	for _, s := range p.steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if s.validate != nil {
			if err := s.validate.Validate(ctx, f); err != nil {
				return err
			}
			continue
		}
		if f, err = s.transform.Apply(ctx, f); err != nil {
			return err
		}
	}

	p.mu.Lock()
	p.result = f
	p.mu.Unlock()

	if p.sink != nil {
		if err := f.WriteTo(ctx, p.sink); err != nil {
			return fmt.Errorf("write: %w", err)
		}
	}
	return nil
}

// Frame returns the frame produced by the last successful Execute.
func (p *Pipeline) Frame() *frame.Frame {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.result
}

// Errors returns the read errors collected under CollectErrors, or nil.
func (p *Pipeline) Errors() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.errs.ErrorOrNil()
}

// handleError applies the error strategy. A nil return skips the record.
func (p *Pipeline) handleError(ctx context.Context, record core.Record, err error) error {
	switch p.strategy {
	case core.SkipErrors:
	case core.CollectErrors:
		p.mu.Lock()
		p.errs = multierror.Append(p.errs, err)
		p.mu.Unlock()
	default:
		return err
	}
	if p.errorHandler != nil {
		return p.errorHandler.HandleError(ctx, record, err)
	}
	return nil
}

// pipelineSource applies the pipeline's filters and error strategy to the
// records of the underlying source.
type pipelineSource struct {
	p   *Pipeline
	src core.DataSource
}

func (s *pipelineSource) Read(ctx context.Context) (core.Record, error) {
	for {
		record, err := s.src.Read(ctx)
		if err == io.EOF {
			return nil, io.EOF
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			if herr := s.p.handleError(ctx, record, err); herr != nil {
				return nil, herr
			}
			continue
		}
		keep, err := s.include(ctx, record)
		if err != nil {
			if herr := s.p.handleError(ctx, record, err); herr != nil {
				return nil, herr
			}
			continue
		}
		if keep {
			return record, nil
		}
	}
}

func (s *pipelineSource) include(ctx context.Context, record core.Record) (bool, error) {
	for _, filter := range s.p.filters {
		ok, err := filter.ShouldInclude(ctx, record)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func (s *pipelineSource) Columns() []string {
	if cs, ok := s.src.(core.ColumnSource); ok {
		return cs.Columns()
	}
	return nil
}

// Close is a no-op; Execute closes the underlying source.
func (s *pipelineSource) Close() error { return nil }
