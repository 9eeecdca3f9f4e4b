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

// Package writers provides core.DataSink implementations for CSV, JSON lines,
// Parquet and PostgreSQL. Sinks that also implement frame.Sink receive whole
// frames from frame.WriteTo and keep categorical column types.
package writers

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/apache/arrow/go/v12/arrow"
	"github.com/apache/arrow/go/v12/arrow/memory"
	"github.com/apache/arrow/go/v12/parquet"
	"github.com/apache/arrow/go/v12/parquet/compress"
	"github.com/apache/arrow/go/v12/parquet/pqarrow"

	"github.com/aaronlmathis/gojanitor/core"
	"github.com/aaronlmathis/gojanitor/frame"
)

// ParquetWriterError wraps Parquet-specific write errors with context about the operation.
type ParquetWriterError struct {
	Op  string // Operation that failed (e.g., "open_file", "schema", "write_batch")
	Err error  // Underlying error
}

// Error returns the error string for ParquetWriterError.
func (e *ParquetWriterError) Error() string {
	return fmt.Sprintf("parquet writer %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for ParquetWriterError.
func (e *ParquetWriterError) Unwrap() error {
	return e.Err
}

// ParquetWriterOptions configures the Parquet writer.
type ParquetWriterOptions struct {
	BatchSize      int64                // Number of records to buffer before writing
	Compression    compress.Compression // Compression algorithm
	FieldOrder     []string             // Explicit field ordering for record writes
	RowGroupSize   int64                // Maximum rows per row group
	Metadata       map[string]string    // Extra file metadata
	ValidateSchema bool                 // Reject records with fields outside the schema
}

// WriterStats holds statistics about the Parquet writer's performance.
type WriterStats struct {
	RecordsWritten  int64
	BatchesWritten  int64
	FlushDuration   time.Duration
	LastFlushTime   time.Time
	ErrorCount      int64
	NullValueCounts map[string]int64
}

// WriterOption represents a configuration function for ParquetWriterOptions.
type WriterOption func(*ParquetWriterOptions)

// WithBatchSize sets the number of records to buffer before writing a batch.
func WithBatchSize(size int64) WriterOption {
	return func(opts *ParquetWriterOptions) {
		opts.BatchSize = size
	}
}

// WithCompression sets the Parquet compression algorithm.
func WithCompression(compression compress.Compression) WriterOption {
	return func(opts *ParquetWriterOptions) {
		opts.Compression = compression
	}
}

// WithFieldOrder sets the column order used when writing records.
func WithFieldOrder(fields []string) WriterOption {
	return func(opts *ParquetWriterOptions) {
		opts.FieldOrder = append([]string(nil), fields...)
	}
}

// WithSchemaValidation makes record writes fail on fields outside the schema.
func WithSchemaValidation(validate bool) WriterOption {
	return func(opts *ParquetWriterOptions) {
		opts.ValidateSchema = validate
	}
}

// WithRowGroupSize sets the maximum row group length.
func WithRowGroupSize(size int64) WriterOption {
	return func(opts *ParquetWriterOptions) {
		opts.RowGroupSize = size
	}
}

// WithMetadata adds key/value pairs to the file metadata.
func WithMetadata(metadata map[string]string) WriterOption {
	return func(opts *ParquetWriterOptions) {
		if opts.Metadata == nil {
			opts.Metadata = make(map[string]string)
		}
		for k, v := range metadata {
			opts.Metadata[k] = v
		}
	}
}

func (opts *ParquetWriterOptions) withDefaults() *ParquetWriterOptions {
	result := &ParquetWriterOptions{}
	if opts != nil {
		*result = *opts
	}
	if result.BatchSize <= 0 {
		result.BatchSize = 1000
	}
	if result.RowGroupSize <= 0 {
		result.RowGroupSize = 10000
	}
	if result.Compression == 0 {
		result.Compression = compress.Codecs.Snappy
	}
	if result.Metadata == nil {
		result.Metadata = make(map[string]string)
	}
	return result
}

// ParquetWriter writes records or frames to a Parquet file. The Arrow schema
// is fixed by the first batch or frame and stored in the file, so dictionary
// columns and their ordered flag survive a round trip.
type ParquetWriter struct {
	mu         sync.Mutex
	file       *os.File
	writer     *pqarrow.FileWriter
	schema     *arrow.Schema
	fieldOrder []string
	buffer     []core.Record
	allocator  memory.Allocator
	opts       *ParquetWriterOptions
	stats      WriterStats
	closed     bool
	errorState bool
}

// NewParquetWriter creates the file (and its parent directories) and returns
// a writer for it.
func NewParquetWriter(filename string, options ...WriterOption) (*ParquetWriter, error) {
	opts := &ParquetWriterOptions{}
	for _, option := range options {
		option(opts)
	}
	opts = opts.withDefaults()

	if dir := filepath.Dir(filename); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, &ParquetWriterError{Op: "create_directory", Err: err}
		}
	}
	file, err := os.Create(filename)
	if err != nil {
		return nil, &ParquetWriterError{Op: "open_file", Err: err}
	}

	return &ParquetWriter{
		file:       file,
		fieldOrder: opts.FieldOrder,
		buffer:     make([]core.Record, 0, opts.BatchSize),
		allocator:  memory.NewGoAllocator(),
		opts:       opts,
		stats:      WriterStats{NullValueCounts: make(map[string]int64)},
	}, nil
}

// Stats returns the current statistics of the Parquet writer.
func (p *ParquetWriter) Stats() WriterStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := p.stats
	out.NullValueCounts = make(map[string]int64, len(p.stats.NullValueCounts))
	for k, v := range p.stats.NullValueCounts {
		out.NullValueCounts[k] = v
	}
	return out
}

// Write buffers a record and writes a batch when the buffer is full.
func (p *ParquetWriter) Write(ctx context.Context, record core.Record) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.checkWritable(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return &ParquetWriterError{Op: "write", Err: err}
	}

	if p.fieldOrder == nil {
		for k := range record {
			p.fieldOrder = append(p.fieldOrder, k)
		}
		sort.Strings(p.fieldOrder)
	}
	if p.opts.ValidateSchema {
		if err := p.validateRecord(record); err != nil {
			p.stats.ErrorCount++
			return &ParquetWriterError{Op: "validate", Err: err}
		}
	}

	for k, v := range record {
		if frame.IsNull(v) {
			p.stats.NullValueCounts[k]++
		}
	}
	p.buffer = append(p.buffer, record)
	p.stats.RecordsWritten++

	if int64(len(p.buffer)) >= p.opts.BatchSize {
		return p.flushLocked()
	}
	return nil
}

// WriteFrame writes a whole frame. Pending records are flushed first; the
// frame must match the schema when one is already fixed.
func (p *ParquetWriter) WriteFrame(ctx context.Context, f *frame.Frame) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.checkWritable(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return &ParquetWriterError{Op: "write_frame", Err: err}
	}
	if err := p.flushLocked(); err != nil {
		return err
	}
	if p.fieldOrder == nil {
		p.fieldOrder = f.Names()
	}
	for _, c := range f.Columns() {
		if n := c.NullCount(); n > 0 {
			p.stats.NullValueCounts[c.Name()] += int64(n)
		}
	}
	if err := p.writeFrameLocked(f); err != nil {
		return err
	}
	p.stats.RecordsWritten += int64(f.Len())
	return nil
}

// Flush writes any buffered records.
func (p *ParquetWriter) Flush() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	return p.flushLocked()
}

// Close flushes buffered records and finalizes the file. A file that never
// received data is left empty.
func (p *ParquetWriter) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true

	if !p.errorState {
		if err := p.flushLocked(); err != nil {
			p.file.Close()
			return err
		}
	}
	if p.writer == nil {
		return p.file.Close()
	}
	// pqarrow closes the underlying file.
	if err := p.writer.Close(); err != nil {
		return &ParquetWriterError{Op: "close_writer", Err: err}
	}
	p.writer = nil
	return nil
}

func (p *ParquetWriter) checkWritable() error {
	if p.closed {
		return &ParquetWriterError{Op: "write", Err: fmt.Errorf("parquet writer is closed")}
	}
	if p.errorState {
		return &ParquetWriterError{Op: "write", Err: fmt.Errorf("writer is in error state")}
	}
	return nil
}

func (p *ParquetWriter) validateRecord(record core.Record) error {
	allowed := make(map[string]bool, len(p.fieldOrder))
	for _, name := range p.fieldOrder {
		allowed[name] = true
	}
	for k := range record {
		if !allowed[k] {
			return fmt.Errorf("field %q is not in the schema %v", k, p.fieldOrder)
		}
	}
	return nil
}

func (p *ParquetWriter) flushLocked() error {
	if len(p.buffer) == 0 {
		return nil
	}
	f := frame.FromRecords(p.buffer, p.fieldOrder...)
	if err := p.writeFrameLocked(f); err != nil {
		return err
	}
	p.buffer = p.buffer[:0]
	return nil
}

func (p *ParquetWriter) writeFrameLocked(f *frame.Frame) error {
	start := time.Now()
	if p.writer == nil {
		if err := p.openWriter(f.ArrowSchema()); err != nil {
			p.errorState = true
			return err
		}
	}

	rec, err := f.ToArrowWithSchema(p.allocator, p.schema)
	if err != nil {
		p.stats.ErrorCount++
		return &ParquetWriterError{Op: "convert", Err: err}
	}
	defer rec.Release()

	if err := p.writer.Write(rec); err != nil {
		p.errorState = true
		p.stats.ErrorCount++
		return &ParquetWriterError{Op: "write_batch", Err: err}
	}
	p.stats.BatchesWritten++
	p.stats.FlushDuration += time.Since(start)
	p.stats.LastFlushTime = time.Now()
	return nil
}

// openWriter fixes the schema, merging user metadata into the schema metadata.
func (p *ParquetWriter) openWriter(schema *arrow.Schema) error {
	keys := append([]string(nil), schema.Metadata().Keys()...)
	values := append([]string(nil), schema.Metadata().Values()...)
	for k, v := range p.opts.Metadata {
		keys = append(keys, k)
		values = append(values, v)
	}
	md := arrow.NewMetadata(keys, values)
	p.schema = arrow.NewSchema(schema.Fields(), &md)

	props := parquet.NewWriterProperties(
		parquet.WithCompression(p.opts.Compression),
		parquet.WithMaxRowGroupLength(p.opts.RowGroupSize),
		parquet.WithAllocator(p.allocator),
	)
	arrowProps := pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema())

	writer, err := pqarrow.NewFileWriter(p.schema, p.file, props, arrowProps)
	if err != nil {
		return &ParquetWriterError{Op: "create_writer", Err: err}
	}
	p.writer = writer
	return nil
}
