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

package readers

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/apache/arrow/go/v12/arrow"
	"github.com/apache/arrow/go/v12/arrow/array"
	"github.com/apache/arrow/go/v12/arrow/memory"
	"github.com/apache/arrow/go/v12/parquet/file"
	"github.com/apache/arrow/go/v12/parquet/pqarrow"

	"github.com/aaronlmathis/gojanitor/core"
	"github.com/aaronlmathis/gojanitor/frame"
)

// ParquetReaderError provides structured error information for parquet reader operations
type ParquetReaderError struct {
	Op  string // Operation that failed (e.g., "read", "load_batch", "open_file", "schema")
	Err error  // Underlying error
}

func (e *ParquetReaderError) Error() string {
	return fmt.Sprintf("parquet reader %s: %v", e.Op, e.Err)
}

func (e *ParquetReaderError) Unwrap() error {
	return e.Err
}

// ParquetReader implements DataSource for Parquet files.
// Supports optional column projection and safe resource management.
type ParquetReader struct {
	fileHandle      *os.File
	reader          *file.Reader
	arrowReader     *pqarrow.FileReader
	recordReader    pqarrow.RecordReader
	currentBatch    arrow.Record
	currentBatchIdx int
	schema          *arrow.Schema
	columns         []string
	stats           ReaderStats
	opts            *ParquetReaderOptions
}

// ReaderStats holds statistics about the Parquet reader's performance
type ReaderStats struct {
	RecordsRead     int64
	BatchesRead     int64
	BytesRead       int64
	ReadDuration    time.Duration
	LastReadTime    time.Time
	NullValueCounts map[string]int64
}

// ParquetReaderOptions configures the Parquet reader
type ParquetReaderOptions struct {
	BatchSize    int64    // Rows per batch
	Columns      []string // Optional column projection
	ParallelRead bool     // Decode columns in parallel
	MemoryLimit  int64    // Estimated bytes read before the reader gives up
}

// ReaderOption represents a configuration function
type ReaderOption func(*ParquetReaderOptions)

func WithBatchSize(size int64) ReaderOption {
	return func(opts *ParquetReaderOptions) {
		opts.BatchSize = size
	}
}

func WithColumnProjection(columns ...string) ReaderOption {
	return func(opts *ParquetReaderOptions) {
		opts.Columns = make([]string, len(columns))
		copy(opts.Columns, columns)
	}
}

func WithParallelRead(parallel bool) ReaderOption {
	return func(opts *ParquetReaderOptions) {
		opts.ParallelRead = parallel
	}
}

func WithMemoryLimit(limit int64) ReaderOption {
	return func(opts *ParquetReaderOptions) {
		opts.MemoryLimit = limit
	}
}

func (opts *ParquetReaderOptions) withDefaults() *ParquetReaderOptions {
	result := &ParquetReaderOptions{}
	if opts != nil {
		*result = *opts
	}
	if result.BatchSize <= 0 {
		result.BatchSize = 1000
	}
	if result.MemoryLimit <= 0 {
		result.MemoryLimit = 1 << 30
	}
	return result
}

// NewParquetReader opens a Parquet file and prepares an Arrow RecordReader
func NewParquetReader(filename string, options ...ReaderOption) (*ParquetReader, error) {
	opts := &ParquetReaderOptions{}
	for _, option := range options {
		option(opts)
	}
	return createParquetReader(filename, opts.withDefaults())
}

func createParquetReader(filename string, opts *ParquetReaderOptions) (*ParquetReader, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, &ParquetReaderError{Op: "open_file", Err: err}
	}

	parquetReader, err := file.NewParquetReader(f)
	if err != nil {
		f.Close()
		return nil, &ParquetReaderError{Op: "create_reader", Err: err}
	}

	props := pqarrow.ArrowReadProperties{BatchSize: opts.BatchSize, Parallel: opts.ParallelRead}
	arrowReader, err := pqarrow.NewFileReader(parquetReader, props, memory.NewGoAllocator())
	if err != nil {
		parquetReader.Close()
		return nil, &ParquetReaderError{Op: "create_arrow_reader", Err: err}
	}

	schema, err := arrowReader.Schema()
	if err != nil {
		parquetReader.Close()
		return nil, &ParquetReaderError{Op: "get_schema", Err: err}
	}

	var colIndices []int
	for _, name := range opts.Columns {
		indices := schema.FieldIndices(name)
		if len(indices) == 0 {
			parquetReader.Close()
			return nil, &ParquetReaderError{Op: "column_projection",
				Err: fmt.Errorf("column %q not found in schema: %w", name, core.ErrMissingColumn)}
		}
		colIndices = append(colIndices, indices[0])
	}

	recordReader, err := arrowReader.GetRecordReader(context.Background(), colIndices, nil)
	if err != nil {
		parquetReader.Close()
		return nil, &ParquetReaderError{Op: "create_record_reader", Err: err}
	}

	columns := make([]string, 0, len(recordReader.Schema().Fields()))
	for _, field := range recordReader.Schema().Fields() {
		columns = append(columns, field.Name)
	}

	return &ParquetReader{
		fileHandle:   f,
		reader:       parquetReader,
		arrowReader:  arrowReader,
		recordReader: recordReader,
		schema:       schema,
		columns:      columns,
		stats:        ReaderStats{NullValueCounts: make(map[string]int64)},
		opts:         opts,
	}, nil
}

// Read reads the next record from the Parquet file, returning io.EOF at the end.
// Dictionary-encoded columns yield their dictionary values.
func (p *ParquetReader) Read(ctx context.Context) (core.Record, error) {
	startTime := time.Now()
	defer func() {
		p.stats.ReadDuration += time.Since(startTime)
		p.stats.LastReadTime = time.Now()
	}()

	select {
	case <-ctx.Done():
		return nil, &ParquetReaderError{Op: "read", Err: ctx.Err()}
	default:
	}

	if p.currentBatch == nil || p.currentBatchIdx >= int(p.currentBatch.NumRows()) {
		if err := p.loadNextBatch(); err != nil {
			if err == io.EOF {
				return nil, io.EOF
			}
			return nil, &ParquetReaderError{Op: "load_batch", Err: err}
		}
	}

	result, err := p.extractRecordFromBatch(p.currentBatch, p.currentBatchIdx)
	if err != nil {
		return nil, &ParquetReaderError{Op: "read", Err: err}
	}
	p.currentBatchIdx++
	p.stats.RecordsRead++
	return result, nil
}

// Columns returns the (projected) column names in file order.
func (p *ParquetReader) Columns() []string {
	out := make([]string, len(p.columns))
	copy(out, p.columns)
	return out
}

// Close releases resources and closes the underlying file
func (p *ParquetReader) Close() error {
	if p.currentBatch != nil {
		p.currentBatch.Release()
		p.currentBatch = nil
	}
	if p.recordReader != nil {
		p.recordReader.Release()
		p.recordReader = nil
	}
	if p.reader != nil {
		err := p.reader.Close()
		p.reader = nil
		p.fileHandle = nil
		return err
	}
	return nil
}

// Schema returns the Arrow schema of the Parquet file
func (p *ParquetReader) Schema() *arrow.Schema {
	return p.schema
}

// Stats returns statistics about the Parquet reader's performance.
func (p *ParquetReader) Stats() ReaderStats {
	return p.stats
}

func (p *ParquetReader) loadNextBatch() error {
	if p.stats.BytesRead >= p.opts.MemoryLimit {
		return fmt.Errorf("memory limit exceeded: %d bytes >= %d limit", p.stats.BytesRead, p.opts.MemoryLimit)
	}

	if p.currentBatch != nil {
		p.currentBatch.Release()
		p.currentBatch = nil
	}

	rec, err := p.recordReader.Read()
	if err != nil {
		return err
	}
	if rec == nil || rec.NumRows() == 0 {
		return io.EOF
	}
	rec.Retain()

	p.currentBatch = rec
	p.currentBatchIdx = 0
	p.stats.BatchesRead++
	p.stats.BytesRead += estimateBatchBytes(rec)
	return nil
}

func estimateBatchBytes(rec arrow.Record) int64 {
	var estimatedBytes int64
	for i := 0; i < int(rec.NumCols()); i++ {
		switch rec.Column(i).DataType().ID() {
		case arrow.BOOL, arrow.INT8, arrow.UINT8:
			estimatedBytes += rec.NumRows()
		case arrow.INT16, arrow.UINT16:
			estimatedBytes += rec.NumRows() * 2
		case arrow.INT32, arrow.UINT32, arrow.FLOAT32, arrow.DICTIONARY:
			estimatedBytes += rec.NumRows() * 4
		case arrow.STRING, arrow.BINARY:
			estimatedBytes += rec.NumRows() * 32
		default:
			estimatedBytes += rec.NumRows() * 8
		}
	}
	return estimatedBytes
}

func (p *ParquetReader) extractRecordFromBatch(record arrow.Record, pos int) (core.Record, error) {
	res := make(core.Record, record.NumCols())
	sch := record.Schema()
	for i := 0; i < int(record.NumCols()); i++ {
		name := sch.Field(i).Name
		v, err := frame.ArrowValue(record.Column(i), pos)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", name, err)
		}
		if v == nil {
			p.stats.NullValueCounts[name]++
		}
		res[name] = v
	}
	return res, nil
}

// ReadParquetFrame reads a whole Parquet file into a frame. Dictionary columns
// and columns described by categorical schema metadata come back categorical,
// with their ordered flag and full category list.
func ReadParquetFrame(ctx context.Context, filename string, options ...ReaderOption) (*frame.Frame, error) {
	p, err := NewParquetReader(filename, options...)
	if err != nil {
		return nil, err
	}
	defer p.Close()

	var batches []arrow.Record
	defer func() {
		for _, b := range batches {
			b.Release()
		}
	}()
	for {
		if err := ctx.Err(); err != nil {
			return nil, &ParquetReaderError{Op: "read", Err: err}
		}
		rec, err := p.recordReader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &ParquetReaderError{Op: "load_batch", Err: err}
		}
		rec.Retain()
		batches = append(batches, rec)
	}

	tbl := array.NewTableFromRecords(p.recordReader.Schema(), batches)
	defer tbl.Release()

	f, err := frame.FromArrowTable(tbl)
	if err != nil {
		return nil, &ParquetReaderError{Op: "convert", Err: err}
	}
	if len(p.opts.Columns) > 0 {
		// positions in the file metadata refer to the unprojected schema
		return f, nil
	}
	f, err = frame.RestoreCategoricals(f, p.schema.Metadata())
	if err != nil {
		return nil, &ParquetReaderError{Op: "convert", Err: err}
	}
	return f, nil
}
