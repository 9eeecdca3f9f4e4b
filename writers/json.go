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

package writers

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/aaronlmathis/gojanitor/core"
	"github.com/aaronlmathis/gojanitor/frame"
)

// JSONWriterError wraps JSON lines write errors with context.
type JSONWriterError struct {
	Op  string
	Err error
}

func (e *JSONWriterError) Error() string {
	return fmt.Sprintf("json writer %s: %v", e.Op, e.Err)
}

func (e *JSONWriterError) Unwrap() error {
	return e.Err
}

// JSONWriterStats holds JSON write statistics.
type JSONWriterStats struct {
	RecordsWritten  int64
	FlushCount      int64
	FlushDuration   time.Duration
	LastFlushTime   time.Time
	NullValueCounts map[string]int64
}

// JSONWriterOptions configures JSON lines output.
type JSONWriterOptions struct {
	BatchSize    int  // Records buffered before writing; 0 writes on Flush only
	FlushOnWrite bool // Write every record immediately
}

// WriterOptionJSON is a functional option for JSONWriter.
type WriterOptionJSON func(*JSONWriterOptions)

func WithJSONBatchSize(size int) WriterOptionJSON {
	return func(opts *JSONWriterOptions) {
		opts.BatchSize = size
	}
}

func WithFlushOnWrite(flush bool) WriterOptionJSON {
	return func(opts *JSONWriterOptions) {
		opts.FlushOnWrite = flush
	}
}

// JSONWriter implements core.DataSink for JSON lines output.
type JSONWriter struct {
	mu     sync.Mutex
	writer *bufio.Writer
	closer io.Closer
	opts   JSONWriterOptions
	buf    []core.Record
	stats  JSONWriterStats
}

// NewJSONWriter creates a new JSON lines writer.
func NewJSONWriter(w io.WriteCloser, options ...WriterOptionJSON) *JSONWriter {
	opts := JSONWriterOptions{BatchSize: 100}
	for _, opt := range options {
		opt(&opts)
	}
	return &JSONWriter{
		writer: bufio.NewWriter(w),
		closer: w,
		opts:   opts,
		stats:  JSONWriterStats{NullValueCounts: make(map[string]int64)},
	}
}

// Write buffers a record and writes the buffer when it is full.
func (j *JSONWriter) Write(ctx context.Context, record core.Record) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return &JSONWriterError{Op: "write", Err: err}
	}
	for k, v := range record {
		if frame.IsNull(v) {
			j.stats.NullValueCounts[k]++
		}
	}
	j.buf = append(j.buf, record)

	if j.opts.FlushOnWrite || (j.opts.BatchSize > 0 && len(j.buf) >= j.opts.BatchSize) {
		return j.flushLocked()
	}
	return nil
}

// Flush writes every buffered record.
func (j *JSONWriter) Flush() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.flushLocked()
}

func (j *JSONWriter) flushLocked() error {
	start := time.Now()
	for _, record := range j.buf {
		data, err := json.Marshal(record)
		if err != nil {
			return &JSONWriterError{Op: "marshal", Err: err}
		}
		data = append(data, '\n')
		if _, err := j.writer.Write(data); err != nil {
			return &JSONWriterError{Op: "write_line", Err: err}
		}
		j.stats.RecordsWritten++
	}
	j.buf = j.buf[:0]
	if err := j.writer.Flush(); err != nil {
		return &JSONWriterError{Op: "flush", Err: err}
	}
	j.stats.FlushCount++
	j.stats.LastFlushTime = time.Now()
	j.stats.FlushDuration += time.Since(start)
	return nil
}

// Close flushes and closes the underlying writer.
func (j *JSONWriter) Close() error {
	if err := j.Flush(); err != nil {
		return err
	}
	if j.closer != nil {
		return j.closer.Close()
	}
	return nil
}

// Stats returns a copy of the write statistics.
func (j *JSONWriter) Stats() JSONWriterStats {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := j.stats
	out.NullValueCounts = make(map[string]int64, len(j.stats.NullValueCounts))
	for k, v := range j.stats.NullValueCounts {
		out.NullValueCounts[k] = v
	}
	return out
}
