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
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aaronlmathis/gojanitor/core"
)

// JSONReaderError wraps structured error information for the JSON lines reader.
type JSONReaderError struct {
	Op   string
	Line int64
	Err  error
}

func (e *JSONReaderError) Error() string {
	return fmt.Sprintf("json reader %s (line %d): %v", e.Op, e.Line, e.Err)
}

func (e *JSONReaderError) Unwrap() error {
	return e.Err
}

// JSONReaderStats holds statistics about the JSON reader.
type JSONReaderStats struct {
	RecordsRead  int64
	LinesSkipped int64
	ReadDuration time.Duration
}

// JSONReaderOptions configures the JSON lines reader.
type JSONReaderOptions struct {
	// MaxLineSize bounds a single line, in bytes.
	MaxLineSize int
	// UseNumber keeps integral numbers as int64 instead of float64.
	UseNumber bool
}

// ReaderOptionJSON allows functional customization of JSONReader.
type ReaderOptionJSON func(*JSONReaderOptions)

func WithJSONMaxLineSize(n int) ReaderOptionJSON {
	return func(o *JSONReaderOptions) { o.MaxLineSize = n }
}

func WithJSONUseNumber(use bool) ReaderOptionJSON {
	return func(o *JSONReaderOptions) { o.UseNumber = use }
}

// JSONReader implements DataSource for JSON lines files. Blank lines are skipped.
type JSONReader struct {
	scanner *bufio.Scanner
	closer  io.Closer
	opts    JSONReaderOptions
	line    int64
	stats   JSONReaderStats
}

// NewJSONReader creates a new JSON reader for line-delimited JSON.
func NewJSONReader(r io.ReadCloser, options ...ReaderOptionJSON) *JSONReader {
	opts := JSONReaderOptions{MaxLineSize: 1024 * 1024, UseNumber: true}
	for _, opt := range options {
		opt(&opts)
	}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), opts.MaxLineSize)
	return &JSONReader{
		scanner: scanner,
		closer:  r,
		opts:    opts,
	}
}

// Read implements the DataSource interface.
func (j *JSONReader) Read(ctx context.Context) (core.Record, error) {
	start := time.Now()
	for {
		if err := ctx.Err(); err != nil {
			return nil, &JSONReaderError{Op: "read", Line: j.line, Err: err}
		}
		if !j.scanner.Scan() {
			if err := j.scanner.Err(); err != nil {
				return nil, &JSONReaderError{Op: "scan", Line: j.line, Err: err}
			}
			return nil, io.EOF
		}
		j.line++

		line := j.scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			j.stats.LinesSkipped++
			continue
		}

		record, err := decodeJSONRecord(line, j.opts.UseNumber)
		if err != nil {
			return nil, &JSONReaderError{Op: "decode", Line: j.line, Err: err}
		}
		j.stats.RecordsRead++
		j.stats.ReadDuration += time.Since(start)
		return record, nil
	}
}

// Close implements the DataSource interface.
func (j *JSONReader) Close() error {
	if j.closer != nil {
		return j.closer.Close()
	}
	return nil
}

// Stats returns JSON reader statistics.
func (j *JSONReader) Stats() JSONReaderStats {
	return j.stats
}

func decodeJSONRecord(data []byte, useNumber bool) (core.Record, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	if useNumber {
		dec.UseNumber()
	}
	var record core.Record
	if err := dec.Decode(&record); err != nil {
		return nil, err
	}
	if useNumber {
		for k, v := range record {
			record[k] = normalizeJSONNumber(v)
		}
	}
	return record, nil
}

// normalizeJSONNumber turns json.Number into int64 when integral and float64 otherwise.
func normalizeJSONNumber(v interface{}) interface{} {
	n, ok := v.(json.Number)
	if !ok {
		return v
	}
	if !strings.ContainsAny(n.String(), ".eE") {
		if i, err := n.Int64(); err == nil {
			return i
		}
	}
	if f, err := n.Float64(); err == nil {
		return f
	}
	return n.String()
}
