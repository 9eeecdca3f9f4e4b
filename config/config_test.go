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

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/aaronlmathis/gojanitor/core"
	"github.com/aaronlmathis/gojanitor/frame"
	"github.com/aaronlmathis/gojanitor/readers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ordersCSV = `order_identifier,garment_size,garment_colour
1,M,red
2,S,blue
3,,red
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParse(t *testing.T) {
	job, err := Parse([]byte(`
name: orders
input:
  type: CSV
  path: orders.csv
  delimiter: ";"
encode:
  specs:
    size: [[S, M, L], null]
    colour: {order: appearance}
select: [size, colour]
limit_column_characters:
  length: 3
output:
  type: s3
  bucket: b
  key: out/orders.parquet
`))
	require.NoError(t, err)

	assert.Equal(t, "csv", job.Input.Type)
	assert.Equal(t, ";", job.Input.Delimiter)
	assert.Equal(t, "_", job.LimitColumnCharacters.Separator)
	assert.Equal(t, "parquet", job.Output.Format)
	assert.Equal(t, []string{"size", "colour"}, job.Select)
	require.Contains(t, job.Encode.Specs, "size")
	assert.Len(t, job.Transformers(), 3)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		kind error
	}{
		{"no input", "name: x", core.ErrMalformedArguments},
		{"unknown input", "input: {type: xml, path: a}", core.ErrInvalidValue},
		{"missing path", "input: {type: csv}", core.ErrMalformedArguments},
		{"glob without pattern", "input: {type: csv_glob}", core.ErrMalformedArguments},
		{"long delimiter", "input: {type: csv, path: a, delimiter: ';;'}", core.ErrInvalidValue},
		{"columns and specs", "input: {type: csv, path: a}\nencode: {columns: a, specs: {a: [null, sort]}}", core.ErrMalformedArguments},
		{"bad order", "input: {type: csv, path: a}\nencode: {specs: {a: [null, random]}}", core.ErrInvalidValue},
		{"bad pair", "input: {type: csv, path: a}\nencode: {specs: {a: [[x], sort, extra]}}", core.ErrInvalidValue},
		{"bad column names", "input: {type: csv, path: a}\nencode: {columns: {a: b}}", core.ErrWrongType},
		{"bad strategy", "input: {type: csv, path: a}\nerror_strategy: sometimes", core.ErrInvalidValue},
		{"bad output", "input: {type: csv, path: a}\noutput: {type: ftp}", core.ErrInvalidValue},
		{"bad format", "input: {type: csv, path: a}\noutput: {type: file, path: a, format: xlsx}", core.ErrInvalidValue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.kind), "got %v", err)
		})
	}

	_, err := Parse([]byte("input: [unterminated"))
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestJob_RunToParquet(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, dir, "orders.csv", ordersCSV)
	output := filepath.Join(dir, "out", "orders.parquet")
	jobFile := writeFile(t, dir, "job.yaml", `
name: orders
input:
  type: csv
  path: `+input+`
  null_values: [""]
encode:
  specs:
    garment_size: [[S, M, L], null]
    garment_colour: {order: appearance}
limit_column_characters:
  length: 7
output:
  type: file
  path: `+output+`
`)

	job, err := Load(jobFile)
	require.NoError(t, err)
	p, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"order_i", "garment", "garment_1"}, p.Frame().Names())

	f, err := readers.ReadParquetFrame(context.Background(), output)
	require.NoError(t, err)
	assert.Equal(t, 3, f.Len())

	size, ok := f.Column("garment")
	require.True(t, ok)
	require.True(t, size.IsCategorical())
	assert.Equal(t, &frame.CategoricalType{Categories: []interface{}{"S", "M", "L"}, Ordered: true}, size.Categorical())
	assert.Equal(t, []interface{}{"M", "S", nil}, size.Values())

	colour, _ := f.Column("garment_1")
	assert.Equal(t, []interface{}{"red", "blue"}, colour.Categorical().Categories)
}

func TestJob_Pipeline_CSVGlobToCSV(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.csv", "k,v\nx,1\n")
	writeFile(t, dir, "b.csv", "k,v\ny,2\nx,3\n")
	output := filepath.Join(dir, "joined.out")

	job, err := Parse([]byte(`
input:
  type: csv_glob
  pattern: ` + filepath.Join(dir, "*.csv") + `
encode:
  columns: [k]
rename: {v: value}
output:
  type: file
  path: ` + output + `
`))
	require.NoError(t, err)
	assert.Equal(t, "csv", job.Output.Format)

	p, err := job.Pipeline(context.Background())
	require.NoError(t, err)
	require.NoError(t, p.Execute(context.Background()))

	k, _ := p.Frame().Column("k")
	assert.Equal(t, []interface{}{"x", "y"}, k.Categorical().Categories)
	assert.False(t, k.Categorical().Ordered)

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, "k,value\nx,1\ny,2\nx,3\n", string(data))
}

func TestJob_EncodeFailureStopsRun(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, dir, "orders.csv", ordersCSV)
	job, err := Parse([]byte("input: {type: csv, path: " + input + "}\nencode: {columns: [missing]}"))
	require.NoError(t, err)

	_, err = job.Run(context.Background())
	assert.True(t, errors.Is(err, core.ErrMissingColumn))
}

func TestMarshal(t *testing.T) {
	job := &Job{Name: "n", Input: Input{Type: "json", Path: "in.jsonl"}, Drop: []string{"a"}}
	data, err := Marshal(job)
	require.NoError(t, err)
	back, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, job, back)
}
