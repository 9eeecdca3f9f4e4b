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

// Package config loads YAML job files that describe a cleaning run: where the
// data comes from, which columns to encode as categoricals, which column
// operations to apply and where the result goes.
//
//	name: orders
//	input:
//	  type: csv
//	  path: data/orders.csv
//	encode:
//	  specs:
//	    size: [[S, M, L], null]
//	    colour: {order: appearance}
//	limit_column_characters:
//	  length: 12
//	  separator: _
//	output:
//	  type: file
//	  path: out/orders.parquet
//	  format: parquet
package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/aaronlmathis/gojanitor"
	"github.com/aaronlmathis/gojanitor/categorical"
	"github.com/aaronlmathis/gojanitor/core"
	"github.com/aaronlmathis/gojanitor/frame"
	"github.com/aaronlmathis/gojanitor/readers"
	"github.com/aaronlmathis/gojanitor/transform"
	"github.com/aaronlmathis/gojanitor/types"
)

// Job is one cleaning run.
type Job struct {
	Name                  string            `yaml:"name,omitempty"`
	Input                 Input             `yaml:"input"`
	Encode                *Encode           `yaml:"encode,omitempty"`
	Select                []string          `yaml:"select,omitempty"`
	Drop                  []string          `yaml:"drop,omitempty"`
	Rename                map[string]string `yaml:"rename,omitempty"`
	LimitColumnCharacters *Limit            `yaml:"limit_column_characters,omitempty"`
	ErrorStrategy         string            `yaml:"error_strategy,omitempty"`
	Output                *Output           `yaml:"output,omitempty"`
}

// Input describes the data source. Type is one of csv, json, parquet,
// command or csv_glob.
type Input struct {
	Type       string   `yaml:"type"`
	Path       string   `yaml:"path,omitempty"`
	Pattern    string   `yaml:"pattern,omitempty"`
	Command    string   `yaml:"command,omitempty"`
	Delimiter  string   `yaml:"delimiter,omitempty"`
	NoHeader   bool     `yaml:"no_header,omitempty"`
	NullValues []string `yaml:"null_values,omitempty"`
}

// Encode holds the categorical encoding request. Exactly one of Columns and
// Specs is set. Columns is a name or a list of names; each Specs entry is a
// [categories, order] pair or a {categories, order} mapping.
type Encode struct {
	Columns interface{}            `yaml:"columns,omitempty"`
	Specs   map[string]interface{} `yaml:"specs,omitempty"`
}

// Limit truncates column names.
type Limit struct {
	Length    int    `yaml:"length"`
	Separator string `yaml:"separator"`
}

// Output describes the sink. Type is file, s3 or postgres.
type Output struct {
	Type        string `yaml:"type"`
	Format      string `yaml:"format,omitempty"`
	Path        string `yaml:"path,omitempty"`
	Bucket      string `yaml:"bucket,omitempty"`
	Key         string `yaml:"key,omitempty"`
	DSN         string `yaml:"dsn,omitempty"`
	Table       string `yaml:"table,omitempty"`
	CreateTable bool   `yaml:"create_table,omitempty"`
}

// Load reads and parses a job file.
func Load(path string) (*Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read job file %s: %w", path, err)
	}
	return Parse(data)
}

// Parse parses YAML job data, applies defaults and validates the result.
func Parse(data []byte) (*Job, error) {
	var job Job
	if err := yaml.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("failed to parse job YAML: %w", err)
	}
	applyDefaults(&job)
	if err := job.Validate(); err != nil {
		return nil, err
	}
	return &job, nil
}

// Marshal serializes a job to YAML.
func Marshal(job *Job) ([]byte, error) {
	return yaml.Marshal(job)
}

func applyDefaults(job *Job) {
	job.Input.Type = strings.ToLower(job.Input.Type)
	if job.LimitColumnCharacters != nil && job.LimitColumnCharacters.Separator == "" {
		job.LimitColumnCharacters.Separator = "_"
	}
	if job.Output != nil {
		job.Output.Type = strings.ToLower(job.Output.Type)
		if job.Output.Type == "postgres" && job.Output.Format == "" {
			job.Output.Format = "postgres"
		}
		if job.Output.Format == "" {
			job.Output.Format = formatFromPath(job.Output.Path + job.Output.Key)
		}
	}
}

func formatFromPath(p string) string {
	switch {
	case strings.HasSuffix(p, ".parquet"):
		return "parquet"
	case strings.HasSuffix(p, ".json"), strings.HasSuffix(p, ".jsonl"):
		return "json"
	}
	return "csv"
}

// Validate checks the parts of the job that can be checked without data.
// Encoding specs are parsed here so a bad spec fails before any input is read.
func (j *Job) Validate() error {
	switch j.Input.Type {
	case "csv", "json", "parquet":
		if j.Input.Path == "" {
			return core.Errorf("config", core.ErrMalformedArguments, "input type %s requires a path", j.Input.Type)
		}
	case "csv_glob":
		if j.Input.Pattern == "" {
			return core.Errorf("config", core.ErrMalformedArguments, "input type csv_glob requires a pattern")
		}
	case "command":
		if j.Input.Command == "" {
			return core.Errorf("config", core.ErrMalformedArguments, "input type command requires a command")
		}
	case "":
		return core.Errorf("config", core.ErrMalformedArguments, "input type is required")
	default:
		return core.Errorf("config", core.ErrInvalidValue, "unknown input type %q", j.Input.Type)
	}
	if len([]rune(j.Input.Delimiter)) > 1 {
		return core.Errorf("config", core.ErrInvalidValue, "delimiter must be a single character, got %q", j.Input.Delimiter)
	}

	if e := j.Encode; e != nil {
		if e.Columns != nil && e.Specs != nil {
			return core.Errorf("config", core.ErrMalformedArguments, "encode takes columns or specs, not both")
		}
		if e.Columns != nil {
			if _, err := categorical.ParseColumnNames(e.Columns); err != nil {
				return err
			}
		}
		if _, err := categorical.ParseSpecs(e.Specs); err != nil {
			return err
		}
	}

	if _, err := j.errorStrategy(); err != nil {
		return err
	}
	if j.Output != nil {
		if _, err := j.Output.location(); err != nil {
			return err
		}
		if _, err := types.ParseOutputFormat(j.Output.Format); err != nil {
			return err
		}
	}
	return nil
}

func (j *Job) errorStrategy() (core.ErrorStrategy, error) {
	switch j.ErrorStrategy {
	case "", "fail_fast":
		return core.FailFast, nil
	case "skip":
		return core.SkipErrors, nil
	case "collect":
		return core.CollectErrors, nil
	}
	return core.FailFast, core.Errorf("config", core.ErrInvalidValue,
		"error_strategy must be fail_fast, skip or collect, got %q", j.ErrorStrategy)
}

func (o *Output) location() (types.OutputLocation, error) {
	switch o.Type {
	case "file":
		return types.FileLocation{Path: o.Path}, nil
	case "s3":
		return types.S3Location{Bucket: o.Bucket, Key: o.Key}, nil
	case "postgres":
		return types.PostgresLocation{DSN: o.DSN, Table: o.Table, CreateTable: o.CreateTable}, nil
	}
	return nil, core.Errorf("config", core.ErrInvalidValue, "unknown output type %q", o.Type)
}

func (j *Job) csvOptions() []readers.ReaderOptionCSV {
	var opts []readers.ReaderOptionCSV
	if j.Input.Delimiter != "" {
		opts = append(opts, readers.WithCSVComma([]rune(j.Input.Delimiter)[0]))
	}
	if j.Input.NoHeader {
		opts = append(opts, readers.WithCSVHasHeaders(false))
	}
	if len(j.Input.NullValues) > 0 {
		opts = append(opts, readers.WithCSVNullValues(j.Input.NullValues...))
	}
	return opts
}

// Source opens the job's input.
func (j *Job) Source(ctx context.Context) (core.DataSource, error) {
	switch j.Input.Type {
	case "csv":
		file, err := os.Open(j.Input.Path)
		if err != nil {
			return nil, err
		}
		r, err := readers.NewCSVReader(file, j.csvOptions()...)
		if err != nil {
			file.Close()
			return nil, err
		}
		return r, nil
	case "json":
		file, err := os.Open(j.Input.Path)
		if err != nil {
			return nil, err
		}
		return readers.NewJSONReader(file), nil
	case "parquet":
		return readers.NewParquetReader(j.Input.Path)
	case "csv_glob":
		f, err := readers.ReadCSVs(ctx, j.Input.Pattern, j.csvOptions()...)
		if err != nil {
			return nil, err
		}
		return f.Source(), nil
	case "command":
		f, err := readers.ReadCommandline(ctx, j.Input.Command, j.csvOptions()...)
		if err != nil {
			return nil, err
		}
		return f.Source(), nil
	}
	return nil, core.Errorf("config", core.ErrInvalidValue, "unknown input type %q", j.Input.Type)
}

// Transformers returns the job's frame operations in the order they run:
// encode, select, drop, rename, then limit_column_characters.
func (j *Job) Transformers() []frame.Transformer {
	var steps []frame.Transformer
	if e := j.Encode; e != nil && (e.Columns != nil || e.Specs != nil) {
		columns, specs := e.Columns, e.Specs
		steps = append(steps, frame.TransformFunc(func(ctx context.Context, f *frame.Frame) (*frame.Frame, error) {
			return categorical.EncodeRaw(f, columns, specs)
		}))
	}
	if len(j.Select) > 0 {
		steps = append(steps, transform.SelectColumns(stringArgs(j.Select)...))
	}
	if len(j.Drop) > 0 {
		steps = append(steps, transform.DropColumns(stringArgs(j.Drop)...))
	}
	if len(j.Rename) > 0 {
		steps = append(steps, transform.Rename(j.Rename))
	}
	if l := j.LimitColumnCharacters; l != nil {
		steps = append(steps, transform.LimitColumnCharacters(l.Length, l.Separator))
	}
	return steps
}

func stringArgs(s []string) []interface{} {
	out := make([]interface{}, len(s))
	for i, v := range s {
		out[i] = v
	}
	return out
}

// Pipeline opens the job's input and output and assembles them into a pipeline.
func (j *Job) Pipeline(ctx context.Context) (*gojanitor.Pipeline, error) {
	strategy, err := j.errorStrategy()
	if err != nil {
		return nil, err
	}
	src, err := j.Source(ctx)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	pb := gojanitor.NewPipeline().From(src).WithErrorStrategy(strategy)
	for _, t := range j.Transformers() {
		pb.Transform(t)
	}
	if j.Output != nil {
		sink, err := j.sink()
		if err != nil {
			src.Close()
			return nil, fmt.Errorf("open output: %w", err)
		}
		pb.To(sink)
	}
	return pb.Build()
}

func (j *Job) sink() (core.DataSink, error) {
	loc, err := j.Output.location()
	if err != nil {
		return nil, err
	}
	format, err := types.ParseOutputFormat(j.Output.Format)
	if err != nil {
		return nil, err
	}
	return loc.NewSink(format)
}

// Run builds the job's pipeline and executes it.
func (j *Job) Run(ctx context.Context) (*gojanitor.Pipeline, error) {
	p, err := j.Pipeline(ctx)
	if err != nil {
		return nil, err
	}
	if err := p.Execute(ctx); err != nil {
		return p, fmt.Errorf("job %s: %w", j.Name, err)
	}
	return p, nil
}
