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

// Package types describes where pipeline output goes and opens the matching sink.
package types

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/aaronlmathis/gojanitor/core"
	"github.com/aaronlmathis/gojanitor/writers"
)

// OutputFormat represents a supported sink format.
type OutputFormat int

const (
	FormatCSV OutputFormat = iota
	FormatJSON
	FormatParquet
	FormatPostgres
)

var formatNames = map[OutputFormat]string{
	FormatCSV:      "csv",
	FormatJSON:     "json",
	FormatParquet:  "parquet",
	FormatPostgres: "postgres",
}

func (f OutputFormat) String() string {
	if s, ok := formatNames[f]; ok {
		return s
	}
	return fmt.Sprintf("OutputFormat(%d)", int(f))
}

// ParseOutputFormat maps a format name ("csv", "json", "jsonl", "parquet",
// "postgres") to an OutputFormat.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return FormatCSV, nil
	case "json", "jsonl":
		return FormatJSON, nil
	case "parquet":
		return FormatParquet, nil
	case "postgres", "postgresql":
		return FormatPostgres, nil
	}
	return 0, core.Errorf("output", core.ErrInvalidValue, "unknown output format %q", s)
}

// OutputLocation creates a DataSink for a given format.
type OutputLocation interface {
	NewSink(format OutputFormat) (core.DataSink, error)
}

// FileLocation writes output to a local filesystem path.
type FileLocation struct {
	Path string
}

// NewSink creates the file, and its directory, and returns a writer for it.
func (f FileLocation) NewSink(format OutputFormat) (core.DataSink, error) {
	if f.Path == "" {
		return nil, core.Errorf("output", core.ErrMalformedArguments, "file path is empty")
	}
	if format == FormatParquet {
		return writers.NewParquetWriter(f.Path)
	}
	if format != FormatCSV && format != FormatJSON {
		return nil, core.Errorf("output", core.ErrInvalidValue, "format %s is not supported for files", format)
	}

	if dir := filepath.Dir(f.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	file, err := os.Create(f.Path)
	if err != nil {
		return nil, err
	}
	if format == FormatCSV {
		return writers.NewCSVWriter(file)
	}
	return writers.NewJSONWriter(file), nil
}

// S3PutAPI is the part of the S3 client used for uploads.
type S3PutAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Location writes one object to an S3 bucket. Output is buffered and
// uploaded when the sink is closed.
type S3Location struct {
	Bucket string
	Key    string
	Client S3PutAPI // Defaults to a client built from the default AWS config
}

type s3WriteCloser struct {
	buf    bytes.Buffer
	client S3PutAPI
	bucket string
	key    string
}

func (s *s3WriteCloser) Write(p []byte) (int, error) { return s.buf.Write(p) }

func (s *s3WriteCloser) Close() error {
	_, err := s.client.PutObject(context.Background(), &s3.PutObjectInput{
		Bucket: &s.bucket,
		Key:    &s.key,
		Body:   bytes.NewReader(s.buf.Bytes()),
	})
	if err != nil {
		return fmt.Errorf("upload s3://%s/%s: %w", s.bucket, s.key, err)
	}
	return nil
}

// parquetS3Sink writes to a temporary file and uploads it on Close.
type parquetS3Sink struct {
	*writers.ParquetWriter
	client   S3PutAPI
	bucket   string
	key      string
	filename string
}

func (p *parquetS3Sink) Close() error {
	defer os.Remove(p.filename)
	if err := p.ParquetWriter.Close(); err != nil {
		return err
	}
	file, err := os.Open(p.filename)
	if err != nil {
		return err
	}
	defer file.Close()
	_, err = p.client.PutObject(context.Background(), &s3.PutObjectInput{
		Bucket: &p.bucket,
		Key:    &p.key,
		Body:   file,
	})
	if err != nil {
		return fmt.Errorf("upload s3://%s/%s: %w", p.bucket, p.key, err)
	}
	return nil
}

// NewSink creates a writer uploading to S3.
func (s S3Location) NewSink(format OutputFormat) (core.DataSink, error) {
	if s.Bucket == "" || s.Key == "" {
		return nil, core.Errorf("output", core.ErrMalformedArguments, "s3 bucket and key are required")
	}
	if s.Client == nil {
		cfg, err := awsconfig.LoadDefaultConfig(context.Background())
		if err != nil {
			return nil, err
		}
		s.Client = s3.NewFromConfig(cfg)
	}

	switch format {
	case FormatCSV:
		return writers.NewCSVWriter(&s3WriteCloser{client: s.Client, bucket: s.Bucket, key: s.Key})
	case FormatJSON:
		return writers.NewJSONWriter(&s3WriteCloser{client: s.Client, bucket: s.Bucket, key: s.Key}), nil
	case FormatParquet:
		tmp, err := os.CreateTemp("", "gojanitor-*.parquet")
		if err != nil {
			return nil, err
		}
		filename := tmp.Name()
		tmp.Close()
		pw, err := writers.NewParquetWriter(filename)
		if err != nil {
			os.Remove(filename)
			return nil, err
		}
		return &parquetS3Sink{ParquetWriter: pw, client: s.Client, bucket: s.Bucket, key: s.Key, filename: filename}, nil
	}
	return nil, core.Errorf("output", core.ErrInvalidValue, "format %s is not supported for s3", format)
}

// PostgresLocation directs output to a PostgreSQL table.
type PostgresLocation struct {
	DSN         string
	Table       string
	CreateTable bool
}

// NewSink instantiates a PostgreSQL writer.
func (p PostgresLocation) NewSink(format OutputFormat) (core.DataSink, error) {
	if format != FormatPostgres {
		return nil, core.Errorf("output", core.ErrInvalidValue, "format %s is not supported for postgres", format)
	}
	return writers.NewPostgresWriter(
		writers.WithPostgresDSN(p.DSN),
		writers.WithTableName(p.Table),
		writers.WithCreateTable(p.CreateTable),
	)
}
