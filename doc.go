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

// Package gojanitor cleans tabular data held in frames.
//
// The centre of the library is categorical encoding (package categorical):
// converting columns to a categorical type whose categories are inferred from
// the data or given explicitly, optionally ordered. Around it sit column
// selection and renaming (transform), row filters (filter), validators,
// grouped aggregation (aggregate), readers and writers for CSV, JSON lines,
// Parquet, PostgreSQL, MongoDB, S3 and HTTP, and YAML job files (config).
//
// Frames are cleaned either directly with method chaining:
//
//	f, err := gojanitor.From(raw).
//		EncodeCategorical(categorical.WithColumns("size", "colour")).
//		LimitColumnCharacters(7, "_").
//		Frame()
//
// or as a pipeline from a data source to a data sink:
//
//	p, err := gojanitor.NewPipeline().
//		From(csvReader).
//		Where(filter.NotNull("size")).
//		Transform(categorical.NewEncoder(categorical.WithColumns("size"))).
//		To(parquetWriter).
//		WithErrorStrategy(core.SkipErrors).
//		Build()
//	if err != nil { log.Fatal(err) }
//	if err := p.Execute(ctx); err != nil { log.Fatal(err) }
package gojanitor
