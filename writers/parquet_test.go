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

package writers

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/aaronlmathis/gojanitor/core"
	"github.com/aaronlmathis/gojanitor/frame"
	"github.com/aaronlmathis/gojanitor/readers"
	"github.com/apache/arrow/go/v12/parquet/compress"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sizesFrame(t *testing.T) *frame.Frame {
	t.Helper()
	size, err := frame.NewCategoricalColumn("size",
		[]interface{}{"M", "S", nil, "M"},
		frame.CategoricalType{Categories: []interface{}{"S", "M", "L", "XL"}, Ordered: true})
	require.NoError(t, err)
	return frame.MustNew(size, frame.Of("qty", int64(3), int64(1), int64(4), int64(1)))
}

func TestParquetWriter_FrameRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "sizes.parquet")

	w, err := NewParquetWriter(path, WithCompression(compress.Codecs.Snappy))
	require.NoError(t, err)
	in := sizesFrame(t)
	require.NoError(t, in.WriteTo(ctx, w))
	require.NoError(t, w.Close())

	stats := w.Stats()
	assert.Equal(t, int64(4), stats.RecordsWritten)
	assert.Equal(t, int64(1), stats.NullValueCounts["size"])

	out, err := readers.ReadParquetFrame(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, []string{"size", "qty"}, out.Names())

	size, _ := out.Column("size")
	require.True(t, size.IsCategorical())
	assert.True(t, size.Categorical().Ordered)
	assert.Equal(t, []interface{}{"S", "M", "L", "XL"}, size.Categorical().Categories)
	assert.Equal(t, []interface{}{"M", "S", nil, "M"}, size.Values())

	qty, _ := out.Column("qty")
	assert.Equal(t, []interface{}{int64(3), int64(1), int64(4), int64(1)}, qty.Values())
}

func TestParquetWriter_Records(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "records.parquet")

	w, err := NewParquetWriter(path, WithBatchSize(2), WithFieldOrder([]string{"id", "name"}))
	require.NoError(t, err)
	records := []core.Record{
		{"id": int64(1), "name": "a"},
		{"id": int64(2)},
		{"id": int64(3), "name": "c"},
	}
	for _, r := range records {
		require.NoError(t, w.Write(ctx, r))
	}
	require.NoError(t, w.Close())
	assert.Equal(t, int64(2), w.Stats().BatchesWritten)

	out, err := readers.ReadParquetFrame(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, 3, out.Len())
	name, _ := out.Column("name")
	assert.Equal(t, []interface{}{"a", nil, "c"}, name.Values())
}

func TestParquetWriter_SchemaValidation(t *testing.T) {
	ctx := context.Background()
	w, err := NewParquetWriter(filepath.Join(t.TempDir(), "v.parquet"),
		WithFieldOrder([]string{"id"}), WithSchemaValidation(true))
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, w.Write(ctx, core.Record{"id": int64(1)}))
	err = w.Write(ctx, core.Record{"id": int64(2), "extra": true})
	var perr *ParquetWriterError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "validate", perr.Op)
}

func TestParquetWriter_ClosedWriter(t *testing.T) {
	w, err := NewParquetWriter(filepath.Join(t.TempDir(), "c.parquet"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	assert.NoError(t, w.Close())
	assert.Error(t, w.Write(context.Background(), core.Record{"id": 1}))
}
