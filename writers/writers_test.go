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
	"encoding/json"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aaronlmathis/gojanitor/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockWriteCloser struct {
	mu        sync.Mutex
	sb        strings.Builder
	closed    bool
	failWrite bool
}

func (m *mockWriteCloser) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrite {
		return 0, io.ErrUnexpectedEOF
	}
	return m.sb.Write(p)
}

func (m *mockWriteCloser) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *mockWriteCloser) String() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sb.String()
}

func (m *mockWriteCloser) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func TestCSVWriter_Records(t *testing.T) {
	mock := &mockWriteCloser{}
	w, err := NewCSVWriter(mock)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, w.Write(ctx, core.Record{"size": "S", "qty": 1}))
	require.NoError(t, w.Write(ctx, core.Record{"size": nil, "qty": 2.5}))
	require.NoError(t, w.Close())

	assert.Equal(t, "qty,size\n1,S\n2.5,\n", mock.String())
	assert.True(t, mock.IsClosed())
	stats := w.Stats()
	assert.Equal(t, int64(2), stats.RecordsWritten)
	assert.Equal(t, int64(1), stats.NullValueCounts["size"])
}

func TestCSVWriter_FrameKeepsColumnOrder(t *testing.T) {
	mock := &mockWriteCloser{}
	w, err := NewCSVWriter(mock, WithComma(';'), WithNullValue("NA"))
	require.NoError(t, err)

	require.NoError(t, sizesFrame(t).WriteTo(context.Background(), w))
	assert.Equal(t, "size;qty\nM;3\nS;1\nNA;4\nM;1\n", mock.String())
}

func TestCSVWriter_Options(t *testing.T) {
	mock := &mockWriteCloser{}
	w, err := NewCSVWriter(mock,
		WithHeaders([]string{"b", "a"}),
		WithWriteHeader(false),
		WithCSVBatchSize(1),
		WithTimeLayout("2006-01-02"))
	require.NoError(t, err)

	when := time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC)
	require.NoError(t, w.Write(context.Background(), core.Record{"a": when, "b": "x, y"}))
	assert.Equal(t, "\"x, y\",2024-05-06\n", mock.String())

	_, err = NewCSVWriter(&mockWriteCloser{}, WithComma('"'))
	assert.ErrorIs(t, err, core.ErrInvalidValue)
}

func TestCSVWriter_WriteFailure(t *testing.T) {
	mock := &mockWriteCloser{failWrite: true}
	w, err := NewCSVWriter(mock, WithCSVBatchSize(1))
	require.NoError(t, err)

	err = w.Write(context.Background(), core.Record{"a": 1})
	require.Error(t, err)
	assert.Error(t, w.Write(context.Background(), core.Record{"a": 2}))
}

func TestJSONWriter_Batching(t *testing.T) {
	mock := &mockWriteCloser{}
	w := NewJSONWriter(mock, WithJSONBatchSize(3))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, w.Write(ctx, core.Record{"id": i, "size": nil}))
	}
	assert.Len(t, strings.Split(strings.TrimSpace(mock.String()), "\n"), 3)

	require.NoError(t, w.Close())
	lines := strings.Split(strings.TrimSpace(mock.String()), "\n")
	require.Len(t, lines, 5)

	var rec map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[4]), &rec))
	assert.Equal(t, 4.0, rec["id"])
	assert.Nil(t, rec["size"])

	stats := w.Stats()
	assert.Equal(t, int64(5), stats.RecordsWritten)
	assert.Equal(t, int64(5), stats.NullValueCounts["size"])
	assert.True(t, mock.IsClosed())
}

func TestJSONWriter_FlushOnWrite(t *testing.T) {
	mock := &mockWriteCloser{}
	w := NewJSONWriter(mock, WithJSONBatchSize(0), WithFlushOnWrite(true))
	require.NoError(t, w.Write(context.Background(), core.Record{"test": "value"}))
	assert.Equal(t, "{\"test\":\"value\"}\n", mock.String())

	mock = &mockWriteCloser{}
	w = NewJSONWriter(mock, WithJSONBatchSize(0))
	require.NoError(t, w.Write(context.Background(), core.Record{"test": "value"}))
	assert.Empty(t, mock.String())
	require.NoError(t, w.Flush())
	assert.NotEmpty(t, mock.String())
}

func TestJSONWriter_Errors(t *testing.T) {
	w := NewJSONWriter(&mockWriteCloser{}, WithFlushOnWrite(true))
	err := w.Write(context.Background(), core.Record{"bad": make(chan int)})
	var jerr *JSONWriterError
	require.ErrorAs(t, err, &jerr)
	assert.Equal(t, "marshal", jerr.Op)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, NewJSONWriter(&mockWriteCloser{}).Write(ctx, core.Record{"a": 1}))
}
