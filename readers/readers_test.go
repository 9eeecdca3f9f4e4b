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

package readers

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aaronlmathis/gojanitor/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestCSVReader(t *testing.T) {
	in := io.NopCloser(strings.NewReader("size,qty,price,ok\nS,1,2.5,true\nM,,3,false\n"))
	r, err := NewCSVReader(in, WithCSVNullValues(""))
	require.NoError(t, err)
	assert.Equal(t, []string{"size", "qty", "price", "ok"}, r.Columns())

	rec, err := r.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, core.Record{"size": "S", "qty": 1, "price": 2.5, "ok": true}, rec)

	rec, err = r.Read(context.Background())
	require.NoError(t, err)
	assert.Nil(t, rec["qty"])

	_, err = r.Read(context.Background())
	assert.Equal(t, io.EOF, err)
	assert.Equal(t, int64(2), r.Stats().RecordsRead)
}

func TestCSVReader_EmptyInput(t *testing.T) {
	_, err := NewCSVReader(io.NopCloser(strings.NewReader("")))
	assert.True(t, errors.Is(err, core.ErrEmptySource))
}

func TestCSVReader_Headerless(t *testing.T) {
	f, err := ReadCSVFrame(context.Background(), io.NopCloser(strings.NewReader("a,1\nb,2\n")),
		WithCSVHasHeaders(false), WithCSVInferTypes(false))
	require.NoError(t, err)
	assert.Equal(t, []string{"col_0", "col_1"}, f.Names())
	c, _ := f.Column("col_1")
	assert.Equal(t, []interface{}{"1", "2"}, c.Values())
}

func TestJSONReader(t *testing.T) {
	in := io.NopCloser(strings.NewReader("{\"id\":1,\"w\":2.5}\n\n{\"id\":2,\"w\":null}\n"))
	r := NewJSONReader(in)

	rec, err := r.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), rec["id"])
	assert.Equal(t, 2.5, rec["w"])

	rec, err = r.Read(context.Background())
	require.NoError(t, err)
	assert.Nil(t, rec["w"])

	_, err = r.Read(context.Background())
	assert.Equal(t, io.EOF, err)
}

func TestJSONReader_BadLine(t *testing.T) {
	r := NewJSONReader(io.NopCloser(strings.NewReader("{\"id\":1}\nnot json\n")))
	_, err := r.Read(context.Background())
	require.NoError(t, err)
	_, err = r.Read(context.Background())
	var jerr *JSONReaderError
	require.True(t, errors.As(err, &jerr))
	assert.Equal(t, int64(2), jerr.Line)
}

func TestReadCSVs(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	writeFile(t, dir, "a.csv", "size,qty\nS,1\nM,2\n")
	writeFile(t, dir, "b.csv", "size,qty\nL,3\n")
	writeFile(t, dir, "notes.txt", "ignored")

	f, err := ReadCSVs(context.Background(), filepath.Join(dir, "*.csv"))
	require.NoError(t, err)
	assert.Equal(t, 3, f.Len())
	size, _ := f.Column("size")
	assert.Equal(t, []interface{}{"S", "M", "L"}, size.Values())

	sep, err := ReadCSVsSeparate(context.Background(), filepath.Join(dir, "*.csv"))
	require.NoError(t, err)
	require.Len(t, sep, 2)
	assert.Equal(t, 2, sep["a.csv"].Len())
	assert.Equal(t, 1, sep["b.csv"].Len())
}

func TestReadCSVs_Errors(t *testing.T) {
	defer goleak.VerifyNone(t)
	ctx := context.Background()
	dir := t.TempDir()

	_, err := ReadCSVs(ctx, "")
	assert.True(t, errors.Is(err, core.ErrMalformedArguments))

	_, err = ReadCSVs(ctx, filepath.Join(dir, "*.csv"))
	assert.True(t, errors.Is(err, core.ErrInvalidValue))

	writeFile(t, dir, "a.csv", "size,qty\nS,1\n")
	writeFile(t, dir, "b.csv", "size,price\nL,3\n")
	_, err = ReadCSVs(ctx, filepath.Join(dir, "*.csv"))
	assert.True(t, errors.Is(err, core.ErrInvalidValue))

	// Separate frames may differ.
	sep, err := ReadCSVsSeparate(ctx, filepath.Join(dir, "*.csv"))
	require.NoError(t, err)
	assert.Len(t, sep, 2)
}

func TestReadCommandline(t *testing.T) {
	defer goleak.VerifyNone(t)
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("no shell available")
	}
	ctx := context.Background()

	f, err := ReadCommandline(ctx, `printf 'size,qty\nS,1\nM,2\n' | head -n 2`)
	require.NoError(t, err)
	assert.Equal(t, 1, f.Len())
	assert.Equal(t, []string{"size", "qty"}, f.Names())

	_, err = ReadCommandline(ctx, "true")
	assert.True(t, errors.Is(err, core.ErrEmptySource))

	_, err = ReadCommandline(ctx, "  ")
	assert.True(t, errors.Is(err, core.ErrMalformedArguments))

	for _, cmd := range []string{"bad", "exit 3", `printf 'a,b\n1,2\n' | grep zzz`} {
		_, err = ReadCommandline(ctx, cmd)
		var cerr *CommandReaderError
		require.True(t, errors.As(err, &cerr), cmd)
		assert.Equal(t, "parse", cerr.Op, cmd)
		assert.True(t, errors.Is(err, core.ErrEmptySource), "%s: %v", cmd, err)
	}

	_, err = ReadCommandline(ctx, "echo oops >&2; exit 1")
	assert.ErrorContains(t, err, "oops")
}
