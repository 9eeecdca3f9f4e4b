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
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/aaronlmathis/gojanitor/core"
	"github.com/aaronlmathis/gojanitor/frame"
)

// maxConcurrentCSVReads bounds how many files ReadCSVs opens at once.
const maxConcurrentCSVReads = 8

// GlobCSVs expands pattern into a sorted list of file paths.
func GlobCSVs(pattern string) ([]string, error) {
	if strings.TrimSpace(pattern) == "" {
		return nil, core.Errorf("read_csvs", core.ErrMalformedArguments, "file pattern is empty")
	}
	paths, err := filepath.Glob(pattern)
	if err != nil {
		return nil, core.Errorf("read_csvs", core.ErrMalformedArguments, "bad pattern %q: %v", pattern, err)
	}
	if len(paths) == 0 {
		return nil, core.Errorf("read_csvs", core.ErrInvalidValue, "no CSV files match %q", pattern)
	}
	return paths, nil
}

// readCSVFiles reads every path concurrently. Results keep the order of paths.
func readCSVFiles(ctx context.Context, paths []string, options []ReaderOptionCSV) ([]*frame.Frame, error) {
	frames := make([]*frame.Frame, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentCSVReads)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			f, err := ReadCSVFile(ctx, path, options...)
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}
			frames[i] = f
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return frames, nil
}

// ReadCSVs reads every CSV file matching pattern and stacks them into one
// frame in path order. All files must share the same header.
func ReadCSVs(ctx context.Context, pattern string, options ...ReaderOptionCSV) (*frame.Frame, error) {
	paths, err := GlobCSVs(pattern)
	if err != nil {
		return nil, err
	}
	frames, err := readCSVFiles(ctx, paths, options)
	if err != nil {
		return nil, err
	}
	want := frames[0].Names()
	for i, f := range frames[1:] {
		if got := f.Names(); !equalNames(want, got) {
			return nil, core.Errorf("read_csvs", core.ErrInvalidValue,
				"columns of %s %v do not match %s %v", filepath.Base(paths[i+1]), got, filepath.Base(paths[0]), want)
		}
	}
	return frame.Concat(frames...)
}

// ReadCSVsSeparate reads every CSV file matching pattern into its own frame,
// keyed by base file name.
func ReadCSVsSeparate(ctx context.Context, pattern string, options ...ReaderOptionCSV) (map[string]*frame.Frame, error) {
	paths, err := GlobCSVs(pattern)
	if err != nil {
		return nil, err
	}
	frames, err := readCSVFiles(ctx, paths, options)
	if err != nil {
		return nil, err
	}
	out := make(map[string]*frame.Frame, len(paths))
	for i, path := range paths {
		out[filepath.Base(path)] = frames[i]
	}
	return out, nil
}

func equalNames(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
