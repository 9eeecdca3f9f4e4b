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

package frame

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/apache/arrow/go/v12/arrow"
)

// CategoricalMetadataPrefix prefixes the schema metadata keys that describe
// categorical columns, one key per column position. Parquet files keep schema
// metadata, so categories that never occur in the data survive a round trip.
const CategoricalMetadataPrefix = "gojanitor.categorical."

type categoricalMeta struct {
	Name       string        `json:"name"`
	Kind       string        `json:"kind"`
	Categories []interface{} `json:"categories"`
	Ordered    bool          `json:"ordered"`
}

func (f *Frame) categoricalMetadata() arrow.Metadata {
	var keys, values []string
	for i, c := range f.columns {
		if c.dtype == nil {
			continue
		}
		kind := inferKind(c.dtype.Categories)
		switch kind {
		case kindBool, kindInt, kindUint, kindFloat, kindString:
		default:
			continue
		}
		data, err := json.Marshal(categoricalMeta{
			Name:       c.name,
			Kind:       kind.String(),
			Categories: c.dtype.Categories,
			Ordered:    c.dtype.Ordered,
		})
		if err != nil {
			continue
		}
		keys = append(keys, CategoricalMetadataPrefix+strconv.Itoa(i))
		values = append(values, string(data))
	}
	return arrow.NewMetadata(keys, values)
}

// applyCategoricalMetadata turns the columns described by schema metadata
// back into categorical columns with their full category list.
func applyCategoricalMetadata(md arrow.Metadata, cols []*Column) error {
	for i, key := range md.Keys() {
		if !strings.HasPrefix(key, CategoricalMetadataPrefix) {
			continue
		}
		pos, err := strconv.Atoi(strings.TrimPrefix(key, CategoricalMetadataPrefix))
		if err != nil || pos < 0 || pos >= len(cols) {
			continue
		}
		meta, err := decodeCategoricalMeta(md.Values()[i])
		if err != nil {
			return fmt.Errorf("metadata %s: %w", key, err)
		}
		if meta.Name != cols[pos].name {
			continue
		}
		categories := meta.Categories
		if prev := cols[pos].dtype; prev != nil {
			// dictionaries of later chunks may add categories
			categories = appendMissing(categories, prev.Categories)
		}
		col, err := NewCategoricalColumn(meta.Name, cols[pos].values,
			CategoricalType{Categories: categories, Ordered: meta.Ordered})
		if err != nil {
			return err
		}
		cols[pos] = col
	}
	return nil
}

func appendMissing(dst, src []interface{}) []interface{} {
	seen := make(map[interface{}]bool, len(dst))
	for _, v := range dst {
		if k, err := KeyOf(v); err == nil {
			seen[k] = true
		}
	}
	for _, v := range src {
		k, err := KeyOf(v)
		if err != nil || seen[k] {
			continue
		}
		seen[k] = true
		dst = append(dst, v)
	}
	return dst
}

func decodeCategoricalMeta(data string) (categoricalMeta, error) {
	var meta categoricalMeta
	dec := json.NewDecoder(bytes.NewReader([]byte(data)))
	dec.UseNumber()
	if err := dec.Decode(&meta); err != nil {
		return meta, err
	}
	for i, v := range meta.Categories {
		n, ok := v.(json.Number)
		if !ok {
			continue
		}
		var err error
		switch meta.Kind {
		case kindInt.String():
			meta.Categories[i], err = n.Int64()
		case kindUint.String():
			meta.Categories[i], err = strconv.ParseUint(n.String(), 10, 64)
		default:
			meta.Categories[i], err = n.Float64()
		}
		if err != nil {
			return meta, err
		}
	}
	return meta, nil
}

// RestoreCategoricals returns a copy of f whose columns described by the
// categorical schema metadata in md are categorical.
func RestoreCategoricals(f *Frame, md arrow.Metadata) (*Frame, error) {
	cols := f.Columns()
	if err := applyCategoricalMetadata(md, cols); err != nil {
		return nil, err
	}
	return New(cols...)
}
