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
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/cespare/xxhash/v2"
)

// Fingerprint hashes the frame's column names, types and cells. Frames that are
// Equal have the same fingerprint, except for unordered categoricals listing
// their categories in a different order.
func (f *Frame) Fingerprint() uint64 {
	h := xxhash.New()
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(f.rows))
	_, _ = h.Write(buf[:])
	for _, c := range f.columns {
		binary.LittleEndian.PutUint64(buf[:], c.Fingerprint())
		_, _ = h.Write(buf[:])
	}
	return h.Sum64()
}

// Fingerprint hashes the column's name, type and cells.
func (c *Column) Fingerprint() uint64 {
	h := xxhash.New()
	_, _ = h.WriteString(c.name)
	_, _ = h.WriteString("\x00")
	if c.dtype != nil {
		cats := make([]string, len(c.dtype.Categories))
		for i, v := range c.dtype.Categories {
			cats[i] = cellString(v)
		}
		if !c.dtype.Ordered {
			sort.Strings(cats)
		}
		_, _ = fmt.Fprintf(h, "category:%t:%q\x00", c.dtype.Ordered, cats)
	}
	for _, v := range c.values {
		_, _ = h.WriteString(cellString(v))
		_, _ = h.WriteString("\x1f")
	}
	return h.Sum64()
}

// cellString renders a cell so that cells with the same key render identically.
func cellString(v interface{}) string {
	if IsNull(v) {
		return "\x00null"
	}
	k, err := KeyOf(v)
	if err != nil {
		return fmt.Sprintf("%T:%v", v, v)
	}
	return fmt.Sprintf("%T:%v", k, k)
}
