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

package gojanitor

import (
	"context"
	"fmt"

	"github.com/aaronlmathis/gojanitor/frame"
)

// Idempotent applies t to a copy of f, then to its own result, and reports an
// error unless both results are equal. f itself is left unchanged.
func Idempotent(t frame.Transformer, f *frame.Frame) error {
	return IdempotentContext(context.Background(), t, f)
}

// IdempotentContext is Idempotent with a caller-supplied context.
func IdempotentContext(ctx context.Context, t frame.Transformer, f *frame.Frame) error {
	once, err := t.Apply(ctx, f.Copy())
	if err != nil {
		return fmt.Errorf("first application: %w", err)
	}
	want := once.Fingerprint()
	twice, err := t.Apply(ctx, once.Copy())
	if err != nil {
		return fmt.Errorf("second application: %w", err)
	}
	if twice.Fingerprint() != want || !twice.Equal(once) {
		return fmt.Errorf("transformer is not idempotent: second application changed the frame")
	}
	return nil
}
