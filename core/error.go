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

package core

import (
	"context"
	"errors"
	"fmt"
)

// Package core defines the error handling types for the GoJanitor library.
//
// This file contains the error taxonomy shared by every cleaning operation,
// plus the error strategies used when streaming records from a source.

// Error kinds. Every validation failure raised by a cleaning operation matches
// exactly one of these with errors.Is.
var (
	// ErrMalformedArguments reports a conflicting or missing combination of arguments.
	ErrMalformedArguments = errors.New("malformed arguments")
	// ErrMissingColumn reports column names that are not present in the frame.
	ErrMissingColumn = errors.New("missing column")
	// ErrWrongType reports an argument of the wrong shape or type.
	ErrWrongType = errors.New("wrong type")
	// ErrInvalidValue reports an argument of the right type with a disallowed value.
	ErrInvalidValue = errors.New("invalid value")
	// ErrEmptySource reports a column or input that holds no usable data.
	ErrEmptySource = errors.New("empty source")
)

// JanitorError describes a failed cleaning operation.
type JanitorError struct {
	Op     string // operation name, e.g. "encode_categorical"
	Column string // offending column, empty when not column specific
	Kind   error  // one of the Err* kinds above
	Err    error
}

func (e *JanitorError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("%s: column %q: %v: %v", e.Op, e.Column, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

func (e *JanitorError) Unwrap() error {
	return e.Err
}

// Is reports whether target is the kind of this error.
func (e *JanitorError) Is(target error) bool {
	return e.Kind != nil && target == e.Kind
}

// Errorf builds a JanitorError of the given kind.
func Errorf(op string, kind error, format string, args ...interface{}) error {
	return &JanitorError{Op: op, Kind: kind, Err: fmt.Errorf(format, args...)}
}

// ColumnErrorf builds a JanitorError of the given kind bound to a column.
func ColumnErrorf(op, column string, kind error, format string, args ...interface{}) error {
	return &JanitorError{Op: op, Column: column, Kind: kind, Err: fmt.Errorf(format, args...)}
}

// ErrorHandler defines how record-level errors are handled while streaming from a source.
type ErrorHandler interface {
	// HandleError processes an error raised for a record.
	// Returning a non-nil error stops the pipeline; returning nil continues.
	HandleError(ctx context.Context, record Record, err error) error
}

// ErrorStrategy defines how the pipeline reacts to record-level errors.
type ErrorStrategy int

const (
	// FailFast stops processing on the first error encountered.
	FailFast ErrorStrategy = iota
	// SkipErrors continues processing, skipping failed records.
	SkipErrors
	// CollectErrors continues processing, collecting all errors for later inspection.
	CollectErrors
)

// ErrorHandlerFunc is a function adapter for the ErrorHandler interface.
type ErrorHandlerFunc func(ctx context.Context, record Record, err error) error

// HandleError implements the ErrorHandler interface for ErrorHandlerFunc.
func (f ErrorHandlerFunc) HandleError(ctx context.Context, record Record, err error) error {
	return f(ctx, record, err)
}
