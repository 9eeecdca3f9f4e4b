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
	"fmt"
	"log"
	"sync"
)

// Warning is a non-fatal diagnostic raised by a cleaning operation.
// Warnings never abort the operation that raised them.
type Warning struct {
	Op      string
	Column  string
	Message string
	Values  []interface{}
}

func (w Warning) String() string {
	if len(w.Values) == 0 {
		return fmt.Sprintf("%s: column %q: %s", w.Op, w.Column, w.Message)
	}
	return fmt.Sprintf("%s: column %q: %s: %v", w.Op, w.Column, w.Message, w.Values)
}

// WarningHandler receives warnings raised by cleaning operations.
type WarningHandler interface {
	HandleWarning(w Warning)
}

// WarningHandlerFunc is a function adapter for the WarningHandler interface.
type WarningHandlerFunc func(w Warning)

// HandleWarning implements the WarningHandler interface for WarningHandlerFunc.
func (f WarningHandlerFunc) HandleWarning(w Warning) {
	f(w)
}

// LogWarnings writes warnings to the standard logger.
var LogWarnings WarningHandler = WarningHandlerFunc(func(w Warning) {
	log.Printf("gojanitor: warning: %s", w)
})

// DiscardWarnings drops every warning.
var DiscardWarnings WarningHandler = WarningHandlerFunc(func(Warning) {})

// WarningCollector accumulates warnings for later inspection.
// It is safe for concurrent use.
type WarningCollector struct {
	mu       sync.Mutex
	warnings []Warning
}

// HandleWarning implements the WarningHandler interface.
func (c *WarningCollector) HandleWarning(w Warning) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.warnings = append(c.warnings, w)
}

// Warnings returns a copy of the collected warnings.
func (c *WarningCollector) Warnings() []Warning {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Warning, len(c.warnings))
	copy(out, c.warnings)
	return out
}

// Reset drops all collected warnings.
func (c *WarningCollector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.warnings = nil
}
