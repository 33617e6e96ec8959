// This file is part of m68k.
//
// m68k is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// m68k is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with m68k.  If not, see <https://www.gnu.org/licenses/>.

// Package coreconfig holds the core's runtime toggles. Neither is ever
// persisted to disk - that is savestate-adjacent and out of scope for a
// pure execution core.
package coreconfig

import (
	"io"
	"sync/atomic"

	"github.com/segacore/m68k/logger"
)

// Bool is a small, dependency-free, thread-safe boxed boolean, adapted
// from the teacher's prefs.Bool. Only Get/Set/Reset survive here - the
// command-line registration and string-conversion machinery of the
// original prefs system has no surface in a core with no CLI.
type Bool struct {
	value atomic.Bool
}

// Get returns the current value.
func (b *Bool) Get() bool {
	return b.value.Load()
}

// Set stores a new value.
func (b *Bool) Set(v bool) {
	b.value.Store(v)
}

// Reset sets the value back to false.
func (b *Bool) Reset() {
	b.value.Store(false)
}

// StrictValidity enables the post-instruction result-validity self-check
// (see hardware/cpu/execution.Result.IsValid in the teacher's idiom).
// Intended for test harnesses and debug builds; left off by default since
// the check duplicates work the instruction unit already does correctly.
var StrictValidity Bool

// TraceLog mirrors logger.SetEcho: when set, every future central log
// entry is also echoed to the configured writer. SetTraceLog is the only
// way to point it at a destination; Set(false) stops echoing without
// forgetting the writer.
var TraceLog Bool

var traceDest io.Writer

// SetTraceLog points the trace echo at output and enables it. Passing nil
// disables echoing regardless of the current TraceLog value.
func SetTraceLog(output io.Writer) {
	traceDest = output
	if output == nil {
		TraceLog.Set(false)
		logger.SetEcho(nil)
		return
	}
	TraceLog.Set(true)
	logger.SetEcho(output)
}
