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

// Package internalerr defines the host-error domain of the core: error
// conditions caused by a caller violating the core's protocol (starting a
// bus cycle that is already running, decoding an effective address while
// the scheduler is busy, asking for a byte before the bus manager has
// latched one) rather than by the emulated program itself.
//
// In-model 68000 exceptions (bus error, address error, illegal
// instruction, and so on) are never represented here: they are recorded
// as values inside the exception manager and drained internally. Nothing
// in this package is returned for them.
package internalerr

import "fmt"

// Errno identifies a specific host-error condition.
type Errno int

const (
	// BusCycleAlreadyActive is returned when the bus manager is asked to
	// start a new cycle before the previous one has reached Idle.
	BusCycleAlreadyActive Errno = iota

	// BusNotIdle is returned when a component reads the latched byte or
	// word before the bus manager has signalled completion.
	BusNotIdle

	// SchedulerBusy is returned when the effective-address decoder or
	// instruction unit tries to push onto the scheduler while it is still
	// draining a previous micro-op sequence.
	SchedulerBusy

	// SchedulerEmpty is returned when the bus manager is asked to start a
	// cycle for an operation that the scheduler never queued.
	SchedulerEmpty

	// BusAlreadyRequested is returned when RequestBus is called a second
	// time without an intervening ReleaseBus.
	BusAlreadyRequested

	// BusNotRequested is returned when ReleaseBus is called without a
	// matching RequestBus.
	BusNotRequested

	// InvalidAddressingMode is returned when the effective-address
	// decoder is given a mode/register pair that does not correspond to
	// any of the twelve addressing modes in spec §4.4.
	InvalidAddressingMode

	// DecoderAmbiguous is returned when more than one opcode pattern
	// would match the same 16-bit instruction word; this indicates a
	// defect in the decode table itself, not in the program being run.
	DecoderAmbiguous

	// NotImplementedErrno is returned when an opcode pattern matches but
	// the instruction unit has no micro-program registered for it.
	NotImplementedErrno

	// SchedulerMalformedOp is returned when the scheduler's bus dispatch
	// path is reached by an op kind that is not bus-producing, or by an
	// op kind the dispatcher does not recognize - both indicate a defect
	// in the scheduler itself, never in the program being run.
	SchedulerMalformedOp

	// EADecoderBusy is returned when Schedule is called while the bus
	// scheduler is not idle: a previously scheduled op could still
	// mutate the very registers the decode is about to read.
	EADecoderBusy

	// EADecoderNotReady is returned when Result is called before the
	// scheduled decoding ops have drained.
	EADecoderNotReady
)

var messages = map[Errno]string{
	BusCycleAlreadyActive: "bus manager: cannot start %s cycle, current cycle is still active",
	BusNotIdle:            "bus manager: %s requested before bus cycle reached idle",
	SchedulerBusy:         "scheduler: cannot enqueue new work, scheduler is still draining pending op(s)",
	SchedulerEmpty:        "bus manager: %s cycle started with no queued operation",
	BusAlreadyRequested:   "bus manager: RequestBus called while bus is already owned by %s",
	BusNotRequested:       "bus manager: ReleaseBus called without a matching RequestBus",
	InvalidAddressingMode: "effective-address decoder: mode=%d reg=%d does not name an addressing mode",
	DecoderAmbiguous:      "opcode decoder: instruction word %#04x matches more than one pattern (%s)",
	NotImplementedErrno:   "instruction unit: opcode %#04x (%s) has no registered micro-program",
	SchedulerMalformedOp:  "scheduler: malformed op reached bus dispatch: %s",
	EADecoderBusy:         "effective-address decoder: cannot schedule decoding, scheduler is not idle",
	EADecoderNotReady:     "effective-address decoder: result requested before scheduled decoding completed",
}

// CoreError is the error type returned across the boundaries named in
// spec §7: it always carries an Errno so callers can match on condition
// rather than string content, while still formatting a human-readable
// message via Error().
type CoreError struct {
	Errno  Errno
	Values []interface{}
}

// InternalError constructs a CoreError for a host-protocol violation.
func InternalError(errno Errno, values ...interface{}) error {
	return CoreError{Errno: errno, Values: values}
}

// NotImplemented constructs a CoreError for an opcode that decoded
// successfully but has no corresponding micro-program.
func NotImplemented(opcode uint16, mnemonic string) error {
	return CoreError{Errno: NotImplementedErrno, Values: []interface{}{opcode, mnemonic}}
}

func (e CoreError) Error() string {
	msg, ok := messages[e.Errno]
	if !ok {
		return fmt.Sprintf("internalerr: unknown errno %d", e.Errno)
	}
	return fmt.Sprintf(msg, e.Values...)
}

// Is allows errors.Is(err, internalerr.CoreError{Errno: X}) style matching
// without requiring callers to compare Values.
func (e CoreError) Is(target error) bool {
	t, ok := target.(CoreError)
	if !ok {
		return false
	}
	return e.Errno == t.Errno
}
