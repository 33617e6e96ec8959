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

// Package cpubus defines the external contracts the CPU core drives: the
// asynchronous, is_idle()-polled memory device and the interrupting
// device consulted during an interrupt-acknowledge cycle.
package cpubus

import "github.com/segacore/m68k/hardware/cpu/registers"

// Memory is the external memory device the bus manager drives. All
// memory areas a host wires up implement this interface; the CPU never
// distinguishes RAM from ROM from an I/O shim - it only issues
// InitRead*/InitWrite and polls IsIdle.
//
// A request is asynchronous: InitReadByte/InitReadWord/InitWrite start a
// transaction and return immediately; the memory signals completion by
// making IsIdle return true, at which point LatchedByte/LatchedWord hold
// the result of the most recent read. There is no timeout - a device
// that never goes idle halts the CPU forever, matching silicon.
type Memory interface {
	InitReadByte(address uint32)
	InitReadWord(address uint32)
	InitWrite(address uint32, value uint16, size registers.Size)

	IsIdle() bool
	LatchedByte() uint8
	LatchedWord() uint16

	// MaxAddress reports the highest address this device responds to,
	// used only by test harnesses to build address spaces; it has no
	// effect on bus timing.
	MaxAddress() uint32
}

// InterruptType identifies how an interrupting device intends to respond
// to an interrupt-acknowledge cycle.
type InterruptType int

const (
	// Autovectored devices assert VPA; the CPU supplies its own vector
	// derived purely from the interrupt priority level.
	Autovectored InterruptType = iota
	// Vectored devices supply an explicit vector number with DTACK.
	Vectored
	// Spurious devices assert BERR during interrupt acknowledge.
	Spurious
)

// InterruptDevice is consulted by the bus manager's interrupt-acknowledge
// cycle (spec §4.1). The default host wiring is an always-autovectored
// device; a real Genesis peripheral controller would implement Vectored.
type InterruptDevice interface {
	InitInterruptAck(ipl uint8)
	IsIdle() bool
	VectorNumber() uint8
	Type() InterruptType
}

// DebuggerBus is a synchronous escape hatch for test harnesses that want
// to inspect or seed memory without stepping the asynchronous protocol -
// grounded on the teacher's bus.DebuggerBus Peek/Poke idiom, but this
// core's production code path never calls it.
type DebuggerBus interface {
	Peek(address uint32) (uint16, error)
	Poke(address uint32, value uint16) error
}
