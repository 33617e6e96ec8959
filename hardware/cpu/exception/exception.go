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

// Package exception implements the exception manager (a one-slot
// pending-exception set plus operand records), per spec §3 ("Exception
// slot") and §4.6. The exception unit that drains them (stack-frame
// builder and vector fetch) lives in package exceptionunit.
package exception

import "github.com/segacore/m68k/hardware/cpu/buspins"

// Kind identifies one of the fourteen exception sources this core
// recognizes, per spec §3's exception-slot variant set.
type Kind int

const (
	Reset Kind = iota
	BusError
	AddressError
	IllegalInstruction
	Privilege
	Trace
	Interrupt
	Trap
	DivideByZero
	Chk
	TrapV
	LineA
	LineF
	numKinds
)

func (k Kind) String() string {
	switch k {
	case Reset:
		return "Reset"
	case BusError:
		return "BusError"
	case AddressError:
		return "AddressError"
	case IllegalInstruction:
		return "IllegalInstruction"
	case Privilege:
		return "Privilege"
	case Trace:
		return "Trace"
	case Interrupt:
		return "Interrupt"
	case Trap:
		return "Trap"
	case DivideByZero:
		return "DivideByZero"
	case Chk:
		return "Chk"
	case TrapV:
		return "TrapV"
	case LineA:
		return "LineA"
	case LineF:
		return "LineF"
	default:
		return "Unknown"
	}
}

// Vector numbers for the fixed-vector exceptions, per spec §6/§4.6.
const (
	VectorReset              = 0 // consumes two slots: SSP then PC
	VectorBusError           = 2
	VectorAddressError       = 3
	VectorIllegalInstruction = 4
	VectorDivideByZero       = 5
	VectorChk                = 6
	VectorTrapV              = 7
	VectorPrivilege          = 8
	VectorTrace              = 9
	VectorLineA              = 10
	VectorLineF              = 11
)

// AddressErrorRecord captures everything the frame builder needs to
// reconstruct the fault, per spec §3.
type AddressErrorRecord struct {
	Address      uint32
	FunctionCode buspins.FunctionCode
	Read         bool // true = the faulting access was a read
	In           bool // true if the fault occurred during instruction fetch
	PC           uint32
}

// priority defines the drain order spec §7 requires: reset highest;
// address/bus error before trap; interrupts/trace after the current
// instruction. Lower number drains first.
var priority = [numKinds]int{
	Reset:              0,
	BusError:           1,
	AddressError:       1,
	IllegalInstruction: 2,
	Privilege:          2,
	LineA:              2,
	LineF:              2,
	DivideByZero:       2,
	Chk:                2,
	TrapV:              2,
	Trap:               2,
	Interrupt:          3,
	Trace:              4,
}

// Manager is the exception slot: at most one pending instance of each
// kind at a time, per spec §3's "Exception slot" invariant.
type Manager struct {
	pending     [numKinds]bool
	addrErr     AddressErrorRecord
	trapVector  uint8
	interruptIPL uint8
}

// NewManager returns an empty exception manager.
func NewManager() *Manager {
	return &Manager{}
}

// Raise marks kind pending. Raising an already-pending kind a second
// time before it drains is a no-op - the manager holds at most one
// instance per kind, as spec §3 requires.
func (m *Manager) Raise(kind Kind) {
	m.pending[kind] = true
}

// RaiseAddressError marks AddressError pending with the given record.
func (m *Manager) RaiseAddressError(rec AddressErrorRecord) {
	m.addrErr = rec
	m.pending[AddressError] = true
}

// RaiseTrap marks Trap pending with the given trap vector (vector, not
// trap number; callers pass 32+N for TRAP #N).
func (m *Manager) RaiseTrap(vector uint8) {
	m.trapVector = vector
	m.pending[Trap] = true
}

// RaiseInterrupt marks Interrupt pending at the given priority level.
func (m *Manager) RaiseInterrupt(ipl uint8) {
	m.interruptIPL = ipl
	m.pending[Interrupt] = true
}

// Pending reports whether kind is currently pending.
func (m *Manager) Pending(kind Kind) bool {
	return m.pending[kind]
}

// AddressErrorRecord returns the record associated with a pending or
// just-drained AddressError.
func (m *Manager) AddressErrorRecord() AddressErrorRecord {
	return m.addrErr
}

// TrapVector returns the vector associated with a pending Trap.
func (m *Manager) TrapVector() uint8 {
	return m.trapVector
}

// InterruptIPL returns the priority level of a pending Interrupt.
func (m *Manager) InterruptIPL() uint8 {
	return m.interruptIPL
}

// HasWork reports whether any exception is pending.
func (m *Manager) HasWork() bool {
	for _, p := range m.pending {
		if p {
			return true
		}
	}
	return false
}

// IsIdle is the complement of HasWork, matching the is_idle() naming
// used by the other core components (spec §3's invariant list).
func (m *Manager) IsIdle() bool {
	return !m.HasWork()
}

// Highest returns the highest-priority pending kind and true, or an
// unspecified Kind and false if nothing is pending.
func (m *Manager) Highest() (Kind, bool) {
	best := -1
	bestPriority := 1 << 30
	for k := Kind(0); k < numKinds; k++ {
		if !m.pending[k] {
			continue
		}
		if priority[k] < bestPriority {
			bestPriority = priority[k]
			best = int(k)
		}
	}
	if best < 0 {
		return 0, false
	}
	return Kind(best), true
}

// Drain clears kind's pending flag; called once the exception unit has
// finished building its stack frame and fetching its vector.
func (m *Manager) Drain(kind Kind) {
	m.pending[kind] = false
}

// Clear drops every pending exception, used by Reset.
func (m *Manager) Clear() {
	for k := range m.pending {
		m.pending[k] = false
	}
}
