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

// Package buspins models the 68000's pin-level bus interface: the
// control lines, address/data latches and function codes the bus
// manager drives and external devices (memory, DMA arbiters,
// interrupt controllers) observe.
package buspins

// FunctionCode is the 3-bit FC0-FC2 encoding driven during every bus
// cycle, identifying the class of access.
type FunctionCode uint8

const (
	FCUserData        FunctionCode = 0b001
	FCUserProgram     FunctionCode = 0b010
	FCSupervisorData  FunctionCode = 0b101
	FCSupervisorProgram FunctionCode = 0b110
	FCInterruptAck    FunctionCode = 0b111
)

// Pins is the bag of bus-observable control lines, plus the address and
// data latches, per spec §3 ("Bus state") and §6 ("Pin surface").
type Pins struct {
	AS   bool
	UDS  bool
	LDS  bool
	RW   bool // true = read, false = write, matching the pin's active-high read sense
	DTACK bool
	BR   bool
	BG   bool
	BERR bool
	HALT bool
	VPA  bool

	FC FunctionCode

	// IPL is the external interrupt-priority-level input, 0-7, driven by
	// whatever device wants to interrupt the CPU.
	IPL uint8

	Address uint32
	Data    uint16
}

// Clear drops every control line and latch to its inactive/idle state,
// performed on bus-manager teardown.
func (p *Pins) Clear() {
	p.AS = false
	p.UDS = false
	p.LDS = false
	p.RW = true
	p.DTACK = false
	p.BERR = false
	p.HALT = false
	p.VPA = false
	p.Address = 0
	p.Data = 0
}

// RequestBus asserts BR, the externally-driven bus-request line. The bus
// manager observes this and must grant BG on its next idle transition
// rather than starting a new CPU-initiated cycle.
func (p *Pins) RequestBus() {
	p.BR = true
}

// ReleaseBus clears BR, allowing the CPU to resume initiating bus cycles.
func (p *Pins) ReleaseBus() {
	p.BR = false
	p.BG = false
}

// Granted reports whether the bus manager has granted the external party
// ownership of the bus (BG asserted in response to BR).
func (p *Pins) Granted() bool {
	return p.BG
}
