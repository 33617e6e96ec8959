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

package registers

import "fmt"

// ProgramCounter is the 32-bit instruction pointer. Only the low 24 bits
// are wired to the address bus on real silicon, but the register itself
// is full width.
type ProgramCounter struct {
	value uint32
}

// NewProgramCounter is the preferred method of initialisation for ProgramCounter.
func NewProgramCounter(val uint32) *ProgramCounter {
	return &ProgramCounter{value: val}
}

// Label returns an identifying string for the PC.
func (pc ProgramCounter) Label() string {
	return "PC"
}

func (pc ProgramCounter) String() string {
	return fmt.Sprintf("%#08x", pc.value)
}

// Address returns the current value of the PC.
func (pc ProgramCounter) Address() uint32 {
	return pc.value
}

// IsOdd reports whether the PC currently points at an odd address -
// illegal as a fetch address and the trigger for an address error.
func (pc ProgramCounter) IsOdd() bool {
	return pc.value&1 != 0
}

// Load a value into the PC.
func (pc *ProgramCounter) Load(val uint32) {
	pc.value = val
}

// Add advances the PC by val, used by advance_pc (spec §4.5) after
// effective-address decoding or immediate-word prefetch.
func (pc *ProgramCounter) Add(val uint32) {
	pc.value += val
}
