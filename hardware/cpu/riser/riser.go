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

// Package riser implements the interrupt riser and trace riser (spec
// §2's "Interrupt riser / trace riser" row): the pair of per-tick checks
// that observe SR and the external IPL lines and raise the matching
// exception into the manager, ahead of whichever unit is active that
// tick.
package riser

import (
	"github.com/segacore/m68k/hardware/cpu/exception"
	"github.com/segacore/m68k/hardware/cpu/registers"
)

// IPLSource is polled once per tick for the interrupt priority level
// currently presented on IPL0-IPL2. cpubus.InterruptDevice only exposes
// the interrupt-acknowledge cycle itself, not a continuously readable
// line, so this core defines its own minimal contract for the riser -
// a host wires up whatever asserts IPL (e.g. a peripheral controller)
// behind it.
type IPLSource interface {
	IPL() uint8
}

// Riser is the interrupt/trace riser.
type Riser struct {
	rf  *registers.RegisterFile
	man *exception.Manager
	ipl IPLSource
}

// New builds a Riser observing rf and raising into man. ipl may be nil,
// in which case the interrupt riser never fires (no external device
// wired up).
func New(rf *registers.RegisterFile, man *exception.Manager, ipl IPLSource) *Riser {
	return &Riser{rf: rf, man: man, ipl: ipl}
}

// Cycle runs both risers for the current tick. Raise is idempotent on an
// already-pending kind, so calling this every tick while a condition
// holds is harmless - the exception still drains exactly once.
func (r *Riser) Cycle() error {
	if r.rf.SR.Trace {
		r.man.Raise(exception.Trace)
	}
	if r.ipl == nil {
		return nil
	}
	lvl := r.ipl.IPL()
	if lvl == 7 || lvl > r.rf.SR.InterruptMask {
		r.man.RaiseInterrupt(lvl)
	}
	return nil
}
