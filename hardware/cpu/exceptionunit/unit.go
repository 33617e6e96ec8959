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

// Package exceptionunit implements the exception unit (spec §4.6): the
// stack-frame builder and vector fetch that drains the exception
// manager. It is a separate package from hardware/cpu/exception because
// it drives the bus scheduler, and the scheduler itself sits on top of
// the bus manager, which in turn depends on the exception manager to
// raise bus/address errors - folding the frame builder into package
// exception would close that into an import cycle.
package exceptionunit

import (
	"github.com/segacore/m68k/hardware/cpu/buspins"
	"github.com/segacore/m68k/hardware/cpu/exception"
	"github.com/segacore/m68k/hardware/cpu/registers"
	"github.com/segacore/m68k/hardware/cpu/scheduler"
)

type state int

const (
	idle state = iota
	draining
)

// AbortFunc discards in-flight instruction-unit, scheduler and tracer
// state, per spec §4.6's abort hook. It is called once per accepted
// exception, before this unit's frame build begins.
type AbortFunc func()

// Unit is the exception unit: it drains the manager's single pending
// exception by building the appropriate stack frame, entering supervisor
// mode, fetching the vector and prefetching two words. Reset is handled
// directly by the top-level CPU (it has no stack frame, reading the
// initial SSP/PC from fixed addresses instead) and never reaches this
// unit.
type Unit struct {
	rf    *registers.RegisterFile
	sched *scheduler.Scheduler
	man   *exception.Manager
	abort AbortFunc

	state state
	// kind records which exception the in-flight frame build is for, so
	// the deferred vector-fetch callback knows what to Drain once the
	// read actually completes (possibly many ticks after Cycle returns).
	kind exception.Kind
}

// New builds a Unit draining man's pending exceptions against rf and
// sched, calling abort once per accepted exception.
func New(rf *registers.RegisterFile, sched *scheduler.Scheduler, man *exception.Manager, abort AbortFunc) *Unit {
	if abort == nil {
		panic("exceptionunit.New: abort must not be nil")
	}
	return &Unit{rf: rf, sched: sched, man: man, abort: abort}
}

// Reset returns the unit to idle. The scheduler ops an in-progress frame
// build already handed off are the scheduler's own to discard, via its
// Reset.
func (u *Unit) Reset() {
	u.state = idle
}

// HasWork reports whether the manager has a pending exception for this
// unit to drain.
func (u *Unit) HasWork() bool {
	return u.man.HasWork()
}

// IsIdle reports whether the unit is not in the middle of accepting a
// new exception. It does not wait for the frame-build ops already handed
// to the scheduler to drain - spec §8's `cpu.is_idle()` formula ANDs in
// `scheduler.is_idle()` separately for that.
func (u *Unit) IsIdle() bool {
	return u.state == idle
}

// Cycle accepts the highest-priority pending exception (if idle) and
// enqueues its entire stack-frame build onto the scheduler in one shot:
// the register arithmetic in a frame build is synchronous (matching the
// original's single-call frame builders), while the bus reads/writes it
// produces drain over however many subsequent ticks the scheduler needs.
// The unit returns to idle once the vector fetch's deferred callback
// fires; Cycle is a no-op on every tick in between.
func (u *Unit) Cycle() error {
	if u.state != idle {
		return nil
	}
	kind, ok := u.man.Highest()
	if !ok {
		return nil
	}
	u.abort()
	u.state = draining
	u.kind = kind

	switch kind {
	case exception.BusError, exception.AddressError:
		u.buildLongFrame(kind)
	case exception.Interrupt:
		u.buildInterruptFrame()
	default:
		u.buildShortFrame(kind)
	}
	return nil
}

func (u *Unit) dataSpace() buspins.FunctionCode { return buspins.FCSupervisorData }
func (u *Unit) progSpace() buspins.FunctionCode { return buspins.FCSupervisorProgram }

// enterSupervisor performs the SR update every exception entry makes: S
// is forced to 1 and T is cleared, matching real silicon's refusal to
// trace into an exception handler.
func (u *Unit) enterSupervisor() {
	u.rf.SR.Supervisor = true
	u.rf.SR.Trace = false
}

// pushWord decrements SSP by 2 and writes data at the new SSP.
func (u *Unit) pushWord(data uint32) {
	addr := u.rf.SSP() - 2
	u.rf.SetSSP(addr)
	u.sched.EnqueueWrite(addr, data, registers.Word, u.dataSpace(), scheduler.MSWFirst)
}

// writeAt writes a word at an already-computed address without moving
// SSP, used for the SR/status-word slots that land one word above the
// next push (spec §4.6's frame layout: SR is written before PC high is
// pushed, into the gap PC high's push is about to skip past).
func (u *Unit) writeAt(addr uint32, data uint32) {
	u.sched.EnqueueWrite(addr, data, registers.Word, u.dataSpace(), scheduler.MSWFirst)
}

// fetchVectorAndGo reads the long at vectorAddr, loads it into PC, then
// refills the prefetch pipeline with two genuinely fresh words (spec
// §4.6's "prefetch two"): one shift-and-fetch at the new PC, then
// another at PC+2, matching the original's own `prefetch_two` (two
// chained `prefetch_one`-equivalent fetches, not a single fetch plus a
// bare IRC load - the instruction pipeline takes two ticks to refill
// after any jump). Drains the exception that triggered this frame
// build and returns the unit to idle once both land.
func (u *Unit) fetchVectorAndGo(vectorAddr uint32) {
	kind := u.kind
	u.sched.EnqueueRead(vectorAddr, registers.Long, u.dataSpace(), func(v uint32) {
		u.rf.PC.Load(v)
		u.sched.EnqueuePrefetchOne(v, u.progSpace())
		u.sched.EnqueuePrefetchOne(v+2, u.progSpace())
		u.sched.EnqueueCall(func() {
			u.man.Drain(kind)
			u.state = idle
		})
	})
}

// buildLongFrame builds the seven-word address/bus-error frame (spec
// §4.6), grounded on exception_unit.hpp's address_error(). PC correction
// for a predecrement MOVE destination write fault is applied first.
func (u *Unit) buildLongFrame(kind exception.Kind) {
	rec := u.man.AddressErrorRecord()
	u.correctPC(&rec)

	u.sched.EnqueueWait(3)

	u.pushWord(rec.PC & 0xFFFF)
	u.writeAt(u.rf.SSP()-4, uint32(u.rf.SR.Value()))

	u.enterSupervisor()

	u.rf.SetSSP(u.rf.SSP() - 2)
	u.writeAt(u.rf.SSP(), rec.PC>>16)
	u.rf.SetSSP(u.rf.SSP() - 2) // the word here was already written above

	u.pushWord(uint32(u.rf.SIRD))
	u.pushWord(rec.Address & 0xFFFF)
	u.writeAt(u.rf.SSP()-4, uint32(u.addrErrorInfo(rec)))

	u.rf.SetSSP(u.rf.SSP() - 2)
	u.writeAt(u.rf.SSP(), rec.Address>>16)
	u.rf.SetSSP(u.rf.SSP() - 2)

	vector := uint32(exception.VectorBusError)
	if kind == exception.AddressError {
		vector = exception.VectorAddressError
	}
	u.fetchVectorAndGo(vector * 4)
}

func (u *Unit) addrErrorInfo(rec exception.AddressErrorRecord) uint16 {
	status := u.rf.SIRD &^ 0b11111 // undocumented behavior, carried from silicon
	status |= uint16(rec.FunctionCode) & 0x7
	if rec.In {
		status |= 1 << 3
	}
	if rec.Read {
		status |= 1 << 4
	}
	return status
}

// buildShortFrame builds the three-word (PC low, SR, PC high) frame
// shared by every non-interrupt, non-address/bus-error exception: traps,
// illegal instruction, privilege violation, trace, divide-by-zero, CHK,
// TRAPV and the line-A/line-F emulator traps.
func (u *Unit) buildShortFrame(kind exception.Kind) {
	vectorNum := u.shortVectorNumber(kind)
	u.buildShortFrameAt(uint32(vectorNum) * 4)
}

func (u *Unit) buildShortFrameAt(vectorAddr uint32) {
	// TRAPV skips the 3-cycle wait the other short-frame exceptions pay;
	// carried over from the original's own unexplained "trap_vector != 7"
	// special case (TRAPV is vector 7).
	if vectorAddr != uint32(exception.VectorTrapV)*4 {
		u.sched.EnqueueWait(3)
	}

	pc := u.rf.PC.Address()
	u.pushWord(pc & 0xFFFF)
	u.writeAt(u.rf.SSP()-4, uint32(u.rf.SR.Value()))

	u.enterSupervisor()

	u.rf.SetSSP(u.rf.SSP() - 2)
	u.writeAt(u.rf.SSP(), pc>>16)
	u.rf.SetSSP(u.rf.SSP() - 2)

	u.fetchVectorAndGo(vectorAddr)
}

func (u *Unit) shortVectorNumber(kind exception.Kind) int {
	switch kind {
	case exception.Trap:
		return int(u.man.TrapVector())
	case exception.IllegalInstruction:
		return exception.VectorIllegalInstruction
	case exception.Privilege:
		return exception.VectorPrivilege
	case exception.Trace:
		return exception.VectorTrace
	case exception.DivideByZero:
		return exception.VectorDivideByZero
	case exception.Chk:
		return exception.VectorChk
	case exception.TrapV:
		return exception.VectorTrapV
	case exception.LineA:
		return exception.VectorLineA
	case exception.LineF:
		return exception.VectorLineF
	}
	return exception.VectorIllegalInstruction
}

// buildInterruptFrame is the short frame, addressed via the autovector
// formula (spec §4.6: `0x60 + ipl*4`; this core implements only the
// default autovectored interrupting device named in spec §6), plus the
// post-frame interrupt mask update: once the handler is dispatched, I is
// raised to the level being serviced so same- or lower-priority
// interrupts stay masked until the handler itself lowers it.
func (u *Unit) buildInterruptFrame() {
	ipl := u.man.InterruptIPL()
	u.buildShortFrameAt(0x60 + uint32(ipl)*4)
	u.rf.SR.InterruptMask = ipl
}

// correctPC applies spec §4.6's MOVE.W/MOVE.L-with-predecrement-
// destination write-fault correction: the stored PC is advanced by 2
// before pushing, matching the observable silicon behavior.
func (u *Unit) correctPC(rec *exception.AddressErrorRecord) {
	isMoveLong := (u.rf.SIRD >> 12) == 0b0010
	isMoveWord := (u.rf.SIRD >> 12) == 0b0011
	writeOp := !rec.Read

	if (isMoveLong || isMoveWord) && writeOp {
		mode := (u.rf.SIRD >> 6) & 0x7
		if mode == 0b100 {
			rec.PC += 2
		}
	}
}
