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

// Package instruction implements the instruction unit (spec §4.5): it
// decodes one opcode at a time from IRD and drives it to completion as
// a sequence of scheduled micro-ops, using hardware/cpu/ea for operand
// addressing and hardware/cpu/alu for the actual computation.
package instruction

import (
	"github.com/segacore/m68k/hardware/cpu/buspins"
	"github.com/segacore/m68k/hardware/cpu/ea"
	"github.com/segacore/m68k/hardware/cpu/exception"
	"github.com/segacore/m68k/hardware/cpu/opcodes"
	"github.com/segacore/m68k/hardware/cpu/registers"
	"github.com/segacore/m68k/hardware/cpu/scheduler"
	"github.com/segacore/m68k/internalerr"
)

// State is one of the five states spec §4.5 names. Unlike the bus
// manager or scheduler, this unit does not branch its own Cycle on
// State: once dispatch begins, the rest of the instruction runs as a
// chain of scheduler-driven continuations (EnqueueCall thunks handing
// off to the next phase once the scheduler drains). State exists for
// introspection and the CPU's is_idle formula, updated by whichever
// phase is in flight.
type State int

const (
	Idle State = iota
	DecodingEA
	ExecutingALU
	WritingBack
	Prefetching
)

// Unit is the instruction unit.
type Unit struct {
	rf    *registers.RegisterFile
	sched *scheduler.Scheduler
	dec   *ea.Decoder
	man   *exception.Manager

	state   State
	stopped bool
}

// New builds a Unit decoding opcodes out of rf.IRD, driving sched and
// dec, raising exceptions it detects (illegal opcodes, privilege
// violations, TRAP/TRAPV/CHK/DIVU/DIVS-by-zero) through man.
func New(rf *registers.RegisterFile, sched *scheduler.Scheduler, dec *ea.Decoder, man *exception.Manager) *Unit {
	return &Unit{rf: rf, sched: sched, dec: dec, man: man}
}

// Reset returns the unit to Idle, discarding whatever instruction was
// in flight, and clears a pending STOP; used by the exception unit's
// abort hook, which is how a STOPped core resumes once an interrupt,
// trace, or reset actually begins draining.
func (u *Unit) Reset() {
	u.state = Idle
	u.stopped = false
	u.dec.Reset()
}

// IsIdle reports whether the unit is ready to decode a new opcode. A
// STOPped unit is never idle in this sense - dispatch must stay
// suppressed until Reset clears it.
func (u *Unit) IsIdle() bool {
	return u.state == Idle && !u.stopped
}

// Cycle dispatches a new instruction when idle and the scheduler has
// nothing left in flight from the previous one. Once dispatch begins,
// progress is driven entirely by the scheduler draining the
// continuation chain the handler built; Cycle is a no-op on every tick
// until that chain returns the unit to Idle, and a no-op on every tick
// while STOPped.
func (u *Unit) Cycle() error {
	if u.stopped {
		return nil
	}
	if u.state != Idle {
		return nil
	}
	if !u.sched.IsIdle() {
		return internalerr.InternalError(internalerr.SchedulerBusy)
	}
	return u.dispatch()
}

func (u *Unit) dataSpace() buspins.FunctionCode {
	if u.rf.SR.Supervisor {
		return buspins.FCSupervisorData
	}
	return buspins.FCUserData
}

func (u *Unit) progSpace() buspins.FunctionCode {
	if u.rf.SR.Supervisor {
		return buspins.FCSupervisorProgram
	}
	return buspins.FCUserProgram
}

// dispatch decodes IRD, snapshots exception-frame state, advances PC
// past the opcode word (see pc.go), and hands off to the instruction's
// handler. Unrecognized or privileged-in-user-mode opcodes raise the
// matching exception and leave the unit idle - the CPU top level routes
// the next tick to the exception unit once the manager has work.
func (u *Unit) dispatch() error {
	u.rf.SnapshotForException()

	ird := u.rf.IRD
	kind, size, hasSize, err := opcodes.Decode(ird)
	if err != nil {
		return err
	}

	if kind == opcodes.Illegal {
		u.raiseForUnrecognized(ird)
		return nil
	}

	if privileged(kind) && !u.rf.SR.Supervisor {
		u.man.Raise(exception.Privilege)
		return nil
	}

	u.rf.PC.Add(opcodeWordBytes)
	u.state = DecodingEA

	h, ok := handlers[kind]
	if !ok {
		return internalerr.NotImplemented(ird, kind.String())
	}
	return h(u, ird, size, hasSize)
}

// decodeEA schedules an effective-address decode and chains cont to run
// once it completes - cont fires from inside an EnqueueCall thunk, so
// the scheduler (and therefore the decoder) is guaranteed idle again by
// the time it runs, which is exactly ea.Decoder.Schedule's own
// precondition for starting the next decode.
func (u *Unit) decodeEA(eaField uint8, size registers.Size, flags ea.Flags, cont func(op ea.Operand)) error {
	if err := u.dec.Schedule(eaField, size, flags); err != nil {
		return err
	}
	u.sched.EnqueueCall(func() {
		op, _ := u.dec.Result()
		cont(op)
	})
	return nil
}

// raiseForUnrecognized distinguishes the line-1010/line-1111 emulator
// trap opcodes from a genuinely illegal encoding, per spec §3's kind
// list (LineA/LineF are their own vectors, 10 and 11, distinct from
// IllegalInstruction's vector 4).
func (u *Unit) raiseForUnrecognized(ird uint16) {
	switch ird >> 12 {
	case 0b1010:
		u.man.Raise(exception.LineA)
	case 0b1111:
		u.man.Raise(exception.LineF)
	default:
		u.man.Raise(exception.IllegalInstruction)
	}
}

// privileged reports whether kind may only execute in supervisor mode.
func privileged(kind opcodes.Kind) bool {
	switch kind {
	case opcodes.ANDItoSR, opcodes.ORItoSR, opcodes.EORItoSR, opcodes.MOVEtoSR,
		opcodes.RESET, opcodes.STOP, opcodes.RTE, opcodes.MOVEUSP:
		return true
	}
	return false
}

// finish schedules the two-word pipeline refill spec §4.5 requires
// before every non-branching instruction returns to Idle (grounded on
// exceptionunit.Unit's identical fetchVectorAndGo - two chained
// shift-and-fetch prefetches, not one), then idles the unit once both
// land.
func (u *Unit) finish() {
	u.state = Prefetching
	pc := u.rf.PC.Address()
	space := u.progSpace()
	u.sched.EnqueuePrefetchOne(pc, space)
	u.sched.EnqueuePrefetchOne(pc+2, space)
	u.sched.EnqueueCall(func() {
		u.state = Idle
	})
}

// finishAt is finish, but for branches/jumps that redirect PC first.
func (u *Unit) finishAt(target uint32) {
	u.rf.PC.Load(target)
	u.finish()
}

// operandValue reads the current value an already-decoded Operand
// refers to: registers are read live (the decoder never snapshots
// them), immediates/pointers carry their fetched Value directly.
func (u *Unit) operandValue(op ea.Operand) uint32 {
	switch op.Kind {
	case ea.KindDataReg:
		return u.rf.D[op.Reg].Get(op.Size)
	case ea.KindAddrReg:
		if op.Reg == 7 {
			return u.rf.GetA7() & op.Size.Mask()
		}
		return u.rf.A(op.Reg).Get(op.Size)
	default:
		return op.Value
	}
}

// writeBack stores val into op at its own width, then proceeds to then
// (which is expected to call finish/finishAt eventually). Register
// writes are synchronous; memory writes are scheduled and then runs
// once the write completes.
func (u *Unit) writeBack(op ea.Operand, val uint32, then func()) {
	u.state = WritingBack
	switch op.Kind {
	case ea.KindDataReg:
		u.rf.D[op.Reg].Set(op.Size, val)
		then()
	case ea.KindAddrReg:
		u.setAddrReg(op.Reg, op.Size, val)
		then()
	case ea.KindPointer:
		u.sched.EnqueueWrite(op.Addr, val, op.Size, u.dataSpace(), scheduler.MSWFirst)
		u.sched.EnqueueCall(then)
	default:
		then()
	}
}

// setAddrReg writes an address register (or A7) at size. AddrRegister.Set
// already sign-extends word writes; A7 has no backing AddrRegister (it
// aliases USP/SSP), so that case is replicated here directly.
func (u *Unit) setAddrReg(reg int, size registers.Size, val uint32) {
	if reg == 7 {
		if size == registers.Word {
			val = uint32(int32(int16(val)))
		}
		u.rf.SetA7(val)
		return
	}
	u.rf.A(reg).Set(size, val)
}

// --- IRD bit-field helpers shared by every handler file ---

func eaField(ird uint16) uint8     { return uint8(ird & 0x3F) }
func regField(ird uint16) uint8    { return uint8((ird >> 9) & 0x7) }
func opmodeField(ird uint16) uint8 { return uint8((ird >> 6) & 0x7) }
func condField(ird uint16) uint8   { return uint8((ird >> 8) & 0xF) }

type handlerFunc func(u *Unit, ird uint16, size registers.Size, hasSize bool) error

// handlers maps every Kind opcodes.Decode can return (other than
// Illegal, handled directly in dispatch) to its execution handler.
// Populated from the per-family files in this package via init.
var handlers = map[opcodes.Kind]handlerFunc{}

func register(kinds []opcodes.Kind, h handlerFunc) {
	for _, k := range kinds {
		handlers[k] = h
	}
}
