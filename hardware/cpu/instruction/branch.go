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

package instruction

import (
	"github.com/segacore/m68k/hardware/cpu/alu"
	"github.com/segacore/m68k/hardware/cpu/ea"
	"github.com/segacore/m68k/hardware/cpu/opcodes"
	"github.com/segacore/m68k/hardware/cpu/registers"
	"github.com/segacore/m68k/hardware/cpu/scheduler"
)

func init() {
	register([]opcodes.Kind{opcodes.BRA}, handleBRA)
	register([]opcodes.Kind{opcodes.BSR}, handleBSR)
	register([]opcodes.Kind{opcodes.Bcc}, handleBcc)
	register([]opcodes.Kind{opcodes.DBcc}, handleDBcc)
	register([]opcodes.Kind{opcodes.Scc}, handleScc)
	register([]opcodes.Kind{opcodes.JMP}, handleJMP)
	register([]opcodes.Kind{opcodes.JSR}, handleJSR)
	register([]opcodes.Kind{opcodes.RTS}, handleRTS)
	register([]opcodes.Kind{opcodes.RTE}, handleRTE)
	register([]opcodes.Kind{opcodes.RTR}, handleRTR)
}

// branchTarget resolves an 8/16-bit relative branch displacement. ird's
// low byte holds the displacement directly unless it is zero, in which
// case a following extension word carries a 16-bit displacement (spec
// §4.5); base is the address of the opcode word itself, already two
// bytes behind the current rf.PC at the point every Bxx handler runs
// (DBcc does not use this helper and measures from rf.PC instead).
func (u *Unit) branchTarget(ird uint16, onResolved func(target uint32)) {
	base := u.rf.PC.Address() - opcodeWordBytes
	if disp := uint8(ird); disp != 0 {
		onResolved(uint32(int32(base) + int32(int8(disp))))
		return
	}
	u.sched.EnqueueReadImm(registers.Word, scheduler.DoPrefetch, u.progSpace(), func(ext uint32) {
		onResolved(uint32(int32(base) + int32(int16(uint16(ext)))))
	})
}

func handleBRA(u *Unit, ird uint16, size registers.Size, hasSize bool) error {
	u.branchTarget(ird, u.finishAt)
	return nil
}

func handleBSR(u *Unit, ird uint16, size registers.Size, hasSize bool) error {
	ret := u.rf.PC.Address()
	u.branchTarget(ird, func(target uint32) {
		u.sched.EnqueuePush(ret, registers.Long, 0, u.dataSpace())
		u.sched.EnqueueCall(func() {
			u.finishAt(target)
		})
	})
	return nil
}

func handleBcc(u *Unit, ird uint16, size registers.Size, hasSize bool) error {
	cc := condField(ird)
	if !u.rf.SR.Condition(cc) {
		// a false condition still has to consume a 16-bit extension
		// word if the displacement byte was zero, to land PC correctly.
		if uint8(ird) == 0 {
			u.sched.EnqueueReadImm(registers.Word, scheduler.DoPrefetch, u.progSpace(), func(uint32) {
				u.finish()
			})
			return nil
		}
		u.finish()
		return nil
	}
	u.branchTarget(ird, u.finishAt)
	return nil
}

// handleDBcc implements "test, decrement, branch": a true condition
// always falls through; otherwise Dn's low word is decremented and the
// branch is taken unless it just wrapped to -1 (spec §4.5).
func handleDBcc(u *Unit, ird uint16, size registers.Size, hasSize bool) error {
	cc := condField(ird)
	reg := ird & 0x7
	if u.rf.SR.Condition(cc) {
		u.sched.EnqueueReadImm(registers.Word, scheduler.DoPrefetch, u.progSpace(), func(uint32) {
			u.finish()
		})
		return nil
	}
	count := int16(u.rf.D[reg].Get(registers.Word)) - 1
	u.rf.D[reg].Set(registers.Word, uint32(uint16(count)))
	base := u.rf.PC.Address()
	u.sched.EnqueueReadImm(registers.Word, scheduler.DoPrefetch, u.progSpace(), func(ext uint32) {
		if count == -1 {
			u.finish()
			return
		}
		target := uint32(int32(base) + int32(int16(uint16(ext))))
		u.finishAt(target)
	})
	return nil
}

func handleScc(u *Unit, ird uint16, size registers.Size, hasSize bool) error {
	cc := condField(ird)
	return u.decodeEA(eaField(ird), registers.Byte, ea.NoRead, func(op ea.Operand) {
		var val uint32
		if u.rf.SR.Condition(cc) {
			val = 0xFF
		}
		u.writeBack(op, val, u.finish)
	})
}

func handleJMP(u *Unit, ird uint16, size registers.Size, hasSize bool) error {
	return u.decodeEA(eaField(ird), registers.Long, ea.NoRead, func(op ea.Operand) {
		u.finishAt(op.Addr)
	})
}

func handleJSR(u *Unit, ird uint16, size registers.Size, hasSize bool) error {
	return u.decodeEA(eaField(ird), registers.Long, ea.NoRead, func(op ea.Operand) {
		target := op.Addr
		ret := u.rf.PC.Address()
		u.sched.EnqueuePush(ret, registers.Long, 0, u.dataSpace())
		u.sched.EnqueueCall(func() {
			u.finishAt(target)
		})
	})
}

func handleRTS(u *Unit, ird uint16, size registers.Size, hasSize bool) error {
	u.popLong(func(pc uint32) {
		u.finishAt(pc)
	})
	return nil
}

// handleRTE restores SR then PC from the supervisor stack. This core
// models the plain three-word MC68000 exception frame (SR word plus a
// long PC); it does not
// attempt to unwind the extra information words a group-0 (bus/address
// error) frame carries, matching real 68000 behaviour for every other
// exception kind's frame.
func handleRTE(u *Unit, ird uint16, size registers.Size, hasSize bool) error {
	u.sched.EnqueueRead(u.rf.GetA7(), registers.Word, u.dataSpace(), func(sr uint32) {
		u.rf.SetA7(u.rf.GetA7() + 2)
		u.rf.SetSR(alu.RTE(uint16(sr)))
		u.popLong(func(pc uint32) {
			u.finishAt(pc)
		})
	})
	return nil
}

// handleRTR restores only the condition codes (low byte of the popped
// word; the system byte is left untouched) then PC, per spec §4.5 -
// the user-mode counterpart to RTE.
func handleRTR(u *Unit, ird uint16, size registers.Size, hasSize bool) error {
	u.sched.EnqueueRead(u.rf.GetA7(), registers.Word, u.dataSpace(), func(ccr uint32) {
		u.rf.SetA7(u.rf.GetA7() + 2)
		u.rf.SetSR(alu.MoveToCCR(uint8(ccr), u.rf.SR.Value()))
		u.popLong(func(pc uint32) {
			u.finishAt(pc)
		})
	})
	return nil
}

func (u *Unit) popLong(onComplete func(val uint32)) {
	addr := u.rf.GetA7()
	u.rf.SetA7(addr + 4)
	u.sched.EnqueueRead(addr, registers.Long, u.dataSpace(), onComplete)
}
