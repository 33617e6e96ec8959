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
	"github.com/segacore/m68k/hardware/cpu/exception"
	"github.com/segacore/m68k/hardware/cpu/opcodes"
	"github.com/segacore/m68k/hardware/cpu/registers"
	"github.com/segacore/m68k/hardware/cpu/scheduler"
)

func init() {
	register([]opcodes.Kind{opcodes.TRAP}, handleTRAP)
	register([]opcodes.Kind{opcodes.TRAPV}, handleTRAPV)
	register([]opcodes.Kind{opcodes.CHK}, handleCHK)
	register([]opcodes.Kind{opcodes.LINK}, handleLINK)
	register([]opcodes.Kind{opcodes.UNLK}, handleUNLK)
	register([]opcodes.Kind{opcodes.STOP}, handleSTOP)
	register([]opcodes.Kind{opcodes.RESET}, handleRESET)
	register([]opcodes.Kind{opcodes.EXT}, handleEXT)
	register([]opcodes.Kind{opcodes.SWAP}, handleSWAP)
	register([]opcodes.Kind{opcodes.TAS}, handleTAS)
}

func handleTRAP(u *Unit, ird uint16, size registers.Size, hasSize bool) error {
	vector := uint8(32 + (ird & 0xF))
	u.man.RaiseTrap(vector)
	return nil
}

func handleTRAPV(u *Unit, ird uint16, size registers.Size, hasSize bool) error {
	if u.rf.SR.Overflow {
		u.man.Raise(exception.TrapV)
		return nil
	}
	u.finish()
	return nil
}

func handleCHK(u *Unit, ird uint16, size registers.Size, hasSize bool) error {
	reg := int(regField(ird))
	return u.decodeEA(eaField(ird), registers.Word, ea.None, func(op ea.Operand) {
		src := u.operandValue(op)
		dest := u.rf.D[reg].Get(registers.Word)
		if alu.Chk(src, dest, &u.rf.SR) {
			u.man.Raise(exception.Chk)
			return
		}
		u.finish()
	})
}

func handleLINK(u *Unit, ird uint16, size registers.Size, hasSize bool) error {
	reg := int(ird & 0x7)
	var anVal uint32
	if reg == 7 {
		anVal = u.rf.GetA7()
	} else {
		anVal = u.rf.A(reg).Long()
	}
	u.sched.EnqueuePush(anVal, registers.Long, 0, u.dataSpace())
	u.sched.EnqueueReadImm(registers.Word, scheduler.DoPrefetch, u.progSpace(), func(disp uint32) {
		newSP := u.rf.GetA7()
		u.setAddrReg(reg, registers.Long, newSP)
		u.rf.SetA7(uint32(int32(newSP) + int32(int16(uint16(disp)))))
		u.finish()
	})
	return nil
}

func handleUNLK(u *Unit, ird uint16, size registers.Size, hasSize bool) error {
	reg := int(ird & 0x7)
	var anVal uint32
	if reg == 7 {
		anVal = u.rf.GetA7()
	} else {
		anVal = u.rf.A(reg).Long()
	}
	u.rf.SetA7(anVal)
	u.popLong(func(v uint32) {
		u.setAddrReg(reg, registers.Long, v)
		u.finish()
	})
	return nil
}

// handleSTOP loads SR from the immediate word then halts dispatch; the
// unit stays parked until something clears u.stopped, which the CPU top
// level does from the same abort() hook that resumes a unit aborted by a
// mid-instruction exception (spec §4.6).
func handleSTOP(u *Unit, ird uint16, size registers.Size, hasSize bool) error {
	u.sched.EnqueueReadImm(registers.Word, scheduler.DoPrefetch, u.progSpace(), func(v uint32) {
		u.rf.SetSR(uint16(v))
		u.stopped = true
		u.state = Idle
	})
	return nil
}

// handleRESET waits 124 cycles, the MC68000 user's manual's RESET
// instruction timing, then continues; no bus pin is driven during the
// wait, and it never touches the CPU's own registers.
func handleRESET(u *Unit, ird uint16, size registers.Size, hasSize bool) error {
	u.sched.EnqueueWait(124)
	u.sched.EnqueueCall(u.finish)
	return nil
}

// handleEXT covers both of EXT's two opcode patterns (word and long);
// bit 9 tells them apart since opcodes.Decode reports a single Kind for
// both.
func handleEXT(u *Unit, ird uint16, size registers.Size, hasSize bool) error {
	reg := ird & 0x7
	if ird&(1<<9) != 0 {
		val := u.rf.D[reg].Get(registers.Word)
		res := alu.Ext(val, registers.Word, &u.rf.SR)
		u.rf.D[reg].SetLong(res)
	} else {
		val := u.rf.D[reg].Get(registers.Byte)
		res := alu.Ext(val, registers.Byte, &u.rf.SR)
		u.rf.D[reg].Set(registers.Word, res)
	}
	u.finish()
	return nil
}

func handleSWAP(u *Unit, ird uint16, size registers.Size, hasSize bool) error {
	reg := ird & 0x7
	res := alu.Swap(u.rf.D[reg].Long(), &u.rf.SR)
	u.rf.D[reg].SetLong(res)
	u.finish()
	return nil
}

// handleTAS uses the scheduler's indivisible read-modify-write cycle
// for a memory destination (spec §4.2's Rmw primitive exists precisely
// for this instruction); a register destination never touches the bus
// and is just a normal read/set.
func handleTAS(u *Unit, ird uint16, size registers.Size, hasSize bool) error {
	return u.decodeEA(eaField(ird), registers.Byte, ea.None, func(op ea.Operand) {
		if op.Kind == ea.KindPointer {
			u.sched.EnqueueRmw(op.Addr, u.dataSpace(), func(v uint16) uint16 {
				return uint16(alu.Tas(uint32(v), &u.rf.SR))
			})
			u.sched.EnqueueCall(u.finish)
			return
		}
		res := alu.Tas(u.operandValue(op), &u.rf.SR)
		u.writeBack(op, res, u.finish)
	})
}
