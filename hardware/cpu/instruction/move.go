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
	register([]opcodes.Kind{opcodes.MOVE}, handleMOVE)
	register([]opcodes.Kind{opcodes.MOVEA}, handleMOVEA)
	register([]opcodes.Kind{opcodes.MOVEQ}, handleMOVEQ)
	register([]opcodes.Kind{opcodes.MOVEfromSR}, handleMOVEfromSR)
	register([]opcodes.Kind{opcodes.MOVEtoSR}, handleMOVEtoSR)
	register([]opcodes.Kind{opcodes.MOVEtoCCR}, handleMOVEtoCCR)
	register([]opcodes.Kind{opcodes.MOVEUSP}, handleMOVEUSP)
	register([]opcodes.Kind{opcodes.LEA}, handleLEA)
	register([]opcodes.Kind{opcodes.PEA}, handlePEA)
	register([]opcodes.Kind{opcodes.MOVEM}, handleMOVEM)
	register([]opcodes.Kind{opcodes.MOVEP}, handleMOVEP)
}

// moveSize decodes MOVE/MOVEA's own size encoding out of ird bits
// 13-12: 01 byte, 11 word, 10 long - a different bit position and
// mapping than every other instruction's `sz` field (spec §4.4), which
// is why opcodes.Decode reports no size for these three patterns and
// every MOVE-family handler derives it here instead.
func moveSize(ird uint16) registers.Size {
	switch (ird >> 12) & 0x3 {
	case 0b01:
		return registers.Byte
	case 0b10:
		return registers.Long
	default:
		return registers.Word
	}
}

// moveDestField rebuilds MOVE's destination 6-bit EA field from its
// split encoding: mode in bits 8-6, register in bits 11-9 (the reverse
// order of a normal EA field, and spread across the opcode rather than
// packed together).
func moveDestField(ird uint16) uint8 {
	mode := uint8((ird >> 6) & 0x7)
	reg := uint8((ird >> 9) & 0x7)
	return mode<<3 | reg
}

func handleMOVE(u *Unit, ird uint16, size registers.Size, hasSize bool) error {
	size = moveSize(ird)
	dest := moveDestField(ird)
	return u.decodeEA(eaField(ird), size, ea.None, func(srcOp ea.Operand) {
		val := alu.Move(u.operandValue(srcOp), size, &u.rf.SR)
		u.decodeEA(dest, size, ea.NoRead, func(destOp ea.Operand) {
			u.writeBack(destOp, val, u.finish)
		})
	})
}

func handleMOVEA(u *Unit, ird uint16, size registers.Size, hasSize bool) error {
	size = moveSize(ird)
	reg := int((ird >> 9) & 0x7)
	return u.decodeEA(eaField(ird), size, ea.None, func(op ea.Operand) {
		res := alu.MoveA(u.operandValue(op), size)
		u.setAddrReg(reg, registers.Long, res)
		u.finish()
	})
}

func handleMOVEQ(u *Unit, ird uint16, size registers.Size, hasSize bool) error {
	reg := int(regField(ird))
	data := moveqData(ird)
	res := alu.Move(data, registers.Long, &u.rf.SR)
	u.rf.D[reg].SetLong(res)
	u.finish()
	return nil
}

func handleMOVEfromSR(u *Unit, ird uint16, size registers.Size, hasSize bool) error {
	return u.decodeEA(eaField(ird), registers.Word, ea.None, func(op ea.Operand) {
		u.writeBack(op, uint32(u.rf.SR.Value()), u.finish)
	})
}

func handleMOVEtoSR(u *Unit, ird uint16, size registers.Size, hasSize bool) error {
	return u.decodeEA(eaField(ird), registers.Word, ea.None, func(op ea.Operand) {
		val := u.operandValue(op)
		u.rf.SetSR(alu.MoveToSR(uint16(val)))
		u.finish()
	})
}

func handleMOVEtoCCR(u *Unit, ird uint16, size registers.Size, hasSize bool) error {
	return u.decodeEA(eaField(ird), registers.Word, ea.None, func(op ea.Operand) {
		val := u.operandValue(op)
		u.rf.SetSR(alu.MoveToCCR(uint8(val), u.rf.SR.Value()))
		u.finish()
	})
}

// handleMOVEUSP moves between an address register and the shadow USP.
// Bit 3 selects direction: clear moves An into USP, set moves USP into
// An (grounded on operations.hpp's move_usp, which tests the same bit).
func handleMOVEUSP(u *Unit, ird uint16, size registers.Size, hasSize bool) error {
	reg := int(ird & 0x7)
	if ird&(1<<3) != 0 {
		u.setAddrReg(reg, registers.Long, u.rf.USP())
	} else {
		var val uint32
		if reg == 7 {
			val = u.rf.GetA7()
		} else {
			val = u.rf.A(reg).Long()
		}
		u.rf.SetUSP(val)
	}
	u.finish()
	return nil
}

func handleLEA(u *Unit, ird uint16, size registers.Size, hasSize bool) error {
	reg := int(regField(ird))
	return u.decodeEA(eaField(ird), registers.Long, ea.NoRead, func(op ea.Operand) {
		u.setAddrReg(reg, registers.Long, op.Addr)
		u.finish()
	})
}

func handlePEA(u *Unit, ird uint16, size registers.Size, hasSize bool) error {
	return u.decodeEA(eaField(ird), registers.Long, ea.NoRead, func(op ea.Operand) {
		u.sched.EnqueuePush(op.Addr, registers.Long, 0, u.dataSpace())
		u.sched.EnqueueCall(u.finish)
	})
}

// movemReg names one register a MOVEM bitmask bit selects: D0-D7 for
// num 0-7 with isAddr false, A0-A7 for num 0-7 with isAddr true.
func movemBit(i int, reversed bool) (isAddr bool, num int) {
	if !reversed {
		if i < 8 {
			return false, i
		}
		return true, i - 8
	}
	if i < 8 {
		return true, 7 - i
	}
	return false, 15 - i
}

func (u *Unit) movemGet(isAddr bool, num int) uint32 {
	if isAddr {
		if num == 7 {
			return u.rf.GetA7()
		}
		return u.rf.A(num).Long()
	}
	return u.rf.D[num].Long()
}

func (u *Unit) movemSet(isAddr bool, num int, val uint32) {
	if isAddr {
		if num == 7 {
			u.rf.SetA7(val)
			return
		}
		u.rf.A(num).SetLong(val)
		return
	}
	u.rf.D[num].SetLong(val)
}

// handleMOVEM transfers the registers named by a following bitmask
// word to or from memory (spec §4.5). Predecrement addressing reverses
// the bitmask's register order (A7 first, down to D0) and updates An
// itself; postincrement reads in the normal D0-A7 order and likewise
// updates An; every other addressing mode is a fixed base pointer that
// never changes a register.
func handleMOVEM(u *Unit, ird uint16, size registers.Size, hasSize bool) error {
	toRegs := ird&(1<<10) != 0
	xferSize := registers.Word
	if ird&(1<<6) != 0 {
		xferSize = registers.Long
	}
	eaF := eaField(ird)
	mode := ea.DecodeMode(eaF)
	space := u.dataSpace()

	u.sched.EnqueueReadImm(registers.Word, scheduler.DoPrefetch, u.progSpace(), func(mask uint32) {
		switch mode {
		case ea.PreDec:
			an := int(eaF & 0x7)
			addr := u.movemGet(true, an)
			for i := 0; i < 16; i++ {
				if mask&(1<<uint(i)) == 0 {
					continue
				}
				isAddr, num := movemBit(i, true)
				addr -= xferSize.Bytes()
				val := u.movemGet(isAddr, num)
				u.sched.EnqueueWrite(addr, val, xferSize, space, scheduler.MSWFirst)
			}
			u.sched.EnqueueCall(func() {
				u.movemSet(true, an, addr)
				u.finish()
			})
		case ea.PostInc:
			an := int(eaF & 0x7)
			addr := u.movemGet(true, an)
			for i := 0; i < 16; i++ {
				if mask&(1<<uint(i)) == 0 {
					continue
				}
				isAddr, num := movemBit(i, false)
				a := addr
				u.sched.EnqueueRead(a, xferSize, space, func(v uint32) {
					u.movemSet(isAddr, num, signExtendIfWord(v, xferSize))
				})
				addr += xferSize.Bytes()
			}
			u.sched.EnqueueCall(func() {
				u.movemSet(true, an, addr)
				u.finish()
			})
		default:
			u.decodeEA(eaF, xferSize, ea.NoRead, func(op ea.Operand) {
				addr := op.Addr
				for i := 0; i < 16; i++ {
					if mask&(1<<uint(i)) == 0 {
						continue
					}
					isAddr, num := movemBit(i, false)
					a := addr
					if toRegs {
						u.sched.EnqueueRead(a, xferSize, space, func(v uint32) {
							u.movemSet(isAddr, num, signExtendIfWord(v, xferSize))
						})
					} else {
						u.sched.EnqueueWrite(a, u.movemGet(isAddr, num), xferSize, space, scheduler.MSWFirst)
					}
					addr += xferSize.Bytes()
				}
				u.sched.EnqueueCall(u.finish)
			})
		}
	})
	return nil
}

func signExtendIfWord(v uint32, size registers.Size) uint32 {
	if size == registers.Word {
		return uint32(int32(int16(uint16(v))))
	}
	return v
}

// handleMOVEP transfers 2 or 4 bytes between a data register and
// memory at alternating byte addresses starting at (d16,An), the
// format MOVEP uses to talk to 8-bit peripherals over a 16-bit bus
// (spec §4.5). Bit 7 selects long over word; bit 6 selects
// register-to-memory over memory-to-register.
func handleMOVEP(u *Unit, ird uint16, size registers.Size, hasSize bool) error {
	dreg := int(regField(ird))
	an := int(ird & 0x7)
	toMemory := ird&(1<<6) != 0
	xferSize := registers.Word
	if ird&(1<<7) != 0 {
		xferSize = registers.Long
	}
	space := u.dataSpace()

	u.sched.EnqueueReadImm(registers.Word, scheduler.DoPrefetch, u.progSpace(), func(d16 uint32) {
		base := u.rf.A(an).Long()
		if an == 7 {
			base = u.rf.GetA7()
		}
		addr := uint32(int32(base) + int32(int16(uint16(d16))))

		nBytes := 2
		if xferSize == registers.Long {
			nBytes = 4
		}
		if toMemory {
			regVal := u.rf.D[dreg].Get(xferSize)
			for i := 0; i < nBytes; i++ {
				shift := uint(8 * (nBytes - 1 - i))
				b := uint32((regVal >> shift) & 0xFF)
				u.sched.EnqueueWrite(addr+uint32(2*i), b, registers.Byte, space, scheduler.MSWFirst)
			}
			u.sched.EnqueueCall(u.finish)
			return
		}
		result := uint32(0)
		for i := 0; i < nBytes; i++ {
			idx := i
			u.sched.EnqueueRead(addr+uint32(2*i), registers.Byte, space, func(v uint32) {
				shift := uint(8 * (nBytes - 1 - idx))
				result |= (v & 0xFF) << shift
			})
		}
		u.sched.EnqueueCall(func() {
			u.rf.D[dreg].Set(xferSize, result)
			u.finish()
		})
	})
	return nil
}
