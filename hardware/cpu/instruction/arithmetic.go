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
	register([]opcodes.Kind{opcodes.ADD}, handleAddSubToOrFromReg(alu.Add, false))
	register([]opcodes.Kind{opcodes.SUB}, handleAddSubToOrFromReg(alu.Sub, true))
	register([]opcodes.Kind{opcodes.AND}, handleLogicToOrFromReg(alu.And))
	register([]opcodes.Kind{opcodes.OR}, handleLogicToOrFromReg(alu.Or))
	register([]opcodes.Kind{opcodes.EOR}, handleEor)

	register([]opcodes.Kind{opcodes.ADDA}, handleADDA)
	register([]opcodes.Kind{opcodes.SUBA}, handleSUBA)
	register([]opcodes.Kind{opcodes.CMPA}, handleCMPA)

	register([]opcodes.Kind{opcodes.ADDQ}, handleQuick(alu.AddQuick))
	register([]opcodes.Kind{opcodes.SUBQ}, handleQuick(alu.SubQuick))

	register([]opcodes.Kind{opcodes.ADDX}, handleAddSubX(alu.AddX))
	register([]opcodes.Kind{opcodes.SUBX}, handleAddSubX(alu.SubX))

	register([]opcodes.Kind{opcodes.ADDI}, handleImmToEA(func(imm, dest uint32, size registers.Size, sr *registers.StatusRegister) uint32 {
		return alu.Add(imm, dest, size, sr)
	}))
	register([]opcodes.Kind{opcodes.SUBI}, handleImmToEA(func(imm, dest uint32, size registers.Size, sr *registers.StatusRegister) uint32 {
		return alu.Sub(dest, imm, size, sr)
	}))
	register([]opcodes.Kind{opcodes.ANDI}, handleImmToEA(func(imm, dest uint32, size registers.Size, sr *registers.StatusRegister) uint32 {
		return alu.And(imm, dest, size, sr)
	}))
	register([]opcodes.Kind{opcodes.ORI}, handleImmToEA(func(imm, dest uint32, size registers.Size, sr *registers.StatusRegister) uint32 {
		return alu.Or(imm, dest, size, sr)
	}))
	register([]opcodes.Kind{opcodes.EORI}, handleImmToEA(func(imm, dest uint32, size registers.Size, sr *registers.StatusRegister) uint32 {
		return alu.Eor(imm, dest, size, sr)
	}))
	register([]opcodes.Kind{opcodes.CMPI}, handleCMPI)

	register([]opcodes.Kind{opcodes.ANDItoCCR}, handleImmToCCR(alu.AndiToCCR))
	register([]opcodes.Kind{opcodes.ORItoCCR}, handleImmToCCR(alu.OrToCCR))
	register([]opcodes.Kind{opcodes.EORItoCCR}, handleImmToCCR(alu.EorToCCR))
	register([]opcodes.Kind{opcodes.ANDItoSR}, handleImmToSR(alu.AndiToSR))
	register([]opcodes.Kind{opcodes.ORItoSR}, handleImmToSR(alu.OrToSR))
	register([]opcodes.Kind{opcodes.EORItoSR}, handleImmToSR(alu.EorToSR))

	register([]opcodes.Kind{opcodes.CMP}, handleCMP)
	register([]opcodes.Kind{opcodes.CMPM}, handleCMPM)

	register([]opcodes.Kind{opcodes.NEG}, handleUnary(alu.Neg))
	register([]opcodes.Kind{opcodes.NEGX}, handleUnary(alu.NegX))
	register([]opcodes.Kind{opcodes.NOT}, handleUnary(alu.Not))
	register([]opcodes.Kind{opcodes.CLR}, handleCLR)
	register([]opcodes.Kind{opcodes.TST}, handleTST)
	register([]opcodes.Kind{opcodes.NOP}, handleNOP)
}

// handleAddSubToOrFromReg builds the ADD/SUB handler: opmode bit 2
// (ird bit 8) selects direction - clear means <ea>+Dn->Dn, set means
// Dn+<ea>-><ea>. subtractLike swaps the ALU argument order SUB needs
// (Dn - <ea> rather than <ea> - Dn) when the register is the minuend.
func handleAddSubToOrFromReg(fn func(a, b uint32, size registers.Size, sr *registers.StatusRegister) uint32, subtractLike bool) handlerFunc {
	return func(u *Unit, ird uint16, size registers.Size, hasSize bool) error {
		reg := int(regField(ird))
		toMemory := opmodeField(ird)&0x4 != 0
		return u.decodeEA(eaField(ird), size, ea.None, func(op ea.Operand) {
			eaVal := u.operandValue(op)
			regVal := u.rf.D[reg].Get(size)
			if toMemory {
				var res uint32
				if subtractLike {
					res = fn(eaVal, regVal, size, &u.rf.SR)
				} else {
					res = fn(regVal, eaVal, size, &u.rf.SR)
				}
				u.writeBack(op, res, u.finish)
				return
			}
			var res uint32
			if subtractLike {
				res = fn(regVal, eaVal, size, &u.rf.SR)
			} else {
				res = fn(eaVal, regVal, size, &u.rf.SR)
			}
			u.rf.D[reg].Set(size, res)
			u.finish()
		})
	}
}

func handleLogicToOrFromReg(fn func(a, b uint32, size registers.Size, sr *registers.StatusRegister) uint32) handlerFunc {
	return func(u *Unit, ird uint16, size registers.Size, hasSize bool) error {
		reg := int(regField(ird))
		toMemory := opmodeField(ird)&0x4 != 0
		return u.decodeEA(eaField(ird), size, ea.None, func(op ea.Operand) {
			eaVal := u.operandValue(op)
			regVal := u.rf.D[reg].Get(size)
			res := fn(eaVal, regVal, size, &u.rf.SR)
			if toMemory {
				u.writeBack(op, res, u.finish)
				return
			}
			u.rf.D[reg].Set(size, res)
			u.finish()
		})
	}
}

// handleEor is EOR's own handler rather than an instance of
// handleLogicToOrFromReg: unlike AND/OR, EOR only ever writes to the
// <ea> operand (register-direct EOR is CMPM's overlap partner and
// never occurs), so its opmode encodes size directly with no direction
// bit to test.
func handleEor(u *Unit, ird uint16, size registers.Size, hasSize bool) error {
	reg := int(regField(ird))
	return u.decodeEA(eaField(ird), size, ea.None, func(op ea.Operand) {
		eaVal := u.operandValue(op)
		regVal := u.rf.D[reg].Get(size)
		res := alu.Eor(eaVal, regVal, size, &u.rf.SR)
		u.writeBack(op, res, u.finish)
	})
}

// adaSize recovers ADDA/SUBA/CMPA's word-vs-long selector from ird bit
// 8, since opcodes.Decode reports no size for these patterns (their
// `sz` positions are hardcoded literal 1s, not a real size field).
func adaSize(ird uint16) registers.Size {
	if ird&(1<<8) != 0 {
		return registers.Long
	}
	return registers.Word
}

func handleADDA(u *Unit, ird uint16, size registers.Size, hasSize bool) error {
	size = adaSize(ird)
	reg := int(regField(ird))
	return u.decodeEA(eaField(ird), size, ea.None, func(op ea.Operand) {
		src := u.operandValue(op)
		dest := u.rf.A(reg).Long()
		if reg == 7 {
			dest = u.rf.GetA7()
		}
		res := alu.AddA(src, dest, size)
		u.setAddrReg(reg, registers.Long, res)
		u.finish()
	})
}

func handleSUBA(u *Unit, ird uint16, size registers.Size, hasSize bool) error {
	size = adaSize(ird)
	reg := int(regField(ird))
	return u.decodeEA(eaField(ird), size, ea.None, func(op ea.Operand) {
		src := u.operandValue(op)
		dest := u.rf.A(reg).Long()
		if reg == 7 {
			dest = u.rf.GetA7()
		}
		res := alu.SubA(src, dest, size)
		u.setAddrReg(reg, registers.Long, res)
		u.finish()
	})
}

func handleCMPA(u *Unit, ird uint16, size registers.Size, hasSize bool) error {
	size = adaSize(ird)
	reg := int(regField(ird))
	return u.decodeEA(eaField(ird), size, ea.None, func(op ea.Operand) {
		src := u.operandValue(op)
		dest := u.rf.A(reg).Long()
		if reg == 7 {
			dest = u.rf.GetA7()
		}
		alu.CmpA(src, dest, size, &u.rf.SR)
		u.finish()
	})
}

// handleQuick builds ADDQ/SUBQ: fn is alu.AddQuick or alu.SubQuick.
func handleQuick(fn func(src, dest uint32, size registers.Size, sr *registers.StatusRegister, destIsAddrReg bool) uint32) handlerFunc {
	return func(u *Unit, ird uint16, size registers.Size, hasSize bool) error {
		data := quickData(ird)
		return u.decodeEA(eaField(ird), size, ea.None, func(op ea.Operand) {
			val := u.operandValue(op)
			destIsA := op.Kind == ea.KindAddrReg
			res := fn(data, val, size, &u.rf.SR, destIsA)
			u.writeBack(op, res, u.finish)
		})
	}
}

// predecField and postIncField synthesize a 6-bit EA field for the
// implicit -(An)/(An)+ operands ADDX/SUBX/CMPM address directly out of
// their own register bits rather than a general EA field.
func predecField(reg uint8) uint8  { return 0b100<<3 | reg }
func postIncField(reg uint8) uint8 { return 0b011<<3 | reg }

// handleAddSubX builds ADDX/SUBX: bit 3 selects data-register-direct
// (Dy,Dx) or predecrement-memory (-(Ay),-(Ax)) form.
func handleAddSubX(fn func(a, b uint32, size registers.Size, sr *registers.StatusRegister) uint32) handlerFunc {
	return func(u *Unit, ird uint16, size registers.Size, hasSize bool) error {
		rx := regField(ird)
		ry := uint8(ird & 0x7)
		if ird&(1<<3) == 0 {
			src := u.rf.D[ry].Get(size)
			dest := u.rf.D[rx].Get(size)
			res := fn(src, dest, size, &u.rf.SR)
			u.rf.D[rx].Set(size, res)
			u.finish()
			return nil
		}
		return u.decodeEA(predecField(ry), size, ea.None, func(srcOp ea.Operand) {
			u.decodeEA(predecField(rx), size, ea.None, func(destOp ea.Operand) {
				src := u.operandValue(srcOp)
				dest := u.operandValue(destOp)
				res := fn(src, dest, size, &u.rf.SR)
				u.writeBack(destOp, res, u.finish)
			})
		})
	}
}

// handleImmToEA builds ADDI/SUBI/ANDI/ORI/EORI: an immediate operand of
// the instruction's own size, read directly (never through the EA
// decoder, since it is never optional here), followed by the <ea>
// decode.
func handleImmToEA(fn func(imm, dest uint32, size registers.Size, sr *registers.StatusRegister) uint32) handlerFunc {
	return func(u *Unit, ird uint16, size registers.Size, hasSize bool) error {
		dest := eaField(ird)
		u.sched.EnqueueReadImm(size, scheduler.DoPrefetch, u.progSpace(), func(imm uint32) {
			u.decodeEA(dest, size, ea.None, func(op ea.Operand) {
				val := u.operandValue(op)
				res := fn(imm, val, size, &u.rf.SR)
				u.writeBack(op, res, u.finish)
			})
		})
		return nil
	}
}

func handleCMPI(u *Unit, ird uint16, size registers.Size, hasSize bool) error {
	dest := eaField(ird)
	u.sched.EnqueueReadImm(size, scheduler.DoPrefetch, u.progSpace(), func(imm uint32) {
		u.decodeEA(dest, size, ea.None, func(op ea.Operand) {
			val := u.operandValue(op)
			alu.Cmp(val, imm, size, &u.rf.SR)
			u.finish()
		})
	})
	return nil
}

func handleImmToCCR(fn func(sr *registers.StatusRegister, src uint8)) handlerFunc {
	return func(u *Unit, ird uint16, size registers.Size, hasSize bool) error {
		u.sched.EnqueueReadImm(registers.Word, scheduler.DoPrefetch, u.progSpace(), func(imm uint32) {
			fn(&u.rf.SR, uint8(imm))
			u.finish()
		})
		return nil
	}
}

func handleImmToSR(fn func(sr *registers.StatusRegister, src uint16)) handlerFunc {
	return func(u *Unit, ird uint16, size registers.Size, hasSize bool) error {
		u.sched.EnqueueReadImm(registers.Word, scheduler.DoPrefetch, u.progSpace(), func(imm uint32) {
			fn(&u.rf.SR, uint16(imm))
			u.finish()
		})
		return nil
	}
}

func handleCMP(u *Unit, ird uint16, size registers.Size, hasSize bool) error {
	reg := int(regField(ird))
	return u.decodeEA(eaField(ird), size, ea.None, func(op ea.Operand) {
		eaVal := u.operandValue(op)
		regVal := u.rf.D[reg].Get(size)
		alu.Cmp(regVal, eaVal, size, &u.rf.SR)
		u.finish()
	})
}

func handleCMPM(u *Unit, ird uint16, size registers.Size, hasSize bool) error {
	ax := regField(ird)
	ay := uint8(ird & 0x7)
	return u.decodeEA(postIncField(ay), size, ea.None, func(srcOp ea.Operand) {
		u.decodeEA(postIncField(ax), size, ea.None, func(dstOp ea.Operand) {
			src := u.operandValue(srcOp)
			dest := u.operandValue(dstOp)
			alu.Cmp(dest, src, size, &u.rf.SR)
			u.finish()
		})
	})
}

func handleUnary(fn func(a uint32, size registers.Size, sr *registers.StatusRegister) uint32) handlerFunc {
	return func(u *Unit, ird uint16, size registers.Size, hasSize bool) error {
		return u.decodeEA(eaField(ird), size, ea.None, func(op ea.Operand) {
			val := u.operandValue(op)
			res := fn(val, size, &u.rf.SR)
			u.writeBack(op, res, u.finish)
		})
	}
}

func handleCLR(u *Unit, ird uint16, size registers.Size, hasSize bool) error {
	return u.decodeEA(eaField(ird), size, ea.None, func(op ea.Operand) {
		res := alu.Clr(&u.rf.SR)
		u.writeBack(op, res, u.finish)
	})
}

func handleTST(u *Unit, ird uint16, size registers.Size, hasSize bool) error {
	return u.decodeEA(eaField(ird), size, ea.None, func(op ea.Operand) {
		val := u.operandValue(op)
		alu.Tst(val, size, &u.rf.SR)
		u.finish()
	})
}

func handleNOP(u *Unit, ird uint16, size registers.Size, hasSize bool) error {
	u.finish()
	return nil
}
