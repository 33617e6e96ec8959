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
)

func init() {
	register([]opcodes.Kind{opcodes.ASLRreg}, handleShiftReg(alu.Asl, alu.Asr))
	register([]opcodes.Kind{opcodes.LSLRreg}, handleShiftReg(alu.Lsl, alu.Lsr))
	register([]opcodes.Kind{opcodes.ROXLRreg}, handleShiftReg(alu.Roxl, alu.Roxr))
	register([]opcodes.Kind{opcodes.ROLRreg}, handleShiftReg(alu.Rol, alu.Ror))

	register([]opcodes.Kind{opcodes.ASLRmem}, handleShiftMem(alu.Asl, alu.Asr))
	register([]opcodes.Kind{opcodes.LSLRmem}, handleShiftMem(alu.Lsl, alu.Lsr))
	register([]opcodes.Kind{opcodes.ROXLRmem}, handleShiftMem(alu.Roxl, alu.Roxr))
	register([]opcodes.Kind{opcodes.ROLRmem}, handleShiftMem(alu.Rol, alu.Ror))
}

type shiftFn func(a uint32, count uint32, size registers.Size, sr *registers.StatusRegister) uint32

// shiftCount resolves the register-form shift/rotate count: bit 5
// selects an immediate 1-8 count packed into bits 11-9 (0 meaning 8) or
// a register count taken from the data register bits 11-9 name, used
// unmasked since every alu shift/rotate function takes count mod 64
// itself.
func shiftCount(ird uint16, rf *registers.RegisterFile) uint32 {
	reg := (ird >> 9) & 0x7
	if ird&(1<<5) != 0 {
		return rf.D[reg].Get(registers.Long)
	}
	if reg == 0 {
		return 8
	}
	return uint32(reg)
}

// handleShiftReg builds the register-destination shift/rotate handler
// shared by ASL/ASR, LSL/LSR, ROXL/ROXR and ROL/ROR: bit 8 selects
// direction between the two alu functions supplied.
func handleShiftReg(left, right shiftFn) handlerFunc {
	return func(u *Unit, ird uint16, size registers.Size, hasSize bool) error {
		reg := ird & 0x7
		count := shiftCount(ird, u.rf)
		val := u.rf.D[reg].Get(size)
		var res uint32
		if ird&(1<<8) != 0 {
			res = left(val, count, size, &u.rf.SR)
		} else {
			res = right(val, count, size, &u.rf.SR)
		}
		u.rf.D[reg].Set(size, res)
		u.finish()
		return nil
	}
}

// handleShiftMem builds the memory-operand form: always a single word
// shift/rotate of a <ea>, never a data register, per spec §4.5.
func handleShiftMem(left, right shiftFn) handlerFunc {
	return func(u *Unit, ird uint16, size registers.Size, hasSize bool) error {
		return u.decodeEA(eaField(ird), registers.Word, ea.None, func(op ea.Operand) {
			val := u.operandValue(op)
			var res uint32
			if ird&(1<<8) != 0 {
				res = left(val, 1, registers.Word, &u.rf.SR)
			} else {
				res = right(val, 1, registers.Word, &u.rf.SR)
			}
			u.writeBack(op, res, u.finish)
		})
	}
}
