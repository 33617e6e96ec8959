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
)

func init() {
	register([]opcodes.Kind{opcodes.MULU}, handleMul(alu.Mulu))
	register([]opcodes.Kind{opcodes.MULS}, handleMul(alu.Muls))
	register([]opcodes.Kind{opcodes.DIVU}, handleDiv(alu.Divu))
	register([]opcodes.Kind{opcodes.DIVS}, handleDiv(alu.Divs))
}

func handleMul(fn func(a, b uint32, sr *registers.StatusRegister) uint32) handlerFunc {
	return func(u *Unit, ird uint16, size registers.Size, hasSize bool) error {
		reg := int(regField(ird))
		return u.decodeEA(eaField(ird), registers.Word, ea.None, func(op ea.Operand) {
			src := u.operandValue(op)
			dest := u.rf.D[reg].Get(registers.Word)
			res := fn(src, dest, &u.rf.SR)
			u.rf.D[reg].SetLong(res)
			u.finish()
		})
	}
}

// handleDiv builds DIVU/DIVS: a zero divisor traps (spec §3's
// DivideByZero) instead of calling into the alu, which documents
// division by zero as the caller's responsibility to exclude.
func handleDiv(fn func(dest, src uint32, sr *registers.StatusRegister) uint32) handlerFunc {
	return func(u *Unit, ird uint16, size registers.Size, hasSize bool) error {
		reg := int(regField(ird))
		return u.decodeEA(eaField(ird), registers.Word, ea.None, func(op ea.Operand) {
			src := u.operandValue(op)
			if uint16(src) == 0 {
				u.man.Raise(exception.DivideByZero)
				return
			}
			dest := u.rf.D[reg].Get(registers.Long)
			res := fn(dest, src, &u.rf.SR)
			u.rf.D[reg].SetLong(res)
			u.finish()
		})
	}
}
