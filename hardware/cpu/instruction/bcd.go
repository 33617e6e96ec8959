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
	register([]opcodes.Kind{opcodes.ABCD}, handleBCDPair(alu.Abcd))
	register([]opcodes.Kind{opcodes.SBCD}, handleBCDPair(alu.Sbcd))
	register([]opcodes.Kind{opcodes.NBCD}, handleNBCD)
}

// handleBCDPair builds ABCD/SBCD: the same register-direct-or-
// predecrement-memory shape as ADDX/SUBX (see handleAddSubX), always
// at byte size.
func handleBCDPair(fn func(src, dest uint32, sr *registers.StatusRegister) uint32) handlerFunc {
	return func(u *Unit, ird uint16, size registers.Size, hasSize bool) error {
		rx := regField(ird)
		ry := uint8(ird & 0x7)
		if ird&(1<<3) == 0 {
			src := u.rf.D[ry].Get(registers.Byte)
			dest := u.rf.D[rx].Get(registers.Byte)
			res := fn(src, dest, &u.rf.SR)
			u.rf.D[rx].Set(registers.Byte, res)
			u.finish()
			return nil
		}
		return u.decodeEA(predecField(ry), registers.Byte, ea.None, func(srcOp ea.Operand) {
			u.decodeEA(predecField(rx), registers.Byte, ea.None, func(destOp ea.Operand) {
				src := u.operandValue(srcOp)
				dest := u.operandValue(destOp)
				res := fn(src, dest, &u.rf.SR)
				u.writeBack(destOp, res, u.finish)
			})
		})
	}
}

func handleNBCD(u *Unit, ird uint16, size registers.Size, hasSize bool) error {
	return u.decodeEA(eaField(ird), registers.Byte, ea.None, func(op ea.Operand) {
		val := u.operandValue(op)
		res := alu.Nbcd(val, &u.rf.SR)
		u.writeBack(op, res, u.finish)
	})
}
