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

package alu

import "github.com/segacore/m68k/hardware/cpu/registers"

// Mulu multiplies two unsigned words into a 32-bit result. C and V are
// always cleared; N/Z are taken from the full 32-bit product.
func Mulu(a, b uint32, sr *registers.StatusRegister) uint32 {
	res := (a & 0xFFFF) * (b & 0xFFFF)
	sr.Carry = false
	sr.Overflow = false
	setNZ(sr, res, registers.Long)
	return res
}

// Muls multiplies two signed words into a 32-bit result.
func Muls(a, b uint32, sr *registers.StatusRegister) uint32 {
	av := int32(int16(uint16(a)))
	bv := int32(int16(uint16(b)))
	res := uint32(av * bv)
	sr.Carry = false
	sr.Overflow = false
	setNZ(sr, res, registers.Long)
	return res
}

// Divu divides a 32-bit dest by a 16-bit src, packing a 16-bit remainder
// in the high word and a 16-bit quotient in the low word. Per spec
// §4.7, overflow sets V and leaves dest unchanged; divide-by-zero is
// the caller's responsibility to detect before calling Divu.
func Divu(dest, src uint32, sr *registers.StatusRegister) uint32 {
	srcVal := uint16(src)
	sr.Carry = false

	if uint16(dest>>16) >= srcVal {
		sr.Overflow = true
		return dest
	}

	// The quotient of a 32-bit dest against a 16-bit divisor that didn't
	// overflow always fits in 16 bits; both results are computed in the
	// dest's full 32-bit width.
	remainder := uint16(dest % uint32(srcVal))
	quotient := uint16(dest / uint32(srcVal))

	sr.Overflow = false
	setNZ(sr, uint32(quotient), registers.Word)
	return uint32(remainder)<<16 | uint32(quotient)
}

// Divs mirrors Divu for signed operands.
func Divs(dest, src uint32, sr *registers.StatusRegister) uint32 {
	destVal := int32(dest)
	srcVal := int16(uint16(src))
	sr.Carry = false

	res := destVal / int32(srcVal)
	if res > 0x7FFF || res < -0x8000 {
		sr.Overflow = true
		return dest
	}

	remainder := int16(destVal % int32(srcVal))
	quotient := int16(res)

	sr.Overflow = false
	setNZ(sr, uint32(uint16(quotient)), registers.Word)
	return uint32(uint16(remainder))<<16 | uint32(uint16(quotient))
}
