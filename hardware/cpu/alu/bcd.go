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

// Abcd adds two packed-BCD bytes plus X. The algorithm computes the
// binary sum including X, derives a decimal correction factor from the
// carry-out-of-nibble pattern, and re-adds it; X and C both take the
// topmost corrected carry. Z follows the "accumulating" rule (spec
// §4.7): only ever cleared by a nonzero result, never set by a zero
// one, so a chain of byte-wide BCD adds across a multi-byte value
// reports Z correctly for the whole chain. N and V follow the
// documented undocumented behavior of real silicon.
//
// Grounded on the bit-trick form at
// https://gendev.spritesmind.net/forum/viewtopic.php?f=2&t=1964, as
// ported by the original implementation this core is modeled on.
func Abcd(src, dest uint32, sr *registers.StatusRegister) uint32 {
	srcVal := value(src, registers.Byte)
	destVal := value(dest, registers.Byte)

	x := uint8(0)
	if sr.Extend {
		x = 1
	}
	ss := uint8(srcVal) + uint8(destVal) + x

	bc := (uint8(srcVal)&uint8(destVal) | (^ss & uint8(srcVal)) | (^ss & uint8(destVal))) & 0x88
	dc := uint8((((uint16(ss) + 0x66) ^ uint16(ss)) & 0x110) >> 1)
	corf := (bc | dc) - ((bc | dc) >> 2)
	res := ss + corf

	carry := (bc | (ss &^ res)) >> 7 & 1
	sr.Extend = carry != 0
	sr.Carry = carry != 0

	if res != 0 {
		sr.Zero = false
	}
	sr.Negative = negFlag(uint32(res), registers.Byte)
	sr.Overflow = !msb(uint32(ss), registers.Byte) && msb(uint32(res), registers.Byte)

	return uint32(res)
}

// Sbcd subtracts two packed-BCD bytes plus X (dest - src - X), using
// the same bit-trick correction approach as Abcd.
func Sbcd(src, dest uint32, sr *registers.StatusRegister) uint32 {
	srcVal := uint8(value(src, registers.Byte))
	destVal := uint8(value(dest, registers.Byte))

	x := uint8(0)
	if sr.Extend {
		x = 1
	}
	res := destVal - srcVal - x
	msbBefore := res>>7&1 != 0

	bc := ((^destVal & srcVal) | (res &^ destVal) | (res & srcVal)) & 0x88
	corf := bc - (bc >> 2)
	rr := res - corf

	carry := (bc | (^res & rr)) >> 7 & 1
	sr.Extend = carry != 0
	sr.Carry = carry != 0
	res = rr

	if res != 0 {
		sr.Zero = false
	}
	sr.Negative = negFlag(uint32(res), registers.Byte)
	sr.Overflow = msbBefore && !(res>>7&1 != 0)

	return uint32(res)
}

// Nbcd is SBCD with an implicit zero source, i.e. 0 - dest - X.
func Nbcd(dest uint32, sr *registers.StatusRegister) uint32 {
	return Sbcd(dest, 0, sr)
}
