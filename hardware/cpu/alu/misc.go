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

// Ext sign-extends a byte to a word (size Byte) or a word to a long
// (any other size), updating N/Z and clearing V/C.
func Ext(a uint32, size registers.Size, sr *registers.StatusRegister) uint32 {
	var res uint32
	if size == registers.Byte {
		res = uint32(int32(int16(int8(uint8(a)))))
		setNZ(sr, res, registers.Word)
	} else {
		res = signExtendWord(a)
		setNZ(sr, res, registers.Long)
	}
	sr.Overflow = false
	sr.Carry = false
	return res
}

// Swap exchanges the high and low words of a 32-bit value.
func Swap(a uint32, sr *registers.StatusRegister) uint32 {
	res := (a << 16) | (a >> 16)
	setNZ(sr, res, registers.Long)
	sr.Overflow = false
	sr.Carry = false
	return res
}

// Tas updates flags from the byte value and sets its top bit.
func Tas(a uint32, sr *registers.StatusRegister) uint32 {
	v := value(a, registers.Byte)
	setNZ(sr, v, registers.Byte)
	sr.Overflow = false
	sr.Carry = false
	return v | 0x80
}

// Chk compares a signed word bound (dest) against a signed word limit
// (src). It reports whether the CHK exception should be raised and
// sets N to indicate which bound was violated (undocumented but
// consistently implemented behavior); V and C are always cleared and Z
// reflects dest, matching real silicon's documented quirks.
func Chk(src, dest uint32, sr *registers.StatusRegister) bool {
	srcVal := int16(uint16(src))
	destVal := int16(uint16(dest))

	belowZero := destVal < 0
	aboveLimit := destVal > srcVal

	if belowZero {
		sr.Negative = true
	} else if aboveLimit {
		sr.Negative = false
	}

	sr.Zero = zerFlag(uint32(uint16(destVal)), registers.Word)
	sr.Overflow = false
	sr.Carry = false

	return belowZero || aboveLimit
}
