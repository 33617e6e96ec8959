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

// msb returns bit (width-1) of val at size, as a bool.
func msb(val uint32, size registers.Size) bool {
	return val&size.SignBit() != 0
}

func lsb(val uint32) bool {
	return val&1 != 0
}

// Asl computes an arithmetic left shift, count taken modulo 64 per spec
// §4.7. C and X both take the last bit shifted out; V is set if the
// sign bit changed value at any point during the shift (an accurate
// per-bit overflow check, not just first-vs-last comparison).
func Asl(a uint32, count uint32, size registers.Size, sr *registers.StatusRegister) uint32 {
	val := value(a, size)
	count %= 64

	sr.Carry = false
	sr.Overflow = false
	for i := uint32(0); i < count; i++ {
		before := msb(val, size)
		sr.Carry = before
		sr.Extend = before
		val = (val << 1) & size.Mask()
		sr.Overflow = sr.Overflow || before != msb(val, size)
	}

	setNZ(sr, val, size)
	return val
}

// Asr computes an arithmetic right shift (sign-extending), count taken
// modulo 64.
func Asr(a uint32, count uint32, size registers.Size, sr *registers.StatusRegister) uint32 {
	val := int32(signExtendTo32(a, size))
	count %= 64

	sr.Carry = false
	sr.Overflow = false
	for i := uint32(0); i < count; i++ {
		bit := val&1 != 0
		sr.Carry = bit
		sr.Extend = bit
		val >>= 1
	}

	res := value(uint32(val), size)
	setNZ(sr, res, size)
	return res
}

func signExtendTo32(v uint32, size registers.Size) uint32 {
	switch size {
	case registers.Byte:
		return uint32(int32(int8(uint8(v))))
	case registers.Word:
		return signExtendWord(v)
	default:
		return v
	}
}

// Rol rotates val left by count bits (mod 64) without involving X. C
// takes the last bit rotated into the low position; V is always
// cleared.
func Rol(a uint32, count uint32, size registers.Size, sr *registers.StatusRegister) uint32 {
	val := value(a, size)
	width := size.Bytes() * 8
	count %= 64
	shift := count % width

	res := val
	if shift != 0 {
		res = value((val<<shift)|(val>>(width-shift)), size)
	}

	if count == 0 {
		sr.Carry = false
	} else {
		sr.Carry = lsb(res)
	}
	setNZ(sr, res, size)
	sr.Overflow = false
	return res
}

// Ror rotates val right by count bits (mod 64).
func Ror(a uint32, count uint32, size registers.Size, sr *registers.StatusRegister) uint32 {
	val := value(a, size)
	width := size.Bytes() * 8
	count %= 64
	shift := count % width

	res := val
	if shift != 0 {
		res = value((val>>shift)|(val<<(width-shift)), size)
	}

	if count == 0 {
		sr.Carry = false
	} else {
		sr.Carry = msb(res, size)
	}
	setNZ(sr, res, size)
	sr.Overflow = false
	return res
}

// Roxl rotates val left through X: X feeds the vacated low bit, and the
// bit shifted out of the top becomes the new X and C.
func Roxl(a uint32, count uint32, size registers.Size, sr *registers.StatusRegister) uint32 {
	val := value(a, size)
	count %= 64

	sr.Carry = sr.Extend
	for i := uint32(0); i < count; i++ {
		out := msb(val, size)
		val = value(val<<1, size)
		if sr.Extend {
			val |= 1
		}
		sr.Extend = out
		sr.Carry = out
	}

	setNZ(sr, val, size)
	sr.Overflow = false
	return val
}

// Roxr rotates val right through X.
func Roxr(a uint32, count uint32, size registers.Size, sr *registers.StatusRegister) uint32 {
	val := value(a, size)
	count %= 64

	sr.Carry = sr.Extend
	for i := uint32(0); i < count; i++ {
		out := lsb(val)
		val >>= 1
		if sr.Extend {
			val |= size.SignBit()
		}
		sr.Extend = out
		sr.Carry = out
	}

	setNZ(sr, val, size)
	sr.Overflow = false
	return val
}

// Lsl computes a logical left shift. C/X take the last bit shifted out
// of the top; a shift count of zero leaves C clear (there is no "last
// bit" to report).
func Lsl(a uint32, count uint32, size registers.Size, sr *registers.StatusRegister) uint32 {
	val := uint64(value(a, size))
	count %= 64

	if count == 0 {
		sr.Carry = false
	} else {
		sr.Carry = msb(uint32(val<<(count-1)), size)
		sr.Extend = sr.Carry
	}

	res := value(uint32(val<<count), size)
	sr.Overflow = false
	setNZ(sr, res, size)
	return res
}

// Lsr computes a logical right shift.
func Lsr(a uint32, count uint32, size registers.Size, sr *registers.StatusRegister) uint32 {
	val := uint64(value(a, size))
	count %= 64

	if count == 0 {
		sr.Carry = false
	} else {
		sr.Carry = (val>>(count-1))&1 != 0
		sr.Extend = sr.Carry
	}

	res := value(uint32(val>>count), size)
	sr.Overflow = false
	setNZ(sr, res, size)
	return res
}
