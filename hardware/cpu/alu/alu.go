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

// Package alu implements the pure ALU/flag layer (spec §4.7): stateless
// functions that take operand value(s), an operand size, and a mutable
// status register, and return the masked result. Every function does
// its own width truncation explicitly - Go never promotes integers
// implicitly the way C does, but the truncation points still matter
// for correctness, so they are made visible via registers.Size.Mask
// rather than left to arithmetic overflow.
package alu

import "github.com/segacore/m68k/hardware/cpu/registers"

func value(v uint32, size registers.Size) uint32 {
	return v & size.Mask()
}

func negFlag(v uint32, size registers.Size) bool {
	return v&size.SignBit() != 0
}

func zerFlag(v uint32, size registers.Size) bool {
	return value(v, size) == 0
}

func setNZ(sr *registers.StatusRegister, res uint32, size registers.Size) {
	sr.Negative = negFlag(res, size)
	sr.Zero = zerFlag(res, size)
}

func setLogical(sr *registers.StatusRegister, res uint32, size registers.Size) {
	sr.Carry = false
	sr.Overflow = false
	setNZ(sr, res, size)
}

// addRaw computes a+b+x truncated to size, with no flag side effects.
func addRaw(a, b uint32, x bool, size registers.Size) uint32 {
	xv := uint32(0)
	if x {
		xv = 1
	}
	return (a + b + xv) & size.Mask()
}

func subRaw(a, b uint32, x bool, size registers.Size) uint32 {
	xv := uint32(0)
	if x {
		xv = 1
	}
	return (a - b - xv) & size.Mask()
}

// addFlags sets C, X and V for a+b+x at width size; res must already be
// addRaw(a, b, x, size).
func addFlags(sr *registers.StatusRegister, a, b uint32, x bool, size registers.Size, res uint32) {
	xv := uint32(0)
	if x {
		xv = 1
	}
	sum := uint64(a&size.Mask()) + uint64(b&size.Mask()) + uint64(xv)
	sr.Carry = sum&^uint64(size.Mask()) != 0
	sign := size.SignBit()
	sr.Overflow = (^(a^b))&(a^res)&sign != 0
	sr.Extend = sr.Carry
}

func subFlags(sr *registers.StatusRegister, a, b uint32, x bool, size registers.Size, res uint32) {
	xv := uint64(0)
	if x {
		xv = 1
	}
	diff := int64(a&size.Mask()) - int64(b&size.Mask()) - int64(xv)
	sr.Carry = diff < 0
	sign := size.SignBit()
	sr.Overflow = (a^b)&(a^res)&sign != 0
	sr.Extend = sr.Carry
}

// Add computes a+b at width size and updates C, V, X, N, Z.
func Add(a, b uint32, size registers.Size, sr *registers.StatusRegister) uint32 {
	res := addRaw(a, b, false, size)
	addFlags(sr, a, b, false, size, res)
	setNZ(sr, res, size)
	return res
}

// AddQuick computes ADDQ's destination update: when dest is an address
// register the add is a plain 32-bit pointer arithmetic that never
// touches flags (spec-grounded on ADDA's own no-flags rule), otherwise
// it behaves exactly like Add.
func AddQuick(src, dest uint32, size registers.Size, sr *registers.StatusRegister, destIsAddrReg bool) uint32 {
	if destIsAddrReg {
		return AddA(src, dest, size)
	}
	return Add(src, dest, size, sr)
}

// AddX computes a+b+X and updates C, V, X, N; Z is cleared only when the
// result is nonzero (the BCD-style "accumulating Z" rule ADDX shares).
func AddX(a, b uint32, size registers.Size, sr *registers.StatusRegister) uint32 {
	res := addRaw(a, b, sr.Extend, size)
	addFlags(sr, a, b, sr.Extend, size, res)
	if res != 0 {
		sr.Zero = false
	}
	sr.Negative = negFlag(res, size)
	return res
}

// AddA computes an address-register add. Word-sized sources are sign
// extended to 32 bits before the (always 32-bit, flagless) add.
func AddA(src, dest uint32, size registers.Size) uint32 {
	s := src
	if size == registers.Word {
		s = signExtendWord(src)
	} else {
		s = value(src, size)
	}
	return dest + s
}

// Sub computes a-b at width size and updates C, V, X, N, Z.
func Sub(a, b uint32, size registers.Size, sr *registers.StatusRegister) uint32 {
	res := subRaw(a, b, false, size)
	subFlags(sr, a, b, false, size, res)
	setNZ(sr, res, size)
	return res
}

// SubQuick mirrors AddQuick for SUBQ.
func SubQuick(src, dest uint32, size registers.Size, sr *registers.StatusRegister, destIsAddrReg bool) uint32 {
	if destIsAddrReg {
		return SubA(src, dest, size)
	}
	return Sub(dest, src, size, sr)
}

// SubX computes a-b-X and updates C, V, X, N; Z follows the same
// accumulating rule as AddX.
func SubX(a, b uint32, size registers.Size, sr *registers.StatusRegister) uint32 {
	res := subRaw(a, b, sr.Extend, size)
	subFlags(sr, a, b, sr.Extend, size, res)
	if res != 0 {
		sr.Zero = false
	}
	sr.Negative = negFlag(res, size)
	return res
}

// SubA mirrors AddA for address-register subtraction.
func SubA(src, dest uint32, size registers.Size) uint32 {
	s := src
	if size == registers.Word {
		s = signExtendWord(src)
	} else {
		s = value(src, size)
	}
	return dest - s
}

// Cmp behaves like Sub but discards the result and leaves X untouched -
// CMP is the one subtract-family instruction that never affects Extend.
func Cmp(a, b uint32, size registers.Size, sr *registers.StatusRegister) uint32 {
	oldX := sr.Extend
	Sub(a, b, size, sr)
	sr.Extend = oldX
	return value(a, size)
}

// CmpA compares a 32-bit address-register value against a source that is
// sign-extended to 32 bits when word-sized, always as a Long compare.
func CmpA(src, dest uint32, size registers.Size, sr *registers.StatusRegister) uint32 {
	var s uint32
	if size == registers.Word {
		s = signExtendWord(src)
	} else {
		s = src
	}
	return Cmp(dest, s, registers.Long, sr)
}

// And computes a&b and updates the logical flag set (C=V=0, N, Z).
func And(a, b uint32, size registers.Size, sr *registers.StatusRegister) uint32 {
	res := value(a&b, size)
	setLogical(sr, res, size)
	return res
}

// Or computes a|b and updates the logical flag set.
func Or(a, b uint32, size registers.Size, sr *registers.StatusRegister) uint32 {
	res := value(a|b, size)
	setLogical(sr, res, size)
	return res
}

// Eor computes a^b and updates the logical flag set.
func Eor(a, b uint32, size registers.Size, sr *registers.StatusRegister) uint32 {
	res := value(a^b, size)
	setLogical(sr, res, size)
	return res
}

// AndiToCCR ANDs the low 5 condition bits of src into sr's packed CCR,
// leaving the system byte untouched.
func AndiToCCR(sr *registers.StatusRegister, src uint8) {
	sr.SetCCR(sr.CCR() & (uint16(src) | 0xFFE0))
}

// OrToCCR ORs the low 5 bits of src into sr's packed CCR.
func OrToCCR(sr *registers.StatusRegister, src uint8) {
	sr.SetCCR(sr.CCR() | uint16(src)&0x1F)
}

// EorToCCR XORs the low 5 bits of src into sr's packed CCR.
func EorToCCR(sr *registers.StatusRegister, src uint8) {
	sr.SetCCR(sr.CCR() ^ uint16(src)&0x1F)
}

// AndiToSR ANDs src (already masked to the implemented bits) into the
// full SR.
func AndiToSR(sr *registers.StatusRegister, src uint16) {
	sr.FromValue(sr.Value() & src)
}

// OrToSR ORs src into the full SR.
func OrToSR(sr *registers.StatusRegister, src uint16) {
	sr.FromValue(sr.Value() | src)
}

// EorToSR XORs src into the full SR.
func EorToSR(sr *registers.StatusRegister, src uint16) {
	sr.FromValue(sr.Value() ^ src)
}

// Neg computes 0-a, i.e. Sub(0, a, ...).
func Neg(a uint32, size registers.Size, sr *registers.StatusRegister) uint32 {
	return Sub(0, a, size, sr)
}

// NegX computes 0-a-X, i.e. SubX(0, a, ...).
func NegX(a uint32, size registers.Size, sr *registers.StatusRegister) uint32 {
	return SubX(0, a, size, sr)
}

// Not computes ^a and updates the logical flag set.
func Not(a uint32, size registers.Size, sr *registers.StatusRegister) uint32 {
	res := value(^a, size)
	setNZ(sr, res, size)
	sr.Overflow = false
	sr.Carry = false
	return res
}

// Move is MOVE's ALU-visible half: it sets N/Z from the source value and
// clears V and C, leaving the actual data transfer to the caller.
func Move(a uint32, size registers.Size, sr *registers.StatusRegister) uint32 {
	res := value(a, size)
	setNZ(sr, res, size)
	sr.Overflow = false
	sr.Carry = false
	return res
}

// MoveA sign-extends a word source to 32 bits; a long source passes
// through unchanged. MOVEA never touches flags.
func MoveA(a uint32, size registers.Size) uint32 {
	if size == registers.Long {
		return a
	}
	return signExtendWord(a)
}

// Clr sets the destination to zero and always reports Z=1, N=V=C=0.
func Clr(sr *registers.StatusRegister) uint32 {
	sr.Negative = false
	sr.Overflow = false
	sr.Carry = false
	sr.Zero = true
	return 0
}

// Tst updates flags from src without modifying it.
func Tst(src uint32, size registers.Size, sr *registers.StatusRegister) {
	sr.Overflow = false
	sr.Carry = false
	setNZ(sr, src, size)
}

func signExtendWord(v uint32) uint32 {
	return uint32(int32(int16(uint16(v))))
}

// MoveToSR masks src to the implemented SR bits, per spec §6.
func MoveToSR(src uint16) uint16 {
	return src & registers.ImplementedMask
}

// MoveToCCR replaces only the low 5 CCR bits of currentSR with src's low
// 5 bits.
func MoveToCCR(src uint8, currentSR uint16) uint16 {
	return (currentSR &^ 0x1F) | uint16(src)&0x1F
}

// RTE unmasks a stacked SR to the implemented bits.
func RTE(newSR uint16) uint16 {
	return newSR & registers.ImplementedMask
}

// RTR replaces the CCR of currentSR with newCCR's low byte, matching
// RTR's "restore CCR only, PC comes separately" semantics.
func RTR(newCCR uint16, currentSR uint16) uint16 {
	return MoveToCCR(uint8(newCCR), currentSR)
}
