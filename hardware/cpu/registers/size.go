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

package registers

// Size is the operand width of a register access or bus cycle.
type Size int

// The three operand widths the 68000 data path supports. Values match the
// sz two-bit opcode field ordering (00=Byte, 01=Word, 10=Long) so decoder
// tables can convert directly via Size(bits).
const (
	Byte Size = iota
	Word
	Long
)

func (s Size) String() string {
	switch s {
	case Byte:
		return "B"
	case Word:
		return "W"
	case Long:
		return "L"
	default:
		return "?"
	}
}

// Bytes returns the width of s in bytes.
func (s Size) Bytes() uint32 {
	switch s {
	case Byte:
		return 1
	case Word:
		return 2
	case Long:
		return 4
	default:
		return 0
	}
}

// Mask returns the bitmask that keeps only the low s bits of a value.
func (s Size) Mask() uint32 {
	switch s {
	case Byte:
		return 0xFF
	case Word:
		return 0xFFFF
	case Long:
		return 0xFFFFFFFF
	default:
		return 0
	}
}

// SignBit returns the mask of the sign bit at width s.
func (s Size) SignBit() uint32 {
	switch s {
	case Byte:
		return 0x80
	case Word:
		return 0x8000
	case Long:
		return 0x80000000
	default:
		return 0
	}
}
