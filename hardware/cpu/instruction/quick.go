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

// quickData extracts ADDQ/SUBQ's 3-bit immediate out of the register
// field, where an encoded zero means 8, not 0.
func quickData(ird uint16) uint32 {
	v := regField(ird)
	if v == 0 {
		return 8
	}
	return uint32(v)
}

// moveqData sign-extends MOVEQ's low data byte to 32 bits.
func moveqData(ird uint16) uint32 {
	return uint32(int32(int8(uint8(ird))))
}

// dispByte sign-extends Bcc/BSR/DBcc's low displacement byte.
func dispByte(ird uint16) int32 {
	return int32(int8(uint8(ird)))
}
