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

// opcodeWordBytes is the one PC advancement every instruction pays for
// its own opcode word, applied once at dispatch before any operand is
// decoded (see unit.go's dispatch). Every extension word an operand
// needs beyond that - displacement, absolute address, immediate data -
// is already accounted for by hardware/cpu/ea's own PC bookkeeping
// (schedulePrefetchIrc/EnqueueReadImm each advance PC as a side effect
// of fetching that word), so no further per-mode advance is needed once
// decoding completes; spec §4.5's advance_pc table is folded into that
// decoder instead of being reapplied here - see DESIGN.md.
const opcodeWordBytes = 2
